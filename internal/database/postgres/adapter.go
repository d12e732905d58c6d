package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/Rana718/seedbench/internal/database/common"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Adapter serves PostgreSQL and CockroachDB. CockroachDB specific features
// (UPSERT, row-id allocation, SHOW CREATE TABLE, hidden columns) are enabled
// once the server version has been inspected in Connect.
type Adapter struct {
	pool      *pgxpool.Pool
	qb        squirrel.StatementBuilderType
	cockroach bool
}

func New() *Adapter {
	return &Adapter{
		qb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (p *Adapter) Connect(ctx context.Context, url string) error {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return fmt.Errorf("failed to parse connection URL: %w", err)
	}

	config.MaxConns = 4
	config.MinConns = 0
	config.MaxConnLifetime = 15 * time.Minute
	config.MaxConnIdleTime = 3 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	p.pool = pool

	version, err := p.Version(ctx)
	if err != nil {
		pool.Close()
		return fmt.Errorf("failed to read server version: %w", err)
	}
	p.cockroach = strings.Contains(version, "CockroachDB")
	return nil
}

func (p *Adapter) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

func (p *Adapter) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Adapter) Version(ctx context.Context) (string, error) {
	var version string
	if err := p.pool.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		return "", err
	}
	return version, nil
}

// IsCockroach reports whether the connected server is CockroachDB.
func (p *Adapter) IsCockroach() bool { return p.cockroach }

// transientClasses are SQLSTATE classes worth retrying: transaction
// rollback (serialization failures, deadlocks), connection exceptions and
// insufficient resources.
var transientClasses = []string{"40", "08", "53"}

var transientCodes = map[string]bool{
	"57P01": true, // admin_shutdown
	"57P02": true, // crash_shutdown
	"57P03": true, // cannot_connect_now
	"57014": true, // query_canceled (statement timeout)
}

func (p *Adapter) IsTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if transientCodes[pgErr.Code] {
			return true
		}
		for _, class := range transientClasses {
			if strings.HasPrefix(pgErr.Code, class) {
				return true
			}
		}
		return false
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	return common.IsTransientCommon(err)
}
