package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/Rana718/seedbench/internal/database/common"
	driver "github.com/go-sql-driver/mysql"
)

type Adapter struct {
	common.SQLExecutor
	db *sql.DB
	qb squirrel.StatementBuilderType
}

func New() *Adapter {
	return &Adapter{
		qb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
}

// toDSN converts a mysql:// URL to the driver's DSN format.
func toDSN(url string) string {
	if !strings.HasPrefix(url, "mysql://") {
		return url
	}
	dsn := strings.TrimPrefix(url, "mysql://")
	atIndex := strings.LastIndex(dsn, "@")
	if atIndex <= 0 {
		return dsn
	}
	credentials := dsn[:atIndex]
	remainder := dsn[atIndex+1:]

	slashIndex := strings.Index(remainder, "/")
	if slashIndex <= 0 {
		return dsn
	}
	hostPort := remainder[:slashIndex]
	dbAndParams := remainder[slashIndex+1:]

	replacer := strings.NewReplacer(
		"ssl-mode=REQUIRED", "tls=skip-verify",
		"ssl-mode=DISABLED", "tls=false",
		"sslmode=require", "tls=skip-verify",
		"sslmode=disable", "tls=false",
	)
	return fmt.Sprintf("%s@tcp(%s)/%s", credentials, hostPort, replacer.Replace(dbAndParams))
}

func (m *Adapter) Connect(ctx context.Context, url string) error {
	cfg, err := driver.ParseDSN(toDSN(url))
	if err != nil {
		return fmt.Errorf("failed to parse connection URL: %w", err)
	}
	cfg.ParseTime = true
	cfg.MultiStatements = false

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(15 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping MySQL: %w", err)
	}

	m.db = db
	m.SQLExecutor = common.SQLExecutor{DB: db}
	return nil
}

func (m *Adapter) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

func (m *Adapter) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func (m *Adapter) Version(ctx context.Context) (string, error) {
	var version string
	if err := m.db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version); err != nil {
		return "", err
	}
	return "MySQL " + version, nil
}

var transientNumbers = map[uint16]bool{
	1040: true, // too many connections
	1205: true, // lock wait timeout
	1213: true, // deadlock
	2006: true, // server has gone away
	2013: true, // lost connection during query
}

func (m *Adapter) IsTransient(err error) bool {
	var myErr *driver.MySQLError
	if errors.As(err, &myErr) {
		return transientNumbers[myErr.Number]
	}
	if errors.Is(err, driver.ErrInvalidConn) {
		return true
	}
	return common.IsTransientCommon(err)
}
