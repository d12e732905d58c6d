package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/Rana718/seedbench/internal/config"
	"github.com/Rana718/seedbench/internal/database"
	"github.com/Rana718/seedbench/internal/expr"
	"github.com/Rana718/seedbench/internal/generator"
	"github.com/Rana718/seedbench/internal/model"
	"github.com/Rana718/seedbench/internal/schema"
	"github.com/Rana718/seedbench/internal/types"
	"github.com/fatih/color"
	"github.com/spf13/pflag"
)

// session is what every database command needs: a validated config, an open
// adapter and a logger.
type session struct {
	cfg     *config.Config
	adapter database.DatabaseAdapter
	logger  *slog.Logger
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	adapter, err := database.NewAdapter(cfg.Database.Provider)
	if err != nil {
		return nil, err
	}

	dbURL, err := cfg.GetDatabaseURL()
	if err != nil {
		return nil, err
	}

	if err := adapter.Connect(ctx, dbURL); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger := newLogger()
	if version, err := adapter.Version(ctx); err == nil {
		logger.Debug("connected", "provider", cfg.Database.Provider, "version", version)
	}
	return &session{cfg: cfg, adapter: adapter, logger: logger}, nil
}

func (s *session) Close() error {
	return s.adapter.Close()
}

// repository builds the schema repository with any configured overrides.
func (s *session) repository() (*schema.Repository, error) {
	builder := schema.NewBuilder(s.adapter, s.logger)
	repo := schema.NewRepository(builder, schema.NewCache(s.cfg.Schema.CacheSize, s.cfg.Schema.CacheTTL))
	if s.cfg.Schema.Overrides != "" {
		tables, err := schema.LoadOverrides(s.cfg.Schema.Overrides)
		if err != nil {
			return nil, err
		}
		repo.AddOverrides(tables...)
		s.logger.Debug("loaded table overrides", "path", s.cfg.Schema.Overrides, "tables", len(tables))
	}
	return repo, nil
}

// table returns the model of name with its foreign key columns linked. The
// whole schema is built so referenced tables are known.
func (s *session) table(ctx context.Context, repo *schema.Repository, name model.QualifiedName) (*model.Table, error) {
	g, err := repo.Graph(ctx, name.Schema, nil)
	if err != nil {
		return nil, err
	}
	if t := g.Table(name); t != nil {
		return t, nil
	}
	return repo.Table(ctx, name)
}

// factory returns a generator factory backed by the adapter's id allocator
// when it has one.
func (s *session) factory() *generator.Factory {
	ids, _ := s.adapter.(database.IDAllocator)
	return generator.NewFactory(expr.Builtins(), expr.NewEnv(s.cfg.Seed), ids)
}

// tableName parses a table argument, defaulting the schema from config.
func (s *session) tableName(arg string) (model.QualifiedName, error) {
	if strings.Contains(arg, ".") {
		return model.ParseQualifiedName(arg)
	}
	if strings.TrimSpace(arg) == "" {
		return model.QualifiedName{}, model.ErrConfiguration("empty table name")
	}
	return model.NewQualifiedName(s.cfg.Schema.Default, arg), nil
}

func (s *session) schemaArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return s.cfg.Schema.Default
}

// tableFilter matches table names against shell patterns; no patterns
// matches everything.
func tableFilter(patterns []string) func(types.SchemaTable) bool {
	return func(t types.SchemaTable) bool {
		if len(patterns) == 0 {
			return true
		}
		for _, p := range patterns {
			if ok, _ := path.Match(p, t.Name); ok {
				return true
			}
		}
		return false
	}
}

// enumFlag is a string flag restricted to a fixed set of values.
type enumFlag struct {
	value   string
	allowed []string
}

var _ pflag.Value = (*enumFlag)(nil)

func newEnumFlag(def string, allowed ...string) *enumFlag {
	return &enumFlag{value: def, allowed: allowed}
}

func (e *enumFlag) String() string { return e.value }

func (e *enumFlag) Set(v string) error {
	v = strings.ToLower(strings.TrimSpace(v))
	if !slices.Contains(e.allowed, v) {
		return fmt.Errorf("must be one of %s", strings.Join(e.allowed, ", "))
	}
	e.value = v
	return nil
}

func (e *enumFlag) Type() string { return "string" }

func success(format string, args ...any) {
	color.Green("✅ "+format, args...)
}
