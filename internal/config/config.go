package config

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/Rana718/seedbench/internal/loader"
	"github.com/Rana718/seedbench/internal/model"
	"github.com/Rana718/seedbench/internal/types"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the working directory.
const FileName = "seedbench.config.json"

type Config struct {
	Version  string       `json:"version" mapstructure:"version"`
	Database Database     `json:"database" mapstructure:"database"`
	Schema   Schema       `json:"schema" mapstructure:"schema"`
	Export   Export       `json:"export" mapstructure:"export"`
	Load     LoadSettings `json:"load" mapstructure:"load"`
	// Seed fixes the random source; zero seeds from the clock.
	Seed uint64 `json:"seed,omitempty" mapstructure:"seed"`
}

type Database struct {
	Provider string `json:"provider" mapstructure:"provider"`
	URLEnv   string `json:"url_env" mapstructure:"url_env"`
}

type Schema struct {
	Default   string        `json:"default" mapstructure:"default"`
	Overrides string        `json:"overrides,omitempty" mapstructure:"overrides"`
	CacheSize int           `json:"cache_size" mapstructure:"cache_size"`
	CacheTTL  time.Duration `json:"cache_ttl" mapstructure:"cache_ttl"`
}

type Export struct {
	Dir       string `json:"dir" mapstructure:"dir"`
	Delimiter string `json:"delimiter" mapstructure:"delimiter"`
	Quote     string `json:"quote" mapstructure:"quote"`
	Header    bool   `json:"header" mapstructure:"header"`
	Gzip      bool   `json:"gzip" mapstructure:"gzip"`
	Codec     string `json:"codec" mapstructure:"codec"`
}

type LoadSettings struct {
	Strategy      string        `json:"strategy" mapstructure:"strategy"`
	ChunkSize     int           `json:"chunk_size" mapstructure:"chunk_size"`
	QueueSize     int           `json:"queue_size" mapstructure:"queue_size"`
	Delimiter     string        `json:"delimiter" mapstructure:"delimiter"`
	Quote         string        `json:"quote" mapstructure:"quote"`
	OnConflict    string        `json:"on_conflict" mapstructure:"on_conflict"`
	Transient     string        `json:"transient" mapstructure:"transient"`
	NonTransient  string        `json:"non_transient" mapstructure:"non_transient"`
	HeaderTimeout time.Duration `json:"header_timeout" mapstructure:"header_timeout"`
	StallTimeout  time.Duration `json:"stall_timeout" mapstructure:"stall_timeout"`
}

var supportedProviders = []string{"postgresql", "postgres", "cockroach", "cockroachdb", "mysql", "sqlite", "sqlite3"}

// Default returns the configuration written by "seedbench init".
func Default() *Config {
	cfg := &Config{}
	cfg.Export.Header = true
	cfg.applyDefaults()
	return cfg
}

// Load unmarshals the viper state and fills defaults.
func Load() (*Config, error) {
	var cfg Config

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if !viper.IsSet("export.header") {
		cfg.Export.Header = true
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Version == "" {
		c.Version = "1"
	}
	if c.Database.Provider == "" {
		c.Database.Provider = "cockroachdb"
	}
	if c.Database.URLEnv == "" {
		c.Database.URLEnv = "DATABASE_URL"
	}
	if c.Schema.Default == "" {
		c.Schema.Default = model.DefaultSchema
	}
	if c.Schema.CacheSize == 0 {
		c.Schema.CacheSize = 256
	}
	if c.Schema.CacheTTL == 0 {
		c.Schema.CacheTTL = 10 * time.Minute
	}
	if c.Export.Dir == "" {
		c.Export.Dir = "export"
	}
	if c.Export.Delimiter == "" {
		c.Export.Delimiter = ","
	}
	if c.Export.Codec == "" {
		c.Export.Codec = "null"
	}
	if c.Load.Strategy == "" {
		c.Load.Strategy = "batch"
	}
	if c.Load.ChunkSize == 0 {
		c.Load.ChunkSize = 256
	}
	if c.Load.QueueSize == 0 {
		c.Load.QueueSize = 1024
	}
	if c.Load.Delimiter == "" {
		c.Load.Delimiter = ","
	}
	if c.Load.OnConflict == "" {
		c.Load.OnConflict = "none"
	}
	if c.Load.Transient == "" {
		c.Load.Transient = "log"
	}
	if c.Load.NonTransient == "" {
		c.Load.NonTransient = "rethrow"
	}
}

func (c *Config) GetDatabaseURL() (string, error) {
	dbURL := os.Getenv(c.Database.URLEnv)
	if dbURL == "" {
		return "", model.ErrConfiguration("database URL not found in environment variable %s", c.Database.URLEnv)
	}
	return dbURL, nil
}

func (c *Config) Validate() error {
	if !slices.Contains(supportedProviders, c.Database.Provider) {
		return model.ErrConfiguration("unsupported database provider: %s. Supported providers: %v", c.Database.Provider, supportedProviders)
	}
	if c.Schema.CacheSize < 0 {
		return model.ErrConfiguration("schema.cache_size cannot be negative")
	}
	if c.Export.Quote != "" && c.Export.Delimiter == c.Export.Quote {
		return model.ErrConfiguration("export delimiter and quote must differ")
	}
	if c.Load.Quote != "" && c.Load.Delimiter == c.Load.Quote {
		return model.ErrConfiguration("load delimiter and quote must differ")
	}
	if c.Load.ChunkSize < 0 || c.Load.QueueSize < 0 {
		return model.ErrConfiguration("load chunk_size and queue_size cannot be negative")
	}
	if _, err := loader.ParseKind(c.Load.Strategy); err != nil {
		return err
	}
	if _, err := types.ParseConflictPolicy(c.Load.OnConflict); err != nil {
		return err
	}
	if _, err := loader.ParseHandler(c.Load.Transient); err != nil {
		return err
	}
	if _, err := loader.ParseHandler(c.Load.NonTransient); err != nil {
		return err
	}
	return nil
}

// ErrorPolicy builds the load error policy from the configured handlers.
func (c *Config) ErrorPolicy() (*loader.ErrorPolicy, error) {
	transient, err := loader.ParseHandler(c.Load.Transient)
	if err != nil {
		return nil, err
	}
	nonTransient, err := loader.ParseHandler(c.Load.NonTransient)
	if err != nil {
		return nil, err
	}
	p := loader.NewErrorPolicy()
	p.SetTransient(transient)
	p.SetNonTransient(nonTransient)
	return p, nil
}

// WriteFile writes c as indented JSON. An existing file is left untouched.
func (c *Config) WriteFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
