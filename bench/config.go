package bench

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Scope selectors. Any other value selects the table with that name or scope label.
const (
	ScopeAll  = "all"
	ScopeMain = "main"
	ScopeTest = "test"
)

// DefaultRecords is the dataset size used when none is given.
const DefaultRecords = 10000

type ConnConfig struct {
	Driver   string `yaml:"driver"` // postgres, pq, mysql, sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	// Path is the database file for sqlite.
	Path string `yaml:"path"`
	// DSN, when set, is used verbatim instead of the fields above.
	DSN string `yaml:"dsn"`
}

type TableConfig struct {
	Name  string `yaml:"name"`
	Scope string `yaml:"scope"`
	// ChunkSize is the batched strategy's records per statement for this table.
	ChunkSize int `yaml:"chunkSize"`
}

// Config is loaded once at startup and never modified afterwards.
type Config struct {
	Connection ConnConfig    `yaml:"connection"`
	Tables     []TableConfig `yaml:"tables"`

	Records    int      `yaml:"records"`
	Seed       int64    `yaml:"seed"`
	NullRatio  float64  `yaml:"nullRatio"`
	Scope      string   `yaml:"scope"`
	Strategies []string `yaml:"strategies"`

	// TrackBatchSize caps the rows per statement the ORM emits inside its single save.
	TrackBatchSize   int           `yaml:"trackBatchSize"`
	BulkBatchSize    int           `yaml:"bulkBatchSize"`
	BulkTimeout      time.Duration `yaml:"bulkTimeout"`
	StatementTimeout time.Duration `yaml:"statementTimeout"`

	Runs           int  `yaml:"runs"`
	ParallelTables bool `yaml:"parallelTables"`
	CreateTables   bool `yaml:"createTables"`
	VerifyCount    bool `yaml:"verifyCount"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Connection: ConnConfig{Driver: "postgres", Host: "localhost", Port: 5432, SSLMode: "disable"},
		Tables: []TableConfig{
			{Name: "weather_forecasts", Scope: ScopeMain, ChunkSize: 1000},
			{Name: "weather_forecast_tests", Scope: ScopeTest, ChunkSize: 100},
		},
		Records:        DefaultRecords,
		Seed:           42,
		Scope:          ScopeTest,
		Strategies:     append([]string(nil), AllStrategies...),
		TrackBatchSize: 1000,
		BulkBatchSize:  5000,
		BulkTimeout:    60 * time.Second,
		Runs:           1,
		CreateTables:   true,
		VerifyCount:    true,
	}
}

// LoadConfig reads a YAML file over DefaultConfig. Keys absent from the file keep their
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: read config: %v", ErrConfiguration, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parse config %s: %v", ErrConfiguration, path, err)
	}
	return cfg, nil
}

// Validate checks configuration values and returns an ErrConfiguration for invalid
// settings.
func (c *Config) Validate() error {
	switch c.Connection.Driver {
	case "postgres", "pq", "mysql":
		if c.Connection.DSN == "" && c.Connection.Host == "" {
			return configErrorf("%s connection needs host or dsn", c.Connection.Driver)
		}
	case "sqlite":
		if c.Connection.DSN == "" && c.Connection.Path == "" {
			return configErrorf("sqlite connection needs path or dsn")
		}
	default:
		return configErrorf("unknown driver %q: must be postgres, pq, mysql, or sqlite", c.Connection.Driver)
	}
	if c.Records < 0 {
		return configErrorf("records must be non-negative, got %d", c.Records)
	}
	if c.NullRatio < 0 || c.NullRatio > 1 {
		return configErrorf("nullRatio must be within [0, 1], got %g", c.NullRatio)
	}
	if len(c.Tables) == 0 {
		return configErrorf("no tables configured")
	}
	for _, t := range c.Tables {
		if t.Name == "" {
			return configErrorf("table without name")
		}
		if t.ChunkSize <= 0 {
			return configErrorf("table %s: chunkSize must be positive, got %d", t.Name, t.ChunkSize)
		}
	}
	if len(c.SelectedTables()) == 0 {
		return configErrorf("scope %q matches no table", c.Scope)
	}
	if len(c.Strategies) == 0 {
		return configErrorf("no strategies selected")
	}
	for _, s := range c.Strategies {
		switch s {
		case StrategyTracked, StrategyBatched, StrategyBulk:
		default:
			return configErrorf("unknown strategy %q: must be one of %s", s, strings.Join(AllStrategies, ", "))
		}
	}
	if c.TrackBatchSize < 0 {
		return configErrorf("trackBatchSize must be non-negative, got %d", c.TrackBatchSize)
	}
	if c.BulkBatchSize < 0 {
		return configErrorf("bulkBatchSize must be non-negative, got %d", c.BulkBatchSize)
	}
	if c.BulkTimeout < 0 || c.StatementTimeout < 0 {
		return configErrorf("timeouts must be non-negative")
	}
	if c.Runs < 1 {
		return configErrorf("runs must be at least 1, got %d", c.Runs)
	}
	return nil
}

// SelectedTables returns the tables matched by Scope, in configuration order.
func (c *Config) SelectedTables() []TableConfig {
	scope := c.Scope
	if scope == "" {
		scope = ScopeTest
	}
	var out []TableConfig
	for _, t := range c.Tables {
		if scope == ScopeAll || t.Scope == scope || t.Name == scope {
			out = append(out, t)
		}
	}
	return out
}

// StrategiesFor builds the selected strategies for one table, in AllStrategies order.
func (c *Config) StrategiesFor(t TableConfig) []Strategy {
	want := make(map[string]bool, len(c.Strategies))
	for _, s := range c.Strategies {
		want[s] = true
	}
	var out []Strategy
	for _, name := range AllStrategies {
		if !want[name] {
			continue
		}
		switch name {
		case StrategyTracked:
			out = append(out, Tracked{})
		case StrategyBatched:
			out = append(out, Batched{ChunkSize: t.ChunkSize, StatementTimeout: c.StatementTimeout})
		case StrategyBulk:
			out = append(out, Bulk{BatchSize: c.BulkBatchSize, Timeout: c.BulkTimeout})
		}
	}
	return out
}
