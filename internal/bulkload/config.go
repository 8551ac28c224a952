package bulkload

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/viper"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite/asyncexecutor"
)

// Config keys, identical to the flag names. Environment variables use the BULKLOAD_ prefix
// with dashes replaced by underscores, e.g. BULKLOAD_COMMIT_EVERY.
const (
	KeyDSN          = "dsn"
	KeyDriver       = "driver"
	KeyTable        = "table"
	KeyType         = "type"
	KeyFile         = "file"
	KeyParallelism  = "parallelism"
	KeyCommitEvery  = "commit-every"
	KeyBackpressure = "backpressure"
	KeyWAL          = "wal"
	KeyRate         = "rate"
	KeySchema       = "schema"
	KeyCreateTable  = "create-table"
	KeyMetricsAddr  = "metrics-addr"
	KeyOTLPEndpoint = "otlp-endpoint"
	KeyVerbose      = "verbose"
	KeyNoColor      = "no-color"
)

// Supported drivers.
const (
	DriverPGX    = "pgx"
	DriverSQL    = "sql"
	DriverSQLX   = "sqlx"
	DriverMemory = "memory"
)

var (
	// ErrInvalidConfig is returned for unusable command configuration.
	ErrInvalidConfig = errors.New("invalid bulkload configuration")

	drivers = []string{DriverPGX, DriverSQL, DriverSQLX, DriverMemory}
)

// Config is the resolved configuration of one bulkload run.
type Config struct {
	DSN          string
	Driver       string
	Table        string
	RecordType   string
	File         string
	Parallelism  int
	CommitEvery  int
	Backpressure int
	UseWAL       bool
	Rate         float64
	SchemaFile   string
	CreateTable  bool
	MetricsAddr  string
	OTLPEndpoint string
	Verbose      bool
	NoColor      bool
}

// ConfigFromViper reads the configuration from flags, environment and config file as merged by v.
func ConfigFromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		DSN:          v.GetString(KeyDSN),
		Driver:       v.GetString(KeyDriver),
		Table:        v.GetString(KeyTable),
		RecordType:   v.GetString(KeyType),
		File:         v.GetString(KeyFile),
		Parallelism:  v.GetInt(KeyParallelism),
		CommitEvery:  v.GetInt(KeyCommitEvery),
		Backpressure: v.GetInt(KeyBackpressure),
		UseWAL:       v.GetBool(KeyWAL),
		Rate:         v.GetFloat64(KeyRate),
		SchemaFile:   v.GetString(KeySchema),
		CreateTable:  v.GetBool(KeyCreateTable),
		MetricsAddr:  v.GetString(KeyMetricsAddr),
		OTLPEndpoint: v.GetString(KeyOTLPEndpoint),
		Verbose:      v.GetBool(KeyVerbose),
		NoColor:      v.GetBool(KeyNoColor),
	}

	return cfg, cfg.Validate()
}

// Validate checks the command-level settings; executor settings are validated by asyncexecutor.
func (c Config) Validate() error {
	if !slices.Contains(drivers, c.Driver) {
		return fmt.Errorf("%w: unknown driver %q, use one of %v", ErrInvalidConfig, c.Driver, drivers)
	}

	if c.Driver != DriverMemory && c.DSN == "" {
		return fmt.Errorf("%w: --%s is required for driver %s", ErrInvalidConfig, KeyDSN, c.Driver)
	}

	if c.RecordType == "" {
		return fmt.Errorf("%w: --%s must not be empty", ErrInvalidConfig, KeyType)
	}

	if c.Rate < 0 {
		return fmt.Errorf("%w: --%s must not be negative", ErrInvalidConfig, KeyRate)
	}

	return nil
}

// ExecutorOptions maps the settings to executor options.
func (c Config) ExecutorOptions() []asyncexecutor.Option {
	return []asyncexecutor.Option{
		asyncexecutor.WithParallelism(c.Parallelism),
		asyncexecutor.WithCommitEvery(c.CommitEvery),
		asyncexecutor.WithBackpressureThreshold(c.Backpressure),
		asyncexecutor.WithWAL(c.UseWAL),
	}
}

// LoadSchema returns the content of the schema file, or "" if none is configured.
func (c Config) LoadSchema() (string, error) {
	if c.SchemaFile == "" {
		return "", nil
	}

	content, err := os.ReadFile(c.SchemaFile)
	if err != nil {
		return "", fmt.Errorf("read schema: %w", err)
	}

	return string(content), nil
}
