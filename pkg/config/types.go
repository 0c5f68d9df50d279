package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/calltrack/calltrack/pkg/stores"
	"github.com/calltrack/calltrack/pkg/telemetry"
)

// Config is the application configuration for the calltrack CLI, loaded
// from a YAML file and mapped onto the component configurations.
type Config struct {
	// Store configures the rotating log database.
	Store StoreConfig `yaml:"store"`

	// Record seeds the recording behavior of every instrumented function.
	Record RecordConfig `yaml:"record"`

	// Logging configures the diagnostic log output.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`

	// Events configures the event publisher.
	Events EventsConfig `yaml:"events"`
}

// StoreConfig configures where records are persisted.
type StoreConfig struct {
	// Dir is the directory holding the numbered database files.
	Dir string `yaml:"dir" validate:"required"`

	// BaseName is the file name prefix, as in <base>_1.sqlite.
	BaseName string `yaml:"base_name" validate:"required"`

	// MaxBytes caps the estimated size of one database file before the
	// store rotates to the next index.
	MaxBytes int64 `yaml:"max_bytes" validate:"gt=0"`

	// WAL enables write-ahead logging on the database files.
	WAL bool `yaml:"wal"`

	// AutoClose reopens the database for every write instead of holding
	// the connection open.
	AutoClose bool `yaml:"auto_close"`
}

// RecordConfig seeds the run configuration of every registered function,
// using the same keys as doc tags. Doc tags still apply on top, per
// function.
type RecordConfig struct {
	// Level replaces the default success level (LOG).
	Level string `yaml:"level,omitempty"`

	// ErrorLevel replaces the default failure level (ERROR).
	ErrorLevel string `yaml:"error_level,omitempty"`

	// Tag is recorded in the tag field of every record.
	Tag string `yaml:"tag,omitempty"`

	// Message replaces the computed message text.
	Message string `yaml:"message,omitempty"`

	// Disable lists field categories dropped from the store schema.
	Disable []string `yaml:"disable,omitempty" validate:"dive,oneof=function thread computer cpu memory gpu host"`

	// CollectTimeout bounds each system snapshot probe. Zero keeps the
	// collector default.
	CollectTimeout Duration `yaml:"collect_timeout,omitempty"`
}

// LoggingConfig configures the diagnostic log.
type LoggingConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error, fatal).
	Level string `yaml:"level" validate:"oneof=trace debug info warn error fatal"`

	// Format specifies the log format (console, json).
	Format string `yaml:"format" validate:"oneof=console json"`

	// Output specifies where logs are written (stdout, stderr, file path).
	Output string `yaml:"output" validate:"required"`

	// EnableCaller adds file:line caller information to logs.
	EnableCaller bool `yaml:"enable_caller"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoint is served.
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address for the metrics HTTP endpoint.
	ListenAddress string `yaml:"listen_address" validate:"required_if=Enabled true"`

	// Path is the HTTP path for metrics (default: /metrics).
	Path string `yaml:"path,omitempty"`
}

// EventsConfig configures the event publisher.
type EventsConfig struct {
	// Enabled controls whether events are published.
	Enabled bool `yaml:"enabled"`

	// BufferSize is the size of the event buffer.
	BufferSize int `yaml:"buffer_size" validate:"required_if=Enabled true,omitempty,gt=0"`

	// Async delivers events from a background goroutine.
	Async bool `yaml:"async"`
}

// Duration wraps time.Duration so YAML accepts "5s" style values.
type Duration time.Duration

// UnmarshalYAML decodes a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML encodes the duration back to its string form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Dir:      "logs",
			BaseName: "log",
			MaxBytes: stores.DefaultMaxBytes,
			WAL:      true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled:       false,
			ListenAddress: ":9090",
			Path:          "/metrics",
		},
		Events: EventsConfig{
			Enabled:    true,
			BufferSize: 1000,
			Async:      true,
		},
	}
}

var validate = validator.New()

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid calltrack config: %w", err)
	}
	return nil
}

// StoreOptions returns the stores configuration. The field set is left
// empty; the recorder derives it from its active fields.
func (c *Config) StoreOptions() stores.Config {
	return stores.Config{
		Dir:       c.Store.Dir,
		BaseName:  c.Store.BaseName,
		MaxBytes:  c.Store.MaxBytes,
		WAL:       c.Store.WAL,
		AutoClose: c.Store.AutoClose,
	}
}

// Overrides renders the record section as recorder overrides, keyed the
// way doc tags are.
func (c *Config) Overrides() map[string]string {
	out := make(map[string]string)
	if c.Record.Level != "" {
		out["level"] = c.Record.Level
	}
	if c.Record.ErrorLevel != "" {
		out["error_level"] = c.Record.ErrorLevel
	}
	if c.Record.Tag != "" {
		out["tag"] = c.Record.Tag
	}
	if c.Record.Message != "" {
		out["message"] = c.Record.Message
	}
	for _, key := range c.Record.Disable {
		out[key] = "false"
	}
	return out
}

// Telemetry maps the logging, metrics and events sections onto the
// telemetry configuration.
func (c *Config) Telemetry(version string) *telemetry.Config {
	cfg := telemetry.DefaultConfig()
	if version != "" {
		cfg.ServiceVersion = version
	}
	cfg.Logging.Level = c.Logging.Level
	cfg.Logging.Format = c.Logging.Format
	cfg.Logging.Output = c.Logging.Output
	cfg.Logging.EnableCaller = c.Logging.EnableCaller
	cfg.Metrics.Enabled = c.Metrics.Enabled
	cfg.Metrics.ListenAddress = c.Metrics.ListenAddress
	if c.Metrics.Path != "" {
		cfg.Metrics.Path = c.Metrics.Path
	}
	cfg.Events.Enabled = c.Events.Enabled
	cfg.Events.BufferSize = c.Events.BufferSize
	cfg.Events.EnableAsync = c.Events.Async
	return cfg
}
