package telemetry

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Config is the telemetry configuration shared by the recorder, the CLI
// and embedding applications.
type Config struct {
	// ServiceName identifies the service in logs and events.
	ServiceName string `validate:"required"`

	// ServiceVersion is the version reported alongside the name.
	ServiceVersion string `validate:"required"`

	// Environment names the deployment environment.
	Environment string

	Logging LoggingConfig
	Metrics MetricsConfig
	Events  EventsConfig
}

// LoggingConfig configures the structured diagnostic log.
type LoggingConfig struct {
	// Level is the minimum level written (trace, debug, info, warn,
	// error, fatal).
	Level string `validate:"oneof=trace debug info warn error fatal"`

	// Format selects console or json output.
	Format string `validate:"oneof=console json"`

	// Output is stdout, stderr or a file path.
	Output string `validate:"required"`

	// EnableCaller annotates entries with the file:line of the call site.
	EnableCaller bool
}

// MetricsConfig configures the Prometheus registry and its HTTP endpoint.
type MetricsConfig struct {
	// Enabled switches metrics collection on.
	Enabled bool

	// ListenAddress is where the metrics endpoint is served.
	ListenAddress string `validate:"required_if=Enabled true"`

	// Path is the HTTP path of the endpoint.
	Path string

	// Namespace prefixes every metric name.
	Namespace string

	// DefaultHistogramBuckets are the call duration buckets in seconds.
	DefaultHistogramBuckets []float64
}

// EventsConfig configures the event publisher.
type EventsConfig struct {
	// Enabled switches event publishing on.
	Enabled bool

	// BufferSize is the capacity of the delivery queue.
	BufferSize int `validate:"required_if=Enabled true,omitempty,gt=0"`

	// EnableAsync delivers events from a background goroutine instead
	// of inside Publish.
	EnableAsync bool
}

// defaultBuckets spans quick wrappers under a millisecond up to calls
// that run for seconds.
var defaultBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// DefaultConfig returns the baseline configuration: console logs on
// stderr at info level, events buffered and delivered asynchronously,
// metrics off.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "calltrack",
		ServiceVersion: "dev",
		Environment:    "development",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			ListenAddress:           ":9090",
			Path:                    "/metrics",
			Namespace:               "calltrack",
			DefaultHistogramBuckets: defaultBuckets,
		},
		Events: EventsConfig{
			Enabled:     true,
			BufferSize:  1000,
			EnableAsync: true,
		},
	}
}

// DevelopmentConfig returns a configuration for local work: debug level
// console logs with caller annotations.
func DevelopmentConfig() *Config {
	cfg := DefaultConfig()
	cfg.Logging.Level = "debug"
	cfg.Logging.EnableCaller = true
	return cfg
}

// ProductionConfig returns a configuration for deployed services: JSON
// logs and the metrics endpoint enabled.
func ProductionConfig() *Config {
	cfg := DefaultConfig()
	cfg.Environment = "production"
	cfg.Logging.Format = "json"
	cfg.Metrics.Enabled = true
	return cfg
}

var validate = validator.New()

// Validate checks the configuration, including the conditional
// requirements such as a listen address when metrics are enabled.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid telemetry config: %w", err)
	}
	return nil
}
