package telemetry

import (
	"context"
	"fmt"
)

// Telemetry bundles the logger, metrics and event publisher behind one
// lifecycle.
type Telemetry struct {
	Logger  *Logger
	Metrics *Metrics
	Events  *EventPublisher
	Config  *Config
}

type telemetryContextKey struct{}

// NewTelemetry validates the configuration and builds the bundle.
func NewTelemetry(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	events, err := NewEventPublisher(cfg.Events)
	if err != nil {
		return nil, fmt.Errorf("failed to create event publisher: %w", err)
	}

	return &Telemetry{
		Logger:  logger,
		Metrics: metrics,
		Events:  events,
		Config:  cfg,
	}, nil
}

// WithContext embeds the bundle and its logger in the context.
func (t *Telemetry) WithContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, telemetryContextKey{}, t)
	return t.Logger.WithContext(ctx)
}

// FromTelemetryContext returns the bundle embedded in the context, or
// nil when none is present.
func FromTelemetryContext(ctx context.Context) *Telemetry {
	t, _ := ctx.Value(telemetryContextKey{}).(*Telemetry)
	return t
}

// Shutdown drains the event publisher. The metrics endpoint keeps
// serving until the process exits.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.Events.Shutdown(ctx)
}

// StartMetricsServer exposes the metrics endpoint when metrics are
// enabled.
func (t *Telemetry) StartMetricsServer() error {
	return t.Metrics.StartMetricsServer(t.Logger.Zerolog())
}
