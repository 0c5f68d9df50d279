package telemetry

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics exposes the recorder's Prometheus instrumentation. A disabled
// instance keeps every method as a no-op.
type Metrics struct {
	config   MetricsConfig
	registry *prometheus.Registry

	callsTotal     *prometheus.CounterVec
	callDuration   *prometheus.HistogramVec
	recordsWritten prometheus.Counter
	writeFailures  prometheus.Counter
	rotations      prometheus.Counter
	activeCalls    prometheus.Gauge
}

// NewMetrics creates the metric set on a private registry.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	m := &Metrics{config: cfg}
	if !cfg.Enabled {
		return m, nil
	}

	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	m.registry = prometheus.NewRegistry()
	factory := promauto.With(m.registry)

	m.callsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Name:      "calls_total",
		Help:      "Total number of instrumented calls by outcome.",
	}, []string{"function", "outcome"})

	m.callDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Name:      "call_duration_seconds",
		Help:      "Duration of instrumented calls in seconds.",
		Buckets:   buckets,
	}, []string{"function"})

	m.recordsWritten = factory.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Name:      "records_written_total",
		Help:      "Total number of call records persisted.",
	})

	m.writeFailures = factory.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Name:      "record_write_failures_total",
		Help:      "Total number of call records that could not be persisted.",
	})

	m.rotations = factory.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Name:      "rotations_total",
		Help:      "Total number of log database rotations.",
	})

	m.activeCalls = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Name:      "active_calls",
		Help:      "Current number of instrumented calls in flight.",
	})

	return m, nil
}

// RecordCallStarted marks one call in flight.
func (m *Metrics) RecordCallStarted() {
	if m.registry == nil {
		return
	}
	m.activeCalls.Inc()
}

// RecordCallCompleted counts a finished call under its outcome, success
// or failure, and observes its duration.
func (m *Metrics) RecordCallCompleted(function, outcome string, duration time.Duration) {
	if m.registry == nil {
		return
	}
	m.activeCalls.Dec()
	m.callsTotal.WithLabelValues(function, outcome).Inc()
	m.callDuration.WithLabelValues(function).Observe(duration.Seconds())
}

// RecordWrite counts a persisted call record.
func (m *Metrics) RecordWrite() {
	if m.registry == nil {
		return
	}
	m.recordsWritten.Inc()
}

// RecordWriteFailure counts a call record that could not be persisted.
func (m *Metrics) RecordWriteFailure() {
	if m.registry == nil {
		return
	}
	m.writeFailures.Inc()
}

// RecordRotation counts a rotation to the next log database file.
func (m *Metrics) RecordRotation() {
	if m.registry == nil {
		return
	}
	m.rotations.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// StartMetricsServer serves the metrics endpoint on the configured
// address from a background goroutine. Listener failures are logged,
// not returned.
func (m *Metrics) StartMetricsServer(logger zerolog.Logger) error {
	if m.registry == nil {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server stopped")
		}
	}()

	return nil
}
