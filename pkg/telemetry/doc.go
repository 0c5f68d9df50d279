// Package telemetry carries the logging, metrics and event plumbing
// shared by the calltrack packages.
//
// The Telemetry bundle ties a zerolog-backed Logger, Prometheus
// Metrics and an EventPublisher behind one configuration and one
// lifecycle:
//
//	tel, err := telemetry.NewTelemetry(telemetry.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx = tel.WithContext(ctx)
//	telemetry.FromContext(ctx).Info("Recorder started")
//
// DefaultConfig logs to stderr and keeps metrics off.
// DevelopmentConfig raises the level to debug with caller annotations.
// ProductionConfig switches to JSON logs and enables the metrics
// endpoint.
//
// # Logging
//
// Logger wraps zerolog with the fields that recur in this codebase.
// Component loggers mark the subsystems, and the With helpers attach
// domain context:
//
//	logger := tel.Logger.NewComponentLogger("recorder")
//	logger.WithFunction("checkout").Info("Call recorded")
//	logger.WithStore("logs/log_2.sqlite", 2).Warn("Rotation follows")
//	logger.WithError(err).Error("Record not persisted")
//
// Components that accept a plain zerolog.Logger, such as the recorder
// and the system collector, are wired through Zerolog().
//
// # Metrics
//
// Metrics lives on a private registry; prometheus.DefaultRegisterer is
// never touched. The recorder reports:
//
//	calltrack_calls_total{function,outcome}
//	calltrack_call_duration_seconds{function}
//	calltrack_records_written_total
//	calltrack_record_write_failures_total
//	calltrack_rotations_total
//	calltrack_active_calls
//
// StartMetricsServer serves the registry over HTTP when metrics are
// enabled. With metrics disabled every recording method is a no-op.
//
// # Events
//
// EventPublisher emits call.recorded, record.write_failed and
// store.rotated notifications. Subscribers attach with an optional
// filter; FilterByLevel, FilterByType and FilterByFunction cover the
// common cases:
//
//	tel.Events.Subscribe(func(event telemetry.Event) {
//		fmt.Println(event.Message)
//	}, telemetry.FilterByLevel(telemetry.EventLevelWarning))
//
// With EnableAsync a dispatch goroutine drains a bounded queue; a full
// queue drops the event and counts it in Dropped. Shutdown delivers
// whatever is still queued before returning.
package telemetry
