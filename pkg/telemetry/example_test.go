package telemetry_test

import (
	"context"
	"fmt"
	"time"

	"github.com/calltrack/calltrack/pkg/telemetry"
)

// ExampleNewTelemetry wires the bundle into an application lifecycle.
func ExampleNewTelemetry() {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = "1.0.0"

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	if err := tel.StartMetricsServer(); err != nil {
		panic(err)
	}

	ctx := tel.WithContext(context.Background())
	telemetry.FromContext(ctx).Info("Recorder started")
}

// ExampleLogger shows the domain helpers carried by the logger.
func ExampleLogger() {
	tel, _ := telemetry.NewTelemetry(telemetry.DevelopmentConfig())
	defer tel.Shutdown(context.Background())

	logger := tel.Logger.NewComponentLogger("recorder").WithTag("payments")
	logger.Debug("Snapshot prepared")
	logger.WithFunction("checkout").Info("Call recorded")

	err := fmt.Errorf("database is locked")
	logger.WithError(err).Error("Record not persisted")
}

// ExampleMetrics counts one call through its lifecycle.
func ExampleMetrics() {
	cfg := telemetry.DefaultConfig()
	cfg.Metrics.Enabled = true

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	tel.Metrics.RecordCallStarted()
	start := time.Now()
	time.Sleep(5 * time.Millisecond)
	tel.Metrics.RecordCallCompleted("checkout", "success", time.Since(start))
	tel.Metrics.RecordWrite()

	fmt.Println("call observed")
	// Output: call observed
}

// ExampleEventPublisher delivers store notifications to a subscriber.
func ExampleEventPublisher() {
	cfg := telemetry.DefaultConfig()
	cfg.Events.EnableAsync = false

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("%s: %s\n", event.Type, event.Message)
	}, nil)

	tel.Events.PublishStoreRotated("logs/log_2.sqlite", 2)
}

// ExampleFilterByLevel keeps only warnings and errors.
func ExampleFilterByLevel() {
	cfg := telemetry.DefaultConfig()
	cfg.Events.EnableAsync = false

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("delivered: %s\n", event.Function)
	}, telemetry.FilterByLevel(telemetry.EventLevelWarning))

	// The success is info level and filtered out, the failure passes.
	tel.Events.PublishCallRecorded("checkout", "LOG", "success", time.Millisecond)
	tel.Events.PublishCallRecorded("refund", "ERROR", "failure", time.Millisecond)
}

// ExampleProductionConfig tailors the production baseline.
func ExampleProductionConfig() {
	cfg := telemetry.ProductionConfig()
	cfg.ServiceName = "calltrack"
	cfg.ServiceVersion = "1.2.3"
	cfg.Metrics.ListenAddress = ":9090"
	cfg.Events.BufferSize = 10000

	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	fmt.Println("configuration valid")
	// Output: configuration valid
}
