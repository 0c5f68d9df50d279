package instrument

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/calltrack/calltrack/pkg/fields"
	"github.com/calltrack/calltrack/pkg/stores"
	"github.com/calltrack/calltrack/pkg/sysinfo"
	"github.com/calltrack/calltrack/pkg/tags"
	"github.com/calltrack/calltrack/pkg/telemetry"
)

// Options configures a Recorder.
type Options struct {
	// Store configures the rotating log store. Nil uses stores.DefaultConfig().
	// The column set is always derived from the recorder's active field set,
	// so any preset Fields value is replaced.
	Store *stores.Config

	// Collector supplies system snapshots for enabled system fields.
	// Nil uses a local collector.
	Collector sysinfo.Collector

	// Logger receives recorder diagnostics. Nil disables logging.
	Logger *zerolog.Logger

	// Metrics observes calls, persisted records and rotations. Nil uses a
	// no-op instance.
	Metrics *telemetry.Metrics

	// Events publishes call.recorded, record.write_failed and store.rotated
	// events. Nil uses a no-op instance.
	Events *telemetry.EventPublisher

	// Overrides seed the configuration of every registered function, using
	// the same keys as doc tags. Toggle keys set to "false" here remove the
	// owned fields from the store schema entirely.
	Overrides map[string]string
}

// Recorder wraps function calls and persists one record per invocation.
// It owns the log store lifecycle; the telemetry collaborators are owned
// by the caller.
type Recorder struct {
	store     *stores.LogStore
	collector sysinfo.Collector
	log       zerolog.Logger
	metrics   *telemetry.Metrics
	events    *telemetry.EventPublisher
	base      *fields.RunConfig
	pid       int64
}

// New creates a Recorder and initializes its log store. The store schema
// is derived from the catalog narrowed by Options.Overrides, so a toggle
// disabled here never produces a column.
func New(ctx context.Context, opts Options) (*Recorder, error) {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	metrics := opts.Metrics
	if metrics == nil {
		m, err := telemetry.NewMetrics(telemetry.MetricsConfig{})
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics: %w", err)
		}
		metrics = m
	}

	events := opts.Events
	if events == nil {
		ep, err := telemetry.NewEventPublisher(telemetry.EventsConfig{})
		if err != nil {
			return nil, fmt.Errorf("failed to create event publisher: %w", err)
		}
		events = ep
	}

	collector := opts.Collector
	if collector == nil {
		collector = sysinfo.NewLocal(sysinfo.LocalConfig{Logger: &log})
	}

	base := fields.NewRunConfig(opts.Overrides)

	storeCfg := stores.DefaultConfig()
	if opts.Store != nil {
		storeCfg = *opts.Store
	}
	storeCfg.Fields = activeDescriptors(base)

	userHook := storeCfg.OnRotate
	storeCfg.OnRotate = func(index int, path string) {
		metrics.RecordRotation()
		_ = events.PublishStoreRotated(path, int64(index))
		log.Info().Int("index", index).Str("path", path).Msg("log database rotated")
		if userHook != nil {
			userHook(index, path)
		}
	}

	store, err := stores.NewLogStore(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create log store: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize log store: %w", err)
	}

	return &Recorder{
		store:     store,
		collector: collector,
		log:       log,
		metrics:   metrics,
		events:    events,
		base:      base,
		pid:       int64(os.Getpid()),
	}, nil
}

// Register prepares a function for instrumentation. The documentation text
// is parsed for #key:value tags exactly once; the resulting configuration
// template is reapplied as a fresh snapshot on every invocation.
//
// A toggle disabled by a doc tag stops the function's records from
// carrying the owned fields; the store columns, which are shared by all
// registered functions, stay NULL for its rows.
func (r *Recorder) Register(name, doc string) *Func {
	tmpl := r.base.Snapshot()
	if overrides := tags.ParseOverrides(doc); len(overrides) > 0 {
		tmpl.Update(overrides)
	}
	return &Func{rec: r, name: name, tmpl: tmpl}
}

// Store returns the recorder's log store.
func (r *Recorder) Store() *stores.LogStore {
	return r.store
}

// Close releases the log store. In-flight calls racing a Close still
// return their computed values; their records are dropped with a
// diagnostic dump, like any other failed write.
func (r *Recorder) Close() error {
	return r.store.Close()
}

// Func is one registered function: its name plus the configuration
// template built from catalog defaults, recorder overrides and doc tags.
type Func struct {
	rec  *Recorder
	name string

	mu   sync.Mutex
	tmpl *fields.RunConfig
}

// Name returns the registered function name.
func (f *Func) Name() string {
	return f.name
}

// SetRecorded flips a toggle key's capture flag for subsequent calls.
// Unlike a registration-time disable this does not change the schema;
// the fields keep their columns and record their defaults. Returns false
// for unrecognized keys.
func (f *Func) SetRecorded(key string, recorded bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tmpl.SetRecorded(key, recorded)
}

// IsRecorded returns the capture flag for a toggle key.
func (f *Func) IsRecorded(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tmpl.IsRecorded(key)
}

// snapshot takes the per-invocation configuration copy.
func (f *Func) snapshot() *fields.RunConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tmpl.Snapshot()
}

// activeDescriptors returns the catalog descriptors for a configuration's
// active field set, in column order.
func activeDescriptors(cfg *fields.RunConfig) []fields.Descriptor {
	active := make(map[fields.Name]bool)
	for _, name := range cfg.Active() {
		active[name] = true
	}
	var out []fields.Descriptor
	for _, d := range fields.Catalog() {
		if active[d.Name] {
			out = append(out, d)
		}
	}
	return out
}
