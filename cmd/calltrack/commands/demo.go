package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/calltrack/calltrack/pkg/config"
	"github.com/calltrack/calltrack/pkg/fields"
	"github.com/calltrack/calltrack/pkg/instrument"
	"github.com/calltrack/calltrack/pkg/stores"
	"github.com/calltrack/calltrack/pkg/sysinfo"
	"github.com/calltrack/calltrack/pkg/telemetry"
)

func newDemoCommand() *cobra.Command {
	var (
		calls   int
		workers int
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run instrumented sample functions against the configured store",
		Long: `Run a set of instrumented sample functions and record every
invocation into the configured log store.

The demo registers three functions:
  - division: fails on b == 0, the caller receives NaN from the fallback
  - flaky:    panics on every third invocation
  - delay:    sleeps a few milliseconds to spread function_time values

Failures are recorded at the error level with the failure type and a
stack trace while the callers keep running on their fallback values.
After the run a per-file row summary is printed.`,
		Example: `  # Record 20 invocations per function into the configured store
  calltrack demo

  # More calls, more concurrent callers
  calltrack demo --calls 100 --workers 8

  # Watch rotation behavior with a small database cap
  calltrack demo --calls 1000 --config small.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tel, err := setupTelemetry(cfg)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := tel.Shutdown(shutdownCtx); err != nil {
					log.Warn().Err(err).Msg("Telemetry shutdown incomplete")
				}
			}()
			if err := tel.StartMetricsServer(); err != nil {
				return fmt.Errorf("failed to start metrics server: %w", err)
			}

			return runDemo(cmd.Context(), cfg, tel, calls, workers)
		},
	}

	cmd.Flags().IntVar(&calls, "calls", 20, "invocations per sample function")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent callers")

	return cmd
}

func runDemo(ctx context.Context, cfg *config.Config, tel *telemetry.Telemetry, calls, workers int) error {
	storeCfg := cfg.StoreOptions()
	logger := tel.Logger.Zerolog()
	collector := sysinfo.NewLocal(sysinfo.LocalConfig{
		Timeout: time.Duration(cfg.Record.CollectTimeout),
		Logger:  &logger,
	})

	rec, err := instrument.New(ctx, instrument.Options{
		Store:     &storeCfg,
		Collector: collector,
		Logger:    &logger,
		Metrics:   tel.Metrics,
		Events:    tel.Events,
		Overrides: cfg.Overrides(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize recorder: %w", err)
	}
	defer func() {
		if err := rec.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close log store")
		}
	}()

	division := rec.Register("division", "Divides a by b #tag:demo")
	flaky := rec.Register("flaky", "Panics on every third call #tag:demo")
	delay := rec.Register("delay", "Sleeps briefly #tag:demo #gpu:false")

	divide := instrument.Wrap2(division, instrument.Value(math.NaN()),
		func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, errors.New("division by zero")
			}
			return a / b, nil
		})

	log.Info().
		Int("calls", calls).
		Int("workers", workers).
		Str("store", rec.Store().Path()).
		Msg("Running demo invocations")

	if workers < 1 {
		workers = 1
	}
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i := 0; i < calls; i++ {
		g.Go(func() error {
			divide(float64(i), float64(i%5))

			instrument.Call(flaky, instrument.Value("recovered"), func() (string, error) {
				if i%3 == 0 {
					panic(fmt.Sprintf("spurious failure on call %d", i))
				}
				return "ok", nil
			}, i)

			instrument.Call(delay, instrument.Value(time.Duration(0)), func() (time.Duration, error) {
				d := time.Duration(i%7) * time.Millisecond
				time.Sleep(d)
				return d, nil
			}, i)

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	store := rec.Store()
	log.Info().
		Str("path", store.Path()).
		Int("index", store.Index()).
		Int("rotations", store.Rotations()).
		Msg("Demo finished")

	return printStoreSummary(ctx, cfg, store.Index())
}

// demoFileSummary is one database file's share of the recorded rows.
type demoFileSummary struct {
	Path     string `json:"path"`
	Index    int    `json:"index"`
	Rows     int    `json:"rows"`
	Failures int    `json:"failures"`
}

// printStoreSummary reads every database file up to lastIndex back and
// prints how many rows landed in each.
func printStoreSummary(ctx context.Context, cfg *config.Config, lastIndex int) error {
	errorLevel := cfg.Record.ErrorLevel
	if errorLevel == "" {
		errorLevel = fields.DefaultErrorLevel
	}

	var (
		files    []demoFileSummary
		total    int
		failures int
	)
	for idx := 1; idx <= lastIndex; idx++ {
		reader, err := stores.OpenReader(ctx, cfg.Store.Dir, cfg.Store.BaseName, idx)
		if err != nil {
			return fmt.Errorf("failed to open database %d: %w", idx, err)
		}
		res, err := reader.Get(ctx, []fields.Name{fields.Level}, nil)
		if err != nil {
			reader.Close()
			return fmt.Errorf("failed to read database %d: %w", idx, err)
		}
		summary := demoFileSummary{Path: reader.Path(), Index: idx, Rows: len(res.Rows)}
		for _, row := range res.Rows {
			if level, ok := row[1].(string); ok && level == errorLevel {
				summary.Failures++
			}
		}
		reader.Close()
		files = append(files, summary)
		total += summary.Rows
		failures += summary.Failures
	}

	if jsonOutput {
		out := struct {
			Files    []demoFileSummary `json:"files"`
			Total    int               `json:"total"`
			Failures int               `json:"failures"`
		}{Files: files, Total: total, Failures: failures}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for _, f := range files {
		fmt.Printf("%s: %d rows (%d failures)\n", f.Path, f.Rows, f.Failures)
	}
	fmt.Printf("total: %d rows (%d failures) across %d files\n", total, failures, len(files))
	return nil
}
