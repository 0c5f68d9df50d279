package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/calltrack/calltrack/pkg/fields"
	"github.com/calltrack/calltrack/pkg/stores"
)

func newTailCommand() *cobra.Command {
	var (
		dir       string
		base      string
		index     int
		interval  time.Duration
		fromStart bool
	)

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow records as they are written",
		Long: `Follow the newest log database and print rows as they arrive.

New rows are picked up by polling for ids above the last one seen. The
log directory is also watched, so when the writer rotates to the next
numbered file the tail drains the finished file and follows along.

Runs until interrupted.`,
		Example: `  # Follow the newest database of the configured store
  calltrack tail

  # Start from the first row instead of the current end
  calltrack tail --from-start

  # Poll faster, starting at an explicit file index
  calltrack tail --interval 100ms --index 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dir != "" {
				cfg.Store.Dir = dir
			}
			if base != "" {
				cfg.Store.BaseName = base
			}

			ctx := cmd.Context()
			if index <= 0 {
				index = newestIndex(cfg.Store.Dir, cfg.Store.BaseName)
			}
			reader, err := stores.OpenReader(ctx, cfg.Store.Dir, cfg.Store.BaseName, index)
			if err != nil {
				return err
			}
			defer reader.Close()

			var lastID int64
			if !fromStart {
				lastID, err = maxRowID(ctx, reader)
				if err != nil {
					return err
				}
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("failed to create directory watcher: %w", err)
			}
			defer watcher.Close()
			if err := watcher.Add(cfg.Store.Dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", cfg.Store.Dir, err)
			}

			log.Info().
				Str("path", reader.Path()).
				Int64("after_id", lastID).
				Msg("Following log database")

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return nil

				case ev, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if !ev.Op.Has(fsnotify.Create) {
						continue
					}
					next := stores.FilePath(cfg.Store.Dir, cfg.Store.BaseName, reader.Index()+1)
					if filepath.Clean(ev.Name) != filepath.Clean(next) {
						continue
					}
					// Drain the finished file before switching
					lastID, err = drainNewRows(ctx, reader, lastID)
					if err != nil {
						return err
					}
					if err := reader.Next(ctx); err != nil {
						return fmt.Errorf("failed to follow rotation: %w", err)
					}
					lastID = 0
					log.Info().Str("path", reader.Path()).Msg("Following rotated database")

				case werr, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					log.Warn().Err(werr).Msg("Directory watcher error")

				case <-ticker.C:
					lastID, err = drainNewRows(ctx, reader, lastID)
					if err != nil {
						return err
					}
				}
			}
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "log directory override (default: configured store dir)")
	cmd.Flags().StringVar(&base, "base", "", "file name prefix override (default: configured base name)")
	cmd.Flags().IntVar(&index, "index", 0, "database file index to start at (default: newest)")
	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "poll interval for new rows")
	cmd.Flags().BoolVar(&fromStart, "from-start", false, "print existing rows before following")

	return cmd
}

// newestIndex probes the numbered database files and returns the highest
// existing index, or 1 when none exist yet.
func newestIndex(dir, base string) int {
	index := 1
	for {
		if _, err := os.Stat(stores.FilePath(dir, base, index+1)); err != nil {
			return index
		}
		index++
	}
}

// maxRowID returns the highest row id in the reader's file, or 0 when
// the file is empty.
func maxRowID(ctx context.Context, reader *stores.LogReader) (int64, error) {
	res, err := reader.Get(ctx, []fields.Name{"id"}, nil)
	if err != nil {
		return 0, err
	}
	var max int64
	for _, row := range res.Rows {
		if id, ok := row[0].(int64); ok && id > max {
			max = id
		}
	}
	return max, nil
}

// drainNewRows prints every row with an id above lastID and returns the
// new high-water mark.
func drainNewRows(ctx context.Context, reader *stores.LogReader, lastID int64) (int64, error) {
	rule := stores.Rule{"id": {stores.ComparatorGreater: lastID}}
	res, err := reader.Get(ctx, nil, rule)
	if err != nil {
		return lastID, err
	}
	return emitRows(res, lastID), nil
}

// emitRows prints queried rows and returns the highest id seen.
func emitRows(res *stores.Result, lastID int64) int64 {
	idx := make(map[string]int, len(res.Columns))
	for i, c := range res.Columns {
		idx[c] = i
	}
	cell := func(row []any, name string) any {
		i, ok := idx[name]
		if !ok {
			return nil
		}
		return row[i]
	}
	text := func(row []any, name string) string {
		v := cell(row, name)
		if v == nil {
			return "-"
		}
		return fmt.Sprint(v)
	}

	enc := json.NewEncoder(os.Stdout)
	for _, row := range res.Rows {
		if id, ok := cell(row, "id").(int64); ok && id > lastID {
			lastID = id
		}

		if jsonOutput {
			obj := make(map[string]any, len(row))
			for i, c := range res.Columns {
				obj[c] = row[i]
			}
			if err := enc.Encode(obj); err != nil {
				log.Warn().Err(err).Msg("Failed to encode row")
			}
			continue
		}

		stamp := "-"
		if ts, ok := cell(row, "timestamp").(float64); ok && ts > 0 {
			sec := int64(ts)
			nsec := int64((ts - float64(sec)) * float64(time.Second))
			stamp = time.Unix(sec, nsec).Format(time.RFC3339)
		}
		fmt.Printf("%s  %-8s  %-20s  %s\n", stamp, text(row, "level"), text(row, "function_name"), text(row, "message"))
	}
	return lastID
}
