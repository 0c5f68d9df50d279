package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/calltrack/calltrack/pkg/sysinfo"
)

func newSysinfoCommand() *cobra.Command {
	var categories []string

	cmd := &cobra.Command{
		Use:   "sysinfo",
		Short: "Collect system telemetry snapshots",
		Long: `Collect the system telemetry snapshots that instrumented calls
record: computer, cpu, memory, gpu and host.

Each snapshot is a JSON document. The gpu snapshot shells out to
nvidia-smi and comes back empty on machines without one.`,
		Example: `  # Everything
  calltrack sysinfo

  # Selected categories only
  calltrack sysinfo --category cpu --category memory`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var selected []sysinfo.Category
			for _, c := range categories {
				category := sysinfo.Category(c)
				if err := category.Validate(); err != nil {
					return err
				}
				selected = append(selected, category)
			}
			if len(selected) == 0 {
				selected = sysinfo.All()
			}

			logger := log.Logger
			collector := sysinfo.NewLocal(sysinfo.LocalConfig{Logger: &logger})

			snapshots, err := sysinfo.CollectAll(cmd.Context(), collector, selected)
			if err != nil {
				return err
			}

			if jsonOutput {
				out := make(map[string]json.RawMessage, len(snapshots))
				for category, snapshot := range snapshots {
					if snapshot == "" {
						out[string(category)] = json.RawMessage("null")
						continue
					}
					out[string(category)] = json.RawMessage(snapshot)
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			for _, category := range selected {
				snapshot := snapshots[category]
				if snapshot == "" {
					snapshot = "unavailable"
				}
				fmt.Printf("%s: %s\n", category, snapshot)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&categories, "category", nil, "category to collect (computer, cpu, memory, gpu, host), repeatable")

	return cmd
}
