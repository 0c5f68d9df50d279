package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/calltrack/calltrack/pkg/fields"
)

func newFieldsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "Show the recordable field catalog",
		Long: `Show every recordable field in persisted column order, together
with its category, storage type and default value, plus the doc-tag
vocabulary accepted at function registration.

Toggle keys switch capture of a field group (function, thread) or of a
single system field, as in "#gpu:false". Mark keys override display
defaults, as in "#level:WARN" or "#tag:billing".`,
		Example: `  calltrack fields
  calltrack fields --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := fields.Catalog()

			if jsonOutput {
				out := struct {
					Fields     []fields.Descriptor `json:"fields"`
					ToggleKeys []string            `json:"toggle_keys"`
					MarkKeys   []string            `json:"mark_keys"`
				}{
					Fields:     catalog,
					ToggleKeys: fields.ToggleKeys(),
					MarkKeys:   fields.MarkKeys(),
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCATEGORY\tSTORAGE\tDEFAULT")
			for _, d := range catalog {
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", d.Name, d.Category, d.Storage, d.Default)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("\ntoggle keys: %s\n", strings.Join(fields.ToggleKeys(), ", "))
			fmt.Printf("mark keys:   %s\n", strings.Join(fields.MarkKeys(), ", "))
			return nil
		},
	}

	return cmd
}
