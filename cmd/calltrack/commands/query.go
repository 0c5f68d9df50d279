package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/calltrack/calltrack/pkg/fields"
	"github.com/calltrack/calltrack/pkg/stores"
)

func newQueryCommand() *cobra.Command {
	var (
		dir       string
		base      string
		index     int
		level     string
		function  string
		ruleFlags []string
		columns   []string
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query recorded rows from a log database",
		Long: `Query one of the numbered log databases and print the matching
rows.

Filters combine with AND. Free-form clauses use the --rule flag with
the shape "field:comparator:value", where the comparator is one of
=, !=, >, <, >=, <= or LIKE. The value is compared with the column's
storage affinity, so numeric columns match numeric rule values.`,
		Example: `  # All rows in the first database file
  calltrack query

  # Failed calls only
  calltrack query --level ERROR

  # One function's slow invocations
  calltrack query --function division --rule "function_time:>:0.5"

  # LIKE match over messages, from the third file
  calltrack query --index 3 --rule "message:LIKE:%timeout%"

  # Narrow the selected columns and emit JSON
  calltrack query --columns level,function_name,function_return --json`,
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

			rule := stores.Rule{}
			if level != "" {
				addRuleClause(rule, fields.Level, stores.ComparatorEqual, level)
			}
			if function != "" {
				addRuleClause(rule, fields.FunctionName, stores.ComparatorEqual, function)
			}
			for _, raw := range ruleFlags {
				name, comparator, value, err := parseRuleFlag(raw)
				if err != nil {
					return err
				}
				addRuleClause(rule, name, comparator, value)
			}

			var filter []fields.Name
			for _, c := range columns {
				filter = append(filter, fields.Name(strings.TrimSpace(c)))
			}

			ctx := cmd.Context()
			reader, err := stores.OpenReader(ctx, cfg.Store.Dir, cfg.Store.BaseName, index)
			if err != nil {
				return err
			}
			defer reader.Close()

			res, err := reader.Get(ctx, filter, rule)
			if err != nil {
				return err
			}
			return printResult(res)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "log directory override (default: configured store dir)")
	cmd.Flags().StringVar(&base, "base", "", "file name prefix override (default: configured base name)")
	cmd.Flags().IntVar(&index, "index", 1, "database file index to query")
	cmd.Flags().StringVar(&level, "level", "", "only rows recorded at this level")
	cmd.Flags().StringVar(&function, "function", "", "only rows recorded by this function")
	cmd.Flags().StringArrayVar(&ruleFlags, "rule", nil, `filter clause "field:comparator:value", repeatable`)
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "columns to select (default: all)")

	return cmd
}

// parseRuleFlag splits a "field:comparator:value" flag into its parts
// and validates the field and comparator.
func parseRuleFlag(raw string) (fields.Name, stores.Comparator, string, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 || parts[0] == "" {
		return "", "", "", fmt.Errorf("invalid rule %q, want field:comparator:value", raw)
	}
	name := fields.Name(parts[0])
	if string(name) != "id" {
		if _, err := fields.Lookup(name); err != nil {
			return "", "", "", fmt.Errorf("invalid rule %q: %w", raw, err)
		}
	}
	comparator := stores.Comparator(parts[1])
	if err := comparator.Validate(); err != nil {
		return "", "", "", fmt.Errorf("invalid rule %q: %w", raw, err)
	}
	return name, comparator, parts[2], nil
}

func addRuleClause(rule stores.Rule, name fields.Name, comparator stores.Comparator, value any) {
	clauses, ok := rule[name]
	if !ok {
		clauses = make(map[stores.Comparator]any)
		rule[name] = clauses
	}
	clauses[comparator] = value
}

// printResult writes the rows to stdout, either as indented JSON or as
// a tab-aligned table with NULL cells rendered as "-".
func printResult(res *stores.Result) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(res.Columns, "\t"))
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "-"
				continue
			}
			// Keep multi-line values such as tracebacks on one table row
			cells[i] = strings.ReplaceAll(fmt.Sprint(v), "\n", `\n`)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("%d rows\n", len(res.Rows))
	return nil
}
