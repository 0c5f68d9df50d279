package stores

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/calltrack/calltrack/pkg/fields"
)

// LogReader queries the rows written by a LogStore. It reads one
// numbered database file at a time and steps through the rotation
// sequence with Next.
type LogReader struct {
	dir   string
	base  string
	index int
	path  string
	db    *sql.DB
}

// OpenReader opens the database file at the given rotation index.
func OpenReader(ctx context.Context, dir, base string, index int) (*LogReader, error) {
	if index < 1 {
		return nil, fmt.Errorf("log index must be at least 1, got %d", index)
	}

	r := &LogReader{dir: dir, base: base}
	if err := r.open(ctx, index); err != nil {
		return nil, err
	}
	return r, nil
}

// Get returns rows selected by filter and rule. A nil filter selects
// every column in the table, and a nil rule matches every row. The id
// column always leads the selection.
func (r *LogReader) Get(ctx context.Context, filter []fields.Name, rule Rule) (*Result, error) {
	cols := []string{"id"}
	if len(filter) > 0 {
		for _, name := range filter {
			if name == "id" {
				continue
			}
			if _, err := fields.Lookup(name); err != nil {
				return nil, fmt.Errorf("failed to validate filter field: %w", err)
			}
			cols = append(cols, string(name))
		}
	} else {
		info, err := r.Columns(ctx)
		if err != nil {
			return nil, err
		}
		for _, col := range info {
			if col.Name == "id" {
				continue
			}
			cols = append(cols, col.Name)
		}
	}

	query := fmt.Sprintf("SELECT %s FROM logs WHERE ", strings.Join(cols, ", "))

	var args []any
	if len(rule) > 0 {
		clause, ruleArgs, err := buildRuleClause(rule)
		if err != nil {
			return nil, err
		}
		query += clause
		args = ruleArgs
	} else {
		query += "1"
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	result := &Result{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan log row: %w", err)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate log rows: %w", err)
	}

	return result, nil
}

// ByLevel returns every row recorded at the given level.
func (r *LogReader) ByLevel(ctx context.Context, level string) (*Result, error) {
	return r.Get(ctx, nil, Rule{fields.Level: {ComparatorEqual: level}})
}

// Logs returns the rows recorded at the default success level.
func (r *LogReader) Logs(ctx context.Context) (*Result, error) {
	return r.ByLevel(ctx, fields.DefaultSuccessLevel)
}

// Errors returns the rows recorded at the default error level.
func (r *LogReader) Errors(ctx context.Context) (*Result, error) {
	return r.ByLevel(ctx, fields.DefaultErrorLevel)
}

// Columns describes the logs table schema via PRAGMA table_info.
func (r *LogReader) Columns(ctx context.Context) ([]ColumnInfo, error) {
	rows, err := r.db.QueryContext(ctx, "PRAGMA table_info(logs)")
	if err != nil {
		return nil, fmt.Errorf("failed to read table info: %w", err)
	}
	defer rows.Close()

	var out []ColumnInfo
	for rows.Next() {
		var (
			col     ColumnInfo
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&col.CID, &col.Name, &col.Type, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan table info: %w", err)
		}
		col.NotNull = notNull != 0
		col.PrimaryKey = pk != 0
		if dflt.Valid {
			v := dflt.String
			col.Default = &v
		}
		out = append(out, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate table info: %w", err)
	}

	return out, nil
}

// Next advances the reader to the next rotation index. The reader keeps
// its current file when the next one does not exist.
func (r *LogReader) Next(ctx context.Context) error {
	next := &LogReader{dir: r.dir, base: r.base}
	if err := next.open(ctx, r.index+1); err != nil {
		return err
	}

	if err := r.db.Close(); err != nil {
		_ = next.db.Close()
		return fmt.Errorf("failed to close database: %w", err)
	}

	r.db = next.db
	r.index = next.index
	r.path = next.path
	return nil
}

// Index returns the rotation index the reader is positioned on.
func (r *LogReader) Index() int {
	return r.index
}

// Path returns the path of the database file the reader is positioned on.
func (r *LogReader) Path() string {
	return r.path
}

// Close closes the database connection.
func (r *LogReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// open connects to the database file at the given index.
func (r *LogReader) open(ctx context.Context, index int) error {
	path := FilePath(r.dir, r.base, index)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("failed to locate log database: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	r.index = index
	r.path = path
	r.db = db
	return nil
}

// buildRuleClause renders a rule as a deterministic AND-joined WHERE
// clause with one placeholder per comparison.
func buildRuleClause(rule Rule) (string, []any, error) {
	names := make([]string, 0, len(rule))
	for name := range rule {
		names = append(names, string(name))
	}
	sort.Strings(names)

	var clauses []string
	var args []any
	for _, raw := range names {
		name := fields.Name(raw)
		if raw != "id" {
			if _, err := fields.Lookup(name); err != nil {
				return "", nil, fmt.Errorf("failed to validate rule field: %w", err)
			}
		}

		conds := rule[name]
		ops := make([]string, 0, len(conds))
		for op := range conds {
			ops = append(ops, string(op))
		}
		sort.Strings(ops)

		for _, op := range ops {
			cmp := Comparator(op)
			if err := cmp.Validate(); err != nil {
				return "", nil, err
			}
			clauses = append(clauses, fmt.Sprintf("%s %s ?", raw, cmp))
			args = append(args, conds[cmp])
		}
	}

	return strings.Join(clauses, " AND "), args, nil
}
