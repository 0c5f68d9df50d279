package stores

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/calltrack/calltrack/pkg/fields"
)

// DefaultMaxBytes caps each log database at 100 MB before rotation.
const DefaultMaxBytes = 100 * 1024 * 1024

// rowOverhead pads the per-row size estimate to cover page and index
// cost that the raw value lengths do not account for.
const rowOverhead = 100

// Comparator is a comparison operator accepted in query rules.
type Comparator string

const (
	ComparatorEqual          Comparator = "="
	ComparatorGreater        Comparator = ">"
	ComparatorLess           Comparator = "<"
	ComparatorGreaterOrEqual Comparator = ">="
	ComparatorLessOrEqual    Comparator = "<="
	ComparatorNotEqual       Comparator = "!="
	ComparatorLike           Comparator = "LIKE"
)

// Validate checks if the comparator is valid.
func (c Comparator) Validate() error {
	switch c {
	case ComparatorEqual, ComparatorGreater, ComparatorLess,
		ComparatorGreaterOrEqual, ComparatorLessOrEqual,
		ComparatorNotEqual, ComparatorLike:
		return nil
	default:
		return fmt.Errorf("invalid comparator: %q", string(c))
	}
}

// Rule filters queried rows by field. Each field maps comparators to
// the value compared against, and every clause must hold for a row to
// match.
type Rule map[fields.Name]map[Comparator]any

// Result holds queried rows together with the selected column order.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// ColumnInfo describes one column of the logs table as reported by
// SQLite.
type ColumnInfo struct {
	CID        int     `json:"cid"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	NotNull    bool    `json:"not_null"`
	Default    *string `json:"default,omitempty"`
	PrimaryKey bool    `json:"primary_key"`
}

// Config holds rotating log store configuration.
type Config struct {
	// Dir is the directory holding the numbered database files.
	Dir string `json:"dir" validate:"required"`

	// BaseName is the file name prefix, producing <base>_<index>.sqlite.
	BaseName string `json:"base_name" validate:"required"`

	// MaxBytes is the size limit that triggers rotation to the next file.
	MaxBytes int64 `json:"max_bytes" validate:"gt=0"`

	// WAL enables write-ahead logging with synchronous=NORMAL.
	WAL bool `json:"wal"`

	// AutoClose opens a fresh connection for every write instead of
	// holding one open between writes.
	AutoClose bool `json:"auto_close"`

	// Fields declares the table columns, in order.
	Fields []fields.Descriptor `json:"fields" validate:"min=1"`

	// OnRotate is called after each rotation with the new index and path.
	OnRotate func(index int, path string) `json:"-" validate:"-"`
}

// DefaultConfig returns the store defaults: a logs directory, 100 MB
// files, WAL mode and the full field catalog.
func DefaultConfig() Config {
	return Config{
		Dir:      "logs",
		BaseName: "log",
		MaxBytes: DefaultMaxBytes,
		WAL:      true,
		Fields:   fields.Catalog(),
	}
}

var validate = validator.New()

// Validate checks the configuration and every declared field against
// the field catalog.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid store config: %w", err)
	}
	for _, d := range c.Fields {
		if _, err := fields.Lookup(d.Name); err != nil {
			return fmt.Errorf("invalid store config: %w", err)
		}
		if err := d.Storage.Validate(); err != nil {
			return fmt.Errorf("invalid store config: %w", err)
		}
	}
	return nil
}
