package fields

import "fmt"

// Name identifies a single loggable field in the catalog.
type Name string

const (
	// Base fields.
	Level     Name = "level"
	Tag       Name = "tag"
	Timestamp Name = "timestamp"
	Message   Name = "message"

	// Function fields.
	FunctionName   Name = "function_name"
	Args           Name = "args"
	Kwargs         Name = "kwargs"
	FunctionTime   Name = "function_time"
	FunctionReturn Name = "function_return"
	ErrorType      Name = "error_type"
	Traceback      Name = "traceback"

	// Thread fields.
	ThreadName Name = "thread_name"
	ThreadID   Name = "thread_id"
	ProcessID  Name = "process_id"

	// System fields, each independently toggleable.
	Computer Name = "computer"
	CPU      Name = "cpu"
	Memory   Name = "memory"
	GPU      Name = "gpu"
	Host     Name = "host"
)

// Category groups related fields that are captured together.
type Category string

const (
	// CategoryBase holds level, tag, timestamp and message.
	CategoryBase Category = "base"

	// CategoryFunction holds the wrapped function's identity, arguments,
	// return value, elapsed time and failure details.
	CategoryFunction Category = "function"

	// CategoryThread holds goroutine and process identity.
	CategoryThread Category = "thread"

	// CategorySystem holds host and hardware snapshots.
	CategorySystem Category = "system"
)

// Validate checks if the category is valid.
func (c Category) Validate() error {
	switch c {
	case CategoryBase, CategoryFunction, CategoryThread, CategorySystem:
		return nil
	default:
		return &UnknownFieldError{Name: string(c)}
	}
}

// StorageType is the column type a field is persisted with.
type StorageType string

const (
	StorageText    StorageType = "TEXT"
	StorageInteger StorageType = "INTEGER"
	StorageReal    StorageType = "REAL"
)

// Validate checks if the storage type is valid.
func (s StorageType) Validate() error {
	switch s {
	case StorageText, StorageInteger, StorageReal:
		return nil
	default:
		return fmt.Errorf("invalid storage type: %q", string(s))
	}
}

// Descriptor describes one field: its name, owning category, storage type
// and default value. Descriptors are immutable and defined once.
type Descriptor struct {
	Name     Name        `json:"name"`
	Category Category    `json:"category"`
	Storage  StorageType `json:"storage_type"`
	Default  any         `json:"default"`
}

// catalog is the full field set in persisted column order.
var catalog = []Descriptor{
	{Name: Level, Category: CategoryBase, Storage: StorageText, Default: "LOG"},
	{Name: Tag, Category: CategoryBase, Storage: StorageText, Default: ""},
	{Name: Timestamp, Category: CategoryBase, Storage: StorageReal, Default: 0.0},
	{Name: Message, Category: CategoryBase, Storage: StorageText, Default: ""},
	{Name: FunctionName, Category: CategoryFunction, Storage: StorageText, Default: ""},
	{Name: Args, Category: CategoryFunction, Storage: StorageText, Default: ""},
	{Name: Kwargs, Category: CategoryFunction, Storage: StorageText, Default: ""},
	{Name: FunctionTime, Category: CategoryFunction, Storage: StorageReal, Default: 0.0},
	{Name: FunctionReturn, Category: CategoryFunction, Storage: StorageText, Default: ""},
	{Name: ErrorType, Category: CategoryFunction, Storage: StorageText, Default: ""},
	{Name: Traceback, Category: CategoryFunction, Storage: StorageText, Default: ""},
	{Name: ThreadName, Category: CategoryThread, Storage: StorageText, Default: ""},
	{Name: ThreadID, Category: CategoryThread, Storage: StorageInteger, Default: int64(0)},
	{Name: ProcessID, Category: CategoryThread, Storage: StorageInteger, Default: int64(0)},
	{Name: Computer, Category: CategorySystem, Storage: StorageText, Default: ""},
	{Name: CPU, Category: CategorySystem, Storage: StorageText, Default: ""},
	{Name: Memory, Category: CategorySystem, Storage: StorageText, Default: ""},
	{Name: GPU, Category: CategorySystem, Storage: StorageText, Default: ""},
	{Name: Host, Category: CategorySystem, Storage: StorageText, Default: ""},
}

var byName = func() map[Name]Descriptor {
	m := make(map[Name]Descriptor, len(catalog))
	for _, d := range catalog {
		m[d.Name] = d
	}
	return m
}()

// Catalog returns the full field catalog in column order.
func Catalog() []Descriptor {
	out := make([]Descriptor, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the descriptor for a field name.
func Lookup(name Name) (Descriptor, error) {
	d, ok := byName[name]
	if !ok {
		return Descriptor{}, &UnknownFieldError{Name: string(name)}
	}
	return d, nil
}

// DefaultValue returns the catalog default for a field name.
func DefaultValue(name Name) (any, error) {
	d, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return d.Default, nil
}

// Group returns the field names belonging to a category, in column order.
func Group(category Category) []Name {
	var out []Name
	for _, d := range catalog {
		if d.Category == category {
			out = append(out, d.Name)
		}
	}
	return out
}

// SystemFields returns the system category's field names. Each of them
// toggles independently, unlike function and thread which toggle as groups.
func SystemFields() []Name {
	return Group(CategorySystem)
}

// Names returns every field name in column order.
func Names() []Name {
	out := make([]Name, len(catalog))
	for i, d := range catalog {
		out[i] = d.Name
	}
	return out
}

// Toggle keys switch capture of a field group (function, thread) or of a
// single system field. Mark keys override display defaults. Together they
// form the recognized doc-tag vocabulary.
var (
	toggleKeys = []string{"function", "thread", "computer", "cpu", "memory", "gpu", "host"}
	markKeys   = []string{"level", "tag", "message", "error_level"}
)

// ToggleKeys returns the recognized toggle keys.
func ToggleKeys() []string {
	out := make([]string, len(toggleKeys))
	copy(out, toggleKeys)
	return out
}

// MarkKeys returns the recognized mark keys.
func MarkKeys() []string {
	out := make([]string, len(markKeys))
	copy(out, markKeys)
	return out
}

// IsToggleKey reports whether key toggles a group or system field.
func IsToggleKey(key string) bool {
	for _, k := range toggleKeys {
		if k == key {
			return true
		}
	}
	return false
}

// IsMarkKey reports whether key overrides a display default.
func IsMarkKey(key string) bool {
	for _, k := range markKeys {
		if k == key {
			return true
		}
	}
	return false
}
