package fields

import (
	"strings"

	"github.com/rs/zerolog"
)

const (
	// DefaultSuccessLevel is recorded when the wrapped call succeeds.
	DefaultSuccessLevel = "LOG"

	// DefaultErrorLevel is recorded when the wrapped call fails.
	DefaultErrorLevel = "ERROR"
)

// RunConfig holds which fields are captured and their current values for
// one instrumented function. A RunConfig built at registration time acts as
// an immutable template; every invocation takes a Snapshot before mutating
// field values, which is the only concurrency guard on this state.
//
// Disabling a toggle at construction removes the owned fields structurally:
// they disappear from the value set and therefore from the derived storage
// schema, not merely from the populated row.
type RunConfig struct {
	enabled  map[string]bool   // toggle key -> capture flag
	defaults map[Name]any      // active field -> default after structural disable
	values   map[Name]any      // active field -> current value
	marks    map[string]string // explicit mark overrides
}

// NewRunConfig builds a configuration from catalog defaults plus overrides
// keyed by mark or toggle key. Mark overrides replace display defaults.
// Toggle overrides whose value is the literal "false" (case-insensitive)
// remove the owned fields; any other value leaves the toggle enabled.
// Unrecognized keys are ignored.
func NewRunConfig(overrides map[string]string) *RunConfig {
	c := &RunConfig{
		enabled:  make(map[string]bool, len(toggleKeys)),
		defaults: make(map[Name]any, len(catalog)),
		marks:    make(map[string]string),
	}
	for _, k := range toggleKeys {
		c.enabled[k] = true
	}
	for _, d := range catalog {
		c.defaults[d.Name] = d.Default
	}

	for k, v := range overrides {
		switch {
		case IsMarkKey(k):
			c.marks[k] = v
			if k != "error_level" {
				c.defaults[Name(k)] = v
			}
		case IsToggleKey(k):
			if isFalse(v) {
				c.disable(k)
			}
		}
	}

	c.values = copyValues(c.defaults)
	return c
}

// disable removes a toggle key's fields from the active set.
func (c *RunConfig) disable(key string) {
	c.enabled[key] = false
	switch key {
	case "function":
		for _, n := range Group(CategoryFunction) {
			delete(c.defaults, n)
		}
	case "thread":
		for _, n := range Group(CategoryThread) {
			delete(c.defaults, n)
		}
	default:
		delete(c.defaults, Name(key))
	}
}

// Snapshot returns a deep, independent copy. Concurrent invocations of the
// same wrapped function each take their own snapshot and never share
// mutable state.
func (c *RunConfig) Snapshot() *RunConfig {
	return &RunConfig{
		enabled:  copyFlags(c.enabled),
		defaults: copyValues(c.defaults),
		values:   copyValues(c.values),
		marks:    copyMarks(c.marks),
	}
}

// SetField sets a field's current value. It returns false, without error,
// when the field is not part of the active set, so optional instrumentation
// steps no-op cleanly after a category was disabled.
func (c *RunConfig) SetField(name Name, value any) bool {
	if _, ok := c.values[name]; !ok {
		return false
	}
	c.values[name] = value
	return true
}

// Field returns a field's current value.
func (c *RunConfig) Field(name Name) (any, bool) {
	v, ok := c.values[name]
	return v, ok
}

// IsRecorded returns the capture flag for a toggle key.
func (c *RunConfig) IsRecorded(key string) bool {
	return c.enabled[key]
}

// SetRecorded flips a toggle key's capture flag at runtime. Unlike a
// construction-time disable this does not remove fields from the schema;
// it only stops the wrapper from populating them. Returns false for
// unrecognized keys.
func (c *RunConfig) SetRecorded(key string, recorded bool) bool {
	if !IsToggleKey(key) {
		return false
	}
	c.enabled[key] = recorded
	return true
}

// Update applies further overrides to the configuration and resets the
// current values from the updated defaults. Toggle overrides evaluating
// false remove fields structurally, as at construction.
func (c *RunConfig) Update(overrides map[string]string) {
	for k, v := range overrides {
		switch {
		case IsMarkKey(k):
			c.marks[k] = v
			if k != "error_level" {
				c.defaults[Name(k)] = v
			}
		case IsToggleKey(k):
			if isFalse(v) {
				c.disable(k)
			}
		}
	}
	c.Reset()
}

// Reset restores current values from the active defaults.
func (c *RunConfig) Reset() {
	c.values = copyValues(c.defaults)
}

// Values returns a copy of the current field values.
func (c *RunConfig) Values() map[Name]any {
	return copyValues(c.values)
}

// Active returns the active field names in column order.
func (c *RunConfig) Active() []Name {
	var out []Name
	for _, d := range catalog {
		if _, ok := c.defaults[d.Name]; ok {
			out = append(out, d.Name)
		}
	}
	return out
}

// Record returns an immutable, column-ordered snapshot of the current
// values. This is the unit handed to the storage sink as one row.
func (c *RunConfig) Record() Record {
	r := Record{}
	for _, d := range catalog {
		if v, ok := c.values[d.Name]; ok {
			r.names = append(r.names, d.Name)
			r.values = append(r.values, v)
		}
	}
	return r
}

// SuccessLevel returns the level recorded on success.
func (c *RunConfig) SuccessLevel() string {
	if v, ok := c.marks["level"]; ok {
		return v
	}
	return DefaultSuccessLevel
}

// ErrorLevel returns the level recorded on failure.
func (c *RunConfig) ErrorLevel() string {
	if v, ok := c.marks["error_level"]; ok {
		return v
	}
	return DefaultErrorLevel
}

// Mark returns an explicit mark override, if one was set.
func (c *RunConfig) Mark(key string) (string, bool) {
	v, ok := c.marks[key]
	return v, ok
}

// Dump emits the full configuration state to the operator-visible error
// channel. Used as the diagnostic of last resort when a sink write fails.
func (c *RunConfig) Dump(log zerolog.Logger) {
	log.Error().
		Interface("values", c.values).
		Interface("enabled", c.enabled).
		Interface("defaults", c.defaults).
		Interface("marks", c.marks).
		Msg("run configuration state")
}

// Record is an immutable snapshot of a configuration's values at the moment
// of a sink write, in catalog column order.
type Record struct {
	names  []Name
	values []any
}

// Names returns the record's field names in column order.
func (r Record) Names() []Name {
	out := make([]Name, len(r.names))
	copy(out, r.names)
	return out
}

// Values returns the record's values, matching Names order.
func (r Record) Values() []any {
	out := make([]any, len(r.values))
	copy(out, r.values)
	return out
}

// Len returns the number of fields in the record.
func (r Record) Len() int {
	return len(r.names)
}

// Value returns the value for one field of the record.
func (r Record) Value(name Name) (any, bool) {
	for i, n := range r.names {
		if n == name {
			return r.values[i], true
		}
	}
	return nil, false
}

func isFalse(v string) bool {
	return strings.EqualFold(v, "false")
}

func copyValues(m map[Name]any) map[Name]any {
	out := make(map[Name]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyFlags(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyMarks(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
