package fields

import (
	"testing"
)

// TestNewRunConfigDefaults tests a configuration built with no overrides
func TestNewRunConfigDefaults(t *testing.T) {
	c := NewRunConfig(nil)

	active := c.Active()
	if len(active) != 19 {
		t.Fatalf("expected all 19 fields active, got %d", len(active))
	}

	for _, k := range ToggleKeys() {
		if !c.IsRecorded(k) {
			t.Errorf("expected toggle %s enabled by default", k)
		}
	}

	if got := c.SuccessLevel(); got != "LOG" {
		t.Errorf("expected success level LOG, got %s", got)
	}
	if got := c.ErrorLevel(); got != "ERROR" {
		t.Errorf("expected error level ERROR, got %s", got)
	}

	if v, ok := c.Field(Level); !ok || v != "LOG" {
		t.Errorf("expected level default LOG, got %v (ok=%v)", v, ok)
	}
}

// TestMarkOverrides tests display-value overrides
func TestMarkOverrides(t *testing.T) {
	c := NewRunConfig(map[string]string{
		"level":       "WARN",
		"tag":         "billing",
		"message":     "checkout",
		"error_level": "CRITICAL",
	})

	if v, _ := c.Field(Level); v != "WARN" {
		t.Errorf("expected level WARN, got %v", v)
	}
	if v, _ := c.Field(Tag); v != "billing" {
		t.Errorf("expected tag billing, got %v", v)
	}
	if v, _ := c.Field(Message); v != "checkout" {
		t.Errorf("expected message checkout, got %v", v)
	}

	if got := c.SuccessLevel(); got != "WARN" {
		t.Errorf("expected success level WARN, got %s", got)
	}
	if got := c.ErrorLevel(); got != "CRITICAL" {
		t.Errorf("expected error level CRITICAL, got %s", got)
	}

	// error_level is configuration, not a persisted field
	if _, ok := c.Field("error_level"); ok {
		t.Error("error_level must not appear in the value set")
	}
	if _, ok := c.Mark("message"); !ok {
		t.Error("expected explicit message mark to be visible")
	}
}

// TestStructuralDisable tests that disabling removes fields entirely
func TestStructuralDisable(t *testing.T) {
	c := NewRunConfig(map[string]string{
		"function": "false",
		"gpu":      "False",
	})

	if c.IsRecorded("function") {
		t.Error("expected function toggle disabled")
	}
	if c.IsRecorded("gpu") {
		t.Error("expected gpu toggle disabled")
	}
	if !c.IsRecorded("cpu") {
		t.Error("expected cpu toggle untouched")
	}

	for _, n := range Group(CategoryFunction) {
		if _, ok := c.Field(n); ok {
			t.Errorf("expected %s removed from the value set", n)
		}
	}
	if _, ok := c.Field(GPU); ok {
		t.Error("expected gpu removed from the value set")
	}
	if _, ok := c.Field(CPU); !ok {
		t.Error("expected cpu still present")
	}

	// 19 - 7 function fields - 1 gpu
	if got := len(c.Active()); got != 11 {
		t.Errorf("expected 11 active fields, got %d", got)
	}

	// Setting a removed field fails silently
	if c.SetField(FunctionName, "division") {
		t.Error("expected SetField on removed field to return false")
	}
	if !c.SetField(Level, "WARN") {
		t.Error("expected SetField on active field to succeed")
	}
}

// TestPermissiveToggleValues tests that only literal false disables
func TestPermissiveToggleValues(t *testing.T) {
	for _, v := range []string{"true", "True", "yes", "0", "off", "FALSEY"} {
		c := NewRunConfig(map[string]string{"thread": v})
		if !c.IsRecorded("thread") {
			t.Errorf("value %q must leave the toggle enabled", v)
		}
		if _, ok := c.Field(ThreadID); !ok {
			t.Errorf("value %q must keep thread fields active", v)
		}
	}

	for _, v := range []string{"false", "False", "FALSE", "fAlSe"} {
		c := NewRunConfig(map[string]string{"thread": v})
		if c.IsRecorded("thread") {
			t.Errorf("value %q must disable the toggle", v)
		}
	}
}

// TestSnapshotIsolation tests that snapshots share no mutable state
func TestSnapshotIsolation(t *testing.T) {
	base := NewRunConfig(map[string]string{"level": "WARN"})

	a := base.Snapshot()
	b := base.Snapshot()

	a.SetField(Args, "(1, 2)")
	a.SetField(FunctionReturn, "0.5")
	b.SetField(Args, "(3, 4)")

	if v, _ := a.Field(Args); v != "(1, 2)" {
		t.Errorf("snapshot a args: expected (1, 2), got %v", v)
	}
	if v, _ := b.Field(Args); v != "(3, 4)" {
		t.Errorf("snapshot b args: expected (3, 4), got %v", v)
	}
	if v, _ := b.Field(FunctionReturn); v != "" {
		t.Errorf("snapshot b return leaked from a: %v", v)
	}
	if v, _ := base.Field(Args); v != "" {
		t.Errorf("base template mutated through snapshot: %v", v)
	}

	// Marks carry into snapshots
	if got := a.SuccessLevel(); got != "WARN" {
		t.Errorf("expected snapshot success level WARN, got %s", got)
	}
}

// TestSetRecordedRuntimeToggle tests the soft runtime toggle
func TestSetRecordedRuntimeToggle(t *testing.T) {
	c := NewRunConfig(nil)

	if !c.SetRecorded("gpu", false) {
		t.Fatal("expected SetRecorded to accept gpu")
	}
	if c.IsRecorded("gpu") {
		t.Error("expected gpu disabled after SetRecorded")
	}

	// Runtime disable keeps the field in the schema, unlike construction
	if _, ok := c.Field(GPU); !ok {
		t.Error("runtime toggle must not remove the field")
	}

	if c.SetRecorded("level", false) {
		t.Error("expected SetRecorded to reject a non-toggle key")
	}
	if c.SetRecorded("system", false) {
		t.Error("expected SetRecorded to reject the category name")
	}
}

// TestUpdateReset tests applying overrides after construction
func TestUpdateReset(t *testing.T) {
	c := NewRunConfig(nil)
	c.SetField(Message, "scratch")

	c.Update(map[string]string{"level": "DEBUG", "memory": "false"})

	if v, _ := c.Field(Level); v != "DEBUG" {
		t.Errorf("expected updated level DEBUG, got %v", v)
	}
	if v, _ := c.Field(Message); v != "" {
		t.Errorf("expected values reset after update, got message %v", v)
	}
	if _, ok := c.Field(Memory); ok {
		t.Error("expected memory removed after update")
	}
}

// TestRecordSnapshot tests the immutable record taken at write time
func TestRecordSnapshot(t *testing.T) {
	c := NewRunConfig(map[string]string{"thread": "false"})
	c.SetField(FunctionName, "division")
	c.SetField(Args, "(1, 2)")

	rec := c.Record()
	if rec.Len() != 16 {
		t.Fatalf("expected 16 fields in record, got %d", rec.Len())
	}

	names := rec.Names()
	values := rec.Values()
	if len(names) != len(values) {
		t.Fatalf("names/values length mismatch: %d vs %d", len(names), len(values))
	}

	// Column order follows the catalog
	if names[0] != Level {
		t.Errorf("expected level first, got %s", names[0])
	}

	if v, ok := rec.Value(FunctionName); !ok || v != "division" {
		t.Errorf("expected function_name division, got %v", v)
	}
	if _, ok := rec.Value(ThreadID); ok {
		t.Error("expected thread_id absent from record")
	}

	// The record must not observe later mutation
	c.SetField(FunctionName, "other")
	if v, _ := rec.Value(FunctionName); v != "division" {
		t.Errorf("record mutated after the fact: %v", v)
	}
}
