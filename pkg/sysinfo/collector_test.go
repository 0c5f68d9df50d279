package sysinfo

import (
	"context"
	"errors"
	"testing"
)

// TestCategoryValidate tests category validation.
func TestCategoryValidate(t *testing.T) {
	for _, category := range All() {
		if err := category.Validate(); err != nil {
			t.Errorf("expected %s to be valid: %v", category, err)
		}
	}

	if err := Category("disk").Validate(); err == nil {
		t.Error("expected unknown category to fail validation")
	}
}

// TestAllOrder tests that categories come back in field column order.
func TestAllOrder(t *testing.T) {
	want := []Category{CategoryComputer, CategoryCPU, CategoryMemory, CategoryGPU, CategoryHost}

	got := All()
	if len(got) != len(want) {
		t.Fatalf("expected %d categories, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

// TestStaticCollect tests the canned collector.
func TestStaticCollect(t *testing.T) {
	static := &Static{
		Snapshots: map[Category]string{
			CategoryCPU: `{"usage":"1.0%"}`,
		},
	}

	ctx := context.Background()
	snapshot, err := static.Collect(ctx, CategoryCPU)
	if err != nil {
		t.Fatalf("failed to collect cpu snapshot: %v", err)
	}
	if snapshot != `{"usage":"1.0%"}` {
		t.Errorf("unexpected snapshot: %s", snapshot)
	}

	snapshot, err = static.Collect(ctx, CategoryGPU)
	if err != nil {
		t.Fatalf("failed to collect gpu snapshot: %v", err)
	}
	if snapshot != "" {
		t.Errorf("expected empty snapshot for unknown device, got %s", snapshot)
	}

	if _, err := static.Collect(ctx, Category("disk")); err == nil {
		t.Error("expected invalid category to fail")
	}
}

// TestCollectAll tests parallel collection over a fixed set.
func TestCollectAll(t *testing.T) {
	static := &Static{
		Snapshots: map[Category]string{
			CategoryCPU:    `{"usage":"1.0%"}`,
			CategoryMemory: `{"total":"16.00 GB"}`,
		},
	}

	got, err := CollectAll(context.Background(), static, []Category{CategoryCPU, CategoryMemory})
	if err != nil {
		t.Fatalf("failed to collect: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(got))
	}
	if got[CategoryCPU] != `{"usage":"1.0%"}` {
		t.Errorf("unexpected cpu snapshot: %s", got[CategoryCPU])
	}
	if got[CategoryMemory] != `{"total":"16.00 GB"}` {
		t.Errorf("unexpected memory snapshot: %s", got[CategoryMemory])
	}
}

// TestCollectAllDefaults tests that a nil category list collects
// everything.
func TestCollectAllDefaults(t *testing.T) {
	static := &Static{}

	got, err := CollectAll(context.Background(), static, nil)
	if err != nil {
		t.Fatalf("failed to collect: %v", err)
	}
	if len(got) != len(All()) {
		t.Errorf("expected %d snapshots, got %d", len(All()), len(got))
	}
}

// TestCollectAllPropagatesErrors tests that a failing collector stops
// the collection.
func TestCollectAllPropagatesErrors(t *testing.T) {
	static := &Static{Err: errors.New("probe failed")}

	if _, err := CollectAll(context.Background(), static, nil); err == nil {
		t.Error("expected collection error, got nil")
	}
}
