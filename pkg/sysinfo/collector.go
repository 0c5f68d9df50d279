package sysinfo

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Category identifies one kind of system telemetry. The values mirror
// the system field names, so a snapshot lands in the column of the
// same name.
type Category string

const (
	// CategoryComputer identifies the machine: name, user and OS build.
	CategoryComputer Category = "computer"

	// CategoryCPU identifies processor load, core counts and frequency.
	CategoryCPU Category = "cpu"

	// CategoryMemory identifies RAM totals and usage.
	CategoryMemory Category = "memory"

	// CategoryGPU identifies the NVIDIA devices reported by nvidia-smi.
	CategoryGPU Category = "gpu"

	// CategoryHost identifies the host and login identity.
	CategoryHost Category = "host"
)

// Validate checks if the category is valid.
func (c Category) Validate() error {
	switch c {
	case CategoryComputer, CategoryCPU, CategoryMemory, CategoryGPU, CategoryHost:
		return nil
	default:
		return fmt.Errorf("invalid telemetry category: %q", string(c))
	}
}

// All returns every category in field column order.
func All() []Category {
	return []Category{
		CategoryComputer,
		CategoryCPU,
		CategoryMemory,
		CategoryGPU,
		CategoryHost,
	}
}

// Collector captures one category of system telemetry as a JSON
// document. An empty string means the category is unavailable on this
// machine.
type Collector interface {
	Collect(ctx context.Context, category Category) (string, error)
}

// CollectAll gathers several categories in parallel and returns the
// snapshots keyed by category. A nil category list collects everything.
func CollectAll(ctx context.Context, c Collector, categories []Category) (map[Category]string, error) {
	if len(categories) == 0 {
		categories = All()
	}

	results := make([]string, len(categories))
	g, ctx := errgroup.WithContext(ctx)
	for i, category := range categories {
		g.Go(func() error {
			snapshot, err := c.Collect(ctx, category)
			if err != nil {
				return fmt.Errorf("failed to collect %s telemetry: %w", category, err)
			}
			results[i] = snapshot
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[Category]string, len(categories))
	for i, category := range categories {
		out[category] = results[i]
	}
	return out, nil
}
