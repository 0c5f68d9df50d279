package stores_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/calltrack/calltrack/pkg/fields"
	"github.com/calltrack/calltrack/pkg/stores"
)

// ExampleLogStore demonstrates writing a recorded call and reading it
// back.
func ExampleLogStore() {
	dir, err := os.MkdirTemp("", "calltrack-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	cfg := stores.DefaultConfig()
	cfg.Dir = dir

	store, err := stores.NewLogStore(cfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	run := fields.NewRunConfig(nil)
	run.SetField(fields.FunctionName, "checkout")
	run.SetField(fields.Message, "result: 42")
	if err := store.Write(ctx, run.Record()); err != nil {
		log.Fatal(err)
	}

	reader, err := stores.OpenReader(ctx, cfg.Dir, cfg.BaseName, 1)
	if err != nil {
		log.Fatal(err)
	}
	defer reader.Close()

	result, err := reader.Get(ctx, []fields.Name{fields.FunctionName, fields.Message}, nil)
	if err != nil {
		log.Fatal(err)
	}

	for _, row := range result.Rows {
		fmt.Printf("%v %v\n", row[1], row[2])
	}
	// Output: checkout result: 42
}

// ExampleLogReader_Get demonstrates rule-based filtering.
func ExampleLogReader_Get() {
	dir, err := os.MkdirTemp("", "calltrack-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	cfg := stores.DefaultConfig()
	cfg.Dir = dir

	store, err := stores.NewLogStore(cfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	for _, call := range []struct {
		name  string
		level string
	}{
		{"checkout", "LOG"},
		{"refund", "ERROR"},
	} {
		run := fields.NewRunConfig(nil)
		run.SetField(fields.FunctionName, call.name)
		run.SetField(fields.Level, call.level)
		if err := store.Write(ctx, run.Record()); err != nil {
			log.Fatal(err)
		}
	}

	reader, err := stores.OpenReader(ctx, cfg.Dir, cfg.BaseName, 1)
	if err != nil {
		log.Fatal(err)
	}
	defer reader.Close()

	result, err := reader.Get(ctx,
		[]fields.Name{fields.Level, fields.FunctionName},
		stores.Rule{fields.Level: {stores.ComparatorEqual: "ERROR"}},
	)
	if err != nil {
		log.Fatal(err)
	}

	for _, row := range result.Rows {
		fmt.Printf("%v %v\n", row[1], row[2])
	}
	// Output: ERROR refund
}
