package stores

import (
	"context"
	"os"
	"testing"

	"github.com/calltrack/calltrack/pkg/fields"
)

// testConfig returns a store config rooted in a per-test temp directory.
func testConfig(t *testing.T) Config {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Dir = t.TempDir()
	return cfg
}

// setupLogStore creates and initializes a store for testing.
func setupLogStore(t *testing.T, cfg Config) *LogStore {
	t.Helper()

	store, err := NewLogStore(cfg)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

// testRecord builds a record with a few recognizable values.
func testRecord(t *testing.T, name, level string) fields.Record {
	t.Helper()

	run := fields.NewRunConfig(nil)
	run.SetField(fields.Level, level)
	run.SetField(fields.FunctionName, name)
	run.SetField(fields.Message, "result: 42")
	run.SetField(fields.FunctionTime, 0.25)
	return run.Record()
}

// TestNewLogStoreValidation tests configuration validation.
func TestNewLogStoreValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing dir", func(c *Config) { c.Dir = "" }},
		{"missing base name", func(c *Config) { c.BaseName = "" }},
		{"zero max bytes", func(c *Config) { c.MaxBytes = 0 }},
		{"no fields", func(c *Config) { c.Fields = nil }},
		{"unknown field", func(c *Config) {
			c.Fields = []fields.Descriptor{{Name: "no_such_field", Storage: fields.StorageText}}
		}},
		{"bad storage type", func(c *Config) {
			c.Fields = []fields.Descriptor{{Name: fields.Level, Storage: "BLOB"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Dir = t.TempDir()
			tt.mutate(&cfg)

			if _, err := NewLogStore(cfg); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

// TestInitCreatesDatabase tests that Init creates the first database file.
func TestInitCreatesDatabase(t *testing.T) {
	cfg := testConfig(t)
	store := setupLogStore(t, cfg)

	if got := store.Index(); got != 1 {
		t.Errorf("expected index 1, got %d", got)
	}

	want := FilePath(cfg.Dir, cfg.BaseName, 1)
	if got := store.Path(); got != want {
		t.Errorf("expected path %s, got %s", want, got)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("expected database file to exist: %v", err)
	}
}

// TestWriteAndReadBack tests that written rows can be read back.
func TestWriteAndReadBack(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	store := setupLogStore(t, cfg)

	if err := store.Write(ctx, testRecord(t, "checkout", "LOG")); err != nil {
		t.Fatalf("failed to write record: %v", err)
	}
	if err := store.Write(ctx, testRecord(t, "refund", "ERROR")); err != nil {
		t.Fatalf("failed to write record: %v", err)
	}

	reader, err := OpenReader(ctx, cfg.Dir, cfg.BaseName, 1)
	if err != nil {
		t.Fatalf("failed to open reader: %v", err)
	}
	defer reader.Close()

	result, err := reader.Get(ctx, nil, nil)
	if err != nil {
		t.Fatalf("failed to query logs: %v", err)
	}

	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if result.Columns[0] != "id" {
		t.Errorf("expected id as first column, got %s", result.Columns[0])
	}
	if want := len(cfg.Fields) + 1; len(result.Columns) != want {
		t.Errorf("expected %d columns, got %d", want, len(result.Columns))
	}
}

// TestRotationOnSizeLimit tests that writes rotate once the file
// reaches the size limit.
func TestRotationOnSizeLimit(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.MaxBytes = 1
	store := setupLogStore(t, cfg)

	for i := 0; i < 3; i++ {
		if err := store.Write(ctx, testRecord(t, "rotate", "LOG")); err != nil {
			t.Fatalf("failed to write record %d: %v", i, err)
		}
	}

	if got := store.Rotations(); got != 3 {
		t.Errorf("expected 3 rotations, got %d", got)
	}
	if got := store.Index(); got != 4 {
		t.Errorf("expected index 4, got %d", got)
	}

	// Every write landed in the file opened by the rotation before it.
	for index := 2; index <= 4; index++ {
		reader, err := OpenReader(ctx, cfg.Dir, cfg.BaseName, index)
		if err != nil {
			t.Fatalf("failed to open reader for index %d: %v", index, err)
		}
		result, err := reader.Get(ctx, nil, nil)
		if err != nil {
			t.Fatalf("failed to query index %d: %v", index, err)
		}
		if len(result.Rows) != 1 {
			t.Errorf("expected 1 row in index %d, got %d", index, len(result.Rows))
		}
		_ = reader.Close()
	}
}

// TestOnRotateCallback tests that rotation invokes the callback.
func TestOnRotateCallback(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.MaxBytes = 1

	var gotIndex int
	var gotPath string
	cfg.OnRotate = func(index int, path string) {
		gotIndex = index
		gotPath = path
	}
	store := setupLogStore(t, cfg)

	if err := store.Write(ctx, testRecord(t, "rotate", "LOG")); err != nil {
		t.Fatalf("failed to write record: %v", err)
	}

	if gotIndex != 2 {
		t.Errorf("expected callback index 2, got %d", gotIndex)
	}
	if want := FilePath(cfg.Dir, cfg.BaseName, 2); gotPath != want {
		t.Errorf("expected callback path %s, got %s", want, gotPath)
	}
}

// TestInitSkipsFullFiles tests that Init opens the first file with
// capacity left.
func TestInitSkipsFullFiles(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.MaxBytes = 1

	first := setupLogStore(t, cfg)
	for i := 0; i < 2; i++ {
		if err := first.Write(ctx, testRecord(t, "fill", "LOG")); err != nil {
			t.Fatalf("failed to write record: %v", err)
		}
	}
	if err := first.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}

	second, err := NewLogStore(cfg)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := second.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	defer second.Close()

	if got := second.Index(); got != 4 {
		t.Errorf("expected index 4, got %d", got)
	}
}

// TestAutoCloseWrites tests that auto-close mode reconnects per write.
func TestAutoCloseWrites(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.AutoClose = true
	store := setupLogStore(t, cfg)

	if store.db != nil {
		t.Fatal("expected no held connection in auto-close mode")
	}

	for i := 0; i < 2; i++ {
		if err := store.Write(ctx, testRecord(t, "burst", "LOG")); err != nil {
			t.Fatalf("failed to write record %d: %v", i, err)
		}
	}
	if store.db != nil {
		t.Error("expected connection to be released after writes")
	}

	reader, err := OpenReader(ctx, cfg.Dir, cfg.BaseName, 1)
	if err != nil {
		t.Fatalf("failed to open reader: %v", err)
	}
	defer reader.Close()

	result, err := reader.Get(ctx, nil, nil)
	if err != nil {
		t.Fatalf("failed to query logs: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(result.Rows))
	}
}

// TestWriteAfterClose tests that writes fail once the store is closed.
func TestWriteAfterClose(t *testing.T) {
	ctx := context.Background()
	store := setupLogStore(t, testConfig(t))

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
	if err := store.Write(ctx, testRecord(t, "late", "LOG")); err == nil {
		t.Error("expected write after close to fail")
	}
}

// TestWriteWithoutInit tests that writes fail before Init.
func TestWriteWithoutInit(t *testing.T) {
	store, err := NewLogStore(testConfig(t))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := store.Write(context.Background(), testRecord(t, "early", "LOG")); err == nil {
		t.Error("expected write before init to fail")
	}
}

// TestDisabledFieldsLeaveNullColumns tests that records narrowed by
// toggles leave the missing columns NULL.
func TestDisabledFieldsLeaveNullColumns(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	store := setupLogStore(t, cfg)

	run := fields.NewRunConfig(map[string]string{"thread": "false"})
	run.SetField(fields.FunctionName, "narrow")
	if err := store.Write(ctx, run.Record()); err != nil {
		t.Fatalf("failed to write record: %v", err)
	}

	reader, err := OpenReader(ctx, cfg.Dir, cfg.BaseName, 1)
	if err != nil {
		t.Fatalf("failed to open reader: %v", err)
	}
	defer reader.Close()

	result, err := reader.Get(ctx, []fields.Name{fields.FunctionName, fields.ThreadID}, nil)
	if err != nil {
		t.Fatalf("failed to query logs: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}

	row := result.Rows[0]
	if row[1] != "narrow" {
		t.Errorf("expected function_name %q, got %v", "narrow", row[1])
	}
	if row[2] != nil {
		t.Errorf("expected NULL thread_id, got %v", row[2])
	}
}
