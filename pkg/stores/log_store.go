package stores

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/calltrack/calltrack/pkg/fields"

	// SQLite driver
	_ "modernc.org/sqlite"
)

// LogStore appends recorded calls to size-capped SQLite databases.
// Files are numbered <base>_1.sqlite, <base>_2.sqlite and so on, and
// the store rotates to the next index once the current file reaches
// MaxBytes.
type LogStore struct {
	mu  sync.Mutex
	cfg Config

	db        *sql.DB
	index     int
	path      string
	estimate  int64
	rotations int
	ready     bool
}

// NewLogStore creates a new rotating log store instance.
func NewLogStore(cfg Config) (*LogStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &LogStore{cfg: cfg}, nil
}

// FilePath returns the database file path for a rotation index,
// following the <base>_<index>.sqlite naming scheme.
func FilePath(dir, base string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%d.sqlite", base, index))
}

// Init creates the log directory, skips past files already at the size
// limit and opens the first database with capacity left.
func (s *LogStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	s.index = 1
	s.path = FilePath(s.cfg.Dir, s.cfg.BaseName, s.index)
	for {
		info, err := os.Stat(s.path)
		if err != nil || info.Size() < s.cfg.MaxBytes {
			break
		}
		s.index++
		s.path = FilePath(s.cfg.Dir, s.cfg.BaseName, s.index)
	}

	if err := s.openCurrent(ctx); err != nil {
		return err
	}

	s.ready = true
	return nil
}

// Write persists one record as a row in the logs table, rotating to the
// next database first if the current one has reached its size limit.
// Fields absent from the record are left NULL.
func (s *LogStore) Write(ctx context.Context, rec fields.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return fmt.Errorf("store not initialized")
	}
	if rec.Len() == 0 {
		return fmt.Errorf("record has no fields")
	}

	projected := estimateRowSize(rec)
	if err := s.rotateIfNeeded(ctx, projected); err != nil {
		return err
	}

	db, release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	names := rec.Names()
	cols := make([]string, len(names))
	marks := make([]string, len(names))
	for i, name := range names {
		if _, err := fields.Lookup(name); err != nil {
			return fmt.Errorf("failed to validate record field: %w", err)
		}
		cols[i] = string(name)
		marks[i] = "?"
	}

	query := fmt.Sprintf(
		"INSERT INTO logs (%s) VALUES (%s)",
		strings.Join(cols, ", "),
		strings.Join(marks, ", "),
	)

	if _, err := db.ExecContext(ctx, query, rec.Values()...); err != nil {
		return fmt.Errorf("failed to insert log row: %w", err)
	}

	s.estimate += projected
	return nil
}

// Index returns the rotation index of the current database file.
func (s *LogStore) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Path returns the path of the current database file.
func (s *LogStore) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Rotations returns how many times the store has switched files.
func (s *LogStore) Rotations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotations
}

// Close closes the database connection. Writes after Close fail.
func (s *LogStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ready = false
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		if err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}

// rotateIfNeeded checks the size estimate against the limit, re-checks
// against the actual file size, and only then switches to the next
// database file.
func (s *LogStore) rotateIfNeeded(ctx context.Context, projected int64) error {
	if s.estimate+projected < s.cfg.MaxBytes {
		return nil
	}
	if info, err := os.Stat(s.path); err == nil {
		s.estimate = info.Size()
	}
	if s.estimate+projected < s.cfg.MaxBytes {
		return nil
	}
	return s.rotate(ctx)
}

// rotate closes the current database and opens the next numbered file.
func (s *LogStore) rotate(ctx context.Context) error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
		s.db = nil
	}

	s.index++
	s.path = FilePath(s.cfg.Dir, s.cfg.BaseName, s.index)

	if err := s.openCurrent(ctx); err != nil {
		return err
	}

	s.rotations++
	if s.cfg.OnRotate != nil {
		s.cfg.OnRotate(s.index, s.path)
	}
	return nil
}

// openCurrent opens the database at the current path, ensures the logs
// table exists and seeds the size estimate from the file on disk.
func (s *LogStore) openCurrent(ctx context.Context) error {
	db, err := s.openDB(ctx, s.path)
	if err != nil {
		return err
	}

	if err := s.ensureTable(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	info, err := os.Stat(s.path)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to stat database file: %w", err)
	}
	s.estimate = info.Size()

	if s.cfg.AutoClose {
		if err := db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
		s.db = nil
		return nil
	}

	s.db = db
	return nil
}

// acquire returns the database handle to write through. In auto-close
// mode the store opens a fresh connection per write and the release
// func closes it again.
func (s *LogStore) acquire(ctx context.Context) (*sql.DB, func(), error) {
	if s.db != nil {
		return s.db, func() {}, nil
	}

	db, err := s.openDB(ctx, s.path)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = db.Close() }, nil
}

// openDB opens a SQLite database and applies the connection PRAGMAs.
func (s *LogStore) openDB(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s?_txlock=immediate", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Session PRAGMAs apply per connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if s.cfg.WAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
		if _, err := db.ExecContext(ctx, "PRAGMA synchronous = NORMAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
		}
	}

	return db, nil
}

// ensureTable creates the logs table from the configured fields.
func (s *LogStore) ensureTable(ctx context.Context, db *sql.DB) error {
	cols := make([]string, 0, len(s.cfg.Fields))
	for _, d := range s.cfg.Fields {
		cols = append(cols, fmt.Sprintf("%s %s", d.Name, d.Storage))
	}

	query := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS logs (id INTEGER PRIMARY KEY AUTOINCREMENT, %s)",
		strings.Join(cols, ", "),
	)

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create logs table: %w", err)
	}
	return nil
}

// estimateRowSize approximates the on-disk growth from one row without
// asking SQLite, from the printed length of every value plus a fixed
// per-row overhead.
func estimateRowSize(rec fields.Record) int64 {
	var n int64
	for _, v := range rec.Values() {
		n += int64(len(fmt.Sprint(v)))
	}
	return n + rowOverhead
}
