// Package stores provides the persistence layer for recorded calls.
// It includes rotating SQLite-based storage with WAL mode, size-capped
// database files, and rule-based queries over the recorded rows.
package stores
