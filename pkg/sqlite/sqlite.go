package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS resource (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		certification_level TEXT NOT NULL,
		performance_rating REAL NOT NULL DEFAULT 0 CHECK (performance_rating >= 0 AND performance_rating <= 5),
		current_task_count INTEGER NOT NULL DEFAULT 0 CHECK (current_task_count >= 0),
		availability TEXT NOT NULL,
		shift TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS task (
		id TEXT PRIMARY KEY,
		location TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		priority TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		hazard_required INTEGER NOT NULL DEFAULT 0,
		occupied INTEGER NOT NULL DEFAULT 0,
		scheduled_time TEXT NOT NULL DEFAULT '',
		estimated_duration_minutes INTEGER,
		status TEXT NOT NULL DEFAULT 'pending',
		assigned_resource_id TEXT REFERENCES resource (id),
		created_at TEXT NOT NULL,
		completed_at TEXT,
		version INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS task_status_created_idx ON task (status, created_at)`,
	`CREATE TABLE IF NOT EXISTS activity_log (
		id TEXT PRIMARY KEY,
		agent TEXT NOT NULL,
		action TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		input TEXT NOT NULL DEFAULT '{}',
		output TEXT NOT NULL DEFAULT '{}',
		success INTEGER NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		execution_time_ms INTEGER NOT NULL DEFAULT 0
	)`,
}

// DB provides task, resource and activity storage in a local SQLite file
type DB struct {
	db    *sql.DB
	clock func() time.Time
}

// OpenDB opens a SQLite database at the given path and applies the schema.
// MemoryPath opens an in-memory database limited to one connection.
func OpenDB(path string) (*DB, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == MemoryPath {
		// Every connection to :memory: is a separate database
		conn.SetMaxOpenConns(1)
	}

	pragmas := []string{"PRAGMA journal_mode = WAL", "PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	for i, stmt := range migrations {
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("migration %d: %w", i, err)
		}
	}

	return &DB{db: conn, clock: time.Now}, nil
}

// Close closes the database
func (d *DB) Close() error {
	return d.db.Close()
}

// withinTx runs fn in a transaction, rolling back on error or panic
func (d *DB) withinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
