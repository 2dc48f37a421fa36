// Package store owns the SQLite connection, transactions and the versioned
// catalog schema for Grandline.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// DefaultBusyTimeout is how long a statement waits on a locked database.
const DefaultBusyTimeout = 5 * time.Second

// Options tunes a SQLite connection. Zero values select the defaults.
type Options struct {
	BusyTimeout time.Duration
}

// Migration is one versioned step of the catalog schema.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// SQLiteStore wraps a single-connection SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex // serializes migration runs
}

// New opens the database at path with default options.
func New(path string) (*SQLiteStore, error) {
	return Open(path, Options{})
}

// Open opens (or creates) the database at path. The connection runs in WAL
// mode with foreign keys enforced.
func Open(path string, opts Options) (*SQLiteStore, error) {
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = DefaultBusyTimeout
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// One connection: writers never contend with each other, and an
	// in-memory database stays the same database for its whole life.
	db.SetMaxOpenConns(1)

	// modernc.org/sqlite takes pragmas as statements rather than DSN params.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", opts.BusyTimeout.Milliseconds()),
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite %q: %s: %w", path, p, err)
		}
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// DB exposes the underlying handle for repositories.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Path is the location the store was opened with.
func (s *SQLiteStore) Path() string { return s.path }

// Close releases the connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Ping checks that the database answers a trivial query.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Tx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise. fn's error is returned unchanged.
func (s *SQLiteStore) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original: %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// MigrateSchema brings the database up to the latest catalog schema.
func (s *SQLiteStore) MigrateSchema(ctx context.Context) error {
	_, err := s.Migrate(ctx, Migrations)
	return err
}

// Migrate applies every migration newer than the recorded schema version,
// each in its own transaction, and returns how many ran. Migrations must be
// sorted by ascending Version.
func (s *SQLiteStore) Migrate(ctx context.Context, migrations []Migration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return 0, err
	}
	applied := 0
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		err := s.Tx(ctx, func(tx *sql.Tx) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`,
				m.Version, m.Description)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		current = m.Version
		applied++
	}
	return applied, nil
}

// SchemaVersion returns the highest applied migration, or 0 for a fresh
// database.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}
	var v sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, fmt.Errorf("schema version: %w", err)
	}
	return int(v.Int64), nil
}
