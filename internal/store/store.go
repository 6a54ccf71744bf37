// Package store provides the durable on-device database for bookmarks and
// collections.
//
// The database is embedded SQLite (ncruces/go-sqlite3) opened in WAL mode
// for concurrent reads. Two entity tables are keyed by client-assigned ids,
// with secondary indexes for by-collection, by-favorite and by-creation
// lookups. Tombstoned rows stay in the tables until explicitly purged; the
// List*Active variants filter them out.
//
// Multi-record operations (batch puts, batch deletes, clear-all) run inside
// a single transaction so a crash mid-batch cannot leave one row updated
// and a sibling stale.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

var (
	// ErrNotFound is returned when a point lookup misses.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateName is returned when an active collection with the same
	// name (case-insensitive) already exists. Enforced by a partial unique
	// index so that two racing writers cannot both succeed.
	ErrDuplicateName = errors.New("collection name already exists")
)

// Store wraps the SQLite connection for the two entity tables plus the
// sync metadata table.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates a new store at the specified path.
//
// The parent directory is created if needed. If the database doesn't exist
// it is created; call InitSchema before first use. The caller MUST call
// Close when done.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path}

	// WAL for concurrent reads during writes.
	if _, err := s.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := s.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := s.conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return s, nil
}

// Close closes the database connection after checkpointing the WAL.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.conn = nil
	return nil
}

// InitSchema creates tables and indexes if they don't exist. Idempotent.
func (s *Store) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS bookmarks (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		favicon TEXT NOT NULL DEFAULT '',
		thumbnail TEXT NOT NULL DEFAULT '',
		collection_id TEXT NOT NULL DEFAULT '',
		is_favorite INTEGER NOT NULL DEFAULT 0,
		is_deleted INTEGER NOT NULL DEFAULT 0,
		deleted_at INTEGER,
		created_at INTEGER NOT NULL,
		last_modified_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS collections (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		icon TEXT NOT NULL DEFAULT '',
		color TEXT NOT NULL DEFAULT '',
		parent_id TEXT NOT NULL DEFAULT '',
		sort_order INTEGER NOT NULL DEFAULT 0,
		is_deleted INTEGER NOT NULL DEFAULT 0,
		deleted_at INTEGER,
		created_at INTEGER NOT NULL,
		last_modified_at INTEGER NOT NULL
	);

	-- Last-sync bookkeeping for the sync engine
	CREATE TABLE IF NOT EXISTS sync_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bookmarks_collection ON bookmarks(collection_id);
	CREATE INDEX IF NOT EXISTS idx_bookmarks_favorite ON bookmarks(is_favorite);
	CREATE INDEX IF NOT EXISTS idx_bookmarks_created ON bookmarks(created_at);
	CREATE INDEX IF NOT EXISTS idx_bookmarks_deleted ON bookmarks(is_deleted);

	CREATE INDEX IF NOT EXISTS idx_collections_parent ON collections(parent_id);
	CREATE INDEX IF NOT EXISTS idx_collections_order ON collections(sort_order);
	CREATE INDEX IF NOT EXISTS idx_collections_deleted ON collections(is_deleted);

	-- Name uniqueness among ACTIVE collections only; tombstoned rows may
	-- share a name with a live one until purged.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_collections_active_name
	    ON collections(lower(name)) WHERE is_deleted = 0;
	`

	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// ClearAll wipes both entity tables and the sync metadata in a single
// transaction. Used on sign-out.
func (s *Store) ClearAll(ctx context.Context) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"bookmarks", "collections", "sync_meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clear: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite unique-constraint
// failure. The driver surfaces these as plain errors, so match the message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// nullableMillis converts an optional epoch-millis value for storage;
// zero maps to NULL.
func nullableMillis(ms int64) sql.NullInt64 {
	if ms == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: ms, Valid: true}
}

func millisFromNull(n sql.NullInt64) int64 {
	if !n.Valid {
		return 0
	}
	return n.Int64
}
