package navstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver
)

// Dialect selects placeholder syntax and DDL for SQLStore.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

func (d Dialect) driver() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// upsert works on sqlite >= 3.24 and postgres alike; only placeholders differ.
func (d Dialect) upsert() string {
	if d == DialectPostgres {
		return `INSERT INTO nav_state (context_id, payload, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (context_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`
	}
	return `INSERT INTO nav_state (context_id, payload, updated_at) VALUES (?, ?, ?)
ON CONFLICT (context_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`
}

func (d Dialect) selectOne() string {
	if d == DialectPostgres {
		return `SELECT payload FROM nav_state WHERE context_id = $1`
	}
	return `SELECT payload FROM nav_state WHERE context_id = ?`
}

const createTable = `CREATE TABLE IF NOT EXISTS nav_state (
	context_id TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at BIGINT NOT NULL
)`

// SQLStore persists snapshots in a nav_state table, one row per context.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	opts    options

	mu     sync.Mutex
	closed bool
}

// OpenSQLite opens (or creates) a sqlite database at path.
func OpenSQLite(path string, opts ...Option) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open(DialectSQLite.driver(), path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Single writer keeps sqlite from reporting SQLITE_BUSY under concurrent saves.
	db.SetMaxOpenConns(1)
	return NewSQLStore(context.Background(), db, DialectSQLite, opts...)
}

// OpenPostgres connects with the pgx database/sql driver.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*SQLStore, error) {
	db, err := sql.Open(DialectPostgres.driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewSQLStore(ctx, db, DialectPostgres, opts...)
}

// NewSQLStore wraps an open database and ensures the table exists.
func NewSQLStore(ctx context.Context, db *sql.DB, dialect Dialect, opts ...Option) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, createTable); err != nil {
		return nil, fmt.Errorf("create nav_state table: %w", err)
	}
	return &SQLStore{db: db, dialect: dialect, opts: buildOptions(opts)}, nil
}

// Read returns the stored snapshot for contextID.
func (s *SQLStore) Read(ctx context.Context, contextID string) (*NavState, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	var payload string
	err := s.db.QueryRowContext(ctx, s.dialect.selectOne(), contextID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select nav state: %w", err)
	}
	st, err := Decode([]byte(payload))
	if err != nil {
		log.Printf("warning: ignoring nav state for %s: %v", contextID, err)
		return nil, nil
	}
	return s.opts.fresh(st), nil
}

// Write upserts the snapshot row.
func (s *SQLStore) Write(ctx context.Context, state NavState) error {
	if state.ContextID == "" {
		return ErrEmptyContext
	}
	if s.isClosed() {
		return ErrClosed
	}
	data, err := Encode(state)
	if err != nil {
		return err
	}
	updated := state.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.upsert(), state.ContextID, string(data), updated.UnixNano()); err != nil {
		return fmt.Errorf("upsert nav state: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *SQLStore) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
