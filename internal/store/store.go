package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/basket/murmur/internal/murmurerr"
)

var memDBCounter atomic.Int64

// Store wraps the run store's single *sql.DB handle. Callers open one Store
// per process section that needs it (the streaming logger owns its own,
// per spec.md §5, to avoid holding a handle across suspension points shared
// with the orchestrator's lifecycle updates).
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) a SQLite database at path, applies pragma
// configuration, and runs the schema migration. path == "" opens an
// in-memory database, for tests.
func Open(path string) (*Store, error) {
	// Each in-memory Store gets a distinct named database so unrelated
	// callers (chiefly parallel tests) never share state through sqlite3's
	// shared-cache mode.
	dsn := fmt.Sprintf("file:murmur-mem-%d?mode=memory&cache=shared&_busy_timeout=5000&_foreign_keys=on", memDBCounter.Add(1))
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, murmurerr.Io(fmt.Errorf("create store directory: %w", err))
		}
		dsn = fmt.Sprintf("%s?_busy_timeout=5000&_foreign_keys=on", path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, murmurerr.Storage("open sqlite3", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.configurePragmas(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying handle for callers that need raw access (tests,
// the telemetry span wrapper).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) configurePragmas(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=FULL;",
	}
	for _, p := range pragmas {
		if _, err := s.db.ExecContext(ctx, p); err != nil {
			return murmurerr.Storage(fmt.Sprintf("set pragma %q", p), err)
		}
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return murmurerr.Storage("begin migration tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range tableStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return murmurerr.Storage("exec migration table", err)
		}
	}
	for _, stmt := range indexStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return murmurerr.Storage("exec migration index", err)
		}
	}

	var maxVersion int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations;`).Scan(&maxVersion); err != nil {
		return murmurerr.Storage("read migration max version", err)
	}
	if maxVersion > schemaVersion {
		return murmurerr.Storage(fmt.Sprintf("db schema version %d is newer than supported %d", maxVersion, schemaVersion), nil)
	}
	if maxVersion < schemaVersion {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO schema_migrations (version, checksum) VALUES (?, ?);
		`, schemaVersion, schemaChecksum); err != nil {
			return murmurerr.Storage("insert schema migration ledger", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return murmurerr.Storage("commit migration tx", err)
	}
	return nil
}

// retryOnBusy retries f on SQLITE_BUSY/SQLITE_LOCKED with bounded
// exponential backoff and jitter, matching the teacher's
// internal/persistence.retryOnBusy (GC-SPEC-PER-002 in that file).
func retryOnBusy(ctx context.Context, maxRetries int, f func() error) error {
	const baseDelay = 50 * time.Millisecond
	const maxDelay = 500 * time.Millisecond

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = f()
		if err == nil {
			return nil
		}
		if !isSQLiteBusy(err) {
			return err
		}
		if attempt == maxRetries {
			return err
		}
		delay := baseDelay << uint(attempt)
		if delay > maxDelay {
			delay = maxDelay
		}
		jitter := time.Duration(rand.IntN(int(delay / 2)))
		delay = delay - delay/4 + jitter

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "(5)") ||
		strings.Contains(msg, "(6)")
}
