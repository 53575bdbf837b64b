package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/core"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteRepository is the single file-backed ledger store.
type SQLiteRepository struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

type options struct {
	mustExist bool
	now       func() time.Time
}

type Option func(*options)

// MustExist refuses to create the database file when it is missing.
// Read paths use it so a typo in the location never yields an empty ledger.
func MustExist() Option {
	return func(o *options) { o.mustExist = true }
}

// WithClock overrides the clock used for goal timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Open connects to the SQLite database at path, creating parent directories as needed.
func Open(path string, opts ...Option) (*SQLiteRepository, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	if o.mustExist {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: database %s does not exist, run init first", core.ErrStorageUnavailable, path)
			}
			return nil, fmt.Errorf("%w: %w", core.ErrStorageUnavailable, err)
		}
	} else if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: create db directory: %w", core.ErrStorageUnavailable, err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite database: %w", core.ErrStorageUnavailable, err)
	}
	// One writer at a time; SQLite serializes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping database: %w", core.ErrStorageUnavailable, err)
	}

	slog.Debug("Opened SQLite database", "path", path)
	return &SQLiteRepository{db: db, path: path, now: o.now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Path() string { return r.path }

// Ping reports whether the store is still reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", core.ErrStorageUnavailable, err)
	}
	return nil
}

// classify maps a driver error onto the error taxonomy. Errors that mean the
// file cannot be used at all become ErrStorageUnavailable, everything else ErrSchema.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrStorageUnavailable) || errors.Is(err, core.ErrSchema) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if isUnavailable(err) {
		return fmt.Errorf("%s: %w: %w", op, core.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s: %w: %w", op, core.ErrSchema, err)
}

func isUnavailable(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code() & 0xff {
	case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_READONLY, sqlite3.SQLITE_BUSY,
		sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_PERM, sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_IOERR:
		return true
	}
	return false
}

func rollback(ctx context.Context, tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		slog.ErrorContext(ctx, "Rollback failed", "error", err)
	}
}
