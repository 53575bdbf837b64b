package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 7, 15, 9, 30, 0, 0, time.Local)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "finance.db"), WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.EnsureSchema(context.Background()))
	return repo
}

func rec(date, desc, cat string, amount float64, flow core.Flow) core.Record {
	return core.Record{Date: date, Description: desc, Category: cat, Amount: amount, Flow: flow}
}

func TestOpenCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "finance.db")
	repo, err := Open(path)
	require.NoError(t, err)
	defer repo.Close()

	_, err = os.Stat(filepath.Dir(path))
	assert.NoError(t, err)
	assert.Equal(t, path, repo.Path())
	assert.NoError(t, repo.Ping(context.Background()))
}

func TestOpenMustExistOnMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")
	_, err := Open(path, MustExist())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStorageUnavailable)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "database file must not be created")
}

func TestOpenUnderRegularFileIsUnavailable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := Open(filepath.Join(blocker, "finance.db"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStorageUnavailable)
}

func TestOpenNotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.db")
	require.NoError(t, os.WriteFile(path, []byte("this is definitely not a sqlite database file, just text padding it out"), 0o644))

	repo, err := Open(path, MustExist())
	if err != nil {
		assert.ErrorIs(t, err, core.ErrStorageUnavailable)
		return
	}
	defer repo.Close()

	err = repo.EnsureSchema(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStorageUnavailable)
}

func TestEnsureSchemaOnReadOnlyStore(t *testing.T) {
	ctx := context.Background()
	repo, err := Open(filepath.Join(t.TempDir(), "finance.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer repo.Close()

	// The pool holds a single connection, so the pragma sticks for the next statements.
	if _, err := repo.db.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		t.Fatalf("enable query_only: %v", err)
	}

	err = repo.EnsureSchema(ctx)
	if !errors.Is(err, core.ErrStorageUnavailable) {
		t.Fatalf("EnsureSchema() error = %v, want %v", err, core.ErrStorageUnavailable)
	}

	var tables int
	if err := repo.db.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master WHERE type = 'table'").Scan(&tables); err != nil {
		t.Fatalf("count tables: %v", err)
	}
	if tables != 0 {
		t.Errorf("read-only store has %d tables after a failed EnsureSchema, want 0", tables)
	}
}
