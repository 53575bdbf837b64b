package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStorageUnavailable means the backing store is missing, locked, read-only or unreachable.
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrSchema             = errors.New("schema error")
	// ErrImportFailure means a batch insert was rolled back. Nothing from the batch is persisted.
	ErrImportFailure = errors.New("import failed")

	ErrSourceNotFound = errors.New("source not found")
	ErrInvalidMonth   = errors.New("invalid month, expected YYYY-MM")
	ErrInvalidFlow    = errors.New("invalid flow, expected Income or Expense")
	ErrGoalNotFound   = errors.New("goal not found")
	ErrInvalidGoal    = errors.New("invalid goal")
	ErrUnknownTable   = errors.New("unknown table")
)

// RowError reports a single input row that could not be normalized.
// The row is skipped; the rest of the batch continues.
type RowError struct {
	Line int
	Raw  []string
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v (row: %s)", e.Line, e.Err, strings.Join(e.Raw, " | "))
}

func (e *RowError) Unwrap() error { return e.Err }
