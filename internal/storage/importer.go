package storage

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
)

const insertTransactionSQL = `INSERT INTO transactions (date, description, category, amount, flow) VALUES (?, ?, ?, ?, ?)`

// ImportTransactions inserts all records as one atomic batch and returns the number inserted.
// On any failure the batch is rolled back and the error wraps core.ErrImportFailure.
func (r *SQLiteRepository) ImportTransactions(ctx context.Context, records []core.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrImportFailure, classify("begin import", err))
	}
	defer rollback(ctx, tx)

	stmt, err := tx.PrepareContext(ctx, insertTransactionSQL)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrImportFailure, classify("prepare insert", err))
	}
	defer stmt.Close()

	for i, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.Date, rec.Description, rec.Category, rec.Amount, string(rec.Flow)); err != nil {
			slog.ErrorContext(ctx, "Import rolled back",
				"record", i+1,
				"total", len(records),
				"error", err)
			return 0, fmt.Errorf("%w: record %d of %d: %w", core.ErrImportFailure, i+1, len(records), classify("insert", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrImportFailure, classify("commit import", err))
	}

	slog.InfoContext(ctx, "Transactions imported", "count", len(records))
	return len(records), nil
}
