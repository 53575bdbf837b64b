package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
)

var exportHeader = []string{"id", "date", "description", "category", "amount", "flow"}

// ExportCSV writes the whole ledger, newest first, and returns the number of data rows written.
// Rows are written as stored, including those with an empty flow.
func (r *SQLiteRepository) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, description, category, amount, flow FROM transactions ORDER BY date DESC, id DESC`)
	if err != nil {
		return 0, classify("export", err)
	}
	defer rows.Close()

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, fmt.Errorf("write export header: %w", err)
	}

	n := 0
	for rows.Next() {
		var (
			id                                int64
			date, description, category, flow string
			amount                            float64
		)
		if err := rows.Scan(&id, &date, &description, &category, &amount, &flow); err != nil {
			return n, classify("scan export row", err)
		}
		record := []string{
			strconv.FormatInt(id, 10),
			date,
			description,
			category,
			strconv.FormatFloat(amount, 'f', -1, 64),
			flow,
		}
		if err := cw.Write(record); err != nil {
			return n, fmt.Errorf("write export row %d: %w", id, err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, classify("export", err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, fmt.Errorf("flush export: %w", err)
	}

	slog.InfoContext(ctx, "Ledger exported", "rows", n)
	return n, nil
}

// CountTransactions returns the number of stored transactions, complete or not.
func (r *SQLiteRepository) CountTransactions(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, classify("count transactions", err)
	}
	return n, nil
}
