package storage

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
)

const (
	TableTransactions = "transactions"
	TableGoals        = "goals"
)

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		amount REAL NOT NULL,
		flow TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS goals (
		goal_id INTEGER PRIMARY KEY AUTOINCREMENT,
		goal_name TEXT UNIQUE NOT NULL,
		target_amount REAL NOT NULL,
		current_progress REAL NOT NULL DEFAULT 0.0,
		last_updated TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date)`,
}

// EnsureSchema creates the ledger tables if they are missing. It is safe to call repeatedly.
// All statements share one transaction, so a failure leaves nothing behind.
func (r *SQLiteRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin schema transaction", err)
	}
	defer rollback(ctx, tx)

	for _, stmt := range schemaDDL {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return classify("ensure schema", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return classify("commit schema", err)
	}

	slog.InfoContext(ctx, "Schema ensured", "tables", []string{TableTransactions, TableGoals})
	return nil
}

// DescribeTable returns the column layout and row count of a ledger table.
func (r *SQLiteRepository) DescribeTable(ctx context.Context, table string) (core.TableInfo, error) {
	// Table names cannot be bound as parameters, so only known tables are accepted.
	if table != TableTransactions && table != TableGoals {
		return core.TableInfo{}, fmt.Errorf("%w: %q", core.ErrUnknownTable, table)
	}
	info := core.TableInfo{Name: table}

	rows, err := r.db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return info, classify("table info", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			col     core.Column
			notNull int
			pk      int
			dflt    any
		)
		if err := rows.Scan(&col.Position, &col.Name, &col.Type, &notNull, &dflt, &pk); err != nil {
			return info, classify("scan table info", err)
		}
		col.NotNull = notNull != 0
		col.PrimaryKey = pk != 0
		info.Columns = append(info.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return info, classify("table info", err)
	}
	if len(info.Columns) == 0 {
		return info, fmt.Errorf("%w: table %s does not exist, run init first", core.ErrSchema, table)
	}

	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&info.RowCount); err != nil {
		return info, classify("count rows", err)
	}
	return info, nil
}

// Reset deletes every row from both ledger tables in one transaction.
func (r *SQLiteRepository) Reset(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin reset", err)
	}
	defer rollback(ctx, tx)

	var deleted int64
	for _, table := range []string{TableTransactions, TableGoals} {
		res, err := tx.ExecContext(ctx, "DELETE FROM "+table)
		if err != nil {
			return classify("reset "+table, err)
		}
		n, _ := res.RowsAffected()
		deleted += n
	}
	if err := tx.Commit(); err != nil {
		return classify("commit reset", err)
	}

	slog.WarnContext(ctx, "Ledger reset", "rows_deleted", deleted)
	return nil
}

var sampleTransactions = []core.Record{
	{Date: "2024-07-01", Description: "Monthly Paycheck", Category: "Income", Amount: 4500.00, Flow: core.Income},
	{Date: "2024-07-02", Description: "Rent Payment", Category: "Housing", Amount: 1200.00, Flow: core.Expense},
}

// SeedSample inserts demonstration rows into tables that are still empty.
func (r *SQLiteRepository) SeedSample(ctx context.Context) error {
	n, err := r.CountTransactions(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.ImportTransactions(ctx, sampleTransactions); err != nil {
			return err
		}
	}

	goals, err := r.ListGoals(ctx)
	if err != nil {
		return err
	}
	if len(goals) == 0 {
		if _, err := r.UpsertGoal(ctx, "Emergency Fund", 5000); err != nil {
			return err
		}
		if _, err := r.SetGoalProgress(ctx, "Emergency Fund", 1500); err != nil {
			return err
		}
	}
	return nil
}
