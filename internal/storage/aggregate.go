package storage

import (
	"context"
	"log/slog"
	"strings"

	"fintrack/internal/core"
)

// Rows with an empty flow are incomplete data and take part in no aggregate.
const hasFlow = `flow IS NOT NULL AND flow <> ''`

const (
	summarySQL = `
SELECT
	COALESCE(SUM(CASE WHEN flow = 'Income' THEN amount END), 0.0),
	COALESCE(SUM(CASE WHEN flow = 'Expense' THEN amount END), 0.0)
FROM transactions
WHERE ` + hasFlow + ` AND (?1 = '' OR substr(date, 1, 7) = ?1)`

	trendsSQL = `
SELECT
	substr(date, 1, 7) AS month,
	COALESCE(SUM(CASE WHEN flow = 'Income' THEN amount END), 0.0),
	COALESCE(SUM(CASE WHEN flow = 'Expense' THEN amount END), 0.0)
FROM transactions
WHERE ` + hasFlow + `
GROUP BY month
ORDER BY month`

	categoryTotalsSQL = `
SELECT category, SUM(amount) AS total
FROM transactions
WHERE ` + hasFlow + ` AND flow = ?
GROUP BY category
ORDER BY total DESC, category`
)

// Summary totals income and expense, optionally restricted to a YYYY-MM month.
func (r *SQLiteRepository) Summary(ctx context.Context, month string) (core.Summary, error) {
	month, err := core.ParseMonth(month)
	if err != nil {
		return core.Summary{}, err
	}

	var income, expense float64
	if err := r.db.QueryRowContext(ctx, summarySQL, month).Scan(&income, &expense); err != nil {
		return core.Summary{}, classify("summary", err)
	}

	slog.DebugContext(ctx, "Summary computed", "month", month, "income", income, "expense", expense)
	return core.NewSummary(income, expense), nil
}

// MonthlyTrends returns one entry per month present in the ledger, oldest first.
func (r *SQLiteRepository) MonthlyTrends(ctx context.Context) ([]core.MonthlyTrend, error) {
	rows, err := r.db.QueryContext(ctx, trendsSQL)
	if err != nil {
		return nil, classify("monthly trends", err)
	}
	defer rows.Close()

	trends := []core.MonthlyTrend{}
	for rows.Next() {
		var (
			month           string
			income, expense float64
		)
		if err := rows.Scan(&month, &income, &expense); err != nil {
			return nil, classify("scan monthly trend", err)
		}
		trends = append(trends, core.NewMonthlyTrend(month, income, expense))
	}
	if err := rows.Err(); err != nil {
		return nil, classify("monthly trends", err)
	}
	return trends, nil
}

// CategoryTotals sums amounts per category for one flow, largest first.
// An empty flow means Expense.
func (r *SQLiteRepository) CategoryTotals(ctx context.Context, flow core.Flow) ([]core.CategoryTotal, error) {
	if flow == "" {
		flow = core.Expense
	}
	flow, err := core.ParseFlow(string(flow))
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, categoryTotalsSQL, string(flow))
	if err != nil {
		return nil, classify("category totals", err)
	}
	defer rows.Close()

	totals := []core.CategoryTotal{}
	for rows.Next() {
		var ct core.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.TotalAmount); err != nil {
			return nil, classify("scan category total", err)
		}
		totals = append(totals, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("category totals", err)
	}
	return totals, nil
}

// ListTransactions returns the most recent transactions matching the filter.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, filter core.TransactionFilter) ([]core.Transaction, error) {
	var (
		where = []string{hasFlow}
		args  []any
	)
	if c := strings.TrimSpace(filter.Category); c != "" {
		where = append(where, "category = ?")
		args = append(args, c)
	}
	if filter.Flow != "" {
		flow, err := core.ParseFlow(string(filter.Flow))
		if err != nil {
			return nil, err
		}
		where = append(where, "flow = ?")
		args = append(args, string(flow))
	}
	args = append(args, filter.EffectiveLimit())

	query := `SELECT id, date, description, category, amount, flow FROM transactions WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY date DESC, id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("list transactions", err)
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		var t core.Transaction
		if err := rows.Scan(&t.ID, &t.Date, &t.Description, &t.Category, &t.Amount, &t.Flow); err != nil {
			return nil, classify("scan transaction", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list transactions", err)
	}
	return txs, nil
}

// Categories returns the distinct categories of complete transactions, sorted.
func (r *SQLiteRepository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT category FROM transactions WHERE `+hasFlow+` ORDER BY category`)
	if err != nil {
		return nil, classify("list categories", err)
	}
	defer rows.Close()

	cats := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, classify("scan category", err)
		}
		cats = append(cats, c)
	}
	return cats, classify("list categories", rows.Err())
}
