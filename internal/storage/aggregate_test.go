package storage

import (
	"context"
	"testing"

	"fintrack/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, repo *SQLiteRepository, records ...core.Record) {
	t.Helper()
	_, err := repo.ImportTransactions(context.Background(), records)
	require.NoError(t, err)
}

func TestSummary(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo,
		rec("2024-01-01", "Salary", "Job", 1000, core.Income),
		rec("2024-01-02", "Rent", "Housing", 400, core.Expense),
		rec("2024-01-03", "Food", "Groceries", 100, core.Expense),
	)

	s, err := repo.Summary(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, core.Summary{Income: 1000, Expense: 500, NetFlow: 500}, s)
}

func TestSummaryEmptyLedger(t *testing.T) {
	repo := newTestRepo(t)

	s, err := repo.Summary(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, core.Summary{}, s)
}

func TestSummaryByMonth(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo,
		rec("2024-01-05", "Salary", "Job", 1000, core.Income),
		rec("2024-02-05", "Salary", "Job", 1200, core.Income),
		rec("2024-02-10", "Rent", "Housing", 700, core.Expense),
	)
	ctx := context.Background()

	s, err := repo.Summary(ctx, "2024-02")
	require.NoError(t, err)
	assert.Equal(t, core.Summary{Income: 1200, Expense: 700, NetFlow: 500}, s)

	s, err = repo.Summary(ctx, "2023-12")
	require.NoError(t, err)
	assert.Equal(t, core.Summary{}, s)

	_, err = repo.Summary(ctx, "Feb 2024")
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
}

func TestEmptyFlowIsExcludedEverywhere(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo,
		rec("2024-01-01", "Salary", "Job", 1000, core.Income),
		rec("2024-01-02", "Rent", "Housing", 400, core.Expense),
		rec("2024-03-02", "Mystery", "Unknown", 999, ""),
	)
	ctx := context.Background()

	s, err := repo.Summary(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, core.Summary{Income: 1000, Expense: 400, NetFlow: 600}, s)

	trends, err := repo.MonthlyTrends(ctx)
	require.NoError(t, err)
	require.Len(t, trends, 1, "a month with only incomplete rows must not appear")
	assert.Equal(t, "2024-01", trends[0].Month)

	for _, flow := range []core.Flow{core.Income, core.Expense} {
		totals, err := repo.CategoryTotals(ctx, flow)
		require.NoError(t, err)
		for _, ct := range totals {
			assert.NotEqual(t, "Unknown", ct.Category)
		}
	}

	txs, err := repo.ListTransactions(ctx, core.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, txs, 2)

	cats, err := repo.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Housing", "Job"}, cats)
}

func TestMonthlyTrends(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo,
		rec("2024-03-01", "Salary", "Job", 1000, core.Income),
		rec("2023-12-24", "Gifts", "Holidays", 300, core.Expense),
		rec("2024-03-10", "Rent", "Housing", 800, core.Expense),
		rec("2024-01-15", "Bonus", "Job", 200, core.Income),
	)

	trends, err := repo.MonthlyTrends(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []core.MonthlyTrend{
		{Month: "2023-12", Income: 0, Expense: 300, NetFlow: -300},
		{Month: "2024-01", Income: 200, Expense: 0, NetFlow: 200},
		{Month: "2024-03", Income: 1000, Expense: 800, NetFlow: 200},
	}, trends)
}

func TestMonthlyTrendsEmpty(t *testing.T) {
	repo := newTestRepo(t)

	trends, err := repo.MonthlyTrends(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, trends)
	assert.Empty(t, trends)
}

func TestCategoryTotalsOrdering(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo,
		rec("2024-01-01", "Groceries", "Food", 50, core.Expense),
		rec("2024-01-02", "Rent", "Housing", 900, core.Expense),
		rec("2024-01-03", "Bus", "Transport", 30, core.Expense),
		rec("2024-01-04", "Dinner", "Food", 70, core.Expense),
		rec("2024-01-05", "Taxi", "Transport", 90, core.Expense),
		rec("2024-01-06", "Salary", "Job", 5000, core.Income),
	)
	ctx := context.Background()

	totals, err := repo.CategoryTotals(ctx, "")
	require.NoError(t, err)
	require.Len(t, totals, 3)
	assert.Equal(t, "Housing", totals[0].Category)
	assert.Equal(t, 900.0, totals[0].TotalAmount)

	for i := 1; i < len(totals); i++ {
		assert.GreaterOrEqual(t, totals[i-1].TotalAmount, totals[i].TotalAmount)
	}

	byCat := map[string]float64{}
	for _, ct := range totals {
		byCat[ct.Category] = ct.TotalAmount
	}
	assert.Equal(t, map[string]float64{"Housing": 900, "Food": 120, "Transport": 120}, byCat)

	income, err := repo.CategoryTotals(ctx, "income")
	require.NoError(t, err)
	assert.Equal(t, []core.CategoryTotal{{Category: "Job", TotalAmount: 5000}}, income)

	_, err = repo.CategoryTotals(ctx, "Transfer")
	assert.ErrorIs(t, err, core.ErrInvalidFlow)
}

func TestListTransactions(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo,
		rec("2024-01-01", "Salary", "Job", 1000, core.Income),
		rec("2024-01-03", "Groceries", "Food", 50, core.Expense),
		rec("2024-01-02", "Rent", "Housing", 900, core.Expense),
		rec("2024-01-03", "Dinner", "Food", 70, core.Expense),
	)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter core.TransactionFilter
		want   []string
	}{
		{"all, most recent first", core.TransactionFilter{}, []string{"Dinner", "Groceries", "Rent", "Salary"}},
		{"by category", core.TransactionFilter{Category: "Food"}, []string{"Dinner", "Groceries"}},
		{"by flow", core.TransactionFilter{Flow: core.Income}, []string{"Salary"}},
		{"by category and flow", core.TransactionFilter{Category: "Food", Flow: core.Income}, nil},
		{"limit", core.TransactionFilter{Limit: 2}, []string{"Dinner", "Groceries"}},
		{"lowercase flow", core.TransactionFilter{Flow: "expense", Limit: 1}, []string{"Dinner"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs, err := repo.ListTransactions(ctx, tt.filter)
			require.NoError(t, err)
			var got []string
			for _, tx := range txs {
				got = append(got, tx.Description)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := repo.ListTransactions(ctx, core.TransactionFilter{Flow: "Refund"})
	assert.ErrorIs(t, err, core.ErrInvalidFlow)
}
