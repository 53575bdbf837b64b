package storage

import (
	"context"
	"testing"

	"fintrack/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx))

	var tables int
	err := repo.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('transactions', 'goals')`).Scan(&tables)
	require.NoError(t, err)
	assert.Equal(t, 2, tables)
}

func TestEnsureSchemaKeepsData(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.ImportTransactions(ctx, []core.Record{rec("2024-01-01", "Salary", "Job", 100, core.Income)})
	require.NoError(t, err)
	require.NoError(t, repo.EnsureSchema(ctx))

	n, err := repo.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDescribeTable(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	info, err := repo.DescribeTable(ctx, TableTransactions)
	require.NoError(t, err)
	assert.Equal(t, TableTransactions, info.Name)
	assert.Zero(t, info.RowCount)

	names := make([]string, 0, len(info.Columns))
	for _, c := range info.Columns {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"id", "date", "description", "category", "amount", "flow"}, names)
	assert.True(t, info.Columns[0].PrimaryKey)
	assert.True(t, info.Columns[1].NotNull)

	goals, err := repo.DescribeTable(ctx, TableGoals)
	require.NoError(t, err)
	assert.Len(t, goals.Columns, 5)
	assert.Equal(t, "goal_name", goals.Columns[1].Name)

	_, err = repo.DescribeTable(ctx, "sqlite_master; DROP TABLE goals")
	assert.ErrorIs(t, err, core.ErrUnknownTable)
}

func TestResetDeletesEverything(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SeedSample(ctx))
	require.NoError(t, repo.Reset(ctx))

	n, err := repo.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	goals, err := repo.ListGoals(ctx)
	require.NoError(t, err)
	assert.Empty(t, goals)
}

func TestSeedSampleOnlyFillsEmptyTables(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SeedSample(ctx))
	require.NoError(t, repo.SeedSample(ctx))

	n, err := repo.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(sampleTransactions), n)

	goals, err := repo.ListGoals(ctx)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, "Emergency Fund", goals[0].Name)
	assert.Equal(t, 5000.0, goals[0].TargetAmount)
	assert.Equal(t, 1500.0, goals[0].CurrentProgress)
}
