package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fintrack/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t   *testing.T
	dir string
	db  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{t: t, dir: dir, db: filepath.Join(dir, "finance.db")}
	t.Setenv("STORAGE_LOCATION", h.db)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("AMQP_URL", "")
	t.Setenv("SOURCE_TYPE", "csv")
	return h
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(h.dir, "none.env")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, out)
	return out
}

func (h *harness) writeCSV(name, content string) string {
	h.t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(h.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const bankCSV = `Date,Description,Category,Amount,Flow
2024-01-05,Paycheck,Salary,"$1,000.00",income
2024-01-10,Groceries,Food,$300,expense
2024-02-03,Cinema,Fun,200,Expense
not a date,Broken,Food,10,Expense
`

func TestReadCommandsNeedAnExistingStore(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("summary")
	assert.ErrorIs(t, err, core.ErrStorageUnavailable)
	_, err = os.Stat(h.db)
	assert.True(t, os.IsNotExist(err), "read commands never create the store")
}

func TestDryRunImportLeavesStoreAlone(t *testing.T) {
	h := newHarness(t)
	path := h.writeCSV("bank.csv", bankCSV)

	out, err := h.run("import", path, "--dry-run")
	if err != nil {
		t.Fatalf("import --dry-run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "dry run") {
		t.Errorf("output does not mention the dry run:\n%s", out)
	}
	if _, err := os.Stat(h.db); !os.IsNotExist(err) {
		t.Fatalf("dry run created %s (stat error = %v)", h.db, err)
	}
}

func TestImportSkipsOverflowingAmount(t *testing.T) {
	h := newHarness(t)
	path := h.writeCSV("huge.csv", "Date,Description,Category,Amount,Flow\n"+
		"2024-01-01,Big,Misc,1e400,Expense\n"+
		"2024-01-02,Lunch,Food,12.50,Expense\n")

	out := h.mustRun("import", path)
	assert.Regexp(t, `Inserted\s+1`, out)
	assert.Contains(t, out, "line 2")

	assert.NotPanics(t, func() {
		out = h.mustRun("summary")
	})
	assert.Regexp(t, `Expense\s+\$12\.50`, out)
}

func TestInitAndImportFlow(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("init")
	assert.Contains(t, out, h.db)

	path := h.writeCSV("bank.csv", bankCSV)
	out = h.mustRun("import", path, "--dry-run")
	assert.Contains(t, out, "dry run")
	assert.Contains(t, h.mustRun("summary"), "$0.00")

	out = h.mustRun("import", path)
	assert.Regexp(t, `Inserted\s+3`, out)
	assert.Regexp(t, `Skipped\s+1`, out)
	assert.Contains(t, out, "line 5")

	out = h.mustRun("summary")
	assert.Regexp(t, `Income\s+\$1000\.00`, out)
	assert.Regexp(t, `Expense\s+\$500\.00`, out)
	assert.Regexp(t, `Net Flow\s+\$500\.00`, out)

	out = h.mustRun("summary", "--month", "2024-02")
	assert.Regexp(t, `Net Flow\s+-\$200\.00`, out)

	out = h.mustRun("trends")
	assert.Contains(t, out, "2024-01")
	assert.Contains(t, out, "2024-02")

	out = h.mustRun("categories")
	assert.Less(t, strings.Index(out, "Food"), strings.Index(out, "Fun"))

	out = h.mustRun("categories", "--flow", "income")
	assert.Contains(t, out, "Salary")

	out = h.mustRun("list", "--flow", "expense", "--limit", "1")
	assert.Contains(t, out, "Cinema")
	assert.NotContains(t, out, "Groceries")
}

func TestImportMissingFile(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("import", filepath.Join(h.dir, "missing.csv"))
	assert.ErrorIs(t, err, core.ErrSourceNotFound)
}

func TestInvalidArguments(t *testing.T) {
	h := newHarness(t)
	h.mustRun("init")

	_, err := h.run("summary", "--month", "2024/01")
	assert.ErrorIs(t, err, core.ErrInvalidMonth)

	_, err = h.run("categories", "--flow", "transfer")
	assert.ErrorIs(t, err, core.ErrInvalidFlow)

	_, err = h.run("view", "sqlite_master")
	assert.ErrorIs(t, err, core.ErrUnknownTable)

	_, err = h.run("reset")
	assert.ErrorContains(t, err, "--yes")
}

func TestExportCommand(t *testing.T) {
	h := newHarness(t)
	h.mustRun("init", "--sample")

	dest := filepath.Join(h.dir, "out.csv")
	out := h.mustRun("export", "--output", dest)
	assert.Contains(t, out, "Exported 2 transactions")

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "id,date,description,category,amount,flow", lines[0])

	out = h.mustRun("export", "-o", "-")
	assert.True(t, strings.HasPrefix(out, "id,date,description"))
}

func TestGoalsCommands(t *testing.T) {
	h := newHarness(t)
	h.mustRun("init")

	assert.Contains(t, h.mustRun("goals", "list"), "No goals.")
	assert.Contains(t, h.mustRun("goals", "set", "Vacation", "$2,000"), "$2000.00")
	assert.Contains(t, h.mustRun("goals", "progress", "Vacation", "500"), "(25.0%)")

	out := h.mustRun("goals", "list")
	assert.Regexp(t, `Vacation\s+\$2000\.00\s+\$500\.00\s+25\.0%`, out)

	_, err := h.run("goals", "progress", "Car", "10")
	assert.ErrorIs(t, err, core.ErrGoalNotFound)

	_, err = h.run("goals", "set", "Car", "lots")
	assert.ErrorIs(t, err, core.ErrInvalidGoal)
}

func TestViewAndReset(t *testing.T) {
	h := newHarness(t)
	h.mustRun("init", "--sample")

	out := h.mustRun("view", "transactions")
	assert.Contains(t, out, "transactions (2 rows)")
	assert.Regexp(t, `flow\s+TEXT\s+yes\s+no`, out)

	assert.Contains(t, h.mustRun("reset", "--yes"), "deleted")
	assert.Contains(t, h.mustRun("view", "goals"), "goals (0 rows)")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Groceries", truncate("Groceries", 20))
	assert.Equal(t, "Groc…", truncate("Groceries", 5))
	assert.Equal(t, "Café…", truncate("Café crème", 5))
}
