// Package ingest turns raw spreadsheet rows into validated ledger records.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"

	"github.com/araddon/dateparse"
)

const utf8BOM = "\ufeff"

var (
	errBlankRow  = errors.New("blank row")
	errShortRow  = errors.New("row has too few columns")
	errEmptyDate = errors.New("empty date")
)

// Result is the outcome of one normalization pass.
type Result struct {
	Records     []core.Record
	RowsRead    int
	Diagnostics []*core.RowError
}

// Skipped is the number of data rows that did not become records, blank rows included.
func (r Result) Skipped() int {
	return r.RowsRead - len(r.Records)
}

// Normalizer cleans raw rows according to a fixed column mapping.
type Normalizer struct {
	cols      config.Columns
	hasHeader bool
	dayFirst  bool
	logger    *log.Logger
}

func New(cfg config.Ingest, logger *log.Logger) *Normalizer {
	if logger == nil {
		logger = log.Default(log.ComponentIngest)
	}
	return &Normalizer{
		cols:      cfg.Columns,
		hasHeader: cfg.HasHeader,
		dayFirst:  cfg.DateOrder == config.DateDayFirst,
		logger:    logger.WithComponent(log.ComponentIngest),
	}
}

// NormalizeSource reads every row of src and normalizes it. A source that
// cannot be read yields an empty result and the error.
func (n *Normalizer) NormalizeSource(ctx context.Context, src sheets.RowSource) (Result, error) {
	rows, err := src.Rows(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", src.Name(), err)
	}
	return n.Normalize(ctx, rows), nil
}

// Normalize processes rows in order. Bad rows are skipped with a diagnostic and
// never stop the batch; blank rows are skipped silently.
func (n *Normalizer) Normalize(ctx context.Context, rows []sheets.Row) Result {
	res := Result{Records: make([]core.Record, 0, len(rows))}

	for i, row := range rows {
		if i == 0 && len(row.Cells) > 0 && strings.HasPrefix(row.Cells[0], utf8BOM) {
			cells := append([]string(nil), row.Cells...)
			cells[0] = strings.TrimPrefix(cells[0], utf8BOM)
			row.Cells = cells
		}
		if i == 0 && n.hasHeader {
			continue
		}
		res.RowsRead++

		rec, err := n.normalizeRow(row)
		if errors.Is(err, errBlankRow) {
			continue
		}
		if err != nil {
			rowErr := &core.RowError{Line: row.Line, Raw: row.Cells, Err: err}
			res.Diagnostics = append(res.Diagnostics, rowErr)
			n.logger.WarnContext(ctx, "Skipping row",
				log.FieldLine, row.Line,
				log.FieldRow, strings.Join(row.Cells, ","),
				log.FieldError, err)
			continue
		}
		res.Records = append(res.Records, rec)
	}

	n.logger.DebugContext(ctx, "Rows normalized",
		log.FieldRowsRead, res.RowsRead,
		log.FieldNormalized, len(res.Records),
		log.FieldSkipped, res.Skipped())
	return res
}

func (n *Normalizer) normalizeRow(row sheets.Row) (core.Record, error) {
	if row.Err != nil {
		return core.Record{}, fmt.Errorf("malformed row: %w", row.Err)
	}
	if isBlank(row.Cells) {
		return core.Record{}, errBlankRow
	}
	if len(row.Cells) < n.cols.Max()+1 {
		return core.Record{}, fmt.Errorf("%w: got %d, need %d", errShortRow, len(row.Cells), n.cols.Max()+1)
	}

	amount, err := core.ParseAmount(row.Cells[n.cols.Amount])
	if err != nil {
		return core.Record{}, err
	}
	date, err := n.parseDate(strings.TrimSpace(row.Cells[n.cols.Date]))
	if err != nil {
		return core.Record{}, err
	}

	rec := core.Record{
		Date:        date,
		Description: strings.TrimSpace(row.Cells[n.cols.Description]),
		Category:    strings.TrimSpace(row.Cells[n.cols.Category]),
		Amount:      amount.InexactFloat64(),
		Flow:        core.NormalizeFlow(row.Cells[n.cols.Flow]),
	}
	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}
	return rec, nil
}

// parseDate accepts the common spreadsheet date spellings and returns YYYY-MM-DD.
// Ambiguous numeric dates follow the configured order; an impossible month
// (e.g. 25/12/2024 read month-first) is retried with day and month swapped.
func (n *Normalizer) parseDate(s string) (string, error) {
	if s == "" {
		return "", errEmptyDate
	}
	t, err := dateparse.ParseAny(s,
		dateparse.PreferMonthFirst(!n.dayFirst),
		dateparse.RetryAmbiguousDateWithSwap(true))
	if err != nil {
		return "", fmt.Errorf("invalid date %q", s)
	}
	return t.Format(core.DateLayout), nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
