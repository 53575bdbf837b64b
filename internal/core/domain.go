package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	Income  Flow = "Income"
	Expense Flow = "Expense"
)

// DateLayout is the canonical stored date format.
const DateLayout = "2006-01-02"

// MonthLayout is the year-month key used by summaries and trends.
const MonthLayout = "2006-01"

// TimestampLayout is used for goals.last_updated.
const TimestampLayout = "2006-01-02 15:04:05"

type (
	// Flow is the direction of a transaction. The amount never carries a sign.
	Flow string

	Transaction struct {
		ID          int64   `json:"id"`
		Date        string  `json:"date"`
		Description string  `json:"description"`
		Category    string  `json:"category"`
		Amount      float64 `json:"amount"`
		Flow        Flow    `json:"flow"`
	}

	// Record is a normalized transaction that has not been persisted yet.
	Record struct {
		Date        string  `validate:"required,datetime=2006-01-02"`
		Description string  `validate:"required"`
		Category    string  `validate:"required"`
		Amount      float64 `validate:"gte=0"`
		Flow        Flow    `validate:"omitempty,oneof=Income Expense"`
	}

	Goal struct {
		ID              int64     `json:"goal_id"`
		Name            string    `json:"goal_name"`
		TargetAmount    float64   `json:"target_amount"`
		CurrentProgress float64   `json:"current_progress"`
		LastUpdated     time.Time `json:"last_updated"`
	}

	// TransactionFilter narrows a transaction listing. Empty fields match everything.
	TransactionFilter struct {
		Category string
		Flow     Flow
		Limit    int
	}

	Column struct {
		Position   int
		Name       string
		Type       string
		NotNull    bool
		PrimaryKey bool
	}

	// TableInfo describes a table's structure and size for the admin viewer.
	TableInfo struct {
		Name     string
		Columns  []Column
		RowCount int
	}
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 10000
)

var (
	validate = validator.New(validator.WithRequiredStructEnabled())
)

// NormalizeFlow trims and title-cases a raw flow value, e.g. "income" -> "Income".
func NormalizeFlow(raw string) Flow {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	// A Caser keeps state between calls, so each call gets its own.
	return Flow(cases.Title(language.Und).String(s))
}

// ParseFlow normalizes raw and requires it to be Income or Expense.
func ParseFlow(raw string) (Flow, error) {
	f := NormalizeFlow(raw)
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFlow, raw)
	}
	return f, nil
}

func (f Flow) Valid() bool {
	return f == Income || f == Expense
}

func (f Flow) String() string {
	return string(f)
}

// Validate checks the record against the ledger invariants.
func (r Record) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return fmt.Errorf("invalid record: %s", strings.Join(msgs, ", "))
		}
		return fmt.Errorf("invalid record: %w", err)
	}
	if math.IsInf(r.Amount, 0) {
		return errors.New(`invalid record: amount failed "finite"`)
	}
	return nil
}

// Percent reports progress relative to target. Progress above target is allowed and yields > 100.
func (g Goal) Percent() float64 {
	if g.TargetAmount <= 0 {
		return 0
	}
	return g.CurrentProgress / g.TargetAmount * 100
}

// ParseMonth validates a YYYY-MM key. An empty string is accepted and means "all time".
func ParseMonth(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return t.Format(MonthLayout), nil
}

// EffectiveLimit returns the listing limit after applying the default and the cap.
func (f TransactionFilter) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return f.Limit
	}
}
