package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var errEmptyAmount = errors.New("empty amount")

// ParseAmount strips currency symbols and thousands separators and returns
// the absolute value. "-$1,200.00" parses to 1200.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.NewReplacer("$", "", ",", "").Replace(raw)
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errEmptyAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", raw)
	}
	// Stored as REAL; anything a float64 cannot hold is rejected here.
	if math.IsInf(d.InexactFloat64(), 0) {
		return decimal.Zero, fmt.Errorf("amount %q out of range", raw)
	}
	return d.Abs(), nil
}

// FormatAmount renders a stored amount with two decimals, e.g. 1234.5 -> "1234.50".
func FormatAmount(v float64) string {
	if !isFinite(v) {
		return strconvFloat(v)
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatMoney is FormatAmount with a currency symbol and sign, for display.
func FormatMoney(v float64) string {
	if !isFinite(v) {
		return strconvFloat(v)
	}
	d := decimal.NewFromFloat(v)
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

func isFinite(v float64) bool { return !math.IsInf(v, 0) && !math.IsNaN(v) }

// strconvFloat renders NaN and infinities, which decimal refuses to represent.
func strconvFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
