package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"-$1,200.00", "1200", false},
		{"$45.50", "45.5", false},
		{" 12 ", "12", false},
		{"1,000,000", "1000000", false},
		{"0", "0", false},
		{"abc", "", true},
		{"", "", true},
		{" $ ", "", true},
		{"1e400", "", true},
		{"-1e400", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
			assert.False(t, got.IsNegative())
		})
	}
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "1234.50", FormatAmount(1234.5))
	assert.Equal(t, "$500.00", FormatMoney(500))
	assert.Equal(t, "-$20.10", FormatMoney(-20.1))
	assert.NotPanics(t, func() {
		assert.Equal(t, "+Inf", FormatMoney(math.Inf(1)))
		assert.Equal(t, "NaN", FormatAmount(math.NaN()))
	})
}

func TestNewSummary(t *testing.T) {
	s := NewSummary(1000, 500)
	assert.Equal(t, Summary{Income: 1000, Expense: 500, NetFlow: 500}, s)

	m := NewMonthlyTrend("2024-01", 10, 30)
	assert.Equal(t, -20.0, m.NetFlow)
}
