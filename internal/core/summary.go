package core

// Summary is the income/expense triple for a period. Directions with no rows are zero.
type Summary struct {
	Income  float64 `json:"Income"`
	Expense float64 `json:"Expense"`
	NetFlow float64 `json:"Net Flow"`
}

type MonthlyTrend struct {
	Month   string  `json:"Month"`
	Income  float64 `json:"Income"`
	Expense float64 `json:"Expense"`
	NetFlow float64 `json:"Net Flow"`
}

type CategoryTotal struct {
	Category    string  `json:"Category"`
	TotalAmount float64 `json:"TotalAmount"`
}

// NewSummary builds a Summary and derives NetFlow.
func NewSummary(income, expense float64) Summary {
	return Summary{Income: income, Expense: expense, NetFlow: income - expense}
}

func NewMonthlyTrend(month string, income, expense float64) MonthlyTrend {
	return MonthlyTrend{Month: month, Income: income, Expense: expense, NetFlow: income - expense}
}
