package http

import (
	"bytes"
	"context"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

type (
	summaryView struct {
		Income, Expense, Net string
		Negative             bool
	}

	categoryBar struct {
		Name   string
		Amount string
		Width  int
		Color  string
	}

	trendRow struct {
		Month                     string
		Income, Expense, Net      string
		IncomeWidth, ExpenseWidth int
	}

	transactionRow struct {
		Date, Description, Category, Amount string
		Flow                                core.Flow
	}

	dashboardView struct {
		Month           string
		Summary         summaryView
		CategoryBars    []categoryBar
		Trends          []trendRow
		Transactions    []transactionRow
		CategoryOptions []string
		Filter          struct{ Category, Flow string }
	}
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	month, err := core.ParseMonth(r.URL.Query().Get("month"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	view, err := s.buildDashboard(ctx, month, filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", view); err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentTemplate).ErrorContext(ctx, "Dashboard render failed",
			log.FieldOperation, log.OpRender, log.FieldError, err.Error())
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) buildDashboard(ctx context.Context, month string, filter core.TransactionFilter) (dashboardView, error) {
	view := dashboardView{Month: month}
	view.Filter.Category = filter.Category
	view.Filter.Flow = string(filter.Flow)

	sum, err := s.summary(ctx, month)
	if err != nil {
		return view, err
	}
	view.Summary = summaryView{
		Income:   core.FormatMoney(sum.Income),
		Expense:  core.FormatMoney(sum.Expense),
		Net:      core.FormatMoney(sum.NetFlow),
		Negative: sum.NetFlow < 0,
	}

	totals, err := s.categoryTotals(ctx, core.Expense)
	if err != nil {
		return view, err
	}
	view.CategoryBars = categoryBars(totals)

	trends, err := s.trends(ctx)
	if err != nil {
		return view, err
	}
	view.Trends = trendRows(trends)

	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	txs, err := s.reports.ListTransactions(qctx, filter)
	if err != nil {
		return view, err
	}
	for _, t := range txs {
		view.Transactions = append(view.Transactions, transactionRow{
			Date:        t.Date,
			Description: t.Description,
			Category:    t.Category,
			Amount:      core.FormatMoney(t.Amount),
			Flow:        t.Flow,
		})
	}

	view.CategoryOptions, err = s.reports.Categories(qctx)
	if err != nil {
		return view, err
	}
	return view, nil
}

func categoryBars(totals []core.CategoryTotal) []categoryBar {
	var largest float64
	for _, t := range totals {
		largest = max(largest, t.TotalAmount)
	}
	colors := palette(len(totals))
	bars := make([]categoryBar, 0, len(totals))
	for i, t := range totals {
		bars = append(bars, categoryBar{
			Name:   t.Category,
			Amount: core.FormatMoney(t.TotalAmount),
			Width:  barWidth(t.TotalAmount, largest),
			Color:  colors[i],
		})
	}
	return bars
}

func trendRows(trends []core.MonthlyTrend) []trendRow {
	var largest float64
	for _, t := range trends {
		largest = max(largest, t.Income, t.Expense)
	}
	rows := make([]trendRow, 0, len(trends))
	for _, t := range trends {
		rows = append(rows, trendRow{
			Month:        t.Month,
			Income:       core.FormatMoney(t.Income),
			Expense:      core.FormatMoney(t.Expense),
			Net:          core.FormatMoney(t.NetFlow),
			IncomeWidth:  barWidth(t.Income, largest),
			ExpenseWidth: barWidth(t.Expense, largest),
		})
	}
	return rows
}
