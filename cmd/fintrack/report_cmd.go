package main

import (
	"context"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/storage"

	"github.com/spf13/cobra"
)

func newSummaryCmd(a *app) *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show income, expense and net flow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := core.ParseMonth(month)
			if err != nil {
				return err
			}
			return a.withRepo(cmd.Context(), func(ctx context.Context, repo *storage.SQLiteRepository) error {
				sum, err := repo.Summary(ctx, m)
				if err != nil {
					return err
				}
				period := "All time"
				if m != "" {
					period = m
				}
				w := a.table()
				fmt.Fprintf(w, "Period\t%s\n", period)
				fmt.Fprintf(w, "Income\t%s\n", a.money(sum.Income, core.Income))
				fmt.Fprintf(w, "Expense\t%s\n", a.money(sum.Expense, core.Expense))
				fmt.Fprintf(w, "Net Flow\t%s\n", a.money(sum.NetFlow, ""))
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "Limit to one month, YYYY-MM.")
	return cmd
}

func newTrendsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "trends",
		Short: "Show income and expense per month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withRepo(cmd.Context(), func(ctx context.Context, repo *storage.SQLiteRepository) error {
				trends, err := repo.MonthlyTrends(ctx)
				if err != nil {
					return err
				}
				if len(trends) == 0 {
					fmt.Fprintln(a.out, "No transactions.")
					return nil
				}
				w := a.table()
				a.heading(w, "MONTH", "INCOME", "EXPENSE", "NET FLOW")
				for _, t := range trends {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Month,
						a.money(t.Income, core.Income), a.money(t.Expense, core.Expense), a.money(t.NetFlow, ""))
				}
				return w.Flush()
			})
		},
	}
}

func newCategoriesCmd(a *app) *cobra.Command {
	var flow string
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Show totals per category, largest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := core.ParseFlow(flow)
			if err != nil {
				return err
			}
			return a.withRepo(cmd.Context(), func(ctx context.Context, repo *storage.SQLiteRepository) error {
				totals, err := repo.CategoryTotals(ctx, f)
				if err != nil {
					return err
				}
				if len(totals) == 0 {
					fmt.Fprintf(a.out, "No %s transactions.\n", f)
					return nil
				}
				w := a.table()
				a.heading(w, "CATEGORY", "TOTAL")
				for _, t := range totals {
					fmt.Fprintf(w, "%s\t%s\n", t.Category, a.money(t.TotalAmount, f))
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVarP(&flow, "flow", "f", string(core.Expense), "Income or Expense.")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var (
		filter core.TransactionFilter
		flow   string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flow != "" {
				f, err := core.ParseFlow(flow)
				if err != nil {
					return err
				}
				filter.Flow = f
			}
			return a.withRepo(cmd.Context(), func(ctx context.Context, repo *storage.SQLiteRepository) error {
				txs, err := repo.ListTransactions(ctx, filter)
				if err != nil {
					return err
				}
				if len(txs) == 0 {
					fmt.Fprintln(a.out, "No transactions.")
					return nil
				}
				descWidth := a.descriptionWidth()
				w := a.table()
				a.heading(w, "ID", "DATE", "DESCRIPTION", "CATEGORY", "AMOUNT", "FLOW")
				for _, t := range txs {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Date,
						truncate(t.Description, descWidth), t.Category, a.money(t.Amount, t.Flow), t.Flow)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&filter.Category, "category", "", "Only this category.")
	cmd.Flags().StringVarP(&flow, "flow", "f", "", "Only Income or Expense.")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", core.DefaultListLimit, fmt.Sprintf("Maximum rows, capped at %d.", core.MaxListLimit))
	return cmd
}
