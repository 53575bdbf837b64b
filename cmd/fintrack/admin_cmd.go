package main

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/storage"

	"github.com/spf13/cobra"
)

func newViewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "view <table>",
		Short:     "Show a table's columns and row count",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{storage.TableTransactions, storage.TableGoals},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRepo(cmd.Context(), func(ctx context.Context, repo *storage.SQLiteRepository) error {
				info, err := repo.DescribeTable(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s (%d rows)\n", a.paint(ansiBold, info.Name), info.RowCount)
				w := a.table()
				a.heading(w, "#", "COLUMN", "TYPE", "NOT NULL", "PK")
				for _, c := range info.Columns {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", c.Position, c.Name, c.Type, yesNo(c.NotNull), yesNo(c.PrimaryKey))
				}
				return w.Flush()
			})
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every transaction and goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("reset deletes all data; pass --yes to confirm")
			}
			return a.withRepo(cmd.Context(), func(ctx context.Context, repo *storage.SQLiteRepository) error {
				if err := repo.Reset(ctx); err != nil {
					return err
				}
				fmt.Fprintln(a.out, "All transactions and goals deleted.")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion.")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
