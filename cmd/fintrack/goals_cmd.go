package main

import (
	"context"
	"fmt"
	"io"

	"fintrack/internal/core"
	"fintrack/internal/storage"

	"github.com/spf13/cobra"
)

func newGoalsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goals",
		Short: "Track savings goals",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List goals and their progress",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withRepo(cmd.Context(), func(ctx context.Context, repo *storage.SQLiteRepository) error {
					goals, err := repo.ListGoals(ctx)
					if err != nil {
						return err
					}
					if len(goals) == 0 {
						fmt.Fprintln(a.out, "No goals.")
						return nil
					}
					w := a.table()
					a.heading(w, "GOAL", "TARGET", "PROGRESS", "DONE", "UPDATED")
					for _, g := range goals {
						a.printGoalRow(w, g)
					}
					return w.Flush()
				})
			},
		},
		&cobra.Command{
			Use:     "set <name> <target>",
			Short:   "Create a goal or change its target",
			Example: `  fintrack goals set "Emergency Fund" 5000`,
			Args:    cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				target, err := parseAmountArg(args[1])
				if err != nil {
					return err
				}
				return a.withRepo(cmd.Context(), func(ctx context.Context, repo *storage.SQLiteRepository) error {
					g, err := repo.UpsertGoal(ctx, args[0], target)
					if err != nil {
						return err
					}
					fmt.Fprintf(a.out, "Goal %q target is %s\n", g.Name, core.FormatMoney(g.TargetAmount))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "progress <name> <amount>",
			Short: "Record the amount saved towards a goal",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				progress, err := parseAmountArg(args[1])
				if err != nil {
					return err
				}
				return a.withRepo(cmd.Context(), func(ctx context.Context, repo *storage.SQLiteRepository) error {
					g, err := repo.SetGoalProgress(ctx, args[0], progress)
					if err != nil {
						return err
					}
					fmt.Fprintf(a.out, "Goal %q at %s of %s (%.1f%%)\n", g.Name,
						core.FormatMoney(g.CurrentProgress), core.FormatMoney(g.TargetAmount), g.Percent())
					return nil
				})
			},
		},
	)
	return cmd
}

func (a *app) printGoalRow(w io.Writer, g core.Goal) {
	updated := "-"
	if !g.LastUpdated.IsZero() {
		updated = g.LastUpdated.Format(core.TimestampLayout)
	}
	done := fmt.Sprintf("%.1f%%", g.Percent())
	if g.Percent() >= 100 {
		done = a.paint(ansiGreen, done)
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", g.Name,
		core.FormatMoney(g.TargetAmount), core.FormatMoney(g.CurrentProgress), done, updated)
}

// parseAmountArg accepts the same amount spellings as imports, e.g. "$1,500".
func parseAmountArg(raw string) (float64, error) {
	d, err := core.ParseAmount(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q", core.ErrInvalidGoal, raw)
	}
	v, _ := d.Float64()
	return v, nil
}
