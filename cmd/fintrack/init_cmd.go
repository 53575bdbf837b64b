package main

import (
	"context"
	"fmt"

	"fintrack/internal/cli"
	"fintrack/internal/storage"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	var sample bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the ledger tables",
		Long:  "Create the transactions and goals tables if they do not exist.\nRunning it again is harmless.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := cli.OpenRepository(a.cfg, false)
			if err != nil {
				return err
			}
			defer repo.Close()
			return runInit(cmd.Context(), a, repo, sample)
		},
	}
	cmd.Flags().BoolVar(&sample, "sample", false, "Seed example rows into empty tables.")
	return cmd
}

func runInit(ctx context.Context, a *app, repo *storage.SQLiteRepository, sample bool) error {
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}
	if sample {
		if err := repo.SeedSample(ctx); err != nil {
			return err
		}
	}
	fmt.Fprintf(a.out, "Ledger ready at %s\n", repo.Path())
	return nil
}
