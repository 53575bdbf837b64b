package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"fintrack/internal/storage"

	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every transaction as CSV",
		Long:  "Write the full ledger, newest first, to a file or to stdout when --output is -.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withRepo(cmd.Context(), func(ctx context.Context, repo *storage.SQLiteRepository) error {
				if output == "-" {
					_, err := repo.ExportCSV(ctx, a.out)
					return err
				}
				return exportToFile(ctx, a, repo, output)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "transactions_export.csv", "Destination file, - for stdout.")
	return cmd
}

// exportToFile writes to a temporary file first so a failed export never leaves a truncated file behind.
func exportToFile(ctx context.Context, a *app, repo *storage.SQLiteRepository, path string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.csv")
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	n, err := repo.ExportCSV(ctx, tmp)
	if err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	fmt.Fprintf(a.out, "Exported %d transactions to %s\n", n, path)
	return nil
}
