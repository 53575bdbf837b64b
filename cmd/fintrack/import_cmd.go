package main

import (
	"fmt"
	"strings"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/ingest"
	"fintrack/internal/log"
	"fintrack/internal/services"

	"github.com/spf13/cobra"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		dryRun     bool
		sourceType string
	)
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import transactions from a CSV file or Google Sheet",
		Long: "Read rows from the configured source, normalize them and insert them as one batch.\n" +
			"Rows that cannot be normalized are reported and skipped. Either every valid row\n" +
			"is stored or none is.",
		Example: "  fintrack import bank.csv\n  fintrack import --source sheets\n  fintrack import bank.csv --dry-run",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var path string
			if len(args) == 1 {
				path = args[0]
			}

			bcfg, err := backend.FromAppConfig(a.cfg, sourceType, path)
			if err != nil {
				return err
			}
			factory := backend.NewFactory(a.logger)
			src, err := factory.CreateSource(ctx, bcfg)
			if err != nil {
				return err
			}

			// A dry run never touches the store, so a wrong location cannot create an empty ledger.
			var (
				importer  services.Importer
				publisher services.EventPublisher
			)
			if !dryRun {
				repo, err := cli.OpenRepository(a.cfg, false)
				if err != nil {
					return err
				}
				defer repo.Close()
				if err := repo.EnsureSchema(ctx); err != nil {
					return err
				}
				importer = repo

				p, cleanup := factory.CreatePublisher(bcfg)
				defer func() {
					if err := cleanup(); err != nil {
						a.logger.Warn("Closing AMQP publisher failed", log.FieldError, err.Error())
					}
				}()
				publisher = p
			}

			svc := services.NewImportService(ingest.New(a.cfg.Ingest, a.logger), importer, publisher, a.logger)
			report, err := svc.Import(ctx, src, dryRun)
			if err != nil {
				return err
			}
			a.printReport(report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Normalize and report without writing.")
	cmd.Flags().StringVar(&sourceType, "source", "", "Source type: csv or sheets (default from config).")
	return cmd
}

func (a *app) printReport(r services.ImportReport) {
	w := a.table()
	fmt.Fprintf(w, "Source\t%s\n", r.Source)
	fmt.Fprintf(w, "Batch\t%s\n", r.BatchID)
	fmt.Fprintf(w, "Rows read\t%d\n", r.RowsRead)
	fmt.Fprintf(w, "Normalized\t%d\n", r.Normalized)
	fmt.Fprintf(w, "Skipped\t%d\n", r.Skipped)
	if r.DryRun {
		fmt.Fprintf(w, "Inserted\t%s\n", a.paint(ansiBold, "dry run, nothing written"))
	} else {
		fmt.Fprintf(w, "Inserted\t%d\n", r.Inserted)
	}
	fmt.Fprintf(w, "Took\t%s\n", log.HumanDuration(r.Duration))
	_ = w.Flush()

	if len(r.Diagnostics) == 0 {
		return
	}
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, a.paint(ansiBold, "Skipped rows:"))
	for _, d := range r.Diagnostics {
		fmt.Fprintln(a.out, "  "+strings.TrimSpace(d.Error()))
	}
}
