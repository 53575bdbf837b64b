package main

import (
	"context"
	"io"
	"os"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/storage"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// app carries what every command needs once the root pre-run has loaded configuration.
type app struct {
	out, errOut io.Writer

	configPath string
	envFile    string
	noColor    bool

	cfg    *config.Config
	logger *log.Logger
	color  bool
	width  int
}

const defaultWidth = 100

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut, width: defaultWidth}

	root := &cobra.Command{
		Use:           "fintrack",
		Short:         "Personal finance tracker backed by SQLite",
		Long:          "fintrack imports bank CSV exports or Google Sheets into a local SQLite ledger\nand reports income, expenses and savings goals.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (toml, yaml or json).")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Dotenv file loaded before the environment is read.")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output.")

	root.AddCommand(
		newInitCmd(a),
		newImportCmd(a),
		newSummaryCmd(a),
		newTrendsCmd(a),
		newCategoriesCmd(a),
		newListCmd(a),
		newExportCmd(a),
		newGoalsCmd(a),
		newViewCmd(a),
		newResetCmd(a),
		newServeCmd(a),
	)

	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		cc.Init(&cc.Config{
			RootCmd:  root,
			Headings: cc.HiCyan + cc.Bold + cc.Underline,
			Commands: cc.HiYellow + cc.Bold,
			Example:  cc.Italic,
			ExecName: cc.Bold,
			Flags:    cc.Bold,
		})
	}
	return root
}

func (a *app) setup() error {
	if err := cli.LoadEnvFile(a.envFile); err != nil {
		return err
	}
	cfg, err := cli.LoadAndValidateConfig(a.configPath)
	if err != nil {
		return err
	}
	logger, err := cli.SetupLogger(cfg, a.errOut)
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger

	if f, ok := a.out.(*os.File); ok {
		fd := f.Fd()
		a.color = !a.noColor && os.Getenv("NO_COLOR") == "" && isatty.IsTerminal(fd)
		if term.IsTerminal(int(fd)) {
			if w, _, err := term.GetSize(int(fd)); err == nil && w > 0 {
				a.width = w
			}
		}
	}
	return nil
}

// withRepo opens an existing store, runs fn and closes the store on every path.
func (a *app) withRepo(ctx context.Context, fn func(context.Context, *storage.SQLiteRepository) error) error {
	repo, err := cli.OpenRepository(a.cfg, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			a.logger.Warn("Closing store failed", log.FieldError, err.Error())
		}
	}()
	return fn(ctx, repo)
}
