// Package main implements the coffee command line: logging cups, browsing the
// history and printing statistics.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"coffee/internal/cli"
	"coffee/internal/config"
	"coffee/internal/log"
	"coffee/internal/services"
)

// app holds what every subcommand needs once the root command has run.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	svc     *services.RecordService
	ctx     context.Context
	release context.CancelFunc
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "coffee",
		Short:         "Track coffee consumption",
		Long:          "Log espresso and filter coffee, and see how much you drink and spend.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	root.AddCommand(
		newAddCmd(a),
		newListCmd(a),
		newDayCmd(a),
		newDeleteCmd(a),
		newStatsCmd(a),
		newTypesCmd(a),
		newChartCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newDefaultsCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cli.LoadEnvFile()

	bootstrap := log.New(log.DefaultConfig())
	a.cfg = cli.LoadAndValidateConfig(bootstrap)
	a.logger = cli.SetupLogger(a.cfg)

	a.ctx, a.release = cli.ShutdownContext(a.logger)
	cmd.SetContext(a.ctx)

	store := cli.InitStore(a.ctx, a.logger, a.cfg)
	prefs := cli.InitPrefs(a.logger, a.cfg)

	a.svc = services.NewRecordService(store, prefs,
		services.WithLocation(a.cfg.Location()),
		services.WithLogger(a.logger.WithComponent(log.ComponentRecords).Slog()))

	a.logger.Debug("Coffee store ready",
		log.FieldPath, a.cfg.DBPath,
		log.FieldOperation, log.OpStartup)
	return nil
}

func (a *app) close() error {
	if a.release != nil {
		defer a.release()
	}
	if a.svc == nil {
		return nil
	}
	if err := a.svc.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// run executes the command line and closes the store whether or not the
// command succeeded.
func run(args []string, stdout io.Writer) error {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	return errors.Join(root.Execute(), a.close())
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
