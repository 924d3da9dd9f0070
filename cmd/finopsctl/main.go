// cmd/finopsctl/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ammerola/finops-console/internal/adapters/fixtures"
	"github.com/ammerola/finops-console/internal/pkg/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "finopsctl",
		Short: "Browse, export and triage FinOps views from the terminal",
		Long: `finopsctl serves the same views as the HTTP API from local fixtures.

Recommendation status changes and the last opened menu are kept in a local
SQLite file so they survive between runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", config.DefaultConsolePath(), "Console settings file (created on first run)")
	pf.StringVar(&a.dbPath, "db", "", "SQLite file for resolutions and preferences (overrides db_path)")
	pf.StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	pf.StringVar(&a.logPath, "log-file", "", "Also append JSON logs to this file")
	pf.IntVar(&a.queries, "queries", fixtures.DefaultQueryCount, "Number of synthetic queries to generate")
	pf.Uint64Var(&a.seed, "seed", 42, "Seed of the synthetic query generator")

	root.AddCommand(
		newViewsCmd(a),
		newListCmd(a),
		newExportCmd(a),
		newTransitionCmd(a, "resolve", "Mark an open recommendation as resolved", resolve),
		newTransitionCmd(a, "dismiss", "Dismiss an open recommendation", dismiss),
		newTransitionCmd(a, "reopen", "Reopen a resolved or dismissed recommendation", reopen),
		newBrowseCmd(a),
	)
	return root
}

// run wraps a command body so it executes against an open app
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.open(cmd.Context(), cmd.ErrOrStderr()); err != nil {
			return err
		}
		defer a.close()
		return fn(cmd, args)
	}
}
