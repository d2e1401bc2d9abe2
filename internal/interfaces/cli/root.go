// Package cli implements the caseworkctl command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caseworks/appeal-engine/internal/application/orchestrator"
	"github.com/caseworks/appeal-engine/internal/config"
	"github.com/caseworks/appeal-engine/internal/domain/calendar"
	"github.com/caseworks/appeal-engine/internal/domain/timetable"
	"github.com/caseworks/appeal-engine/internal/infrastructure/database/postgres"
	"github.com/caseworks/appeal-engine/internal/infrastructure/database/postgres/repositories"
	"github.com/caseworks/appeal-engine/internal/infrastructure/monitoring/logging"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	JSONOutput bool
}

// CLIContext carries initialised dependencies through the command tree.
type CLIContext struct {
	Config     *config.Config
	Logger     logging.Logger
	JSONOutput bool
}

type cliContextKey struct{}

// NewRootCommand creates the root cobra command with global flags and all
// subcommands attached.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "caseworkctl",
		Short:   "Operate the planning appeal lifecycle engine",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initContext(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (CASEWORK_* env vars when omitted)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.BoolVar(&opts.JSONOutput, "json", false, "print results as JSON")

	cmd.AddCommand(
		newApplyCommand(),
		newTimetableCommand(),
		newHolidaysCommand(),
		newMigrateCommand(),
	)
	return cmd
}

func initContext(cmd *cobra.Command, opts *RootOptions) error {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:  opts.LogLevel,
		Format: "console",
	})
	if err != nil {
		return err
	}

	cliCtx := &CLIContext{Config: cfg, Logger: logger, JSONOutput: opts.JSONOutput}
	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cliCtx))
	return nil
}

// getCLIContext extracts the CLIContext placed by the root pre-run hook.
func getCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	cliCtx, ok := cmd.Context().Value(cliContextKey{}).(*CLIContext)
	if !ok {
		return nil, fmt.Errorf("cli context not initialised")
	}
	return cliCtx, nil
}

// buildOrchestrator wires a database-backed orchestrator for one-shot CLI
// invocations.  The returned cleanup closes the pool.
func buildOrchestrator(ctx context.Context, cliCtx *CLIContext) (*orchestrator.Orchestrator, func(), error) {
	conn, err := postgres.NewConnection(ctx, cliCtx.Config.Database, cliCtx.Logger)
	if err != nil {
		return nil, nil, err
	}

	cal := calendar.New(calendar.Jurisdiction(cliCtx.Config.Calendar.Jurisdiction), nil)
	if err := primeCalendar(ctx, cliCtx, cal); err != nil {
		conn.Close()
		return nil, nil, err
	}

	engine := timetable.NewEngine(cal, cliCtx.Logger)
	repo := repositories.NewCaseRepository(conn.Pool(), cliCtx.Logger)
	obligations := repositories.NewObligationRepository(conn.Pool())

	orc := orchestrator.New(repo, engine, obligations, cliCtx.Logger, nil, nil)
	return orc, conn.Close, nil
}

// primeCalendar loads the holiday set from the configured source once.
func primeCalendar(ctx context.Context, cliCtx *CLIContext, cal *calendar.Calendar) error {
	src := holidaySource(cliCtx.Config.Calendar)
	holidays, err := src.Holidays(ctx, cal.Jurisdiction())
	if err != nil {
		return err
	}
	cal.SetHolidays(holidays)
	return nil
}

func holidaySource(cfg config.CalendarConfig) calendar.HolidaySource {
	if cfg.FilePath != "" {
		return calendar.NewFileSource(cfg.FilePath)
	}
	return calendar.NewFeedSource(cfg.FeedURL, nil)
}

// printResult writes v as JSON or falls back to fmt's default formatting.
func printResult(cmd *cobra.Command, cliCtx *CLIContext, v interface{}) error {
	if cliCtx.JSONOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", v)
	return err
}

// Execute runs the root command.  Called from main.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
