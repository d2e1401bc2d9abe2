package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/caseworks/appeal-engine/internal/domain/calendar"
	"github.com/caseworks/appeal-engine/internal/domain/timetable"
)

type timetableOptions struct {
	started    string
	obligation bool
}

func newTimetableCommand() *cobra.Command {
	opts := &timetableOptions{}

	cmd := &cobra.Command{
		Use:   "timetable <appeal-type> <procedure>",
		Short: "Preview the statutory timetable for an appeal type and procedure",
		Long: `Timetable computes the due dates a case of the given type and procedure
would owe, without touching any case.  Useful for checking rule-table
changes and for answering "what would the deadlines be" questions.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTimetable(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.started, "started", "", "case start date, YYYY-MM-DD (required)")
	f.BoolVar(&opts.obligation, "obligation", false, "case has a planning obligation")
	_ = cmd.MarkFlagRequired("started")

	return cmd
}

func runTimetable(cmd *cobra.Command, args []string, opts *timetableOptions) error {
	cliCtx, err := getCLIContext(cmd)
	if err != nil {
		return err
	}

	started, err := time.Parse(dateLayout, opts.started)
	if err != nil {
		return fmt.Errorf("invalid --started date %q: %w", opts.started, err)
	}

	cal := calendar.New(calendar.Jurisdiction(cliCtx.Config.Calendar.Jurisdiction), nil)
	if err := primeCalendar(cmd.Context(), cliCtx, cal); err != nil {
		return err
	}

	engine := timetable.NewEngine(cal, cliCtx.Logger)
	tt, err := engine.ComputeInitial(
		timetable.AppealType(args[0]),
		timetable.ProcedureType(args[1]),
		started,
		opts.obligation)
	if err != nil {
		return err
	}

	if cliCtx.JSONOutput {
		return printResult(cmd, cliCtx, tt)
	}
	for _, field := range tt.Fields() {
		fmt.Fprintf(cmd.OutOrStdout(), "%-40s %s\n", field, tt[field].Format(dateLayout))
	}
	return nil
}
