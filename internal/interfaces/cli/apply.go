package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/caseworks/appeal-engine/internal/application/orchestrator"
	"github.com/caseworks/appeal-engine/internal/domain/appeal"
	"github.com/caseworks/appeal-engine/internal/domain/timetable"
	"github.com/caseworks/appeal-engine/pkg/types/common"
)

const dateLayout = "2006-01-02"

type applyOptions struct {
	actor      string
	started    string
	procedure  string
	overrides  []string
	eventKind  string
	eventStart string
	eventEnd   string
	eventDays  int
}

func newApplyCommand() *cobra.Command {
	opts := &applyOptions{}

	cmd := &cobra.Command{
		Use:   "apply <case-id> <event>",
		Short: "Apply a lifecycle event to an appeal case",
		Long: `Apply attempts one state-machine transition against a case, recomputing
the statutory timetable when the event requires it.  Rejected transitions
report why; nothing is written on rejection.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.actor, "actor", "", "actor id recorded in the audit trail (required)")
	f.StringVar(&opts.started, "started", "", "case start date (YYYY-MM-DD) for start-flavoured events")
	f.StringVar(&opts.procedure, "procedure", "", "new procedure type for CHANGE_PROCEDURE_TYPE")
	f.StringArrayVar(&opts.overrides, "override", nil, "due-date override as field=YYYY-MM-DD (repeatable)")
	f.StringVar(&opts.eventKind, "event-kind", "", "hearing or inquiry for EVENT_SET_UP (defaults to the case procedure)")
	f.StringVar(&opts.eventStart, "event-start", "", "event start time (RFC 3339) for EVENT_SET_UP or a rearrangement")
	f.StringVar(&opts.eventEnd, "event-end", "", "event end time (RFC 3339)")
	f.IntVar(&opts.eventDays, "event-days", 0, "estimated sitting days for the event")
	_ = cmd.MarkFlagRequired("actor")

	return cmd
}

func runApply(cmd *cobra.Command, args []string, opts *applyOptions) error {
	cliCtx, err := getCLIContext(cmd)
	if err != nil {
		return err
	}

	req := orchestrator.Request{
		CaseID:  common.ID(args[0]),
		Event:   appeal.Event(strings.ToUpper(args[1])),
		ActorID: common.ActorID(opts.actor),
	}
	if err := req.CaseID.Validate(); err != nil {
		return err
	}

	if opts.started != "" {
		started, err := time.Parse(dateLayout, opts.started)
		if err != nil {
			return fmt.Errorf("invalid --started date %q: %w", opts.started, err)
		}
		req.Payload.CaseStartedAt = &started
	}
	if opts.procedure != "" {
		proc := timetable.ProcedureType(opts.procedure)
		req.Payload.NewProcedureType = &proc
	}
	if len(opts.overrides) > 0 {
		req.Payload.DueDateOverrides, err = parseOverrides(opts.overrides)
		if err != nil {
			return err
		}
	}
	if opts.eventStart != "" {
		details := &orchestrator.EventDetails{
			Kind:          appeal.EventKind(opts.eventKind),
			EstimatedDays: opts.eventDays,
		}
		details.StartTime, err = time.Parse(time.RFC3339, opts.eventStart)
		if err != nil {
			return fmt.Errorf("invalid --event-start time %q: %w", opts.eventStart, err)
		}
		if opts.eventEnd != "" {
			details.EndTime, err = time.Parse(time.RFC3339, opts.eventEnd)
			if err != nil {
				return fmt.Errorf("invalid --event-end time %q: %w", opts.eventEnd, err)
			}
		}
		req.Payload.Event = details
	}

	orc, cleanup, err := buildOrchestrator(cmd.Context(), cliCtx)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := orc.Apply(cmd.Context(), req)
	if err != nil {
		return err
	}

	return printResult(cmd, cliCtx, struct {
		From         appeal.Status       `json:"from"`
		To           appeal.Status       `json:"to"`
		Timetable    timetable.Timetable `json:"timetable,omitempty"`
		EventDeleted bool                `json:"event_deleted"`
		SideEffects  int                 `json:"side_effects"`
	}{out.From, out.To, out.Timetable, out.EventDeleted, len(out.SideEffects)})
}

func parseOverrides(raw []string) (map[timetable.Field]time.Time, error) {
	out := make(map[timetable.Field]time.Time, len(raw))
	for _, entry := range raw {
		field, value, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid override %q, expected field=YYYY-MM-DD", entry)
		}
		d, err := time.Parse(dateLayout, value)
		if err != nil {
			return nil, fmt.Errorf("invalid override date in %q: %w", entry, err)
		}
		out[timetable.Field(field)] = d
	}
	return out, nil
}
