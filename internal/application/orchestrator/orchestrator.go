// Package orchestrator is the single entry point for mutating an appeal
// case.  Every use case (validation outcomes, procedure changes, event
// cancellation, transfers, withdrawal) goes through Apply, which validates
// the requested event against the state machine, recomputes the timetable
// when relevant, persists the whole transition atomically, and returns the
// intended side effects as data.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/caseworks/appeal-engine/internal/domain/appeal"
	"github.com/caseworks/appeal-engine/internal/domain/timetable"
	"github.com/caseworks/appeal-engine/internal/infrastructure/monitoring/logging"
	"github.com/caseworks/appeal-engine/pkg/errors"
	"github.com/caseworks/appeal-engine/pkg/types/common"
)

// Clock supplies "now".  Injected so guard evaluation and audit timestamps
// are deterministic in tests.
type Clock func() time.Time

// Metrics is the observability hook the orchestrator reports through.  The
// prometheus implementation lives in internal/infrastructure/monitoring.
type Metrics interface {
	ObserveApply(event string, outcome string, elapsed time.Duration)
	IncConflict()
}

type nopMetrics struct{}

func (nopMetrics) ObserveApply(string, string, time.Duration) {}
func (nopMetrics) IncConflict()                               {}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return nopMetrics{} }

// Payload carries the event-specific inputs a transition may need.  Fields
// irrelevant to the requested event are ignored.
type Payload struct {
	// CaseStartedAt supplies the timetable anchor for start-flavoured events
	// when the case does not already carry one.
	CaseStartedAt *time.Time

	// NewProcedureType is required for CHANGE_PROCEDURE_TYPE.
	NewProcedureType *timetable.ProcedureType

	// DueDateOverrides supplies caller-chosen dates for fields newly
	// required by a procedure change.
	DueDateOverrides map[timetable.Field]time.Time

	// Event supplies the hearing/inquiry details for EVENT_SET_UP, and for a
	// rearrangement while the case sits in the event stage.
	Event *EventDetails
}

// EventDetails describes a hearing or inquiry being scheduled or rearranged.
type EventDetails struct {
	Kind          appeal.EventKind
	StartTime     time.Time
	EndTime       time.Time
	EstimatedDays int
	Address       *appeal.Address
}

// Request is one transition attempt against one case.  Ephemeral: consumed
// once by Apply, never stored.
type Request struct {
	CaseID  common.ID
	Event   appeal.Event
	ActorID common.ActorID
	Payload Payload
}

// Outcome reports a committed transition back to the caller.  SideEffects
// are intentions, not completed actions; hand them to an Executor.
type Outcome struct {
	CaseID       common.ID
	From         appeal.Status
	To           appeal.Status
	Timetable    timetable.Timetable
	EventDeleted bool
	SideEffects  []SideEffect
}

// Orchestrator wires the state machine, timetable engine, and repository
// into the apply contract.  Stateless across calls; safe for concurrent use.
type Orchestrator struct {
	repo        appeal.CaseRepository
	engine      *timetable.Engine
	obligations appeal.ObligationSource
	logger      logging.Logger
	metrics     Metrics
	now         Clock
}

// New constructs an Orchestrator.  metrics may be nil; now defaults to
// time.Now in UTC.
func New(repo appeal.CaseRepository, engine *timetable.Engine, obligations appeal.ObligationSource, logger logging.Logger, metrics Metrics, now Clock) *Orchestrator {
	if metrics == nil {
		metrics = NopMetrics()
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Orchestrator{
		repo:        repo,
		engine:      engine,
		obligations: obligations,
		logger:      logger.Named("orchestrator"),
		metrics:     metrics,
		now:         now,
	}
}

// Apply attempts one transition.  Guard and input failures return before any
// persistence; a concurrency conflict or store failure commits nothing.  A
// nil error means the transition is durable and the caller should dispatch
// the returned side effects.
func (o *Orchestrator) Apply(ctx context.Context, req Request) (*Outcome, error) {
	begin := o.now()
	out, err := o.apply(ctx, req, begin)

	elapsed := o.now().Sub(begin)
	outcome := "success"
	if err != nil {
		outcome = string(errors.GetCode(err))
		if errors.IsConflict(err) {
			o.metrics.IncConflict()
		}
	}
	o.metrics.ObserveApply(string(req.Event), outcome, elapsed)
	return out, err
}

func (o *Orchestrator) apply(ctx context.Context, req Request, now time.Time) (*Outcome, error) {
	c, err := o.repo.LoadCase(ctx, req.CaseID)
	if err != nil {
		return nil, err
	}
	from := c.Status()

	if err := o.prepareStart(ctx, c, req); err != nil {
		return nil, err
	}

	target, err := c.Peek(req.Event, now)
	if err != nil {
		o.logger.Info("transition rejected",
			logging.String("case_id", req.CaseID.String()),
			logging.String("event", string(req.Event)),
			logging.String("status", string(from)),
			logging.Err(err))
		return nil, err
	}

	delta := appeal.TransitionDelta{NewStatus: target}
	eventDeleted := false

	switch req.Event {
	case appeal.EventValidationOutcomeComplete, appeal.EventStartCase:
		tt, err := o.initialTimetable(ctx, c)
		if err != nil {
			return nil, err
		}
		delta.Timetable = tt
		delta.CaseStartedAt = c.CaseStartedAt

	case appeal.EventChangeProcedureType:
		if req.Payload.NewProcedureType == nil {
			return nil, errors.InvalidParam("procedure change requires a new procedure type")
		}
		newProc := *req.Payload.NewProcedureType
		if newProc == c.ProcedureType {
			return nil, errors.InvalidParam("case already uses the " + string(newProc) + " procedure")
		}
		tt, err := o.recomputeTimetable(ctx, c, newProc, req.Payload.DueDateOverrides)
		if err != nil {
			return nil, err
		}
		delta.Timetable = tt
		delta.ProcedureType = &newProc
		// Moving away from a scheduled hearing/inquiry removes it and its
		// address in the same transaction.
		if c.Event != nil {
			delta.DeleteEvent = true
			eventDeleted = true
		}

	case appeal.EventSetUp:
		ev, err := o.scheduledEvent(c, req.Payload.Event, now)
		if err != nil {
			return nil, err
		}
		delta.UpsertEvent = ev

	case appeal.EventCancel:
		delta.DeleteEvent = true
		eventDeleted = true

	case appeal.EventValidationOutcomeIncomplete:
		if req.Payload.Event != nil {
			ev, err := o.scheduledEvent(c, req.Payload.Event, now)
			if err != nil {
				return nil, err
			}
			// A rearrangement keeps the event's identity.
			ev.ID = c.Event.ID
			delta.UpsertEvent = ev
		} else {
			delta.ClearEventAddress = true
		}
	}

	if err := o.repo.SaveCaseTransition(ctx, c.ID, c.Version, delta); err != nil {
		return nil, err
	}

	// The in-memory aggregate mirrors what was just committed.
	cancelled := c.Event
	if _, err := c.Transition(req.Event, now); err != nil {
		// Peek succeeded above; a failure here means the snapshot changed
		// mid-flight, which the version check makes impossible.
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "transition diverged after commit")
	}
	if delta.Timetable != nil {
		c.Timetable = delta.Timetable
	}
	if delta.ProcedureType != nil {
		c.ProcedureType = *delta.ProcedureType
	}
	if delta.UpsertEvent != nil {
		c.Event = delta.UpsertEvent
	}
	if delta.DeleteEvent {
		c.Event = nil
	}

	o.logger.Info("transition committed",
		logging.String("case_id", c.ID.String()),
		logging.String("case_reference", c.Reference),
		logging.String("event", string(req.Event)),
		logging.String("from", string(from)),
		logging.String("to", string(target)))

	return &Outcome{
		CaseID:       c.ID,
		From:         from,
		To:           target,
		Timetable:    delta.Timetable,
		EventDeleted: eventDeleted,
		SideEffects:  o.sideEffects(c, from, target, req, cancelled, delta),
	}, nil
}

// prepareStart sets the case start date from the payload for start-flavoured
// events, before guards run.
func (o *Orchestrator) prepareStart(_ context.Context, c *appeal.AppealCase, req Request) error {
	switch req.Event {
	case appeal.EventValidationOutcomeComplete, appeal.EventStartCase:
		if c.CaseStartedAt == nil {
			if req.Payload.CaseStartedAt == nil {
				return errors.MissingDueDateInput("a case start date is required to compute the timetable")
			}
			started := req.Payload.CaseStartedAt.UTC()
			c.CaseStartedAt = &started
		}
	}
	return nil
}

// scheduledEvent validates the payload event details against the case
// procedure and builds the record to persist.
func (o *Orchestrator) scheduledEvent(c *appeal.AppealCase, in *EventDetails, now time.Time) (*appeal.CaseEvent, error) {
	if in == nil {
		return nil, errors.InvalidParam("event details are required to schedule a hearing or inquiry")
	}

	var want appeal.EventKind
	switch c.ProcedureType {
	case timetable.ProcedureHearing:
		want = appeal.EventKindHearing
	case timetable.ProcedureInquiry:
		want = appeal.EventKindInquiry
	default:
		return nil, errors.InvalidParam("cases under the " + string(c.ProcedureType) + " procedure take no hearing or inquiry")
	}
	kind := in.Kind
	if kind == "" {
		kind = want
	}
	if kind != want {
		return nil, errors.InvalidParam("a " + string(kind) + " cannot be scheduled on a " + string(c.ProcedureType) + " case")
	}

	if in.StartTime.IsZero() {
		return nil, errors.InvalidParam("an event start time is required")
	}
	if !in.StartTime.After(now) {
		return nil, errors.InvalidParam("the event start time must be in the future")
	}
	end := in.EndTime
	if end.IsZero() {
		end = in.StartTime
	}
	days := in.EstimatedDays
	if days <= 0 {
		days = 1
	}

	return &appeal.CaseEvent{
		ID:            common.NewID(),
		Kind:          kind,
		StartTime:     in.StartTime.UTC(),
		EndTime:       end.UTC(),
		EstimatedDays: days,
		Address:       in.Address,
	}, nil
}

func (o *Orchestrator) initialTimetable(ctx context.Context, c *appeal.AppealCase) (timetable.Timetable, error) {
	obligation, err := o.obligations.HasPlanningObligation(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return o.engine.ComputeInitial(c.AppealType, c.ProcedureType, *c.CaseStartedAt, obligation)
}

func (o *Orchestrator) recomputeTimetable(ctx context.Context, c *appeal.AppealCase, newProc timetable.ProcedureType, overrides map[timetable.Field]time.Time) (timetable.Timetable, error) {
	obligation, err := o.obligations.HasPlanningObligation(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if c.CaseStartedAt == nil {
		return nil, errors.MissingDueDateInput("case has no start date to recompute the timetable from")
	}
	return o.engine.Recompute(timetable.RecomputeInput{
		AppealType:       c.AppealType,
		NewProcedure:     newProc,
		StartedAt:        *c.CaseStartedAt,
		HasObligation:    obligation,
		Existing:         c.Timetable,
		Overrides:        overrides,
		RequireOverrides: true,
	})
}

// sideEffects builds the post-commit intentions for a transition.  Every
// transition gets an audit entry and a case broadcast; notifications depend
// on the event.
func (o *Orchestrator) sideEffects(c *appeal.AppealCase, from, to appeal.Status, req Request, cancelled *appeal.CaseEvent, delta appeal.TransitionDelta) []SideEffect {
	effects := []SideEffect{
		AuditEntry{
			CaseID:  c.ID,
			ActorID: req.ActorID,
			Message: fmt.Sprintf("case moved from %s to %s on %s", from, to, req.Event),
		},
		Broadcast{
			EntityID:   c.ID,
			EntityType: "appeal-case",
			ChangeKind: ChangeKindCaseUpdated,
			Payload:    appeal.NewCaseTransitioned(c, from, to, req.Event, req.ActorID),
		},
	}

	if delta.Timetable != nil {
		effects = append(effects, Broadcast{
			EntityID:   c.ID,
			EntityType: "timetable",
			ChangeKind: ChangeKindTimetableSet,
			Payload:    appeal.NewTimetableRecomputed(c),
		})
	}
	if delta.UpsertEvent != nil {
		effects = append(effects, Broadcast{
			EntityID:   delta.UpsertEvent.ID,
			EntityType: string(delta.UpsertEvent.Kind),
			ChangeKind: ChangeKindEventSet,
			Payload:    appeal.NewCaseEventScheduled(c, delta.UpsertEvent),
		})
	}
	if delta.DeleteEvent && cancelled != nil {
		effects = append(effects, Broadcast{
			EntityID:   cancelled.ID,
			EntityType: string(cancelled.Kind),
			ChangeKind: ChangeKindEventDeleted,
			Payload:    appeal.NewCaseEventCancelled(c, cancelled),
		})
	}

	if template := notificationTemplate(req.Event, to); template != "" {
		personalisation := map[string]string{
			"caseReference": c.Reference,
			"appealType":    string(c.AppealType),
		}
		for _, recipient := range []string{c.AppellantEmail, c.LPAEmail} {
			if recipient == "" {
				continue
			}
			effects = append(effects, Notification{
				TemplateName:    template,
				RecipientEmail:  recipient,
				Personalisation: personalisation,
			})
		}
	}
	return effects
}

func notificationTemplate(ev appeal.Event, to appeal.Status) string {
	switch ev {
	case appeal.EventValidationOutcomeComplete, appeal.EventStartCase:
		return TemplateCaseStarted
	case appeal.EventValidationOutcomeInvalid:
		return TemplateValidationInvalid
	case appeal.EventChangeProcedureType:
		return TemplateProcedureChanged
	case appeal.EventSetUp:
		return TemplateEventScheduled
	case appeal.EventCancel:
		return TemplateEventCancelled
	case appeal.EventWithdraw:
		return TemplateCaseWithdrawn
	case appeal.EventTransferred:
		return TemplateCaseTransferred
	case appeal.EventDecisionIssued:
		if to == appeal.StatusComplete {
			return TemplateDecisionIssued
		}
	}
	return ""
}
