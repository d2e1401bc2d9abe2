package timetable

import (
	"sort"
	"strings"
	"time"

	"github.com/caseworks/appeal-engine/internal/domain/calendar"
	"github.com/caseworks/appeal-engine/internal/infrastructure/monitoring/logging"
	"github.com/caseworks/appeal-engine/pkg/errors"
)

// Engine computes statutory timetables from the rule table.  All date
// arithmetic routes through the business calendar so every due date lands on
// a business day.  The engine is pure over its inputs: the same case facts
// and holiday set always yield the same timetable.
type Engine struct {
	cal    *calendar.Calendar
	logger logging.Logger
}

// NewEngine constructs a timetable Engine over the given calendar.
func NewEngine(cal *calendar.Calendar, logger logging.Logger) *Engine {
	return &Engine{
		cal:    cal,
		logger: logger.Named("timetable"),
	}
}

// ComputeInitial produces the full timetable for a case that has just
// started: one due date per rule owed by (appealType, procedure), each offset
// from startedAt in business days.
func (e *Engine) ComputeInitial(appealType AppealType, procedure ProcedureType, startedAt time.Time, hasObligation bool) (Timetable, error) {
	rules, err := Rules(appealType, procedure)
	if err != nil {
		return nil, err
	}

	tt := make(Timetable, len(rules))
	for _, r := range rules {
		if r.RequiresObligation && !hasObligation {
			continue
		}
		tt[r.Field] = e.cal.AddBusinessDays(startedAt, r.OffsetDays)
	}

	e.logger.Debug("computed initial timetable",
		logging.String("appeal_type", string(appealType)),
		logging.String("procedure", string(procedure)),
		logging.Int("fields", len(tt)))
	return tt, nil
}

// RecomputeInput carries everything a procedure-change recomputation needs.
type RecomputeInput struct {
	AppealType    AppealType
	NewProcedure  ProcedureType
	StartedAt     time.Time
	HasObligation bool

	// Existing is the case's current timetable.  Fields still required under
	// the new procedure keep their existing dates unless overridden.
	Existing Timetable

	// Overrides supplies caller-chosen dates.  An override wins over an
	// existing date for the same field.  Each override is normalised onto the
	// next business day on or after the supplied date.
	Overrides map[Field]time.Time

	// RequireOverrides, when set, makes a newly required field with no
	// override an error instead of falling back to the start-date offset.
	// Procedure changes driven by a caseworker set this so the missing input
	// is surfaced before anything persists.
	RequireOverrides bool
}

// Recompute rebuilds a timetable after a procedure change.  An override wins
// for any required field; fields required under both procedures otherwise
// keep their existing dates; fields no longer required are dropped; remaining
// newly required fields take the standard offset from the start date when
// overrides are not mandatory.  Recompute is idempotent: applying it twice
// with the same input yields the same result.
func (e *Engine) Recompute(in RecomputeInput) (Timetable, error) {
	rules, err := Rules(in.AppealType, in.NewProcedure)
	if err != nil {
		return nil, err
	}

	tt := make(Timetable, len(rules))
	var missing []string
	for _, r := range rules {
		if r.RequiresObligation && !in.HasObligation {
			continue
		}
		if override, ok := in.Overrides[r.Field]; ok {
			tt[r.Field] = e.cal.NextBusinessDayOnOrAfter(override)
			continue
		}
		if existing, ok := in.Existing[r.Field]; ok {
			tt[r.Field] = calendar.DateOnly(existing)
			continue
		}
		if in.RequireOverrides {
			missing = append(missing, string(r.Field))
			continue
		}
		tt[r.Field] = e.cal.AddBusinessDays(in.StartedAt, r.OffsetDays)
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, errors.MissingDueDateInput("procedure change requires due dates for: " + strings.Join(missing, ", "))
	}

	e.logger.Debug("recomputed timetable",
		logging.String("appeal_type", string(in.AppealType)),
		logging.String("new_procedure", string(in.NewProcedure)),
		logging.Int("fields", len(tt)))
	return tt, nil
}

// ResubmissionDueDate computes how long an invalid appeal has to be corrected
// and resubmitted, offset from the date the resubmission was requested rather
// than the case start date.
func (e *Engine) ResubmissionDueDate(requestedAt time.Time) time.Time {
	return e.cal.AddBusinessDays(requestedAt, offsetResubmission)
}
