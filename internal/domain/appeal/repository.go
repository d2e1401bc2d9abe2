package appeal

import (
	"context"
	"time"

	"github.com/caseworks/appeal-engine/internal/domain/timetable"
	"github.com/caseworks/appeal-engine/pkg/types/common"
)

// TransitionDelta is everything a committed transition writes, applied in a
// single transaction alongside the status update and version bump.  Nil or
// zero members mean "unchanged".
type TransitionDelta struct {
	NewStatus Status

	// Timetable, when non-nil, replaces the stored timetable in full.  Fields
	// absent from the map are deleted from the store, never left behind.
	Timetable timetable.Timetable

	// UpsertEvent creates or replaces the scheduled hearing/inquiry and its
	// address.  Mutually exclusive with DeleteEvent and ClearEventAddress.
	UpsertEvent *CaseEvent

	// DeleteEvent removes the scheduled hearing/inquiry and its address.
	DeleteEvent bool

	// ClearEventAddress removes only the event's address row, keeping the
	// event itself.
	ClearEventAddress bool

	// CaseStartedAt and ProcedureType update the corresponding case columns
	// when non-nil.
	CaseStartedAt *time.Time
	ProcedureType *timetable.ProcedureType
}

// CaseRepository is the persistence contract for appeal cases.  The
// postgres implementation lives in internal/infrastructure/database/postgres.
type CaseRepository interface {
	// LoadCase fetches the full case aggregate.  Returns an
	// ErrCodeCaseNotFound error when no case has the given id.
	LoadCase(ctx context.Context, id common.ID) (*AppealCase, error)

	// SaveCaseTransition applies the delta atomically, guarded by an
	// optimistic version check: if the stored version differs from
	// expectedVersion nothing is written and an ErrCodeConcurrencyConflict
	// error is returned.  Store failures map to ErrCodePersistence and
	// guarantee nothing was committed.
	SaveCaseTransition(ctx context.Context, id common.ID, expectedVersion int64, delta TransitionDelta) error

	// CreateCase inserts a new case aggregate.
	CreateCase(ctx context.Context, c *AppealCase) error
}

// ObligationSource supplies the planning-obligation flag the rule table
// consults.  Backed by the appellant-case record.
type ObligationSource interface {
	HasPlanningObligation(ctx context.Context, caseID common.ID) (bool, error)
}
