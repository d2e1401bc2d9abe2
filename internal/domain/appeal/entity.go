// Package appeal holds the appeal case aggregate and its status state
// machine.  The case status field is unexported: the only way to move a case
// between statuses is the Transition method, which consults the edge table.
package appeal

import (
	"time"

	"github.com/caseworks/appeal-engine/internal/domain/calendar"
	"github.com/caseworks/appeal-engine/internal/domain/timetable"
	"github.com/caseworks/appeal-engine/pkg/types/common"
)

// Status is a node of the case status state machine.
type Status string

const (
	StatusAssignCaseOfficer  Status = "assign_case_officer"
	StatusValidation         Status = "validation"
	StatusReadyToStart       Status = "ready_to_start"
	StatusLPAQuestionnaire   Status = "lpa_questionnaire"
	StatusStatements         Status = "statements"
	StatusFinalComments      Status = "final_comments"
	StatusEvent              Status = "event"
	StatusIssueDetermination Status = "issue_determination"
	StatusComplete           Status = "complete"
	StatusInvalid            Status = "invalid"
	StatusWithdrawn          Status = "withdrawn"
	StatusAwaitingTransfer   Status = "awaiting_transfer"
	StatusTransferred        Status = "transferred"
	StatusClosed             Status = "closed"
)

// terminalStatuses are absorbing: no edge leaves them.
var terminalStatuses = map[Status]struct{}{
	StatusComplete:    {},
	StatusInvalid:     {},
	StatusWithdrawn:   {},
	StatusTransferred: {},
	StatusClosed:      {},
}

// IsTerminal reports whether s is an absorbing status.
func (s Status) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

func (s Status) String() string { return string(s) }

// EventKind distinguishes the two kinds of scheduled case event.
type EventKind string

const (
	EventKindHearing EventKind = "hearing"
	EventKindInquiry EventKind = "inquiry"
)

// Address is the venue of a hearing or inquiry, owned 1:1 by its CaseEvent.
type Address struct {
	Line1    string
	Line2    string
	Town     string
	County   string
	Postcode string
}

// CaseEvent is a scheduled hearing or inquiry.  One exists only while the
// case procedure matches its kind; a procedure change away deletes it along
// with its address.
type CaseEvent struct {
	ID            common.ID
	Kind          EventKind
	StartTime     time.Time
	EndTime       time.Time
	EstimatedDays int
	Address       *Address
}

// AppealCase is the aggregate root.  All fields except status may be read
// and written by the application layer; status moves only via Transition.
type AppealCase struct {
	ID            common.ID
	Reference     string
	AppealType    timetable.AppealType
	ProcedureType timetable.ProcedureType
	Jurisdiction  calendar.Jurisdiction

	status  Status
	Version int64

	// CaseStartedAt anchors the statutory timetable.  Nil until the case is
	// started.
	CaseStartedAt         *time.Time
	HasPlanningObligation bool

	AppellantEmail string
	LPAEmail       string

	Timetable timetable.Timetable
	Event     *CaseEvent

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCase constructs a fresh appeal case awaiting officer assignment.
func NewCase(reference string, appealType timetable.AppealType, procedure timetable.ProcedureType, jurisdiction calendar.Jurisdiction, now time.Time) *AppealCase {
	return &AppealCase{
		ID:            common.NewID(),
		Reference:     reference,
		AppealType:    appealType,
		ProcedureType: procedure,
		Jurisdiction:  jurisdiction,
		status:        StatusAssignCaseOfficer,
		Version:       1,
		Timetable:     timetable.Timetable{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Rehydrate restores a persisted case including its status.  For repository
// use only; application code never sets status directly.
func Rehydrate(c AppealCase, status Status) *AppealCase {
	c.status = status
	return &c
}

// Status returns the case's current lifecycle status.
func (c *AppealCase) Status() Status { return c.status }

// Started reports whether the case has a start date.
func (c *AppealCase) Started() bool { return c.CaseStartedAt != nil }
