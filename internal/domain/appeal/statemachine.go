package appeal

import (
	"time"

	"github.com/caseworks/appeal-engine/internal/domain/calendar"
	"github.com/caseworks/appeal-engine/internal/domain/timetable"
	"github.com/caseworks/appeal-engine/pkg/errors"
)

// Event is a named trigger that may move a case between statuses.
type Event string

const (
	EventCaseOfficerAssigned         Event = "CASE_OFFICER_ASSIGNED"
	EventValidationOutcomeComplete   Event = "VALIDATION_OUTCOME_COMPLETE"
	EventValidationOutcomeInvalid    Event = "VALIDATION_OUTCOME_INVALID"
	EventValidationOutcomeIncomplete Event = "VALIDATION_OUTCOME_INCOMPLETE"
	EventReadyToStart                Event = "READY_TO_START"
	EventStartCase                   Event = "START_CASE"
	EventQuestionnaireComplete       Event = "QUESTIONNAIRE_COMPLETE"
	EventStatementsComplete          Event = "STATEMENTS_COMPLETE"
	EventSetUp                       Event = "EVENT_SET_UP"
	EventConcluded                   Event = "EVENT_CONCLUDED"
	EventCancel                      Event = "CANCEL"
	EventFinalCommentsComplete       Event = "FINAL_COMMENTS_COMPLETE"
	EventDecisionIssued              Event = "DECISION_ISSUED"
	EventWithdraw                    Event = "WITHDRAW"
	EventAwaitingTransfer            Event = "AWAITING_TRANSFER"
	EventTransferred                 Event = "TRANSFERRED"
	EventChangeAppealType            Event = "CHANGE_APPEAL_TYPE"
	EventChangeProcedureType         Event = "CHANGE_PROCEDURE_TYPE"
)

type edgeKey struct {
	from  Status
	event Event
}

// guard rejects a transition before it happens.  Guards live on edges, not
// in callers, so every caller gets the same answer.
type guard func(c *AppealCase, now time.Time) error

// resolver computes a target status from the case snapshot when the target
// is not a fixed node.  Resolvers must be pure over (snapshot, now).
type resolver func(c *AppealCase, now time.Time) (Status, error)

type edge struct {
	target  Status
	resolve resolver
	guard   guard
}

// eventInFuture enables cancellation and rearrangement only while the
// scheduled hearing or inquiry has not begun.
func eventInFuture(c *AppealCase, now time.Time) error {
	if c.Event == nil {
		return errors.InvalidTransition("no hearing or inquiry is scheduled")
	}
	if !c.Event.StartTime.After(now) {
		return errors.InvalidTransition("event start time must be in the future")
	}
	return nil
}

// caseStarted guards edges that need the timetable anchor in place.
func caseStarted(c *AppealCase, _ time.Time) error {
	if !c.Started() {
		return errors.InvalidTransition("case has not been started")
	}
	return nil
}

// reopenedStage re-derives the stage a case returns to when its hearing or
// inquiry is cancelled: the questionnaire stage while its due date has not
// passed, otherwise statements.
func reopenedStage(c *AppealCase, now time.Time) (Status, error) {
	due, ok := c.Timetable[timetable.FieldLPAQuestionnaireDue]
	if ok && !calendar.DateOnly(now).After(calendar.DateOnly(due)) {
		return StatusLPAQuestionnaire, nil
	}
	if _, ok := c.Timetable[timetable.FieldLPAStatementDue]; ok {
		return StatusStatements, nil
	}
	return StatusLPAQuestionnaire, nil
}

// edges is the full transition table.  A missing (status, event) pair means
// the transition is rejected, never silently ignored.
var edges = map[edgeKey]edge{
	{StatusAssignCaseOfficer, EventCaseOfficerAssigned}: {target: StatusValidation},
	{StatusAssignCaseOfficer, EventChangeAppealType}:    {target: StatusClosed},
	{StatusAssignCaseOfficer, EventWithdraw}:            {target: StatusWithdrawn},
	{StatusAssignCaseOfficer, EventAwaitingTransfer}:    {target: StatusAwaitingTransfer},

	{StatusValidation, EventValidationOutcomeComplete}: {target: StatusLPAQuestionnaire, guard: caseStarted},
	{StatusValidation, EventValidationOutcomeInvalid}:  {target: StatusInvalid},
	{StatusValidation, EventReadyToStart}:              {target: StatusReadyToStart},
	{StatusValidation, EventChangeAppealType}:          {target: StatusClosed},
	{StatusValidation, EventWithdraw}:                  {target: StatusWithdrawn},
	{StatusValidation, EventAwaitingTransfer}:          {target: StatusAwaitingTransfer},

	{StatusReadyToStart, EventStartCase}:        {target: StatusLPAQuestionnaire, guard: caseStarted},
	{StatusReadyToStart, EventWithdraw}:         {target: StatusWithdrawn},
	{StatusReadyToStart, EventAwaitingTransfer}: {target: StatusAwaitingTransfer},

	{StatusLPAQuestionnaire, EventQuestionnaireComplete}: {target: StatusStatements},
	{StatusLPAQuestionnaire, EventSetUp}:                 {target: StatusEvent},
	{StatusLPAQuestionnaire, EventChangeProcedureType}:   {target: StatusLPAQuestionnaire},
	{StatusLPAQuestionnaire, EventWithdraw}:              {target: StatusWithdrawn},
	{StatusLPAQuestionnaire, EventAwaitingTransfer}:      {target: StatusAwaitingTransfer},

	{StatusStatements, EventStatementsComplete}:  {target: StatusFinalComments},
	{StatusStatements, EventSetUp}:               {target: StatusEvent},
	{StatusStatements, EventChangeProcedureType}: {target: StatusStatements},
	{StatusStatements, EventWithdraw}:            {target: StatusWithdrawn},
	{StatusStatements, EventAwaitingTransfer}:    {target: StatusAwaitingTransfer},

	{StatusFinalComments, EventFinalCommentsComplete}: {target: StatusIssueDetermination},
	{StatusFinalComments, EventChangeProcedureType}:   {target: StatusFinalComments},
	{StatusFinalComments, EventWithdraw}:              {target: StatusWithdrawn},
	{StatusFinalComments, EventAwaitingTransfer}:      {target: StatusAwaitingTransfer},

	{StatusEvent, EventConcluded}:                   {target: StatusIssueDetermination},
	{StatusEvent, EventCancel}:                      {resolve: reopenedStage, guard: eventInFuture},
	{StatusEvent, EventChangeProcedureType}:         {resolve: reopenedStage},
	{StatusEvent, EventValidationOutcomeIncomplete}: {target: StatusEvent, guard: eventInFuture},
	{StatusEvent, EventWithdraw}:                    {target: StatusWithdrawn},
	{StatusEvent, EventAwaitingTransfer}:            {target: StatusAwaitingTransfer},

	{StatusIssueDetermination, EventDecisionIssued}:   {target: StatusComplete},
	{StatusIssueDetermination, EventWithdraw}:         {target: StatusWithdrawn},
	{StatusIssueDetermination, EventAwaitingTransfer}: {target: StatusAwaitingTransfer},

	{StatusAwaitingTransfer, EventTransferred}: {target: StatusTransferred},
	{StatusAwaitingTransfer, EventWithdraw}:    {target: StatusWithdrawn},
}

// Peek resolves the target status for (current status, event) without
// mutating the case.  Returns ErrCodeInvalidTransition when no edge exists
// or a guard rejects.
func (c *AppealCase) Peek(ev Event, now time.Time) (Status, error) {
	e, ok := edges[edgeKey{c.status, ev}]
	if !ok {
		return "", errors.InvalidTransition("no transition for event " + string(ev) + " from status " + string(c.status))
	}
	if e.guard != nil {
		if err := e.guard(c, now); err != nil {
			return "", err
		}
	}
	if e.resolve != nil {
		return e.resolve(c, now)
	}
	return e.target, nil
}

// Transition applies the event, moving the case to the resolved target
// status.  The case is unchanged when an error is returned.
func (c *AppealCase) Transition(ev Event, now time.Time) (Status, error) {
	target, err := c.Peek(ev, now)
	if err != nil {
		return "", err
	}
	c.status = target
	return target, nil
}

// CanFire reports whether the event currently has an enabled edge.
func (c *AppealCase) CanFire(ev Event, now time.Time) bool {
	_, err := c.Peek(ev, now)
	return err == nil
}

// EnabledEvents lists the events with an enabled edge from the current
// status, for callers building action menus.
func (c *AppealCase) EnabledEvents(now time.Time) []Event {
	var out []Event
	for key := range edges {
		if key.from != c.status {
			continue
		}
		if c.CanFire(key.event, now) {
			out = append(out, key.event)
		}
	}
	return out
}
