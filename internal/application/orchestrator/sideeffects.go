package orchestrator

import (
	"github.com/caseworks/appeal-engine/pkg/types/common"
)

// SideEffectKind tags a side effect for dispatch routing and metrics.
type SideEffectKind string

const (
	SideEffectNotification SideEffectKind = "notification"
	SideEffectAudit        SideEffectKind = "audit"
	SideEffectBroadcast    SideEffectKind = "broadcast"
)

// SideEffect is an intended consequence of a committed transition, returned
// as data.  The orchestrator never executes side effects itself; the
// Executor dispatches them after the transaction commits, and a dispatch
// failure never rolls the transition back.
type SideEffect interface {
	Kind() SideEffectKind
}

// Notification asks the dispatcher to send one templated message to one
// recipient.
type Notification struct {
	TemplateName    string
	RecipientEmail  string
	Personalisation map[string]string
}

func (Notification) Kind() SideEffectKind { return SideEffectNotification }

// AuditEntry asks the audit writer to append one entry to the case history.
type AuditEntry struct {
	CaseID  common.ID
	ActorID common.ActorID
	Message string
}

func (AuditEntry) Kind() SideEffectKind { return SideEffectAudit }

// Broadcast asks the publisher to notify downstream systems of a change.
type Broadcast struct {
	EntityID   common.ID
	EntityType string
	ChangeKind string
	Payload    interface{}
}

func (Broadcast) Kind() SideEffectKind { return SideEffectBroadcast }

// Notification template names, matched by the dispatcher to its template
// store.
const (
	TemplateCaseStarted       = "appeal-started"
	TemplateValidationInvalid = "appeal-invalid"
	TemplateProcedureChanged  = "procedure-changed"
	TemplateEventScheduled    = "event-scheduled"
	TemplateEventCancelled    = "event-cancelled"
	TemplateCaseWithdrawn     = "appeal-withdrawn"
	TemplateCaseTransferred   = "appeal-transferred"
	TemplateDecisionIssued    = "decision-issued"
)

// Broadcast change kinds.
const (
	ChangeKindCaseUpdated  = "case-updated"
	ChangeKindEventSet     = "event-updated"
	ChangeKindEventDeleted = "event-deleted"
	ChangeKindTimetableSet = "timetable-updated"
)
