package appeal

import (
	"time"

	"github.com/caseworks/appeal-engine/internal/domain/timetable"
	"github.com/caseworks/appeal-engine/pkg/types/common"
)

// CaseTransitioned is published after a transition commits.
type CaseTransitioned struct {
	common.BaseEvent
	CaseReference string         `json:"case_reference"`
	From          Status         `json:"from"`
	To            Status         `json:"to"`
	Trigger       Event          `json:"trigger"`
	ActorID       common.ActorID `json:"actor_id"`
}

// NewCaseTransitioned constructs a CaseTransitioned event for the given case.
func NewCaseTransitioned(c *AppealCase, from, to Status, trigger Event, actor common.ActorID) CaseTransitioned {
	return CaseTransitioned{
		BaseEvent:     common.NewBaseEvent(c.ID.String()),
		CaseReference: c.Reference,
		From:          from,
		To:            to,
		Trigger:       trigger,
		ActorID:       actor,
	}
}

// TimetableRecomputed is published when a transition rewrote the timetable.
type TimetableRecomputed struct {
	common.BaseEvent
	CaseReference string                  `json:"case_reference"`
	ProcedureType timetable.ProcedureType `json:"procedure_type"`
	DueDates      map[string]time.Time    `json:"due_dates"`
}

// NewTimetableRecomputed constructs a TimetableRecomputed event from the
// case's current timetable.
func NewTimetableRecomputed(c *AppealCase) TimetableRecomputed {
	dues := make(map[string]time.Time, len(c.Timetable))
	for f, d := range c.Timetable {
		dues[string(f)] = d
	}
	return TimetableRecomputed{
		BaseEvent:     common.NewBaseEvent(c.ID.String()),
		CaseReference: c.Reference,
		ProcedureType: c.ProcedureType,
		DueDates:      dues,
	}
}

// CaseEventScheduled is published when a hearing or inquiry is set up or
// rearranged.
type CaseEventScheduled struct {
	common.BaseEvent
	CaseReference string    `json:"case_reference"`
	Kind          EventKind `json:"kind"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
}

// NewCaseEventScheduled constructs a CaseEventScheduled event.
func NewCaseEventScheduled(c *AppealCase, ev *CaseEvent) CaseEventScheduled {
	return CaseEventScheduled{
		BaseEvent:     common.NewBaseEvent(c.ID.String()),
		CaseReference: c.Reference,
		Kind:          ev.Kind,
		StartTime:     ev.StartTime,
		EndTime:       ev.EndTime,
	}
}

// CaseEventCancelled is published when a scheduled hearing or inquiry is
// removed, by cancellation or by a procedure change away from it.
type CaseEventCancelled struct {
	common.BaseEvent
	CaseReference string    `json:"case_reference"`
	Kind          EventKind `json:"kind"`
	StartTime     time.Time `json:"start_time"`
}

// NewCaseEventCancelled constructs a CaseEventCancelled event.
func NewCaseEventCancelled(c *AppealCase, ev *CaseEvent) CaseEventCancelled {
	return CaseEventCancelled{
		BaseEvent:     common.NewBaseEvent(c.ID.String()),
		CaseReference: c.Reference,
		Kind:          ev.Kind,
		StartTime:     ev.StartTime,
	}
}
