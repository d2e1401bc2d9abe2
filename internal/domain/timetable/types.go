// Package timetable defines the declarative due-date rule table and the
// engine that computes and recomputes an appeal's statutory timetable from it.
package timetable

import (
	"sort"
	"time"
)

// AppealType enumerates the kinds of planning appeal the engine handles.
type AppealType string

const (
	AppealHouseholder       AppealType = "householder"
	AppealS78               AppealType = "s78"
	AppealEnforcementNotice AppealType = "enforcement-notice"
	AppealListedBuilding    AppealType = "listed-building"
	AppealAdvertisement     AppealType = "advertisement"
	AppealCASPlanning       AppealType = "cas-planning"
	AppealCASAdvert         AppealType = "cas-advert"
)

// ProcedureType is the mode by which an appeal is decided.
type ProcedureType string

const (
	ProcedureWritten ProcedureType = "written"
	ProcedureHearing ProcedureType = "hearing"
	ProcedureInquiry ProcedureType = "inquiry"
)

// Field names a due date on an appeal's timetable.  Field values are the
// canonical keys used in persistence and broadcasts.
type Field string

const (
	FieldLPAQuestionnaireDue        Field = "lpaQuestionnaireDueDate"
	FieldIPCommentsDue              Field = "ipCommentsDueDate"
	FieldLPAStatementDue            Field = "lpaStatementDueDate"
	FieldStatementOfCommonGroundDue Field = "statementOfCommonGroundDueDate"
	FieldPlanningObligationDue      Field = "planningObligationDueDate"
	FieldProofOfEvidenceDue         Field = "proofOfEvidenceAndWitnessesDueDate"
	FieldFinalCommentsDue           Field = "finalCommentsDueDate"
	FieldCaseResubmissionDue        Field = "caseResubmissionDueDate"
)

// Timetable maps due-date fields to their dates.  The set of present fields
// must exactly equal the set required by (appealType, procedureType) at the
// time of last recomputation.
type Timetable map[Field]time.Time

// Clone returns a deep copy of the timetable.
func (t Timetable) Clone() Timetable {
	out := make(Timetable, len(t))
	for f, d := range t {
		out[f] = d
	}
	return out
}

// Fields returns the present field names in deterministic order.
func (t Timetable) Fields() []Field {
	out := make([]Field, 0, len(t))
	for f := range t {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Equal reports whether two timetables hold the same fields with the same
// dates (date-only comparison).
func (t Timetable) Equal(other Timetable) bool {
	if len(t) != len(other) {
		return false
	}
	for f, d := range t {
		od, ok := other[f]
		if !ok {
			return false
		}
		if !sameDay(d, od) {
			return false
		}
	}
	return true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ValidAppealType reports whether t is a recognised appeal type.
func ValidAppealType(t AppealType) bool {
	switch t {
	case AppealHouseholder, AppealS78, AppealEnforcementNotice,
		AppealListedBuilding, AppealAdvertisement, AppealCASPlanning, AppealCASAdvert:
		return true
	}
	return false
}

// ValidProcedureType reports whether p is a recognised procedure type.
func ValidProcedureType(p ProcedureType) bool {
	switch p {
	case ProcedureWritten, ProcedureHearing, ProcedureInquiry:
		return true
	}
	return false
}
