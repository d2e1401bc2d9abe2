package timetable

import (
	"github.com/caseworks/appeal-engine/pkg/errors"
)

// Standard business-day offsets from the case start date.  Procedure rules
// compose these rather than carrying ad-hoc numbers.
const (
	offsetQuestionnaire = 5
	offsetStatements    = 25
	offsetEvidence      = 35
	offsetResubmission  = 28
)

// Rule declares one due date owed by a (appeal type, procedure type) pair:
// which field, how many business days after the case starts, and whether the
// rule only applies when the appeal carries a planning obligation.
type Rule struct {
	Field              Field
	OffsetDays         int
	RequiresObligation bool
}

// ruleTable is the single source of truth for which due dates each appeal
// type owes under each procedure.  Changing statutory timetables means
// editing this table, never the engine.
var ruleTable = map[AppealType]map[ProcedureType][]Rule{
	AppealHouseholder: {
		ProcedureWritten: {
			{Field: FieldLPAQuestionnaireDue, OffsetDays: offsetQuestionnaire},
			{Field: FieldIPCommentsDue, OffsetDays: offsetStatements},
		},
		ProcedureHearing: {
			{Field: FieldLPAQuestionnaireDue, OffsetDays: offsetQuestionnaire},
			{Field: FieldIPCommentsDue, OffsetDays: offsetStatements},
			{Field: FieldStatementOfCommonGroundDue, OffsetDays: offsetStatements},
		},
		ProcedureInquiry: {
			{Field: FieldLPAQuestionnaireDue, OffsetDays: offsetQuestionnaire},
			{Field: FieldIPCommentsDue, OffsetDays: offsetStatements},
			{Field: FieldStatementOfCommonGroundDue, OffsetDays: offsetStatements},
			{Field: FieldProofOfEvidenceDue, OffsetDays: offsetEvidence},
		},
	},
	AppealS78: {
		ProcedureWritten: {
			{Field: FieldLPAQuestionnaireDue, OffsetDays: offsetQuestionnaire},
			{Field: FieldLPAStatementDue, OffsetDays: offsetStatements},
			{Field: FieldIPCommentsDue, OffsetDays: offsetStatements},
			{Field: FieldFinalCommentsDue, OffsetDays: offsetEvidence},
		},
		ProcedureHearing: {
			{Field: FieldLPAQuestionnaireDue, OffsetDays: offsetQuestionnaire},
			{Field: FieldLPAStatementDue, OffsetDays: offsetStatements},
			{Field: FieldIPCommentsDue, OffsetDays: offsetStatements},
			{Field: FieldStatementOfCommonGroundDue, OffsetDays: offsetStatements},
			{Field: FieldPlanningObligationDue, OffsetDays: offsetStatements, RequiresObligation: true},
		},
		ProcedureInquiry: {
			{Field: FieldLPAQuestionnaireDue, OffsetDays: offsetQuestionnaire},
			{Field: FieldLPAStatementDue, OffsetDays: offsetStatements},
			{Field: FieldIPCommentsDue, OffsetDays: offsetStatements},
			{Field: FieldStatementOfCommonGroundDue, OffsetDays: offsetStatements},
			{Field: FieldPlanningObligationDue, OffsetDays: offsetStatements, RequiresObligation: true},
			{Field: FieldProofOfEvidenceDue, OffsetDays: offsetEvidence},
		},
	},
	AppealListedBuilding: {
		ProcedureWritten: {
			{Field: FieldLPAQuestionnaireDue, OffsetDays: offsetQuestionnaire},
			{Field: FieldLPAStatementDue, OffsetDays: offsetStatements},
			{Field: FieldIPCommentsDue, OffsetDays: offsetStatements},
			{Field: FieldFinalCommentsDue, OffsetDays: offsetEvidence},
		},
		ProcedureHearing: {
			{Field: FieldLPAQuestionnaireDue, OffsetDays: offsetQuestionnaire},
			{Field: FieldLPAStatementDue, OffsetDays: offsetStatements},
			{Field: FieldIPCommentsDue, OffsetDays: offsetStatements},
			{Field: FieldStatementOfCommonGroundDue, OffsetDays: offsetStatements},
		},
		ProcedureInquiry: {
			{Field: FieldLPAQuestionnaireDue, OffsetDays: offsetQuestionnaire},
			{Field: FieldLPAStatementDue, OffsetDays: offsetStatements},
			{Field: FieldIPCommentsDue, OffsetDays: offsetStatements},
			{Field: FieldStatementOfCommonGroundDue, OffsetDays: offsetStatements},
			{Field: FieldProofOfEvidenceDue, OffsetDays: offsetEvidence},
		},
	},
	AppealEnforcementNotice: {
		ProcedureWritten: {
			{Field: FieldLPAQuestionnaireDue, OffsetDays: offsetQuestionnaire},
			{Field: FieldLPAStatementDue, OffsetDays: offsetStatements},
			{Field: FieldIPCommentsDue, OffsetDays: offsetStatements},
			{Field: FieldFinalCommentsDue, OffsetDays: offsetEvidence},
		},
		ProcedureHearing: {
			{Field: FieldLPAQuestionnaireDue, OffsetDays: offsetQuestionnaire},
			{Field: FieldLPAStatementDue, OffsetDays: offsetStatements},
			{Field: FieldIPCommentsDue, OffsetDays: offsetStatements},
			{Field: FieldStatementOfCommonGroundDue, OffsetDays: offsetStatements},
		},
		ProcedureInquiry: {
			{Field: FieldLPAQuestionnaireDue, OffsetDays: offsetQuestionnaire},
			{Field: FieldLPAStatementDue, OffsetDays: offsetStatements},
			{Field: FieldIPCommentsDue, OffsetDays: offsetStatements},
			{Field: FieldStatementOfCommonGroundDue, OffsetDays: offsetStatements},
			{Field: FieldProofOfEvidenceDue, OffsetDays: offsetEvidence},
		},
	},
	AppealAdvertisement: {
		ProcedureWritten: {
			{Field: FieldLPAQuestionnaireDue, OffsetDays: offsetQuestionnaire},
			{Field: FieldIPCommentsDue, OffsetDays: offsetStatements},
		},
		ProcedureHearing: {
			{Field: FieldLPAQuestionnaireDue, OffsetDays: offsetQuestionnaire},
			{Field: FieldIPCommentsDue, OffsetDays: offsetStatements},
			{Field: FieldStatementOfCommonGroundDue, OffsetDays: offsetStatements},
		},
		ProcedureInquiry: {
			{Field: FieldLPAQuestionnaireDue, OffsetDays: offsetQuestionnaire},
			{Field: FieldIPCommentsDue, OffsetDays: offsetStatements},
			{Field: FieldStatementOfCommonGroundDue, OffsetDays: offsetStatements},
			{Field: FieldProofOfEvidenceDue, OffsetDays: offsetEvidence},
		},
	},
	AppealCASPlanning: {
		ProcedureWritten: {
			{Field: FieldLPAQuestionnaireDue, OffsetDays: offsetQuestionnaire},
			{Field: FieldIPCommentsDue, OffsetDays: offsetStatements},
		},
	},
	AppealCASAdvert: {
		ProcedureWritten: {
			{Field: FieldLPAQuestionnaireDue, OffsetDays: offsetQuestionnaire},
			{Field: FieldIPCommentsDue, OffsetDays: offsetStatements},
		},
	},
}

// Rules returns the due-date rules for an appeal type under a procedure.
// Commercial application site (CAS) appeals are written-only; asking for a
// hearing or inquiry timetable on one is an error.
func Rules(appealType AppealType, procedure ProcedureType) ([]Rule, error) {
	if !ValidAppealType(appealType) {
		return nil, errors.Newf(errors.ErrCodeUnknownAppealType, "unknown appeal type %q", appealType)
	}
	if !ValidProcedureType(procedure) {
		return nil, errors.Newf(errors.ErrCodeUnknownProcedureType, "unknown procedure type %q", procedure)
	}
	procedures := ruleTable[appealType]
	rules, ok := procedures[procedure]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnknownProcedureType,
			"appeal type %q does not support the %q procedure", appealType, procedure)
	}
	return rules, nil
}

// RequiredFields resolves the exact field set owed by (appealType, procedure),
// applying the planning-obligation condition.
func RequiredFields(appealType AppealType, procedure ProcedureType, hasObligation bool) ([]Field, error) {
	rules, err := Rules(appealType, procedure)
	if err != nil {
		return nil, err
	}
	out := make([]Field, 0, len(rules))
	for _, r := range rules {
		if r.RequiresObligation && !hasObligation {
			continue
		}
		out = append(out, r.Field)
	}
	return out, nil
}

// StatementParty reports which party owes the statement due date for an
// appeal type.  Enforcement-notice appeals are appellant-led; all other types
// with a statement field are LPA-led.
func StatementParty(appealType AppealType) string {
	if appealType == AppealEnforcementNotice {
		return "appellant"
	}
	return "lpa"
}
