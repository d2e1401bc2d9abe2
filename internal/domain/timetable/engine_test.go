package timetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseworks/appeal-engine/internal/domain/calendar"
	"github.com/caseworks/appeal-engine/internal/infrastructure/monitoring/logging"
	"github.com/caseworks/appeal-engine/pkg/errors"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cal := calendar.New(calendar.JurisdictionEnglandAndWales, []time.Time{
		date(2025, time.January, 1),
		date(2025, time.April, 18),
		date(2025, time.April, 21),
	})
	return NewEngine(cal, logging.NewNopLogger())
}

func TestComputeInitialS78Hearing(t *testing.T) {
	e := newTestEngine(t)

	// Case starts Wednesday 1 January 2025, a bank holiday.
	tt, err := e.ComputeInitial(AppealS78, ProcedureHearing, date(2025, time.January, 1), false)
	require.NoError(t, err)

	assert.Equal(t, date(2025, time.January, 8), tt[FieldLPAQuestionnaireDue])

	assert.Contains(t, tt, FieldLPAStatementDue)
	assert.Contains(t, tt, FieldIPCommentsDue)
	assert.Contains(t, tt, FieldStatementOfCommonGroundDue)
	assert.NotContains(t, tt, FieldFinalCommentsDue, "hearings take no final comments")
	assert.NotContains(t, tt, FieldProofOfEvidenceDue)
	assert.NotContains(t, tt, FieldPlanningObligationDue, "no planning obligation on this case")
}

func TestComputeInitialPlanningObligation(t *testing.T) {
	e := newTestEngine(t)

	tt, err := e.ComputeInitial(AppealS78, ProcedureHearing, date(2025, time.January, 1), true)
	require.NoError(t, err)
	assert.Contains(t, tt, FieldPlanningObligationDue)
}

func TestComputeInitialAllDatesAreBusinessDays(t *testing.T) {
	cal := calendar.New(calendar.JurisdictionEnglandAndWales, []time.Time{
		date(2025, time.January, 1),
	})
	e := NewEngine(cal, logging.NewNopLogger())

	for _, at := range []AppealType{AppealHouseholder, AppealS78, AppealEnforcementNotice, AppealListedBuilding} {
		for _, pt := range []ProcedureType{ProcedureWritten, ProcedureHearing, ProcedureInquiry} {
			tt, err := e.ComputeInitial(at, pt, date(2025, time.January, 1), true)
			require.NoError(t, err)
			for f, d := range tt {
				assert.True(t, cal.IsBusinessDay(d), "%s/%s %s = %s", at, pt, f, d)
			}
		}
	}
}

func TestComputeInitialUnknownAppealType(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.ComputeInitial(AppealType("caravan"), ProcedureWritten, date(2025, time.January, 1), false)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownAppealType))
}

func TestComputeInitialUnknownProcedure(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.ComputeInitial(AppealS78, ProcedureType("trial-by-combat"), date(2025, time.January, 1), false)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownProcedureType))
}

func TestCASAppealsAreWrittenOnly(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.ComputeInitial(AppealCASPlanning, ProcedureHearing, date(2025, time.January, 1), false)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownProcedureType))

	tt, err := e.ComputeInitial(AppealCASAdvert, ProcedureWritten, date(2025, time.January, 1), false)
	require.NoError(t, err)
	assert.Len(t, tt, 2)
}

func TestRecomputeHearingToWritten(t *testing.T) {
	e := newTestEngine(t)
	started := date(2025, time.January, 1)

	existing, err := e.ComputeInitial(AppealS78, ProcedureHearing, started, true)
	require.NoError(t, err)

	finalComments := date(2025, time.March, 3)
	got, err := e.Recompute(RecomputeInput{
		AppealType:    AppealS78,
		NewProcedure:  ProcedureWritten,
		StartedAt:     started,
		HasObligation: true,
		Existing:      existing,
		Overrides: map[Field]time.Time{
			FieldFinalCommentsDue: finalComments,
		},
		RequireOverrides: true,
	})
	require.NoError(t, err)

	// Shared fields keep their dates.
	assert.Equal(t, existing[FieldLPAQuestionnaireDue], got[FieldLPAQuestionnaireDue])
	assert.Equal(t, existing[FieldLPAStatementDue], got[FieldLPAStatementDue])
	assert.Equal(t, existing[FieldIPCommentsDue], got[FieldIPCommentsDue])

	// The hearing-only fields are dropped, the written-only field appears.
	assert.NotContains(t, got, FieldStatementOfCommonGroundDue)
	assert.NotContains(t, got, FieldPlanningObligationDue, "written s78 cases owe no planning obligation date")
	assert.Equal(t, finalComments, got[FieldFinalCommentsDue])
}

func TestRecomputeOverrideWinsOverExisting(t *testing.T) {
	e := newTestEngine(t)
	started := date(2025, time.January, 1)

	existing, err := e.ComputeInitial(AppealS78, ProcedureHearing, started, false)
	require.NoError(t, err)
	require.Contains(t, existing, FieldLPAStatementDue)

	statement := date(2025, time.April, 1)
	got, err := e.Recompute(RecomputeInput{
		AppealType:   AppealS78,
		NewProcedure: ProcedureWritten,
		StartedAt:    started,
		Existing:     existing,
		Overrides: map[Field]time.Time{
			FieldLPAStatementDue:  statement,
			FieldFinalCommentsDue: date(2025, time.March, 3),
		},
		RequireOverrides: true,
	})
	require.NoError(t, err)
	assert.Equal(t, statement, got[FieldLPAStatementDue], "override beats the carried-over date")
}

func TestRecomputeDropsStaleFields(t *testing.T) {
	e := newTestEngine(t)
	started := date(2025, time.January, 1)

	existing, err := e.ComputeInitial(AppealS78, ProcedureHearing, started, false)
	require.NoError(t, err)
	// A leftover field required by neither the old nor the new procedure.
	existing[FieldProofOfEvidenceDue] = date(2025, time.February, 20)

	got, err := e.Recompute(RecomputeInput{
		AppealType:   AppealS78,
		NewProcedure: ProcedureWritten,
		StartedAt:    started,
		Existing:     existing,
	})
	require.NoError(t, err)
	assert.NotContains(t, got, FieldProofOfEvidenceDue)
	assert.NotContains(t, got, FieldStatementOfCommonGroundDue)
}

func TestRecomputeMissingOverride(t *testing.T) {
	e := newTestEngine(t)
	started := date(2025, time.January, 1)

	existing, err := e.ComputeInitial(AppealS78, ProcedureHearing, started, false)
	require.NoError(t, err)

	_, err = e.Recompute(RecomputeInput{
		AppealType:       AppealS78,
		NewProcedure:     ProcedureWritten,
		StartedAt:        started,
		Existing:         existing,
		RequireOverrides: true,
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMissingDueDateInput))
	assert.Contains(t, err.Error(), string(FieldFinalCommentsDue))
}

func TestRecomputeWithoutRequiredOverridesFallsBackToOffsets(t *testing.T) {
	e := newTestEngine(t)
	started := date(2025, time.January, 1)

	existing, err := e.ComputeInitial(AppealS78, ProcedureHearing, started, false)
	require.NoError(t, err)

	got, err := e.Recompute(RecomputeInput{
		AppealType:   AppealS78,
		NewProcedure: ProcedureWritten,
		StartedAt:    started,
		Existing:     existing,
	})
	require.NoError(t, err)
	assert.Contains(t, got, FieldFinalCommentsDue)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	started := date(2025, time.January, 1)

	existing, err := e.ComputeInitial(AppealS78, ProcedureHearing, started, true)
	require.NoError(t, err)

	in := RecomputeInput{
		AppealType:    AppealS78,
		NewProcedure:  ProcedureWritten,
		StartedAt:     started,
		HasObligation: true,
		Existing:      existing,
		Overrides: map[Field]time.Time{
			FieldFinalCommentsDue: date(2025, time.March, 3),
		},
	}
	once, err := e.Recompute(in)
	require.NoError(t, err)

	in.Existing = once
	twice, err := e.Recompute(in)
	require.NoError(t, err)
	assert.True(t, once.Equal(twice))
}

func TestRecomputeNormalisesOverrideOntoBusinessDay(t *testing.T) {
	e := newTestEngine(t)
	started := date(2025, time.January, 2)

	existing, err := e.ComputeInitial(AppealS78, ProcedureHearing, started, false)
	require.NoError(t, err)

	got, err := e.Recompute(RecomputeInput{
		AppealType:   AppealS78,
		NewProcedure: ProcedureWritten,
		StartedAt:    started,
		Existing:     existing,
		Overrides: map[Field]time.Time{
			FieldFinalCommentsDue: date(2025, time.April, 19), // Saturday, Easter weekend
		},
		RequireOverrides: true,
	})
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.April, 22), got[FieldFinalCommentsDue])
}

func TestResubmissionDueDate(t *testing.T) {
	cal := calendar.New(calendar.JurisdictionEnglandAndWales, nil)
	e := NewEngine(cal, logging.NewNopLogger())

	// 28 business days from Monday 6 January 2025 with no holidays in range.
	got := e.ResubmissionDueDate(date(2025, time.January, 6))
	assert.Equal(t, date(2025, time.February, 13), got)
	assert.True(t, cal.IsBusinessDay(got))
}

func TestRequiredFields(t *testing.T) {
	fields, err := RequiredFields(AppealS78, ProcedureInquiry, false)
	require.NoError(t, err)
	assert.NotContains(t, fields, FieldPlanningObligationDue)
	assert.Contains(t, fields, FieldProofOfEvidenceDue)

	fields, err = RequiredFields(AppealS78, ProcedureInquiry, true)
	require.NoError(t, err)
	assert.Contains(t, fields, FieldPlanningObligationDue)
}

func TestStatementParty(t *testing.T) {
	assert.Equal(t, "appellant", StatementParty(AppealEnforcementNotice))
	assert.Equal(t, "lpa", StatementParty(AppealS78))
	assert.Equal(t, "lpa", StatementParty(AppealHouseholder))
}
