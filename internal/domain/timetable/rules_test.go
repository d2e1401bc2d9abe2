package timetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestComputeInitialMatchesRuleTable walks every (appeal type, procedure)
// pair the rule table defines and checks ComputeInitial yields exactly the
// declared field set, with and without a planning obligation.
func TestComputeInitialMatchesRuleTable(t *testing.T) {
	e := newTestEngine(t)
	started := date(2025, time.January, 2)

	for at, procedures := range ruleTable {
		for pt, rules := range procedures {
			for _, hasObligation := range []bool{false, true} {
				want := make([]Field, 0, len(rules))
				for _, r := range rules {
					if r.RequiresObligation && !hasObligation {
						continue
					}
					want = append(want, r.Field)
				}

				tt, err := e.ComputeInitial(at, pt, started, hasObligation)
				require.NoError(t, err, "%s/%s", at, pt)

				got := make([]Field, 0, len(tt))
				for f := range tt {
					got = append(got, f)
				}
				assert.ElementsMatch(t, want, got,
					"%s/%s obligation=%v", at, pt, hasObligation)
			}
		}
	}
}

func TestRuleTableOffsetsArePositive(t *testing.T) {
	for at, procedures := range ruleTable {
		for pt, rules := range procedures {
			for _, r := range rules {
				assert.Positive(t, r.OffsetDays, "%s/%s %s", at, pt, r.Field)
			}
		}
	}
}

func TestRuleTableEveryPairStartsWithQuestionnaire(t *testing.T) {
	for at, procedures := range ruleTable {
		for pt := range procedures {
			fields, err := RequiredFields(at, pt, false)
			require.NoError(t, err)
			assert.Contains(t, fields, FieldLPAQuestionnaireDue, "%s/%s", at, pt)
		}
	}
}

func TestRuleTableObligationOnlyOnS78(t *testing.T) {
	for at, procedures := range ruleTable {
		for pt, rules := range procedures {
			for _, r := range rules {
				if r.Field != FieldPlanningObligationDue {
					continue
				}
				assert.Equal(t, AppealS78, at, "%s/%s carries a planning obligation rule", at, pt)
				assert.True(t, r.RequiresObligation, "%s/%s obligation rule must be conditional", at, pt)
			}
		}
	}

	// Even with an obligation, the written procedure owes no obligation date.
	written, err := RequiredFields(AppealS78, ProcedureWritten, true)
	require.NoError(t, err)
	assert.NotContains(t, written, FieldPlanningObligationDue)
}

func TestRulesReturnsTableOrder(t *testing.T) {
	rules, err := Rules(AppealHouseholder, ProcedureWritten)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, FieldLPAQuestionnaireDue, rules[0].Field)
	assert.Equal(t, FieldIPCommentsDue, rules[1].Field)
}
