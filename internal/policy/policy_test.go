package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eval(t *testing.T, cond string, snap Snapshot) bool {
	t.Helper()
	expr, err := ParseCondition(cond)
	require.NoError(t, err, cond)
	got, err := expr.Eval(snap)
	require.NoError(t, err, cond)
	return got
}

func TestConditions(t *testing.T) {
	snap := Snapshot{
		"fleet_shield_pct": 0.25,
		"cargo_pct":        0.9,
		"in_combat":        1,
		"at_home":          0,
		"ship_count":       3,
	}

	cases := []struct {
		cond string
		want bool
	}{
		{"fleet_shield_pct < 0.3", true},
		{"fleet_shield_pct <= 0.25", true},
		{"fleet_shield_pct > 0.3", false},
		{"fleet_shield_pct >= 0.25", true},
		{"ship_count == 3", true},
		{"ship_count != 3", false},
		{"in_combat", true},
		{"at_home", false},
		{"!at_home", true},
		{"NOT at_home", true},
		{"TRUE", true},
		{"FALSE", false},
		{"in_combat && cargo_pct > 0.8", true},
		{"in_combat AND cargo_pct > 0.95", false},
		{"at_home || cargo_pct > 0.8", true},
		{"at_home OR FALSE", false},
		{"0.3 > fleet_shield_pct", true},
		{"ship_count >= 3 && (at_home || in_combat)", true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, eval(t, tc.cond, snap), tc.cond)
	}
}

func TestPrecedenceAndBindsTighterThanOr(t *testing.T) {
	snap := Snapshot{"a": 1, "b": 0, "c": 0}

	// a || b && c parses as a || (b && c).
	assert.True(t, eval(t, "a || b && c", snap))
	assert.False(t, eval(t, "(a || b) && c", snap))

	// NOT binds tighter than AND.
	assert.True(t, eval(t, "!b && a", snap))
}

func TestParseErrors(t *testing.T) {
	bad := []string{
		"",
		"fleet_shield_pct <",
		"&& in_combat",
		"(in_combat",
		"a = 1",
		"a & b",
		"1.5",
		"a == b == c",
		"a @ b",
	}
	for _, cond := range bad {
		_, err := ParseCondition(cond)
		assert.Error(t, err, "%q should not parse", cond)
	}
}

func TestUnknownVariableErrorsAtEval(t *testing.T) {
	expr, err := ParseCondition("warp_factor > 9")
	require.NoError(t, err)
	_, err = expr.Eval(Snapshot{"in_combat": 0})
	assert.Error(t, err)
}

func TestCaseInsensitiveKeywords(t *testing.T) {
	snap := Snapshot{"a": 1, "b": 0}
	assert.True(t, eval(t, "a and not b", snap))
	assert.True(t, eval(t, "b or true", snap))
}

func TestEvaluateFirstMatchWins(t *testing.T) {
	rules, errs := CompileRules([]Rule{
		{Condition: "fuel_pct < 0.2", Action: ActionRecall},
		{Condition: "cargo_pct > 0.8", Action: ActionReturnHome},
		{Condition: "TRUE", Action: ActionHarvest},
	})
	require.Empty(t, errs)

	action, ok, evalErrs := Evaluate(rules, Snapshot{"fuel_pct": 0.5, "cargo_pct": 0.95})
	require.True(t, ok)
	assert.Empty(t, evalErrs)
	assert.Equal(t, ActionReturnHome, action, "rules fire in order, first match wins")
}

func TestEvaluateNoMatch(t *testing.T) {
	rules, errs := CompileRules([]Rule{
		{Condition: "in_combat", Action: ActionRecall},
	})
	require.Empty(t, errs)

	_, ok, evalErrs := Evaluate(rules, Snapshot{"in_combat": 0})
	assert.False(t, ok)
	assert.Empty(t, evalErrs)
}

func TestEvaluateSkipsMalformedRules(t *testing.T) {
	rules, compileErrs := CompileRules([]Rule{
		{Condition: "fuel_pct <", Action: ActionRecall},     // does not parse
		{Condition: "TRUE", Action: "self_destruct"},        // unknown action
		{Condition: "missing_var > 1", Action: ActionIdle},  // fails at eval
		{Condition: "cargo_pct > 0.5", Action: ActionHarvest},
	})
	assert.Len(t, compileErrs, 2)

	action, ok, evalErrs := Evaluate(rules, Snapshot{"cargo_pct": 0.7})
	require.True(t, ok)
	assert.Equal(t, ActionHarvest, action, "evaluation continues past broken rules")
	assert.Len(t, evalErrs, 3)
	for _, re := range evalErrs {
		assert.NotEmpty(t, re.Error())
	}
}

func TestKnownAction(t *testing.T) {
	for _, a := range []string{ActionIdle, ActionHarvest, ActionRecall, ActionReturnHome, ActionAttackNearest, ActionExplore} {
		assert.True(t, KnownAction(a), a)
	}
	assert.False(t, KnownAction("warp"))
	assert.False(t, KnownAction(""))
}
