package policy

import "fmt"

// Action tokens a rule may fire. The tick engine maps these onto the same
// application path as explicit commands.
const (
	ActionIdle          = "idle"
	ActionHarvest       = "harvest"
	ActionRecall        = "recall"
	ActionReturnHome    = "return_home"
	ActionAttackNearest = "attack_nearest"
	ActionExplore       = "explore"
)

// KnownAction reports whether a token is one the engine can apply.
func KnownAction(a string) bool {
	switch a {
	case ActionIdle, ActionHarvest, ActionRecall, ActionReturnHome, ActionAttackNearest, ActionExplore:
		return true
	}
	return false
}

// Rule is one ordered condition→action pair owned by a fleet.
type Rule struct {
	Condition string `json:"condition"`
	Action    string `json:"action"`

	expr     Expr
	parseErr error
	compiled bool
}

// Compile parses the condition. Called once when the rule list is installed;
// a failed compile leaves the rule in place but permanently skipped.
func (r *Rule) Compile() error {
	r.compiled = true
	if !KnownAction(r.Action) {
		r.parseErr = fmt.Errorf("unknown action %q", r.Action)
		return r.parseErr
	}
	r.expr, r.parseErr = ParseCondition(r.Condition)
	return r.parseErr
}

// CompileRules compiles a rule list, returning the rules plus any per-rule
// compile errors (indexed by rule position).
func CompileRules(rules []Rule) ([]Rule, []RuleError) {
	var errs []RuleError
	for i := range rules {
		if err := rules[i].Compile(); err != nil {
			errs = append(errs, RuleError{Index: i, Err: err})
		}
	}
	return rules, errs
}

// RuleError reports a problem with one rule during compile or evaluation.
type RuleError struct {
	Index int
	Err   error
}

func (e RuleError) Error() string {
	return fmt.Sprintf("rule %d: %v", e.Index, e.Err)
}

// Evaluate walks the rule list top to bottom against the snapshot and
// returns the action of the first rule whose condition holds. Malformed or
// erroring rules are skipped and reported; evaluation continues past them.
// ok is false when no rule matched.
func Evaluate(rules []Rule, snap Snapshot) (action string, ok bool, errs []RuleError) {
	for i := range rules {
		r := &rules[i]
		if !r.compiled {
			r.Compile()
		}
		if r.parseErr != nil {
			errs = append(errs, RuleError{Index: i, Err: r.parseErr})
			continue
		}
		match, err := r.expr.Eval(snap)
		if err != nil {
			errs = append(errs, RuleError{Index: i, Err: err})
			continue
		}
		if match {
			return r.Action, true, errs
		}
	}
	return "", false, errs
}
