package flow

import "context"

// ScriptRunner executes a condition script and reports pass/fail from its
// exit code. Follows the same function-seam idiom as repo.CommandRunner
// (internal/repo) so tests can substitute a fake instead of shelling out.
type ScriptRunner func(ctx context.Context, scriptPath string) error

// Evaluate runs a single condition. For type=script it runs the script
// and returns pass/fail from the exit code; skip=true bypasses execution
// and is treated as passed. For type=agent and type=manual, Evaluate
// returns ErrNotSupported — the result handler decides routing from the
// agent's or human's decision, not from the condition body (spec §3.3,
// §4.1).
func (c Condition) Evaluate(ctx context.Context, run ScriptRunner) (bool, error) {
	if c.Skip {
		return true, nil
	}
	switch c.Type {
	case ConditionScript:
		if err := run(ctx, c.Script); err != nil {
			return false, nil
		}
		return true, nil
	case ConditionAgent, ConditionManual:
		return false, ErrNotSupported
	default:
		return false, ErrNotSupported
	}
}

// ErrNotSupported is returned by Evaluate for condition types the engine
// does not evaluate synchronously.
var ErrNotSupported = errNotSupported{}

type errNotSupported struct{}

func (errNotSupported) Error() string {
	return "condition type is not synchronously evaluable"
}

// EvaluateScriptConditions iterates conditions in declaration order and
// short-circuits on the first failure, returning that condition. Only
// type=script and skip=true conditions are handled here; callers must
// route type=agent/type=manual conditions through the result handler
// before reaching this point.
func EvaluateScriptConditions(ctx context.Context, conditions []Condition, run ScriptRunner) (passed bool, failing *Condition, err error) {
	for i := range conditions {
		c := conditions[i]
		if c.Type != ConditionScript && !c.Skip {
			continue
		}
		ok, evalErr := c.Evaluate(ctx, run)
		if evalErr != nil {
			return false, &c, evalErr
		}
		if !ok {
			return false, &c, nil
		}
	}
	return true, nil, nil
}
