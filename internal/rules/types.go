package rules

import (
	"fmt"
	"runtime/debug"

	"github.com/deploylint/deploylint/internal/snapshot"
	"github.com/deploylint/deploylint/internal/types"
)

// Rule is a named deployment-safety predicate over a snapshot. Rules are
// immutable once registered.
type Rule struct {
	ID string
	// Frameworks the rule applies to; empty means every framework.
	Frameworks  []types.Framework
	Severity    types.Severity
	Summary     string
	Remediation string
	// Check must be pure: the same snapshot always yields the same result.
	Check func(s snapshot.Snapshot) Result
}

// AppliesTo reports whether the rule belongs to fw's Rule Set.
func (r Rule) AppliesTo(fw types.Framework) bool {
	if len(r.Frameworks) == 0 {
		return true
	}
	for _, f := range r.Frameworks {
		if f == fw {
			return true
		}
	}
	return false
}

// Result is the outcome of one Check.
type Result struct {
	Outcome types.Outcome
	Message string
	// Evidence is the value the decision was based on, used for its origin.
	Evidence snapshot.Value
}

func Pass(msg string, ev snapshot.Value) Result {
	return Result{Outcome: types.OutcomePass, Message: msg, Evidence: ev}
}

func Fail(msg string, ev snapshot.Value) Result {
	return Result{Outcome: types.OutcomeFail, Message: msg, Evidence: ev}
}

func NotApplicable(msg string) Result {
	return Result{Outcome: types.OutcomeNotApplicable, Message: msg}
}

// EvaluationError reports a rule whose predicate panicked.
type EvaluationError struct {
	Rule  string
	Cause any
	Stack []byte
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("rule %s: internal error: %v", e.Rule, e.Cause)
}

// Run evaluates r against s. A panicking predicate is recovered into a
// failing finding and returned alongside an *EvaluationError.
func Run(r Rule, s snapshot.Snapshot) (f types.Finding, err error) {
	defer func() {
		if p := recover(); p != nil {
			ee := &EvaluationError{Rule: r.ID, Cause: p, Stack: debug.Stack()}
			f = types.Finding{
				Rule:        r.ID,
				Framework:   s.Framework(),
				Severity:    r.Severity,
				Outcome:     types.OutcomeFail,
				Message:     ee.Error(),
				Remediation: "Report this as a bug in deploylint; the remaining rules were still evaluated.",
			}
			err = ee
		}
	}()
	res := r.Check(s)
	switch res.Outcome {
	case types.OutcomePass, types.OutcomeFail, types.OutcomeNotApplicable:
	default:
		panic(fmt.Sprintf("unknown outcome %q", res.Outcome))
	}
	f = types.Finding{
		Rule:        r.ID,
		Framework:   s.Framework(),
		Severity:    r.Severity,
		Outcome:     res.Outcome,
		Passed:      res.Outcome != types.OutcomeFail,
		Message:     res.Message,
		Remediation: r.Remediation,
		Path:        res.Evidence.Origin.Path,
		Line:        res.Evidence.Origin.Line,
	}
	if res.Evidence.Present() {
		f.Evidence = evidence(res.Evidence)
	}
	return f, nil
}

func evidence(v snapshot.Value) string {
	if v.Raw != "" {
		return v.Raw
	}
	return v.String()
}
