package report

import (
	"sort"

	"github.com/deploylint/deploylint/internal/engine"
	"github.com/deploylint/deploylint/internal/types"
)

// Order returns findings in report order: failures first, error before
// warning, then passing and not-applicable rules. Within a group the input
// (Rule Set) order is kept.
func Order(findings []types.Finding) []types.Finding {
	out := append([]types.Finding(nil), findings...)
	sort.SliceStable(out, func(i, j int) bool {
		return group(out[i]) < group(out[j])
	})
	return out
}

func group(f types.Finding) int {
	if f.Failed() {
		return 2 - f.Severity.Rank() // error 0, warning 1, unknown 2
	}
	return 3
}

// Summary counts findings by outcome.
type Summary struct {
	Total         int `json:"total"`
	Passed        int `json:"passed"`
	Failed        int `json:"failed"`
	Errors        int `json:"errors"`
	Warnings      int `json:"warnings"`
	NotApplicable int `json:"not_applicable"`
}

// Summarize counts findings.
func Summarize(findings []types.Finding) Summary {
	var s Summary
	for _, f := range findings {
		s.Total++
		switch f.Outcome {
		case types.OutcomeFail:
			s.Failed++
			switch f.Severity {
			case types.SevError:
				s.Errors++
			case types.SevWarning:
				s.Warnings++
			}
		case types.OutcomeNotApplicable:
			s.NotApplicable++
		default:
			s.Passed++
		}
	}
	return s
}

// Add returns the field-wise sum of s and o.
func (s Summary) Add(o Summary) Summary {
	return Summary{
		Total:         s.Total + o.Total,
		Passed:        s.Passed + o.Passed,
		Failed:        s.Failed + o.Failed,
		Errors:        s.Errors + o.Errors,
		Warnings:      s.Warnings + o.Warnings,
		NotApplicable: s.NotApplicable + o.NotApplicable,
	}
}

// Exit statuses.
const (
	ExitOK      = 0
	ExitFailed  = 1
	ExitInvalid = 2
)

// ExitCode returns the process exit status for reps: 2 when any project was
// invalid, 1 when any failing finding is at or above failOn or any project
// is incomplete, 0 otherwise. An empty failOn means error.
func ExitCode(reps []engine.Report, failOn types.Severity) int {
	if failOn == "" {
		failOn = types.SevError
	}
	code := ExitOK
	for _, r := range reps {
		code = max(code, projectExit(r, failOn))
	}
	return code
}

func projectExit(r engine.Report, failOn types.Severity) int {
	if r.Invalid {
		return ExitInvalid
	}
	if r.Incomplete {
		return ExitFailed
	}
	for _, f := range r.Findings {
		if f.Failed() && f.Severity.Rank() >= failOn.Rank() {
			return ExitFailed
		}
	}
	return ExitOK
}
