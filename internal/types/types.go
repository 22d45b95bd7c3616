package types

import "strings"

// Severity is the impact level of a failing rule.
type Severity string

const (
	SevWarning Severity = "warning"
	SevError   Severity = "error"
)

// Rank orders severities; unknown values rank below warning.
func (s Severity) Rank() int {
	switch s {
	case SevError:
		return 2
	case SevWarning:
		return 1
	default:
		return 0
	}
}

// ParseSeverity accepts the fail-on spellings used by the CLI and config files.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "errors", "high":
		return SevError, true
	case "warning", "warnings", "warn", "medium", "low":
		return SevWarning, true
	}
	return "", false
}

// Framework identifies the web framework a project is built on.
type Framework string

const (
	FrameworkUnknown Framework = ""
	FrameworkDjango  Framework = "django"
	FrameworkFlask   Framework = "flask"
)

// Frameworks lists the frameworks the checker has adapters for.
func Frameworks() []Framework {
	return []Framework{FrameworkDjango, FrameworkFlask}
}

// ParseFramework maps user input onto a known framework.
func ParseFramework(s string) (Framework, bool) {
	switch Framework(strings.ToLower(strings.TrimSpace(s))) {
	case FrameworkDjango:
		return FrameworkDjango, true
	case FrameworkFlask:
		return FrameworkFlask, true
	}
	return FrameworkUnknown, false
}

// Outcome is the classification of one rule evaluation.
type Outcome string

const (
	OutcomePass          Outcome = "pass"
	OutcomeFail          Outcome = "fail"
	OutcomeNotApplicable Outcome = "not_applicable"
)

// Finding is the result of evaluating one rule against one snapshot.
type Finding struct {
	Rule        string    `json:"rule_name"`
	Framework   Framework `json:"framework"`
	Severity    Severity  `json:"severity"`
	Outcome     Outcome   `json:"outcome"`
	Passed      bool      `json:"passed"`
	Message     string    `json:"message"`
	Remediation string    `json:"remediation,omitempty"`
	Path        string    `json:"path,omitempty"`
	Line        int       `json:"line,omitempty"`
	Evidence    string    `json:"evidence,omitempty"`
}

// Failed reports whether the finding is a failure (not pass, not N/A).
func (f Finding) Failed() bool { return f.Outcome == OutcomeFail }
