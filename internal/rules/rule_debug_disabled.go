package rules

import (
	"fmt"

	"github.com/deploylint/deploylint/internal/snapshot"
	"github.com/deploylint/deploylint/internal/types"
)

var debugDisabled = Rule{
	ID:          "debug_disabled",
	Frameworks:  []types.Framework{types.FrameworkDjango, types.FrameworkFlask},
	Severity:    types.SevError,
	Summary:     "Debug mode is not hardcoded on and does not default to on.",
	Remediation: "Read debug from the environment, e.g. DEBUG = os.environ.get('DEBUG', 'False') == 'True', and leave it unset in production.",
	Check:       checkDebugDisabled,
}

func checkDebugDisabled(s snapshot.Snapshot) Result {
	v := s.Get(snapshot.DebugEnabled)
	switch {
	case !v.Present():
		return Pass("Debug is not set and defaults to off.", v)
	case v.FromEnv && v.Default != nil && v.Default.IsTrue():
		return Fail(fmt.Sprintf("Debug is read from the environment (%s) but defaults to True when the variable is unset.", envName(v)), v)
	case v.FromEnv:
		return Pass(fmt.Sprintf("Debug is read from the environment (%s).", envName(v)), v)
	case v.IsTrue():
		return Fail("Debug is hardcoded to True; production would expose tracebacks and settings.", v)
	}
	return Pass("Debug is off.", v)
}
