package rules

import (
	"fmt"
	"strconv"

	"github.com/deploylint/deploylint/internal/redact"
	"github.com/deploylint/deploylint/internal/snapshot"
	"github.com/deploylint/deploylint/internal/types"
)

var secretKeyNotHardcoded = Rule{
	ID:          "secret_key_not_hardcoded",
	Frameworks:  []types.Framework{types.FrameworkDjango, types.FrameworkFlask},
	Severity:    types.SevWarning,
	Summary:     "The secret key is not committed to source.",
	Remediation: "Read the key from the environment, e.g. SECRET_KEY = os.environ['SECRET_KEY'], and rotate the committed one.",
	Check:       checkSecretKey,
}

func checkSecretKey(s snapshot.Snapshot) Result {
	v := s.Get(snapshot.SecretKey)
	switch {
	case !v.Present():
		return NotApplicable("No secret key is configured.")
	case v.FromEnv:
		// evidence names the variable only; the source may carry a default key
		ev := snapshot.String("$" + envName(v)).WithOrigin(v.Origin)
		return Pass(fmt.Sprintf("The secret key is read from the environment (%s).", envName(v)), ev)
	case v.Kind == snapshot.KindString:
		ev := v
		ev.Raw = strconv.Quote(redact.Mask(v.Str))
		return Fail("The secret key is hardcoded in source; anyone with the repository can forge sessions.", ev)
	}
	return Pass("The secret key is computed at runtime.", v)
}

func envName(v snapshot.Value) string {
	if v.EnvVar == "" {
		return "unknown variable"
	}
	return v.EnvVar
}
