package rules

import (
	"fmt"
	"strings"

	"github.com/deploylint/deploylint/internal/snapshot"
	"github.com/deploylint/deploylint/internal/types"
)

var allowedHostsNonEmpty = Rule{
	ID:          "allowed_hosts_nonempty",
	Frameworks:  []types.Framework{types.FrameworkDjango},
	Severity:    types.SevError,
	Summary:     "ALLOWED_HOSTS lists the hosts the app is served on.",
	Remediation: "Set ALLOWED_HOSTS to your platform domain, e.g. ALLOWED_HOSTS = ['.up.railway.app'] or read it from the environment.",
	Check:       checkAllowedHosts,
}

func checkAllowedHosts(s snapshot.Snapshot) Result {
	v := s.Get(snapshot.AllowedHosts)
	switch {
	case v.FromEnv:
		return Pass(fmt.Sprintf("ALLOWED_HOSTS is read from the environment (%s).", envName(v)), v)
	case !v.Present():
		return Fail("ALLOWED_HOSTS is not set; with DEBUG off Django rejects every request.", v)
	case v.Kind == snapshot.KindExpr:
		return Pass("ALLOWED_HOSTS is computed at runtime and could not be checked statically.", v)
	case v.Empty():
		return Fail("ALLOWED_HOSTS is empty; with DEBUG off Django rejects every request.", v)
	}
	return Pass(fmt.Sprintf("ALLOWED_HOSTS allows %s.", strings.Join(v.List, ", ")), v)
}
