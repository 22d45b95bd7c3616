package rules

import (
	"fmt"
	"net"
	"strings"

	"github.com/deploylint/deploylint/internal/snapshot"
	"github.com/deploylint/deploylint/internal/types"
)

var databaseHostNotLocal = Rule{
	ID:          "database_host_not_hardcoded_local",
	Frameworks:  []types.Framework{types.FrameworkDjango, types.FrameworkFlask},
	Severity:    types.SevError,
	Summary:     "The database host is not a hardcoded loopback address, or left empty for a network backend.",
	Remediation: "Read the database location from the environment, e.g. dj_database_url.config() or os.environ['DATABASE_URL'].",
	Check:       checkDatabaseHost,
}

func checkDatabaseHost(s snapshot.Snapshot) Result {
	v := s.Get(snapshot.DatabaseHost)
	switch {
	case !v.Present():
		return NotApplicable("No database host is configured.")
	case v.FromEnv:
		return Pass(fmt.Sprintf("The database location is read from the environment (%s).", envName(v)), v)
	case v.Kind == snapshot.KindString && strings.TrimSpace(v.Str) == "":
		return Fail("The database host is empty or missing, so the driver connects to the local machine, which is not reachable from the hosting platform.", v)
	case v.Kind == snapshot.KindString && isLoopback(v.Str):
		return Fail(fmt.Sprintf("The database host is hardcoded to %q, which is not reachable from the hosting platform.", v.Str), v)
	}
	return Pass("The database host is not a loopback address.", v)
}

func isLoopback(host string) bool {
	h := strings.ToLower(strings.Trim(strings.TrimSpace(host), "[]"))
	switch h {
	case "localhost", "localhost.localdomain", "ip6-localhost":
		return true
	}
	if ip := net.ParseIP(h); ip != nil {
		return ip.IsLoopback() || ip.IsUnspecified()
	}
	return false
}
