package rules

import (
	"fmt"

	"github.com/blang/semver/v4"

	"github.com/deploylint/deploylint/internal/snapshot"
	"github.com/deploylint/deploylint/internal/types"
)

var csrfTrustedOrigins = Rule{
	ID:          "csrf_trusted_origins_present",
	Frameworks:  []types.Framework{types.FrameworkDjango},
	Severity:    types.SevWarning,
	Summary:     "CSRF_TRUSTED_ORIGINS is set on Django 4.0 and later.",
	Remediation: "Add your HTTPS origin including the scheme, e.g. CSRF_TRUSTED_ORIGINS = ['https://*.up.railway.app'].",
	Check:       checkCSRFTrustedOrigins,
}

var django4 = semver.MustParse("4.0.0")

func checkCSRFTrustedOrigins(s snapshot.Snapshot) Result {
	ver := s.Get(snapshot.FrameworkVersion)
	known := false
	if ver.Kind == snapshot.KindString {
		if sv, err := semver.ParseTolerant(ver.Str); err == nil {
			known = true
			if sv.LT(django4) {
				return NotApplicable(fmt.Sprintf("Django %s does not check origins against CSRF_TRUSTED_ORIGINS.", sv))
			}
		}
	}
	v := s.Get(snapshot.CSRFTrustedOrigins)
	switch {
	case v.FromEnv:
		return Pass(fmt.Sprintf("CSRF_TRUSTED_ORIGINS is read from the environment (%s).", envName(v)), v)
	case v.Kind == snapshot.KindExpr:
		return Pass("CSRF_TRUSTED_ORIGINS is computed at runtime and could not be checked statically.", v)
	case v.Empty():
		msg := "CSRF_TRUSTED_ORIGINS is not set; form posts behind an HTTPS proxy will fail the CSRF origin check."
		if !known {
			msg += " The Django version is unknown and is assumed to be 4.0 or later."
		}
		return Fail(msg, v)
	}
	return Pass("CSRF_TRUSTED_ORIGINS is set.", v)
}
