package rules

import (
	"strings"

	"github.com/deploylint/deploylint/internal/snapshot"
	"github.com/deploylint/deploylint/internal/types"
)

var staticFileMiddleware = Rule{
	ID:          "static_file_middleware_present",
	Frameworks:  []types.Framework{types.FrameworkDjango},
	Severity:    types.SevWarning,
	Summary:     "Static files are served by middleware or a remote storage backend.",
	Remediation: "Add 'whitenoise.middleware.WhiteNoiseMiddleware' right after SecurityMiddleware, or store static files with a django-storages backend.",
	Check:       checkStaticFileMiddleware,
}

func checkStaticFileMiddleware(s snapshot.Snapshot) Result {
	url := s.Get(snapshot.StaticURL)
	root := s.Get(snapshot.StaticRoot)
	if !url.Present() && !root.Present() {
		return NotApplicable("No static files are configured.")
	}
	if storage := s.Get(snapshot.StaticfilesStorage); remoteStorage(storage) {
		return Pass("Static files are stored with a remote storage backend.", storage)
	}
	mw := s.Get(snapshot.MiddlewareList)
	switch {
	case mw.FromEnv, mw.Kind == snapshot.KindExpr:
		return Pass("MIDDLEWARE is computed at runtime and could not be checked statically.", mw)
	case mw.Kind == snapshot.KindList:
		for _, m := range mw.List {
			if strings.HasPrefix(m, "whitenoise.middleware.") {
				return Pass("WhiteNoise serves static files.", mw)
			}
		}
	}
	ev := mw
	if !ev.Present() {
		ev = url
	}
	return Fail("Static files are configured but nothing serves them; Django does not serve static files with DEBUG off.", ev)
}

// localStorages are static files backends that write under STATIC_ROOT.
var localStorages = []string{
	"django.contrib.staticfiles.storage.",
	"django.core.files.storage.",
	"whitenoise.storage.",
}

// remoteStorage reports a static files backend that does not use the local
// filesystem, such as a django-storages backend. Backends read from the
// environment count as remote.
func remoteStorage(v snapshot.Value) bool {
	if v.FromEnv {
		return true
	}
	if v.Kind != snapshot.KindString || v.Str == "" {
		return false
	}
	for _, p := range localStorages {
		if strings.HasPrefix(v.Str, p) {
			return false
		}
	}
	return true
}
