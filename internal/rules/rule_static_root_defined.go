package rules

import (
	"github.com/deploylint/deploylint/internal/snapshot"
	"github.com/deploylint/deploylint/internal/types"
)

var staticRootDefined = Rule{
	ID:          "static_root_defined",
	Frameworks:  []types.Framework{types.FrameworkDjango},
	Severity:    types.SevError,
	Summary:     "A static root or remote storage backend is set when STATIC_URL is.",
	Remediation: "Set STATIC_ROOT = BASE_DIR / 'staticfiles' so collectstatic has a destination, or store static files with a django-storages backend.",
	Check:       checkStaticRoot,
}

func checkStaticRoot(s snapshot.Snapshot) Result {
	url := s.Get(snapshot.StaticURL)
	root := s.Get(snapshot.StaticRoot)
	if url.Empty() && url.Kind != snapshot.KindExpr {
		return NotApplicable("STATIC_URL is not set.")
	}
	if storage := s.Get(snapshot.StaticfilesStorage); !root.Present() && remoteStorage(storage) {
		return Pass("Static files are collected to a remote storage backend.", storage)
	}
	if !root.Present() {
		return Fail("STATIC_URL is set but neither STATIC_ROOT nor a remote storage backend is; collectstatic will fail during the build.", url)
	}
	return Pass("STATIC_ROOT is set.", root)
}
