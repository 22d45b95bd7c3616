package rules

import (
	"github.com/deploylint/deploylint/internal/snapshot"
	"github.com/deploylint/deploylint/internal/types"
)

var productionServer = Rule{
	ID:          "production_server_not_dev_server",
	Frameworks:  []types.Framework{types.FrameworkDjango, types.FrameworkFlask},
	Severity:    types.SevError,
	Summary:     "The app is started with a production WSGI/ASGI server.",
	Remediation: "Start the app with a production server, e.g. `web: gunicorn app:app` in the Procfile, and keep app.run() for local use only.",
	Check:       checkProductionServer,
}

func checkProductionServer(s snapshot.Snapshot) Result {
	v := s.Get(snapshot.ServerMode)
	if !v.Present() {
		return NotApplicable("No start command or development server call was found.")
	}
	switch v.Str {
	case snapshot.ServerDev:
		return Fail("The app is started with the framework's development server, which is single-process and not hardened.", v)
	case snapshot.ServerDevGated:
		return Pass("The development server only starts under an environment-dependent condition.", v)
	}
	return Pass("The app is started with a production server.", v)
}
