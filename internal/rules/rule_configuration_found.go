package rules

import (
	"fmt"

	"github.com/deploylint/deploylint/internal/snapshot"
	"github.com/deploylint/deploylint/internal/types"
)

var configurationFound = Rule{
	ID:          "configuration_found",
	Severity:    types.SevError,
	Summary:     "A configuration source was found for the project.",
	Remediation: "Run deploylint from the project root, or pass the directory containing settings.py / the Flask app module.",
	Check:       checkConfigurationFound,
}

func checkConfigurationFound(s snapshot.Snapshot) Result {
	srcs := s.Sources()
	if len(srcs) == 0 {
		return Fail("No configuration source was found; nothing could be checked.", snapshot.Absent())
	}
	v := snapshot.String(srcs[0].Path).WithOrigin(snapshot.Origin{Path: srcs[0].Path})
	return Pass(fmt.Sprintf("Read %d configuration source(s).", len(srcs)), v)
}
