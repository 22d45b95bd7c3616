package deploylint

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/deploylint/deploylint/internal/engine"
	"github.com/deploylint/deploylint/internal/git"
	"github.com/deploylint/deploylint/internal/report"
	"github.com/deploylint/deploylint/internal/rules"
	"github.com/deploylint/deploylint/internal/types"
)

// Formats lists the accepted --format values.
var Formats = []string{"text", "table", "structured", "json", "sarif"}

func parseFormat(s string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(s))
	for _, ok := range Formats {
		if f == ok {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (want %s)", s, strings.Join(Formats, "|"))
}

func parseFailOn(s string) (types.Severity, error) {
	if strings.TrimSpace(s) == "" {
		return types.SevError, nil
	}
	sev, ok := types.ParseSeverity(s)
	if !ok {
		return "", fmt.Errorf("unknown --fail-on %q (want error|warning)", s)
	}
	return sev, nil
}

type renderOptions struct {
	format   string
	color    bool
	quiet    bool
	failOn   types.Severity
	duration time.Duration
	registry *rules.Registry
}

// render writes reps to w in the selected format.
func render(w io.Writer, reps []engine.Report, o renderOptions) error {
	switch o.format {
	case "structured", "json":
		return report.WriteJSON(w, reps, report.Meta{Version: version, FailOn: o.failOn, RepoMetadata: git.RepoMetadata})
	case "sarif":
		return report.WriteSARIF(w, reps, o.registry, version)
	case "table":
		report.PrintTable(w, reps, report.PrintOptions{NoColor: !o.color, Quiet: o.quiet, Duration: o.duration})
	default:
		report.PrintText(w, reps, report.PrintOptions{NoColor: !o.color, Quiet: o.quiet, Duration: o.duration})
	}
	return nil
}
