package core

import (
	"context"

	"github.com/deploylint/deploylint/internal/engine"
	"github.com/deploylint/deploylint/internal/report"
	"github.com/deploylint/deploylint/internal/rules"
	"github.com/deploylint/deploylint/internal/types"
)

// Re-export selected internal types as a stable public API surface.
// These are type aliases so external consumers can depend on a stable path.
type Config = engine.Config
type Finding = types.Finding
type ProjectReport = engine.Report
type RuleFilter = rules.Filter

// Check runs the checker against cfg.Root.
func Check(ctx context.Context, cfg Config) ProjectReport {
	return engine.CheckProject(ctx, cfg)
}

// CheckAll checks several projects concurrently; reports keep the order of
// roots.
func CheckAll(ctx context.Context, cfg Config, roots []string) []ProjectReport {
	return engine.CheckAll(ctx, cfg, roots)
}

// ExitCode maps reports onto the CLI's exit status for the given fail-on
// severity ("error" or "warning").
func ExitCode(reps []ProjectReport, failOn string) int {
	sev, ok := types.ParseSeverity(failOn)
	if !ok {
		sev = types.SevError
	}
	return report.ExitCode(reps, sev)
}

// RuleIDs returns the IDs of the built-in rules.
func RuleIDs() []string { return rules.Default().IDs() }
