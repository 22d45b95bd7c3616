// Package core provides a small, stable facade over deploylint's internal
// engine for programs that embed the checker. It re-exports a narrow API
// surface so callers can depend on a stable import path without importing
// internal packages.
//
// Example:
//
//	rep := core.Check(ctx, core.Config{Root: "."})
//	_ = core.MarshalReports(os.Stdout, []core.ProjectReport{rep})
package core
