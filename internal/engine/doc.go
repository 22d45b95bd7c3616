// Package engine runs deploylint checks: it discovers a project's
// configuration sources, detects its framework, extracts a snapshot and
// evaluates the framework's Rule Set against it. This package is internal;
// external consumers should use the stable facade in pkg/core.
package engine
