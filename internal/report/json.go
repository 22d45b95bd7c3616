package report

import (
	"encoding/json"
	"io"

	"github.com/deploylint/deploylint/internal/engine"
	"github.com/deploylint/deploylint/internal/git"
	"github.com/deploylint/deploylint/internal/types"
)

// Meta describes the run that produced a document.
type Meta struct {
	Version string
	FailOn  types.Severity
	// RepoMetadata resolves VCS metadata for a project root; nil skips it.
	RepoMetadata func(root string) git.Metadata
}

// Document is the structured report.
type Document struct {
	Tool     string    `json:"tool"`
	Version  string    `json:"version"`
	FailOn   string    `json:"fail_on"`
	Projects []Project `json:"projects"`
	Summary  Summary   `json:"summary"`
	ExitCode int       `json:"exit_code"`
}

// Project is one project's section of the structured report.
type Project struct {
	Root      string          `json:"root"`
	Framework types.Framework `json:"framework"`
	Git       *git.Metadata   `json:"git,omitempty"`
	// Findings are in report order.
	Findings    []types.Finding `json:"findings"`
	Summary     Summary         `json:"summary"`
	Notices     []string        `json:"notices,omitempty"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	Incomplete  bool            `json:"incomplete,omitempty"`
	Invalid     bool            `json:"invalid,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// BuildDocument assembles the structured report for reps.
func BuildDocument(reps []engine.Report, meta Meta) Document {
	failOn := meta.FailOn
	if failOn == "" {
		failOn = types.SevError
	}
	doc := Document{
		Tool:     "deploylint",
		Version:  meta.Version,
		FailOn:   string(failOn),
		Projects: make([]Project, 0, len(reps)),
		ExitCode: ExitCode(reps, failOn),
	}
	for _, r := range reps {
		p := Project{
			Root:        r.Root,
			Framework:   r.Framework,
			Findings:    Order(r.Findings),
			Summary:     Summarize(r.Findings),
			Notices:     r.Notices,
			Fingerprint: r.Fingerprint,
			Incomplete:  r.Incomplete,
			Invalid:     r.Invalid,
			Error:       r.Error,
		}
		if p.Findings == nil {
			p.Findings = []types.Finding{} // no `null` in JSON
		}
		if meta.RepoMetadata != nil {
			if m := meta.RepoMetadata(r.Root); !m.Empty() {
				p.Git = &m
			}
		}
		doc.Summary = doc.Summary.Add(p.Summary)
		doc.Projects = append(doc.Projects, p)
	}
	return doc
}

// WriteJSON writes the structured report for reps.
func WriteJSON(w io.Writer, reps []engine.Report, meta Meta) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildDocument(reps, meta))
}
