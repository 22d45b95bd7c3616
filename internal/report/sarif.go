package report

import (
	"encoding/json"
	"io"
	"path"
	"path/filepath"

	"github.com/deploylint/deploylint/internal/engine"
	"github.com/deploylint/deploylint/internal/rules"
	"github.com/deploylint/deploylint/internal/types"
)

const sarifSchema = "https://json.schemastore.org/sarif-2.1.0.json"

type sarif struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool       sarifTool      `json:"tool"`
	Results    []sarifResult  `json:"results"`
	Properties map[string]any `json:"properties,omitempty"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string        `json:"id"`
	ShortDescription sarifMessage  `json:"shortDescription"`
	Help             *sarifMessage `json:"help,omitempty"`
	DefaultConfig    sarifConfig   `json:"defaultConfiguration"`
}

type sarifConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string       `json:"ruleId"`
	RuleIndex int          `json:"ruleIndex"`
	Level     string       `json:"level"`
	Message   sarifMessage `json:"message"`
	Locations []sarifLoc   `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLoc struct {
	PhysicalLocation sarifPhys `json:"physicalLocation"`
}

type sarifPhys struct {
	ArtifactLocation sarifArt     `json:"artifactLocation"`
	Region           *sarifRegion `json:"region,omitempty"`
}

type sarifArt struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

func sevToLevel(s types.Severity) string {
	switch s {
	case types.SevError:
		return "error"
	case types.SevWarning:
		return "warning"
	default:
		return "note"
	}
}

// WriteSARIF writes the failing findings of reps as SARIF 2.1.0. Every
// rule of reg appears in the driver's rule table; results reference it by
// index. Artifact URIs join the project root and the finding's path.
func WriteSARIF(w io.Writer, reps []engine.Report, reg *rules.Registry, version string) error {
	if reg == nil {
		reg = rules.Default()
	}
	run := sarifRun{
		Tool:    sarifTool{Driver: sarifDriver{Name: "deploylint", Version: version}},
		Results: []sarifResult{},
	}
	index := map[string]int{}
	addRule := func(id string, sev types.Severity, summary, help string) int {
		if i, ok := index[id]; ok {
			return i
		}
		r := sarifRule{ID: id, ShortDescription: sarifMessage{Text: summary}, DefaultConfig: sarifConfig{Level: sevToLevel(sev)}}
		if help != "" {
			r.Help = &sarifMessage{Text: help}
		}
		run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, r)
		index[id] = len(run.Tool.Driver.Rules) - 1
		return index[id]
	}
	for _, r := range reg.All() {
		addRule(r.ID, r.Severity, r.Summary, r.Remediation)
	}

	var invalid, incomplete []string
	for _, rep := range reps {
		if rep.Invalid {
			invalid = append(invalid, rep.Root)
		}
		if rep.Incomplete {
			incomplete = append(incomplete, rep.Root)
		}
		for _, f := range Order(rep.Findings) {
			if !f.Failed() {
				continue
			}
			idx := addRule(f.Rule, f.Severity, f.Rule, f.Remediation)
			res := sarifResult{
				RuleID:    f.Rule,
				RuleIndex: idx,
				Level:     sevToLevel(f.Severity),
				Message:   sarifMessage{Text: f.Message},
			}
			if f.Path != "" {
				loc := sarifLoc{PhysicalLocation: sarifPhys{ArtifactLocation: sarifArt{URI: artifactURI(rep.Root, f.Path)}}}
				if f.Line > 0 {
					loc.PhysicalLocation.Region = &sarifRegion{StartLine: f.Line}
				}
				res.Locations = []sarifLoc{loc}
			}
			run.Results = append(run.Results, res)
		}
	}
	if len(invalid) > 0 || len(incomplete) > 0 {
		run.Properties = map[string]any{}
		if len(invalid) > 0 {
			run.Properties["invalidProjects"] = invalid
		}
		if len(incomplete) > 0 {
			run.Properties["incompleteProjects"] = incomplete
		}
	}

	doc := sarif{Schema: sarifSchema, Version: "2.1.0", Runs: []sarifRun{run}}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func artifactURI(root, p string) string {
	if root == "" || root == "." || filepath.IsAbs(p) {
		return filepath.ToSlash(p)
	}
	return path.Join(filepath.ToSlash(root), p)
}
