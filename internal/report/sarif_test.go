package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploylint/deploylint/internal/engine"
	"github.com/deploylint/deploylint/internal/rules"
	"github.com/deploylint/deploylint/internal/types"
)

type sarifDoc struct {
	Version string `json:"version"`
	Runs    []struct {
		Properties map[string]any `json:"properties"`
		Tool       struct {
			Driver struct {
				Name  string `json:"name"`
				Rules []struct {
					ID string `json:"id"`
				} `json:"rules"`
			} `json:"driver"`
		} `json:"tool"`
		Results []struct {
			RuleID    string `json:"ruleId"`
			RuleIndex int    `json:"ruleIndex"`
			Level     string `json:"level"`
			Locations []struct {
				PhysicalLocation struct {
					ArtifactLocation struct {
						URI string `json:"uri"`
					} `json:"artifactLocation"`
					Region *struct {
						StartLine int `json:"startLine"`
					} `json:"region"`
				} `json:"physicalLocation"`
			} `json:"locations"`
		} `json:"results"`
	} `json:"runs"`
}

func TestWriteSARIF_FailuresOnly(t *testing.T) {
	reps := []engine.Report{{
		Root:      "shop",
		Framework: types.FrameworkDjango,
		Findings: []types.Finding{
			{Rule: "configuration_found", Severity: types.SevError, Outcome: types.OutcomePass, Passed: true},
			{Rule: "csrf_trusted_origins_present", Severity: types.SevWarning, Outcome: types.OutcomeFail, Message: "m1"},
			{Rule: "debug_disabled", Severity: types.SevError, Outcome: types.OutcomeFail, Message: "m2", Path: "shop/settings.py", Line: 8},
		},
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteSARIF(&buf, reps, rules.Default(), "1.2.3"))

	var doc sarifDoc
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "2.1.0", doc.Version)
	require.Len(t, doc.Runs, 1)
	run := doc.Runs[0]
	assert.Equal(t, "deploylint", run.Tool.Driver.Name)
	assert.Len(t, run.Tool.Driver.Rules, len(rules.Default().All()))

	require.Len(t, run.Results, 2)
	// error before warning
	first := run.Results[0]
	assert.Equal(t, "debug_disabled", first.RuleID)
	assert.Equal(t, "error", first.Level)
	assert.Equal(t, "debug_disabled", run.Tool.Driver.Rules[first.RuleIndex].ID)
	require.Len(t, first.Locations, 1)
	assert.Equal(t, "shop/shop/settings.py", first.Locations[0].PhysicalLocation.ArtifactLocation.URI)
	assert.Equal(t, 8, first.Locations[0].PhysicalLocation.Region.StartLine)

	second := run.Results[1]
	assert.Equal(t, "warning", second.Level)
	assert.Empty(t, second.Locations)
	assert.Nil(t, run.Properties)
}

func TestWriteSARIF_DetectionFailure(t *testing.T) {
	reps := []engine.Report{{
		Root:    "empty",
		Invalid: true,
		Findings: []types.Finding{{
			Rule: engine.FrameworkDetectedRule, Severity: types.SevError, Outcome: types.OutcomeFail, Message: "no framework",
		}},
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteSARIF(&buf, reps, nil, "dev"))
	var doc sarifDoc
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	run := doc.Runs[0]
	require.Len(t, run.Results, 1)
	assert.Equal(t, engine.FrameworkDetectedRule, run.Tool.Driver.Rules[run.Results[0].RuleIndex].ID)
	assert.Equal(t, []any{"empty"}, run.Properties["invalidProjects"])
}

func TestWriteSARIF_EmptyResultsIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSARIF(&buf, nil, nil, "dev"))
	assert.Contains(t, buf.String(), `"results": []`)
}
