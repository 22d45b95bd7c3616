package core

import (
	"encoding/json"
	"io"
)

// MarshalReports pretty-prints reports as JSON for humans or pipelines.
func MarshalReports(w io.Writer, reps []ProjectReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reps)
}

// UnmarshalReports decodes reports JSON, useful for ingestion tests.
func UnmarshalReports(r io.Reader) ([]ProjectReport, error) {
	var reps []ProjectReport
	if err := json.NewDecoder(r).Decode(&reps); err != nil {
		return nil, err
	}
	return reps, nil
}

// MarshalFindings pretty-prints findings as JSON.
func MarshalFindings(w io.Writer, findings []Finding) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(findings)
}
