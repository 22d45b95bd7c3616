package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/deploylint/deploylint/internal/engine"
	"github.com/deploylint/deploylint/internal/files"
	"github.com/deploylint/deploylint/internal/git"
	"github.com/deploylint/deploylint/internal/snapshot"
)

// FileName is the name of the last-report file.
const FileName = ".deploylint_last.json"

// LastReport is the saved result of the most recent check of a project.
type LastReport struct {
	Report    engine.Report `json:"report"`
	Timestamp time.Time     `json:"timestamp"`
	Version   string        `json:"version,omitempty"`
}

// Path returns where the last report of root is stored. It prefers the
// enclosing repository's .git directory to avoid accidental commits and
// falls back to the project root.
func Path(root string) string {
	if dir := git.Dir(root); dir != "" {
		abs, err := filepath.Abs(root)
		if err == nil && filepath.Dir(dir) == abs {
			return filepath.Join(dir, "deploylint_last.json")
		}
		// nested project: key the file by its path inside the work tree
		if rel, err := filepath.Rel(filepath.Dir(dir), abs); err == nil {
			return filepath.Join(dir, "deploylint_last."+safeName(rel)+".json")
		}
	}
	return filepath.Join(root, FileName)
}

func safeName(rel string) string {
	b := []byte(filepath.ToSlash(rel))
	for i, c := range b {
		if c == '/' || c == '\\' || c == ' ' {
			b[i] = '_'
		}
	}
	return string(b)
}

// Save stores rep as the last report of its project. When the file lands in
// the project root it is added to .gitignore.
func Save(rep engine.Report, version string) (string, error) {
	p := Path(rep.Root)
	b, err := json.MarshalIndent(LastReport{Report: rep, Timestamp: time.Now().UTC(), Version: version}, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(p, b, 0o644); err != nil {
		return "", fmt.Errorf("save last report: %w", err)
	}
	if filepath.Base(p) == FileName {
		if err := files.AppendIgnore(rep.Root, FileName); err != nil {
			return p, fmt.Errorf("update .gitignore: %w", err)
		}
	}
	return p, nil
}

// Load reads the last report saved for root.
func Load(root string) (LastReport, error) {
	var last LastReport
	b, err := os.ReadFile(Path(root))
	if err != nil {
		return last, err
	}
	if err := json.Unmarshal(b, &last); err != nil {
		return last, fmt.Errorf("decode last report: %w", err)
	}
	return last, nil
}

// Stale reports whether the configuration sources recorded in last have
// changed on disk since it was saved.
func Stale(root string, last LastReport) bool {
	if last.Report.Fingerprint == "" {
		return false
	}
	var srcs []snapshot.Source
	for _, p := range last.Report.Sources {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(p)))
		if err != nil {
			return true
		}
		srcs = append(srcs, snapshot.NewSource(p, data))
	}
	return snapshot.Fingerprint(srcs) != last.Report.Fingerprint
}
