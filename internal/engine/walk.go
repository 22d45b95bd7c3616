package engine

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"

	"github.com/deploylint/deploylint/internal/extract"
)

// inventory is the set of candidate files discovered under a project root.
// Paths are relative to the root, slash separated.
type inventory struct {
	python       []string
	entryPoints  []string
	requirements []string
	hasManage    bool
}

// Walk traverses the project tree and returns the files relevant to
// detection and extraction.
func Walk(ctx context.Context, cfg Config) (inventory, error) {
	var inv inventory
	entryNames := map[string]bool{}
	for _, n := range extract.EntryPointFiles {
		entryNames[strings.ToLower(n)] = true
	}
	err := filepath.WalkDir(cfg.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == cfg.Root {
				return err
			}
			return nil
		}
		if ctx != nil {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
		}
		if d.IsDir() {
			if p != cfg.Root && cfg.DefaultExcludes && isDefaultDirExcluded(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, _ := filepath.Rel(cfg.Root, p)
		rel = filepath.ToSlash(rel)
		if !allowedByGlobs(rel, cfg) {
			return nil
		}
		if info, _ := d.Info(); info != nil && cfg.MaxBytes > 0 && info.Size() > cfg.MaxBytes {
			return nil
		}
		depth := strings.Count(rel, "/")
		base := d.Name()
		switch {
		case strings.HasSuffix(base, ".py"):
			inv.python = append(inv.python, rel)
			if base == "manage.py" {
				inv.hasManage = true
			}
		case depth == 0 && entryNames[strings.ToLower(base)]:
			inv.entryPoints = append(inv.entryPoints, rel)
		}
		if isRequirementFile(rel) {
			inv.requirements = append(inv.requirements, rel)
		}
		return nil
	})
	sort.Strings(inv.python)
	sort.Strings(inv.entryPoints)
	sort.Strings(inv.requirements)
	return inv, err
}

func isRequirementFile(rel string) bool {
	for _, pat := range extract.RequirementFiles {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}
