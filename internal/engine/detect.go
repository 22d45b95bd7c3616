package engine

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/deploylint/deploylint/internal/extract"
	"github.com/deploylint/deploylint/internal/pysrc"
	"github.com/deploylint/deploylint/internal/types"
)

// DetectionError reports a project whose framework could not be determined.
type DetectionError struct {
	Root string
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("no supported framework detected in %s (looked for a Django settings module, manage.py, or a Flask(...) app)", e.Root)
}

// djangoMarkers are settings a Django settings module assigns.
var djangoMarkers = []string{"INSTALLED_APPS", "ROOT_URLCONF", "MIDDLEWARE"}

// detection is the outcome of framework detection for one project.
type detection struct {
	framework types.Framework
	settings  []string
	// appModules are the dotted names of Flask app modules.
	appModules []string
}

// detect picks the project's framework and the Python sources its adapter
// reads. Django wins when both shapes are present. An override skips
// detection but still selects that framework's sources.
func detect(root string, inv inventory, override types.Framework) (detection, error) {
	if override == types.FrameworkUnknown || override == types.FrameworkDjango {
		if settings := djangoSettings(root, inv.python); len(settings) > 0 || inv.hasManage || override == types.FrameworkDjango {
			return detection{framework: types.FrameworkDjango, settings: settings}, nil
		}
	}
	if override == types.FrameworkUnknown || override == types.FrameworkFlask {
		if apps, mods := flaskModules(root, inv.python); len(apps) > 0 || override == types.FrameworkFlask {
			return detection{framework: types.FrameworkFlask, settings: apps, appModules: mods}, nil
		}
	}
	return detection{}, &DetectionError{Root: root}
}

// djangoSettings returns settings modules in the order they are applied:
// shared bases first, then environment-specific modules, production last.
// Local and test modules are skipped when a production module exists.
func djangoSettings(root string, python []string) []string {
	var found []string
	for _, rel := range python {
		if !isSettingsPath(rel) {
			continue
		}
		if isSettingsPackageMember(rel) {
			found = append(found, rel)
			continue
		}
		data, ok := readIfContains(root, rel, djangoMarkers...)
		if !ok {
			continue
		}
		// an unparseable settings.py is still the settings module; extraction
		// reports the parse error
		mod, err := pysrc.Parse(rel, string(data))
		if err != nil || assignsAny(mod, djangoMarkers) {
			found = append(found, rel)
		}
	}
	hasProd := false
	for _, rel := range found {
		if settingsRank(rel) == 3 {
			hasProd = true
		}
	}
	var out []string
	for _, rel := range found {
		if hasProd && settingsRank(rel) == 1 {
			continue
		}
		out = append(out, rel)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := settingsRank(out[i]), settingsRank(out[j])
		if ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	return out
}

func isSettingsPath(rel string) bool {
	return path.Base(rel) == "settings.py" || isSettingsPackageMember(rel)
}

func isSettingsPackageMember(rel string) bool {
	return path.Base(path.Dir(rel)) == "settings" && path.Base(rel) != "__init__.py"
}

// settingsRank orders settings modules: 0 base, 1 local/test, 2 other,
// 3 production.
func settingsRank(rel string) int {
	name := strings.TrimSuffix(path.Base(rel), ".py")
	switch name {
	case "settings", "base", "common", "defaults":
		return 0
	case "local", "dev", "development", "test", "tests", "testing", "ci":
		return 1
	case "production", "prod", "live", "deploy":
		return 3
	}
	return 2
}

// flaskModules returns the modules that construct a Flask app followed by
// runner scripts that import one and call run(), plus the app modules'
// dotted names.
func flaskModules(root string, python []string) ([]string, []string) {
	var apps, names []string
	isApp := map[string]bool{}
	for _, rel := range python {
		data, ok := readIfContains(root, rel, "Flask(")
		if !ok {
			continue
		}
		if mod, err := pysrc.Parse(rel, string(data)); err == nil && extract.HasFlaskApp(mod) {
			apps = append(apps, rel)
			names = append(names, extract.ModuleName(rel))
			isApp[rel] = true
		}
	}
	if len(apps) == 0 {
		return nil, nil
	}
	out := apps
	for _, rel := range python {
		if isApp[rel] {
			continue
		}
		data, ok := readIfContains(root, rel, ".run(")
		if !ok {
			continue
		}
		if mod, err := pysrc.Parse(rel, string(data)); err == nil && extract.ImportsFlaskApp(mod, names) {
			out = append(out, rel)
		}
	}
	return out, names
}

// readIfContains returns rel's content when it mentions one of needles.
func readIfContains(root, rel string, needles ...string) ([]byte, bool) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, false
	}
	for _, n := range needles {
		if bytes.Contains(data, []byte(n)) {
			return data, true
		}
	}
	return nil, false
}

func assignsAny(mod *pysrc.Module, names []string) bool {
	for _, a := range mod.Assigns {
		for _, t := range a.Targets {
			for _, n := range names {
				if pysrc.DottedName(t) == n {
					return true
				}
			}
		}
	}
	return false
}
