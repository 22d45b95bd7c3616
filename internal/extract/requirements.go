package extract

import (
	"bufio"
	"bytes"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/blang/semver/v4"

	"github.com/deploylint/deploylint/internal/ctxparse"
	"github.com/deploylint/deploylint/internal/snapshot"
	"github.com/deploylint/deploylint/internal/types"
)

// RequirementFiles are dependency manifests that may pin the framework.
var RequirementFiles = []string{"requirements.txt", "requirements/*.txt", "requirements-*.txt", "Pipfile", "pyproject.toml"}

var requirementPatterns = map[types.Framework]*regexp.Regexp{
	types.FrameworkDjango: requirementPattern("django"),
	types.FrameworkFlask:  requirementPattern("flask"),
}

// requirementPattern matches pip and PEP 508 spellings of a pinned
// package, capturing operator and version.
func requirementPattern(pkg string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|["'\s])` + pkg +
		`\s*(?:\[[^\]]*\])?\s*(===|==|~=|>=|\^|~)?\s*v?([0-9]+(?:\.[0-9]+){0,2})`)
}

// versionSpec matches a bare Pipfile or Poetry constraint such as "==4.2"
// or "^4.2".
var versionSpec = regexp.MustCompile(`^\s*(===|==|~=|>=|\^|~)?\s*v?([0-9]+(?:\.[0-9]+){0,2})`)

// frameworkVersion returns the lowest version the manifest allows, as a
// semver string. Upper bounds alone do not pin a version.
func frameworkVersion(fw types.Framework, path string, data []byte) (snapshot.Value, bool) {
	re, ok := requirementPatterns[fw]
	if !ok {
		return snapshot.Value{}, false
	}
	switch strings.ToLower(filepath.Base(path)) {
	case "pipfile", "pyproject.toml":
		return manifestVersion(fw, re, path, data)
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for sc.Scan() {
		line++
		t := sc.Text()
		if i := strings.Index(t, "#"); i >= 0 {
			t = t[:i]
		}
		if v, ok := pinnedVersion(re.FindStringSubmatch(t), t, path, line); ok {
			return v, true
		}
	}
	return snapshot.Value{}, false
}

// manifestVersion reads the framework pin of a Pipfile (`[packages]`), a
// Poetry pyproject (`[tool.poetry.dependencies]`) or a PEP 621 pyproject
// (`[project] dependencies`).
func manifestVersion(fw types.Framework, re *regexp.Regexp, path string, data []byte) (snapshot.Value, bool) {
	pkg := string(fw)
	for _, f := range ctxparse.TOMLFields(data) {
		var m []string
		switch strings.ToLower(f.Key) {
		case "packages." + pkg, "packages." + pkg + ".version",
			"tool.poetry.dependencies." + pkg, "tool.poetry.dependencies." + pkg + ".version":
			m = versionSpec.FindStringSubmatch(f.Value)
		case "project.dependencies":
			m = re.FindStringSubmatch(f.Value)
		}
		if v, ok := pinnedVersion(m, f.Value, path, f.Line); ok {
			return v, true
		}
	}
	return snapshot.Value{}, false
}

func pinnedVersion(m []string, raw, path string, line int) (snapshot.Value, bool) {
	if m == nil {
		return snapshot.Value{}, false
	}
	ver, err := semver.ParseTolerant(m[2])
	if err != nil {
		return snapshot.Value{}, false
	}
	v := snapshot.String(ver.String())
	v.Raw = strings.TrimSpace(raw)
	return v.WithOrigin(snapshot.Origin{Path: path, Line: line}), true
}
