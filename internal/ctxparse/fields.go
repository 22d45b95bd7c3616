// Package ctxparse flattens small deployment manifests (Procfile, YAML,
// JSON and TOML) into key/value fields with line numbers.
package ctxparse

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	yaml "gopkg.in/yaml.v3"
)

// Field represents a simple key/value and the 1-based line number where the value appears.
type Field struct {
	Key   string
	Value string
	Line  int
	// Item is the index of the enclosing sequence element, or -1.
	Item int
}

// YAMLFields uses yaml.v3 which provides line numbers for nodes; we flatten simple scalars.
// Keys are dotted paths; sequence indexes are not part of the key but are
// reported in Item.
func YAMLFields(b []byte) []Field {
	var root yaml.Node
	if err := yaml.Unmarshal(b, &root); err != nil {
		return nil
	}
	var out []Field
	var walk func(n *yaml.Node, path []string, item int)
	walk = func(n *yaml.Node, path []string, item int) {
		switch n.Kind {
		case yaml.DocumentNode:
			for _, c := range n.Content {
				walk(c, path, item)
			}
		case yaml.MappingNode:
			for i := 0; i+1 < len(n.Content); i += 2 {
				walk(n.Content[i+1], append(append([]string{}, path...), n.Content[i].Value), item)
			}
		case yaml.SequenceNode:
			for i, c := range n.Content {
				walk(c, path, i)
			}
		case yaml.ScalarNode:
			if len(path) > 0 {
				out = append(out, Field{Key: strings.Join(path, "."), Value: n.Value, Line: n.Line, Item: item})
			}
		}
	}
	walk(&root, nil, -1)
	return out
}

// JSONFields validates b as JSON and flattens it like YAMLFields; JSON is
// decoded through yaml.v3 to keep line numbers. Invalid JSON returns nil.
func JSONFields(b []byte) []Field {
	if !json.Valid(b) {
		return nil
	}
	return YAMLFields(b)
}

// TOMLFields decodes b as TOML and flattens it like YAMLFields. Inline
// tables and multi-line strings decode like any other value. The decoder
// keeps no value positions, so lines are located by key in the source.
// Invalid TOML returns nil.
func TOMLFields(b []byte) []Field {
	var root map[string]any
	if _, err := toml.Decode(string(b), &root); err != nil {
		return nil
	}
	loc := tomlLocator{lines: strings.Split(string(b), "\n")}
	var out []Field
	var walk func(v any, path []string, item int)
	walk = func(v any, path []string, item int) {
		switch t := v.(type) {
		case map[string]any:
			for _, k := range slices.Sorted(maps.Keys(t)) {
				walk(t[k], append(append([]string{}, path...), k), item)
			}
		case []map[string]any:
			for i, m := range t {
				walk(m, path, i)
			}
		case []any:
			for i, e := range t {
				walk(e, path, i)
			}
		default:
			if len(path) == 0 {
				return
			}
			val := fmt.Sprint(t)
			out = append(out, Field{Key: strings.Join(path, "."), Value: val, Line: loc.line(path, val, item), Item: item})
		}
	}
	walk(root, nil, -1)
	return out
}

var tomlKeyLine = regexp.MustCompile(`^\s*(\[|[A-Za-z0-9_.\-"']+\s*=)`)

type tomlLocator struct {
	lines []string
}

// line returns the 1-based line of the key at path, searching from the
// header of its nearest enclosing table. Array items resolve to the line
// holding the item's value. Unknown positions return 0.
func (l tomlLocator) line(path []string, val string, item int) int {
	start := 0
	for n := len(path) - 1; n > 0; n-- {
		if i := l.header(strings.Join(path[:n], ".")); i >= 0 {
			start = i
			break
		}
	}
	leaf := regexp.MustCompile(`(^|[\s{,.])["']?` + regexp.QuoteMeta(path[len(path)-1]) + `["']?\s*=`)
	for i := start; i < len(l.lines); i++ {
		if !leaf.MatchString(l.lines[i]) {
			continue
		}
		if item < 0 {
			return i + 1
		}
		for j := i; j < len(l.lines); j++ {
			if strings.Contains(l.lines[j], val) {
				return j + 1
			}
			if j > i && tomlKeyLine.MatchString(l.lines[j]) {
				break
			}
		}
		return i + 1
	}
	return 0
}

func (l tomlLocator) header(name string) int {
	for i, ln := range l.lines {
		t := strings.TrimSpace(ln)
		if t == "["+name+"]" || t == "[["+name+"]]" {
			return i
		}
	}
	return -1
}

// ProcfileFields reads `process: command` lines.
func ProcfileFields(b []byte) []Field {
	var out []Field
	sc := bufio.NewScanner(bytes.NewReader(b))
	line := 0
	for sc.Scan() {
		line++
		t := strings.TrimSpace(sc.Text())
		if t == "" || strings.HasPrefix(t, "#") {
			continue
		}
		k, v, ok := strings.Cut(t, ":")
		if !ok || strings.ContainsAny(k, " \t") {
			continue
		}
		out = append(out, Field{Key: k, Value: strings.TrimSpace(v), Line: line, Item: -1})
	}
	return out
}
