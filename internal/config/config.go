package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no config file exists at the searched
// locations.
var ErrNotFound = errors.New("no config file")

// LocalNames are the project-local config file names, in search order.
var LocalNames = []string{".deploylint.yml", ".deploylint.yaml", "deploylint.yml", "deploylint.yaml"}

// FileConfig is the on-disk YAML configuration shape for deploylint. Nil
// fields are unset and fall through to the next layer.
type FileConfig struct {
	Framework       *string    `yaml:"framework,omitempty"`
	FailOn          *string    `yaml:"fail_on,omitempty"`
	Format          *string    `yaml:"format,omitempty"`
	Enable          StringList `yaml:"enable,omitempty"`
	Disable         StringList `yaml:"disable,omitempty"`
	Threads         *int       `yaml:"threads,omitempty"`
	NoColor         *bool      `yaml:"no_color,omitempty"`
	Include         *string    `yaml:"include,omitempty"`
	Exclude         *string    `yaml:"exclude,omitempty"`
	MaxBytes        *int64     `yaml:"max_bytes,omitempty"`
	DefaultExcludes *bool      `yaml:"default_excludes,omitempty"`
	SaveLast        *bool      `yaml:"save_last,omitempty"`
}

// StringList accepts either a YAML sequence or a comma-separated scalar.
type StringList []string

func (l *StringList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var s string
		if err := n.Decode(&s); err != nil {
			return err
		}
		*l = splitList(s)
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := n.Decode(&items); err != nil {
			return err
		}
		*l = splitList(strings.Join(items, ","))
		return nil
	}
	return fmt.Errorf("line %d: expected a list or comma-separated string", n.Line)
}

func splitList(s string) StringList {
	var out StringList
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadFile reads a YAML config file from the provided path. Unknown keys
// are rejected so typos do not silently disable a setting.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LocalPath returns the first project-local config file in root.
func LocalPath(root string) (string, bool) {
	for _, name := range LocalNames {
		p := filepath.Join(root, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}

// LoadLocal searches for a project-local config file in the given root.
func LoadLocal(root string) (FileConfig, error) {
	p, ok := LocalPath(root)
	if !ok {
		return FileConfig{}, ErrNotFound
	}
	return LoadFile(p)
}

// GlobalPath returns $XDG_CONFIG_HOME/deploylint/config.yml, falling back to
// ~/.config.
func GlobalPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		return "", errors.New("no config dir")
	}
	return filepath.Join(base, "deploylint", "config.yml"), nil
}

// LoadGlobal loads the global config file.
func LoadGlobal() (FileConfig, error) {
	p, err := GlobalPath()
	if err != nil {
		return FileConfig{}, ErrNotFound
	}
	if _, err := os.Stat(p); err != nil {
		return FileConfig{}, ErrNotFound
	}
	return LoadFile(p)
}

// Merge layers over onto base: every field set in over wins.
func Merge(base, over FileConfig) FileConfig {
	out := base
	if over.Framework != nil {
		out.Framework = over.Framework
	}
	if over.FailOn != nil {
		out.FailOn = over.FailOn
	}
	if over.Format != nil {
		out.Format = over.Format
	}
	if over.Enable != nil {
		out.Enable = over.Enable
	}
	if over.Disable != nil {
		out.Disable = over.Disable
	}
	if over.Threads != nil {
		out.Threads = over.Threads
	}
	if over.NoColor != nil {
		out.NoColor = over.NoColor
	}
	if over.Include != nil {
		out.Include = over.Include
	}
	if over.Exclude != nil {
		out.Exclude = over.Exclude
	}
	if over.MaxBytes != nil {
		out.MaxBytes = over.MaxBytes
	}
	if over.DefaultExcludes != nil {
		out.DefaultExcludes = over.DefaultExcludes
	}
	if over.SaveLast != nil {
		out.SaveLast = over.SaveLast
	}
	return out
}

// Load returns the global config with the project-local config of root
// layered on top. Missing files are not errors; malformed ones are.
func Load(root string) (FileConfig, error) {
	global, err := LoadGlobal()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return FileConfig{}, err
	}
	local, err := LoadLocal(root)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return FileConfig{}, err
	}
	return Merge(global, local), nil
}

// Write marshals cfg to path.
func Write(path string, cfg FileConfig) error {
	b, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
