// Package extract turns configuration sources into snapshots. Sources are
// parsed structurally and reduced by a restricted literal evaluator; nothing
// is ever imported or executed.
package extract

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/deploylint/deploylint/internal/pysrc"
	"github.com/deploylint/deploylint/internal/snapshot"
	"github.com/deploylint/deploylint/internal/types"
)

// ParseError reports a configuration source that could not be structurally
// parsed. It is recovered locally: the source contributes no keys.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse %s: %v", e.Path, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// Input lists the files of one project the extractor reads. Paths are
// absolute or relative to Root; missing files are skipped.
type Input struct {
	Root         string
	Settings     []string
	EntryPoints  []string
	Requirements []string
	// AppModules are dotted names of the modules that construct the Flask
	// application, so runner scripts importing the app are read too.
	AppModules []string
}

// Extractor builds snapshots for one framework.
type Extractor struct {
	adapter adapter
	log     *slog.Logger
}

// New returns an extractor for fw. Unknown frameworks extract nothing.
func New(fw types.Framework, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{adapter: adapterFor(fw), log: log}
}

// Source extracts a snapshot from a single configuration source. A
// structural failure yields an all-absent snapshot plus a *ParseError.
func (x *Extractor) Source(path string, data []byte) (snapshot.Snapshot, error) {
	b := snapshot.NewBuilder(x.adapter.framework())
	err := x.applySettings(x.adapter, b, path, data)
	return b.Build(), err
}

// Project extracts a snapshot from every file named by in. Missing files
// are not errors; a project with no readable source yields a snapshot with
// no sources, which the configuration_found rule reports.
func (x *Extractor) Project(in Input) snapshot.Snapshot {
	b := snapshot.NewBuilder(x.adapter.framework())
	ad := x.adapter
	if fa, ok := ad.(flaskAdapter); ok {
		fa.appModules = in.AppModules
		ad = fa
	}
	for _, p := range in.Settings {
		data, ok := x.read(in.Root, p)
		if !ok {
			continue
		}
		if err := x.applySettings(ad, b, p, data); err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				b.Notice(fmt.Sprintf("could not parse %s (%v); its settings are treated as absent", pe.Path, pe.Err))
			}
			x.log.Warn("settings source skipped", "path", p, "err", err)
		}
	}
	for _, p := range in.EntryPoints {
		data, ok := x.read(in.Root, p)
		if !ok {
			continue
		}
		b.AddSource(p, data)
		if v, ok := entryServerMode(p, data); ok {
			x.log.Debug("entry point", "path", p, "mode", v.Str, "command", v.Raw)
			b.Set(snapshot.ServerMode, v)
		}
	}
	for _, p := range in.Requirements {
		data, ok := x.read(in.Root, p)
		if !ok {
			continue
		}
		if v, ok := frameworkVersion(x.adapter.framework(), p, data); ok {
			b.AddSource(p, data)
			b.Set(snapshot.FrameworkVersion, v)
		}
	}
	return b.Build()
}

func (x *Extractor) read(root, p string) ([]byte, bool) {
	full := p
	if root != "" && !filepath.IsAbs(p) {
		full = filepath.Join(root, p)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			x.log.Warn("cannot read configuration source", "path", full, "err", err)
		}
		return nil, false
	}
	return data, true
}

func (x *Extractor) applySettings(ad adapter, b *snapshot.Builder, path string, data []byte) error {
	b.AddSource(path, data)
	if looksBinary(data) {
		return &ParseError{Path: path, Err: errors.New("binary content")}
	}
	mod, err := pysrc.Parse(path, string(data))
	if err != nil {
		return &ParseError{Path: path, Err: err}
	}
	if mod.Skipped > 0 {
		x.log.Debug("unparseable statements ignored", "path", path, "count", mod.Skipped)
	}
	ad.apply(b, mod)
	return nil
}

func looksBinary(b []byte) bool {
	n := len(b)
	if n > 800 {
		n = 800
	}
	for i := 0; i < n; i++ {
		if b[i] == 0 {
			return true
		}
	}
	return false
}

// statement is a module-level assignment or call in source order.
type statement struct {
	line   int
	assign *pysrc.Assign
	call   *pysrc.CallSite
}

// orderedStatements merges assignments and statement calls that run at
// import time (top level, or inside if/else/try blocks) by line.
func orderedStatements(mod *pysrc.Module) []statement {
	var out []statement
	for i := range mod.Assigns {
		a := &mod.Assigns[i]
		if importTime(a.Scope) {
			out = append(out, statement{line: a.Line, assign: a})
		}
	}
	for i := range mod.Calls {
		c := &mod.Calls[i]
		if c.Statement && importTime(c.Scope) {
			out = append(out, statement{line: c.Line, call: c})
		}
	}
	sortStatements(out)
	return out
}

func sortStatements(sts []statement) {
	sort.SliceStable(sts, func(i, j int) bool { return sts[i].line < sts[j].line })
}

func importTime(s pysrc.Scope) bool {
	for _, g := range s {
		switch g.Kind {
		case "if", "else", "try":
		default:
			return false
		}
	}
	return true
}
