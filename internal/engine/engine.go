package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deploylint/deploylint/internal/extract"
	"github.com/deploylint/deploylint/internal/rules"
	"github.com/deploylint/deploylint/internal/snapshot"
	"github.com/deploylint/deploylint/internal/types"
)

// Config controls discovery, detection and evaluation for one project.
type Config struct {
	Root            string
	Framework       types.Framework // override; FrameworkUnknown means detect
	IncludeGlobs    string
	ExcludeGlobs    string
	MaxBytes        int64
	DefaultExcludes bool
	Threads         int
	Rules           rules.Filter
	// Registry defaults to rules.Default().
	Registry *rules.Registry
	Logger   *slog.Logger
}

// FrameworkDetectedRule is the rule name of the finding emitted when no
// framework could be detected.
const FrameworkDetectedRule = "framework_detected"

// Report is the result of checking one project.
type Report struct {
	Root      string          `json:"root"`
	Framework types.Framework `json:"framework"`
	// Findings are in Rule Set order.
	Findings    []types.Finding `json:"findings"`
	Notices     []string        `json:"notices,omitempty"`
	Sources     []string        `json:"sources,omitempty"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	// Incomplete is set when the run was interrupted before this project
	// finished.
	Incomplete bool `json:"incomplete,omitempty"`
	// Invalid is set when the project could not be checked at all: its root
	// is inaccessible or no framework was detected.
	Invalid  bool          `json:"invalid,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`

	err error
}

// Err returns the error that made the report invalid or incomplete.
func (r Report) Err() error { return r.err }

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c Config) registry() *rules.Registry {
	if c.Registry != nil {
		return c.Registry
	}
	return rules.Default()
}

func (c Config) threads() int {
	if c.Threads > 0 {
		return c.Threads
	}
	return runtime.GOMAXPROCS(0)
}

// CheckProject runs detection, extraction and evaluation for cfg.Root.
func CheckProject(ctx context.Context, cfg Config) Report {
	started := time.Now()
	log := cfg.logger().With("root", cfg.Root)
	rep := Report{Root: cfg.Root, Framework: cfg.Framework}
	finish := func() Report {
		rep.Duration = time.Since(started)
		if rep.err != nil {
			rep.Error = rep.err.Error()
		}
		return rep
	}

	if info, err := os.Stat(cfg.Root); err != nil || !info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is not a directory", cfg.Root)
		}
		rep.Invalid, rep.err = true, fmt.Errorf("cannot access project root: %w", err)
		return finish()
	}

	inv, err := Walk(ctx, cfg)
	if err != nil {
		if ctx.Err() != nil {
			rep.Incomplete, rep.err = true, ctx.Err()
		} else {
			rep.Invalid, rep.err = true, fmt.Errorf("walk %s: %w", cfg.Root, err)
		}
		return finish()
	}
	log.Debug("discovered", "python", len(inv.python), "entry_points", inv.entryPoints, "requirements", inv.requirements)

	det, err := detect(cfg.Root, inv, cfg.Framework)
	if err != nil {
		var de *DetectionError
		if errors.As(err, &de) {
			log.Debug("framework not detected")
			rep.Invalid, rep.err = true, err
			rep.Findings = []types.Finding{{
				Rule:        FrameworkDetectedRule,
				Severity:    types.SevError,
				Outcome:     types.OutcomeFail,
				Message:     de.Error(),
				Remediation: "Point deploylint at the project root, or pass --framework django|flask.",
			}}
		}
		return finish()
	}
	rep.Framework = det.framework
	log.Debug("framework detected", "framework", det.framework, "settings", det.settings)

	if err := ctx.Err(); err != nil {
		rep.Incomplete, rep.err = true, err
		return finish()
	}

	snap := extract.New(det.framework, log).Project(extract.Input{
		Root:         cfg.Root,
		Settings:     det.settings,
		EntryPoints:  inv.entryPoints,
		Requirements: inv.requirements,
		AppModules:   det.appModules,
	})
	log.Debug("snapshot extracted", "fingerprint", snap.Fingerprint(), "values", snap.String())
	rep.Notices = snap.Notices()
	for _, s := range snap.Sources() {
		rep.Sources = append(rep.Sources, s.Path)
	}
	rep.Fingerprint = snap.Fingerprint()

	set := cfg.registry().Set(det.framework, cfg.Rules)
	findings, err := Evaluate(ctx, set, snap, cfg.threads(), log)
	rep.Findings = findings
	if err != nil {
		rep.Incomplete, rep.err = true, err
	}
	return finish()
}

// Evaluate applies every rule in set to snap concurrently. Findings are
// returned in set order. Panicking rules become failing findings; only
// context cancellation returns an error.
func Evaluate(ctx context.Context, set []rules.Rule, snap snapshot.Snapshot, threads int, log *slog.Logger) ([]types.Finding, error) {
	if log == nil {
		log = slog.Default()
	}
	out := make([]types.Finding, len(set))
	g, gctx := errgroup.WithContext(ctx)
	if threads > 0 {
		g.SetLimit(threads)
	}
	for i, r := range set {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := rules.Run(r, snap)
			if err != nil {
				var ee *rules.EvaluationError
				if errors.As(err, &ee) {
					log.Error("rule panicked", "rule", ee.Rule, "cause", ee.Cause, "stack", string(ee.Stack))
				}
			}
			log.Debug("rule evaluated", "rule", r.ID, "outcome", f.Outcome)
			out[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var done []types.Finding
		for _, f := range out {
			if f.Rule != "" {
				done = append(done, f)
			}
		}
		return done, err
	}
	return out, nil
}

// CheckAll checks every root concurrently, at most threads at a time.
// Reports are returned in argument order. Projects that had not finished when
// ctx was cancelled are marked incomplete.
func CheckAll(ctx context.Context, base Config, roots []string) []Report {
	reports := make([]Report, len(roots))
	finished := make([]bool, len(roots))
	var g errgroup.Group
	g.SetLimit(base.threads())
	for i, root := range roots {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			cfg := base
			cfg.Root = root
			reports[i] = CheckProject(ctx, cfg)
			finished[i] = true
			return nil
		})
	}
	_ = g.Wait()
	for i, root := range roots {
		if !finished[i] {
			reports[i] = Report{Root: root, Framework: base.Framework, Incomplete: true, err: ctx.Err()}
			if ctx.Err() != nil {
				reports[i].Error = ctx.Err().Error()
			}
		}
	}
	return reports
}
