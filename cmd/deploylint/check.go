package deploylint

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/deploylint/deploylint/internal/cache"
	"github.com/deploylint/deploylint/internal/config"
	"github.com/deploylint/deploylint/internal/engine"
	"github.com/deploylint/deploylint/internal/report"
	"github.com/deploylint/deploylint/internal/rules"
	"github.com/deploylint/deploylint/internal/types"
)

var (
	flagFramework       string
	flagFormat          string
	flagEnable          string
	flagDisable         string
	flagInclude         string
	flagExclude         string
	flagMaxBytes        int64
	flagDefaultExcludes bool
	flagQuiet           bool
	flagSaveLast        bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Check one or more projects for deployment readiness",
		Long: "check detects the framework of each project, extracts its deployment-relevant settings " +
			"and evaluates the rule set. Exit status is 0 when no failing rule is at or above --fail-on, " +
			"1 otherwise, and 2 when a project could not be checked.",
		Example: `  deploylint check
  deploylint check ./backend --fail-on warning
  deploylint check svc-a svc-b --format sarif > deploylint.sarif`,
		RunE: runCheck,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVar(&flagFramework, "framework", "", "skip detection and check as django|flask")
	cmd.Flags().StringVar(&flagFormat, "format", "", "output format: text|table|structured|json|sarif (default text)")
	cmd.Flags().StringVar(&flagEnable, "enable", "", "only run these rules (comma-separated IDs)")
	cmd.Flags().StringVar(&flagDisable, "disable", "", "skip these rules (comma-separated IDs)")
	cmd.Flags().StringVar(&flagInclude, "include", "", "comma-separated include globs")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "comma-separated exclude globs")
	cmd.Flags().Int64Var(&flagMaxBytes, "max-bytes", 0, "skip files larger than this (default 1MiB)")
	cmd.Flags().BoolVar(&flagDefaultExcludes, "default-excludes", true, "skip virtualenvs, caches, migrations and build output")
	cmd.Flags().BoolVarP(&flagQuiet, "quiet", "q", false, "only print failing rules")
	cmd.Flags().BoolVar(&flagSaveLast, "save-last", false, "save each report for `deploylint last`")
}

func runCheck(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"."}
	}
	roots := make([]string, len(args))
	for i, a := range args {
		roots[i] = filepath.Clean(a)
	}
	// Load configs: CLI > local > global. The local file is read from the
	// first project.
	fc, err := config.Load(roots[0])
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	flags := cmd.Flags()

	format, err := parseFormat(pickString(flagFormat, fc.Format, "text"))
	if err != nil {
		return err
	}
	failOn, err := parseFailOn(pickString(flagFailOn, fc.FailOn, ""))
	if err != nil {
		return err
	}
	fw := types.FrameworkUnknown
	if s := pickString(flagFramework, fc.Framework, ""); s != "" {
		var ok bool
		if fw, ok = types.ParseFramework(s); !ok {
			return fmt.Errorf("unknown --framework %q (want django|flask)", s)
		}
	}
	filter := rules.Filter{
		Enable:  pickList(flagEnable, fc.Enable),
		Disable: pickList(flagDisable, fc.Disable),
	}
	reg := rules.Default()
	if err := reg.Validate(filter); err != nil {
		return err
	}

	cfg := engine.Config{
		Framework:       fw,
		IncludeGlobs:    pickString(flagInclude, fc.Include, ""),
		ExcludeGlobs:    pickString(flagExclude, fc.Exclude, ""),
		MaxBytes:        pickInt64(flagMaxBytes, fc.MaxBytes, 1<<20),
		DefaultExcludes: pickBool(flagDefaultExcludes, flags.Changed("default-excludes"), fc.DefaultExcludes, true),
		Threads:         pickInt(flagThreads, fc.Threads),
		Rules:           filter,
		Registry:        reg,
		Logger:          slog.Default(),
	}
	slog.Debug("check starting", "roots", roots, "framework", fw, "format", format, "fail_on", failOn)

	started := time.Now()
	reps := engine.CheckAll(cmd.Context(), cfg, roots)
	elapsed := time.Since(started)

	if pickBool(flagSaveLast, flags.Changed("save-last"), fc.SaveLast, false) {
		for _, r := range reps {
			if r.Invalid || r.Incomplete {
				continue
			}
			if p, err := cache.Save(r, version); err != nil {
				slog.Warn("could not save last report", "root", r.Root, "err", err)
			} else {
				slog.Debug("last report saved", "path", p)
			}
		}
	}

	out := cmd.OutOrStdout()
	noColor := pickBool(flagNoColor, flags.Changed("no-color"), fc.NoColor, false)
	err = render(out, reps, renderOptions{
		format:   format,
		color:    colorEnabled(out, noColor),
		quiet:    flagQuiet,
		failOn:   failOn,
		duration: elapsed,
		registry: reg,
	})
	if err != nil {
		return err
	}
	if code := report.ExitCode(reps, failOn); code != report.ExitOK {
		return exitCode(code)
	}
	return nil
}
