package deploylint

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/deploylint/deploylint/internal/cache"
	"github.com/deploylint/deploylint/internal/config"
	"github.com/deploylint/deploylint/internal/engine"
	"github.com/deploylint/deploylint/internal/report"
	"github.com/deploylint/deploylint/internal/rules"
)

func init() {
	var format string
	cmd := &cobra.Command{
		Use:   "last [path]",
		Short: "Re-render the last saved report of a project",
		Long:  "last prints the report saved by `deploylint check --save-last` without re-running the checks and warns when the project's configuration changed since.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = filepath.Clean(args[0])
			}
			last, err := cache.Load(root)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("no saved report for %s; run `deploylint check --save-last` first", root)
				}
				return err
			}
			if cache.Stale(root, last) {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: configuration changed since this report was saved (%s); re-run `deploylint check`\n",
					last.Timestamp.Local().Format("2006-01-02 15:04"))
			}
			slog.Debug("last report loaded", "root", root, "saved", last.Timestamp, "version", last.Version)

			// CLI > local > global, as for check
			fc, err := config.Load(root)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			f, err := parseFormat(pickString(format, fc.Format, "text"))
			if err != nil {
				return err
			}
			failOn, err := parseFailOn(pickString(flagFailOn, fc.FailOn, ""))
			if err != nil {
				return err
			}
			noColor := pickBool(flagNoColor, cmd.Flags().Changed("no-color"), fc.NoColor, false)
			reps := []engine.Report{last.Report}
			out := cmd.OutOrStdout()
			if err := render(out, reps, renderOptions{
				format:   f,
				color:    colorEnabled(out, noColor),
				failOn:   failOn,
				registry: rules.Default(),
			}); err != nil {
				return err
			}
			if code := report.ExitCode(reps, failOn); code != report.ExitOK {
				return exitCode(code)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "output format: text|table|structured|json|sarif (default text)")
	rootCmd.AddCommand(cmd)
}
