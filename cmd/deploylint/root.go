package deploylint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deploylint/deploylint/internal/logging"
)

var (
	flagThreads   int
	flagFailOn    string
	flagNoColor   bool
	flagLogLevel  string
	flagLogFormat string

	version = "0.1.0"
)

// rootCmd is the base Cobra command for the deploylint CLI.
var rootCmd = &cobra.Command{
	Use:   "deploylint",
	Short: "Check Django and Flask projects for deployment readiness",
	Long: "deploylint reads a Django or Flask project's settings, entry points and requirements " +
		"without running them and reports configuration that breaks or weakens a production deployment.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		_, err := logging.Init(cmd.ErrOrStderr(), flagLogFormat, flagLogLevel)
		return err
	},
}

// Execute runs the deploylint CLI. It should be called by the main package.
// SIGINT and SIGTERM cancel the run; unfinished projects are reported as
// incomplete.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(exitStatus(err))
}

func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var ec exitCode
	if errors.As(err, &ec) {
		return int(ec)
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	return 2
}

func init() {
	rootCmd.PersistentFlags().IntVar(&flagThreads, "threads", 0, "worker count (0 = GOMAXPROCS)")
	rootCmd.PersistentFlags().StringVar(&flagFailOn, "fail-on", "", "fail on error|warning (default error)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colorized output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "log format: text|json")
}
