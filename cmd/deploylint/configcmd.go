package deploylint

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deploylint/deploylint/internal/config"
	"github.com/deploylint/deploylint/internal/rules"
	"github.com/deploylint/deploylint/internal/types"
)

var (
	cfgOutput    string
	cfgForce     bool
	cfgFramework string
	cfgFailOn    string
	cfgFormat    string
	cfgEnable    string
	cfgDisable   string
	cfgThreads   int
	cfgNoColor   bool
	cfgSaveLast  bool
)

func init() {
	cfgCmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}
	rootCmd.AddCommand(cfgCmd)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a .deploylint.yml with the selected options",
		RunE:  runConfigInit,
	}
	cfgCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&cfgOutput, "output", ".deploylint.yml", "output file path")
	initCmd.Flags().BoolVar(&cfgForce, "force", false, "overwrite an existing file")
	initCmd.Flags().StringVar(&cfgFramework, "framework", "", "pin the framework: django|flask (default detect)")
	initCmd.Flags().StringVar(&cfgFailOn, "fail-on", "error", "fail on error|warning")
	initCmd.Flags().StringVar(&cfgFormat, "format", "", "default output format")
	initCmd.Flags().StringVar(&cfgEnable, "enable", "", "comma-separated rule IDs to run exclusively")
	initCmd.Flags().StringVar(&cfgDisable, "disable", "", "comma-separated rule IDs to skip")
	initCmd.Flags().IntVar(&cfgThreads, "threads", 0, "worker threads (0=GOMAXPROCS)")
	initCmd.Flags().BoolVar(&cfgNoColor, "no-color", false, "disable color output by default")
	initCmd.Flags().BoolVar(&cfgSaveLast, "save-last", false, "save every report for `deploylint last`")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	if _, err := os.Stat(cfgOutput); err == nil && !cfgForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgOutput)
	}
	if cfgFramework != "" {
		if _, ok := types.ParseFramework(cfgFramework); !ok {
			return fmt.Errorf("unknown --framework %q (want django|flask)", cfgFramework)
		}
	}
	if _, err := parseFailOn(cfgFailOn); err != nil {
		return err
	}
	if cfgFormat != "" {
		if _, err := parseFormat(cfgFormat); err != nil {
			return err
		}
	}
	filter := rules.Filter{Enable: pickList(cfgEnable, nil), Disable: pickList(cfgDisable, nil)}
	if err := rules.Default().Validate(filter); err != nil {
		return err
	}

	fc := config.FileConfig{
		Framework: optStrPtr(cfgFramework),
		FailOn:    strPtr(cfgFailOn),
		Format:    optStrPtr(cfgFormat),
		Enable:    filter.Enable,
		Disable:   filter.Disable,
		Threads:   intPtr(cfgThreads),
		NoColor:   boolPtr(cfgNoColor),
		SaveLast:  boolPtr(cfgSaveLast),
	}
	if err := config.Write(cfgOutput, fc); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Wrote", cfgOutput)
	return nil
}
