package deploylint

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// ciTemplates maps a provider to the file it writes and its content.
var ciTemplates = map[string]struct{ path, content string }{
	"github": {
		path:    filepath.Join(".github", "workflows", "deploylint.yml"),
		content: `name: deploylint
on: [push, pull_request]
jobs:
  deploylint:
    runs-on: ubuntu-latest
    permissions:
      contents: read
      security-events: write
    steps:
      - uses: actions/checkout@v4
      - uses: actions/setup-go@v5
        with:
          go-version: '1.25'
      - run: go install github.com/deploylint/deploylint@latest
      - run: deploylint check --format sarif > deploylint.sarif
      - uses: github/codeql-action/upload-sarif@v3
        if: always()
        with:
          sarif_file: deploylint.sarif
`,
	},
	"gitlab": {
		path:    ".gitlab-ci.yml",
		content: `stages: [check]
deploylint:
  stage: check
  image: golang:1.25
  script:
    - go install github.com/deploylint/deploylint@latest
    - deploylint check --format structured | tee deploylint-report.json
  artifacts:
    when: always
    paths:
      - deploylint-report.json
`,
	},
	"bitbucket": {
		path:    "bitbucket-pipelines.yml",
		content: `pipelines:
  default:
    - step:
        name: deploylint
        image: golang:1.25
        caches:
          - go
        script:
          - go install github.com/deploylint/deploylint@latest
          - deploylint check --format structured | tee deploylint-report.json
        artifacts:
          - deploylint-report.json
`,
	},
}

func init() {
	ci := &cobra.Command{Use: "ci", Short: "CI template helpers for multiple providers"}
	rootCmd.AddCommand(ci)

	var provider string
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a CI pipeline template that runs deploylint check",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tpl, ok := ciTemplates[provider]
			if !ok {
				return fmt.Errorf("unknown --provider %q. Supported: github, gitlab, bitbucket", provider)
			}
			if _, err := os.Stat(tpl.path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", tpl.path)
			}
			// ensure parent directories exist if needed
			if err := os.MkdirAll(filepath.Dir(tpl.path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(tpl.path, []byte(tpl.content), 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Wrote", tpl.path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&provider, "provider", "", "CI provider: github | gitlab | bitbucket")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	if err := initCmd.MarkFlagRequired("provider"); err != nil {
		fmt.Fprintln(os.Stderr, "warning: could not mark --provider as required:", err)
	}
	ci.AddCommand(initCmd)
}
