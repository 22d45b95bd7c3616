package deploylint

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deploylint/deploylint/internal/rules"
)

// gendocs writes the rule reference, one section per rule in Rule Set order.
func init() {
	var output string
	cmd := &cobra.Command{
		Use:    "gendocs",
		Short:  "Regenerate the rule reference (docs/rules.md)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(output, []byte(rulesMarkdown(rules.Default())), 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Wrote", output)
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", filepath.Join("docs", "rules.md"), "output file path")
	rootCmd.AddCommand(cmd)
}

func rulesMarkdown(reg *rules.Registry) string {
	var b strings.Builder
	b.WriteString("# Rules\n\n")
	b.WriteString("Generated by `deploylint gendocs`; run `deploylint rules` for the live list.\n")
	for _, r := range reg.All() {
		fmt.Fprintf(&b, "\n## %s\n\n", r.ID)
		fmt.Fprintf(&b, "- Severity: %s\n", r.Severity)
		fmt.Fprintf(&b, "- Frameworks: %s\n\n", frameworks(r))
		b.WriteString(r.Summary + "\n")
		if r.Remediation != "" {
			b.WriteString("\nRemediation: " + r.Remediation + "\n")
		}
	}
	return b.String()
}
