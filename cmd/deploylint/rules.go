package deploylint

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/deploylint/deploylint/internal/rules"
	"github.com/deploylint/deploylint/internal/types"
)

func init() {
	var idsOnly bool
	var framework string
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List available rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			all := rules.Default().All()
			if framework != "" {
				fw, ok := types.ParseFramework(framework)
				if !ok {
					return fmt.Errorf("unknown --framework %q (want django|flask)", framework)
				}
				all = rules.Default().Set(fw, rules.Filter{})
			}
			out := cmd.OutOrStdout()
			if idsOnly {
				for _, r := range all {
					fmt.Fprintln(out, r.ID)
				}
				return nil
			}
			table := tablewriter.NewWriter(out)
			table.Header("Rule", "Frameworks", "Severity", "Summary")
			for _, r := range all {
				_ = table.Append([]string{r.ID, frameworks(r), string(r.Severity), r.Summary})
			}
			return table.Render()
		},
	}
	cmd.Flags().BoolVar(&idsOnly, "ids", false, "print rule IDs only")
	cmd.Flags().StringVar(&framework, "framework", "", "only rules that apply to django|flask")
	rootCmd.AddCommand(cmd)
}

func frameworks(r rules.Rule) string {
	if len(r.Frameworks) == 0 {
		return "all"
	}
	names := make([]string, len(r.Frameworks))
	for i, fw := range r.Frameworks {
		names[i] = string(fw)
	}
	return strings.Join(names, ",")
}
