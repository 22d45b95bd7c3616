package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/deploylint/deploylint/internal/engine"
	"github.com/deploylint/deploylint/internal/types"
)

type PrintOptions struct {
	NoColor bool
	// Quiet hides passing and not-applicable rules.
	Quiet    bool
	Duration time.Duration
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	naStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	sevErrStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	sevWarnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("7")).Italic(true)
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

type painter struct{ plain bool }

func (p painter) paint(st lipgloss.Style, s string) string {
	if p.plain || s == "" {
		return s
	}
	return st.Render(s)
}

// outcome labels are padded to width.
func (p painter) outcome(f types.Finding, width int) string {
	switch f.Outcome {
	case types.OutcomeFail:
		return p.paint(failStyle, fmt.Sprintf("%-*s", width, "FAIL"))
	case types.OutcomeNotApplicable:
		return p.paint(naStyle, fmt.Sprintf("%-*s", width, "N/A"))
	default:
		return p.paint(passStyle, fmt.Sprintf("%-*s", width, "PASS"))
	}
}

func (p painter) severity(s types.Severity, width int) string {
	label := fmt.Sprintf("%-*s", width, s)
	switch s {
	case types.SevError:
		return p.paint(sevErrStyle, label)
	case types.SevWarning:
		return p.paint(sevWarnStyle, label)
	}
	return label
}

func location(f types.Finding) string {
	if f.Path == "" {
		return ""
	}
	if f.Line > 0 {
		return f.Path + ":" + strconv.Itoa(f.Line)
	}
	return f.Path
}

// PrintText writes a human-readable report for each project followed by a
// run summary.
func PrintText(w io.Writer, reps []engine.Report, opts PrintOptions) {
	p := painter{plain: opts.NoColor}
	var total Summary
	for i, r := range reps {
		if i > 0 {
			fmt.Fprintln(w)
		}
		printHeader(w, p, r)
		if r.Invalid && len(r.Findings) == 0 {
			fmt.Fprintf(w, "  %s %s\n", p.paint(failStyle, "ERROR"), r.Error)
			continue
		}
		for _, f := range Order(r.Findings) {
			if opts.Quiet && !f.Failed() {
				continue
			}
			printFinding(w, p, f)
		}
		for _, n := range r.Notices {
			fmt.Fprintf(w, "  %s %s\n", p.paint(noticeStyle, "notice:"), n)
		}
		if r.Incomplete {
			fmt.Fprintf(w, "  %s interrupted before all rules ran\n", p.paint(noticeStyle, "incomplete:"))
		}
		s := Summarize(r.Findings)
		total = total.Add(s)
		fmt.Fprintf(w, "  %s\n", summaryLine(s))
	}
	if len(reps) > 1 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Total (%d projects): %s\n", len(reps), summaryLine(total))
	}
	if opts.Duration > 0 {
		fmt.Fprintf(w, "Check duration: %.2fs\n", opts.Duration.Seconds())
	}
}

func printHeader(w io.Writer, p painter, r engine.Report) {
	fw := string(r.Framework)
	if fw == "" {
		fw = "unknown"
	}
	fmt.Fprintf(w, "%s %s\n", p.paint(titleStyle, r.Root), "("+fw+")")
}

func printFinding(w io.Writer, p painter, f types.Finding) {
	if !f.Failed() {
		fmt.Fprintf(w, "  %s %s  %s\n", p.outcome(f, 4), f.Rule, p.paint(naStyle, f.Message))
		return
	}
	fmt.Fprintf(w, "  %s %s %s", p.outcome(f, 4), p.severity(f.Severity, 7), f.Rule)
	if loc := location(f); loc != "" {
		fmt.Fprintf(w, "  %s", loc)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "       %s\n", f.Message)
	if f.Evidence != "" {
		ev := f.Evidence
		if !p.plain {
			ev = highlightLine(ev, f.Path)
		}
		fmt.Fprintf(w, "       > %s\n", ev)
	}
	if f.Remediation != "" {
		fmt.Fprintf(w, "       %s\n", p.paint(hintStyle, "fix: "+f.Remediation))
	}
}

func summaryLine(s Summary) string {
	return fmt.Sprintf("%d rules: %d failed (%d error, %d warning), %d passed, %d not applicable",
		s.Total, s.Failed, s.Errors, s.Warnings, s.Passed, s.NotApplicable)
}

// PrintTable writes one table per project followed by a summary footer.
func PrintTable(w io.Writer, reps []engine.Report, opts PrintOptions) {
	p := painter{plain: opts.NoColor}
	var total Summary
	for i, r := range reps {
		if i > 0 {
			fmt.Fprintln(w)
		}
		printHeader(w, p, r)
		if r.Invalid && len(r.Findings) == 0 {
			fmt.Fprintf(w, "%s %s\n", p.paint(failStyle, "ERROR"), r.Error)
			continue
		}
		table := tablewriter.NewWriter(w)
		table.Header("Status", "Severity", "Rule", "Location", "Message")
		for _, f := range Order(r.Findings) {
			if opts.Quiet && !f.Failed() {
				continue
			}
			sev := ""
			if f.Failed() {
				sev = p.severity(f.Severity, 0)
			}
			_ = table.Append([]string{p.outcome(f, 0), sev, f.Rule, location(f), f.Message})
		}
		_ = table.Render()
		for _, n := range r.Notices {
			fmt.Fprintf(w, "notice: %s\n", n)
		}
		if r.Incomplete {
			fmt.Fprintln(w, "incomplete: interrupted before all rules ran")
		}
		s := Summarize(r.Findings)
		total = total.Add(s)
		fmt.Fprintln(w, summaryLine(s))
	}
	if len(reps) > 1 {
		fmt.Fprintf(w, "\nTotal (%d projects): %s\n", len(reps), summaryLine(total))
	}
	if opts.Duration > 0 {
		fmt.Fprintf(w, "Check duration: %.2fs\n", opts.Duration.Seconds())
	}
}
