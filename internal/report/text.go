package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/rachealIC/infra-review-cli/internal/finding"
	"github.com/rachealIC/infra-review-cli/internal/result"
	"github.com/rachealIC/infra-review-cli/internal/scoring"
)

// TextReporter writes a human-readable report with pillar and finding tables.
type TextReporter struct {
	Writer io.Writer
}

var (
	bold   = color.New(color.Bold).SprintFunc()
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	red    = color.New(color.FgRed, color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
)

// Generate writes the text report.
func (r *TextReporter) Generate(res *result.ScanResult) error {
	w := r.Writer

	fmt.Fprintf(w, "%s %s\n", cyan(Tool), bold("AWS Well-Architected Review"))
	fmt.Fprintf(w, "Account: %s  Regions: %s\n", res.AccountID, strings.Join(res.Regions, ", "))
	fmt.Fprintf(w, "Report: %s  Generated: %s  Duration: %s\n",
		res.ReportID, res.GeneratedAt.Format("2006-01-02 15:04:05 UTC"), res.ScanDuration)
	if res.Partial {
		fmt.Fprintln(w, yellow("Scan was interrupted; results are partial."))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Overall score: %s (%s)\n", scoreColor(res.OverallScore)(fmt.Sprintf("%.1f/100", res.OverallScore)), scoring.Label(res.OverallScore))
	fmt.Fprintf(w, "Estimated monthly savings: %s\n\n", green(money(res.MonthlySavings)))

	r.writePillars(res.Pillars)

	if len(res.Findings) == 0 {
		fmt.Fprintln(w, green("No findings. Every evaluated resource passed its checks."))
	} else {
		r.writeFindings(res.Findings)
		r.writeRemediations(res.Findings)
	}

	if res.ExecutiveSummary != "" {
		fmt.Fprintf(w, "\n%s\n%s\n", bold("Executive Summary"), res.ExecutiveSummary)
	}

	r.writeWarnings(res.Warnings)

	fmt.Fprintf(w, "\n%s\n", bold("Summary"))
	fmt.Fprintf(w, "  Resources evaluated: %d\n", res.ResourcesScanned)
	fmt.Fprintf(w, "  Findings:            %d\n", res.Summary.TotalFindings)
	for _, sev := range finding.Severities {
		if n := res.Summary.BySeverity[string(sev)]; n > 0 {
			fmt.Fprintf(w, "    %-10s %d\n", sev, n)
		}
	}
	return nil
}

func (r *TextReporter) writePillars(pillars []scoring.PillarScore) {
	table := newTable(r.Writer, "Pillar", "Score", "Rating", "Findings", "Resources")
	for _, p := range pillars {
		score := "N/A"
		if v, ok := p.Value(); ok {
			score = scoreColor(float64(v))(strconv.Itoa(v))
		}
		table.Append([]string{
			string(p.Pillar),
			score,
			p.Label(),
			strconv.Itoa(p.FindingsCount),
			strconv.Itoa(p.ResourcesEvaluated),
		})
	}
	table.Render()
	fmt.Fprintln(r.Writer)
}

func (r *TextReporter) writeFindings(findings []finding.Finding) {
	table := newTable(r.Writer, "Severity", "Pillar", "Check", "Resource", "Region", "Title", "Savings/mo")
	for _, f := range findings {
		table.Append([]string{
			severityColor(f.Severity)(string(f.Severity)),
			f.PillarSlug,
			f.CheckName,
			f.ResourceID,
			f.Region,
			f.Title,
			savingsText(f),
		})
	}
	table.Render()
}

func (r *TextReporter) writeRemediations(findings []finding.Finding) {
	var header bool
	for _, f := range findings {
		if f.Remediation == nil {
			continue
		}
		if !header {
			fmt.Fprintf(r.Writer, "\n%s\n", bold("Remediation"))
			header = true
		}
		fmt.Fprintf(r.Writer, "%s %s\n", bold(f.ResourceID), faint("("+f.CheckName+")"))
		for _, line := range strings.Split(strings.TrimSpace(*f.Remediation), "\n") {
			fmt.Fprintf(r.Writer, "  %s\n", line)
		}
	}
}

func (r *TextReporter) writeWarnings(warnings []finding.Warning) {
	fmt.Fprintf(r.Writer, "\n%s\n", bold("Scan Warnings"))
	if len(warnings) == 0 {
		fmt.Fprintln(r.Writer, "  None")
		return
	}
	for _, wn := range warnings {
		src := ""
		if wn.Source != "" {
			src = " " + wn.Source
		}
		fmt.Fprintf(r.Writer, "  %s%s: %s\n", yellow("["+wn.Kind+"]"), src, wn.Message)
	}
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator(" ")
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func severityColor(s finding.Severity) func(a ...interface{}) string {
	switch s {
	case finding.SeverityCritical, finding.SeverityHigh:
		return red
	case finding.SeverityMedium:
		return yellow
	default:
		return fmt.Sprint
	}
}

func scoreColor(score float64) func(a ...interface{}) string {
	switch {
	case score >= 75:
		return green
	case score >= 50:
		return yellow
	default:
		return red
	}
}
