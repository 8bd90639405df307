package report

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/rachealIC/infra-review-cli/internal/finding"
	"github.com/rachealIC/infra-review-cli/internal/result"
	"github.com/rachealIC/infra-review-cli/internal/scoring"
)

//go:embed templates/report.html.tmpl
var htmlTemplate string

var htmlTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"money": money,
	"label": scoring.Label,
	"lower": strings.ToLower,
	"band":  scoreBand,
	"pillarBand": func(p scoring.PillarScore) string {
		v, ok := p.Value()
		if !ok {
			return "none"
		}
		return scoreBand(float64(v))
	},
}).Parse(htmlTemplate))

// HTMLReporter writes a self-contained HTML report. The scan result is embedded
// as JSON and the findings table is rendered and filtered client-side.
type HTMLReporter struct {
	Writer io.Writer
}

type htmlData struct {
	Tool       string
	Result     *result.ScanResult
	Severities []finding.Severity
	Pillars    []finding.Pillar
}

// Generate writes the HTML report.
func (r *HTMLReporter) Generate(res *result.ScanResult) error {
	data := htmlData{
		Tool:       Tool,
		Result:     res,
		Severities: finding.Severities,
		Pillars:    finding.Pillars,
	}
	if err := htmlTmpl.Execute(r.Writer, data); err != nil {
		return fmt.Errorf("render HTML report: %w", err)
	}
	return nil
}

func scoreBand(score float64) string {
	switch {
	case score >= 90:
		return "excellent"
	case score >= 75:
		return "good"
	case score >= 50:
		return "attention"
	default:
		return "critical"
	}
}
