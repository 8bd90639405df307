package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rachealIC/infra-review-cli/internal/finding"
	"github.com/rachealIC/infra-review-cli/internal/result"
)

// Tool is the name reports identify themselves with.
const Tool = "infra-review"

// Reporter renders a scan result.
type Reporter interface {
	Generate(r *result.ScanResult) error
}

// Formats lists the accepted --format values.
var Formats = []string{"text", "json", "sarif", "html"}

// New returns the reporter for format writing to w.
func New(format string, w io.Writer) (Reporter, error) {
	switch strings.ToLower(format) {
	case "text", "":
		return &TextReporter{Writer: w}, nil
	case "json":
		return &JSONReporter{Writer: w}, nil
	case "sarif":
		return &SARIFReporter{Writer: w}, nil
	case "html":
		return &HTMLReporter{Writer: w}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (use %s)", format, strings.Join(Formats, ", "))
	}
}

// money formats a dollar amount with two decimals.
func money(v float64) string {
	return "$" + decimal.NewFromFloat(v).StringFixed(2)
}

func savingsText(f finding.Finding) string {
	if f.EstimatedMonthlySavings == nil {
		return "-"
	}
	return money(*f.EstimatedMonthlySavings)
}
