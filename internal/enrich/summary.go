package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/rachealIC/infra-review-cli/internal/finding"
	"github.com/rachealIC/infra-review-cli/internal/scoring"
)

// SummaryInput is what the executive summary is written from.
type SummaryInput struct {
	AccountID string
	Region    string
	Findings  []finding.Finding
	Scorecard scoring.Scorecard
}

func (in SummaryInput) counts() (critical, high int) {
	for _, f := range in.Findings {
		switch f.Severity {
		case finding.SeverityCritical:
			critical++
		case finding.SeverityHigh:
			high++
		}
	}
	return critical, high
}

// SummaryPrompt builds the executive summary prompt.
func SummaryPrompt(in SummaryInput) string {
	critical, high := in.counts()

	var scores strings.Builder
	for _, ps := range in.Scorecard.Pillars {
		if v, ok := ps.Value(); ok {
			fmt.Fprintf(&scores, "  - %s: %d/100 (%s)\n", ps.Pillar, v, ps.Label())
		} else {
			fmt.Fprintf(&scores, "  - %s: not scanned\n", ps.Pillar)
		}
	}

	return fmt.Sprintf(`You are a senior cloud architect writing an executive summary for a CTO.

Infrastructure scan results for AWS account %s in %s:
- Overall health score: %.1f/100
- Total findings: %d
- Critical findings: %d
- High-severity findings: %d
- Estimated monthly savings if fixed: $%.2f

Pillar scores:
%s
Write a 3-4 sentence executive summary:
1. Overall health assessment (use the score and key pillar concerns)
2. Most urgent action items (focus on critical/high findings)
3. Estimated financial impact

Use plain English. No bullet points. No technical jargon. Maximum 120 words.`,
		in.AccountID, in.Region, in.Scorecard.Overall, len(in.Findings), critical, high,
		in.Scorecard.MonthlySavings, scores.String())
}

// FallbackSummary is the deterministic summary used when no provider answers.
func FallbackSummary(in SummaryInput) string {
	critical, high := in.counts()
	return fmt.Sprintf("This infrastructure scan of AWS account %s (%s) returned %d finding(s) with an overall "+
		"health score of %.1f/100. There are %d critical and %d high-severity issues that require immediate "+
		"attention. Addressing identified findings could save an estimated $%.2f/month.",
		in.AccountID, in.Region, len(in.Findings), in.Scorecard.Overall, critical, high, in.Scorecard.MonthlySavings)
}

// Summarize asks the chain for an executive summary and falls back to a fixed
// template. The returned errors are the provider failures, if any.
func (e *Enricher) Summarize(ctx context.Context, in SummaryInput) (string, []error) {
	if e.chain == nil || e.chain.Len() == 0 {
		return FallbackSummary(in), nil
	}
	budgetCtx, cancel := context.WithTimeout(ctx, e.opts.Budget)
	defer cancel()

	if err := e.limiter.Wait(budgetCtx); err != nil {
		return FallbackSummary(in), nil
	}
	text, _, errs := e.chain.Generate(budgetCtx, SummaryPrompt(in))
	if text == "" {
		return FallbackSummary(in), errs
	}
	return text, nil
}
