package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

// Options bounds the enrichment phase.
type Options struct {
	// Concurrency caps in-flight provider calls. Defaults to 4.
	Concurrency int
	// RequestsPerSecond caps the call rate across all providers. Zero means unlimited.
	RequestsPerSecond float64
	// Budget is the wall-clock limit for the whole phase. Defaults to 2m.
	Budget time.Duration
}

// Enricher attaches remediation text to findings on a best-effort basis.
type Enricher struct {
	chain   *Chain
	limiter *rate.Limiter
	opts    Options
}

// New creates an enricher over chain.
func New(chain *Chain, opts Options) *Enricher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Budget <= 0 {
		opts.Budget = 2 * time.Minute
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &Enricher{
		chain:   chain,
		limiter: rate.NewLimiter(limit, opts.Concurrency),
		opts:    opts,
	}
}

// ErrBudgetExhausted marks findings left unenriched when the phase budget ran out.
var ErrBudgetExhausted = errors.New("enrichment budget exhausted")

type providerFailures struct {
	count int
	last  error
}

// Enrich returns a copy of findings with remediation filled where a provider answered.
// For Cost findings a savings figure in the answer replaces the estimate. Findings
// are never dropped or re-tagged; failures are summarized into one ProviderError per
// provider.
func (e *Enricher) Enrich(ctx context.Context, findings []finding.Finding) ([]finding.Finding, []error) {
	out := make([]finding.Finding, len(findings))
	copy(out, findings)
	if len(out) == 0 {
		return out, nil
	}
	if e.chain == nil || e.chain.Len() == 0 {
		return out, []error{&finding.ProviderError{Provider: "chain", Err: ErrNoProviders}}
	}

	budgetCtx, cancel := context.WithTimeout(ctx, e.opts.Budget)
	defer cancel()

	var (
		mu        sync.Mutex
		failures  = make(map[string]*providerFailures)
		enriched  int
		abandoned int
	)
	// Written only by the dispatch loop; folded into abandoned after Wait.
	var undispatched int

	var g errgroup.Group
	g.SetLimit(e.opts.Concurrency)

	for i := range out {
		if budgetCtx.Err() != nil {
			undispatched = len(out) - i
			break
		}
		i := i
		g.Go(func() error {
			if err := e.limiter.Wait(budgetCtx); err != nil {
				mu.Lock()
				abandoned++
				mu.Unlock()
				return nil
			}

			text, _, errs := e.chain.Generate(budgetCtx, RemediationPrompt(out[i]))

			mu.Lock()
			defer mu.Unlock()
			for _, err := range errs {
				var pe *finding.ProviderError
				if !errors.As(err, &pe) {
					continue
				}
				pf, ok := failures[pe.Provider]
				if !ok {
					pf = &providerFailures{}
					failures[pe.Provider] = pf
				}
				pf.count++
				pf.last = pe.Err
			}
			if text == "" {
				if budgetCtx.Err() != nil {
					abandoned++
				}
				return nil
			}

			remediation, savings, ok := ParseResponse(text)
			if remediation != "" {
				out[i].Remediation = &remediation
				enriched++
			}
			if ok && out[i].Pillar == finding.PillarCost {
				out[i].EstimatedMonthlySavings = finding.Savings(savings)
			}
			return nil
		})
	}
	_ = g.Wait()
	abandoned += undispatched

	var errs []error
	names := make([]string, 0, len(failures))
	for name := range failures {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		pf := failures[name]
		errs = append(errs, &finding.ProviderError{
			Provider: name,
			Err:      fmt.Errorf("%d call(s) failed, last error: %w", pf.count, pf.last),
		})
	}
	if abandoned > 0 && ctx.Err() == nil {
		errs = append(errs, &finding.ProviderError{
			Provider: "chain",
			Err:      fmt.Errorf("%w after %s: %d finding(s) left without remediation", ErrBudgetExhausted, e.opts.Budget, abandoned),
		})
	}

	slog.Debug("Enrichment complete", "findings", len(out), "enriched", enriched, "abandoned", abandoned, "provider_errors", len(errs))
	return out, errs
}

// RemediationPrompt builds the per-finding prompt. Cost findings also ask for a
// savings figure on a fixed line so it can be parsed back.
func RemediationPrompt(f finding.Finding) string {
	var sb strings.Builder
	sb.WriteString("You are an AWS Well-Architected Framework expert.\n\n")
	sb.WriteString("A cloud infrastructure scan found the following issue:\n")
	fmt.Fprintf(&sb, "- Headline: %q\n", f.Title)
	fmt.Fprintf(&sb, "- Description: %s\n", f.Description)
	fmt.Fprintf(&sb, "- Resource: %s (%s, %s)\n", f.ResourceID, f.Service, f.Region)
	fmt.Fprintf(&sb, "- Pillar: %s, severity: %s\n\n", f.Pillar, f.Severity)
	sb.WriteString("Provide exactly 1-2 short, actionable remediation steps as bullet points.\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- Each step must be one line only\n")
	sb.WriteString("- Start each step with a verb (Enable, Delete, Restrict, Configure, etc.)\n")
	sb.WriteString("- No explanations or justifications\n")
	sb.WriteString("- Format: \"- <step>\"\n")
	if f.Pillar == finding.PillarCost {
		sb.WriteString("\nAfter the steps, add one final line in exactly this format:\n")
		sb.WriteString("Estimated Monthly Savings: $<amount in USD as a number>\n")
		if f.EstimatedMonthlySavings != nil {
			fmt.Fprintf(&sb, "The current on-demand estimate is $%.2f.\n", *f.EstimatedMonthlySavings)
		}
	}
	sb.WriteString("\nOutput only the bullet points. Nothing else.")
	return sb.String()
}

var savingsLine = regexp.MustCompile(`(?i)^\W*estimated\s+monthly\s+savings\W*:?\W*\$?\s*([0-9][0-9,]*(?:\.[0-9]+)?)`)

// ParseResponse splits a provider answer into remediation text and an optional
// savings figure. ok is false when no savings line was present.
func ParseResponse(text string) (remediation string, savings float64, ok bool) {
	var steps []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := savingsLine.FindStringSubmatch(line); m != nil {
			v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
			if err == nil && v >= 0 {
				savings, ok = decimal.NewFromFloat(v).Round(2).InexactFloat64(), true
			}
			continue
		}
		steps = append(steps, line)
	}
	return strings.Join(steps, "\n"), savings, ok
}
