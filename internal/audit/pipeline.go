package audit

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rachealIC/infra-review-cli/internal/checks"
	"github.com/rachealIC/infra-review-cli/internal/enrich"
	"github.com/rachealIC/infra-review-cli/internal/finding"
	"github.com/rachealIC/infra-review-cli/internal/normalize"
	"github.com/rachealIC/infra-review-cli/internal/result"
	"github.com/rachealIC/infra-review-cli/internal/scoring"
)

// FactSource enumerates resource facts. Failures for one service or region are
// returned in errs alongside whatever facts were collected.
type FactSource interface {
	Collect(ctx context.Context) (facts []finding.ResourceFact, errs []error)
}

// Stage names reported to OnStage.
const (
	StageCollect   = "Collecting resources"
	StageEvaluate  = "Evaluating checks"
	StageNormalize = "Normalizing findings"
	StageScore     = "Scoring pillars"
	StageEnrich    = "Generating remediation"
	StageAssemble  = "Assembling report"
)

// Pipeline runs one scan end to end: collect, evaluate, normalize, score and
// enrich, then assemble.
type Pipeline struct {
	Source      FactSource
	Registry    *checks.Registry
	Thresholds  checks.Thresholds
	Scope       checks.Filter
	Normalizer  *normalize.Normalizer
	Policy      scoring.Policy
	Concurrency int
	// Enricher is optional. Nil disables remediation and uses the fallback summary.
	Enricher *enrich.Enricher

	AccountID  string
	Regions    []string
	AppVersion string

	// OnStage, when set, is called as each stage starts.
	OnStage func(stage string)
}

func (p *Pipeline) stage(name string) {
	slog.Debug("Pipeline stage", "stage", name)
	if p.OnStage != nil {
		p.OnStage(name)
	}
}

// Run executes the scan. Per-resource, per-check and per-provider failures are
// reported as warnings on the result. A cancelled ctx stops new work and returns
// what was produced so far with Partial set. The only error is an internally
// inconsistent scorecard.
func (p *Pipeline) Run(ctx context.Context) (*result.ScanResult, error) {
	started := time.Now()
	var errs []error

	p.stage(StageCollect)
	facts, collectErrs := p.Source.Collect(ctx)
	errs = append(errs, collectErrs...)
	partial := ctx.Err() != nil

	p.stage(StageEvaluate)
	runner := checks.NewRunner(p.Registry, p.Thresholds, p.Concurrency)
	run := runner.Run(ctx, facts, p.Scope)
	errs = append(errs, run.Errors...)
	partial = partial || run.Partial

	p.stage(StageNormalize)
	normalizer := p.Normalizer
	if normalizer == nil {
		normalizer = normalize.New(normalize.DefaultEstimators())
	}
	findings, validationErrs := normalizer.Normalize(run.Findings)
	errs = append(errs, validationErrs...)

	// Scoring does not depend on remediation, so it runs alongside enrichment.
	p.stage(StageScore)
	var (
		card       scoring.Scorecard
		enriched   = findings
		enrichErrs []error
	)
	var g errgroup.Group
	g.Go(func() error {
		card = scoring.Score(findings, run.Coverage, p.Policy)
		return nil
	})
	if p.Enricher != nil && ctx.Err() == nil && len(findings) > 0 {
		p.stage(StageEnrich)
		g.Go(func() error {
			enriched, enrichErrs = p.Enricher.Enrich(ctx, findings)
			return nil
		})
	}
	_ = g.Wait()
	errs = append(errs, enrichErrs...)
	// Enrichment may refine Cost savings; pillar scores are unaffected.
	card.MonthlySavings = scoring.SavingsTotal(enriched)

	summaryIn := enrich.SummaryInput{
		AccountID: p.AccountID,
		Region:    strings.Join(p.Regions, ", "),
		Findings:  enriched,
		Scorecard: card,
	}
	summary := enrich.FallbackSummary(summaryIn)
	if p.Enricher != nil && ctx.Err() == nil {
		var summaryErrs []error
		summary, summaryErrs = p.Enricher.Summarize(ctx, summaryIn)
		errs = append(errs, summaryErrs...)
	}

	if ctx.Err() != nil {
		partial = true
		errs = append(errs, ctx.Err())
	}

	p.stage(StageAssemble)
	return result.Assemble(result.Input{
		AccountID:        p.AccountID,
		Regions:          p.Regions,
		AppVersion:       p.AppVersion,
		StartedAt:        started,
		FinishedAt:       time.Now(),
		Scorecard:        card,
		Findings:         enriched,
		Errors:           errs,
		ExecutiveSummary: summary,
		Partial:          partial,
		ResourcesScanned: len(facts),
	})
}
