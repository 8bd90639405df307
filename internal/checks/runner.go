package checks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rachealIC/infra-review-cli/internal/finding"
	"golang.org/x/sync/errgroup"
)

// RunResult holds the raw output of evaluating checks against a set of facts.
type RunResult struct {
	Findings []finding.Finding
	Errors   []error
	// Coverage counts, per pillar, the facts that at least one in-scope check of
	// that pillar evaluated. A pillar absent from the map was not scanned.
	Coverage  map[finding.Pillar]int
	Evaluated int
	// Partial is set when the context was cancelled before every fact was dispatched.
	Partial bool
}

// Runner evaluates registered checks against resource facts on a bounded worker pool.
type Runner struct {
	registry    *Registry
	thresholds  Thresholds
	concurrency int
}

// NewRunner creates a runner. A non-positive concurrency defaults to 8.
func NewRunner(registry *Registry, th Thresholds, concurrency int) *Runner {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Runner{registry: registry, thresholds: th, concurrency: concurrency}
}

// Run invokes every in-scope check whose service matches each fact. A failing check
// is recorded as a CheckError and never affects other (check, resource) pairs.
func (r *Runner) Run(ctx context.Context, facts []finding.ResourceFact, scope Filter) *RunResult {
	byService := make(map[finding.Service][]Check)
	for _, c := range r.registry.All(scope) {
		byService[c.Service] = append(byService[c.Service], c)
	}

	var (
		mu     sync.Mutex
		result = &RunResult{Coverage: make(map[finding.Pillar]int)}
	)

	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for _, fact := range facts {
		if ctx.Err() != nil {
			result.Partial = true
			break
		}
		candidates := byService[fact.Service]
		if len(candidates) == 0 {
			continue
		}

		fact := fact
		g.Go(func() error {
			if ctx.Err() != nil {
				mu.Lock()
				result.Partial = true
				mu.Unlock()
				return nil
			}

			var (
				found   []finding.Finding
				errs    []error
				pillars = make(map[finding.Pillar]bool)
			)
			for _, c := range candidates {
				if !c.Applies(fact) {
					continue
				}
				pillars[c.Pillar] = true
				fs, err := r.evaluate(c, fact)
				if err != nil {
					slog.Warn("Check failed", "check", c.Name, "resource", fact.ResourceID, "region", fact.Region, "error", err)
					errs = append(errs, err)
					continue
				}
				found = append(found, fs...)
			}

			mu.Lock()
			result.Findings = append(result.Findings, found...)
			result.Errors = append(result.Errors, errs...)
			for p := range pillars {
				result.Coverage[p]++
			}
			if len(pillars) > 0 {
				result.Evaluated++
			}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	slog.Debug("Checks complete", "facts", len(facts), "evaluated", result.Evaluated,
		"findings", len(result.Findings), "errors", len(result.Errors), "partial", result.Partial)
	return result
}

// evaluate runs one predicate, converting errors and panics into a CheckError and
// filling identity fields the predicate left empty.
func (r *Runner) evaluate(c Check, fact finding.ResourceFact) (found []finding.Finding, err error) {
	defer func() {
		if p := recover(); p != nil {
			found = nil
			err = &finding.CheckError{CheckName: c.Name, ResourceID: fact.ResourceID, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	fs, err := c.Predicate(fact, r.thresholds)
	if err != nil {
		return nil, &finding.CheckError{CheckName: c.Name, ResourceID: fact.ResourceID, Err: err}
	}

	for i := range fs {
		f := &fs[i]
		if f.CheckName == "" {
			f.CheckName = c.Name
		}
		if f.Service == "" {
			f.Service = c.Service
		}
		if f.ResourceID == "" {
			f.ResourceID = fact.ResourceID
		}
		if f.Region == "" {
			f.Region = fact.Region
		}
		if f.Pillar == "" {
			f.Pillar = c.Pillar
		}
		if f.Severity == "" {
			f.Severity = c.Severity
		}
	}
	return fs, nil
}
