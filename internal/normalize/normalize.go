package normalize

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

// Estimator derives the monthly savings of a Cost finding that lacks one.
// ok is false when no estimate can be made.
type Estimator func(f finding.Finding) (savings float64, ok bool)

// Normalizer assigns stable ids, canonicalizes enum fields, fills savings for Cost
// findings and removes duplicates. It holds no per-scan state.
type Normalizer struct {
	estimators map[string]Estimator
}

// New creates a normalizer. estimators are keyed by check name.
func New(estimators map[string]Estimator) *Normalizer {
	if estimators == nil {
		estimators = map[string]Estimator{}
	}
	return &Normalizer{estimators: estimators}
}

// Normalize returns the canonical, deduplicated and sorted finding set together with
// a ValidationError for every field it had to down-classify. Running it again on its
// own output yields the same set.
func (n *Normalizer) Normalize(raw []finding.Finding) ([]finding.Finding, []error) {
	var errs []error
	byID := make(map[string]finding.Finding, len(raw))

	for _, f := range raw {
		f.ID = finding.ID(f.CheckName, f.ResourceID, f.Region)

		var (
			ok   bool
			verr []error
		)
		f, ok, verr = n.canonicalize(f)
		errs = append(errs, verr...)
		if !ok {
			continue
		}

		f, verr = n.applySavings(f)
		errs = append(errs, verr...)

		if prev, dup := byID[f.ID]; dup && !outranks(f, prev) {
			continue
		}
		byID[f.ID] = f
	}

	out := make([]finding.Finding, 0, len(byID))
	for _, f := range byID {
		out = append(out, f)
	}
	Sort(out)

	if dropped := len(raw) - len(out); dropped > 0 {
		slog.Debug("Normalized findings", "raw", len(raw), "kept", len(out), "collapsed", dropped)
	}
	return out, errs
}

func (n *Normalizer) canonicalize(f finding.Finding) (finding.Finding, bool, []error) {
	var errs []error

	if !f.Severity.Valid() {
		if sev, ok := finding.ParseSeverity(string(f.Severity)); ok {
			f.Severity = sev
		} else {
			errs = append(errs, &finding.ValidationError{FindingID: f.ID, Field: "severity", Value: string(f.Severity), Fallback: string(finding.SeverityLow)})
			f.Severity = finding.SeverityLow
		}
	}

	if !f.Pillar.Valid() {
		if p, ok := finding.ParsePillar(string(f.Pillar)); ok {
			f.Pillar = p
		} else {
			errs = append(errs, &finding.ValidationError{FindingID: f.ID, Field: "pillar", Value: string(f.Pillar), Fallback: "dropped"})
			return f, false, errs
		}
	}
	f.PillarSlug = f.Pillar.Slug()

	if !f.Effort.Valid() {
		if f.Effort != "" {
			errs = append(errs, &finding.ValidationError{FindingID: f.ID, Field: "effort", Value: string(f.Effort), Fallback: string(finding.EffortMedium)})
		}
		f.Effort = finding.EffortMedium
	}

	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	return f, true, errs
}

// applySavings enforces that only Cost findings carry a non-negative savings amount.
func (n *Normalizer) applySavings(f finding.Finding) (finding.Finding, []error) {
	if f.Pillar != finding.PillarCost {
		f.EstimatedMonthlySavings = nil
		return f, nil
	}

	if f.EstimatedMonthlySavings == nil {
		est, ok := n.estimators[f.CheckName]
		if !ok {
			return f, nil
		}
		v, ok := est(f)
		if !ok {
			return f, nil
		}
		f.EstimatedMonthlySavings = finding.Savings(v)
	}

	v := *f.EstimatedMonthlySavings
	var errs []error
	if v < 0 {
		errs = append(errs, &finding.ValidationError{FindingID: f.ID, Field: "estimated_monthly_savings", Value: decimal.NewFromFloat(v).String(), Fallback: "0"})
		v = 0
	}
	f.EstimatedMonthlySavings = finding.Savings(decimal.NewFromFloat(v).Round(2).InexactFloat64())
	return f, errs
}

// outranks reports whether a should replace b when both share an id.
// Ties are broken on content so the result does not depend on input order.
func outranks(a, b finding.Finding) bool {
	if a.Severity.Rank() != b.Severity.Rank() {
		return a.Severity.Rank() > b.Severity.Rank()
	}
	if a.Title != b.Title {
		return a.Title < b.Title
	}
	return a.Description < b.Description
}

// Sort orders findings by severity (most critical first), pillar display order,
// resource, check name and region.
func Sort(fs []finding.Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.Pillar.Order() != b.Pillar.Order() {
			return a.Pillar.Order() < b.Pillar.Order()
		}
		if a.ResourceID != b.ResourceID {
			return a.ResourceID < b.ResourceID
		}
		if a.CheckName != b.CheckName {
			return a.CheckName < b.CheckName
		}
		return a.Region < b.Region
	})
}
