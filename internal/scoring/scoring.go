package scoring

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

// MaxPenalty bounds the deduction a single finding may cause.
const MaxPenalty = 25

// Policy holds the per-severity penalties and per-pillar weights used for scoring.
type Policy struct {
	Penalties map[finding.Severity]float64
	Weights   map[finding.Pillar]float64
}

// DefaultPolicy returns the default penalty and weight tables. Weights sum to 1.0.
func DefaultPolicy() Policy {
	return Policy{
		Penalties: map[finding.Severity]float64{
			finding.SeverityCritical: 25,
			finding.SeverityHigh:     15,
			finding.SeverityMedium:   7,
			finding.SeverityLow:      2,
		},
		Weights: map[finding.Pillar]float64{
			finding.PillarSecurity:       0.24,
			finding.PillarReliability:    0.24,
			finding.PillarOperational:    0.16,
			finding.PillarPerformance:    0.12,
			finding.PillarCost:           0.12,
			finding.PillarSustainability: 0.12,
		},
	}
}

// Validate checks that every penalty is within [0, MaxPenalty], every pillar has a
// finite non-negative weight and at least one weight is positive.
func (p Policy) Validate() error {
	for _, sev := range finding.Severities {
		v, ok := p.Penalties[sev]
		if !ok {
			return &finding.ConfigError{Field: "scoring.penalties." + string(sev), Reason: "missing"}
		}
		if v < 0 || v > MaxPenalty || math.IsNaN(v) || math.IsInf(v, 0) {
			return &finding.ConfigError{Field: "scoring.penalties." + string(sev), Reason: fmt.Sprintf("%v is outside [0, %d]", v, MaxPenalty)}
		}
	}

	var total float64
	for _, pillar := range finding.Pillars {
		w, ok := p.Weights[pillar]
		if !ok {
			return &finding.ConfigError{Field: "scoring.weights." + pillar.Slug(), Reason: "missing"}
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return &finding.ConfigError{Field: "scoring.weights." + pillar.Slug(), Reason: fmt.Sprintf("%v is not a finite non-negative number", w)}
		}
		total += w
	}
	if total <= 0 {
		return &finding.ConfigError{Field: "scoring.weights", Reason: "at least one weight must be positive"}
	}
	return nil
}

// Normalized returns a copy of the policy whose weights sum to 1.0.
func (p Policy) Normalized() Policy {
	var total float64
	for _, pillar := range finding.Pillars {
		total += p.Weights[pillar]
	}
	out := Policy{Penalties: p.Penalties, Weights: make(map[finding.Pillar]float64, len(finding.Pillars))}
	for _, pillar := range finding.Pillars {
		if total > 0 {
			out.Weights[pillar] = p.Weights[pillar] / total
		}
	}
	return out
}

// Penalty returns the deduction for one finding, clamped to [0, MaxPenalty].
func (p Policy) Penalty(sev finding.Severity) float64 {
	return math.Min(math.Max(p.Penalties[sev], 0), MaxPenalty)
}

// Score computes the six pillar scores and the overall score. coverage counts, per
// pillar, the resources that in-scope checks evaluated; a pillar with no coverage and
// no findings is NOT_SCANNED and excluded from the overall score.
func Score(findings []finding.Finding, coverage map[finding.Pillar]int, policy Policy) Scorecard {
	policy = policy.Normalized()

	penalties := make(map[finding.Pillar]float64)
	counts := make(map[finding.Pillar]int)
	for _, f := range findings {
		penalties[f.Pillar] += policy.Penalty(f.Severity)
		counts[f.Pillar]++
	}

	pillars := make([]PillarScore, 0, len(finding.Pillars))
	var scannedWeight float64
	for _, p := range finding.Pillars {
		ps := PillarScore{
			Pillar:             p,
			Slug:               p.Slug(),
			Status:             StatusNotScanned,
			FindingsCount:      counts[p],
			ResourcesEvaluated: coverage[p],
		}
		if coverage[p] > 0 || counts[p] > 0 {
			score := int(math.Round(math.Max(0, math.Min(100, 100-penalties[p]))))
			ps.Status = StatusScanned
			ps.Score = &score
			scannedWeight += policy.Weights[p]
		}
		pillars = append(pillars, ps)
	}

	var (
		overall float64
		scanned int
	)
	for i := range pillars {
		v, ok := pillars[i].Value()
		if !ok {
			continue
		}
		scanned++
		if scannedWeight > 0 {
			pillars[i].Weight = policy.Weights[pillars[i].Pillar] / scannedWeight
			overall += pillars[i].Weight * float64(v)
		}
	}
	// All scanned pillars carry zero weight: fall back to an unweighted mean.
	if scanned > 0 && scannedWeight == 0 {
		for i := range pillars {
			if v, ok := pillars[i].Value(); ok {
				pillars[i].Weight = 1 / float64(scanned)
				overall += pillars[i].Weight * float64(v)
			}
		}
	}

	return Scorecard{
		Pillars:        pillars,
		Overall:        decimal.NewFromFloat(overall).Round(1).InexactFloat64(),
		MonthlySavings: SavingsTotal(findings),
		Summary:        Summarize(findings),
	}
}

// SavingsTotal sums the non-null savings of findings, rounded to cents.
func SavingsTotal(findings []finding.Finding) float64 {
	total := decimal.Zero
	for _, f := range findings {
		if f.EstimatedMonthlySavings != nil {
			total = total.Add(decimal.NewFromFloat(*f.EstimatedMonthlySavings))
		}
	}
	return total.Round(2).InexactFloat64()
}

// Summarize computes aggregated statistics.
func Summarize(findings []finding.Finding) Summary {
	s := Summary{
		TotalFindings: len(findings),
		BySeverity:    make(map[string]int),
		ByService:     make(map[string]int),
	}
	for _, f := range findings {
		s.BySeverity[string(f.Severity)]++
		s.ByService[string(f.Service)]++
	}
	return s
}
