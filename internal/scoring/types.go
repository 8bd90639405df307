package scoring

import "github.com/rachealIC/infra-review-cli/internal/finding"

// Pillar status values.
const (
	StatusScanned    = "SCANNED"
	StatusNotScanned = "NOT_SCANNED"
)

// PillarScore is the computed health of one pillar. Score is nil when the pillar
// was not scanned, which keeps NOT_SCANNED distinct from a perfect 100.
type PillarScore struct {
	Pillar             finding.Pillar `json:"pillar"`
	Slug               string         `json:"slug"`
	Status             string         `json:"status"`
	Score              *int           `json:"score"`
	FindingsCount      int            `json:"findingsCount"`
	ResourcesEvaluated int            `json:"resourcesEvaluated"`
	// Weight is the share of the overall score after renormalization over scanned pillars.
	Weight float64 `json:"weight"`
}

// Scanned reports whether the pillar has a numeric score.
func (p PillarScore) Scanned() bool {
	return p.Status == StatusScanned && p.Score != nil
}

// Value returns the numeric score, or 0 and false when not scanned.
func (p PillarScore) Value() (int, bool) {
	if !p.Scanned() {
		return 0, false
	}
	return *p.Score, true
}

// Label is a short human description of the score band.
func (p PillarScore) Label() string {
	v, ok := p.Value()
	if !ok {
		return "Not scanned"
	}
	return Label(float64(v))
}

// Label maps a 0-100 score onto a rating band.
func Label(score float64) string {
	switch {
	case score >= 90:
		return "Excellent"
	case score >= 75:
		return "Good"
	case score >= 50:
		return "Needs Attention"
	default:
		return "Critical"
	}
}

// Scorecard is the aggregate produced by Score.
type Scorecard struct {
	Pillars []PillarScore `json:"pillars"`
	// Overall is the weighted mean of scanned pillar scores, one decimal. 0 when nothing was scanned.
	Overall        float64 `json:"overallScore"`
	MonthlySavings float64 `json:"monthlySavings"`
	Summary        Summary `json:"summary"`
}

// Summary holds aggregated statistics about findings.
type Summary struct {
	TotalFindings int            `json:"totalFindings"`
	BySeverity    map[string]int `json:"bySeverity"`
	ByService     map[string]int `json:"byService"`
}
