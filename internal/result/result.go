package result

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/rachealIC/infra-review-cli/internal/finding"
	"github.com/rachealIC/infra-review-cli/internal/scoring"
)

// ScanResult is the single artifact handed to report renderers. Every field is plain
// data so it serializes without custom marshalers.
type ScanResult struct {
	AccountID        string                `json:"accountId"`
	Region           string                `json:"region"`
	Regions          []string              `json:"regions"`
	GeneratedAt      time.Time             `json:"generatedAt"`
	ReportID         string                `json:"reportId"`
	AppVersion       string                `json:"appVersion"`
	ScanDuration     string                `json:"scanDuration"`
	DurationSeconds  float64               `json:"scanDurationSeconds"`
	OverallScore     float64               `json:"overallScore"`
	MonthlySavings   float64               `json:"monthlySavings"`
	Pillars          []scoring.PillarScore `json:"pillars"`
	Findings         []finding.Finding     `json:"findings"`
	Summary          scoring.Summary       `json:"summary"`
	Warnings         []finding.Warning     `json:"warnings"`
	ExecutiveSummary string                `json:"executiveSummary,omitempty"`
	Partial          bool                  `json:"partial"`
	ResourcesScanned int                   `json:"resourcesScanned"`
}

// Input is everything Assemble composes.
type Input struct {
	AccountID        string
	Regions          []string
	AppVersion       string
	StartedAt        time.Time
	FinishedAt       time.Time
	Scorecard        scoring.Scorecard
	Findings         []finding.Finding
	Errors           []error
	ExecutiveSummary string
	Partial          bool
	ResourcesScanned int
}

// Assemble validates that the scorecard covers exactly the pillar set and stamps
// report metadata. It copies slices so later changes to in do not leak into the result.
func Assemble(in Input) (*ScanResult, error) {
	if err := validatePillars(in.Scorecard.Pillars); err != nil {
		return nil, err
	}

	finished := in.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	finished = finished.UTC()
	duration := finished.Sub(in.StartedAt)
	if in.StartedAt.IsZero() || duration < 0 {
		duration = 0
	}

	findings := make([]finding.Finding, len(in.Findings))
	copy(findings, in.Findings)
	pillars := make([]scoring.PillarScore, len(in.Scorecard.Pillars))
	copy(pillars, in.Scorecard.Pillars)
	regions := make([]string, len(in.Regions))
	copy(regions, in.Regions)

	warnings := make([]finding.Warning, 0, len(in.Errors))
	for _, err := range in.Errors {
		if err != nil {
			warnings = append(warnings, finding.WarningFrom(err))
		}
	}

	accountID := in.AccountID
	if accountID == "" {
		accountID = "UNKNOWN"
	}

	return &ScanResult{
		AccountID:        accountID,
		Region:           strings.Join(regions, ","),
		Regions:          regions,
		GeneratedAt:      finished,
		ReportID:         ReportID(in.AccountID, finished),
		AppVersion:       in.AppVersion,
		ScanDuration:     FormatDuration(duration),
		DurationSeconds:  duration.Round(time.Millisecond).Seconds(),
		OverallScore:     in.Scorecard.Overall,
		MonthlySavings:   in.Scorecard.MonthlySavings,
		Pillars:          pillars,
		Findings:         findings,
		Summary:          in.Scorecard.Summary,
		Warnings:         warnings,
		ExecutiveSummary: in.ExecutiveSummary,
		Partial:          in.Partial,
		ResourcesScanned: in.ResourcesScanned,
	}, nil
}

func validatePillars(pillars []scoring.PillarScore) error {
	if len(pillars) != len(finding.Pillars) {
		return fmt.Errorf("scorecard has %d pillars, want %d", len(pillars), len(finding.Pillars))
	}
	seen := make(map[finding.Pillar]bool, len(pillars))
	for _, ps := range pillars {
		if !ps.Pillar.Valid() {
			return fmt.Errorf("scorecard has unknown pillar %q", ps.Pillar)
		}
		if seen[ps.Pillar] {
			return fmt.Errorf("scorecard lists pillar %q twice", ps.Pillar)
		}
		seen[ps.Pillar] = true

		switch ps.Status {
		case scoring.StatusScanned:
			if ps.Score == nil || *ps.Score < 0 || *ps.Score > 100 {
				return fmt.Errorf("pillar %q: scanned without a score in [0, 100]", ps.Pillar)
			}
		case scoring.StatusNotScanned:
			if ps.Score != nil {
				return fmt.Errorf("pillar %q: NOT_SCANNED must not carry a score", ps.Pillar)
			}
		default:
			return fmt.Errorf("pillar %q: unknown status %q", ps.Pillar, ps.Status)
		}
	}
	return nil
}

// ReportID formats "IR-<account digits>-YYYYmmdd-HHMMSS". An account id without
// digits is rendered as UNKNOWN.
func ReportID(accountID string, at time.Time) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, accountID)
	if digits == "" {
		digits = "UNKNOWN"
	}
	return fmt.Sprintf("IR-%s-%s", digits, at.UTC().Format("20060102-150405"))
}

// FormatDuration renders a scan duration like "1m 5.2s" or "850ms".
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		m := int(d.Minutes())
		s := d.Seconds() - float64(m*60)
		return fmt.Sprintf("%dm %.1fs", m, s)
	}
}
