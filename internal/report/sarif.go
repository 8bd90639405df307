package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rachealIC/infra-review-cli/internal/finding"
	"github.com/rachealIC/infra-review-cli/internal/result"
)

const sarifSchema = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json"

// SARIFReporter writes SARIF v2.1.0 output with one rule per check.
type SARIFReporter struct {
	Writer io.Writer
}

// sarifReport is the top-level SARIF v2.1.0 structure.
type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool       sarifTool      `json:"tool"`
	Results    []sarifResult  `json:"results"`
	Properties map[string]any `json:"properties,omitempty"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string            `json:"id"`
	ShortDescription sarifMessage      `json:"shortDescription"`
	DefaultConfig    sarifDefaultLevel `json:"defaultConfiguration"`
	Properties       map[string]any    `json:"properties,omitempty"`
}

type sarifDefaultLevel struct {
	Level string `json:"level"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID    string         `json:"ruleId"`
	Level     string         `json:"level"`
	Message   sarifMessage   `json:"message"`
	Locations []sarifLoc     `json:"locations,omitempty"`
	Props     map[string]any `json:"properties,omitempty"`
}

type sarifLoc struct {
	PhysicalLocation sarifPhysical `json:"physicalLocation"`
}

type sarifPhysical struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

// Generate writes SARIF v2.1.0 output.
func (r *SARIFReporter) Generate(res *result.ScanResult) error {
	results := make([]sarifResult, 0, len(res.Findings))
	for _, f := range res.Findings {
		msg := f.Title
		if f.Description != "" {
			msg = f.Title + ": " + f.Description
		}
		props := map[string]any{
			"findingId": f.ID,
			"pillar":    f.Pillar,
			"severity":  f.Severity,
			"effort":    f.Effort,
		}
		if f.EstimatedMonthlySavings != nil {
			props["estimatedMonthlySavings"] = *f.EstimatedMonthlySavings
		}
		if f.Remediation != nil {
			props["remediation"] = *f.Remediation
		}
		results = append(results, sarifResult{
			RuleID:  f.CheckName,
			Level:   sarifLevel(f.Severity),
			Message: sarifMessage{Text: msg},
			Locations: []sarifLoc{
				{
					PhysicalLocation: sarifPhysical{
						ArtifactLocation: sarifArtifact{
							URI: fmt.Sprintf("aws://%s/%s/%s", f.Region, f.Service, f.ResourceID),
						},
					},
				},
			},
			Props: props,
		})
	}

	report := sarifReport{
		Schema:  sarifSchema,
		Version: "2.1.0",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    Tool,
						Version: res.AppVersion,
						Rules:   buildSARIFRules(res.Findings),
					},
				},
				Results: results,
				Properties: map[string]any{
					"accountId":    res.AccountID,
					"reportId":     res.ReportID,
					"overallScore": res.OverallScore,
					"partial":      res.Partial,
				},
			},
		},
	}

	enc := json.NewEncoder(r.Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode SARIF report: %w", err)
	}
	return nil
}

func sarifLevel(s finding.Severity) string {
	switch s {
	case finding.SeverityCritical, finding.SeverityHigh:
		return "error"
	case finding.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

// buildSARIFRules declares each check that produced a finding, in first-seen order.
func buildSARIFRules(findings []finding.Finding) []sarifRule {
	seen := make(map[string]bool)
	rules := make([]sarifRule, 0)
	for _, f := range findings {
		if seen[f.CheckName] {
			continue
		}
		seen[f.CheckName] = true
		rules = append(rules, sarifRule{
			ID:               f.CheckName,
			ShortDescription: sarifMessage{Text: f.Title},
			DefaultConfig:    sarifDefaultLevel{Level: sarifLevel(f.Severity)},
			Properties:       map[string]any{"pillar": f.Pillar, "service": f.Service},
		})
	}
	return rules
}
