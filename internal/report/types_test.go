package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rachealIC/infra-review-cli/internal/finding"
	"github.com/rachealIC/infra-review-cli/internal/result"
	"github.com/rachealIC/infra-review-cli/internal/scoring"
)

func intPtr(v int) *int { return &v }

func sampleResult() *result.ScanResult {
	remediation := "- Stop the instance\n- Resize to t3.medium"
	pillars := make([]scoring.PillarScore, 0, len(finding.Pillars))
	for _, p := range finding.Pillars {
		ps := scoring.PillarScore{Pillar: p, Slug: p.Slug(), Status: scoring.StatusNotScanned}
		switch p {
		case finding.PillarCost:
			ps.Status, ps.Score, ps.FindingsCount, ps.ResourcesEvaluated, ps.Weight = scoring.StatusScanned, intPtr(93), 1, 3, 0.5
		case finding.PillarSecurity:
			ps.Status, ps.Score, ps.FindingsCount, ps.ResourcesEvaluated, ps.Weight = scoring.StatusScanned, intPtr(75), 1, 2, 0.5
		}
		pillars = append(pillars, ps)
	}

	return &result.ScanResult{
		AccountID:      "123456789012",
		Region:         "us-east-1",
		Regions:        []string{"us-east-1"},
		GeneratedAt:    time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC),
		ReportID:       "IR-123456789012-20261016-120000",
		AppVersion:     "1.2.0",
		ScanDuration:   "12.4s",
		OverallScore:   84,
		MonthlySavings: 30.37,
		Pillars:        pillars,
		Findings: []finding.Finding{
			{
				ID:          "a1b2c3d4e5f60718",
				CheckName:   "sec-s3-001",
				Service:     finding.ServiceS3,
				Pillar:      finding.PillarSecurity,
				PillarSlug:  "security",
				Severity:    finding.SeverityCritical,
				Title:       "Public S3 bucket",
				Description: "Bucket policy allows public '*' access",
				ResourceID:  "assets-<prod>",
				Region:      "us-east-1",
				Effort:      finding.EffortLow,
			},
			{
				ID:                      "0f1e2d3c4b5a6978",
				CheckName:               "cost-ec2-001",
				Service:                 finding.ServiceEC2,
				Pillar:                  finding.PillarCost,
				PillarSlug:              "cost",
				Severity:                finding.SeverityMedium,
				Title:                   "Underutilized EC2 instance",
				Description:             "Average CPU 2.0% over 14 days",
				ResourceID:              "i-0abc123",
				Region:                  "us-east-1",
				Effort:                  finding.EffortMedium,
				EstimatedMonthlySavings: finding.Savings(30.37),
				Remediation:             &remediation,
			},
		},
		Summary: scoring.Summary{
			TotalFindings: 2,
			BySeverity:    map[string]int{"Critical": 1, "Medium": 1},
			ByService:     map[string]int{"s3": 1, "ec2": 1},
		},
		Warnings: []finding.Warning{
			finding.WarningFrom(&finding.AdapterError{Service: finding.ServiceRDS, Region: "us-east-1", Err: errors.New("AccessDenied")}),
		},
		ExecutiveSummary: "Overall health is 84.0/100.",
		ResourcesScanned: 5,
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{"text", "*report.TextReporter", false},
		{"", "*report.TextReporter", false},
		{"JSON", "*report.JSONReporter", false},
		{"sarif", "*report.SARIFReporter", false},
		{"html", "*report.HTMLReporter", false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			r, err := New(tt.format, &bytes.Buffer{})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := typeName(r); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func typeName(r Reporter) string {
	switch r.(type) {
	case *TextReporter:
		return "*report.TextReporter"
	case *JSONReporter:
		return "*report.JSONReporter"
	case *SARIFReporter:
		return "*report.SARIFReporter"
	case *HTMLReporter:
		return "*report.HTMLReporter"
	}
	return "unknown"
}

func TestTextReporter_Generate(t *testing.T) {
	var buf bytes.Buffer
	r := &TextReporter{Writer: &buf}

	if err := r.Generate(sampleResult()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"infra-review",
		"IR-123456789012-20261016-120000",
		"84.0/100",
		"$30.37",
		"i-0abc123",
		"sec-s3-001",
		"Stop the instance",
		"Scan Warnings",
		"AccessDenied",
		"Executive Summary",
		"N/A",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in text output", want)
		}
	}
}

func TestTextReporter_NoFindings(t *testing.T) {
	var buf bytes.Buffer
	r := &TextReporter{Writer: &buf}

	res := sampleResult()
	res.Findings = nil
	res.Warnings = nil
	res.Summary = scoring.Summary{}

	if err := r.Generate(res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "No findings") {
		t.Fatal("expected 'No findings' message")
	}
	if !strings.Contains(output, "None") {
		t.Fatal("expected empty warnings section")
	}
}

func TestTextReporter_Partial(t *testing.T) {
	var buf bytes.Buffer
	res := sampleResult()
	res.Partial = true
	if err := (&TextReporter{Writer: &buf}).Generate(res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "partial") {
		t.Fatal("expected partial notice")
	}
}

func TestJSONReporter_Generate(t *testing.T) {
	var buf bytes.Buffer
	r := &JSONReporter{Writer: &buf}

	if err := r.Generate(sampleResult()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var envelope map[string]any
	if err := json.Unmarshal(buf.Bytes(), &envelope); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if envelope["$schema"] != JSONSchema {
		t.Fatalf("expected $schema %s, got %v", JSONSchema, envelope["$schema"])
	}
	for _, key := range []string{"accountId", "region", "generatedAt", "reportId", "appVersion", "scanDuration", "overallScore", "monthlySavings", "pillars", "findings"} {
		if _, ok := envelope[key]; !ok {
			t.Errorf("missing top-level key %q", key)
		}
	}

	pillars := envelope["pillars"].([]any)
	if len(pillars) != 6 {
		t.Fatalf("expected 6 pillars, got %d", len(pillars))
	}
	first := pillars[0].(map[string]any)
	for _, key := range []string{"pillar", "score", "findingsCount"} {
		if _, ok := first[key]; !ok {
			t.Errorf("missing pillar key %q", key)
		}
	}

	findings := envelope["findings"].([]any)
	f := findings[0].(map[string]any)
	for _, key := range []string{"finding_id", "pillar", "pillar_slug", "severity", "title", "description", "resource_id", "region", "effort", "remediation"} {
		if _, ok := f[key]; !ok {
			t.Errorf("missing finding key %q", key)
		}
	}
	if f["remediation"] != nil {
		t.Fatalf("expected null remediation, got %v", f["remediation"])
	}
	if f["estimated_monthly_savings"] != nil {
		t.Fatal("security finding should carry null savings")
	}
}

func TestSARIFReporter_Generate(t *testing.T) {
	var buf bytes.Buffer
	r := &SARIFReporter{Writer: &buf}

	if err := r.Generate(sampleResult()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sarif map[string]any
	if err := json.Unmarshal(buf.Bytes(), &sarif); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if sarif["version"] != "2.1.0" {
		t.Fatalf("expected SARIF version 2.1.0, got %v", sarif["version"])
	}

	runs, ok := sarif["runs"].([]any)
	if !ok || len(runs) != 1 {
		t.Fatal("expected 1 SARIF run")
	}

	run := runs[0].(map[string]any)
	results, ok := run["results"].([]any)
	if !ok || len(results) != 2 {
		t.Fatal("expected 2 SARIF results")
	}

	result := results[0].(map[string]any)
	if result["ruleId"] != "sec-s3-001" {
		t.Fatalf("expected ruleId sec-s3-001, got %v", result["ruleId"])
	}
	if result["level"] != "error" {
		t.Fatalf("expected level error, got %v", result["level"])
	}
	if lvl := results[1].(map[string]any)["level"]; lvl != "warning" {
		t.Fatalf("expected medium finding at warning level, got %v", lvl)
	}

	driver := run["tool"].(map[string]any)["driver"].(map[string]any)
	if rules := driver["rules"].([]any); len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
}

func TestSARIFReporter_NoFindings(t *testing.T) {
	var buf bytes.Buffer
	res := sampleResult()
	res.Findings = nil
	if err := (&SARIFReporter{Writer: &buf}).Generate(res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"rules": []`) {
		t.Fatal("expected an empty rules array")
	}
}

func TestHTMLReporter_Generate(t *testing.T) {
	var buf bytes.Buffer
	r := &HTMLReporter{Writer: &buf}

	if err := r.Generate(sampleResult()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"<!DOCTYPE html>",
		"IR-123456789012-20261016-120000",
		`id="report-data"`,
		"Scan Warnings",
		"Executive Summary",
		`value="security"`,
		"$30.37",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in HTML output", want)
		}
	}
	if strings.Contains(output, "assets-<prod>") {
		t.Fatal("resource ids must be escaped inside the embedded data")
	}

	start := strings.Index(output, `<script id="report-data" type="application/json">`)
	if start < 0 {
		t.Fatal("missing report data script")
	}
	rest := output[start+len(`<script id="report-data" type="application/json">`):]
	payload := rest[:strings.Index(rest, "</script>")]

	var data map[string]any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		t.Fatalf("embedded data is not JSON: %v", err)
	}
	findings := data["findings"].([]any)
	if len(findings) != 2 {
		t.Fatalf("expected 2 embedded findings, got %d", len(findings))
	}
	if id := findings[0].(map[string]any)["resource_id"]; id != "assets-<prod>" {
		t.Fatalf("expected decoded resource id, got %v", id)
	}
}

func TestMoney(t *testing.T) {
	tests := map[float64]string{0: "$0.00", 30.37: "$30.37", 1234.5: "$1234.50", 0.005: "$0.01"}
	for in, want := range tests {
		if got := money(in); got != want {
			t.Errorf("money(%v) = %q, want %q", in, got, want)
		}
	}
}
