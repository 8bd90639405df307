package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rachealIC/infra-review-cli/internal/checks"
	"github.com/rachealIC/infra-review-cli/internal/finding"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_NoFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Profile != "" {
		t.Fatalf("expected empty profile, got %q", cfg.Profile)
	}
	if cfg.Thresholds.LookbackDays != 0 {
		t.Fatalf("expected zero lookback_days, got %d", cfg.Thresholds.LookbackDays)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty config should validate: %v", err)
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	content := `profile: production
regions:
  - us-east-1
  - eu-west-1
services: [ec2, s3]
pillars: [security, Cost Optimization]
format: json
timeout: 5m
thresholds:
  cpu_underutilization_pct: 15
  lookback_days: 30
  required_tags: [Owner, CostCenter]
scoring:
  penalties:
    critical: 20
  weights:
    security: 0.5
ai:
  enabled: false
  providers: [openai, claude]
  timeout: 10s
  budget: 2m
  concurrency: 2
  requests_per_second: 1.5
  models:
    openai: gpt-4o
exclude:
  resource_ids:
    - i-0abc123
  tags:
    - "Environment=production"
    - "DoNotDelete"
`
	writeConfig(t, dir, ".infra-review.yaml", content)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	if cfg.Profile != "production" {
		t.Fatalf("expected profile production, got %q", cfg.Profile)
	}
	if len(cfg.Regions) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(cfg.Regions))
	}
	if cfg.TimeoutDuration() != 5*time.Minute {
		t.Fatalf("expected 5m timeout, got %v", cfg.TimeoutDuration())
	}

	services, _ := cfg.ServiceSet()
	if !services[finding.ServiceEC2] || !services[finding.ServiceS3] || len(services) != 2 {
		t.Fatalf("unexpected services %v", services)
	}
	pillars, _ := cfg.PillarSet()
	if !pillars[finding.PillarSecurity] || !pillars[finding.PillarCost] {
		t.Fatalf("unexpected pillars %v", pillars)
	}

	th := cfg.CheckThresholds()
	if th.CPUUnderutilizationPct != 15 || th.LookbackDays != 30 {
		t.Fatalf("overrides not applied: %+v", th)
	}
	if th.CPUOverutilizationPct != checks.DefaultThresholds().CPUOverutilizationPct {
		t.Fatal("unset knobs should keep defaults")
	}
	if len(th.RequiredTags) != 2 {
		t.Fatalf("expected 2 required tags, got %v", th.RequiredTags)
	}

	policy, err := cfg.ScoringPolicy()
	if err != nil {
		t.Fatalf("unexpected policy error: %v", err)
	}
	if policy.Penalties[finding.SeverityCritical] != 20 || policy.Penalties[finding.SeverityHigh] != 15 {
		t.Fatalf("unexpected penalties %v", policy.Penalties)
	}
	if policy.Weights[finding.PillarSecurity] != 0.5 {
		t.Fatalf("unexpected security weight %v", policy.Weights[finding.PillarSecurity])
	}

	if cfg.AIEnabled() {
		t.Fatal("expected ai disabled")
	}
	if order := cfg.ProviderOrder(); len(order) != 2 || order[0] != "openai" {
		t.Fatalf("unexpected provider order %v", order)
	}
	if cfg.ProviderTimeout() != 10*time.Second {
		t.Fatalf("expected 10s provider timeout, got %v", cfg.ProviderTimeout())
	}
	opts := cfg.EnrichOptions()
	if opts.Concurrency != 2 || opts.RequestsPerSecond != 1.5 || opts.Budget != 2*time.Minute {
		t.Fatalf("unexpected enrich options %+v", opts)
	}

	if !cfg.Exclude.IDs()["i-0abc123"] {
		t.Fatal("expected excluded resource id")
	}
}

func TestLoad_YMLExtension(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".infra-review.yml", "profile: staging\n")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Profile != "staging" {
		t.Fatalf("expected profile staging, got %q", cfg.Profile)
	}
}

func TestLoad_YAMLPreferredOverYML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".infra-review.yaml", "profile: from-yaml\n")
	writeConfig(t, dir, ".infra-review.yml", "profile: from-yml\n")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Profile != "from-yaml" {
		t.Fatalf("expected .yaml to win, got %q", cfg.Profile)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".infra-review.yaml", "regions: [unterminated\n")

	if _, err := Load(dir); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDefaults(t *testing.T) {
	var cfg Config
	if !cfg.AIEnabled() {
		t.Fatal("ai should default to enabled")
	}
	if order := cfg.ProviderOrder(); strings.Join(order, ",") != "claude,gemini,openai" {
		t.Fatalf("unexpected default provider order %v", order)
	}
	if cfg.TimeoutDuration() != 0 {
		t.Fatal("expected zero timeout")
	}
	if cfg.ProviderTimeout() != 0 {
		t.Fatal("expected zero provider timeout")
	}
	th := cfg.CheckThresholds()
	def := checks.DefaultThresholds()
	if th.LookbackDays != def.LookbackDays || th.CPUUnderutilizationPct != def.CPUUnderutilizationPct {
		t.Fatalf("expected default thresholds, got %+v", th)
	}
	services, err := cfg.ServiceSet()
	if err != nil || services != nil {
		t.Fatalf("expected nil service set, got %v, %v", services, err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"unknown service", Config{Services: []string{"dynamodb"}}, "services"},
		{"unknown pillar", Config{Pillars: []string{"speed"}}, "pillars"},
		{"unknown format", Config{Format: "xml"}, "format"},
		{"bad timeout", Config{Timeout: "soon"}, "timeout"},
		{"negative timeout", Config{Timeout: "-1m"}, "timeout"},
		{"cpu over 100", Config{Thresholds: Thresholds{IdleCPUPct: 120}}, "thresholds.idle_cpu_pct"},
		{"negative days", Config{Thresholds: Thresholds{EBSUnattachedDays: -1}}, "thresholds.ebs_unattached_days"},
		{"lookback beyond retention", Config{Thresholds: Thresholds{LookbackDays: 500}}, "thresholds.lookback_days"},
		{"memory ratio below one", Config{Thresholds: Thresholds{LambdaMemoryRatio: 0.5}}, "thresholds.lambda_memory_ratio"},
		{"inverted cpu band", Config{Thresholds: Thresholds{CPUUnderutilizationPct: 90, CPUOverutilizationPct: 80}}, "thresholds.cpu_underutilization_pct"},
		{"unknown severity", Config{Scoring: Scoring{Penalties: map[string]float64{"urgent": 5}}}, "scoring.penalties"},
		{"penalty above max", Config{Scoring: Scoring{Penalties: map[string]float64{"High": 40}}}, "scoring.penalties.High"},
		{"unknown weight pillar", Config{Scoring: Scoring{Weights: map[string]float64{"speed": 1}}}, "scoring.weights"},
		{"negative weight", Config{Scoring: Scoring{Weights: map[string]float64{"cost": -1}}}, "scoring.weights.cost"},
		{"unknown provider", Config{AI: AI{Providers: []string{"mistral"}}}, "ai.providers"},
		{"unknown model provider", Config{AI: AI{Models: map[string]string{"mistral": "large"}}}, "ai.models"},
		{"bad budget", Config{AI: AI{Budget: "forever"}}, "ai.budget"},
		{"negative concurrency", Config{AI: AI{Concurrency: -2}}, "ai.concurrency"},
		{"negative rate", Config{AI: AI{RequestsPerSecond: -1}}, "ai.requests_per_second"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			var cfgErr *finding.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Fatalf("expected field %q, got %q", tt.field, cfgErr.Field)
			}
		})
	}
}

func TestValidate_AllWeightsZero(t *testing.T) {
	weights := map[string]float64{}
	for _, p := range finding.Pillars {
		weights[p.Slug()] = 0
	}
	cfg := Config{Scoring: Scoring{Weights: weights}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when every weight is zero")
	}
}

func TestExclude_ParseTags(t *testing.T) {
	e := Exclude{Tags: []string{"Environment=production", "DoNotDelete", "Team=platform"}}
	m := e.ParseTags()

	if len(m) != 3 {
		t.Fatalf("expected 3 tags, got %d", len(m))
	}
	if m["Environment"] != "production" {
		t.Fatalf("expected Environment=production, got %q", m["Environment"])
	}
	if v, ok := m["DoNotDelete"]; !ok || v != "" {
		t.Fatalf("expected DoNotDelete key with empty value, got %q, ok=%v", v, ok)
	}
	if m["Team"] != "platform" {
		t.Fatalf("expected Team=platform, got %q", m["Team"])
	}
}

func TestExclude_ParseTagsEmpty(t *testing.T) {
	e := Exclude{}
	if m := e.ParseTags(); m != nil {
		t.Fatalf("expected nil map, got %v", m)
	}
	if ids := e.IDs(); ids != nil {
		t.Fatalf("expected nil id set, got %v", ids)
	}
}
