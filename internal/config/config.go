package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rachealIC/infra-review-cli/internal/checks"
	"github.com/rachealIC/infra-review-cli/internal/enrich"
	"github.com/rachealIC/infra-review-cli/internal/finding"
	"github.com/rachealIC/infra-review-cli/internal/report"
	"github.com/rachealIC/infra-review-cli/internal/scoring"
)

// FileNames are the config files Load looks for, in order.
var FileNames = []string{".infra-review.yaml", ".infra-review.yml"}

// Config holds infra-review configuration loaded from .infra-review.yaml.
type Config struct {
	Profile    string     `yaml:"profile"`
	Regions    []string   `yaml:"regions"`
	Services   []string   `yaml:"services"`
	Pillars    []string   `yaml:"pillars"`
	Format     string     `yaml:"format"`
	Output     string     `yaml:"output"`
	Timeout    string     `yaml:"timeout"`
	Thresholds Thresholds `yaml:"thresholds"`
	Scoring    Scoring    `yaml:"scoring"`
	AI         AI         `yaml:"ai"`
	Exclude    Exclude    `yaml:"exclude"`
}

// Thresholds overrides check knobs. Zero values keep the defaults.
type Thresholds struct {
	CPUUnderutilizationPct  float64  `yaml:"cpu_underutilization_pct"`
	CPUOverutilizationPct   float64  `yaml:"cpu_overutilization_pct"`
	CPUPeakSpikePct         float64  `yaml:"cpu_peak_spike_pct"`
	IdleCPUPct              float64  `yaml:"idle_cpu_pct"`
	LookbackDays            int      `yaml:"lookback_days"`
	EBSUnattachedDays       int      `yaml:"ebs_unattached_days"`
	RDSMinBackupRetention   int      `yaml:"rds_min_backup_retention_days"`
	RootActivityDays        int      `yaml:"root_activity_days"`
	LambdaMemoryRatio       float64  `yaml:"lambda_memory_ratio"`
	RequiredTags            []string `yaml:"required_tags"`
	LambdaSecretKeyPatterns []string `yaml:"lambda_secret_key_patterns"`
}

// Scoring overrides severity penalties and pillar weights. Keys are severity names
// and pillar names or slugs; missing keys keep the defaults.
type Scoring struct {
	Penalties map[string]float64 `yaml:"penalties"`
	Weights   map[string]float64 `yaml:"weights"`
}

// AI configures remediation enrichment. API keys are read from the environment only.
type AI struct {
	Enabled           *bool             `yaml:"enabled"`
	Providers         []string          `yaml:"providers"`
	Timeout           string            `yaml:"timeout"`
	Budget            string            `yaml:"budget"`
	Concurrency       int               `yaml:"concurrency"`
	RequestsPerSecond float64           `yaml:"requests_per_second"`
	Models            map[string]string `yaml:"models"`
}

// Exclude defines resources to skip during scanning.
type Exclude struct {
	ResourceIDs []string `yaml:"resource_ids"`
	Tags        []string `yaml:"tags"`
}

// ParseTags converts tag strings ("Key=Value" or "Key") into a map.
// Key-only entries have an empty string value, meaning "match any value".
func (e Exclude) ParseTags() map[string]string {
	if len(e.Tags) == 0 {
		return nil
	}
	m := make(map[string]string, len(e.Tags))
	for _, s := range e.Tags {
		if k, v, ok := strings.Cut(s, "="); ok {
			m[k] = v
		} else {
			m[s] = ""
		}
	}
	return m
}

// IDs returns the excluded resource ids as a set.
func (e Exclude) IDs() map[string]bool {
	if len(e.ResourceIDs) == 0 {
		return nil
	}
	m := make(map[string]bool, len(e.ResourceIDs))
	for _, id := range e.ResourceIDs {
		m[id] = true
	}
	return m
}

// TimeoutDuration parses the scan timeout. Validate rejects malformed values.
func (c Config) TimeoutDuration() time.Duration {
	if c.Timeout == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Load searches for .infra-review.yaml or .infra-review.yml in the given directory
// and returns the parsed config. Returns an empty Config if no file is found.
func Load(dir string) (Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}

		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		return cfg, nil
	}

	return Config{}, nil
}

// Validate checks every section and returns the first problem as a *finding.ConfigError.
func (c Config) Validate() error {
	if _, err := c.ServiceSet(); err != nil {
		return err
	}
	if _, err := c.PillarSet(); err != nil {
		return err
	}
	if c.Format != "" && !validFormat(c.Format) {
		return &finding.ConfigError{Field: "format", Reason: fmt.Sprintf("unknown format %q (use %s)", c.Format, strings.Join(report.Formats, ", "))}
	}
	if err := validDuration("timeout", c.Timeout); err != nil {
		return err
	}
	if err := c.Thresholds.validate(); err != nil {
		return err
	}
	if _, err := c.ScoringPolicy(); err != nil {
		return err
	}
	return c.AI.validate()
}

// ServiceSet parses the services section. An empty section means every service.
func (c Config) ServiceSet() (map[finding.Service]bool, error) {
	return ParseServices(c.Services)
}

// PillarSet parses the pillars section. An empty section means every pillar.
func (c Config) PillarSet() (map[finding.Pillar]bool, error) {
	return ParsePillars(c.Pillars)
}

// ParseServices converts service names into a set, rejecting unknown names.
func ParseServices(names []string) (map[finding.Service]bool, error) {
	if len(names) == 0 {
		return nil, nil
	}
	set := make(map[finding.Service]bool, len(names))
	for _, n := range names {
		svc, ok := finding.ParseService(n)
		if !ok {
			return nil, &finding.ConfigError{Field: "services", Reason: fmt.Sprintf("unknown service %q", n)}
		}
		set[svc] = true
	}
	return set, nil
}

// ParsePillars converts pillar names or slugs into a set, rejecting unknown names.
func ParsePillars(names []string) (map[finding.Pillar]bool, error) {
	if len(names) == 0 {
		return nil, nil
	}
	set := make(map[finding.Pillar]bool, len(names))
	for _, n := range names {
		p, ok := finding.ParsePillar(n)
		if !ok {
			return nil, &finding.ConfigError{Field: "pillars", Reason: fmt.Sprintf("unknown pillar %q", n)}
		}
		set[p] = true
	}
	return set, nil
}

// CheckThresholds returns the default thresholds with configured overrides applied.
func (c Config) CheckThresholds() checks.Thresholds {
	th := checks.DefaultThresholds()
	t := c.Thresholds
	if t.CPUUnderutilizationPct > 0 {
		th.CPUUnderutilizationPct = t.CPUUnderutilizationPct
	}
	if t.CPUOverutilizationPct > 0 {
		th.CPUOverutilizationPct = t.CPUOverutilizationPct
	}
	if t.CPUPeakSpikePct > 0 {
		th.CPUPeakSpikePct = t.CPUPeakSpikePct
	}
	if t.IdleCPUPct > 0 {
		th.IdleCPUPct = t.IdleCPUPct
	}
	if t.LookbackDays > 0 {
		th.LookbackDays = t.LookbackDays
	}
	if t.EBSUnattachedDays > 0 {
		th.EBSUnattachedDays = t.EBSUnattachedDays
	}
	if t.RDSMinBackupRetention > 0 {
		th.RDSMinBackupRetention = t.RDSMinBackupRetention
	}
	if t.RootActivityDays > 0 {
		th.RootActivityDays = t.RootActivityDays
	}
	if t.LambdaMemoryRatio > 0 {
		th.LambdaMemoryRatio = t.LambdaMemoryRatio
	}
	if len(t.RequiredTags) > 0 {
		th.RequiredTags = t.RequiredTags
	}
	if len(t.LambdaSecretKeyPatterns) > 0 {
		th.LambdaSecretKeyPatterns = t.LambdaSecretKeyPatterns
	}
	return th
}

func (t Thresholds) validate() error {
	for field, v := range map[string]float64{
		"cpu_underutilization_pct": t.CPUUnderutilizationPct,
		"cpu_overutilization_pct":  t.CPUOverutilizationPct,
		"cpu_peak_spike_pct":       t.CPUPeakSpikePct,
		"idle_cpu_pct":             t.IdleCPUPct,
	} {
		if v < 0 || v > 100 {
			return &finding.ConfigError{Field: "thresholds." + field, Reason: fmt.Sprintf("%v is outside [0, 100]", v)}
		}
	}
	for field, v := range map[string]int{
		"lookback_days":                 t.LookbackDays,
		"ebs_unattached_days":           t.EBSUnattachedDays,
		"rds_min_backup_retention_days": t.RDSMinBackupRetention,
		"root_activity_days":            t.RootActivityDays,
	} {
		if v < 0 {
			return &finding.ConfigError{Field: "thresholds." + field, Reason: fmt.Sprintf("%d is negative", v)}
		}
	}
	if t.LookbackDays > 455 {
		// CloudWatch retains hourly datapoints for 455 days.
		return &finding.ConfigError{Field: "thresholds.lookback_days", Reason: fmt.Sprintf("%d exceeds CloudWatch retention of 455 days", t.LookbackDays)}
	}
	if t.LambdaMemoryRatio != 0 && t.LambdaMemoryRatio < 1 {
		return &finding.ConfigError{Field: "thresholds.lambda_memory_ratio", Reason: fmt.Sprintf("%v must be at least 1", t.LambdaMemoryRatio)}
	}
	if t.CPUUnderutilizationPct > 0 && t.CPUOverutilizationPct > 0 && t.CPUUnderutilizationPct >= t.CPUOverutilizationPct {
		return &finding.ConfigError{Field: "thresholds.cpu_underutilization_pct", Reason: "must be below cpu_overutilization_pct"}
	}
	return nil
}

// ScoringPolicy returns the default policy with configured overrides applied.
func (c Config) ScoringPolicy() (scoring.Policy, error) {
	policy := scoring.DefaultPolicy()
	for name, v := range c.Scoring.Penalties {
		sev, ok := finding.ParseSeverity(name)
		if !ok {
			return scoring.Policy{}, &finding.ConfigError{Field: "scoring.penalties", Reason: fmt.Sprintf("unknown severity %q", name)}
		}
		policy.Penalties[sev] = v
	}
	for name, v := range c.Scoring.Weights {
		p, ok := finding.ParsePillar(name)
		if !ok {
			return scoring.Policy{}, &finding.ConfigError{Field: "scoring.weights", Reason: fmt.Sprintf("unknown pillar %q", name)}
		}
		policy.Weights[p] = v
	}
	if err := policy.Validate(); err != nil {
		return scoring.Policy{}, err
	}
	return policy, nil
}

// AIEnabled reports whether enrichment is on. It defaults to true.
func (c Config) AIEnabled() bool {
	return c.AI.Enabled == nil || *c.AI.Enabled
}

// ProviderOrder returns the configured provider fallback order, or the default.
func (c Config) ProviderOrder() []string {
	if len(c.AI.Providers) == 0 {
		return enrich.ProviderNames
	}
	out := make([]string, 0, len(c.AI.Providers))
	for _, p := range c.AI.Providers {
		out = append(out, strings.ToLower(strings.TrimSpace(p)))
	}
	return out
}

// ProviderTimeout is the per-call provider timeout. Zero lets the chain default apply.
func (c Config) ProviderTimeout() time.Duration {
	d, _ := time.ParseDuration(c.AI.Timeout)
	return d
}

// EnrichOptions converts the ai section into enricher options.
func (c Config) EnrichOptions() enrich.Options {
	budget, _ := time.ParseDuration(c.AI.Budget)
	return enrich.Options{
		Concurrency:       c.AI.Concurrency,
		RequestsPerSecond: c.AI.RequestsPerSecond,
		Budget:            budget,
	}
}

func (a AI) validate() error {
	for _, p := range a.Providers {
		if enrich.KeyEnv(strings.ToLower(strings.TrimSpace(p))) == "" {
			return &finding.ConfigError{Field: "ai.providers", Reason: fmt.Sprintf("unknown provider %q (use %s)", p, strings.Join(enrich.ProviderNames, ", "))}
		}
	}
	for p := range a.Models {
		if enrich.KeyEnv(strings.ToLower(p)) == "" {
			return &finding.ConfigError{Field: "ai.models", Reason: fmt.Sprintf("unknown provider %q", p)}
		}
	}
	if err := validDuration("ai.timeout", a.Timeout); err != nil {
		return err
	}
	if err := validDuration("ai.budget", a.Budget); err != nil {
		return err
	}
	if a.Concurrency < 0 {
		return &finding.ConfigError{Field: "ai.concurrency", Reason: fmt.Sprintf("%d is negative", a.Concurrency)}
	}
	if a.RequestsPerSecond < 0 {
		return &finding.ConfigError{Field: "ai.requests_per_second", Reason: fmt.Sprintf("%v is negative", a.RequestsPerSecond)}
	}
	return nil
}

func validDuration(field, s string) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return &finding.ConfigError{Field: field, Reason: fmt.Sprintf("invalid duration %q", s)}
	}
	if d < 0 {
		return &finding.ConfigError{Field: field, Reason: fmt.Sprintf("%s is negative", s)}
	}
	return nil
}

func validFormat(format string) bool {
	for _, f := range report.Formats {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}
