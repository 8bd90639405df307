package finding

import "strings"

// Pillar is one of the fixed top-level audit categories.
type Pillar string

const (
	PillarSecurity       Pillar = "Security"
	PillarCost           Pillar = "Cost Optimization"
	PillarReliability    Pillar = "Reliability"
	PillarPerformance    Pillar = "Performance Efficiency"
	PillarOperational    Pillar = "Operational Excellence"
	PillarSustainability Pillar = "Sustainability"
)

// Pillars lists every pillar in report display order.
var Pillars = []Pillar{
	PillarSecurity,
	PillarReliability,
	PillarOperational,
	PillarPerformance,
	PillarCost,
	PillarSustainability,
}

var pillarSlugs = map[Pillar]string{
	PillarSecurity:       "security",
	PillarCost:           "cost",
	PillarReliability:    "reliability",
	PillarPerformance:    "performance",
	PillarOperational:    "operational",
	PillarSustainability: "sustainability",
}

// Valid reports whether p is a member of the closed pillar set.
func (p Pillar) Valid() bool {
	_, ok := pillarSlugs[p]
	return ok
}

// Slug returns the short identifier used by report scripts and CLI filters.
func (p Pillar) Slug() string {
	return pillarSlugs[p]
}

// Order returns the display position of p, or len(Pillars) when unknown.
func (p Pillar) Order() int {
	for i, q := range Pillars {
		if q == p {
			return i
		}
	}
	return len(Pillars)
}

// ParsePillar accepts a display name or a slug, case-insensitively.
func ParsePillar(s string) (Pillar, bool) {
	s = strings.TrimSpace(s)
	for p, slug := range pillarSlugs {
		if strings.EqualFold(s, string(p)) || strings.EqualFold(s, slug) {
			return p, true
		}
	}
	return "", false
}

// Severity is an ordered criticality tag.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// Severities lists severities from most to least critical.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// Rank orders severities: Critical=4 down to Low=1. Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// ParseSeverity matches a severity name case-insensitively.
func ParseSeverity(s string) (Severity, bool) {
	for _, sev := range Severities {
		if strings.EqualFold(strings.TrimSpace(s), string(sev)) {
			return sev, true
		}
	}
	return "", false
}

// Effort estimates how much work a remediation takes.
type Effort string

const (
	EffortLow    Effort = "Low"
	EffortMedium Effort = "Medium"
	EffortHigh   Effort = "High"
)

// Valid reports whether e is a known effort level.
func (e Effort) Valid() bool {
	switch e {
	case EffortLow, EffortMedium, EffortHigh:
		return true
	}
	return false
}

// Service identifies the cloud service a resource fact belongs to.
type Service string

const (
	ServiceEC2        Service = "ec2"
	ServiceEBS        Service = "ebs"
	ServiceEIP        Service = "eip"
	ServiceELB        Service = "elb"
	ServiceRDS        Service = "rds"
	ServiceS3         Service = "s3"
	ServiceVPC        Service = "vpc"
	ServiceIAM        Service = "iam"
	ServiceECS        Service = "ecs"
	ServiceCloudTrail Service = "cloudtrail"
	ServiceCloudWatch Service = "cloudwatch"
	ServiceLambda     Service = "lambda"
	ServiceCloudFront Service = "cloudfront"
)

// Services lists every service the collectors know about.
var Services = []Service{
	ServiceEC2, ServiceEBS, ServiceEIP, ServiceELB, ServiceRDS, ServiceS3, ServiceVPC,
	ServiceIAM, ServiceECS, ServiceCloudTrail, ServiceCloudWatch, ServiceLambda, ServiceCloudFront,
}

// ParseService matches a service name case-insensitively.
func ParseService(s string) (Service, bool) {
	for _, svc := range Services {
		if strings.EqualFold(strings.TrimSpace(s), string(svc)) {
			return svc, true
		}
	}
	return "", false
}

// Finding is one detected issue tied to a single resource and check.
type Finding struct {
	ID                      string         `json:"finding_id"`
	CheckName               string         `json:"check_id"`
	Service                 Service        `json:"service"`
	Pillar                  Pillar         `json:"pillar"`
	PillarSlug              string         `json:"pillar_slug"`
	Severity                Severity       `json:"severity"`
	Title                   string         `json:"title"`
	Description             string         `json:"description"`
	ResourceID              string         `json:"resource_id"`
	Region                  string         `json:"region"`
	Effort                  Effort         `json:"effort"`
	EstimatedMonthlySavings *float64       `json:"estimated_monthly_savings"`
	Remediation             *string        `json:"remediation"`
	Metadata                map[string]any `json:"metadata,omitempty"`
}

// Savings returns a pointer to v for populating EstimatedMonthlySavings.
func Savings(v float64) *float64 {
	return &v
}
