package checks

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

const (
	CheckEC2Underutilized = "cost-ec2-001"
	CheckEC2HighCPU       = "perf-ec2-highcpu"
	CheckEC2NoASG         = "rel-asg-001"
	CheckEC2Graviton      = "sus-ec2-graviton-001"
	CheckEC2IdleAlwaysOn  = "sus-ec2-idle-001"
	CheckMissingTags      = "ops-tag-001"
)

// runningWithCPU returns the average and peak CPU of a running instance.
// ok is false for stopped instances and for instances without metrics.
func runningWithCPU(fact finding.ResourceFact) (avg, peak float64, ok bool, err error) {
	state, err := fact.Attrs.String(finding.AttrState)
	if err != nil {
		return 0, 0, false, err
	}
	if state != "running" || !fact.Attrs.Has(finding.AttrCPUAvg) {
		return 0, 0, false, nil
	}
	avg, err = fact.Attrs.Float(finding.AttrCPUAvg)
	if err != nil {
		return 0, 0, false, err
	}
	peak = avg
	if fact.Attrs.Has(finding.AttrCPUMax) {
		if peak, err = fact.Attrs.Float(finding.AttrCPUMax); err != nil {
			return 0, 0, false, err
		}
	}
	return avg, peak, true, nil
}

func ec2Underutilized(fact finding.ResourceFact, th Thresholds) ([]finding.Finding, error) {
	avg, peak, ok, err := runningWithCPU(fact)
	if err != nil || !ok || avg >= th.CPUUnderutilizationPct {
		return nil, err
	}

	instanceType := fact.Attrs.StringOr(finding.AttrInstanceType, "")
	meta := map[string]any{
		"instance_type": instanceType,
		"cpu_avg":       avg,
		"cpu_max":       peak,
	}
	desc := fmt.Sprintf("Average CPU: %.1f%%, peak: %.1f%% over %d days.", avg, peak, th.LookbackDays)
	if smaller, ok := Downsize(instanceType); ok {
		meta["suggested_instance_type"] = smaller
		desc += fmt.Sprintf(" Suggested: %s.", smaller)
	}

	return one(raise(fact, CheckEC2Underutilized, finding.PillarCost, finding.SeverityMedium, finding.EffortMedium,
		fmt.Sprintf("EC2 instance '%s' is underutilized", fact.ResourceID), desc, meta))
}

func ec2HighCPU(fact finding.ResourceFact, th Thresholds) ([]finding.Finding, error) {
	avg, peak, ok, err := runningWithCPU(fact)
	if err != nil || !ok {
		return nil, err
	}
	spiking := peak > th.CPUPeakSpikePct && avg > th.CPUOverutilizationPct*0.7
	if avg <= th.CPUOverutilizationPct && !spiking {
		return nil, nil
	}

	return one(raise(fact, CheckEC2HighCPU, finding.PillarPerformance, finding.SeverityHigh, finding.EffortHigh,
		fmt.Sprintf("EC2 instance '%s' is consistently overutilized", fact.ResourceID),
		fmt.Sprintf("This instance averaged %.1f%% CPU (peak %.1f%%) over %d days. This may cause latency or degraded performance.",
			avg, peak, th.LookbackDays),
		map[string]any{"cpu_avg": avg, "cpu_max": peak}))
}

func ec2NoASG(fact finding.ResourceFact, _ Thresholds) ([]finding.Finding, error) {
	state, err := fact.Attrs.String(finding.AttrState)
	if err != nil || state != "running" {
		return nil, err
	}
	inASG, err := fact.Attrs.Bool(finding.AttrInASG)
	if err != nil || inASG {
		return nil, err
	}

	return one(raise(fact, CheckEC2NoASG, finding.PillarReliability, finding.SeverityMedium, finding.EffortMedium,
		fmt.Sprintf("EC2 instance '%s' is not in an Auto Scaling Group", fact.ResourceID),
		fmt.Sprintf("Instance '%s' is not managed by an Auto Scaling Group. Failed instances will not be automatically replaced.", fact.ResourceID),
		nil))
}

func ec2Graviton(fact finding.ResourceFact, _ Thresholds) ([]finding.Finding, error) {
	state, err := fact.Attrs.String(finding.AttrState)
	if err != nil || state != "running" {
		return nil, err
	}
	instanceType := fact.Attrs.StringOr(finding.AttrInstanceType, "")
	suggested, ok := GravitonEquivalent(instanceType)
	if !ok {
		return nil, nil
	}

	return one(raise(fact, CheckEC2Graviton, finding.PillarSustainability, finding.SeverityLow, finding.EffortMedium,
		fmt.Sprintf("EC2 instance '%s' is not using Graviton", fact.ResourceID),
		fmt.Sprintf("Instance type '%s' can often be migrated to '%s'. Graviton instances typically provide better price-performance and lower energy use.",
			instanceType, suggested),
		map[string]any{"instance_type": instanceType, "suggested_instance_type": suggested}))
}

func ec2IdleAlwaysOn(fact finding.ResourceFact, th Thresholds) ([]finding.Finding, error) {
	avg, _, ok, err := runningWithCPU(fact)
	if err != nil || !ok || avg >= th.IdleCPUPct {
		return nil, err
	}
	instanceType := fact.Attrs.StringOr(finding.AttrInstanceType, "unknown")

	return one(raise(fact, CheckEC2IdleAlwaysOn, finding.PillarSustainability, finding.SeverityMedium, finding.EffortMedium,
		fmt.Sprintf("EC2 instance '%s' appears always-on and idle", fact.ResourceID),
		fmt.Sprintf("Instance '%s' (%s) averaged %.2f%% CPU over %d days. The workload can likely be scheduled or decommissioned.",
			fact.ResourceID, instanceType, avg, th.LookbackDays),
		map[string]any{"instance_type": instanceType, "cpu_avg": avg}))
}

var familyPattern = regexp.MustCompile(`^([a-z]+)(\d+)([a-z0-9-]*)$`)

// GravitonEquivalent maps an x86 instance type to a likely Graviton type:
// t-family to t4g, m/c/r families to generation max(n, 6) with a "g" suffix.
func GravitonEquivalent(instanceType string) (string, bool) {
	family, size, ok := strings.Cut(strings.ToLower(instanceType), ".")
	if !ok || size == "" {
		return "", false
	}
	m := familyPattern.FindStringSubmatch(family)
	if m == nil {
		return "", false
	}
	prefix, gen, suffix := m[1], m[2], m[3]
	if strings.Contains(suffix, "g") {
		return "", false
	}

	switch prefix {
	case "t":
		return "t4g." + size, true
	case "m", "c", "r":
		n, err := strconv.Atoi(gen)
		if err != nil {
			return "", false
		}
		if n < 6 {
			n = 6
		}
		return fmt.Sprintf("%s%dg.%s", prefix, n, size), true
	default:
		return "", false
	}
}

var sizeLadder = []string{
	"nano", "micro", "small", "medium", "large", "xlarge",
	"2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge", "24xlarge",
}

// Downsize returns the next smaller size in the same family.
func Downsize(instanceType string) (string, bool) {
	family, size, ok := strings.Cut(instanceType, ".")
	if !ok {
		return "", false
	}
	for i, s := range sizeLadder {
		if s == size && i > 0 {
			return family + "." + sizeLadder[i-1], true
		}
	}
	return "", false
}
