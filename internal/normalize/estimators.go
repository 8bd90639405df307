package normalize

import (
	"github.com/rachealIC/infra-review-cli/internal/checks"
	"github.com/rachealIC/infra-review-cli/internal/finding"
	"github.com/rachealIC/infra-review-cli/internal/pricing"
)

// DefaultEstimators returns the price-table estimators for the builtin Cost checks.
func DefaultEstimators() map[string]Estimator {
	return map[string]Estimator{
		checks.CheckEC2Underutilized: estimateEC2Rightsizing,
		checks.CheckEBSUnattached:    estimateEBS,
		checks.CheckEIPUnassociated:  estimateEIP,
		checks.CheckELBUnused:        estimateLoadBalancer,
		checks.CheckECSUnused:        func(finding.Finding) (float64, bool) { return 0, true },
	}
}

// estimateEC2Rightsizing is the price difference to the next smaller size, or half
// the current cost when the smaller size is not priced.
func estimateEC2Rightsizing(f finding.Finding) (float64, bool) {
	meta := finding.Attributes(f.Metadata)
	instanceType, err := meta.String("instance_type")
	if err != nil {
		return 0, false
	}
	current := pricing.MonthlyEC2Cost(instanceType, f.Region)
	if current == 0 {
		return 0, false
	}
	if smaller, err := meta.String("suggested_instance_type"); err == nil {
		if next := pricing.MonthlyEC2Cost(smaller, f.Region); next > 0 && next < current {
			return current - next, true
		}
	}
	return current * 0.5, true
}

func estimateEBS(f finding.Finding) (float64, bool) {
	meta := finding.Attributes(f.Metadata)
	size, err := meta.Int("size_gib")
	if err != nil {
		return 0, false
	}
	cost := pricing.MonthlyEBSCost(meta.StringOr("volume_type", "gp2"), size, f.Region)
	return cost, cost > 0
}

func estimateEIP(f finding.Finding) (float64, bool) {
	cost := pricing.MonthlyEIPCost(f.Region)
	return cost, cost > 0
}

func estimateLoadBalancer(f finding.Finding) (float64, bool) {
	lbType := finding.Attributes(f.Metadata).StringOr("lb_type", "application")
	cost := pricing.MonthlyLoadBalancerCost(lbType, f.Region)
	return cost, cost > 0
}
