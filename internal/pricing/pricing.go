package pricing

import (
	_ "embed"
	"encoding/json"
	"log/slog"

	"github.com/shopspring/decimal"
)

const hoursPerMonth = 730

//go:embed data/prices.json
var pricingData []byte

// pricingDB holds the parsed pricing data keyed by resource type, then instance/volume type, then region.
var pricingDB map[string]map[string]map[string]float64

func init() {
	if err := json.Unmarshal(pricingData, &pricingDB); err != nil {
		slog.Warn("Failed to parse embedded pricing data", "error", err)
		pricingDB = make(map[string]map[string]map[string]float64)
	}
}

// lookup returns the price for a resource type, sub-type and region, falling back to us-east-1.
func lookup(resourceType, subType, region string) (float64, bool) {
	types, ok := pricingDB[resourceType]
	if !ok {
		return 0, false
	}
	regions, ok := types[subType]
	if !ok {
		return 0, false
	}
	price, ok := regions[region]
	if !ok {
		price, ok = regions["us-east-1"]
		if !ok {
			return 0, false
		}
	}
	return price, true
}

func cents(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// HourlyEC2Price returns the on-demand Linux hourly price of an instance type.
func HourlyEC2Price(instanceType, region string) (float64, bool) {
	return lookup("ec2", instanceType, region)
}

// MonthlyEC2Cost returns the estimated monthly cost for an EC2 instance type in a region.
// Returns 0 if the instance type is not in the pricing database.
func MonthlyEC2Cost(instanceType, region string) float64 {
	hourly, ok := HourlyEC2Price(instanceType, region)
	if !ok {
		return 0
	}
	return cents(decimal.NewFromFloat(hourly).Mul(decimal.NewFromInt(hoursPerMonth)))
}

// MonthlyEBSCost returns the estimated monthly cost for an EBS volume.
// Price is per GiB per month.
func MonthlyEBSCost(volumeType string, sizeGiB int, region string) float64 {
	perGiB, ok := lookup("ebs", volumeType, region)
	if !ok {
		return 0
	}
	return cents(decimal.NewFromFloat(perGiB).Mul(decimal.NewFromInt(int64(sizeGiB))))
}

// MonthlyEIPCost returns the monthly cost of an unassociated Elastic IP.
func MonthlyEIPCost(region string) float64 {
	cost, _ := lookup("eip", "default", region)
	return cost
}

// MonthlyALBCost returns the base monthly cost of an ALB (excluding LCU charges).
func MonthlyALBCost(region string) float64 {
	cost, _ := lookup("alb", "default", region)
	return cost
}

// MonthlyNLBCost returns the base monthly cost of an NLB (excluding LCU charges).
func MonthlyNLBCost(region string) float64 {
	cost, _ := lookup("nlb", "default", region)
	return cost
}

// MonthlyLoadBalancerCost dispatches on the elbv2 load balancer type.
// Gateway and unknown types are priced as an ALB.
func MonthlyLoadBalancerCost(lbType, region string) float64 {
	if lbType == "network" {
		return MonthlyNLBCost(region)
	}
	return MonthlyALBCost(region)
}
