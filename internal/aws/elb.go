package aws

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

// ELBAPI is the minimal interface for ELBv2 operations.
type ELBAPI interface {
	DescribeLoadBalancers(ctx context.Context, input *elasticloadbalancingv2.DescribeLoadBalancersInput, opts ...func(*elasticloadbalancingv2.Options)) (*elasticloadbalancingv2.DescribeLoadBalancersOutput, error)
	DescribeTargetGroups(ctx context.Context, input *elasticloadbalancingv2.DescribeTargetGroupsInput, opts ...func(*elasticloadbalancingv2.Options)) (*elasticloadbalancingv2.DescribeTargetGroupsOutput, error)
	DescribeTargetHealth(ctx context.Context, input *elasticloadbalancingv2.DescribeTargetHealthInput, opts ...func(*elasticloadbalancingv2.Options)) (*elasticloadbalancingv2.DescribeTargetHealthOutput, error)
}

// ELBCollector describes application and network load balancers with traffic and
// target health.
type ELBCollector struct {
	client       ELBAPI
	metrics      *MetricsFetcher
	region       string
	lookbackDays int
}

// NewELBCollector creates a collector for load balancers.
func NewELBCollector(client ELBAPI, metrics *MetricsFetcher, region string, lookbackDays int) *ELBCollector {
	return &ELBCollector{client: client, metrics: metrics, region: region, lookbackDays: lookbackDays}
}

// Service returns the service this collector describes.
func (c *ELBCollector) Service() finding.Service {
	return finding.ServiceELB
}

// Collect lists load balancers. behind_cloudfront starts false and is set by
// LinkCloudFront once distributions are known.
func (c *ELBCollector) Collect(ctx context.Context) ([]finding.ResourceFact, error) {
	lbs, err := c.listLoadBalancers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list load balancers: %w", err)
	}
	if len(lbs) == 0 {
		return nil, nil
	}

	requests := c.fetchTraffic(ctx, lbs)

	facts := make([]finding.ResourceFact, 0, len(lbs))
	for _, lb := range lbs {
		arn := deref(lb.LoadBalancerArn)
		name := deref(lb.LoadBalancerName)

		attrs := finding.Attributes{
			finding.AttrLBType:           string(lb.Type),
			finding.AttrDNSName:          strings.ToLower(deref(lb.DNSName)),
			finding.AttrBehindCloudFront: false,
		}
		healthy, err := c.countHealthyTargets(ctx, arn)
		if err != nil {
			slog.Warn("Failed to check target health", "lb", name, "region", c.region, "error", err)
		} else {
			attrs[finding.AttrHealthyTargets] = healthy
		}
		if requests != nil {
			// No datapoints means no traffic in the window.
			attrs[finding.AttrRequestCount] = requests[extractLBDimension(arn)]
		}

		facts = append(facts, finding.ResourceFact{
			Service:    finding.ServiceELB,
			Type:       finding.TypeLoadBalancer,
			ResourceID: name,
			Region:     c.region,
			Attrs:      attrs,
		})
	}
	return facts, nil
}

func (c *ELBCollector) listLoadBalancers(ctx context.Context) ([]elbtypes.LoadBalancer, error) {
	var lbs []elbtypes.LoadBalancer
	var marker *string

	for {
		out, err := c.client.DescribeLoadBalancers(ctx, &elasticloadbalancingv2.DescribeLoadBalancersInput{
			Marker: marker,
		})
		if err != nil {
			return nil, err
		}
		for _, lb := range out.LoadBalancers {
			if lb.Type == elbtypes.LoadBalancerTypeEnumApplication || lb.Type == elbtypes.LoadBalancerTypeEnumNetwork {
				lbs = append(lbs, lb)
			}
		}
		if out.NextMarker == nil {
			break
		}
		marker = out.NextMarker
	}
	return lbs, nil
}

func (c *ELBCollector) countHealthyTargets(ctx context.Context, lbARN string) (int, error) {
	tgOut, err := c.client.DescribeTargetGroups(ctx, &elasticloadbalancingv2.DescribeTargetGroupsInput{
		LoadBalancerArn: &lbARN,
	})
	if err != nil {
		return 0, err
	}

	var healthy int
	for _, tg := range tgOut.TargetGroups {
		if tg.TargetGroupArn == nil {
			continue
		}
		healthOut, err := c.client.DescribeTargetHealth(ctx, &elasticloadbalancingv2.DescribeTargetHealthInput{
			TargetGroupArn: tg.TargetGroupArn,
		})
		if err != nil {
			return 0, err
		}
		for _, desc := range healthOut.TargetHealthDescriptions {
			if desc.TargetHealth != nil && desc.TargetHealth.State == elbtypes.TargetHealthStateEnumHealthy {
				healthy++
			}
		}
	}
	return healthy, nil
}

// fetchTraffic sums RequestCount for ALBs and ActiveFlowCount for NLBs, keyed by
// CloudWatch dimension. It returns nil when either lookup fails.
func (c *ELBCollector) fetchTraffic(ctx context.Context, lbs []elbtypes.LoadBalancer) map[string]float64 {
	var albs, nlbs []string
	for _, lb := range lbs {
		dim := extractLBDimension(deref(lb.LoadBalancerArn))
		if dim == "" {
			continue
		}
		if lb.Type == elbtypes.LoadBalancerTypeEnumNetwork {
			nlbs = append(nlbs, dim)
		} else {
			albs = append(albs, dim)
		}
	}

	out := make(map[string]float64, len(lbs))
	for _, q := range []struct {
		namespace, metric string
		ids               []string
	}{
		{"AWS/ApplicationELB", "RequestCount", albs},
		{"AWS/NetworkELB", "ActiveFlowCount", nlbs},
	} {
		sums, err := c.metrics.FetchSum(ctx, q.namespace, q.metric, "LoadBalancer", q.ids, c.lookbackDays)
		if err != nil {
			slog.Warn("Failed to fetch load balancer traffic", "metric", q.metric, "region", c.region, "error", err)
			return nil
		}
		for k, v := range sums {
			out[k] = v
		}
	}
	return out
}

// extractLBDimension extracts the CloudWatch dimension value from an ELBv2 ARN.
// Input:  arn:aws:elasticloadbalancing:us-east-1:123456:loadbalancer/app/my-lb/abc123
// Output: app/my-lb/abc123
func extractLBDimension(arn string) string {
	const prefix = "loadbalancer/"
	if i := strings.Index(arn, prefix); i >= 0 {
		return arn[i+len(prefix):]
	}
	return ""
}
