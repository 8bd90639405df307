package aws

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

// maxASGInstanceIDs is the DescribeAutoScalingInstances limit per call.
const maxASGInstanceIDs = 50

// asgTagKey is set by Auto Scaling on every instance it launches.
const asgTagKey = "aws:autoscaling:groupName"

// EC2API is the minimal interface for EC2 instance operations.
type EC2API interface {
	DescribeInstances(ctx context.Context, input *ec2.DescribeInstancesInput, opts ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// AutoScalingAPI is the minimal interface for resolving ASG membership.
type AutoScalingAPI interface {
	DescribeAutoScalingInstances(ctx context.Context, input *autoscaling.DescribeAutoScalingInstancesInput, opts ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingInstancesOutput, error)
}

// EC2Collector describes running and stopped instances with CPU metrics and ASG membership.
type EC2Collector struct {
	client       EC2API
	asg          AutoScalingAPI
	metrics      *MetricsFetcher
	region       string
	lookbackDays int
}

// NewEC2Collector creates a collector for EC2 instances.
func NewEC2Collector(client EC2API, asg AutoScalingAPI, metrics *MetricsFetcher, region string, lookbackDays int) *EC2Collector {
	return &EC2Collector{client: client, asg: asg, metrics: metrics, region: region, lookbackDays: lookbackDays}
}

// Service returns the service this collector describes.
func (c *EC2Collector) Service() finding.Service {
	return finding.ServiceEC2
}

// Collect lists instances and attaches utilization. Metric or ASG lookup failures
// leave the affected attributes out rather than failing the collector.
func (c *EC2Collector) Collect(ctx context.Context) ([]finding.ResourceFact, error) {
	instances, err := c.listInstances(ctx)
	if err != nil {
		return nil, fmt.Errorf("list EC2 instances: %w", err)
	}
	if len(instances) == 0 {
		return nil, nil
	}

	var runningIDs []string
	for _, inst := range instances {
		if inst.State != nil && inst.State.Name == ec2types.InstanceStateNameRunning {
			runningIDs = append(runningIDs, deref(inst.InstanceId))
		}
	}

	var cpuAvg, cpuMax map[string]float64
	if len(runningIDs) > 0 {
		cpuAvg, err = c.metrics.FetchAverage(ctx, "AWS/EC2", "CPUUtilization", "InstanceId", runningIDs, c.lookbackDays)
		if err != nil {
			slog.Warn("Failed to fetch EC2 CPU metrics", "region", c.region, "error", err)
		}
		cpuMax, err = c.metrics.FetchMaximum(ctx, "AWS/EC2", "CPUUtilization", "InstanceId", runningIDs, c.lookbackDays)
		if err != nil {
			slog.Warn("Failed to fetch EC2 peak CPU metrics", "region", c.region, "error", err)
		}
	}

	inASG, asgErr := c.asgMembers(ctx, instanceIDs(instances))
	if asgErr != nil {
		slog.Warn("Failed to describe Auto Scaling instances, falling back to tags", "region", c.region, "error", asgErr)
	}

	facts := make([]finding.ResourceFact, 0, len(instances))
	for _, inst := range instances {
		id := deref(inst.InstanceId)
		tags := ec2TagsToMap(inst.Tags)
		attrs := finding.Attributes{
			finding.AttrState:        stateName(inst),
			finding.AttrInstanceType: string(inst.InstanceType),
			finding.AttrArchitecture: string(inst.Architecture),
			finding.AttrTags:         tags,
		}
		if asgErr == nil {
			attrs[finding.AttrInASG] = inASG[id]
		} else {
			_, tagged := tags[asgTagKey]
			attrs[finding.AttrInASG] = tagged
		}
		if v, ok := cpuAvg[id]; ok {
			attrs[finding.AttrCPUAvg] = v
		}
		if v, ok := cpuMax[id]; ok {
			attrs[finding.AttrCPUMax] = v
		}

		facts = append(facts, finding.ResourceFact{
			Service:    finding.ServiceEC2,
			Type:       finding.TypeInstance,
			ResourceID: id,
			Region:     c.region,
			Attrs:      attrs,
		})
	}
	return facts, nil
}

func (c *EC2Collector) listInstances(ctx context.Context) ([]ec2types.Instance, error) {
	var instances []ec2types.Instance
	paginator := ec2.NewDescribeInstancesPaginator(c.client, &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{
				Name:   awssdk.String("instance-state-name"),
				Values: []string{"running", "stopped"},
			},
		},
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, res := range page.Reservations {
			instances = append(instances, res.Instances...)
		}
	}
	return instances, nil
}

// asgMembers returns the set of instance ids that belong to an Auto Scaling group.
func (c *EC2Collector) asgMembers(ctx context.Context, ids []string) (map[string]bool, error) {
	members := make(map[string]bool)
	if c.asg == nil {
		return members, fmt.Errorf("no Auto Scaling client")
	}
	for batch := range slices.Chunk(ids, maxASGInstanceIDs) {
		out, err := c.asg.DescribeAutoScalingInstances(ctx, &autoscaling.DescribeAutoScalingInstancesInput{
			InstanceIds: batch,
		})
		if err != nil {
			return nil, err
		}
		for _, inst := range out.AutoScalingInstances {
			if inst.InstanceId != nil {
				members[*inst.InstanceId] = true
			}
		}
	}
	return members, nil
}

func instanceIDs(instances []ec2types.Instance) []string {
	ids := make([]string, 0, len(instances))
	for _, inst := range instances {
		if inst.InstanceId != nil {
			ids = append(ids, *inst.InstanceId)
		}
	}
	return ids
}

func stateName(inst ec2types.Instance) string {
	if inst.State == nil {
		return "unknown"
	}
	return string(inst.State.Name)
}
