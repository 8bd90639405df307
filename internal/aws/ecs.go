package aws

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

// maxDescribeServices is the DescribeServices limit per call.
const maxDescribeServices = 10

// ECSAPI is the minimal interface for ECS operations.
type ECSAPI interface {
	ListClusters(ctx context.Context, input *ecs.ListClustersInput, opts ...func(*ecs.Options)) (*ecs.ListClustersOutput, error)
	ListServices(ctx context.Context, input *ecs.ListServicesInput, opts ...func(*ecs.Options)) (*ecs.ListServicesOutput, error)
	DescribeServices(ctx context.Context, input *ecs.DescribeServicesInput, opts ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error)
	DescribeTaskDefinition(ctx context.Context, input *ecs.DescribeTaskDefinitionInput, opts ...func(*ecs.Options)) (*ecs.DescribeTaskDefinitionOutput, error)
}

// ECSCollector describes ECS services with task definition revisions and container users.
type ECSCollector struct {
	client ECSAPI
	region string
}

// NewECSCollector creates a collector for ECS services.
func NewECSCollector(client ECSAPI, region string) *ECSCollector {
	return &ECSCollector{client: client, region: region}
}

// Service returns the service this collector describes.
func (c *ECSCollector) Service() finding.Service {
	return finding.ServiceECS
}

// Collect walks every cluster and service. Facts are keyed "cluster/service".
func (c *ECSCollector) Collect(ctx context.Context) ([]finding.ResourceFact, error) {
	clusters, err := c.listClusters(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ECS clusters: %w", err)
	}

	latest := make(map[string]int)
	var facts []finding.ResourceFact
	for _, clusterARN := range clusters {
		services, err := c.describeServices(ctx, clusterARN)
		if err != nil {
			slog.Warn("Failed to describe ECS services", "cluster", clusterARN, "region", c.region, "error", err)
			continue
		}
		cluster := arnName(clusterARN)
		for _, svc := range services {
			facts = append(facts, finding.ResourceFact{
				Service:    finding.ServiceECS,
				Type:       finding.TypeECSService,
				ResourceID: cluster + "/" + deref(svc.ServiceName),
				Region:     c.region,
				Attrs:      c.serviceAttrs(ctx, cluster, svc, latest),
			})
		}
	}
	return facts, nil
}

func (c *ECSCollector) serviceAttrs(ctx context.Context, cluster string, svc ecstypes.Service, latest map[string]int) finding.Attributes {
	attrs := finding.Attributes{
		finding.AttrCluster:      cluster,
		finding.AttrDesiredCount: int(svc.DesiredCount),
		finding.AttrRunningCount: int(svc.RunningCount),
	}
	if svc.TaskDefinition == nil {
		return attrs
	}

	td, err := c.client.DescribeTaskDefinition(ctx, &ecs.DescribeTaskDefinitionInput{TaskDefinition: svc.TaskDefinition})
	if err != nil || td.TaskDefinition == nil {
		slog.Warn("Failed to describe task definition", "task_definition", deref(svc.TaskDefinition), "error", err)
		return attrs
	}
	family := deref(td.TaskDefinition.Family)
	attrs[finding.AttrTaskFamily] = family
	attrs[finding.AttrCurrentRevision] = int(td.TaskDefinition.Revision)

	users := make(map[string]string, len(td.TaskDefinition.ContainerDefinitions))
	for _, cd := range td.TaskDefinition.ContainerDefinitions {
		users[deref(cd.Name)] = deref(cd.User)
	}
	attrs[finding.AttrContainerUsers] = users

	rev, ok := latest[family]
	if !ok {
		// Describing by family alone resolves to the latest ACTIVE revision.
		out, err := c.client.DescribeTaskDefinition(ctx, &ecs.DescribeTaskDefinitionInput{TaskDefinition: &family})
		if err != nil || out.TaskDefinition == nil {
			slog.Warn("Failed to resolve latest task definition", "family", family, "error", err)
			return attrs
		}
		rev = int(out.TaskDefinition.Revision)
		latest[family] = rev
	}
	attrs[finding.AttrLatestRevision] = rev
	return attrs
}

func (c *ECSCollector) listClusters(ctx context.Context) ([]string, error) {
	var arns []string
	paginator := ecs.NewListClustersPaginator(c.client, &ecs.ListClustersInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		arns = append(arns, page.ClusterArns...)
	}
	return arns, nil
}

func (c *ECSCollector) describeServices(ctx context.Context, clusterARN string) ([]ecstypes.Service, error) {
	var arns []string
	paginator := ecs.NewListServicesPaginator(c.client, &ecs.ListServicesInput{Cluster: &clusterARN})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		arns = append(arns, page.ServiceArns...)
	}

	var services []ecstypes.Service
	for batch := range slices.Chunk(arns, maxDescribeServices) {
		out, err := c.client.DescribeServices(ctx, &ecs.DescribeServicesInput{Cluster: &clusterARN, Services: batch})
		if err != nil {
			return nil, err
		}
		services = append(services, out.Services...)
	}
	return services, nil
}

// arnName returns the last path segment of an ARN.
func arnName(arn string) string {
	if i := strings.LastIndex(arn, "/"); i >= 0 {
		return arn[i+1:]
	}
	return arn
}
