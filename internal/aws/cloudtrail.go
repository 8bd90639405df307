package aws

import (
	"context"
	"fmt"
	"log/slog"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

// CloudTrailAPI is the minimal interface for trail operations.
type CloudTrailAPI interface {
	DescribeTrails(ctx context.Context, input *cloudtrail.DescribeTrailsInput, opts ...func(*cloudtrail.Options)) (*cloudtrail.DescribeTrailsOutput, error)
	GetTrailStatus(ctx context.Context, input *cloudtrail.GetTrailStatusInput, opts ...func(*cloudtrail.Options)) (*cloudtrail.GetTrailStatusOutput, error)
}

// CloudTrailCollector reports how many trails cover a region and how many are logging.
type CloudTrailCollector struct {
	client CloudTrailAPI
	region string
}

// NewCloudTrailCollector creates a collector for CloudTrail.
func NewCloudTrailCollector(client CloudTrailAPI, region string) *CloudTrailCollector {
	return &CloudTrailCollector{client: client, region: region}
}

// Service returns the service this collector describes.
func (c *CloudTrailCollector) Service() finding.Service {
	return finding.ServiceCloudTrail
}

// Collect returns one regional fact. Multi-region trails from other home regions
// are included; a trail whose status cannot be read counts as not logging.
func (c *CloudTrailCollector) Collect(ctx context.Context) ([]finding.ResourceFact, error) {
	out, err := c.client.DescribeTrails(ctx, &cloudtrail.DescribeTrailsInput{
		IncludeShadowTrails: awssdk.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("describe trails: %w", err)
	}

	var logging int
	for _, trail := range out.TrailList {
		name := deref(trail.TrailARN)
		if name == "" {
			name = deref(trail.Name)
		}
		status, err := c.client.GetTrailStatus(ctx, &cloudtrail.GetTrailStatusInput{Name: &name})
		if err != nil {
			slog.Warn("Failed to get trail status", "trail", name, "region", c.region, "error", err)
			continue
		}
		if status.IsLogging != nil && *status.IsLogging {
			logging++
		}
	}

	return []finding.ResourceFact{{
		Service:    finding.ServiceCloudTrail,
		Type:       finding.TypeRegion,
		ResourceID: c.region,
		Region:     c.region,
		Attrs: finding.Attributes{
			finding.AttrTrailCount:    len(out.TrailList),
			finding.AttrLoggingTrails: logging,
		},
	}}, nil
}
