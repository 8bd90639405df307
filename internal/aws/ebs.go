package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

// EBSAPI is the minimal interface for EBS volume operations.
type EBSAPI interface {
	DescribeVolumes(ctx context.Context, input *ec2.DescribeVolumesInput, opts ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error)
}

// EBSCollector describes every volume in a region, attached or not.
type EBSCollector struct {
	client EBSAPI
	region string
}

// NewEBSCollector creates a collector for EBS volumes.
func NewEBSCollector(client EBSAPI, region string) *EBSCollector {
	return &EBSCollector{client: client, region: region}
}

// Service returns the service this collector describes.
func (c *EBSCollector) Service() finding.Service {
	return finding.ServiceEBS
}

// Collect lists volumes with state, size, type, age and encryption.
func (c *EBSCollector) Collect(ctx context.Context) ([]finding.ResourceFact, error) {
	volumes, err := c.listVolumes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list EBS volumes: %w", err)
	}

	facts := make([]finding.ResourceFact, 0, len(volumes))
	for _, vol := range volumes {
		attrs := finding.Attributes{
			finding.AttrState:      string(vol.State),
			finding.AttrSizeGiB:    int(derefInt32(vol.Size)),
			finding.AttrVolumeType: string(vol.VolumeType),
			finding.AttrEncrypted:  vol.Encrypted != nil && *vol.Encrypted,
			finding.AttrTags:       ec2TagsToMap(vol.Tags),
		}
		// Volumes report no detach time; creation time stands in for it.
		if vol.CreateTime != nil {
			attrs[finding.AttrCreatedAt] = vol.CreateTime.UTC()
		}
		facts = append(facts, finding.ResourceFact{
			Service:    finding.ServiceEBS,
			Type:       finding.TypeVolume,
			ResourceID: deref(vol.VolumeId),
			Region:     c.region,
			Attrs:      attrs,
		})
	}
	return facts, nil
}

func (c *EBSCollector) listVolumes(ctx context.Context) ([]ec2types.Volume, error) {
	var volumes []ec2types.Volume
	paginator := ec2.NewDescribeVolumesPaginator(c.client, &ec2.DescribeVolumesInput{})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		volumes = append(volumes, page.Volumes...)
	}
	return volumes, nil
}
