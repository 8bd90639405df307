package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

// EIPAPI is the minimal interface for Elastic IP operations.
type EIPAPI interface {
	DescribeAddresses(ctx context.Context, input *ec2.DescribeAddressesInput, opts ...func(*ec2.Options)) (*ec2.DescribeAddressesOutput, error)
}

// EIPCollector describes Elastic IP allocations.
type EIPCollector struct {
	client EIPAPI
	region string
}

// NewEIPCollector creates a collector for Elastic IPs.
func NewEIPCollector(client EIPAPI, region string) *EIPCollector {
	return &EIPCollector{client: client, region: region}
}

// Service returns the service this collector describes.
func (c *EIPCollector) Service() finding.Service {
	return finding.ServiceEIP
}

// Collect lists addresses and whether each is associated.
func (c *EIPCollector) Collect(ctx context.Context) ([]finding.ResourceFact, error) {
	out, err := c.client.DescribeAddresses(ctx, &ec2.DescribeAddressesInput{})
	if err != nil {
		return nil, fmt.Errorf("describe addresses: %w", err)
	}

	facts := make([]finding.ResourceFact, 0, len(out.Addresses))
	for _, addr := range out.Addresses {
		allocID := deref(addr.AllocationId)
		id := allocID
		if id == "" {
			id = deref(addr.PublicIp)
		}
		facts = append(facts, finding.ResourceFact{
			Service:    finding.ServiceEIP,
			Type:       finding.TypeAddress,
			ResourceID: id,
			Region:     c.region,
			Attrs: finding.Attributes{
				finding.AttrAssociated:   addr.AssociationId != nil,
				finding.AttrPublicIP:     deref(addr.PublicIp),
				finding.AttrAllocationID: allocID,
				finding.AttrTags:         ec2TagsToMap(addr.Tags),
			},
		})
	}
	return facts, nil
}
