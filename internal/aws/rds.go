package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

// RDSAPI is the minimal interface for RDS operations.
type RDSAPI interface {
	DescribeDBInstances(ctx context.Context, input *rds.DescribeDBInstancesInput, opts ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
}

// RDSCollector describes database instances and their resilience settings.
type RDSCollector struct {
	client RDSAPI
	region string
}

// NewRDSCollector creates a collector for RDS instances.
func NewRDSCollector(client RDSAPI, region string) *RDSCollector {
	return &RDSCollector{client: client, region: region}
}

// Service returns the service this collector describes.
func (c *RDSCollector) Service() finding.Service {
	return finding.ServiceRDS
}

// Collect lists instances with Multi-AZ, backup retention, engine and class.
func (c *RDSCollector) Collect(ctx context.Context) ([]finding.ResourceFact, error) {
	instances, err := c.listDBInstances(ctx)
	if err != nil {
		return nil, fmt.Errorf("list RDS instances: %w", err)
	}

	facts := make([]finding.ResourceFact, 0, len(instances))
	for _, inst := range instances {
		facts = append(facts, finding.ResourceFact{
			Service:    finding.ServiceRDS,
			Type:       finding.TypeDBInstance,
			ResourceID: deref(inst.DBInstanceIdentifier),
			Region:     c.region,
			Attrs: finding.Attributes{
				finding.AttrState:           deref(inst.DBInstanceStatus),
				finding.AttrMultiAZ:         inst.MultiAZ != nil && *inst.MultiAZ,
				finding.AttrBackupRetention: int(derefInt32(inst.BackupRetentionPeriod)),
				finding.AttrEngine:          deref(inst.Engine),
				finding.AttrInstanceClass:   deref(inst.DBInstanceClass),
				finding.AttrEncrypted:       inst.StorageEncrypted != nil && *inst.StorageEncrypted,
				finding.AttrTags:            rdsTagsToMap(inst.TagList),
			},
		})
	}
	return facts, nil
}

func (c *RDSCollector) listDBInstances(ctx context.Context) ([]rdstypes.DBInstance, error) {
	var instances []rdstypes.DBInstance
	paginator := rds.NewDescribeDBInstancesPaginator(c.client, &rds.DescribeDBInstancesInput{})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		instances = append(instances, page.DBInstances...)
	}
	return instances, nil
}
