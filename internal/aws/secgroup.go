package aws

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

// SecurityGroupAPI is the minimal interface for security group operations.
type SecurityGroupAPI interface {
	DescribeSecurityGroups(ctx context.Context, input *ec2.DescribeSecurityGroupsInput, opts ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error)
}

// SecurityGroupCollector describes security groups and their world-open ingress rules.
type SecurityGroupCollector struct {
	client SecurityGroupAPI
	region string
}

// NewSecurityGroupCollector creates a collector for security groups.
func NewSecurityGroupCollector(client SecurityGroupAPI, region string) *SecurityGroupCollector {
	return &SecurityGroupCollector{client: client, region: region}
}

// Service returns the service this collector describes.
func (c *SecurityGroupCollector) Service() finding.Service {
	return finding.ServiceVPC
}

// Collect lists security groups. Each ingress permission open to 0.0.0.0/0 or ::/0
// is encoded as "protocol:from:to"; all-traffic rules use -1 for both ports.
func (c *SecurityGroupCollector) Collect(ctx context.Context) ([]finding.ResourceFact, error) {
	groups, err := c.listSecurityGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list security groups: %w", err)
	}

	facts := make([]finding.ResourceFact, 0, len(groups))
	for _, sg := range groups {
		facts = append(facts, finding.ResourceFact{
			Service:    finding.ServiceVPC,
			Type:       finding.TypeSecurityGroup,
			ResourceID: deref(sg.GroupId),
			Region:     c.region,
			Attrs: finding.Attributes{
				finding.AttrGroupName:     deref(sg.GroupName),
				finding.AttrPublicIngress: publicIngress(sg.IpPermissions),
				finding.AttrTags:          ec2TagsToMap(sg.Tags),
			},
		})
	}
	return facts, nil
}

func (c *SecurityGroupCollector) listSecurityGroups(ctx context.Context) ([]ec2types.SecurityGroup, error) {
	var groups []ec2types.SecurityGroup
	paginator := ec2.NewDescribeSecurityGroupsPaginator(c.client, &ec2.DescribeSecurityGroupsInput{})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		groups = append(groups, page.SecurityGroups...)
	}
	return groups, nil
}

func publicIngress(perms []ec2types.IpPermission) []string {
	seen := make(map[string]bool)
	for _, perm := range perms {
		if !openToWorld(perm) {
			continue
		}
		proto := deref(perm.IpProtocol)
		from, to := int32(-1), int32(-1)
		if proto != "-1" {
			if perm.FromPort != nil {
				from = *perm.FromPort
			}
			if perm.ToPort != nil {
				to = *perm.ToPort
			}
		} else {
			proto = "all"
		}
		seen[fmt.Sprintf("%s:%d:%d", proto, from, to)] = true
	}

	rules := make([]string, 0, len(seen))
	for r := range seen {
		rules = append(rules, r)
	}
	sort.Strings(rules)
	return rules
}

func openToWorld(perm ec2types.IpPermission) bool {
	for _, r := range perm.IpRanges {
		if deref(r.CidrIp) == "0.0.0.0/0" {
			return true
		}
	}
	for _, r := range perm.Ipv6Ranges {
		if deref(r.CidrIpv6) == "::/0" {
			return true
		}
	}
	return false
}
