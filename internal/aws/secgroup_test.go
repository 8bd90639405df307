package aws

import (
	"context"
	"reflect"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

type mockSecurityGroupClient struct {
	groups []ec2types.SecurityGroup
}

func (m *mockSecurityGroupClient) DescribeSecurityGroups(_ context.Context, _ *ec2.DescribeSecurityGroupsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error) {
	return &ec2.DescribeSecurityGroupsOutput{SecurityGroups: m.groups}, nil
}

func worldIPv4() []ec2types.IpRange {
	return []ec2types.IpRange{{CidrIp: awssdk.String("0.0.0.0/0")}}
}

func TestSecurityGroupCollector_PublicIngress(t *testing.T) {
	mock := &mockSecurityGroupClient{
		groups: []ec2types.SecurityGroup{
			{
				GroupId:   awssdk.String("sg-open001"),
				GroupName: awssdk.String("bastion"),
				IpPermissions: []ec2types.IpPermission{
					{IpProtocol: awssdk.String("tcp"), FromPort: awssdk.Int32(22), ToPort: awssdk.Int32(22), IpRanges: worldIPv4()},
					{IpProtocol: awssdk.String("tcp"), FromPort: awssdk.Int32(443), ToPort: awssdk.Int32(443),
						Ipv6Ranges: []ec2types.Ipv6Range{{CidrIpv6: awssdk.String("::/0")}}},
					{IpProtocol: awssdk.String("tcp"), FromPort: awssdk.Int32(5432), ToPort: awssdk.Int32(5432),
						IpRanges: []ec2types.IpRange{{CidrIp: awssdk.String("10.0.0.0/8")}}},
					{IpProtocol: awssdk.String("-1"), IpRanges: worldIPv4()},
				},
			},
		},
	}

	facts, err := NewSecurityGroupCollector(mock, "us-east-1").Collect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("expected 1 fact, got %d", len(facts))
	}
	f := facts[0]
	if f.Service != finding.ServiceVPC || f.Type != finding.TypeSecurityGroup {
		t.Fatalf("unexpected identity: %+v", f)
	}

	rules, _ := f.Attrs.Strings(finding.AttrPublicIngress)
	want := []string{"all:-1:-1", "tcp:22:22", "tcp:443:443"}
	if !reflect.DeepEqual(rules, want) {
		t.Fatalf("rules = %v, want %v", rules, want)
	}
	if name, _ := f.Attrs.String(finding.AttrGroupName); name != "bastion" {
		t.Fatalf("expected group name bastion, got %s", name)
	}
}

func TestSecurityGroupCollector_PrivateGroup(t *testing.T) {
	mock := &mockSecurityGroupClient{
		groups: []ec2types.SecurityGroup{
			{
				GroupId: awssdk.String("sg-private"),
				IpPermissions: []ec2types.IpPermission{
					{IpProtocol: awssdk.String("tcp"), FromPort: awssdk.Int32(3306), ToPort: awssdk.Int32(3306),
						UserIdGroupPairs: []ec2types.UserIdGroupPair{{GroupId: awssdk.String("sg-app")}}},
				},
			},
		},
	}

	facts, err := NewSecurityGroupCollector(mock, "us-east-1").Collect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rules, err := facts[0].Attrs.Strings(finding.AttrPublicIngress)
	if err != nil || len(rules) != 0 {
		t.Fatalf("expected no public rules, got %v (%v)", rules, err)
	}
}

func TestSecurityGroupCollector_DuplicateRulesCollapse(t *testing.T) {
	perm := ec2types.IpPermission{IpProtocol: awssdk.String("tcp"), FromPort: awssdk.Int32(80), ToPort: awssdk.Int32(80),
		IpRanges: worldIPv4(), Ipv6Ranges: []ec2types.Ipv6Range{{CidrIpv6: awssdk.String("::/0")}}}
	got := publicIngress([]ec2types.IpPermission{perm, perm})
	if len(got) != 1 || got[0] != "tcp:80:80" {
		t.Fatalf("expected a single tcp:80:80 rule, got %v", got)
	}
}
