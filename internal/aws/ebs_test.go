package aws

import (
	"context"
	"fmt"
	"testing"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

type mockEBSClient struct {
	volumes []ec2types.Volume
	err     error
}

func (m *mockEBSClient) DescribeVolumes(_ context.Context, _ *ec2.DescribeVolumesInput, _ ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &ec2.DescribeVolumesOutput{Volumes: m.volumes}, nil
}

func TestEBSCollector_DetachedVolume(t *testing.T) {
	created := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	mock := &mockEBSClient{
		volumes: []ec2types.Volume{
			{
				VolumeId:   awssdk.String("vol-detached001"),
				VolumeType: ec2types.VolumeTypeGp3,
				State:      ec2types.VolumeStateAvailable,
				Size:       awssdk.Int32(100),
				CreateTime: &created,
				Encrypted:  awssdk.Bool(false),
				Tags:       []ec2types.Tag{{Key: awssdk.String("Name"), Value: awssdk.String("old-data")}},
			},
		},
	}

	facts, err := NewEBSCollector(mock, "us-east-1").Collect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("expected 1 fact, got %d", len(facts))
	}

	f := facts[0]
	if f.ResourceID != "vol-detached001" || f.Service != finding.ServiceEBS || f.Type != finding.TypeVolume {
		t.Fatalf("unexpected identity: %+v", f)
	}
	if state, _ := f.Attrs.String(finding.AttrState); state != "available" {
		t.Fatalf("expected available, got %s", state)
	}
	if size, _ := f.Attrs.Int(finding.AttrSizeGiB); size != 100 {
		t.Fatalf("expected 100 GiB, got %d", size)
	}
	if vt, _ := f.Attrs.String(finding.AttrVolumeType); vt != "gp3" {
		t.Fatalf("expected gp3, got %s", vt)
	}
	if at, _ := f.Attrs.Time(finding.AttrCreatedAt); !at.Equal(created) {
		t.Fatalf("expected created_at %s, got %s", created, at)
	}
	if enc, _ := f.Attrs.Bool(finding.AttrEncrypted); enc {
		t.Fatal("expected unencrypted volume")
	}
}

func TestEBSCollector_AttachedVolumeIncluded(t *testing.T) {
	mock := &mockEBSClient{
		volumes: []ec2types.Volume{
			{
				VolumeId:  awssdk.String("vol-attached"),
				State:     ec2types.VolumeStateInUse,
				Size:      awssdk.Int32(8),
				Encrypted: awssdk.Bool(true),
			},
		},
	}

	facts, err := NewEBSCollector(mock, "us-east-1").Collect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("attached volumes are still described, got %d facts", len(facts))
	}
	if facts[0].Attrs.Has(finding.AttrCreatedAt) {
		t.Fatal("missing CreateTime should leave created_at out")
	}
	if enc, _ := facts[0].Attrs.Bool(finding.AttrEncrypted); !enc {
		t.Fatal("expected encrypted volume")
	}
}

func TestEBSCollector_APIError(t *testing.T) {
	if _, err := NewEBSCollector(&mockEBSClient{err: fmt.Errorf("boom")}, "us-east-1").Collect(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
