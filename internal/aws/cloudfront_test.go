package aws

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

type mockCloudFrontClient struct {
	pages [][]cftypes.DistributionSummary
	calls int
	err   error
}

func (m *mockCloudFrontClient) ListDistributions(_ context.Context, in *cloudfront.ListDistributionsInput, _ ...func(*cloudfront.Options)) (*cloudfront.ListDistributionsOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	idx := 0
	if in.Marker != nil {
		fmt.Sscanf(*in.Marker, "page-%d", &idx)
	}
	m.calls++
	list := &cftypes.DistributionList{Items: m.pages[idx]}
	if idx+1 < len(m.pages) {
		list.IsTruncated = awssdk.Bool(true)
		list.NextMarker = awssdk.String(fmt.Sprintf("page-%d", idx+1))
	}
	return &cloudfront.ListDistributionsOutput{DistributionList: list}, nil
}

func distribution(id string, origins ...string) cftypes.DistributionSummary {
	items := make([]cftypes.Origin, 0, len(origins))
	for _, o := range origins {
		items = append(items, cftypes.Origin{DomainName: awssdk.String(o)})
	}
	return cftypes.DistributionSummary{
		Id:         awssdk.String(id),
		DomainName: awssdk.String(id + ".cloudfront.net"),
		Origins:    &cftypes.Origins{Items: items},
	}
}

func TestCloudFrontCollector_Pages(t *testing.T) {
	mock := &mockCloudFrontClient{pages: [][]cftypes.DistributionSummary{
		{distribution("E1", "Assets.S3.amazonaws.com")},
		{distribution("E2", "web-123.us-east-1.elb.amazonaws.com")},
	}}

	facts, err := NewCloudFrontCollector(mock).Collect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.calls)
	}
	if len(facts) != 2 {
		t.Fatalf("expected 2 facts, got %d", len(facts))
	}

	e1 := factByID(t, facts, "E1")
	if e1.Region != "global" {
		t.Fatalf("expected global region, got %s", e1.Region)
	}
	origins, _ := e1.Attrs.Strings(finding.AttrOrigins)
	if !reflect.DeepEqual(origins, []string{"assets.s3.amazonaws.com"}) {
		t.Fatalf("expected lower-cased origin, got %v", origins)
	}
}

func TestCloudFrontCollector_Error(t *testing.T) {
	if _, err := NewCloudFrontCollector(&mockCloudFrontClient{err: fmt.Errorf("boom")}).Collect(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestLinkCloudFront(t *testing.T) {
	bucketAttrs := finding.Attributes{finding.AttrBehindCloudFront: false}
	facts := []finding.ResourceFact{
		{Service: finding.ServiceCloudFront, ResourceID: "E1", Attrs: finding.Attributes{
			finding.AttrOrigins: []string{
				"assets.s3.amazonaws.com",
				"site.s3-website-us-east-1.amazonaws.com",
				"web-1.us-east-1.elb.amazonaws.com",
			},
		}},
		{Service: finding.ServiceS3, ResourceID: "assets", Attrs: bucketAttrs},
		{Service: finding.ServiceS3, ResourceID: "site", Attrs: finding.Attributes{finding.AttrBehindCloudFront: false}},
		{Service: finding.ServiceS3, ResourceID: "assets-backup", Attrs: finding.Attributes{finding.AttrBehindCloudFront: false}},
		{Service: finding.ServiceELB, ResourceID: "web", Attrs: finding.Attributes{
			finding.AttrDNSName: "web-1.us-east-1.elb.amazonaws.com", finding.AttrBehindCloudFront: false,
		}},
		{Service: finding.ServiceELB, ResourceID: "internal", Attrs: finding.Attributes{
			finding.AttrDNSName: "internal-2.us-east-1.elb.amazonaws.com", finding.AttrBehindCloudFront: false,
		}},
	}

	linked := LinkCloudFront(facts)

	want := map[string]bool{"assets": true, "site": true, "assets-backup": false, "web": true, "internal": false}
	for _, f := range linked {
		expected, ok := want[f.ResourceID]
		if !ok {
			continue
		}
		if got, _ := f.Attrs.Bool(finding.AttrBehindCloudFront); got != expected {
			t.Errorf("%s: behind_cloudfront = %v, want %v", f.ResourceID, got, expected)
		}
	}
	if v, _ := bucketAttrs.Bool(finding.AttrBehindCloudFront); v {
		t.Fatal("input attributes must not be modified")
	}
}

func TestLinkCloudFront_NoDistributions(t *testing.T) {
	facts := []finding.ResourceFact{{Service: finding.ServiceS3, ResourceID: "b", Attrs: finding.Attributes{finding.AttrBehindCloudFront: false}}}
	linked := LinkCloudFront(facts)
	if v, _ := linked[0].Attrs.Bool(finding.AttrBehindCloudFront); v {
		t.Fatal("expected bucket left unlinked")
	}
}
