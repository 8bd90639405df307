package aws

import (
	"context"
	"fmt"
	"strings"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

type mockBucket struct {
	location   s3types.BucketLocationConstraint
	policy     string
	isPublic   bool
	grants     []s3types.Grant
	versioning s3types.BucketVersioningStatus
	rules      []s3types.LifecycleRule
	aclErr     error
}

type mockS3Client struct {
	buckets map[string]mockBucket
	order   []string
	listErr error
}

func newMockS3Client(buckets map[string]mockBucket) *mockS3Client {
	m := &mockS3Client{buckets: buckets}
	for name := range buckets {
		m.order = append(m.order, name)
	}
	return m
}

func (m *mockS3Client) ListBuckets(_ context.Context, _ *s3.ListBucketsInput, _ ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := &s3.ListBucketsOutput{}
	for _, name := range m.order {
		out.Buckets = append(out.Buckets, s3types.Bucket{Name: awssdk.String(name)})
	}
	return out, nil
}

func (m *mockS3Client) GetBucketLocation(_ context.Context, in *s3.GetBucketLocationInput, _ ...func(*s3.Options)) (*s3.GetBucketLocationOutput, error) {
	return &s3.GetBucketLocationOutput{LocationConstraint: m.buckets[*in.Bucket].location}, nil
}

func (m *mockS3Client) GetBucketPolicy(_ context.Context, in *s3.GetBucketPolicyInput, _ ...func(*s3.Options)) (*s3.GetBucketPolicyOutput, error) {
	b := m.buckets[*in.Bucket]
	if b.policy == "" {
		return nil, &smithy.GenericAPIError{Code: "NoSuchBucketPolicy"}
	}
	return &s3.GetBucketPolicyOutput{Policy: awssdk.String(b.policy)}, nil
}

func (m *mockS3Client) GetBucketPolicyStatus(_ context.Context, in *s3.GetBucketPolicyStatusInput, _ ...func(*s3.Options)) (*s3.GetBucketPolicyStatusOutput, error) {
	b := m.buckets[*in.Bucket]
	if b.policy == "" {
		return nil, &smithy.GenericAPIError{Code: "NoSuchBucketPolicy"}
	}
	return &s3.GetBucketPolicyStatusOutput{PolicyStatus: &s3types.PolicyStatus{IsPublic: awssdk.Bool(b.isPublic)}}, nil
}

func (m *mockS3Client) GetBucketAcl(_ context.Context, in *s3.GetBucketAclInput, _ ...func(*s3.Options)) (*s3.GetBucketAclOutput, error) {
	b := m.buckets[*in.Bucket]
	if b.aclErr != nil {
		return nil, b.aclErr
	}
	return &s3.GetBucketAclOutput{Grants: b.grants}, nil
}

func (m *mockS3Client) GetBucketVersioning(_ context.Context, in *s3.GetBucketVersioningInput, _ ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error) {
	return &s3.GetBucketVersioningOutput{Status: m.buckets[*in.Bucket].versioning}, nil
}

func (m *mockS3Client) GetBucketLifecycleConfiguration(_ context.Context, in *s3.GetBucketLifecycleConfigurationInput, _ ...func(*s3.Options)) (*s3.GetBucketLifecycleConfigurationOutput, error) {
	b := m.buckets[*in.Bucket]
	if len(b.rules) == 0 {
		return nil, &smithy.GenericAPIError{Code: "NoSuchLifecycleConfiguration"}
	}
	return &s3.GetBucketLifecycleConfigurationOutput{Rules: b.rules}, nil
}

func TestS3Collector_Exposure(t *testing.T) {
	mock := newMockS3Client(map[string]mockBucket{
		"public-policy": {
			policy:     `{"Statement":[{"Effect":"Allow","Principal":"*","Action":"s3:GetObject"}]}`,
			versioning: s3types.BucketVersioningStatusEnabled,
			rules:      []s3types.LifecycleRule{{ID: awssdk.String("expire")}},
		},
		"public-status": {
			policy:   `{"Statement":[{"Effect":"Allow","Principal":{"AWS":"arn:aws:iam::1:root"}}]}`,
			isPublic: true,
		},
		"public-acl": {
			grants: []s3types.Grant{{
				Grantee:    &s3types.Grantee{URI: awssdk.String(allUsersURI), Type: s3types.TypeGroup},
				Permission: s3types.PermissionRead,
			}},
		},
		"private": {location: "eu-central-1"},
	})

	facts, err := NewS3Collector(mock, nil).Collect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facts) != 4 {
		t.Fatalf("expected 4 facts, got %d", len(facts))
	}

	policy := factByID(t, facts, "public-policy")
	if pub, _ := policy.Attrs.Bool(finding.AttrPublic); !pub {
		t.Fatal("expected public via policy")
	}
	if reason, _ := policy.Attrs.String(finding.AttrPublicReason); !strings.Contains(reason, "'*'") {
		t.Fatalf("unexpected reason %q", reason)
	}
	if v, _ := policy.Attrs.String(finding.AttrVersioning); v != "Enabled" {
		t.Fatalf("expected Enabled, got %s", v)
	}
	if lc, _ := policy.Attrs.Bool(finding.AttrHasLifecycle); !lc {
		t.Fatal("expected lifecycle")
	}
	if policy.Region != "us-east-1" {
		t.Fatalf("empty location should map to us-east-1, got %s", policy.Region)
	}

	if reason, _ := factByID(t, facts, "public-status").Attrs.String(finding.AttrPublicReason); reason != "PolicyStatus indicates public bucket" {
		t.Fatalf("unexpected reason %q", reason)
	}
	if reason, _ := factByID(t, facts, "public-acl").Attrs.String(finding.AttrPublicReason); reason != "ACL grants READ to AllUsers" {
		t.Fatalf("unexpected reason %q", reason)
	}

	private := factByID(t, facts, "private")
	if pub, err := private.Attrs.Bool(finding.AttrPublic); err != nil || pub {
		t.Fatalf("expected private bucket, got %v (%v)", pub, err)
	}
	if private.Attrs.Has(finding.AttrPublicReason) {
		t.Fatal("private bucket should carry no reason")
	}
	if v, _ := private.Attrs.String(finding.AttrVersioning); v != "Disabled" {
		t.Fatalf("unset versioning should read Disabled, got %s", v)
	}
	if lc, err := private.Attrs.Bool(finding.AttrHasLifecycle); err != nil || lc {
		t.Fatalf("missing lifecycle should read false, got %v (%v)", lc, err)
	}
	if private.Region != "eu-central-1" {
		t.Fatalf("expected eu-central-1, got %s", private.Region)
	}
}

func TestS3Collector_ACLErrorOmitsPublic(t *testing.T) {
	mock := newMockS3Client(map[string]mockBucket{"locked": {aclErr: fmt.Errorf("AccessDenied")}})

	facts, err := NewS3Collector(mock, nil).Collect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if facts[0].Attrs.Has(finding.AttrPublic) {
		t.Fatal("public should be absent when exposure cannot be determined")
	}
	if !facts[0].Attrs.Has(finding.AttrVersioning) {
		t.Fatal("other attributes should still be collected")
	}
}

func TestS3Collector_UsesRegionalClient(t *testing.T) {
	home := newMockS3Client(map[string]mockBucket{"eu-bucket": {location: "EU"}})
	var asked []string
	clientFor := func(region string) S3API {
		asked = append(asked, region)
		return home
	}

	facts, err := NewS3Collector(home, clientFor).Collect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if facts[0].Region != "eu-west-1" {
		t.Fatalf("EU should map to eu-west-1, got %s", facts[0].Region)
	}
	if len(asked) != 1 || asked[0] != "eu-west-1" {
		t.Fatalf("expected regional client for eu-west-1, got %v", asked)
	}
}

func TestS3Collector_ListError(t *testing.T) {
	mock := &mockS3Client{listErr: fmt.Errorf("AccessDenied")}
	if _, err := NewS3Collector(mock, nil).Collect(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestPolicyAllowsAnyone(t *testing.T) {
	tests := []struct {
		name   string
		policy string
		want   bool
	}{
		{"bare wildcard", `{"Statement":[{"Effect":"Allow","Principal":"*"}]}`, true},
		{"aws wildcard", `{"Statement":[{"Effect":"Allow","Principal":{"AWS":"*"}}]}`, true},
		{"wildcard in list", `{"Statement":[{"Effect":"Allow","Principal":{"AWS":["arn:aws:iam::1:root","*"]}}]}`, true},
		{"deny wildcard", `{"Statement":[{"Effect":"Deny","Principal":"*"}]}`, false},
		{"specific account", `{"Statement":[{"Effect":"Allow","Principal":{"AWS":"arn:aws:iam::1:root"}}]}`, false},
		{"empty", "", false},
		{"malformed", "{not json", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policyAllowsAnyone(tt.policy); got != tt.want {
				t.Fatalf("policyAllowsAnyone() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeBucketRegion(t *testing.T) {
	for in, want := range map[string]string{"": "us-east-1", "EU": "eu-west-1", "ap-south-1": "ap-south-1"} {
		if got := normalizeBucketRegion(in); got != want {
			t.Fatalf("normalizeBucketRegion(%q) = %q, want %q", in, got, want)
		}
	}
}
