package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

// Grantee URIs that make an ACL grant public.
const (
	allUsersURI           = "http://acs.amazonaws.com/groups/global/AllUsers"
	authenticatedUsersURI = "http://acs.amazonaws.com/groups/global/AuthenticatedUsers"
)

// S3API is the minimal interface for bucket operations.
type S3API interface {
	ListBuckets(ctx context.Context, input *s3.ListBucketsInput, opts ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	GetBucketLocation(ctx context.Context, input *s3.GetBucketLocationInput, opts ...func(*s3.Options)) (*s3.GetBucketLocationOutput, error)
	GetBucketPolicy(ctx context.Context, input *s3.GetBucketPolicyInput, opts ...func(*s3.Options)) (*s3.GetBucketPolicyOutput, error)
	GetBucketPolicyStatus(ctx context.Context, input *s3.GetBucketPolicyStatusInput, opts ...func(*s3.Options)) (*s3.GetBucketPolicyStatusOutput, error)
	GetBucketAcl(ctx context.Context, input *s3.GetBucketAclInput, opts ...func(*s3.Options)) (*s3.GetBucketAclOutput, error)
	GetBucketVersioning(ctx context.Context, input *s3.GetBucketVersioningInput, opts ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error)
	GetBucketLifecycleConfiguration(ctx context.Context, input *s3.GetBucketLifecycleConfigurationInput, opts ...func(*s3.Options)) (*s3.GetBucketLifecycleConfigurationOutput, error)
}

// S3Collector describes every bucket in the account. Buckets are listed once and
// each bucket is then queried in its own region.
type S3Collector struct {
	client    S3API
	clientFor func(region string) S3API
}

// NewS3Collector creates a collector for S3 buckets. clientFor returns a client
// bound to a bucket's region; nil uses client for every bucket.
func NewS3Collector(client S3API, clientFor func(region string) S3API) *S3Collector {
	if clientFor == nil {
		clientFor = func(string) S3API { return client }
	}
	return &S3Collector{client: client, clientFor: clientFor}
}

// Service returns the service this collector describes.
func (c *S3Collector) Service() finding.Service {
	return finding.ServiceS3
}

// Collect lists buckets with exposure, versioning and lifecycle attributes.
// A bucket whose details cannot be read is still reported with what is known;
// the missing attributes surface as check warnings.
func (c *S3Collector) Collect(ctx context.Context) ([]finding.ResourceFact, error) {
	out, err := c.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}

	facts := make([]finding.ResourceFact, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		if ctx.Err() != nil {
			return facts, ctx.Err()
		}
		name := deref(b.Name)
		region := c.bucketRegion(ctx, name)
		facts = append(facts, finding.ResourceFact{
			Service:    finding.ServiceS3,
			Type:       finding.TypeBucket,
			ResourceID: name,
			Region:     region,
			Attrs:      c.describeBucket(ctx, c.clientFor(region), name),
		})
	}
	return facts, nil
}

func (c *S3Collector) bucketRegion(ctx context.Context, name string) string {
	loc, err := c.client.GetBucketLocation(ctx, &s3.GetBucketLocationInput{Bucket: &name})
	if err != nil {
		slog.Warn("Failed to get bucket location", "bucket", name, "error", err)
		return defaultRegion
	}
	return normalizeBucketRegion(string(loc.LocationConstraint))
}

// normalizeBucketRegion maps legacy location constraints onto region names.
func normalizeBucketRegion(constraint string) string {
	switch constraint {
	case "":
		return defaultRegion
	case "EU":
		return "eu-west-1"
	default:
		return constraint
	}
}

func (c *S3Collector) describeBucket(ctx context.Context, client S3API, name string) finding.Attributes {
	attrs := finding.Attributes{finding.AttrBehindCloudFront: false}

	public, reason, err := bucketExposure(ctx, client, name)
	if err != nil {
		slog.Warn("Failed to determine bucket exposure", "bucket", name, "error", err)
	} else {
		attrs[finding.AttrPublic] = public
		if public {
			attrs[finding.AttrPublicReason] = reason
		}
	}

	ver, err := client.GetBucketVersioning(ctx, &s3.GetBucketVersioningInput{Bucket: &name})
	if err != nil {
		slog.Warn("Failed to get bucket versioning", "bucket", name, "error", err)
	} else {
		status := string(ver.Status)
		if status == "" {
			status = "Disabled"
		}
		attrs[finding.AttrVersioning] = status
	}

	lc, err := client.GetBucketLifecycleConfiguration(ctx, &s3.GetBucketLifecycleConfigurationInput{Bucket: &name})
	switch {
	case hasErrorCode(err, "NoSuchLifecycleConfiguration"):
		attrs[finding.AttrHasLifecycle] = false
	case err != nil:
		slog.Warn("Failed to get bucket lifecycle", "bucket", name, "error", err)
	default:
		attrs[finding.AttrHasLifecycle] = len(lc.Rules) > 0
	}
	return attrs
}

// bucketExposure checks the bucket policy for a wildcard principal, then S3's own
// policy status, then the ACL for grants to everyone.
func bucketExposure(ctx context.Context, client S3API, name string) (bool, string, error) {
	pol, err := client.GetBucketPolicy(ctx, &s3.GetBucketPolicyInput{Bucket: &name})
	switch {
	case hasErrorCode(err, "NoSuchBucketPolicy"):
	case err != nil:
		return false, "", fmt.Errorf("get bucket policy: %w", err)
	case policyAllowsAnyone(deref(pol.Policy)):
		return true, "Bucket policy allows public '*' access", nil
	}

	status, err := client.GetBucketPolicyStatus(ctx, &s3.GetBucketPolicyStatusInput{Bucket: &name})
	switch {
	case hasErrorCode(err, "NoSuchBucketPolicy"):
	case err != nil:
		slog.Debug("Bucket policy status unavailable", "bucket", name, "error", err)
	case status.PolicyStatus != nil && status.PolicyStatus.IsPublic != nil && *status.PolicyStatus.IsPublic:
		return true, "PolicyStatus indicates public bucket", nil
	}

	acl, err := client.GetBucketAcl(ctx, &s3.GetBucketAclInput{Bucket: &name})
	if err != nil {
		return false, "", fmt.Errorf("get bucket acl: %w", err)
	}
	if grant, ok := publicGrant(acl.Grants); ok {
		return true, fmt.Sprintf("ACL grants %s to %s", grant.Permission, groupName(deref(grant.Grantee.URI))), nil
	}
	return false, "", nil
}

type policyDocument struct {
	Statement []struct {
		Effect    string `json:"Effect"`
		Principal any    `json:"Principal"`
	} `json:"Statement"`
}

// policyAllowsAnyone reports whether an Allow statement names "*" as principal,
// either bare or as {"AWS": "*"}.
func policyAllowsAnyone(policy string) bool {
	if policy == "" {
		return false
	}
	var doc policyDocument
	if err := json.Unmarshal([]byte(policy), &doc); err != nil {
		return false
	}
	for _, st := range doc.Statement {
		if st.Effect != "Allow" {
			continue
		}
		if principalIsWildcard(st.Principal) {
			return true
		}
	}
	return false
}

func principalIsWildcard(p any) bool {
	switch v := p.(type) {
	case string:
		return v == "*"
	case map[string]any:
		for _, inner := range v {
			if principalIsWildcard(inner) {
				return true
			}
		}
	case []any:
		for _, inner := range v {
			if principalIsWildcard(inner) {
				return true
			}
		}
	}
	return false
}

func publicGrant(grants []s3types.Grant) (s3types.Grant, bool) {
	for _, g := range grants {
		if g.Grantee == nil {
			continue
		}
		switch deref(g.Grantee.URI) {
		case allUsersURI, authenticatedUsersURI:
			return g, true
		}
	}
	return s3types.Grant{}, false
}

func groupName(uri string) string {
	if uri == authenticatedUsersURI {
		return "AuthenticatedUsers"
	}
	return "AllUsers"
}
