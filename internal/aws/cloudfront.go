package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/cloudfront"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

// CloudFrontAPI is the minimal interface for listing distributions.
type CloudFrontAPI interface {
	ListDistributions(ctx context.Context, input *cloudfront.ListDistributionsInput, opts ...func(*cloudfront.Options)) (*cloudfront.ListDistributionsOutput, error)
}

// CloudFrontCollector describes distributions and their origin domains.
type CloudFrontCollector struct {
	client CloudFrontAPI
}

// NewCloudFrontCollector creates a collector for CloudFront.
func NewCloudFrontCollector(client CloudFrontAPI) *CloudFrontCollector {
	return &CloudFrontCollector{client: client}
}

// Service returns the service this collector describes.
func (c *CloudFrontCollector) Service() finding.Service {
	return finding.ServiceCloudFront
}

// Collect lists distributions with lower-cased origin domain names.
func (c *CloudFrontCollector) Collect(ctx context.Context) ([]finding.ResourceFact, error) {
	var (
		facts  []finding.ResourceFact
		marker *string
	)
	for {
		out, err := c.client.ListDistributions(ctx, &cloudfront.ListDistributionsInput{Marker: marker})
		if err != nil {
			return nil, fmt.Errorf("list distributions: %w", err)
		}
		list := out.DistributionList
		if list == nil {
			break
		}
		for _, d := range list.Items {
			var origins []string
			if d.Origins != nil {
				for _, o := range d.Origins.Items {
					origins = append(origins, strings.ToLower(deref(o.DomainName)))
				}
			}
			facts = append(facts, finding.ResourceFact{
				Service:    finding.ServiceCloudFront,
				Type:       finding.TypeDistribution,
				ResourceID: deref(d.Id),
				Region:     globalRegion,
				Attrs: finding.Attributes{
					finding.AttrDNSName: deref(d.DomainName),
					finding.AttrOrigins: origins,
				},
			})
		}
		if list.IsTruncated == nil || !*list.IsTruncated || list.NextMarker == nil {
			break
		}
		marker = list.NextMarker
	}
	return facts, nil
}

// LinkCloudFront returns facts with behind_cloudfront set on S3 buckets and load
// balancers that some distribution uses as an origin. Linked facts get a fresh
// attribute map; the input is not modified.
func LinkCloudFront(facts []finding.ResourceFact) []finding.ResourceFact {
	origins := make(map[string]bool)
	for _, f := range facts {
		if f.Service != finding.ServiceCloudFront {
			continue
		}
		domains, _ := f.Attrs.Strings(finding.AttrOrigins)
		for _, d := range domains {
			origins[strings.ToLower(d)] = true
		}
	}
	if len(origins) == 0 {
		return facts
	}

	out := make([]finding.ResourceFact, len(facts))
	for i, f := range facts {
		out[i] = f
		var fronted bool
		switch f.Service {
		case finding.ServiceS3:
			fronted = bucketIsOrigin(f.ResourceID, origins)
		case finding.ServiceELB:
			fronted = origins[strings.ToLower(f.Attrs.StringOr(finding.AttrDNSName, ""))]
		}
		if !fronted {
			continue
		}
		attrs := make(finding.Attributes, len(f.Attrs)+1)
		for k, v := range f.Attrs {
			attrs[k] = v
		}
		attrs[finding.AttrBehindCloudFront] = true
		out[i].Attrs = attrs
	}
	return out
}

// bucketIsOrigin matches REST and website endpoints, with or without a region:
// bucket.s3.amazonaws.com, bucket.s3.eu-west-1.amazonaws.com,
// bucket.s3-website-us-east-1.amazonaws.com.
func bucketIsOrigin(bucket string, origins map[string]bool) bool {
	prefix := strings.ToLower(bucket) + "."
	for o := range origins {
		if !strings.HasPrefix(o, prefix) {
			continue
		}
		rest := strings.TrimPrefix(o, prefix)
		if strings.HasPrefix(rest, "s3.") || strings.HasPrefix(rest, "s3-") {
			return true
		}
	}
	return false
}
