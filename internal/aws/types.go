package aws

import (
	"context"
	"errors"
	"time"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/aws/smithy-go"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

// globalRegion is the region recorded on facts of account-wide services.
const globalRegion = "global"

// Collector enumerates the resources of one service and describes each as a fact.
type Collector interface {
	Service() finding.Service
	Collect(ctx context.Context) ([]finding.ResourceFact, error)
}

// Options holds parameters that control collection.
type Options struct {
	// LookbackDays is the CloudWatch metric window.
	LookbackDays int
	// Concurrency caps regions collected in parallel. Defaults to 4.
	Concurrency int
	// Services limits collection to these services. Empty means all.
	Services map[finding.Service]bool
	Exclude  ExcludeConfig
}

func (o Options) wants(svc finding.Service) bool {
	if len(o.Services) == 0 {
		return true
	}
	if svc == finding.ServiceCloudFront {
		// Distributions are only collected to mark S3 and ELB origins.
		return o.Services[finding.ServiceCloudFront] || o.Services[finding.ServiceS3] || o.Services[finding.ServiceELB]
	}
	return o.Services[svc]
}

// ExcludeConfig holds resource exclusion rules.
type ExcludeConfig struct {
	ResourceIDs map[string]bool
	Tags        map[string]string
}

// ShouldExclude reports whether a resource matches an excluded id or carries an
// excluded tag. A tag rule with an empty value matches any value.
func (e ExcludeConfig) ShouldExclude(id string, tags map[string]string) bool {
	if e.ResourceIDs[id] {
		return true
	}
	for k, v := range e.Tags {
		got, ok := tags[k]
		if ok && (v == "" || v == got) {
			return true
		}
	}
	return false
}

// Progress reports collection progress to callers.
type Progress struct {
	Region    string
	Service   finding.Service
	Facts     int
	Err       error
	Timestamp time.Time
}

func ec2TagsToMap(tags []ec2types.Tag) map[string]string {
	m := make(map[string]string, len(tags))
	for _, t := range tags {
		m[deref(t.Key)] = deref(t.Value)
	}
	return m
}

func rdsTagsToMap(tags []rdstypes.Tag) map[string]string {
	m := make(map[string]string, len(tags))
	for _, t := range tags {
		m[deref(t.Key)] = deref(t.Value)
	}
	return m
}

// hasErrorCode reports whether err is an AWS API error with one of codes.
func hasErrorCode(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, c := range codes {
		if apiErr.ErrorCode() == c {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt32(v *int32) int32 {
	if v == nil {
		return 0
	}
	return *v
}
