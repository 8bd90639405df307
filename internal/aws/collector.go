package aws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

// maxCollectorsPerRegion caps concurrent collectors within one region.
const maxCollectorsPerRegion = 10

// MultiRegionCollector runs regional collectors in every configured region and
// account-wide collectors once.
type MultiRegionCollector struct {
	regions    []string
	opts       Options
	regional   func(region string) []Collector
	global     []Collector
	progressFn func(Progress)
}

// NewMultiRegionCollector creates a collector over the given regions.
func NewMultiRegionCollector(client *Client, regions []string, opts Options) *MultiRegionCollector {
	home := client.Region()
	return newMultiRegionCollector(regions, opts,
		func(region string) []Collector {
			return buildRegionalCollectors(client.ConfigForRegion(region), region, opts.LookbackDays)
		},
		buildGlobalCollectors(client, home),
	)
}

func newMultiRegionCollector(regions []string, opts Options, regional func(string) []Collector, global []Collector) *MultiRegionCollector {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &MultiRegionCollector{regions: regions, opts: opts, regional: regional, global: global}
}

// SetProgressFn sets a callback invoked as each collector finishes.
func (m *MultiRegionCollector) SetProgressFn(fn func(Progress)) {
	m.progressFn = fn
}

// Collect gathers facts from every in-scope collector. A failing collector
// contributes an AdapterError and zero facts; the rest carry on. CloudFront
// origins are linked and exclusions applied before returning.
func (m *MultiRegionCollector) Collect(ctx context.Context) ([]finding.ResourceFact, []error) {
	var (
		mu    sync.Mutex
		facts []finding.ResourceFact
		errs  []error
	)
	record := func(region string, c Collector, got []finding.ResourceFact, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			slog.Warn("Collector failed", "service", c.Service(), "region", region, "error", err)
			errs = append(errs, &finding.AdapterError{Service: c.Service(), Region: region, Err: err})
		} else {
			facts = append(facts, got...)
		}
		if m.progressFn != nil {
			m.progressFn(Progress{Region: region, Service: c.Service(), Facts: len(got), Err: err, Timestamp: time.Now()})
		}
	}

	var g errgroup.Group
	g.SetLimit(m.opts.Concurrency)

	for _, c := range m.global {
		if !m.opts.wants(c.Service()) {
			continue
		}
		c := c
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("Running collector", "service", c.Service(), "region", globalRegion)
			got, err := c.Collect(ctx)
			record(globalRegion, c, got, err)
			return nil
		})
	}

	for _, region := range m.regions {
		region := region
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			slog.Info("Scanning region", "region", region)
			m.collectRegion(ctx, region, record)
			return nil
		})
	}

	_ = g.Wait()

	facts = LinkCloudFront(facts)
	facts = m.applyExclusions(facts)
	slog.Debug("Collection complete", "facts", len(facts), "errors", len(errs))
	return facts, errs
}

func (m *MultiRegionCollector) collectRegion(ctx context.Context, region string, record func(string, Collector, []finding.ResourceFact, error)) {
	var g errgroup.Group
	g.SetLimit(maxCollectorsPerRegion)

	for _, c := range m.regional(region) {
		if !m.opts.wants(c.Service()) {
			continue
		}
		c := c
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("Running collector", "service", c.Service(), "region", region)
			got, err := c.Collect(ctx)
			record(region, c, got, err)
			return nil
		})
	}
	_ = g.Wait()
}

func (m *MultiRegionCollector) applyExclusions(facts []finding.ResourceFact) []finding.ResourceFact {
	if len(m.opts.Exclude.ResourceIDs) == 0 && len(m.opts.Exclude.Tags) == 0 {
		return facts
	}
	kept := facts[:0:0]
	for _, f := range facts {
		tags, _ := f.Attrs.StringMap(finding.AttrTags)
		if m.opts.Exclude.ShouldExclude(f.ResourceID, tags) {
			slog.Debug("Excluding resource", "service", f.Service, "resource", f.ResourceID)
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

// buildRegionalCollectors creates the per-region collectors for a given region.
func buildRegionalCollectors(cfg awssdk.Config, region string, lookbackDays int) []Collector {
	ec2Client := ec2.NewFromConfig(cfg)
	cwClient := cloudwatch.NewFromConfig(cfg)
	metrics := NewMetricsFetcher(cwClient)

	return []Collector{
		NewEC2Collector(ec2Client, autoscaling.NewFromConfig(cfg), metrics, region, lookbackDays),
		NewEBSCollector(ec2Client, region),
		NewEIPCollector(ec2Client, region),
		NewSecurityGroupCollector(ec2Client, region),
		NewELBCollector(elasticloadbalancingv2.NewFromConfig(cfg), metrics, region, lookbackDays),
		NewRDSCollector(rds.NewFromConfig(cfg), region),
		NewECSCollector(ecs.NewFromConfig(cfg), region),
		NewCloudTrailCollector(cloudtrail.NewFromConfig(cfg), region),
		NewAlarmCollector(cwClient, region),
		NewLambdaCollector(lambda.NewFromConfig(cfg), metrics, region, lookbackDays),
	}
}

// buildGlobalCollectors creates the account-wide collectors, bound to the home region.
func buildGlobalCollectors(client *Client, home string) []Collector {
	cfg := client.ConfigForRegion(home)
	s3Clients := &s3ClientCache{client: client, clients: make(map[string]S3API)}

	return []Collector{
		NewS3Collector(s3.NewFromConfig(cfg), s3Clients.forRegion),
		NewIAMCollector(iam.NewFromConfig(cfg)),
		NewCloudFrontCollector(cloudfront.NewFromConfig(cfg)),
	}
}

// s3ClientCache hands out one S3 client per bucket region.
type s3ClientCache struct {
	client  *Client
	mu      sync.Mutex
	clients map[string]S3API
}

func (c *s3ClientCache) forRegion(region string) S3API {
	c.mu.Lock()
	defer c.mu.Unlock()
	if api, ok := c.clients[region]; ok {
		return api
	}
	api := s3.NewFromConfig(c.client.ConfigForRegion(region))
	c.clients[region] = api
	return api
}
