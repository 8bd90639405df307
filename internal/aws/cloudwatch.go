package aws

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

const (
	// maxMetricDataQueries is the maximum number of metric queries per GetMetricData call.
	maxMetricDataQueries = 500
	// metricPeriodSeconds is the aggregation period for CloudWatch metrics (1 hour).
	metricPeriodSeconds = 3600
)

// CloudWatchAPI is the minimal interface for CloudWatch operations needed by the metrics fetcher.
type CloudWatchAPI interface {
	GetMetricData(ctx context.Context, input *cloudwatch.GetMetricDataInput, opts ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error)
}

// MetricsFetcher retrieves CloudWatch metrics in batches.
type MetricsFetcher struct {
	client CloudWatchAPI
}

// NewMetricsFetcher creates a fetcher using the given CloudWatch client.
func NewMetricsFetcher(client CloudWatchAPI) *MetricsFetcher {
	return &MetricsFetcher{client: client}
}

// FetchAverage retrieves the average value of a metric for a set of resource IDs over a lookback period.
// Returns a map of resource ID to average value.
func (f *MetricsFetcher) FetchAverage(ctx context.Context, namespace, metricName, dimensionName string, ids []string, lookbackDays int) (map[string]float64, error) {
	return f.fetchMetric(ctx, namespace, metricName, dimensionName, ids, lookbackDays, "Average")
}

// FetchSum retrieves the sum of a metric for a set of resource IDs over a lookback period.
// Returns a map of resource ID to total sum.
func (f *MetricsFetcher) FetchSum(ctx context.Context, namespace, metricName, dimensionName string, ids []string, lookbackDays int) (map[string]float64, error) {
	return f.fetchMetric(ctx, namespace, metricName, dimensionName, ids, lookbackDays, "Sum")
}

// FetchMaximum retrieves the peak value of a metric for a set of resource IDs over a lookback period.
func (f *MetricsFetcher) FetchMaximum(ctx context.Context, namespace, metricName, dimensionName string, ids []string, lookbackDays int) (map[string]float64, error) {
	return f.fetchMetric(ctx, namespace, metricName, dimensionName, ids, lookbackDays, "Maximum")
}

func (f *MetricsFetcher) fetchMetric(ctx context.Context, namespace, metricName, dimensionName string, ids []string, lookbackDays int, stat string) (map[string]float64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -lookbackDays)
	results := make(map[string]float64, len(ids))

	for batch := range slices.Chunk(ids, maxMetricDataQueries) {
		slog.Debug("Fetching CloudWatch metrics", "metric", namespace+"/"+metricName, "stat", stat, "count", len(batch))

		byQuery := make(map[string]string, len(batch))
		queries := make([]cwtypes.MetricDataQuery, 0, len(batch))
		for i, id := range batch {
			qid := fmt.Sprintf("m%d", i)
			byQuery[qid] = id
			queries = append(queries, cwtypes.MetricDataQuery{
				Id: awssdk.String(qid),
				MetricStat: &cwtypes.MetricStat{
					Metric: &cwtypes.Metric{
						Namespace:  awssdk.String(namespace),
						MetricName: awssdk.String(metricName),
						Dimensions: []cwtypes.Dimension{{Name: awssdk.String(dimensionName), Value: awssdk.String(id)}},
					},
					Period: awssdk.Int32(metricPeriodSeconds),
					Stat:   awssdk.String(stat),
				},
			})
		}

		out, err := f.client.GetMetricData(ctx, &cloudwatch.GetMetricDataInput{
			MetricDataQueries: queries,
			StartTime:         awssdk.Time(start),
			EndTime:           awssdk.Time(end),
		})
		if err != nil {
			return nil, fmt.Errorf("get metric data %s/%s: %w", namespace, metricName, err)
		}

		for _, r := range out.MetricDataResults {
			id, ok := byQuery[deref(r.Id)]
			if !ok || len(r.Values) == 0 {
				continue
			}
			results[id] = aggregate(r.Values, stat)
		}
	}

	return results, nil
}

// aggregate folds hourly datapoints into one value: mean of averages, total of
// sums, or the highest maximum.
func aggregate(values []float64, stat string) float64 {
	switch stat {
	case "Maximum":
		return slices.Max(values)
	case "Average":
		return sum(values) / float64(len(values))
	default:
		return sum(values)
	}
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// AlarmAPI is the minimal interface for listing CloudWatch alarms.
type AlarmAPI interface {
	DescribeAlarms(ctx context.Context, input *cloudwatch.DescribeAlarmsInput, opts ...func(*cloudwatch.Options)) (*cloudwatch.DescribeAlarmsOutput, error)
}

// AlarmCollector counts the metric and composite alarms configured in a region.
type AlarmCollector struct {
	client AlarmAPI
	region string
}

// NewAlarmCollector creates a collector for CloudWatch alarms.
func NewAlarmCollector(client AlarmAPI, region string) *AlarmCollector {
	return &AlarmCollector{client: client, region: region}
}

// Service returns the service this collector describes.
func (c *AlarmCollector) Service() finding.Service {
	return finding.ServiceCloudWatch
}

// Collect returns one regional fact with the alarm count.
func (c *AlarmCollector) Collect(ctx context.Context) ([]finding.ResourceFact, error) {
	var count int
	paginator := cloudwatch.NewDescribeAlarmsPaginator(c.client, &cloudwatch.DescribeAlarmsInput{
		AlarmTypes: []cwtypes.AlarmType{cwtypes.AlarmTypeMetricAlarm, cwtypes.AlarmTypeCompositeAlarm},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe alarms: %w", err)
		}
		count += len(page.MetricAlarms) + len(page.CompositeAlarms)
	}

	return []finding.ResourceFact{{
		Service:    finding.ServiceCloudWatch,
		Type:       finding.TypeRegion,
		ResourceID: c.region,
		Region:     c.region,
		Attrs:      finding.Attributes{finding.AttrAlarmCount: count},
	}}, nil
}
