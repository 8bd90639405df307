package aws

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

// LambdaAPI is the minimal interface for Lambda operations.
type LambdaAPI interface {
	ListFunctions(ctx context.Context, input *lambda.ListFunctionsInput, opts ...func(*lambda.Options)) (*lambda.ListFunctionsOutput, error)
}

// LambdaCollector describes functions with their environment variable names and
// memory usage.
type LambdaCollector struct {
	client       LambdaAPI
	metrics      *MetricsFetcher
	region       string
	lookbackDays int
}

// NewLambdaCollector creates a collector for Lambda functions.
func NewLambdaCollector(client LambdaAPI, metrics *MetricsFetcher, region string, lookbackDays int) *LambdaCollector {
	return &LambdaCollector{client: client, metrics: metrics, region: region, lookbackDays: lookbackDays}
}

// Service returns the service this collector describes.
func (c *LambdaCollector) Service() finding.Service {
	return finding.ServiceLambda
}

// Collect lists functions. Peak memory comes from Lambda Insights and is only
// present for functions with the extension enabled. Variable values are never read.
func (c *LambdaCollector) Collect(ctx context.Context) ([]finding.ResourceFact, error) {
	functions, err := c.listFunctions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list Lambda functions: %w", err)
	}
	if len(functions) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(functions))
	for _, fn := range functions {
		names = append(names, deref(fn.FunctionName))
	}
	maxUsed, err := c.metrics.FetchMaximum(ctx, "LambdaInsights", "used_memory_max", "function_name", names, c.lookbackDays)
	if err != nil {
		slog.Warn("Failed to fetch Lambda memory metrics", "region", c.region, "error", err)
	}

	facts := make([]finding.ResourceFact, 0, len(functions))
	for _, fn := range functions {
		name := deref(fn.FunctionName)
		attrs := finding.Attributes{
			finding.AttrEnvKeys:  envKeys(fn.Environment),
			finding.AttrMemoryMB: int(derefInt32(fn.MemorySize)),
		}
		if v, ok := maxUsed[name]; ok {
			attrs[finding.AttrMaxMemoryUsedMB] = v
		}
		facts = append(facts, finding.ResourceFact{
			Service:    finding.ServiceLambda,
			Type:       finding.TypeFunction,
			ResourceID: name,
			Region:     c.region,
			Attrs:      attrs,
		})
	}
	return facts, nil
}

func (c *LambdaCollector) listFunctions(ctx context.Context) ([]lambdatypes.FunctionConfiguration, error) {
	var functions []lambdatypes.FunctionConfiguration
	paginator := lambda.NewListFunctionsPaginator(c.client, &lambda.ListFunctionsInput{})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		functions = append(functions, page.Functions...)
	}
	return functions, nil
}

func envKeys(env *lambdatypes.EnvironmentResponse) []string {
	if env == nil {
		return []string{}
	}
	keys := make([]string, 0, len(env.Variables))
	for k := range env.Variables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
