package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const (
	initConfigPath = ".infra-review.yaml"
	initPolicyPath = "infra-review-policy.json"
)

var initFlags struct {
	force bool
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate sample config and IAM policy",
	Long:  `Creates a sample .infra-review.yaml config file and an IAM policy JSON file granting the read-only access a scan needs.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runInit(cmd.OutOrStdout(), ".", initFlags.force)
	},
}

func init() {
	initCmd.Flags().BoolVar(&initFlags.force, "force", false, "Overwrite existing files")
}

func runInit(out io.Writer, dir string, force bool) error {
	configPath := filepath.Join(dir, initConfigPath)
	policyPath := filepath.Join(dir, initPolicyPath)

	wrote := 0
	for _, file := range []struct{ path, content string }{
		{configPath, sampleConfig},
		{policyPath, sampleIAMPolicy},
	} {
		ok, err := writeIfNotExists(out, file.path, file.content, force)
		if err != nil {
			return err
		}
		if ok {
			wrote++
		}
	}

	if wrote > 0 {
		fmt.Fprintf(out, "Created %d file(s)\n", wrote)
		fmt.Fprintln(out, "\nNext steps:")
		fmt.Fprintf(out, "  1. Edit %s to customize scan settings\n", initConfigPath)
		fmt.Fprintf(out, "  2. Apply %s to your AWS IAM role/user\n", initPolicyPath)
		fmt.Fprintln(out, "  3. Optionally export ANTHROPIC_API_KEY, GEMINI_API_KEY or OPENAI_API_KEY for AI remediation")
		fmt.Fprintln(out, "  4. Run: infra-review scan")
	}
	return nil
}

func writeIfNotExists(out io.Writer, path, content string, force bool) (bool, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(out, "Skipping %s (already exists, use --force to overwrite)\n", path)
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

const sampleConfig = `# infra-review configuration

# AWS profile (or set AWS_PROFILE env var)
# profile: default

# Regions to scan (default: the profile's region)
# regions:
#   - us-east-1
#   - eu-west-1

# Services to scan (default: all)
# services: [ec2, ebs, eip, elb, rds, s3, vpc, iam, ecs, lambda, cloudtrail, cloudwatch]

# Pillars to evaluate (default: all)
# pillars: [security, reliability, operational, performance, cost, sustainability]

# Output format: text, json, sarif or html
format: text

# Scan timeout
timeout: 10m

# Check thresholds (defaults shown)
thresholds:
  cpu_underutilization_pct: 20
  cpu_overutilization_pct: 85
  cpu_peak_spike_pct: 90
  idle_cpu_pct: 5
  lookback_days: 14
  ebs_unattached_days: 30
  rds_min_backup_retention_days: 7
  root_activity_days: 30
  lambda_memory_ratio: 2
  required_tags: [Name, Environment, Owner]

# Scoring overrides
# scoring:
#   penalties:
#     Critical: 25
#     High: 15
#     Medium: 7
#     Low: 2
#   weights:
#     security: 0.24
#     reliability: 0.24
#     operational: 0.16
#     performance: 0.12
#     cost: 0.12
#     sustainability: 0.12

# AI remediation. Keys come from ANTHROPIC_API_KEY, GEMINI_API_KEY, OPENAI_API_KEY.
ai:
  enabled: true
  providers: [claude, gemini, openai]
  timeout: 20s
  budget: 2m
  concurrency: 4
  # requests_per_second: 2
  # models:
  #   openai: gpt-4o-mini

# Resources to exclude from scanning
# exclude:
#   resource_ids:
#     - i-0abc123
#   tags:
#     - "Environment=sandbox"
#     - "infra-review:ignore"
`

const sampleIAMPolicy = `{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Sid": "InfraReviewReadOnly",
      "Effect": "Allow",
      "Action": [
        "sts:GetCallerIdentity",
        "ec2:DescribeRegions",
        "ec2:DescribeInstances",
        "ec2:DescribeVolumes",
        "ec2:DescribeAddresses",
        "ec2:DescribeSecurityGroups",
        "autoscaling:DescribeAutoScalingInstances",
        "cloudwatch:GetMetricData",
        "cloudwatch:DescribeAlarms",
        "elasticloadbalancing:DescribeLoadBalancers",
        "elasticloadbalancing:DescribeTargetGroups",
        "elasticloadbalancing:DescribeTargetHealth",
        "rds:DescribeDBInstances",
        "s3:ListAllMyBuckets",
        "s3:GetBucketLocation",
        "s3:GetBucketPolicy",
        "s3:GetBucketPolicyStatus",
        "s3:GetBucketAcl",
        "s3:GetBucketVersioning",
        "s3:GetLifecycleConfiguration",
        "iam:ListUsers",
        "iam:GetLoginProfile",
        "iam:ListMFADevices",
        "iam:GenerateCredentialReport",
        "iam:GetCredentialReport",
        "ecs:ListClusters",
        "ecs:ListServices",
        "ecs:DescribeServices",
        "ecs:DescribeTaskDefinition",
        "lambda:ListFunctions",
        "cloudtrail:DescribeTrails",
        "cloudtrail:GetTrailStatus",
        "cloudfront:ListDistributions"
      ],
      "Resource": "*"
    }
  ]
}
`
