package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rachealIC/infra-review-cli/internal/config"
	"github.com/rachealIC/infra-review-cli/internal/logging"
)

var (
	verbose bool
	profile string
	version string
	commit  string
	date    string
	cfg     config.Config
	cfgErr  error
)

var rootCmd = &cobra.Command{
	Use:   "infra-review",
	Short: "infra-review — AWS Well-Architected audit",
	Long: `infra-review audits an AWS account against the six Well-Architected pillars:
Security, Reliability, Operational Excellence, Performance Efficiency, Cost
Optimization and Sustainability.

It enumerates EC2, EBS, Elastic IPs, load balancers, RDS, S3, IAM, ECS, Lambda,
CloudTrail, CloudWatch and security groups, evaluates each resource against a
pack of checks, scores every pillar from 0 to 100 and optionally asks an AI
provider for remediation steps.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)
		loaded, err := config.Load(".")
		if err != nil {
			slog.Warn("Failed to load config file", "error", err)
			cfgErr = err
			return
		}
		cfg = loaded
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "infra-review %s (commit %s, built %s)\n", version, commit, date)
	},
}

// Execute runs the root command with injected build info.
func Execute(v, c, d string) error {
	version = v
	commit = c
	date = d
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "AWS profile name")
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(checksCmd)
	rootCmd.AddCommand(versionCmd)
}
