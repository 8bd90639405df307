package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rachealIC/infra-review-cli/internal/audit"
	"github.com/rachealIC/infra-review-cli/internal/aws"
	"github.com/rachealIC/infra-review-cli/internal/checks"
	"github.com/rachealIC/infra-review-cli/internal/config"
	"github.com/rachealIC/infra-review-cli/internal/enrich"
	"github.com/rachealIC/infra-review-cli/internal/normalize"
	"github.com/rachealIC/infra-review-cli/internal/report"
)

const defaultScanTimeout = 10 * time.Minute

var scanFlags struct {
	regions    []string
	allRegions bool
	services   []string
	pillars    []string
	format     string
	outputFile string
	noAI       bool
	noProgress bool
	timeout    time.Duration
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Audit an AWS account against the Well-Architected pillars",
	Long: `Scan AWS resources in the selected regions, evaluate every check, score each
pillar and render a report. Failures for one service, region, check or AI
provider become warnings in the report; the scan itself carries on.

Press Ctrl-C to stop early. The report is still written and marked partial.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringSliceVar(&scanFlags.regions, "regions", nil, "Comma-separated regions (default: profile region)")
	scanCmd.Flags().BoolVar(&scanFlags.allRegions, "all-regions", false, "Scan every enabled region")
	scanCmd.Flags().StringSliceVar(&scanFlags.services, "services", nil, "Comma-separated services to scan (default: all)")
	scanCmd.Flags().StringSliceVar(&scanFlags.pillars, "pillars", nil, "Comma-separated pillars to evaluate (default: all)")
	scanCmd.Flags().StringVar(&scanFlags.format, "format", "text", "Output format: "+strings.Join(report.Formats, ", "))
	scanCmd.Flags().StringVarP(&scanFlags.outputFile, "output", "o", "", "Output file path (default: stdout)")
	scanCmd.Flags().BoolVar(&scanFlags.noAI, "no-ai", false, "Skip AI remediation and summary")
	scanCmd.Flags().BoolVar(&scanFlags.noProgress, "no-progress", false, "Disable progress output")
	scanCmd.Flags().DurationVar(&scanFlags.timeout, "timeout", defaultScanTimeout, "Scan timeout")
}

func runScan(cmd *cobra.Command, _ []string) error {
	if cfgErr != nil {
		return enhanceError("load config", cfgErr)
	}

	// Flags override config file values
	applyConfigDefaults(cmd)
	eff := effectiveConfig()
	if err := eff.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if scanFlags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, scanFlags.timeout)
		defer cancel()
	}

	// Open the output before touching AWS so an unwritable path fails fast
	reporter, closeOutput, err := selectReporter(eff.Format, scanFlags.outputFile)
	if err != nil {
		return err
	}
	defer closeOutput()

	prof := profile
	if prof == "" {
		prof = eff.Profile
	}

	client, err := aws.NewClient(ctx, prof, "")
	if err != nil {
		return enhanceError("initialize AWS client", err)
	}

	accountID, err := client.AccountID(ctx)
	if err != nil {
		return enhanceError("resolve account identity", err)
	}

	regions := resolveRegions(scanFlags.regions, eff.Regions, client.Region())
	if scanFlags.allRegions && len(scanFlags.regions) == 0 {
		regions, err = client.ListEnabledRegions(ctx)
		if err != nil {
			return enhanceError("list enabled regions", err)
		}
	}
	slog.Info("Scanning account", "account", accountID, "regions", regions)

	services, _ := eff.ServiceSet()
	pillars, _ := eff.PillarSet()
	thresholds := eff.CheckThresholds()
	policy, _ := eff.ScoringPolicy()

	collector := aws.NewMultiRegionCollector(client, regions, aws.Options{
		LookbackDays: thresholds.LookbackDays,
		Services:     services,
		Exclude: aws.ExcludeConfig{
			ResourceIDs: eff.Exclude.IDs(),
			Tags:        eff.Exclude.ParseTags(),
		},
	})

	progress := newScanProgress(os.Stderr, scanFlags.noProgress)
	collector.SetProgressFn(progress.collected)

	registry := checks.Default()
	pipeline := &audit.Pipeline{
		Source:     collector,
		Registry:   registry,
		Thresholds: thresholds,
		Scope:      checks.Filter{Services: services, Pillars: pillars},
		Normalizer: normalize.New(normalize.DefaultEstimators()),
		Policy:     policy,
		AccountID:  accountID,
		Regions:    regions,
		AppVersion: version,
		OnStage:    progress.stage,
	}
	if !scanFlags.noAI && eff.AIEnabled() {
		pipeline.Enricher = buildEnricher(eff, os.Getenv)
	}

	res, err := pipeline.Run(ctx)
	progress.finish()
	if err != nil {
		return fmt.Errorf("assemble scan result: %w", err)
	}
	if res.Partial {
		slog.Warn("Scan did not complete; writing partial report", "cause", context.Cause(ctx))
	}

	slog.Info("Scan complete",
		"findings", len(res.Findings),
		"score", res.OverallScore,
		"warnings", len(res.Warnings),
		"duration", res.ScanDuration,
	)

	if err := reporter.Generate(res); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return closeOutput()
}

// effectiveConfig merges resolved flag values into the loaded config.
func effectiveConfig() config.Config {
	eff := cfg
	eff.Services = scanFlags.services
	eff.Pillars = scanFlags.pillars
	eff.Format = scanFlags.format
	return eff
}

func resolveRegions(flagRegions, cfgRegions []string, fallback string) []string {
	if len(flagRegions) > 0 {
		return flagRegions
	}
	if len(cfgRegions) > 0 {
		return cfgRegions
	}
	return []string{fallback}
}

func applyConfigDefaults(cmd *cobra.Command) {
	flags := cmd.Flags()
	if !flags.Changed("format") && cfg.Format != "" {
		scanFlags.format = cfg.Format
	}
	if !flags.Changed("output") && cfg.Output != "" {
		scanFlags.outputFile = cfg.Output
	}
	if !flags.Changed("services") && len(cfg.Services) > 0 {
		scanFlags.services = cfg.Services
	}
	if !flags.Changed("pillars") && len(cfg.Pillars) > 0 {
		scanFlags.pillars = cfg.Pillars
	}
	if !flags.Changed("timeout") && cfg.TimeoutDuration() > 0 {
		scanFlags.timeout = cfg.TimeoutDuration()
	}
}

// buildEnricher returns nil when no configured provider has an API key.
func buildEnricher(c config.Config, getenv func(string) string) *enrich.Enricher {
	providers, missing := buildProviders(c.ProviderOrder(), c.AI.Models, getenv)
	if len(providers) == 0 {
		slog.Info("No AI provider key set; remediation disabled", "env", missing)
		return nil
	}
	if len(missing) > 0 {
		slog.Debug("Skipping AI providers without keys", "env", missing)
	}
	return enrich.New(enrich.NewChain(c.ProviderTimeout(), providers...), c.EnrichOptions())
}

func buildProviders(order []string, models map[string]string, getenv func(string) string) ([]enrich.Provider, []string) {
	var (
		providers []enrich.Provider
		missing   []string
	)
	for _, name := range order {
		env := enrich.KeyEnv(name)
		if env == "" {
			continue
		}
		p, ok := enrich.NewProvider(name, getenv(env), models[name])
		if !ok {
			missing = append(missing, env)
			continue
		}
		providers = append(providers, p)
	}
	return providers, missing
}

// selectReporter opens the output and returns the reporter plus an idempotent close.
func selectReporter(format, outputFile string) (report.Reporter, func() error, error) {
	var w io.Writer = os.Stdout
	closeFn := func() error { return nil }
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return nil, nil, fmt.Errorf("create output file: %w", err)
		}
		w = f
		closed := false
		closeFn = func() error {
			if closed {
				return nil
			}
			closed = true
			if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
				return fmt.Errorf("close output file: %w", err)
			}
			return nil
		}
	}

	reporter, err := report.New(format, w)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return reporter, closeFn, nil
}
