package commands

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/rachealIC/infra-review-cli/internal/aws"
	"github.com/rachealIC/infra-review-cli/internal/config"
	"github.com/rachealIC/infra-review-cli/internal/enrich"
	"github.com/rachealIC/infra-review-cli/internal/report"
)

func TestResolveRegions(t *testing.T) {
	tests := []struct {
		name     string
		flags    []string
		cfg      []string
		fallback string
		want     string
	}{
		{"flag wins", []string{"eu-west-1"}, []string{"us-west-2"}, "us-east-1", "eu-west-1"},
		{"config next", nil, []string{"us-west-2", "ap-south-1"}, "us-east-1", "us-west-2,ap-south-1"},
		{"profile region", nil, nil, "eu-central-1", "eu-central-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.Join(resolveRegions(tt.flags, tt.cfg, tt.fallback), ",")
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestBuildProviders(t *testing.T) {
	env := map[string]string{
		enrich.EnvOpenAIKey: "sk-test",
		enrich.EnvClaudeKey: "sk-ant-test",
	}
	getenv := func(k string) string { return env[k] }

	providers, missing := buildProviders([]string{"openai", "gemini", "claude"}, map[string]string{"openai": "gpt-4o"}, getenv)
	if len(providers) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(providers))
	}
	if providers[0].Name() != "openai" || providers[1].Name() != "claude" {
		t.Fatalf("provider order not kept: %s, %s", providers[0].Name(), providers[1].Name())
	}
	if len(missing) != 1 || missing[0] != enrich.EnvGeminiKey {
		t.Fatalf("expected gemini key reported missing, got %v", missing)
	}
	if p, ok := providers[0].(enrich.OpenAIProvider); !ok || p.Model != "gpt-4o" {
		t.Fatalf("expected configured model on openai provider, got %#v", providers[0])
	}
}

func TestBuildEnricher_NoKeys(t *testing.T) {
	getenv := func(string) string { return "" }
	if e := buildEnricher(config.Config{}, getenv); e != nil {
		t.Fatal("expected nil enricher without keys")
	}
	getenv = func(k string) string {
		if k == enrich.EnvGeminiKey {
			return "key"
		}
		return ""
	}
	if e := buildEnricher(config.Config{}, getenv); e == nil {
		t.Fatal("expected enricher with a gemini key")
	}
}

func TestApplyConfigDefaults(t *testing.T) {
	saved, savedFlags := cfg, scanFlags
	t.Cleanup(func() { cfg, scanFlags = saved, savedFlags })

	cfg = config.Config{
		Format:   "json",
		Output:   "report.json",
		Services: []string{"s3"},
		Timeout:  "3m",
	}
	scanFlags.format = "text"
	scanFlags.outputFile = ""
	scanFlags.services = nil
	scanFlags.timeout = defaultScanTimeout

	cmd := &cobra.Command{}
	cmd.Flags().StringVar(&scanFlags.format, "format", "text", "")
	if err := cmd.Flags().Set("format", "html"); err != nil {
		t.Fatal(err)
	}

	applyConfigDefaults(cmd)

	if scanFlags.format != "html" {
		t.Fatalf("explicit flag should win, got %s", scanFlags.format)
	}
	if scanFlags.outputFile != "report.json" {
		t.Fatalf("expected output from config, got %q", scanFlags.outputFile)
	}
	if len(scanFlags.services) != 1 || scanFlags.services[0] != "s3" {
		t.Fatalf("expected services from config, got %v", scanFlags.services)
	}
	if scanFlags.timeout != 3*time.Minute {
		t.Fatalf("expected timeout from config, got %v", scanFlags.timeout)
	}

	eff := effectiveConfig()
	if eff.Format != "html" || len(eff.Services) != 1 {
		t.Fatalf("unexpected effective config %+v", eff)
	}
}

func TestSelectReporter_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.sarif")
	r, closeFn, err := selectReporter("sarif", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := r.(*report.SARIFReporter); !ok {
		t.Fatalf("expected SARIF reporter, got %T", r)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
}

func TestSelectReporter_Errors(t *testing.T) {
	if _, _, err := selectReporter("xml", ""); err == nil {
		t.Fatal("expected unsupported format error")
	}
	missingDir := filepath.Join(t.TempDir(), "missing", "out.json")
	if _, _, err := selectReporter("json", missingDir); err == nil {
		t.Fatal("expected error for unwritable output")
	}
}

func TestScanProgress_Disabled(t *testing.T) {
	p := newScanProgress(os.Stderr, true)
	p.stage("Collecting resources")
	p.collected(aws.Progress{Region: "us-east-1"})
	p.finish()
}

func TestScanProgress_Describe(t *testing.T) {
	p := newScanProgress(io.Discard, false)
	p.stage("Collecting resources")
	p.collected(aws.Progress{Region: "us-east-1"})
	p.collected(aws.Progress{Region: "eu-west-1", Err: os.ErrPermission})

	p.mu.Lock()
	desc := p.describe()
	p.mu.Unlock()
	if !strings.Contains(desc, "2 collectors done") || !strings.Contains(desc, "1 failed") {
		t.Fatalf("unexpected description %q", desc)
	}
	p.finish()
}
