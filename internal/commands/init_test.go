package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rachealIC/infra-review-cli/internal/config"
)

func TestRunInit_WritesFiles(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	if err := runInit(&out, dir, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "Created 2 file(s)") {
		t.Fatalf("unexpected output %q", out.String())
	}

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config does not validate: %v", err)
	}
	if cfg.Format != "text" || cfg.Thresholds.LookbackDays != 14 {
		t.Fatalf("unexpected sample config %+v", cfg)
	}

	data, err := os.ReadFile(filepath.Join(dir, initPolicyPath))
	if err != nil {
		t.Fatal(err)
	}
	var policy struct {
		Statement []struct {
			Action []string
		}
	}
	if err := json.Unmarshal(data, &policy); err != nil {
		t.Fatalf("policy is not JSON: %v", err)
	}
	if len(policy.Statement) != 1 || len(policy.Statement[0].Action) == 0 {
		t.Fatal("expected one statement with actions")
	}
	for _, a := range policy.Statement[0].Action {
		if strings.HasSuffix(a, ":*") || strings.HasPrefix(a, "s3:Put") || strings.HasPrefix(a, "ec2:Delete") {
			t.Fatalf("policy must stay read-only, found %s", a)
		}
	}
}

func TestRunInit_SkipsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, initConfigPath)
	if err := os.WriteFile(path, []byte("profile: keep\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := runInit(&out, dir, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "Skipping") {
		t.Fatal("expected skip message")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "profile: keep\n" {
		t.Fatal("existing config was overwritten")
	}

	out.Reset()
	if err := runInit(&out, dir, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) == "profile: keep\n" {
		t.Fatal("--force should overwrite")
	}
}
