package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
environment:
  mode: paper
  log_level: info
database:
  path: polyleg.db
provider:
  kind: mock
trading:
  tick_interval: 30s
  min_notional: 150
  available_cash: 25000
api:
  port: 8080
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsPaperTrading() {
		t.Error("expected paper mode")
	}
	if got := cfg.GetTickInterval(); got != 30*time.Second {
		t.Errorf("tick interval = %v, want 30s", got)
	}
	if got := cfg.GetMinNotional(); got != 150 {
		t.Errorf("min notional = %v, want 150", got)
	}
	if got := cfg.GetDefaultInvestmentPct(); got != defaultInvestmentPct {
		t.Errorf("default investment pct = %v, want default", got)
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("POLYLEG_TEST_TOKEN", "tok-123")
	cfg, err := Load(writeConfig(t, validConfig+`  auth_token: ${POLYLEG_TEST_TOKEN}
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.AuthToken != "tok-123" {
		t.Errorf("auth token = %q, want expanded env var", cfg.API.AuthToken)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(writeConfig(t, validConfig+`
mystery_section:
  key: value
`))
	if err == nil {
		t.Fatal("unknown top-level fields must fail strict decode")
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			"bad mode",
			func(s string) string { return strings.Replace(s, "mode: paper", "mode: dry-run", 1) },
			"environment.mode",
		},
		{
			"missing database path",
			func(s string) string { return strings.Replace(s, "path: polyleg.db", `path: ""`, 1) },
			"database.path",
		},
		{
			"unknown provider",
			func(s string) string { return strings.Replace(s, "kind: mock", "kind: carrier-pigeon", 1) },
			"provider.kind",
		},
		{
			"live on mock provider",
			func(s string) string { return strings.Replace(s, "mode: paper", "mode: live", 1) },
			"mock provider",
		},
		{
			"bad tick interval",
			func(s string) string { return strings.Replace(s, "tick_interval: 30s", "tick_interval: soon", 1) },
			"tick_interval",
		},
		{
			"no cash",
			func(s string) string { return strings.Replace(s, "available_cash: 25000", "available_cash: 0", 1) },
			"available_cash",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.mutate(validConfig)))
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("err = %v, want mention of %q", err, tc.wantErr)
			}
		})
	}
}

func TestHTTPProviderRequiresCredentials(t *testing.T) {
	body := strings.Replace(validConfig, "kind: mock", "kind: http", 1)
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatal("http provider without endpoint/key must fail")
	}

	body = strings.Replace(validConfig, "kind: mock",
		"kind: http\n  api_endpoint: https://api.example.com\n  api_key: k", 1)
	if _, err := Load(writeConfig(t, body)); err != nil {
		t.Fatalf("Load: %v", err)
	}
}
