package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8088" {
		t.Fatalf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.LLMCacheSize != 32 {
		t.Fatalf("LLMCacheSize = %d", cfg.LLMCacheSize)
	}
	if cfg.Scheduler.IdleTimeout != 300*time.Second {
		t.Fatalf("Scheduler.IdleTimeout = %v", cfg.Scheduler.IdleTimeout)
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "teamkit.yaml")
	doc := `
base_dir: /var/lib/teamkit
listen_addr: ":9999"
scheduler:
  idle_timeout: 30s
  leader_nudge_interval: 10s
providers:
  acme:
    base_url: https://llm.acme.example
    default_model: acme-large
    api_key_env: ACME_KEY
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseDir != "/var/lib/teamkit" {
		t.Fatalf("BaseDir = %q", cfg.BaseDir)
	}
	if cfg.ListenAddr != ":9999" {
		t.Fatalf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.Scheduler.IdleTimeout != 30*time.Second {
		t.Fatalf("Scheduler.IdleTimeout = %v", cfg.Scheduler.IdleTimeout)
	}
	if cfg.Scheduler.LeaderNudgeInterval != 10*time.Second {
		t.Fatalf("Scheduler.LeaderNudgeInterval = %v", cfg.Scheduler.LeaderNudgeInterval)
	}
	if got := cfg.Providers["acme"].DefaultModel; got != "acme-large" {
		t.Fatalf("Providers[acme].DefaultModel = %q", got)
	}
	if got := cfg.APIKeyEnv("acme"); got != "ACME_KEY" {
		t.Fatalf("APIKeyEnv(acme) = %q", got)
	}
	if got := cfg.APIKeyEnv("other"); got != "OTHER_API_KEY" {
		t.Fatalf("APIKeyEnv(other) = %q", got)
	}
}
