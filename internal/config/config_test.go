package config

import (
	"os"
	"path/filepath"
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

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
auth:
  login_url: https://api.trawells.test/api/login
  logins_per_minute: 5
session:
  warning_threshold_minutes: 3
  check_interval_seconds: 30
storage:
  path: /tmp/trawells.db
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Auth.LoginURL != "https://api.trawells.test/api/login" {
		t.Fatalf("unexpected login url: %q", cfg.Auth.LoginURL)
	}
	if cfg.Auth.LoginsPerMinute != 5 {
		t.Fatalf("unexpected rate: %d", cfg.Auth.LoginsPerMinute)
	}
	if cfg.Auth.LoginBurst != 3 {
		t.Fatalf("default burst not applied: %d", cfg.Auth.LoginBurst)
	}
	if cfg.Session.WarningThresholdMinutes != 3 {
		t.Fatalf("unexpected threshold: %d", cfg.Session.WarningThresholdMinutes)
	}
	if cfg.CheckInterval() != 30*time.Second {
		t.Fatalf("unexpected interval: %s", cfg.CheckInterval())
	}
	if cfg.Storage.Path != "/tmp/trawells.db" {
		t.Fatalf("unexpected storage path: %q", cfg.Storage.Path)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
auth:
  login_url: https://file.example/login
`)
	t.Setenv("TRAWELLS_LOGIN_URL", "https://env.example/login")
	t.Setenv("TRAWELLS_WARNING_MINUTES", "7")
	t.Setenv("TRAWELLS_CHECK_SECONDS", "15")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Auth.LoginURL != "https://env.example/login" {
		t.Fatalf("env override lost: %q", cfg.Auth.LoginURL)
	}
	if cfg.Session.WarningThresholdMinutes != 7 {
		t.Fatalf("env threshold lost: %d", cfg.Session.WarningThresholdMinutes)
	}
	if cfg.CheckInterval() != 15*time.Second {
		t.Fatalf("env interval lost: %s", cfg.CheckInterval())
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Session.WarningThresholdMinutes != 5 {
		t.Fatalf("unexpected default threshold: %d", cfg.Session.WarningThresholdMinutes)
	}
	if cfg.CheckInterval() != time.Minute {
		t.Fatalf("unexpected default interval: %s", cfg.CheckInterval())
	}
}
