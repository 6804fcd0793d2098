package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `
port: "8080"
databaseURL: "postgres://localhost:5432/challengehub"
redisAddr: "localhost:6379"
jwtSecret: "file-secret"
sessionTTL: "30m"
refreshTTL: "720h"
loginRateLimitPerMinute: 10
`

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, validYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.JWTSecret != "file-secret" {
		t.Fatalf("jwtSecret = %q", cfg.JWTSecret)
	}
	if cfg.LoginRateLimitPerMinute != 10 {
		t.Fatalf("loginRateLimitPerMinute = %d", cfg.LoginRateLimitPerMinute)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, validYAML)
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("LOGIN_RATE_LIMIT_PER_MINUTE", "25")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.1")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Fatalf("port = %q, want env override", cfg.Port)
	}
	if cfg.JWTSecret != "env-secret" {
		t.Fatalf("jwtSecret = %q, want env override", cfg.JWTSecret)
	}
	if cfg.LoginRateLimitPerMinute != 25 {
		t.Fatalf("loginRateLimitPerMinute = %d, want env override", cfg.LoginRateLimitPerMinute)
	}
	if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[1] != "192.168.1.1" {
		t.Fatalf("trustedProxies = %v, want env override", cfg.TrustedProxies)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := writeConfig(t, "port: [unterminated")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidateConfig(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing port", `
databaseURL: "postgres://localhost/db"
redisAddr: "localhost:6379"
jwtSecret: "s"
`},
		{"missing databaseURL", `
port: "8080"
redisAddr: "localhost:6379"
jwtSecret: "s"
`},
		{"missing redisAddr", `
port: "8080"
databaseURL: "postgres://localhost/db"
jwtSecret: "s"
`},
		{"missing jwtSecret", `
port: "8080"
databaseURL: "postgres://localhost/db"
redisAddr: "localhost:6379"
`},
		{"negative rate limit", validYAML + "\nregisterRateLimitPerMinute: -1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.yaml)
			if _, err := Load(path); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestParseDurations(t *testing.T) {
	if d, err := ParseSessionTTL(""); err != nil || d != 0 {
		t.Fatalf("empty sessionTTL: %v %v", d, err)
	}
	if d, err := ParseSessionTTL("45m"); err != nil || d != 45*time.Minute {
		t.Fatalf("sessionTTL = %v, %v", d, err)
	}
	if _, err := ParseSessionTTL("bogus"); err == nil {
		t.Fatalf("expected error for bad sessionTTL")
	}
	if d, err := ParseRefreshTTL("720h"); err != nil || d != 720*time.Hour {
		t.Fatalf("refreshTTL = %v, %v", d, err)
	}
	if d, err := ParseJWTLeeway("30s"); err != nil || d != 30*time.Second {
		t.Fatalf("jwtLeeway = %v, %v", d, err)
	}
	if d, err := ParseNotifyPollInterval("5s"); err != nil || d != 5*time.Second {
		t.Fatalf("notifyPollInterval = %v, %v", d, err)
	}
}
