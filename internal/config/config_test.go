package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("expected addr :8080, got %q", cfg.HTTP.Addr)
	}
	if cfg.HTTP.ReadHeaderTimeout != 10*time.Second {
		t.Errorf("expected read header timeout 10s, got %v", cfg.HTTP.ReadHeaderTimeout)
	}
	if cfg.DB.Path != "auditit.sqlite3" {
		t.Errorf("expected default db path, got %q", cfg.DB.Path)
	}
	if cfg.Photos.Backend != "fs" || cfg.Photos.MaxDimension != 1024 {
		t.Errorf("unexpected photo defaults %+v", cfg.Photos)
	}
	if cfg.Lifecycle.StrictTransitions {
		t.Error("expected permissive transitions by default")
	}
	if cfg.JWT.Expiry != 7*24*time.Hour {
		t.Errorf("expected 7 day expiry, got %v", cfg.JWT.Expiry)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeFile(t, "auditit.yaml", `
http:
  addr: ":9090"
  write_timeout: 15s
  allowed_origins: ["https://inventory.example.com"]
db:
  path: /var/lib/auditit/db.sqlite3
lifecycle:
  strict_transitions: true
photos:
  backend: s3
  s3:
    bucket: photos
`)

	t.Setenv("AUDITIT_HTTP_ADDR", ":7070")
	t.Setenv("AUDITIT_DINGTALK_APP_KEY", "key")
	t.Setenv("AUDITIT_DINGTALK_APP_SECRET", "secret")
	t.Setenv("AUDITIT_JWT_EXPIRY_HOURS", "2")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTP.Addr != ":7070" {
		t.Errorf("expected env to override file, got %q", cfg.HTTP.Addr)
	}
	if cfg.HTTP.WriteTimeout != 15*time.Second {
		t.Errorf("expected write timeout 15s, got %v", cfg.HTTP.WriteTimeout)
	}
	if len(cfg.HTTP.AllowedOrigins) != 1 || cfg.HTTP.AllowedOrigins[0] != "https://inventory.example.com" {
		t.Errorf("unexpected origins %v", cfg.HTTP.AllowedOrigins)
	}
	if !cfg.Lifecycle.StrictTransitions {
		t.Error("expected strict transitions from file")
	}
	if cfg.Photos.S3.Bucket != "photos" || cfg.Photos.S3.Region != "us-east-1" {
		t.Errorf("unexpected s3 config %+v", cfg.Photos.S3)
	}
	if cfg.DingTalk.AppKey != "key" {
		t.Errorf("expected dingtalk key from env, got %q", cfg.DingTalk.AppKey)
	}
	if cfg.JWT.Expiry != 2*time.Hour {
		t.Errorf("expected 2h expiry, got %v", cfg.JWT.Expiry)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown backend", "photos:\n  backend: ftp\n"},
		{"s3 without bucket", "photos:\n  backend: s3\n"},
		{"bad encoding", "log:\n  encoding: xml\n"},
		{"half dingtalk credentials", "dingtalk:\n  app_key: key\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, "auditit.yaml", tt.yaml)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "AUDITIT_TEST_DOTENV=from-file\n")
	t.Setenv("AUDITIT_TEST_DOTENV", "")
	os.Unsetenv("AUDITIT_TEST_DOTENV")

	if err := LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("AUDITIT_TEST_DOTENV"); got != "from-file" {
		t.Errorf("expected value from .env, got %q", got)
	}
}
