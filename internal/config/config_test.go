package config

import (
	"flag"
	"os"
	"strings"
	"testing"
)

// resetFlagSet создаёт новый FlagSet перед каждым вызовом NewConfig,
// чтобы избежать повторной регистрации одних и тех же флагов между тестами.
func resetFlagSet(t *testing.T) {
	t.Helper()
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flag.CommandLine.SetOutput(os.Stderr)
}

func TestNewConfig_DefaultsWhenEnvEmpty(t *testing.T) {
	t.Setenv("DATABASE_URI", "")
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("BASE_URL", "")
	t.Setenv("ENABLE_HTTPS", "")
	t.Setenv("STATIC_DIR", "")
	t.Setenv("UPLOAD_MAX_MB", "")
	t.Setenv("BCRYPT_COST", "")

	resetFlagSet(t)
	cfg := NewConfig()

	if cfg.AuthSecret != "dev-secret-key" {
		t.Fatalf("AuthSecret default expected 'dev-secret-key', got %q", cfg.AuthSecret)
	}
	if cfg.DatabaseDSN != "news.db" {
		t.Fatalf("DatabaseDSN default expected 'news.db', got %q", cfg.DatabaseDSN)
	}
	if cfg.StaticDir != "static/img" {
		t.Fatalf("StaticDir default expected 'static/img', got %q", cfg.StaticDir)
	}
	if cfg.UploadMaxSizeMB != 10 {
		t.Fatalf("UploadMaxSizeMB default expected 10, got %d", cfg.UploadMaxSizeMB)
	}
	if cfg.BcryptCost != 0 {
		t.Fatalf("BcryptCost must stay 0 (bcrypt default), got %d", cfg.BcryptCost)
	}
	if cfg.BaseURL != "localhost:8081" {
		t.Fatalf("BaseURL default expected 'localhost:8081', got %q", cfg.BaseURL)
	}
	if cfg.ServerURL != "http://localhost:8081" {
		t.Fatalf("ServerURL default expected 'http://localhost:8081', got %q", cfg.ServerURL)
	}
}

func TestNewConfig_FromEnv(t *testing.T) {
	t.Setenv("BASE_URL", "example.com:443")
	t.Setenv("ENABLE_HTTPS", "true")
	t.Setenv("AUTH_SECRET", "top")
	t.Setenv("DATABASE_URI", "postgres://u:p@db:5432/news")
	t.Setenv("STATIC_DIR", "/srv/img")
	t.Setenv("UPLOAD_MAX_MB", "3")
	t.Setenv("BCRYPT_COST", "12")

	resetFlagSet(t)
	cfg := NewConfig()

	if cfg.BaseURL != "example.com:443" {
		t.Fatalf("BaseURL expected 'example.com:443', got %q", cfg.BaseURL)
	}
	if cfg.ServerURL != "https://example.com:443" {
		t.Fatalf("ServerURL expected 'https://example.com:443', got %q", cfg.ServerURL)
	}
	if cfg.AuthSecret != "top" {
		t.Fatalf("AuthSecret expected from env 'top', got %q", cfg.AuthSecret)
	}
	if cfg.DatabaseDSN != "postgres://u:p@db:5432/news" {
		t.Fatalf("DatabaseDSN expected from env, got %q", cfg.DatabaseDSN)
	}
	if cfg.StaticDir != "/srv/img" || cfg.UploadMaxSizeMB != 3 || cfg.BcryptCost != 12 {
		t.Fatalf("unexpected values: %+v", cfg)
	}
}

func TestNewConfig_InvalidBaseURLFallback(t *testing.T) {
	// Невалидный BASE_URL (со схемой) должен откатиться на localhost:8081
	t.Setenv("BASE_URL", "http://bad:8080")
	t.Setenv("ENABLE_HTTPS", "false")

	resetFlagSet(t)
	cfg := NewConfig()

	if cfg.BaseURL != "localhost:8081" {
		t.Fatalf("invalid BASE_URL must fallback to 'localhost:8081', got %q", cfg.BaseURL)
	}
	if !strings.HasPrefix(cfg.ServerURL, "http://localhost:8081") {
		t.Fatalf("ServerURL must reflect fallback base, got %q", cfg.ServerURL)
	}
}
