package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "PG_DSN", "HTTP_ADDR",
		"AUTH_JWT_SECRET", "JWT_CRYPT_KEY",
		"JWT_TOKEN_TIMEOUT_MINS", "UPLOAD_MAX_BYTES", "CONFIG_FILE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/equipment")
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("JWT_TOKEN_TIMEOUT_MINS", "15")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://localhost/equipment" {
		t.Fatalf("unexpected database url: %q", cfg.DatabaseURL)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected default addr, got %q", cfg.HTTPAddr)
	}
	if cfg.TokenTimeoutMins != 15 {
		t.Fatalf("expected timeout 15, got %d", cfg.TokenTimeoutMins)
	}
	if cfg.UploadMaxBytes != 32<<20 {
		t.Fatalf("expected default upload limit, got %d", cfg.UploadMaxBytes)
	}
}

func TestLoadLegacyEnvAliases(t *testing.T) {
	clearEnv(t)
	t.Setenv("PG_DSN", "postgres://legacy/equipment")
	t.Setenv("JWT_CRYPT_KEY", "legacy-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://legacy/equipment" {
		t.Fatalf("unexpected database url: %q", cfg.DatabaseURL)
	}
	if cfg.JWTSecret != "legacy-secret" {
		t.Fatalf("unexpected secret: %q", cfg.JWTSecret)
	}
}

func TestLoadYAMLOverridesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://env/equipment")
	t.Setenv("AUTH_JWT_SECRET", "env-secret")

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "http_addr: \":9090\"\njwt_secret: file-secret\ntoken_timeout_mins: 5\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("expected file addr, got %q", cfg.HTTPAddr)
	}
	if cfg.JWTSecret != "file-secret" {
		t.Fatalf("expected file secret, got %q", cfg.JWTSecret)
	}
	if cfg.TokenTimeoutMins != 5 {
		t.Fatalf("expected timeout 5, got %d", cfg.TokenTimeoutMins)
	}
	if cfg.DatabaseURL != "postgres://env/equipment" {
		t.Fatalf("env value should survive when file omits it, got %q", cfg.DatabaseURL)
	}
}

func TestLoadMissingDatabaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_JWT_SECRET", "secret")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing database url")
	}
}

func TestLoadMissingSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/equipment")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing jwt secret")
	}
}

func TestLoadRejectsNonPositiveTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/equipment")
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("JWT_TOKEN_TIMEOUT_MINS", "-1")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-positive timeout")
	}
}
