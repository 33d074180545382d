package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "DATABASE_PATH", "BACKEND", "DATABASE_URL", "STORAGE", "STORAGE_BUCKET",
		"PUBLIC_BASE_URL", "MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY",
		"MINIO_USE_SSL", "GCS_CREDENTIALS_FILE", "JWT_SECRET", "COOKIE_SECURE",
		"IMAGE_MAX_WIDTH", "IMAGE_QUALITY", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Port != "8080" || cfg.Backend != BackendSQLite || cfg.Storage != StorageSQLite {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ImageMaxWidth != 1600 || cfg.ImageQuality != 85 {
		t.Fatalf("unexpected image defaults: %d/%d", cfg.ImageMaxWidth, cfg.ImageQuality)
	}
	if cfg.PublicBaseURL != "http://localhost:8080" {
		t.Fatalf("PublicBaseURL = %q", cfg.PublicBaseURL)
	}
	if !cfg.CookieSecure {
		t.Fatal("cookies should default to secure")
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.LogLevel)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("STORAGE", "MINIO")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_ACCESS_KEY", "ak")
	t.Setenv("MINIO_SECRET_KEY", "sk")
	t.Setenv("MINIO_USE_SSL", "false")
	t.Setenv("IMAGE_MAX_WIDTH", "1024")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("COOKIE_SECURE", "false")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Storage != StorageMinio || cfg.MinioUseSSL {
		t.Fatalf("unexpected minio settings: %+v", cfg)
	}
	if cfg.ImageMaxWidth != 1024 {
		t.Fatalf("ImageMaxWidth = %d", cfg.ImageMaxWidth)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.CookieSecure {
		t.Fatal("expected insecure cookies")
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{}, "JWT_SECRET"},
		{"short secret", map[string]string{"JWT_SECRET": "short"}, "32 characters"},
		{"postgres without url", map[string]string{"BACKEND": "postgres", "STORAGE": "gcs"}, "DATABASE_URL"},
		{"blob store needs sqlite", map[string]string{"BACKEND": "postgres", "DATABASE_URL": "postgres://x"}, "STORAGE=sqlite"},
		{"minio without creds", map[string]string{"STORAGE": "minio"}, "MINIO_ENDPOINT"},
		{"unknown backend", map[string]string{"BACKEND": "mysql"}, "BACKEND"},
		{"bad width", map[string]string{"IMAGE_MAX_WIDTH": "wide"}, "IMAGE_MAX_WIDTH"},
		{"tiny width", map[string]string{"IMAGE_MAX_WIDTH": "10"}, "at least 50"},
		{"bad quality", map[string]string{"IMAGE_QUALITY": "0"}, "IMAGE_QUALITY"},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}, "LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if _, ok := tt.env["JWT_SECRET"]; !ok && tt.name != "missing secret" {
				t.Setenv("JWT_SECRET", testSecret)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	const key = "FIELD_REVIEW_DOTENV_PROBE"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(key+"=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
	if got := os.Getenv(key); got != "from-file" {
		t.Fatalf("%s = %q", key, got)
	}
}

func TestLoadDotEnv_Missing(t *testing.T) {
	if err := loadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("missing file should be ignored, got %v", err)
	}
}
