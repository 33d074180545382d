// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"

	StorageSQLite = "sqlite"
	StorageMinio  = "minio"
	StorageGCS    = "gcs"
)

type Config struct {
	Port         string
	DatabasePath string
	Backend      string
	DatabaseURL  string

	Storage            string
	StorageBucket      string
	PublicBaseURL      string
	MinioEndpoint      string
	MinioAccessKey     string
	MinioSecretKey     string
	MinioUseSSL        bool
	GCSCredentialsFile string
	// PublicStorageURL overrides the host used in public object URLs for
	// remote stores. Empty means the store's own endpoint.
	PublicStorageURL string

	JWTSecret    string
	CookieSecure bool

	ImageMaxWidth int
	ImageQuality  int

	LogLevel slog.Level
}

// Load reads an optional .env file from the working directory and then the
// environment. Variables already set in the environment win over the file.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	return FromEnv()
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// FromEnv builds and validates a Config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		DatabasePath:       getEnv("DATABASE_PATH", "field-review.db"),
		Backend:            strings.ToLower(getEnv("BACKEND", BackendSQLite)),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		Storage:            strings.ToLower(getEnv("STORAGE", StorageSQLite)),
		StorageBucket:      getEnv("STORAGE_BUCKET", "field-review-images"),
		MinioEndpoint:      os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:     os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:     os.Getenv("MINIO_SECRET_KEY"),
		GCSCredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),
		PublicStorageURL:   strings.TrimRight(os.Getenv("PUBLIC_STORAGE_URL"), "/"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		// Default to secure cookies; disable only for local development.
		CookieSecure: os.Getenv("COOKIE_SECURE") != "false",
	}
	cfg.PublicBaseURL = strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+cfg.Port), "/")

	var err error
	if cfg.MinioUseSSL, err = getEnvAsBool("MINIO_USE_SSL", true); err != nil {
		return nil, err
	}
	if cfg.ImageMaxWidth, err = getEnvAsInt("IMAGE_MAX_WIDTH", 1600); err != nil {
		return nil, err
	}
	if cfg.ImageQuality, err = getEnvAsInt("IMAGE_QUALITY", 85); err != nil {
		return nil, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "INFO"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters for HMAC-SHA256 security")
	}

	switch c.Backend {
	case BackendSQLite:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unknown BACKEND %q", c.Backend)
	}

	switch c.Storage {
	case StorageSQLite:
		if c.Backend != BackendSQLite {
			return errors.New("STORAGE=sqlite requires BACKEND=sqlite")
		}
	case StorageMinio:
		if c.MinioEndpoint == "" || c.MinioAccessKey == "" || c.MinioSecretKey == "" {
			return errors.New("MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when STORAGE=minio")
		}
	case StorageGCS:
	default:
		return fmt.Errorf("unknown STORAGE %q", c.Storage)
	}

	if c.StorageBucket == "" {
		return errors.New("STORAGE_BUCKET must not be empty")
	}
	if c.ImageMaxWidth < 50 {
		return fmt.Errorf("IMAGE_MAX_WIDTH must be at least 50, got %d", c.ImageMaxWidth)
	}
	if c.ImageQuality < 1 || c.ImageQuality > 100 {
		return fmt.Errorf("IMAGE_QUALITY must be between 1 and 100, got %d", c.ImageQuality)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
