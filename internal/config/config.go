package config

import (
	"errors"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds service configuration. Values come from environment
// variables, optionally overridden by a YAML file pointed at by
// CONFIG_FILE.
type Config struct {
	DatabaseURL      string `yaml:"database_url"`
	HTTPAddr         string `yaml:"http_addr"`
	JWTSecret        string `yaml:"jwt_secret"`
	TokenTimeoutMins int    `yaml:"token_timeout_mins"`
	UploadMaxBytes   int64  `yaml:"upload_max_bytes"`
}

// Load resolves configuration from env and the optional YAML file.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:      getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:         getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:        getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_CRYPT_KEY", "")),
		TokenTimeoutMins: getenvIntDefault("JWT_TOKEN_TIMEOUT_MINS", 60),
		UploadMaxBytes:   getenvInt64Default("UPLOAD_MAX_BYTES", 32<<20),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.DatabaseURL == "" {
		return cfg, errors.New("config: DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		return cfg, errors.New("config: AUTH_JWT_SECRET is required")
	}
	if cfg.TokenTimeoutMins <= 0 {
		return cfg, errors.New("config: token timeout must be positive")
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvInt64Default(key string, fallback int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
