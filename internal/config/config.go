// Package config loads the YAML configuration file for the service.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/licensegate/licensegate/internal/mail"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when no path is supplied on the command line.
const DefaultConfigPath = "config.yaml"

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr"` // Listen address, e.g. ":8318".
}

// DatabaseConfig holds the persistent store settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"` // Postgres URL or SQLite file path.
}

// JWTConfig holds session token settings.
type JWTConfig struct {
	Secret      string `yaml:"secret"`       // HMAC signing secret.
	ExpiryHours int    `yaml:"expiry-hours"` // Absolute session lifetime in hours.
}

// Expiry returns the configured session lifetime, defaulting to 24h.
func (c JWTConfig) Expiry() time.Duration {
	if c.ExpiryHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.ExpiryHours) * time.Hour
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`        // logrus level name; empty means info.
	File       string `yaml:"file"`         // Rotating log file path; empty logs to stderr only.
	MaxSizeMB  int    `yaml:"max-size-mb"`  // Rotation size threshold.
	MaxBackups int    `yaml:"max-backups"`  // Rotated files to retain.
	MaxAgeDays int    `yaml:"max-age-days"` // Retention in days.
}

// Config is the root configuration document.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	SMTP     mail.Config    `yaml:"smtp"`
	Log      LogConfig      `yaml:"log"`
}

// ResolveConfigPath returns path, or DefaultConfigPath when path is empty.
func ResolveConfigPath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return DefaultConfigPath
	}
	return trimmed
}

// Load reads and parses the configuration file, then applies environment
// overrides for secrets so they can stay out of the file.
func Load(path string) (*Config, error) {
	data, errRead := os.ReadFile(path)
	if errRead != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, errRead)
	}

	var cfg Config
	if errDecode := yaml.Unmarshal(data, &cfg); errDecode != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, errDecode)
	}

	applyEnvOverrides(&cfg)

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, fmt.Errorf("config: database.dsn is required")
	}
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return nil, fmt.Errorf("config: jwt.secret is required")
	}
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = ":8318"
	}
	return &cfg, nil
}

// applyEnvOverrides replaces secret-bearing fields from the environment.
func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("LICENSEGATE_DATABASE_DSN")); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("LICENSEGATE_JWT_SECRET")); v != "" {
		cfg.JWT.Secret = v
	}
	if v := strings.TrimSpace(os.Getenv("LICENSEGATE_SMTP_PASSWORD")); v != "" {
		cfg.SMTP.Password = v
	}
}
