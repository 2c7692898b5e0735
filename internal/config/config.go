package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the global configuration (matches config/config.yaml).
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port    int    `mapstructure:"port"`
	Mode    string `mapstructure:"mode"` // gin mode: debug/release/test
	BaseURL string `mapstructure:"base_url"`
}

// DatabaseConfig holds the Postgres DSN and pool settings.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// WebhookConfig holds webhook ingestion settings.
type WebhookConfig struct {
	// Secret is the shared secret expected in the X-Webhook-Secret header.
	// Empty means the endpoint is not configured and refuses deliveries.
	Secret string `mapstructure:"secret"`
	// Category assigned to topics created from events. Empty falls back to
	// DefaultCategory.
	Category string `mapstructure:"category"`
	// DefaultCategory is used when Category is unset.
	DefaultCategory string `mapstructure:"default_category"`
	// TagRules is a pipe-separated list of "tag_name,jmespath_expression"
	// pairs evaluated against each event payload.
	TagRules string `mapstructure:"tag_rules"`
	// CreateRetries bounds the create-or-get retry loop on mapping rows.
	CreateRetries int `mapstructure:"create_retries"`
}

// LoadConfig reads config/config.yaml, with sensitive values overridable
// from .env / the process environment (env wins over yaml).
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // .env is optional

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	viper.SetTypeByDefaultValue(true)
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	overrideFromEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		cfg.Webhook.Secret = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Webhook.DefaultCategory == "" {
		cfg.Webhook.DefaultCategory = "uncategorized"
	}
	if cfg.Webhook.CreateRetries <= 0 {
		cfg.Webhook.CreateRetries = 3
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
}
