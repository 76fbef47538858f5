package application

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines alerting behavior tunables. Env vars supply the base
// values; an optional ALERTING_CONFIG yaml file overrides them.
type Config struct {
	SuppressSeconds       int    `yaml:"suppress_seconds"`
	PingSeconds           int    `yaml:"ping_seconds"`
	WebhookURL            string `yaml:"webhook_url"`
	WebhookTimeoutSeconds int    `yaml:"webhook_timeout_seconds"`
}

// LoadConfig loads alerting config from env, then the optional yaml
// overlay named by ALERTING_CONFIG.
func LoadConfig() (Config, error) {
	cfg := Config{
		SuppressSeconds:       getenvIntDefault("SUPPRESS_SECONDS", 60),
		PingSeconds:           getenvIntDefault("STREAM_PING_SECONDS", 25),
		WebhookURL:            os.Getenv("ALERT_WEBHOOK_URL"),
		WebhookTimeoutSeconds: getenvIntDefault("ALERT_WEBHOOK_TIMEOUT_SECONDS", 5),
	}

	if path := os.Getenv("ALERTING_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.SuppressSeconds <= 0 {
		cfg.SuppressSeconds = 60
	}
	if cfg.PingSeconds <= 0 {
		cfg.PingSeconds = 25
	}
	if cfg.WebhookTimeoutSeconds <= 0 {
		cfg.WebhookTimeoutSeconds = 5
	}
	return cfg, nil
}

// SuppressWindow is the mark-safe suppression duration.
func (c Config) SuppressWindow() time.Duration {
	return time.Duration(c.SuppressSeconds) * time.Second
}

// PingInterval is the SSE keepalive period.
func (c Config) PingInterval() time.Duration {
	return time.Duration(c.PingSeconds) * time.Second
}

// WebhookTimeout bounds one webhook delivery.
func (c Config) WebhookTimeout() time.Duration {
	return time.Duration(c.WebhookTimeoutSeconds) * time.Second
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
