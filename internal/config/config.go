// Package config loads and validates tooldesk configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is the top-level tooldesk configuration.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Provider  ProviderConfig  `json:"provider"`
	Storage   StorageConfig   `json:"storage"`
	Sessions  SessionConfig   `json:"sessions"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Telegram  *TelegramConfig `json:"telegram,omitempty"`
	Slack     *SlackConfig    `json:"slack,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	AdminKey string `json:"admin_key,omitempty"` // Bearer key for admin endpoints
}

// ProviderConfig holds LLM provider settings.
type ProviderConfig struct {
	Type    string `json:"type,omitempty"` // "openai" (default) or "anthropic"
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url,omitempty"`
	Model   string `json:"model"`
}

// StorageConfig selects the ticket store driver.
type StorageConfig struct {
	Driver string `json:"driver"` // "sqlite" (default) or "log"
	Path   string `json:"path"`   // sqlite database path
}

// SessionConfig controls session lifetime.
type SessionConfig struct {
	IdleTTLMinutes int    `json:"idle_ttl_minutes,omitempty"` // default 30
	SweepSchedule  string `json:"sweep_schedule,omitempty"`   // cron spec, default "@every 5m"
}

// RateLimitConfig controls the admission gate. A zero DailyTicketLimit
// disables the gate entirely.
type RateLimitConfig struct {
	DailyTicketLimit int  `json:"daily_ticket_limit,omitempty"`
	FailClosed       bool `json:"fail_closed,omitempty"`
}

// TelegramConfig holds Telegram intake settings.
type TelegramConfig struct {
	Token     string  `json:"token"`
	AllowFrom []int64 `json:"allow_from,omitempty"`
}

// SlackConfig holds Slack intake settings.
type SlackConfig struct {
	BotToken string   `json:"bot_token"`
	AppToken string   `json:"app_token"`
	Channels []string `json:"channels,omitempty"`
}

// Load reads configuration from a JSON file. Values absent from the file
// fall back to the environment, so a file can hold the deployment shape
// while secrets stay in env vars.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv builds a config entirely from TOOLDESK_* environment variables.
func LoadFromEnv() (*Config, error) {
	var cfg Config
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if c.Provider.APIKey == "" {
		if k := os.Getenv("TOOLDESK_ANTHROPIC_API_KEY"); k != "" {
			c.Provider.Type = "anthropic"
			c.Provider.APIKey = k
		} else if k := os.Getenv("TOOLDESK_OPENAI_API_KEY"); k != "" {
			c.Provider.Type = "openai"
			c.Provider.APIKey = k
		}
	}
	if v := os.Getenv("TOOLDESK_MODEL"); v != "" && c.Provider.Model == "" {
		c.Provider.Model = v
	}
	if v := os.Getenv("TOOLDESK_HOST"); v != "" && c.Server.Host == "" {
		c.Server.Host = v
	}
	if v := os.Getenv("TOOLDESK_PORT"); v != "" && c.Server.Port == 0 {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.Port = n
		}
	}
	if v := os.Getenv("TOOLDESK_ADMIN_KEY"); v != "" && c.Server.AdminKey == "" {
		c.Server.AdminKey = v
	}
	if v := os.Getenv("TOOLDESK_DB_PATH"); v != "" && c.Storage.Path == "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("TOOLDESK_DAILY_TICKET_LIMIT"); v != "" && c.RateLimit.DailyTicketLimit == 0 {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimit.DailyTicketLimit = n
		}
	}
	if v := os.Getenv("TOOLDESK_TELEGRAM_TOKEN"); v != "" && c.Telegram == nil {
		c.Telegram = &TelegramConfig{Token: v}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.Driver == "sqlite" && c.Storage.Path == "" {
		c.Storage.Path = "./data/tooldesk.db"
	}
}

// Validate checks for required fields, collecting every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Provider.APIKey == "" {
		errs = append(errs, "provider.api_key is required (or set TOOLDESK_OPENAI_API_KEY / TOOLDESK_ANTHROPIC_API_KEY)")
	}
	switch c.Provider.Type {
	case "", "openai", "anthropic":
	default:
		errs = append(errs, fmt.Sprintf("provider.type %q is not supported", c.Provider.Type))
	}

	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.Path == "" {
			errs = append(errs, "storage.path is required for the sqlite driver")
		}
	case "log":
	default:
		errs = append(errs, fmt.Sprintf("storage.driver %q is not supported", c.Storage.Driver))
	}

	if c.RateLimit.DailyTicketLimit < 0 {
		errs = append(errs, "rate_limit.daily_ticket_limit must not be negative")
	}
	if c.Sessions.IdleTTLMinutes < 0 {
		errs = append(errs, "sessions.idle_ttl_minutes must not be negative")
	}

	if c.Telegram != nil && c.Telegram.Token == "" {
		errs = append(errs, "telegram.token is required")
	}
	if c.Slack != nil {
		if c.Slack.BotToken == "" {
			errs = append(errs, "slack.bot_token is required")
		}
		if c.Slack.AppToken == "" {
			errs = append(errs, "slack.app_token is required")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
