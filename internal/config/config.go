// Package config provides YAML-based configuration loading for the town hall server.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level server configuration, loaded from config.yaml.
type Config struct {
	ListenAddr string          `yaml:"listen_addr"`
	AdminToken string          `yaml:"admin_token"`
	Database   DatabaseConfig  `yaml:"database"`
	Anthropic  AnthropicConfig `yaml:"anthropic"`
	Sessions   SessionConfig   `yaml:"sessions"`
	Turnstile  TurnstileConfig `yaml:"turnstile"`
	SMTP       SMTPConfig      `yaml:"smtp"`
	Notify     NotifyConfig    `yaml:"notify"`
}

// DatabaseConfig selects and configures the relational store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "mysql"
	Path   string `yaml:"path"`   // sqlite file path
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Name   string `yaml:"name"`
	User   string `yaml:"user"`
	Pass   string `yaml:"pass"`
}

// AnthropicConfig holds credentials and tuning for the extraction model.
type AnthropicConfig struct {
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	MaxTokens      int    `yaml:"max_tokens"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// SessionConfig controls in-flight interview session lifecycle.
type SessionConfig struct {
	TTLMinutes   int    `yaml:"ttl_minutes"`
	SweepMinutes int    `yaml:"sweep_minutes"`
	RedisAddr    string `yaml:"redis_addr"` // empty: in-memory store
	RedisDB      int    `yaml:"redis_db"`
}

// TurnstileConfig holds the Cloudflare Turnstile secret. Verification is
// skipped entirely when the secret is empty.
type TurnstileConfig struct {
	SecretKey string `yaml:"secret_key"`
}

// SMTPConfig configures the outbound thank-you email sender. Sending is
// disabled when Host is empty.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	SiteURL  string `yaml:"site_url"`
}

// NotifyConfig configures best-effort admin notification channels.
type NotifyConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack bot credentials for admin notifications.
type SlackConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DiscordConfig holds Discord bot credentials for admin notifications.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overlays secrets from the environment so they can stay out of the
// config file.
func (c *Config) applyEnv() {
	overlay := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	overlay(&c.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	overlay(&c.Turnstile.SecretKey, "TURNSTILE_SECRET_KEY")
	overlay(&c.AdminToken, "ADMIN_TOKEN")
	overlay(&c.SMTP.Password, "SMTP_PASSWORD")
	overlay(&c.Notify.Slack.BotToken, "SLACK_BOT_TOKEN")
	overlay(&c.Notify.Discord.BotToken, "DISCORD_BOT_TOKEN")
	overlay(&c.Database.Pass, "DATABASE_PASSWORD")
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "townhall.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Name == "" {
		c.Database.Name = "townhall"
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Anthropic.Model == "" {
		c.Anthropic.Model = "claude-sonnet-4-5-20250929"
	}
	if c.Anthropic.MaxTokens == 0 {
		c.Anthropic.MaxTokens = 1024
	}
	if c.Anthropic.TimeoutSeconds == 0 {
		c.Anthropic.TimeoutSeconds = 60
	}
	if c.Sessions.TTLMinutes == 0 {
		c.Sessions.TTLMinutes = 60
	}
	if c.Sessions.SweepMinutes == 0 {
		c.Sessions.SweepMinutes = 5
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.From == "" {
		c.SMTP.From = "Bahamas Technology Town Hall <noreply@bahamastech.ai>"
	}
	if c.SMTP.SiteURL == "" {
		c.SMTP.SiteURL = "https://bahamastech.ai"
	}
}

// SessionTTL returns the session expiry as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Sessions.TTLMinutes) * time.Minute
}

// SweepInterval returns the eviction sweep cadence as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Sessions.SweepMinutes) * time.Minute
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be sqlite or mysql", c.Database.Driver))
	}
	if c.Sessions.TTLMinutes < 0 {
		errs = append(errs, "sessions.ttl_minutes must not be negative")
	}
	if c.Sessions.SweepMinutes < 0 {
		errs = append(errs, "sessions.sweep_minutes must not be negative")
	}
	if c.Notify.Slack.BotToken != "" && c.Notify.Slack.ChannelID == "" {
		errs = append(errs, "notify.slack.channel_id is required when a bot token is set")
	}
	if c.Notify.Discord.BotToken != "" && c.Notify.Discord.ChannelID == "" {
		errs = append(errs, "notify.discord.channel_id is required when a bot token is set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
