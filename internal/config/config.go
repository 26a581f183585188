// Package config provides YAML-based configuration loading for the Sathi
// client.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Languages the backend accepts for advisory text.
var validLanguages = []string{"English", "Hindi", "Telugu"}

// Config is the top-level client configuration, loaded from sathi.yaml.
type Config struct {
	// BaseURL is the Crop Sathi backend, e.g. https://api.cropsathi.in.
	BaseURL string `yaml:"base_url"`
	// Language for advisory text. English, Hindi, or Telugu.
	Language string `yaml:"language"`
	// StateDir holds the persisted token and the local cache database.
	StateDir string       `yaml:"state_dir"`
	Cache    CacheConfig  `yaml:"cache"`
	Notify   NotifyConfig `yaml:"notify"`
	Watch    WatchConfig  `yaml:"watch"`
}

// CacheConfig holds connection settings for the local advisory cache.
type CacheConfig struct {
	Driver   string `yaml:"driver"` // sqlite (default) or mysql
	Path     string `yaml:"path"`   // sqlite file
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Database string `yaml:"database"`
}

// NotifyConfig selects and configures the digest delivery platform.
type NotifyConfig struct {
	Platform string        `yaml:"platform"` // "", "slack", or "discord"
	Slack    SlackConfig   `yaml:"slack"`
	Discord  DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack bot credentials.
type SlackConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DiscordConfig holds Discord bot credentials.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// WatchConfig drives watch mode: a saved form re-submitted on a cron
// schedule, with digests delivered through the notify adapter.
type WatchConfig struct {
	// Schedule is a 5-field cron expression for advisory refresh.
	Schedule string `yaml:"schedule"`
	// Digest is a 5-field cron expression for digest delivery.
	Digest string    `yaml:"digest"`
	Form   WatchForm `yaml:"form"`
}

// WatchForm is the saved advisory form used by watch mode.
type WatchForm struct {
	Crop           string   `yaml:"crop"`
	StageIndex     int      `yaml:"stage_index"`
	SoilType       string   `yaml:"soil_type"`
	Latitude       *float64 `yaml:"latitude"`
	Longitude      *float64 `yaml:"longitude"`
	EnableSMS      *bool    `yaml:"enable_sms"`
	EnableWhatsApp bool     `yaml:"enable_whatsapp"`
	EnableVoice    bool     `yaml:"enable_voice"`
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
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "sathi.yaml"
	}
	return filepath.Join(home, ".sathi", "sathi.yaml")
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Language == "" {
		c.Language = "English"
	}
	if c.StateDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.StateDir = filepath.Join(home, ".sathi")
		} else {
			c.StateDir = ".sathi"
		}
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "sqlite"
	}
	if c.Cache.Driver == "sqlite" && c.Cache.Path == "" {
		c.Cache.Path = filepath.Join(c.StateDir, "cache.db")
	}
	if c.Cache.Driver == "mysql" {
		if c.Cache.Host == "" {
			c.Cache.Host = "127.0.0.1"
		}
		if c.Cache.Port == 0 {
			c.Cache.Port = 3306
		}
	}
	if c.Watch.Schedule == "" {
		c.Watch.Schedule = "0 6 * * *"
	}
	if c.Watch.Digest == "" {
		c.Watch.Digest = "0 18 * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.BaseURL == "" {
		errs = append(errs, "base_url is required")
	}
	if !validLanguage(c.Language) {
		errs = append(errs, fmt.Sprintf("language %q is not supported (one of %s)",
			c.Language, strings.Join(validLanguages, ", ")))
	}
	switch c.Cache.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("cache.driver %q is not supported (sqlite or mysql)", c.Cache.Driver))
	}
	if c.Cache.Driver == "mysql" && c.Cache.Database == "" {
		errs = append(errs, "cache.database is required for the mysql driver")
	}
	switch c.Notify.Platform {
	case "":
	case "slack":
		if c.Notify.Slack.BotToken == "" {
			errs = append(errs, "notify.slack.bot_token is required")
		}
		if c.Notify.Slack.ChannelID == "" {
			errs = append(errs, "notify.slack.channel_id is required")
		}
	case "discord":
		if c.Notify.Discord.BotToken == "" {
			errs = append(errs, "notify.discord.bot_token is required")
		}
		if c.Notify.Discord.ChannelID == "" {
			errs = append(errs, "notify.discord.channel_id is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("notify.platform %q is not supported (slack or discord)", c.Notify.Platform))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validLanguage(lang string) bool {
	for _, l := range validLanguages {
		if l == lang {
			return true
		}
	}
	return false
}
