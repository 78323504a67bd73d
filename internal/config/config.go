// Package config provides YAML-based configuration loading for the
// Madrasati client.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level client configuration, loaded from madrasati.yaml.
type Config struct {
	ServerURL string      `yaml:"server_url"`
	StatePath string      `yaml:"state_path"`
	Log       LogConfig   `yaml:"log"`
	Watch     WatchConfig `yaml:"watch"`
	WebUI     WebUIConfig `yaml:"webui"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "pretty" or "json"
}

// WatchConfig controls the unread-message watcher.
type WatchConfig struct {
	// Schedule is a 5-field cron expression (minute, hour, dom, month, dow).
	Schedule string `yaml:"schedule"`
}

// WebUIConfig controls the local web view server.
type WebUIConfig struct {
	Port int `yaml:"port"`
}

// Load reads a YAML config file from path and returns a validated Config.
// A .env file next to the working directory and MADRASATI_* environment
// variables override file values.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // .env is optional

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

// applyEnv overlays MADRASATI_* environment variables on file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("MADRASATI_SERVER_URL"); v != "" {
		c.ServerURL = v
	}
	if v := os.Getenv("MADRASATI_STATE_PATH"); v != "" {
		c.StatePath = v
	}
	if v := os.Getenv("MADRASATI_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	c.ServerURL = strings.TrimRight(c.ServerURL, "/")
	if c.StatePath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			c.StatePath = filepath.Join(home, ".madrasati", "state.db")
		}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "pretty"
	}
	if c.Watch.Schedule == "" {
		c.Watch.Schedule = "* * * * *"
	}
	if c.WebUI.Port == 0 {
		c.WebUI.Port = 8787
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.ServerURL == "" {
		errs = append(errs, "server_url is required")
	} else if !strings.HasPrefix(c.ServerURL, "http://") && !strings.HasPrefix(c.ServerURL, "https://") {
		errs = append(errs, "server_url must start with http:// or https://")
	}
	if c.WebUI.Port < 0 || c.WebUI.Port > 65535 {
		errs = append(errs, "webui.port must be between 0 and 65535")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
