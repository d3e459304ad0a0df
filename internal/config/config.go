package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the whosaid configuration
type Config struct {
	Me                 MeConfig      `yaml:"me"`
	Sources            SourcesConfig `yaml:"sources"`
	DefaultCountryCode string        `yaml:"default_country_code"`
	Limits             LimitsConfig  `yaml:"limits"`
}

// MeConfig represents the local user's identity
type MeConfig struct {
	Name   string   `yaml:"name"`
	Phones []string `yaml:"phones,omitempty"`
	Emails []string `yaml:"emails,omitempty"`
}

// SourcesConfig points at the two external data sources
type SourcesConfig struct {
	ContactsFile string `yaml:"contacts_file"`
	ChatDB       string `yaml:"chat_db"`
}

// LimitsConfig overrides the default assembly bounds
type LimitsConfig struct {
	Conversations int `yaml:"conversations,omitempty"`
	Messages      int `yaml:"messages,omitempty"`
}

// GetConfigDir returns the XDG-compliant config directory
func GetConfigDir() (string, error) {
	// Explicit override (useful for tests and portable installs)
	if override := os.Getenv("WHOSAID_CONFIG_DIR"); override != "" {
		return override, nil
	}

	var base string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		base = xdg
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "whosaid"), nil
}

// GetDataDir returns the platform-specific data directory
func GetDataDir() (string, error) {
	if override := os.Getenv("WHOSAID_DATA_DIR"); override != "" {
		return override, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "Whosaid"), nil
	}

	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "whosaid"), nil
	}

	return filepath.Join(home, ".local", "share", "whosaid"), nil
}

// DefaultChatDBPath returns the standard location of the messaging
// database on macOS.
func DefaultChatDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Library", "Messages", "chat.db")
}

// Load loads config from the config file
func Load() (*Config, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(configDir, "config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// Default returns a config with standard paths and limits filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.DefaultCountryCode == "" {
		c.DefaultCountryCode = "1"
	}
	if c.Sources.ChatDB == "" {
		c.Sources.ChatDB = DefaultChatDBPath()
	}
	if override := os.Getenv("WHOSAID_CHAT_DB"); override != "" {
		c.Sources.ChatDB = os.ExpandEnv(override)
	}
}

// Save saves the config to the config file
func (c *Config) Save() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
