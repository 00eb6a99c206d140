// Package config loads and validates the octonotify configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tnagatomi/octonotify/internal/duration"
	"github.com/tnagatomi/octonotify/internal/model"
)

// repoNameRe matches the required owner/name repository shape.
var repoNameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// WatchedRepo maps one repository to the event kinds to watch.
type WatchedRepo struct {
	Name   string   `yaml:"name"`
	Events []string `yaml:"events"`
}

// TelegramOverrides configures digest delivery. The bot token is read from
// the environment, never from the file.
type TelegramOverrides struct {
	ChatIDs    []int64 `yaml:"chat_ids,omitempty"`
	RatePerSec int     `yaml:"rate_per_sec,omitempty"`
}

// Config represents the application configuration
type Config struct {
	Repos    []WatchedRepo     `yaml:"repos"`
	Telegram TelegramOverrides `yaml:"telegram,omitempty"`

	// Lookback overrides the scan lookback window (e.g. "30m").
	Lookback string `yaml:"lookback,omitempty"`

	// StatePath overrides the default state file location.
	StatePath string `yaml:"state_path,omitempty"`
}

// DefaultConfigDir returns the default config directory
func DefaultConfigDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ".octonotify"
	}
	return filepath.Join(configDir, "octonotify")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// LocalConfigPath returns the path to the local config file in the current directory
func LocalConfigPath() string {
	return ".octonotify.yaml"
}

// Load loads the configuration from disk.
// It first loads the global config from the XDG config directory, then
// merges any local .octonotify.yaml on top (local values take precedence),
// then validates the result.
func Load() (*Config, error) {
	cfg := &Config{}
	found := false

	globalPath := ConfigPath()
	if _, err := os.Stat(globalPath); err == nil {
		data, err := os.ReadFile(globalPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read global config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse global config file: %w", err)
		}
		found = true
	}

	localPath := LocalConfigPath()
	if _, err := os.Stat(localPath); err == nil {
		data, err := os.ReadFile(localPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read local config file: %w", err)
		}
		var localCfg Config
		if err := yaml.Unmarshal(data, &localCfg); err != nil {
			return nil, fmt.Errorf("failed to parse local config file: %w", err)
		}
		cfg = mergeConfig(cfg, &localCfg)
		found = true
	}

	if !found {
		return nil, fmt.Errorf("no config file found (looked for %s and %s); run 'octonotify config init'", globalPath, localPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads and validates a single config file at the given path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeConfig merges local config on top of global config.
// Local values take precedence; unset local values preserve global values.
func mergeConfig(global, local *Config) *Config {
	result := &Config{}

	if len(local.Repos) > 0 {
		result.Repos = local.Repos
	} else {
		result.Repos = global.Repos
	}

	if len(local.Telegram.ChatIDs) > 0 {
		result.Telegram.ChatIDs = local.Telegram.ChatIDs
	} else {
		result.Telegram.ChatIDs = global.Telegram.ChatIDs
	}
	if local.Telegram.RatePerSec != 0 {
		result.Telegram.RatePerSec = local.Telegram.RatePerSec
	} else {
		result.Telegram.RatePerSec = global.Telegram.RatePerSec
	}

	if local.Lookback != "" {
		result.Lookback = local.Lookback
	} else {
		result.Lookback = global.Lookback
	}

	if local.StatePath != "" {
		result.StatePath = local.StatePath
	} else {
		result.StatePath = global.StatePath
	}

	return result
}

// Validate checks the watch list and option values. A malformed config is
// fatal before any scanning starts.
func (c *Config) Validate() error {
	if len(c.Repos) == 0 {
		return fmt.Errorf("no repositories configured")
	}

	seen := make(map[model.WatchedItem]struct{})
	for _, repo := range c.Repos {
		if !repoNameRe.MatchString(repo.Name) {
			return fmt.Errorf("invalid repository name %q (must be owner/name)", repo.Name)
		}
		if len(repo.Events) == 0 {
			return fmt.Errorf("repository %s has no event kinds configured", repo.Name)
		}
		for _, e := range repo.Events {
			kind, err := model.ParseKind(e)
			if err != nil {
				return fmt.Errorf("repository %s: %w", repo.Name, err)
			}
			item := model.WatchedItem{Repo: repo.Name, Kind: kind}
			if _, dup := seen[item]; dup {
				return fmt.Errorf("duplicate watched item: %s", item)
			}
			seen[item] = struct{}{}
		}
	}

	if c.Lookback != "" {
		if _, err := duration.Parse(c.Lookback); err != nil {
			return fmt.Errorf("invalid lookback: %w", err)
		}
	}

	return nil
}

// WatchList flattens the configured repos into an ordered list of watched
// items. Order is preserved into scan results and the delivered digest.
func (c *Config) WatchList() []model.WatchedItem {
	var items []model.WatchedItem
	for _, repo := range c.Repos {
		for _, e := range repo.Events {
			kind, err := model.ParseKind(e)
			if err != nil {
				continue // Validate rejects these before use
			}
			items = append(items, model.WatchedItem{Repo: repo.Name, Kind: kind})
		}
	}
	return items
}

// LookbackWindow returns the configured lookback, or zero for the default.
func (c *Config) LookbackWindow() time.Duration {
	if c.Lookback == "" {
		return 0
	}
	d, err := duration.Parse(c.Lookback)
	if err != nil {
		return 0
	}
	return d
}

// GetGitHubToken returns the GitHub token from the GITHUB_TOKEN environment
// variable. Following 12-factor practice, tokens are only read from the
// environment.
func (c *Config) GetGitHubToken() string {
	return os.Getenv("GITHUB_TOKEN")
}

// GetTelegramToken returns the Telegram bot token from the environment.
func (c *Config) GetTelegramToken() string {
	return os.Getenv("OCTONOTIFY_TELEGRAM_TOKEN")
}

// ToYAML returns the config as a YAML string
func (c *Config) ToYAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(data), nil
}

// ConfigPathInfo contains information about config file paths
type ConfigPathInfo struct {
	GlobalPath   string
	GlobalExists bool
	LocalPath    string
	LocalExists  bool
}

// GetConfigPaths returns path info for both global and local configs
func GetConfigPaths() ConfigPathInfo {
	globalPath := ConfigPath()
	localPath := LocalConfigPath()

	absLocalPath, err := filepath.Abs(localPath)
	if err != nil {
		absLocalPath = localPath
	}

	_, globalErr := os.Stat(globalPath)
	_, localErr := os.Stat(localPath)

	return ConfigPathInfo{
		GlobalPath:   globalPath,
		GlobalExists: globalErr == nil,
		LocalPath:    absLocalPath,
		LocalExists:  localErr == nil,
	}
}

// MinimalConfig returns a minimal config template with comments
func MinimalConfig() string {
	return `# octonotify configuration file

# Repositories to watch and which activity to report.
# Event kinds: release, pull_request (merged), issue (opened)
repos:
  - name: cli/cli
    events: [release]
#  - name: golang/go
#    events: [release, issue]

# Telegram chats receiving the digest. The bot token comes from the
# OCTONOTIFY_TELEGRAM_TOKEN environment variable.
telegram:
  chat_ids: []
#  rate_per_sec: 1

# Optional overrides
# lookback: 30m
# state_path: /var/lib/octonotify/state.json
`
}

// SaveTo writes content to a specific path, creating directories as needed
func SaveTo(path string, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}

	return nil
}
