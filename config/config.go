// Package config provides configuration management for the VPN provider CLI.
// It handles loading, saving, and validating application settings, including
// the static provider catalog and the location of the provider override document.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yllada/vpn-provider-cli/common"
)

// Environment variables that override file settings.
const (
	EnvProvidersFile = "VPNCLI_PROVIDERS_FILE"
	EnvElevation     = "VPNCLI_ELEVATION"
	EnvPublicIPURL   = "VPNCLI_PUBLIC_IP_URL"
	EnvLogLevel      = "VPNCLI_LOG_LEVEL"
)

// Config represents the application configuration.
// All settings are persisted to a YAML file in the user's config directory.
type Config struct {
	// ProvidersFile is the path of the JSON provider override document.
	ProvidersFile string `yaml:"providers_file"`
	// Elevation is the privilege prefix for provider binaries ("sudo", "pkexec" or "" for none).
	Elevation string `yaml:"elevation"`
	// ActiveProvider is the provider id used when none is given on the command line.
	ActiveProvider int `yaml:"active_provider"`
	// PublicIPURL answers with the caller's public address as plain text.
	PublicIPURL string `yaml:"public_ip_url"`
	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level"`
	// LogToFile enables the rotated log file.
	LogToFile bool `yaml:"log_to_file"`
	// ShowNotifications enables desktop notifications for control actions.
	ShowNotifications bool `yaml:"show_notifications"`
	// RecordHistory journals control actions to HistoryFile.
	RecordHistory bool `yaml:"record_history"`
	// HistoryFile is the SQLite database of the action journal.
	HistoryFile string `yaml:"history_file"`
	// Timeouts bound provider invocations and connect readiness polling.
	Timeouts Timeouts `yaml:"timeouts"`
	// Monitor configures --watch status polling and auto-reconnect.
	Monitor Monitor `yaml:"monitor"`
	// Providers is the static provider catalog. Ids are 1-based.
	Providers []Provider `yaml:"providers"`
}

// Timeouts groups the per-call process limits.
type Timeouts struct {
	Command        time.Duration `yaml:"command"`
	Connect        time.Duration `yaml:"connect"`
	Settle         time.Duration `yaml:"settle"`
	SettleInterval time.Duration `yaml:"settle_interval"`
}

// Monitor holds the status monitor settings.
type Monitor struct {
	CheckInterval    time.Duration `yaml:"check_interval"`
	FailureThreshold int           `yaml:"failure_threshold"`
	// AutoReconnect connects again after FailureThreshold consecutive
	// "down" checks of a provider that was up.
	AutoReconnect        bool          `yaml:"auto_reconnect"`
	ReconnectDelay       time.Duration `yaml:"reconnect_delay"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
}

// Provider is one entry of the static provider catalog.
type Provider struct {
	ID          int    `yaml:"id"`
	Name        string `yaml:"name"`
	BinPath     string `yaml:"bin_path"`
	InstallPage string `yaml:"install_page"`
	// Parser names the country parser kind ("csv", "tokens" or empty).
	Parser string `yaml:"parser,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	dir := filepath.Join(homeDir(), ".config", common.ConfigDirName)
	return &Config{
		ProvidersFile:     filepath.Join(dir, common.ProvidersFileName),
		Elevation:         common.DefaultElevation,
		ActiveProvider:    1,
		PublicIPURL:       common.DefaultPublicIPURL,
		LogLevel:          "info",
		LogToFile:         true,
		ShowNotifications: true,
		RecordHistory:     true,
		HistoryFile:       filepath.Join(dir, common.HistoryFileName),
		Timeouts:          DefaultTimeouts(),
		Monitor:           DefaultMonitor(),
		Providers:         DefaultProviders(),
	}
}

// DefaultTimeouts returns the default process limits.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Command:        common.CommandTimeout,
		Connect:        common.ConnectTimeout,
		Settle:         common.SettleTimeout,
		SettleInterval: common.SettleInterval,
	}
}

// DefaultMonitor returns the default status monitor settings.
func DefaultMonitor() Monitor {
	return Monitor{
		CheckInterval:        30 * time.Second,
		FailureThreshold:     3,
		ReconnectDelay:       5 * time.Second,
		MaxReconnectAttempts: 3,
	}
}

// DefaultProviders returns the built-in provider catalog.
func DefaultProviders() []Provider {
	return []Provider{
		{
			ID:          1,
			Name:        "ExpressVPN",
			BinPath:     "/usr/bin/expressvpn",
			InstallPage: "https://www.expressvpn.com/support/vpn-setup/app-for-linux/",
			Parser:      common.ParserCSV,
		},
		{
			ID:          2,
			Name:        "Mullvad VPN",
			BinPath:     "/usr/bin/mullvad",
			InstallPage: "https://mullvad.net/en/download/vpn/linux",
		},
		{
			ID:          3,
			Name:        "NordVPN",
			BinPath:     "/usr/bin/nordvpn",
			InstallPage: "https://nordvpn.com/download/linux/",
			Parser:      common.ParserTokens,
		},
	}
}

// Load loads the configuration from the default config file.
// If the file doesn't exist, it creates one with default values.
func Load() (*Config, error) {
	configPath, err := Path()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnv()
		if err := cfg.SaveTo(configPath); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	return LoadFrom(configPath)
}

// LoadFrom loads the configuration from path. Missing fields keep their
// defaults; unknown fields are rejected. Environment overrides (including
// a .env file in the working directory) are applied last.
func LoadFrom(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfigLoad, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	cfg := DefaultConfig()
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error parsing configuration: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnv overlays environment overrides. A .env file is loaded first
// without replacing variables that are already set.
func (c *Config) applyEnv() {
	_ = godotenv.Load()

	if v := os.Getenv(EnvProvidersFile); v != "" {
		c.ProvidersFile = v
	}
	if v, ok := os.LookupEnv(EnvElevation); ok {
		c.Elevation = v
	}
	if v := os.Getenv(EnvPublicIPURL); v != "" {
		c.PublicIPURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// validate verifies that configuration values are valid, filling
// zero timeouts with defaults.
func (c *Config) validate() error {
	defaults := DefaultTimeouts()
	if c.Timeouts.Command <= 0 {
		c.Timeouts.Command = defaults.Command
	}
	if c.Timeouts.Connect <= 0 {
		c.Timeouts.Connect = defaults.Connect
	}
	if c.Timeouts.Settle < 0 {
		c.Timeouts.Settle = defaults.Settle
	}
	if c.Timeouts.SettleInterval <= 0 {
		c.Timeouts.SettleInterval = defaults.SettleInterval
	}

	monitor := DefaultMonitor()
	if c.Monitor.CheckInterval <= 0 {
		c.Monitor.CheckInterval = monitor.CheckInterval
	}
	if c.Monitor.FailureThreshold <= 0 {
		c.Monitor.FailureThreshold = monitor.FailureThreshold
	}
	if c.Monitor.ReconnectDelay < 0 {
		c.Monitor.ReconnectDelay = monitor.ReconnectDelay
	}
	if c.Monitor.MaxReconnectAttempts < 0 {
		c.Monitor.MaxReconnectAttempts = 0
	}

	c.ProvidersFile = common.ExpandHome(c.ProvidersFile)
	c.HistoryFile = common.ExpandHome(c.HistoryFile)
	c.Elevation = strings.TrimSpace(c.Elevation)

	if len(c.Providers) == 0 {
		return errors.New("at least one provider is required")
	}

	seen := make(map[int]bool, len(c.Providers))
	for i := range c.Providers {
		p := &c.Providers[i]
		if p.ID < 1 {
			return fmt.Errorf("provider %q: id must be 1 or greater", p.Name)
		}
		if seen[p.ID] {
			return fmt.Errorf("provider id %d is defined more than once", p.ID)
		}
		seen[p.ID] = true
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("provider %d: name is required", p.ID)
		}
		if strings.TrimSpace(p.BinPath) == "" {
			return fmt.Errorf("provider %d: bin_path is required", p.ID)
		}
	}

	if !seen[c.ActiveProvider] {
		c.ActiveProvider = c.Providers[0].ID
	}
	return nil
}

// Provider returns the catalog entry for id.
func (c *Config) Provider(id int) (Provider, bool) {
	for _, p := range c.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return Provider{}, false
}

// Save saves the configuration to the default config file.
func (c *Config) Save() error {
	configPath, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(configPath)
}

// SaveTo saves the configuration to path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("%w: creating config directory: %v", common.ErrConfigSave, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("%w: serializing: %v", common.ErrConfigSave, err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("%w: %v", common.ErrConfigSave, err)
	}

	return nil
}

// Path returns the default config file location.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", common.ConfigDirName, common.ConfigFileName), nil
}

func homeDir() string {
	home, _ := os.UserHomeDir()
	return home
}
