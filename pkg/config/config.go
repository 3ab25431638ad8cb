package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Default values
const (
	DefaultAPIBaseURL         = "https://api.opensea.io"
	DefaultIPFSGateway        = "https://ipfs.io/ipfs/"
	DefaultTokenLimit         = 7777
	DefaultRequestDelayMS     = 100
	DefaultDownloadTimeoutSec = 30
	DefaultLogLevel           = "debug"
	DefaultLogMaxSizeMB       = 10
	DefaultLogMaxBackups      = 3
	DefaultColorTheme         = "auto"

	// EnvPrefix is prepended to every environment override, e.g. NFTGRAB_TOKEN_LIMIT
	EnvPrefix = "NFTGRAB"
)

type Config struct {
	// API Settings
	APIBaseURL  string `yaml:"api_base_url"`
	IPFSGateway string `yaml:"ipfs_gateway"`

	// Fetch Settings
	DownloadDir        string `yaml:"download_dir"`
	TokenLimit         int    `yaml:"token_limit"`
	RequestDelayMS     int    `yaml:"request_delay_ms"`
	DownloadTimeoutSec int    `yaml:"download_timeout_sec"`

	// Logging
	LogLevel      string `yaml:"log_level"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb"`
	LogMaxBackups int    `yaml:"log_max_backups"`

	// UI Settings
	ColorTheme  string `yaml:"color_theme"`
	PlainOutput bool   `yaml:"plain_output"`
}

// DefaultConfig returns a Config struct with default values
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:         DefaultAPIBaseURL,
		IPFSGateway:        DefaultIPFSGateway,
		DownloadDir:        "",
		TokenLimit:         DefaultTokenLimit,
		RequestDelayMS:     DefaultRequestDelayMS,
		DownloadTimeoutSec: DefaultDownloadTimeoutSec,
		LogLevel:           DefaultLogLevel,
		LogMaxSizeMB:       DefaultLogMaxSizeMB,
		LogMaxBackups:      DefaultLogMaxBackups,
		ColorTheme:         DefaultColorTheme,
		PlainOutput:        false,
	}
}

// Load reads configuration from the specified file path
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		// Missing file means defaults
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

// Save persists the current configuration to the specified file path
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides file values with NFTGRAB_* environment variables
func (c *Config) ApplyEnv() {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	for _, key := range []string{
		"api_base_url", "ipfs_gateway", "download_dir", "token_limit",
		"request_delay_ms", "download_timeout_sec", "log_level",
		"log_max_size_mb", "log_max_backups", "color_theme", "plain_output",
	} {
		_ = v.BindEnv(key)
	}

	if v.IsSet("api_base_url") {
		c.APIBaseURL = v.GetString("api_base_url")
	}
	if v.IsSet("ipfs_gateway") {
		c.IPFSGateway = v.GetString("ipfs_gateway")
	}
	if v.IsSet("download_dir") {
		c.DownloadDir = v.GetString("download_dir")
	}
	if v.IsSet("token_limit") {
		c.TokenLimit = v.GetInt("token_limit")
	}
	if v.IsSet("request_delay_ms") {
		c.RequestDelayMS = v.GetInt("request_delay_ms")
	}
	if v.IsSet("download_timeout_sec") {
		c.DownloadTimeoutSec = v.GetInt("download_timeout_sec")
	}
	if v.IsSet("log_level") {
		c.LogLevel = v.GetString("log_level")
	}
	if v.IsSet("log_max_size_mb") {
		c.LogMaxSizeMB = v.GetInt("log_max_size_mb")
	}
	if v.IsSet("log_max_backups") {
		c.LogMaxBackups = v.GetInt("log_max_backups")
	}
	if v.IsSet("color_theme") {
		c.ColorTheme = v.GetString("color_theme")
	}
	if v.IsSet("plain_output") {
		c.PlainOutput = v.GetBool("plain_output")
	}

	c.normalize()
}

// RequestDelay returns the pause between per-token requests
func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelayMS) * time.Millisecond
}

// DownloadTimeout returns the HTTP timeout for API and image requests
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.DownloadTimeoutSec) * time.Second
}

// normalize re-applies defaults to zero values and clamps ranges
func (c *Config) normalize() {
	c.APIBaseURL = strings.TrimSpace(c.APIBaseURL)
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	c.IPFSGateway = strings.TrimSpace(c.IPFSGateway)
	if c.IPFSGateway == "" {
		c.IPFSGateway = DefaultIPFSGateway
	}
	if !strings.HasSuffix(c.IPFSGateway, "/") {
		c.IPFSGateway += "/"
	}
	c.DownloadDir = strings.TrimSpace(c.DownloadDir)

	// The collection size is fixed; the limit can only lower it
	if c.TokenLimit <= 0 || c.TokenLimit > DefaultTokenLimit {
		c.TokenLimit = DefaultTokenLimit
	}
	// Requests are always paced
	if c.RequestDelayMS <= 0 {
		c.RequestDelayMS = DefaultRequestDelayMS
	}
	if c.DownloadTimeoutSec <= 0 {
		c.DownloadTimeoutSec = DefaultDownloadTimeoutSec
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogMaxSizeMB <= 0 {
		c.LogMaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.LogMaxBackups < 0 {
		c.LogMaxBackups = DefaultLogMaxBackups
	}
	if !isValidColorTheme(c.ColorTheme) {
		c.ColorTheme = DefaultColorTheme
	}
}

// isValidColorTheme checks if the color theme is valid
func isValidColorTheme(theme string) bool {
	validThemes := []string{"auto", "dark", "light", "none"}
	for _, valid := range validThemes {
		if theme == valid {
			return true
		}
	}
	return false
}
