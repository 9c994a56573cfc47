// Package config loads rptriage settings from a YAML file with environment
// variable overrides. Command line flags are applied on top by the cli package.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rptriage/rptriage/crawler"
	"gopkg.in/yaml.v3"
)

const appDir = "rptriage"

// Environment variables recognised by applyEnvOverrides.
const (
	EnvTokenFile = "RP_TOKEN_FILE"
	EnvProject   = "RP_PROJECT"
	EnvInsecure  = "RP_INSECURE"
	EnvCacheFile = "RPTRIAGE_CACHE"
)

// Config holds all settings.
type Config struct {
	// Report Portal project
	Project string `yaml:"project"`
	// File holding the Report Portal API token
	TokenFile string `yaml:"token_file"`
	// Skip TLS certificate verification for Report Portal and log servers
	Insecure bool `yaml:"insecure"`
	// Launch attribute identifying one execution
	RunIDAttribute string `yaml:"run_id_attribute"`
	// Dedup cache file
	CacheFile string `yaml:"cache_file"`

	Crawl CrawlConfig `yaml:"crawl"`
}

// CrawlConfig configures the directory crawler.
type CrawlConfig struct {
	Depth   int    `yaml:"depth"`
	Workers int    `yaml:"workers"`
	Retries int    `yaml:"retries"`
	Timeout string `yaml:"timeout"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Project:        "ocs",
		TokenFile:      "~/.ssh/report_portal",
		RunIDAttribute: "run_id",
		CacheFile:      filepath.Join(cacheHome(), appDir, "history.jsonl"),
		Crawl: CrawlConfig{
			Depth:   crawler.DefaultMaxDepth,
			Workers: crawler.DefaultWorkers,
			Retries: crawler.DefaultRetries,
			Timeout: crawler.DefaultTimeout.String(),
		},
	}
}

// DefaultPath returns the config file location, ~/.config/rptriage/config.yaml
// unless XDG_CONFIG_HOME says otherwise.
func DefaultPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(homeDir(), ".config")
	}
	return filepath.Join(configHome, appDir, "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ExpandHome(path))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv(EnvTokenFile); path != "" {
		c.TokenFile = path
	}
	if project := os.Getenv(EnvProject); project != "" {
		c.Project = project
	}
	if path := os.Getenv(EnvCacheFile); path != "" {
		c.CacheFile = path
	}
	if v := os.Getenv(EnvInsecure); v != "" {
		if insecure, err := strconv.ParseBool(v); err == nil {
			c.Insecure = insecure
		}
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Crawl.Depth < 1 {
		return fmt.Errorf("crawl depth must be at least 1, got %d", c.Crawl.Depth)
	}
	if c.Crawl.Workers < 1 {
		return fmt.Errorf("crawl workers must be at least 1, got %d", c.Crawl.Workers)
	}
	if c.Crawl.Retries < 0 {
		return fmt.Errorf("crawl retries must not be negative, got %d", c.Crawl.Retries)
	}
	if c.Crawl.Timeout != "" {
		if _, err := time.ParseDuration(c.Crawl.Timeout); err != nil {
			return fmt.Errorf("invalid crawl timeout %q: %w", c.Crawl.Timeout, err)
		}
	}
	return nil
}

// CrawlTimeout returns the per-request crawl timeout as a duration.
func (c *Config) CrawlTimeout() time.Duration {
	d, err := time.ParseDuration(c.Crawl.Timeout)
	if err != nil || d <= 0 {
		return crawler.DefaultTimeout
	}
	return d
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" {
		return homeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return os.TempDir()
}

func cacheHome() string {
	if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
		return xdgCache
	}
	return filepath.Join(homeDir(), ".cache")
}
