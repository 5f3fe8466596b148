// Package config handles glean configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level glean configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	LLM     LLMConfig     `yaml:"llm"`
	Limits  LimitsConfig  `yaml:"limits"`
	Output  OutputConfig  `yaml:"output"`
	Sites   []SiteConfig  `yaml:"sites"`
	// Search is the default search term applied to sites without their own.
	Search string `yaml:"search"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	// Remote is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome.
	Remote string `yaml:"remote"`
	// Headless controls local launches. Default: true.
	Headless *bool `yaml:"headless"`
	// ResourceBlocking lists resource types to block (images, fonts, media,
	// stylesheets). Blocking images speeds listing traversal considerably.
	ResourceBlocking []string `yaml:"resource_blocking"`
}

// LLMConfig controls the semantic extraction fallback.
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	// APIKeyEnv names the environment variable holding the API key; keys
	// never live in config files. Default: DEEPSEEK_API_KEY.
	APIKeyEnv       string        `yaml:"api_key_env"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxContextBytes int           `yaml:"max_context_bytes"`
}

// LimitsConfig bounds traversal.
type LimitsConfig struct {
	MaxPages          int           `yaml:"max_pages"`
	MaxRecordsPerPage int           `yaml:"max_records_per_page"`
	MinClusterSize    int           `yaml:"min_cluster_size"`
	ScrollRetries     int           `yaml:"scroll_retries"`
	LoadMoreClicks    int           `yaml:"load_more_clicks"`
	SettleDelay       time.Duration `yaml:"settle_delay"`
	ScrollDelay       time.Duration `yaml:"scroll_delay"`
	SearchDelay       time.Duration `yaml:"search_delay"`
}

// OutputConfig controls persistence.
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	CatalogPath string `yaml:"catalog_path"`
}

// SiteConfig is one site to traverse.
type SiteConfig struct {
	URL string `yaml:"url"`
	// Search overrides the global search term for this site.
	Search string `yaml:"search"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Browser.Headless == nil {
		t := true
		c.Browser.Headless = &t
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.deepseek.com/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "deepseek-chat"
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = "DEEPSEEK_API_KEY"
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 60 * time.Second
	}
	if c.LLM.MaxContextBytes <= 0 {
		c.LLM.MaxContextBytes = 100_000
	}
	if c.Limits.MaxPages <= 0 {
		c.Limits.MaxPages = 5
	}
	if c.Limits.MaxRecordsPerPage <= 0 {
		c.Limits.MaxRecordsPerPage = 100
	}
	if c.Limits.MinClusterSize <= 0 {
		c.Limits.MinClusterSize = 10
	}
	if c.Limits.ScrollRetries <= 0 {
		c.Limits.ScrollRetries = 5
	}
	if c.Limits.LoadMoreClicks <= 0 {
		c.Limits.LoadMoreClicks = 10
	}
	if c.Limits.SettleDelay <= 0 {
		c.Limits.SettleDelay = 3 * time.Second
	}
	if c.Limits.ScrollDelay <= 0 {
		c.Limits.ScrollDelay = 700 * time.Millisecond
	}
	if c.Limits.SearchDelay <= 0 {
		c.Limits.SearchDelay = 8 * time.Second
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "glean_output"
	}
	if c.Output.CatalogPath == "" {
		c.Output.CatalogPath = c.Output.Dir + "/catalog.db"
	}
}
