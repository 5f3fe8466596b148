package glean

import (
	"github.com/gleanware/glean/glean/internal/config"
)

// Config is the top-level glean configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// LLMConfig controls the semantic extraction fallback.
type LLMConfig = config.LLMConfig

// LimitsConfig bounds traversal.
type LimitsConfig = config.LimitsConfig

// OutputConfig controls persistence.
type OutputConfig = config.OutputConfig

// SiteConfig is one site to traverse.
type SiteConfig = config.SiteConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}
