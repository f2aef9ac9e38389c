package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultConfig returns a Config with sensible default values.
// These defaults are designed to work out-of-the-box against the public
// MercadoLibre API with a read-only token.
func DefaultConfig() *Config {
	return &Config{
		Marketplace: defaultMarketplaceConfig(),
		Cache:       defaultCacheConfig(defaultCacheDir()),
		Pipeline: PipelineConfig{
			AutoFix:              false,
			MaxConcurrency:       0,
			MaxImportConcurrency: 3,
		},
		Rules: RulesConfig{RulesDir: "rules"},
		Output: OutputConfig{
			Format:  "markdown",
			Verbose: false,
			Quiet:   false,
		},
		Log: LogConfig{Level: "info"},
	}
}

// defaultCacheDir returns the default cache directory path.
func defaultCacheDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".cache", "validahub")
}

// defaultMarketplaceConfig returns the default marketplace configuration.
func defaultMarketplaceConfig() MarketplaceConfig {
	return MarketplaceConfig{
		Name:         "meli",
		SiteID:       "MLB",
		BaseURL:      "https://api.mercadolibre.com",
		TokenURL:     "https://api.mercadolibre.com/oauth/token",
		Timeout:      30 * time.Second,
		RateLimitRPS: 2,
		MaxRetries:   4,
	}
}

// defaultCacheConfig returns the default cache configuration.
func defaultCacheConfig(cacheDir string) CacheConfig {
	return CacheConfig{
		Enabled:  true,
		Dir:      cacheDir,
		TTLHours: 24,
	}
}
