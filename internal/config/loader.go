package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	configFileName = ".validahub.yaml"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()

	// Set config name and type
	v.SetConfigName(".validahub")
	v.SetConfigType("yaml")

	// Add search paths in order of priority
	v.AddConfigPath(".")              // Current directory (highest priority)
	v.AddConfigPath("$HOME")          // Home directory
	v.AddConfigPath("/etc/validahub") // System config (lowest priority)

	// Environment variable support
	v.SetEnvPrefix("VALIDAHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

// SetConfigFile sets a specific config file to use.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
	l.v.SetConfigFile(path)
}

// Load loads the configuration from all sources.
// Priority (highest to lowest):
// 1. Explicit config file (if set via SetConfigFile)
// 2. Environment variables (VALIDAHUB_*)
// 3. Config file from search paths (.validahub.yaml)
// 4. Default values
func (l *Loader) Load() (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Set defaults in viper
	l.setDefaults(cfg)

	// Try to read config file
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file found but error reading it
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found - that's ok, we'll use defaults
	}

	// Unmarshal into config struct
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate the final config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults sets all default values in viper.
func (l *Loader) setDefaults(cfg *Config) {
	// Marketplace defaults
	l.v.SetDefault("marketplace.name", cfg.Marketplace.Name)
	l.v.SetDefault("marketplace.site_id", cfg.Marketplace.SiteID)
	l.v.SetDefault("marketplace.base_url", cfg.Marketplace.BaseURL)
	l.v.SetDefault("marketplace.token_url", cfg.Marketplace.TokenURL)
	l.v.SetDefault("marketplace.timeout", cfg.Marketplace.Timeout)
	l.v.SetDefault("marketplace.rate_limit_rps", cfg.Marketplace.RateLimitRPS)
	l.v.SetDefault("marketplace.max_retries", cfg.Marketplace.MaxRetries)

	// Cache defaults
	l.v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	l.v.SetDefault("cache.dir", cfg.Cache.Dir)
	l.v.SetDefault("cache.ttl_hours", cfg.Cache.TTLHours)

	// Pipeline defaults
	l.v.SetDefault("pipeline.auto_fix", cfg.Pipeline.AutoFix)
	l.v.SetDefault("pipeline.max_concurrency", cfg.Pipeline.MaxConcurrency)
	l.v.SetDefault("pipeline.max_import_concurrency", cfg.Pipeline.MaxImportConcurrency)

	// Rules defaults
	l.v.SetDefault("rules.rules_dir", cfg.Rules.RulesDir)

	// Output defaults
	l.v.SetDefault("output.format", cfg.Output.Format)
	l.v.SetDefault("output.verbose", cfg.Output.Verbose)
	l.v.SetDefault("output.quiet", cfg.Output.Quiet)

	// Log defaults
	l.v.SetDefault("log.level", cfg.Log.Level)
}

// ConfigFileUsed returns the path of the config file used, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance for advanced usage.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	loader := NewLoader()
	loader.SetConfigFile(path)
	return loader.Load()
}

// LoadDefault loads configuration with default search paths.
func LoadDefault() (*Config, error) {
	loader := NewLoader()
	return loader.Load()
}

// MustLoad loads configuration and panics on error.
// Use only in main() or init() functions.
func MustLoad() *Config {
	cfg, err := LoadDefault()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// FindConfigFile searches for a config file and returns its path.
// Returns empty string if no config file is found.
func FindConfigFile() string {
	// Check current directory
	if _, err := os.Stat(configFileName); err == nil {
		if abs, err := filepath.Abs(configFileName); err == nil {
			return abs
		}
	}

	// Check home directory
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, configFileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	// Check /etc
	etcPath := "/etc/validahub/" + configFileName
	if _, err := os.Stat(etcPath); err == nil {
		return etcPath
	}

	return ""
}
