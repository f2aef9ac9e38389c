// Package config handles all configuration management for validahub.
//
// Configuration is loaded from multiple sources in order of precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables (VALIDAHUB_*)
// 3. Configuration file (.validahub.yaml)
// 4. Default values (lowest priority)
package config

import (
	"time"
)

// Config is the main configuration structure for validahub.
// It contains all settings needed to run the application.
type Config struct {
	// Marketplace configures the marketplace API client
	Marketplace MarketplaceConfig `mapstructure:"marketplace" yaml:"marketplace"`

	// Cache configures the rule-set cache
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`

	// Pipeline configures batch validation behavior
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`

	// Rules configures declarative rule documents
	Rules RulesConfig `mapstructure:"rules" yaml:"rules"`

	// Output configures output formatting
	Output OutputConfig `mapstructure:"output" yaml:"output"`

	// Log configures logging
	Log LogConfig `mapstructure:"log" yaml:"log"`
}

// MarketplaceConfig configures the marketplace API client.
type MarketplaceConfig struct {
	// Name is the marketplace identifier (e.g. "meli")
	Name string `mapstructure:"name" yaml:"name"`

	// SiteID is the marketplace site (e.g. "MLB", "MLA")
	SiteID string `mapstructure:"site_id" yaml:"site_id"`

	// BaseURL is the API base URL
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TokenURL is the OAuth token endpoint for client-credentials exchange
	TokenURL string `mapstructure:"token_url" yaml:"token_url"`

	// AccessToken is a pre-supplied bearer token. When set, client
	// credentials are ignored. Set it via environment variable, not the
	// config file.
	AccessToken string `mapstructure:"access_token" yaml:"access_token"`

	// ClientID and ClientSecret drive the client-credentials flow
	ClientID     string `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret"`

	// Timeout is the per-request timeout
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// RateLimitRPS is the API calls-per-second budget
	RateLimitRPS float64 `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps"`

	// MaxRetries is the retry attempt cap for transient failures
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
}

// CacheConfig configures the rule-set cache.
type CacheConfig struct {
	// Enabled enables caching
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Dir is the cache directory
	Dir string `mapstructure:"dir" yaml:"dir"`

	// TTLHours is how long a cached rule set stays fresh
	TTLHours float64 `mapstructure:"ttl_hours" yaml:"ttl_hours"`
}

// PipelineConfig configures batch validation behavior.
type PipelineConfig struct {
	// AutoFix applies corrections instead of only reporting
	AutoFix bool `mapstructure:"auto_fix" yaml:"auto_fix"`

	// MaxConcurrency is the maximum parallel row evaluations (0 = auto)
	MaxConcurrency int `mapstructure:"max_concurrency" yaml:"max_concurrency"`

	// MaxImportConcurrency bounds concurrent category imports
	MaxImportConcurrency int `mapstructure:"max_import_concurrency" yaml:"max_import_concurrency"`
}

// RulesConfig configures declarative rule documents.
type RulesConfig struct {
	// RulesDir is the directory containing rule documents
	RulesDir string `mapstructure:"rules_dir" yaml:"rules_dir"`

	// Document is a specific document file to load (overrides RulesDir)
	Document string `mapstructure:"document" yaml:"document"`
}

// OutputConfig configures output formatting.
type OutputConfig struct {
	// Format is the output format: "markdown", "json", "csv"
	Format string `mapstructure:"format" yaml:"format"`

	// File is the output file path (empty = stdout)
	File string `mapstructure:"file" yaml:"file"`

	// Verbose enables verbose output
	Verbose bool `mapstructure:"verbose" yaml:"verbose"`

	// Quiet suppresses all output except errors
	Quiet bool `mapstructure:"quiet" yaml:"quiet"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error"
	Level string `mapstructure:"level" yaml:"level"`
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Marketplace.Name == "" {
		return &ValidationError{Field: "marketplace.name", Message: "marketplace name is required"}
	}
	if c.Marketplace.SiteID == "" {
		return &ValidationError{Field: "marketplace.site_id", Message: "site id is required"}
	}
	if c.Marketplace.RateLimitRPS <= 0 {
		return &ValidationError{Field: "marketplace.rate_limit_rps", Message: "rate limit must be positive"}
	}
	if c.Marketplace.AccessToken == "" && c.Marketplace.ClientID != "" && c.Marketplace.ClientSecret == "" {
		return &ValidationError{Field: "marketplace.client_secret", Message: "client secret is required when a client id is set"}
	}

	if c.Cache.Enabled && c.Cache.Dir == "" {
		return &ValidationError{Field: "cache.dir", Message: "cache directory is required when cache is enabled"}
	}
	if c.Cache.TTLHours < 0 {
		return &ValidationError{Field: "cache.ttl_hours", Message: "ttl must not be negative"}
	}

	validFormats := map[string]bool{"markdown": true, "json": true, "csv": true}
	if !validFormats[c.Output.Format] {
		return &ValidationError{Field: "output.format", Message: "invalid format, must be one of: markdown, json, csv"}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		return &ValidationError{Field: "log.level", Message: "invalid level, must be one of: debug, info, warn, error"}
	}

	return nil
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "config validation error: " + e.Field + ": " + e.Message
}
