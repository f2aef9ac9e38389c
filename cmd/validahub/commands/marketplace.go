package commands

import (
	"fmt"
	"strings"

	"github.com/drapala/validahub-new-sub001/internal/config"
	"github.com/drapala/validahub-new-sub001/internal/meli"
	"github.com/drapala/validahub-new-sub001/internal/metrics"
)

// errText joins canonical errors for one-line CLI messages.
func errText(errs []*meli.CanonicalError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// newImporter wires the marketplace client, auth, and cache from config.
// The cache is nil when disabled.
func newImporter(cfg *config.Config, collector *metrics.Collector) (*meli.Importer, error) {
	var auth *meli.TokenProvider
	switch {
	case cfg.Marketplace.AccessToken != "":
		auth = meli.NewStaticTokenProvider(cfg.Marketplace.AccessToken)
	case cfg.Marketplace.ClientID != "":
		p, err := meli.NewClientCredentialsProvider(
			cfg.Marketplace.ClientID,
			cfg.Marketplace.ClientSecret,
			cfg.Marketplace.TokenURL,
			nil,
		)
		if err != nil {
			return nil, err
		}
		auth = p
	}

	retry := meli.DefaultRetryConfig()
	if cfg.Marketplace.MaxRetries > 0 {
		retry.MaxAttempts = cfg.Marketplace.MaxRetries
	}

	client, err := meli.NewClient(meli.Config{
		BaseURL:        cfg.Marketplace.BaseURL,
		SiteID:         cfg.Marketplace.SiteID,
		Timeout:        cfg.Marketplace.Timeout,
		CallsPerSecond: cfg.Marketplace.RateLimitRPS,
		Retry:          retry,
	}, auth, collector)
	if err != nil {
		return nil, fmt.Errorf("initializing marketplace client: %w", err)
	}

	var cache *meli.Cache
	if cfg.Cache.Enabled {
		cache, err = meli.NewCache(cfg.Cache.Dir, cfg.Cache.TTLHours, collector)
		if err != nil {
			return nil, fmt.Errorf("initializing cache: %w", err)
		}
	}

	return meli.NewImporter(client, cache, collector), nil
}
