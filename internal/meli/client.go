package meli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/drapala/validahub-new-sub001/internal/logger"
	"github.com/drapala/validahub-new-sub001/internal/metrics"
)

// Config configures the marketplace client.
type Config struct {
	BaseURL        string
	SiteID         string // e.g. "MLB"
	Timeout        time.Duration
	CallsPerSecond float64
	Retry          RetryConfig
}

// Client is the resilient HTTP client for the marketplace API: one shared
// rate limiter, bounded retries with backoff, transparent token refresh, and
// a reference-counted transport so nested users share one connection pool.
type Client struct {
	baseURL    string
	siteID     string
	httpClient *http.Client
	limiter    *RateLimiter
	retryCfg   RetryConfig
	auth       *TokenProvider
	log        *logger.Logger
	metrics    *metrics.Collector

	mu   sync.Mutex
	refs int
}

// NewClient builds a client. It fails fast on a non-positive rate budget.
func NewClient(cfg Config, auth *TokenProvider, collector *metrics.Collector) (*Client, error) {
	limiter, err := NewRateLimiter(cfg.CallsPerSecond)
	if err != nil {
		return nil, err
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		siteID:     cfg.SiteID,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
		retryCfg:   cfg.Retry,
		auth:       auth,
		log:        logger.Default().WithPrefix("meli"),
		metrics:    collector,
	}, nil
}

// Acquire takes a reference on the shared transport and returns the matching
// release. The last release closes idle connections; callers must pair every
// Acquire with exactly one release on all exit paths.
func (c *Client) Acquire() (release func()) {
	c.mu.Lock()
	c.refs++
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.refs--
			last := c.refs == 0
			c.mu.Unlock()
			if last {
				c.httpClient.CloseIdleConnections()
			}
		})
	}
}

// apiError is the marketplace's structured error body.
type apiError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

// get performs an authenticated GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// do runs one API call through the limiter, the auth layer, and the retry
// policy. Terminal 4xx answers come back as canonical errors immediately.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = b
	}

	var decoded bool
	var terminal error

	outcome, attempts := retry(ctx, c.retryCfg, func() (bool, attemptOutcome) {
		if err := c.limiter.Wait(ctx); err != nil {
			terminal = newError(CodeTimeout, fmt.Sprintf("cancelled while rate limited: %v", err))
			return true, attemptOutcome{}
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(reqBody))
		if err != nil {
			terminal = fmt.Errorf("create request: %w", err)
			return true, attemptOutcome{}
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.auth != nil {
			token, err := c.auth.Token(ctx)
			if err != nil {
				terminal = err
				return true, attemptOutcome{}
			}
			req.Header.Set("Authorization", "Bearer "+token)
		}

		c.metrics.Inc(metrics.APICalls)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.log.Debug("request %s %s failed: %v", method, path, err)
			return false, attemptOutcome{err: err}
		}
		defer func() { _ = resp.Body.Close() }()

		if retryableStatus(resp.StatusCode) {
			io.Copy(io.Discard, resp.Body)
			return false, attemptOutcome{
				status:     resp.StatusCode,
				retryAfter: resp.Header.Get("Retry-After"),
			}
		}

		if resp.StatusCode >= 400 {
			terminal = c.translateBody(resp)
			return true, attemptOutcome{status: resp.StatusCode}
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				terminal = fmt.Errorf("decode response: %w", err)
				return true, attemptOutcome{status: resp.StatusCode}
			}
		}
		decoded = true
		return true, attemptOutcome{status: resp.StatusCode}
	})

	if attempts > 1 {
		c.metrics.Add(metrics.APIRetries, int64(attempts-1))
	}
	if decoded {
		return nil
	}
	if terminal != nil {
		return terminal
	}

	// Retries exhausted on a transient fault.
	if outcome.err != nil {
		e := newError(CodeNetwork, fmt.Sprintf("request failed after %d attempts: %v", attempts, outcome.err))
		return e
	}
	e := TranslateStatus(outcome.status)
	if outcome.retryAfter != "" {
		e.RetryAfter = ParseRetryAfter(outcome.retryAfter)
	}
	return e
}

// translateBody turns a terminal 4xx response into a canonical error, using
// the structured body when one is present.
func (c *Client) translateBody(resp *http.Response) *CanonicalError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var body apiError
	if err := json.Unmarshal(data, &body); err == nil && (body.Error != "" || body.Message != "") {
		e := Translate(body.Error, body.Message)
		if e.Code == CodeUnknown {
			e = TranslateStatus(resp.StatusCode)
			if body.Message != "" {
				e.Message = body.Message
			}
		}
		return e
	}
	return TranslateStatus(resp.StatusCode)
}

// Category is the marketplace's category resource.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
	Settings struct {
		MaxTitleLength int      `json:"max_title_length"`
		ItemConditions []string `json:"item_conditions"`
	} `json:"settings"`
}

// AttributeValue is one allowed value of an attribute.
type AttributeValue struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Attribute is the marketplace's category attribute resource.
type Attribute struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	ValueType string           `json:"value_type"` // string, number, boolean, list, date
	Tags      map[string]bool  `json:"tags"`       // required, catalog_required, read_only...
	Values    []AttributeValue `json:"values,omitempty"`
	MaxLength int              `json:"value_max_length,omitempty"`
	DependsOn []string         `json:"depends_on,omitempty"`
}

// Required reports whether the marketplace marks the attribute mandatory.
func (a Attribute) Required() bool {
	return a.Tags["required"] || a.Tags["catalog_required"]
}

// ListingType is one way an item can be listed on the site.
type ListingType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ItemCondition is one allowed item condition for a category.
type ItemCondition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Domain is one site domain.
type Domain struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CategoryHit is one free-text category search result.
type CategoryHit struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
}

// GetCategory fetches category metadata by id.
func (c *Client) GetCategory(ctx context.Context, id string) (*Category, error) {
	var out Category
	if err := c.get(ctx, "/categories/"+url.PathEscape(id), &out); err != nil {
		if ce, ok := err.(*CanonicalError); ok && ce.Code == CodeItemNotFound {
			return nil, newError(CodeCategoryNotFound, fmt.Sprintf("category %s does not exist", id))
		}
		return nil, err
	}
	return &out, nil
}

// GetCategoryAttributes lists the attributes of a category.
func (c *Client) GetCategoryAttributes(ctx context.Context, id string) ([]Attribute, error) {
	var out []Attribute
	if err := c.get(ctx, "/categories/"+url.PathEscape(id)+"/attributes", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetListingTypes lists the site's listing types.
func (c *Client) GetListingTypes(ctx context.Context) ([]ListingType, error) {
	var out []ListingType
	if err := c.get(ctx, "/sites/"+url.PathEscape(c.siteID)+"/listing_types", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetConditions lists the item conditions accepted by a category.
func (c *Client) GetConditions(ctx context.Context, categoryID string) ([]ItemCondition, error) {
	var out []ItemCondition
	if err := c.get(ctx, "/categories/"+url.PathEscape(categoryID)+"/conditions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDomains lists the site's domains.
func (c *Client) GetDomains(ctx context.Context) ([]Domain, error) {
	var out []Domain
	if err := c.get(ctx, "/sites/"+url.PathEscape(c.siteID)+"/domains", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchCategories resolves a free-text query to candidate categories.
func (c *Client) SearchCategories(ctx context.Context, query string) ([]CategoryHit, error) {
	var out []CategoryHit
	path := "/sites/" + url.PathEscape(c.siteID) + "/domain_discovery/search?q=" + url.QueryEscape(query)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidationCause is one complaint from the marketplace's item validator.
type ValidationCause struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// ValidateItem submits an item payload to the marketplace's validation
// endpoint and returns its complaints translated into canonical errors.
func (c *Client) ValidateItem(ctx context.Context, item map[string]interface{}) ([]*CanonicalError, error) {
	var out struct {
		Cause []ValidationCause `json:"cause"`
	}
	if err := c.do(ctx, http.MethodPost, "/items/validate", item, &out); err != nil {
		return nil, err
	}
	errs := make([]*CanonicalError, 0, len(out.Cause))
	for _, cause := range out.Cause {
		e := Translate(cause.Code, cause.Message)
		e.Field = cause.Field
		errs = append(errs, e)
	}
	return errs, nil
}
