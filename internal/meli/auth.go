package meli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// TokenProvider hands out a bearer token for authenticated calls, refreshing
// transparently when the cached token is stale or absent.
type TokenProvider struct {
	mu sync.Mutex

	staticToken  string
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client

	token   string
	expires time.Time

	// Refresh this long before the reported expiry to avoid using a token
	// that dies mid-request.
	skew time.Duration
}

// NewStaticTokenProvider wraps a pre-supplied token that never refreshes.
func NewStaticTokenProvider(token string) *TokenProvider {
	return &TokenProvider{staticToken: token}
}

// NewClientCredentialsProvider exchanges client credentials at tokenURL.
func NewClientCredentialsProvider(clientID, clientSecret, tokenURL string, httpClient *http.Client) (*TokenProvider, error) {
	if clientID == "" || clientSecret == "" {
		return nil, newError(CodeConfiguration, "client credentials are not configured")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &TokenProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     tokenURL,
		httpClient:   httpClient,
		skew:         60 * time.Second,
	}, nil
}

// Token returns a fresh bearer token, refreshing if needed.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	if p.staticToken != "" {
		return p.staticToken, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && time.Now().Before(p.expires.Add(-p.skew)) {
		return p.token, nil
	}
	return p.refreshLocked(ctx)
}

// Invalidate drops the cached token so the next call refreshes.
func (p *TokenProvider) Invalidate() {
	p.mu.Lock()
	p.token = ""
	p.mu.Unlock()
}

func (p *TokenProvider) refreshLocked(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {p.clientID},
		"client_secret": {p.clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", newError(CodeNetwork, fmt.Sprintf("token endpoint unreachable: %v", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
			return "", newError(CodeAuthFailed, fmt.Sprintf("token exchange rejected (status %d)", resp.StatusCode))
		}
		return "", TranslateStatus(resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", newError(CodeConfiguration, fmt.Sprintf("token response is not decodable: %v", err))
	}
	// A refresh response without the token field means the endpoint or the
	// app is misconfigured; retrying will not help.
	if body.AccessToken == "" {
		return "", newError(CodeConfiguration, "token response is missing access_token")
	}

	p.token = body.AccessToken
	if body.ExpiresIn > 0 {
		p.expires = time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	} else {
		p.expires = time.Now().Add(time.Hour)
	}
	return p.token, nil
}
