package meli

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    time.Millisecond,
		MaxDelay:        2 * time.Millisecond,
		ExponentialBase: 2,
		JitterMin:       1,
		JitterMax:       1,
	}
}

func newTestClient(t *testing.T, handler http.Handler, auth *TokenProvider) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		BaseURL:        srv.URL,
		SiteID:         "MLB",
		CallsPerSecond: 1000,
		Retry:          fastRetry(),
	}, auth, nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c, srv
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"id":"MLB1055","name":"Phones"}`))
	}), nil)

	cat, err := c.GetCategory(context.Background(), "MLB1055")
	if err != nil {
		t.Fatalf("GetCategory() error = %v", err)
	}
	if cat.Name != "Phones" {
		t.Errorf("name = %q, want Phones", cat.Name)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3 (two retries)", calls.Load())
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int64
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"validation_error","message":"title too long"}`))
	}), nil)

	_, err := c.GetCategory(context.Background(), "MLB1")
	if err == nil {
		t.Fatal("want error")
	}
	var ce *CanonicalError
	if !errors.As(err, &ce) {
		t.Fatalf("error type = %T, want CanonicalError", err)
	}
	if ce.Code != CodeValidation || ce.Recoverable {
		t.Errorf("error = %+v, want non-recoverable VALIDATION_ERROR", ce)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want exactly 1 (no retry on 400)", calls.Load())
	}
}

func TestClientExhausted429CarriesRetryAfter(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}), nil)

	_, err := c.GetCategory(context.Background(), "MLB1")
	var ce *CanonicalError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want canonical", err)
	}
	if ce.Code != CodeRateLimit || !ce.Recoverable {
		t.Errorf("error = %+v, want recoverable RATE_LIMIT_EXCEEDED", ce)
	}
	if ce.RetryAfter != 7 {
		t.Errorf("retry_after = %d, want 7", ce.RetryAfter)
	}
}

func TestClientNotFoundBecomesCategoryNotFound(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}), nil)

	_, err := c.GetCategory(context.Background(), "MLB404")
	var ce *CanonicalError
	if !errors.As(err, &ce) || ce.Code != CodeCategoryNotFound {
		t.Errorf("error = %v, want CATEGORY_NOT_FOUND", err)
	}
}

func TestClientSendsBearerToken(t *testing.T) {
	var gotAuth atomic.Value
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":"MLB1","name":"x"}`))
	}), NewStaticTokenProvider("APP_USR-abc"))

	if _, err := c.GetCategory(context.Background(), "MLB1"); err != nil {
		t.Fatalf("GetCategory() error = %v", err)
	}
	if gotAuth.Load() != "Bearer APP_USR-abc" {
		t.Errorf("Authorization = %q, want the static bearer token", gotAuth.Load())
	}
}

func TestClientRejectsZeroRate(t *testing.T) {
	if _, err := NewClient(Config{BaseURL: "http://x", CallsPerSecond: 0}, nil, nil); err == nil {
		t.Error("zero calls per second should fail construction")
	}
}

func TestAcquireReleasePairing(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"MLB1","name":"x"}`))
	}), nil)

	r1 := c.Acquire()
	r2 := c.Acquire()
	r1()
	r1() // double release of the same handle is a no-op

	if _, err := c.GetCategory(context.Background(), "MLB1"); err != nil {
		t.Fatalf("client should still work while references remain: %v", err)
	}
	r2()
}

func TestTokenRefreshAndMissingTokenField(t *testing.T) {
	var tokenCalls atomic.Int64
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tokenCalls.Add(1) == 1 {
			w.Write([]byte(`{"access_token":"tok-1","expires_in":3600}`))
			return
		}
		w.Write([]byte(`{"expires_in":3600}`)) // broken: no access_token
	}))
	defer tokenSrv.Close()

	p, err := NewClientCredentialsProvider("id", "secret", tokenSrv.URL, nil)
	if err != nil {
		t.Fatalf("NewClientCredentialsProvider() error = %v", err)
	}

	tok, err := p.Token(context.Background())
	if err != nil || tok != "tok-1" {
		t.Fatalf("Token() = %q, %v", tok, err)
	}

	// Cached until invalidated; no second exchange yet.
	if _, err := p.Token(context.Background()); err != nil {
		t.Fatalf("cached Token() error = %v", err)
	}
	if tokenCalls.Load() != 1 {
		t.Errorf("token calls = %d, want 1 (cache hit)", tokenCalls.Load())
	}

	p.Invalidate()
	_, err = p.Token(context.Background())
	var ce *CanonicalError
	if !errors.As(err, &ce) || ce.Code != CodeConfiguration {
		t.Errorf("missing access_token: error = %v, want CONFIGURATION_ERROR", err)
	}
}

func TestClientCredentialsRequireConfig(t *testing.T) {
	if _, err := NewClientCredentialsProvider("", "", "http://x", nil); err == nil {
		t.Error("empty credentials should fail fast")
	}
}
