// Package httpx provides the outbound HTTP plumbing shared by all SDK
// requests: client-side rate limiting and request correlation headers.
package httpx

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/lecternhq/lectern-go/pkg/idx"
	"github.com/lecternhq/lectern-go/pkg/slogx"
)

// RateLimitConfig defines the client-side rate limiting parameters. Staying
// under the server's published limits avoids burning requests on 429s.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the sustained rate
	Burst int
}

// DefaultLimit is the sustained request rate for general API traffic.
// Override with: LECTERN_RATELIMIT_REQUESTS, LECTERN_RATELIMIT_WINDOW_SEC,
// LECTERN_RATELIMIT_BURST.
var DefaultLimit = RateLimitConfig{
	RequestsPerWindow: 100,
	Window:            time.Minute,
	Burst:             20,
}

func init() {
	DefaultLimit = ParseRateLimitFromEnv(DefaultLimit)
}

// ParseRateLimitFromEnv reads rate limit overrides from environment
// variables, falling back to the provided defaults for anything unset or
// unparseable.
func ParseRateLimitFromEnv(defaultConfig RateLimitConfig) RateLimitConfig {
	config := defaultConfig

	if v := os.Getenv("LECTERN_RATELIMIT_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.RequestsPerWindow = n
		}
	}
	if v := os.Getenv("LECTERN_RATELIMIT_WINDOW_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Window = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("LECTERN_RATELIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Burst = n
		}
	}

	return config
}

// Limiter builds a token-bucket limiter from the config.
func (c RateLimitConfig) Limiter() *rate.Limiter {
	every := c.Window / time.Duration(c.RequestsPerWindow)
	return rate.NewLimiter(rate.Every(every), c.Burst)
}

// Transport is an http.RoundTripper that paces requests through a rate
// limiter and stamps each one with a ULID X-Request-Id for server-side
// correlation.
type Transport struct {
	// Base is the underlying round tripper. nil means http.DefaultTransport.
	Base http.RoundTripper

	// Limiter paces outbound requests. nil disables rate limiting.
	Limiter *rate.Limiter

	// UserAgent is set on requests that don't already carry one.
	UserAgent string
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Limiter != nil {
		if err := t.Limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}

	// RoundTrippers must not mutate the caller's request.
	req = req.Clone(req.Context())

	if req.Header.Get("X-Request-Id") == "" {
		req.Header.Set("X-Request-Id", idx.New().String())
	}
	if t.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	slogx.FromContext(req.Context()).Debug("outbound request",
		"method", req.Method,
		"path", req.URL.Path,
		"request_id", req.Header.Get("X-Request-Id"),
	)

	return base.RoundTrip(req)
}

// NewClient returns an *http.Client wired with the SDK transport, a bounded
// overall timeout, and the default rate limit.
func NewClient(userAgent string) *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &Transport{
			Limiter:   DefaultLimit.Limiter(),
			UserAgent: userAgent,
		},
	}
}
