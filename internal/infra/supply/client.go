// Package supply implements the client for the external photo supply API.
package supply

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lumina-frame/lumina-photoframe-backend/internal/domain/rotation"
)

const (
	// DefaultBaseURL is the photo supply API base URL (Unsplash-compatible)
	DefaultBaseURL = "https://api.unsplash.com"

	// DefaultUserAgent follows API guidelines
	DefaultUserAgent = "Lumina/1.0 (https://github.com/lumina-frame/lumina-photoframe-backend)"

	// DefaultTimeout for HTTP requests
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit - the demo tier allows 50 req/hour, one batched call
	// per rotation window stays far below it; this guards against bugs
	DefaultRateLimit = 2 // 2 requests per second
)

// Common errors
var (
	// ErrUnauthorized indicates the access key was rejected
	ErrUnauthorized = errors.New("supply access key rejected")

	// ErrRateLimited indicates the supply API rate limit was exceeded
	ErrRateLimited = errors.New("supply rate limited")

	// ErrSupplyUnavailable indicates a temporary upstream failure
	ErrSupplyUnavailable = errors.New("photo supply unavailable")
)

// Client fetches random photos from the supply API. It satisfies
// rotation.Fetcher: a call either returns the decoded batch or fails, never
// both.
type Client struct {
	baseURL    string
	accessKey  string
	userAgent  string
	httpClient *http.Client
	limiter    *rateLimiter
}

// Option is a functional option for configuring the supply client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (useful for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient creates a new supply API client authenticated with accessKey.
func NewClient(accessKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		accessKey: accessKey,
		userAgent: DefaultUserAgent,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: newRateLimiter(DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// RandomPhotos requests count random photos in a single batched call.
// A batch whose length differs from count is logged and returned as-is; the
// rotation manager takes what it needs and queues the rest.
func (c *Client) RandomPhotos(ctx context.Context, count int) ([]rotation.Photo, error) {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := fmt.Sprintf("%s/photos/random?count=%d", c.baseURL, count)

	log.Debug().
		Int("count", count).
		Str("url", reqURL).
		Msg("Fetching random photos from supply")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Client-ID "+c.accessKey)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	// Handle response status codes
	switch resp.StatusCode {
	case http.StatusOK:
		// Success
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		log.Warn().Msg("Supply API rate limit exceeded")
		return nil, ErrRateLimited
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		log.Warn().Int("status", resp.StatusCode).Msg("Supply API temporary error")
		return nil, ErrSupplyUnavailable
	default:
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	// Read response body
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	// Parse JSON response
	var photos []rotation.Photo
	if err := json.Unmarshal(body, &photos); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if len(photos) != count {
		log.Warn().
			Int("requested", count).
			Int("returned", len(photos)).
			Msg("Supply returned unexpected batch size")
	}

	log.Debug().
		Int("count", len(photos)).
		Msg("Fetched random photos from supply")
	return photos, nil
}

// IsTemporaryError returns true if the error indicates a failure worth
// retrying on a later refresh.
func IsTemporaryError(err error) bool {
	return errors.Is(err, ErrSupplyUnavailable) || errors.Is(err, ErrRateLimited)
}

// rateLimiter implements a simple token bucket rate limiter
type rateLimiter struct {
	mu          sync.Mutex
	interval    time.Duration
	lastRequest time.Time
}

func newRateLimiter(requestsPerSecond int) *rateLimiter {
	interval := time.Second / time.Duration(requestsPerSecond)
	return &rateLimiter{
		interval: interval,
	}
}

// Wait blocks until a request can be made
func (r *rateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	nextAllowed := r.lastRequest.Add(r.interval)

	if now.Before(nextAllowed) {
		waitTime := nextAllowed.Sub(now)
		select {
		case <-time.After(waitTime):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.lastRequest = time.Now()
	return nil
}
