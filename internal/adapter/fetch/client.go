// Package fetch implements the page fetcher with retry and backoff.
// Callers never retry on top of it.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"cyberbrief/internal/domain"
)

const (
	maxTries         = 3
	maxResponseBytes = 4 << 20 // 4MB
	googleCacheBase  = "http://webcache.googleusercontent.com/search?q=cache:"
)

// Browser-like user agents rotated per request. Some security outlets
// serve 403 to anything that looks like a bot.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
}

// Client fetches pages with retries and header rotation.
type Client struct {
	hc              *http.Client
	initialInterval time.Duration
	maxInterval     time.Duration
	cacheBase       string
}

// New constructs a fetch client with the given per-request timeout.
func New(timeout time.Duration) *Client {
	return &Client{
		hc:              &http.Client{Timeout: timeout},
		initialInterval: 2 * time.Second,
		maxInterval:     10 * time.Second,
		cacheBase:       googleCacheBase,
	}
}

// Fetch retrieves url with up to three tries under exponential backoff.
// A 403 is retried once through the Google cache before counting as a
// failure.
func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.initialInterval
	expo.MaxInterval = c.maxInterval

	var body string
	op := func() error {
		var err error
		body, err = c.fetchOnce(ctx, url)
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, maxTries-1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return "", fmt.Errorf("op=fetch: url=%s: %w", url, err)
	}
	return body, nil
}

func (c *Client) fetchOnce(ctx context.Context, url string) (string, error) {
	resp, err := c.do(ctx, url)
	if err != nil {
		return "", err
	}

	// Some sites 403 scrapers while the Google cache still serves them.
	if resp.StatusCode == http.StatusForbidden {
		_ = resp.Body.Close()
		slog.Warn("got 403, trying google cache", slog.String("url", url))
		resp, err = c.do(ctx, c.cacheBase+url)
		if err != nil {
			return "", err
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", err
	}
	if len(b) == 0 {
		return "", domain.ErrTransportEmpty
	}
	return string(b), nil
}

func (c *Client) do(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers() {
		req.Header.Set(k, v)
	}
	return c.hc.Do(req)
}

func headers() map[string]string {
	return map[string]string{
		"User-Agent":      userAgents[rand.Intn(len(userAgents))],
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
		"DNT":             "1",
		"Referer":         "https://www.google.com/",
		"Cache-Control":   "max-age=0",
	}
}
