// Package fetch provides the HTTP layer shared by all scrapers: bounded
// retries with exponential backoff for transient failures, and a fixed
// post-success delay so every caller is throttled identically.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultAttempts    = 3
	defaultBackoffBase = 2 * time.Second
	defaultBackoffMax  = 10 * time.Second
)

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.Code, e.URL)
}

// Retryable reports whether the status indicates a transient condition.
// Server errors and 429 are retried; other 4xx are terminal.
func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// Options configures a Fetcher. Zero values fall back to defaults.
type Options struct {
	Timeout     time.Duration
	Attempts    int
	RateLimit   time.Duration
	UserAgent   string
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// Fetcher issues throttled HTTP GETs with retry and backoff.
type Fetcher struct {
	client      *http.Client
	attempts    int
	rateLimit   time.Duration
	userAgent   string
	backoffBase time.Duration
	backoffMax  time.Duration
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Attempts == 0 {
		opts.Attempts = defaultAttempts
	}
	if opts.BackoffBase == 0 {
		opts.BackoffBase = defaultBackoffBase
	}
	if opts.BackoffMax == 0 {
		opts.BackoffMax = defaultBackoffMax
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		attempts:    opts.Attempts,
		rateLimit:   opts.RateLimit,
		userAgent:   opts.UserAgent,
		backoffBase: opts.BackoffBase,
		backoffMax:  opts.BackoffMax,
	}
}

// Fetch GETs a URL, retrying transient failures up to the configured attempt
// count. On success it sleeps the rate-limit delay before returning, so
// successful fetches impose a minimum spacing between requests.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	wait := f.backoffBase

	for attempt := 1; ; attempt++ {
		body, err := f.do(ctx, rawURL, params)
		if err == nil {
			if f.rateLimit > 0 {
				time.Sleep(f.rateLimit)
			}
			return body, nil
		}

		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return nil, err
		}

		if attempt >= f.attempts {
			return nil, fmt.Errorf("giving up on %s after %d attempts: %w", rawURL, attempt, err)
		}

		log.Printf("fetch attempt %d/%d failed for %s: %v", attempt, f.attempts, rawURL, err)
		time.Sleep(wait)
		wait *= 2
		if wait > f.backoffMax {
			wait = f.backoffMax
		}
	}
}

func (f *Fetcher) do(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	target := rawURL
	if len(params) > 0 {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("parsing url: %w", err)
		}
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
		target = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &StatusError{Code: resp.StatusCode, URL: rawURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}
