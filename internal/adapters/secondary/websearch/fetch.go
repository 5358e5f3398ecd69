package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/vibin/deepsearch-chat/internal/logger"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 4 << 20

// FetchOptions configures a Fetcher
type FetchOptions struct {
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	// Client overrides the HTTP client, mainly for tests
	Client *http.Client
}

// Fetcher is the HTTP capability shared by the adapters. Each adapter owns
// one so that rate limits are tracked per provider.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewFetcher creates a Fetcher. A non-positive rate disables limiting.
func NewFetcher(opts FetchOptions) *Fetcher {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Fetcher{client: client, limiter: limiter, userAgent: opts.UserAgent}
}

// Client exposes the underlying HTTP client for SDK based adapters
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// Wait blocks until the provider's rate limit admits another request
func (f *Fetcher) Wait(ctx context.Context) error {
	return f.limiter.Wait(ctx)
}

// Get issues a GET for rawURL with params and the given extra headers and
// returns the body. Non-2xx statuses are errors.
func (f *Fetcher) Get(ctx context.Context, rawURL string, params url.Values, headers map[string]string) ([]byte, error) {
	if err := f.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", u.Host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s returned status %d", u.Host, resp.StatusCode)
	}
	return body, nil
}

// GetJSON issues a GET and decodes the JSON body into v
func (f *Fetcher) GetJSON(ctx context.Context, rawURL string, params url.Values, headers map[string]string, v any) error {
	if headers == nil {
		headers = map[string]string{}
	}
	if _, ok := headers["Accept"]; !ok {
		headers["Accept"] = "application/json"
	}
	body, err := f.Get(ctx, rawURL, params, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// logFailure reports an adapter failure. Adapters never return errors, so
// this is the only trace a failed source leaves.
func logFailure(log logger.Logger, source, query string, err error) {
	log.Warn("Search source failed", "source", source, "query", query, "error", err)
}
