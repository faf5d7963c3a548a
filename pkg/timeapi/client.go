// Package timeapi is a client for the clock's backend time service.
package timeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// Endpoint paths on the time service.
const (
	PathTimezones = "/api/timezones"
	PathLocal     = "/api/time/local"
	PathConvert   = "/api/time/convert"
	PathHealth    = "/api/health"
)

// maxErrorBody caps how much of an error response is kept for logging.
const maxErrorBody = 512

// Doer sends HTTP requests. *http.Client and *httpcache.CachedClient satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the time service.
type Client struct {
	logger   *slog.Logger
	http     Doer
	catalog  Doer
	baseURL  *url.URL
	delay    time.Duration
	attempts uint
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the transport for all requests.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		c.http = d
	}
}

// WithCatalogClient sets the transport for timezone list requests, typically
// a caching client.
func WithCatalogClient(d Doer) Option {
	return func(c *Client) {
		c.catalog = d
	}
}

// WithAttempts sets how many times a request is tried. 1 disables retries.
func WithAttempts(n uint) Option {
	return func(c *Client) {
		c.attempts = max(n, 1)
	}
}

// WithRetryDelay sets the base backoff between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.delay = d
	}
}

// New creates a client for the service at baseURL.
func New(baseURL string, logger *slog.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		logger:   logger,
		baseURL:  u,
		attempts: 1,
		delay:    250 * time.Millisecond,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.catalog == nil {
		c.catalog = c.http
	}
	return c, nil
}

// BaseURL returns the service address.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ListTimezones fetches the full list of supported timezone names.
func (c *Client) ListTimezones(ctx context.Context) ([]string, error) {
	var zones []string
	if err := c.do(ctx, c.catalog, http.MethodGet, PathTimezones, nil, nil, &zones); err != nil {
		return nil, fmt.Errorf("listing timezones: %w", err)
	}
	return zones, nil
}

// SearchTimezones asks the service for names containing query.
func (c *Client) SearchTimezones(ctx context.Context, query string) ([]string, error) {
	params := url.Values{}
	params.Set("query", query)

	var zones []string
	if err := c.do(ctx, c.http, http.MethodGet, PathTimezones, params, nil, &zones); err != nil {
		return nil, fmt.Errorf("searching timezones: %w", err)
	}
	return zones, nil
}

// LocalTime resolves the current time in timezone shifted by offsetHours.
func (c *Client) LocalTime(ctx context.Context, timezone string, offsetHours float64) (*TimeResponse, error) {
	body := LocalTimeRequest{Timezone: timezone, OffsetHours: offsetHours}

	var out TimeResponse
	if err := c.do(ctx, c.http, http.MethodPost, PathLocal, nil, body, &out); err != nil {
		return nil, timeError(timezone, err)
	}
	return &out, nil
}

// Convert resolves the shifted current time in from and converts it to to.
func (c *Client) Convert(ctx context.Context, from, to string, offsetHours float64) (*TimeResponse, error) {
	body := ConvertTimeRequest{FromTimezone: from, ToTimezone: to, OffsetHours: offsetHours}

	var out TimeResponse
	if err := c.do(ctx, c.http, http.MethodPost, PathConvert, nil, body, &out); err != nil {
		return nil, timeError(from+" -> "+to, err)
	}
	return &out, nil
}

// Health checks that the service is reachable.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, c.http, http.MethodGet, PathHealth, nil, nil, &out); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	if out.Status != "ok" {
		return fmt.Errorf("health check: status %q", out.Status)
	}
	return nil
}

func timeError(subject string, err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return fmt.Errorf("%w %s: %w", ErrInvalidTimezone, subject, err)
	}
	return fmt.Errorf("fetching time for %s: %w", subject, err)
}

// do sends one logical request, retrying transport failures and 5xx
// responses up to c.attempts times, and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, transport Doer, method, path string, params url.Values, in, out any) error {
	start := time.Now()

	u := c.baseURL.JoinPath(path)
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	target := u.String()

	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
	}

	c.logger.Debug("making API request", "method", method, "url", target)

	var lastErr error
	err := retry.Do(
		func() error {
			var body io.Reader = http.NoBody
			if payload != nil {
				body = bytes.NewReader(payload)
			}
			req, err := http.NewRequestWithContext(ctx, method, target, body)
			if err != nil {
				lastErr = fmt.Errorf("building request: %w", err)
				return retry.Unrecoverable(lastErr)
			}
			req.Header.Set("Accept", "application/json")
			if payload != nil {
				req.Header.Set("Content-Type", "application/json")
			}

			resp, err := transport.Do(req)
			if err != nil {
				lastErr = err
				return err
			}
			defer func() {
				if closeErr := resp.Body.Close(); closeErr != nil {
					c.logger.Debug("failed to close response body", "error", closeErr)
				}
			}()

			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
				statusErr := &StatusError{
					Method: method,
					Path:   path,
					Code:   resp.StatusCode,
					Body:   strings.TrimSpace(string(raw)),
				}
				lastErr = statusErr
				if statusErr.Temporary() {
					return statusErr
				}
				return retry.Unrecoverable(statusErr)
			}

			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				lastErr = fmt.Errorf("decoding %s response: %w", path, err)
				return retry.Unrecoverable(lastErr)
			}
			lastErr = nil
			return nil
		},
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.MaxDelay(10*time.Second),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Info("retrying API request", "path", path, "attempt", n+1, "error", err)
		}),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		c.logger.Debug("API request failed", "method", method, "path", path, "error", lastErr, "duration", time.Since(start))
		return lastErr
	}

	c.logger.Debug("API request completed", "method", method, "path", path, "duration", time.Since(start))
	return nil
}
