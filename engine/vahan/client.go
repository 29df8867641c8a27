// Package vahan is the HTTP client for the Parivahan public analytics
// dashboard API.
package vahan

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/WessleyAI/vahan-insights/engine/domain"
	"github.com/WessleyAI/vahan-insights/engine/query"
	"github.com/WessleyAI/vahan-insights/pkg/metrics"
)

const (
	DefaultBaseURL   = "https://analytics.parivahan.gov.in/analytics/publicdashboard"
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Mozilla/5.0"
)

// Endpoint paths relative to the base URL.
const (
	EndpointCategories    = "vahandashboard/categoriesdonutchart"
	EndpointTopMakers     = "vahandashboard/top5Makerchart"
	EndpointYearWiseTrend = "vahandashboard/vahanyearwiseregistrationtrend"
	EndpointDurationWise  = "vahandashboard/durationWiseRegistrationTable"
	EndpointTopRevenue    = "vahandashboard/top5chartRevenueFee"
	EndpointRevenueTrend  = "vahandashboard/revenueFeeLineChart"
)

// Options configures a Client. Zero values fall back to the defaults above;
// RatePerSecond <= 0 disables rate limiting.
type Options struct {
	BaseURL       string
	UserAgent     string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	HTTPClient    *http.Client
	Logger        *slog.Logger
	Metrics       *metrics.Registry
}

// Client fetches JSON payloads from the analytics API. It is safe for
// concurrent use.
type Client struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	http      *http.Client
	limiter   *rate.Limiter
	logger    *slog.Logger
	metrics   *metrics.Registry
}

// StatusError is returned for a non-2xx upstream response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d from %s", domain.ErrUpstreamStatus, e.Code, e.URL)
}

func (e *StatusError) Unwrap() error { return domain.ErrUpstreamStatus }

// New creates a Client.
func New(opts Options) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		http:      opts.HTTPClient,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.http == nil {
		c.http = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return c
}

// WithTimeout returns a copy of c that uses d as the per-call timeout. The
// copy shares the rate limiter and HTTP client.
func (c *Client) WithTimeout(d time.Duration) *Client {
	cp := *c
	if d > 0 {
		cp.timeout = d
	}
	return &cp
}

// URL returns the request URL for path and params.
func (c *Client) URL(path string, params query.Params) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if enc := params.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

// GetJSON performs one GET against path and decodes the JSON body. The
// constructed URL is returned even when the call fails so callers can show it
// in diagnostics. There is no retry.
func (c *Client) GetJSON(ctx context.Context, path string, params query.Params) (any, string, error) {
	u := c.URL(path, params)
	endpoint := endpointName(path)
	start := time.Now()

	raw, err := c.get(ctx, u)
	c.observe(endpoint, start, err)
	if err != nil {
		c.logger.Warn("upstream request failed", "endpoint", endpoint, "url", u, "err", err)
		return nil, u, err
	}
	return raw, u, nil
}

func (c *Client) get(ctx context.Context, u string) (any, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("upstream request", "url", u)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode, URL: u}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return DecodePayload(body)
}

func (c *Client) observe(endpoint string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.metrics.Counter(metrics.WithLabels("vahan_upstream_requests_total", "endpoint", endpoint, "outcome", outcome),
		"Upstream API calls by endpoint and outcome.").Inc()
	c.metrics.Histogram(metrics.WithLabels("vahan_upstream_duration_seconds", "endpoint", endpoint),
		"Upstream API call latency.", nil).Since(start)
}

// DecodePayload decodes a JSON body into generic values. Objects become
// map[string]any, arrays []any and numbers float64.
func DecodePayload(body []byte) (any, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	return v, nil
}

func endpointName(path string) string {
	path = strings.Trim(path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
