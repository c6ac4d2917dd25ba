// Package client provides the HTTP catalog gateway with rate limiting,
// retries and error classification.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/card-catalog-client/pkg/catalog"
	"github.com/Sternrassler/card-catalog-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Catalog API endpoints.
const (
	EndpointPartition = "/cards"
	EndpointSearch    = "/cards/search"
)

// Prometheus metrics for catalog client operations.
var (
	catalogRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_requests_total",
		Help: "Total catalog requests by endpoint and status",
	}, []string{"endpoint", "status"})

	catalogRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_request_duration_seconds",
		Help:    "Catalog request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	catalogErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_errors_total",
		Help: "Total catalog errors by class",
	}, []string{"class"})
)

// Client is the HTTP implementation of catalog.Gateway.
type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	rateLimiter *ratelimit.Tracker
	limiter     *rate.Limiter
	config      Config
	logger      zerolog.Logger
}

var _ catalog.Gateway = (*Client)(nil)

// Config holds the client configuration.
type Config struct {
	// BaseURL of the catalog API, e.g. "https://api.example.com/api"
	BaseURL string

	// User-Agent header sent with every request
	UserAgent string

	// Redis client for the shared request budget (optional)
	Redis *redis.Client

	// Local pacing: steady requests per second and burst size
	RequestsPerSecond float64
	Burst             int

	// Timeout per HTTP attempt
	Timeout time.Duration

	// Retry policy for server, rate limit and network failures
	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:           baseURL,
		UserAgent:         userAgent,
		RequestsPerSecond: 5,
		Burst:             2,
		Timeout:           30 * time.Second,
		Retry:             DefaultRetryConfig(),
	}
}

// New creates a new catalog client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}
	base.Path = strings.TrimSuffix(base.Path, "/")

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	logger := log.With().Str("component", "catalog-client").Logger()

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: base,
		limiter: rate.NewLimiter(limit, burst),
		config:  cfg,
		logger:  logger,
	}

	if cfg.Redis != nil {
		c.rateLimiter = ratelimit.NewTracker(cfg.Redis, logger)
	}

	return c, nil
}

// FetchByPartition fetches one page of an expansion.
func (c *Client) FetchByPartition(ctx context.Context, partition catalog.Partition, page, pageSize int) (catalog.PageResult, error) {
	q := url.Values{}
	q.Set("code", string(partition))
	return c.getPage(ctx, EndpointPartition, q, page, pageSize)
}

// FetchByFilter fetches one page of search results.
func (c *Client) FetchByFilter(ctx context.Context, filters catalog.Filters, page, pageSize int) (catalog.PageResult, error) {
	return c.getPage(ctx, EndpointSearch, filters.Query(), page, pageSize)
}

// getPage requests and decodes one page.
func (c *Client) getPage(ctx context.Context, endpoint string, q url.Values, page, pageSize int) (catalog.PageResult, error) {
	var result catalog.PageResult

	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(pageSize))

	resp, err := c.Get(ctx, endpoint, q)
	if err != nil {
		return result, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		catalogErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return catalog.PageResult{}, &TransportError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			Message:    "decode page",
			Err:        err,
		}
	}
	if result.TotalPages < 0 {
		catalogErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return catalog.PageResult{}, &TransportError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			Message:    fmt.Sprintf("negative totalPages %d", result.TotalPages),
		}
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("page", page).
		Int("items", len(result.Items)).
		Int("total_pages", result.TotalPages).
		Msg("Page fetched")

	return result, nil
}

// Get performs a GET request to a catalog endpoint.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + endpoint
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req, endpoint)
}

// Do performs an HTTP request with rate limiting, retries and error handling.
// endpoint is the metrics label for the request. Any status >= 400 is
// returned as a *TransportError.
func (c *Client) Do(req *http.Request, endpoint string) (*http.Response, error) {
	ctx := req.Context()

	startTime := time.Now()
	defer func() {
		catalogRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: shared budget
	if c.rateLimiter != nil {
		allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Rate limit check failed")
			if ctx.Err() != nil {
				return nil, c.networkError(endpoint, fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err()))
			}
			// Redis trouble must not stop browsing; fall through to local pacing
		} else if !allowed {
			c.logger.Warn().
				Str("endpoint", endpoint).
				Msg("Request blocked by rate limiter")
			catalogRequestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
			catalogErrorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
			return nil, &TransportError{
				Endpoint:   endpoint,
				ErrorClass: ErrorClassRateLimit,
				Message:    "shared request budget exhausted",
				Err:        ErrRequestBlocked,
			}
		}
	}

	// Step 2: local pacing
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.networkError(endpoint, fmt.Errorf("%w: %w", ErrContextCancelled, err))
	}

	// Step 3: headers
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("url", req.URL.String()).
		Msg("Executing catalog request")

	// Step 4: request with retry
	var resp *http.Response
	retryErr := retryWithBackoff(ctx, c.config.Retry, func() (ErrorClass, error) {
		var reqErr error
		resp, reqErr = c.httpClient.Do(req)
		if reqErr != nil {
			c.logger.Error().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			catalogErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			catalogRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return ErrorClassNetwork, &TransportError{
				Endpoint:   endpoint,
				ErrorClass: ErrorClassNetwork,
				Message:    "request failed",
				Err:        reqErr,
			}
		}

		if c.rateLimiter != nil {
			if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
			}
		}

		catalogRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode >= 400 {
			errClass := classifyStatus(resp.StatusCode)
			catalogErrorsTotal.WithLabelValues(string(errClass)).Inc()

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("Catalog request error")

			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			msg := resp.Status
			if len(body) > 0 {
				msg = resp.Status + ": " + strings.TrimSpace(string(body))
			}
			return errClass, &TransportError{
				Endpoint:   endpoint,
				StatusCode: resp.StatusCode,
				ErrorClass: errClass,
				Message:    msg,
			}
		}

		return "", nil
	})
	if retryErr != nil {
		// Retry exhaustion wraps the last TransportError; cancellation does not
		if errors.Is(retryErr, ErrContextCancelled) {
			return nil, c.networkError(endpoint, retryErr)
		}
		return nil, retryErr
	}

	return resp, nil
}

func (c *Client) networkError(endpoint string, err error) *TransportError {
	catalogErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
	return &TransportError{
		Endpoint:   endpoint,
		ErrorClass: ErrorClassNetwork,
		Message:    "request aborted",
		Err:        err,
	}
}

// classifyStatus categorizes an HTTP error status.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	default:
		return ErrorClassServer
	}
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
