package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/tidwall/gjson"

	"github.com/MohamedElashri/cerngitlab-mcp/internal/httpclient"
	"github.com/MohamedElashri/cerngitlab-mcp/internal/interfaces"
)

const (
	// DefaultInstanceURL is the CERN GitLab instance
	DefaultInstanceURL = "https://gitlab.cern.ch"

	// DefaultTimeout is the per-request HTTP timeout
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies the server to the forge
	DefaultUserAgent = "cerngitlab-mcp"

	DefaultPerPage = 20
	MaxPerPage     = 100

	apiPrefix = "/api/v4"
)

// Client is a read-only GitLab REST v4 client. Every request passes the
// shared rate limiter and the retry policy.
type Client struct {
	instanceURL string
	baseURL     string
	token       string
	userAgent   string
	timeout     time.Duration
	httpClient  *http.Client
	logger      arbor.ILogger
	limiter     interfaces.RateLimiter
	retry       RetryPolicy

	defaultPerPage     int
	maxPerPage         int
	searchRequiresAuth bool

	sleep  func(ctx context.Context, d time.Duration) error
	random func() float64
	now    func() time.Time
}

// Compile-time assertions
var (
	_ interfaces.ProjectSource = (*Client)(nil)
	_ interfaces.RateLimiter   = (*SlidingWindowLimiter)(nil)
)

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithToken sets the personal access token
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithHTTPClient sets a custom HTTP client. Authentication is then up to the caller.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-request HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithLimiter injects the shared rate limiter
func WithLimiter(limiter interfaces.RateLimiter) ClientOption {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithRetryPolicy sets the retry policy
func WithRetryPolicy(policy RetryPolicy) ClientOption {
	return func(c *Client) {
		c.retry = policy.normalize()
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithPageSizes sets the default and maximum page sizes for listings
func WithPageSizes(defaultPerPage, maxPerPage int) ClientOption {
	return func(c *Client) {
		if maxPerPage > 0 {
			c.maxPerPage = maxPerPage
		}
		if defaultPerPage > 0 {
			c.defaultPerPage = defaultPerPage
		}
	}
}

// WithSearchRequiresAuth declares that the instance refuses anonymous code search
func WithSearchRequiresAuth(required bool) ClientOption {
	return func(c *Client) {
		c.searchRequiresAuth = required
	}
}

// NewClient creates a new GitLab API client for instanceURL
func NewClient(instanceURL string, opts ...ClientOption) *Client {
	if instanceURL == "" {
		instanceURL = DefaultInstanceURL
	}
	instanceURL = strings.TrimRight(instanceURL, "/")

	c := &Client{
		instanceURL:        instanceURL,
		baseURL:            instanceURL + apiPrefix,
		userAgent:          DefaultUserAgent,
		timeout:            DefaultTimeout,
		logger:             arbor.NewLogger(),
		retry:              DefaultRetryPolicy(),
		defaultPerPage:     DefaultPerPage,
		maxPerPage:         MaxPerPage,
		searchRequiresAuth: true,
		sleep:              sleepContext,
		random:             rand.Float64,
		now:                time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = httpclient.NewTokenHTTPClient(c.timeout, c.token)
	}
	if c.limiter == nil {
		c.limiter = NewSlidingWindowLimiter(DefaultRequestsPerMinute, WithLimiterLogger(c.logger))
	}
	if c.defaultPerPage > c.maxPerPage {
		c.defaultPerPage = c.maxPerPage
	}

	return c
}

// InstanceURL returns the forge URL without the API prefix
func (c *Client) InstanceURL() string {
	return c.instanceURL
}

// HasToken reports whether requests are authenticated
func (c *Client) HasToken() bool {
	return c.token != ""
}

// ClampPerPage bounds a caller supplied page size to the configured limits
func (c *Client) ClampPerPage(perPage int) int {
	if perPage <= 0 {
		return c.defaultPerPage
	}
	if perPage > c.maxPerPage {
		return c.maxPerPage
	}
	return perPage
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// do performs a GET request against endpoint, which must already be escaped.
// It gates every attempt on the limiter and retries transient failures.
func (c *Client) do(ctx context.Context, endpoint string, params url.Values) (*response, error) {
	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var (
		lastStatus int
		lastErr    error
		override   time.Duration
		overridden bool
	)

	for attempt := 1; ; attempt++ {
		if attempt > 1 {
			delay := c.retry.Delay(attempt, c.random)
			if overridden {
				delay = override
			}
			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Int("last_status", lastStatus).
				Str("delay", delay.String()).
				Msg("Retrying GitLab request")
			if err := c.sleep(ctx, delay); err != nil {
				return nil, AsTimeout(ctx, endpoint, err)
			}
		}
		overridden = false

		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, AsTimeout(ctx, endpoint, err)
		}

		resp, err := c.attempt(ctx, reqURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, AsTimeout(ctx, endpoint, ctx.Err())
			}
			lastErr, lastStatus = err, 0
			c.logger.Debug().Err(err).Str("endpoint", endpoint).Int("attempt", attempt).Msg("GitLab transport error")
			if attempt >= c.retry.MaxAttempts {
				return nil, &TransientUpstreamError{Endpoint: endpoint, Attempts: attempt, LastErr: lastErr}
			}
			continue
		}

		switch {
		case resp.status >= 200 && resp.status < 300:
			return resp, nil

		case c.retry.IsRetryableStatus(resp.status):
			lastErr, lastStatus = nil, resp.status
			if attempt >= c.retry.MaxAttempts {
				return nil, &TransientUpstreamError{Endpoint: endpoint, Attempts: attempt, LastStatus: lastStatus}
			}
			if resp.status == http.StatusTooManyRequests {
				if d, ok := parseRetryAfter(resp.header.Get("Retry-After"), c.now()); ok {
					override, overridden = d, true
				}
			}

		default:
			return nil, &RequestRejectedError{
				StatusCode: resp.status,
				Message:    errorMessage(resp.body),
				Endpoint:   endpoint,
			}
		}
	}
}

func (c *Client) attempt(ctx context.Context, reqURL string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &response{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

// get performs a GET request and decodes the JSON answer into result
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	resp, err := c.do(ctx, endpoint, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.body, result); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", endpoint, err)
	}
	return nil
}

// errorMessage extracts GitLab's structured error body ({"message": ...} or {"error": ...})
func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, field := range []string{"message", "error_description", "error"} {
			if v := gjson.GetBytes(body, field); v.Exists() {
				return v.String()
			}
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return msg
}

// authRequired maps 401/403 rejections onto AuthRequiredError
func (c *Client) authRequired(operation string, err error) error {
	var rejected *RequestRejectedError
	if errors.As(err, &rejected) && !c.HasToken() &&
		(rejected.StatusCode == http.StatusUnauthorized || rejected.StatusCode == http.StatusForbidden) {
		return &AuthRequiredError{Operation: operation}
	}
	return err
}
