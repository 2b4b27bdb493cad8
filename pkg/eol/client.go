// Package eol looks up product release cycles and end-of-life data from an
// endoflife.date compatible API.
package eol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"eolmatch/pkg/backoff"
	"eolmatch/pkg/logx"
)

// DefaultBaseURL is the public endoflife.date API root.
const DefaultBaseURL = "https://endoflife.date/api"

const maxBodyBytes = 10 << 20

// Error types reported by the remote lookup.
const (
	ErrTypeTimeout      = "TIMEOUT"
	ErrTypeRequest      = "REQUEST_ERROR"
	ErrTypeHTTP         = "HTTP_ERROR"
	ErrTypeMaxRetries   = "MAX_RETRIES"
	ErrTypeInvalidInput = "INVALID_INPUT"
	ErrTypeUnexpected   = "UNEXPECTED_ERROR"

	ErrTypeProductNotFound     = "PRODUCT_NOT_FOUND"
	ErrTypeNoVersionData       = "NO_VERSION_DATA"
	ErrTypeNoVersionsFound     = "NO_VERSIONS_FOUND"
	ErrTypeVersionNotFound     = "VERSION_NOT_FOUND"
	ErrTypeVersionDataNotFound = "VERSION_DATA_NOT_FOUND"
)

// OutcomeKind classifies a Fetch result.
type OutcomeKind int

const (
	// Success means the API answered 200 with a parsable payload.
	Success OutcomeKind = iota
	// NotFound means the product identifier does not exist upstream.
	NotFound
	// TransientFailure means timeouts, connection errors or rate limiting outlasted the attempt budget.
	TransientFailure
	// PermanentFailure means a non-retryable response was received.
	PermanentFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "SUCCESS"
	case NotFound:
		return "NOT_FOUND"
	case TransientFailure:
		return "TRANSIENT_FAILURE"
	case PermanentFailure:
		return "PERMANENT_FAILURE"
	default:
		return "UNKNOWN"
	}
}

// Outcome is the result of one Fetch, including every retry it made.
type Outcome struct {
	ErrorType  string
	Message    string
	Releases   []Release
	Kind       OutcomeKind
	StatusCode int
	Attempts   int
}

// RetryPolicy bounds attempts and chooses the wait after each failed attempt.
type RetryPolicy struct {
	RateLimited backoff.Func // delay after a 429
	Transient   backoff.Func // delay after a timeout or connection error
	MaxAttempts int
}

// DefaultRetryPolicy waits 5s*(n+1) after rate limiting and 2^n seconds after transport errors.
func DefaultRetryPolicy(maxAttempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		RateLimited: backoff.Linear(5 * time.Second),
		Transient:   backoff.Exponential(time.Second, 2, 0),
	}
}

// Client fetches release data for a single product identifier.
type Client struct {
	httpClient *http.Client
	sleeper    backoff.Sleeper
	logger     *logx.Logger
	baseURL    string
	policy     RetryPolicy
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSleeper overrides how the client waits between attempts.
func WithSleeper(s backoff.Sleeper) Option {
	return func(c *Client) { c.sleeper = s }
}

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.policy = p }
}

// WithLogger overrides the logger.
func WithLogger(l *logx.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for baseURL. Each attempt is bounded by timeout.
func NewClient(baseURL string, timeout time.Duration, maxAttempts int, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{},
		sleeper:    backoff.Real(),
		policy:     DefaultRetryPolicy(maxAttempts),
		logger:     logx.NewLogger("eol"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.policy.MaxAttempts < 1 {
		c.policy.MaxAttempts = 1
	}
	return c
}

// failure is the per-attempt classification used by the retry loop.
type failure int

const (
	failNone failure = iota
	failRateLimited
	failTimeout
	failConnection
)

// Fetch performs GET <base>/<productID>.json with retries. It never returns an error;
// every failure is encoded in the Outcome.
func (c *Client) Fetch(ctx context.Context, productID string) Outcome {
	endpoint := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(productID))
	maxAttempts := c.policy.MaxAttempts

	var last Outcome
	var lastFailure failure
	for attempt := 0; attempt < maxAttempts; attempt++ {
		c.logger.Info("Calling %s (attempt %d/%d)", endpoint, attempt+1, maxAttempts)

		out, kind := c.attempt(ctx, endpoint, productID)
		out.Attempts = attempt + 1
		if kind == failNone {
			return out
		}
		last, lastFailure = out, kind

		if ctx.Err() != nil {
			return last
		}
		if attempt == maxAttempts-1 {
			break
		}

		var delay time.Duration
		if kind == failRateLimited {
			delay = c.policy.RateLimited(attempt)
			c.logger.Warn("Rate limited by %s, waiting %s before retry", endpoint, delay)
		} else {
			delay = c.policy.Transient(attempt)
			c.logger.Warn("%s: %s, retrying in %s", last.ErrorType, last.Message, delay)
		}
		if err := c.sleeper.Sleep(ctx, delay); err != nil {
			last.Message = fmt.Sprintf("retry cancelled: %v", err)
			return last
		}
	}

	last.Attempts = maxAttempts
	if lastFailure == failRateLimited {
		last.ErrorType = ErrTypeMaxRetries
		last.Message = fmt.Sprintf("Failed after %d attempts", maxAttempts)
	}
	c.logger.Error("Giving up on %s after %d attempts: %s", endpoint, maxAttempts, last.Message)
	return last
}

func (c *Client) attempt(ctx context.Context, endpoint, productID string) (Outcome, failure) {
	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return Outcome{Kind: PermanentFailure, ErrorType: ErrTypeRequest, Message: err.Error()}, failNone
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return Outcome{
				Kind:      TransientFailure,
				ErrorType: ErrTypeTimeout,
				Message:   fmt.Sprintf("Connection timeout after %s", c.timeout),
			}, failTimeout
		}
		return Outcome{Kind: TransientFailure, ErrorType: ErrTypeRequest, Message: err.Error()}, failConnection
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if isTimeout(ctx, err) {
			return Outcome{
				Kind:      TransientFailure,
				ErrorType: ErrTypeTimeout,
				Message:   fmt.Sprintf("Timeout reading response after %s", c.timeout),
			}, failTimeout
		}
		return Outcome{Kind: TransientFailure, ErrorType: ErrTypeRequest, Message: err.Error()}, failConnection
	}

	switch resp.StatusCode {
	case http.StatusOK:
		releases, err := parseReleases(body)
		if err != nil {
			return Outcome{
				Kind:       PermanentFailure,
				ErrorType:  ErrTypeRequest,
				Message:    err.Error(),
				StatusCode: resp.StatusCode,
			}, failNone
		}
		return Outcome{Kind: Success, Releases: releases, StatusCode: resp.StatusCode}, failNone
	case http.StatusNotFound:
		return Outcome{
			Kind:       NotFound,
			ErrorType:  ErrTypeProductNotFound,
			Message:    fmt.Sprintf("Product '%s' not found in endoflife.date database", productID),
			StatusCode: resp.StatusCode,
		}, failNone
	case http.StatusTooManyRequests:
		return Outcome{
			Kind:       TransientFailure,
			ErrorType:  ErrTypeMaxRetries,
			Message:    "rate limited",
			StatusCode: resp.StatusCode,
		}, failRateLimited
	default:
		return Outcome{
			Kind:       PermanentFailure,
			ErrorType:  ErrTypeHTTP,
			Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(body), 200)),
			StatusCode: resp.StatusCode,
		}, failNone
	}
}

// isTimeout distinguishes the per-attempt deadline from cancellation of the parent context.
func isTimeout(parent context.Context, err error) bool {
	if parent.Err() != nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func parseReleases(body []byte) ([]Release, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid JSON payload")
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, nil
	}
	records := root.Array()
	releases := make([]Release, 0, len(records))
	for _, rec := range records {
		releases = append(releases, newRelease(rec))
	}
	return releases, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
