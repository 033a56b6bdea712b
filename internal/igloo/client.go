// Package igloo implements a typed client for the Igloo digital
// workplace REST API: community content search, page retrieval, and
// the member directory. Responses are normalized into the stable
// record shapes consumed by the MCP tools and the console UI.
package igloo

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/google/uuid"

	"github.com/Laisky/igloo-mcp/library/log"
)

const (
	searchPathTemplate  = "/.api2/api/v1/communities/%s/search/contentDetailed"
	memberSearchPath    = "/.api/api.svc/search/members"
	objectViewTemplate  = "/.api/api.svc/objects/%s/view"
	userViewTemplate    = "/.api/api.svc/users/%s/view"
	userProfileTemplate = "/.api/api.svc/users/%s/viewprofile"

	// sessionCookieName carries the platform session key on every request.
	sessionCookieName = "iglooAuth"

	httpRequestTimeout = 10 * time.Second
	// logBodyLimit caps the number of response bytes logged for debugging.
	logBodyLimit = 4096

	defaultPageSize     = 50
	defaultMaxRetries   = 3
	defaultRetryBackoff = 500 * time.Millisecond
	maxRetryDelay       = 10 * time.Second

	// apiDateFormat is the MM-DD-YYYY layout the search endpoint expects.
	apiDateFormat = "01-02-2006"
)

// Option configures the Client instance.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used to communicate with the community.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithLogger overrides the default logger used when no contextual logger is present.
func WithLogger(logger logSDK.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPageSize overrides how many records each remote search call requests.
func WithPageSize(size int) Option {
	return func(c *Client) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// WithMaxRetries overrides how many times a transient failure is retried.
func WithMaxRetries(retries int) Option {
	return func(c *Client) {
		if retries >= 0 {
			c.maxRetries = retries
		}
	}
}

// WithRetryBackoff overrides the base delay between retry attempts.
func WithRetryBackoff(backoff time.Duration) Option {
	return func(c *Client) {
		if backoff > 0 {
			c.retryBackoff = backoff
		}
	}
}

// Client talks to one Igloo community on behalf of an authenticated session.
type Client struct {
	baseURL      string
	communityKey string
	sessionKey   string
	client       *http.Client
	logger       logSDK.Logger
	pageSize     int
	maxRetries   int
	retryBackoff time.Duration
}

// NewClient constructs a community client.
//
// baseURL is the community root, e.g. "https://corp.igloosoftware.com".
// communityKey identifies the community in API routes. sessionKey may be
// empty for communities that allow anonymous reads.
func NewClient(baseURL, communityKey, sessionKey string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid community base url %q", baseURL)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, errors.Errorf("invalid community base url %q", baseURL)
	}
	if strings.TrimSpace(communityKey) == "" {
		return nil, errors.New("community key is required")
	}

	client := &Client{
		baseURL:      trimmed,
		communityKey: strings.TrimSpace(communityKey),
		sessionKey:   strings.TrimSpace(sessionKey),
		client:       &http.Client{Timeout: httpRequestTimeout},
		logger:       log.Logger.Named("igloo"),
		pageSize:     defaultPageSize,
		maxRetries:   defaultMaxRetries,
		retryBackoff: defaultRetryBackoff,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// BaseURL returns the community root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// apiRequest describes one call against the community API.
type apiRequest struct {
	method string
	// target is either a path joined to the community root or an
	// absolute URL inside the community.
	target string
	params url.Values
	accept string
}

// apiResponse is a fully read community response.
type apiResponse struct {
	status int
	header http.Header
	body   []byte
}

// do executes the request with retries for transient failures.
//
// Authentication and client errors surface immediately; network
// failures, rate limiting, and server errors are retried with
// exponential backoff and jitter until the attempt budget runs out.
func (c *Client) do(ctx context.Context, req apiRequest) (*apiResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := c.requestLogger(ctx)
	requestID := uuid.NewString()

	var lastErr error
	var retryAfter time.Duration
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoffDelay(attempt)
			if retryAfter > delay {
				delay = retryAfter
			}
			select {
			case <-ctx.Done():
				return nil, errors.Wrap(ctx.Err(), "wait before retry")
			case <-time.After(delay):
			}
		}

		resp, err := c.send(ctx, req, logger, requestID, attempt)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Wrap(ctx.Err(), "community request canceled")
			}
			lastErr = WrapError(KindTransient, err, "community request failed")
			continue
		}

		typedErr := statusToError(resp)
		if typedErr == nil {
			return resp, nil
		}
		if typedErr.Kind != KindTransient {
			return nil, typedErr
		}
		lastErr = typedErr
		retryAfter = retryAfterDelay(resp.header)
	}

	return nil, lastErr
}

// send performs a single HTTP attempt and reads the full body.
func (c *Client) send(ctx context.Context, req apiRequest, logger logSDK.Logger, requestID string, attempt int) (*apiResponse, error) {
	target := req.target
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = c.baseURL + target
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "create community request for %q", target)
	}

	if len(req.params) > 0 {
		query := httpReq.URL.Query()
		for key, values := range req.params {
			for _, value := range values {
				query.Add(key, value)
			}
		}
		httpReq.URL.RawQuery = query.Encode()
	}

	accept := req.accept
	if accept == "" {
		accept = "application/json"
	}
	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set("X-Request-Id", requestID)
	if c.sessionKey != "" {
		httpReq.AddCookie(&http.Cookie{Name: sessionCookieName, Value: c.sessionKey})
	}

	if logger != nil {
		logger.Debug("outgoing http request",
			zap.String("method", httpReq.Method),
			zap.String("url", httpReq.URL.String()),
			zap.String("request_id", requestID),
			zap.Int("attempt", attempt),
		)
	}

	startAt := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "send community request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read community response body")
	}

	if logger != nil {
		truncatedBody, truncated := truncateForLog(body, logBodyLimit)
		logger.Debug("incoming http response",
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncatedBody),
			zap.Bool("body_truncated", truncated),
			zap.Duration("cost", time.Since(startAt)),
			zap.String("request_id", requestID),
		)
	}

	return &apiResponse{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

// requestLogger prefers the request-scoped logger when one is present.
func (c *Client) requestLogger(ctx context.Context) logSDK.Logger {
	if ctx != nil {
		if ctxLogger := gmw.GetLogger(ctx); ctxLogger != nil {
			return ctxLogger.Named("igloo")
		}
	}
	return c.logger
}

// backoffDelay computes the pause before the given retry attempt.
func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.retryBackoff << (attempt - 1)
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	if delay <= 0 {
		return 0
	}
	return delay + rand.N(delay/2+1)
}

// retryAfterDelay honors the Retry-After header in seconds or HTTP-date form.
func retryAfterDelay(header http.Header) time.Duration {
	value := strings.TrimSpace(header.Get("Retry-After"))
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return clampRetryDelay(time.Duration(secs) * time.Second)
	}
	if at, err := http.ParseTime(value); err == nil {
		return clampRetryDelay(time.Until(at))
	}
	return 0
}

func clampRetryDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}

// statusToError maps a non-2xx community response onto the error taxonomy.
func statusToError(resp *apiResponse) *Error {
	if resp.status >= http.StatusOK && resp.status < http.StatusMultipleChoices {
		return nil
	}
	body, _ := truncateForLog(resp.body, logBodyLimit)
	switch {
	case resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden:
		return NewError(KindAuth, fmt.Sprintf("community rejected session: status %d", resp.status))
	case resp.status == http.StatusNotFound:
		return NewError(KindNotFound, fmt.Sprintf("community returned status %d", resp.status))
	case resp.status == http.StatusTooManyRequests:
		return NewError(KindTransient, fmt.Sprintf("community rate limited request: status %d", resp.status))
	case resp.status >= http.StatusInternalServerError:
		return NewError(KindTransient, fmt.Sprintf("community returned status %d: %s", resp.status, body))
	}
	return NewError(KindValidation, fmt.Sprintf("community rejected request: status %d: %s", resp.status, body))
}

// truncateForLog limits the payload logged for debugging and reports whether truncation occurred.
func truncateForLog(body []byte, limit int) (string, bool) {
	if len(body) <= limit {
		return string(body), false
	}
	return string(body[:limit]), true
}
