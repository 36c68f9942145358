// Package apiclient is the authenticated HTTP client for the storefront
// backend: bearer injection, one refresh-and-retry on 401, typed errors.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"tellme/internal/core"
	"tellme/internal/idgen"
	"tellme/internal/observability/metrics"
	"tellme/internal/tokens"
)

const (
	// DefaultBaseURL is the local backend the storefront talks to
	DefaultBaseURL = "http://127.0.0.1:8000/api"
	DefaultTimeout = 30 * time.Second

	// RequestIDHeader carries the per-request correlation id
	RequestIDHeader = "X-Request-ID"

	refreshPath = "/accounts/refresh/"
)

// Options configures a Client
type Options struct {
	BaseURL           string
	Timeout           time.Duration
	// RequestsPerSecond limits outbound attempts; zero disables limiting
	RequestsPerSecond float64
	Burst             int
	HTTPClient        *http.Client
	Logger            *slog.Logger
	Metrics           *metrics.ClientMetrics
}

// Client performs backend calls on behalf of every component
type Client struct {
	baseURL string
	http    *http.Client
	tokens  tokens.Store
	logger  *slog.Logger
	metrics *metrics.ClientMetrics
	limiter *rate.Limiter

	refreshGroup singleflight.Group
}

// New creates a client over the given token store
func New(store tokens.Store, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    httpClient,
		tokens:  store,
		logger:  opts.Logger.With("component", "apiclient"),
		metrics: opts.Metrics,
		limiter: limiter,
	}
}

// Tokens returns the store the client reads credentials from
func (c *Client) Tokens() tokens.Store {
	return c.tokens
}

// BaseURL returns the API root requests are resolved against
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs req. A 401 on an authenticated request triggers at most one
// refresh followed by exactly one retry with identical body bytes.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	body, err := req.encode()
	if err != nil {
		return nil, err
	}

	var access string
	var creds *core.Credentials
	if req.Auth != AuthNone {
		creds = c.tokens.Get(ctx)
		if creds.HasAccess() {
			access = creds.AccessToken
		} else if req.Auth == AuthRequired {
			return nil, core.ErrNotAuthenticated
		}
	}

	resp, err := c.send(ctx, req, body, access, 1)
	if err != nil {
		return nil, err
	}
	// Without a token the 401 is the backend's answer, not an expired session
	if resp.Status != http.StatusUnauthorized || access == "" {
		return finish(resp)
	}

	if !creds.HasRefresh() {
		c.logger.Debug("401 without refresh token", "method", req.method(), "path", req.Path)
		c.expireSession(ctx, creds.RefreshToken)
		return nil, core.ErrSessionExpired
	}

	fresh, err := c.refreshAccess(ctx, creds.RefreshToken, access)
	if err != nil {
		// Transport failures and malformed replies leave the session for a later retry
		if httpErr, ok := core.AsHTTPError(err); ok && httpErr.Status < http.StatusInternalServerError {
			c.expireSession(ctx, creds.RefreshToken)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrSessionExpired, err)
	}

	retried, err := c.send(ctx, req, body, fresh, 2)
	if err != nil {
		return nil, err
	}
	if retried.Status == http.StatusUnauthorized {
		c.logger.Warn("request rejected after token refresh", "method", req.method(), "path", req.Path)
		c.expireSession(ctx, creds.RefreshToken)
		return nil, core.ErrSessionExpired
	}
	return finish(retried)
}

// expireSession clears stored credentials unless a newer sign-in replaced
// the refresh token the failed request was holding
func (c *Client) expireSession(ctx context.Context, refresh string) {
	current := c.tokens.Get(ctx)
	if current == nil || current.RefreshToken != refresh {
		return
	}
	c.tokens.Clear(ctx)
	c.logger.Info("session expired, credentials cleared")
}

// DoJSON performs req and decodes the body into result when non-nil
func (c *Client) DoJSON(ctx context.Context, req Request, result any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	return resp.Decode(result)
}

func finish(resp *Response) (*Response, error) {
	if resp.Status < 200 || resp.Status >= 300 {
		return nil, &core.HTTPError{Status: resp.Status, Body: resp.Body}
	}
	return resp, nil
}

// send performs a single attempt and returns whatever status came back
func (c *Client) send(ctx context.Context, req Request, body *encodedBody, access string, attempt int) (*Response, error) {
	method := req.method()
	op := method + " " + req.Path

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &core.NetworkError{Op: op, Err: err}
		}
	}

	url := c.baseURL + req.Path
	if len(req.Query) > 0 {
		url += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, body.reader())
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := idgen.NewRequest()
	httpReq.Header.Set(RequestIDHeader, requestID)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", body.contentType)
	}
	if access != "" {
		httpReq.Header.Set("Authorization", "Bearer "+access)
	}

	c.logger.Debug("API request",
		"method", method,
		"url", url,
		"attempt", attempt,
		"request_id", requestID,
	)

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.ObserveRequest(endpointLabel(req.Path), method, 0, time.Since(start).Seconds())
		return nil, &core.NetworkError{Op: op, Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &core.NetworkError{Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	elapsed := time.Since(start)
	c.metrics.ObserveRequest(endpointLabel(req.Path), method, httpResp.StatusCode, elapsed.Seconds())
	c.logger.Debug("API response",
		"method", method,
		"path", req.Path,
		"status", httpResp.StatusCode,
		"attempt", attempt,
		"request_id", requestID,
		"duration", elapsed,
	)

	return &Response{
		Status: httpResp.StatusCode,
		Header: httpResp.Header,
		Body:   respBody,
	}, nil
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

var errEmptyAccess = errors.New("refresh response carried no access token")

// refreshAccess exchanges the refresh token for a new access token.
// Concurrent callers holding the same refresh token share one exchange.
func (c *Client) refreshAccess(ctx context.Context, refresh, rejected string) (string, error) {
	v, err, shared := c.refreshGroup.Do(refresh, func() (any, error) {
		// Someone already refreshed while our request was in flight
		if current := c.tokens.Get(ctx); current.HasAccess() && current.AccessToken != rejected {
			c.metrics.ObserveRefresh("reused")
			return current.AccessToken, nil
		}

		req := Request{Method: http.MethodPost, Path: refreshPath, JSON: map[string]string{"refresh": refresh}}
		body, err := req.encode()
		if err != nil {
			return "", err
		}

		resp, err := c.send(context.WithoutCancel(ctx), req, body, "", 1)
		if err != nil {
			c.metrics.ObserveRefresh("failure")
			return "", fmt.Errorf("failed to refresh token: %w", err)
		}
		if _, err := finish(resp); err != nil {
			c.metrics.ObserveRefresh("failure")
			return "", fmt.Errorf("failed to refresh token: %w", err)
		}

		var out refreshResponse
		if err := resp.Decode(&out); err != nil {
			c.metrics.ObserveRefresh("failure")
			return "", fmt.Errorf("failed to refresh token: %w", err)
		}
		if out.Access == "" {
			c.metrics.ObserveRefresh("failure")
			return "", errEmptyAccess
		}

		tokens.UpdateAccess(ctx, c.tokens, out.Access, out.Refresh)
		c.metrics.ObserveRefresh("success")
		c.logger.Info("access token refreshed", "rotated_refresh", out.Refresh != "")
		return out.Access, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		c.logger.Debug("joined in-flight token refresh")
	}
	return v.(string), nil
}

// endpointLabel collapses numeric path segments so metrics stay low-cardinality
func endpointLabel(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		if _, err := strconv.ParseUint(s, 10, 64); err == nil {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}
