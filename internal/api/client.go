// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/arcana-tui/internal/auth"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultBaseURL is the production Arcanum API endpoint.
	DefaultBaseURL = "https://api.arcanum.app"

	// DefaultTimeout is the default timeout for non-streaming requests.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for
	// transient errors on idempotent requests.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB

	userAgent = "arcana-tui/0.3.0"
)

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// Shared HTTP client with connection pooling for all REST requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for SSE requests (no timeout, context-controlled).
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		// No timeout for streaming, controlled via context
	}
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConfigured indicates no credentials are stored.
	ErrNotConfigured = errors.New("not logged in")

	// ErrUnauthorized indicates authentication failed after the refresh
	// and replay attempt.
	ErrUnauthorized = errors.New("authentication failed")

	// ErrSessionNotFound indicates the chat session no longer exists on
	// the server.
	ErrSessionNotFound = errors.New("chat session not found")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrQuotaExhausted indicates the account has no reading turns left.
	ErrQuotaExhausted = errors.New("reading quota exhausted")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")
)

// APIError represents a structured error response from the backend.
type APIError struct {
	Code    string
	Message string
	Status  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("arcanum error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("arcanum error (HTTP %d): %s", e.Status, e.Message)
}

// apiErrorResponse is the backend's JSON error envelope.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Detail string `json:"detail"`
}

// =============================================================================
// CLIENT
// =============================================================================

// TokenHandler is notified whenever the client obtains a fresh token pair,
// so the credential store can persist it.
type TokenHandler func(auth.Tokens)

// SessionExpiredHandler is invoked when authentication cannot be recovered
// (the refresh itself was rejected). The owner decides what teardown means;
// the client never exits the process or touches global state.
type SessionExpiredHandler func()

// Client is an HTTP client for the Arcanum backend.
type Client struct {
	baseURL    string
	maxRetries int

	mu         sync.Mutex
	tokens     auth.Tokens
	refreshing bool

	onTokens  TokenHandler
	onExpired SessionExpiredHandler

	// limiter paces message sends client-side so a fast typist cannot
	// trip the server's rate limits.
	limiter *rate.Limiter
}

// NewClient creates a client for the given base URL. A trailing slash is
// stripped so path joining stays predictable.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		maxRetries: DefaultMaxRetries,
		limiter:    rate.NewLimiter(rate.Every(6*time.Second), 2),
	}
}

// WithMaxRetries sets the maximum number of retry attempts.
func (c *Client) WithMaxRetries(n int) *Client {
	c.maxRetries = n
	return c
}

// WithSendRate adjusts the client-side send limiter.
func (c *Client) WithSendRate(perMinute int) *Client {
	if perMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 2)
	}
	return c
}

// WithTokenHandler registers the persistence hook for refreshed tokens.
func (c *Client) WithTokenHandler(h TokenHandler) *Client {
	c.onTokens = h
	return c
}

// WithSessionExpiredHandler registers the teardown handler invoked when a
// refresh attempt is itself rejected.
func (c *Client) WithSessionExpiredHandler(h SessionExpiredHandler) *Client {
	c.onExpired = h
	return c
}

// SetTokens installs the credential pair used for authenticated calls.
func (c *Client) SetTokens(t auth.Tokens) {
	c.mu.Lock()
	c.tokens = t
	c.mu.Unlock()
}

// ClearTokens drops the in-memory credentials.
func (c *Client) ClearTokens() {
	c.mu.Lock()
	c.tokens = auth.Tokens{}
	c.mu.Unlock()
}

// IsAuthenticated reports whether an access token is present.
func (c *Client) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens.Access != ""
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens.Access
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// logRequest logs an API request without exposing sensitive data.
// Headers and bodies are never logged; they may contain credentials.
func logRequest(method, path string) {
	log.Printf("API request: %s %s", method, path)
}

// logResponse logs status and duration only.
func logResponse(status int, duration time.Duration) {
	log.Printf("API response: %d (%v)", status, duration)
}

// newRequest builds a request for a backend path. Bodies are passed as bytes
// so the request can be rebuilt for the 401 replay and retry paths.
func (c *Client) newRequest(ctx context.Context, method, path string, body []byte, authed bool) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if authed {
		tok := c.accessToken()
		if tok == "" {
			return nil, ErrNotConfigured
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, nil
}

// readResponse reads the response body with a size limit.
// SECURITY: Response size limit prevents memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts backend error responses to Go errors.
func handleErrorResponse(statusCode int, body []byte) error {
	var apiErr apiErrorResponse
	msg := ""
	code := ""
	if err := json.Unmarshal(body, &apiErr); err == nil {
		code = apiErr.Error.Code
		msg = apiErr.Error.Message
		if msg == "" {
			msg = apiErr.Detail
		}
	}

	wrap := func(sentinel error) error {
		if msg != "" {
			return fmt.Errorf("%w: %s", sentinel, msg)
		}
		return sentinel
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return wrap(ErrUnauthorized)
	case http.StatusPaymentRequired:
		return wrap(ErrQuotaExhausted)
	case http.StatusNotFound:
		return wrap(ErrNotFound)
	case http.StatusTooManyRequests:
		return wrap(ErrRateLimited)
	default:
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return &APIError{Code: code, Message: msg, Status: statusCode}
	}
}

// calculateBackoff returns the delay before the next retry attempt.
func calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

// do performs an authenticated request with the one-refresh-and-replay
// interceptor. On the first 401 it refreshes the token pair and replays the
// request once; a second 401, or a failed refresh, invokes the session-expiry
// handler and fails with ErrUnauthorized.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, []byte, error) {
	resp, respBody, err := c.doOnce(ctx, method, path, body, true)
	if err != nil {
		return nil, nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if refreshErr := c.refreshTokens(ctx); refreshErr != nil {
			c.expireSession()
			return nil, nil, fmt.Errorf("%w: token refresh rejected", ErrUnauthorized)
		}

		resp, respBody, err = c.doOnce(ctx, method, path, body, true)
		if err != nil {
			return nil, nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			c.expireSession()
			return nil, nil, handleErrorResponse(resp.StatusCode, respBody)
		}
	}

	return resp, respBody, nil
}

// doOnce performs a single request and fully reads the body.
func (c *Client) doOnce(ctx context.Context, method, path string, body []byte, authed bool) (*http.Response, []byte, error) {
	req, err := c.newRequest(ctx, method, path, body, authed)
	if err != nil {
		return nil, nil, err
	}

	logRequest(method, path)
	start := time.Now()
	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	logResponse(resp.StatusCode, time.Since(start))

	respBody, err := readResponse(resp)
	if err != nil {
		return nil, nil, err
	}
	return resp, respBody, nil
}

// getJSON performs an authenticated GET with retry on 5xx and decodes into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(calculateBackoff(attempt)):
			}
		}

		resp, body, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
				errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotConfigured) {
				return err
			}
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = handleErrorResponse(resp.StatusCode, body)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return handleErrorResponse(resp.StatusCode, body)
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// sendJSON performs an authenticated request with a JSON body, no retries
// (callers decide; mutations are not blindly idempotent).
func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, respBody, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return handleErrorResponse(resp.StatusCode, respBody)
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// refreshTokens exchanges the refresh token for a new pair. Only one refresh
// runs at a time; concurrent callers reuse its result by retrying with the
// token it installed.
func (c *Client) refreshTokens(ctx context.Context) error {
	c.mu.Lock()
	refresh := c.tokens.Refresh
	if refresh == "" {
		c.mu.Unlock()
		return ErrNotConfigured
	}
	if c.refreshing {
		c.mu.Unlock()
		return nil
	}
	c.refreshing = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.refreshing = false
		c.mu.Unlock()
	}()

	body, err := json.Marshal(map[string]string{"refresh": refresh})
	if err != nil {
		return fmt.Errorf("failed to marshal refresh request: %w", err)
	}

	resp, respBody, err := c.doOnce(ctx, http.MethodPost, "/auth/refresh/", body, false)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return handleErrorResponse(resp.StatusCode, respBody)
	}

	var tr tokenResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return fmt.Errorf("failed to parse refresh response: %w", err)
	}
	c.installTokens(tr)
	return nil
}

// installTokens stores a fresh pair and notifies the persistence hook.
func (c *Client) installTokens(tr tokenResponse) {
	t := tr.toTokens()
	c.mu.Lock()
	c.tokens = t
	onTokens := c.onTokens
	c.mu.Unlock()
	if onTokens != nil {
		onTokens(t)
	}
}

func (c *Client) expireSession() {
	c.ClearTokens()
	if c.onExpired != nil {
		c.onExpired()
	}
}
