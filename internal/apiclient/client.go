// Package apiclient is the single call surface every other component uses to
// reach the Life-Planner backend. It attaches the bearer credential, and on a
// 401 coordinates with the session manager to renew once and replay the failed
// call once.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/lifeplanner/internal/observability"
	"example.com/lifeplanner/internal/session"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, http.StatusText(e.Status))
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// Option configures optional Client behaviour.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithLogger overrides the logger used for retry reporting.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// Client issues authenticated calls against the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	manager    *session.Manager
	logger     *log.Logger
}

// New constructs a Client with sane defaults.
func New(baseURL string, manager *session.Manager, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		manager: manager,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: log.New(log.Writer(), "[api] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type requestOptions struct {
	noAuth bool
	query  url.Values
}

// RequestOption customises a single call.
type RequestOption func(*requestOptions)

// WithoutAuth suppresses the bearer header, e.g. for login.
func WithoutAuth() RequestOption {
	return func(o *requestOptions) { o.noAuth = true }
}

// WithQuery appends query parameters to the call.
func WithQuery(values url.Values) RequestOption {
	return func(o *requestOptions) { o.query = values }
}

// Do performs one call against the backend. The request body is marshalled as
// JSON when non-nil, and a 2xx response body is decoded into out when out is
// non-nil. On a 401 with a credential attached, Do renews the credential
// (sharing any renewal already in flight) and replays the call exactly once
// with the token that renewal produced. If renewal fails the original 401 is
// surfaced and the session is already torn down; if the replay fails its error
// propagates unmodified.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}, opts ...RequestOption) error {
	options := requestOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		payload = data
	}

	// One key per logical call, so a replay after renewal is deduplicated
	// server-side.
	idempotencyKey := ""
	if body != nil && method != http.MethodGet {
		idempotencyKey = uuid.NewString()
	}

	token := ""
	if !options.noAuth && c.manager != nil {
		token, _ = c.manager.AccessToken()
	}

	err := c.doOnce(ctx, method, path, payload, out, options, token, idempotencyKey)
	if err == nil || options.noAuth {
		return err
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		return err
	}

	renewed, renewErr := c.manager.Refresh(ctx)
	if renewErr != nil {
		// Renewal failed; credentials are cleared and the original 401 stands.
		return err
	}

	observability.RecordRetry()
	c.logger.Printf("retrying %s %s after credential renewal", method, path)
	return c.doOnce(ctx, method, path, payload, out, options, renewed, idempotencyKey)
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte, out interface{}, options requestOptions, token, idempotencyKey string) error {
	target := c.baseURL + path
	if len(options.query) > 0 {
		target += "?" + options.query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	// FastAPI reports failures as {"detail": "..."}.
	var payload struct {
		Detail string `json:"detail"`
	}
	message := ""
	if err := json.Unmarshal(data, &payload); err == nil {
		message = payload.Detail
	}
	return &APIError{Status: resp.StatusCode, Message: message}
}
