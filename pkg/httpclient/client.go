package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

// Logger is the logging surface the client relies on.
type Logger interface {
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}

// Client adapts resty.Client to envelope-returning calls against one base URL.
type Client struct {
	client *resty.Client
	log    Logger
}

// Option configures a Client.
type Option func(*settings)

type settings struct {
	httpClient *http.Client
	headers    map[string]string
	log        Logger
}

// WithHTTPClient swaps the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) { s.httpClient = hc }
}

// WithHeaders sets headers sent on every request.
func WithHeaders(headers map[string]string) Option {
	return func(s *settings) {
		for k, v := range headers {
			s.headers[k] = v
		}
	}
}

// WithLogger attaches a logger for request outcomes.
func WithLogger(log Logger) Option {
	return func(s *settings) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates a Client bound to baseURL. Paths passed to the verbs are
// resolved against it.
func New(baseURL string, opts ...Option) *Client {
	s := settings{
		headers: map[string]string{"Accept": "application/json"},
		log:     noopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}

	rc := resty.New()
	if s.httpClient != nil {
		rc = resty.NewWithClient(s.httpClient)
	}
	rc.SetBaseURL(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	rc.SetHeaders(s.headers)

	return &Client{client: rc, log: s.log}
}

// BaseURL returns the URL paths are resolved against.
func (c *Client) BaseURL() string { return c.client.BaseURL }

// RequestOption adjusts a single outbound request.
type RequestOption func(*resty.Request)

// WithHeader sets a header on one request.
func WithHeader(key, value string) RequestOption {
	return func(r *resty.Request) { r.SetHeader(key, value) }
}

// WithQuery adds a query parameter to one request.
func WithQuery(key, value string) RequestOption {
	return func(r *resty.Request) { r.SetQueryParam(key, value) }
}

// Get performs a GET request and decodes a successful body into T.
func Get[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) APIResponse[T] {
	return execute[T](ctx, c, resty.MethodGet, path, nil, opts)
}

// Post performs a POST request with body encoded as JSON.
func Post[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) APIResponse[T] {
	return execute[T](ctx, c, resty.MethodPost, path, body, opts)
}

// Put performs a PUT request with body encoded as JSON.
func Put[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) APIResponse[T] {
	return execute[T](ctx, c, resty.MethodPut, path, body, opts)
}

// Patch performs a PATCH request with body encoded as JSON.
func Patch[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) APIResponse[T] {
	return execute[T](ctx, c, resty.MethodPatch, path, body, opts)
}

// Delete performs a DELETE request.
func Delete[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) APIResponse[T] {
	return execute[T](ctx, c, resty.MethodDelete, path, nil, opts)
}

// execute performs exactly one call. Every outcome, including transport
// failures, is returned as an envelope.
func execute[T any](ctx context.Context, c *Client, method, path string, body any, opts []RequestOption) APIResponse[T] {
	if c == nil || c.client == nil {
		return normalizeFailure[T](http.StatusInternalServerError, "http client is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	req := c.client.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(req)
		}
	}

	resp, err := req.Execute(method, path)
	if err != nil || !IsSuccess(statusOf(resp)) {
		out := normalizeError[T](resp, err)
		c.log.WarnObj("http request failed", "http_error", map[string]any{
			"method":  method,
			"path":    path,
			"status":  out.Status,
			"message": out.Message,
		})
		return out
	}

	var data T
	if raw := bytes.TrimSpace(resp.Body()); len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			out := normalizeFailure[T](http.StatusInternalServerError, fmt.Sprintf("decode response body: %v", err))
			c.log.WarnObj("http response decode failed", "http_error", map[string]any{
				"method":  method,
				"path":    path,
				"status":  resp.StatusCode(),
				"message": out.Message,
			})
			return out
		}
	}

	c.log.DebugObj("http request completed", "http_result", map[string]any{
		"method":     method,
		"path":       path,
		"status":     resp.StatusCode(),
		"elapsed_ms": resp.Time().Milliseconds(),
	})
	return normalizeSuccess(resp.StatusCode(), data)
}

// normalizeError resolves the message from the server's `message` field, then
// the transport error text, then a generic fallback.
func normalizeError[T any](resp *resty.Response, err error) APIResponse[T] {
	status := statusOf(resp)

	var body []byte
	if resp != nil {
		body = resp.Body()
	}

	var transport string
	switch {
	case err != nil:
		transport = err.Error()
	case status != 0:
		transport = fmt.Sprintf("Request failed with status code %d", status)
	}

	return normalizeFailure[T](status, firstNonEmpty(serverMessage(body), transport, messageFallback))
}

func serverMessage(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Message
}

func statusOf(resp *resty.Response) int {
	if resp == nil || resp.RawResponse == nil {
		return 0
	}
	return resp.StatusCode()
}
