// Package api is the HTTP client of the hotel backend.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"hotel-admin-go/internal/domain/eventbus"
	"hotel-admin-go/internal/platform/observability"
)

const (
	// DefaultTimeout bounds every request.
	DefaultTimeout = 30 * time.Second

	headerRequestID = "X-Request-ID"

	forbiddenTitle       = "Accès refusé"
	forbiddenDescription = "Vous n'avez pas les permissions nécessaires."
	serverTitle          = "Erreur serveur"
	serverDescription    = "Une erreur est survenue côté serveur."
)

// TokenSource provides the bearer token. WaitReady blocks until the session has rehydrated.
type TokenSource interface {
	Token() string
	WaitReady(ctx context.Context) error
}

// Logger is the logging contract used by the client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Tokens  TokenSource
	Bus     *eventbus.Bus
	Logger  Logger
	// Transport overrides the underlying round tripper, mostly for tests.
	Transport http.RoundTripper
}

// Client talks to the hotel backend.
type Client struct {
	rc     *resty.Client
	tokens TokenSource
	bus    *eventbus.Bus
	logger Logger
}

// New builds a client. BaseURL is required.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("api: base url is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	rc := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetRetryCount(0)
	if opts.Transport != nil {
		rc.SetTransport(opts.Transport)
	}
	if opts.Logger != nil {
		rc.SetLogger(restyLogger{opts.Logger})
	}

	c := &Client{rc: rc, tokens: opts.Tokens, bus: opts.Bus, logger: opts.Logger}
	rc.OnBeforeRequest(c.beforeRequest)
	return c, nil
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.rc.BaseURL
}

// beforeRequest waits for rehydration and attaches the bearer token when there is one.
func (c *Client) beforeRequest(_ *resty.Client, r *resty.Request) error {
	r.SetHeader(headerRequestID, uuid.NewString())
	if c.tokens == nil {
		return nil
	}
	if err := c.tokens.WaitReady(r.Context()); err != nil {
		return err
	}
	if token := c.tokens.Token(); token != "" {
		r.SetHeader("Authorization", "Bearer "+token)
	}
	return nil
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.rc.R().SetContext(ctx)
}

// do executes r and decodes a successful body into out (when non-nil).
func (c *Client) do(ctx context.Context, r *resty.Request, method, path string, out interface{}) (err error) {
	_, end := observability.StartSpan(ctx, "api", method+" "+path)
	defer func() { end(err) }()

	resp, execErr := r.Execute(method, path)
	if execErr != nil {
		apiErr := &APIError{Kind: KindNetwork, Message: "Impossible de joindre le serveur", Cause: execErr}
		c.record(ctx, method, apiErr.Kind)
		c.logWarn("[API] %s %s failed: %v", method, path, execErr)
		return apiErr
	}

	if resp.IsError() {
		apiErr := statusError(resp.StatusCode(), resp.Body())
		c.record(ctx, method, apiErr.Kind)
		c.react(apiErr, resp, method, path)
		return apiErr
	}

	c.record(ctx, method, "ok")
	c.logDebug("[API] %s %s -> %d in %s", method, path, resp.StatusCode(), resp.Time())
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(resp.Body(), out); err != nil {
		return &APIError{Kind: KindUnknown, Status: resp.StatusCode(), Message: "Réponse invalide du serveur", Cause: err}
	}
	return nil
}

// react publishes the side effects of a classified failure.
func (c *Client) react(apiErr *APIError, resp *resty.Response, method, path string) {
	switch apiErr.Kind {
	case KindUnauthenticated:
		token := bearer(resp.Request.Header.Get("Authorization"))
		c.logWarn("[API] %s %s rejected with 401", method, path)
		if token != "" {
			c.bus.Publish(eventbus.TopicUnauthorized, eventbus.UnauthorizedEvent{Token: token, Method: method, Path: path})
		}
	case KindForbidden:
		c.bus.Error(forbiddenTitle, orDefault(apiErr.Message, forbiddenDescription))
	case KindServer:
		c.logError("[API] %s %s -> %d: %s", method, path, apiErr.Status, apiErr.Message)
		c.bus.Error(serverTitle, orDefault(apiErr.Message, serverDescription))
	}
}

func (c *Client) record(ctx context.Context, method string, outcome Kind) {
	observability.RecordMetric(ctx, "api_requests_total", 1, map[string]string{
		"method":  method,
		"outcome": string(outcome),
	})
}

func bearer(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func (c *Client) logDebug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Client) logWarn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c *Client) logError(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Error(msg, args...)
	}
}

// restyLogger routes resty's internal warnings through our logger.
type restyLogger struct{ l Logger }

func (r restyLogger) Errorf(format string, v ...interface{}) { r.l.Error("[API] "+format, v...) }
func (r restyLogger) Warnf(format string, v ...interface{})  { r.l.Warn("[API] "+format, v...) }
func (r restyLogger) Debugf(format string, v ...interface{}) { r.l.Debug("[API] "+format, v...) }
