package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultBaseURL is the API prefix the console talks to.
	DefaultBaseURL = "http://localhost:8000/api"
	// DefaultTimeout bounds every request.
	DefaultTimeout = 15 * time.Second

	tracerName   = "github.com/MrEthical07/mpconsole/apiclient"
	maxBodyBytes = 8 << 20
)

// Config is the fixed client configuration.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// TokenSource yields the live bearer token; empty means unauthenticated.
type TokenSource interface {
	Token() string
}

// TokenSourceFunc adapts a function to [TokenSource].
type TokenSourceFunc func() string

func (f TokenSourceFunc) Token() string { return f() }

// UnauthorizedFunc is called once per request that receives a 401, before
// the error is returned to the caller.
type UnauthorizedFunc func(ctx context.Context, err *StatusError)

// RequestInfo describes one finished request.
type RequestInfo struct {
	Method     string
	Path       string
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Observer receives a [RequestInfo] for every request.
type Observer interface {
	ObserveRequest(info RequestInfo)
}

// Client sends API requests.
type Client struct {
	baseURL        *url.URL
	userAgent      string
	http           *http.Client
	tokens         TokenSource
	onUnauthorized UnauthorizedFunc
	tracer         trace.Tracer
	logger         *slog.Logger
	observer       Observer
}

// Option customizes a [Client].
type Option func(*Client)

// WithHTTPClient sends requests through hc's transport. The client timeout is
// still taken from Config.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil && hc.Transport != nil {
			c.http.Transport = &bearerTransport{base: hc.Transport, tokens: c.tokens}
		}
		if hc != nil && hc.Jar != nil {
			c.http.Jar = hc.Jar
		}
	}
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.http.Transport = &bearerTransport{base: rt, tokens: c.tokens}
		}
	}
}

// WithUnauthorizedHandler installs the 401 hook.
func WithUnauthorizedHandler(fn UnauthorizedFunc) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// WithTracerProvider sets the provider for client spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver reports every finished request to o.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// New builds a client. tokens may be nil for anonymous use.
func New(cfg Config, tokens TokenSource, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", cfg.BaseURL)
	}
	if tokens == nil {
		tokens = TokenSourceFunc(func() string { return "" })
	}

	c := &Client{
		baseURL:   base,
		userAgent: cfg.UserAgent,
		tokens:    tokens,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &bearerTransport{base: http.DefaultTransport, tokens: tokens},
		},
		tracer: otel.GetTracerProvider().Tracer(tracerName),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured API prefix.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Timeout returns the per-request bound.
func (c *Client) Timeout() time.Duration {
	return c.http.Timeout
}

// Do sends one request. in is JSON-encoded when non-nil; a 2xx body is
// decoded into out when out is non-nil.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	target := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	ctx, span := c.tracer.Start(ctx, method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", target.Path),
		),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)
	span.SetAttributes(attribute.String("http.request.id", requestID))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		reqErr := &RequestError{Method: method, Path: path, Timeout: isTimeout(err), Err: err}
		span.RecordError(reqErr)
		span.SetStatus(codes.Error, "transport failure")
		c.observe(method, path, 0, time.Since(start), reqErr)
		return reqErr
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		reqErr := &RequestError{Method: method, Path: path, Timeout: isTimeout(err), Err: err}
		span.RecordError(reqErr)
		span.SetStatus(codes.Error, "read body")
		c.observe(method, path, resp.StatusCode, time.Since(start), reqErr)
		return reqErr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data),
			RequestID:  requestID,
		}
		span.SetStatus(codes.Error, statusErr.Error())
		c.observe(method, path, resp.StatusCode, time.Since(start), statusErr)

		if resp.StatusCode == http.StatusUnauthorized && !isCredentialExchange(ctx) && c.onUnauthorized != nil {
			c.logger.Warn("apiclient: unauthorized response",
				slog.String("method", method),
				slog.String("path", path),
				slog.String("request_id", statusErr.RequestID),
			)
			c.onUnauthorized(ctx, statusErr)
		}
		return statusErr
	}

	c.observe(method, path, resp.StatusCode, time.Since(start), nil)

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) observe(method, path string, status int, d time.Duration, err error) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveRequest(RequestInfo{
		Method:     method,
		Path:       path,
		StatusCode: status,
		Duration:   d,
		Err:        err,
	})
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return ""
}

type credentialExchangeKey struct{}

// withCredentialExchange marks ctx as a login exchange: its 401 means bad
// credentials, not an invalidated session.
func withCredentialExchange(ctx context.Context) context.Context {
	return context.WithValue(ctx, credentialExchangeKey{}, true)
}

func isCredentialExchange(ctx context.Context) bool {
	v, _ := ctx.Value(credentialExchangeKey{}).(bool)
	return v
}
