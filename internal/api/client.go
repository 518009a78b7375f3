package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kiebitz/client-go/internal/apierrors"
	"github.com/kiebitz/client-go/internal/crypto"
)

// Default configuration values.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
)

// RPCPath is the endpoint every JSON-RPC request is posted to.
const RPCPath = "/jsonrpc"

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 16 << 20

const tracerName = "github.com/kiebitz/client-go/internal/api"

// Config holds the transport configuration.
type Config struct {
	// BaseURL is the relay URL without the RPC path. Required.
	BaseURL string
	// HTTPClient replaces the default instrumented client.
	HTTPClient *http.Client
	// Timeout applies to the default HTTP client. Default: 30s.
	Timeout time.Duration
	// MaxRetries is the retry budget for transient failures. Default: 3.
	// A negative value disables retries.
	MaxRetries int
	// RetryDelay is the first backoff delay. Default: 1s.
	RetryDelay time.Duration
	// RetryOn lists HTTP status codes that trigger a retry.
	// Default: [408, 429, 500, 502, 503, 504].
	RetryOn []int
	// Suite signs requests. Default: crypto.DefaultSuite().
	Suite *crypto.Suite
	// Logger receives one debug line per call. Default: no-op.
	Logger *zap.Logger
	// TracerProvider creates call spans. Default: the global provider.
	TracerProvider trace.TracerProvider
}

// Client is a JSON-RPC 2.0 transport to a Kiebitz relay.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      *RetryConfig
	suite      *crypto.Suite
	logger     *zap.Logger
	tracer     trace.Tracer
}

// NewClient creates a client from cfg.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	maxRetries := cfg.MaxRetries
	switch {
	case maxRetries == 0:
		maxRetries = DefaultMaxRetries
	case maxRetries < 0:
		maxRetries = 0
	}
	retryDelay := cfg.RetryDelay
	if retryDelay == 0 {
		retryDelay = DefaultRetryDelay
	}

	retry := DefaultRetryConfig()
	retry.MaxRetries = maxRetries
	retry.BaseDelay = retryDelay
	if len(cfg.RetryOn) > 0 {
		retry.RetryableOn = statusIn(cfg.RetryOn)
	}

	suite := cfg.Suite
	if suite == nil {
		suite = crypto.DefaultSuite()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpClient,
		retry:      retry,
		suite:      suite,
		logger:     logger,
		tracer:     tp.Tracer(tracerName),
	}, nil
}

// Option configures the client.
type Option func(*Config)

// WithBaseURL sets the relay URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithRetries sets the number of retries.
func WithRetries(retries int) Option {
	return func(c *Config) {
		c.MaxRetries = retries
	}
}

// WithRetryOn sets the HTTP status codes that trigger a retry.
func WithRetryOn(statusCodes []int) Option {
	return func(c *Config) {
		c.RetryOn = statusCodes
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithSuite sets the crypto suite used to sign requests.
func WithSuite(suite *crypto.Suite) Option {
	return func(c *Config) {
		c.Suite = suite
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Config) {
		c.TracerProvider = tp
	}
}

// New creates a client with functional options.
func New(opts ...Option) (*Client, error) {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewClient(cfg)
}

// BaseURL returns the relay URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HTTPClient returns the underlying HTTP client.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Call performs one JSON-RPC call. With a signer the params are wrapped in
// a SignedData carrying a timestamp.
func (c *Client) Call(ctx context.Context, method string, params any, signer *crypto.KeyPair) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "kiebitz.rpc "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rpc.system", "jsonrpc"),
			attribute.String("rpc.method", method),
			attribute.Bool("kiebitz.signed", signer != nil),
		),
	)
	defer span.End()

	start := time.Now()
	result, err := c.call(ctx, method, params, signer)

	c.logger.Debug("rpc call",
		zap.String("method", method),
		zap.Bool("signed", signer != nil),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

func (c *Client) call(ctx context.Context, method string, params any, signer *crypto.KeyPair) (json.RawMessage, error) {
	if signer != nil {
		signed, err := SignParams(c.suite, params, signer)
		if err != nil {
			return nil, apierrors.Crypto("sign", err)
		}
		params = signed
	}

	body, err := json.Marshal(Request{
		JSONRPC: Version,
		Method:  method,
		Params:  params,
		ID:      uuid.NewString(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	return c.Do(ctx, method, body)
}

// Do posts an encoded request, retrying transient failures, and returns
// the raw result. A context marked with WithoutRetry sends the request once.
func (c *Client) Do(ctx context.Context, method string, body []byte) (json.RawMessage, error) {
	url := c.baseURL + RPCPath
	retry := c.retry
	if retriesDisabled(ctx) {
		retry = &RetryConfig{}
	}

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() == nil && attempt < retry.MaxRetries {
				if werr := retry.Wait(ctx, attempt); werr != nil {
					return nil, &apierrors.NetworkError{Err: werr, URL: url, Attempt: attempt + 1}
				}
				continue
			}
			return nil, &apierrors.NetworkError{Err: err, URL: url, Attempt: attempt + 1}
		}

		if retry.ShouldRetry(attempt, resp.StatusCode) {
			drain(resp)
			if werr := retry.Wait(ctx, attempt); werr != nil {
				return nil, &apierrors.NetworkError{Err: werr, URL: url, Attempt: attempt + 1}
			}
			continue
		}

		result, err := parseResponse(method, resp)
		drain(resp)
		return result, err
	}
}

func parseResponse(method string, resp *http.Response) (json.RawMessage, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", method, err)
	}

	var rr Response
	if err := json.Unmarshal(raw, &rr); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &apierrors.TransportError{
				Method:  method,
				Code:    resp.StatusCode,
				Message: strings.TrimSpace(string(raw)),
			}
		}
		return nil, fmt.Errorf("%s: failed to decode response: %w", method, err)
	}

	if rr.Error != nil {
		code := rr.Error.Code
		if code == 0 {
			code = resp.StatusCode
		}
		return nil, &apierrors.TransportError{Method: method, Code: code, Message: rr.Error.Message}
	}
	if resp.StatusCode >= 400 {
		return nil, &apierrors.TransportError{Method: method, Code: resp.StatusCode}
	}
	return rr.Result, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
