package kiebitz

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kiebitz/client-go/internal/api"
	"github.com/kiebitz/client-go/internal/crypto"
	"github.com/kiebitz/client-go/internal/poll"
	"github.com/kiebitz/client-go/internal/store"
)

const defaultBaseURL = "http://localhost:8080"

// clientConfig holds configuration shared by all role clients.
type clientConfig struct {
	baseURL    string
	storageURL string
	httpClient *http.Client
	timeout    time.Duration
	retries    int
	retryOn    []int

	transport        api.Transport
	storageTransport api.Transport
	store            store.Store
	suite            *crypto.Suite
	logger           *zap.Logger
	tracerProvider   trace.TracerProvider

	// rootKey pins the admin root key. Empty means trust on first use.
	rootKey string

	// Polling configuration for WaitForVerification
	polling poll.Backoff
}

// Option configures a role client.
type Option func(*clientConfig)

// WithBaseURL sets the appointments relay URL.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithStorageURL sets a separate relay URL for backups. Default: the
// appointments relay.
func WithStorageURL(url string) Option {
	return func(c *clientConfig) {
		c.storageURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithRetries sets the number of retries for relay calls. A negative
// value disables retries.
func WithRetries(count int) Option {
	return func(c *clientConfig) {
		c.retries = count
	}
}

// WithRetryOn sets the HTTP status codes that trigger a retry.
// Default: [408, 429, 500, 502, 503, 504]
func WithRetryOn(statusCodes []int) Option {
	return func(c *clientConfig) {
		c.retryOn = statusCodes
	}
}

// WithTransport replaces the relay transport. The URL, HTTP and retry
// options are ignored for it.
func WithTransport(t Transport) Option {
	return func(c *clientConfig) {
		c.transport = t
	}
}

// WithStorageTransport replaces the transport used for backups.
func WithStorageTransport(t Transport) Option {
	return func(c *clientConfig) {
		c.storageTransport = t
	}
}

// WithStore sets where role state is kept. Default: in memory.
func WithStore(s Store) Option {
	return func(c *clientConfig) {
		c.store = s
	}
}

// WithSuite sets the randomness source and clock.
func WithSuite(s *crypto.Suite) Option {
	return func(c *clientConfig) {
		c.suite = s
	}
}

// WithLogger sets the logger. Default: no-op.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithTracerProvider sets the tracer provider for relay call spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *clientConfig) {
		c.tracerProvider = tp
	}
}

// WithRootKey pins the admin root public key. Without it the root key
// the relay reports is trusted on first use.
func WithRootKey(publicKey string) Option {
	return func(c *clientConfig) {
		c.rootKey = publicKey
	}
}

// WithPollingInitialInterval sets the first wait of WaitForVerification.
// Default: 2 seconds
func WithPollingInitialInterval(interval time.Duration) Option {
	return func(c *clientConfig) {
		c.polling.Initial = interval
	}
}

// WithPollingMaxBackoff caps the wait of WaitForVerification.
// Default: 30 seconds
func WithPollingMaxBackoff(maxBackoff time.Duration) Option {
	return func(c *clientConfig) {
		c.polling.Max = maxBackoff
	}
}

// WithPollingBackoffMultiplier sets how fast the wait grows.
// Default: 1.5
func WithPollingBackoffMultiplier(multiplier float64) Option {
	return func(c *clientConfig) {
		c.polling.Multiplier = multiplier
	}
}

// WithPollingJitterFactor sets the random fraction added to each wait.
// Default: 0.3 (30%)
func WithPollingJitterFactor(factor float64) Option {
	return func(c *clientConfig) {
		c.polling.Jitter = factor
	}
}

// newConfig applies opts over the defaults and builds any transport that
// was not supplied.
func newConfig(opts []Option) (*clientConfig, error) {
	cfg := &clientConfig{
		baseURL: defaultBaseURL,
		polling: poll.Backoff{
			Initial:    poll.InitialInterval,
			Max:        poll.MaxBackoff,
			Multiplier: poll.BackoffMultiplier,
			Jitter:     poll.JitterFactor,
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.suite == nil {
		cfg.suite = crypto.DefaultSuite()
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.store == nil {
		cfg.store = store.NewMemory()
	}

	if cfg.transport == nil {
		t, err := buildTransport(cfg.baseURL, cfg)
		if err != nil {
			return nil, err
		}
		cfg.transport = t
	}
	if cfg.storageTransport == nil {
		if cfg.storageURL == "" {
			cfg.storageTransport = cfg.transport
		} else {
			t, err := buildTransport(cfg.storageURL, cfg)
			if err != nil {
				return nil, err
			}
			cfg.storageTransport = t
		}
	}
	return cfg, nil
}

// buildTransport creates a JSON-RPC client for url from cfg.
func buildTransport(url string, cfg *clientConfig) (*api.Client, error) {
	apiOpts := []api.Option{
		api.WithBaseURL(url),
		api.WithSuite(cfg.suite),
		api.WithLogger(cfg.logger),
	}
	if cfg.timeout > 0 {
		apiOpts = append(apiOpts, api.WithTimeout(cfg.timeout))
	}
	if cfg.retries != 0 {
		apiOpts = append(apiOpts, api.WithRetries(cfg.retries))
	}
	if len(cfg.retryOn) > 0 {
		apiOpts = append(apiOpts, api.WithRetryOn(cfg.retryOn))
	}
	if cfg.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(cfg.httpClient))
	}
	if cfg.tracerProvider != nil {
		apiOpts = append(apiOpts, api.WithTracerProvider(cfg.tracerProvider))
	}
	return api.New(apiOpts...)
}
