package kiebitz

import (
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kiebitz/client-go/internal/api"
	"github.com/kiebitz/client-go/internal/poll"
	"github.com/kiebitz/client-go/internal/store"
)

func TestDefaultConstants(t *testing.T) {
	if defaultBaseURL != "http://localhost:8080" {
		t.Errorf("defaultBaseURL = %s, want http://localhost:8080", defaultBaseURL)
	}
}

func TestWithBaseURL(t *testing.T) {
	cfg := &clientConfig{}
	WithBaseURL("https://appointments.example.com")(cfg)
	if cfg.baseURL != "https://appointments.example.com" {
		t.Errorf("baseURL = %s, want https://appointments.example.com", cfg.baseURL)
	}
}

func TestWithHTTPClient(t *testing.T) {
	cfg := &clientConfig{}
	customClient := &http.Client{Timeout: 99 * time.Second}
	WithHTTPClient(customClient)(cfg)
	if cfg.httpClient != customClient {
		t.Error("httpClient was not set")
	}
}

func TestWithRetries(t *testing.T) {
	cfg := &clientConfig{}
	WithRetries(5)(cfg)
	if cfg.retries != 5 {
		t.Errorf("retries = %d, want 5", cfg.retries)
	}
	WithRetryOn([]int{503})(cfg)
	if len(cfg.retryOn) != 1 || cfg.retryOn[0] != 503 {
		t.Errorf("retryOn = %v, want [503]", cfg.retryOn)
	}
}

func TestWithPolling(t *testing.T) {
	cfg := &clientConfig{}
	WithPollingInitialInterval(time.Second)(cfg)
	WithPollingMaxBackoff(10 * time.Second)(cfg)
	WithPollingBackoffMultiplier(2)(cfg)
	WithPollingJitterFactor(0.1)(cfg)

	want := poll.Backoff{Initial: time.Second, Max: 10 * time.Second, Multiplier: 2, Jitter: 0.1}
	if cfg.polling != want {
		t.Errorf("polling = %+v, want %+v", cfg.polling, want)
	}
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := newConfig(nil)
	if err != nil {
		t.Fatalf("newConfig() error = %v", err)
	}

	if cfg.suite == nil || cfg.logger == nil || cfg.store == nil {
		t.Fatal("newConfig() left a collaborator nil")
	}
	if _, ok := cfg.store.(*store.Memory); !ok {
		t.Errorf("store = %T, want *store.Memory", cfg.store)
	}
	client, ok := cfg.transport.(*api.Client)
	if !ok {
		t.Fatalf("transport = %T, want *api.Client", cfg.transport)
	}
	if client.BaseURL() != defaultBaseURL {
		t.Errorf("BaseURL() = %s, want %s", client.BaseURL(), defaultBaseURL)
	}
	if cfg.storageTransport != cfg.transport {
		t.Error("storage transport should default to the appointments transport")
	}
	if cfg.polling.Initial != poll.InitialInterval || cfg.polling.Max != poll.MaxBackoff {
		t.Errorf("polling = %+v, want package defaults", cfg.polling)
	}
}

func TestNewConfig_StorageURL(t *testing.T) {
	cfg, err := newConfig([]Option{
		WithBaseURL("https://appointments.example.com"),
		WithStorageURL("https://storage.example.com/"),
		WithLogger(zap.NewNop()),
	})
	if err != nil {
		t.Fatalf("newConfig() error = %v", err)
	}

	storage, ok := cfg.storageTransport.(*api.Client)
	if !ok {
		t.Fatalf("storageTransport = %T, want *api.Client", cfg.storageTransport)
	}
	if storage.BaseURL() != "https://storage.example.com" {
		t.Errorf("storage BaseURL() = %s", storage.BaseURL())
	}
}

func TestNewConfig_Transport(t *testing.T) {
	custom, err := api.New(api.WithBaseURL("https://custom.example.com"))
	if err != nil {
		t.Fatalf("api.New() error = %v", err)
	}
	s := store.NewMemory()

	cfg, err := newConfig([]Option{WithTransport(custom), WithStore(s)})
	if err != nil {
		t.Fatalf("newConfig() error = %v", err)
	}
	if cfg.transport != Transport(custom) {
		t.Error("transport was not set")
	}
	if cfg.storageTransport != Transport(custom) {
		t.Error("storage transport should follow a custom transport")
	}
	if cfg.store != Store(s) {
		t.Error("store was not set")
	}
}

func TestNewConfig_EmptyBaseURL(t *testing.T) {
	if _, err := newConfig([]Option{WithBaseURL("")}); err == nil {
		t.Error("expected error for empty base URL")
	}
}
