package api

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()

	if cfg.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %d, want %d", cfg.MaxRetries, DefaultMaxRetries)
	}
	if cfg.BaseDelay != DefaultRetryDelay {
		t.Errorf("BaseDelay = %v, want %v", cfg.BaseDelay, DefaultRetryDelay)
	}
	if cfg.MaxDelay != 30*time.Second {
		t.Errorf("MaxDelay = %v, want 30s", cfg.MaxDelay)
	}
	if cfg.RetryableOn == nil {
		t.Error("RetryableOn is nil")
	}
}

func TestRetryConfig_ShouldRetry(t *testing.T) {
	cfg := DefaultRetryConfig()

	tests := []struct {
		name       string
		attempt    int
		statusCode int
		expected   bool
	}{
		{"first attempt, 503", 0, 503, true},
		{"last allowed attempt", 2, 503, true},
		{"budget exhausted", 3, 503, false},
		{"429", 0, 429, true},
		{"408", 0, 408, true},
		{"unauthorized is final", 0, 401, false},
		{"not found is final", 0, 404, false},
		{"bad request is final", 0, 400, false},
		{"ok", 0, 200, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.ShouldRetry(tt.attempt, tt.statusCode); got != tt.expected {
				t.Errorf("ShouldRetry(%d, %d) = %v, want %v", tt.attempt, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestRetryConfig_ShouldRetry_CustomStatus(t *testing.T) {
	cfg := DefaultRetryConfig()
	cfg.RetryableOn = statusIn([]int{418})

	if !cfg.ShouldRetry(0, 418) {
		t.Error("ShouldRetry(0, 418) = false, want true")
	}
	if cfg.ShouldRetry(0, 503) {
		t.Error("ShouldRetry(0, 503) = true, want false")
	}

	cfg.RetryableOn = nil
	if cfg.ShouldRetry(0, 418) {
		t.Error("ShouldRetry with nil RetryableOn = true, want false")
	}
}

func TestRetryConfig_Delay(t *testing.T) {
	cfg := &RetryConfig{
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{5, 30 * time.Second},
		{9, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := cfg.Delay(tt.attempt); got != tt.expected {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.expected)
		}
	}
}

func TestRetryConfig_Delay_WithJitter(t *testing.T) {
	cfg := &RetryConfig{
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.5,
	}

	for i := 0; i < 100; i++ {
		delay := cfg.Delay(0)
		if delay < 500*time.Millisecond || delay > 1500*time.Millisecond {
			t.Fatalf("Delay(0) = %v, want within [0.5s, 1.5s]", delay)
		}
	}
}

func TestRetryConfig_Wait(t *testing.T) {
	cfg := &RetryConfig{BaseDelay: 10 * time.Millisecond, Multiplier: 2.0}

	start := time.Now()
	if err := cfg.Wait(context.Background(), 0); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("Wait() returned too early: %v", elapsed)
	}
}

func TestRetryConfig_Wait_ContextCancellation(t *testing.T) {
	cfg := &RetryConfig{BaseDelay: 10 * time.Second, Multiplier: 2.0}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := cfg.Wait(ctx, 0)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Wait() took too long after cancellation: %v", elapsed)
	}
}
