package poll

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoff_Defaults(t *testing.T) {
	b := Backoff{}.withDefaults()
	if b.Initial != InitialInterval {
		t.Errorf("Initial = %v, want %v", b.Initial, InitialInterval)
	}
	if b.Max != MaxBackoff {
		t.Errorf("Max = %v, want %v", b.Max, MaxBackoff)
	}
	if b.Multiplier != BackoffMultiplier {
		t.Errorf("Multiplier = %v, want %v", b.Multiplier, BackoffMultiplier)
	}
	if b.Jitter != 0 {
		t.Errorf("Jitter = %v, want 0 for zero value", b.Jitter)
	}
}

func TestBackoff_Next(t *testing.T) {
	b := Backoff{Initial: 2 * time.Second, Max: 5 * time.Second, Multiplier: 2}

	tests := []struct {
		current time.Duration
		want    time.Duration
	}{
		{time.Second, 2 * time.Second},
		{2 * time.Second, 4 * time.Second},
		{4 * time.Second, 5 * time.Second},
		{5 * time.Second, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := b.Next(tt.current); got != tt.want {
			t.Errorf("Next(%v) = %v, want %v", tt.current, got, tt.want)
		}
	}
}

func TestBackoff_WaitJitterBounds(t *testing.T) {
	b := Backoff{Jitter: 0.3}
	interval := time.Second
	for range 100 {
		got := b.wait(interval)
		if got < interval || got > interval+300*time.Millisecond {
			t.Fatalf("wait(%v) = %v, outside jitter bounds", interval, got)
		}
	}
}

func TestUntil_ImmediateDone(t *testing.T) {
	calls := 0
	err := Until(context.Background(), Backoff{}, func(context.Context) (bool, error) {
		calls++
		return true, nil
	})
	if err != nil {
		t.Fatalf("Until() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestUntil_RetriesUntilDone(t *testing.T) {
	calls := 0
	b := Backoff{Initial: time.Millisecond, Max: 2 * time.Millisecond}
	err := Until(context.Background(), b, func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	if err != nil {
		t.Fatalf("Until() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestUntil_CheckError(t *testing.T) {
	wantErr := errors.New("gone")
	err := Until(context.Background(), Backoff{Initial: time.Millisecond}, func(context.Context) (bool, error) {
		return false, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Until() error = %v, want %v", err, wantErr)
	}
}

func TestUntil_ContextDone(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := Until(ctx, Backoff{Initial: 5 * time.Millisecond}, func(context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Until() error = %v, want DeadlineExceeded", err)
	}
}
