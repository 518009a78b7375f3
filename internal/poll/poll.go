// Package poll repeats a check with jittered exponential backoff until it
// reports done.
package poll

import (
	"context"
	"math/rand/v2"
	"time"
)

// Defaults for Backoff.
const (
	InitialInterval   = 2 * time.Second
	MaxBackoff        = 30 * time.Second
	BackoffMultiplier = 1.5
	JitterFactor      = 0.3
)

// Backoff configures the wait between checks. Zero fields take the
// package defaults.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

func (b Backoff) withDefaults() Backoff {
	if b.Initial <= 0 {
		b.Initial = InitialInterval
	}
	if b.Max <= 0 {
		b.Max = MaxBackoff
	}
	if b.Max < b.Initial {
		b.Max = b.Initial
	}
	if b.Multiplier < 1 {
		b.Multiplier = BackoffMultiplier
	}
	if b.Jitter < 0 {
		b.Jitter = 0
	}
	return b
}

// Next returns the interval that follows current, capped at Max.
func (b Backoff) Next(current time.Duration) time.Duration {
	b = b.withDefaults()
	next := time.Duration(float64(current) * b.Multiplier)
	if next > b.Max {
		next = b.Max
	}
	return next
}

// wait adds up to Jitter*interval of random delay to interval.
func (b Backoff) wait(interval time.Duration) time.Duration {
	jitter := time.Duration(rand.Float64() * b.Jitter * float64(interval))
	return interval + jitter
}

// Until calls check immediately and then after each backoff interval
// until it returns true or an error, or ctx is done.
func Until(ctx context.Context, b Backoff, check func(ctx context.Context) (bool, error)) error {
	b = b.withDefaults()
	interval := b.Initial

	for {
		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		timer := time.NewTimer(b.wait(interval))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		interval = b.Next(interval)
	}
}
