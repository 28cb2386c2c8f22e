package backend

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// RetryPolicy bounds retries of transient backend failures with exponential
// backoff and full jitter. Fatal errors are returned immediately.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetryPolicy matches the run-level defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
	}
}

// Send calls b.Send under the policy. A Retry-After hint from the backend
// takes precedence over the computed backoff.
func (p RetryPolicy) Send(ctx context.Context, b Backend, messages []Message, tools []ToolDescriptor) (*Reply, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		reply, err := b.Send(ctx, messages, tools)
		if err == nil {
			return reply, nil
		}
		lastErr = err

		if !IsTransient(err) || attempt == attempts {
			return nil, err
		}

		wait := p.backoff(attempt)
		var be *Error
		if errors.As(err, &be) && be.RetryAfter > 0 {
			wait = time.Duration(be.RetryAfter) * time.Second
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	base := p.InitialInterval
	if base <= 0 {
		base = time.Millisecond
	}
	mult := p.Multiplier
	if mult < 1.0 {
		mult = 1.0
	}
	for i := 1; i < attempt; i++ {
		base = time.Duration(float64(base) * mult)
		if p.MaxInterval > 0 && base > p.MaxInterval {
			base = p.MaxInterval
			break
		}
	}
	// Full jitter: anywhere between 0 and the computed interval.
	return time.Duration(rand.Int64N(base.Milliseconds()+1)) * time.Millisecond
}
