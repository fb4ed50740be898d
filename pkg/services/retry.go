package services

import (
	"context"
	"time"

	"github.com/kerbaras/otakulog/pkg/config"
	"github.com/kerbaras/otakulog/pkg/sources"
)

// RetryPolicy retries transient failures with exponential backoff. MaxAttempts
// counts every attempt including the first; once exhausted the last error is
// returned and the caller marks the job failed for good.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

func RetryPolicyFromConfig(cfg config.RetryConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		Multiplier:  cfg.Multiplier,
	}
}

// Do runs op, retrying transient errors until success, a permanent error, a
// cancelled context, or exhausted attempts.
func (p RetryPolicy) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.BaseDelay

	var err error
	for attempt := 1; ; attempt++ {
		err = op(ctx)
		if err == nil || !sources.Transient(err) || attempt >= attempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * p.Multiplier)
	}
}
