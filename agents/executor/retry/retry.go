/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package retry repeats a model call on the same model with exponential
// backoff.
package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/chainguard-dev/clog"

	"chainguard.dev/reportfeedback/agents/model"
)

// Config configures same-model retries. Switching to a fallback model is the
// caller's concern; this only spaces out repeated calls to one model.
type Config struct {
	// MaxRetries is the number of extra attempts. 0 disables retrying.
	MaxRetries int
	// BaseBackoff is the wait before the first retry. It doubles per attempt.
	BaseBackoff time.Duration
	// MaxBackoff caps the doubled backoff.
	MaxBackoff time.Duration
	// MaxJitter bounds the random delay added to each backoff.
	MaxJitter time.Duration
}

// Validate checks that no duration or count is negative.
func (c Config) Validate() error {
	switch {
	case c.MaxRetries < 0:
		return errors.New("max retries cannot be negative")
	case c.BaseBackoff < 0:
		return errors.New("base backoff cannot be negative")
	case c.MaxBackoff < 0:
		return errors.New("max backoff cannot be negative")
	case c.MaxJitter < 0:
		return errors.New("max jitter cannot be negative")
	}
	return nil
}

// Default does not retry. A criterion already gets one more attempt on the
// fallback model, and GitHub Models rate limits recover slowly.
func Default() Config {
	return Config{
		BaseBackoff: 2 * time.Second,
		MaxBackoff:  30 * time.Second,
		MaxJitter:   500 * time.Millisecond,
	}
}

// Backoff returns the wait before retry number attempt (0-based), without
// jitter.
func (c Config) Backoff(attempt int) time.Duration {
	if c.BaseBackoff <= 0 {
		return 0
	}
	d := c.BaseBackoff << attempt
	if d <= 0 || (c.MaxBackoff > 0 && d > c.MaxBackoff) {
		return c.MaxBackoff
	}
	return d
}

// Retryable is the default classifier: retry the model error kinds that
// another attempt may fix.
func Retryable(err error) bool {
	return model.KindOf(err).Retryable()
}

// Do calls fn until it succeeds, returns an error isRetryable rejects, or
// MaxRetries retries are spent. The last error is returned wrapped, so its
// *model.Error stays reachable through errors.As.
func Do[T any](ctx context.Context, cfg Config, operation string, isRetryable func(error) bool, fn func(context.Context) (T, error)) (T, error) {
	if isRetryable == nil {
		isRetryable = Retryable
	}
	var (
		result T
		err    error
	)
	for attempt := 0; ; attempt++ {
		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
		if !isRetryable(err) {
			return result, err
		}
		if attempt >= cfg.MaxRetries {
			break
		}

		wait := cfg.Backoff(attempt) + jitter(cfg.MaxJitter)
		clog.FromContext(ctx).With("operation", operation).
			With("attempt", attempt+1).
			With("max_retries", cfg.MaxRetries).
			With("backoff", wait).
			With("error", err.Error()).
			Warn("Retryable model error, backing off")

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(wait):
		}
	}
	if cfg.MaxRetries == 0 {
		return result, err
	}
	return result, fmt.Errorf("%s failed after %d retries: %w", operation, cfg.MaxRetries, err)
}

func jitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}
