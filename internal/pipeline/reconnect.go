package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ReconnectConfig tunes the restart backoff after a device loss.
type ReconnectConfig struct {
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// DefaultReconnectConfig returns the backoff used by the demo loop:
// 1s, 2s, 4s, 8s, 16s, then give up.
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:    5,
		RetryDelay:    1 * time.Second,
		MaxRetryDelay: 30 * time.Second,
	}
}

// ConnectFunc attempts one pipeline (re)start.
type ConnectFunc func(ctx context.Context) error

// RunWithReconnect calls connectFn until it succeeds, waiting with
// exponential backoff between attempts. Returns the context error when
// cancelled, or a max-retries error when the budget is spent.
func RunWithReconnect(ctx context.Context, connectFn ConnectFunc, cfg ReconnectConfig) error {
	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := connectFn(ctx)
		if err == nil {
			if attempt > 0 {
				slog.Info("pipeline: reconnected", "attempts", attempt+1)
			}
			return nil
		}
		slog.Error("pipeline: connection attempt failed", "attempt", attempt+1, "error", err)

		if attempt+1 > cfg.MaxRetries {
			return fmt.Errorf("pipeline: max retries exceeded (%d attempts): %w", attempt+1, err)
		}

		delay := backoffDelay(attempt+1, cfg)
		slog.Warn("pipeline: retrying",
			"attempt", attempt+1,
			"max_retries", cfg.MaxRetries,
			"delay", delay,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// backoffDelay is retryDelay * 2^(attempt-1), capped at maxRetryDelay.
func backoffDelay(attempt int, cfg ReconnectConfig) time.Duration {
	delay := cfg.RetryDelay * time.Duration(1<<uint(attempt-1))
	if delay > cfg.MaxRetryDelay {
		delay = cfg.MaxRetryDelay
	}
	return delay
}
