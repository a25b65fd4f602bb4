package pipeline

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"go-shard-query/internal/driver"
	"go-shard-query/internal/model"
)

// DefaultRetryConfig connects once and never retries
var DefaultRetryConfig = model.RetryConfig{
	MaxAttempts:       1,
	InitialDelay:      500 * time.Millisecond,
	MaxDelay:          10 * time.Second,
	BackoffMultiplier: 2.0,
}

// withRetryDefaults fills unset fields from DefaultRetryConfig
func withRetryDefaults(cfg model.RetryConfig) model.RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultRetryConfig.MaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = DefaultRetryConfig.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultRetryConfig.MaxDelay
	}
	if cfg.BackoffMultiplier < 1 {
		cfg.BackoffMultiplier = DefaultRetryConfig.BackoffMultiplier
	}
	return cfg
}

// newBackOff builds the exponential schedule for cfg, bounded by attempts and ctx
func newBackOff(ctx context.Context, cfg model.RetryConfig) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = cfg.InitialDelay
	exp.MaxInterval = cfg.MaxDelay
	exp.Multiplier = cfg.BackoffMultiplier
	exp.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(cfg.MaxAttempts-1)), ctx)
}

// connectWithRetry acquires a connection for target. Only connection
// acquisition is retried; query errors never are.
func connectWithRetry(ctx context.Context, d driver.Driver, target model.ShardTarget, cfg model.RetryConfig, timeout time.Duration, logger *zap.Logger) (driver.Conn, int, error) {
	cfg = withRetryDefaults(cfg)

	var conn driver.Conn
	attempts := 0
	op := func() error {
		attempts++
		connectCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		c, err := d.Connect(connectCtx, target)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		conn = c
		return nil
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("Shard connection failed, retrying",
			zap.String("param", target.Param),
			zap.Int("attempt", attempts),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	err := backoff.RetryNotify(op, newBackOff(ctx, cfg), notify)
	return conn, attempts, err
}
