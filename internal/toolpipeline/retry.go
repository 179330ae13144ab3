package toolpipeline

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stepflow/stepflow/pkg/core"
)

// BackoffConfig configures RetryMiddleware's jittered exponential-backoff
// schedule, mirroring internal/step.BackoffConfig's shape over the
// ToolMiddleware chain instead of a Step (spec.md §4.12.3).
type BackoffConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	MaxRetries      uint64
}

// DefaultBackoffConfig matches internal/step.DefaultBackoffConfig's schedule.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		MaxElapsedTime:  2 * time.Minute,
		MaxRetries:      3,
	}
}

// RetryMiddleware retries the pipeline continuation using jittered
// exponential backoff; attempts beyond MaxRetries surface the last error.
type RetryMiddleware struct {
	cfg BackoffConfig
}

// NewRetryMiddleware builds a RetryMiddleware with cfg.
func NewRetryMiddleware(cfg BackoffConfig) *RetryMiddleware {
	return &RetryMiddleware{cfg: cfg}
}

// Handle implements core.ToolMiddleware.
func (m *RetryMiddleware) Handle(ctx context.Context, toolCtx *core.ToolContext, next core.ToolHandler) (*core.ToolResult, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.cfg.InitialInterval
	b.MaxInterval = m.cfg.MaxInterval
	b.MaxElapsedTime = m.cfg.MaxElapsedTime
	bo := backoff.WithContext(backoff.WithMaxRetries(b, m.cfg.MaxRetries), ctx)

	var result *core.ToolResult
	err := backoff.Retry(func() error {
		var runErr error
		result, runErr = next(ctx, toolCtx)
		return runErr
	}, bo)
	if err != nil {
		return nil, err
	}
	return result, nil
}
