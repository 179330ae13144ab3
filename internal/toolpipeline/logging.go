package toolpipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stepflow/stepflow/internal/logging"
	"github.com/stepflow/stepflow/pkg/core"
)

// LoggingMiddleware logs start/finish/error with duration for every tool
// invocation (spec.md §4.12.3), via the teacher's zerolog-backed
// internal/logging package rather than a bespoke logger.
type LoggingMiddleware struct {
	logger zerolog.Logger
}

// NewLoggingMiddleware builds a LoggingMiddleware over logger.
func NewLoggingMiddleware(logger zerolog.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger}
}

// DefaultLoggingMiddleware uses the package's shared global logger.
func DefaultLoggingMiddleware() *LoggingMiddleware {
	return &LoggingMiddleware{logger: logging.Logger}
}

// Handle implements core.ToolMiddleware.
func (m *LoggingMiddleware) Handle(ctx context.Context, toolCtx *core.ToolContext, next core.ToolHandler) (*core.ToolResult, error) {
	start := time.Now()
	m.logger.Info().Str("tool", toolCtx.ToolName).Int("depth", toolCtx.Depth).Msg("tool call start")

	result, err := next(ctx, toolCtx)
	elapsed := time.Since(start)

	if err != nil {
		m.logger.Error().Str("tool", toolCtx.ToolName).Dur("elapsed", elapsed).Err(err).Msg("tool call error")
		return result, err
	}
	m.logger.Info().Str("tool", toolCtx.ToolName).Dur("elapsed", elapsed).Msg("tool call finish")
	return result, nil
}
