package step

import "github.com/stepflow/stepflow/pkg/core"

func blocked(reason string) error { return core.Blocked(reason) }

// Errors re-exports the core error kinds for callers composing Steps
// without importing pkg/core directly.
var (
	ErrCancelled = core.Cancelled
	ErrTimeout   = core.Timeout
)
