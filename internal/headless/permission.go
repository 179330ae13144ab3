package headless

import (
	"github.com/stepflow/stepflow/internal/logging"
	"github.com/stepflow/stepflow/internal/permission"
)

// nonInteractiveHandler implements permission.Handler for headless runs,
// which have no terminal to render a prompt on: every "ask" decision
// denies rather than blocking forever, optionally logging the denial when
// verbose so a human reviewing the run log can see what was refused.
type nonInteractiveHandler struct {
	verbose bool
}

// newNonInteractiveHandler builds the handler a headless Runner's
// permission.Checker falls back to whenever a rule's default_action (or
// the agent's own configuration) is "ask".
func newNonInteractiveHandler(verbose bool) *nonInteractiveHandler {
	return &nonInteractiveHandler{verbose: verbose}
}

// Ask implements permission.Handler.
func (h *nonInteractiveHandler) Ask(req permission.Request) (permission.HandlerResponse, error) {
	if h.verbose {
		logging.Warn().
			Str("tool", req.Invocation.ToolName).
			Str("memoryKey", req.MemoryKey).
			Msg("headless run denied an ask-gated tool call: no terminal to prompt")
	}
	return permission.ResponseDeny, nil
}
