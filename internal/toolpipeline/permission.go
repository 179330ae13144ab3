package toolpipeline

import (
	"context"
	"encoding/json"

	"github.com/stepflow/stepflow/internal/ambient"
	"github.com/stepflow/stepflow/internal/permission"
	"github.com/stepflow/stepflow/pkg/core"
)

// PermissionMiddleware enforces spec.md §4.12.1's decision algorithm
// against the ambient GuardrailConfiguration layered over its Checker's
// base PermissionConfiguration. Grounded on internal/permission.Checker;
// this file only adapts it to the ToolMiddleware shape and supplies the
// argument decoding Checker.Invocation needs.
type PermissionMiddleware struct {
	checker *permission.Checker
}

// NewPermissionMiddleware wraps checker as a ToolMiddleware.
func NewPermissionMiddleware(checker *permission.Checker) *PermissionMiddleware {
	return &PermissionMiddleware{checker: checker}
}

// Handle implements core.ToolMiddleware.
func (m *PermissionMiddleware) Handle(ctx context.Context, toolCtx *core.ToolContext, next core.ToolHandler) (*core.ToolResult, error) {
	inv := permission.Invocation{
		ToolName:  toolCtx.ToolName,
		Arguments: decodeArguments(toolCtx.ArgumentsJSON),
	}
	overlay := ambient.GuardrailConfigurationKey.Current(ctx)
	if err := m.checker.CheckWithOverlay(inv, overlay); err != nil {
		return nil, err
	}
	return next(ctx, toolCtx)
}

// decodeArguments best-effort decodes a tool's raw JSON arguments into the
// map Invocation/Rule matching needs; malformed or non-object arguments
// match as an empty set rather than failing the call here (PermissionMiddleware
// is about authorization, not argument validation).
func decodeArguments(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil
	}
	return args
}
