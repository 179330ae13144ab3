// Package toolpipeline implements ToolPipeline and the built-in
// middleware chain PermissionMiddleware, SandboxMiddleware,
// LoggingMiddleware, RetryMiddleware, and TimeoutMiddleware (spec.md
// §4.12). Every tool visible to an LLM turn is wrapped in a Pipeline
// before being handed to the LLM session, so the LLM sees one
// identically-shaped tool regardless of how many middleware wrap its
// body.
package toolpipeline

import (
	"context"
	"encoding/json"

	"github.com/stepflow/stepflow/pkg/core"
)

// Pipeline is an ordered list of middleware terminating in a tool's body:
// pipeline.Handle(ctx) = m0(ctx, m1(ctx, … mn-1(ctx, tool.Call(ctx, args))))
// (spec.md §4.12).
type Pipeline struct {
	tool       core.Tool
	middleware []core.ToolMiddleware
}

// New builds a Pipeline wrapping tool with middleware, outermost first:
// the first middleware given sees the call first and the result last.
func New(tool core.Tool, middleware ...core.ToolMiddleware) *Pipeline {
	return &Pipeline{tool: tool, middleware: middleware}
}

// Handle runs the chain for a single invocation.
func (p *Pipeline) Handle(ctx context.Context, toolCtx *core.ToolContext) (*core.ToolResult, error) {
	handler := core.ToolHandler(func(ctx context.Context, toolCtx *core.ToolContext) (*core.ToolResult, error) {
		return p.tool.Call(ctx, toolCtx, toolCtx.ArgumentsJSON)
	})

	for i := len(p.middleware) - 1; i >= 0; i-- {
		m := p.middleware[i]
		next := handler
		handler = func(ctx context.Context, toolCtx *core.ToolContext) (*core.ToolResult, error) {
			return m.Handle(ctx, toolCtx, next)
		}
	}

	return handler(ctx, toolCtx)
}

// Name returns the wrapped tool's name, so a Pipeline can stand in for its
// tool wherever only identity/schema are needed (registry lookups, LLM
// tool listings).
func (p *Pipeline) Name() string              { return p.tool.Name() }
func (p *Pipeline) Description() string       { return p.tool.Description() }
func (p *Pipeline) Schema() json.RawMessage   { return p.tool.Schema() }
