// Package tool implements stepflow's built-in tools: Read, Write, Edit,
// Bash, Glob, Grep, List, WebFetch, Batch, and Task. Every tool here
// satisfies core.Tool and is meant to be wrapped in a
// toolpipeline.Pipeline before being handed to an LLM session, never
// called directly.
//
// Grounded on the teacher's internal/tool package (tool.go's BaseTool
// shape, each built-in's Execute body), adapted from opencode's
// Eino-erased Tool interface (Execute(ctx, input, *Context) (*Result,
// error), one EinoTool() per tool) to core.Tool's explicit-continuation
// shape (Call(ctx, *ToolContext, arguments)); see DESIGN.md for why Eino
// itself is deferred to the concrete LLMSession binding rather than
// wired at this layer.
package tool

import (
	"context"
	"encoding/json"

	"github.com/stepflow/stepflow/internal/ambient"
	"github.com/stepflow/stepflow/pkg/core"
)

// workingDirectory resolves the directory a tool should operate in:
// toolCtx's WorkingDirectory if set, else the tool's own configured
// default.
func workingDirectory(toolCtx *core.ToolContext, fallback string) string {
	if toolCtx != nil && toolCtx.WorkingDirectory != "" {
		return toolCtx.WorkingDirectory
	}
	return fallback
}

// emitFileEdited publishes a notification on the ambient EventBus (if one
// is bound) naming a file a tool just wrote or edited. Grounded on the
// teacher's internal/event.Publish(FileEdited) calls in write.go/edit.go,
// generalized to the ambient EventBus rather than a process-global
// publisher.
func emitFileEdited(ctx context.Context, path string) {
	bus := ambient.EventBusKey.Current(ctx)
	if bus == nil {
		return
	}
	bus.Emit(core.NewEvent(core.EventNotification, core.VariantCommunity, map[string]any{
		"kind": "fileEdited",
		"file": path,
	}))
}

// unmarshalInput decodes arguments into dst, wrapping failures as a
// KindInvalidConfig error naming the tool.
func unmarshalInput(toolName string, arguments json.RawMessage, dst any) error {
	if err := json.Unmarshal(arguments, dst); err != nil {
		return core.Wrap(core.KindInvalidConfig, err, "%s: invalid arguments", toolName)
	}
	return nil
}
