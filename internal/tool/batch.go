// Package tool provides the batch tool for parallel tool execution.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/stepflow/stepflow/internal/step"
	"github.com/stepflow/stepflow/internal/toolpipeline"
	"github.com/stepflow/stepflow/pkg/core"
)

const batchDescription = `Executes multiple independent tool calls concurrently to reduce latency. Best used for gathering context (reads, searches, listings).

Payload Format (JSON array):
[{"tool": "Read", "parameters": {"file_path": "src/index.ts", "limit": 350}},{"tool": "Grep", "parameters": {"pattern": "Session\\.updatePart"}},{"tool": "Bash", "parameters": {"command": "git status", "description": "Shows working tree status"}}]

Rules:
- 1-10 tool calls per batch
- All calls start in parallel; ordering NOT guaranteed
- Partial failures do not stop others

Disallowed Tools:
- Batch (no nesting)
- Edit (run edits separately)
- TodoRead (call directly - lightweight)

When NOT to Use:
- Operations that depend on prior tool output (e.g. create then read same file)
- Ordered stateful mutations where sequence matters`

const maxBatchSize = 10

var disallowedTools = map[string]bool{
	"Batch":    true,
	"Edit":     true,
	"TodoRead": true,
}

var filteredFromSuggestions = map[string]bool{
	"Batch":    true,
	"Edit":     true,
	"TodoRead": true,
}

var batchSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"tool_calls": {
			"type": "array",
			"description": "Array of tool calls to execute in parallel",
			"items": {
				"type": "object",
				"properties": {
					"tool": {"type": "string", "description": "The name of the tool to execute"},
					"parameters": {"type": "object", "description": "Parameters for the tool"}
				},
				"required": ["tool", "parameters"]
			},
			"minItems": 1
		}
	},
	"required": ["tool_calls"]
}`)

// ToolLookup resolves a tool by name, satisfied by Registry.
type ToolLookup interface {
	Get(name string) (core.Tool, bool)
	Names() []string
}

// BatchTool fans a set of independent tool invocations out over
// internal/step.Parallel, wrapping each in its own toolpipeline.Pipeline so
// permission/sandbox/logging/retry/timeout middleware still apply
// per-call. Grounded on the teacher's internal/tool/batch.go (errgroup-based
// parallel execution), generalized to the Step composition SPEC_FULL.md
// §4.21 asks for instead of a hand-rolled goroutine fan-out.
type BatchTool struct {
	workDir    string
	lookup     ToolLookup
	middleware []core.ToolMiddleware
}

// BatchInput is the decoded argument set for BatchTool.
type BatchInput struct {
	ToolCalls []ToolCall `json:"tool_calls"`
}

// ToolCall is a single tool invocation within a batch.
type ToolCall struct {
	Tool       string          `json:"tool"`
	Parameters json.RawMessage `json:"parameters"`
}

// BatchResult is the outcome of a single tool call within a batch.
type BatchResult struct {
	Index   int               `json:"index"`
	Tool    string            `json:"tool"`
	Success bool              `json:"success"`
	Result  *core.ToolResult  `json:"result,omitempty"`
	Error   string            `json:"error,omitempty"`
	Time    time.Duration     `json:"time"`
}

// NewBatchTool builds a BatchTool resolving sub-calls through lookup, each
// wrapped in middleware before being run.
func NewBatchTool(workDir string, lookup ToolLookup, middleware ...core.ToolMiddleware) *BatchTool {
	return &BatchTool{workDir: workDir, lookup: lookup, middleware: middleware}
}

func (t *BatchTool) Name() string            { return "Batch" }
func (t *BatchTool) Description() string     { return batchDescription }
func (t *BatchTool) Schema() json.RawMessage { return batchSchema }

func (t *BatchTool) Call(ctx context.Context, toolCtx *core.ToolContext, arguments json.RawMessage) (*core.ToolResult, error) {
	var params BatchInput
	if err := unmarshalInput(t.Name(), arguments, &params); err != nil {
		return nil, err
	}
	if len(params.ToolCalls) == 0 {
		return nil, core.InvalidConfiguration("tool_calls", "tool_calls array must contain at least one tool call")
	}

	toolCalls := params.ToolCalls
	var discarded []ToolCall
	if len(toolCalls) > maxBatchSize {
		discarded = toolCalls[maxBatchSize:]
		toolCalls = toolCalls[:maxBatchSize]
	}

	available := t.availableToolNames()

	children := make([]step.AnyStep[struct{}, *BatchResult], len(toolCalls))
	for i, call := range toolCalls {
		i, call := i, call
		children[i] = step.Erase(step.Func[struct{}, *BatchResult](func(ctx context.Context, _ struct{}) (*BatchResult, error) {
			return t.executeCall(ctx, i, call, toolCtx, available), nil
		}))
	}

	results, err := step.Parallel(children).Run(ctx, struct{}{})
	if err != nil {
		return nil, err
	}

	for i, call := range discarded {
		results = append(results, &BatchResult{
			Index: maxBatchSize + i,
			Tool:  call.Tool,
			Error: "maximum of 10 tools allowed in batch",
		})
	}

	return t.formatResults(results, params.ToolCalls)
}

func (t *BatchTool) executeCall(ctx context.Context, index int, call ToolCall, toolCtx *core.ToolContext, available []string) *BatchResult {
	start := time.Now()
	result := &BatchResult{Index: index, Tool: call.Tool}
	defer func() { result.Time = time.Since(start) }()

	if disallowedTools[call.Tool] {
		result.Error = fmt.Sprintf("tool %q is not allowed in batch: %s", call.Tool, strings.Join(disallowedToolNames(), ", "))
		return result
	}

	tool, ok := t.lookup.Get(call.Tool)
	if !ok {
		result.Error = fmt.Sprintf("tool %q not found, available tools: %s", call.Tool, strings.Join(available, ", "))
		return result
	}

	childCtx := &core.ToolContext{
		ToolName:         call.Tool,
		ArgumentsJSON:    call.Parameters,
		SessionID:        toolCtx.SessionID,
		WorkingDirectory: toolCtx.WorkingDirectory,
		PermissionMode:   toolCtx.PermissionMode,
		Depth:            toolCtx.Depth,
		Extra:            toolCtx.Extra,
	}

	pipeline := toolpipeline.New(tool, t.middleware...)
	toolResult, err := pipeline.Handle(ctx, childCtx)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.Result = toolResult
	return result
}

func (t *BatchTool) formatResults(results []*BatchResult, originalCalls []ToolCall) (*core.ToolResult, error) {
	successCount := 0

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	var outputParts []string
	details := make([]map[string]any, 0, len(results))

	for _, r := range results {
		detail := map[string]any{"tool": r.Tool, "success": r.Success, "time_ms": r.Time.Milliseconds()}

		if r.Success {
			successCount++
			if r.Result != nil {
				outputParts = append(outputParts, fmt.Sprintf("=== %s (success) ===\n%s", r.Tool, r.Result.Output))
				detail["title"] = r.Result.Title
			}
		} else {
			outputParts = append(outputParts, fmt.Sprintf("=== %s (failed) ===\n%s", r.Tool, r.Error))
			detail["error"] = r.Error
		}

		details = append(details, detail)
	}

	failedCount := len(results) - successCount
	var outputMessage string
	if failedCount > 0 {
		outputMessage = fmt.Sprintf("Executed %d/%d tools successfully. %d failed.\n\n%s",
			successCount, len(results), failedCount, strings.Join(outputParts, "\n\n"))
	} else {
		outputMessage = fmt.Sprintf("All %d tools executed successfully.\n\n%s", successCount, strings.Join(outputParts, "\n\n"))
	}

	toolNames := make([]string, len(originalCalls))
	for i, call := range originalCalls {
		toolNames[i] = call.Tool
	}

	return &core.ToolResult{
		Title:  fmt.Sprintf("Batch execution (%d/%d successful)", successCount, len(results)),
		Output: outputMessage,
		Metadata: map[string]any{
			"totalCalls": len(results),
			"successful": successCount,
			"failed":     failedCount,
			"tools":      toolNames,
			"details":    details,
		},
	}, nil
}

func (t *BatchTool) availableToolNames() []string {
	names := make([]string, 0, len(t.lookup.Names()))
	for _, n := range t.lookup.Names() {
		if !filteredFromSuggestions[n] {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

func disallowedToolNames() []string {
	list := make([]string, 0, len(disallowedTools))
	for name := range disallowedTools {
		list = append(list, name)
	}
	sort.Strings(list)
	return list
}
