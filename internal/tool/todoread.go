package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stepflow/stepflow/pkg/core"
)

const todoreadDescription = `Use this tool to read your todo list`

var todoreadSchema = json.RawMessage(`{
	"type": "object",
	"properties": {},
	"required": []
}`)

// TodoReadTool reads a session's current todo list, grounded on the
// teacher's internal/tool/todoread.go.
type TodoReadTool struct {
	workDir string
	store   TodoStore
}

// NewTodoReadTool builds a TodoReadTool backed by store.
func NewTodoReadTool(workDir string, store TodoStore) *TodoReadTool {
	return &TodoReadTool{workDir: workDir, store: store}
}

func (t *TodoReadTool) Name() string            { return "TodoRead" }
func (t *TodoReadTool) Description() string     { return todoreadDescription }
func (t *TodoReadTool) Schema() json.RawMessage { return todoreadSchema }

func (t *TodoReadTool) Call(ctx context.Context, toolCtx *core.ToolContext, arguments json.RawMessage) (*core.ToolResult, error) {
	todos, err := t.store.GetTodos(ctx, toolCtx.SessionID)
	if err != nil {
		return nil, core.Wrap(core.KindSessionLoadFailed, err, "load todos for session %s", toolCtx.SessionID)
	}

	nonCompleted := 0
	for _, todo := range todos {
		if todo.Status != "completed" {
			nonCompleted++
		}
	}

	output, _ := json.MarshalIndent(todos, "", "  ")
	return &core.ToolResult{
		Title:    fmt.Sprintf("%d todos", nonCompleted),
		Output:   string(output),
		Metadata: map[string]any{"todos": todos},
	}, nil
}
