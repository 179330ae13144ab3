package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stepflow/stepflow/internal/ambient"
	"github.com/stepflow/stepflow/pkg/core"
)

const todowriteDescription = `Use this tool to create and manage a structured task list for your current coding session. This helps you track progress, organize complex tasks, and demonstrate thoroughness to the user.

## When to Use This Tool
Use this tool proactively in these scenarios:

1. Complex multi-step tasks - When a task requires 3 or more distinct steps or actions
2. Non-trivial and complex tasks - Tasks that require careful planning or multiple operations
3. User explicitly requests todo list - When the user directly asks you to use the todo list
4. User provides multiple tasks - When users provide a list of things to be done
5. After receiving new instructions - Immediately capture user requirements as todos
6. When you start working on a task - Mark it as in_progress BEFORE beginning work
7. After completing a task - Mark it as completed and add any new follow-up tasks discovered during implementation

Exactly ONE task should be in_progress at any time.`

// TodoItem is a single entry in a session's task list.
type TodoItem struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

// TodoStore is the minimal persistence TodoWriteTool/TodoReadTool need:
// a per-session todo list, scoped narrower than the full core.SessionStore
// (which persists transcripts, not ad hoc tool state). A concrete
// internal/storage backend satisfies this alongside core.SessionStore.
type TodoStore interface {
	PutTodos(ctx context.Context, sessionID string, todos []TodoItem) error
	GetTodos(ctx context.Context, sessionID string) ([]TodoItem, error)
}

var todowriteSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"todos": {
			"type": "array",
			"description": "The updated todo list",
			"items": {
				"type": "object",
				"properties": {
					"id": {"type": "string", "description": "Unique identifier for the todo item"},
					"content": {"type": "string", "description": "Brief description of the task"},
					"status": {"type": "string", "description": "pending, in_progress, or completed"},
					"priority": {"type": "string", "description": "high, medium, or low"}
				},
				"required": ["id", "content", "status", "priority"]
			}
		}
	},
	"required": ["todos"]
}`)

// TodoWriteTool replaces a session's todo list, grounded on the teacher's
// internal/tool/todowrite.go.
type TodoWriteTool struct {
	workDir string
	store   TodoStore
}

// TodoWriteInput is the decoded argument set for TodoWriteTool.
type TodoWriteInput struct {
	Todos []TodoItem `json:"todos"`
}

// NewTodoWriteTool builds a TodoWriteTool backed by store.
func NewTodoWriteTool(workDir string, store TodoStore) *TodoWriteTool {
	return &TodoWriteTool{workDir: workDir, store: store}
}

func (t *TodoWriteTool) Name() string            { return "TodoWrite" }
func (t *TodoWriteTool) Description() string     { return todowriteDescription }
func (t *TodoWriteTool) Schema() json.RawMessage { return todowriteSchema }

func (t *TodoWriteTool) Call(ctx context.Context, toolCtx *core.ToolContext, arguments json.RawMessage) (*core.ToolResult, error) {
	var params TodoWriteInput
	if err := unmarshalInput(t.Name(), arguments, &params); err != nil {
		return nil, err
	}

	if err := t.store.PutTodos(ctx, toolCtx.SessionID, params.Todos); err != nil {
		return nil, core.Wrap(core.KindSessionSaveFailed, err, "update todos for session %s", toolCtx.SessionID)
	}

	if bus := ambient.EventBusKey.Current(ctx); bus != nil {
		bus.Emit(core.NewEvent(core.EventNotification, core.VariantSession, map[string]any{
			"kind":      "todoUpdated",
			"sessionID": toolCtx.SessionID,
			"todos":     params.Todos,
		}))
	}

	nonCompleted := 0
	for _, todo := range params.Todos {
		if todo.Status != "completed" {
			nonCompleted++
		}
	}

	output, _ := json.MarshalIndent(params.Todos, "", "  ")
	return &core.ToolResult{
		Title:    fmt.Sprintf("%d todos", nonCompleted),
		Output:   string(output),
		Metadata: map[string]any{"todos": params.Todos},
	}, nil
}
