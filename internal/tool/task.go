package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stepflow/stepflow/pkg/core"
)

const taskDescription = `Launch a new agent to handle complex, multi-step tasks autonomously.

The Task tool launches specialized agents (subagents) that autonomously handle complex tasks.
Each agent type has specific capabilities and tools available to it.

Usage notes:
- Launch multiple agents concurrently when possible
- Each agent invocation is stateless
- The agent's outputs should be trusted
- Specify desired thoroughness level when calling an exploration agent`

var taskSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"description": {
			"type": "string",
			"description": "A short (3-5 word) description of the task"
		},
		"prompt": {
			"type": "string",
			"description": "The detailed task for the agent to perform"
		},
		"subagent_type": {
			"type": "string",
			"description": "The name of the agent definition to dispatch"
		},
		"model": {
			"type": "string",
			"description": "Optional model override"
		},
		"resume": {
			"type": "string",
			"description": "Optional agent ID to resume from"
		}
	},
	"required": ["description", "prompt", "subagent_type"]
}`)

// AgentDefinitionLookup resolves subagent definitions by name and reports
// whether they accept dispatch as a subagent. Satisfied by
// internal/agent's Registry; kept as a narrow interface here so
// internal/tool does not depend on internal/agent.
type AgentDefinitionLookup interface {
	IsSubagent(name string) (bool, error)
	SubagentNames() []string
}

// TaskExecutor actually runs a dispatched subtask. Satisfied by
// internal/executor's SubagentExecutor.
type TaskExecutor interface {
	ExecuteSubtask(ctx context.Context, sessionID, agentName, prompt string, opts TaskOptions) (*TaskResult, error)
}

// TaskOptions configures a dispatched subtask.
type TaskOptions struct {
	Model       string
	ResumeFrom  string
	Description string
	Depth       int
}

// TaskResult is the outcome of a dispatched subtask.
type TaskResult struct {
	Output    string         `json:"output"`
	SessionID string         `json:"sessionID"`
	AgentID   string         `json:"agentID,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// TaskInput is the decoded argument set for TaskTool.
type TaskInput struct {
	Description  string `json:"description"`
	Prompt       string `json:"prompt"`
	SubagentType string `json:"subagent_type"`
	Model        string `json:"model,omitempty"`
	Resume       string `json:"resume,omitempty"`
}

// TaskTool dispatches a subagent invocation, grounded on the teacher's
// internal/tool/task.go. Per Open Question (b), call depth is tracked
// explicitly here (toolCtx.Depth + 1 is handed to the executor) rather
// than derived by reflecting over the call stack.
type TaskTool struct {
	workDir  string
	agents   AgentDefinitionLookup
	executor TaskExecutor
}

// NewTaskTool builds a TaskTool resolving subagent definitions via agents.
func NewTaskTool(workDir string, agents AgentDefinitionLookup) *TaskTool {
	return &TaskTool{workDir: workDir, agents: agents}
}

// SetExecutor attaches the executor that actually runs dispatched subtasks.
func (t *TaskTool) SetExecutor(executor TaskExecutor) {
	t.executor = executor
}

func (t *TaskTool) Name() string            { return "Task" }
func (t *TaskTool) Description() string     { return taskDescription }
func (t *TaskTool) Schema() json.RawMessage { return taskSchema }

func (t *TaskTool) Call(ctx context.Context, toolCtx *core.ToolContext, arguments json.RawMessage) (*core.ToolResult, error) {
	var params TaskInput
	if err := unmarshalInput(t.Name(), arguments, &params); err != nil {
		return nil, err
	}

	if params.Description == "" {
		return nil, core.InvalidConfiguration("description", "description is required")
	}
	if params.Prompt == "" {
		return nil, core.InvalidConfiguration("prompt", "prompt is required")
	}
	if params.SubagentType == "" {
		return nil, core.InvalidConfiguration("subagent_type", "subagent_type is required")
	}

	isSubagent, err := t.agents.IsSubagent(params.SubagentType)
	if err != nil {
		return nil, core.Wrap(core.KindInvalidConfig, err, "unknown subagent type %q, available types: %v", params.SubagentType, t.agents.SubagentNames())
	}
	if !isSubagent {
		return nil, core.InvalidConfiguration("subagent_type", "agent %q cannot be used as a subagent", params.SubagentType)
	}

	if t.executor == nil {
		return &core.ToolResult{
			Title:  fmt.Sprintf("Task: %s", params.Description),
			Output: fmt.Sprintf("[Subtask execution not configured]\n\nAgent: %s\nPrompt: %s", params.SubagentType, params.Prompt),
			Metadata: map[string]any{
				"subagent":    params.SubagentType,
				"status":      "skipped",
				"description": params.Description,
			},
		}, nil
	}

	opts := TaskOptions{
		Model:       params.Model,
		ResumeFrom:  params.Resume,
		Description: params.Description,
		Depth:       toolCtx.Depth + 1,
	}

	result, err := t.executor.ExecuteSubtask(ctx, toolCtx.SessionID, params.SubagentType, params.Prompt, opts)
	if err != nil {
		return &core.ToolResult{
			Title:  fmt.Sprintf("Subtask failed: %s", params.Description),
			Output: fmt.Sprintf("Error: %s", err.Error()),
			Metadata: map[string]any{
				"subagent": params.SubagentType,
				"status":   "failed",
				"error":    err.Error(),
			},
		}, nil
	}

	metadata := map[string]any{
		"subagent": params.SubagentType,
		"status":   "completed",
	}
	if result.SessionID != "" {
		metadata["sessionID"] = result.SessionID
	}
	if result.AgentID != "" {
		metadata["agentID"] = result.AgentID
	}
	for k, v := range result.Metadata {
		metadata[k] = v
	}

	return &core.ToolResult{
		Title:    fmt.Sprintf("Completed: %s", params.Description),
		Output:   result.Output,
		Metadata: metadata,
	}, nil
}
