package tool

import (
	"sync"

	"github.com/stepflow/stepflow/internal/logging"
	"github.com/stepflow/stepflow/pkg/core"
)

// Registry manages tool registration and lookup, grounded on the teacher's
// internal/tool/registry.go. Unlike the teacher's registry, this one does
// not expose Eino-specific accessors (EinoTools/ToolInfos) — binding to
// Eino's schema.ToolInfo shape happens once, in internal/provider
// (ToolInfosFromCore, consumed by its LLMSession), not at every tool
// consumer.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]core.Tool
	workDir string
}

// NewRegistry creates a new tool registry rooted at workDir.
func NewRegistry(workDir string) *Registry {
	return &Registry{
		tools:   make(map[string]core.Tool),
		workDir: workDir,
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool core.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	logging.Debug().Str("tool", tool.Name()).Msg("registering tool")
	r.tools[tool.Name()] = tool
}

// Get retrieves a tool by name, satisfying ToolLookup.
func (r *Registry) Get(name string) (core.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tools.
func (r *Registry) List() []core.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]core.Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	return tools
}

// Names returns all registered tool names, satisfying ToolLookup.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// DefaultRegistry builds a registry with every built-in tool wired, ready to
// be wrapped in a toolpipeline.Pipeline per call. middleware is applied by
// BatchTool to each of its sub-calls, so the batch path enforces the same
// permission/sandbox/logging/retry/timeout chain a top-level call would.
func DefaultRegistry(workDir string, store TodoStore, middleware ...core.ToolMiddleware) *Registry {
	logging.Info().Str("workDir", workDir).Msg("building default tool registry")
	r := NewRegistry(workDir)

	r.Register(NewReadTool(workDir))
	r.Register(NewWriteTool(workDir))
	r.Register(NewEditTool(workDir))
	r.Register(NewBashTool(workDir))
	r.Register(NewGlobTool(workDir))
	r.Register(NewGrepTool(workDir))
	r.Register(NewListTool(workDir))
	r.Register(NewWebFetchTool(workDir))

	r.Register(NewTodoWriteTool(workDir, store))
	r.Register(NewTodoReadTool(workDir, store))

	r.Register(NewBatchTool(workDir, r, middleware...))

	logging.Info().Strs("tools", r.Names()).Msg("default tool registry ready")
	return r
}

// RegisterTaskTool registers the task tool, resolving subagent definitions
// via agents. Kept separate from DefaultRegistry, which takes no agent
// lookup: internal/tool does not import internal/agent, so the caller
// passes its agent registry in here.
func (r *Registry) RegisterTaskTool(agents AgentDefinitionLookup) *TaskTool {
	taskTool := NewTaskTool(r.workDir, agents)
	r.Register(taskTool)
	logging.Info().Msg("registered task tool")
	return taskTool
}

// SetTaskExecutor wires the executor that actually dispatches subtasks onto
// the registered task tool, if one is registered.
func (r *Registry) SetTaskExecutor(executor TaskExecutor) {
	r.mu.RLock()
	t, ok := r.tools["Task"]
	r.mu.RUnlock()
	if !ok {
		return
	}
	if taskTool, ok := t.(*TaskTool); ok {
		taskTool.SetExecutor(executor)
		logging.Info().Msg("task executor configured")
	}
}
