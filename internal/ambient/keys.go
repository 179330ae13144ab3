package ambient

import (
	"context"

	"github.com/stepflow/stepflow/internal/eventbus"
	"github.com/stepflow/stepflow/pkg/core"
)

// AgentSession is the narrow capability AgentSession-aware Steps need from
// the ambient scope: sending content through the session's serialized turn
// processing. The concrete type lives in internal/agentsession; it
// satisfies this interface structurally so ambient never imports the
// higher-level package.
type AgentSession interface {
	Send(ctx context.Context, content string) (core.Response, error)
}

// ToolProvider is the narrow capability a Step needs to discover the tools
// available in its scope. Concrete providers (the static tool registry,
// the MCP client wrapper) satisfy this structurally.
type ToolProvider interface {
	ToolNames() []string
}

// Default ambient keys, named exactly as spec.md §4.9 lists them.
var (
	// AgentSessionKey holds the AgentSession handling the current run, so
	// nested Steps (notably the task tool dispatching a subagent) can reach
	// it without it being threaded explicitly through every signature.
	AgentSessionKey = NewContextKey[AgentSession]("AgentSession", nil)

	// LanguageModelSessionKey holds the LLM session backing the current
	// AgentSession turn (pkg/core.LLMSession, built without this session
	// ever importing ambient).
	LanguageModelSessionKey = NewContextKey[core.LLMSession]("LanguageModelSession", nil)

	// ToolProviderKey holds the tool provider in scope for Tool discovery.
	ToolProviderKey = NewContextKey[ToolProvider]("ToolProvider", nil)

	// EventBusKey holds the EventBus events are published to.
	EventBusKey = NewContextKey[*eventbus.Bus]("EventBus", nil)

	// EventSinkKey holds the EventSink a Transport drains.
	EventSinkKey = NewContextKey[*eventbus.Sink]("EventSink", nil)

	// GuardrailConfigurationKey holds the effective, already-merged
	// GuardrailConfiguration for the current scope (spec.md §4.13).
	GuardrailConfigurationKey = NewContextKey[core.GuardrailConfiguration]("GuardrailConfiguration", core.GuardrailConfiguration{})

	// SandboxConfigurationKey holds the effective SandboxConfiguration,
	// independent of GuardrailConfigurationKey so callers that only care
	// about sandboxing needn't unpack a guardrail value.
	SandboxConfigurationKey = NewContextKey[*core.SandboxConfiguration]("SandboxConfiguration", nil)
)
