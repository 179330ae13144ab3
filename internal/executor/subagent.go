// Package executor provides tool.TaskExecutor implementations that
// dispatch subagent invocations.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/stepflow/stepflow/internal/agent"
	"github.com/stepflow/stepflow/internal/agentsession"
	"github.com/stepflow/stepflow/internal/eventbus"
	"github.com/stepflow/stepflow/internal/storage"
	"github.com/stepflow/stepflow/internal/tool"
	"github.com/stepflow/stepflow/pkg/core"
)

// SessionBuilderFactory constructs the core.SessionBuilder used to create
// the underlying LLMSession for a dispatched subagent, scoped to that
// agent's prompt and tool set, with modelOverride (from the Task tool's
// "model" argument) taking precedence over def.Model when non-empty.
// core.SessionBuilder's own doc comment notes it is "supplied by the
// caller, not the engine" — this is that supply point for subagent
// dispatch.
type SessionBuilderFactory func(def *agent.Agent, modelOverride string) core.SessionBuilder

// SubagentExecutor implements tool.TaskExecutor to run subagent tasks.
// It creates a child AgentSession for each dispatch, runs one turn on it,
// and persists the resulting snapshot, parented to the dispatching
// session. Grounded on the teacher's internal/executor/subagent.go, which
// did the same thing against the TypeScript-shaped storage.Storage and
// session.Processor; this version runs against the engine's
// agentsession.Session and storage.SessionStore instead.
type SubagentExecutor struct {
	agents       *agent.Registry
	sessions     *storage.SessionStore
	bus          *eventbus.Bus
	buildSession SessionBuilderFactory
	workDir      string
}

// SubagentExecutorConfig holds configuration for creating a SubagentExecutor.
type SubagentExecutorConfig struct {
	Agents       *agent.Registry
	Sessions     *storage.SessionStore
	Bus          *eventbus.Bus
	BuildSession SessionBuilderFactory
	WorkDir      string
}

// NewSubagentExecutor creates a new SubagentExecutor.
func NewSubagentExecutor(cfg SubagentExecutorConfig) *SubagentExecutor {
	return &SubagentExecutor{
		agents:       cfg.Agents,
		sessions:     cfg.Sessions,
		bus:          cfg.Bus,
		buildSession: cfg.BuildSession,
		workDir:      cfg.WorkDir,
	}
}

// ExecuteSubtask implements tool.TaskExecutor.
func (e *SubagentExecutor) ExecuteSubtask(
	ctx context.Context,
	parentSessionID string,
	agentName string,
	prompt string,
	opts tool.TaskOptions,
) (*tool.TaskResult, error) {
	def, err := e.agents.Get(agentName)
	if err != nil {
		return nil, fmt.Errorf("agent not found: %s: %w", agentName, err)
	}
	if !def.IsSubagent() {
		return nil, fmt.Errorf("agent %s cannot be used as subagent (mode: %s)", agentName, def.Mode)
	}

	childID := ulid.Make().String()
	createdAt := time.Now()
	var transcript core.Transcript

	if opts.ResumeFrom != "" {
		snap, err := e.sessions.Get(ctx, opts.ResumeFrom)
		if err != nil {
			return nil, fmt.Errorf("resuming subagent session %s: %w", opts.ResumeFrom, err)
		}
		childID = snap.ID
		transcript = snap.Transcript
		createdAt = snap.CreatedAt
	}

	delegate := e.buildSession(def, opts.Model)

	childSession, err := agentsession.New(ctx, childID, transcript, delegate, e.bus)
	if err != nil {
		return nil, fmt.Errorf("starting subagent session: %w", err)
	}

	metadata := map[string]string{
		"agent":       agentName,
		"description": opts.Description,
	}

	response, err := childSession.Send(ctx, prompt)
	if err != nil {
		e.persist(ctx, childSession, createdAt, parentSessionID, metadata)

		return &tool.TaskResult{
			Output:    fmt.Sprintf("Error executing subtask: %s", err.Error()),
			SessionID: childID,
			AgentID:   agentName,
			Metadata: map[string]any{
				"parentSessionID": parentSessionID,
				"error":           err.Error(),
			},
		}, nil
	}

	if err := e.persist(ctx, childSession, createdAt, parentSessionID, metadata); err != nil {
		return nil, fmt.Errorf("saving subagent session: %w", err)
	}

	return &tool.TaskResult{
		Output:    extractTextContent(response),
		SessionID: childID,
		AgentID:   agentName,
		Metadata: map[string]any{
			"parentSessionID": parentSessionID,
			"durationMS":      response.Duration.Milliseconds(),
		},
	}, nil
}

// persist snapshots sess and stores it, parented to parentSessionID.
func (e *SubagentExecutor) persist(ctx context.Context, sess *agentsession.Session, createdAt time.Time, parentSessionID string, metadata map[string]string) error {
	snapshot := sess.Snapshot(createdAt)
	snapshot.ParentID = parentSessionID
	snapshot.Metadata = metadata
	return e.sessions.Put(ctx, snapshot)
}

// extractTextContent pulls the response's text out of its turn content,
// falling back to joining any string-valued response entries appended
// during the turn.
func extractTextContent(response core.Response) string {
	if text, ok := response.Content.(string); ok && text != "" {
		return text
	}

	var texts []string
	for _, entry := range response.Entries {
		if entry.Kind != core.EntryResponse {
			continue
		}
		if text, ok := entry.Content.(string); ok && text != "" {
			texts = append(texts, text)
		}
	}
	return strings.Join(texts, "\n")
}
