// Package engine assembles the provider registry, tool registry, agent
// registry, permission checker, and per-tool pipelines that both
// internal/headless.Runner and the HTTP/SSE transport need identically:
// the same bootstrap sequence the teacher's cmd/opencode-server/main.go
// and internal/headless/runner.go each inlined separately, factored out
// once so the two callers can't drift.
package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/stepflow/stepflow/internal/agent"
	"github.com/stepflow/stepflow/internal/config"
	"github.com/stepflow/stepflow/internal/eventbus"
	"github.com/stepflow/stepflow/internal/executor"
	"github.com/stepflow/stepflow/internal/permission"
	"github.com/stepflow/stepflow/internal/provider"
	"github.com/stepflow/stepflow/internal/storage"
	"github.com/stepflow/stepflow/internal/tool"
	"github.com/stepflow/stepflow/internal/toolmcp"
	"github.com/stepflow/stepflow/internal/toolpipeline"
	"github.com/stepflow/stepflow/pkg/core"
	"github.com/stepflow/stepflow/pkg/types"
)

// toolCallTimeout bounds a single tool invocation, independent of any
// overall run/request timeout.
const toolCallTimeout = 3 * time.Minute

// Options configures Bootstrap.
type Options struct {
	WorkDir     string
	AutoApprove bool
	Verbose     bool
	// Ephemeral, when true, stores sessions under a temp directory instead
	// of the user's data directory (headless --no-save).
	Ephemeral bool
	// ModelOverride, when non-empty, replaces the configured default model
	// ("provider/model") before providers or the default model ID are
	// resolved.
	ModelOverride string
	// Handler renders "ask" permission decisions. Callers with no
	// interactive surface (a headless run, an HTTP request) should supply
	// one that always denies or always allows rather than leaving this
	// nil, since the zero-value default denies every ask outright.
	Handler permission.Handler
}

// Bootstrap holds every shared component a Runner or transport Server
// drives a run through.
type Bootstrap struct {
	AppConfig   *types.Config
	Sessions    *storage.SessionStore
	ProviderReg *provider.Registry
	ToolReg     *tool.Registry
	AgentReg    *agent.Registry
	PermChecker *permission.Checker
	MCPClient   *toolmcp.Client
	Bus         *eventbus.Bus
	Pipelines   map[string]*toolpipeline.Pipeline

	WorkDir           string
	DefaultProviderID string
	DefaultModelID    string
}

// New loads configuration, initializes providers, builds the tool
// registry (plus any configured MCP tools) wrapped in the standard
// [logging, permission, sandbox, retry, timeout] middleware chain, and
// wires a SubagentExecutor into the Task tool.
func New(ctx context.Context, opts Options) (*Bootstrap, error) {
	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return nil, fmt.Errorf("failed to ensure paths: %w", err)
	}

	appConfig, err := config.Load(opts.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if opts.ModelOverride != "" {
		appConfig.Model = opts.ModelOverride
	}

	b := &Bootstrap{AppConfig: appConfig, Bus: eventbus.New(), WorkDir: opts.WorkDir}
	b.parseModel()

	if opts.Ephemeral {
		tempDir, err := os.MkdirTemp("", "stepflow-session-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create temp storage: %w", err)
		}
		b.Sessions = storage.NewSessionStore(tempDir)
	} else {
		b.Sessions = storage.NewSessionStore(paths.StoragePath())
	}

	providerReg, err := provider.InitializeProviders(ctx, appConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}
	b.ProviderReg = providerReg
	b.AgentReg = agent.NewRegistry()

	permConfig := core.PermissionConfiguration{DefaultAction: core.DecisionAsk, EnableSessionMemory: true}
	if opts.AutoApprove {
		permConfig.DefaultAction = core.DecisionAllow
	}
	handler := opts.Handler
	if handler == nil {
		handler = permission.HandlerFunc(func(req permission.Request) (permission.HandlerResponse, error) {
			return permission.ResponseDeny, nil
		})
	}
	b.PermChecker = permission.NewChecker(permConfig, handler)

	middleware := []core.ToolMiddleware{
		toolpipeline.DefaultLoggingMiddleware(),
		toolpipeline.NewPermissionMiddleware(b.PermChecker),
		toolpipeline.NewSandboxMiddleware(core.SandboxConfiguration{
			NetworkPolicy:     core.NetworkLocal,
			FilePolicy:        core.FileWorkingDirectoryOnly,
			AllowSubprocesses: true,
		}, "Bash"),
		toolpipeline.NewRetryMiddleware(toolpipeline.DefaultBackoffConfig()),
		toolpipeline.NewTimeoutMiddleware(toolCallTimeout),
	}

	b.ToolReg = tool.DefaultRegistry(opts.WorkDir, b.Sessions, middleware...)
	b.ToolReg.RegisterTaskTool(b.AgentReg)

	if len(appConfig.MCP) > 0 {
		b.MCPClient = toolmcp.NewClient()
		for name, cfg := range appConfig.MCP {
			enabled := cfg.Enabled == nil || *cfg.Enabled
			mcpCfg := &toolmcp.Config{
				Enabled:     enabled,
				Type:        toolmcp.TransportType(cfg.Type),
				URL:         cfg.URL,
				Headers:     cfg.Headers,
				Command:     cfg.Command,
				Environment: cfg.Environment,
				Timeout:     cfg.Timeout,
			}
			if err := b.MCPClient.AddServer(ctx, name, mcpCfg); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: MCP server %s failed: %v\n", name, err)
				continue
			}
		}
		toolmcp.RegisterMCPTools(b.MCPClient, b.ToolReg)
	}

	b.Pipelines = make(map[string]*toolpipeline.Pipeline, len(b.ToolReg.List()))
	for _, t := range b.ToolReg.List() {
		b.Pipelines[t.Name()] = toolpipeline.New(t, middleware...)
	}

	b.ToolReg.SetTaskExecutor(executor.NewSubagentExecutor(executor.SubagentExecutorConfig{
		Agents:   b.AgentReg,
		Sessions: b.Sessions,
		Bus:      b.Bus,
		WorkDir:  opts.WorkDir,
		BuildSession: func(def *agent.Agent, modelOverride string) core.SessionBuilder {
			providerID, modelID := b.DefaultProviderID, b.DefaultModelID
			if modelOverride != "" {
				providerID, modelID = provider.ParseModelString(modelOverride)
			} else if def.Model != nil {
				providerID, modelID = def.Model.ProviderID, def.Model.ModelID
			}
			return provider.NewSessionBuilder(b.ProviderReg, providerID, modelID, def.Prompt, provider.ToolInfosFromCore(b.ToolReg.List()))
		},
	}))

	return b, nil
}

// ResolveAgent picks an agent definition by name (falling back to "build")
// and overlays a custom system prompt file when given.
func (b *Bootstrap) ResolveAgent(name, systemPromptFile string) (*agent.Agent, error) {
	if name == "" {
		name = "build"
	}
	def, err := b.AgentReg.Get(name)
	if err != nil {
		return nil, fmt.Errorf("resolving agent %q: %w", name, err)
	}
	a := def.Clone()
	if systemPromptFile != "" {
		data, err := os.ReadFile(systemPromptFile)
		if err != nil {
			return nil, fmt.Errorf("reading system prompt file: %w", err)
		}
		a.Prompt = string(data)
	}
	return a, nil
}

// SessionBuilder builds a core.SessionBuilder bound to providerID/modelID
// (falling back to Bootstrap's defaults when empty) and systemPrompt.
func (b *Bootstrap) SessionBuilder(providerID, modelID, systemPrompt string) core.SessionBuilder {
	if providerID == "" {
		providerID = b.DefaultProviderID
	}
	if modelID == "" {
		modelID = b.DefaultModelID
	}
	return provider.NewSessionBuilder(b.ProviderReg, providerID, modelID, systemPrompt, provider.ToolInfosFromCore(b.ToolReg.List()))
}

func (b *Bootstrap) parseModel() {
	model := b.AppConfig.Model
	if model == "" {
		b.DefaultProviderID = "anthropic"
		b.DefaultModelID = "claude-sonnet-4-20250514"
		return
	}
	providerID, modelID := provider.ParseModelString(model)
	if providerID == "" {
		providerID = "anthropic"
	}
	b.DefaultProviderID = providerID
	b.DefaultModelID = modelID
}
