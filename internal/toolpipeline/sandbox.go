package toolpipeline

import (
	"context"
	"strings"

	"github.com/stepflow/stepflow/internal/ambient"
	"github.com/stepflow/stepflow/internal/permission"
	"github.com/stepflow/stepflow/pkg/core"
)

// networkTools are command names SandboxMiddleware treats as
// network-capable for NetworkPolicy enforcement.
var networkTools = map[string]bool{
	"curl": true, "wget": true, "nc": true, "ncat": true,
	"ssh": true, "scp": true, "ftp": true, "telnet": true,
}

// mutatingTools are command names SandboxMiddleware treats as filesystem
// mutations for FilePolicy enforcement.
var mutatingTools = map[string]bool{
	"rm": true, "mv": true, "cp": true, "touch": true,
	"mkdir": true, "tee": true, "truncate": true, "chmod": true, "chown": true,
}

// SandboxMiddleware enforces the effective SandboxConfiguration's policy
// surfaces against command-executor tools only; every other tool passes
// through untouched (spec.md §4.12.2). The effective configuration is an
// ambient SandboxConfiguration if one is bound, else the ambient
// GuardrailConfiguration's Sandbox override if set, else the middleware's
// base configuration.
//
// There is no teacher equivalent (opencode has no sandbox layer at all);
// grounded on the *shape* of haasonsaas-nexus's tool_manager.go policy
// surface ({network_policy, file_policy}), not its pooled-runtime
// execution backend, which is out of scope for a policy-enforcement
// middleware that never itself executes the command.
type SandboxMiddleware struct {
	base         core.SandboxConfiguration
	commandTools map[string]bool
}

// NewSandboxMiddleware builds a SandboxMiddleware enforcing base by
// default for any tool named in commandTools (e.g. "Bash").
func NewSandboxMiddleware(base core.SandboxConfiguration, commandTools ...string) *SandboxMiddleware {
	set := make(map[string]bool, len(commandTools))
	for _, name := range commandTools {
		set[name] = true
	}
	return &SandboxMiddleware{base: base, commandTools: set}
}

// Handle implements core.ToolMiddleware.
func (m *SandboxMiddleware) Handle(ctx context.Context, toolCtx *core.ToolContext, next core.ToolHandler) (*core.ToolResult, error) {
	if !m.commandTools[toolCtx.ToolName] {
		return next(ctx, toolCtx)
	}

	effective := m.effectiveConfiguration(ctx)
	args := decodeArguments(toolCtx.ArgumentsJSON)
	command, _ := args["command"].(string)
	if command == "" {
		command, _ = args["cmd"].(string)
	}

	if reason := violatesPolicy(effective, command); reason != "" {
		return nil, core.SandboxDenied(reason)
	}
	return next(ctx, toolCtx)
}

func (m *SandboxMiddleware) effectiveConfiguration(ctx context.Context) core.SandboxConfiguration {
	if sc := ambient.SandboxConfigurationKey.Current(ctx); sc != nil {
		return *sc
	}
	if guard := ambient.GuardrailConfigurationKey.Current(ctx); guard.Sandbox != nil {
		return *guard.Sandbox
	}
	return m.base
}

func violatesPolicy(cfg core.SandboxConfiguration, command string) string {
	if command == "" {
		return ""
	}
	commands, err := permission.ParseBashCommand(command)
	if err != nil || len(commands) == 0 {
		return ""
	}

	if !cfg.AllowSubprocesses && len(commands) > 1 {
		return "command chains multiple subprocesses, which this sandbox forbids"
	}

	for _, c := range commands {
		if cfg.NetworkPolicy != core.NetworkFull && networkTools[c.Name] {
			if cfg.NetworkPolicy == core.NetworkNone {
				return "command '" + c.Name + "' requires network access, which this sandbox denies"
			}
			if !strings.Contains(command, "localhost") && !strings.Contains(command, "127.0.0.1") {
				return "command '" + c.Name + "' targets a non-local address under a local-only network policy"
			}
		}
		if cfg.FilePolicy == core.FileReadOnly && mutatingTools[c.Name] {
			return "command '" + c.Name + "' mutates the filesystem, which this sandbox's read-only policy denies"
		}
	}
	return ""
}
