// Package agent defines AgentDefinition: the declarative persona a
// session or a Task tool dispatch runs under — name, mode, tool
// enablement, model reference, prompt, and permission posture (spec.md
// §3, §4.19).
//
// Grounded on the teacher's internal/agent package (Agent struct, Mode,
// ModelRef, ToolEnabled/matchWildcard, Clone, BuiltInAgents), with
// Permission generalized from opencode's fixed Edit/Bash/WebFetch/
// ExternalDir/DoomLoop PermissionAction enum to core.PermissionConfiguration
// — the same declarative allow/deny/override rule list internal/permission
// and internal/guardrail already evaluate, so an agent's permission
// posture is just one more GuardrailConfiguration to merge over a tool
// call rather than a second, parallel permission model.
package agent

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/stepflow/stepflow/pkg/core"
)

// Agent is a named configuration: the mode it may run in, which tools it
// may call, its model reference, its system prompt, and the permission
// rules layered over every tool call it makes.
type Agent struct {
	Name        string                       `json:"name"`
	Description string                       `json:"description"`
	Mode        Mode                         `json:"mode"`
	BuiltIn     bool                         `json:"builtIn"`
	Permission  core.PermissionConfiguration `json:"permission"`
	Tools       map[string]bool              `json:"tools"`
	Options     map[string]any               `json:"options,omitempty"`
	Temperature float64                      `json:"temperature,omitempty"`
	TopP        float64                      `json:"topP,omitempty"`
	Model       *ModelRef                    `json:"model,omitempty"`
	Prompt      string                       `json:"prompt,omitempty"`
	Color       string                       `json:"color,omitempty"`
}

// Mode is the agent's operating mode.
type Mode string

const (
	ModePrimary  Mode = "primary"
	ModeSubagent Mode = "subagent"
	ModeAll      Mode = "all"
)

// ModelRef references a specific provider/model pair.
type ModelRef struct {
	ProviderID string `json:"providerID"`
	ModelID    string `json:"modelID"`
}

// ToolEnabled reports whether toolID is enabled for this agent: exact
// match first, then the first matching wildcard pattern in map-iteration
// order, defaulting to enabled when nothing matches (spec.md §4.19's
// "subagents always present, gated by Mode", tool gating is additive on
// top of that).
func (a *Agent) ToolEnabled(toolID string) bool {
	if enabled, ok := a.Tools[toolID]; ok {
		return enabled
	}
	for pattern, enabled := range a.Tools {
		if matchWildcard(pattern, toolID) {
			return enabled
		}
	}
	return true
}

// IsPrimary reports whether the agent may be selected as a session's
// primary agent.
func (a *Agent) IsPrimary() bool {
	return a.Mode == ModePrimary || a.Mode == ModeAll
}

// IsSubagent reports whether the agent may be dispatched via the Task
// tool. Satisfies tool.AgentDefinitionLookup's per-agent half together
// with Registry.
func (a *Agent) IsSubagent() bool {
	return a.Mode == ModeSubagent || a.Mode == ModeAll
}

// Clone returns a deep copy, safe to mutate independently — used when
// applying config overrides on top of a built-in agent without mutating
// the built-in itself.
func (a *Agent) Clone() *Agent {
	clone := &Agent{
		Name:        a.Name,
		Description: a.Description,
		Mode:        a.Mode,
		BuiltIn:     a.BuiltIn,
		Temperature: a.Temperature,
		TopP:        a.TopP,
		Prompt:      a.Prompt,
		Color:       a.Color,
		Permission: core.PermissionConfiguration{
			Allow:               append([]string(nil), a.Permission.Allow...),
			Deny:                append([]string(nil), a.Permission.Deny...),
			FinalDeny:           append([]string(nil), a.Permission.FinalDeny...),
			Overrides:           append([]string(nil), a.Permission.Overrides...),
			DefaultAction:       a.Permission.DefaultAction,
			EnableSessionMemory: a.Permission.EnableSessionMemory,
		},
	}

	if a.Tools != nil {
		clone.Tools = make(map[string]bool, len(a.Tools))
		for k, v := range a.Tools {
			clone.Tools[k] = v
		}
	}
	if a.Options != nil {
		clone.Options = make(map[string]any, len(a.Options))
		for k, v := range a.Options {
			clone.Options[k] = v
		}
	}
	if a.Model != nil {
		model := *a.Model
		clone.Model = &model
	}

	return clone
}

// matchWildcard checks s against pattern: "*" matches everything, a
// pattern containing "**" or a mid-string "*" is matched via doublestar,
// a prefix* or *suffix pattern is matched by substring, otherwise exact
// match is required.
func matchWildcard(pattern, s string) bool {
	if pattern == "*" {
		return true
	}
	if strings.Contains(pattern, "**") {
		matched, _ := doublestar.Match(pattern, s)
		return matched
	}
	if strings.HasSuffix(pattern, "*") && !strings.HasPrefix(pattern, "*") {
		return strings.HasPrefix(s, strings.TrimSuffix(pattern, "*"))
	}
	if strings.HasPrefix(pattern, "*") && !strings.HasSuffix(pattern, "*") {
		return strings.HasSuffix(s, strings.TrimPrefix(pattern, "*"))
	}
	if strings.Contains(pattern, "*") {
		matched, _ := doublestar.Match(pattern, s)
		return matched
	}
	return pattern == s
}

// BuiltInAgents returns the engine's default agent set: build (primary,
// full access), plan (primary, read-only), general and explore
// (subagents, progressively narrower tool/permission sets). Permission
// rules are expressed in the same "Tool" / "Tool(argument-pattern)"
// grammar internal/permission.ParseRule parses, so these compose with any
// ambient GuardrailConfiguration exactly like a user-authored rule file.
func BuiltInAgents() map[string]*Agent {
	return map[string]*Agent{
		"build": {
			Name:        "build",
			Description: "Primary agent for executing tasks, writing code, and making changes",
			Mode:        ModePrimary,
			BuiltIn:     true,
			Permission: core.PermissionConfiguration{
				Allow:         []string{"Edit", "Write", "Bash(*)", "WebFetch(*)"},
				DefaultAction: core.DecisionAsk,
			},
			Tools: map[string]bool{"*": true},
		},
		"plan": {
			Name:        "plan",
			Description: "Planning agent for analysis and exploration without making changes",
			Mode:        ModePrimary,
			BuiltIn:     true,
			Permission: core.PermissionConfiguration{
				Allow: []string{
					"Bash(grep:*)", "Bash(find:*)", "Bash(ls:*)", "Bash(cat:*)",
					"Bash(git status)", "Bash(git diff:*)", "Bash(git log:*)",
					"WebFetch(*)",
				},
				Deny:          []string{"Bash(*)"},
				FinalDeny:     []string{"Edit", "Write"},
				DefaultAction: core.DecisionAsk,
			},
			Tools: map[string]bool{
				"read": true, "glob": true, "grep": true, "ls": true, "bash": true,
				"edit": false, "write": false,
			},
		},
		"general": {
			Name:        "general",
			Description: "General-purpose subagent for searches and exploration",
			Mode:        ModeSubagent,
			BuiltIn:     true,
			Permission: core.PermissionConfiguration{
				Allow:         []string{"WebFetch(*)"},
				FinalDeny:     []string{"Edit", "Write", "Bash(*)"},
				DefaultAction: core.DecisionDeny,
			},
			Tools: map[string]bool{
				"read": true, "glob": true, "grep": true, "webfetch": true,
				"bash": false, "edit": false, "write": false,
			},
		},
		"explore": {
			Name:        "explore",
			Description: "Fast agent specialized for codebase exploration",
			Mode:        ModeSubagent,
			BuiltIn:     true,
			Permission: core.PermissionConfiguration{
				FinalDeny:     []string{"Edit", "Write", "Bash(*)", "WebFetch"},
				DefaultAction: core.DecisionDeny,
			},
			Tools: map[string]bool{
				"read": true, "glob": true, "grep": true, "ls": true,
				"bash": false, "edit": false,
			},
		},
	}
}
