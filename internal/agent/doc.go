// Package agent provides agent definitions: named personas that gate
// which tools a session or Task dispatch may use and under what
// permission posture.
//
// # Agent types
//
// Four built-in agents:
//
//   - build: primary agent for executing tasks, writing code, and making
//     changes. Full tool access, permissive permissions.
//   - plan: primary agent for analysis and exploration without making
//     changes. Restricted to read-only operations.
//   - general: subagent for general-purpose searches and exploration.
//   - explore: fast subagent specialized for codebase exploration.
//
// # Modes
//
//   - ModePrimary: selectable as a session's main agent
//   - ModeSubagent: only dispatchable via the Task tool
//   - ModeAll: both
//
// # Tool access control
//
// Tools is a map from an exact tool name or glob pattern (doublestar
// syntax, including "**") to enabled/disabled:
//
//	agent.Tools = map[string]bool{
//	    "*":     true,   // enable all tools by default
//	    "bash":  false,  // disable bash specifically
//	    "mcp_*": true,   // enable all MCP tools
//	}
//
// [Agent.ToolEnabled] checks exact matches first, then wildcard patterns.
//
// # Permissions
//
// Permission is a core.PermissionConfiguration — the same declarative
// allow/deny/final_deny/override rule list internal/permission.Checker
// and internal/guardrail evaluate everywhere else in the engine. An
// agent's permission posture is layered over a tool call exactly like any
// other GuardrailConfiguration, not checked through a separate API.
//
// # Registry
//
//	registry := agent.NewRegistry()  // includes built-in agents
//	registry.Register(customAgent)   // add a custom agent
//	a, err := registry.Get("build")
//	primaryAgents := registry.ListPrimary()
//	subagents := registry.ListSubagents()
//
// Custom agents load from configuration via [Registry.LoadFromConfig],
// extending or overriding built-ins:
//
//	config := map[string]agent.Config{
//	    "build": {Temperature: 0.7},
//	    "custom": {
//	        Description: "Custom agent",
//	        Mode:        agent.ModePrimary,
//	        Tools:       map[string]bool{"read": true, "glob": true},
//	    },
//	}
//	registry.LoadFromConfig(config)
package agent
