package agent

import (
	"testing"

	"github.com/stepflow/stepflow/internal/permission"
	"github.com/stepflow/stepflow/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentToolEnabled(t *testing.T) {
	tests := []struct {
		name     string
		agent    *Agent
		toolID   string
		expected bool
	}{
		{"exact match enabled", &Agent{Tools: map[string]bool{"read": true}}, "read", true},
		{"exact match disabled", &Agent{Tools: map[string]bool{"write": false}}, "write", false},
		{"wildcard all enabled", &Agent{Tools: map[string]bool{"*": true}}, "anytool", true},
		{"prefix wildcard", &Agent{Tools: map[string]bool{"mcp_*": true}}, "mcp_server_tool", true},
		{"suffix wildcard", &Agent{Tools: map[string]bool{"*_read": false}}, "file_read", false},
		{"default enabled when not specified", &Agent{Tools: map[string]bool{"other": true}}, "unknown", true},
		{"nil tools map defaults to enabled", &Agent{Tools: nil}, "anything", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.agent.ToolEnabled(tt.toolID))
		})
	}
}

// Agent.Permission is a core.PermissionConfiguration, evaluated the same
// way any other GuardrailConfiguration is: through permission.Checker,
// not a bespoke per-field accessor.
func TestAgentPermissionEvaluatedByChecker(t *testing.T) {
	plan := BuiltInAgents()["plan"]
	checker := permission.NewChecker(plan.Permission, nil)

	err := checker.Check(permission.Invocation{ToolName: "Bash", Arguments: map[string]any{"command": "git status"}})
	assert.NoError(t, err, "plan agent should allow git status")

	err = checker.Check(permission.Invocation{ToolName: "Bash", Arguments: map[string]any{"command": "rm -rf /"}})
	assert.Error(t, err, "plan agent should deny arbitrary bash")

	err = checker.Check(permission.Invocation{ToolName: "Edit"})
	assert.Error(t, err, "plan agent should final-deny Edit")
}

func TestAgentIsPrimaryAndIsSubagent(t *testing.T) {
	tests := []struct {
		mode       Mode
		isPrimary  bool
		isSubagent bool
	}{
		{ModePrimary, true, false},
		{ModeSubagent, false, true},
		{ModeAll, true, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			a := &Agent{Mode: tt.mode}
			assert.Equal(t, tt.isPrimary, a.IsPrimary())
			assert.Equal(t, tt.isSubagent, a.IsSubagent())
		})
	}
}

func TestAgentClone(t *testing.T) {
	original := &Agent{
		Name:        "test",
		Description: "Test agent",
		Mode:        ModePrimary,
		BuiltIn:     true,
		Temperature: 0.7,
		TopP:        0.9,
		Prompt:      "You are a test agent",
		Color:       "#FF0000",
		Permission: core.PermissionConfiguration{
			Allow:         []string{"Edit"},
			FinalDeny:     []string{"Bash(*)"},
			DefaultAction: core.DecisionAsk,
		},
		Tools: map[string]bool{
			"read":  true,
			"write": false,
		},
		Options: map[string]any{"key": "value"},
		Model:   &ModelRef{ProviderID: "anthropic", ModelID: "claude-3-sonnet"},
	}

	clone := original.Clone()

	assert.Equal(t, original.Name, clone.Name)
	assert.Equal(t, original.Description, clone.Description)
	assert.Equal(t, original.Mode, clone.Mode)
	assert.Equal(t, original.BuiltIn, clone.BuiltIn)
	assert.Equal(t, original.Temperature, clone.Temperature)
	assert.Equal(t, original.TopP, clone.TopP)
	assert.Equal(t, original.Prompt, clone.Prompt)
	assert.Equal(t, original.Color, clone.Color)
	assert.Equal(t, original.Permission.Allow, clone.Permission.Allow)
	assert.Equal(t, original.Model.ProviderID, clone.Model.ProviderID)
	assert.Equal(t, original.Model.ModelID, clone.Model.ModelID)

	clone.Tools["read"] = false
	assert.True(t, original.Tools["read"], "modifying clone should not affect original")

	clone.Permission.Allow[0] = "Write"
	assert.Equal(t, "Edit", original.Permission.Allow[0], "modifying clone's rule slice should not affect original")

	clone.Options["new"] = "value"
	_, exists := original.Options["new"]
	assert.False(t, exists, "modifying clone should not affect original")
}

func TestMatchWildcard(t *testing.T) {
	tests := []struct {
		pattern  string
		s        string
		expected bool
	}{
		{"*", "anything", true},
		{"*", "", true},
		{"prefix*", "prefix-hello", true},
		{"prefix*", "prefixworld", true},
		{"prefix*", "other", false},
		{"*suffix", "hello-suffix", true},
		{"*suffix", "worldsuffix", true},
		{"*suffix", "other", false},
		{"exact", "exact", true},
		{"exact", "different", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"_"+tt.s, func(t *testing.T) {
			assert.Equal(t, tt.expected, matchWildcard(tt.pattern, tt.s))
		})
	}
}

func TestBuiltInAgents(t *testing.T) {
	agents := BuiltInAgents()

	for _, name := range []string{"build", "plan", "general", "explore"} {
		a, ok := agents[name]
		require.True(t, ok, "expected agent %s to exist", name)
		assert.True(t, a.BuiltIn, "built-in agent should have BuiltIn=true")
	}

	build := agents["build"]
	assert.Equal(t, ModePrimary, build.Mode)
	assert.Contains(t, build.Permission.Allow, "Edit")

	plan := agents["plan"]
	assert.Equal(t, ModePrimary, plan.Mode)
	assert.Contains(t, plan.Permission.FinalDeny, "Edit")
	assert.False(t, plan.Tools["edit"])
	assert.False(t, plan.Tools["write"])

	general := agents["general"]
	assert.Equal(t, ModeSubagent, general.Mode)
	assert.Contains(t, general.Permission.FinalDeny, "Edit")

	explore := agents["explore"]
	assert.Equal(t, ModeSubagent, explore.Mode)
	assert.True(t, explore.Tools["read"])
	assert.True(t, explore.Tools["glob"])
}
