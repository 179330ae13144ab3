package permission_test

import (
	"testing"

	"github.com/stepflow/stepflow/internal/permission"
	"github.com/stretchr/testify/assert"
)

func TestParseRuleToolOnly(t *testing.T) {
	r := permission.ParseRule("Read")
	assert.Equal(t, "Read", r.Tool)
	assert.False(t, r.HasArgMatch)
}

func TestParseRuleWithArgPattern(t *testing.T) {
	r := permission.ParseRule("Bash(git:*)")
	assert.Equal(t, "Bash", r.Tool)
	assert.Equal(t, "git:*", r.ArgPattern)
	assert.True(t, r.HasArgMatch)
}

func TestRuleMatchesPrefixPattern(t *testing.T) {
	r := permission.ParseRule("Bash(git:*)")
	inv := permission.Invocation{ToolName: "Bash", Arguments: map[string]any{"command": "git commit -m x"}}
	assert.True(t, r.Matches(inv))
}

func TestRuleMatchesDenyPrefixPreventsBypass(t *testing.T) {
	r := permission.ParseRule("Bash(rm -rf:*)")
	inv := permission.Invocation{ToolName: "Bash", Arguments: map[string]any{"command": "rm -rf /"}}
	assert.True(t, r.Matches(inv))

	safe := permission.Invocation{ToolName: "Bash", Arguments: map[string]any{"command": "rm file.txt"}}
	assert.False(t, r.Matches(safe))
}

func TestRuleMatchesDomainPattern(t *testing.T) {
	r := permission.ParseRule("WebFetch(domain:github.com)")
	inv := permission.Invocation{ToolName: "WebFetch", Arguments: map[string]any{"url": "https://github.com/foo/bar"}}
	assert.True(t, r.Matches(inv))

	other := permission.Invocation{ToolName: "WebFetch", Arguments: map[string]any{"url": "https://evil.example/"}}
	assert.False(t, r.Matches(other))
}

func TestRuleMatchesWildcard(t *testing.T) {
	r := permission.ParseRule("Bash(*)")
	inv := permission.Invocation{ToolName: "Bash", Arguments: map[string]any{"command": "anything at all"}}
	assert.True(t, r.Matches(inv))
}

func TestRuleToolMismatchNeverMatches(t *testing.T) {
	r := permission.ParseRule("Bash(*)")
	inv := permission.Invocation{ToolName: "Read", Arguments: map[string]any{}}
	assert.False(t, r.Matches(inv))
}

func TestMemoryKeyForShellTool(t *testing.T) {
	key := permission.MemoryKey(permission.Invocation{
		ToolName:  "Bash",
		Arguments: map[string]any{"command": "git commit -m 'msg'"},
	})
	assert.Equal(t, "Bash:git", key)
}

func TestMemoryKeyForFileTool(t *testing.T) {
	key := permission.MemoryKey(permission.Invocation{
		ToolName:  "Edit",
		Arguments: map[string]any{"file_path": "/a/b/c.go"},
	})
	assert.Equal(t, "Edit:/a/b", key)
}

func TestMemoryKeyDefaultsToToolName(t *testing.T) {
	key := permission.MemoryKey(permission.Invocation{ToolName: "Glob", Arguments: map[string]any{}})
	assert.Equal(t, "Glob", key)
}
