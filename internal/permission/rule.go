// Package permission implements the engine's declarative permission
// system: rule parsing and matching, the memory-key computation used by
// PermissionMiddleware's session-memory shortcut, and the JSON/JSONC rule
// file format (spec.md §4.12.1, §6).
//
// Grounded on the teacher's internal/permission package (checker.go,
// wildcard.go, bash_parser.go), generalized from opencode's fixed
// `PermissionType` enum to the spec's string-pattern rules over arbitrary
// tool names.
package permission

import (
	"strings"
)

// Invocation is the narrow view of a tool call PermissionMiddleware needs:
// enough to compute a memory_key and match rule patterns without this
// package importing the tool package (which itself wants to depend on
// permission as middleware).
type Invocation struct {
	ToolName  string
	Arguments map[string]any
}

// Rule is a parsed pattern: "Tool" or "Tool(argument-pattern)" (spec.md
// §6's pattern syntax).
type Rule struct {
	Tool        string
	ArgPattern  string // empty means "no argument pattern" (tool name alone)
	HasArgMatch bool
}

// ParseRule parses a raw pattern string like "Bash(git:*)",
// "WebFetch(domain:github.com)", or "Read" into a Rule.
func ParseRule(pattern string) Rule {
	open := strings.IndexByte(pattern, '(')
	if open == -1 || !strings.HasSuffix(pattern, ")") {
		return Rule{Tool: pattern}
	}
	return Rule{
		Tool:        pattern[:open],
		ArgPattern:  pattern[open+1 : len(pattern)-1],
		HasArgMatch: true,
	}
}

// Matches reports whether inv matches the rule: the tool name must match
// exactly, and (if present) the argument pattern must match the
// invocation's primary argument text, computed the same way as
// memory_key's command/path extraction (spec.md §4.12.1, §6).
func (r Rule) Matches(inv Invocation) bool {
	if r.Tool != inv.ToolName {
		return false
	}
	if !r.HasArgMatch {
		return true
	}
	return matchArgPattern(r.ArgPattern, argumentText(inv))
}

// matchArgPattern implements the argument pattern grammar: "*" (any),
// "prefix:*" (starts-with on the normalized argument text), "domain:HOST"
// (exact host match for fetcher-style tools), or a plain string (exact
// match). Matching is case-sensitive (spec.md §4.12.1).
func matchArgPattern(pattern, text string) bool {
	if pattern == "*" {
		return true
	}
	if host, ok := strings.CutPrefix(pattern, "domain:"); ok {
		return host == extractHost(text)
	}
	if prefix, ok := strings.CutSuffix(pattern, ":*"); ok {
		return strings.HasPrefix(text, prefix)
	}
	return pattern == text
}

// argumentText extracts the primary argument text a rule's pattern
// matches against: the bash command string for shell-like tools, the
// path for file tools, or the URL/host for fetcher tools; otherwise empty.
func argumentText(inv Invocation) string {
	for _, key := range []string{"command", "cmd", "file_path", "path", "url"} {
		if v, ok := inv.Arguments[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// extractHost pulls the host out of a URL-shaped argument, stripping a
// scheme and any path/query suffix.
func extractHost(text string) string {
	s := text
	if idx := strings.Index(s, "://"); idx != -1 {
		s = s[idx+3:]
	}
	if idx := strings.IndexAny(s, "/?#"); idx != -1 {
		s = s[:idx]
	}
	return s
}

// MemoryKey computes PermissionMiddleware's session-memory key for inv
// (spec.md §4.12.1 step 1):
//   - shell-like tools (Bash, ExecuteCommand): "{tool}:{first word of command}"
//   - file tools (file_path or path field): "{tool}:{dirname of path}"
//   - otherwise: the tool name alone.
func MemoryKey(inv Invocation) string {
	switch inv.ToolName {
	case "Bash", "ExecuteCommand":
		if cmd, ok := stringArg(inv, "command", "cmd"); ok {
			return inv.ToolName + ":" + firstWord(cmd)
		}
	}
	if path, ok := stringArg(inv, "file_path", "path"); ok {
		return inv.ToolName + ":" + dirname(path)
	}
	return inv.ToolName
}

func stringArg(inv Invocation, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := inv.Arguments[k]; ok {
			if s, ok := v.(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

// firstWord returns the first whitespace-delimited word of s, parsed
// through the same bash-aware tokenizer MemoryKey's command form relies on
// (see bash.go); falls back to a naive split if parsing fails.
func firstWord(command string) string {
	if cmds, err := ParseBashCommand(command); err == nil && len(cmds) > 0 {
		return cmds[0].Name
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// dirname mimics path.Dir but without pulling in a full path-manipulation
// dependency for this single computation.
func dirname(p string) string {
	if p == "" {
		return "."
	}
	trimmed := strings.TrimRight(p, "/")
	idx := strings.LastIndexByte(trimmed, '/')
	if idx < 0 {
		return "."
	}
	if idx == 0 {
		return "/"
	}
	return trimmed[:idx]
}
