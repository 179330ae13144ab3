package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/stepflow/stepflow/pkg/core"
)

const globDescription = `Fast file pattern matching tool that works with any codebase size.

Usage:
- Supports glob patterns like "**/*.js" or "src/**/*.ts"
- Returns matching file paths in the order ripgrep lists them (not sorted)
- Use this tool when you need to find files by name patterns`

var globSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"pattern": {
			"type": "string",
			"description": "The glob pattern to match files against"
		},
		"path": {
			"type": "string",
			"description": "Directory to search in (default: current directory)"
		}
	},
	"required": ["pattern"]
}`)

// GlobTool enumerates files matching a glob pattern via ripgrep, grounded
// on the teacher's internal/tool/glob.go.
type GlobTool struct {
	workDir string
}

// GlobInput is the decoded argument set for GlobTool.
type GlobInput struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path,omitempty"`
}

// NewGlobTool builds a GlobTool rooted at workDir.
func NewGlobTool(workDir string) *GlobTool {
	return &GlobTool{workDir: workDir}
}

func (t *GlobTool) Name() string            { return "Glob" }
func (t *GlobTool) Description() string     { return globDescription }
func (t *GlobTool) Schema() json.RawMessage { return globSchema }

func (t *GlobTool) Call(ctx context.Context, toolCtx *core.ToolContext, arguments json.RawMessage) (*core.ToolResult, error) {
	var params GlobInput
	if err := unmarshalInput(t.Name(), arguments, &params); err != nil {
		return nil, err
	}

	searchDir := workingDirectory(toolCtx, t.workDir)
	if params.Path != "" {
		if filepath.IsAbs(params.Path) {
			searchDir = params.Path
		} else {
			searchDir = filepath.Join(searchDir, params.Path)
		}
	}

	cmd := exec.CommandContext(ctx, "rg", "--files", "--glob", params.Pattern)
	cmd.Dir = searchDir

	output, err := cmd.Output()
	if err != nil && len(output) == 0 {
		return &core.ToolResult{
			Title:  "Glob search",
			Output: "No files matched the pattern",
			Metadata: map[string]any{
				"pattern": params.Pattern,
				"count":   0,
			},
		}, nil
	}

	files := strings.Split(strings.TrimSpace(string(output)), "\n")

	var result []string
	for _, f := range files {
		if f != "" {
			result = append(result, f)
		}
	}

	const maxFiles = 100
	truncated := false
	if len(result) > maxFiles {
		result = result[:maxFiles]
		truncated = true
	}

	outputStr := strings.Join(result, "\n")
	if truncated {
		outputStr += fmt.Sprintf("\n\n(Showing %d of more files)", maxFiles)
	}

	return &core.ToolResult{
		Title:  fmt.Sprintf("Found %d files", len(result)),
		Output: outputStr,
		Metadata: map[string]any{
			"pattern":   params.Pattern,
			"count":     len(result),
			"truncated": truncated,
		},
	}, nil
}
