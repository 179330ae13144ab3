package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stepflow/stepflow/pkg/core"
)

const writeDescription = `Writes content to a file on the local filesystem.

Usage:
- The file_path parameter must be an absolute path
- This tool will overwrite existing files
- Parent directories will be created if they don't exist
- ALWAYS prefer editing existing files over creating new ones`

var writeSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"file_path": {
			"type": "string",
			"description": "The absolute path to the file to write"
		},
		"content": {
			"type": "string",
			"description": "The content to write to the file"
		}
	},
	"required": ["file_path", "content"]
}`)

// WriteTool writes content to a file, grounded on the teacher's
// internal/tool/write.go.
type WriteTool struct {
	workDir string
}

// WriteInput is the decoded argument set for WriteTool.
type WriteInput struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

// NewWriteTool builds a WriteTool rooted at workDir.
func NewWriteTool(workDir string) *WriteTool {
	return &WriteTool{workDir: workDir}
}

func (t *WriteTool) Name() string            { return "Write" }
func (t *WriteTool) Description() string     { return writeDescription }
func (t *WriteTool) Schema() json.RawMessage { return writeSchema }

func (t *WriteTool) Call(ctx context.Context, toolCtx *core.ToolContext, arguments json.RawMessage) (*core.ToolResult, error) {
	var params WriteInput
	if err := unmarshalInput(t.Name(), arguments, &params); err != nil {
		return nil, err
	}

	dir := filepath.Dir(params.FilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, core.Wrap(core.KindInvalidConfig, err, "create directory %s", dir)
	}

	var previous string
	if existing, err := os.ReadFile(params.FilePath); err == nil {
		previous = string(existing)
	}

	if err := os.WriteFile(params.FilePath, []byte(params.Content), 0644); err != nil {
		return nil, core.Wrap(core.KindInvalidConfig, err, "write file %s", params.FilePath)
	}

	emitFileEdited(ctx, params.FilePath)

	diffText, additions, deletions := buildDiffMetadata(params.FilePath, previous, params.Content, workingDirectory(toolCtx, t.workDir))

	return &core.ToolResult{
		Title:  fmt.Sprintf("Wrote %s", filepath.Base(params.FilePath)),
		Output: fmt.Sprintf("Successfully wrote %d bytes to %s", len(params.Content), params.FilePath),
		Metadata: map[string]any{
			"file":      params.FilePath,
			"bytes":     len(params.Content),
			"diff":      diffText,
			"additions": additions,
			"deletions": deletions,
		},
	}, nil
}
