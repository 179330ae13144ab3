package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/stepflow/stepflow/pkg/core"
)

const editDescription = `Performs exact string replacements in files.

Usage:
- The file_path parameter must be an absolute path
- The old_string must exist in the file (exact match required)
- The new_string will replace old_string
- Use replace_all to replace all occurrences
- The edit will FAIL if old_string is not unique (unless using replace_all)`

var editSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"file_path": {
			"type": "string",
			"description": "The absolute path to the file to edit"
		},
		"old_string": {
			"type": "string",
			"description": "The exact text to replace"
		},
		"new_string": {
			"type": "string",
			"description": "The text to replace it with"
		},
		"replace_all": {
			"type": "boolean",
			"description": "Replace all occurrences (default: false)"
		}
	},
	"required": ["file_path", "old_string", "new_string"]
}`)

// EditTool performs exact (falling back to fuzzy) string replacement in a
// file, grounded on the teacher's internal/tool/edit.go.
type EditTool struct {
	workDir string
}

// EditInput is the decoded argument set for EditTool.
type EditInput struct {
	FilePath   string `json:"file_path"`
	OldString  string `json:"old_string"`
	NewString  string `json:"new_string"`
	ReplaceAll bool   `json:"replace_all,omitempty"`
}

// NewEditTool builds an EditTool rooted at workDir.
func NewEditTool(workDir string) *EditTool {
	return &EditTool{workDir: workDir}
}

func (t *EditTool) Name() string            { return "Edit" }
func (t *EditTool) Description() string     { return editDescription }
func (t *EditTool) Schema() json.RawMessage { return editSchema }

func (t *EditTool) Call(ctx context.Context, toolCtx *core.ToolContext, arguments json.RawMessage) (*core.ToolResult, error) {
	var params EditInput
	if err := unmarshalInput(t.Name(), arguments, &params); err != nil {
		return nil, err
	}

	if params.OldString == params.NewString {
		return nil, core.InvalidConfiguration("new_string", "old_string and new_string must be different")
	}

	content, err := os.ReadFile(params.FilePath)
	if err != nil {
		return nil, core.Wrap(core.KindInvalidConfig, err, "read file %s", params.FilePath)
	}

	text := string(content)

	var newText string
	var count int

	count = strings.Count(text, params.OldString)
	if count == 0 {
		return t.fuzzyReplace(ctx, toolCtx, text, params)
	}
	if params.ReplaceAll {
		newText = strings.ReplaceAll(text, params.OldString, params.NewString)
	} else {
		if count > 1 {
			return nil, core.InvalidConfiguration("old_string", "old_string appears %d times in file, use replace_all or provide more context", count)
		}
		newText = strings.Replace(text, params.OldString, params.NewString, 1)
		count = 1
	}

	if err := os.WriteFile(params.FilePath, []byte(newText), 0644); err != nil {
		return nil, core.Wrap(core.KindInvalidConfig, err, "write file %s", params.FilePath)
	}
	emitFileEdited(ctx, params.FilePath)

	diffText, additions, deletions := buildDiffMetadata(params.FilePath, text, newText, workingDirectory(toolCtx, t.workDir))

	return &core.ToolResult{
		Title:  fmt.Sprintf("Edited %s", filepath.Base(params.FilePath)),
		Output: fmt.Sprintf("Replaced %d occurrence(s)", count),
		Metadata: map[string]any{
			"file":         params.FilePath,
			"replacements": count,
			"diff":         diffText,
			"additions":    additions,
			"deletions":    deletions,
		},
	}, nil
}

// fuzzyReplace attempts a line-ending-normalized match, then a
// Levenshtein-similarity match, before giving up.
func (t *EditTool) fuzzyReplace(ctx context.Context, toolCtx *core.ToolContext, text string, params EditInput) (*core.ToolResult, error) {
	normalizedOld := normalizeLineEndings(params.OldString)
	normalizedText := normalizeLineEndings(text)

	if strings.Contains(normalizedText, normalizedOld) {
		newText := strings.Replace(normalizedText, normalizedOld, params.NewString, 1)
		if err := os.WriteFile(params.FilePath, []byte(newText), 0644); err != nil {
			return nil, core.Wrap(core.KindInvalidConfig, err, "write file %s", params.FilePath)
		}
		emitFileEdited(ctx, params.FilePath)

		diffText, additions, deletions := buildDiffMetadata(params.FilePath, normalizedText, newText, workingDirectory(toolCtx, t.workDir))

		return &core.ToolResult{
			Title:  fmt.Sprintf("Edited %s (normalized)", filepath.Base(params.FilePath)),
			Output: "Replaced 1 occurrence (with line ending normalization)",
			Metadata: map[string]any{
				"file":      params.FilePath,
				"diff":      diffText,
				"additions": additions,
				"deletions": deletions,
			},
		}, nil
	}

	match, sim := findBestMatch(text, params.OldString)
	if match != "" && sim >= 0.7 {
		newText := strings.Replace(text, match, params.NewString, 1)
		if err := os.WriteFile(params.FilePath, []byte(newText), 0644); err != nil {
			return nil, core.Wrap(core.KindInvalidConfig, err, "write file %s", params.FilePath)
		}
		emitFileEdited(ctx, params.FilePath)

		diffText, additions, deletions := buildDiffMetadata(params.FilePath, text, newText, workingDirectory(toolCtx, t.workDir))

		return &core.ToolResult{
			Title:  fmt.Sprintf("Edited %s (fuzzy)", filepath.Base(params.FilePath)),
			Output: fmt.Sprintf("Replaced 1 occurrence (%.0f%% similarity)", sim*100),
			Metadata: map[string]any{
				"file":      params.FilePath,
				"diff":      diffText,
				"additions": additions,
				"deletions": deletions,
			},
		}, nil
	}

	return nil, core.InvalidConfiguration("old_string", "old_string not found in file, the content may have changed or the string doesn't exist")
}

func normalizeLineEndings(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// findBestMatch finds the line (or, for multi-line targets, the line-count
// block) most similar to target.
func findBestMatch(text, target string) (string, float64) {
	lines := strings.Split(text, "\n")
	targetLines := strings.Split(target, "\n")

	if len(targetLines) == 1 {
		bestMatch := ""
		bestSimilarity := 0.0

		for _, line := range lines {
			sim := similarity(line, target)
			if sim > bestSimilarity {
				bestSimilarity = sim
				bestMatch = line
			}
		}
		return bestMatch, bestSimilarity
	}

	targetLen := len(targetLines)
	bestMatch := ""
	bestSimilarity := 0.0

	for i := 0; i <= len(lines)-targetLen; i++ {
		block := strings.Join(lines[i:i+targetLen], "\n")
		sim := similarity(block, target)
		if sim > bestSimilarity {
			bestSimilarity = sim
			bestMatch = block
		}
	}

	return bestMatch, bestSimilarity
}

// similarity computes normalized Levenshtein similarity via
// agnivade/levenshtein, with a length-ratio approximation for very long
// inputs to avoid quadratic blowup.
func similarity(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	if len(a) > 10000 || len(b) > 10000 {
		maxLen := max(len(a), len(b))
		minLen := min(len(a), len(b))
		return float64(minLen) / float64(maxLen)
	}

	dist := levenshtein.ComputeDistance(a, b)
	maxLen := max(len(a), len(b))
	return 1.0 - float64(dist)/float64(maxLen)
}
