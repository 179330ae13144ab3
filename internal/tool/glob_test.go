package tool

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func hasRipgrep() bool {
	_, err := exec.LookPath("rg")
	return err == nil
}

func TestGlobToolCall(t *testing.T) {
	if !hasRipgrep() {
		t.Skip("ripgrep (rg) not installed")
	}

	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, "test1.go"), []byte(""), 0644)
	os.WriteFile(filepath.Join(tmpDir, "test2.go"), []byte(""), 0644)
	os.WriteFile(filepath.Join(tmpDir, "test.txt"), []byte(""), 0644)
	os.Mkdir(filepath.Join(tmpDir, "sub"), 0755)
	os.WriteFile(filepath.Join(tmpDir, "sub", "nested.go"), []byte(""), 0644)

	tool := NewGlobTool(tmpDir)
	toolCtx := testContext(tmpDir)

	input := mustJSON(t, GlobInput{Pattern: "**/*.go", Path: tmpDir})
	result, err := tool.Call(context.Background(), toolCtx, input)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if !strings.Contains(result.Output, ".go") {
		t.Error("output should contain .go files")
	}
	if strings.Contains(result.Output, "test.txt") {
		t.Error("output should not contain non-matching files")
	}
}

func TestGlobToolNoMatches(t *testing.T) {
	if !hasRipgrep() {
		t.Skip("ripgrep (rg) not installed")
	}

	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, "test.txt"), []byte(""), 0644)

	tool := NewGlobTool(tmpDir)
	toolCtx := testContext(tmpDir)

	input := mustJSON(t, GlobInput{Pattern: "**/*.go", Path: tmpDir})
	result, err := tool.Call(context.Background(), toolCtx, input)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if strings.Contains(result.Output, ".go") {
		t.Error("output should be empty for no matches")
	}
}
