package tool

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGrepToolCall(t *testing.T) {
	if !hasRipgrep() {
		t.Skip("ripgrep (rg) not installed")
	}

	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, "a.go"), []byte("package main\n\nfunc main() {}\n"), 0644)
	os.WriteFile(filepath.Join(tmpDir, "b.go"), []byte("package main\n\nfunc helper() {}\n"), 0644)

	tool := NewGrepTool(tmpDir)
	toolCtx := testContext(tmpDir)

	input := mustJSON(t, GrepInput{Pattern: "func main"})
	result, err := tool.Call(context.Background(), toolCtx, input)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if !strings.Contains(result.Output, "a.go") {
		t.Errorf("expected match in a.go, got %q", result.Output)
	}
	if strings.Contains(result.Output, "helper") {
		t.Errorf("should not have matched b.go's helper function: %q", result.Output)
	}
}

func TestGrepToolIncludeFilter(t *testing.T) {
	if !hasRipgrep() {
		t.Skip("ripgrep (rg) not installed")
	}

	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, "a.go"), []byte("TODO: fix this\n"), 0644)
	os.WriteFile(filepath.Join(tmpDir, "a.txt"), []byte("TODO: fix this too\n"), 0644)

	tool := NewGrepTool(tmpDir)
	toolCtx := testContext(tmpDir)

	input := mustJSON(t, GrepInput{Pattern: "TODO", Include: "*.go"})
	result, err := tool.Call(context.Background(), toolCtx, input)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if !strings.Contains(result.Output, "a.go") {
		t.Errorf("expected match in a.go, got %q", result.Output)
	}
	if strings.Contains(result.Output, "a.txt") {
		t.Errorf("include filter should have excluded a.txt: %q", result.Output)
	}
}

func TestGrepToolNoMatches(t *testing.T) {
	if !hasRipgrep() {
		t.Skip("ripgrep (rg) not installed")
	}

	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, "a.go"), []byte("nothing interesting\n"), 0644)

	tool := NewGrepTool(tmpDir)
	toolCtx := testContext(tmpDir)

	input := mustJSON(t, GrepInput{Pattern: "unmatched_pattern_xyz"})
	result, err := tool.Call(context.Background(), toolCtx, input)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if strings.Contains(result.Output, "a.go") {
		t.Errorf("expected no matches, got %q", result.Output)
	}
}
