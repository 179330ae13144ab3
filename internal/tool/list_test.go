package tool

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestListToolCall(t *testing.T) {
	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, "a.go"), []byte("x"), 0644)
	os.Mkdir(filepath.Join(tmpDir, "sub"), 0755)

	tool := NewListTool(tmpDir)
	toolCtx := testContext(tmpDir)

	result, err := tool.Call(context.Background(), toolCtx, mustJSON(t, ListInput{}))
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if !strings.Contains(result.Output, "a.go") || !strings.Contains(result.Output, "sub") {
		t.Errorf("expected both entries, got %q", result.Output)
	}
}

func TestListToolIgnoresDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	os.Mkdir(filepath.Join(tmpDir, "node_modules"), 0755)
	os.WriteFile(filepath.Join(tmpDir, "main.go"), []byte("x"), 0644)

	tool := NewListTool(tmpDir)
	toolCtx := testContext(tmpDir)

	result, err := tool.Call(context.Background(), toolCtx, mustJSON(t, ListInput{}))
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if strings.Contains(result.Output, "node_modules") {
		t.Errorf("expected node_modules to be ignored by default, got %q", result.Output)
	}
}

func TestListToolCustomIgnore(t *testing.T) {
	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, "keep.go"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(tmpDir, "skip.log"), []byte("x"), 0644)

	tool := NewListTool(tmpDir)
	toolCtx := testContext(tmpDir)

	result, err := tool.Call(context.Background(), toolCtx, mustJSON(t, ListInput{Ignore: []string{"skip.log"}}))
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if strings.Contains(result.Output, "skip.log") {
		t.Errorf("expected skip.log to be ignored, got %q", result.Output)
	}
	if !strings.Contains(result.Output, "keep.go") {
		t.Errorf("expected keep.go to remain, got %q", result.Output)
	}
}
