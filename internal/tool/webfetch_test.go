package tool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWebFetchToolText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><script>bad()</script><p>Hello there</p></body></html>"))
	}))
	defer server.Close()

	tool := NewWebFetchTool(t.TempDir())
	toolCtx := testContext(t.TempDir())

	input := mustJSON(t, WebFetchInput{URL: server.URL, Format: "text"})
	result, err := tool.Call(context.Background(), toolCtx, input)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if !strings.Contains(result.Output, "Hello there") {
		t.Errorf("expected extracted text, got %q", result.Output)
	}
	if strings.Contains(result.Output, "bad()") {
		t.Errorf("script contents should be stripped, got %q", result.Output)
	}
}

func TestWebFetchToolMarkdown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><h1>Title</h1></body></html>"))
	}))
	defer server.Close()

	tool := NewWebFetchTool(t.TempDir())
	toolCtx := testContext(t.TempDir())

	input := mustJSON(t, WebFetchInput{URL: server.URL, Format: "markdown"})
	result, err := tool.Call(context.Background(), toolCtx, input)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if !strings.Contains(result.Output, "# Title") {
		t.Errorf("expected markdown heading, got %q", result.Output)
	}
}

func TestWebFetchToolRejectsInvalidURL(t *testing.T) {
	tool := NewWebFetchTool(t.TempDir())
	toolCtx := testContext(t.TempDir())

	input := mustJSON(t, WebFetchInput{URL: "ftp://example.com", Format: "text"})
	if _, err := tool.Call(context.Background(), toolCtx, input); err == nil {
		t.Fatal("expected error for non-http(s) URL")
	}
}

func TestWebFetchToolRejectsInvalidFormat(t *testing.T) {
	tool := NewWebFetchTool(t.TempDir())
	toolCtx := testContext(t.TempDir())

	input := mustJSON(t, WebFetchInput{URL: "https://example.com", Format: "yaml"})
	if _, err := tool.Call(context.Background(), toolCtx, input); err == nil {
		t.Fatal("expected error for invalid format")
	}
}

func TestWebFetchToolErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	tool := NewWebFetchTool(t.TempDir())
	toolCtx := testContext(t.TempDir())

	input := mustJSON(t, WebFetchInput{URL: server.URL, Format: "text"})
	if _, err := tool.Call(context.Background(), toolCtx, input); err == nil {
		t.Fatal("expected error for non-2xx status")
	}
}
