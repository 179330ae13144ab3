package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/stepflow/stepflow/pkg/core"
)

const webfetchDescription = `Fetches content from a specified URL and returns it in the requested format.

Usage notes:
  - IMPORTANT: If an MCP-provided web fetch tool is available, prefer using that tool instead of this one, as it may have fewer restrictions.
  - The URL must be a fully-formed valid URL starting with http:// or https://
  - This tool is read-only and does not modify any files
  - Responses larger than 5MB are rejected with an error
  - Use format "markdown" for readable content, "text" for plain text, "html" for raw HTML`

const (
	maxResponseSize = 5 * 1024 * 1024 // 5MB
	defaultTimeout  = 30 * time.Second
	maxTimeout      = 120 * time.Second
)

var webfetchSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"url": {
			"type": "string",
			"description": "The URL to fetch content from"
		},
		"format": {
			"type": "string",
			"enum": ["text", "markdown", "html"],
			"description": "The format to return the content in (text, markdown, or html)"
		},
		"timeout": {
			"type": "integer",
			"description": "Optional timeout in seconds (max 120)"
		}
	},
	"required": ["url", "format"]
}`)

// WebFetchTool fetches a URL and returns its content as text, markdown, or
// raw HTML, grounded on the teacher's internal/tool/webfetch.go.
type WebFetchTool struct {
	workDir string
	client  *http.Client
}

// WebFetchInput is the decoded argument set for WebFetchTool.
type WebFetchInput struct {
	URL     string `json:"url"`
	Format  string `json:"format"`
	Timeout int    `json:"timeout,omitempty"`
}

// NewWebFetchTool builds a WebFetchTool rooted at workDir.
func NewWebFetchTool(workDir string) *WebFetchTool {
	return &WebFetchTool{workDir: workDir, client: &http.Client{Timeout: defaultTimeout}}
}

func (t *WebFetchTool) Name() string            { return "WebFetch" }
func (t *WebFetchTool) Description() string     { return webfetchDescription }
func (t *WebFetchTool) Schema() json.RawMessage { return webfetchSchema }

func (t *WebFetchTool) Call(ctx context.Context, toolCtx *core.ToolContext, arguments json.RawMessage) (*core.ToolResult, error) {
	var params WebFetchInput
	if err := unmarshalInput(t.Name(), arguments, &params); err != nil {
		return nil, err
	}

	if !strings.HasPrefix(params.URL, "http://") && !strings.HasPrefix(params.URL, "https://") {
		return nil, core.InvalidConfiguration("url", "url must start with http:// or https://")
	}
	if params.Format != "text" && params.Format != "markdown" && params.Format != "html" {
		return nil, core.InvalidConfiguration("format", "format must be 'text', 'markdown', or 'html'")
	}

	timeout := defaultTimeout
	if params.Timeout > 0 {
		timeout = time.Duration(params.Timeout) * time.Second
		if timeout > maxTimeout {
			timeout = maxTimeout
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, "GET", params.URL, nil)
	if err != nil {
		return nil, core.Wrap(core.KindInvalidConfig, err, "build request for %s", params.URL)
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	switch params.Format {
	case "markdown":
		req.Header.Set("Accept", "text/markdown;q=1.0, text/x-markdown;q=0.9, text/plain;q=0.8, text/html;q=0.7, */*;q=0.1")
	case "text":
		req.Header.Set("Accept", "text/plain;q=1.0, text/markdown;q=0.9, text/html;q=0.8, */*;q=0.1")
	case "html":
		req.Header.Set("Accept", "text/html;q=1.0, application/xhtml+xml;q=0.9, text/plain;q=0.8, text/markdown;q=0.7, */*;q=0.1")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, core.Wrap(core.KindInvalidConfig, err, "request to %s failed", params.URL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, core.InvalidConfiguration("url", "request failed with status code: %d", resp.StatusCode)
	}
	if resp.ContentLength > maxResponseSize {
		return nil, core.InvalidConfiguration("url", "response too large (exceeds 5MB limit)")
	}

	limitedReader := io.LimitReader(resp.Body, maxResponseSize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, core.Wrap(core.KindInvalidConfig, err, "read response from %s", params.URL)
	}
	if len(body) > maxResponseSize {
		return nil, core.InvalidConfiguration("url", "response too large (exceeds 5MB limit)")
	}

	content := string(body)
	contentType := resp.Header.Get("Content-Type")
	title := fmt.Sprintf("%s (%s)", params.URL, contentType)

	var output string
	switch params.Format {
	case "markdown":
		if strings.Contains(contentType, "text/html") {
			output, err = convertHTMLToMarkdown(content)
			if err != nil {
				return nil, core.Wrap(core.KindInvalidConfig, err, "convert HTML to markdown")
			}
		} else {
			output = content
		}
	case "text":
		if strings.Contains(contentType, "text/html") {
			output, err = extractTextFromHTML(content)
			if err != nil {
				return nil, core.Wrap(core.KindInvalidConfig, err, "extract text from HTML")
			}
		} else {
			output = content
		}
	default:
		output = content
	}

	return &core.ToolResult{
		Title:    title,
		Output:   output,
		Metadata: map[string]any{"contentType": contentType},
	}, nil
}

// extractTextFromHTML strips script/style/frame elements and returns the
// remaining text, via goquery.
func extractTextFromHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, noscript, iframe, object, embed").Remove()
	return strings.TrimSpace(doc.Text()), nil
}

// convertHTMLToMarkdown converts HTML to Markdown via html-to-markdown.
func convertHTMLToMarkdown(html string) (string, error) {
	converter := md.NewConverter("", true, &md.Options{
		HeadingStyle:     "atx",
		HorizontalRule:   "---",
		BulletListMarker: "-",
		CodeBlockStyle:   "fenced",
		EmDelimiter:      "*",
	})
	converter.Remove("script", "style", "meta", "link")

	return converter.ConvertString(html)
}
