package headless

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/stepflow/stepflow/internal/eventbus"
	"github.com/stepflow/stepflow/pkg/core"
	"github.com/stepflow/stepflow/pkg/types"
)

// Printer handles event output in various formats for headless mode.
//
// Grounded on the teacher's internal/headless.Printer, which rendered
// internal/event.Event values carrying opencode's message/part event
// types; this Printer renders the headless-local event names a Runner
// emits on its own eventbus.Bus instead, since the old session/message
// event stream no longer exists.
type Printer struct {
	mu          sync.Mutex
	writer      io.Writer
	format      OutputFormat
	quiet       bool
	verbose     bool
	bus         *eventbus.Bus
	sessionID   string
	startTime   time.Time
	result      *Result
	toolCalls   []ToolCall
	pendingInput any
}

// NewPrinter creates a new event printer.
func NewPrinter(writer io.Writer, format OutputFormat, quiet, verbose bool) *Printer {
	return &Printer{
		writer:    writer,
		format:    format,
		quiet:     quiet,
		verbose:   verbose,
		startTime: time.Now(),
		result: &Result{
			Status:   "running",
			ExitCode: ExitSuccess,
		},
		toolCalls: make([]ToolCall, 0),
	}
}

// Subscribe starts listening to a Runner's events.
func (p *Printer) Subscribe(bus *eventbus.Bus) {
	p.bus = bus
	bus.On(eventSessionStarted, p.handleEvent)
	bus.On(eventAssistantMessage, p.handleEvent)
	bus.On(eventToolCallStarted, p.handleEvent)
	bus.On(eventToolCallCompleted, p.handleEvent)
	bus.On(eventSessionError, p.handleEvent)
	bus.On(eventSessionCompleted, p.handleEvent)
}

// Unsubscribe stops listening to events.
func (p *Printer) Unsubscribe() {
	if p.bus == nil {
		return
	}
	p.bus.Off(eventSessionStarted)
	p.bus.Off(eventAssistantMessage)
	p.bus.Off(eventToolCallStarted)
	p.bus.Off(eventToolCallCompleted)
	p.bus.Off(eventSessionError)
	p.bus.Off(eventSessionCompleted)
	p.bus = nil
}

// SetSessionID sets the session ID for the printer.
func (p *Printer) SetSessionID(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessionID = sessionID
	p.result.SessionID = sessionID
}

// GetResult returns the current result.
func (p *Printer) GetResult() *Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.result.DurationMS = time.Since(p.startTime).Milliseconds()
	p.result.ToolCalls = p.toolCalls

	return p.result
}

// SetResult updates the result with final values.
func (p *Printer) SetResult(status string, exitCode ExitCode, finalMessage string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.result.Status = status
	p.result.ExitCode = exitCode
	if finalMessage != "" {
		p.result.FinalMessage = finalMessage
	}
	if err != nil {
		p.result.Error = err.Error()
	}
	p.result.DurationMS = time.Since(p.startTime).Milliseconds()
}

// SetTokens updates token usage in the result.
func (p *Printer) SetTokens(tokens *types.TokenUsage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.result.Tokens = tokens
}

// SetModel updates the model in the result.
func (p *Printer) SetModel(model string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.result.Model = model
}

// IncrementSteps increments the step counter.
func (p *Printer) IncrementSteps() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.result.Steps++
}

// PrintFinalResult prints the final JSON result (for json format).
func (p *Printer) PrintFinalResult() {
	if p.format != OutputJSON {
		return
	}

	result := p.GetResult()
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return
	}
	fmt.Fprintln(p.writer, string(data))
}

// handleEvent processes an incoming Runner event and outputs it according
// to the configured format.
func (p *Printer) handleEvent(e core.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.trackEvent(e)

	switch p.format {
	case OutputText:
		p.handleTextEvent(e)
	case OutputJSON:
		// JSON format only prints the final result; trackEvent above is
		// still needed to accumulate ToolCalls/FinalMessage.
	case OutputJSONL:
		p.handleJSONLEvent(e)
	}
}

// handleTextEvent outputs events in human-readable text format.
func (p *Printer) handleTextEvent(e core.Event) {
	switch e.Name {
	case eventSessionStarted:
		if !p.quiet {
			if data, ok := e.Payload.(sessionStartedPayload); ok {
				fmt.Fprintf(p.writer, "[session:%s] Starting...\n", truncateID(data.SessionID))
			}
		}

	case eventAssistantMessage:
		if data, ok := e.Payload.(assistantMessagePayload); ok && data.Text != "" {
			fmt.Fprint(p.writer, data.Text)
		}

	case eventToolCallStarted:
		if p.quiet {
			return
		}
		if data, ok := e.Payload.(toolCallStartedPayload); ok {
			info := formatToolInfo(data.Tool, data.Input)
			if info != "" {
				fmt.Fprintf(p.writer, "\n[tool:%s] %s\n", data.Tool, info)
			} else if p.verbose {
				fmt.Fprintf(p.writer, "\n[tool:%s] Starting...\n", data.Tool)
			}
		}

	case eventToolCallCompleted:
		if p.quiet {
			return
		}
		if data, ok := e.Payload.(toolCallCompletedPayload); ok {
			if data.Error != "" {
				fmt.Fprintf(p.writer, "[tool:%s] Error: %s\n", data.Tool, data.Error)
			} else if p.verbose {
				fmt.Fprintf(p.writer, "[tool:%s] Done\n", data.Tool)
			}
		}

	case eventSessionError:
		if data, ok := e.Payload.(sessionErrorPayload); ok {
			fmt.Fprintf(p.writer, "[error] %s\n", data.Error)
		}

	case eventSessionCompleted:
		duration := time.Since(p.startTime)
		fmt.Fprintf(p.writer, "\n[done] Session completed in %s", formatDuration(duration))
		if p.result.Tokens != nil {
			fmt.Fprintf(p.writer, " (input: %d tokens, output: %d tokens)",
				p.result.Tokens.Input, p.result.Tokens.Output)
		}
		fmt.Fprintln(p.writer)
	}
}

// handleJSONLEvent outputs events in JSONL format.
func (p *Printer) handleJSONLEvent(e core.Event) {
	if !p.verbose && !isImportantEvent(e.Name) {
		return
	}

	evt := &Event{
		Type:      e.Name,
		Timestamp: e.Timestamp,
		Data:      e.Payload,
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	fmt.Fprintln(p.writer, string(data))
}

// trackEvent accumulates event data into the in-progress Result.
func (p *Printer) trackEvent(e core.Event) {
	switch e.Name {
	case eventAssistantMessage:
		if data, ok := e.Payload.(assistantMessagePayload); ok && data.Text != "" {
			p.result.FinalMessage = data.Text
		}

	case eventToolCallStarted:
		if data, ok := e.Payload.(toolCallStartedPayload); ok {
			p.pendingInput = data.Input
		}

	case eventToolCallCompleted:
		if data, ok := e.Payload.(toolCallCompletedPayload); ok {
			p.toolCalls = append(p.toolCalls, ToolCall{
				Tool:       data.Tool,
				Input:      p.pendingInput,
				Output:     truncateOutput(data.Output, 500),
				Error:      data.Error,
				DurationMS: data.DurationMS,
			})
			p.pendingInput = nil
		}
	}
}

// Helper functions

func truncateID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func truncateOutput(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

// formatToolInfo renders a short human-readable summary of a tool
// invocation's arguments, keyed by the tool names and argument fields
// internal/tool's registry actually uses (Read/Write/Edit's file_path,
// Bash's command, Glob/Grep's pattern, WebFetch's url).
func formatToolInfo(toolName string, input any) string {
	args, ok := input.(map[string]any)
	if !ok {
		return ""
	}

	switch toolName {
	case "Read":
		if path, ok := args["file_path"].(string); ok {
			return fmt.Sprintf("Reading %s", path)
		}
	case "Write":
		if path, ok := args["file_path"].(string); ok {
			return fmt.Sprintf("Writing %s", path)
		}
	case "Edit":
		if path, ok := args["file_path"].(string); ok {
			return fmt.Sprintf("Editing %s", path)
		}
	case "Bash":
		if cmd, ok := args["command"].(string); ok {
			cmd = strings.Split(cmd, "\n")[0]
			if len(cmd) > 60 {
				cmd = cmd[:60] + "..."
			}
			return fmt.Sprintf("$ %s", cmd)
		}
	case "Glob":
		if pattern, ok := args["pattern"].(string); ok {
			return fmt.Sprintf("Searching: %s", pattern)
		}
	case "Grep":
		if pattern, ok := args["pattern"].(string); ok {
			return fmt.Sprintf("Grepping: %s", pattern)
		}
	case "WebFetch":
		if url, ok := args["url"].(string); ok {
			return fmt.Sprintf("Fetching: %s", url)
		}
	}

	return ""
}

func isImportantEvent(name string) bool {
	switch name {
	case eventSessionStarted,
		eventSessionError,
		eventSessionCompleted,
		eventToolCallStarted,
		eventToolCallCompleted:
		return true
	default:
		return false
	}
}
