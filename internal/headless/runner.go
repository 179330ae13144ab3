package headless

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/oklog/ulid/v2"

	"github.com/stepflow/stepflow/internal/agentsession"
	"github.com/stepflow/stepflow/internal/ambient"
	"github.com/stepflow/stepflow/internal/engine"
	"github.com/stepflow/stepflow/pkg/core"
)

// Runner drives one headless, non-interactive run of the engine: it
// builds the same provider/tool/agent wiring a Transport would (via
// internal/engine.Bootstrap), then runs the bounded agentic tool-calling
// loop itself — there being no Transport in headless mode to run it for
// us — and reports the outcome through a Printer.
//
// Grounded on the teacher's internal/headless.Runner, which drove the
// same kind of run against internal/session.Processor; that processor and
// the rest of its era's permission/event/mcp stack no longer exist; this
// Runner drives internal/agentsession.Session directly instead, making it
// the first concrete assembly point of the permission/sandbox/logging/
// retry/timeout tool-pipeline chain into a runnable program.
type Runner struct {
	config  *Config
	printer *Printer
	boot    *engine.Bootstrap
}

// NewRunner creates a new headless runner.
func NewRunner(cfg *Config) *Runner {
	return &Runner{config: cfg}
}

// Run executes the headless session and returns the result.
func (r *Runner) Run(ctx context.Context, writer io.Writer) (*Result, error) {
	r.printer = NewPrinter(writer, r.config.OutputFormat, r.config.Quiet, r.config.Verbose)

	boot, err := engine.New(ctx, engine.Options{
		WorkDir:       r.config.WorkDir,
		AutoApprove:   r.config.AutoApprove,
		Verbose:       r.config.Verbose,
		Ephemeral:     r.config.NoSave,
		ModelOverride: r.config.Model,
		// A headless run has no terminal to prompt on: nonInteractiveHandler
		// always denies "ask" decisions, optionally logging when verbose.
		Handler: newNonInteractiveHandler(r.config.Verbose),
	})
	if err != nil {
		r.printer.SetResult("error", ExitError, "", err)
		return r.printer.GetResult(), err
	}
	r.boot = boot
	r.printer.Subscribe(boot.Bus)
	defer r.printer.Unsubscribe()
	if boot.MCPClient != nil {
		defer boot.MCPClient.Close()
	}

	prompt, err := r.getPrompt()
	if err != nil {
		r.printer.SetResult("error", ExitInvalidInput, "", err)
		return r.printer.GetResult(), err
	}
	if prompt == "" {
		err := errors.New("prompt is required")
		r.printer.SetResult("error", ExitInvalidInput, "", err)
		return r.printer.GetResult(), err
	}

	agentCfg, err := boot.ResolveAgent(r.config.Agent, r.config.SystemPrompt)
	if err != nil {
		r.printer.SetResult("error", ExitInvalidInput, "", err)
		return r.printer.GetResult(), err
	}

	sessionID, transcript, createdAt, err := r.getOrCreateSession(ctx)
	if err != nil {
		r.printer.SetResult("error", ExitSessionNotFound, "", err)
		return r.printer.GetResult(), err
	}
	r.printer.SetSessionID(sessionID)
	boot.Bus.Emit(core.NewEvent(eventSessionStarted, core.VariantSession, sessionStartedPayload{SessionID: sessionID}))

	providerID, modelID := boot.DefaultProviderID, boot.DefaultModelID
	if r.config.Model == "" && agentCfg.Model != nil {
		providerID, modelID = agentCfg.Model.ProviderID, agentCfg.Model.ModelID
	}
	r.printer.SetModel(fmt.Sprintf("%s/%s", providerID, modelID))

	delegate := boot.SessionBuilder(providerID, modelID, agentCfg.Prompt)

	var sess *agentsession.Session
	if transcript != nil {
		sess, err = agentsession.Restore(ctx, core.SessionSnapshot{ID: sessionID, Transcript: transcript, CreatedAt: createdAt}, delegate, boot.Bus)
	} else {
		sess, err = agentsession.New(ctx, sessionID, nil, delegate, boot.Bus)
	}
	if err != nil {
		r.printer.SetResult("error", ExitProviderError, "", err)
		return r.printer.GetResult(), err
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if r.config.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}
	runCtx = ambient.GuardrailConfigurationKey.With(runCtx, core.GuardrailConfiguration{PermissionConfiguration: agentCfg.Permission})

	finalMessage, runErr := r.runLoop(runCtx, sess, sessionID, prompt)

	if !r.config.NoSave {
		boot.Sessions.Put(ctx, sess.Snapshot(createdAt))
	}

	if runErr != nil {
		status, exitCode := classifyError(runErr)
		boot.Bus.Emit(core.NewEvent(eventSessionError, core.VariantSession, sessionErrorPayload{Error: runErr.Error()}))
		r.printer.SetResult(status, exitCode, finalMessage, runErr)
		return r.printer.GetResult(), runErr
	}

	boot.Bus.Emit(core.NewEvent(eventSessionCompleted, core.VariantSession, nil))
	r.printer.SetResult("success", ExitSuccess, finalMessage, nil)
	r.printer.PrintFinalResult()
	return r.printer.GetResult(), nil
}

// classifyError maps a run's terminal error to a Result status/ExitCode,
// replacing the deleted permission.IsRejectedError with core.IsKind
// against the new error taxonomy.
func classifyError(err error) (string, ExitCode) {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout", ExitTimeout
	}
	switch {
	case core.IsKind(err, core.KindTimeout):
		return "timeout", ExitTimeout
	case core.IsKind(err, core.KindPermissionDenied), core.IsKind(err, core.KindSandboxDenied):
		return "permission_denied", ExitPermissionDenied
	case core.IsKind(err, core.KindSessionNotFound):
		return "error", ExitSessionNotFound
	case core.IsKind(err, core.KindGenerationFailed):
		return "error", ExitProviderError
	case core.IsKind(err, core.KindInvalidConfig):
		return "error", ExitInvalidInput
	default:
		return "error", ExitError
	}
}

// runLoop drives the bounded agentic tool-calling loop over sess: submit
// the prompt, execute whatever tool calls the response carries, feed
// their outputs back as the next prompt, and repeat until a turn produces
// no further tool calls or the step budget (spec.md-grounded on the
// teacher's internal/session/loop.go's MaxSteps bound) is exhausted.
func (r *Runner) runLoop(ctx context.Context, sess *agentsession.Session, sessionID, prompt string) (string, error) {
	maxSteps := r.config.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultConfig().MaxSteps
	}

	currentPrompt := prompt
	var finalMessage string

	for step := 1; step <= maxSteps; step++ {
		r.printer.IncrementSteps()

		resp, err := sess.Send(ctx, currentPrompt)
		if err != nil {
			return finalMessage, err
		}

		var calls []schema.ToolCall
		for _, entry := range resp.Entries {
			switch entry.Kind {
			case core.EntryResponse:
				if text, ok := entry.Content.(string); ok && text != "" {
					finalMessage = text
					r.boot.Bus.Emit(core.NewEvent(eventAssistantMessage, core.VariantSession, assistantMessagePayload{Text: text}))
				}
			case core.EntryToolCall:
				if tc, ok := entry.Content.(schema.ToolCall); ok {
					calls = append(calls, tc)
				}
			}
		}

		if len(calls) == 0 {
			return finalMessage, nil
		}

		outputs := make([]string, 0, len(calls))
		for _, tc := range calls {
			output, callErr := r.callTool(ctx, sessionID, tc)
			if callErr != nil {
				return finalMessage, callErr
			}
			outputs = append(outputs, output)
		}

		currentPrompt = buildToolResultPrompt(outputs)
	}

	return finalMessage, core.ConditionNotMet(maxSteps)
}

// callTool decodes and dispatches a single model-requested tool call
// through its middleware-wrapped pipeline, emitting start/completion
// events for the Printer and returning the text to fold into the next
// prompt. A permission or sandbox refusal is returned as an error (not
// swallowed into the transcript), matching the teacher's runLoop
// terminating the whole run on the first denied call rather than letting
// the model retry indefinitely.
func (r *Runner) callTool(ctx context.Context, sessionID string, tc schema.ToolCall) (string, error) {
	name := tc.Function.Name
	args := json.RawMessage(tc.Function.Arguments)

	var decodedArgs any
	_ = json.Unmarshal(args, &decodedArgs)
	r.boot.Bus.Emit(core.NewEvent(eventToolCallStarted, core.VariantSession, toolCallStartedPayload{Tool: name, Input: decodedArgs}))

	pipeline, ok := r.boot.Pipelines[name]
	if !ok {
		err := core.NewError(core.KindInvalidConfig, "model requested unknown tool %q", name)
		r.boot.Bus.Emit(core.NewEvent(eventToolCallCompleted, core.VariantSession, toolCallCompletedPayload{Tool: name, Error: err.Error()}))
		return "", err
	}

	toolCtx := &core.ToolContext{
		ToolName:         name,
		ArgumentsJSON:    args,
		SessionID:        sessionID,
		WorkingDirectory: r.config.WorkDir,
	}

	start := time.Now()
	result, err := pipeline.Handle(ctx, toolCtx)
	elapsed := time.Since(start)

	if err != nil {
		r.boot.Bus.Emit(core.NewEvent(eventToolCallCompleted, core.VariantSession, toolCallCompletedPayload{
			Tool: name, Error: err.Error(), DurationMS: elapsed.Milliseconds(),
		}))
		return "", err
	}

	r.boot.Bus.Emit(core.NewEvent(eventToolCallCompleted, core.VariantSession, toolCallCompletedPayload{
		Tool: name, Output: result.Output, DurationMS: elapsed.Milliseconds(),
	}))

	return fmt.Sprintf("Tool %s returned:\n%s", name, result.Output), nil
}

// buildToolResultPrompt joins each tool's output, labeled by tool, into
// the next turn's prompt text. internal/provider's ProviderSession has no
// distinct tool-role message slot (see its entryToMessage), so tool
// output is folded back as ordinary user-turn text, a deliberate
// simplification recorded in DESIGN.md.
func buildToolResultPrompt(outputs []string) string {
	return strings.Join(outputs, "\n\n")
}

// getPrompt retrieves the prompt from stdin, the --prompt flag, and any
// attached files, in that priority order.
func (r *Runner) getPrompt() (string, error) {
	var prompt string

	if r.config.ReadStdin {
		scanner := bufio.NewScanner(os.Stdin)
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil && err != io.EOF {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		prompt = strings.Join(lines, "\n")
	}

	if r.config.Prompt != "" {
		if prompt != "" {
			prompt = r.config.Prompt + "\n\n" + prompt
		} else {
			prompt = r.config.Prompt
		}
	}

	if len(r.config.Files) > 0 {
		var fileContent strings.Builder
		for _, file := range r.config.Files {
			content, err := os.ReadFile(file)
			if err != nil {
				return "", fmt.Errorf("failed to read file %s: %w", file, err)
			}
			fileContent.WriteString(fmt.Sprintf("\n\n--- File: %s ---\n%s", file, string(content)))
		}
		prompt += fileContent.String()
	}

	return strings.TrimSpace(prompt), nil
}

// getOrCreateSession resolves --session-id/--continue into an existing
// session's id, transcript and original creation time, or mints a fresh
// session id for a new one (transcript nil, in which case the caller
// builds the AgentSession with agentsession.New rather than Restore).
func (r *Runner) getOrCreateSession(ctx context.Context) (string, core.Transcript, time.Time, error) {
	sessions := r.boot.Sessions

	if r.config.SessionID != "" {
		snap, err := sessions.Get(ctx, r.config.SessionID)
		if err != nil {
			return "", nil, time.Time{}, fmt.Errorf("session not found: %s", r.config.SessionID)
		}
		return snap.ID, snap.Transcript, snap.CreatedAt, nil
	}

	if r.config.ContinueLast {
		ids, err := sessions.List(ctx)
		if err != nil {
			return "", nil, time.Time{}, fmt.Errorf("failed to list sessions: %w", err)
		}
		if len(ids) > 0 {
			last := ids[len(ids)-1]
			snap, err := sessions.Get(ctx, last)
			if err != nil {
				return "", nil, time.Time{}, fmt.Errorf("failed to load last session: %w", err)
			}
			return snap.ID, snap.Transcript, snap.CreatedAt, nil
		}
	}

	return fmt.Sprintf("sess_%s", ulid.Make().String()), nil, time.Now(), nil
}
