package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/stepflow/stepflow/internal/agentsession"
	"github.com/stepflow/stepflow/internal/provider"
	"github.com/stepflow/stepflow/pkg/core"
)

// defaultMaxSteps bounds a message's tool-calling loop when the request
// doesn't specify one, matching internal/headless's own default.
const defaultMaxSteps = 50

// CreateSessionRequest is the body of POST /session.
type CreateSessionRequest struct {
	Title string `json:"title,omitempty"`
}

// SessionResponse is the wire shape of a session returned to clients.
type SessionResponse struct {
	ID        string            `json:"id"`
	Title     string            `json:"title,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// MessageRequest is the body of POST /session/{id}/message.
type MessageRequest struct {
	Prompt   string `json:"prompt"`
	Agent    string `json:"agent,omitempty"`
	Model    string `json:"model,omitempty"`
	MaxSteps int    `json:"maxSteps,omitempty"`
}

// MessageResponse is the result of a completed (or failed) message run.
type MessageResponse struct {
	SessionID    string `json:"sessionId"`
	FinalMessage string `json:"finalMessage,omitempty"`
	Steps        int    `json:"steps"`
	DurationMS   int64  `json:"durationMs"`
	Error        string `json:"error,omitempty"`
}

// listSessions handles GET /session.
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.boot.Sessions.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

// createSession handles POST /session.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	now := time.Now()
	snap := core.SessionSnapshot{
		ID:        fmt.Sprintf("sess_%s", ulid.Make().String()),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Title != "" {
		snap.Metadata = map[string]string{"title": req.Title}
	}

	if err := s.boot.Sessions.Put(r.Context(), snap); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, snapshotToResponse(snap))
}

// getSession handles GET /session/{sessionID}.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	snap, err := s.boot.Sessions.Get(r.Context(), sessionID)
	if err != nil {
		if core.IsKind(err, core.KindSessionNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, snapshotToResponse(snap))
}

func snapshotToResponse(snap core.SessionSnapshot) SessionResponse {
	return SessionResponse{
		ID:        snap.ID,
		Title:     snap.Metadata["title"],
		CreatedAt: snap.CreatedAt,
		UpdatedAt: snap.UpdatedAt,
		Metadata:  snap.Metadata,
	}
}

// sendMessage handles POST /session/{sessionID}/message: it submits a
// prompt to the session and synchronously drives the bounded agentic
// tool-calling loop — the request/response-shaped counterpart of
// internal/headless.Runner.runLoop — emitting progress over this
// package's events on boot.Bus as it goes, returning once the loop
// finishes, errors, or is aborted via POST /session/{sessionID}/abort.
func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "prompt is required")
		return
	}

	snap, err := s.boot.Sessions.Get(r.Context(), sessionID)
	if err != nil {
		if core.IsKind(err, core.KindSessionNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	agentCfg, err := s.boot.ResolveAgent(req.Agent, "")
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	providerID, modelID := s.boot.DefaultProviderID, s.boot.DefaultModelID
	switch {
	case req.Model != "":
		providerID, modelID = provider.ParseModelString(req.Model)
	case agentCfg.Model != nil:
		providerID, modelID = agentCfg.Model.ProviderID, agentCfg.Model.ModelID
	}

	delegate := s.boot.SessionBuilder(providerID, modelID, agentCfg.Prompt)

	var sess *agentsession.Session
	if len(snap.Transcript) > 0 {
		sess, err = agentsession.Restore(r.Context(), snap, delegate, s.boot.Bus)
	} else {
		sess, err = agentsession.New(r.Context(), sessionID, nil, delegate, s.boot.Bus)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeProviderError, err.Error())
		return
	}

	maxSteps := req.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}

	ctx, cancel := context.WithCancel(r.Context())
	release := s.registerCancel(sessionID, cancel)
	defer release()
	defer cancel()

	s.boot.Bus.Emit(core.NewEvent(eventSessionStarted, core.VariantSession, sessionStartedPayload{SessionID: sessionID}))

	start := time.Now()
	finalMessage, steps, runErr := s.runTurn(ctx, sess, sessionID, req.Prompt, maxSteps)
	elapsed := time.Since(start)

	// Snapshot only captures {id, transcript, created_at, updated_at}
	// (agentsession.Session.Snapshot's own doc comment); metadata and
	// lineage live alongside it and must be carried forward by hand.
	metadata, parentID := snap.Metadata, snap.ParentID
	snap = sess.Snapshot(snap.CreatedAt)
	snap.Metadata = metadata
	snap.ParentID = parentID
	_ = s.boot.Sessions.Put(r.Context(), snap)

	resp := MessageResponse{SessionID: sessionID, FinalMessage: finalMessage, Steps: steps, DurationMS: elapsed.Milliseconds()}

	if runErr != nil {
		s.boot.Bus.Emit(core.NewEvent(eventSessionError, core.VariantSession, sessionErrorPayload{SessionID: sessionID, Error: runErr.Error()}))
		resp.Error = runErr.Error()
		writeJSON(w, statusForError(runErr), resp)
		return
	}

	s.boot.Bus.Emit(core.NewEvent(eventSessionCompleted, core.VariantSession, sessionCompletedPayload{SessionID: sessionID}))
	writeJSON(w, http.StatusOK, resp)
}

// abortSession handles POST /session/{sessionID}/abort.
func (s *Server) abortSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if !s.abort(sessionID) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "no in-flight message for this session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"aborted": true})
}

// statusForError maps a run's terminal error to an HTTP status, the
// request/response counterpart of internal/headless's classifyError.
func statusForError(err error) int {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	case core.IsKind(err, core.KindPermissionDenied), core.IsKind(err, core.KindSandboxDenied):
		return http.StatusForbidden
	case core.IsKind(err, core.KindSessionNotFound):
		return http.StatusNotFound
	case core.IsKind(err, core.KindInvalidConfig):
		return http.StatusBadRequest
	case core.IsKind(err, core.KindGenerationFailed):
		return http.StatusBadGateway
	case core.IsKind(err, core.KindTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// runTurn drives sess through a bounded multi-turn tool-calling loop:
// submit the prompt, execute whatever tool calls the response carries
// through boot.Pipelines, fold their outputs back as the next prompt, and
// repeat until a turn produces no further tool calls or maxSteps is
// exhausted. Mirrors internal/headless.Runner.runLoop/callTool's shape,
// emitting this package's own session-tagged events instead.
func (s *Server) runTurn(ctx context.Context, sess *agentsession.Session, sessionID, prompt string, maxSteps int) (string, int, error) {
	currentPrompt := prompt
	var finalMessage string

	for step := 1; step <= maxSteps; step++ {
		resp, err := sess.Send(ctx, currentPrompt)
		if err != nil {
			return finalMessage, step - 1, err
		}

		var calls []schema.ToolCall
		for _, entry := range resp.Entries {
			switch entry.Kind {
			case core.EntryResponse:
				if text, ok := entry.Content.(string); ok && text != "" {
					finalMessage = text
					s.boot.Bus.Emit(core.NewEvent(eventAssistantMessage, core.VariantSession, assistantMessagePayload{SessionID: sessionID, Text: text}))
				}
			case core.EntryToolCall:
				if tc, ok := entry.Content.(schema.ToolCall); ok {
					calls = append(calls, tc)
				}
			}
		}

		if len(calls) == 0 {
			return finalMessage, step, nil
		}

		outputs := make([]string, 0, len(calls))
		for _, tc := range calls {
			output, callErr := s.callTool(ctx, sessionID, tc)
			if callErr != nil {
				return finalMessage, step, callErr
			}
			outputs = append(outputs, output)
		}

		currentPrompt = strings.Join(outputs, "\n\n")
	}

	return finalMessage, maxSteps, core.ConditionNotMet(maxSteps)
}

// callTool decodes and dispatches a single model-requested tool call
// through its middleware-wrapped pipeline, emitting start/completion
// events and returning the text to fold into the next prompt.
func (s *Server) callTool(ctx context.Context, sessionID string, tc schema.ToolCall) (string, error) {
	name := tc.Function.Name
	args := json.RawMessage(tc.Function.Arguments)

	var decodedArgs any
	_ = json.Unmarshal(args, &decodedArgs)
	s.boot.Bus.Emit(core.NewEvent(eventToolCallStarted, core.VariantSession, toolCallStartedPayload{SessionID: sessionID, Tool: name, Input: decodedArgs}))

	pipeline, ok := s.boot.Pipelines[name]
	if !ok {
		err := core.NewError(core.KindInvalidConfig, "model requested unknown tool %q", name)
		s.boot.Bus.Emit(core.NewEvent(eventToolCallCompleted, core.VariantSession, toolCallCompletedPayload{SessionID: sessionID, Tool: name, Error: err.Error()}))
		return "", err
	}

	toolCtx := &core.ToolContext{
		ToolName:         name,
		ArgumentsJSON:    args,
		SessionID:        sessionID,
		WorkingDirectory: s.boot.WorkDir,
	}

	start := time.Now()
	result, err := pipeline.Handle(ctx, toolCtx)
	elapsed := time.Since(start)

	if err != nil {
		s.boot.Bus.Emit(core.NewEvent(eventToolCallCompleted, core.VariantSession, toolCallCompletedPayload{
			SessionID: sessionID, Tool: name, Error: err.Error(), DurationMS: elapsed.Milliseconds(),
		}))
		return "", err
	}

	s.boot.Bus.Emit(core.NewEvent(eventToolCallCompleted, core.VariantSession, toolCallCompletedPayload{
		SessionID: sessionID, Tool: name, Output: result.Output, DurationMS: elapsed.Milliseconds(),
	}))

	return fmt.Sprintf("Tool %s returned:\n%s", name, result.Output), nil
}
