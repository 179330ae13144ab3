package server

// Event name constants this Transport emits on its shared
// engine.Bootstrap.Bus, alongside the reserved core.EventPromptSubmitted/
// core.EventResponseCompleted that internal/agentsession.Session emits
// itself. Distinct from internal/headless's own event* names (mirrored in
// shape, grounded on the same pattern) since a server multiplexes many
// concurrent sessions over one /event stream and so, unlike a headless
// run, needs each payload tagged with the session it belongs to.
const (
	eventSessionStarted   = "server.sessionStarted"
	eventAssistantMessage = "server.assistantMessage"
	eventToolCallStarted  = "server.toolCallStarted"
	eventToolCallCompleted = "server.toolCallCompleted"
	eventSessionError     = "server.sessionError"
	eventSessionCompleted = "server.sessionCompleted"
)

type sessionStartedPayload struct {
	SessionID string `json:"sessionId"`
}

type assistantMessagePayload struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
}

type toolCallStartedPayload struct {
	SessionID string `json:"sessionId"`
	Tool      string `json:"tool"`
	Input     any    `json:"input,omitempty"`
}

type toolCallCompletedPayload struct {
	SessionID  string `json:"sessionId"`
	Tool       string `json:"tool"`
	Output     string `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"durationMs"`
}

type sessionErrorPayload struct {
	SessionID string `json:"sessionId"`
	Error     string `json:"error"`
}

type sessionCompletedPayload struct {
	SessionID string `json:"sessionId"`
}
