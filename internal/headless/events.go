package headless

// Event names a headless Runner emits on its own eventbus.Bus, distinct
// from pkg/core's reserved promptSubmitted/responseCompleted names (those
// are emitted by agentsession.Session itself, one layer below): these
// describe the run as a whole, which is what a Printer renders.
const (
	eventSessionStarted   = "headless.sessionStarted"
	eventAssistantMessage = "headless.assistantMessage"
	eventToolCallStarted  = "headless.toolCallStarted"
	eventToolCallCompleted = "headless.toolCallCompleted"
	eventSessionError     = "headless.sessionError"
	eventSessionCompleted = "headless.sessionCompleted"
)

type sessionStartedPayload struct {
	SessionID string
}

type assistantMessagePayload struct {
	Text string
}

type toolCallStartedPayload struct {
	Tool  string
	Input any
}

type toolCallCompletedPayload struct {
	Tool       string
	Output     string
	Error      string
	DurationMS int64
}

type sessionErrorPayload struct {
	Error string
}
