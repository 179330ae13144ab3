package core

import (
	"context"
	"time"
)

// EntryKind tags the role of a Transcript Entry.
type EntryKind string

const (
	EntryPrompt     EntryKind = "prompt"
	EntryToolCall   EntryKind = "tool_call"
	EntryToolOutput EntryKind = "tool_output"
	EntryResponse   EntryKind = "response"
)

// Entry is one element of a Transcript: a prompt, a batch of tool calls, a
// tool's output, or an assistant response. Content is left as a generic
// payload since the concrete LLM backend that produces it is out of scope
// for this engine (see the Session interface below).
type Entry struct {
	Kind      EntryKind `json:"kind"`
	Content   any       `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Transcript is an ordered, finite sequence of Entries.
type Transcript []Entry

// Clone returns a shallow copy safe to mutate independently (append-safe).
func (t Transcript) Clone() Transcript {
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}

// Response is what a single LLM turn produces: generated content, the new
// Transcript entries appended this turn, and how long the turn took.
type Response struct {
	Content  any
	Entries  Transcript
	Duration time.Duration
}

// LLMSession is the abstract interface to the concrete language-model
// backend. Tools and the respond/stream operations are consumed through
// this interface; the concrete implementation is an external collaborator
// named only at this boundary (spec.md §1 Non-goals).
type LLMSession interface {
	// Respond submits prompt as the next turn and returns the model's
	// response. It may suspend for an arbitrary duration and must be
	// cancellable via ctx.
	Respond(ctx context.Context, prompt string) (Response, error)

	// Transcript returns the full transcript accumulated so far.
	Transcript() Transcript
}

// SessionBuilder constructs a new LLMSession from a Transcript, used both
// for session replacement (compaction) and for restoring a session from a
// snapshot. It is supplied by the caller, not the engine.
type SessionBuilder func(ctx context.Context, transcript Transcript) (LLMSession, error)
