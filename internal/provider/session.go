package provider

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/stepflow/stepflow/pkg/core"
)

// NewSessionBuilder adapts a Registry-resolved Provider into a
// pkg/core.SessionBuilder, so internal/agentsession and
// internal/executor can start a turn against any registered provider
// without knowing about Eino or CompletionRequest/CompletionStream.
// systemPrompt, when non-empty, is sent as the first message of every
// fresh session. It is not sent on resume: the transcript records no
// system entry, so a resumed session's messages are only its replayed
// prompts, responses and tool calls.
func NewSessionBuilder(registry *Registry, providerID, modelID, systemPrompt string, tools []*schema.ToolInfo) core.SessionBuilder {
	return func(ctx context.Context, transcript core.Transcript) (core.LLMSession, error) {
		p, err := registry.Get(providerID)
		if err != nil {
			return nil, fmt.Errorf("resolving provider %q: %w", providerID, err)
		}

		sess := &ProviderSession{
			provider: p,
			model:    modelID,
			tools:    tools,
		}

		if systemPrompt != "" && len(transcript) == 0 {
			sess.messages = append(sess.messages, &schema.Message{Role: schema.System, Content: systemPrompt})
		}

		for _, entry := range transcript {
			sess.transcript = append(sess.transcript, entry)
			if msg := entryToMessage(entry); msg != nil {
				sess.messages = append(sess.messages, msg)
			}
		}

		return sess, nil
	}
}

// ProviderSession implements pkg/core.LLMSession over a single Provider,
// accumulating the Eino message history alongside the core.Transcript so
// Respond can both drive the provider and report back in engine terms.
type ProviderSession struct {
	provider   Provider
	model      string
	tools      []*schema.ToolInfo
	messages   []*schema.Message
	transcript core.Transcript
}

// Respond implements core.LLMSession.
func (s *ProviderSession) Respond(ctx context.Context, prompt string) (core.Response, error) {
	start := time.Now()

	promptEntry := core.Entry{Kind: core.EntryPrompt, Content: prompt, Timestamp: start}
	s.transcript = append(s.transcript, promptEntry)
	s.messages = append(s.messages, &schema.Message{Role: schema.User, Content: prompt})

	stream, err := s.provider.CreateCompletion(ctx, &CompletionRequest{
		Model:    s.model,
		Messages: s.messages,
		Tools:    s.tools,
	})
	if err != nil {
		return core.Response{}, core.Wrap(core.KindGenerationFailed, err, "provider %s completion failed", s.provider.ID())
	}
	defer stream.Close()

	var content strings.Builder
	var toolCalls []schema.ToolCall
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return core.Response{}, core.Wrap(core.KindGenerationFailed, err, "provider %s stream failed", s.provider.ID())
		}
		content.WriteString(chunk.Content)
		if len(chunk.ToolCalls) > 0 {
			toolCalls = append(toolCalls, chunk.ToolCalls...)
		}
	}

	reply := &schema.Message{Role: schema.Assistant, Content: content.String(), ToolCalls: toolCalls}
	s.messages = append(s.messages, reply)

	entries := core.Transcript{}
	for _, tc := range toolCalls {
		entry := core.Entry{Kind: core.EntryToolCall, Content: tc, Timestamp: time.Now()}
		entries = append(entries, entry)
		s.transcript = append(s.transcript, entry)
	}

	responseEntry := core.Entry{Kind: core.EntryResponse, Content: content.String(), Timestamp: time.Now()}
	entries = append(entries, responseEntry)
	s.transcript = append(s.transcript, responseEntry)

	return core.Response{
		Content:  content.String(),
		Entries:  entries,
		Duration: time.Since(start),
	}, nil
}

// Transcript implements core.LLMSession.
func (s *ProviderSession) Transcript() core.Transcript {
	return append(core.Transcript(nil), s.transcript...)
}

// entryToMessage converts a replayed core.Entry back into the Eino message
// it must have produced, so a resumed session's provider call sees the
// same history a fresh one would have built turn by turn.
func entryToMessage(entry core.Entry) *schema.Message {
	switch entry.Kind {
	case core.EntryPrompt:
		if text, ok := entry.Content.(string); ok {
			return &schema.Message{Role: schema.User, Content: text}
		}
	case core.EntryResponse:
		if text, ok := entry.Content.(string); ok {
			return &schema.Message{Role: schema.Assistant, Content: text}
		}
	case core.EntryToolCall:
		if tc, ok := entry.Content.(schema.ToolCall); ok {
			return &schema.Message{Role: schema.Assistant, ToolCalls: []schema.ToolCall{tc}}
		}
	}
	return nil
}
