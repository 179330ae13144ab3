package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/stepflow/stepflow/pkg/core"
)

// SSEHeartbeatInterval is the interval for SSE heartbeats.
const SSEHeartbeatInterval = 30 * time.Second

// sseTopics lists every event name the /event stream forwards: the two
// reserved session-lifecycle names internal/agentsession.Session emits
// itself, core.EventNotification (emitted by internal/tool), plus this
// package's own turn-loop events (events.go).
var sseTopics = []string{
	core.EventPromptSubmitted,
	core.EventResponseCompleted,
	core.EventNotification,
	eventSessionStarted,
	eventAssistantMessage,
	eventToolCallStarted,
	eventToolCallCompleted,
	eventSessionError,
	eventSessionCompleted,
}

// sseWriter wraps http.ResponseWriter for SSE.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
}

// newSSEWriter creates a new SSE writer.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	rc := http.NewResponseController(w)

	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	return &sseWriter{w: w, flusher: flusher, rc: rc}, nil
}

// writeRaw writes an already-JSON-encoded SSE event.
func (s *sseWriter) writeRaw(eventType string, data []byte) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", eventType, data); err != nil {
		return err
	}

	if flushErr := s.rc.Flush(); flushErr != nil {
		s.flusher.Flush()
	}

	return nil
}

// writeHeartbeat writes an SSE heartbeat comment.
func (s *sseWriter) writeHeartbeat() {
	fmt.Fprintf(s.w, ": heartbeat\n\n")
	s.flusher.Flush()
}

// allEvents handles GET /event: every session's events, as they are
// emitted, until the client disconnects.
//
// SSE Implementation Note:
// This file contains a custom Server-Sent Events implementation rather than
// using a third-party package like r3labs/sse. This decision was made because:
//
// 1. The current implementation is simple and small (one writer type and one handler)
// 2. It integrates directly with our internal event bus architecture
// 3. It forwards every session's events unfiltered, which needs nothing beyond the bus subscriptions below
// 4. The r3labs/sse package is a heavier framework designed for different use cases
// 5. Replacing it would add complexity without significant benefits
//
// Unlike internal/eventbus.Bus.On/Off (one handler list per event name,
// Off dropping the whole list), a connection here subscribes through
// Bus.PubSub() — the watermill gochannel each Bus already carries — so
// concurrent /event connections get independent subscriptions: cancelling
// this request's context tears down only this connection's channels.
func (s *Server) allEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	w.WriteHeader(http.StatusOK)
	sse.flusher.Flush()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	merged := make(chan *message.Message, 64)
	pubsub := s.boot.Bus.PubSub()
	for _, topic := range sseTopics {
		msgs, err := pubsub.Subscribe(ctx, topic)
		if err != nil {
			continue
		}
		go forwardMessages(ctx, msgs, merged)
	}

	ticker := time.NewTicker(SSEHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-merged:
			msg.Ack()
			if err := sse.writeRaw("message", msg.Payload); err != nil {
				return
			}
		case <-ticker.C:
			sse.writeHeartbeat()
		}
	}
}

// forwardMessages drains one topic subscription into merged until either
// the subscription closes or ctx is cancelled.
func forwardMessages(ctx context.Context, msgs <-chan *message.Message, merged chan<- *message.Message) {
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			select {
			case merged <- msg:
			case <-ctx.Done():
				msg.Ack()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
