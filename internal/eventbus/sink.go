package eventbus

import (
	"encoding/json"
	"sync"

	"github.com/stepflow/stepflow/pkg/core"
)

func marshalEvent(event core.Event) ([]byte, error) {
	return json.Marshal(event)
}

// Sink is a single-producer event consumer: exactly one writer pushes
// events (via Send) and exactly one reader drains them (via C), matching
// spec.md §4.10's EventSink ("single producer, idempotent Finish"). A
// transport (SSE writer, CLI printer) is the typical reader.
//
// Grounded on the teacher's internal/event/bus.go Subscription type, which
// wraps a channel with a sync.Once-guarded close so repeated unsubscribes
// don't panic.
type Sink struct {
	ch      chan core.Event
	once    sync.Once
	closeCh chan struct{}
}

// NewSink creates a Sink with the given channel buffer size.
func NewSink(buffer int) *Sink {
	return &Sink{
		ch:      make(chan core.Event, buffer),
		closeCh: make(chan struct{}),
	}
}

// C returns the channel of events to drain. It is closed when Finish is
// called.
func (s *Sink) C() <-chan core.Event { return s.ch }

// Send pushes an event to the sink. It is a no-op once Finish has been
// called or if the reader has fallen behind the buffer (send is
// non-blocking: a full buffer drops the event rather than stalling the
// producer, matching the teacher's at-most-once event delivery for
// transports).
func (s *Sink) Send(event core.Event) {
	select {
	case <-s.closeCh:
		return
	default:
	}
	select {
	case s.ch <- event:
	default:
	}
}

// Finish closes the sink. Safe to call multiple times or concurrently;
// only the first call has effect.
func (s *Sink) Finish() {
	s.once.Do(func() {
		close(s.closeCh)
		close(s.ch)
	})
}
