// Package agentsession implements AgentSession, the engine's concurrency
// core: a serialized conversation with a steering queue, snapshots, and a
// replaceable underlying LLM session (spec.md §4.11).
//
// Grounded on the teacher's internal/session/processor.go, which already
// serializes one session's turns through a mutex and a waiter-notification
// slice. The spec's REDESIGN FLAGS direct replacing that mutex-plus-slice
// with an explicit FIFO of parked waiters keyed by id so a cancelled
// waiter can remove itself without disturbing the others; that is the one
// material change from the teacher's shape below.
package agentsession

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stepflow/stepflow/internal/eventbus"
	"github.com/stepflow/stepflow/pkg/core"
)

// Delegate builds a new underlying LLM session from a transcript, used by
// both session creation and replace_session/restore.
type Delegate = core.SessionBuilder

// waiter is one parked caller in the FIFO processing-slot queue.
type waiter struct {
	id       ulid.ULID
	resumeCh chan bool // true once acquired, false if cancelled out of the queue
}

// Session is the AgentSession concurrency core. Zero value is not usable;
// construct with New.
type Session struct {
	ID string

	mu       sync.Mutex
	busy     bool
	fifo     []*waiter
	current  core.LLMSession
	steering []string

	delegate Delegate
	bus      *eventbus.Bus
}

// New creates a Session with id, an underlying session built from
// transcript via delegate, and bus to publish prompt_submitted /
// response_completed events to.
func New(ctx context.Context, id string, transcript core.Transcript, delegate Delegate, bus *eventbus.Bus) (*Session, error) {
	underlying, err := delegate(ctx, transcript)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:       id,
		current:  underlying,
		delegate: delegate,
		bus:      bus,
	}, nil
}

// acquire implements the FIFO processing-slot invariant: if the slot is
// free, the caller takes it immediately; otherwise it parks at the tail of
// the FIFO and waits to be handed the slot by the holder's release, or to
// be cancelled out of the queue.
func (s *Session) acquire(ctx context.Context) error {
	s.mu.Lock()
	if !s.busy {
		s.busy = true
		s.mu.Unlock()
		return nil
	}

	w := &waiter{id: ulid.Make(), resumeCh: make(chan bool, 1)}
	s.fifo = append(s.fifo, w)
	s.mu.Unlock()

	select {
	case acquired := <-w.resumeCh:
		if !acquired {
			return core.Cancelled()
		}
		return nil
	case <-ctx.Done():
		s.removeWaiter(w)
		// removeWaiter leaves false in resumeCh; if release popped w first,
		// true arrives instead and the slot must be passed on.
		if acquired := <-w.resumeCh; acquired {
			s.release()
		}
		return core.Cancelled()
	}
}

// removeWaiter atomically drops w from the FIFO if it is still queued
// (it may have already been popped and handed the slot concurrently).
func (s *Session) removeWaiter(w *waiter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, other := range s.fifo {
		if other.id == w.id {
			s.fifo = append(s.fifo[:i], s.fifo[i+1:]...)
			select {
			case w.resumeCh <- false:
			default:
			}
			return
		}
	}
}

// release hands the slot to the next waiter without ever flipping busy to
// false in that case, or flips busy off if the queue is empty. No
// continuation is resumed while the mutex is held.
func (s *Session) release() {
	s.mu.Lock()
	if len(s.fifo) == 0 {
		s.busy = false
		s.mu.Unlock()
		return
	}
	next := s.fifo[0]
	s.fifo = s.fifo[1:]
	s.mu.Unlock()

	next.resumeCh <- true
}

// Send acquires the processing slot (suspending on the FIFO queue if
// busy), captures the current underlying session so a concurrent
// ReplaceSession does not disturb this turn, drains the steering queue
// into the prompt, and calls the captured session's Respond (spec.md
// §4.11).
func (s *Session) Send(ctx context.Context, content string) (core.Response, error) {
	if err := s.acquire(ctx); err != nil {
		return core.Response{}, err
	}
	defer s.release()

	select {
	case <-ctx.Done():
		return core.Response{}, core.Cancelled()
	default:
	}

	s.mu.Lock()
	captured := s.current
	steering := s.steering
	s.steering = nil
	s.mu.Unlock()

	start := len(captured.Transcript())
	prompt := buildPrompt(content, steering)

	if s.bus != nil {
		s.bus.Emit(core.NewEvent(core.EventPromptSubmitted, core.VariantSession, prompt))
	}

	startTime := time.Now()
	_, err := captured.Respond(ctx, prompt)
	if err != nil {
		return core.Response{}, err
	}
	elapsed := time.Since(startTime)

	if s.bus != nil {
		s.bus.Emit(core.NewEvent(core.EventResponseCompleted, core.VariantSession, nil))
	}

	transcript := captured.Transcript()
	newEntries := transcript[start:]

	var content2 any
	if len(newEntries) > 0 {
		content2 = newEntries[len(newEntries)-1].Content
	}

	return core.Response{
		Content:  content2,
		Entries:  append(core.Transcript(nil), newEntries...),
		Duration: elapsed,
	}, nil
}

// buildPrompt joins content with the drained steering messages, one blank
// line then each steering message separated by a blank line, per spec.md
// §4.11's exact framing.
func buildPrompt(content string, steering []string) string {
	prompt := content
	for _, s := range steering {
		prompt += "\n\n" + s
	}
	return prompt
}

// Steer appends content to the steering queue immediately, regardless of
// processing state; it is folded into the next Send's prompt.
func (s *Session) Steer(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steering = append(s.steering, content)
}

// ReplaceSession installs a new underlying session built from transcript.
// If called during an in-flight turn, that turn completes on its captured
// session; only the next turn observes the replacement.
func (s *Session) ReplaceSession(ctx context.Context, transcript core.Transcript) error {
	underlying, err := s.delegate(ctx, transcript)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = underlying
	s.mu.Unlock()
	return nil
}

// Snapshot captures {id, transcript, created_at, updated_at}. Snapshots
// are opaque to the engine: restoring one re-derives a session through the
// delegate rather than reconstructing internal state.
func (s *Session) Snapshot(createdAt time.Time) core.SessionSnapshot {
	s.mu.Lock()
	transcript := s.current.Transcript()
	s.mu.Unlock()

	return core.SessionSnapshot{
		ID:         s.ID,
		Transcript: append(core.Transcript(nil), transcript...),
		CreatedAt:  createdAt,
		UpdatedAt:  time.Now(),
	}
}

// Restore re-creates a Session whose underlying session is built from
// snapshot's transcript via delegate.
func Restore(ctx context.Context, snapshot core.SessionSnapshot, delegate Delegate, bus *eventbus.Bus) (*Session, error) {
	return New(ctx, snapshot.ID, snapshot.Transcript, delegate, bus)
}
