// Package eventbus implements EventBus and EventSink: a name-keyed
// multiplexer of events and a single-producer sink feeding a transport.
//
// Grounded on the teacher's internal/event/bus.go, which layers a
// direct-call, type-preserving subscriber list over watermill's gochannel
// pub/sub "for potential future middleware/routing". We keep that layering
// rather than inventing our own: watermill backs the bus so a distributed
// broker can be swapped in later without touching call sites, while the
// direct subscriber list is what spec.md's EventBus semantics (registration
// order, synchronous fan-out, no cross-event ordering) are actually built
// on.
package eventbus

import (
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stepflow/stepflow/pkg/core"
)

// Handler receives an Event synchronously.
type Handler func(core.Event)

// Bus is a mutable map from event name to an ordered list of handlers,
// guarded by a mutex. Emission fans an event out to all matching handlers,
// awaiting each in declaration order (spec.md §3, §4.10).
type Bus struct {
	mu       sync.Mutex
	handlers map[string][]Handler
	pubsub   *gochannel.GoChannel
}

// New creates an empty EventBus.
func New() *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			watermill.NopLogger{},
		),
	}
}

// On registers handler for name. Handlers for one event fire in
// registration order; there is no ordering guarantee across distinct
// event names.
func (b *Bus) On(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], handler)
}

// Off removes all handlers registered for name.
func (b *Bus) Off(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, name)
}

// Emit looks up handlers for event.Name under the mutex, copies the list,
// and awaits each handler in order outside the critical section (so no
// lock is held across a handler's execution). It also republishes onto the
// watermill channel for consumers that want the pub/sub view.
func (b *Bus) Emit(event core.Event) {
	b.mu.Lock()
	handlers := append([]Handler(nil), b.handlers[event.Name]...)
	b.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}

	if payload, err := marshalEvent(event); err == nil {
		_ = b.pubsub.Publish(event.Name, payload)
	}
}

// PubSub exposes the underlying watermill channel for advanced
// middleware/routing use cases.
func (b *Bus) PubSub() *gochannel.GoChannel { return b.pubsub }

// Close tears down the underlying pub/sub infrastructure.
func (b *Bus) Close() error { return b.pubsub.Close() }
