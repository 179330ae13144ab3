package step

import (
	"context"

	"github.com/stepflow/stepflow/pkg/core"
)

// Emitter publishes an Event. internal/eventbus.Bus satisfies this, but
// step stays free of a direct import on eventbus (which would make a
// leaf combinator package depend on the ambient infrastructure) by taking
// the capability as a narrow interface instead, the way the teacher's
// session code takes an event publisher without importing the transport
// that ultimately reads from it.
type Emitter interface {
	Emit(core.Event)
}

// BeforePayload and AfterPayload build an event payload from the Step's
// input and output/error respectively. A nil builder leaves the payload
// nil; the event is still emitted when its name is set.
type BeforePayload[I any] func(I) any
type AfterPayload[I, O any] func(I, O, error) any

// EmittingOptions configures Emitting's before/after event names and
// payload builders.
type EmittingOptions[I, O any] struct {
	BeforeName    string
	Before        BeforePayload[I]
	AfterName     string
	After         AfterPayload[I, O]
	Variant       core.EventVariant
}

// Emitting wraps inner so that, around its execution, zero or more events
// are published to bus (spec.md §4.7: "before/after execution emits zero
// or more events to the ambient EventBus; value-carrying payload builders
// allowed"). A zero-value BeforeName/AfterName skips that side's
// emission.
func Emitting[I, O any](inner Step[I, O], bus Emitter, opts EmittingOptions[I, O]) Step[I, O] {
	variant := opts.Variant
	if variant == "" {
		variant = core.VariantStep
	}
	return Func[I, O](func(ctx context.Context, input I) (O, error) {
		if opts.BeforeName != "" {
			var payload any
			if opts.Before != nil {
				payload = opts.Before(input)
			}
			bus.Emit(core.NewEvent(opts.BeforeName, variant, payload))
		}

		out, err := inner.Run(ctx, input)

		if opts.AfterName != "" {
			var payload any
			if opts.After != nil {
				payload = opts.After(input, out, err)
			}
			bus.Emit(core.NewEvent(opts.AfterName, variant, payload))
		}

		return out, err
	})
}
