package step_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stepflow/stepflow/internal/step"
	"github.com/stepflow/stepflow/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeoutFailsWhenInnerIsSlow(t *testing.T) {
	slow := step.Transform(func(int) (int, error) {
		time.Sleep(50 * time.Millisecond)
		return 1, nil
	})

	wrapped := step.Timeout[int, int](slow, 10*time.Millisecond)
	_, err := wrapped.Run(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindTimeout))
}

func TestTimeoutPassesFastInner(t *testing.T) {
	fast := step.Transform(func(n int) (int, error) { return n + 1, nil })
	wrapped := step.Timeout[int, int](fast, 50*time.Millisecond)

	out, err := wrapped.Run(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, out)
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	flaky := step.Transform(func(int) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("not yet")
		}
		return 42, nil
	})

	wrapped := step.Retry[int, int](flaky, 5, time.Millisecond)
	out, err := wrapped.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 42, out)
	assert.Equal(t, 3, attempts)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	alwaysFails := step.Transform(func(int) (int, error) {
		attempts++
		return 0, errors.New("permanent")
	})

	wrapped := step.Retry[int, int](alwaysFails, 3, time.Millisecond)
	_, err := wrapped.Run(context.Background(), 0)
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestMapErrorTranslatesFailure(t *testing.T) {
	boom := step.Transform(func(int) (int, error) { return 0, errors.New("inner") })
	wrapped := step.MapError[int, int](boom, func(error) error {
		return core.Blocked("translated")
	})

	_, err := wrapped.Run(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindBlocked))
}

func TestMapErrorLeavesSuccessUntouched(t *testing.T) {
	good := step.Transform(func(n int) (int, error) { return n, nil })
	wrapped := step.MapError[int, int](good, func(error) error {
		t.Fatal("should not be called on success")
		return nil
	})

	out, err := wrapped.Run(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 7, out)
}

func TestMonitorDoesNotAlterValues(t *testing.T) {
	inner := step.Transform(func(n int) (int, error) { return n * 2, nil })

	var before, after int
	var gotElapsed time.Duration
	hooks := step.MonitorHooks[int, int]{
		BeforeInput: func(n int) { before = n },
		AfterOutput: func(n int) { after = n },
		OnComplete:  func(d time.Duration, err error) { gotElapsed = d },
	}

	wrapped := step.Monitor(inner, hooks)
	out, err := wrapped.Run(context.Background(), 5)

	require.NoError(t, err)
	assert.Equal(t, 10, out)
	assert.Equal(t, 5, before)
	assert.Equal(t, 10, after)
	assert.GreaterOrEqual(t, gotElapsed, time.Duration(0))
}

func TestMonitorReportsErrors(t *testing.T) {
	inner := step.Transform(func(int) (int, error) { return 0, errors.New("boom") })

	var gotErr error
	hooks := step.MonitorHooks[int, int]{
		OnError: func(err error) { gotErr = err },
	}

	wrapped := step.Monitor(inner, hooks)
	_, err := wrapped.Run(context.Background(), 1)

	require.Error(t, err)
	assert.Equal(t, err, gotErr)
}

type recordingEmitter struct {
	events []core.Event
}

func (r *recordingEmitter) Emit(e core.Event) { r.events = append(r.events, e) }

func TestEmittingPublishesBeforeAndAfter(t *testing.T) {
	inner := step.Transform(func(n int) (int, error) { return n + 1, nil })
	emitter := &recordingEmitter{}

	wrapped := step.Emitting(inner, emitter, step.EmittingOptions[int, int]{
		BeforeName: "started",
		Before:     func(n int) any { return n },
		AfterName:  "finished",
		After:      func(in, out int, err error) any { return out },
	})

	out, err := wrapped.Run(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, out)

	require.Len(t, emitter.events, 2)
	assert.Equal(t, "started", emitter.events[0].Name)
	assert.Equal(t, 1, emitter.events[0].Payload)
	assert.Equal(t, "finished", emitter.events[1].Name)
	assert.Equal(t, 2, emitter.events[1].Payload)
}

func TestEmittingSkipsUnnamedEvents(t *testing.T) {
	inner := step.Transform(func(n int) (int, error) { return n, nil })
	emitter := &recordingEmitter{}

	wrapped := step.Emitting(inner, emitter, step.EmittingOptions[int, int]{})
	_, err := wrapped.Run(context.Background(), 1)

	require.NoError(t, err)
	assert.Empty(t, emitter.events)
}
