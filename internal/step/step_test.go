package step_test

import (
	"context"
	"testing"

	"github.com/stepflow/stepflow/internal/step"
	"github.com/stepflow/stepflow/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformAppliesFunction(t *testing.T) {
	s := step.Transform(func(n int) (int, error) { return n * n, nil })
	out, err := s.Run(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 16, out)
}

func TestEmptyIsIdentity(t *testing.T) {
	s := step.Empty[string]()
	out, err := s.Run(context.Background(), "unchanged")
	require.NoError(t, err)
	assert.Equal(t, "unchanged", out)
}

func TestGatePassesValue(t *testing.T) {
	s := step.Gate(func(n int) step.GateResult[string] {
		if n > 0 {
			return step.Pass("positive")
		}
		return step.Block("not positive")
	})

	out, err := s.Run(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "positive", out)
}

func TestGateBlocksWithReason(t *testing.T) {
	s := step.Gate(func(n int) step.GateResult[string] {
		return step.Block("always blocked")
	})

	_, err := s.Run(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindBlocked))
}

func TestAnyStepErasesTypes(t *testing.T) {
	inner := step.Transform(func(n int) (int, error) { return n + 1, nil })
	erased := step.Erase(inner)

	out, err := erased.Run(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 11, out)
}

func TestMapPreservesOrder(t *testing.T) {
	double := func(i int, elem int) step.AnyStep[int, int] {
		return step.Erase(step.Transform(func(n int) (int, error) { return n * 2, nil }))
	}

	m := step.Map(double)
	out, err := m.Run(context.Background(), []int{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 6}, out)
}

func TestMapFailsFast(t *testing.T) {
	calls := 0
	build := func(i int, elem int) step.AnyStep[int, int] {
		return step.Erase(step.Transform(func(n int) (int, error) {
			calls++
			if n == 2 {
				return 0, assert.AnError
			}
			return n, nil
		}))
	}

	m := step.Map(build)
	_, err := m.Run(context.Background(), []int{1, 2, 3})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestReduceFoldsSequentially(t *testing.T) {
	sum := func(acc int, elem int) step.Step[int, int] {
		return step.Transform(func(n int) (int, error) { return acc + n, nil })
	}

	r := step.Reduce(0, sum)
	out, err := r.Run(context.Background(), []int{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 10, out)
}
