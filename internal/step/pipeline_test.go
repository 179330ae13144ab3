package step_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stepflow/stepflow/internal/step"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario 1 (spec.md §8): a pipeline of trim -> uppercase turns "  hi  "
// into "HI".
func TestPipelineSequencesSteps(t *testing.T) {
	trim := step.Transform(func(s string) (string, error) {
		return strings.TrimSpace(s), nil
	})
	upper := step.Transform(func(s string) (string, error) {
		return strings.ToUpper(s), nil
	})

	pipeline := step.Then(trim, upper)

	out, err := pipeline.Run(context.Background(), "  hi  ")
	require.NoError(t, err)
	assert.Equal(t, "HI", out)
}

func TestPipelineVariadicSameType(t *testing.T) {
	addOne := step.Transform(func(n int) (int, error) { return n + 1, nil })
	double := step.Transform(func(n int) (int, error) { return n * 2, nil })

	pipeline := step.Pipeline(addOne, double, addOne)

	out, err := pipeline.Run(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 9, out) // ((3+1)*2)+1
}

func TestPipelineFailsFast(t *testing.T) {
	var ranSecond bool
	boom := step.Transform(func(int) (int, error) { return 0, assert.AnError })
	second := step.Transform(func(n int) (int, error) {
		ranSecond = true
		return n, nil
	})

	pipeline := step.Pipeline(boom, second)

	_, err := pipeline.Run(context.Background(), 1)
	require.Error(t, err)
	assert.False(t, ranSecond)
}

func TestPipelineEmptyIsIdentity(t *testing.T) {
	pipeline := step.Pipeline[int]()
	out, err := pipeline.Run(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 42, out)
}
