package guardrail_test

import (
	"context"
	"testing"

	"github.com/stepflow/stepflow/internal/ambient"
	"github.com/stepflow/stepflow/internal/guardrail"
	"github.com/stepflow/stepflow/internal/step"
	"github.com/stepflow/stepflow/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGroupsRulesByKind(t *testing.T) {
	config := guardrail.Build([]guardrail.Rule{
		{Allow: "Read"},
		{Deny: "Bash(rm -rf:*)"},
		{Final: "Bash(curl:*)"},
		{Override: "WebFetch(domain:github.com)"},
		{Sandbox: &core.SandboxConfiguration{NetworkPolicy: core.NetworkNone}},
	})

	assert.Equal(t, []string{"Read"}, config.Allow)
	assert.Equal(t, []string{"Bash(rm -rf:*)"}, config.Deny)
	assert.Equal(t, []string{"Bash(curl:*)"}, config.FinalDeny)
	assert.Equal(t, []string{"WebFetch(domain:github.com)"}, config.Overrides)
	require.NotNil(t, config.Sandbox)
	assert.Equal(t, core.NetworkNone, config.Sandbox.NetworkPolicy)
}

func TestGuardedScopesMergedConfigurationToInner(t *testing.T) {
	var seen core.GuardrailConfiguration
	inner := step.Func[struct{}, string](func(ctx context.Context, _ struct{}) (string, error) {
		seen = ambient.GuardrailConfigurationKey.Current(ctx)
		return "done", nil
	})

	guarded := guardrail.Guarded[struct{}, string](inner, []guardrail.Rule{
		{Allow: "Read"},
		{Final: "Bash(rm -rf:*)"},
	})

	out, err := guarded.Run(context.Background(), struct{}{})
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, []string{"Read"}, seen.Allow)
	assert.Equal(t, []string{"Bash(rm -rf:*)"}, seen.FinalDeny)
}

func TestGuardedDoesNotLeakScopeToCaller(t *testing.T) {
	inner := step.Func[struct{}, string](func(ctx context.Context, _ struct{}) (string, error) {
		return "done", nil
	})
	guarded := guardrail.Guarded[struct{}, string](inner, []guardrail.Rule{{Allow: "Read"}})

	ctx := context.Background()
	_, err := guarded.Run(ctx, struct{}{})
	require.NoError(t, err)

	outer := ambient.GuardrailConfigurationKey.Current(ctx)
	assert.Empty(t, outer.Allow)
}

func TestGuardedNestedInnerMergesOverOuter(t *testing.T) {
	var seen core.GuardrailConfiguration
	innermost := step.Func[struct{}, string](func(ctx context.Context, _ struct{}) (string, error) {
		seen = ambient.GuardrailConfigurationKey.Current(ctx)
		return "done", nil
	})

	// The innerGuarded scope is entered first, then outerGuarded's own
	// rules are merged with it as Merge's "outer" argument, so the
	// deeper (inner) rules end up first in the concatenated list.
	outerGuarded := guardrail.Guarded[struct{}, string](innermost, []guardrail.Rule{
		{Allow: "Bash"},
	})
	innerGuarded := guardrail.Guarded[struct{}, string](outerGuarded, []guardrail.Rule{
		{Allow: "Read"},
	})

	_, err := innerGuarded.Run(context.Background(), struct{}{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bash", "Read"}, seen.Allow)
}
