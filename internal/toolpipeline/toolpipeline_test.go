package toolpipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stepflow/stepflow/internal/ambient"
	"github.com/stepflow/stepflow/internal/permission"
	"github.com/stepflow/stepflow/internal/toolpipeline"
	"github.com/stepflow/stepflow/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTool struct {
	name   string
	result *core.ToolResult
	err    error
	delay  time.Duration
	calls  int
}

func (t *fakeTool) Name() string              { return t.name }
func (t *fakeTool) Description() string       { return "fake" }
func (t *fakeTool) Schema() json.RawMessage   { return json.RawMessage(`{}`) }
func (t *fakeTool) Call(ctx context.Context, toolCtx *core.ToolContext, arguments json.RawMessage) (*core.ToolResult, error) {
	t.calls++
	if t.delay > 0 {
		select {
		case <-time.After(t.delay):
		case <-ctx.Done():
			return nil, core.Cancelled()
		}
	}
	if t.err != nil {
		return nil, t.err
	}
	return t.result, nil
}

type orderingMiddleware struct {
	name string
	log  *[]string
}

func (m *orderingMiddleware) Handle(ctx context.Context, toolCtx *core.ToolContext, next core.ToolHandler) (*core.ToolResult, error) {
	*m.log = append(*m.log, m.name+":before")
	result, err := next(ctx, toolCtx)
	*m.log = append(*m.log, m.name+":after")
	return result, err
}

func TestPipelineInvokesMiddlewareOutermostFirst(t *testing.T) {
	var log []string
	tool := &fakeTool{name: "Echo", result: &core.ToolResult{Output: "ok"}}
	p := toolpipeline.New(tool,
		&orderingMiddleware{name: "outer", log: &log},
		&orderingMiddleware{name: "inner", log: &log},
	)

	result, err := p.Handle(context.Background(), &core.ToolContext{ToolName: "Echo"})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Output)
	assert.Equal(t, []string{"outer:before", "inner:before", "inner:after", "outer:after"}, log)
}

func TestPipelineWithNoMiddlewareCallsToolDirectly(t *testing.T) {
	tool := &fakeTool{name: "Echo", result: &core.ToolResult{Output: "ok"}}
	p := toolpipeline.New(tool)

	result, err := p.Handle(context.Background(), &core.ToolContext{ToolName: "Echo"})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Output)
}

func TestPermissionMiddlewareAllowsAllowedTool(t *testing.T) {
	config := core.PermissionConfiguration{Allow: []string{"Read"}, DefaultAction: core.DecisionDeny}
	checker := permission.NewChecker(config, nil)
	tool := &fakeTool{name: "Read", result: &core.ToolResult{Output: "contents"}}
	p := toolpipeline.New(tool, toolpipeline.NewPermissionMiddleware(checker))

	result, err := p.Handle(context.Background(), &core.ToolContext{ToolName: "Read", ArgumentsJSON: json.RawMessage(`{"file_path":"/tmp/x"}`)})
	require.NoError(t, err)
	assert.Equal(t, "contents", result.Output)
}

func TestPermissionMiddlewareDeniesAndNeverCallsTool(t *testing.T) {
	config := core.PermissionConfiguration{Deny: []string{"Bash(rm -rf:*)"}, DefaultAction: core.DecisionAllow}
	checker := permission.NewChecker(config, nil)
	tool := &fakeTool{name: "Bash", result: &core.ToolResult{Output: "should not run"}}
	p := toolpipeline.New(tool, toolpipeline.NewPermissionMiddleware(checker))

	_, err := p.Handle(context.Background(), &core.ToolContext{ToolName: "Bash", ArgumentsJSON: json.RawMessage(`{"command":"rm -rf /"}`)})
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindPermissionDenied))
	assert.Equal(t, 0, tool.calls)
}

func TestPermissionMiddlewareHonorsAmbientGuardrailFinalDeny(t *testing.T) {
	config := core.PermissionConfiguration{Allow: []string{"Bash"}, DefaultAction: core.DecisionAllow}
	checker := permission.NewChecker(config, nil)
	tool := &fakeTool{name: "Bash", result: &core.ToolResult{Output: "should not run"}}
	p := toolpipeline.New(tool, toolpipeline.NewPermissionMiddleware(checker))

	overlay := core.GuardrailConfiguration{
		PermissionConfiguration: core.PermissionConfiguration{FinalDeny: []string{"Bash"}},
	}
	ctx := ambient.GuardrailConfigurationKey.With(context.Background(), overlay)

	_, err := p.Handle(ctx, &core.ToolContext{ToolName: "Bash", ArgumentsJSON: json.RawMessage(`{"command":"echo hi"}`)})
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindPermissionDenied))
	assert.Equal(t, 0, tool.calls)
}

func TestSandboxMiddlewarePassesThroughNonCommandTools(t *testing.T) {
	tool := &fakeTool{name: "Read", result: &core.ToolResult{Output: "ok"}}
	mw := toolpipeline.NewSandboxMiddleware(core.SandboxConfiguration{NetworkPolicy: core.NetworkNone}, "Bash")
	p := toolpipeline.New(tool, mw)

	_, err := p.Handle(context.Background(), &core.ToolContext{ToolName: "Read"})
	require.NoError(t, err)
}

func TestSandboxMiddlewareDeniesNetworkToolUnderNetworkNone(t *testing.T) {
	tool := &fakeTool{name: "Bash", result: &core.ToolResult{Output: "should not run"}}
	mw := toolpipeline.NewSandboxMiddleware(core.SandboxConfiguration{NetworkPolicy: core.NetworkNone}, "Bash")
	p := toolpipeline.New(tool, mw)

	_, err := p.Handle(context.Background(), &core.ToolContext{ToolName: "Bash", ArgumentsJSON: json.RawMessage(`{"command":"curl https://example.com"}`)})
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindSandboxDenied))
	assert.Equal(t, 0, tool.calls)
}

func TestSandboxMiddlewareAllowsPlainCommandUnderNetworkNone(t *testing.T) {
	tool := &fakeTool{name: "Bash", result: &core.ToolResult{Output: "ok"}}
	mw := toolpipeline.NewSandboxMiddleware(core.SandboxConfiguration{NetworkPolicy: core.NetworkNone}, "Bash")
	p := toolpipeline.New(tool, mw)

	_, err := p.Handle(context.Background(), &core.ToolContext{ToolName: "Bash", ArgumentsJSON: json.RawMessage(`{"command":"ls -la"}`)})
	require.NoError(t, err)
}

func TestSandboxMiddlewareDeniesMutationUnderFileReadOnly(t *testing.T) {
	tool := &fakeTool{name: "Bash", result: &core.ToolResult{Output: "should not run"}}
	mw := toolpipeline.NewSandboxMiddleware(core.SandboxConfiguration{FilePolicy: core.FileReadOnly, NetworkPolicy: core.NetworkFull}, "Bash")
	p := toolpipeline.New(tool, mw)

	_, err := p.Handle(context.Background(), &core.ToolContext{ToolName: "Bash", ArgumentsJSON: json.RawMessage(`{"command":"rm file.txt"}`)})
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindSandboxDenied))
}

func TestSandboxMiddlewareUsesAmbientGuardrailOverride(t *testing.T) {
	tool := &fakeTool{name: "Bash", result: &core.ToolResult{Output: "ok"}}
	mw := toolpipeline.NewSandboxMiddleware(core.SandboxConfiguration{NetworkPolicy: core.NetworkFull}, "Bash")
	p := toolpipeline.New(tool, mw)

	overlay := core.GuardrailConfiguration{Sandbox: &core.SandboxConfiguration{NetworkPolicy: core.NetworkNone}}
	ctx := ambient.GuardrailConfigurationKey.With(context.Background(), overlay)

	_, err := p.Handle(ctx, &core.ToolContext{ToolName: "Bash", ArgumentsJSON: json.RawMessage(`{"command":"curl https://example.com"}`)})
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindSandboxDenied))
}

func TestRetryMiddlewareRetriesUntilSuccess(t *testing.T) {
	tool := &fakeTool{name: "Flaky"}
	attempt := 0
	handler := core.ToolHandler(func(ctx context.Context, toolCtx *core.ToolContext) (*core.ToolResult, error) {
		attempt++
		if attempt < 3 {
			return nil, errors.New("transient")
		}
		return &core.ToolResult{Output: "ok"}, nil
	})

	mw := toolpipeline.NewRetryMiddleware(toolpipeline.BackoffConfig{
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxElapsedTime:  time.Second,
		MaxRetries:      5,
	})

	result, err := mw.Handle(context.Background(), &core.ToolContext{ToolName: tool.name}, handler)
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Output)
	assert.Equal(t, 3, attempt)
}

func TestRetryMiddlewareSurfacesLastErrorAfterExhaustion(t *testing.T) {
	handler := core.ToolHandler(func(ctx context.Context, toolCtx *core.ToolContext) (*core.ToolResult, error) {
		return nil, errors.New("always fails")
	})

	mw := toolpipeline.NewRetryMiddleware(toolpipeline.BackoffConfig{
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		MaxElapsedTime:  time.Second,
		MaxRetries:      2,
	})

	_, err := mw.Handle(context.Background(), &core.ToolContext{ToolName: "X"}, handler)
	require.Error(t, err)
	assert.Equal(t, "always fails", err.Error())
}

func TestTimeoutMiddlewareFailsOnElapse(t *testing.T) {
	handler := core.ToolHandler(func(ctx context.Context, toolCtx *core.ToolContext) (*core.ToolResult, error) {
		select {
		case <-time.After(50 * time.Millisecond):
			return &core.ToolResult{Output: "too slow"}, nil
		case <-ctx.Done():
			return nil, core.Cancelled()
		}
	})

	mw := toolpipeline.NewTimeoutMiddleware(5 * time.Millisecond)
	_, err := mw.Handle(context.Background(), &core.ToolContext{ToolName: "Slow"}, handler)
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindTimeout))
}

func TestTimeoutMiddlewarePassesThroughFastCall(t *testing.T) {
	handler := core.ToolHandler(func(ctx context.Context, toolCtx *core.ToolContext) (*core.ToolResult, error) {
		return &core.ToolResult{Output: "fast"}, nil
	})

	mw := toolpipeline.NewTimeoutMiddleware(50 * time.Millisecond)
	result, err := mw.Handle(context.Background(), &core.ToolContext{ToolName: "Fast"}, handler)
	require.NoError(t, err)
	assert.Equal(t, "fast", result.Output)
}

func TestLoggingMiddlewarePassesThroughResultAndError(t *testing.T) {
	mw := toolpipeline.DefaultLoggingMiddleware()

	ok := core.ToolHandler(func(ctx context.Context, toolCtx *core.ToolContext) (*core.ToolResult, error) {
		return &core.ToolResult{Output: "ok"}, nil
	})
	result, err := mw.Handle(context.Background(), &core.ToolContext{ToolName: "Echo"}, ok)
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Output)

	failing := core.ToolHandler(func(ctx context.Context, toolCtx *core.ToolContext) (*core.ToolResult, error) {
		return nil, errors.New("boom")
	})
	_, err = mw.Handle(context.Background(), &core.ToolContext{ToolName: "Echo"}, failing)
	require.Error(t, err)
}
