package toolmcp

import (
	"context"
	"encoding/json"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/stepflow/stepflow/internal/tool"
	"github.com/stepflow/stepflow/pkg/core"
)

// MCPToolWrapper wraps an MCP tool to implement core.Tool, letting MCP
// tools register and execute through the same pkg/core.Tool/ToolContext
// path as any other step- or agent-invoked tool.
type MCPToolWrapper struct {
	mcpTool Tool    // already name-prefixed by client.Tools()
	client  *Client
}

// NewMCPToolWrapper creates a wrapper for an MCP tool.
func NewMCPToolWrapper(mcpTool Tool, client *Client) *MCPToolWrapper {
	return &MCPToolWrapper{
		mcpTool: mcpTool,
		client:  client,
	}
}

func (w *MCPToolWrapper) Name() string           { return w.mcpTool.Name }
func (w *MCPToolWrapper) Description() string     { return w.mcpTool.Description }
func (w *MCPToolWrapper) Schema() json.RawMessage { return w.mcpTool.InputSchema }

// Call executes the tool via the MCP client.
func (w *MCPToolWrapper) Call(ctx context.Context, toolCtx *core.ToolContext, arguments json.RawMessage) (*core.ToolResult, error) {
	output, err := w.client.ExecuteTool(ctx, w.mcpTool.Name, arguments)
	if err != nil {
		return nil, core.Wrap(core.KindGenerationFailed, err, "mcp tool %q failed", w.mcpTool.Name)
	}

	metadata := map[string]any{
		"type": "mcp",
		"tool": w.mcpTool.Name,
	}
	if toolCtx != nil && toolCtx.Extra != nil {
		toolCtx.Extra[w.mcpTool.Name] = metadata
	}

	return &core.ToolResult{
		Title:    w.mcpTool.Name,
		Output:   output,
		Metadata: metadata,
	}, nil
}

// EinoTool returns an Eino-compatible invokable wrapping this MCP tool, so
// subagent sessions built on cloudwego/eino can call MCP tools the same way
// they call any other planner-side tool.
func (w *MCPToolWrapper) EinoTool() einotool.InvokableTool {
	return &mcpEinoWrapper{wrapper: w}
}

type mcpEinoWrapper struct {
	wrapper *MCPToolWrapper
}

func (e *mcpEinoWrapper) Info(ctx context.Context) (*schema.ToolInfo, error) {
	params := parseInputSchemaToParams(e.wrapper.mcpTool.InputSchema)
	return &schema.ToolInfo{
		Name:        e.wrapper.Name(),
		Desc:        e.wrapper.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}, nil
}

func (e *mcpEinoWrapper) InvokableRun(ctx context.Context, argsJSON string, opts ...einotool.Option) (string, error) {
	result, err := e.wrapper.Call(ctx, nil, json.RawMessage(argsJSON))
	if err != nil {
		return "", err
	}
	return result.Output, nil
}

// parseInputSchemaToParams converts a JSON Schema object into Eino's
// ParameterInfo map, covering the subset of JSON Schema that MCP tool
// schemas actually use (flat property maps with primitive/array/object
// types and a top-level "required" list).
func parseInputSchemaToParams(schemaJSON json.RawMessage) map[string]*schema.ParameterInfo {
	var jsonSchema struct {
		Properties map[string]struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		} `json:"properties"`
		Required []string `json:"required"`
	}

	if err := json.Unmarshal(schemaJSON, &jsonSchema); err != nil {
		return nil
	}

	requiredSet := make(map[string]bool)
	for _, r := range jsonSchema.Required {
		requiredSet[r] = true
	}

	params := make(map[string]*schema.ParameterInfo)
	for name, prop := range jsonSchema.Properties {
		paramType := schema.String
		switch prop.Type {
		case "integer":
			paramType = schema.Integer
		case "number":
			paramType = schema.Number
		case "boolean":
			paramType = schema.Boolean
		case "array":
			paramType = schema.Array
		case "object":
			paramType = schema.Object
		}

		params[name] = &schema.ParameterInfo{
			Type:     paramType,
			Desc:     prop.Description,
			Required: requiredSet[name],
		}
	}

	return params
}

// RegisterMCPTools fetches all tools from every connected server on client
// and registers a wrapper for each into registry.
func RegisterMCPTools(client *Client, registry *tool.Registry) {
	if client == nil || registry == nil {
		return
	}

	for _, mcpTool := range client.Tools() {
		wrapper := NewMCPToolWrapper(mcpTool, client)
		registry.Register(wrapper)
	}
}
