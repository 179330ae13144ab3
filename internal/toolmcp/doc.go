// Package toolmcp connects stepflow's tool registry to external Model
// Context Protocol servers.
//
// A Client dials out to configured MCP servers (over stdio or SSE, using
// the official modelcontextprotocol/go-sdk) and lists the tools, resources,
// and prompts each one advertises. RegisterMCPTools wraps each advertised
// tool as a pkg/core.Tool and adds it to an internal/tool.Registry, so an
// agent session sees an MCP-hosted tool no differently from a built-in one:
// same Call signature, same middleware chain, same permission checks.
// MCPToolWrapper additionally exposes an Eino-compatible invocable via
// EinoTool, for session builders that plan tool calls through
// cloudwego/eino rather than calling core.Tool directly.
//
// Tool names collide across servers more often than within one, so Tools
// returns every tool prefixed with its owning server's sanitized name
// (sanitizeToolName(server) + "_" + sanitizeToolName(tool)); ExecuteTool
// reverses that prefix to route a call back to the right server.
package toolmcp
