// Package server implements the Transport interface (spec.md §4.17) as a
// chi-routed HTTP/SSE server: session create/list/get, a message endpoint
// that drives the same bounded tool-calling loop internal/headless.Runner
// drives from the CLI, an abort endpoint, and an SSE event stream.
//
// # API Endpoints
//
//   - POST   /session            create a session
//   - GET    /session            list session IDs
//   - GET    /session/{id}       fetch a session snapshot
//   - POST   /session/{id}/message  submit a prompt, run to completion
//   - POST   /session/{id}/abort    cancel an in-flight message
//   - GET    /event              SSE stream of every session's events
//
// This is a deliberately small surface compared to the teacher's own
// server package, which additionally served a desktop TUI client's
// editor-integration needs (file browsing, LSP, formatters, shell
// commands, client-registered tools, OAuth). None of that realizes the
// Transport interface this package exists to provide, so none of it is
// carried forward here.
package server
