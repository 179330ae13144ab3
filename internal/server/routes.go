package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures spec.md §4.17's scoped route set: session
// create/list/get, message, abort, and the SSE event stream. Grounded on
// the teacher's own setupRoutes shape (one r.Route per resource), trimmed
// to this Transport's actual surface — everything else the teacher routed
// (project/file/find/config/provider/auth/lsp/mcp/formatter/command/
// instance/experimental/tui/client-tools/doc) served its desktop TUI
// client's editor-integration needs and has no SPEC_FULL.md component to
// attach to.
func (s *Server) setupRoutes() {
	r := s.router

	r.Route("/session", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Post("/", s.createSession)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Post("/message", s.sendMessage)
			r.Post("/abort", s.abortSession)
		})
	})

	r.Get("/event", s.allEvents)
}
