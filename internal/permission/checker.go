package permission

import (
	"sync"

	"github.com/stepflow/stepflow/pkg/core"
)

// HandlerResponse is a permission handler's verdict for an "ask" decision
// (spec.md §4.12.1 step 7).
type HandlerResponse string

const (
	ResponseAllowOnce    HandlerResponse = "allow_once"
	ResponseAlwaysAllow  HandlerResponse = "always_allow"
	ResponseDeny         HandlerResponse = "deny"
	ResponseDenyAndBlock HandlerResponse = "deny_and_block"
)

// Request carries what a Handler needs to render a permission prompt.
type Request struct {
	Invocation Invocation
	MemoryKey  string
}

// Handler renders a permission prompt (CLI, dialog, or any other UI) and
// returns the user's decision. The middleware never depends on which UI a
// Handler uses (spec.md's REDESIGN FLAGS: "model as an abstract interface
// returning one of four decisions"; this replaces the teacher's
// request/response-channel pair tied to an async CLI prompt).
type Handler interface {
	Ask(req Request) (HandlerResponse, error)
}

// HandlerFunc adapts a plain function to Handler, the same way
// http.HandlerFunc adapts a function to http.Handler.
type HandlerFunc func(req Request) (HandlerResponse, error)

// Ask implements Handler.
func (f HandlerFunc) Ask(req Request) (HandlerResponse, error) {
	return f(req)
}

// SessionMemory is two string sets, always_allowed and blocked, keyed by
// memory_key (spec.md §3, §4.12.1). Grounded on the teacher's
// Checker.approved/patterns maps, collapsed from per-session maps into one
// set pair: SessionMemory here lives with one ToolPipeline instance
// (spec.md §3's lifecycle note) rather than spanning every session in a
// shared process-wide checker.
type SessionMemory struct {
	mu            sync.RWMutex
	alwaysAllowed map[string]bool
	blocked       map[string]bool
}

// NewSessionMemory creates an empty SessionMemory.
func NewSessionMemory() *SessionMemory {
	return &SessionMemory{
		alwaysAllowed: make(map[string]bool),
		blocked:       make(map[string]bool),
	}
}

func (m *SessionMemory) isAlwaysAllowed(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.alwaysAllowed[key]
}

func (m *SessionMemory) isBlocked(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.blocked[key]
}

func (m *SessionMemory) allow(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alwaysAllowed[key] = true
}

func (m *SessionMemory) block(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocked[key] = true
}

// Clear drops all memory, as when a session resets.
func (m *SessionMemory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alwaysAllowed = make(map[string]bool)
	m.blocked = make(map[string]bool)
}

// Checker evaluates a PermissionConfiguration against invocations,
// maintaining SessionMemory and invoking a Handler for "ask" decisions.
// Grounded on the teacher's internal/permission.Checker, restructured
// around spec.md §4.12.1's rule-matching algorithm (ordered allow/deny
// pattern lists, first-match-wins) in place of the teacher's fixed-enum
// approve/reject map.
type Checker struct {
	config  core.PermissionConfiguration
	memory  *SessionMemory
	handler Handler
}

// NewChecker creates a Checker over config. handler may be nil; if the
// configuration's default_action is "ask" and no handler is configured,
// Check fails with permission_denied (spec.md §4.12.1 step 8).
func NewChecker(config core.PermissionConfiguration, handler Handler) *Checker {
	return &Checker{
		config:  config,
		memory:  NewSessionMemory(),
		handler: handler,
	}
}

// Check runs spec.md §4.12.1's full decision algorithm for inv against the
// Checker's base configuration alone (no ambient guardrail overlay).
func (c *Checker) Check(inv Invocation) error {
	return c.evaluate(inv, core.GuardrailConfiguration{PermissionConfiguration: c.config})
}

// CheckWithOverlay runs the same algorithm after first layering overlay (the
// ambient GuardrailConfiguration, deeper/more specific) on top of the
// Checker's base configuration, per spec.md §4.12.1's "Guardrail layering"
// note: final_deny rules always apply and cannot be overridden; override
// rules exempt a context from regular deny; overlay wins scalar settings and
// its rule lists are concatenated first.
func (c *Checker) CheckWithOverlay(inv Invocation, overlay core.GuardrailConfiguration) error {
	base := core.GuardrailConfiguration{PermissionConfiguration: c.config}
	return c.evaluate(inv, overlay.Merge(base))
}

func (c *Checker) evaluate(inv Invocation, effective core.GuardrailConfiguration) error {
	key := MemoryKey(inv)

	for _, pattern := range effective.FinalDeny {
		if ParseRule(pattern).Matches(inv) {
			return core.PermissionDenied("Matched final deny rule", pattern)
		}
	}

	if effective.EnableSessionMemory {
		if c.memory.isAlwaysAllowed(key) {
			return nil
		}
		if c.memory.isBlocked(key) {
			return core.PermissionDenied("Pattern blocked earlier in session", key)
		}
	}

	overridden := false
	for _, pattern := range effective.Overrides {
		if ParseRule(pattern).Matches(inv) {
			overridden = true
			break
		}
	}

	for _, pattern := range effective.Allow {
		if ParseRule(pattern).Matches(inv) {
			return nil
		}
	}

	if !overridden {
		for _, pattern := range effective.Deny {
			if ParseRule(pattern).Matches(inv) {
				return core.PermissionDenied("Matched deny rule", pattern)
			}
		}
	}

	switch effective.DefaultAction {
	case core.DecisionAllow:
		return nil
	case core.DecisionDeny:
		return core.PermissionDenied("Denied by default action", "")
	case core.DecisionAsk:
		return c.ask(inv, key)
	default:
		return core.PermissionDenied("Denied by default action", "")
	}
}

func (c *Checker) ask(inv Invocation, key string) error {
	if c.handler == nil {
		return core.PermissionDenied("No permission handler configured and default is 'ask'", "")
	}

	resp, err := c.handler.Ask(Request{Invocation: inv, MemoryKey: key})
	if err != nil {
		return err
	}

	switch resp {
	case ResponseAllowOnce:
		return nil
	case ResponseAlwaysAllow:
		if c.config.EnableSessionMemory {
			c.memory.allow(key)
		}
		return nil
	case ResponseDeny:
		return core.PermissionDenied("Denied by user", "")
	case ResponseDenyAndBlock:
		if c.config.EnableSessionMemory {
			c.memory.block(key)
		}
		return core.PermissionDenied("Denied and blocked by user", "")
	default:
		return core.PermissionDenied("Unrecognized handler response", "")
	}
}
