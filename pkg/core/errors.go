// Package core holds the small set of value types shared across stepflow's
// internal packages: error kinds, transcript/response shapes, and events.
package core

import (
	"errors"
	"fmt"
	"time"
)

// Kind identifies the category of a stepflow error, independent of its Go
// type. Supervisory wrappers and callers branch on Kind rather than on
// concrete error types.
type Kind string

const (
	KindCancelled         Kind = "cancelled"
	KindTimeout           Kind = "timeout"
	KindBlocked           Kind = "blocked"
	KindConditionNotMet   Kind = "condition_not_met"
	KindNoSuccessfulResults Kind = "no_successful_results"
	KindAllStepsFailed    Kind = "all_steps_failed"
	KindNoResults         Kind = "no_results"
	KindPermissionDenied  Kind = "permission_denied"
	KindSandboxDenied     Kind = "sandbox_denied"
	KindSessionBusy       Kind = "session_busy"
	KindSessionNotFound   Kind = "session_not_found"
	KindSessionLoadFailed Kind = "session_load_failed"
	KindSessionSaveFailed Kind = "session_save_failed"
	KindInvalidConfig     Kind = "invalid_configuration"
	KindGenerationFailed  Kind = "generation_failed"
	KindDecodingFailed    Kind = "decoding_failed"
	KindInputClosed       Kind = "input_closed"
)

// Error is the single sum-type error value surfaced by the engine. Every
// Error carries a Kind plus a one-line human-readable Message, and may wrap
// further context (the offending permission rule, elapsed duration, field
// name) via the typed accessor fields below.
type Error struct {
	Kind    Kind
	Message string

	// Rule is set for KindPermissionDenied when the denial matched a rule.
	Rule string
	// Elapsed is set for KindTimeout.
	Elapsed time.Duration
	// Field is set for KindInvalidConfig.
	Field string
	// Errs holds the constituent errors for aggregate kinds
	// (all_steps_failed) or the last observed error for Race.
	Errs []error

	wrapped error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.wrapped }

// Is lets errors.Is match on Kind: errors.Is(err, &Error{Kind: KindTimeout}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == "" {
		return false
	}
	return e.Kind == t.Kind
}

// NewError builds a bare error of the given kind with a message.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an error of the given kind that wraps an underlying cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), wrapped: cause}
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error, or "" if not.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is a stepflow Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Timeout builds a KindTimeout error carrying the elapsed duration.
func Timeout(elapsed time.Duration) *Error {
	return &Error{Kind: KindTimeout, Message: fmt.Sprintf("timed out after %s", elapsed), Elapsed: elapsed}
}

// Blocked builds a KindBlocked error carrying a Gate's refusal reason.
func Blocked(reason string) *Error {
	return &Error{Kind: KindBlocked, Message: reason}
}

// Cancelled builds a KindCancelled error.
func Cancelled() *Error {
	return &Error{Kind: KindCancelled, Message: "cancelled"}
}

// AllStepsFailed aggregates the errors of every failed child of a Parallel.
func AllStepsFailed(errs []error) *Error {
	return &Error{Kind: KindAllStepsFailed, Message: fmt.Sprintf("all %d steps failed", len(errs)), Errs: errs}
}

// NoResults reports that a Parallel had no children to run.
func NoResults() *Error {
	return &Error{Kind: KindNoResults, Message: "no steps to run"}
}

// NoSuccessfulResults reports that a Race had no children to run.
func NoSuccessfulResults() *Error {
	return &Error{Kind: KindNoSuccessfulResults, Message: "no steps to run"}
}

// ConditionNotMet reports a bounded Loop exhausting its iterations.
func ConditionNotMet(n int) *Error {
	return &Error{Kind: KindConditionNotMet, Message: fmt.Sprintf("loop exhausted after %d iterations without meeting its condition", n)}
}

// InvalidConfiguration reports a validation failure naming the offending field.
func InvalidConfiguration(field, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidConfig, Field: field, Message: fmt.Sprintf(format, args...)}
}

// PermissionDenied reports a middleware refusal, optionally naming the rule matched.
func PermissionDenied(reason, rule string) *Error {
	return &Error{Kind: KindPermissionDenied, Message: reason, Rule: rule}
}

// SandboxDenied reports SandboxMiddleware refusing a command-executor
// invocation under the effective SandboxConfiguration (spec.md §4.12.2,
// §4.12.4's distinct "sandbox refusal" terminal state).
func SandboxDenied(reason string) *Error {
	return &Error{Kind: KindSandboxDenied, Message: reason}
}
