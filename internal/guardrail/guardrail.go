// Package guardrail implements GuardedStep, which wraps a Step so its
// execution (and that of everything it calls) runs under a merged
// GuardrailConfiguration visible to tool middleware via the ambient scope
// (spec.md §4.13).
//
// The teacher has no declarative guardrail layer of its own (opencode's
// permission config is fixed per-agent, not layered per-Step), so this is
// grounded on the teacher's `internal/session/agent.go`, which is the
// closest thing it has: per-agent permission overrides merged against a
// base configuration before a turn runs.
package guardrail

import (
	"context"

	"github.com/stepflow/stepflow/internal/ambient"
	"github.com/stepflow/stepflow/internal/step"
	"github.com/stepflow/stepflow/pkg/core"
)

// Rule is a single declarative guardrail rule: an Allow/Deny/final-Deny/
// Override pattern, or a Sandbox override (spec.md §4.13's "declarative
// set of rules").
type Rule struct {
	Allow   string
	Deny    string
	Final   string // a Deny rule that cannot be overridden
	Override string
	Sandbox *core.SandboxConfiguration
}

// Build assembles the GuardrailConfiguration these rules contribute,
// ready to be merged with the ambient guardrail.
func Build(rules []Rule) core.GuardrailConfiguration {
	var config core.GuardrailConfiguration
	for _, r := range rules {
		if r.Allow != "" {
			config.Allow = append(config.Allow, r.Allow)
		}
		if r.Deny != "" {
			config.Deny = append(config.Deny, r.Deny)
		}
		if r.Final != "" {
			config.FinalDeny = append(config.FinalDeny, r.Final)
		}
		if r.Override != "" {
			config.Overrides = append(config.Overrides, r.Override)
		}
		if r.Sandbox != nil {
			config.Sandbox = r.Sandbox
		}
	}
	return config
}

// Guarded wraps inner so that, at runtime, it (i) builds a
// GuardrailConfiguration from rules, (ii) merges it with the currently
// ambient guardrail (inner overrides outer), (iii) runs inner inside a
// with_value(GuardrailKey, merged, ...) scope (spec.md §4.13).
func Guarded[I, O any](inner step.Step[I, O], rules []Rule) step.Step[I, O] {
	own := Build(rules)
	return step.Func[I, O](func(ctx context.Context, input I) (O, error) {
		outer := ambient.GuardrailConfigurationKey.Current(ctx)
		merged := own.Merge(outer)

		type result struct {
			out O
			err error
		}
		r := ambient.Scope(ctx, ambient.GuardrailConfigurationKey, merged, func(ctx context.Context) result {
			out, err := inner.Run(ctx, input)
			return result{out: out, err: err}
		})
		return r.out, r.err
	})
}
