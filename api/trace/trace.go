// Package trace is the API to observe the heuristic decisions taken while translating.
package trace

import (
	"fmt"

	"github.com/gx-org/pyrs/build/fmterr"
)

// Decision records a heuristic or a lowering rule that fired.
type Decision struct {
	// Span of the source construct.
	Span fmterr.Span
	// Function being translated. Empty at module level.
	Function string
	// Construct to which the rule has been applied, for example a variable name.
	Construct string
	// Rule is a short identifier of the rule (for example "numpy-name", "value-lift").
	Rule string
	// Detail is a human readable explanation.
	Detail string
}

// String representation of the decision.
func (d Decision) String() string {
	fn := d.Function
	if fn == "" {
		fn = "<module>"
	}
	s := fmt.Sprintf("%s: %s: %s[%s]", d.Span, fn, d.Rule, d.Construct)
	if d.Detail != "" {
		s += ": " + d.Detail
	}
	return s
}

// Callback is called every time the translator takes a decision
// that is not fully determined by the declared types.
type Callback interface {
	Trace(d Decision)
}

// Func adapts a function into a Callback.
type Func func(Decision)

// Trace calls the function.
func (f Func) Trace(d Decision) {
	f(d)
}

// Recorder is a Callback keeping all the decisions in memory.
type Recorder struct {
	Decisions []Decision
}

var _ Callback = (*Recorder)(nil)

// Trace records a decision.
func (r *Recorder) Trace(d Decision) {
	r.Decisions = append(r.Decisions, d)
}

// Rules returns the list of rules recorded, in order.
func (r *Recorder) Rules() []string {
	rules := make([]string, len(r.Decisions))
	for i, d := range r.Decisions {
		rules[i] = d.Rule
	}
	return rules
}
