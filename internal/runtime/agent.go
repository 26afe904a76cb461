// Package runtime implements the agent execution contract of
// spec.md §4.C: a named unit of work that produces a flat metric
// mapping, always reported to the collector regardless of outcome.
//
// Grounded on the teacher's pkg/agent/base_agent.go (Controller
// interface -> Agent here; errors.Is timeout/cancellation
// classification; defensive nil-result handling) and
// original_source/agents/base_agent.py's "always push an envelope"
// contract.
package runtime

import "context"

// Scalar is anything an agent may report as a metric value: a
// number, a string, or a bool (booleans are text per spec.md §9).
type Scalar = any

// Agent is a named unit of recurring work. Run produces a flat
// mapping of metric name to scalar value, or an error.
type Agent interface {
	Name() string
	Run(ctx context.Context) (map[string]Scalar, error)
}

// Constructor builds a fresh Agent instance. Registry entries store
// constructors, not instances, so every fire gets a clean agent.
type Constructor func() Agent
