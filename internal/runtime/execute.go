package runtime

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Envelope is the metric envelope pushed to the collector after every
// run, success or failure (spec.md §4.C.4).
type Envelope struct {
	AgentName  string
	Metrics    map[string]Scalar
	StartedAt  time.Time
	FinishedAt time.Time
	Error      string // empty on success
}

// Publisher pushes a completed run's envelope to the collector.
// Implemented by internal/collector.Client.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// Execute runs agent's body end to end per the runtime contract:
//  1. require a non-empty name
//  2. record started_at
//  3. invoke the body; on panic or error, capture but re-raise to caller
//  4. always push an envelope, logging and swallowing publish failures
//
// The original error (if any) is returned to the caller unchanged so
// the scheduler can apply its retry policy.
func Execute(ctx context.Context, agent Agent, publisher Publisher) (map[string]Scalar, error) {
	name := agent.Name()
	if name == "" {
		return nil, errors.New("runtime: agent name must not be empty")
	}

	startedAt := time.Now().UTC()
	metrics, runErr := runBody(ctx, agent)
	finishedAt := time.Now().UTC()

	env := Envelope{
		AgentName:  name,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}
	if runErr != nil {
		env.Error = runErr.Error()
		env.Metrics = map[string]Scalar{}
	} else {
		env.Metrics = metrics
	}

	if publisher != nil {
		if pubErr := publisher.Publish(ctx, env); pubErr != nil {
			slog.Error("failed to publish metric envelope", "agent_name", name, "error", pubErr)
		}
	}

	return metrics, runErr
}

// runBody invokes agent.Run, converting a panic in the body into an
// error so Execute's always-publish guarantee holds even when the
// body misbehaves (mirrors BaseAgent.Execute's defensive handling of
// a nil/invalid controller result).
func runBody(ctx context.Context, agent Agent) (metrics map[string]Scalar, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errorsFromRecover(r)
		}
	}()
	return agent.Run(ctx)
}

func errorsFromRecover(r any) error {
	if e, ok := r.(error); ok {
		return e
	}
	return errors.New("runtime: agent panicked")
}
