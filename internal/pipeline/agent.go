package pipeline

import (
	"context"

	"github.com/codeready-toolchain/acem/internal/runtime"
)

// Agent wraps Driver as the one runtime.Agent this repo implements
// end to end (spec.md §1), reporting the same metric names as
// original_source's agents/lead_generation/agent.py: discovered,
// enriched, with_email, ai_analyzed, items_processed (the dashboard's
// headline metric, mapped from "sent"), outreach_sent,
// duration_seconds, errors_count.
type Agent struct {
	Driver *Driver
}

func (a *Agent) Name() string { return "lead_generation" }

func (a *Agent) Run(ctx context.Context) (map[string]runtime.Scalar, error) {
	stats, err := a.Driver.Run(ctx)
	metrics := map[string]runtime.Scalar{
		"discovered":       stats.Discovered,
		"enriched":         stats.Enriched,
		"with_email":       stats.WithEmail,
		"ai_analyzed":      stats.AIAnalyzed,
		"items_processed":  stats.Sent,
		"outreach_sent":    stats.OutreachSent,
		"duration_seconds": stats.DurationSeconds,
		"errors_count":     len(stats.Errors),
	}
	return metrics, err
}
