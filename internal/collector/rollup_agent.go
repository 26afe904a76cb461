package collector

import (
	"context"
	"time"

	"github.com/codeready-toolchain/acem/internal/runtime"
	storecollector "github.com/codeready-toolchain/acem/internal/store/collector"
)

// RollupAgent is the "_internal.daily_summary" schedule entry's body:
// it computes yesterday's AgentDailySummary rows, giving that table a
// concrete writer (spec.md §3 leaves the roll-up owner unspecified;
// see DESIGN.md's Open Question resolution).
type RollupAgent struct {
	Store *storecollector.Store
}

func (a *RollupAgent) Name() string { return "_internal.daily_summary" }

func (a *RollupAgent) Run(ctx context.Context) (map[string]runtime.Scalar, error) {
	day := time.Now().UTC().AddDate(0, 0, -1)
	if err := a.Store.RollupDaily(ctx, day); err != nil {
		return nil, err
	}
	return map[string]runtime.Scalar{"rolled_up_date": day.Format("2006-01-02")}, nil
}
