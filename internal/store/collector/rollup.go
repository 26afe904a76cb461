package collector

import (
	"context"
	"fmt"
	"time"
)

// RollupDaily computes per-agent run counts and average duration for
// the given UTC day and upserts AgentDailySummary rows. Spec.md leaves
// this roll-up's owner unspecified ("written by a background roll-up,
// not specified here"); SPEC_FULL.md gives it this concrete minimal
// owner, invoked once a day by the scheduler's
// "_internal.daily_summary" agent.
func (s *Store) RollupDaily(ctx context.Context, day time.Time) error {
	day = day.UTC().Truncate(24 * time.Hour)
	next := day.Add(24 * time.Hour)

	rows, err := s.db.QueryContext(ctx, `
		SELECT agent_name,
		       COUNT(*) AS run_count,
		       COUNT(*) FILTER (WHERE status = 'success') AS success_count,
		       COUNT(*) FILTER (WHERE status = 'failed') AS failed_count,
		       COALESCE(AVG(EXTRACT(EPOCH FROM (finished_at - started_at))) FILTER (WHERE finished_at IS NOT NULL), 0) AS avg_duration_secs
		FROM agent_runs
		WHERE started_at >= $1 AND started_at < $2
		GROUP BY agent_name
	`, day, next)
	if err != nil {
		return fmt.Errorf("rollup query: %w", err)
	}
	defer rows.Close()

	type summary struct {
		agentName    string
		runCount     int64
		successCount int64
		failedCount  int64
		avgDuration  float64
	}
	var summaries []summary
	for rows.Next() {
		var sRow summary
		if err := rows.Scan(&sRow.agentName, &sRow.runCount, &sRow.successCount, &sRow.failedCount, &sRow.avgDuration); err != nil {
			return fmt.Errorf("scan rollup row: %w", err)
		}
		summaries = append(summaries, sRow)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, sRow := range summaries {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO agent_daily_summaries (agent_name, summary_date, run_count, success_count, failed_count, avg_duration_secs)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (agent_name, summary_date)
			DO UPDATE SET run_count = EXCLUDED.run_count,
			              success_count = EXCLUDED.success_count,
			              failed_count = EXCLUDED.failed_count,
			              avg_duration_secs = EXCLUDED.avg_duration_secs
		`, sRow.agentName, day, sRow.runCount, sRow.successCount, sRow.failedCount, sRow.avgDuration); err != nil {
			return fmt.Errorf("upsert daily summary for %s: %w", sRow.agentName, err)
		}
	}
	return nil
}

// DailySummary reads back one agent's summary for a given day, the
// reader half of the roll-up (GET /metrics/daily).
func (s *Store) DailySummary(ctx context.Context, agentName string, day time.Time) (*AgentDailySummary, error) {
	day = day.UTC().Truncate(24 * time.Hour)
	row := s.db.QueryRowContext(ctx, `
		SELECT agent_name, summary_date, run_count, success_count, failed_count, avg_duration_secs
		FROM agent_daily_summaries
		WHERE agent_name = $1 AND summary_date = $2
	`, agentName, day)

	var out AgentDailySummary
	if err := row.Scan(&out.AgentName, &out.SummaryDate, &out.RunCount, &out.SuccessCount, &out.FailedCount, &out.AvgDurationSecs); err != nil {
		return nil, err
	}
	return &out, nil
}
