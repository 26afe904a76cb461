package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// LogPipelineRun is db_manager.py's log_pipeline_run: records one
// end-to-end run with its stage counts, errors, and duration.
func (s *Store) LogPipelineRun(ctx context.Context, stats PipelineRunStats) error {
	var errorsJSON sql.NullString
	if len(stats.Errors) > 0 {
		raw, err := json.Marshal(stats.Errors)
		if err != nil {
			return err
		}
		errorsJSON = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := s.exec(ctx, `
		INSERT INTO pipeline_runs
		(run_date, leads_discovered, leads_enriched, leads_with_email,
		 leads_ai_analyzed, leads_sent, outreach_sent, errors, duration_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		time.Now().UTC().Format("2006-01-02 15:04:05"),
		stats.Discovered, stats.Enriched, stats.WithEmail,
		stats.AIAnalyzed, stats.Sent, stats.OutreachSent,
		errorsJSON, stats.DurationSeconds,
	)
	return err
}

// PipelineRunsSince returns runs with run_date >= updatedAfter,
// ascending, for the facade (tools/server.py's _get_pipeline_runs).
func (s *Store) PipelineRunsSince(ctx context.Context, updatedAfter time.Time) ([]PipelineRun, error) {
	rows, err := s.query(ctx, `
		SELECT id, run_date, leads_discovered, leads_enriched, leads_with_email,
		       leads_ai_analyzed, leads_sent, outreach_sent, errors, duration_seconds
		FROM pipeline_runs
		WHERE run_date >= ?
		ORDER BY run_date ASC
	`, formatQueryTime(updatedAfter))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PipelineRun
	for rows.Next() {
		var r PipelineRun
		var runDate string
		var errorsRaw sql.NullString
		if err := rows.Scan(&r.ID, &runDate, &r.LeadsDiscovered, &r.LeadsEnriched, &r.LeadsWithEmail,
			&r.LeadsAIAnalyzed, &r.LeadsSent, &r.OutreachSent, &errorsRaw, &r.DurationSeconds); err != nil {
			return nil, err
		}
		if t, err := parseStoredTime(runDate); err == nil {
			r.RunDate = t
		}
		r.Errors = parseErrorsColumn(errorsRaw)
		out = append(out, r)
	}
	return out, rows.Err()
}

func formatQueryTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

// parseErrorsColumn handles the errors column holding either a
// JSON-encoded list or (defensively) a plain string, mirroring
// server.py's _parse_errors tolerance.
func parseErrorsColumn(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw.String), &list); err == nil {
		return list
	}
	return []string{raw.String}
}
