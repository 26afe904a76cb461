package collector

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// MetricValue is the tagged-sum representation of an ingested metric
// value (spec.md §9): either a Number or Text. Numeric ingest inputs
// (integer or floating, excluding bool) populate Number; everything
// else, including bool, populates Text.
type MetricValue struct {
	Number    float64
	Text      string
	IsNumber  bool
	isPresent bool
}

// NewMetricValue classifies a raw scalar from a decoded JSON payload.
func NewMetricValue(raw any) MetricValue {
	switch v := raw.(type) {
	case bool:
		// Agents originate from Python; preserve str(bool)'s
		// capitalization ("True"/"False") rather than Go's lowercase
		// %v, since downstream consumers compare against that form
		// (spec.md §8 scenario 1).
		text := "False"
		if v {
			text = "True"
		}
		return MetricValue{Text: text, isPresent: true}
	case float64:
		return MetricValue{Number: v, IsNumber: true, isPresent: true}
	case int:
		return MetricValue{Number: float64(v), IsNumber: true, isPresent: true}
	case int64:
		return MetricValue{Number: float64(v), IsNumber: true, isPresent: true}
	case string:
		return MetricValue{Text: v, isPresent: true}
	default:
		return MetricValue{Text: fmt.Sprintf("%v", v), isPresent: true}
	}
}

// IngestInput is the decoded request body for POST /metrics.
type IngestInput struct {
	AgentName  string
	Metrics    map[string]any
	StartedAt  time.Time
	FinishedAt time.Time
	Error      string // empty means success
}

// IngestResult is returned to the caller after a successful ingest.
type IngestResult struct {
	RunID     int64
	AgentName string
	Status    string
}

// Ingest creates one AgentRun and one AgentMetric per metrics entry,
// all inside a single atomic transaction (spec.md §4.B Ingest).
func (s *Store) Ingest(ctx context.Context, in IngestInput) (IngestResult, error) {
	status := StatusSuccess
	var errMsg sql.NullString
	if in.Error != "" {
		status = StatusFailed
		errMsg = sql.NullString{String: in.Error, Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return IngestResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var runID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO agent_runs (agent_name, started_at, finished_at, status, error_message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, in.AgentName, in.StartedAt, in.FinishedAt, status, errMsg).Scan(&runID)
	if err != nil {
		return IngestResult{}, fmt.Errorf("insert agent_run: %w", err)
	}

	for name, raw := range in.Metrics {
		mv := NewMetricValue(raw)
		var value sql.NullFloat64
		var text sql.NullString
		if mv.IsNumber {
			value = sql.NullFloat64{Float64: mv.Number, Valid: true}
		} else {
			text = sql.NullString{String: mv.Text, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO agent_metrics (run_id, agent_name, metric_name, metric_value, metric_text)
			VALUES ($1, $2, $3, $4, $5)
		`, runID, in.AgentName, name, value, text); err != nil {
			return IngestResult{}, fmt.Errorf("insert agent_metric %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return IngestResult{}, fmt.Errorf("commit: %w", err)
	}

	return IngestResult{RunID: runID, AgentName: in.AgentName, Status: status}, nil
}

// RunSummary is one queried AgentRun with its metrics flattened back
// into a mapping (spec.md §4.B Query). json tags match
// collector/routers/metrics.py's snake_case AgentRunSummary shape
// (§6.1), since this is returned verbatim from GET /metrics.
type RunSummary struct {
	RunID      int64          `json:"run_id"`
	AgentName  string         `json:"agent_name"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at"`
	Status     string         `json:"status"`
	Error      *string        `json:"error_message"`
	Metrics    map[string]any `json:"metrics"`
}

// QueryFilter parameterizes GET /metrics.
type QueryFilter struct {
	AgentName    string
	StartedAfter *time.Time
	Limit        int
}

// QueryRuns returns the most recent matching runs, ascending by
// started_at, each with metrics flattened (metric_value wins over
// metric_text when both somehow present).
func (s *Store) QueryRuns(ctx context.Context, filter QueryFilter) ([]RunSummary, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	query := `SELECT id, agent_name, started_at, finished_at, status, error_message FROM agent_runs WHERE 1=1`
	args := []any{}
	if filter.AgentName != "" {
		args = append(args, filter.AgentName)
		query += fmt.Sprintf(" AND agent_name = $%d", len(args))
	}
	if filter.StartedAfter != nil {
		args = append(args, *filter.StartedAfter)
		query += fmt.Sprintf(" AND started_at > $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY started_at DESC LIMIT $%d", len(args))
	query = `SELECT id, agent_name, started_at, finished_at, status, error_message FROM (` + query + `) AS recent ORDER BY started_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	runIdx := map[int64]int{}
	for rows.Next() {
		var r RunSummary
		var finishedAt sql.NullTime
		var errMsg sql.NullString
		if err := rows.Scan(&r.RunID, &r.AgentName, &r.StartedAt, &finishedAt, &r.Status, &errMsg); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if finishedAt.Valid {
			r.FinishedAt = &finishedAt.Time
		}
		if errMsg.Valid {
			r.Error = &errMsg.String
		}
		r.Metrics = map[string]any{}
		runIdx[r.RunID] = len(runs)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return runs, nil
	}

	runIDs := make([]int64, 0, len(runs))
	for id := range runIdx {
		runIDs = append(runIDs, id)
	}
	metricRows, err := s.db.QueryContext(ctx, `
		SELECT run_id, metric_name, metric_value, metric_text
		FROM agent_metrics
		WHERE run_id = ANY($1)
	`, runIDs)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer metricRows.Close()

	for metricRows.Next() {
		var runID int64
		var name string
		var value sql.NullFloat64
		var text sql.NullString
		if err := metricRows.Scan(&runID, &name, &value, &text); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		idx, ok := runIdx[runID]
		if !ok {
			continue
		}
		if value.Valid {
			runs[idx].Metrics[name] = value.Float64
		} else if text.Valid {
			runs[idx].Metrics[name] = text.String
		}
	}
	return runs, metricRows.Err()
}
