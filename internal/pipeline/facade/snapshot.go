package facade

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	pipelinestore "github.com/codeready-toolchain/acem/internal/store/pipeline"
)

// parseISODatetime is server.py's _parse_iso_datetime: a trailing "Z"
// is accepted as UTC, and a naive timestamp is assumed UTC.
func parseISODatetime(value string) (time.Time, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty datetime")
	}
	if strings.HasSuffix(raw, "Z") {
		raw = raw[:len(raw)-1] + "+00:00"
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05-07:00", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime %q", value)
}

// toISOZ mirrors server.py's _to_iso_z, which is just
// datetime.isoformat().replace("+00:00", "Z"): Python's isoformat
// omits the microsecond part entirely when it is zero, it does not
// zero-pad a ".000000" suffix onto whole-second values.
func toISOZ(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond() == 0 {
		return t.Format("2006-01-02T15:04:05Z")
	}
	micros := t.Nanosecond() / 1000
	return fmt.Sprintf("%s.%06dZ", t.Format("2006-01-02T15:04:05"), micros)
}

// bucketStart rounds down to the containing 10-minute window, the
// facade's idempotent-upsert bucketing unit.
func bucketStart(t time.Time) time.Time {
	t = t.UTC()
	minute := (t.Minute() / 10) * 10
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), minute, 0, 0, time.UTC)
}

func statusFromErrors(errorCount int) string {
	switch {
	case errorCount == 0:
		return "Activo"
	case errorCount <= 2:
		return "Optimizando"
	default:
		return "En revision"
	}
}

func severityFromError(errorText string) string {
	v := strings.ToLower(errorText)
	if strings.Contains(v, "critical") || strings.Contains(v, "fatal") || strings.Contains(v, "traceback") {
		return "critical"
	}
	return "warning"
}

func successRate(errorCount int) float64 {
	rate := 100.0 - math.Min(100.0, float64(errorCount)*25.0)
	return math.Round(math.Max(0.0, rate)*100) / 100
}

// buildStatusRows is server.py's _build_status_rows: one row per
// logged run since updatedAfter, each bucketed to its containing
// 10-minute window; falling back to a single synthesized snapshot row
// when no run has happened in that window yet.
func (s *Server) buildStatusRows(ctx context.Context, updatedAfter time.Time) ([]map[string]any, error) {
	runs, err := s.store.PipelineRunsSince(ctx, updatedAfter)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]any, 0, len(runs))
	for i, run := range runs {
		errorCount := len(run.Errors)
		outreachSent := run.OutreachSent
		if s.mock.Enabled {
			outreachSent = int64(s.mock.TasksComplete)
		} else if outreachSent <= 0 {
			next := time.Now().UTC()
			if i+1 < len(runs) {
				next = runs[i+1].RunDate
			}
			if n, err := s.store.CountOutreachSentBetween(ctx, run.RunDate, next); err == nil {
				outreachSent = n
			}
		}

		rows = append(rows, map[string]any{
			"client_external_id": s.identity.ClientExternalID,
			"client_name":        s.identity.ClientName,
			"agent_external_id":  s.identity.AgentExternalID,
			"agent_name":         s.identity.AgentName,
			"status":             statusFromErrors(errorCount),
			"bucket_start":       toISOZ(bucketStart(run.RunDate)),
			"runs_total":         1,
			"success_rate":       successRate(errorCount),
			"avg_latency_ms":     math.Round(math.Max(run.DurationSeconds, 0)*1000*100) / 100,
			"tasks_completed":    maxInt64(outreachSent, 0),
			"est_impact_value":   0.0,
			"currency_code":      s.identity.CurrencyCode,
			"updated_at":         toISOZ(run.RunDate),
		})
	}
	if len(rows) > 0 {
		return rows, nil
	}

	statusRow, _, ok, err := s.buildSnapshot(ctx, updatedAfter)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []map[string]any{}, nil
	}
	return []map[string]any{statusRow}, nil
}

// buildEventRows is server.py's _build_event_rows: one "pipeline_run"
// summary event plus one "pipeline_error" event per recorded error
// string, per logged run since updatedAfter; same snapshot fallback.
func (s *Server) buildEventRows(ctx context.Context, updatedAfter time.Time) ([]map[string]any, error) {
	runs, err := s.store.PipelineRunsSince(ctx, updatedAfter)
	if err != nil {
		return nil, err
	}

	var events []map[string]any
	for i, run := range runs {
		runISO := toISOZ(run.RunDate)
		errorCount := len(run.Errors)
		outreachSent := run.OutreachSent
		discovered := run.LeadsDiscovered
		if s.mock.Enabled {
			discovered = int64(s.mock.RunsTotal)
			outreachSent = int64(s.mock.TasksComplete)
		} else if outreachSent <= 0 {
			next := time.Now().UTC()
			if i+1 < len(runs) {
				next = runs[i+1].RunDate
			}
			if n, err := s.store.CountOutreachSentBetween(ctx, run.RunDate, next); err == nil {
				outreachSent = n
			}
		}

		events = append(events, map[string]any{
			"client_external_id": s.identity.ClientExternalID,
			"client_name":        s.identity.ClientName,
			"agent_external_id":  s.identity.AgentExternalID,
			"agent_name":         s.identity.AgentName,
			"status":             statusFromErrors(errorCount),
			"source_event_id":    fmt.Sprintf("run:%s:summary", runISO),
			"occurred_at":        runISO,
			"updated_at":         runISO,
			"event_type":         "pipeline_run",
			"severity":           "info",
			"title":              "Ejecucion de pipeline completada",
			"summary": fmt.Sprintf("Leads descubiertos: %d. Correos enviados: %d. Errores: %d.",
				discovered, outreachSent, errorCount),
			"payload_json": map[string]any{
				"leads_discovered":  discovered,
				"leads_enriched":    run.LeadsEnriched,
				"leads_with_email":  run.LeadsWithEmail,
				"leads_ai_analyzed": run.LeadsAIAnalyzed,
				"outreach_sent":     outreachSent,
				"duration_seconds":  run.DurationSeconds,
			},
		})

		for idx, errText := range run.Errors {
			events = append(events, map[string]any{
				"client_external_id": s.identity.ClientExternalID,
				"client_name":        s.identity.ClientName,
				"agent_external_id":  s.identity.AgentExternalID,
				"agent_name":         s.identity.AgentName,
				"status":             statusFromErrors(errorCount),
				"source_event_id":    fmt.Sprintf("run:%s:error:%d", runISO, idx),
				"occurred_at":        runISO,
				"updated_at":         runISO,
				"event_type":         "pipeline_error",
				"severity":           severityFromError(errText),
				"title":              "Error reportado en pipeline",
				"summary":            errText,
				"payload_json":       map[string]any{"error": errText},
			})
		}
	}
	if len(events) > 0 {
		return events, nil
	}

	_, eventRow, ok, err := s.buildSnapshot(ctx, updatedAfter)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []map[string]any{}, nil
	}
	return []map[string]any{eventRow}, nil
}

// buildSnapshot is server.py's _build_snapshot_rows: a synthesized
// status+event pair built straight from current aggregate counts, used
// whenever no run has been logged in the requested window yet. Returns
// ok=false if updatedAfter is still in the future.
func (s *Server) buildSnapshot(ctx context.Context, updatedAfter time.Time) (statusRow, eventRow map[string]any, ok bool, err error) {
	now := time.Now().UTC()
	if now.Before(updatedAfter) {
		return nil, nil, false, nil
	}

	totalLeads, err := s.store.TotalLeadsCount(ctx)
	if err != nil {
		return nil, nil, false, err
	}
	sentTotal, err := s.store.SentLeadsCount(ctx)
	if err != nil {
		return nil, nil, false, err
	}
	pendingTotal, err := s.store.PendingLeadsCount(ctx)
	if err != nil {
		return nil, nil, false, err
	}
	outreachTotal, err := s.store.TotalOutreachSentCount(ctx)
	if err != nil {
		return nil, nil, false, err
	}

	var latest *pipelinestore.PipelineRun
	if runs, err := s.store.PipelineRunsSince(ctx, time.Unix(0, 0)); err == nil && len(runs) > 0 {
		latest = &runs[len(runs)-1]
	}

	if s.mock.Enabled {
		totalLeads = int64(maxInt(s.mock.RunsTotal, 0))
		sentTotal = int64(maxInt(s.mock.TasksComplete, 0))
		pendingTotal = maxInt64(totalLeads-sentTotal, 0)
	}

	var latestErrors []string
	var latestDiscovered, latestSent, latestOutreach int64
	var latestDuration float64
	if latest != nil {
		latestErrors = latest.Errors
		latestDiscovered = latest.LeadsDiscovered
		latestSent = latest.LeadsSent
		latestOutreach = latest.OutreachSent
		latestDuration = latest.DurationSeconds
	}
	if s.mock.Enabled {
		latestDiscovered = totalLeads
		latestSent = sentTotal
	}

	var statusValue string
	if latest != nil {
		statusValue = statusFromErrors(len(latestErrors))
	} else if sentTotal > 0 {
		statusValue = "Activo"
	} else {
		statusValue = "Optimizando"
	}

	bucket := bucketStart(now)
	bucketISO := toISOZ(bucket)
	nowISO := toISOZ(now)

	statusRow = map[string]any{
		"client_external_id": s.identity.ClientExternalID,
		"client_name":        s.identity.ClientName,
		"agent_external_id":  s.identity.AgentExternalID,
		"agent_name":         s.identity.AgentName,
		"status":             statusValue,
		"bucket_start":       bucketISO,
		"runs_total":         1,
		"success_rate":       successRate(len(latestErrors)),
		"avg_latency_ms":     math.Round(math.Max(latestDuration, 0)*1000*100) / 100,
		"tasks_completed":    maxInt64(latestOutreach, 0),
		"est_impact_value":   0.0,
		"currency_code":      s.identity.CurrencyCode,
		"updated_at":         nowISO,
	}

	eventRow = map[string]any{
		"client_external_id": s.identity.ClientExternalID,
		"client_name":        s.identity.ClientName,
		"agent_external_id":  s.identity.AgentExternalID,
		"agent_name":         s.identity.AgentName,
		"status":             statusValue,
		"source_event_id":    fmt.Sprintf("snapshot:%s", bucketISO),
		"occurred_at":        nowISO,
		"updated_at":         nowISO,
		"event_type":         "pipeline_snapshot",
		"severity":           "info",
		"title":              "Resumen operativo actualizado",
		"summary": fmt.Sprintf(
			"Leads totales: %d. Informes enviados: %d. Correos enviados: %d. Pendientes: %d. Errores recientes: %d.",
			totalLeads, sentTotal, maxInt64(latestOutreach, 0), pendingTotal, len(latestErrors),
		),
		"payload_json": map[string]any{
			"leads_total":               totalLeads,
			"leads_sent_total":          sentTotal,
			"outreach_sent_total":       outreachTotal,
			"leads_pending_total":       pendingTotal,
			"latest_run_errors":         len(latestErrors),
			"latest_run_discovered":     latestDiscovered,
			"latest_run_sent":           latestSent,
			"latest_run_outreach_sent":  latestOutreach,
		},
	}

	return statusRow, eventRow, true, nil
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
