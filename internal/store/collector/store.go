// Package collector implements the collector's relational store
// (spec.md §3 "Collector store", §4.A), over database/sql +
// jackc/pgx/v5/stdlib, grounded on the teacher's pkg/database/client.go
// (pool config, ping-on-open, Health) and pkg/database/migrations.go
// (idempotent-ensure shape, adapted to CREATE TABLE IF NOT EXISTS
// instead of golang-migrate -- see DESIGN.md).
package collector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Status values for AgentRun.status.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// AgentRun is one agent execution (spec.md §3).
type AgentRun struct {
	ID           int64
	AgentName    string
	StartedAt    time.Time
	FinishedAt   sql.NullTime
	Status       string
	ErrorMessage sql.NullString
	CreatedAt    time.Time
}

// AgentMetric is one key/value observation tied to an AgentRun.
// Exactly one of MetricValue/MetricText is non-null.
type AgentMetric struct {
	ID          int64
	RunID       int64
	AgentName   string
	MetricName  string
	MetricValue sql.NullFloat64
	MetricText  sql.NullString
	RecordedAt  time.Time
}

// AgentDailySummary is a pre-aggregated per-agent, per-day rollup.
// json tags match collector/routers/metrics.py's snake_case Pydantic
// shape, since this is returned verbatim from GET /metrics/daily.
type AgentDailySummary struct {
	AgentName       string    `json:"agent_name"`
	SummaryDate     time.Time `json:"summary_date"`
	RunCount        int64     `json:"run_count"`
	SuccessCount    int64     `json:"success_count"`
	FailedCount     int64     `json:"failed_count"`
	AvgDurationSecs float64   `json:"avg_duration_secs"`
}

// Store wraps a *sql.DB configured for the collector schema. Every
// operation acquires and releases its own connection from the pool;
// there is no held connection handle (spec.md §4.A concurrency
// policy).
type Store struct {
	db *sql.DB
}

// Config configures the pool, mirroring the teacher's database.Config.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects, configures the pool, pings, and ensures the schema
// exists (idempotent), returning a ready-to-use Store.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("collector store: open: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("collector store: ping: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("collector store: ensure schema: %w", err)
	}
	return store, nil
}

// Close releases the underlying pool.
func (s *Store) Close() error { return s.db.Close() }

// Health performs a trivial round-trip, matching the teacher's
// database.Health(ctx, db) contract (spec.md §4.B Health operation).
func (s *Store) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS agent_runs (
			id BIGSERIAL PRIMARY KEY,
			agent_name TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ,
			status TEXT NOT NULL,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_agent_runs_agent_name_started_at ON agent_runs (agent_name, started_at)`,
		`CREATE TABLE IF NOT EXISTS agent_metrics (
			id BIGSERIAL PRIMARY KEY,
			run_id BIGINT NOT NULL REFERENCES agent_runs(id) ON DELETE CASCADE,
			agent_name TEXT NOT NULL,
			metric_name TEXT NOT NULL,
			metric_value DOUBLE PRECISION,
			metric_text TEXT,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_agent_metrics_run_id ON agent_metrics (run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_agent_metrics_agent_name ON agent_metrics (agent_name)`,
		`CREATE TABLE IF NOT EXISTS agent_daily_summaries (
			agent_name TEXT NOT NULL,
			summary_date DATE NOT NULL,
			run_count BIGINT NOT NULL DEFAULT 0,
			success_count BIGINT NOT NULL DEFAULT 0,
			failed_count BIGINT NOT NULL DEFAULT 0,
			avg_duration_secs DOUBLE PRECISION NOT NULL DEFAULT 0,
			PRIMARY KEY (agent_name, summary_date)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
