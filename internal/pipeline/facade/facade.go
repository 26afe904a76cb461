// Package facade implements the internal snapshot HTTP facade of
// spec.md §4.E.6: a small long-running service, co-located with the
// pipeline's own scheduling loop, that an external dashboard polls for
// aggregated run status and events, plus a POST /run-now admin
// trigger. Grounded on
// original_source/agents/lead_generation/tools/server.py, routed with
// gin in the same style as internal/collector.
package facade

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	pipelinestore "github.com/codeready-toolchain/acem/internal/store/pipeline"
)

// Trigger is the subset of Loop the facade drives, narrowed so tests
// can substitute a fake.
type Trigger interface {
	RunNow(ctx context.Context) (pipelinestore.PipelineRunStats, error)
}

// Store is the subset of the pipeline store the facade reads.
type Store interface {
	PipelineRunsSince(ctx context.Context, updatedAfter time.Time) ([]pipelinestore.PipelineRun, error)
	CountOutreachSentBetween(ctx context.Context, start, end time.Time) (int64, error)
	TotalLeadsCount(ctx context.Context) (int64, error)
	SentLeadsCount(ctx context.Context) (int64, error)
	PendingLeadsCount(ctx context.Context) (int64, error)
	TotalOutreachSentCount(ctx context.Context) (int64, error)
}

// Identity names the client/agent pair reported on every row, sourced
// from ACEM_CLIENT_EXTERNAL_ID / ACEM_CLIENT_NAME / ACEM_AGENT_EXTERNAL_ID
// / ACEM_AGENT_NAME / ACEM_CURRENCY_CODE.
type Identity struct {
	ClientExternalID string
	ClientName       string
	AgentExternalID  string
	AgentName        string
	CurrencyCode     string
}

// MockConfig is the ACEM_METRICS_MOCK* testing-only numeric override
// (spec.md §6.3): when enabled, every row reports inflated, synthetic
// totals instead of the store's real counts.
type MockConfig struct {
	Enabled       bool
	RunsTotal     int
	TasksComplete int
}

// SchedulerStatus is read by /health to report the pipeline's own
// scheduling-loop state (spec.md §4.E.6's scheduling policy), plus its
// non-sensitive configuration, to debug "didn't run at the scheduled
// time" issues.
type SchedulerStatus struct {
	Enabled      bool
	Running      bool
	TZ           string
	Time         string
	Days         string
	CatchupBoot  bool
	RunOnStartup bool
}

// Server is the facade's HTTP API.
type Server struct {
	store    Store
	trigger  Trigger
	identity Identity
	mock     MockConfig
	status   func() SchedulerStatus
	log      *slog.Logger
	router   *gin.Engine
}

// New builds a Server. status is called fresh on every /health
// request so it always reflects the live scheduling loop.
func New(store Store, trigger Trigger, identity Identity, mock MockConfig, status func() SchedulerStatus, log *slog.Logger) *Server {
	router := gin.New()
	router.Use(requestIDMiddleware(), accessLogMiddleware(log), gin.Recovery())

	s := &Server{store: store, trigger: trigger, identity: identity, mock: mock, status: status, log: log, router: router}
	s.registerRoutes()
	return s
}

// Handler exposes the underlying http.Handler for use with http.Server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/api/acem/agent-status", s.handleAgentStatus)
	s.router.GET("/api/acem/agent-events", s.handleAgentEvents)
	s.router.POST("/api/acem/run-now", s.handleRunNow)
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := uuid.NewString()
		c.Set("request_id", reqID)
		c.Writer.Header().Set("X-Request-ID", reqID)
		c.Next()
	}
}

func accessLogMiddleware(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("facade http request",
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	st := s.status()
	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"service":           "acem-lead-pipeline-api",
		"scheduler_enabled": st.Enabled,
		"scheduler_running": st.Running,
		"schedule": gin.H{
			"tz":              st.TZ,
			"time":            st.Time,
			"days":            st.Days,
			"catchup_on_boot": st.CatchupBoot,
			"run_on_startup":  st.RunOnStartup,
		},
	})
}

func (s *Server) handleAgentStatus(c *gin.Context) {
	updatedAfter, err := parseUpdatedAfter(c.DefaultQuery("updated_after", "1970-01-01T00:00:00.000Z"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid updated_after: " + err.Error()})
		return
	}

	rows, err := s.buildStatusRows(c.Request.Context(), updatedAfter)
	if err != nil {
		s.log.Error("facade: agent-status failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) handleAgentEvents(c *gin.Context) {
	updatedAfter, err := parseUpdatedAfter(c.DefaultQuery("updated_after", "1970-01-01T00:00:00.000Z"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid updated_after: " + err.Error()})
		return
	}

	events, err := s.buildEventRows(c.Request.Context(), updatedAfter)
	if err != nil {
		s.log.Error("facade: agent-events failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, events)
}

// handleRunNow invokes the pipeline once, synchronously -- acceptable
// here since the facade is an admin-tool surface, not a user-facing
// one (spec.md §5's "synchronous response is acceptable when the
// facade is used only via admin tools").
func (s *Server) handleRunNow(c *gin.Context) {
	startedAt := time.Now().UTC()
	_, err := s.trigger.RunNow(c.Request.Context())
	finishedAt := time.Now().UTC()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "pipeline execution failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"started_at":  startedAt.Format(time.RFC3339Nano),
		"finished_at": finishedAt.Format(time.RFC3339Nano),
	})
}

func parseUpdatedAfter(raw string) (time.Time, error) {
	return parseISODatetime(raw)
}
