package collector

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	storecollector "github.com/codeready-toolchain/acem/internal/store/collector"
)

// Server is the collector's HTTP API (spec.md §4.B, §6.1), gin-routed
// exactly as the teacher's pkg/api/handlers.go / cmd/tarsy/main.go.
type Server struct {
	store  *storecollector.Store
	router *gin.Engine
}

// NewServer builds a Server with its full middleware stack and routes
// registered.
func NewServer(store *storecollector.Store) *Server {
	router := gin.New()
	router.Use(requestIDMiddleware(), accessLogMiddleware(), gin.Recovery())

	s := &Server{store: store, router: router}
	s.registerRoutes()
	return s
}

// Handler exposes the underlying http.Handler for use with http.Server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.POST("/metrics", s.handleIngest)
	s.router.GET("/metrics", s.handleQuery)
	s.router.GET("/metrics/daily", s.handleDailySummary)
	s.router.GET("/health", s.handleHealth)
}

// requestIDMiddleware injects a request id, mirroring the teacher's
// middleware idiom of attaching request-scoped correlation data.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := uuid.NewString()
		c.Set("request_id", reqID)
		c.Writer.Header().Set("X-Request-ID", reqID)
		c.Next()
	}
}

// accessLogMiddleware logs one structured line per request via slog.
func accessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("http request",
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

type ingestRequestBody struct {
	AgentName  string         `json:"agent_name" binding:"required"`
	Metrics    map[string]any `json:"metrics"`
	StartedAt  time.Time      `json:"started_at" binding:"required"`
	FinishedAt time.Time      `json:"finished_at" binding:"required"`
	Error      *string        `json:"error"`
}

func (s *Server) handleIngest(c *gin.Context) {
	var body ingestRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	trimmed := strings.TrimSpace(body.AgentName)
	if trimmed == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "agent_name must not be empty"})
		return
	}

	errStr := ""
	if body.Error != nil {
		errStr = *body.Error
	}

	result, err := s.store.Ingest(c.Request.Context(), storecollector.IngestInput{
		AgentName:  trimmed,
		Metrics:    body.Metrics,
		StartedAt:  body.StartedAt,
		FinishedAt: body.FinishedAt,
		Error:      errStr,
	})
	if err != nil {
		slog.Error("ingest failed", "agent_name", trimmed, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ingest failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"run_id":     result.RunID,
		"agent_name": result.AgentName,
		"status":     result.Status,
	})
}

func (s *Server) handleQuery(c *gin.Context) {
	filter := storecollector.QueryFilter{
		AgentName: c.Query("agent_name"),
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := c.Query("started_after"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.StartedAfter = &t
		} else {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid started_after"})
			return
		}
	}

	runs, err := s.store.QueryRuns(c.Request.Context(), filter)
	if err != nil {
		slog.Error("query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) handleDailySummary(c *gin.Context) {
	agentName := c.Query("agent_name")
	dateStr := c.Query("date")
	if agentName == "" || dateStr == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "agent_name and date are required"})
		return
	}
	day, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid date"})
		return
	}

	summary, err := s.store.DailySummary(c.Request.Context(), agentName, day)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no summary for agent/date"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	if err := s.store.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
