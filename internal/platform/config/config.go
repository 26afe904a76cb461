// Package config loads process configuration from the environment,
// in the manner of the teacher's pkg/database/config.go
// (LoadConfigFromEnv + Validate), plus a .env loader wired exactly as
// cmd/tarsy/main.go wires godotenv.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads a .env file if present. Missing file is not an
// error (mirrors cmd/tarsy/main.go's tolerant godotenv.Load call).
func LoadDotEnv(path string) {
	if path == "" {
		path = ".env"
	}
	_ = godotenv.Load(path)
}

// CollectorConfig configures the metrics collector service.
type CollectorConfig struct {
	DatabaseURL  string
	ListenAddr   string
	MaxOpenConns int
	MaxIdleConns int
	ConnMaxLife  time.Duration
}

// LoadCollectorConfigFromEnv reads collector configuration from the
// environment with production-ready defaults.
func LoadCollectorConfigFromEnv() (CollectorConfig, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return CollectorConfig{}, fmt.Errorf("DATABASE_URL is required")
	}

	maxOpen, err := strconv.Atoi(getEnvOrDefault("DB_MAX_OPEN_CONNS", "25"))
	if err != nil {
		return CollectorConfig{}, fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := strconv.Atoi(getEnvOrDefault("DB_MAX_IDLE_CONNS", "10"))
	if err != nil {
		return CollectorConfig{}, fmt.Errorf("invalid DB_MAX_IDLE_CONNS: %w", err)
	}
	connLife, err := time.ParseDuration(getEnvOrDefault("DB_CONN_MAX_LIFETIME", "1h"))
	if err != nil {
		return CollectorConfig{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
	}

	cfg := CollectorConfig{
		DatabaseURL:  dbURL,
		ListenAddr:   getEnvOrDefault("COLLECTOR_LISTEN_ADDR", ":8080"),
		MaxOpenConns: maxOpen,
		MaxIdleConns: maxIdle,
		ConnMaxLife:  connLife,
	}
	if cfg.MaxIdleConns > cfg.MaxOpenConns {
		return CollectorConfig{}, fmt.Errorf("DB_MAX_IDLE_CONNS (%d) cannot exceed DB_MAX_OPEN_CONNS (%d)", cfg.MaxIdleConns, cfg.MaxOpenConns)
	}
	return cfg, nil
}

// PipelineConfig configures the lead-generation pipeline/scheduler
// process (spec.md §6.3).
type PipelineConfig struct {
	CollectorURL  string
	PipelineDBURL string // DATABASE_URL / SUPABASE_DB_URL; empty = embedded sqlite
	RedisURL      string

	LeadsPerDay                  int
	ScheduleTime                 string
	ScheduleDays                 string
	TZ                           string
	SchedulerPollSeconds         int
	RunOnStartup                 bool
	ScheduleCatchupOnBoot        bool
	CityRotationResetTo          string
	OutreachTransport            string
	FollowupDays                 int
	ApolloPeopleOversampleFactor int
	GmassTrackOpens              bool
	GmassTrackClicks             bool

	MetricsMock              bool
	MetricsMockRunsTotal     int
	MetricsMockTasksComplete int

	FacadeListenAddr string
	SchedulerEnabled bool

	ClientExternalID string
	ClientName       string
	AgentExternalID  string
	AgentName        string
	CurrencyCode     string
}

// LoadPipelineConfigFromEnv reads the pipeline process's configuration
// from the environment, applying the defaults spec.md §6.3 names.
func LoadPipelineConfigFromEnv() (PipelineConfig, error) {
	leadsPerDay, err := strconv.Atoi(getEnvOrDefault("LEADS_PER_DAY", "30"))
	if err != nil || leadsPerDay <= 0 {
		return PipelineConfig{}, fmt.Errorf("invalid LEADS_PER_DAY")
	}

	pollSeconds, err := strconv.Atoi(getEnvOrDefault("SCHEDULER_POLL_SECONDS", "30"))
	if err != nil {
		return PipelineConfig{}, fmt.Errorf("invalid SCHEDULER_POLL_SECONDS: %w", err)
	}
	if pollSeconds < 5 {
		pollSeconds = 5
	}

	followupDays, err := strconv.Atoi(getEnvOrDefault("FOLLOWUP_DAYS", "3"))
	if err != nil {
		return PipelineConfig{}, fmt.Errorf("invalid FOLLOWUP_DAYS: %w", err)
	}

	oversample, err := strconv.Atoi(getEnvOrDefault("APOLLO_PEOPLE_OVERSAMPLE_FACTOR", "3"))
	if err != nil {
		return PipelineConfig{}, fmt.Errorf("invalid APOLLO_PEOPLE_OVERSAMPLE_FACTOR: %w", err)
	}
	if oversample < 1 {
		oversample = 1
	}
	if oversample > 10 {
		oversample = 10
	}

	transport := getEnvOrDefault("OUTREACH_TRANSPORT", "gmass")
	if transport != "gmass" && transport != "smtp" {
		transport = "gmass"
	}

	scheduleTime := os.Getenv("SCHEDULE_TIME_OVERRIDE")
	if scheduleTime == "" {
		scheduleTime = getEnvOrDefault("SCHEDULE_TIME", "09:00")
	}

	mockRunsTotal, _ := strconv.Atoi(getEnvOrDefault("ACEM_METRICS_MOCK_RUNS_TOTAL", "80"))
	mockTasksComplete, _ := strconv.Atoi(getEnvOrDefault("ACEM_METRICS_MOCK_TASKS_COMPLETED", "80"))

	pipelineDBURL := os.Getenv("SUPABASE_DB_URL")
	if pipelineDBURL == "" {
		pipelineDBURL = os.Getenv("DATABASE_URL")
	}

	return PipelineConfig{
		CollectorURL:                 getEnvOrDefault("COLLECTOR_URL", "http://localhost:8080"),
		PipelineDBURL:                pipelineDBURL,
		RedisURL:                     getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		LeadsPerDay:                  leadsPerDay,
		ScheduleTime:                 scheduleTime,
		ScheduleDays:                 getEnvOrDefault("SCHEDULE_DAYS", "1-5"),
		TZ:                           getEnvOrDefault("TZ", "UTC"),
		SchedulerPollSeconds:         pollSeconds,
		RunOnStartup:                 parseBool(os.Getenv("RUN_ON_STARTUP")),
		ScheduleCatchupOnBoot:        parseBool(os.Getenv("SCHEDULE_CATCHUP_ON_BOOT")),
		CityRotationResetTo:          os.Getenv("CITY_ROTATION_RESET_TO"),
		OutreachTransport:            transport,
		FollowupDays:                 followupDays,
		ApolloPeopleOversampleFactor: oversample,
		GmassTrackOpens:              parseBool(os.Getenv("GMASS_TRACK_OPENS")),
		GmassTrackClicks:             parseBool(os.Getenv("GMASS_TRACK_CLICKS")),
		MetricsMock:                  parseBool(os.Getenv("ACEM_METRICS_MOCK")),
		MetricsMockRunsTotal:         mockRunsTotal,
		MetricsMockTasksComplete:     mockTasksComplete,

		FacadeListenAddr: getEnvOrDefault("FACADE_LISTEN_ADDR", ":8090"),
		SchedulerEnabled: parseBoolDefault(os.Getenv("ACEM_SCHEDULER_ENABLED"), true),

		ClientExternalID: getEnvOrDefault("ACEM_CLIENT_EXTERNAL_ID", "acem_default_client"),
		ClientName:       getEnvOrDefault("ACEM_CLIENT_NAME", "ACEM Systems"),
		AgentExternalID:  getEnvOrDefault("ACEM_AGENT_EXTERNAL_ID", "acem_lead_generation"),
		AgentName:        getEnvOrDefault("ACEM_AGENT_NAME", "ACEM lead generation"),
		CurrencyCode:     getEnvOrDefault("ACEM_CURRENCY_CODE", "USD"),
	}, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseBool(s string) bool {
	return parseBoolDefault(s, false)
}

// parseBoolDefault is server.py's _parse_bool: an empty value falls
// back to def rather than being treated as false.
func parseBoolDefault(s string, def bool) bool {
	raw := strings.TrimSpace(strings.ToLower(s))
	if raw == "" {
		return def
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}
