// acem-scheduler runs the generic cron-driven agent scheduler
// (spec.md §4.D): a beat producer enqueues registered agents onto a
// Redis-backed durable queue, and a worker pool executes them,
// reporting every run to the collector.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/codeready-toolchain/acem/internal/collector"
	"github.com/codeready-toolchain/acem/internal/pipeline"
	pipelineai "github.com/codeready-toolchain/acem/internal/pipeline/ai"
	"github.com/codeready-toolchain/acem/internal/pipeline/cityrotation"
	"github.com/codeready-toolchain/acem/internal/pipeline/enrich"
	"github.com/codeready-toolchain/acem/internal/pipeline/outreach"
	"github.com/codeready-toolchain/acem/internal/platform/config"
	"github.com/codeready-toolchain/acem/internal/platform/logging"
	"github.com/codeready-toolchain/acem/internal/runtime"
	"github.com/codeready-toolchain/acem/internal/scheduler"
	storecollector "github.com/codeready-toolchain/acem/internal/store/collector"
	pipelinestore "github.com/codeready-toolchain/acem/internal/store/pipeline"
)

func main() {
	envPath := flag.String("env-file", ".env", "Path to .env file")
	schedulePath := flag.String("schedule-file", "", "Optional path to a user schedule.yaml overriding the built-in schedule")
	flag.Parse()

	config.LoadDotEnv(*envPath)
	logging.Init(logging.Config{Level: slog.LevelInfo})
	log := slog.Default()

	ctx := context.Background()

	pipelineCfg, err := config.LoadPipelineConfigFromEnv()
	if err != nil {
		log.Error("failed to load pipeline config", "error", err)
		os.Exit(1)
	}

	pipelineDB, err := pipelinestore.Open(ctx, pipelineCfg.PipelineDBURL, "acem_pipeline.db")
	if err != nil {
		log.Error("failed to open pipeline store", "error", err)
		os.Exit(1)
	}
	defer pipelineDB.Close()

	collectorCfg, err := config.LoadCollectorConfigFromEnv()
	if err != nil {
		log.Error("failed to load collector config for the roll-up agent", "error", err)
		os.Exit(1)
	}

	collectorStore, err := storecollector.Open(ctx, storecollector.Config{
		DSN:             collectorCfg.DatabaseURL,
		MaxOpenConns:    collectorCfg.MaxOpenConns,
		MaxIdleConns:    collectorCfg.MaxIdleConns,
		ConnMaxLifetime: collectorCfg.ConnMaxLife,
	})
	if err != nil {
		log.Error("failed to open collector store for roll-up agent", "error", err)
		os.Exit(1)
	}
	defer collectorStore.Close()

	driver := buildDriver(pipelineDB, pipelineCfg, log)

	registry := runtime.NewRegistry()
	registry.Register("lead_generation", func() runtime.Agent { return &pipeline.Agent{Driver: driver} })
	registry.Register("_internal.daily_summary", func() runtime.Agent { return &collector.RollupAgent{Store: collectorStore} })

	publisher := collector.NewClient(pipelineCfg.CollectorURL)

	scheduleCfg, err := config.LoadScheduleConfig(*schedulePath)
	if err != nil {
		log.Error("failed to load schedule config", "error", err)
		os.Exit(1)
	}
	schedule := make(map[string]config.ScheduleEntry, len(scheduleCfg.Schedules))
	for name, entry := range scheduleCfg.Schedules {
		schedule[name] = entry
	}

	concurrency, err := strconv.Atoi(os.Getenv("SCHEDULER_CONCURRENCY"))
	if err != nil || concurrency <= 0 {
		concurrency = 4
	}

	sched, err := scheduler.New(scheduler.Config{
		RedisURL:    pipelineCfg.RedisURL,
		Concurrency: concurrency,
		Schedule:    schedule,
	}, registry, publisher, log)
	if err != nil {
		log.Error("failed to build scheduler", "error", err)
		os.Exit(1)
	}

	runCtx, cancel := context.WithCancel(ctx)
	sched.Start(runCtx)
	log.Info("scheduler: running", "agents", registry.Names())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop

	log.Info("scheduler: shutting down")
	cancel()
	sched.Stop()
}

// buildDriver wires the lead-generation pipeline driver with the
// zero-configuration defaults for every third-party client body left
// out of scope (spec.md Non-goals), exactly as cmd/pipeline/main.go
// does -- the scheduler process runs the same agent the pipeline
// process's own daily loop runs, just triggered by the §4.D cron beat
// instead.
func buildDriver(store *pipelinestore.Store, cfg config.PipelineConfig, log *slog.Logger) *pipeline.Driver {
	freeEmail := enrich.NewFreeEmailFinder(enrich.NullSearchClient{})
	scraper := enrich.NewWebsiteScraper(pipeline.ExtractEmailsFromText, pipeline.CleanEmail, pipeline.SanitizeText)

	smtpTransport := outreach.NewSMTPTransport(outreach.SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     smtpPort(),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
	})
	gmassTransport := outreach.GmassTransport{APIKey: os.Getenv("GMASS_API_KEY")}
	transport := outreach.ResolveTransport(cfg.OutreachTransport, gmassTransport, smtpTransport, func(msg string) { log.Warn(msg) })

	providers := []pipelineai.Provider{
		pipelineai.NullProvider{ProviderName: "gemini"},
		pipelineai.NullProvider{ProviderName: "openai"},
	}

	return &pipeline.Driver{
		Store: store,
		Log:   log,
		Config: pipeline.DriverConfig{
			LeadsPerDay:    cfg.LeadsPerDay,
			Recipient:      os.Getenv("REPORT_RECIPIENT"),
			FollowupDays:   cfg.FollowupDays,
			PageDelay:      0,
			RateLimitDelay: 0,
			AIRequestDelay: 0,
		},
		Rotator:        cityrotation.New(store),
		Searcher:       pipeline.NullLeadSearcher{Log: log},
		WebsiteScraper: scraper,
		PersonEnricher: pipeline.NullPersonEnricher{},
		OrgPhone:       pipeline.NullOrgPhoneEnricher{},
		FreeEmail:      freeEmail,
		AIProviders:    providers,
		Excel:          pipeline.NullExcelBuilder{},
		Sender:         pipeline.NullReportSender{Log: log},
		Transport:      transport,
	}
}

func smtpPort() int {
	raw := os.Getenv("SMTP_PORT")
	if raw == "" {
		return 587
	}
	if p, err := strconv.Atoi(raw); err == nil {
		return p
	}
	return 587
}
