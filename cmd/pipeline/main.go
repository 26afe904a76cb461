// acem-pipeline runs the lead-generation pipeline's own daily
// scheduling loop (spec.md §4.E.6) alongside its internal snapshot
// facade (spec.md §4.E.6, tools/server.py): one process, one shared
// pipeline store, independent of the generic §4.D cron scheduler.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/codeready-toolchain/acem/internal/pipeline"
	pipelineai "github.com/codeready-toolchain/acem/internal/pipeline/ai"
	"github.com/codeready-toolchain/acem/internal/pipeline/cityrotation"
	"github.com/codeready-toolchain/acem/internal/pipeline/enrich"
	"github.com/codeready-toolchain/acem/internal/pipeline/facade"
	"github.com/codeready-toolchain/acem/internal/pipeline/outreach"
	"github.com/codeready-toolchain/acem/internal/platform/config"
	"github.com/codeready-toolchain/acem/internal/platform/logging"
	pipelinestore "github.com/codeready-toolchain/acem/internal/store/pipeline"
)

func main() {
	envPath := flag.String("env-file", ".env", "Path to .env file")
	flag.Parse()

	config.LoadDotEnv(*envPath)
	logging.Init(logging.Config{Level: slog.LevelInfo})
	log := slog.Default()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadPipelineConfigFromEnv()
	if err != nil {
		log.Error("failed to load pipeline config", "error", err)
		os.Exit(1)
	}

	store, err := pipelinestore.Open(ctx, cfg.PipelineDBURL, "acem_pipeline.db")
	if err != nil {
		log.Error("failed to open pipeline store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if city, country := config.ParseCityResetTarget(cfg.CityRotationResetTo); city != "" {
		if ok, err := store.ResetCityRotation(ctx, city, country); err != nil {
			log.Error("failed to reset city rotation", "city", city, "country", country, "error", err)
		} else if !ok {
			log.Warn("city rotation reset target not found", "city", city, "country", country)
		} else {
			log.Info("city rotation reset", "city", city, "country", country)
		}
	}

	driver := buildDriver(store, cfg, log)

	loopCfg, err := buildLoopConfig(cfg)
	if err != nil {
		log.Error("failed to build pipeline schedule", "error", err)
		os.Exit(1)
	}

	loop := pipeline.NewLoop(loopCfg, driver, log)

	identity := facade.Identity{
		ClientExternalID: cfg.ClientExternalID,
		ClientName:       cfg.ClientName,
		AgentExternalID:  cfg.AgentExternalID,
		AgentName:        cfg.AgentName,
		CurrencyCode:     cfg.CurrencyCode,
	}
	mock := facade.MockConfig{
		Enabled:       cfg.MetricsMock,
		RunsTotal:     cfg.MetricsMockRunsTotal,
		TasksComplete: cfg.MetricsMockTasksComplete,
	}
	status := func() facade.SchedulerStatus {
		s := loop.Status()
		return facade.SchedulerStatus{
			Enabled:      cfg.SchedulerEnabled,
			Running:      s.Running,
			TZ:           cfg.TZ,
			Time:         cfg.ScheduleTime,
			Days:         cfg.ScheduleDays,
			CatchupBoot:  cfg.ScheduleCatchupOnBoot,
			RunOnStartup: cfg.RunOnStartup,
		}
	}

	server := facade.New(store, loop, identity, mock, status, log)
	httpServer := &http.Server{Addr: cfg.FacadeListenAddr, Handler: server.Handler()}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("facade listening", "addr", cfg.FacadeListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("facade server failed", "error", err)
		}
	}()

	if cfg.SchedulerEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loop.Run(ctx)
		}()
	} else {
		log.Info("pipeline loop disabled via ACEM_SCHEDULER_ENABLED")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop

	log.Info("pipeline: shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("facade graceful shutdown failed", "error", err)
	}

	wg.Wait()
}

func buildLoopConfig(cfg config.PipelineConfig) (pipeline.LoopConfig, error) {
	scheduleTime, err := config.ParseScheduleTime(cfg.ScheduleTime)
	if err != nil {
		return pipeline.LoopConfig{}, err
	}
	days, err := config.ParseScheduleDays(cfg.ScheduleDays)
	if err != nil {
		return pipeline.LoopConfig{}, err
	}
	loc, fellBack := config.LoadTimezone(cfg.TZ)
	if fellBack {
		slog.Default().Warn("unknown TZ, falling back to UTC", "tz", cfg.TZ)
	}

	pollSeconds := cfg.SchedulerPollSeconds
	if pollSeconds < 5 {
		pollSeconds = 5
	}

	return pipeline.LoopConfig{
		ScheduleTime:  scheduleTime,
		AllowedDays:   days,
		Location:      loc,
		PollInterval:  time.Duration(pollSeconds) * time.Second,
		RunOnStartup:  cfg.RunOnStartup,
		CatchupOnBoot: cfg.ScheduleCatchupOnBoot,
	}, nil
}

// buildDriver wires the lead-generation pipeline driver with the
// zero-configuration defaults for every third-party client body left
// out of scope (spec.md Non-goals): the real Apollo.io, Gemini/OpenAI,
// GMass, and Gmail-SMTP client bodies are narrow interfaces here, not
// implementations, so the pipeline runs end to end (inserting,
// enriching with the free tier, falling back to the canned AI
// analysis, and skipping delivery) without any of those accounts
// configured.
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
