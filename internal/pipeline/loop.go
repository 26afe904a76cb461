package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/codeready-toolchain/acem/internal/platform/config"
	pipelinestore "github.com/codeready-toolchain/acem/internal/store/pipeline"
)

// Runner is the subset of Driver the Loop depends on, narrowed so
// tests can substitute a fake.
type Runner interface {
	Run(ctx context.Context) (pipelinestore.PipelineRunStats, error)
}

// LoopConfig carries the pipeline process's own daily-trigger policy
// (spec.md §4.E.6), parsed once at startup from SCHEDULE_TIME,
// SCHEDULE_DAYS, TZ, SCHEDULER_POLL_SECONDS, RUN_ON_STARTUP, and
// SCHEDULE_CATCHUP_ON_BOOT. This is independent of the §4.D
// cron/worker scheduler: it fires the pipeline directly, in-process,
// the way scheduler.py's while-loop does.
type LoopConfig struct {
	ScheduleTime  config.ScheduleTime
	AllowedDays   map[int]bool
	Location      *time.Location
	PollInterval  time.Duration
	RunOnStartup  bool
	CatchupOnBoot bool
}

// Loop runs runner once a day at ScheduleTime on an AllowedDays
// weekday, polling every PollInterval. It is the only process-local
// mutable state outside the queue/lock pair of §4.D: "last scheduled
// run date" and "shutdown requested".
type Loop struct {
	cfg    LoopConfig
	runner Runner
	log    *slog.Logger

	mu                   sync.Mutex
	lastScheduledRunDate string // "2006-01-02" in cfg.Location, or "" if never
	running              bool
	startupRan           bool
}

// NewLoop builds a Loop, applying the boot/catch-up policy
// immediately: if the process starts after ScheduleTime on an allowed
// day and catch-up is disabled, today is marked as already fired so
// the loop waits for the next scheduled day (scheduler.py's boot
// guard).
func NewLoop(cfg LoopConfig, runner Runner, log *slog.Logger) *Loop {
	l := &Loop{cfg: cfg, runner: runner, log: log}

	now := time.Now().In(cfg.Location)
	if !cfg.CatchupOnBoot && cfg.AllowedDays[isoWeekday(now)] && cfg.ScheduleTime.AtOrAfter(now.Hour(), now.Minute()) {
		l.lastScheduledRunDate = now.Format("2006-01-02")
		log.Info("pipeline loop: boot after schedule time, catch-up disabled, waiting for next scheduled day",
			"schedule_time", cfg.ScheduleTime.String())
	}
	return l
}

func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// Run drives the poll loop until ctx is cancelled (spec.md's SIGTERM/
// SIGINT -> shutdown-flag-checked-between-polls cancellation model:
// an in-flight run is never interrupted, only the next poll is
// skipped).
func (l *Loop) Run(ctx context.Context) {
	if l.cfg.RunOnStartup {
		l.mu.Lock()
		alreadyRan := l.startupRan
		l.startupRan = true
		l.mu.Unlock()
		if !alreadyRan {
			l.fire(ctx, "startup")
		}
	}

	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.log.Info("pipeline loop: stopped")
			return
		case <-ticker.C:
			l.pollOnce(ctx)
		}
	}
}

func (l *Loop) pollOnce(ctx context.Context) {
	now := time.Now().In(l.cfg.Location)
	if l.shouldTrigger(now) {
		l.mu.Lock()
		// Mark the date before running so a long run spanning minute
		// boundaries doesn't double-fire.
		l.lastScheduledRunDate = now.Format("2006-01-02")
		l.mu.Unlock()
		l.fire(ctx, "daily schedule")
	}
}

// shouldTrigger is scheduler.py's _should_trigger_scheduled_run.
func (l *Loop) shouldTrigger(now time.Time) bool {
	if !l.cfg.AllowedDays[isoWeekday(now)] {
		return false
	}
	l.mu.Lock()
	last := l.lastScheduledRunDate
	l.mu.Unlock()
	if last == now.Format("2006-01-02") {
		return false
	}
	return l.cfg.ScheduleTime.AtOrAfter(now.Hour(), now.Minute())
}

func (l *Loop) fire(ctx context.Context, reason string) {
	l.mu.Lock()
	l.running = true
	l.mu.Unlock()

	l.log.Info("pipeline loop: trigger", "reason", reason)
	start := time.Now()
	if _, err := l.runner.Run(ctx); err != nil {
		l.log.Error("pipeline loop: run failed", "reason", reason, "error", err)
	} else {
		l.log.Info("pipeline loop: run complete", "reason", reason, "elapsed", time.Since(start))
	}

	l.mu.Lock()
	l.running = false
	l.mu.Unlock()
}

// RunNow triggers a synchronous run outside the daily schedule (the
// facade's POST /run-now), without touching lastScheduledRunDate.
func (l *Loop) RunNow(ctx context.Context) (pipelinestore.PipelineRunStats, error) {
	l.mu.Lock()
	l.running = true
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()
	return l.runner.Run(ctx)
}

// Status reports the loop's current in-process state for the
// facade's /health endpoint.
type Status struct {
	Running              bool
	LastScheduledRunDate string
}

func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Status{Running: l.running, LastScheduledRunDate: l.lastScheduledRunDate}
}
