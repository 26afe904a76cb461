// Package pipeline implements the lead-generation pipeline core of
// spec.md §4.E: seven stages run in strict order against the pipeline
// store, each isolated behind its own failure boundary.
//
// Driver is run_pipeline.py's main() ported to Go: a PipelineRun row
// is always written in a deferred close-over-error function, stage
// failures are logged and recorded as zero counts without aborting
// the run, and only a driver-level panic stops it short; Run recovers
// that panic itself, records it among the run's errors and returns it
// as an error.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pipelineai "github.com/codeready-toolchain/acem/internal/pipeline/ai"
	"github.com/codeready-toolchain/acem/internal/pipeline/cityrotation"
	"github.com/codeready-toolchain/acem/internal/pipeline/enrich"
	"github.com/codeready-toolchain/acem/internal/pipeline/outreach"
	pipelinestore "github.com/codeready-toolchain/acem/internal/store/pipeline"
)

// driverStore is the subset of pipeline.Store the driver and its
// stages need. *pipelinestore.Store satisfies it directly.
type driverStore interface {
	discoveryStore
	websiteEnrichmentStore
	emailEnrichmentStore
	aiAnalysisStore
	reportStore
	outreachStore

	LogPipelineRun(ctx context.Context, stats pipelinestore.PipelineRunStats) error
	TotalLeadsCount(ctx context.Context) (int64, error)
	UnsentCount(ctx context.Context) (int64, error)
}

// Driver wires every stage's dependencies and runs them in order.
type Driver struct {
	Store  driverStore
	Log    *slog.Logger
	Config DriverConfig

	Rotator        *cityrotation.Rotator
	Searcher       LeadSearcher
	WebsiteScraper *enrich.WebsiteScraper
	PersonEnricher PersonEnricher
	OrgPhone       OrgPhoneEnricher
	FreeEmail      *enrich.FreeEmailFinder
	AIProviders    []pipelineai.Provider
	Excel          ExcelBuilder
	Sender         ReportSender
	Transport      outreach.Transport
}

// DriverConfig carries the tunables run_pipeline.py reads from
// tools/config.py.
type DriverConfig struct {
	LeadsPerDay      int
	Recipient        string
	FollowupDays     int
	PageDelay        time.Duration
	RateLimitDelay   time.Duration
	AIRequestDelay   time.Duration
}

// stageResult is what one stage boundary reports back to Run.
type stageResult struct {
	count int
	err   error
}

// runStage invokes fn inside a failure boundary: a panic is recovered
// and converted into an error, exactly as a plain error return would
// be, so a defective stage body can never abort the whole run
// (belt-and-suspenders beyond the spec's plain try/except boundary,
// grounded on BaseAgent.Execute's defensive handling).
func runStage(name string, fn func() (int, error)) (result stageResult) {
	defer func() {
		if r := recover(); r != nil {
			result = stageResult{err: fmt.Errorf("%s: panicked: %v", name, r)}
		}
	}()
	count, err := fn()
	return stageResult{count: count, err: err}
}

// Run executes all seven stages in order, returning the accumulated
// stats. It always writes a PipelineRun row, even when a stage
// (or the driver itself) fails.
func (d *Driver) Run(ctx context.Context) (stats pipelinestore.PipelineRunStats, err error) {
	start := time.Now()
	runDate := time.Now().UTC().Format("2006-01-02")

	d.Log.Info("pipeline: run start", "run_date", runDate)

	defer func() {
		stats.DurationSeconds = time.Since(start).Seconds()
		if logErr := d.Store.LogPipelineRun(ctx, stats); logErr != nil {
			d.Log.Error("pipeline: failed to log run", "error", logErr)
		}
		d.Log.Info("pipeline: run complete",
			"duration_seconds", stats.DurationSeconds,
			"discovered", stats.Discovered, "enriched", stats.Enriched,
			"with_email", stats.WithEmail, "ai_analyzed", stats.AIAnalyzed,
			"sent", stats.Sent, "outreach_sent", stats.OutreachSent,
			"errors", len(stats.Errors))
	}()

	defer func() {
		if r := recover(); r != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("Critical: %v", r))
			err = fmt.Errorf("pipeline: critical: %v", r)
		}
	}()

	d.Log.Info("pipeline: stage 1 discover")
	r := runStage("discover", func() (int, error) {
		return DiscoverLeads(ctx, d.Store, d.Rotator, d.Searcher, d.Config.LeadsPerDay, d.Log)
	})
	stats.Discovered = r.count
	d.recordStageError(&stats, "Discovery", r.err)

	d.Log.Info("pipeline: stage 2a enrich website")
	r = runStage("enrich website", func() (int, error) {
		return EnrichWebsites(ctx, d.Store, d.WebsiteScraper, d.Config.LeadsPerDay, d.Config.PageDelay, d.Log)
	})
	stats.Enriched = r.count
	d.recordStageError(&stats, "Website enrichment", r.err)

	d.Log.Info("pipeline: stage 2b enrich apollo + free tier")
	r = runStage("enrich apollo", func() (int, error) {
		return EnrichEmailsApollo(ctx, d.Store, d.PersonEnricher, d.OrgPhone, d.FreeEmail, d.Config.LeadsPerDay, d.Config.RateLimitDelay, d.Log)
	})
	stats.WithEmail = r.count
	d.recordStageError(&stats, "Apollo enrichment", r.err)

	d.Log.Info("pipeline: stage 3 ai analysis")
	r = runStage("ai analysis", func() (int, error) {
		return AnalyzeLeads(ctx, d.Store, d.AIProviders, d.Config.LeadsPerDay, d.Config.AIRequestDelay, d.Log)
	})
	stats.AIAnalyzed = r.count
	d.recordStageError(&stats, "AI analysis", r.err)

	d.Log.Info("pipeline: stage 4-5 build outputs + send report")
	r = runStage("build and send report", func() (int, error) {
		return BuildAndSendReport(ctx, d.Store, d.Excel, d.Sender, d.Config.Recipient, runDate, d.Config.LeadsPerDay, d.Log)
	})
	stats.Sent = r.count
	d.recordStageError(&stats, "Report send", r.err)

	outreachSent := 0
	d.Log.Info("pipeline: stage 6 outreach")
	r = runStage("send outreach", func() (int, error) {
		return SendOutreach(ctx, d.Store, d.Transport, d.AIProviders, d.Config.LeadsPerDay, d.Config.AIRequestDelay, d.Log)
	})
	outreachSent += r.count
	d.recordStageError(&stats, "Outreach", r.err)

	d.Log.Info("pipeline: stage 7 followups")
	r = runStage("send followups", func() (int, error) {
		return SendFollowups(ctx, d.Store, d.Transport, d.AIProviders, d.Config.FollowupDays, d.Config.AIRequestDelay, d.Log)
	})
	outreachSent += r.count
	d.recordStageError(&stats, "Followups", r.err)
	stats.OutreachSent = outreachSent

	return stats, nil
}

func (d *Driver) recordStageError(stats *pipelinestore.PipelineRunStats, label string, err error) {
	if err == nil {
		return
	}
	d.Log.Error("pipeline: stage failed", "stage", label, "error", err)
	stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %s", label, err.Error()))
}
