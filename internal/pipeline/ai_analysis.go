package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pipelineai "github.com/codeready-toolchain/acem/internal/pipeline/ai"
	pipelinestore "github.com/codeready-toolchain/acem/internal/store/pipeline"
)

type aiAnalysisStore interface {
	LeadsNeedingAI(ctx context.Context, limit int) ([]pipelinestore.Lead, error)
	UpdateLeadAI(ctx context.Context, leadID int64, summary string, automationSuggestionsJSON string) error
}

// AnalyzeLeads is run_pipeline.py's stage 3: generate a summary and
// three automation suggestions per lead via ai.Analyze, which itself
// falls back to a deterministic canned analysis when no provider is
// configured or every provider call fails.
func AnalyzeLeads(ctx context.Context, store aiAnalysisStore, providers []pipelineai.Provider, limit int, requestDelay time.Duration, log *slog.Logger) (int, error) {
	leads, err := store.LeadsNeedingAI(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("ai analysis: list leads: %w", err)
	}
	if len(leads) == 0 {
		log.Info("ai analysis: no leads need analysis")
		return 0, nil
	}

	log.Info("ai analysis: analyzing leads", "count", len(leads))
	analyzed := 0

	for _, lead := range leads {
		analysis := pipelineai.Analyze(ctx, pipelineai.Lead{
			CompanyName: lead.CompanyName,
			City:        lead.City,
			Country:     lead.Country,
			Website:     lead.Website,
			Phone:       lead.Phone,
			Snippet:     lead.Snippet,
			ScrapedText: lead.ScrapedText,
		}, providers...)

		automationsJSON, err := pipelineai.AutomationsJSON(analysis.Automations)
		if err != nil {
			log.Warn("ai analysis: marshal automations failed", "lead_id", lead.ID, "error", err)
			continue
		}

		if err := store.UpdateLeadAI(ctx, lead.ID, analysis.Summary, automationsJSON); err != nil {
			log.Warn("ai analysis: update failed", "lead_id", lead.ID, "error", err)
			continue
		}
		analyzed++
		time.Sleep(requestDelay)
	}

	log.Info("ai analysis: complete", "analyzed", analyzed, "attempted", len(leads))
	return analyzed, nil
}
