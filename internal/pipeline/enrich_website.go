package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/acem/internal/pipeline/enrich"
	pipelinestore "github.com/codeready-toolchain/acem/internal/store/pipeline"
)

type websiteEnrichmentStore interface {
	LeadsNeedingEnrichment(ctx context.Context, limit int) ([]pipelinestore.Lead, error)
	UpdateLeadEnrichment(ctx context.Context, leadID int64, data pipelinestore.EnrichmentUpdate) error
}

// EnrichWebsites is run_pipeline.py's stage 2a: visits every lead
// still missing an email or scraped text and extracts what it can
// find via enrich.WebsiteScraper. Returns the count of leads given at
// least some new data.
func EnrichWebsites(ctx context.Context, store websiteEnrichmentStore, scraper *enrich.WebsiteScraper, limit int, pageDelay time.Duration, log *slog.Logger) (int, error) {
	leads, err := store.LeadsNeedingEnrichment(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("enrich website: list leads: %w", err)
	}
	if len(leads) == 0 {
		log.Info("enrich website: no leads need enrichment")
		return 0, nil
	}

	log.Info("enrich website: scraping leads", "count", len(leads))
	enriched := 0
	for _, lead := range leads {
		result := scraper.Scrape(lead.Website)
		update := pipelinestore.EnrichmentUpdate{}
		changed := false

		if result.Email != "" {
			update.Email = &result.Email
			update.EmailSource = &result.EmailSource
			changed = true
		}
		if result.ContactName != "" {
			update.ContactName = &result.ContactName
			changed = true
		}
		if result.Phone != "" {
			update.Phone = &result.Phone
			changed = true
		}
		if result.ScrapedText != "" {
			update.ScrapedText = &result.ScrapedText
			changed = true
		}

		if !changed {
			continue
		}
		if err := store.UpdateLeadEnrichment(ctx, lead.ID, update); err != nil {
			log.Warn("enrich website: update failed", "lead_id", lead.ID, "error", err)
			continue
		}
		enriched++
		time.Sleep(pageDelay)
	}

	log.Info("enrich website: complete", "enriched", enriched, "attempted", len(leads))
	return enriched, nil
}
