package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codeready-toolchain/acem/internal/pipeline/cityrotation"
	pipelinestore "github.com/codeready-toolchain/acem/internal/store/pipeline"
)

// DiscoveredLead is one candidate a LeadSearcher returns for a city.
type DiscoveredLead struct {
	Domain      string
	CompanyName string
	Website     string
	City        string
	Country     string
	Snippet     string
	Phone       string
}

// LeadSearcher looks up marketing agencies in a city/country. The
// real Apollo.io-backed client body is out of scope (spec.md
// Non-goals); NullLeadSearcher is the zero-configuration default that
// mirrors discover_leads.py's "APOLLO_API_KEY not configured, skipping"
// behavior.
type LeadSearcher interface {
	SearchByLocation(ctx context.Context, city, country string, limit int) ([]DiscoveredLead, error)
}

// NullLeadSearcher always returns no leads, logging on every call that
// no provider is configured.
type NullLeadSearcher struct{ Log *slog.Logger }

func (s NullLeadSearcher) SearchByLocation(ctx context.Context, city, country string, limit int) ([]DiscoveredLead, error) {
	if s.Log != nil {
		s.Log.Error("discover: no lead searcher configured, skipping discovery")
	}
	return nil, nil
}

// discoveryStore is the subset of pipeline.Store DiscoverLeads needs.
type discoveryStore interface {
	LeadExists(ctx context.Context, domain string) (bool, error)
	InsertLead(ctx context.Context, in pipelinestore.LeadInput) (*int64, error)
}

// DiscoverLeads is run_pipeline.py/discover_leads.py's stage 1: rotate
// through cities (via the cityrotation package) inserting new,
// non-excluded leads until target is reached or maxCityAttempts
// cities have been tried. Returns the count of newly inserted leads.
func DiscoverLeads(ctx context.Context, store discoveryStore, rotator *cityrotation.Rotator, searcher LeadSearcher, target int, log *slog.Logger) (int, error) {
	inserted := 0
	seen := make(map[[2]string]bool)

	for inserted < target {
		attempt, err := rotator.Advance(ctx, seen)
		if err != nil {
			return inserted, fmt.Errorf("discover: %w", err)
		}
		if attempt == nil {
			if len(seen) == 0 {
				log.Error("discover: no cities in rotation")
			}
			break
		}

		remaining := target - inserted
		searchLimit := remaining + 10 // margin for duplicates/excluded domains

		log.Info("discover: searching city", "city", attempt.CityName, "country", attempt.Country)
		candidates, err := searcher.SearchByLocation(ctx, attempt.CityName, attempt.Country, searchLimit)
		if err != nil {
			log.Warn("discover: search failed", "city", attempt.CityName, "error", err)
			continue
		}

		insertedThisCity := 0
		for _, c := range candidates {
			if IsExcludedDomain(c.Website, pipelinestore.ExcludedDomains) {
				continue
			}
			exists, err := store.LeadExists(ctx, c.Domain)
			if err != nil {
				return inserted, fmt.Errorf("discover: lead exists: %w", err)
			}
			if exists {
				continue
			}
			id, err := store.InsertLead(ctx, pipelinestore.LeadInput{
				Domain:      c.Domain,
				CompanyName: c.CompanyName,
				Website:     c.Website,
				Phone:       c.Phone,
				City:        c.City,
				Country:     c.Country,
				Snippet:     c.Snippet,
			})
			if err != nil {
				return inserted, fmt.Errorf("discover: insert lead: %w", err)
			}
			if id != nil {
				inserted++
				insertedThisCity++
				if inserted >= target {
					break
				}
			}
		}

		log.Info("discover: city complete", "city", attempt.CityName, "country", attempt.Country,
			"found", len(candidates), "inserted", insertedThisCity, "total", inserted, "target", target)
	}

	if inserted < target {
		log.Warn("discover: target not reached", "cities_tried", len(seen), "inserted", inserted, "target", target)
	}
	return inserted, nil
}
