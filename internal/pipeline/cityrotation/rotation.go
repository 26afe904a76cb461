// Package cityrotation advances the fixed city-search rotation that
// drives discovery (spec.md §4.E.2), grounded on
// original_source/agents/lead_generation/tools/discover_leads.py: the
// oldest-last_searched city (ties broken by lowest search_count) is
// picked next, the pointer always advances even on a zero-lead city so
// rotation never stalls, and at most maxCityAttempts cities are tried
// per run.
package cityrotation

import (
	"context"
	"fmt"

	pipelinestore "github.com/codeready-toolchain/acem/internal/store/pipeline"
)

const maxCityAttempts = 10

// Store is the subset of pipeline.Store the rotator needs.
type Store interface {
	NextCity(ctx context.Context) (*pipelinestore.City, error)
	UpdateCitySearched(ctx context.Context, cityName, country string) error
}

// Attempt is one city visited during a discovery run.
type Attempt struct {
	CityName string
	Country  string
	Language string
}

// Rotator advances the city pointer across a discovery run.
type Rotator struct {
	store Store
}

// New builds a Rotator over store.
func New(store Store) *Rotator {
	return &Rotator{store: store}
}

// Advance picks the next city in rotation and marks it searched. It
// returns nil, nil once maxCityAttempts distinct cities have already
// been seen this run (tracked via seen), mirroring discover_leads.py's
// attempted_cities guard against re-visiting a city within one run.
func (r *Rotator) Advance(ctx context.Context, seen map[[2]string]bool) (*Attempt, error) {
	if len(seen) >= maxCityAttempts {
		return nil, nil
	}

	city, err := r.store.NextCity(ctx)
	if err != nil {
		return nil, fmt.Errorf("cityrotation: next city: %w", err)
	}
	if city == nil {
		return nil, nil
	}

	key := [2]string{city.CityName, city.Country}
	if seen[key] {
		return nil, nil
	}

	if err := r.store.UpdateCitySearched(ctx, city.CityName, city.Country); err != nil {
		return nil, fmt.Errorf("cityrotation: update city searched: %w", err)
	}
	seen[key] = true

	return &Attempt{CityName: city.CityName, Country: city.Country, Language: city.Language}, nil
}

// MaxAttempts exposes the per-run city attempt ceiling.
func MaxAttempts() int { return maxCityAttempts }
