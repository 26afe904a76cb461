package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := Open(context.Background(), "", filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLeadExistsAndInsertLead(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	exists, err := store.LeadExists(ctx, "acme.com")
	require.NoError(t, err)
	require.False(t, exists)

	id, err := store.InsertLead(ctx, LeadInput{Domain: "acme.com", CompanyName: "Acme"})
	require.NoError(t, err)
	require.NotNil(t, id)

	// Duplicate insert is a no-op, not an error (spec.md §8 property).
	dupID, err := store.InsertLead(ctx, LeadInput{Domain: "acme.com", CompanyName: "Acme Again"})
	require.NoError(t, err)
	require.Nil(t, dupID)

	exists, err = store.LeadExists(ctx, "acme.com")
	require.NoError(t, err)
	require.True(t, exists)

	count, err := store.TotalLeadsCount(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestLeadsNeedingEmailEnrichmentRegressionGuard(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.InsertLead(ctx, LeadInput{Domain: "tried-apollo.com", Website: "https://tried-apollo.com"})
	require.NoError(t, err)
	require.NotNil(t, id)

	none := EmailSourceNone
	require.NoError(t, store.UpdateLeadEnrichment(ctx, *id, EnrichmentUpdate{EmailSource: &none}))

	// A lead previously tagged email_source="none" (Apollo matched,
	// no email) must still surface here -- filtering by email_source
	// would be the bug spec.md §4.E.3 calls out.
	leads, err := store.LeadsNeedingEmailEnrichment(ctx, 30)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	require.Equal(t, "tried-apollo.com", leads[0].Domain)

	// Once an email is set, the lead must no longer need enrichment.
	email := "hello@tried-apollo.com"
	require.NoError(t, store.UpdateLeadEnrichment(ctx, *id, EnrichmentUpdate{Email: &email}))
	leads, err = store.LeadsNeedingEmailEnrichment(ctx, 30)
	require.NoError(t, err)
	require.Empty(t, leads)
}

func TestCityRotationAdvancesAndResets(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.NextCity(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)
	require.Equal(t, "Madrid", first.CityName) // first seeded, never searched

	require.NoError(t, store.UpdateCitySearched(ctx, first.CityName, first.Country))

	second, err := store.NextCity(ctx)
	require.NoError(t, err)
	require.NotEqual(t, first.CityName, second.CityName)

	reset, err := store.ResetCityRotation(ctx, "Lima", "Peru")
	require.NoError(t, err)
	require.True(t, reset)

	next, err := store.NextCity(ctx)
	require.NoError(t, err)
	require.Equal(t, "Lima", next.CityName)
}

func TestUnsentLeadsPriorityOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.InsertLead(ctx, LeadInput{Domain: "neither.com"})
	require.NoError(t, err)
	idBoth, err := store.InsertLead(ctx, LeadInput{Domain: "both.com", Phone: "123"})
	require.NoError(t, err)
	idEmailOnly, err := store.InsertLead(ctx, LeadInput{Domain: "email-only.com"})
	require.NoError(t, err)

	for _, id := range []*int64{idBoth, idEmailOnly} {
		email := "x@example.com"
		require.NoError(t, store.UpdateLeadEnrichment(ctx, *id, EnrichmentUpdate{Email: &email}))
	}
	for _, domain := range []string{"neither.com", "both.com", "email-only.com"} {
		require.NoError(t, setAISummaryByDomain(t, store, domain, "summary"))
	}

	leads, err := store.UnsentLeads(ctx, 10)
	require.NoError(t, err)
	require.Len(t, leads, 3)
	require.Equal(t, "both.com", leads[0].Domain) // has email AND phone: top priority
}

func setAISummaryByDomain(t *testing.T, store *Store, domain, summary string) error {
	t.Helper()
	ctx := context.Background()
	exists, err := store.LeadExists(ctx, domain)
	require.NoError(t, err)
	require.True(t, exists)
	var id int64
	require.NoError(t, store.queryRow(ctx, `SELECT id FROM leads WHERE domain = ?`, domain).Scan(&id))
	return store.UpdateLeadAI(ctx, id, summary, "[]")
}

func TestLogAndReadPipelineRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.LogPipelineRun(ctx, PipelineRunStats{
		Discovered:      5,
		Enriched:        3,
		WithEmail:       2,
		AIAnalyzed:      2,
		Sent:            2,
		OutreachSent:    1,
		Errors:          []string{"Discovery: timeout"},
		DurationSeconds: 2.5,
	}))

	runs, err := store.PipelineRunsSince(ctx, time.Unix(0, 0))
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.EqualValues(t, 5, runs[0].LeadsDiscovered)
	require.Equal(t, []string{"Discovery: timeout"}, runs[0].Errors)
}
