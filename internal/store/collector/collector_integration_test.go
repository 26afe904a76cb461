//go:build integration

package collector

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newTestStore spins up a real Postgres (testcontainers locally, or
// CI_DATABASE_URL in CI), mirroring the teacher's test/database
// NewTestClient helper.
func newTestStore(t *testing.T) *Store {
	ctx := context.Background()

	connStr := os.Getenv("CI_DATABASE_URL")
	if connStr == "" {
		pgContainer, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("test"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = testcontainers.TerminateContainer(pgContainer)
		})

		connStr, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	store, err := Open(ctx, Config{DSN: connStr, MaxOpenConns: 5})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestIngestAndQueryRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	result, err := store.Ingest(ctx, IngestInput{
		AgentName:  " a ",
		Metrics:    map[string]any{"x": float64(3), "y": "ok", "status": true},
		StartedAt:  time.Now().UTC(),
		FinishedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, result.Status)

	runs, err := store.QueryRuns(ctx, QueryFilter{AgentName: " a ", Limit: 1})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, float64(3), runs[0].Metrics["x"])
	require.Equal(t, "ok", runs[0].Metrics["y"])
	require.Equal(t, "True", runs[0].Metrics["status"])
}

func TestIngestWithErrorMarksRunFailed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	result, err := store.Ingest(ctx, IngestInput{
		AgentName: "b",
		Metrics:   map[string]any{},
		StartedAt: time.Now().UTC(),
		Error:     "boom",
	})
	require.NoError(t, err)
	require.Equal(t, StatusFailed, result.Status)

	runs, err := store.QueryRuns(ctx, QueryFilter{AgentName: "b", Limit: 1})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.NotNil(t, runs[0].Error)
	require.Equal(t, "boom", *runs[0].Error)
	require.Empty(t, runs[0].Metrics)
}
