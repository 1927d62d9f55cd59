package history

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/postgres"
)

// Needs a reachable server configured through the IREVAL_POSTGRES_*
// variables.
func newStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("IREVAL_TEST_POSTGRES") == "" {
		t.Skip("IREVAL_TEST_POSTGRES not set")
	}
	cfg, err := config.Load("")
	require.NoError(t, err)
	client, err := postgres.New(context.Background(), cfg.Postgres)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	store := NewStore(client)
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestSaveLoadList(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	report := &evaluation.Report{
		RunID:       uuid.NewString(),
		StartedAt:   time.Now().UTC().Truncate(time.Millisecond),
		Duration:    1500 * time.Millisecond,
		K:           3,
		Limit:       100,
		Fingerprint: "00000000deadbeef",
		Fields: []evaluation.FieldReport{
			{Field: "title", MeanPrecisionAtK: 0.25, MeanPrecisionAtR: 0.5, MAP: 0.4, Evaluated: 4},
			{Field: "body", MeanPrecisionAtK: 0.1, MeanPrecisionAtR: 0.2, MAP: 0.3, Evaluated: 3, Skipped: 1},
		},
	}
	require.NoError(t, store.Save(ctx, report))

	loaded, err := store.Load(ctx, report.RunID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, report.Fields, loaded.Fields)

	missing, err := store.Load(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, missing)

	runs, err := store.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID, runs[0].RunID)
	require.Len(t, runs[0].Fields, 2)
	assert.Equal(t, "body", runs[0].Fields[0].Field)
}
