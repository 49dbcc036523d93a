package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "voxledger/internal/app/errors"
	"voxledger/internal/app/export"
	"voxledger/internal/app/model"
	"voxledger/internal/app/quota"
	"voxledger/internal/app/storage"
	"voxledger/internal/app/testutil"
)

// TestPipeline_EndToEnd walks the whole flow with a worker pool between
// admission and processing: a user at 95 of 100 minutes is refused a
// 10-minute job, then gets a 4-minute job transcribed, billed and
// exported.
func TestPipeline_EndToEnd(t *testing.T) {
	ctx := context.Background()

	blobs, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	store := testutil.NewMemoryStore()
	ledger := quota.NewLedger(store)
	eng := testutil.NewMockEngine()

	orch := NewOrchestrator(store, testutil.NewMockFactory(eng), blobs,
		export.NewGenerator(blobs, storage.ArtifactKey))
	pool := NewPool(orch, 2, 16)
	pool.Start(ctx)

	prober := &fixedProber{seconds: decimal.RequireFromString("600")}
	admitter := NewAdmitter(store, blobs, prober, ledger, quota.NewMutexLocker(), pool)
	admitter.now = func() time.Time { return testutil.Now }

	u := testutil.NewTestUser("u1")
	u.MinutesProcessed = decimal.RequireFromString("95")
	require.NoError(t, store.CreateUser(ctx, u))

	// 10-minute small job: refused, nothing created.
	_, err = admitter.Submit(ctx, submitReq(model.TierSmall))
	var qerr *apperrors.QuotaExceededError
	require.ErrorAs(t, err, &qerr)
	assert.Empty(t, store.Jobs)

	// 4-minute base job: admitted and completed by a worker.
	prober.seconds = decimal.RequireFromString("240")
	j, err := admitter.Submit(ctx, submitReq(model.TierBase))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := store.GetJob(ctx, j.ID)
		return err == nil && got.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)
	pool.Shutdown()

	got, err := store.GetJob(ctx, j.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, "0.68", got.Cost.String())

	after, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "99", after.MinutesProcessed.String())
	assert.Equal(t, "0.68", after.TotalCost.String())

	entries, err := store.ListUsageByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].MinutesProcessed.Equal(decimal.NewFromInt(4)))
	assert.Equal(t, "0.68", entries[0].Cost.String())

	// The reconciliation invariant: ledger sum equals the cached total.
	var sum decimal.Decimal
	for _, e := range entries {
		sum = sum.Add(e.Cost)
	}
	assert.True(t, sum.Equal(after.TotalCost))
}
