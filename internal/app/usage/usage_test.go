package usage

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"voxledger/internal/app/model"
	"voxledger/internal/app/testutil"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedLedger(t *testing.T, store *testutil.MemoryStore) {
	t.Helper()
	u := testutil.NewTestUser("u1")
	u.MinutesProcessed = dec("9.5")
	u.TotalCost = dec("4.305")
	require.NoError(t, store.CreateUser(context.Background(), u))

	// One entry from a previous period, two from the current one.
	store.Usage = []model.UsageEntry{
		{ID: 1, UserID: "u1", JobID: "j0", MinutesProcessed: dec("10"), Cost: dec("1.7"),
			ModelTier: model.TierBase, CreatedAt: time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)},
		{ID: 2, UserID: "u1", JobID: "j1", MinutesProcessed: dec("4"), Cost: dec("0.68"),
			ModelTier: model.TierBase, CreatedAt: time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC)},
		{ID: 3, UserID: "u1", JobID: "j2", MinutesProcessed: dec("5.5"), Cost: dec("1.925"),
			ModelTier: model.TierSmall, CreatedAt: time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)},
	}
}

func TestSummarize(t *testing.T) {
	store := testutil.NewMemoryStore()
	seedLedger(t, store)

	summary, err := NewService(store).Summarize(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Entries)
	assert.Equal(t, "19.5", summary.TotalMinutes.String())
	assert.Equal(t, "4.305", summary.TotalCost.String())

	require.Len(t, summary.ByTier, 2)
	base := summary.ByTier[model.TierBase]
	assert.Equal(t, 2, base.Entries)
	assert.Equal(t, "14", base.Minutes.String())
	assert.Equal(t, "2.38", base.Cost.String())
}

func TestReconcile_Consistent(t *testing.T) {
	store := testutil.NewMemoryStore()
	seedLedger(t, store)

	rec, err := NewService(store).Reconcile(context.Background(), "u1")
	require.NoError(t, err)

	// Cost reconciles over the whole ledger; minutes only over entries
	// created since the July reset (4 + 5.5).
	assert.Equal(t, "4.305", rec.LedgerCost.String())
	assert.Equal(t, "9.5", rec.LedgerMinutes.String())
	assert.True(t, rec.Consistent())
}

func TestReconcile_DetectsDrift(t *testing.T) {
	store := testutil.NewMemoryStore()
	seedLedger(t, store)

	// Simulate a cached total updated outside the completion transaction.
	store.Users["u1"].TotalCost = dec("99")

	rec, err := NewService(store).Reconcile(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, rec.Consistent())
	assert.Equal(t, "99", rec.CachedCost.String())
}

func TestReconcile_EmptyLedger(t *testing.T) {
	store := testutil.NewMemoryStore()
	require.NoError(t, store.CreateUser(context.Background(), testutil.NewTestUser("u2")))

	rec, err := NewService(store).Reconcile(context.Background(), "u2")
	require.NoError(t, err)
	assert.True(t, rec.Consistent())
	assert.True(t, rec.LedgerCost.IsZero())
}

func TestWriteReport(t *testing.T) {
	store := testutil.NewMemoryStore()
	seedLedger(t, store)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(store.Usage, &buf))

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)

	sheet := file.Sheets[0]
	// Header + three entries + totals row.
	require.Len(t, sheet.Rows, 5)
	assert.Equal(t, "Entry ID", sheet.Rows[0].Cells[0].Value)
	assert.Equal(t, "base", sheet.Rows[1].Cells[3].Value)
	assert.Equal(t, "TOTAL", sheet.Rows[4].Cells[0].Value)
	assert.Equal(t, "4.305", sheet.Rows[4].Cells[5].Value)
}
