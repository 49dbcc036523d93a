package quota

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "voxledger/internal/app/errors"
	"voxledger/internal/app/testutil"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPeriodStart(t *testing.T) {
	got := PeriodStart(time.Date(2025, 7, 15, 23, 45, 1, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), got)

	// Non-UTC input normalizes to the UTC month.
	loc := time.FixedZone("UTC+9", 9*3600)
	got = PeriodStart(time.Date(2025, 8, 1, 3, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestComputeReset(t *testing.T) {
	now := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		resetDate time.Time
		wantOp    bool
	}{
		{"same period", time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), false},
		{"previous month", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), true},
		{"same month previous year", time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), true},
		{"mid-period reset date", time.Date(2025, 7, 14, 8, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := testutil.NewTestUser("u1")
			user.QuotaResetDate = tt.resetDate

			op := ComputeReset(user, now)
			if !tt.wantOp {
				assert.Nil(t, op)
				return
			}
			require.NotNil(t, op)
			assert.Equal(t, "u1", op.UserID)
			assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), op.PeriodStart)
		})
	}
}

func TestApplyReset_OncePerPeriod(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore()
	ledger := NewLedger(store)

	user := testutil.NewTestUser("u1")
	user.MinutesProcessed = dec("42.5")
	user.QuotaResetDate = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateUser(ctx, user))

	op := ComputeReset(user, testutil.Now)
	require.NotNil(t, op)

	applied, err := ledger.ApplyReset(ctx, op)
	require.NoError(t, err)
	assert.True(t, applied)

	// Second application of the same rollover is a no-op.
	applied, err = ledger.ApplyReset(ctx, op)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, 1, store.ResetApplied)

	got, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.MinutesProcessed.IsZero())
	assert.Equal(t, op.PeriodStart, got.QuotaResetDate)
}

func TestRemainingMinutes(t *testing.T) {
	ctx := context.Background()

	t.Run("simple subtraction", func(t *testing.T) {
		store := testutil.NewMemoryStore()
		user := testutil.NewTestUser("u1")
		user.MinutesProcessed = dec("95")
		require.NoError(t, store.CreateUser(ctx, user))

		remaining, err := NewLedger(store).RemainingMinutes(ctx, "u1", testutil.Now)
		require.NoError(t, err)
		assert.True(t, remaining.Equal(dec("5")), "got %s", remaining)
		assert.Equal(t, 0, store.ResetApplied)
	})

	t.Run("clamped at zero", func(t *testing.T) {
		store := testutil.NewMemoryStore()
		user := testutil.NewTestUser("u1")
		user.MinutesProcessed = dec("103.2")
		require.NoError(t, store.CreateUser(ctx, user))

		remaining, err := NewLedger(store).RemainingMinutes(ctx, "u1", testutil.Now)
		require.NoError(t, err)
		assert.True(t, remaining.IsZero(), "got %s", remaining)
	})

	t.Run("stale period resets first", func(t *testing.T) {
		store := testutil.NewMemoryStore()
		user := testutil.NewTestUser("u1")
		user.MinutesProcessed = dec("99.9")
		user.QuotaResetDate = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, store.CreateUser(ctx, user))

		remaining, err := NewLedger(store).RemainingMinutes(ctx, "u1", testutil.Now)
		require.NoError(t, err)
		assert.True(t, remaining.Equal(dec("100")), "got %s", remaining)
		assert.Equal(t, 1, store.ResetApplied)
	})

	t.Run("unknown user", func(t *testing.T) {
		store := testutil.NewMemoryStore()
		_, err := NewLedger(store).RemainingMinutes(ctx, "nobody", testutil.Now)
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})
}

func TestAdmit(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore()
	ledger := NewLedger(store)

	user := testutil.NewTestUser("u1")
	user.MinutesProcessed = dec("95")
	require.NoError(t, store.CreateUser(ctx, user))

	// 10 minutes against 5 remaining is rejected with the numbers attached.
	err := ledger.Admit(ctx, "u1", dec("10"), testutil.Now)
	var qerr *apperrors.QuotaExceededError
	require.ErrorAs(t, err, &qerr)
	assert.True(t, qerr.Requested.Equal(dec("10")), "got %s", qerr.Requested)
	assert.True(t, qerr.Remaining.Equal(dec("5")), "got %s", qerr.Remaining)

	// Rejection leaves consumption untouched.
	got, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.MinutesProcessed.Equal(dec("95")))

	// 4 minutes fit.
	require.NoError(t, ledger.Admit(ctx, "u1", dec("4"), testutil.Now))

	// Exactly the remaining allowance fits too.
	require.NoError(t, ledger.Admit(ctx, "u1", dec("5"), testutil.Now))

	ok, err := ledger.CanAdmit(ctx, "u1", dec("5.0001"), testutil.Now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCommit_Additive(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore()
	ledger := NewLedger(store)

	user := testutil.NewTestUser("u1")
	user.MinutesProcessed = dec("10")
	user.TotalCost = dec("1.7")
	require.NoError(t, store.CreateUser(ctx, user))

	require.NoError(t, ledger.Commit(ctx, "u1", dec("4"), dec("0.68")))
	require.NoError(t, ledger.Commit(ctx, "u1", dec("2.5"), dec("0.425")))

	got, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.MinutesProcessed.Equal(dec("16.5")), "got %s", got.MinutesProcessed)
	assert.True(t, got.TotalCost.Equal(dec("2.805")), "got %s", got.TotalCost)
}

func TestCommit_SurvivesReset(t *testing.T) {
	// TotalCost is lifetime; a period rollover zeroes minutes only.
	ctx := context.Background()
	store := testutil.NewMemoryStore()
	ledger := NewLedger(store)

	user := testutil.NewTestUser("u1")
	user.QuotaResetDate = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateUser(ctx, user))

	require.NoError(t, ledger.Commit(ctx, "u1", dec("30"), dec("5.1")))

	remaining, err := ledger.RemainingMinutes(ctx, "u1", testutil.Now)
	require.NoError(t, err)
	assert.True(t, remaining.Equal(dec("100")))

	got, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.TotalCost.Equal(dec("5.1")), "got %s", got.TotalCost)
}
