// Package quota tracks per-user consumption against the monthly allowance
// and gates admission. The accounting period is the calendar month.
package quota

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	apperrors "voxledger/internal/app/errors"
	"voxledger/internal/app/model"
	"voxledger/internal/app/repository"
)

// ResetOp describes a pending period rollover for one user.
type ResetOp struct {
	UserID      string
	PeriodStart time.Time
}

// PeriodStart returns the first instant of now's accounting period.
func PeriodStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// samePeriod reports whether a and b fall in the same calendar month.
func samePeriod(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// ComputeReset is the pure half of the reset contract: it returns the
// ResetOp to apply when the user's reset date belongs to an earlier
// period, nil otherwise. It never mutates anything.
func ComputeReset(user *model.User, now time.Time) *ResetOp {
	if samePeriod(user.QuotaResetDate, now) {
		return nil
	}
	return &ResetOp{UserID: user.ID, PeriodStart: PeriodStart(now)}
}

// Ledger answers admission questions and commits completed work. Callers
// must hold the per-user admission lock around any check-then-create
// sequence (see Locker).
type Ledger struct {
	store repository.UserStore
}

// NewLedger creates a quota ledger over the user store.
func NewLedger(store repository.UserStore) *Ledger {
	return &Ledger{store: store}
}

// ApplyReset zeroes the period counter and advances the reset date
// atomically. The store guard makes it idempotent under concurrent
// readers; the first caller wins and the rest see applied=false.
func (l *Ledger) ApplyReset(ctx context.Context, op *ResetOp) (bool, error) {
	return l.store.ApplyQuotaReset(ctx, op.UserID, op.PeriodStart)
}

// RemainingMinutes returns max(0, quota - consumed) for the current
// period, applying the period rollover first if one is due. A read can
// therefore mutate persisted state; that is why the two-phase split
// exists for callers that need to tell the difference.
func (l *Ledger) RemainingMinutes(ctx context.Context, userID string, now time.Time) (decimal.Decimal, error) {
	user, err := l.store.GetUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	if op := ComputeReset(user, now); op != nil {
		if _, err := l.ApplyReset(ctx, op); err != nil {
			return decimal.Zero, err
		}
		user, err = l.store.GetUser(ctx, userID)
		if err != nil {
			return decimal.Zero, err
		}
	}

	remaining := user.MonthlyQuotaMinutes.Sub(user.MinutesProcessed)
	if remaining.IsNegative() {
		return decimal.Zero, nil
	}
	return remaining, nil
}

// CanAdmit reports whether requestedMinutes fit in the user's remaining
// allowance. It runs before any expensive work so rejection is cheap.
func (l *Ledger) CanAdmit(ctx context.Context, userID string, requestedMinutes decimal.Decimal, now time.Time) (bool, error) {
	remaining, err := l.RemainingMinutes(ctx, userID, now)
	if err != nil {
		return false, err
	}
	return remaining.GreaterThanOrEqual(requestedMinutes), nil
}

// Admit is CanAdmit returning a QuotaExceededError carrying the numbers
// when the request does not fit.
func (l *Ledger) Admit(ctx context.Context, userID string, requestedMinutes decimal.Decimal, now time.Time) error {
	remaining, err := l.RemainingMinutes(ctx, userID, now)
	if err != nil {
		return err
	}
	if remaining.LessThan(requestedMinutes) {
		return &apperrors.QuotaExceededError{Requested: requestedMinutes, Remaining: remaining}
	}
	return nil
}

// Commit adds minutesProcessed and costDelta to the user's running
// totals. Both are additive; cost in particular accumulates and is never
// overwritten. Called only on job completion.
func (l *Ledger) Commit(ctx context.Context, userID string, minutesProcessed, costDelta decimal.Decimal) error {
	return l.store.IncrementUserTotals(ctx, userID, minutesProcessed, costDelta)
}
