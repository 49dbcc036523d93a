// Package usage reads the append-only ledger: per-user summaries, the
// reconciliation check against the cached user totals, and the xlsx
// report.
package usage

import (
	"context"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"voxledger/internal/app/model"
	"voxledger/internal/app/repository"
)

// Service answers usage queries from the ledger.
type Service struct {
	store repository.Store
}

// NewService creates a usage service over the store.
func NewService(store repository.Store) *Service {
	return &Service{store: store}
}

// Summary aggregates a user's ledger entries.
type Summary struct {
	Entries      int
	TotalMinutes decimal.Decimal
	TotalCost    decimal.Decimal
	ByTier       map[model.ModelTier]TierUsage
}

// TierUsage is the per-tier slice of a summary.
type TierUsage struct {
	Entries int
	Minutes decimal.Decimal
	Cost    decimal.Decimal
}

// Summarize folds the user's ledger into totals and a per-tier breakdown.
func (s *Service) Summarize(ctx context.Context, userID string) (*Summary, error) {
	entries, err := s.store.ListUsageByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Entries:      len(entries),
		TotalMinutes: sumMinutes(entries),
		TotalCost:    sumCost(entries),
		ByTier:       make(map[model.ModelTier]TierUsage),
	}
	for tier, group := range lo.GroupBy(entries, func(e model.UsageEntry) model.ModelTier { return e.ModelTier }) {
		summary.ByTier[tier] = TierUsage{
			Entries: len(group),
			Minutes: sumMinutes(group),
			Cost:    sumCost(group),
		}
	}
	return summary, nil
}

// Reconciliation compares the ledger against the user's cached totals.
// The ledger is the source of truth; any drift means the cached
// aggregates were updated outside the completion transaction.
type Reconciliation struct {
	LedgerCost    decimal.Decimal
	CachedCost    decimal.Decimal
	LedgerMinutes decimal.Decimal // entries in the current period only
	CachedMinutes decimal.Decimal
}

// Consistent reports whether both invariants hold: lifetime cost and
// period minutes each match their cached aggregate.
func (r *Reconciliation) Consistent() bool {
	return r.LedgerCost.Equal(r.CachedCost) && r.LedgerMinutes.Equal(r.CachedMinutes)
}

// Reconcile recomputes the invariants for one user. Cost is compared over
// the full ledger; minutes only over entries since the last quota reset,
// because the period counter zeroes on rollover.
func (s *Service) Reconcile(ctx context.Context, userID string) (*Reconciliation, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListUsageByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	periodEntries := lo.Filter(entries, func(e model.UsageEntry, _ int) bool {
		return !e.CreatedAt.Before(user.QuotaResetDate)
	})

	return &Reconciliation{
		LedgerCost:    sumCost(entries),
		CachedCost:    user.TotalCost,
		LedgerMinutes: sumMinutes(periodEntries),
		CachedMinutes: user.MinutesProcessed,
	}, nil
}

func sumCost(entries []model.UsageEntry) decimal.Decimal {
	return lo.Reduce(entries, func(agg decimal.Decimal, e model.UsageEntry, _ int) decimal.Decimal {
		return agg.Add(e.Cost)
	}, decimal.Zero)
}

func sumMinutes(entries []model.UsageEntry) decimal.Decimal {
	return lo.Reduce(entries, func(agg decimal.Decimal, e model.UsageEntry, _ int) decimal.Decimal {
		return agg.Add(e.MinutesProcessed)
	}, decimal.Zero)
}
