// Package pricing holds the per-minute rate table and the cost function
// used by the completion accounting path.
package pricing

import (
	"github.com/shopspring/decimal"

	"voxledger/internal/app/errors"
	"voxledger/internal/app/model"
)

// ratePerMinute maps each tier to its price in currency units per minute,
// ascending by compute cost.
var ratePerMinute = map[model.ModelTier]decimal.Decimal{
	model.TierTiny:   decimal.RequireFromString("0.09"),
	model.TierBase:   decimal.RequireFromString("0.17"),
	model.TierSmall:  decimal.RequireFromString("0.35"),
	model.TierMedium: decimal.RequireFromString("0.70"),
	model.TierLarge:  decimal.RequireFromString("1.40"),
}

// Rate returns the per-minute rate for a tier. Admission validates the tier
// set, so an unknown tier here is a bug and fails loudly instead of
// defaulting.
func Rate(tier model.ModelTier) (decimal.Decimal, error) {
	rate, ok := ratePerMinute[tier]
	if !ok {
		return decimal.Zero, errors.Wrapf(errors.ErrUnknownTier, "tier %q", tier)
	}
	return rate, nil
}

// Cost computes durationMinutes x rate[tier], rounded to four fractional
// digits with exact decimal arithmetic.
func Cost(durationMinutes decimal.Decimal, tier model.ModelTier) (decimal.Decimal, error) {
	rate, err := Rate(tier)
	if err != nil {
		return decimal.Zero, err
	}
	return durationMinutes.Mul(rate).Round(4), nil
}
