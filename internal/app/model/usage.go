package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UsageEntry is one immutable ledger record of completed billable work.
// Exactly one entry exists per job that reached completed.
type UsageEntry struct {
	ID               int64           `json:"id" db:"id"`
	UserID           string          `json:"user_id" db:"user_id"`
	JobID            string          `json:"job_id" db:"job_id"`
	MinutesProcessed decimal.Decimal `json:"minutes_processed" db:"minutes_processed"`
	Cost             decimal.Decimal `json:"cost" db:"cost"`
	ModelTier        ModelTier       `json:"model_tier" db:"model_tier"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}

// TableName returns the table name for UsageEntry.
func (UsageEntry) TableName() string {
	return "usage_entries"
}
