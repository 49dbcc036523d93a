package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultMonthlyQuotaMinutes is granted to every new account.
var DefaultMonthlyQuotaMinutes = decimal.NewFromInt(100)

// User is an account with running consumption totals. MinutesProcessed and
// TotalCost are cached aggregates over the usage ledger and are only ever
// updated transactionally alongside ledger inserts.
type User struct {
	ID                  string          `json:"id" db:"id"`
	Username            string          `json:"username" db:"username"`
	Email               string          `json:"email" db:"email"`
	Company             string          `json:"company,omitempty" db:"company"`
	Phone               string          `json:"phone,omitempty" db:"phone"`
	MinutesProcessed    decimal.Decimal `json:"minutes_processed" db:"minutes_processed"`
	TotalCost           decimal.Decimal `json:"total_cost" db:"total_cost"`
	MonthlyQuotaMinutes decimal.Decimal `json:"monthly_quota_minutes" db:"monthly_quota_minutes"`
	QuotaResetDate      time.Time       `json:"quota_reset_date" db:"quota_reset_date"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for User.
func (User) TableName() string {
	return "users"
}
