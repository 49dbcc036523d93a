package dto

import (
	"time"

	"voxledger/internal/app/model"
	"voxledger/internal/app/usage"
)

// CreateUserRequest registers a new account.
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Company  string `json:"company"`
	Phone    string `json:"phone"`
}

// UserResponse is the account snapshot.
type UserResponse struct {
	ID                  string    `json:"id"`
	Username            string    `json:"username"`
	Email               string    `json:"email"`
	Company             string    `json:"company,omitempty"`
	MinutesProcessed    string    `json:"minutes_processed"`
	TotalCost           string    `json:"total_cost"`
	MonthlyQuotaMinutes string    `json:"monthly_quota_minutes"`
	QuotaResetDate      time.Time `json:"quota_reset_date"`
	CreatedAt           time.Time `json:"created_at"`
}

// NewUserResponse converts the model.
func NewUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:                  u.ID,
		Username:            u.Username,
		Email:               u.Email,
		Company:             u.Company,
		MinutesProcessed:    u.MinutesProcessed.String(),
		TotalCost:           u.TotalCost.String(),
		MonthlyQuotaMinutes: u.MonthlyQuotaMinutes.String(),
		QuotaResetDate:      u.QuotaResetDate,
		CreatedAt:           u.CreatedAt,
	}
}

// QuotaResponse answers the remaining-quota query.
type QuotaResponse struct {
	UserID           string `json:"user_id"`
	RemainingMinutes string `json:"remaining_minutes"`
	TotalMinutes     string `json:"total_minutes"`
	UsedMinutes      string `json:"used_minutes"`
	TotalCost        string `json:"total_cost"`
}

// UsageEntryResponse is one ledger record.
type UsageEntryResponse struct {
	ID               int64     `json:"id"`
	JobID            string    `json:"job_id"`
	MinutesProcessed string    `json:"minutes_processed"`
	Cost             string    `json:"cost"`
	ModelTier        string    `json:"model_tier"`
	CreatedAt        time.Time `json:"created_at"`
}

// UsageResponse wraps a user's ledger with its totals.
type UsageResponse struct {
	UserID       string               `json:"user_id"`
	Entries      []UsageEntryResponse `json:"entries"`
	TotalMinutes string               `json:"total_minutes"`
	TotalCost    string               `json:"total_cost"`
}

// NewUsageResponse converts ledger entries plus their summary.
func NewUsageResponse(userID string, entries []model.UsageEntry, summary *usage.Summary) UsageResponse {
	resp := UsageResponse{
		UserID:       userID,
		Entries:      make([]UsageEntryResponse, 0, len(entries)),
		TotalMinutes: summary.TotalMinutes.String(),
		TotalCost:    summary.TotalCost.String(),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, UsageEntryResponse{
			ID:               e.ID,
			JobID:            e.JobID,
			MinutesProcessed: e.MinutesProcessed.String(),
			Cost:             e.Cost.String(),
			ModelTier:        string(e.ModelTier),
			CreatedAt:        e.CreatedAt,
		})
	}
	return resp
}

// ReconciliationResponse reports the ledger-vs-cache invariant check.
type ReconciliationResponse struct {
	UserID        string `json:"user_id"`
	Consistent    bool   `json:"consistent"`
	LedgerCost    string `json:"ledger_cost"`
	CachedCost    string `json:"cached_cost"`
	LedgerMinutes string `json:"ledger_minutes"`
	CachedMinutes string `json:"cached_minutes"`
}
