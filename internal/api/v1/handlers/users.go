package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"voxledger/internal/api/middleware"
	"voxledger/internal/api/v1/dto"
	"voxledger/internal/app/model"
	"voxledger/internal/app/quota"
	"voxledger/internal/app/repository"
	"voxledger/internal/app/usage"
)

// UserHandler serves account, quota and usage endpoints.
type UserHandler struct {
	store  repository.Store
	ledger *quota.Ledger
	usage  *usage.Service
	now    func() time.Time
}

// NewUserHandler creates the user endpoints.
func NewUserHandler(store repository.Store, ledger *quota.Ledger, usageSvc *usage.Service) *UserHandler {
	return &UserHandler{store: store, ledger: ledger, usage: usageSvc, now: time.Now}
}

// Create handles POST /users. New accounts start with the default
// monthly quota and a reset date at the start of the current month.
func (h *UserHandler) Create(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := middleware.ValidateJSON(c, &req); err != nil {
		middleware.HandleError(c, err)
		return
	}

	now := h.now().UTC()
	u := &model.User{
		ID:                  uuid.New().String(),
		Username:            req.Username,
		Email:               req.Email,
		Company:             req.Company,
		Phone:               req.Phone,
		MonthlyQuotaMinutes: model.DefaultMonthlyQuotaMinutes,
		QuotaResetDate:      quota.PeriodStart(now),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := h.store.CreateUser(c.Request.Context(), u); err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewUserResponse(u))
}

// Get handles GET /users/:id.
func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.store.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(u))
}

// Quota handles GET /users/:id/quota. Reading remaining quota may
// lazily roll the user into the current period first, so the account
// is re-read afterwards.
func (h *UserHandler) Quota(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("id")

	remaining, err := h.ledger.RemainingMinutes(ctx, userID, h.now().UTC())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	u, err := h.store.GetUser(ctx, userID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.QuotaResponse{
		UserID:           u.ID,
		RemainingMinutes: remaining.String(),
		TotalMinutes:     u.MonthlyQuotaMinutes.String(),
		UsedMinutes:      u.MinutesProcessed.String(),
		TotalCost:        u.TotalCost.String(),
	})
}

// Usage handles GET /users/:id/usage: the ledger plus its totals.
func (h *UserHandler) Usage(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("id")

	if _, err := h.store.GetUser(ctx, userID); err != nil {
		middleware.HandleError(c, err)
		return
	}
	entries, err := h.store.ListUsageByUser(ctx, userID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	summary, err := h.usage.Summarize(ctx, userID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUsageResponse(userID, entries, summary))
}

// UsageReport handles GET /users/:id/usage/report and streams the
// ledger as an xlsx workbook.
func (h *UserHandler) UsageReport(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("id")

	if _, err := h.store.GetUser(ctx, userID); err != nil {
		middleware.HandleError(c, err)
		return
	}
	entries, err := h.store.ListUsageByUser(ctx, userID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="usage-`+userID+`.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := usage.WriteReport(entries, c.Writer); err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// Reconcile handles GET /users/:id/reconciliation and reports whether
// the cached aggregates still agree with the usage ledger.
func (h *UserHandler) Reconcile(c *gin.Context) {
	userID := c.Param("id")
	rec, err := h.usage.Reconcile(c.Request.Context(), userID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ReconciliationResponse{
		UserID:        userID,
		Consistent:    rec.Consistent(),
		LedgerCost:    rec.LedgerCost.String(),
		CachedCost:    rec.CachedCost.String(),
		LedgerMinutes: rec.LedgerMinutes.String(),
		CachedMinutes: rec.CachedMinutes.String(),
	})
}
