// Package routes wires the v1 handlers onto a gin router group.
package routes

import (
	"github.com/gin-gonic/gin"

	"voxledger/internal/api/v1/handlers"
)

// Register mounts all v1 endpoints under the given group.
func Register(v1 *gin.RouterGroup, jobs *handlers.JobHandler, users *handlers.UserHandler) {
	jobRoutes := v1.Group("/jobs")
	{
		jobRoutes.POST("", jobs.Submit)
		jobRoutes.GET("", jobs.List)
		jobRoutes.GET("/:id", jobs.Get)
		jobRoutes.POST("/:id/cancel", jobs.Cancel)
		jobRoutes.GET("/:id/transcript", jobs.Transcript)
		jobRoutes.GET("/:id/exports/:format", jobs.Export)
	}

	userRoutes := v1.Group("/users")
	{
		userRoutes.POST("", users.Create)
		userRoutes.GET("/:id", users.Get)
		userRoutes.GET("/:id/quota", users.Quota)
		userRoutes.GET("/:id/usage", users.Usage)
		userRoutes.GET("/:id/usage/report", users.UsageReport)
		userRoutes.GET("/:id/reconciliation", users.Reconcile)
	}
}
