package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"voxledger/internal/api/errors"
)

// ErrorHandler recovers panics into a consistent JSON error body.
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestID := c.GetString(RequestIDKey)

		if err, ok := recovered.(error); ok {
			logger.Error("panic recovered",
				"error", err.Error(),
				"request_id", requestID,
				"path", c.Request.URL.Path,
				"method", c.Request.Method)
		} else {
			logger.Error("panic recovered", "recovered", recovered, "request_id", requestID)
		}

		apiErr := &errors.APIError{
			Kind:      errors.KindInternal,
			Message:   "internal server error",
			RequestID: requestID,
		}
		c.AbortWithStatusJSON(apiErr.HTTPStatus(), apiErr)
	})
}

// HandleError writes a domain error as its API representation. Internal
// errors are logged server-side; clients only see the generic body.
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	apiErr, ok := err.(*errors.APIError)
	if !ok {
		apiErr = errors.FromDomain(err)
	}
	apiErr.RequestID = c.GetString(RequestIDKey)

	if apiErr.Kind == errors.KindInternal {
		slog.Error("request failed",
			"error", err.Error(),
			"request_id", apiErr.RequestID,
			"path", c.Request.URL.Path)
	}
	c.AbortWithStatusJSON(apiErr.HTTPStatus(), apiErr)
}
