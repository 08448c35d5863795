package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	apperrors "budgetapp/internal/errors"
	"budgetapp/internal/logger"
)

// PipelineKeyHeader carries the shared secret of the snapshot pipeline.
const PipelineKeyHeader = "X-API-Key"

// callerKey marks requests admitted by PipelineAuthMiddleware.
const callerKey = "caller"

// PipelineAuthMiddleware admits machine callers of /pipeline routes. Requests
// are rejected with 503 while no key is configured, so an empty key never
// opens the routes.
func PipelineAuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			abortWithAppError(c, apperrors.ErrPipelineNotConfigured)
			return
		}

		key := c.GetHeader(PipelineKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			logger.Get().Warnw("Rejected pipeline request",
				"path", c.Request.URL.Path,
				"client_ip", c.ClientIP(),
				"key_present", key != "",
			)
			abortWithAppError(c, apperrors.ErrInvalidAPIKey)
			return
		}

		c.Set(callerKey, "pipeline")
		c.Next()
	}
}
