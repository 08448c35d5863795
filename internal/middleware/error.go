package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "budgetapp/internal/errors"
	"budgetapp/internal/logger"
)

// abortWithAppError stops the chain and answers with the error envelope.
func abortWithAppError(c *gin.Context, appErr *apperrors.AppError) {
	c.AbortWithStatusJSON(appErr.StatusCode, gin.H{
		"error": gin.H{"code": appErr.Code, "message": appErr.Message},
	})
}

// ErrorHandler answers for errors pushed on the gin context with c.Error.
// Binding errors become INVALID_INPUT; anything that is not an AppError is
// logged and hidden behind INTERNAL_ERROR.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		last := c.Errors.Last()
		log := logger.With("path", c.Request.URL.Path, "method", c.Request.Method)
		if id := c.GetString(requestIDKey); id != "" {
			log = log.With("request_id", id)
		}

		var appErr *apperrors.AppError
		switch {
		case errors.As(last.Err, &appErr):
			if appErr.Internal != nil {
				log.Errorw("Request failed", "code", appErr.Code, "error", appErr.Internal.Error())
			}
		case last.IsType(gin.ErrorTypeBind):
			appErr = apperrors.WithMessage(apperrors.ErrInvalidInput, last.Error())
		default:
			log.Errorw("Unhandled request error", "error", last.Error())
			appErr = apperrors.ErrInternalServer
		}

		abortWithAppError(c, appErr)
	}
}
