package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"budgetapp/internal/logger"
)

const (
	requestIDKey    = "requestID"
	RequestIDHeader = "X-Request-ID"
)

// RequestID returns the id RequestLogging assigned to the request.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RequestLogging logs one line per request. An inbound X-Request-ID that
// parses as a UUID is kept so a caller can correlate its own logs; otherwise
// a new one is generated. Paths in skip are not logged.
func RequestLogging(skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)

		c.Next()

		if _, ok := skipped[c.FullPath()]; ok {
			return
		}

		fields := []interface{}{
			"request_id", requestID,
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if userID := c.GetString("userID"); userID != "" {
			fields = append(fields, "user_id", userID)
		}
		if caller := c.GetString(callerKey); caller != "" {
			fields = append(fields, "caller", caller)
		}

		log := logger.Get()
		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Errorw("request", fields...)
		case status >= 400:
			log.Warnw("request", fields...)
		default:
			log.Infow("request", fields...)
		}
	}
}
