package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// requestLogger tags each request with an id and logs it once finished.
func requestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Set("request_id", id)

		c.Next()

		fields := []any{
			"request_id", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if a := actor(c); a != "" {
			fields = append(fields, "actor", a)
		}
		switch {
		case len(c.Errors) > 0:
			log.Errorw("request failed", append(fields, "error", c.Errors.String())...)
		case c.Writer.Status() >= 500:
			log.Errorw("request failed", fields...)
		default:
			log.Infow("request", fields...)
		}
	}
}

// recovery turns panics into a 500 envelope.
func recovery(log *zap.SugaredLogger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		log.Errorw("panic in handler", "request_id", c.GetString("request_id"), "panic", rec)
		c.AbortWithStatusJSON(http.StatusInternalServerError, envelope{Message: "internal error"})
	})
}
