package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sigmarp/medical-api/pkg/logger"
)

// Logger returns a middleware that logs HTTP requests. Bodies are never
// logged since they carry clinical data.
func Logger(l *logger.Logger) gin.HandlerFunc {
	zl := l.Zerolog()
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}
		statusCode := c.Writer.Status()

		var event *zerolog.Event
		msg := "Request processed"
		switch {
		case statusCode >= 500:
			event, msg = zl.Error(), "Server error"
		case statusCode >= 400:
			event, msg = zl.Warn(), "Client error"
		default:
			event = zl.Info()
		}

		if actor, ok := ActorFrom(c); ok {
			event = event.Str("actor_dni", actor.DNI)
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str("request_id", c.GetString(ContextRequestID)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("ip", c.ClientIP()).
			Int("status", statusCode).
			Dur("duration", time.Since(start)).
			Str("user_agent", c.Request.UserAgent()).
			Msg(msg)
	}
}
