package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"

	"github.com/sigmarp/medical-api/pkg/httputil"
	"github.com/sigmarp/medical-api/pkg/logger"
)

// Recovery turns panics into 500 responses and reports them to Sentry when a
// client is configured.
func Recovery(l *logger.Logger) gin.HandlerFunc {
	zl := l.Zerolog()
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				requestID := c.GetString(ContextRequestID)

				zl.Error().
					Interface("error", rec).
					Str("stack", string(debug.Stack())).
					Str("method", c.Request.Method).
					Str("path", c.Request.URL.Path).
					Str("client_ip", c.ClientIP()).
					Str("request_id", requestID).
					Msg("Request panic recovered")

				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetTag("request_id", requestID)
				hub.Scope().SetRequest(c.Request)
				hub.CaptureException(fmt.Errorf("panic: %v", rec))

				httputil.RespondWithStatus(c, http.StatusInternalServerError, "Internal server error")
			}
		}()
		c.Next()
	}
}
