package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sigmarp/medical-api/pkg/httputil"
)

// DefaultMaxBodySize bounds request bodies. Recruitment descriptions are the
// largest payloads the API accepts.
const DefaultMaxBodySize int64 = 1 << 20

// SizeLimit rejects bodies larger than maxBytes.
func SizeLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			httputil.RespondWithStatus(c, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", maxBytes))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
