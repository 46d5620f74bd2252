// Package middleware provides gin middleware for the assistant service.
package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CronAuth gates the maintenance trigger behind a shared secret. Callers may
// present the secret either as a ?key= query parameter (for cron services
// that can only issue plain GET/POST requests) or as a bearer token.
//
// When no secret is configured the endpoint fails closed: every request is
// rejected rather than letting an unconfigured deployment expose the
// trigger.
func CronAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			slog.Error("Maintenance trigger called but CRON_SECRET is not configured")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		presented := c.Query("key")
		if presented == "" {
			presented = extractBearerToken(c.GetHeader("Authorization"))
		}
		if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
			slog.Warn("Rejected maintenance trigger with bad credentials",
				slog.String("remote_addr", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Next()
	}
}

func extractBearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}
