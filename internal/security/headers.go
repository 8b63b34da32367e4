// Package security adds defensive HTTP response headers.
package security

import (
	"os"

	"github.com/gin-gonic/gin"
)

// HeadersMiddleware sets baseline security headers on every response. The
// API serves research data, not user content, but it may end up exposed on
// a shared host next to things that do.
func HeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		// Only meaningful behind TLS
		if os.Getenv("ENABLE_HSTS") == "true" {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
