package middlewares

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeaders sets the headers every JSON response carries. Search results
// contain shared links, so the referrer is never forwarded.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
