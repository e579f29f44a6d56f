package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireCronSecret admits only requests carrying "Authorization: Bearer <secret>".
// An empty secret rejects every request.
func RequireCronSecret(secret string) gin.HandlerFunc {
	expected := []byte("Bearer " + secret)
	return func(c *gin.Context) {
		header := []byte(c.GetHeader("Authorization"))
		if secret == "" || subtle.ConstantTimeCompare(header, expected) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHENTICATED",
					"message": "Invalid or missing cron secret",
				},
			})
			return
		}
		c.Next()
	}
}
