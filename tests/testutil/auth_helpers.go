package testutil

import (
	"strings"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/wholesale-orders-api/middleware"
)

const (
	// SubjectHeader carries the token subject for MockTokenMiddleware
	SubjectHeader = "X-Test-Subject"
	// ScopesHeader replaces the granted scopes with a space separated list
	ScopesHeader = "X-Test-Scopes"
)

// DefaultScopes are granted to every mock token without a ScopesHeader
var DefaultScopes = []string{"read:orders", "write:orders", middleware.ScopeManageSettings}

// MockValidatedClaims creates a mock ValidatedClaims for testing
func MockValidatedClaims(subject, issuer string, scopes []string) *validator.ValidatedClaims {
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Issuer:  issuer,
			Subject: subject,
		},
		CustomClaims: &middleware.CustomClaims{
			Scope: strings.Join(scopes, " "),
		},
	}
}

// SetMockAuthContext sets up a mock authenticated context for testing
func SetMockAuthContext(c *gin.Context, userID string, issuer string, scopes []string) {
	claims := MockValidatedClaims(userID, issuer, scopes)
	c.Set("user_id", userID)
	c.Set("validated_claims", claims)
}

// MockTokenMiddleware stands in for EnsureValidToken. The subject is read from
// SubjectHeader and requests without it are rejected the way a missing token is.
func MockTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.GetHeader(SubjectHeader)
		if subject == "" {
			c.AbortWithStatusJSON(401, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHENTICATED",
					"message": "Failed to validate JWT.",
				},
			})
			return
		}
		scopes := DefaultScopes
		if raw, ok := c.Request.Header[ScopesHeader]; ok {
			scopes = strings.Fields(strings.Join(raw, " "))
		}
		SetMockAuthContext(c, subject, "https://test.auth0.com/", scopes)
		c.Next()
	}
}
