package testutil

import (
	"strings"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/discr/discr-api/middleware"
	"github.com/gin-gonic/gin"
)

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
	c.Set("user_id", userID)
	c.Set("access_token", "mock-token")
	c.Set("validated_claims", MockValidatedClaims(userID, issuer, scopes))
}

// MockAuthMiddleware authenticates every request as userID
func MockAuthMiddleware(userID string, scopes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		SetMockAuthContext(c, userID, "https://test.auth0.com/", scopes)
		c.Next()
	}
}
