package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims represents the custom JWT claims for the API. The subject
// claim carries the user id; the identity provider stamps the display name
// and system-admin flag at token issuance.
type CustomClaims struct {
	DisplayName string `json:"displayName"`
	SystemAdmin bool   `json:"systemAdmin"`
	jwt.RegisteredClaims
}

// UserID returns the principal's user id (the subject claim).
func (c *CustomClaims) UserID() string {
	return c.Subject
}

// Validate performs additional validation on custom claims
func (c *CustomClaims) Validate() error {
	if c.Subject == "" {
		return jwt.ErrTokenInvalidClaims
	}
	return nil
}
