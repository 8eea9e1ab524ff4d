// Package auth holds client-side credential checks: local token expiry and
// form validation. The backend remains the authority on both.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Expired reports whether an access token's exp claim is already in the
// past. The token is parsed without signature verification: the client does
// not hold the signing key, and a wrong answer only costs one rejected
// request against /users/me. Unparsable tokens are deferred to the backend.
func Expired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Time.Before(now)
}
