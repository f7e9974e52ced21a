// Package auth provides best-effort, unverified diagnostics over the
// streamer token handed back in principals. The gateway, not this client,
// is the only party able to verify the token; this package never signs or
// validates it, only peeks at claims for logging when the token happens to
// be a JWT.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of registered claims PeekExpiry reports.
type Claims struct {
	jwt.RegisteredClaims
}

// PeekExpiry parses token without verifying its signature and returns its
// expiry, if present. Tokens that are not JWTs (the common case for this
// gateway, which issues an opaque string) return ok=false and no error:
// the caller is expected to log-and-continue, never to fail login over it.
func PeekExpiry(token string) (expiry time.Time, ok bool, err error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	var claims Claims
	_, _, parseErr := parser.ParseUnverified(token, &claims)
	if parseErr != nil {
		return time.Time{}, false, nil
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false, nil
	}
	return claims.ExpiresAt.Time, true, nil
}

// MustFormat renders an expiry for log fields without panicking on a zero
// time, which PeekExpiry returns when ok is false.
func MustFormat(expiry time.Time) string {
	if expiry.IsZero() {
		return "unknown"
	}
	return fmt.Sprintf("%s (%s from now)", expiry.Format(time.RFC3339), time.Until(expiry).Round(time.Second))
}
