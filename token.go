package authclient

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reads the exp claim of a JWT access token without verifying
// its signature. Verification belongs to the issuing service; the client only
// needs to know when to refresh. Opaque tokens report false.
func TokenExpiry(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Count(raw, ".") != 2 {
		return time.Time{}, false
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}

	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}

	return claims.ExpiresAt.Time, true
}

// tokenNeedsRefresh reports whether raw expires before now+skew.
func tokenNeedsRefresh(raw string, now time.Time, skew time.Duration) bool {
	exp, ok := TokenExpiry(raw)
	if !ok {
		return false
	}
	return !now.Add(skew).Before(exp)
}
