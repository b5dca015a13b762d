package authclient

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Expired reports whether the session's expiry has passed. A session with
// no known expiry is never considered expired locally; the backend has the
// final word either way.
func (s *Session) Expired(now time.Time) bool {
	if s == nil || s.ExpiresAt == 0 {
		return false
	}
	return now.Unix() >= s.ExpiresAt
}

// Normalize backfills ExpiresAt from the access token's exp claim when the
// backend omitted it. The claim is read without signature verification:
// this is bookkeeping, not trust. Only the backend validates tokens.
func (s *Session) Normalize() {
	if s == nil || s.ExpiresAt != 0 || s.AccessToken == "" {
		return
	}
	if exp, ok := tokenExpiry(s.AccessToken); ok {
		s.ExpiresAt = exp.Unix()
	}
}

// TokenSubject returns the sub claim of an access token, read without
// verification. Used for diagnostics and activity events only.
func TokenSubject(raw string) (string, bool) {
	claims, ok := peekClaims(raw)
	if !ok {
		return "", false
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}
	return sub, true
}

func tokenExpiry(raw string) (time.Time, bool) {
	claims, ok := peekClaims(raw)
	if !ok {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func peekClaims(raw string) (jwt.MapClaims, bool) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, false
	}
	return claims, true
}
