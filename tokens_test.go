package authclient_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authclient "github.com/goliatone/go-authclient"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return raw
}

func TestSessionExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var nilSession *authclient.Session
	assert.False(t, nilSession.Expired(now))

	// no known expiry: the backend has the final word
	assert.False(t, (&authclient.Session{AccessToken: "tok"}).Expired(now))

	past := &authclient.Session{AccessToken: "tok", ExpiresAt: now.Add(-time.Hour).Unix()}
	assert.True(t, past.Expired(now))

	future := &authclient.Session{AccessToken: "tok", ExpiresAt: now.Add(time.Hour).Unix()}
	assert.False(t, future.Expired(now))
}

func TestSessionNormalizeBackfillsExpiry(t *testing.T) {
	exp := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	session := &authclient.Session{
		AccessToken: signedToken(t, jwt.MapClaims{"sub": "u1", "exp": exp.Unix()}),
	}

	session.Normalize()
	assert.Equal(t, exp.Unix(), session.ExpiresAt)
}

func TestSessionNormalizeKeepsExplicitExpiry(t *testing.T) {
	session := &authclient.Session{
		AccessToken: signedToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}),
		ExpiresAt:   42,
	}

	session.Normalize()
	assert.Equal(t, int64(42), session.ExpiresAt)
}

func TestSessionNormalizeToleratesGarbageToken(t *testing.T) {
	session := &authclient.Session{AccessToken: "not-a-jwt"}
	session.Normalize()
	assert.Zero(t, session.ExpiresAt)

	var nilSession *authclient.Session
	nilSession.Normalize()
}

func TestTokenSubject(t *testing.T) {
	raw := signedToken(t, jwt.MapClaims{"sub": "user-42"})

	sub, ok := authclient.TokenSubject(raw)
	require.True(t, ok)
	assert.Equal(t, "user-42", sub)

	_, ok = authclient.TokenSubject("garbage")
	assert.False(t, ok)

	_, ok = authclient.TokenSubject(signedToken(t, jwt.MapClaims{"aud": "none"}))
	assert.False(t, ok, "token without sub claim")
}
