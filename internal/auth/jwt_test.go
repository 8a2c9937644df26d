package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	a := NewJWTAuthenticator("secret", "gigflow", "gigflow")

	token, err := a.GenerateToken("user-123", time.Hour)
	require.NoError(t, err)

	parsed, err := a.ValidateToken(token)
	require.NoError(t, err)
	sub, err := a.Subject(parsed)
	require.NoError(t, err)
	assert.Equal(t, "user-123", sub)
}

func TestValidateTokenRejects(t *testing.T) {
	a := NewJWTAuthenticator("secret", "gigflow", "gigflow")

	other := NewJWTAuthenticator("other-secret", "gigflow", "gigflow")
	forged, err := other.GenerateToken("user-123", time.Hour)
	require.NoError(t, err)
	_, err = a.ValidateToken(forged)
	assert.Error(t, err, "wrong key")

	wrongIss := NewJWTAuthenticator("secret", "gigflow", "someone-else")
	tok, err := wrongIss.GenerateToken("user-123", time.Hour)
	require.NoError(t, err)
	_, err = a.ValidateToken(tok)
	assert.Error(t, err, "wrong issuer")

	past := NewJWTAuthenticator("secret", "gigflow", "gigflow")
	past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := past.GenerateToken("user-123", time.Hour)
	require.NoError(t, err)
	_, err = a.ValidateToken(expired)
	assert.Error(t, err, "expired")

	_, err = a.ValidateToken("not-a-jwt")
	assert.Error(t, err)
}

func TestSubjectRequired(t *testing.T) {
	a := NewJWTAuthenticator("secret", "gigflow", "gigflow")
	tok, err := a.GenerateToken("", time.Hour)
	require.NoError(t, err)

	parsed, err := a.ValidateToken(tok)
	require.NoError(t, err)
	_, err = a.Subject(parsed)
	assert.ErrorIs(t, err, ErrMissingSubject)
}
