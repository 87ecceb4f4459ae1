package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	st, err := NewAccessToken(testSecret, 42, "a@example.com", 15)
	require.NoError(t, err)
	assert.NotEmpty(t, st.Token)
	assert.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), st.Exp, 5*time.Second)

	claims, err := VerifyToken(testSecret, st.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	st, err := NewRefreshToken(testSecret, 7, "b@example.com", 7)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(7*24*time.Hour), st.Exp, 5*time.Second)

	claims, err := VerifyToken(testSecret, st.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), claims.UserID)
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	st, err := NewAccessToken(testSecret, 42, "a@example.com", 15)
	require.NoError(t, err)

	_, err = VerifyToken("other-secret", st.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	claims := jwt.MapClaims{
		"sub":   float64(42),
		"email": "a@example.com",
		"exp":   time.Now().UTC().Add(-time.Minute).Unix(),
		"iat":   time.Now().UTC().Add(-2 * time.Minute).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = VerifyToken(testSecret, raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenRejectsUnsignedAlg(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": float64(42)})
	raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = VerifyToken(testSecret, raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenRejectsMissingSubject(t *testing.T) {
	claims := jwt.MapClaims{
		"email": "a@example.com",
		"exp":   time.Now().UTC().Add(time.Minute).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = VerifyToken(testSecret, raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenGarbage(t *testing.T) {
	_, err := VerifyToken(testSecret, "not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashTokenRaw(t *testing.T) {
	a := HashTokenRaw("token-one")
	b := HashTokenRaw("token-one")
	c := HashTokenRaw("token-two")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64) // hex-encoded SHA-256
	assert.NotContains(t, a, "token-one")
}
