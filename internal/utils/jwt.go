// Package utils provides helpers for token creation, verification and
// hashing. Both access and refresh tokens are HS256 JWTs carrying the
// same claim shape {sub, email, iat, exp}; they differ only in TTL.
// Refresh tokens are additionally persisted by their SHA-256 hash so a
// stolen database dump cannot be replayed as live sessions.
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a JWT fails signature or expiry
// verification, or does not carry the expected claims.
var ErrInvalidToken = errors.New("invalid token")

// TokenClaims is the decoded payload shared by access and refresh tokens.
type TokenClaims struct {
	UserID uint64 // sub claim
	Email  string // email claim
}

// SignedToken pairs a serialized JWT with its expiration time so handlers
// can report expiry to clients without re-parsing the token.
type SignedToken struct {
	Token string
	Exp   time.Time
}

// NewAccessToken builds and signs a short-lived HS256 JWT. ttlMin is the
// time-to-live in minutes.
func NewAccessToken(secret string, userID uint64, email string, ttlMin int) (SignedToken, error) {
	return signToken(secret, userID, email, time.Duration(ttlMin)*time.Minute)
}

// NewRefreshToken builds and signs a long-lived HS256 JWT. ttlDays is the
// time-to-live in days. The caller persists HashTokenRaw of the result.
func NewRefreshToken(secret string, userID uint64, email string, ttlDays int) (SignedToken, error) {
	return signToken(secret, userID, email, time.Duration(ttlDays)*24*time.Hour)
}

func signToken(secret string, userID uint64, email string, ttl time.Duration) (SignedToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// VerifyToken parses a JWT, checks its signature and expiry against the
// secret and returns the decoded claims. Tokens signed with anything but
// HMAC are rejected outright.
func VerifyToken(secret, raw string) (TokenClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v: %w", t.Header["alg"], ErrInvalidToken)
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return TokenClaims{}, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, ErrInvalidToken
	}
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return TokenClaims{}, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	return TokenClaims{UserID: uint64(sub), Email: email}, nil
}

// HashTokenRaw returns the SHA-256 hash of a raw refresh token as a hex
// string; only this digest is stored in refresh_tokens.token_hash.
func HashTokenRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
