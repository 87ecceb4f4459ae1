package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// TokenRepo persists refresh tokens (single 'token_hash' column, SHA-256
// hex of the raw token). A token lineage moves issued -> rotated/revoked
// or issued -> expired; a rotated or revoked row never validates again.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a refresh token hash row.
func (r *TokenRepo) Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp.UTC())
	return err
}

// Validate returns the owning userID if a non-revoked, non-expired row
// exists for the hash. The stored expiry is checked here independently of
// the JWT's own exp claim; the two checks back each other up.
func (r *TokenRepo) Validate(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("unknown refresh token: %w", ErrUnauthorized)
	}
	if err != nil {
		return 0, err
	}
	if revokedAt.Valid {
		return 0, fmt.Errorf("refresh token revoked: %w", ErrUnauthorized)
	}
	if time.Now().UTC().After(expiresAt) {
		return 0, fmt.Errorf("refresh token expired: %w", ErrUnauthorized)
	}
	return userID, nil
}

// RotateOut revokes a token as part of rotation. The conditional update
// serializes concurrent refresh calls racing on one token: only the call
// that flips revoked_at proceeds to mint a successor, every other racer
// sees zero affected rows and gets ErrUnauthorized. This is what keeps
// the single-active-chain invariant without a row lock.
func (r *TokenRepo) RotateOut(ctx context.Context, tokenHash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("refresh token already rotated: %w", ErrUnauthorized)
	}
	return nil
}

// Revoke marks a token revoked. Unlike RotateOut it is idempotent:
// revoking an already-revoked or unknown token is a successful no-op,
// which is what logout wants.
func (r *TokenRepo) Revoke(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// RevokeAllForUser revokes every active token of one user (logout from
// all sessions, account deactivation).
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}

// DeleteExpired removes rows that are expired or revoked and returns how
// many were swept. Deleting dead rows commutes with issuing unrelated new
// tokens, so the sweep is safe to run concurrently with request traffic.
func (r *TokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE expires_at <= UTC_TIMESTAMP() OR revoked_at IS NOT NULL")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
