package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenRepo(t *testing.T) (*TokenRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewTokenRepo(db), mock
}

func TestTokenValidate(t *testing.T) {
	const hash = "aabbcc"

	t.Run("unknown token", func(t *testing.T) {
		repo, mock := newTokenRepo(t)
		mock.ExpectQuery("SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1").
			WithArgs(hash).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}))

		_, err := repo.Validate(context.Background(), hash)
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("revoked token", func(t *testing.T) {
		repo, mock := newTokenRepo(t)
		now := time.Now().UTC()
		mock.ExpectQuery("SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1").
			WithArgs(hash).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
				AddRow(7, now.Add(time.Hour), now))

		_, err := repo.Validate(context.Background(), hash)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("expired even when not revoked", func(t *testing.T) {
		repo, mock := newTokenRepo(t)
		mock.ExpectQuery("SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1").
			WithArgs(hash).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
				AddRow(7, time.Now().UTC().Add(-time.Minute), nil))

		_, err := repo.Validate(context.Background(), hash)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("live token", func(t *testing.T) {
		repo, mock := newTokenRepo(t)
		mock.ExpectQuery("SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1").
			WithArgs(hash).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
				AddRow(7, time.Now().UTC().Add(time.Hour), nil))

		userID, err := repo.Validate(context.Background(), hash)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), userID)
	})
}

func TestTokenRotateOut(t *testing.T) {
	const hash = "ddeeff"
	const query = "UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=? AND revoked_at IS NULL"

	t.Run("first rotation wins", func(t *testing.T) {
		repo, mock := newTokenRepo(t)
		mock.ExpectExec(query).WithArgs(hash).WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.RotateOut(context.Background(), hash))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second rotation of the same token loses", func(t *testing.T) {
		// A racer hitting the row after revoked_at was set affects zero
		// rows and must not mint a successor.
		repo, mock := newTokenRepo(t)
		mock.ExpectExec(query).WithArgs(hash).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.RotateOut(context.Background(), hash)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestTokenRevokeIsIdempotent(t *testing.T) {
	repo, mock := newTokenRepo(t)
	// Zero affected rows is success for logout.
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=? AND revoked_at IS NULL").
		WithArgs("nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Revoke(context.Background(), "nope"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenDeleteExpired(t *testing.T) {
	repo, mock := newTokenRepo(t)
	mock.ExpectExec("DELETE FROM refresh_tokens WHERE expires_at <= UTC_TIMESTAMP() OR revoked_at IS NOT NULL").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestTokenStore(t *testing.T) {
	repo, mock := newTokenRepo(t)
	exp := time.Now().Add(24 * time.Hour)
	mock.ExpectExec("INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)").
		WithArgs(uint64(9), "hash", exp.UTC()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Store(context.Background(), 9, "hash", exp))
	assert.NoError(t, mock.ExpectationsWereMet())
}
