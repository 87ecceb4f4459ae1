package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/access-control/internal/config"
	"github.com/iliyamo/access-control/internal/repository"
	"github.com/iliyamo/access-control/internal/utils"
)

const userSelectByEmail = "SELECT id,name,email,password_hash,role_id,approved,active,created_at,updated_at FROM users WHERE email=? LIMIT 1"

func newAuthHandler(t *testing.T) (*AuthHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{
		Env:            "test",
		JWTSecret:      "test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		BcryptCost:     bcrypt.MinCost,
		DefaultRole:    "user",
	}
	return NewAuthHandler(cfg,
		repository.NewUserRepo(db),
		repository.NewRoleRepo(db),
		repository.NewTokenRepo(db),
		repository.NewPermissionRepo(db)), mock
}

func userRow(t *testing.T, id uint64, email, password string, approved, active bool) *sqlmock.Rows {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "role_id", "approved", "active", "created_at", "updated_at"}).
		AddRow(id, "Test User", email, hash, nil, approved, active, now, now)
}

func postSignIn(t *testing.T, h *AuthHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/signin", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h.SignIn(e.NewContext(req, rec)))
	return rec
}

func TestSignInUnknownEmail(t *testing.T) {
	h, mock := newAuthHandler(t)
	mock.ExpectQuery(userSelectByEmail).WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rec := postSignIn(t, h, `{"email":"ghost@example.com","password":"whatever"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid credentials")
}

func TestSignInWrongPasswordBeatsStateChecks(t *testing.T) {
	// A deactivated account with a wrong password reads as bad
	// credentials, not as deactivated; state must not leak past the
	// credential check.
	h, mock := newAuthHandler(t)
	mock.ExpectQuery(userSelectByEmail).WithArgs("a@example.com").
		WillReturnRows(userRow(t, 7, "a@example.com", "right-password", false, false))

	rec := postSignIn(t, h, `{"email":"a@example.com","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid credentials")
}

func TestSignInDeactivatedAccount(t *testing.T) {
	h, mock := newAuthHandler(t)
	mock.ExpectQuery(userSelectByEmail).WithArgs("a@example.com").
		WillReturnRows(userRow(t, 7, "a@example.com", "secret", true, false))

	rec := postSignIn(t, h, `{"email":"a@example.com","password":"secret"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "deactivated")
}

func TestSignInPendingApproval(t *testing.T) {
	h, mock := newAuthHandler(t)
	mock.ExpectQuery(userSelectByEmail).WithArgs("a@example.com").
		WillReturnRows(userRow(t, 7, "a@example.com", "secret", false, true))

	rec := postSignIn(t, h, `{"email":"a@example.com","password":"secret"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "pending approval")
}

func TestSignInMissingFields(t *testing.T) {
	h, _ := newAuthHandler(t)
	rec := postSignIn(t, h, `{"email":"","password":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignInNormalizesEmail(t *testing.T) {
	h, mock := newAuthHandler(t)
	// Upper-cased, padded input must query the normalized address.
	mock.ExpectQuery(userSelectByEmail).WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rec := postSignIn(t, h, `{"email":"  A@Example.COM  ","password":"secret"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
