package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/access-control/internal/model"
)

type stubUsers struct {
	user model.User
	err  error
}

func (s stubUsers) GetByID(context.Context, uint64) (model.User, error) {
	return s.user, s.err
}

type stubChecker struct {
	has bool
	err error

	gotModule string
	gotRole   *uint64
}

func (s *stubChecker) HasModuleAccess(_ context.Context, _ uint64, roleID *uint64, module string) (bool, error) {
	s.gotModule = module
	s.gotRole = roleID
	return s.has, s.err
}

func activeUser() model.User {
	roleID := uint64(2)
	return model.User{ID: 7, RoleID: &roleID, Active: true, Approved: true}
}

func runModuleGate(t *testing.T, users UserGetter, checker AccessChecker, authed bool) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if authed {
		c.Set(CtxUserID, uint64(7))
	}

	reached := false
	h := RequireModule(users, checker, "reports")(func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec, reached
}

func TestRequireModuleAllowsGrantedUser(t *testing.T) {
	checker := &stubChecker{has: true}
	rec, reached := runModuleGate(t, stubUsers{user: activeUser()}, checker, true)

	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "reports", checker.gotModule)
	require.NotNil(t, checker.gotRole)
	assert.Equal(t, uint64(2), *checker.gotRole)
}

func TestRequireModuleRejectsWithoutGrant(t *testing.T) {
	rec, reached := runModuleGate(t, stubUsers{user: activeUser()}, &stubChecker{has: false}, true)
	assert.False(t, reached)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireModuleRejectsAnonymous(t *testing.T) {
	rec, reached := runModuleGate(t, stubUsers{user: activeUser()}, &stubChecker{has: true}, false)
	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireModuleRejectsInactiveUser(t *testing.T) {
	u := activeUser()
	u.Active = false
	rec, reached := runModuleGate(t, stubUsers{user: u}, &stubChecker{has: true}, true)
	assert.False(t, reached)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireModuleRejectsUnapprovedUser(t *testing.T) {
	u := activeUser()
	u.Approved = false
	rec, reached := runModuleGate(t, stubUsers{user: u}, &stubChecker{has: true}, true)
	assert.False(t, reached)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireModuleRejectsUnknownUser(t *testing.T) {
	rec, reached := runModuleGate(t, stubUsers{err: errors.New("no rows")}, &stubChecker{has: true}, true)
	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireModuleCheckerFailure(t *testing.T) {
	rec, reached := runModuleGate(t, stubUsers{user: activeUser()}, &stubChecker{err: errors.New("db down")}, true)
	assert.False(t, reached)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
