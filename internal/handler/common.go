// Package handler implements the HTTP endpoints: authentication, the
// admin surface (users, roles, modules, permissions, dashboard) and the
// caller-facing access queries. Handlers stay thin: they bind input, call
// a repository and translate sentinel errors into status codes.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/access-control/internal/model"
	"github.com/iliyamo/access-control/internal/repository"
)

// reqTimeout bounds every database call made on behalf of a request.
const reqTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), reqTimeout)
}

// getUserID extracts the authenticated user id stored by the JWT
// middleware.
func getUserID(c echo.Context) (uint64, error) {
	if id, ok := c.Get("user_id").(uint64); ok {
		return id, nil
	}
	return 0, errors.New("missing user_id in context")
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// writeError translates repository sentinel errors into HTTP responses.
// Taxonomy errors carry caller-safe messages and are echoed back;
// anything else is an internal failure and gets the generic fallback so
// no driver or SQL detail leaks out.
func writeError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, repository.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": fallback})
	}
}

// userPart is the user shape embedded in auth and admin responses. The
// password hash never leaves the repository layer.
type userPart struct {
	ID       uint64  `json:"id"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	RoleID   *uint64 `json:"role_id,omitempty"`
	Approved bool    `json:"approved"`
	Active   bool    `json:"active"`
}

func toUserPart(u model.User) userPart {
	return userPart{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		RoleID:   u.RoleID,
		Approved: u.Approved,
		Active:   u.Active,
	}
}

// modulePart is the minimal module shape embedded in auth responses: only
// modules the caller can access, without the has_access/source bookkeeping.
type modulePart struct {
	ModuleID   uint64  `json:"module_id"`
	ModuleName string  `json:"module_name"`
	ParentID   *uint64 `json:"parent_id"`
}

func toModuleParts(access []model.ModuleAccess) []modulePart {
	out := make([]modulePart, 0, len(access))
	for _, a := range repository.AccessibleOnly(access) {
		out = append(out, modulePart{ModuleID: a.ModuleID, ModuleName: a.ModuleName, ParentID: a.ParentID})
	}
	return out
}
