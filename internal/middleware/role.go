package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/access-control/internal/repository"
)

// RequireRole returns a middleware that only lets through callers whose
// assigned role matches one of the given names. The access token carries
// no role claim (roles can change between logins), so the gate resolves
// the user's current role from the database on every request. It assumes
// JWTAuth ran earlier in the chain.
func RequireRole(users *repository.UserRepo, roles *repository.RoleRepo, names ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		allowed[n] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid, ok := UserID(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			u, err := users.GetByID(ctx, uid)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			if !u.Active || !u.Approved || u.RoleID == nil {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			role, err := roles.GetByID(ctx, *u.RoleID)
			if err != nil || !role.Active || !allowed[role.Name] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
