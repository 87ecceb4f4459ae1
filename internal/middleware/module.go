package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/access-control/internal/model"
)

// UserGetter is the slice of UserRepo the module gate needs.
type UserGetter interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// AccessChecker is the slice of PermissionRepo the module gate needs.
type AccessChecker interface {
	HasModuleAccess(ctx context.Context, userID uint64, roleID *uint64, moduleName string) (bool, error)
}

// RequireModule returns a middleware that rejects callers without
// effective access to the named module. Access is resolved per request
// (role grant OR direct grant), so admin edits to roles or grants apply
// immediately without re-authentication. Assumes JWTAuth ran earlier.
func RequireModule(users UserGetter, checker AccessChecker, moduleName string) echo.MiddlewareFunc {
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
			if !u.Active || !u.Approved {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}

			has, err := checker.HasModuleAccess(ctx, u.ID, u.RoleID, moduleName)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "access check failed"})
			}
			if !has {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
