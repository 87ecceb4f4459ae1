package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/access-control/internal/repository"
)

// AccessHandler answers "what can I reach" questions for the
// authenticated caller.
type AccessHandler struct {
	Users *repository.UserRepo
	Perms *repository.PermissionRepo
}

func NewAccessHandler(u *repository.UserRepo, p *repository.PermissionRepo) *AccessHandler {
	return &AccessHandler{Users: u, Perms: p}
}

// Modules returns the modules the caller can actually reach: role
// grants and direct grants combined, each row tagged with the source of
// the access. Rows without access stay in the admin views only.
func (h *AccessHandler) Modules(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	user, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return writeError(c, err, "load user failed")
	}
	access, err := h.Perms.EffectiveAccess(ctx, user.ID, user.RoleID)
	if err != nil {
		return writeError(c, err, "resolve access failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"modules": repository.AccessibleOnly(access)})
}

// Check answers whether the caller can reach one module by name.
// Unknown or inactive modules read as no access rather than an error.
func (h *AccessHandler) Check(c echo.Context) error {
	name := strings.TrimSpace(c.QueryParam("module"))
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "module query parameter is required"})
	}
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	user, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return writeError(c, err, "load user failed")
	}
	ok, err := h.Perms.HasModuleAccess(ctx, user.ID, user.RoleID, name)
	if err != nil {
		return writeError(c, err, "resolve access failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"module": name, "has_access": ok})
}
