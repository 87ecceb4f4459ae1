package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/access-control/internal/queue"
)

// ----- grant management DTOs -----

type grantReq struct {
	ModuleID uint64 `json:"module_id"`
}

// SetRoleGrant grants a role access to a module. Re-granting is a no-op.
func (h *AdminHandler) SetRoleGrant(c echo.Context) error {
	roleID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req grantReq
	if err := c.Bind(&req); err != nil || req.ModuleID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Perms.GrantRoleModule(ctx, roleID, req.ModuleID); err != nil {
		return writeError(c, err, "grant failed")
	}
	h.audit(c, queue.NewAuditEvent(queue.ActionGrantAdded, actorID(c), "grant", req.ModuleID,
		fmt.Sprintf("role:%d", roleID)))
	return c.JSON(http.StatusOK, echo.Map{"message": "access granted"})
}

// RevokeRoleGrant removes a role's access to a module. Revoking a grant
// that does not exist succeeds quietly.
func (h *AdminHandler) RevokeRoleGrant(c echo.Context) error {
	roleID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	moduleID, err := pathID(c, "module_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid module id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Perms.RevokeRoleModule(ctx, roleID, moduleID); err != nil {
		return writeError(c, err, "revoke failed")
	}
	h.audit(c, queue.NewAuditEvent(queue.ActionGrantRevoked, actorID(c), "grant", moduleID,
		fmt.Sprintf("role:%d", roleID)))
	return c.JSON(http.StatusOK, echo.Map{"message": "access revoked"})
}

// RoleGrants returns the full module list for a role with per-module
// has_access flags, so the admin UI can render checkboxes.
func (h *AdminHandler) RoleGrants(c echo.Context) error {
	roleID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	role, err := h.Roles.GetByID(ctx, roleID)
	if err != nil {
		return writeError(c, err, "load role failed")
	}
	access, err := h.Perms.RoleMatrix(ctx, roleID)
	if err != nil {
		return writeError(c, err, "load role grants failed")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"role":    toRoleResp(role),
		"modules": access,
	})
}

// SetUserGrant grants a user direct access to a module, independent of
// any role. Re-granting is a no-op.
func (h *AdminHandler) SetUserGrant(c echo.Context) error {
	userID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req grantReq
	if err := c.Bind(&req); err != nil || req.ModuleID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Perms.GrantUserModule(ctx, userID, req.ModuleID); err != nil {
		return writeError(c, err, "grant failed")
	}
	h.audit(c, queue.NewAuditEvent(queue.ActionGrantAdded, actorID(c), "grant", req.ModuleID,
		fmt.Sprintf("user:%d", userID)))
	return c.JSON(http.StatusOK, echo.Map{"message": "access granted"})
}

// RevokeUserGrant removes a user's direct module grant. Access through
// the user's role, if any, is untouched.
func (h *AdminHandler) RevokeUserGrant(c echo.Context) error {
	userID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	moduleID, err := pathID(c, "module_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid module id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Perms.RevokeUserModule(ctx, userID, moduleID); err != nil {
		return writeError(c, err, "revoke failed")
	}
	h.audit(c, queue.NewAuditEvent(queue.ActionGrantRevoked, actorID(c), "grant", moduleID,
		fmt.Sprintf("user:%d", userID)))
	return c.JSON(http.StatusOK, echo.Map{"message": "access revoked"})
}

// UserGrants returns a user's effective access: every module with the
// combined role+direct decision and its source tag.
func (h *AdminHandler) UserGrants(c echo.Context) error {
	userID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	user, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return writeError(c, err, "load user failed")
	}
	access, err := h.Perms.EffectiveAccess(ctx, user.ID, user.RoleID)
	if err != nil {
		return writeError(c, err, "load user grants failed")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":    h.withRole(ctx, user),
		"modules": access,
	})
}

// Matrix returns every role crossed with every module plus the set of
// granted pairs, for the admin permission grid.
func (h *AdminHandler) Matrix(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	roles, err := h.Roles.List(ctx)
	if err != nil {
		return writeError(c, err, "list roles failed")
	}
	modules, err := h.Modules.List(ctx, false)
	if err != nil {
		return writeError(c, err, "list modules failed")
	}
	grants, err := h.Perms.AllRoleGrants(ctx)
	if err != nil {
		return writeError(c, err, "list grants failed")
	}

	roleOut := make([]roleResp, 0, len(roles))
	for _, r := range roles {
		roleOut = append(roleOut, toRoleResp(r))
	}
	moduleOut := make([]moduleResp, 0, len(modules))
	for _, m := range modules {
		moduleOut = append(moduleOut, toModuleResp(m))
	}
	type pair struct {
		RoleID   uint64 `json:"role_id"`
		ModuleID uint64 `json:"module_id"`
	}
	pairs := make([]pair, 0, len(grants))
	for _, g := range grants {
		pairs = append(pairs, pair{RoleID: g.RoleID, ModuleID: g.ModuleID})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"roles":   roleOut,
		"modules": moduleOut,
		"grants":  pairs,
	})
}
