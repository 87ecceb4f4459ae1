package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/access-control/internal/model"
	"github.com/iliyamo/access-control/internal/queue"
)

// ----- role management DTOs -----

type createRoleReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

type updateRoleReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
}

type roleResp struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

func toRoleResp(r model.Role) roleResp {
	return roleResp{ID: r.ID, Name: r.Name, Description: r.Description, Active: r.Active}
}

// ListRoles returns all roles.
func (h *AdminHandler) ListRoles(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	roles, err := h.Roles.List(ctx)
	if err != nil {
		return writeError(c, err, "list roles failed")
	}
	out := make([]roleResp, 0, len(roles))
	for _, r := range roles {
		out = append(out, toRoleResp(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"roles": out})
}

// GetRole returns one role by id.
func (h *AdminHandler) GetRole(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	role, err := h.Roles.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err, "load role failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"role": toRoleResp(role)})
}

// CreateRole creates a role. Active defaults to true.
func (h *AdminHandler) CreateRole(c echo.Context) error {
	var req createRoleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	role, err := h.Roles.Create(ctx, req.Name, req.Description, active)
	if err != nil {
		return writeError(c, err, "create role failed")
	}
	h.audit(c, queue.NewAuditEvent(queue.ActionRoleCreated, actorID(c), "role", role.ID, role.Name))
	return c.JSON(http.StatusCreated, echo.Map{"role": toRoleResp(role)})
}

// UpdateRole applies a partial update.
func (h *AdminHandler) UpdateRole(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateRoleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	role, err := h.Roles.Update(ctx, id, req.Name, req.Description, req.Active)
	if err != nil {
		return writeError(c, err, "update role failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"role": toRoleResp(role)})
}

// DeleteRole removes a role and its grants after the assigned-users
// guard passes.
func (h *AdminHandler) DeleteRole(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Roles.Delete(ctx, id); err != nil {
		return writeError(c, err, "delete role failed")
	}
	h.audit(c, queue.NewAuditEvent(queue.ActionRoleDeleted, actorID(c), "role", id, ""))
	return c.NoContent(http.StatusNoContent)
}
