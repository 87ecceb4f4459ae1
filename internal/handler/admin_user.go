package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/access-control/internal/queue"
	"github.com/iliyamo/access-control/internal/service"
)

// ----- user management DTOs -----

type createUserReq struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	RoleID   *uint64 `json:"role_id"`
}

type updateUserReq struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	RoleID *uint64 `json:"role_id"`
}

type assignRoleReq struct {
	RoleID uint64 `json:"role_id"`
}

// ListUsers returns all users with their roles resolved.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return writeError(c, err, "list users failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"users": h.withRoles(ctx, users)})
}

// PendingUsers returns accounts still waiting for approval.
func (h *AdminHandler) PendingUsers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	users, err := h.Users.ListPending(ctx)
	if err != nil {
		return writeError(c, err, "list users failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"users": h.withRoles(ctx, users)})
}

// GetUser returns one user by id.
func (h *AdminHandler) GetUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err, "load user failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"user": h.withRole(ctx, u)})
}

// CreateUser creates an account on behalf of an administrator. Unlike
// signup the role is free to choose and must exist when given.
func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/email/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if req.RoleID != nil {
		if _, err := h.Roles.GetByID(ctx, *req.RoleID); err != nil {
			return writeError(c, err, "load role failed")
		}
	}
	uid, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, req.RoleID, h.Cfg.BcryptCost)
	if err != nil {
		return writeError(c, err, "create user failed")
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return writeError(c, err, "load user failed")
	}
	return c.JSON(http.StatusCreated, echo.Map{"user": h.withRole(ctx, u)})
}

// UpdateUser applies a partial profile update.
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.Update(ctx, id, req.Name, req.Email, req.RoleID, false)
	if err != nil {
		return writeError(c, err, "update user failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"user": h.withRole(ctx, u)})
}

// DeleteUser removes a user; the repository cascades refresh tokens and
// direct grants.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		return writeError(c, err, "delete user failed")
	}
	h.audit(c, queue.NewAuditEvent(queue.ActionUserDeleted, actorID(c), "user", id, ""))
	return c.NoContent(http.StatusNoContent)
}

// ApproveUser lifts the signup approval gate.
func (h *AdminHandler) ApproveUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.SetApproved(ctx, id, true); err != nil {
		return writeError(c, err, "approve user failed")
	}
	h.audit(c, queue.NewAuditEvent(queue.ActionUserApproved, actorID(c), "user", id, ""))
	return c.JSON(http.StatusOK, echo.Map{"message": "user approved"})
}

// ActivateUser re-enables a soft-disabled account.
func (h *AdminHandler) ActivateUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.SetActive(ctx, id, true); err != nil {
		return writeError(c, err, "activate user failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user activated"})
}

// DeactivateUser soft-disables an account and revokes its refresh
// tokens so open sessions die at the next refresh at the latest.
func (h *AdminHandler) DeactivateUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.SetActive(ctx, id, false); err != nil {
		return writeError(c, err, "deactivate user failed")
	}
	if err := h.Tokens.RevokeAllForUser(ctx, id); err != nil {
		return writeError(c, err, "deactivate user failed")
	}
	h.audit(c, queue.NewAuditEvent(queue.ActionUserDeactivated, actorID(c), "user", id, ""))
	return c.JSON(http.StatusOK, echo.Map{"message": "user deactivated"})
}

// AssignRole sets a user's role. Role changes apply to the user's
// effective access immediately; nothing is re-issued.
func (h *AdminHandler) AssignRole(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req assignRoleReq
	if err := c.Bind(&req); err != nil || req.RoleID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role_id required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Roles.GetByID(ctx, req.RoleID); err != nil {
		return writeError(c, err, "load role failed")
	}
	if err := h.Users.SetRole(ctx, id, &req.RoleID); err != nil {
		return writeError(c, err, "assign role failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "role assigned"})
}

// RemoveRole clears a user's role; direct grants are untouched.
func (h *AdminHandler) RemoveRole(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.SetRole(ctx, id, nil); err != nil {
		return writeError(c, err, "remove role failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "role removed"})
}

// UsersByRole lists every user assigned to one role.
func (h *AdminHandler) UsersByRole(c echo.Context) error {
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
	users, err := h.Users.ListByRole(ctx, id)
	if err != nil {
		return writeError(c, err, "list users failed")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"role":  rolePart{ID: role.ID, Name: role.Name},
		"users": h.withRoles(ctx, users),
	})
}

// audit publishes an event best-effort; the request outcome never
// depends on the broker.
func (h *AdminHandler) audit(c echo.Context, ev queue.AuditEvent) {
	ctx, cancel := reqCtx(c)
	defer cancel()
	service.PublishAudit(ctx, ev)
}

// actorID returns the acting admin's user id, 0 when unknown.
func actorID(c echo.Context) uint64 {
	id, _ := c.Get("user_id").(uint64)
	return id
}
