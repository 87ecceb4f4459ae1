package handler

import (
	"context"

	"github.com/iliyamo/access-control/internal/config"
	"github.com/iliyamo/access-control/internal/model"
	"github.com/iliyamo/access-control/internal/repository"
)

// AdminHandler bundles the repositories behind the /v1/admin surface.
// Every route using it sits behind JWTAuth plus the admin role gate.
type AdminHandler struct {
	Cfg     config.Config
	Users   *repository.UserRepo
	Roles   *repository.RoleRepo
	Modules *repository.ModuleRepo
	Perms   *repository.PermissionRepo
	Stats   *repository.StatsRepo
	Tokens  *repository.TokenRepo
}

func NewAdminHandler(cfg config.Config, u *repository.UserRepo, r *repository.RoleRepo,
	m *repository.ModuleRepo, p *repository.PermissionRepo, s *repository.StatsRepo,
	t *repository.TokenRepo) *AdminHandler {
	return &AdminHandler{Cfg: cfg, Users: u, Roles: r, Modules: m, Perms: p, Stats: s, Tokens: t}
}

// rolePart is the compact role shape embedded in user responses.
type rolePart struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// adminUserResp is a user with their role resolved, as the admin UI
// renders it.
type adminUserResp struct {
	userPart
	Role *rolePart `json:"role"`
}

// withRole attaches the role (when any) to a user response. A dangling
// role id is reported as no role rather than an error; the admin list
// should render even if a role row went missing.
func (h *AdminHandler) withRole(ctx context.Context, u model.User) adminUserResp {
	resp := adminUserResp{userPart: toUserPart(u)}
	if u.RoleID != nil {
		if role, err := h.Roles.GetByID(ctx, *u.RoleID); err == nil {
			resp.Role = &rolePart{ID: role.ID, Name: role.Name}
		}
	}
	return resp
}

func (h *AdminHandler) withRoles(ctx context.Context, users []model.User) []adminUserResp {
	out := make([]adminUserResp, 0, len(users))
	for _, u := range users {
		out = append(out, h.withRole(ctx, u))
	}
	return out
}
