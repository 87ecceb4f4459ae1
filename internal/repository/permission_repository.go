package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/access-control/internal/model"
)

// PermissionRepo owns the role_modules and user_modules grant tables and
// answers effective-access questions by combining the two. The bulk
// listing and the point query both evaluate "role grant OR direct grant";
// the bulk path funnels through ResolveEffective so the two can never
// drift apart.
type PermissionRepo struct{ DB *sql.DB }

func NewPermissionRepo(db *sql.DB) *PermissionRepo { return &PermissionRepo{DB: db} }

// GrantRoleModule gives a role access to a module. The upsert makes
// re-granting idempotent; both ids must reference existing rows.
func (r *PermissionRepo) GrantRoleModule(ctx context.Context, roleID, moduleID uint64) error {
	if err := r.mustExist(ctx, "roles", "role", roleID); err != nil {
		return err
	}
	if err := r.mustExist(ctx, "modules", "module", moduleID); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO role_modules (role_id, module_id) VALUES (?,?) ON DUPLICATE KEY UPDATE role_id=role_id",
		roleID, moduleID)
	return err
}

// GrantUserModule gives a specific user direct access to a module,
// independent of their role. Idempotent like GrantRoleModule.
func (r *PermissionRepo) GrantUserModule(ctx context.Context, userID, moduleID uint64) error {
	if err := r.mustExist(ctx, "users", "user", userID); err != nil {
		return err
	}
	if err := r.mustExist(ctx, "modules", "module", moduleID); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO user_modules (user_id, module_id) VALUES (?,?) ON DUPLICATE KEY UPDATE user_id=user_id",
		userID, moduleID)
	return err
}

// RevokeRoleModule removes a role grant. Revoking an absent grant is not
// an error.
func (r *PermissionRepo) RevokeRoleModule(ctx context.Context, roleID, moduleID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM role_modules WHERE role_id=? AND module_id=?", roleID, moduleID)
	return err
}

// RevokeUserModule removes a direct user grant. Idempotent.
func (r *PermissionRepo) RevokeUserModule(ctx context.Context, userID, moduleID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM user_modules WHERE user_id=? AND module_id=?", userID, moduleID)
	return err
}

// RoleModuleIDs returns the set of module ids granted to a role.
func (r *PermissionRepo) RoleModuleIDs(ctx context.Context, roleID uint64) (map[uint64]struct{}, error) {
	return r.idSet(ctx, "SELECT module_id FROM role_modules WHERE role_id=?", roleID)
}

// UserModuleIDs returns the set of module ids granted directly to a user.
func (r *PermissionRepo) UserModuleIDs(ctx context.Context, userID uint64) (map[uint64]struct{}, error) {
	return r.idSet(ctx, "SELECT module_id FROM user_modules WHERE user_id=?", userID)
}

// EffectiveAccess resolves the full access view for a user over all
// active modules. roleID may be nil for users without a role; only the
// direct grants count then. Inactive modules are excluded entirely, so
// they can never resolve to an accessible row.
func (r *PermissionRepo) EffectiveAccess(ctx context.Context, userID uint64, roleID *uint64) ([]model.ModuleAccess, error) {
	modules, err := NewModuleRepo(r.DB).List(ctx, true)
	if err != nil {
		return nil, err
	}

	roleSet := map[uint64]struct{}{}
	if roleID != nil {
		if roleSet, err = r.RoleModuleIDs(ctx, *roleID); err != nil {
			return nil, err
		}
	}
	userSet, err := r.UserModuleIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	return ResolveEffective(modules, roleSet, userSet), nil
}

// HasModuleAccess answers the point query "can this user access the
// module with this name". Unknown or inactive modules yield false, not an
// error, because a route gate only cares about the decision.
func (r *PermissionRepo) HasModuleAccess(ctx context.Context, userID uint64, roleID *uint64, moduleName string) (bool, error) {
	var moduleID uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM modules WHERE name=? AND active=TRUE LIMIT 1", moduleName).Scan(&moduleID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if roleID != nil {
		var n int
		if err := r.DB.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM role_modules WHERE role_id=? AND module_id=?",
			*roleID, moduleID).Scan(&n); err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
	}

	var n int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM user_modules WHERE user_id=? AND module_id=?",
		userID, moduleID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// RoleMatrix returns every module (active or not) with has_access flags
// for one role, the admin matrix view. Source is always "role" here since
// no user is involved.
func (r *PermissionRepo) RoleMatrix(ctx context.Context, roleID uint64) ([]model.ModuleAccess, error) {
	if err := r.mustExist(ctx, "roles", "role", roleID); err != nil {
		return nil, err
	}
	modules, err := NewModuleRepo(r.DB).List(ctx, false)
	if err != nil {
		return nil, err
	}
	roleSet, err := r.RoleModuleIDs(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return ResolveEffective(modules, roleSet, map[uint64]struct{}{}), nil
}

// AllRoleGrants lists every (role, module) grant pair for the admin
// matrix view.
func (r *PermissionRepo) AllRoleGrants(ctx context.Context) ([]model.RoleModule, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT role_id, module_id FROM role_modules ORDER BY role_id, module_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RoleModule
	for rows.Next() {
		var g model.RoleModule
		if err := rows.Scan(&g.RoleID, &g.ModuleID); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *PermissionRepo) idSet(ctx context.Context, q string, arg uint64) (map[uint64]struct{}, error) {
	rows, err := r.DB.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := make(map[uint64]struct{})
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		set[id] = struct{}{}
	}
	return set, rows.Err()
}

// mustExist guards grant writes against dangling references since the
// grant tables carry no foreign keys of their own in older deployments.
func (r *PermissionRepo) mustExist(ctx context.Context, table, label string, id uint64) error {
	var n int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+table+" WHERE id=?", id).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s not found: %w", label, ErrNotFound)
	}
	return nil
}
