package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/access-control/internal/model"
)

// RoleRepo mirrors the `roles` table. A role can only be deleted while no
// user references it; deletion cascades the role's module grants.
type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

const roleColumns = "id,name,description,active,created_at,updated_at"

// Create inserts a role. Role names are globally unique.
func (r *RoleRepo) Create(ctx context.Context, name, description string, active bool) (model.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Role{}, fmt.Errorf("role name is required: %w", ErrInvalidInput)
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO roles (name, description, active) VALUES (?,?,?)",
		name, description, active)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.Role{}, fmt.Errorf("role %q already exists: %w", name, ErrConflict)
		}
		return model.Role{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Role{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches a role by id.
func (r *RoleRepo) GetByID(ctx context.Context, id uint64) (model.Role, error) {
	return r.one(ctx, "SELECT "+roleColumns+" FROM roles WHERE id=? LIMIT 1", id)
}

// GetByName fetches a role by its unique name.
func (r *RoleRepo) GetByName(ctx context.Context, name string) (model.Role, error) {
	return r.one(ctx, "SELECT "+roleColumns+" FROM roles WHERE name=? LIMIT 1", strings.TrimSpace(name))
}

// List returns all roles, newest first.
func (r *RoleRepo) List(ctx context.Context) ([]model.Role, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+roleColumns+" FROM roles ORDER BY created_at DESC, name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

// Update applies a partial update; nil fields are untouched. Renames
// re-check name uniqueness.
func (r *RoleRepo) Update(ctx context.Context, id uint64, name, description *string, active *bool) (model.Role, error) {
	cur, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Role{}, err
	}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return model.Role{}, fmt.Errorf("role name is required: %w", ErrInvalidInput)
		}
		if trimmed != cur.Name {
			if _, err := r.GetByName(ctx, trimmed); err == nil {
				return model.Role{}, fmt.Errorf("role %q already exists: %w", trimmed, ErrConflict)
			} else if !errors.Is(err, ErrNotFound) {
				return model.Role{}, err
			}
		}
		name = &trimmed
	}

	fields := make([]string, 0, 3)
	args := make([]interface{}, 0, 4)
	if name != nil {
		fields = append(fields, "name=?")
		args = append(args, *name)
	}
	if description != nil {
		fields = append(fields, "description=?")
		args = append(args, *description)
	}
	if active != nil {
		fields = append(fields, "active=?")
		args = append(args, *active)
	}
	if len(fields) == 0 {
		return cur, nil
	}
	args = append(args, id)
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE roles SET "+strings.Join(fields, ", ")+" WHERE id=?", args...); err != nil {
		return model.Role{}, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes a role and its module grants. Roles still assigned to
// users are rejected; remove the role from every user first.
func (r *RoleRepo) Delete(ctx context.Context, id uint64) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	var assigned int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE role_id=?", id).Scan(&assigned); err != nil {
		return err
	}
	if assigned > 0 {
		return fmt.Errorf("role has assigned users: %w", ErrConflict)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM role_modules WHERE role_id=?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM roles WHERE id=?", id); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *RoleRepo) one(ctx context.Context, q string, args ...interface{}) (model.Role, error) {
	role, err := scanRole(r.DB.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Role{}, fmt.Errorf("role not found: %w", ErrNotFound)
	}
	return role, err
}

func scanRole(s scanner) (model.Role, error) {
	var role model.Role
	var desc sql.NullString
	if err := s.Scan(&role.ID, &role.Name, &desc, &role.Active, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return model.Role{}, err
	}
	role.Description = desc.String
	return role, nil
}
