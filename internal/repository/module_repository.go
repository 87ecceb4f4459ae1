package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/access-control/internal/model"
)

// ModuleRepo owns the `modules` table and the integrity of the module
// hierarchy: parent existence, per-scope name uniqueness and cycle
// rejection on re-parenting.
type ModuleRepo struct{ DB *sql.DB }

func NewModuleRepo(db *sql.DB) *ModuleRepo { return &ModuleRepo{DB: db} }

const moduleColumns = "id,name,description,parent_id,active,created_at,updated_at"

// moduleOrder keeps listings deterministic: newest first, ties broken by name.
const moduleOrder = " ORDER BY created_at DESC, name ASC"

// ModuleUpdate carries a partial update. Nil fields are left untouched.
// SetParent distinguishes "do not change the parent" from "re-parent to
// ParentID" (nil ParentID with SetParent=true moves the module to root).
type ModuleUpdate struct {
	Name        *string
	Description *string
	SetParent   bool
	ParentID    *uint64
	Active      *bool
}

// Create inserts a module and returns it. The parent, when given, must
// exist; the name must be unique among siblings (all roots count as one
// sibling group).
func (r *ModuleRepo) Create(ctx context.Context, name, description string, parentID *uint64, active bool) (model.Module, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Module{}, fmt.Errorf("module name is required: %w", ErrInvalidInput)
	}
	if parentID != nil {
		if _, err := r.GetByID(ctx, *parentID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return model.Module{}, fmt.Errorf("parent module not found: %w", ErrNotFound)
			}
			return model.Module{}, err
		}
	}
	taken, err := r.nameTakenInScope(ctx, name, parentID, 0)
	if err != nil {
		return model.Module{}, err
	}
	if taken {
		return model.Module{}, fmt.Errorf("module %q already exists under this parent: %w", name, ErrConflict)
	}

	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO modules (name, description, parent_id, active) VALUES (?,?,?,?)",
		name, description, parentID, active)
	if err != nil {
		return model.Module{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Module{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches a module by id.
func (r *ModuleRepo) GetByID(ctx context.Context, id uint64) (model.Module, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+moduleColumns+" FROM modules WHERE id=? LIMIT 1", id)
	m, err := scanModule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Module{}, fmt.Errorf("module not found: %w", ErrNotFound)
	}
	return m, err
}

// List returns all modules, optionally only active ones.
func (r *ModuleRepo) List(ctx context.Context, activeOnly bool) ([]model.Module, error) {
	q := "SELECT " + moduleColumns + " FROM modules"
	if activeOnly {
		q += " WHERE active=TRUE"
	}
	return r.queryModules(ctx, q+moduleOrder)
}

// ListSub returns the direct children of a module.
func (r *ModuleRepo) ListSub(ctx context.Context, parentID uint64, activeOnly bool) ([]model.Module, error) {
	q := "SELECT " + moduleColumns + " FROM modules WHERE parent_id=?"
	if activeOnly {
		q += " AND active=TRUE"
	}
	return r.queryModules(ctx, q+moduleOrder, parentID)
}

// Tree returns the whole module forest with children attached.
func (r *ModuleRepo) Tree(ctx context.Context, activeOnly bool) ([]model.ModuleNode, error) {
	modules, err := r.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	return BuildModuleTree(modules), nil
}

// Update applies a partial update. Re-parenting re-validates parent
// existence and rejects self-parenting and cycles by walking the ancestor
// chain over a single id -> parent_id snapshot, so a failed attempt never
// half-applies and the hierarchy stays as it was.
func (r *ModuleRepo) Update(ctx context.Context, id uint64, upd ModuleUpdate) (model.Module, error) {
	cur, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Module{}, err
	}

	targetParent := cur.ParentID
	if upd.SetParent {
		targetParent = upd.ParentID
		if upd.ParentID != nil {
			if *upd.ParentID == id {
				return model.Module{}, fmt.Errorf("module cannot be its own parent: %w", ErrConflict)
			}
			if _, err := r.GetByID(ctx, *upd.ParentID); err != nil {
				if errors.Is(err, ErrNotFound) {
					return model.Module{}, fmt.Errorf("parent module not found: %w", ErrNotFound)
				}
				return model.Module{}, err
			}
			parents, err := r.parentSnapshot(ctx)
			if err != nil {
				return model.Module{}, err
			}
			if hierarchyWouldCycle(parents, id, *upd.ParentID) {
				return model.Module{}, fmt.Errorf("circular module hierarchy: %w", ErrConflict)
			}
		}
	}

	targetName := cur.Name
	if upd.Name != nil {
		targetName = strings.TrimSpace(*upd.Name)
		if targetName == "" {
			return model.Module{}, fmt.Errorf("module name is required: %w", ErrInvalidInput)
		}
	}
	if targetName != cur.Name || upd.SetParent {
		taken, err := r.nameTakenInScope(ctx, targetName, targetParent, id)
		if err != nil {
			return model.Module{}, err
		}
		if taken {
			return model.Module{}, fmt.Errorf("module %q already exists under this parent: %w", targetName, ErrConflict)
		}
	}

	fields := make([]string, 0, 4)
	args := make([]interface{}, 0, 5)
	if upd.Name != nil {
		fields = append(fields, "name=?")
		args = append(args, targetName)
	}
	if upd.Description != nil {
		fields = append(fields, "description=?")
		args = append(args, *upd.Description)
	}
	if upd.SetParent {
		fields = append(fields, "parent_id=?")
		args = append(args, upd.ParentID)
	}
	if upd.Active != nil {
		fields = append(fields, "active=?")
		args = append(args, *upd.Active)
	}
	if len(fields) == 0 {
		return cur, nil
	}
	args = append(args, id)
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE modules SET "+strings.Join(fields, ", ")+" WHERE id=?", args...); err != nil {
		return model.Module{}, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes a module and cascades its grants. Modules with children
// are rejected; the caller must reassign or delete the children first.
func (r *ModuleRepo) Delete(ctx context.Context, id uint64) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	var children int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM modules WHERE parent_id=?", id).Scan(&children); err != nil {
		return err
	}
	if children > 0 {
		return fmt.Errorf("module has sub-modules: %w", ErrConflict)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM role_modules WHERE module_id=?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM user_modules WHERE module_id=?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM modules WHERE id=?", id); err != nil {
		return err
	}
	return tx.Commit()
}

// nameTakenInScope checks sibling-level name uniqueness. The MySQL
// NULL-safe comparison (<=>) makes one query cover both the root scope
// (parent IS NULL) and a concrete parent. excludeID skips the module
// being updated.
func (r *ModuleRepo) nameTakenInScope(ctx context.Context, name string, parentID *uint64, excludeID uint64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM modules WHERE name=? AND parent_id <=> ? AND id<>?",
		name, parentID, excludeID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// parentSnapshot loads the full id -> parent_id map in one query for the
// cycle walk.
func (r *ModuleRepo) parentSnapshot(ctx context.Context) (map[uint64]*uint64, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, parent_id FROM modules")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	parents := make(map[uint64]*uint64)
	for rows.Next() {
		var id uint64
		var parent sql.NullInt64
		if err := rows.Scan(&id, &parent); err != nil {
			return nil, err
		}
		if parent.Valid {
			p := uint64(parent.Int64)
			parents[id] = &p
		} else {
			parents[id] = nil
		}
	}
	return parents, rows.Err()
}

func (r *ModuleRepo) queryModules(ctx context.Context, q string, args ...interface{}) ([]model.Module, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Module
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface{ Scan(dest ...interface{}) error }

func scanModule(s scanner) (model.Module, error) {
	var m model.Module
	var desc sql.NullString
	var parent sql.NullInt64
	if err := s.Scan(&m.ID, &m.Name, &desc, &parent, &m.Active, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return model.Module{}, err
	}
	m.Description = desc.String
	if parent.Valid {
		p := uint64(parent.Int64)
		m.ParentID = &p
	}
	return m, nil
}
