package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/access-control/internal/model"
	"github.com/iliyamo/access-control/internal/utils"
)

// UserRepo mirrors the `users` table. Account deletion cascades the
// user's refresh tokens and direct module grants in one transaction so a
// removed user leaves no dangling rows behind.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,name,email,password_hash,role_id,approved,active,created_at,updated_at"

// Create inserts a user with a bcrypt-hashed password and returns its ID.
// roleID may be nil. New accounts start unapproved and active; an admin
// flips the approved flag before the user can sign in.
func (r *UserRepo) Create(ctx context.Context, name, email, password string, roleID *uint64, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role_id) VALUES (?,?,?,?)",
		name, email, hash, roleID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, fmt.Errorf("email already registered: %w", ErrConflict)
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.one(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.one(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

// List returns all users, newest first.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	return r.many(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC")
}

// ListPending returns users still waiting for admin approval.
func (r *UserRepo) ListPending(ctx context.Context) ([]model.User, error) {
	return r.many(ctx, "SELECT "+userColumns+" FROM users WHERE approved=FALSE ORDER BY created_at DESC")
}

// ListByRole returns all users assigned to a role, ordered by name.
func (r *UserRepo) ListByRole(ctx context.Context, roleID uint64) ([]model.User, error) {
	return r.many(ctx, "SELECT "+userColumns+" FROM users WHERE role_id=? ORDER BY name ASC", roleID)
}

// Recent returns the n most recently created users (dashboard widget).
func (r *UserRepo) Recent(ctx context.Context, n int) ([]model.User, error) {
	return r.many(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC LIMIT ?", n)
}

// Update changes profile fields. Nil values keep the current ones; email
// changes re-check uniqueness up front so the caller gets ErrConflict
// instead of a raw driver error.
func (r *UserRepo) Update(ctx context.Context, id uint64, name, email *string, roleID *uint64, clearRole bool) (model.User, error) {
	cur, err := r.GetByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}

	newName := cur.Name
	if name != nil {
		newName = strings.TrimSpace(*name)
	}
	newEmail := cur.Email
	if email != nil {
		newEmail = strings.ToLower(strings.TrimSpace(*email))
		if newEmail != cur.Email {
			if _, err := r.GetByEmail(ctx, newEmail); err == nil {
				return model.User{}, fmt.Errorf("email already registered: %w", ErrConflict)
			} else if !errors.Is(err, ErrNotFound) {
				return model.User{}, err
			}
		}
	}
	newRole := cur.RoleID
	if clearRole {
		newRole = nil
	} else if roleID != nil {
		newRole = roleID
	}

	if _, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, email=?, role_id=? WHERE id=?",
		newName, newEmail, newRole, id); err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

// SetApproved flips the approval gate.
func (r *UserRepo) SetApproved(ctx context.Context, id uint64, approved bool) error {
	return r.setFlag(ctx, id, "approved", approved)
}

// SetActive soft-enables or soft-disables the account.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	return r.setFlag(ctx, id, "active", active)
}

// SetRole assigns a role to the user, or clears it when roleID is nil.
// Access through the role updates live for every member on the next
// resolution; nothing is copied onto the user.
func (r *UserRepo) SetRole(ctx context.Context, id uint64, roleID *uint64) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET role_id=? WHERE id=?", roleID, id)
	return err
}

// Delete removes a user together with their refresh tokens and direct
// grants.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE user_id=?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM user_modules WHERE user_id=?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id=?", id); err != nil {
		return err
	}
	return tx.Commit()
}

// CountByRole reports how many users reference a role (role deletion guard).
func (r *UserRepo) CountByRole(ctx context.Context, roleID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE role_id=?", roleID).Scan(&n)
	return n, err
}

func (r *UserRepo) setFlag(ctx context.Context, id uint64, column string, v bool) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET "+column+"=? WHERE id=?", v, id)
	return err
}

func (r *UserRepo) one(ctx context.Context, q string, args ...interface{}) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("user not found: %w", ErrNotFound)
	}
	return u, err
}

func (r *UserRepo) many(ctx context.Context, q string, args ...interface{}) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanUser(s scanner) (model.User, error) {
	var u model.User
	var roleID sql.NullInt64
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &roleID,
		&u.Approved, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return model.User{}, err
	}
	if roleID.Valid {
		rid := uint64(roleID.Int64)
		u.RoleID = &rid
	}
	return u, nil
}
