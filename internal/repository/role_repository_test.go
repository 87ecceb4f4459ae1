package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const roleSelect = "SELECT " + roleColumns + " FROM roles WHERE id=? LIMIT 1"

func newRoleRepo(t *testing.T) (*RoleRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRoleRepo(db), mock
}

func roleRow(id uint64, name string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "name", "description", "active", "created_at", "updated_at"}).
		AddRow(id, name, "", true, now, now)
}

func TestRoleCreateDuplicateName(t *testing.T) {
	repo, mock := newRoleRepo(t)
	mock.ExpectExec("INSERT INTO roles (name, description, active) VALUES (?,?,?)").
		WithArgs("editor", "", true).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'editor' for key 'roles.name'"))

	_, err := repo.Create(context.Background(), "editor", "", true)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRoleCreateEmptyName(t *testing.T) {
	repo, _ := newRoleRepo(t)
	_, err := repo.Create(context.Background(), "  ", "", true)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRoleGetByIDNotFound(t *testing.T) {
	repo, mock := newRoleRepo(t)
	mock.ExpectQuery(roleSelect).WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRoleDeleteRejectsAssignedUsers(t *testing.T) {
	repo, mock := newRoleRepo(t)
	mock.ExpectQuery(roleSelect).WithArgs(uint64(2)).
		WillReturnRows(roleRow(2, "editor"))
	mock.ExpectQuery("SELECT COUNT(*) FROM users WHERE role_id=?").
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))

	err := repo.Delete(context.Background(), 2)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleDeleteCascadesGrants(t *testing.T) {
	repo, mock := newRoleRepo(t)
	mock.ExpectQuery(roleSelect).WithArgs(uint64(2)).
		WillReturnRows(roleRow(2, "editor"))
	mock.ExpectQuery("SELECT COUNT(*) FROM users WHERE role_id=?").
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM role_modules WHERE role_id=?").
		WithArgs(uint64(2)).WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("DELETE FROM roles WHERE id=?").
		WithArgs(uint64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleUpdateRejectsRenameCollision(t *testing.T) {
	repo, mock := newRoleRepo(t)
	mock.ExpectQuery(roleSelect).WithArgs(uint64(2)).
		WillReturnRows(roleRow(2, "editor"))
	mock.ExpectQuery("SELECT "+roleColumns+" FROM roles WHERE name=? LIMIT 1").
		WithArgs("admin").
		WillReturnRows(roleRow(1, "admin"))

	name := "admin"
	_, err := repo.Update(context.Background(), 2, &name, nil, nil)
	assert.ErrorIs(t, err, ErrConflict)
}
