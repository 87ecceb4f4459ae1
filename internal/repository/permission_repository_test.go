package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/access-control/internal/model"
)

func newPermissionRepo(t *testing.T) (*PermissionRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPermissionRepo(db), mock
}

func countRow(n int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"n"}).AddRow(n)
}

func TestGrantRoleModule(t *testing.T) {
	t.Run("upserts when both sides exist", func(t *testing.T) {
		repo, mock := newPermissionRepo(t)
		mock.ExpectQuery("SELECT COUNT(*) FROM roles WHERE id=?").
			WithArgs(uint64(2)).WillReturnRows(countRow(1))
		mock.ExpectQuery("SELECT COUNT(*) FROM modules WHERE id=?").
			WithArgs(uint64(9)).WillReturnRows(countRow(1))
		mock.ExpectExec("INSERT INTO role_modules (role_id, module_id) VALUES (?,?) ON DUPLICATE KEY UPDATE role_id=role_id").
			WithArgs(uint64(2), uint64(9)).
			WillReturnResult(sqlmock.NewResult(1, 1))

		require.NoError(t, repo.GrantRoleModule(context.Background(), 2, 9))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		repo, mock := newPermissionRepo(t)
		mock.ExpectQuery("SELECT COUNT(*) FROM roles WHERE id=?").
			WithArgs(uint64(2)).WillReturnRows(countRow(0))

		err := repo.GrantRoleModule(context.Background(), 2, 9)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rejects unknown module", func(t *testing.T) {
		repo, mock := newPermissionRepo(t)
		mock.ExpectQuery("SELECT COUNT(*) FROM roles WHERE id=?").
			WithArgs(uint64(2)).WillReturnRows(countRow(1))
		mock.ExpectQuery("SELECT COUNT(*) FROM modules WHERE id=?").
			WithArgs(uint64(9)).WillReturnRows(countRow(0))

		err := repo.GrantRoleModule(context.Background(), 2, 9)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRevokeRoleModuleIsIdempotent(t *testing.T) {
	repo, mock := newPermissionRepo(t)
	mock.ExpectExec("DELETE FROM role_modules WHERE role_id=? AND module_id=?").
		WithArgs(uint64(2), uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.RevokeRoleModule(context.Background(), 2, 9))
}

func TestHasModuleAccess(t *testing.T) {
	const moduleLookup = "SELECT id FROM modules WHERE name=? AND active=TRUE LIMIT 1"

	t.Run("unknown module reads as no access", func(t *testing.T) {
		repo, mock := newPermissionRepo(t)
		mock.ExpectQuery(moduleLookup).WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		ok, err := repo.HasModuleAccess(context.Background(), 7, nil, "ghost")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("role grant suffices", func(t *testing.T) {
		repo, mock := newPermissionRepo(t)
		mock.ExpectQuery(moduleLookup).WithArgs("crm").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
		mock.ExpectQuery("SELECT COUNT(*) FROM role_modules WHERE role_id=? AND module_id=?").
			WithArgs(uint64(2), uint64(4)).WillReturnRows(countRow(1))

		roleID := uint64(2)
		ok, err := repo.HasModuleAccess(context.Background(), 7, &roleID, "crm")
		require.NoError(t, err)
		assert.True(t, ok)
		// The direct-grant query never runs once the role grant matched.
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("direct grant covers users without a role", func(t *testing.T) {
		repo, mock := newPermissionRepo(t)
		mock.ExpectQuery(moduleLookup).WithArgs("crm").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
		mock.ExpectQuery("SELECT COUNT(*) FROM user_modules WHERE user_id=? AND module_id=?").
			WithArgs(uint64(7), uint64(4)).WillReturnRows(countRow(1))

		ok, err := repo.HasModuleAccess(context.Background(), 7, nil, "crm")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("no grant from either side", func(t *testing.T) {
		repo, mock := newPermissionRepo(t)
		mock.ExpectQuery(moduleLookup).WithArgs("crm").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
		mock.ExpectQuery("SELECT COUNT(*) FROM role_modules WHERE role_id=? AND module_id=?").
			WithArgs(uint64(2), uint64(4)).WillReturnRows(countRow(0))
		mock.ExpectQuery("SELECT COUNT(*) FROM user_modules WHERE user_id=? AND module_id=?").
			WithArgs(uint64(7), uint64(4)).WillReturnRows(countRow(0))

		roleID := uint64(2)
		ok, err := repo.HasModuleAccess(context.Background(), 7, &roleID, "crm")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestEffectiveAccessCombinesGrantSources(t *testing.T) {
	repo, mock := newPermissionRepo(t)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT " + moduleColumns + " FROM modules WHERE active=TRUE" + moduleOrder).
		WillReturnRows(moduleRow(1, "crm", nil).
			AddRow(2, "billing", "", nil, true, now, now))
	roleID := uint64(3)
	mock.ExpectQuery("SELECT module_id FROM role_modules WHERE role_id=?").
		WithArgs(roleID).
		WillReturnRows(sqlmock.NewRows([]string{"module_id"}).AddRow(1))
	mock.ExpectQuery("SELECT module_id FROM user_modules WHERE user_id=?").
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"module_id"}).AddRow(2))

	access, err := repo.EffectiveAccess(context.Background(), 7, &roleID)
	require.NoError(t, err)
	require.Len(t, access, 2)
	assert.True(t, access[0].HasAccess)
	assert.Equal(t, model.SourceRole, access[0].Source)
	assert.True(t, access[1].HasAccess)
	assert.Equal(t, model.SourceUser, access[1].Source)
}

func TestEffectiveAccessWithoutRole(t *testing.T) {
	repo, mock := newPermissionRepo(t)
	mock.ExpectQuery("SELECT " + moduleColumns + " FROM modules WHERE active=TRUE" + moduleOrder).
		WillReturnRows(moduleRow(1, "crm", nil))
	mock.ExpectQuery("SELECT module_id FROM user_modules WHERE user_id=?").
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"module_id"}))

	access, err := repo.EffectiveAccess(context.Background(), 7, nil)
	require.NoError(t, err)
	require.Len(t, access, 1)
	assert.False(t, access[0].HasAccess)
}
