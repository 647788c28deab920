package directory

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/roster/pkg/auth"
	"github.com/platinummonkey/roster/pkg/validation"
)

func newMockService(t *testing.T) (*SQLService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLService(db, "postgres"), mock
}

func companyOf(id int64) *int64 { return &id }

func userRows(users ...*User) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "name", "role", "company_id", "created_at", "updated_at"})
	for _, u := range users {
		var companyID interface{}
		if u.CompanyID != nil {
			companyID = *u.CompanyID
		}
		rows.AddRow(u.ID, u.Name, string(u.Role), companyID, u.CreatedAt, u.UpdatedAt)
	}
	return rows
}

func TestListUsersScopedToCompany(t *testing.T) {
	svc, mock := newMockService(t)
	now := time.Now().UTC()

	acting := &auth.Principal{UserID: 1, Role: auth.RoleCompanyAdmin, CompanyID: companyOf(7)}
	mock.ExpectQuery(`FROM users WHERE company_id = \$1 ORDER BY id`).
		WithArgs(int64(7)).
		WillReturnRows(userRows(
			&User{ID: 2, Name: "Ana Lima", Role: auth.RoleUser, CompanyID: companyOf(7), CreatedAt: now, UpdatedAt: now},
		))

	users, err := svc.ListUsers(context.Background(), acting, UserFilter{})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, int64(2), users[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsersUnscopedForSuperAdmin(t *testing.T) {
	svc, mock := newMockService(t)
	now := time.Now().UTC()

	acting := &auth.Principal{UserID: 1, Role: auth.RoleSuperAdmin}
	mock.ExpectQuery(`FROM users ORDER BY id`).
		WillReturnRows(userRows(
			&User{ID: 2, Name: "Ana Lima", Role: auth.RoleUser, CompanyID: companyOf(7), CreatedAt: now, UpdatedAt: now},
			&User{ID: 3, Name: "Root Admin", Role: auth.RoleSuperAdmin, CreatedAt: now, UpdatedAt: now},
		))

	users, err := svc.ListUsers(context.Background(), acting, UserFilter{})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Nil(t, users[1].CompanyID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsersRoleFilterComposesWithScope(t *testing.T) {
	svc, mock := newMockService(t)

	role := auth.RoleUser
	acting := &auth.Principal{UserID: 1, Role: auth.RoleCompanyAdmin, CompanyID: companyOf(7)}
	mock.ExpectQuery(`FROM users WHERE role = \$1 AND company_id = \$2 ORDER BY id`).
		WithArgs(string(auth.RoleUser), int64(7)).
		WillReturnRows(userRows())

	users, err := svc.ListUsers(context.Background(), acting, UserFilter{Role: &role})
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserOutOfScopeReadsAsNotFound(t *testing.T) {
	svc, mock := newMockService(t)

	acting := &auth.Principal{UserID: 1, Role: auth.RoleCompanyAdmin, CompanyID: companyOf(7)}
	mock.ExpectQuery(`FROM users WHERE id = \$1 AND company_id = \$2`).
		WithArgs(int64(99), int64(7)).
		WillReturnError(sql.ErrNoRows)

	_, err := svc.GetUser(context.Background(), acting, 99)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserInsertsAfterCompanyCheck(t *testing.T) {
	svc, mock := newMockService(t)
	now := time.Now().UTC()

	acting := &auth.Principal{UserID: 1, Role: auth.RoleCompanyAdmin, CompanyID: companyOf(7)}
	mock.ExpectQuery(`FROM companies WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).
			AddRow(int64(7), "Acme Corp", now, now))
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("Ana Lima", "ROLE_USER", companyOf(7), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	user, err := svc.CreateUser(context.Background(), acting, validation.UserInput{
		Name:      "Ana Lima",
		Role:      "ROLE_USER",
		CompanyID: companyOf(7),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, auth.RoleUser, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserUnknownCompanyIsViolation(t *testing.T) {
	svc, mock := newMockService(t)

	acting := &auth.Principal{UserID: 1, Role: auth.RoleSuperAdmin}
	mock.ExpectQuery(`FROM companies WHERE id = \$1`).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	_, err := svc.CreateUser(context.Background(), acting, validation.UserInput{
		Name:      "Ana Lima",
		Role:      "ROLE_USER",
		CompanyID: companyOf(404),
	})
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Result.Violations, 1)
	assert.Equal(t, validation.Violation{Field: "company", Message: validation.MsgNotValid}, verr.Result.Violations[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserInvalidInputSkipsDatabase(t *testing.T) {
	svc, mock := newMockService(t)

	acting := &auth.Principal{UserID: 1, Role: auth.RoleSuperAdmin}
	_, err := svc.CreateUser(context.Background(), acting, validation.UserInput{
		Name: "", Role: "ROLE_USER", CompanyID: companyOf(7),
	})
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Result.Has("name"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCompanyDuplicateName(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery(`INSERT INTO companies`).
		WithArgs("Acme Corp", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := svc.CreateCompany(context.Background(), validation.CompanyInput{Name: "Acme Corp"})
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Result.Violations, 1)
	assert.Equal(t, validation.Violation{Field: "name", Message: validation.MsgAlreadyUsed}, verr.Result.Violations[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCompany(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery(`INSERT INTO companies`).
		WithArgs("Acme Corp", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	company, err := svc.CreateCompany(context.Background(), validation.CompanyInput{Name: "Acme Corp"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), company.ID)
	assert.Equal(t, "Acme Corp", company.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUser(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, svc.DeleteUser(context.Background(), 42))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserMissing(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, svc.DeleteUser(context.Background(), 42), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrincipalByUserID(t *testing.T) {
	svc, mock := newMockService(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(int64(2)).
		WillReturnRows(userRows(
			&User{ID: 2, Name: "Ana Lima", Role: auth.RoleCompanyAdmin, CompanyID: companyOf(7), CreatedAt: now, UpdatedAt: now},
		))

	principal, err := svc.PrincipalByUserID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleCompanyAdmin, principal.Role)
	require.NotNil(t, principal.CompanyID)
	assert.Equal(t, int64(7), *principal.CompanyID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("connection reset")))
	assert.False(t, isUniqueViolation(nil))
}
