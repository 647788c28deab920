package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/platinummonkey/roster/pkg/auth"
	"github.com/platinummonkey/roster/pkg/rbac"
	"github.com/platinummonkey/roster/pkg/tenancy"
	"github.com/platinummonkey/roster/pkg/validation"
)

// Service is the directory surface consumed by the HTTP handlers. Company
// reads are deliberately unscoped; user reads are narrowed to the acting
// principal's tenant before they hit the database.
type Service interface {
	ListCompanies(ctx context.Context) ([]*Company, error)
	GetCompany(ctx context.Context, id int64) (*Company, error)
	CreateCompany(ctx context.Context, in validation.CompanyInput) (*Company, error)

	ListUsers(ctx context.Context, acting *auth.Principal, filter UserFilter) ([]*User, error)
	GetUser(ctx context.Context, acting *auth.Principal, id int64) (*User, error)
	CreateUser(ctx context.Context, acting *auth.Principal, in validation.UserInput) (*User, error)
	DeleteUser(ctx context.Context, id int64) error

	GetUserByName(ctx context.Context, name string) (*User, error)
	PrincipalByUserID(ctx context.Context, userID int64) (*auth.Principal, error)
}

// SQLService implements Service on database/sql. It targets PostgreSQL and
// also runs against SQLite for local development; both accept $N
// placeholders and RETURNING.
type SQLService struct {
	db     *sql.DB
	driver string
}

// NewSQLService creates a new SQLService
func NewSQLService(db *sql.DB, driver string) *SQLService {
	return &SQLService{db: db, driver: driver}
}

const companyColumns = "id, name, created_at, updated_at"
const userColumns = "id, name, role, company_id, created_at, updated_at"

// ListCompanies returns all companies ordered by id
func (s *SQLService) ListCompanies(ctx context.Context) ([]*Company, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+companyColumns+" FROM companies ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	companies := make([]*Company, 0)
	for rows.Next() {
		company := &Company{}
		if err := rows.Scan(&company.ID, &company.Name, &company.CreatedAt, &company.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, company)
	}
	return companies, rows.Err()
}

// GetCompany retrieves a company by ID
func (s *SQLService) GetCompany(ctx context.Context, id int64) (*Company, error) {
	company := &Company{}
	err := s.db.QueryRowContext(ctx,
		"SELECT "+companyColumns+" FROM companies WHERE id = $1", id).
		Scan(&company.ID, &company.Name, &company.CreatedAt, &company.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return company, nil
}

// CreateCompany validates and inserts a company. A duplicate name surfaces
// as a validation violation rather than a database error; the UNIQUE
// constraint is the authority, there is no pre-check racing against it.
func (s *SQLService) CreateCompany(ctx context.Context, in validation.CompanyInput) (*Company, error) {
	if result := validation.ValidateCompany(in); !result.Valid() {
		return nil, validation.Failed(result)
	}

	now := time.Now().UTC()
	company := &Company{Name: in.Name, CreatedAt: now, UpdatedAt: now}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO companies (name, created_at, updated_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, company.Name, company.CreatedAt, company.UpdatedAt).Scan(&company.ID)
	if isUniqueViolation(err) {
		return nil, validation.SingleViolation("name", validation.MsgAlreadyUsed)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	return company, nil
}

// ListUsers returns the users visible to the acting principal, most
// constrained first: caller filters, then the tenant predicate.
func (s *SQLService) ListUsers(ctx context.Context, acting *auth.Principal, filter UserFilter) ([]*User, error) {
	var where []string
	var args []interface{}

	if filter.Role != nil {
		args = append(args, string(*filter.Role))
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	where, args = tenancy.Scope(rbac.ResourceUser, acting).Append(where, args)

	query := "SELECT " + userColumns + " FROM users"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// GetUser retrieves a user by ID within the acting principal's scope. A row
// that exists outside the scope reads as ErrNotFound, not as forbidden.
func (s *SQLService) GetUser(ctx context.Context, acting *auth.Principal, id int64) (*User, error) {
	where := []string{"id = $1"}
	args := []interface{}{id}
	where, args = tenancy.Scope(rbac.ResourceUser, acting).Append(where, args)

	query := "SELECT " + userColumns + " FROM users WHERE " + strings.Join(where, " AND ")
	user, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser validates and inserts a user. The company reference is checked
// for existence after structural validation passes; a dangling reference is
// reported the same way a malformed one would be.
func (s *SQLService) CreateUser(ctx context.Context, acting *auth.Principal, in validation.UserInput) (*User, error) {
	result := validation.ValidateUser(in, acting)
	if !result.Valid() {
		return nil, validation.Failed(result)
	}

	if in.CompanyID != nil {
		if _, err := s.GetCompany(ctx, *in.CompanyID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, validation.SingleViolation("company", validation.MsgNotValid)
			}
			return nil, err
		}
	}

	now := time.Now().UTC()
	user := &User{
		Name:      in.Name,
		Role:      auth.Role(in.Role),
		CompanyID: in.CompanyID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (name, role, company_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, user.Name, string(user.Role), user.CompanyID, user.CreatedAt, user.UpdatedAt).Scan(&user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// DeleteUser removes a user by ID
func (s *SQLService) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetUserByName retrieves a user by name, used to map external identities
// onto directory accounts. Names are not constrained unique; the oldest
// match wins deterministically.
func (s *SQLService) GetUserByName(ctx context.Context, name string) (*User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE name = $1 ORDER BY id LIMIT 1"
	user, err := scanUser(s.db.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// PrincipalByUserID loads the authorization view of a user. It satisfies
// auth.PrincipalLookup so token resolution stays decoupled from this package.
func (s *SQLService) PrincipalByUserID(ctx context.Context, userID int64) (*auth.Principal, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user.Principal(), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*User, error) {
	user := &User{}
	var companyID sql.NullInt64
	err := row.Scan(&user.ID, &user.Name, &user.Role, &companyID, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	if companyID.Valid {
		user.CompanyID = &companyID.Int64
	}
	return user, nil
}

// isUniqueViolation reports whether err is a unique constraint failure from
// either supported driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
