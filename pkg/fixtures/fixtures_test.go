package fixtures

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/roster/pkg/auth"
	"github.com/platinummonkey/roster/pkg/directory"
	"github.com/platinummonkey/roster/pkg/validation"
)

// memoryService is a minimal in-memory directory.Service for seed tests
type memoryService struct {
	companies []*directory.Company
	users     []*directory.User
	nextID    int64
}

func (m *memoryService) ListCompanies(ctx context.Context) ([]*directory.Company, error) {
	return m.companies, nil
}

func (m *memoryService) GetCompany(ctx context.Context, id int64) (*directory.Company, error) {
	for _, c := range m.companies {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, directory.ErrNotFound
}

func (m *memoryService) CreateCompany(ctx context.Context, in validation.CompanyInput) (*directory.Company, error) {
	if result := validation.ValidateCompany(in); !result.Valid() {
		return nil, validation.Failed(result)
	}
	m.nextID++
	c := &directory.Company{ID: m.nextID, Name: in.Name}
	m.companies = append(m.companies, c)
	return c, nil
}

func (m *memoryService) ListUsers(ctx context.Context, acting *auth.Principal, filter directory.UserFilter) ([]*directory.User, error) {
	return m.users, nil
}

func (m *memoryService) GetUser(ctx context.Context, acting *auth.Principal, id int64) (*directory.User, error) {
	return nil, directory.ErrNotFound
}

func (m *memoryService) CreateUser(ctx context.Context, acting *auth.Principal, in validation.UserInput) (*directory.User, error) {
	if result := validation.ValidateUser(in, acting); !result.Valid() {
		return nil, validation.Failed(result)
	}
	m.nextID++
	u := &directory.User{ID: m.nextID, Name: in.Name, Role: auth.Role(in.Role), CompanyID: in.CompanyID}
	m.users = append(m.users, u)
	return u, nil
}

func (m *memoryService) DeleteUser(ctx context.Context, id int64) error {
	return directory.ErrNotFound
}

func (m *memoryService) GetUserByName(ctx context.Context, name string) (*directory.User, error) {
	for _, u := range m.users {
		if u.Name == name {
			return u, nil
		}
	}
	return nil, directory.ErrNotFound
}

func (m *memoryService) PrincipalByUserID(ctx context.Context, userID int64) (*auth.Principal, error) {
	return nil, directory.ErrNotFound
}

const seedYAML = `
companies:
  - name: Acme Corp
  - name: Other Corp
users:
  - name: Root Admin
    role: ROLE_SUPER_ADMIN
  - name: Ana Lima
    role: ROLE_COMPANY_ADMIN
    company: Acme Corp
  - name: Bob Stone
    role: ROLE_USER
    company: Other Corp
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAndApply(t *testing.T) {
	svc := &memoryService{}
	require.NoError(t, LoadAndApply(context.Background(), svc, writeSeed(t, seedYAML)))

	assert.Len(t, svc.companies, 2)
	require.Len(t, svc.users, 3)
	assert.Equal(t, auth.RoleSuperAdmin, svc.users[0].Role)
	assert.Nil(t, svc.users[0].CompanyID)
	require.NotNil(t, svc.users[1].CompanyID)
	assert.Equal(t, svc.companies[0].ID, *svc.users[1].CompanyID)
}

func TestApplyIsIdempotent(t *testing.T) {
	svc := &memoryService{}
	path := writeSeed(t, seedYAML)
	require.NoError(t, LoadAndApply(context.Background(), svc, path))
	require.NoError(t, LoadAndApply(context.Background(), svc, path))

	assert.Len(t, svc.companies, 2)
	assert.Len(t, svc.users, 3)
}

func TestApplyRejectsUnknownCompanyReference(t *testing.T) {
	svc := &memoryService{}
	err := LoadAndApply(context.Background(), svc, writeSeed(t, `
users:
  - name: Ana Lima
    role: ROLE_USER
    company: Nowhere Inc
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown company")
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load(writeSeed(t, "companies: [unclosed"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
