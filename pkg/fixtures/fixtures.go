// Package fixtures seeds a development database from a YAML file. The file
// declares companies and users by name; loading is idempotent, existing
// rows are left untouched.
//
//	companies:
//	  - name: Acme Corp
//	users:
//	  - name: Root Admin
//	    role: ROLE_SUPER_ADMIN
//	  - name: Ana Lima
//	    role: ROLE_COMPANY_ADMIN
//	    company: Acme Corp
package fixtures

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/roster/pkg/auth"
	"github.com/platinummonkey/roster/pkg/directory"
	"github.com/platinummonkey/roster/pkg/validation"
)

// Seed is the YAML document shape
type Seed struct {
	Companies []CompanySeed `yaml:"companies"`
	Users     []UserSeed    `yaml:"users"`
}

// CompanySeed declares one company by name
type CompanySeed struct {
	Name string `yaml:"name"`
}

// UserSeed declares one user. Company references a company by name and must
// resolve within the same file or the existing database.
type UserSeed struct {
	Name    string `yaml:"name"`
	Role    string `yaml:"role"`
	Company string `yaml:"company,omitempty"`
}

// Load parses a seed file
func Load(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &seed, nil
}

// Apply writes the seed through the directory service, acting as a super
// admin. Companies come first so user rows can reference them.
func Apply(ctx context.Context, svc directory.Service, seed *Seed) error {
	acting := &auth.Principal{Name: "fixtures", Role: auth.RoleSuperAdmin}

	companies := make(map[string]int64)
	existing, err := svc.ListCompanies(ctx)
	if err != nil {
		return fmt.Errorf("failed to list companies: %w", err)
	}
	for _, c := range existing {
		companies[c.Name] = c.ID
	}

	for _, c := range seed.Companies {
		if _, ok := companies[c.Name]; ok {
			continue
		}
		created, err := svc.CreateCompany(ctx, validation.CompanyInput{Name: c.Name})
		if err != nil {
			return fmt.Errorf("failed to seed company %q: %w", c.Name, err)
		}
		companies[created.Name] = created.ID
	}

	for _, u := range seed.Users {
		if _, err := svc.GetUserByName(ctx, u.Name); err == nil {
			continue
		} else if !errors.Is(err, directory.ErrNotFound) {
			return fmt.Errorf("failed to look up user %q: %w", u.Name, err)
		}

		input := validation.UserInput{Name: u.Name, Role: u.Role}
		if u.Company != "" {
			id, ok := companies[u.Company]
			if !ok {
				return fmt.Errorf("user %q references unknown company %q", u.Name, u.Company)
			}
			input.CompanyID = &id
		}
		if _, err := svc.CreateUser(ctx, acting, input); err != nil {
			return fmt.Errorf("failed to seed user %q: %w", u.Name, err)
		}
	}

	return nil
}

// LoadAndApply is the convenience wrapper used at startup
func LoadAndApply(ctx context.Context, svc directory.Service, path string) error {
	seed, err := Load(path)
	if err != nil {
		return err
	}
	return Apply(ctx, svc, seed)
}
