package rbac

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
)

type Permission string

const (
	Wildcard Permission = "*"

	PermDashboardRead Permission = "dashboard.read"
	PermProdutosRead  Permission = "produtos.read"
	PermProdutosWrite Permission = "produtos.write"
	PermConfigRead    Permission = "config.read"
	PermConfigWrite   Permission = "config.write"
	PermMetricasRead  Permission = "metricas.read"
	PermAuditRead     Permission = "audit.read"
	PermAdminUsers    Permission = "admin.users"
)

// Matrix maps roles to permission sets. It is never mutated after
// construction and is safe for concurrent use.
type Matrix struct {
	roles map[Role]map[Permission]struct{}
}

func NewMatrix(def map[Role][]Permission) *Matrix {
	m := &Matrix{roles: make(map[Role]map[Permission]struct{}, len(def))}
	for role, perms := range def {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		m.roles[NormalizeRole(string(role))] = set
	}
	return m
}

func DefaultMatrix() *Matrix {
	return NewMatrix(map[Role][]Permission{
		RoleAdmin: {Wildcard},
		RoleEditor: {
			PermDashboardRead,
			PermProdutosRead,
			PermProdutosWrite,
			PermConfigRead,
			PermConfigWrite,
		},
		RoleAnalista: {
			PermDashboardRead,
			PermMetricasRead,
			PermConfigRead,
			PermAuditRead,
		},
	})
}

// Has reports whether role grants permission. An empty permission means no
// restriction. No role, or a role the matrix does not know, grants nothing.
func (m *Matrix) Has(role Role, permission Permission) bool {
	if permission == "" {
		return true
	}
	if role == RoleNone || m == nil {
		return false
	}
	set, ok := m.roles[role]
	if !ok {
		return false
	}
	if _, ok := set[Wildcard]; ok {
		return true
	}
	_, ok = set[permission]
	return ok
}

// Permissions returns the sorted permission list of role.
func (m *Matrix) Permissions(role Role) []Permission {
	if m == nil {
		return nil
	}
	set := m.roles[role]
	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *Matrix) Roles() []Role {
	out := make([]Role, 0, len(m.roles))
	for r := range m.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type matrixFile struct {
	Roles map[string][]string `toml:"roles"`
}

// LoadMatrixFile reads a TOML file of the form
//
//	[roles]
//	admin = ["*"]
//	editor = ["produtos.read", "produtos.write"]
//
// and returns a matrix that replaces the default one.
func LoadMatrixFile(path string) (*Matrix, error) {
	var f matrixFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("decode permissions file %s: %w", path, err)
	}
	if len(f.Roles) == 0 {
		return nil, fmt.Errorf("permissions file %s defines no roles", path)
	}
	def := make(map[Role][]Permission, len(f.Roles))
	for name, perms := range f.Roles {
		role := NormalizeRole(name)
		if role == RoleNone {
			return nil, fmt.Errorf("permissions file %s: empty role name", path)
		}
		for _, p := range perms {
			def[role] = append(def[role], Permission(p))
		}
	}
	return NewMatrix(def), nil
}

// Access is the resolved role of one request together with the matrix that
// answers for it.
type Access struct {
	Role   Role
	matrix *Matrix
}

func NewAccess(role Role, m *Matrix) Access {
	return Access{Role: role, matrix: m}
}

func (a Access) Has(permission Permission) bool {
	return a.matrix.Has(a.Role, permission)
}

// Resolved reports whether a role was found.
func (a Access) Resolved() bool {
	return a.Role != RoleNone
}

func (a Access) Permissions() []Permission {
	return a.matrix.Permissions(a.Role)
}
