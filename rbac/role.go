// Package rbac resolves a user's role and answers permission questions for it.
package rbac

import "strings"

type Role string

const (
	RoleNone     Role = ""
	RoleAdmin    Role = "admin"
	RoleEditor   Role = "editor"
	RoleAnalista Role = "analista"
)

var aliases = map[string]Role{
	"administrator": RoleAdmin,
	"administrador": RoleAdmin,
	"adm":           RoleAdmin,
	"superadmin":    RoleAdmin,
	"super-admin":   RoleAdmin,
	"root":          RoleAdmin,
	"analyst":       RoleAnalista,
}

// NormalizeRole trims and lowercases s and maps known aliases to their
// canonical role. Unknown values pass through in their normalized form.
func NormalizeRole(s string) Role {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return RoleNone
	}
	if r, ok := aliases[v]; ok {
		return r
	}
	return Role(v)
}

// Canonical reports whether r is one of the built-in roles.
func (r Role) Canonical() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleAnalista:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }
