package rbac

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"Administrator", RoleAdmin},
		{"adm", RoleAdmin},
		{"ROOT", RoleAdmin},
		{" super-admin ", RoleAdmin},
		{"administrador", RoleAdmin},
		{"Analyst", RoleAnalista},
		{"editor", RoleEditor},
		{"vendor", Role("vendor")},
		{"  VENDOR  ", Role("vendor")},
		{"", RoleNone},
		{"   ", RoleNone},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeRole(tt.in))
		})
	}
}

func TestMatrixHas(t *testing.T) {
	m := DefaultMatrix()

	for _, p := range []Permission{PermAdminUsers, PermAuditRead, "anything.at.all"} {
		assert.True(t, m.Has(RoleAdmin, p), "admin should have %s", p)
		assert.False(t, m.Has(RoleNone, p), "no role should not have %s", p)
	}

	assert.True(t, m.Has(RoleNone, ""))
	assert.True(t, m.Has(RoleEditor, PermProdutosWrite))
	assert.False(t, m.Has(RoleEditor, PermAuditRead))
	assert.True(t, m.Has(RoleAnalista, PermAuditRead))
	assert.False(t, m.Has(RoleAnalista, PermProdutosWrite))
	assert.False(t, m.Has(Role("vendor"), PermDashboardRead))
}

func TestLoadMatrixFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permissions.toml")
	content := `
[roles]
Administrator = ["*"]
vendedor = ["produtos.read"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	m, err := LoadMatrixFile(path)
	require.NoError(t, err)
	assert.True(t, m.Has(RoleAdmin, PermAdminUsers))
	assert.True(t, m.Has(Role("vendedor"), PermProdutosRead))
	assert.False(t, m.Has(RoleEditor, PermProdutosRead))
	assert.Equal(t, []Role{RoleAdmin, Role("vendedor")}, m.Roles())
}

func TestLoadMatrixFileRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.toml")
	require.NoError(t, os.WriteFile(path, []byte("# nothing\n"), 0o600))

	_, err := LoadMatrixFile(path)
	assert.Error(t, err)
}

type fakeClaims struct {
	role string
	err  error
}

func (f fakeClaims) RoleClaim(context.Context, string) (string, error) { return f.role, f.err }

type fakeProfiles struct {
	ensureErr error
	byID      map[string]string
	byEmail   map[string]string
	lookupErr error
	ensured   []string
}

func (f *fakeProfiles) EnsureProfile(_ context.Context, id Identity) error {
	f.ensured = append(f.ensured, id.UserID)
	return f.ensureErr
}

func (f *fakeProfiles) RoleByUserID(_ context.Context, userID string) (string, error) {
	return f.byID[userID], f.lookupErr
}

func (f *fakeProfiles) RoleByEmail(_ context.Context, email string) (string, error) {
	return f.byEmail[email], nil
}

func TestResolverLoadRole(t *testing.T) {
	id := Identity{UserID: "u1", Email: "ana@loja.com", Token: "tok"}

	tests := []struct {
		name     string
		claims   ClaimsValidator
		profiles *fakeProfiles
		id       Identity
		want     Role
	}{
		{
			name:     "claim wins",
			claims:   fakeClaims{role: "Administrator"},
			profiles: &fakeProfiles{byID: map[string]string{"u1": "editor"}},
			id:       id,
			want:     RoleAdmin,
		},
		{
			name:     "token error means no role",
			claims:   fakeClaims{err: errors.New("expired")},
			profiles: &fakeProfiles{byID: map[string]string{"u1": "admin"}},
			id:       id,
			want:     RoleNone,
		},
		{
			name:     "profile by user id",
			claims:   fakeClaims{},
			profiles: &fakeProfiles{byID: map[string]string{"u1": "analyst"}},
			id:       id,
			want:     RoleAnalista,
		},
		{
			name:     "profile by email",
			claims:   fakeClaims{},
			profiles: &fakeProfiles{byEmail: map[string]string{"ana@loja.com": "editor"}},
			id:       id,
			want:     RoleEditor,
		},
		{
			name:     "ensure profile failure",
			claims:   fakeClaims{},
			profiles: &fakeProfiles{ensureErr: errors.New("db down"), byID: map[string]string{"u1": "admin"}},
			id:       id,
			want:     RoleNone,
		},
		{
			name:     "lookup failure",
			claims:   fakeClaims{},
			profiles: &fakeProfiles{lookupErr: errors.New("timeout"), byEmail: map[string]string{"ana@loja.com": "admin"}},
			id:       id,
			want:     RoleNone,
		},
		{
			name:     "nothing resolves",
			claims:   fakeClaims{},
			profiles: &fakeProfiles{},
			id:       id,
			want:     RoleNone,
		},
		{
			name:     "anonymous",
			claims:   fakeClaims{role: "admin"},
			profiles: &fakeProfiles{},
			id:       Identity{},
			want:     RoleNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.claims, tt.profiles, nil)
			assert.Equal(t, tt.want, r.LoadRole(context.Background(), tt.id))
		})
	}
}

func TestResolverEnsuresProfileBeforeLookup(t *testing.T) {
	p := &fakeProfiles{byID: map[string]string{"u1": "editor"}}
	r := NewResolver(fakeClaims{}, p, nil)

	r.LoadRole(context.Background(), Identity{UserID: "u1", Token: "tok"})
	assert.Equal(t, []string{"u1"}, p.ensured)
}

const page = `<html><body>
<nav>
<a href="produtos.html" data-permission="produtos.read">Produtos</a>
<a href="usuarios.html" data-permission="admin.users" style="color:red;">Usuarios</a>
<a href="index.html">Inicio</a>
</nav>
</body></html>`

func TestRenderVisible(t *testing.T) {
	tests := []struct {
		name       string
		access     Access
		hidden     []string
		visibleTxt []string
	}{
		{
			name:   "editor",
			access: NewAccess(RoleEditor, DefaultMatrix()),
			hidden: []string{`style="color:red;display:none" hidden=""`},
		},
		{
			name:   "admin sees everything",
			access: NewAccess(RoleAdmin, DefaultMatrix()),
		},
		{
			name:   "no role hides every gated element",
			access: NewAccess(RoleNone, DefaultMatrix()),
			hidden: []string{
				`data-permission="produtos.read" style="display:none" hidden=""`,
				`style="color:red;display:none" hidden=""`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder
			require.NoError(t, RenderVisible(strings.NewReader(page), &out, tt.access))
			got := out.String()

			assert.Equal(t, len(tt.hidden), strings.Count(got, "display:none"))
			for _, h := range tt.hidden {
				assert.Contains(t, got, h)
			}
			assert.Contains(t, got, `<a href="index.html">Inicio</a>`)
		})
	}
}
