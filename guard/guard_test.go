package guard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"catalogadmin/middleware"
	"catalogadmin/model"
	"catalogadmin/rbac"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	id         *rbac.Identity
	lookupErr  error
	revalidate error
}

func (f *fakeAuth) CurrentUser(_ context.Context, sessionID, token string) (*rbac.Identity, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if sessionID == "" && token == "" {
		return nil, nil
	}
	return f.id, nil
}

func (f *fakeAuth) Revalidate(context.Context, *rbac.Identity) error { return f.revalidate }

type fixedRole rbac.Role

func (r fixedRole) LoadRole(context.Context, rbac.Identity) rbac.Role { return rbac.Role(r) }

type auditLog struct {
	mu     sync.Mutex
	events []model.AuditEvent
}

func (a *auditLog) Log(e model.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(g *Guard) *gin.Engine {
	r := gin.New()
	serve := func(c *gin.Context) {
		role := middleware.AccessFrom(c).Role
		c.String(http.StatusOK, "ok:"+string(role))
	}
	r.GET("/admin/login.html", g.Page(Page{Path: "login.html", Public: true}), serve)
	r.GET("/admin/index.html", g.Page(Page{Path: "index.html", Permission: rbac.PermDashboardRead}), serve)
	r.GET("/admin/usuarios.html", g.Page(Page{Path: "usuarios.html", Permission: rbac.PermAdminUsers}), serve)
	return r
}

func get(r http.Handler, path string, withSession bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if withSession {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: "s1"})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newGuard(auth *fakeAuth, role rbac.Role, audit *auditLog) *Guard {
	return &Guard{
		BasePath: "/admin",
		Origin:   "http://localhost:8080",
		Auth:     auth,
		Roles:    fixedRole(role),
		Matrix:   rbac.DefaultMatrix(),
		Audit:    audit,
	}
}

var ana = &rbac.Identity{UserID: "u1", Email: "ana@loja.com", SessionID: "s1"}

func TestGuardRedirectsAnonymousToLogin(t *testing.T) {
	r := newRouter(newGuard(&fakeAuth{}, rbac.RoleAdmin, &auditLog{}))

	w := get(r, "/admin/usuarios.html?tab=2", false)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/login.html?redirect=%2Fadmin%2Fusuarios.html%3Ftab%3D2", w.Header().Get("Location"))
}

func TestGuardPublicPage(t *testing.T) {
	r := newRouter(newGuard(&fakeAuth{id: ana}, rbac.RoleEditor, &auditLog{}))

	w := get(r, "/admin/login.html", false)
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(r, "/admin/login.html", true)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/index.html", w.Header().Get("Location"))
}

func TestGuardPublicPageWithStaleSession(t *testing.T) {
	r := newRouter(newGuard(&fakeAuth{id: ana, revalidate: errors.New("revoked")}, rbac.RoleEditor, &auditLog{}))

	w := get(r, "/admin/login.html", true)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGuardFailedValidationGoesToLogin(t *testing.T) {
	for name, auth := range map[string]*fakeAuth{
		"lookup error": {id: ana, lookupErr: errors.New("mongo down")},
		"revalidation": {id: ana, revalidate: errors.New("token revoked")},
	} {
		t.Run(name, func(t *testing.T) {
			r := newRouter(newGuard(auth, rbac.RoleAdmin, &auditLog{}))
			w := get(r, "/admin/index.html", true)
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Contains(t, w.Header().Get("Location"), "/admin/login.html?redirect=")
		})
	}
}

func TestGuardAllowsPermittedRole(t *testing.T) {
	r := newRouter(newGuard(&fakeAuth{id: ana}, rbac.RoleAdmin, &auditLog{}))

	w := get(r, "/admin/usuarios.html", true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok:admin", w.Body.String())
}

func TestGuardDeniesAndAudits(t *testing.T) {
	audit := &auditLog{}
	r := newRouter(newGuard(&fakeAuth{id: ana}, rbac.RoleEditor, audit))

	w := get(r, "/admin/usuarios.html", true)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/index.html?reason=permission_denied", w.Header().Get("Location"))

	require.Len(t, audit.events, 1)
	ev := audit.events[0]
	assert.Equal(t, "access_denied", ev.Action)
	assert.Equal(t, "page", ev.Entity)
	assert.Equal(t, "usuarios.html", ev.EntityID)
	assert.Equal(t, "admin.users", ev.Meta["permission"])
}

func TestGuardDeniedHomeGoesToLogin(t *testing.T) {
	r := newRouter(newGuard(&fakeAuth{id: ana}, rbac.RoleNone, &auditLog{}))

	w := get(r, "/admin/index.html", true)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/login.html?reason=permission_denied", w.Header().Get("Location"))
}

func TestRequirePermission(t *testing.T) {
	audit := &auditLog{}
	g := newGuard(&fakeAuth{id: ana}, rbac.RoleAnalista, audit)

	r := gin.New()
	withRole := func(role rbac.Role) gin.HandlerFunc {
		return func(c *gin.Context) {
			middleware.SetIdentity(c, ana, rbac.NewAccess(role, g.Matrix))
		}
	}
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/anon", g.RequirePermission(rbac.PermAuditRead), ok)
	r.GET("/analista", withRole(rbac.RoleAnalista), g.RequirePermission(rbac.PermAuditRead), ok)
	r.GET("/editor", withRole(rbac.RoleEditor), g.RequirePermission(rbac.PermAuditRead), ok)

	assert.Equal(t, http.StatusUnauthorized, get(r, "/anon", false).Code)
	assert.Equal(t, http.StatusOK, get(r, "/analista", false).Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/editor", false).Code)

	require.Len(t, audit.events, 1)
	assert.Equal(t, "api", audit.events[0].Entity)
	assert.Equal(t, "/editor", audit.events[0].EntityID)
}
