package guard

import (
	"log/slog"
	"net/http"

	"catalogadmin/middleware"
	"catalogadmin/model"
	"catalogadmin/rbac"
	"catalogadmin/utils"

	"github.com/gin-gonic/gin"
)

// Page describes one guarded page.
type Page struct {
	Path       string
	Public     bool
	Permission rbac.Permission
}

// Auditor receives access_denied events. Log must not block.
type Auditor interface {
	Log(event model.AuditEvent)
}

type Guard struct {
	BasePath string
	Origin   string
	Auth     middleware.Authenticator
	Roles    middleware.RoleLoader
	Matrix   *rbac.Matrix
	Audit    Auditor
	Logger   *slog.Logger
}

func (g *Guard) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

func (g *Guard) redirect(c *gin.Context, to string) {
	c.Redirect(http.StatusFound, to)
	c.Abort()
}

func (g *Guard) toLogin(c *gin.Context) {
	next := SafeRedirect(g.BasePath, g.Origin, c.Request.URL.RequestURI())
	g.redirect(c, LoginURL(g.BasePath, next))
}

// Page returns the gate for p. Every outcome either redirects or lets the
// request through with identity and access set on the context.
func (g *Guard) Page(p Page) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		sessionID, token := middleware.Credentials(c)

		if p.Public {
			if sessionID != "" || token != "" {
				id, err := g.Auth.CurrentUser(ctx, sessionID, token)
				if err == nil && id != nil && g.Auth.Revalidate(ctx, id) == nil {
					g.redirect(c, LandingPath(g.BasePath))
					return
				}
			}
			c.Next()
			return
		}

		id, err := g.Auth.CurrentUser(ctx, sessionID, token)
		if err != nil {
			g.logger().Warn("session lookup failed", "path", p.Path, "error", err)
			g.toLogin(c)
			return
		}
		if id == nil {
			g.toLogin(c)
			return
		}
		if err := g.Auth.Revalidate(ctx, id); err != nil {
			g.logger().Info("session validation failed", "user_id", id.UserID, "path", p.Path, "error", err)
			g.toLogin(c)
			return
		}

		access := rbac.NewAccess(g.Roles.LoadRole(ctx, *id), g.Matrix)
		if !access.Has(p.Permission) {
			g.denied(c, id, access, "page", p.Path, p.Permission)
			g.redirect(c, DeniedURL(g.BasePath, c.Request.URL.Path))
			return
		}

		middleware.SetIdentity(c, id, access)
		c.Next()
	}
}

func (g *Guard) denied(c *gin.Context, id *rbac.Identity, access rbac.Access, entity, path string, perm rbac.Permission) {
	utils.TrackAccessDenied(string(perm))
	if g.Audit == nil {
		return
	}
	g.Audit.Log(model.AuditEvent{
		Action:    "access_denied",
		Entity:    entity,
		EntityID:  path,
		UserID:    id.UserID,
		Role:      string(access.Role),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Meta:      map[string]any{"permission": string(perm)},
	})
}

// RequirePermission guards a JSON endpoint. It expects the identity to have
// been set by the auth middleware.
func (g *Guard) RequirePermission(perm rbac.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := middleware.IdentityFrom(c)
		if !ok {
			utils.Abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		access := middleware.AccessFrom(c)
		if !access.Has(perm) {
			g.denied(c, id, access, "api", c.FullPath(), perm)
			utils.Abort(c, http.StatusForbidden, "Permission denied")
			return
		}
		c.Next()
	}
}
