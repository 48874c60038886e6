package middleware

import (
	"context"
	"net/http"
	"strings"

	"catalogadmin/rbac"
	"catalogadmin/utils"

	"github.com/gin-gonic/gin"
)

const (
	SessionCookie = "session_id"
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"

	identityKey = "identity"
	accessKey   = "access"
)

// Authenticator looks up and re-validates the caller's session.
type Authenticator interface {
	CurrentUser(ctx context.Context, sessionID, accessToken string) (*rbac.Identity, error)
	Revalidate(ctx context.Context, id *rbac.Identity) error
}

// RoleLoader resolves the role of an authenticated identity.
type RoleLoader interface {
	LoadRole(ctx context.Context, id rbac.Identity) rbac.Role
}

// Credentials returns the session id cookie and the access token, taken from
// the Authorization header or, failing that, the access token cookie.
func Credentials(c *gin.Context) (sessionID, token string) {
	sessionID, _ = c.Cookie(SessionCookie)
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		token = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if token == "" {
		token, _ = c.Cookie(AccessCookie)
	}
	return sessionID, token
}

func SetIdentity(c *gin.Context, id *rbac.Identity, access rbac.Access) {
	c.Set(identityKey, id)
	c.Set(accessKey, access)
	c.Set("user_id", id.UserID)
}

func IdentityFrom(c *gin.Context) (*rbac.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*rbac.Identity)
	return id, ok && id != nil
}

// AccessFrom returns the caller's resolved access. Without one, every
// permission check fails.
func AccessFrom(c *gin.Context) rbac.Access {
	if v, ok := c.Get(accessKey); ok {
		if a, ok := v.(rbac.Access); ok {
			return a
		}
	}
	return rbac.NewAccess(rbac.RoleNone, nil)
}

// AuthMiddleware authenticates API requests. The credential is re-validated
// on every request and the role resolved fresh, so revocations apply at once.
func AuthMiddleware(auth Authenticator, roles RoleLoader, matrix *rbac.Matrix) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, token := Credentials(c)
		if sessionID == "" && token == "" {
			utils.Abort(c, http.StatusUnauthorized, "Missing or invalid token")
			return
		}

		ctx := c.Request.Context()
		id, err := auth.CurrentUser(ctx, sessionID, token)
		if err != nil || id == nil {
			utils.TrackAuthAttempt("failure", "token")
			utils.Abort(c, http.StatusUnauthorized, "Invalid or expired session")
			return
		}
		if err := auth.Revalidate(ctx, id); err != nil {
			utils.TrackAuthAttempt("failure", "token")
			utils.Abort(c, http.StatusUnauthorized, "Invalid or expired session")
			return
		}

		role := roles.LoadRole(ctx, *id)
		SetIdentity(c, id, rbac.NewAccess(role, matrix))
		c.Next()
	}
}
