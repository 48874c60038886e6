package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"catalogadmin/middleware"
	"catalogadmin/model"
	"catalogadmin/rbac"
	"catalogadmin/usecase"
	"catalogadmin/utils"

	"github.com/gin-gonic/gin"
)

// AuditReader lists stored audit events.
type AuditReader interface {
	List(ctx context.Context, filter model.AuditFilter) ([]*model.AuditEvent, error)
}

// Pinger is a dependency checked by the health endpoint.
type Pinger func(ctx context.Context) error

type Handler struct {
	Auth     *usecase.AuthService
	Users    *usecase.UsersService
	AuditLog AuditReader
	Matrix   *rbac.Matrix
	Roles    middleware.RoleLoader
	Pages    *PageRenderer

	BasePath      string
	Origin        string
	SecureCookies bool

	Checks map[string]Pinger
	Logger *slog.Logger
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func requestInfo(c *gin.Context) usecase.RequestInfo {
	return usecase.RequestInfo{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func actor(c *gin.Context) usecase.Actor {
	a := usecase.Actor{RequestInfo: requestInfo(c)}
	if id, ok := middleware.IdentityFrom(c); ok {
		a.UserID = id.UserID
	}
	a.Role = middleware.AccessFrom(c).Role
	return a
}

// rateLimited answers 429 with Retry-After when err is a rate limit denial.
func rateLimited(c *gin.Context, err error) bool {
	var rateErr *usecase.RateLimitError
	if !errors.As(err, &rateErr) {
		return false
	}
	c.Header("Retry-After", strconv.Itoa(int(rateErr.Wait.Seconds())+1))
	utils.TooManyRequests(c, rateErr.Error(), gin.H{"retry_after_minutes": usecase.Minutes(rateErr.Wait)})
	return true
}

func (h *Handler) setCookie(c *gin.Context, name, value, path string, expires time.Time) {
	maxAge := -1
	if value != "" {
		maxAge = int(time.Until(expires).Seconds())
		if maxAge <= 0 {
			maxAge = 1
		}
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, value, maxAge, path, "", h.SecureCookies, true)
}

func (h *Handler) cookiePath() string {
	if h.BasePath == "" {
		return "/"
	}
	return h.BasePath
}

func (h *Handler) setSessionCookies(c *gin.Context, sessionID, access string, accessExp time.Time, refresh string, refreshExp time.Time) {
	h.setCookie(c, middleware.SessionCookie, sessionID, h.cookiePath(), refreshExp)
	h.setCookie(c, middleware.AccessCookie, access, h.cookiePath(), accessExp)
	h.setCookie(c, middleware.RefreshCookie, refresh, h.cookiePath(), refreshExp)
}

func (h *Handler) clearSessionCookies(c *gin.Context) {
	for _, name := range []string{middleware.SessionCookie, middleware.AccessCookie, middleware.RefreshCookie} {
		h.setCookie(c, name, "", h.cookiePath(), time.Time{})
	}
}
