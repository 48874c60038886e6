package main

import (
	"net/http"

	"catalogadmin/guard"
	"catalogadmin/middleware"
	"catalogadmin/rbac"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// pages maps every served template to the permission that gates it.
var pages = []guard.Page{
	{Path: guard.LoginPage, Public: true},
	{Path: guard.HomePage, Permission: rbac.PermDashboardRead},
	{Path: "usuarios.html", Permission: rbac.PermAdminUsers},
	{Path: "auditoria.html", Permission: rbac.PermAuditRead},
	{Path: "metricas.html", Permission: rbac.PermMetricasRead},
}

func setupRouter(a *app) *gin.Engine {
	router := gin.New()
	h := a.handler
	base := a.cfg.App.BasePath

	router.Use(middleware.RequestTracingMiddleware())
	router.Use(middleware.RequestLogger(a.logger, "/health", "/metrics"))
	router.Use(middleware.EnhancedRecoveryMiddleware(a.logger))
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORSMiddleware(a.cfg.App.Origin))
	router.Use(middleware.RequestSizeLimiter(a.cfg.Security.MaxRequestBytes))

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	g := &guard.Guard{
		BasePath: base,
		Origin:   a.cfg.App.Origin,
		Auth:     a.auth,
		Roles:    a.resolver,
		Matrix:   a.matrix,
		Audit:    a.audit,
		Logger:   a.logger,
	}

	site := router.Group(base)
	site.Use(middleware.NoStore())
	site.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, guard.LandingPath(base))
	})
	activity := middleware.SessionActivity(a.auth)
	for _, p := range pages {
		site.GET("/"+p.Path, g.Page(p), activity, h.Page(p.Path))
	}

	api := router.Group(base + "/api")
	api.Use(middleware.NoStore())
	// Anonymous calls are keyed by IP. Protected calls run the limiter after
	// authentication so they are keyed by user.
	clientLimit := middleware.ClientRateLimit(
		middleware.NewClientLimiter(a.cfg.Security.APIRateRPS, a.cfg.Security.APIRateBurst),
		middleware.DefaultKeyFunc,
	)
	{
		auth := api.Group("/auth")
		auth.Use(clientLimit)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
		auth.POST("/refresh", h.RefreshToken)
	}

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(a.auth, a.resolver, a.matrix))
	protected.Use(clientLimit)
	protected.Use(middleware.SessionActivity(a.auth, base+"/api/session/status"))
	{
		protected.GET("/me", h.GetUserProfile)
		protected.PUT("/me", h.UpdateProfile)
		protected.POST("/me/password", h.ChangePassword)

		twoFactor := protected.Group("/2fa")
		twoFactor.POST("/setup", h.Setup2FA)
		twoFactor.POST("/enable", h.Enable2FA)
		twoFactor.POST("/disable", h.Disable2FA)

		protected.GET("/sessions", h.GetActiveSessions)
		protected.POST("/sessions/logout-all", h.LogoutAllSessions)
		protected.GET("/session/status", h.SessionStatus)
		protected.POST("/session/keepalive", h.KeepAlive)

		users := protected.Group("/users")
		users.Use(g.RequirePermission(rbac.PermAdminUsers))
		users.GET("", h.ListUsers)
		users.POST("", h.CreateUser)
		users.PUT("/:id/role", h.SetUserRole)
		users.PUT("/:id/active", h.SetUserActive)
		users.PUT("/:id/password", h.SetUserPassword)

		protected.GET("/audit", g.RequirePermission(rbac.PermAuditRead), h.ListAudit)
	}

	return router
}
