package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"catalogadmin/clock"
	"catalogadmin/config"
	"catalogadmin/handler"
	"catalogadmin/ratelimit"
	"catalogadmin/rbac"
	"catalogadmin/repository"
	"catalogadmin/services"
	"catalogadmin/session"
	"catalogadmin/usecase"
	"catalogadmin/utils"
	"catalogadmin/web"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// app holds the wired dependencies of the server and the CLI.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	mongo *mongo.Client
	db    *mongo.Database
	redis *redis.Client

	users    *repository.UserRepo
	sessions *repository.SessionRepo
	auditLog *repository.AuditRepo

	audit    *services.AuditLogger
	monitors *session.Registry
	matrix   *rbac.Matrix
	resolver *rbac.Resolver
	auth     *usecase.AuthService
	admin    *usecase.UsersService
	handler  *handler.Handler

	cancel context.CancelFunc
}

// newApp connects to MongoDB (and Redis when configured) and wires every
// service. The caller must call close.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	bg, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	client, err := utils.ConnectMongo(ctx, cfg.Database.MongoOptions())
	if err != nil {
		cancel()
		return nil, err
	}
	a.mongo = client
	a.db = client.Database(cfg.Database.DatabaseName)

	if err := repository.SetupIndexes(ctx, a.db, repository.Collections{
		Users:    cfg.Database.UsersCollection,
		Sessions: cfg.Database.SessionCollection,
		Audit:    cfg.Database.AuditCollection,
	}); err != nil {
		logger.Warn("index setup failed", "error", err)
	}

	var (
		tableStore ratelimit.Store = ratelimit.NewMemoryStore()
		blacklist  services.TokenBlacklist
		cache      *services.SessionCache
	)
	clk := clock.Real{}
	if cfg.Redis.URL != "" {
		rc, err := services.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			a.close(context.Background())
			return nil, err
		}
		a.redis = rc
		tableStore = ratelimit.NewRedisStore(rc, cfg.Redis.Prefix)
		blacklist = services.NewRedisTokenBlacklist(rc, cfg.Redis.Prefix)
		cache = services.NewSessionCache(rc, cfg.Redis.Prefix)
	} else {
		logger.Info("REDIS_URL not set, using in-memory limiter tables and token blacklist")
		blacklist = services.NewMemoryTokenBlacklist(clk)
	}

	a.matrix = rbac.DefaultMatrix()
	if path := cfg.Security.PermissionsFile; path != "" {
		m, err := rbac.LoadMatrixFile(path)
		if err != nil {
			a.close(context.Background())
			return nil, err
		}
		a.matrix = m
		logger.Info("loaded permissions file", "path", path, "roles", len(m.Roles()))
	}

	a.users = repository.NewUserRepo(a.db, cfg.Database.UsersCollection)
	a.sessions = repository.NewSessionRepo(a.db, cfg.Database.SessionCollection, cache)
	a.auditLog = repository.NewAuditRepo(a.db, cfg.Database.AuditCollection)
	a.audit = services.NewAuditLogger(a.auditLog, clk, logger, 512)

	a.monitors = session.NewRegistry(session.Config{
		Timeout:       cfg.Session.Timeout,
		WarningTime:   cfg.Session.WarningTime,
		CheckInterval: cfg.Session.CheckInterval,
	}, clk)

	a.auth = &usecase.AuthService{
		Users:      a.users,
		Sessions:   a.sessions,
		Tokens:     services.NewTokenService(cfg.JWT, clk),
		Blacklist:  blacklist,
		Limiter:    ratelimit.NewLimiter(tableStore, clk),
		Lockout:    ratelimit.NewLockoutTracker(tableStore, clk, cfg.Security.MaxLoginAttempts, cfg.Security.LockoutDuration),
		Monitors:   a.monitors,
		Audit:      a.audit,
		Clock:      clk,
		Logger:     logger,
		Session:    cfg.Session,
		Security:   cfg.Security,
		Background: bg,
	}
	a.admin = &usecase.UsersService{Users: a.users, Auth: a.auth, Audit: a.audit, Clock: clk, Logger: logger}
	a.resolver = rbac.NewResolver(a.auth, a.users, logger)

	pages, err := handler.NewPageRenderer(web.Templates)
	if err != nil {
		a.close(context.Background())
		return nil, err
	}

	a.handler = &handler.Handler{
		Auth:          a.auth,
		Users:         a.admin,
		AuditLog:      a.auditLog,
		Matrix:        a.matrix,
		Roles:         a.resolver,
		Pages:         pages,
		BasePath:      cfg.App.BasePath,
		Origin:        cfg.App.Origin,
		SecureCookies: cfg.App.Environment == "production",
		Checks:        a.checks(),
		Logger:        logger,
	}
	return a, nil
}

func (a *app) checks() map[string]handler.Pinger {
	checks := map[string]handler.Pinger{
		"mongo": func(ctx context.Context) error { return a.mongo.Ping(ctx, nil) },
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	return checks
}

// close stops the idle monitors, drains the audit queue and disconnects.
func (a *app) close(ctx context.Context) {
	if a.monitors != nil {
		a.monitors.StopAll()
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.audit != nil {
		if err := a.audit.Close(ctx); err != nil {
			a.logger.Warn("audit queue not drained", "error", err)
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.mongo != nil {
		dctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.mongo.Disconnect(dctx); err != nil {
			a.logger.Warn("mongo disconnect failed", "error", err)
		}
	}
}

func loadConfig() (*config.Config, error) {
	if err := config.LoadEnvFile(); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
