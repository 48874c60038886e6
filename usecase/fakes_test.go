package usecase

import (
	"context"
	"testing"
	"time"

	"catalogadmin/clock"
	"catalogadmin/config"
	"catalogadmin/model"
	"catalogadmin/ratelimit"
	"catalogadmin/services"
	"catalogadmin/session"
	"catalogadmin/testutils/memstore"

	"github.com/stretchr/testify/require"
)

const testPassword = "Secret#123"

type fixture struct {
	auth     *AuthService
	users    *memstore.Users
	sessions *memstore.Sessions
	audit    *memstore.Auditor
	clock    *clock.Fake
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	store := ratelimit.NewMemoryStore()
	sessCfg := config.SessionConfig{
		Timeout:           30 * time.Minute,
		WarningTime:       5 * time.Minute,
		CheckInterval:     time.Hour,
		Duration:          24 * time.Hour,
		MaxActiveSessions: 5,
	}
	secCfg := config.SecurityConfig{
		MaxLoginAttempts:        3,
		LockoutDuration:         15 * time.Minute,
		LoginBucketCapacity:     10,
		LoginBucketRefillPerSec: 1.0 / 60,
	}
	f := &fixture{
		users:    memstore.NewUsers(),
		sessions: memstore.NewSessions(),
		audit:    &memstore.Auditor{},
		clock:    clk,
	}
	registry := session.NewRegistry(session.Config{
		Timeout:       sessCfg.Timeout,
		WarningTime:   sessCfg.WarningTime,
		CheckInterval: sessCfg.CheckInterval,
	}, clk)
	t.Cleanup(registry.StopAll)

	f.auth = &AuthService{
		Users:    f.users,
		Sessions: f.sessions,
		Tokens: services.NewTokenService(config.JWTConfig{
			SecretKey:            "test_secret_key",
			Issuer:               "catalog-admin",
			AccessTokenDuration:  time.Hour,
			RefreshTokenDuration: 24 * time.Hour,
		}, clk),
		Blacklist:  services.NewMemoryTokenBlacklist(clk),
		Limiter:    ratelimit.NewLimiter(store, clk),
		Lockout:    ratelimit.NewLockoutTracker(store, clk, secCfg.MaxLoginAttempts, secCfg.LockoutDuration),
		Monitors:   registry,
		Audit:      f.audit,
		Clock:      clk,
		Session:    sessCfg,
		Security:   secCfg,
		Background: ctx,
	}
	return f
}

func (f *fixture) addUser(t *testing.T, id, email, role string, active bool) *model.User {
	t.Helper()
	hashed, err := services.HashPassword(testPassword)
	require.NoError(t, err)
	u := &model.User{UserID: id, Email: email, Password: hashed, Role: role, Active: active}
	require.NoError(t, f.users.AddUser(context.Background(), u))
	return u
}

func (f *fixture) login(email, password string) (*LoginResult, error) {
	return f.auth.Login(context.Background(), LoginInput{
		Email:     email,
		Password:  password,
		IP:        "127.0.0.1",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
	})
}
