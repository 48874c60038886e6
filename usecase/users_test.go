package usecase

import (
	"context"
	"testing"

	"catalogadmin/rbac"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUsersService(f *fixture) *UsersService {
	return &UsersService{Users: f.users, Auth: f.auth, Audit: f.audit, Clock: f.clock}
}

var admin = Actor{UserID: "admin-1", Role: rbac.RoleAdmin, RequestInfo: RequestInfo{IP: "10.0.0.1"}}

func TestCreateUserDefaultsToEditor(t *testing.T) {
	f := newFixture(t)
	svc := newUsersService(f)

	u, err := svc.Create(context.Background(), CreateUserInput{
		Email: "Bia@Loja.com", DisplayName: "Bia", Password: testPassword, Role: "superuser",
	}, admin)
	require.NoError(t, err)
	assert.Equal(t, "bia@loja.com", u.Email)
	assert.Equal(t, "editor", u.Role)
	assert.True(t, u.Active)

	ev, ok := f.audit.Last("user_create")
	require.True(t, ok)
	assert.Equal(t, "admin-1", ev.UserID)
	assert.Equal(t, u.UserID, ev.EntityID)

	_, err = svc.Create(context.Background(), CreateUserInput{Email: "bia@loja.com", Password: testPassword}, admin)
	assert.Error(t, err)
}

func TestCreateUserRejectsWeakPassword(t *testing.T) {
	f := newFixture(t)
	_, err := newUsersService(f).Create(context.Background(), CreateUserInput{Email: "x@loja.com", Password: "short"}, admin)
	assert.Error(t, err)
}

func TestSetRoleEndsSessions(t *testing.T) {
	f := newFixture(t)
	svc := newUsersService(f)
	f.addUser(t, "u1", "ana@loja.com", "editor", true)
	ctx := context.Background()

	res, err := f.login("ana@loja.com", testPassword)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.SetRole(ctx, "u1", "visitante", admin), ErrInvalidRole)
	require.NoError(t, svc.SetRole(ctx, "u1", "Administrador", admin))
	assert.Equal(t, "admin", f.users.Get("u1").Role)

	ev, ok := f.audit.Last("user_role_change")
	require.True(t, ok)
	assert.Equal(t, "editor", ev.Before["role"])
	assert.Equal(t, "admin", ev.After["role"])

	stored, _ := f.sessions.GetSession(ctx, res.Session.SessionID)
	assert.False(t, stored.IsActive)
	_, running := f.auth.SessionStatus(context.Background(), res.Session.SessionID)
	assert.False(t, running)
}

func TestSetActiveDisablesLogin(t *testing.T) {
	f := newFixture(t)
	svc := newUsersService(f)
	f.addUser(t, "u1", "ana@loja.com", "analista", true)
	ctx := context.Background()

	require.NoError(t, svc.SetActive(ctx, "u1", false, admin))
	_, err := f.login("ana@loja.com", testPassword)
	assert.ErrorIs(t, err, ErrUserDisabled)

	require.NoError(t, svc.SetActive(ctx, "u1", true, admin))
	_, err = f.login("ana@loja.com", testPassword)
	assert.NoError(t, err)
}

func TestSetRoleUnknownUser(t *testing.T) {
	f := newFixture(t)
	err := newUsersService(f).SetRole(context.Background(), "missing", "admin", admin)
	assert.True(t, IsNotFound(err))
}

func TestResetPassword(t *testing.T) {
	f := newFixture(t)
	svc := newUsersService(f)
	f.addUser(t, "u1", "ana@loja.com", "editor", true)
	ctx := context.Background()

	res, err := f.login("ana@loja.com", testPassword)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, _ = f.login("ana@loja.com", "Wrong#123")
	}
	locked, err := f.auth.Lockout.IsAccountLocked(ctx, "ana@loja.com")
	require.NoError(t, err)
	require.True(t, locked)

	assert.Error(t, svc.ResetPassword(ctx, "u1", "fraca", admin))
	assert.True(t, IsNotFound(svc.ResetPassword(ctx, "missing", "Nova#Senha1", admin)))
	require.NoError(t, svc.ResetPassword(ctx, "u1", "Nova#Senha1", admin))

	ev, ok := f.audit.Last("user_password_reset")
	require.True(t, ok)
	assert.Equal(t, "admin-1", ev.UserID)
	assert.Contains(t, ev.Before, "last_password_change")
	assert.Equal(t, f.clock.Now(), ev.After["last_password_change"])

	stored, _ := f.sessions.GetSession(ctx, res.Session.SessionID)
	assert.False(t, stored.IsActive)

	_, err = f.login("ana@loja.com", testPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.login("ana@loja.com", "Nova#Senha1")
	require.NoError(t, err, "reset clears the lockout")
}

func TestUserSavesShareActorBucket(t *testing.T) {
	f := newFixture(t)
	f.auth.Security.SaveBucketCapacity = 2
	f.auth.Security.SaveBucketRefillPerSec = 1.0 / 600
	svc := newUsersService(f)
	f.addUser(t, "u1", "ana@loja.com", "editor", true)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateUserInput{Email: "bia@loja.com", Password: testPassword}, admin)
	require.NoError(t, err)
	require.NoError(t, svc.SetRole(ctx, "u1", "analista", admin))

	err = svc.SetActive(ctx, "u1", false, admin)
	require.ErrorIs(t, err, ErrRateLimited)
	assert.True(t, f.users.Get("u1").Active)

	other := Actor{UserID: "admin-2", Role: rbac.RoleAdmin}
	require.NoError(t, svc.SetActive(ctx, "u1", false, other))
}
