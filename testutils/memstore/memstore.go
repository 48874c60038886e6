// Package memstore provides in-memory user, session and audit stores for
// tests of the layers above the repositories.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"catalogadmin/model"
	"catalogadmin/rbac"
	"catalogadmin/repository"
)

type Users struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func NewUsers() *Users { return &Users{users: map[string]*model.User{}} }

// Get returns a copy of the stored user, or nil.
func (m *Users) Get(id string) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

func (m *Users) FindUser(_ context.Context, userID string) (*model.User, error) {
	return m.Get(userID), nil
}

func (m *Users) FindUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Users) AddUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateUser
		}
	}
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

func (m *Users) EnsureProfile(_ context.Context, id rbac.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id.UserID]; !ok {
		m.users[id.UserID] = &model.User{UserID: id.UserID, Email: id.Email, Role: string(repository.DefaultProfileRole), Active: true}
	}
	return nil
}

func (m *Users) RoleByUserID(_ context.Context, userID string) (string, error) {
	if u := m.Get(userID); u != nil {
		return u.Role, nil
	}
	return "", nil
}

func (m *Users) RoleByEmail(ctx context.Context, email string) (string, error) {
	u, _ := m.FindUserByEmail(ctx, email)
	if u == nil {
		return "", nil
	}
	return u.Role, nil
}

func (m *Users) ListUsers(context.Context) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *Users) update(userID string, fn func(*model.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	fn(u)
	return nil
}

func (m *Users) UpdateRole(_ context.Context, userID, role string) error {
	return m.update(userID, func(u *model.User) { u.Role = role })
}

func (m *Users) UpdateActive(_ context.Context, userID string, active bool) error {
	return m.update(userID, func(u *model.User) { u.Active = active })
}

func (m *Users) UpdateUserPassword(_ context.Context, userID, hashed string) error {
	return m.update(userID, func(u *model.User) {
		u.Password = hashed
		u.LastPasswordChange = time.Now()
	})
}

func (m *Users) UpdateDisplayName(_ context.Context, userID, name string) error {
	return m.update(userID, func(u *model.User) { u.DisplayName = name })
}

func (m *Users) SetPendingTwoFactor(_ context.Context, userID, secret string) error {
	return m.update(userID, func(u *model.User) { u.TwoFactorSecret = secret })
}

func (m *Users) Enable2FAWithRecoveryCodes(_ context.Context, userID string, codes []string) error {
	return m.update(userID, func(u *model.User) {
		u.TwoFactorEnabled = true
		u.RecoveryCodes = codes
	})
}

func (m *Users) UpdateRecoveryCodes(_ context.Context, userID string, codes []string) error {
	return m.update(userID, func(u *model.User) { u.RecoveryCodes = codes })
}

func (m *Users) Disable2FA(_ context.Context, userID string) error {
	return m.update(userID, func(u *model.User) {
		u.TwoFactorEnabled = false
		u.TwoFactorSecret = ""
		u.RecoveryCodes = nil
	})
}

type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
}

func NewSessions() *Sessions { return &Sessions{sessions: map[string]*model.Session{}} }

func (m *Sessions) CreateSession(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.SessionID] = &cp
	return nil
}

func (m *Sessions) GetSession(_ context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *Sessions) TouchSession(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.LastActivityAt = at
	}
	return nil
}

func (m *Sessions) EndSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.IsActive = false
	}
	return nil
}

func (m *Sessions) EndAllUserSessions(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ended []string
	for id, s := range m.sessions {
		if s.UserID == userID && s.IsActive {
			s.IsActive = false
			ended = append(ended, id)
		}
	}
	return ended, nil
}

func (m *Sessions) GetUserActiveSessions(_ context.Context, userID string) ([]*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Session
	for _, s := range m.sessions {
		if s.UserID == userID && s.IsActive {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivityAt.Before(out[j].LastActivityAt) })
	return out, nil
}

func (m *Sessions) EndLeastActiveSession(ctx context.Context, userID string) (string, error) {
	active, _ := m.GetUserActiveSessions(ctx, userID)
	if len(active) == 0 {
		return "", nil
	}
	return active[0].SessionID, m.EndSession(ctx, active[0].SessionID)
}

func (m *Sessions) CountActiveSessions(ctx context.Context, userID string) (int, error) {
	active, _ := m.GetUserActiveSessions(ctx, userID)
	return len(active), nil
}

type Auditor struct {
	mu     sync.Mutex
	events []model.AuditEvent
}

func (r *Auditor) Log(e model.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Auditor) Actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Action
	}
	return out
}

// Last returns the most recent event with action.
func (r *Auditor) Last(action string) (model.AuditEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Action == action {
			return r.events[i], true
		}
	}
	return model.AuditEvent{}, false
}

// List filters the recorded events newest first.
func (r *Auditor) List(_ context.Context, filter model.AuditFilter) ([]*model.AuditEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.AuditEvent{}
	for i := len(r.events) - 1; i >= 0; i-- {
		e := r.events[i]
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.UserID != "" && e.UserID != filter.UserID {
			continue
		}
		if filter.Entity != "" && e.Entity != filter.Entity {
			continue
		}
		out = append(out, &e)
		if filter.Limit > 0 && int64(len(out)) >= filter.Limit {
			break
		}
	}
	return out, nil
}
