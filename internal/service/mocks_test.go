package service

import (
	"context"
	"strings"
	"sync"

	"github.com/prn-tf/meridian-auth/internal/domain"
	"github.com/prn-tf/meridian-auth/internal/repository"
)

// MockUserRepository is an in-memory implementation of
// repository.UserRepository.
type MockUserRepository struct {
	mu      sync.Mutex
	byID    map[string]*domain.User
	getErr  error
	saveErr error

	// beforeSave runs at the top of Save, letting tests interleave a
	// concurrent write.
	beforeSave func()
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{byID: make(map[string]*domain.User)}
}

func (m *MockUserRepository) add(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[user.ID] = user
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		return u.Clone(), nil
	}
	return nil, repository.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == strings.ToLower(email) {
			return u.Clone(), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Username == strings.ToLower(username) {
			return u.Clone(), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	return false, nil
}

func (m *MockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := m.GetByUsername(ctx, username)
	if err == nil {
		return true, nil
	}
	return false, nil
}

func (m *MockUserRepository) Save(ctx context.Context, user *domain.User) (*domain.User, error) {
	if m.beforeSave != nil {
		m.beforeSave()
	}
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[user.ID] = user.Clone()
	return user, nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return false, nil
	}
	delete(m.byID, id)
	return true, nil
}

func (m *MockUserRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []*domain.User
	for _, u := range m.byID {
		users = append(users, u.Clone())
	}
	return users, nil
}

func (m *MockUserRepository) Count(ctx context.Context, filters map[string]string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.byID)), nil
}

func (m *MockUserRepository) GetByRole(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []*domain.User
	for _, u := range m.byID {
		if u.Role == role {
			users = append(users, u.Clone())
		}
	}
	return users, nil
}

func (m *MockUserRepository) Search(ctx context.Context, query string, limit int) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []*domain.User
	q := strings.ToLower(query)
	for _, u := range m.byID {
		if strings.Contains(u.Email, q) || strings.Contains(u.Username, q) ||
			strings.Contains(strings.ToLower(u.FullName), q) {
			users = append(users, u.Clone())
		}
	}
	return users, nil
}

// MockPermissionRepository is an in-memory implementation of
// repository.PermissionRepository.
type MockPermissionRepository struct {
	mu     sync.Mutex
	byUser map[string][]*domain.Permission
}

func NewMockPermissionRepository() *MockPermissionRepository {
	return &MockPermissionRepository{byUser: make(map[string][]*domain.Permission)}
}

func (m *MockPermissionRepository) Save(ctx context.Context, perm *domain.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byUser[perm.UserID] = append(m.byUser[perm.UserID], perm)
	return nil
}

func (m *MockPermissionRepository) GetByID(ctx context.Context, id string) (*domain.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, perms := range m.byUser {
		for _, p := range perms {
			if p.ID == id {
				return p, nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockPermissionRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byUser[userID], nil
}

func (m *MockPermissionRepository) ReplaceForUser(ctx context.Context, userID string, perms []*domain.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byUser[userID] = perms
	return nil
}

func (m *MockPermissionRepository) Deactivate(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, perms := range m.byUser {
		for _, p := range perms {
			if p.ID == id {
				p.Active = false
				return nil
			}
		}
	}
	return repository.ErrNotFound
}

// MockSessionRepository is an in-memory implementation of
// repository.SessionRepository.
type MockSessionRepository struct {
	mu   sync.Mutex
	byID map[string]*domain.Session
}

func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{byID: make(map[string]*domain.Session)}
}

func (m *MockSessionRepository) Save(ctx context.Context, sess *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[sess.ID] = sess
	return nil
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byID[id]; ok {
		return s, nil
	}
	return nil, repository.ErrNotFound
}

func (m *MockSessionRepository) ListActiveByUserID(ctx context.Context, userID string) ([]*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sessions []*domain.Session
	for _, s := range m.byID {
		if s.UserID == userID && s.IsValid() {
			sessions = append(sessions, s)
		}
	}
	return sessions, nil
}

func (m *MockSessionRepository) Deactivate(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byID[id]; ok {
		s.Active = false
		return nil
	}
	return repository.ErrNotFound
}

func (m *MockSessionRepository) DeactivateAllForUser(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.byID {
		if s.UserID == userID && s.Active {
			s.Active = false
			n++
		}
	}
	return n, nil
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.byID {
		if s.IsExpired() {
			delete(m.byID, id)
			n++
		}
	}
	return n, nil
}

// mockGuard records guard calls for assertions.
type mockGuard struct {
	blocked  bool
	attempts map[string]int
	cleared  []string
}

func newMockGuard() *mockGuard {
	return &mockGuard{attempts: make(map[string]int)}
}

func (g *mockGuard) IsBlocked(ctx context.Context, email string) (bool, error) {
	return g.blocked, nil
}

func (g *mockGuard) RecordFailedAttempt(ctx context.Context, email string) error {
	g.attempts[email]++
	return nil
}

func (g *mockGuard) ClearAttempts(ctx context.Context, email string) error {
	g.cleared = append(g.cleared, email)
	return nil
}

// mockSender records verification sends and allows token consumption.
type mockSender struct {
	tokens  map[string]string // token -> userID
	sendErr error
	sent    int
}

func newMockSender() *mockSender {
	return &mockSender{tokens: make(map[string]string)}
}

func (s *mockSender) SendVerification(ctx context.Context, email, username, userID string) (string, error) {
	if s.sendErr != nil {
		return "", s.sendErr
	}
	s.sent++
	tok := "verify-" + userID
	s.tokens[tok] = userID
	return tok, nil
}

func (s *mockSender) ConsumeToken(ctx context.Context, tok string) (string, error) {
	userID, ok := s.tokens[tok]
	if !ok {
		return "", ErrTokenNotFound
	}
	delete(s.tokens, tok)
	return userID, nil
}
