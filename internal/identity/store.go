// Package identity manages the user accounts behind the credential
// exchanges: bcrypt password hashes, single-use magic tokens and the
// admin/user role the scope gate evaluates.
package identity

import (
	"context"
	"errors"
	"sync"

	"github.com/veris-dev/veris-lrs/pkg/schema"
)

var (
	// ErrNotFound is returned when a user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when a registration reuses an email.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrBadCredentials is returned when a credential exchange fails.
	// It deliberately does not say which part was wrong.
	ErrBadCredentials = errors.New("email or password is incorrect")
)

// Store persists user accounts. Implementations must tolerate concurrent
// use without external locking.
type Store interface {
	Create(ctx context.Context, u schema.User) error
	ByID(ctx context.Context, id string) (schema.User, error)
	ByEmail(ctx context.Context, email string) (schema.User, error)
	Update(ctx context.Context, u schema.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]schema.User, error)
}

// MemUsers is the embedded user store.
type MemUsers struct {
	mu    sync.RWMutex
	users map[string]schema.User
	email map[string]string // email -> id
}

// NewMemUsers initializes an empty embedded user store.
func NewMemUsers() *MemUsers {
	return &MemUsers{
		users: make(map[string]schema.User),
		email: make(map[string]string),
	}
}

func (m *MemUsers) Create(_ context.Context, u schema.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.email[u.Email]; taken {
		return ErrDuplicateEmail
	}
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

func (m *MemUsers) ByID(_ context.Context, id string) (schema.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return schema.User{}, ErrNotFound
	}
	return u, nil
}

func (m *MemUsers) ByEmail(_ context.Context, email string) (schema.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.email[email]
	if !ok {
		return schema.User{}, ErrNotFound
	}
	return m.users[id], nil
}

func (m *MemUsers) Update(_ context.Context, u schema.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	if old.Email != u.Email {
		if _, taken := m.email[u.Email]; taken {
			return ErrDuplicateEmail
		}
		delete(m.email, old.Email)
		m.email[u.Email] = u.ID
	}
	m.users[u.ID] = u
	return nil
}

func (m *MemUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.email, u.Email)
	delete(m.users, id)
	return nil
}

func (m *MemUsers) List(_ context.Context) ([]schema.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]schema.User, 0, len(m.users))
	for _, u := range m.users {
		list = append(list, u)
	}
	return list, nil
}
