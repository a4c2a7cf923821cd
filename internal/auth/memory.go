package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/club-portal/internal/domain"
)

// MemoryAccounts is an AccountStore for development and tests
type MemoryAccounts struct {
	mu      sync.RWMutex
	byEmail map[string]domain.Account
}

// NewMemoryAccounts creates an empty account store
func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{byEmail: make(map[string]domain.Account)}
}

// AccountByEmail looks up an account case-insensitively
func (m *MemoryAccounts) AccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acc, ok := m.byEmail[emailKey(email)]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return acc, nil
}

// CreateAccount stores acc, refusing duplicate emails
func (m *MemoryAccounts) CreateAccount(ctx context.Context, acc domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := emailKey(acc.Email)
	if _, exists := m.byEmail[key]; exists {
		return fmt.Errorf("%w: email already registered", domain.ErrInvalidRequest)
	}
	m.byEmail[key] = acc
	return nil
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MemorySessions is a SessionStore for development and tests
type MemorySessions struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	now      func() time.Time
}

// NewMemorySessions creates an empty session store
func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[string]domain.Session), now: time.Now}
}

// Save stores s under its token
func (m *MemorySessions) Save(ctx context.Context, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Token] = s
	return nil
}

// Load returns a live session
func (m *MemorySessions) Load(ctx context.Context, token string) (domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[token]
	if !ok || s.Expired(m.now()) {
		return domain.Session{}, domain.ErrNotFound
	}
	return s, nil
}

// Revoke removes s
func (m *MemorySessions) Revoke(ctx context.Context, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, s.Token)
	return nil
}

// SweepExpired drops expired sessions and returns their tokens
func (m *MemorySessions) SweepExpired(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var tokens []string
	for token, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, token)
			tokens = append(tokens, token)
		}
	}
	return tokens, nil
}
