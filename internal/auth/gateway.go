// Package auth is the identity gateway: credential sign-in, sign-out,
// token authentication and session change notifications.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/store"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AccountStore holds login credentials
type AccountStore interface {
	// AccountByEmail returns domain.ErrNotFound for unknown emails.
	AccountByEmail(ctx context.Context, email string) (domain.Account, error)
	CreateAccount(ctx context.Context, acc domain.Account) error
}

// SessionStore holds active sessions keyed by token
type SessionStore interface {
	Save(ctx context.Context, s domain.Session) error
	// Load returns domain.ErrNotFound when the token is unknown, revoked or expired.
	Load(ctx context.Context, token string) (domain.Session, error)
	Revoke(ctx context.Context, s domain.Session) error
}

// SessionEvent is delivered to listeners after a sign-in or sign-out.
// Identity is nil for sign-out.
type SessionEvent struct {
	Identity *domain.Identity
	Session  domain.Session
}

// SignedIn reports whether the event is a sign-in
func (e SessionEvent) SignedIn() bool {
	return e.Identity != nil
}

// Listener receives session events
type Listener func(ctx context.Context, ev SessionEvent)

// Gateway signs users in and out
type Gateway struct {
	accounts   AccountStore
	sessions   SessionStore
	docs       store.DocumentStore
	tokens     *TokenIssuer
	bcryptCost int
	logger     *slog.Logger
	now        func() time.Time

	mu        sync.RWMutex
	listeners map[uint64]Listener
	nextID    uint64
}

// NewGateway creates an identity gateway
func NewGateway(accounts AccountStore, sessions SessionStore, docs store.DocumentStore, tokens *TokenIssuer, bcryptCost int, logger *slog.Logger) *Gateway {
	return &Gateway{
		accounts:   accounts,
		sessions:   sessions,
		docs:       docs,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		logger:     logger,
		now:        time.Now,
		listeners:  make(map[uint64]Listener),
	}
}

// OnSessionChange registers fn for every later sign-in and sign-out.
// The returned func removes the registration.
func (g *Gateway) OnSessionChange(fn Listener) func() {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.nextID
	g.nextID++
	g.listeners[id] = fn

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.listeners, id)
	}
}

func (g *Gateway) notify(ctx context.Context, ev SessionEvent) {
	g.mu.RLock()
	listeners := make([]Listener, 0, len(g.listeners))
	for _, fn := range g.listeners {
		listeners = append(listeners, fn)
	}
	g.mu.RUnlock()

	for _, fn := range listeners {
		fn(ctx, ev)
	}
}

// SignIn verifies credentials and opens a session. Failures are either
// domain.ErrInvalidCredentials or domain.ErrAuthUnknown.
func (g *Gateway) SignIn(ctx context.Context, email, password string) (domain.Session, error) {
	acc, err := g.accounts.AccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Session{}, domain.ErrInvalidCredentials
		}
		g.logger.Error("account lookup failed", "error", err)
		return domain.Session{}, fmt.Errorf("%w: %v", domain.ErrAuthUnknown, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return domain.Session{}, domain.ErrInvalidCredentials
		}
		return domain.Session{}, fmt.Errorf("%w: %v", domain.ErrAuthUnknown, err)
	}

	now := g.now()
	token, expires, err := g.tokens.Issue(acc.ID, acc.Email, now)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", domain.ErrAuthUnknown, err)
	}

	isAdmin, isCoach := g.roleFlags(ctx, acc.ID)
	session := domain.Session{
		Token:     token,
		Identity:  acc.Identity(),
		IsAdmin:   isAdmin,
		IsCoach:   isCoach,
		IssuedAt:  now,
		ExpiresAt: expires,
	}

	if err := g.sessions.Save(ctx, session); err != nil {
		return domain.Session{}, fmt.Errorf("%w: saving session: %v", domain.ErrAuthUnknown, err)
	}

	g.logger.Info("signed in", "user_id", acc.ID, "is_admin", isAdmin, "is_coach", isCoach)
	identity := session.Identity
	g.notify(ctx, SessionEvent{Identity: &identity, Session: session})
	return session, nil
}

// roleFlags reads users/{id}. Any failure yields no privileges.
func (g *Gateway) roleFlags(ctx context.Context, userID string) (isAdmin, isCoach bool) {
	doc, err := g.docs.Get(ctx, domain.CollectionUsers, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			g.logger.Warn("reading role flags failed", "user_id", userID, "error", err)
		}
		return false, false
	}
	var user domain.UserRecord
	if err := store.Decode(doc, &user); err != nil {
		g.logger.Warn("decoding role flags failed", "user_id", userID, "error", err)
		return false, false
	}
	return user.IsAdmin, user.IsCoach
}

// SignOut revokes the session behind token
func (g *Gateway) SignOut(ctx context.Context, token string) error {
	session, err := g.sessions.Load(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUnauthenticated
		}
		return fmt.Errorf("loading session: %w", err)
	}
	if err := g.sessions.Revoke(ctx, session); err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}

	g.logger.Info("signed out", "user_id", session.Identity.ID)
	g.notify(ctx, SessionEvent{Session: session})
	return nil
}

// Authenticate returns the live session for a bearer token
func (g *Gateway) Authenticate(ctx context.Context, token string) (domain.Session, error) {
	if token == "" {
		return domain.Session{}, domain.ErrUnauthenticated
	}
	claims, err := g.tokens.Parse(token)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	session, err := g.sessions.Load(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Session{}, domain.ErrUnauthenticated
		}
		return domain.Session{}, fmt.Errorf("loading session: %w", err)
	}
	if session.Identity.ID != claims.UserID || session.Expired(g.now()) {
		return domain.Session{}, domain.ErrUnauthenticated
	}
	return session, nil
}

// Register creates a login account
func (g *Gateway) Register(ctx context.Context, email, password, displayName string) (domain.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Identity{}, fmt.Errorf("%w: email is required", domain.ErrInvalidRequest)
	}
	if len(password) < 6 {
		return domain.Identity{}, fmt.Errorf("%w: password must be at least 6 characters", domain.ErrInvalidRequest)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), g.bcryptCost)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("hashing password: %w", err)
	}

	acc := domain.Account{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		CreatedAt:    g.now().UTC(),
	}
	if err := g.accounts.CreateAccount(ctx, acc); err != nil {
		return domain.Identity{}, fmt.Errorf("creating account: %w", err)
	}
	return acc.Identity(), nil
}
