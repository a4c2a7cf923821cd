// Package roles decides which dashboard a signed-in member sees.
package roles

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/club-portal/internal/auth"
	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/store"
)

// Role is the resolved kind of member
type Role string

const (
	RoleCoach        Role = "coach"
	RolePlayer       Role = "player"
	RoleUnrecognized Role = "unknown"
)

// Resolution is the outcome of resolving one session. Player is set only
// for RolePlayer, Message only for RoleUnrecognized.
type Resolution struct {
	Role Role `json:"role"`
	// Reconciled is true when a coach profile was found for an account
	// whose users document lacks the coach flag.
	Reconciled bool           `json:"reconciled,omitempty"`
	Player     *domain.Player `json:"player,omitempty"`
	Message    string         `json:"message,omitempty"`
}

// Cache keeps one resolution per session token
type Cache interface {
	Get(ctx context.Context, token string) (Resolution, bool, error)
	Set(ctx context.Context, token string, r Resolution, ttl time.Duration) error
	Invalidate(ctx context.Context, token string) error
}

// Resolver maps sessions to roles
type Resolver struct {
	docs   store.DocumentStore
	cache  Cache
	logger *slog.Logger
}

// NewResolver creates a resolver. cache may be nil.
func NewResolver(docs store.DocumentStore, cache Cache, logger *slog.Logger) *Resolver {
	return &Resolver{docs: docs, cache: cache, logger: logger}
}

// Resolve trusts the session's coach flag, then looks for a linked player
// profile, then a linked coach profile. Query failures return
// domain.ErrProfileUnverifiable; the session itself stays valid.
func (r *Resolver) Resolve(ctx context.Context, s domain.Session) (Resolution, error) {
	if s.IsCoach {
		return Resolution{Role: RoleCoach}, nil
	}

	uid := s.Identity.ID
	players, err := r.docs.Query(ctx, store.From(domain.CollectionPlayers).Where("userId", store.Eq, uid).Take(1))
	if err != nil {
		r.logger.Error("resolving role: player lookup failed", "user_id", uid, "error", err)
		return Resolution{}, fmt.Errorf("%w: %v", domain.ErrProfileUnverifiable, err)
	}
	if len(players) > 0 {
		var p domain.Player
		if err := store.Decode(players[0], &p); err != nil {
			return Resolution{}, fmt.Errorf("%w: %v", domain.ErrProfileUnverifiable, err)
		}
		return Resolution{Role: RolePlayer, Player: &p}, nil
	}

	coaches, err := r.docs.Query(ctx, store.From(domain.CollectionCoaches).Where("userId", store.Eq, uid).Take(1))
	if err != nil {
		r.logger.Error("resolving role: coach lookup failed", "user_id", uid, "error", err)
		return Resolution{}, fmt.Errorf("%w: %v", domain.ErrProfileUnverifiable, err)
	}
	if len(coaches) > 0 {
		r.logger.Warn("coach profile linked but users document lacks coach flag, promoting for this session",
			"user_id", uid, "email", s.Identity.Email, "coach_id", coaches[0].ID)
		return Resolution{Role: RoleCoach, Reconciled: true}, nil
	}

	return Resolution{Role: RoleUnrecognized, Message: domain.MessageUnlinkedAccount}, nil
}

// ResolveSession is Resolve behind the per-token cache. Failures are not cached.
func (r *Resolver) ResolveSession(ctx context.Context, s domain.Session) (Resolution, error) {
	if r.cache != nil {
		cached, ok, err := r.cache.Get(ctx, s.Token)
		if err != nil {
			r.logger.Warn("role cache read failed", "error", err)
		} else if ok {
			return cached, nil
		}
	}

	res, err := r.Resolve(ctx, s)
	if err != nil {
		return Resolution{}, err
	}

	if r.cache != nil {
		ttl := time.Until(s.ExpiresAt)
		if !s.ExpiresAt.IsZero() && ttl > 0 {
			if err := r.cache.Set(ctx, s.Token, res, ttl); err != nil {
				r.logger.Warn("role cache write failed", "error", err)
			}
		}
	}
	return res, nil
}

// HandleSessionChange recomputes the cached resolution on sign-in and drops it on sign-out.
func (r *Resolver) HandleSessionChange(ctx context.Context, ev auth.SessionEvent) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx, ev.Session.Token); err != nil {
		r.logger.Warn("role cache invalidation failed", "error", err)
	}
	if !ev.SignedIn() {
		return
	}
	if _, err := r.ResolveSession(ctx, ev.Session); err != nil {
		r.logger.Warn("resolving role at sign-in failed", "user_id", ev.Session.Identity.ID, "error", err)
	}
}

// MemoryCache is a Cache kept in process memory
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	res     Resolution
	expires time.Time
}

// NewMemoryCache creates an empty cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get returns a live entry
func (c *MemoryCache) Get(ctx context.Context, token string) (Resolution, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[token]
	if !ok {
		return Resolution{}, false, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, token)
		return Resolution{}, false, nil
	}
	return e.res, true, nil
}

// Set stores r until ttl elapses
func (c *MemoryCache) Set(ctx context.Context, token string, r Resolution, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[token] = memoryEntry{res: r, expires: c.now().Add(ttl)}
	return nil
}

// Invalidate drops the entry for token
func (c *MemoryCache) Invalidate(ctx context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, token)
	return nil
}
