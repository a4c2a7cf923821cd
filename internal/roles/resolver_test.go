package roles

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/club-portal/internal/auth"
	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/store"
)

// countingStore counts queries per collection and can fail on demand.
type countingStore struct {
	store.DocumentStore
	queries map[string]int
	failOn  string
}

func (c *countingStore) Query(ctx context.Context, q store.Query) ([]store.Document, error) {
	c.queries[q.Collection]++
	if q.Collection == c.failOn {
		return nil, errors.New("unavailable")
	}
	return c.DocumentStore.Query(ctx, q)
}

func newStore(t *testing.T) (*countingStore, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return &countingStore{DocumentStore: mem, queries: map[string]int{}}, mem
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func session(uid string, isCoach bool) domain.Session {
	return domain.Session{
		Token:     "tok-" + uid,
		Identity:  domain.Identity{ID: uid, Email: uid + "@club.test"},
		IsCoach:   isCoach,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestCoachFlagShortCircuits(t *testing.T) {
	docs, _ := newStore(t)
	res, err := NewResolver(docs, nil, discard()).Resolve(context.Background(), session("u1", true))
	if err != nil || res.Role != RoleCoach {
		t.Fatalf("Resolve = %+v, %v", res, err)
	}
	if len(docs.queries) != 0 {
		t.Errorf("coach flag should issue no queries, got %v", docs.queries)
	}
}

func TestLinkedPlayer(t *testing.T) {
	docs, mem := newStore(t)
	ctx := context.Background()
	_ = mem.Set(ctx, domain.CollectionPlayers, "p7", map[string]any{"userId": "u2", "name": "Winger", "number": 7})
	_ = mem.Set(ctx, domain.CollectionCoaches, "c1", map[string]any{"userId": "u2", "name": "Also coach"})

	res, err := NewResolver(docs, nil, discard()).Resolve(ctx, session("u2", false))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Role != RolePlayer || res.Player == nil || res.Player.ID != "p7" || res.Player.Name != "Winger" {
		t.Fatalf("Resolve = %+v", res)
	}
	if docs.queries[domain.CollectionCoaches] != 0 {
		t.Errorf("coach lookup should not run when a player is linked")
	}
}

func TestCoachProfileReconciliation(t *testing.T) {
	docs, mem := newStore(t)
	ctx := context.Background()
	_ = mem.Set(ctx, domain.CollectionCoaches, "c1", map[string]any{"userId": "u3", "name": "Gaffer"})

	res, err := NewResolver(docs, nil, discard()).Resolve(ctx, session("u3", false))
	if err != nil || res.Role != RoleCoach || !res.Reconciled {
		t.Fatalf("Resolve = %+v, %v", res, err)
	}
}

func TestUnlinkedAccount(t *testing.T) {
	docs, _ := newStore(t)
	res, err := NewResolver(docs, nil, discard()).Resolve(context.Background(), session("u4", false))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Role != RoleUnrecognized || res.Message != domain.MessageUnlinkedAccount || res.Player != nil {
		t.Errorf("Resolve = %+v", res)
	}
}

func TestQueryFailureIsUnverifiable(t *testing.T) {
	for _, collection := range []string{domain.CollectionPlayers, domain.CollectionCoaches} {
		docs, _ := newStore(t)
		docs.failOn = collection
		_, err := NewResolver(docs, nil, discard()).Resolve(context.Background(), session("u5", false))
		if !errors.Is(err, domain.ErrProfileUnverifiable) {
			t.Errorf("failure on %s: err = %v", collection, err)
		}
	}
}

func TestResolveSessionCaches(t *testing.T) {
	docs, mem := newStore(t)
	ctx := context.Background()
	_ = mem.Set(ctx, domain.CollectionPlayers, "p1", map[string]any{"userId": "u6", "name": "Striker"})
	r := NewResolver(docs, NewMemoryCache(), discard())
	s := session("u6", false)

	for i := 0; i < 3; i++ {
		res, err := r.ResolveSession(ctx, s)
		if err != nil || res.Role != RolePlayer {
			t.Fatalf("ResolveSession = %+v, %v", res, err)
		}
	}
	if docs.queries[domain.CollectionPlayers] != 1 {
		t.Errorf("player queries = %d, want 1", docs.queries[domain.CollectionPlayers])
	}

	// sign-in recomputes, sign-out drops
	r.HandleSessionChange(ctx, auth.SessionEvent{Identity: &s.Identity, Session: s})
	if docs.queries[domain.CollectionPlayers] != 2 {
		t.Errorf("sign-in should recompute, queries = %d", docs.queries[domain.CollectionPlayers])
	}
	r.HandleSessionChange(ctx, auth.SessionEvent{Session: s})
	if _, ok, _ := r.cache.Get(ctx, s.Token); ok {
		t.Errorf("sign-out should drop the cached resolution")
	}
}

func TestFailuresAreNotCached(t *testing.T) {
	docs, _ := newStore(t)
	docs.failOn = domain.CollectionPlayers
	r := NewResolver(docs, NewMemoryCache(), discard())
	s := session("u7", false)

	_, _ = r.ResolveSession(context.Background(), s)
	docs.failOn = ""
	res, err := r.ResolveSession(context.Background(), s)
	if err != nil || res.Role != RoleUnrecognized {
		t.Fatalf("retry = %+v, %v", res, err)
	}
}
