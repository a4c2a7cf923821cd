package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/store"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	gateway  *Gateway
	docs     *store.Memory
	sessions *MemorySessions
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	tokens, err := NewTokenIssuer("test-secret", "club-portal", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	docs := store.NewMemory()
	sessions := NewMemorySessions()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := NewGateway(NewMemoryAccounts(), sessions, docs, tokens, bcrypt.MinCost, logger)
	return fixture{gateway: g, docs: docs, sessions: sessions}
}

func (f fixture) register(t *testing.T, email, password string) domain.Identity {
	t.Helper()
	id, err := f.gateway.Register(context.Background(), email, password, "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return id
}

func TestSignInClassifiesCredentialErrors(t *testing.T) {
	f := newFixture(t)
	f.register(t, "coach@club.test", "whistle123")
	ctx := context.Background()

	if _, err := f.gateway.SignIn(ctx, "nobody@club.test", "whistle123"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("unknown email err = %v", err)
	}
	if _, err := f.gateway.SignIn(ctx, "coach@club.test", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v", err)
	}
}

type brokenAccounts struct{}

func (brokenAccounts) AccountByEmail(context.Context, string) (domain.Account, error) {
	return domain.Account{}, errors.New("connection reset")
}
func (brokenAccounts) CreateAccount(context.Context, domain.Account) error { return nil }

func TestSignInUnknownFailure(t *testing.T) {
	f := newFixture(t)
	f.gateway.accounts = brokenAccounts{}
	_, err := f.gateway.SignIn(context.Background(), "a@b.test", "secret1")
	if !errors.Is(err, domain.ErrAuthUnknown) {
		t.Fatalf("err = %v, want ErrAuthUnknown", err)
	}
}

func TestSignInReadsRoleFlags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "boss@club.test", "secret1")
	if err := f.docs.Set(ctx, domain.CollectionUsers, id.ID, map[string]any{"email": "boss@club.test", "isAdmin": true, "isCoach": true}); err != nil {
		t.Fatal(err)
	}

	s, err := f.gateway.SignIn(ctx, "BOSS@club.test", "secret1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if !s.IsAdmin || !s.IsCoach || s.Identity.ID != id.ID {
		t.Errorf("session = %+v", s)
	}
}

func TestSignInWithoutUserDocumentHasNoFlags(t *testing.T) {
	f := newFixture(t)
	f.register(t, "player@club.test", "secret1")

	s, err := f.gateway.SignIn(context.Background(), "player@club.test", "secret1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if s.IsAdmin || s.IsCoach {
		t.Errorf("flags should default to false: %+v", s)
	}
}

func TestAuthenticateAndSignOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "player@club.test", "secret1")

	var events []SessionEvent
	unsubscribe := f.gateway.OnSessionChange(func(_ context.Context, ev SessionEvent) {
		events = append(events, ev)
	})

	s, err := f.gateway.SignIn(ctx, "player@club.test", "secret1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	got, err := f.gateway.Authenticate(ctx, s.Token)
	if err != nil || got.Identity.ID != s.Identity.ID {
		t.Fatalf("Authenticate = %+v, %v", got, err)
	}

	if err := f.gateway.SignOut(ctx, s.Token); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if _, err := f.gateway.Authenticate(ctx, s.Token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("token still valid after sign-out: %v", err)
	}

	if len(events) != 2 || !events[0].SignedIn() || events[1].SignedIn() {
		t.Fatalf("events = %+v", events)
	}
	if events[1].Session.Token != s.Token {
		t.Errorf("sign-out event should carry the revoked session")
	}

	unsubscribe()
	if _, err := f.gateway.SignIn(ctx, "player@club.test", "secret1"); err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Errorf("listener called after unsubscribe")
	}
}

func TestAuthenticateRejectsForeignToken(t *testing.T) {
	f := newFixture(t)
	other, _ := NewTokenIssuer("another-secret", "club-portal", time.Hour)
	token, _, err := other.Issue("u1", "x@y.test", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.gateway.Authenticate(context.Background(), token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("err = %v", err)
	}
}

func TestRegisterValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.gateway.Register(ctx, "not-an-email", "secret1", ""); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("bad email err = %v", err)
	}
	if _, err := f.gateway.Register(ctx, "a@b.test", "123", ""); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("short password err = %v", err)
	}
	f.register(t, "a@b.test", "secret1")
	if _, err := f.gateway.Register(ctx, "A@B.test", "secret1", ""); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("duplicate err = %v", err)
	}
}
