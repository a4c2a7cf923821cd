package domain

import (
	"context"
	"time"
)

// Identity is an authenticated account
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

// Account is the credential record behind an Identity.
type Account struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
}

// Identity returns the public part of the account.
func (a Account) Identity() Identity {
	return Identity{ID: a.ID, Email: a.Email, DisplayName: a.DisplayName}
}

// Session is fixed at sign-in and never mutated afterwards.
type Session struct {
	Token     string    `json:"token"`
	Identity  Identity  `json:"identity"`
	IsAdmin   bool      `json:"isAdmin"`
	IsCoach   bool      `json:"isCoach"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type sessionKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom extracts the session stored by WithSession.
func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// ChangeAction describes what happened to a document.
type ChangeAction string

const (
	ActionCreate ChangeAction = "create"
	ActionUpdate ChangeAction = "update"
	ActionDelete ChangeAction = "delete"
)

// ChangeEvent is published for every write made through the admin console or tactics editor.
type ChangeEvent struct {
	Collection string       `json:"collection"`
	DocumentID string       `json:"documentId"`
	Action     ChangeAction `json:"action"`
	Actor      string       `json:"actor"`
	Timestamp  time.Time    `json:"timestamp"`
}
