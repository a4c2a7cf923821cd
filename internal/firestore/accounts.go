package firestore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/club-portal/internal/domain"
	"google.golang.org/api/iterator"
)

const (
	accountsCollection = "accounts"
	eventsCollection   = "change_events"
)

type accountDoc struct {
	Email        string    `firestore:"email"`
	DisplayName  string    `firestore:"displayName"`
	PasswordHash string    `firestore:"passwordHash"`
	CreatedAt    time.Time `firestore:"createdAt"`
}

// AccountByEmail finds a login account by its lower-cased email
func (s *Store) AccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	iter := s.client.Collection(accountsCollection).
		Where("email", "==", strings.ToLower(strings.TrimSpace(email))).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return domain.Account{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Account{}, classify(err, accountsCollection, email)
	}
	return toAccount(snap)
}

// CreateAccount stores acc, refusing an email that is already registered
func (s *Store) CreateAccount(ctx context.Context, acc domain.Account) error {
	email := strings.ToLower(strings.TrimSpace(acc.Email))
	ref := s.client.Collection(accountsCollection).Doc(acc.ID)
	query := s.client.Collection(accountsCollection).Where("email", "==", email).Limit(1)

	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := tx.Documents(query).GetAll()
		if err != nil {
			return classify(err, accountsCollection, acc.ID)
		}
		if len(existing) > 0 {
			return fmt.Errorf("%w: email already registered", domain.ErrInvalidRequest)
		}
		return tx.Create(ref, accountDoc{
			Email:        email,
			DisplayName:  acc.DisplayName,
			PasswordHash: acc.PasswordHash,
			CreatedAt:    acc.CreatedAt,
		})
	})
}

func toAccount(snap *firestore.DocumentSnapshot) (domain.Account, error) {
	var doc accountDoc
	if err := snap.DataTo(&doc); err != nil {
		return domain.Account{}, fmt.Errorf("decoding account %s: %w", snap.Ref.ID, err)
	}
	return domain.Account{
		ID:           snap.Ref.ID,
		Email:        doc.Email,
		DisplayName:  doc.DisplayName,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

// RecordChanges appends change events to the audit collection
func (s *Store) RecordChanges(ctx context.Context, events []domain.ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}
	bw := s.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(events))
	for _, ev := range events {
		job, err := bw.Create(s.client.Collection(eventsCollection).NewDoc(), map[string]any{
			"collection": ev.Collection,
			"documentId": ev.DocumentID,
			"action":     string(ev.Action),
			"actor":      ev.Actor,
			"timestamp":  ev.Timestamp,
		})
		if err != nil {
			bw.End()
			return fmt.Errorf("queueing change event: %w", err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return fmt.Errorf("writing change event: %w", err)
		}
	}
	return nil
}
