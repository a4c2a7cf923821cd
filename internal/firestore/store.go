// Package firestore backs the document store with Google Cloud Firestore.
package firestore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/club-portal/internal/config"
	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/store"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Store implements store.DocumentStore on a Firestore client
type Store struct {
	client *firestore.Client
	logger *slog.Logger
}

// New connects to the configured project
func New(ctx context.Context, cfg *config.FirestoreConfig, logger *slog.Logger) (*Store, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return &Store{client: client, logger: logger}, nil
}

// Close releases the client
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping reads a single match to prove the project is reachable
func (s *Store) Ping(ctx context.Context) error {
	iter := s.client.Collection(domain.CollectionMatches).Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && err != iterator.Done {
		return classify(err, domain.CollectionMatches, "")
	}
	return nil
}

// Get reads one document
func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return store.Document{}, classify(err, collection, id)
	}
	return toDocument(snap), nil
}

// Query runs a filtered, ordered, limited query
func (s *Store) Query(ctx context.Context, q store.Query) ([]store.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	fq := s.client.Collection(q.Collection).Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, string(f.Op), toFirestoreValue(f.Value))
	}
	if q.OrderBy != nil {
		dir := firestore.Asc
		if q.OrderBy.Desc {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy.Field, dir)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}

	iter := fq.Documents(ctx)
	defer iter.Stop()

	docs := make([]store.Document, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, classify(err, q.Collection, "")
		}
		docs = append(docs, toDocument(snap))
	}
	return docs, nil
}

// Add creates a document under a generated id
func (s *Store) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, toFirestoreFields(fields))
	if err != nil {
		return "", classify(err, collection, "")
	}
	return ref.ID, nil
}

// Set creates or replaces a document under a known id
func (s *Store) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, toFirestoreFields(fields)); err != nil {
		return classify(err, collection, id)
	}
	return nil
}

// Update merges top-level fields; a missing document yields domain.ErrNotFound
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range toFirestoreFields(fields) {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: v})
	}
	if len(updates) == 0 {
		return nil
	}
	if _, err := s.client.Collection(collection).Doc(id).Update(ctx, updates); err != nil {
		return classify(err, collection, id)
	}
	return nil
}

// Delete removes a document
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return classify(err, collection, id)
	}
	return nil
}

func classify(err error, collection, id string) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%s/%s: %w", collection, id, domain.ErrNotFound)
	case codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("%s: %w", collection, domain.ErrPermissionDenied)
	}
	return fmt.Errorf("firestore %s: %w", collection, err)
}

func toDocument(snap *firestore.DocumentSnapshot) store.Document {
	fields := snap.Data()
	for k, v := range fields {
		fields[k] = fromFirestoreValue(v)
	}
	return store.Document{ID: snap.Ref.ID, Fields: fields}
}

// fromFirestoreValue maps native Firestore timestamps, which older documents
// carry, onto the fixed-width string form.
func fromFirestoreValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return domain.NewTimestamp(x).String()
	case int64:
		return float64(x)
	case map[string]any:
		for k, val := range x {
			x[k] = fromFirestoreValue(val)
		}
		return x
	case []any:
		for i, val := range x {
			x[i] = fromFirestoreValue(val)
		}
		return x
	}
	return v
}

// toFirestoreValue stores whole numbers as integers, matching documents
// written by other Firestore clients.
func toFirestoreValue(v any) any {
	switch x := store.NormalizeValue(v).(type) {
	case float64:
		if x == float64(int64(x)) {
			return int64(x)
		}
		return x
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = toFirestoreValue(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = toFirestoreValue(val)
		}
		return out
	default:
		return x
	}
}

func toFirestoreFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == "id" {
			continue
		}
		out[k] = toFirestoreValue(v)
	}
	return out
}
