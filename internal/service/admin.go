package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/club-portal/internal/admin"
	"github.com/club-portal/internal/auth"
	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/store"
)

// Record is a document as shown in the console, with its id under "id".
type Record map[string]any

func toRecord(doc store.Document) Record {
	r := make(Record, len(doc.Fields)+1)
	for k, v := range doc.Fields {
		r[k] = v
	}
	r["id"] = doc.ID
	return r
}

// AdminService backs the administrator console
type AdminService struct {
	docs      store.DocumentStore
	accounts  auth.AccountStore
	publisher EventPublisher
	loc       *time.Location
	logger    *slog.Logger
	now       func() time.Time
}

// NewAdminService creates a new admin service. loc is the zone date and
// time inputs are entered in.
func NewAdminService(docs store.DocumentStore, accounts auth.AccountStore, publisher EventPublisher, loc *time.Location, logger *slog.Logger) *AdminService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AdminService{
		docs:      docs,
		accounts:  accounts,
		publisher: publisher,
		loc:       loc,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns every document of a tab in its list order
func (s *AdminService) List(ctx context.Context, tab admin.Tab) ([]Record, error) {
	schema, err := admin.SchemaFor(tab)
	if err != nil {
		return nil, err
	}
	q := store.From(schema.Collection)
	if schema.ListOrder != nil {
		q.OrderBy = schema.ListOrder
	}
	docs, err := s.docs.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", tab, err)
	}
	records := make([]Record, len(docs))
	for i, doc := range docs {
		records[i] = toRecord(doc)
	}
	return records, nil
}

// Get returns one document
func (s *AdminService) Get(ctx context.Context, tab admin.Tab, id string) (Record, error) {
	schema, err := admin.SchemaFor(tab)
	if err != nil {
		return nil, err
	}
	doc, err := s.docs.Get(ctx, schema.Collection, id)
	if err != nil {
		return nil, fmt.Errorf("getting %s %s: %w", tab, id, err)
	}
	return toRecord(doc), nil
}

// Create validates the form against the tab schema and stores a new document.
// Users documents are keyed by the account id found through their email.
func (s *AdminService) Create(ctx context.Context, sess domain.Session, tab admin.Tab, form admin.Form) (Record, error) {
	schema, err := admin.SchemaFor(tab)
	if err != nil {
		return nil, err
	}
	fields, err := schema.Prepare(nil, form, s.loc, s.now())
	if err != nil {
		return nil, err
	}

	var id string
	if tab == admin.TabUsers {
		id, err = s.createUser(ctx, fields)
	} else {
		id, err = s.docs.Add(ctx, schema.Collection, fields)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("document created", "collection", schema.Collection, "id", id, "actor", sess.Identity.ID)
	publishChange(ctx, s.publisher, s.logger, schema.Collection, id, domain.ActionCreate, sess.Identity.ID)
	return toRecord(store.Document{ID: id, Fields: fields}), nil
}

func (s *AdminService) createUser(ctx context.Context, fields map[string]any) (string, error) {
	setter, ok := s.docs.(store.Setter)
	if !ok {
		return "", fmt.Errorf("document store cannot create keyed documents: %w", domain.ErrInternalError)
	}
	email, _ := fields["email"].(string)
	acc, err := s.accounts.AccountByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("%w: no login account exists for %s", domain.ErrInvalidRequest, email)
		}
		return "", fmt.Errorf("looking up account: %w", err)
	}
	if err := setter.Set(ctx, domain.CollectionUsers, acc.ID, fields); err != nil {
		return "", fmt.Errorf("creating user %s: %w", acc.ID, err)
	}
	return acc.ID, nil
}

// Update merges the form into an existing document and revalidates it
func (s *AdminService) Update(ctx context.Context, sess domain.Session, tab admin.Tab, id string, form admin.Form) (Record, error) {
	schema, err := admin.SchemaFor(tab)
	if err != nil {
		return nil, err
	}
	existing, err := s.docs.Get(ctx, schema.Collection, id)
	if err != nil {
		return nil, fmt.Errorf("getting %s %s: %w", tab, id, err)
	}
	fields, err := schema.Prepare(existing.Fields, form, s.loc, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.docs.Update(ctx, schema.Collection, id, fields); err != nil {
		return nil, fmt.Errorf("updating %s %s: %w", tab, id, err)
	}

	s.logger.Info("document updated", "collection", schema.Collection, "id", id, "actor", sess.Identity.ID)
	publishChange(ctx, s.publisher, s.logger, schema.Collection, id, domain.ActionUpdate, sess.Identity.ID)
	return toRecord(store.Document{ID: id, Fields: fields}), nil
}

// Delete removes a document once confirm is set. The users tab never deletes.
func (s *AdminService) Delete(ctx context.Context, sess domain.Session, tab admin.Tab, id string, confirm bool) error {
	schema, err := admin.SchemaFor(tab)
	if err != nil {
		return err
	}
	if !schema.Deletable {
		return fmt.Errorf("%w: %s", domain.ErrForbidden, admin.MessageUserDeletion)
	}
	if !confirm {
		return domain.ErrConfirmationNeeded
	}
	if err := s.docs.Delete(ctx, schema.Collection, id); err != nil {
		return fmt.Errorf("deleting %s %s: %w", tab, id, err)
	}

	s.logger.Info("document deleted", "collection", schema.Collection, "id", id, "actor", sess.Identity.ID)
	publishChange(ctx, s.publisher, s.logger, schema.Collection, id, domain.ActionDelete, sess.Identity.ID)
	return nil
}

// AddGoalScorer appends a scorer to a match. Input naming neither a club
// player nor an opponent leaves the match untouched.
func (s *AdminService) AddGoalScorer(ctx context.Context, sess domain.Session, matchID string, in admin.ScorerInput) (domain.Match, error) {
	return s.editScorers(ctx, sess, matchID, func(scorers []domain.GoalScorer) ([]domain.GoalScorer, bool) {
		return admin.AddGoalScorer(scorers, in)
	})
}

// RemoveGoalScorer drops the scorer at index
func (s *AdminService) RemoveGoalScorer(ctx context.Context, sess domain.Session, matchID string, index int) (domain.Match, error) {
	return s.editScorers(ctx, sess, matchID, func(scorers []domain.GoalScorer) ([]domain.GoalScorer, bool) {
		return admin.RemoveGoalScorer(scorers, index)
	})
}

func (s *AdminService) editScorers(ctx context.Context, sess domain.Session, matchID string, edit func([]domain.GoalScorer) ([]domain.GoalScorer, bool)) (domain.Match, error) {
	doc, err := s.docs.Get(ctx, domain.CollectionMatches, matchID)
	if err != nil {
		return domain.Match{}, fmt.Errorf("getting match %s: %w", matchID, err)
	}
	var m domain.Match
	if err := store.Decode(doc, &m); err != nil {
		return domain.Match{}, err
	}

	scorers, changed := edit(m.GoalScorers)
	if !changed {
		return m, nil
	}
	m.GoalScorers = scorers

	encoded, err := store.Encode(m)
	if err != nil {
		return domain.Match{}, err
	}
	list, ok := encoded["goalScorers"]
	if !ok {
		list = []any{}
	}
	if err := s.docs.Update(ctx, domain.CollectionMatches, matchID, map[string]any{"goalScorers": list}); err != nil {
		return domain.Match{}, fmt.Errorf("updating match %s: %w", matchID, err)
	}

	publishChange(ctx, s.publisher, s.logger, domain.CollectionMatches, matchID, domain.ActionUpdate, sess.Identity.ID)
	return m, nil
}

// Overview counts players, staff, upcoming matches and articles
func (s *AdminService) Overview(ctx context.Context) (admin.Overview, error) {
	players, err := queryAll[domain.Player](ctx, s.docs, domain.CollectionPlayers)
	if err != nil {
		return admin.Overview{}, err
	}
	coaches, err := queryAll[domain.Coach](ctx, s.docs, domain.CollectionCoaches)
	if err != nil {
		return admin.Overview{}, err
	}
	matches, err := queryAll[domain.Match](ctx, s.docs, domain.CollectionMatches)
	if err != nil {
		return admin.Overview{}, err
	}
	news, err := queryAll[domain.NewsArticle](ctx, s.docs, domain.CollectionNews)
	if err != nil {
		return admin.Overview{}, err
	}
	return admin.Summarize(players, coaches, matches, news), nil
}

// Users lists user records with their linked player names
func (s *AdminService) Users(ctx context.Context) ([]admin.UserRow, error) {
	users, err := queryAll[domain.UserRecord](ctx, s.docs, domain.CollectionUsers)
	if err != nil {
		return nil, err
	}
	players, err := queryAll[domain.Player](ctx, s.docs, domain.CollectionPlayers)
	if err != nil {
		return nil, err
	}
	return admin.JoinUsers(users, players), nil
}

func queryAll[T any](ctx context.Context, docs store.DocumentStore, collection string) ([]T, error) {
	found, err := docs.Query(ctx, store.From(collection))
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", collection, err)
	}
	return store.DecodeAll[T](found)
}
