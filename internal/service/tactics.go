package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/store"
	"github.com/club-portal/internal/tactics"
	"github.com/google/uuid"
)

// DraftAction is one editing gesture on a draft
type DraftAction string

const (
	ActionDetails       DraftAction = "details"
	ActionPlace         DraftAction = "place"
	ActionDrop          DraftAction = "drop"
	ActionBench         DraftAction = "bench"
	ActionAddSubstitute DraftAction = "add_substitute"
	ActionRoster        DraftAction = "roster"
)

// DraftChange describes a gesture. Which fields are read depends on Action.
type DraftChange struct {
	Action       DraftAction       `json:"action"`
	PlayerID     string            `json:"playerId,omitempty"`
	Position     *tactics.Position `json:"position,omitempty"`
	Pitch        *tactics.Rect     `json:"pitch,omitempty"`
	Point        *tactics.Point    `json:"point,omitempty"`
	MatchID      string            `json:"matchId,omitempty"`
	Formation    string            `json:"formation,omitempty"`
	GeneralNotes string            `json:"generalNotes,omitempty"`
}

// apply runs the gesture against an editor
func (c DraftChange) apply(e *tactics.Editor) error {
	switch c.Action {
	case ActionDetails:
		current := e.Tactics()
		formation := c.Formation
		if formation == "" {
			formation = current.Formation
		}
		e.SetDetails(c.MatchID, formation, c.GeneralNotes)
	case ActionPlace:
		if c.Position == nil {
			return fmt.Errorf("%w: position is required", domain.ErrInvalidRequest)
		}
		e.PlaceOnPitch(c.PlayerID, *c.Position)
	case ActionDrop:
		if c.Pitch == nil || c.Point == nil {
			return fmt.Errorf("%w: pitch and point are required", domain.ErrInvalidRequest)
		}
		e.PlaceAt(c.PlayerID, *c.Pitch, *c.Point)
	case ActionBench:
		e.MoveToSubstitutes(c.PlayerID)
	case ActionAddSubstitute:
		e.AddSubstitute(c.PlayerID)
	case ActionRoster:
		e.ReturnToRoster(c.PlayerID)
	default:
		return fmt.Errorf("%w: unknown action %q", domain.ErrInvalidRequest, c.Action)
	}
	return nil
}

// DraftView is the editor screen for one draft
type DraftView struct {
	Draft     tactics.Draft   `json:"draft"`
	Available []domain.Player `json:"available"`
	Matches   []domain.Match  `json:"matches"`
}

// TacticsService drives the coach's line-up editor and the matchday board
type TacticsService struct {
	docs      store.DocumentStore
	drafts    tactics.DraftStore
	viewer    *tactics.Viewer
	publisher EventPublisher
	logger    *slog.Logger
}

// NewTacticsService creates a new tactics service
func NewTacticsService(docs store.DocumentStore, drafts tactics.DraftStore, publisher EventPublisher, logger *slog.Logger) *TacticsService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &TacticsService{
		docs:      docs,
		drafts:    drafts,
		viewer:    tactics.NewViewer(docs),
		publisher: publisher,
		logger:    logger,
	}
}

// Board returns the read-only line-up for the next match
func (s *TacticsService) Board(ctx context.Context) (tactics.Board, error) {
	return s.viewer.Load(ctx)
}

// OpenDraft starts a draft from a saved line-up, or a blank one when
// tacticsID is empty.
func (s *TacticsService) OpenDraft(ctx context.Context, sess domain.Session, tacticsID string) (DraftView, error) {
	var base tactics.Tactics
	if tacticsID != "" {
		doc, err := s.docs.Get(ctx, domain.CollectionTactics, tacticsID)
		if err != nil {
			return DraftView{}, fmt.Errorf("loading tactics %s: %w", tacticsID, err)
		}
		if err := store.Decode(doc, &base); err != nil {
			return DraftView{}, err
		}
	}

	draft := tactics.Draft{
		ID:         uuid.New().String(),
		CoachID:    sess.Identity.ID,
		Generation: 1,
		Working:    tactics.NewEditor(base).Tactics(),
		UpdatedAt:  time.Now(),
	}
	if err := s.drafts.Create(ctx, draft); err != nil {
		return DraftView{}, fmt.Errorf("creating draft: %w", err)
	}
	return s.view(ctx, draft)
}

// Draft returns the current state of a draft owned by the caller
func (s *TacticsService) Draft(ctx context.Context, sess domain.Session, draftID string) (DraftView, error) {
	draft, err := s.ownedDraft(ctx, sess, draftID)
	if err != nil {
		return DraftView{}, err
	}
	return s.view(ctx, draft)
}

// ChangeDraft applies one gesture. generation must match the draft's
// current generation; a stale request gets domain.ErrDraftConflict.
func (s *TacticsService) ChangeDraft(ctx context.Context, sess domain.Session, draftID string, generation int64, change DraftChange) (DraftView, error) {
	if _, err := s.ownedDraft(ctx, sess, draftID); err != nil {
		return DraftView{}, err
	}
	draft, err := s.drafts.Mutate(ctx, draftID, generation, func(d *tactics.Draft) error {
		editor := tactics.NewEditor(d.Working)
		if err := change.apply(editor); err != nil {
			return err
		}
		d.Working = editor.Tactics()
		return nil
	})
	if err != nil {
		return DraftView{}, err
	}
	return s.view(ctx, draft)
}

// SaveDraft writes the draft to the tactics collection. The document id is
// reserved on the draft under its lock, so overlapping saves of one draft
// always write the same document. The draft's generation is unchanged.
func (s *TacticsService) SaveDraft(ctx context.Context, sess domain.Session, draftID string) (tactics.Tactics, error) {
	docs, ok := s.docs.(tactics.SaveStore)
	if !ok {
		return tactics.Tactics{}, fmt.Errorf("document store cannot write under a chosen id")
	}

	var created bool
	draft, err := s.drafts.Attach(ctx, draftID, func(d *tactics.Draft) error {
		if d.CoachID != sess.Identity.ID {
			return domain.ErrForbidden
		}
		if d.Working.MatchID == "" {
			return fmt.Errorf("%w: select a match first", domain.ErrInvalidRequest)
		}
		editor := tactics.NewEditor(d.Working)
		created = editor.AssignID()
		d.Working = editor.Tactics()
		return nil
	})
	if err != nil {
		return tactics.Tactics{}, err
	}

	action := domain.ActionUpdate
	if created {
		action = domain.ActionCreate
		tactics.WarnIfMatchHasTactics(ctx, docs, draft.Working, s.logger)
	}
	saved, err := tactics.NewEditor(draft.Working).Save(ctx, docs, s.logger)
	if err != nil {
		return tactics.Tactics{}, err
	}

	s.logger.Info("tactics saved", "tactics_id", saved.ID, "match_id", saved.MatchID, "coach_id", sess.Identity.ID)
	publishChange(ctx, s.publisher, s.logger, domain.CollectionTactics, saved.ID, action, sess.Identity.ID)
	return saved, nil
}

// DiscardDraft drops a draft without saving
func (s *TacticsService) DiscardDraft(ctx context.Context, sess domain.Session, draftID string) error {
	if _, err := s.ownedDraft(ctx, sess, draftID); err != nil {
		return err
	}
	return s.drafts.Delete(ctx, draftID)
}

// DeleteTactics removes a saved line-up after explicit confirmation
func (s *TacticsService) DeleteTactics(ctx context.Context, sess domain.Session, id string, confirm bool) error {
	if !confirm {
		return domain.ErrConfirmationNeeded
	}
	if err := s.docs.Delete(ctx, domain.CollectionTactics, id); err != nil {
		return fmt.Errorf("deleting tactics %s: %w", id, err)
	}
	s.logger.Info("tactics deleted", "tactics_id", id, "coach_id", sess.Identity.ID)
	publishChange(ctx, s.publisher, s.logger, domain.CollectionTactics, id, domain.ActionDelete, sess.Identity.ID)
	return nil
}

func (s *TacticsService) ownedDraft(ctx context.Context, sess domain.Session, draftID string) (tactics.Draft, error) {
	draft, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		return tactics.Draft{}, err
	}
	if draft.CoachID != sess.Identity.ID {
		return tactics.Draft{}, domain.ErrForbidden
	}
	return draft, nil
}

func (s *TacticsService) view(ctx context.Context, draft tactics.Draft) (DraftView, error) {
	playerDocs, err := s.docs.Query(ctx, store.From(domain.CollectionPlayers))
	if err != nil {
		return DraftView{}, fmt.Errorf("loading players: %w", err)
	}
	players, err := store.DecodeAll[domain.Player](playerDocs)
	if err != nil {
		return DraftView{}, err
	}

	matchDocs, err := s.docs.Query(ctx, store.From(domain.CollectionMatches).Where("isPast", store.Eq, false).Asc("date"))
	if err != nil {
		return DraftView{}, fmt.Errorf("loading matches: %w", err)
	}
	matches, err := store.DecodeAll[domain.Match](matchDocs)
	if err != nil {
		return DraftView{}, err
	}

	return DraftView{
		Draft:     draft,
		Available: tactics.NewEditor(draft.Working).Available(players),
		Matches:   matches,
	}, nil
}
