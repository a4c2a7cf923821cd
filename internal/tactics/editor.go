package tactics

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/store"
	"github.com/google/uuid"
	"golang.org/x/exp/slices"
)

// Editor is a coach's working copy of a line-up. Every move keeps a player
// in at most one of the starting XI and the substitutes.
type Editor struct {
	working Tactics
}

// NewEditor starts editing t, or a fresh line-up when t is the zero value.
func NewEditor(t Tactics) *Editor {
	return &Editor{working: t.Clone().Normalize()}
}

// Tactics returns a copy of the working state
func (e *Editor) Tactics() Tactics {
	return e.working.Clone()
}

// SetDetails replaces the match, formation and notes
func (e *Editor) SetDetails(matchID, formation, notes string) {
	e.working.MatchID = matchID
	e.working.Formation = formation
	e.working.GeneralNotes = notes
}

func (e *Editor) detach(playerID string) {
	e.working.StartingXI = slices.DeleteFunc(e.working.StartingXI, func(p Placement) bool {
		return p.PlayerID == playerID
	})
	e.working.Substitutes = slices.DeleteFunc(e.working.Substitutes, func(id string) bool {
		return id == playerID
	})
}

// PlaceOnPitch moves the player onto the pitch at pos.
func (e *Editor) PlaceOnPitch(playerID string, pos Position) {
	if playerID == "" {
		return
	}
	e.detach(playerID)
	e.working.StartingXI = append(e.working.StartingXI, Placement{PlayerID: playerID, Position: pos.Clamped()})
}

// PlaceAt drops the player at point inside the pitch rectangle.
func (e *Editor) PlaceAt(playerID string, pitch Rect, point Point) {
	e.PlaceOnPitch(playerID, pitch.Place(point))
}

// MoveToSubstitutes moves the player to the end of the bench.
func (e *Editor) MoveToSubstitutes(playerID string) {
	if playerID == "" {
		return
	}
	e.detach(playerID)
	e.working.Substitutes = append(e.working.Substitutes, playerID)
}

// ReturnToRoster takes the player off both the pitch and the bench.
func (e *Editor) ReturnToRoster(playerID string) {
	e.detach(playerID)
}

// AddSubstitute benches a player who is not yet selected. It reports
// whether anything changed.
func (e *Editor) AddSubstitute(playerID string) bool {
	if playerID == "" || e.Selected(playerID) {
		return false
	}
	e.working.Substitutes = append(e.working.Substitutes, playerID)
	return true
}

// Selected reports whether the player is on the pitch or the bench.
func (e *Editor) Selected(playerID string) bool {
	return slices.Contains(e.working.StartingXI.IDs(), playerID) || slices.Contains(e.working.Substitutes, playerID)
}

// Available returns roster players neither placed nor benched, by shirt number.
func (e *Editor) Available(players []domain.Player) []domain.Player {
	out := make([]domain.Player, 0, len(players))
	for _, p := range players {
		if p.ID != "" && !e.Selected(p.ID) {
			out = append(out, p)
		}
	}
	SortByNumber(out)
	return out
}

// SaveStore is a document store that can write under a chosen id
type SaveStore interface {
	store.DocumentStore
	store.Setter
}

// AssignID gives the working copy a document id unless it already has one.
// It reports whether the id is new, meaning the next Save creates the document.
func (e *Editor) AssignID() bool {
	if e.working.ID != "" {
		return false
	}
	e.working.ID = uuid.New().String()
	return true
}

// Save writes the working copy under its id, assigning one first if needed.
// Every save replaces the whole document, matchId included, so a line-up can
// be moved to another match. Last write wins.
func (e *Editor) Save(ctx context.Context, docs SaveStore, logger *slog.Logger) (Tactics, error) {
	if e.AssignID() {
		WarnIfMatchHasTactics(ctx, docs, e.working, logger)
	}
	t := e.working.Clone()
	fields, err := store.Encode(t)
	if err != nil {
		return Tactics{}, err
	}
	if err := docs.Set(ctx, domain.CollectionTactics, t.ID, fields); err != nil {
		return Tactics{}, fmt.Errorf("saving tactics %s: %w", t.ID, err)
	}
	return t, nil
}

// WarnIfMatchHasTactics logs when t's match already has a line-up stored
// under another id; readers only ever see one of them.
func WarnIfMatchHasTactics(ctx context.Context, docs store.DocumentStore, t Tactics, logger *slog.Logger) {
	if t.MatchID == "" || logger == nil {
		return
	}
	existing, err := docs.Query(ctx, store.From(domain.CollectionTactics).Where("matchId", store.Eq, t.MatchID).Take(1))
	if err != nil {
		logger.Warn("checking for existing tactics failed", "match_id", t.MatchID, "error", err)
		return
	}
	if len(existing) > 0 && existing[0].ID != t.ID {
		logger.Warn("match already has tactics, adding another", "match_id", t.MatchID, "existing_id", existing[0].ID)
	}
}

// SortByNumber orders players by shirt number, keeping input order on ties.
func SortByNumber(players []domain.Player) {
	slices.SortStableFunc(players, func(a, b domain.Player) int {
		return a.Number - b.Number
	})
}
