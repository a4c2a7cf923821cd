package tactics

import (
	"context"
	"fmt"

	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/fixtures"
	"github.com/club-portal/internal/store"
)

// MessageNoTactics is shown when there is no upcoming match or it has no line-up.
const MessageNoTactics = "No tactics have been set for the next match yet. Check back later!"

// Marker is a player drawn on the pitch
type Marker struct {
	Player   domain.Player `json:"player"`
	Position Position      `json:"position"`
}

// Board is the read-only matchday view
type Board struct {
	Match        *domain.Match   `json:"match"`
	Tactics      *Tactics        `json:"tactics"`
	Pitch        []Marker        `json:"pitch"`
	StartingXI   []domain.Player `json:"startingXI"`
	Substitutes  []domain.Player `json:"substitutes"`
	GeneralNotes string          `json:"generalNotes,omitempty"`
	Message      string          `json:"message,omitempty"`
}

// Empty reports whether there is nothing to show
func (b Board) Empty() bool {
	return b.Match == nil || b.Tactics == nil
}

// Project resolves a line-up against the roster. Ids with no matching
// player are dropped. Both lists are sorted by shirt number; pitch markers
// keep line-up order.
func Project(match domain.Match, t Tactics, players []domain.Player) Board {
	byID := make(map[string]domain.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}

	board := Board{
		Match:        &match,
		Tactics:      &t,
		Pitch:        make([]Marker, 0, len(t.StartingXI)),
		StartingXI:   make([]domain.Player, 0, len(t.StartingXI)),
		Substitutes:  make([]domain.Player, 0, len(t.Substitutes)),
		GeneralNotes: t.GeneralNotes,
	}
	for _, placement := range t.StartingXI {
		p, ok := byID[placement.PlayerID]
		if !ok {
			continue
		}
		board.Pitch = append(board.Pitch, Marker{Player: p, Position: placement.Position})
		board.StartingXI = append(board.StartingXI, p)
	}
	for _, id := range t.Substitutes {
		if p, ok := byID[id]; ok {
			board.Substitutes = append(board.Substitutes, p)
		}
	}
	SortByNumber(board.StartingXI)
	SortByNumber(board.Substitutes)
	return board
}

// Viewer loads the board for the next upcoming match
type Viewer struct {
	docs store.DocumentStore
}

// NewViewer creates a board viewer
func NewViewer(docs store.DocumentStore) *Viewer {
	return &Viewer{docs: docs}
}

// Load fetches all players, the next match, then that match's line-up.
// A missing match or line-up yields an empty board with a message.
func (v *Viewer) Load(ctx context.Context) (Board, error) {
	playerDocs, err := v.docs.Query(ctx, store.From(domain.CollectionPlayers))
	if err != nil {
		return Board{}, fmt.Errorf("loading players: %w", err)
	}
	players, err := store.DecodeAll[domain.Player](playerDocs)
	if err != nil {
		return Board{}, err
	}

	match, err := fixtures.Next(ctx, v.docs)
	if err != nil {
		return Board{}, err
	}
	if match == nil {
		return Board{Message: MessageNoTactics}, nil
	}

	t, err := ForMatch(ctx, v.docs, match.ID)
	if err != nil {
		return Board{}, err
	}
	if t == nil {
		return Board{Match: match, Message: MessageNoTactics}, nil
	}

	return Project(*match, *t, players), nil
}

// ForMatch returns one line-up for the match, or nil.
func ForMatch(ctx context.Context, docs store.DocumentStore, matchID string) (*Tactics, error) {
	found, err := docs.Query(ctx, store.From(domain.CollectionTactics).Where("matchId", store.Eq, matchID).Take(1))
	if err != nil {
		return nil, fmt.Errorf("loading tactics: %w", err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	var t Tactics
	if err := store.Decode(found[0], &t); err != nil {
		return nil, err
	}
	t = t.Normalize()
	return &t, nil
}
