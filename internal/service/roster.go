package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/store"
	"golang.org/x/exp/slices"
)

// Category narrows the roster to one kind of team member
type Category string

const (
	CategoryAll     Category = "all"
	CategoryPlayers Category = "players"
	CategoryCoaches Category = "coaches"
)

// ParseCategory accepts an empty string as all
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(s)); c {
	case "":
		return CategoryAll, nil
	case CategoryAll, CategoryPlayers, CategoryCoaches:
		return c, nil
	}
	return "", fmt.Errorf("%w: unknown category %q", domain.ErrInvalidRequest, s)
}

// RosterFilter is the search box and category tabs
type RosterFilter struct {
	Search   string
	Category Category
}

// Roster is the filtered team listing
type Roster struct {
	Players []domain.Player `json:"players"`
	Coaches []domain.Coach  `json:"coaches"`
	Message string          `json:"message,omitempty"`
}

// RosterService serves the team directory
type RosterService struct {
	docs   store.DocumentStore
	logger *slog.Logger
}

// NewRosterService creates a new roster service
func NewRosterService(docs store.DocumentStore, logger *slog.Logger) *RosterService {
	return &RosterService{docs: docs, logger: logger}
}

// Load fetches players by shirt number and coaches by name, then filters.
func (s *RosterService) Load(ctx context.Context, f RosterFilter) (Roster, error) {
	playerDocs, err := s.docs.Query(ctx, store.From(domain.CollectionPlayers).Asc("number"))
	if err != nil {
		return Roster{}, fmt.Errorf("loading players: %w", err)
	}
	players, err := store.DecodeAll[domain.Player](playerDocs)
	if err != nil {
		return Roster{}, err
	}

	coachDocs, err := s.docs.Query(ctx, store.From(domain.CollectionCoaches).Asc("name"))
	if err != nil {
		return Roster{}, fmt.Errorf("loading coaches: %w", err)
	}
	coaches, err := store.DecodeAll[domain.Coach](coachDocs)
	if err != nil {
		return Roster{}, err
	}

	return FilterRoster(players, coaches, f), nil
}

// FilterRoster applies the name search and category to already loaded lists.
func FilterRoster(players []domain.Player, coaches []domain.Coach, f RosterFilter) Roster {
	if f.Category == "" {
		f.Category = CategoryAll
	}
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	matches := func(name string) bool {
		return needle == "" || strings.Contains(strings.ToLower(name), needle)
	}

	out := Roster{Players: []domain.Player{}, Coaches: []domain.Coach{}}
	if f.Category != CategoryCoaches {
		out.Players = slices.DeleteFunc(append([]domain.Player{}, players...), func(p domain.Player) bool {
			return !matches(p.Name)
		})
	}
	if f.Category != CategoryPlayers {
		out.Coaches = slices.DeleteFunc(append([]domain.Coach{}, coaches...), func(c domain.Coach) bool {
			return !matches(c.Name)
		})
	}

	if len(out.Players) == 0 && len(out.Coaches) == 0 {
		if needle != "" {
			out.Message = fmt.Sprintf("Your search for %q did not match any team members.", strings.TrimSpace(f.Search))
		} else {
			out.Message = fmt.Sprintf("There are no %s to display.", categoryNoun(f.Category))
		}
	}
	return out
}

func categoryNoun(c Category) string {
	if c == CategoryAll {
		return "team members"
	}
	return string(c)
}
