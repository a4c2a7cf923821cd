// Package admin describes the content types an administrator can manage and
// how raw form input becomes a stored document.
package admin

import (
	"fmt"
	"strings"
	"time"

	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/store"
)

// Tab is one managed collection
type Tab string

const (
	TabPlayers  Tab = "players"
	TabCoaches  Tab = "coaches"
	TabMatches  Tab = "matches"
	TabNews     Tab = "news"
	TabTraining Tab = "training"
	TabUsers    Tab = "users"
)

// Tabs lists every tab in console order
func Tabs() []Tab {
	return []Tab{TabPlayers, TabCoaches, TabMatches, TabNews, TabTraining, TabUsers}
}

// ParseTab validates a tab name
func ParseTab(s string) (Tab, error) {
	for _, t := range Tabs() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown tab %q", domain.ErrInvalidRequest, s)
}

// MessageUserDeletion explains why the users tab refuses deletes.
const MessageUserDeletion = "For security, user deletion must be done from the identity console."

// Schema is everything that varies per tab
type Schema struct {
	Tab        Tab
	Collection string
	// Columns shown in the list view
	Columns []string
	// ListOrder sorts the list view; nil leaves store order.
	ListOrder *store.Order
	// Timestamped tabs take separate date and time inputs.
	Timestamped bool
	Deletable   bool

	defaults  func(now time.Time) map[string]any
	canonical func(fields map[string]any) (map[string]any, error)
}

// SchemaFor is the single place tab behaviour is decided.
func SchemaFor(tab Tab) (Schema, error) {
	switch tab {
	case TabPlayers:
		return Schema{
			Tab:        tab,
			Collection: domain.CollectionPlayers,
			Columns:    []string{"number", "name", "position"},
			ListOrder:  &store.Order{Field: "number"},
			Deletable:  true,
			defaults: func(now time.Time) map[string]any {
				zero := map[string]any{"appearances": 0, "goals": 0, "assists": 0}
				return map[string]any{
					"name": "", "position": string(domain.PositionForward), "number": 0, "imageUrl": "",
					"joinDate": now.Format("2006-01-02"),
					"stats":    map[string]any{"season": zero, "allTime": copyMap(zero)},
				}
			},
			canonical: canonicalize(func(p *domain.Player) error {
				if strings.TrimSpace(p.Name) == "" {
					return missing("name")
				}
				if !p.Position.Valid() {
					return fmt.Errorf("%w: position %q is not one of Goalkeeper, Defender, Midfielder, Forward", domain.ErrInvalidRequest, p.Position)
				}
				if p.Number < 0 {
					return fmt.Errorf("%w: number must not be negative", domain.ErrInvalidRequest)
				}
				if err := checkStatLine("stats.season", p.Stats.Season); err != nil {
					return err
				}
				return checkStatLine("stats.allTime", p.Stats.AllTime)
			}),
		}, nil

	case TabCoaches:
		return Schema{
			Tab:        tab,
			Collection: domain.CollectionCoaches,
			Columns:    []string{"name", "role", "joinDate"},
			ListOrder:  &store.Order{Field: "name"},
			Deletable:  true,
			defaults: func(now time.Time) map[string]any {
				return map[string]any{"name": "", "role": "Head Coach", "imageUrl": "", "joinDate": now.Format("2006-01-02"), "bio": ""}
			},
			canonical: canonicalize(func(c *domain.Coach) error {
				if strings.TrimSpace(c.Name) == "" {
					return missing("name")
				}
				if strings.TrimSpace(c.Role) == "" {
					return missing("role")
				}
				return nil
			}),
		}, nil

	case TabMatches:
		return Schema{
			Tab:         tab,
			Collection:  domain.CollectionMatches,
			Columns:     []string{"date", "opponent", "competition", "venue", "isPast"},
			ListOrder:   &store.Order{Field: "date", Desc: true},
			Timestamped: true,
			Deletable:   true,
			defaults: func(now time.Time) map[string]any {
				return map[string]any{
					"opponent": "", "competition": "League", "venue": string(domain.VenueHome), "isPast": false,
					"score": map[string]any{"home": 0, "away": 0}, "goalScorers": []any{},
				}
			},
			canonical: canonicalize(func(m *domain.Match) error {
				if strings.TrimSpace(m.Opponent) == "" {
					return missing("opponent")
				}
				if m.Venue != domain.VenueHome && m.Venue != domain.VenueAway {
					return fmt.Errorf("%w: venue must be Home or Away", domain.ErrInvalidRequest)
				}
				if m.Date.IsZero() {
					return missing("date")
				}
				return nil
			}),
		}, nil

	case TabNews:
		return Schema{
			Tab:         tab,
			Collection:  domain.CollectionNews,
			Columns:     []string{"date", "title"},
			ListOrder:   &store.Order{Field: "date", Desc: true},
			Timestamped: true,
			Deletable:   true,
			defaults: func(now time.Time) map[string]any {
				return map[string]any{"title": "", "summary": "", "imageUrl": ""}
			},
			canonical: canonicalize(func(n *domain.NewsArticle) error {
				if strings.TrimSpace(n.Title) == "" {
					return missing("title")
				}
				if strings.TrimSpace(n.Summary) == "" {
					return missing("summary")
				}
				if n.Date.IsZero() {
					return missing("date")
				}
				return nil
			}),
		}, nil

	case TabTraining:
		return Schema{
			Tab:         tab,
			Collection:  domain.CollectionTraining,
			Columns:     []string{"date", "focus", "location"},
			ListOrder:   &store.Order{Field: "date", Desc: true},
			Timestamped: true,
			Deletable:   true,
			defaults: func(now time.Time) map[string]any {
				return map[string]any{"focus": "", "location": ""}
			},
			canonical: canonicalize(func(s *domain.TrainingSession) error {
				if strings.TrimSpace(s.Focus) == "" {
					return missing("focus")
				}
				if strings.TrimSpace(s.Location) == "" {
					return missing("location")
				}
				if s.Date.IsZero() {
					return missing("date")
				}
				return nil
			}),
		}, nil

	case TabUsers:
		return Schema{
			Tab:        tab,
			Collection: domain.CollectionUsers,
			Columns:    []string{"name", "email", "isAdmin", "isPlayer", "isCoach"},
			Deletable:  false,
			defaults: func(now time.Time) map[string]any {
				return map[string]any{"email": "", "name": "", "isAdmin": false, "isPlayer": false, "isCoach": false}
			},
			canonical: canonicalize(func(u *domain.UserRecord) error {
				if !strings.Contains(u.Email, "@") {
					return missing("email")
				}
				return nil
			}),
		}, nil
	}
	return Schema{}, fmt.Errorf("%w: unknown tab %q", domain.ErrInvalidRequest, tab)
}

func missing(field string) error {
	return fmt.Errorf("%w: %s is required", domain.ErrInvalidRequest, field)
}

// canonicalize decodes fields into T, checks it, and re-encodes it so only
// known fields of the right types are stored.
func canonicalize[T any](check func(*T) error) func(map[string]any) (map[string]any, error) {
	return func(fields map[string]any) (map[string]any, error) {
		var v T
		if err := store.Decode(store.Document{Fields: fields}, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
		}
		if err := check(&v); err != nil {
			return nil, err
		}
		return store.Encode(v)
	}
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func checkStatLine(prefix string, line domain.StatLine) error {
	counts := []struct {
		name  string
		value int
	}{
		{"appearances", line.Appearances},
		{"goals", line.Goals},
		{"assists", line.Assists},
	}
	for _, c := range counts {
		if c.value < 0 {
			return fmt.Errorf("%w: %s.%s must not be negative", domain.ErrInvalidRequest, prefix, c.name)
		}
	}
	return nil
}
