package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/fixtures"
	"github.com/club-portal/internal/store"
	"github.com/club-portal/internal/tactics"
	"golang.org/x/exp/slices"
)

// MatchNotFound labels tactics whose match document is gone
const MatchNotFound = "Match not found"

// TacticsSummary is one saved line-up on the coach dashboard
type TacticsSummary struct {
	tactics.Tactics
	MatchInfo string           `json:"matchInfo"`
	MatchDate domain.Timestamp `json:"matchDate"`
}

// CoachDashboard is the landing screen for coaches
type CoachDashboard struct {
	Tactics      []TacticsSummary        `json:"tactics"`
	NextMatch    *MatchCard              `json:"nextMatch"`
	NextTraining *domain.TrainingSession `json:"nextTraining"`
	TotalPlayers int                     `json:"totalPlayers"`
}

// PlayerDashboard is the landing screen for players
type PlayerDashboard struct {
	Player domain.Player `json:"player"`
	Email  string        `json:"email"`
}

// DashboardService builds the per-role landing screens
type DashboardService struct {
	docs   store.DocumentStore
	feed   *FeedService
	logger *slog.Logger
	now    func() time.Time
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(docs store.DocumentStore, feed *FeedService, logger *slog.Logger) *DashboardService {
	return &DashboardService{
		docs:   docs,
		feed:   feed,
		logger: logger,
		now:    time.Now,
	}
}

// Coach loads every line-up with its match, the next fixture and training,
// and the squad size.
func (s *DashboardService) Coach(ctx context.Context) (CoachDashboard, error) {
	tacticsDocs, err := s.docs.Query(ctx, store.From(domain.CollectionTactics))
	if err != nil {
		return CoachDashboard{}, fmt.Errorf("loading tactics: %w", err)
	}
	saved, err := store.DecodeAll[tactics.Tactics](tacticsDocs)
	if err != nil {
		return CoachDashboard{}, err
	}

	summaries := make([]TacticsSummary, 0, len(saved))
	for _, t := range saved {
		summary := TacticsSummary{Tactics: t.Normalize(), MatchInfo: MatchNotFound}
		if t.MatchID != "" {
			doc, err := s.docs.Get(ctx, domain.CollectionMatches, t.MatchID)
			switch {
			case err == nil:
				var m domain.Match
				if err := store.Decode(doc, &m); err != nil {
					return CoachDashboard{}, err
				}
				summary.MatchInfo = "vs " + m.Opponent
				summary.MatchDate = m.Date
			case domain.IsNotFoundError(err):
			default:
				return CoachDashboard{}, fmt.Errorf("loading match %s: %w", t.MatchID, err)
			}
		}
		summaries = append(summaries, summary)
	}
	slices.SortStableFunc(summaries, func(a, b TacticsSummary) int {
		return b.MatchDate.Compare(a.MatchDate.Time)
	})

	dash := CoachDashboard{Tactics: summaries}

	match, err := fixtures.Next(ctx, s.docs)
	if err != nil {
		return CoachDashboard{}, err
	}
	if match != nil {
		card := s.feed.Card(*match)
		dash.NextMatch = &card
	}

	dash.NextTraining, err = fixtures.NextTraining(ctx, s.docs, s.now())
	if err != nil {
		return CoachDashboard{}, err
	}

	playerDocs, err := s.docs.Query(ctx, store.From(domain.CollectionPlayers))
	if err != nil {
		return CoachDashboard{}, fmt.Errorf("loading players: %w", err)
	}
	dash.TotalPlayers = len(playerDocs)

	return dash, nil
}

// Player wraps the resolved player document with the account email
func (s *DashboardService) Player(p domain.Player, identity domain.Identity) PlayerDashboard {
	return PlayerDashboard{Player: p, Email: identity.Email}
}
