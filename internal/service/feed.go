package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/fixtures"
	"github.com/club-portal/internal/store"
)

// MatchCard is a fixture with team names in display order
type MatchCard struct {
	domain.Match
	HomeTeam string `json:"homeTeam"`
	AwayTeam string `json:"awayTeam"`
}

// Home is the landing screen
type Home struct {
	NextMatch  *MatchCard          `json:"nextMatch"`
	Countdown  *fixtures.Countdown `json:"countdown"`
	LatestNews *domain.NewsArticle `json:"latestNews"`
}

// FeedService serves the schedule and news screens
type FeedService struct {
	docs     store.DocumentStore
	clubName string
	logger   *slog.Logger
	now      func() time.Time
}

// NewFeedService creates a new feed service
func NewFeedService(docs store.DocumentStore, clubName string, logger *slog.Logger) *FeedService {
	return &FeedService{
		docs:     docs,
		clubName: clubName,
		logger:   logger,
		now:      time.Now,
	}
}

// NextMatch returns the earliest upcoming match, or nil
func (s *FeedService) NextMatch(ctx context.Context) (*domain.Match, error) {
	return fixtures.Next(ctx, s.docs)
}

// Card wraps a match with its display order
func (s *FeedService) Card(m domain.Match) MatchCard {
	home, away := m.Sides(s.clubName)
	return MatchCard{Match: m, HomeTeam: home, AwayTeam: away}
}

// Home loads the next match and the latest article
func (s *FeedService) Home(ctx context.Context) (Home, error) {
	var home Home

	match, err := fixtures.Next(ctx, s.docs)
	if err != nil {
		return Home{}, err
	}
	if match != nil {
		card := s.Card(*match)
		home.NextMatch = &card
		home.Countdown = fixtures.CountdownTo(match.Date.Time, s.now())
	}

	news, err := fixtures.LatestNews(ctx, s.docs)
	if err != nil {
		return Home{}, err
	}
	home.LatestNews = news

	return home, nil
}
