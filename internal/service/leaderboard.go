package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/club-portal/internal/config"
	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/leaderboard"
	"github.com/club-portal/internal/store"
)

// LeaderboardService provides the stats panels and the sortable table
type LeaderboardService struct {
	docs   store.DocumentStore
	config *config.LeaderboardConfig
	logger *slog.Logger
}

// NewLeaderboardService creates a new leaderboard service
func NewLeaderboardService(
	docs store.DocumentStore,
	cfg *config.LeaderboardConfig,
	logger *slog.Logger,
) *LeaderboardService {
	return &LeaderboardService{
		docs:   docs,
		config: cfg,
		logger: logger,
	}
}

func (s *LeaderboardService) players(ctx context.Context) ([]domain.Player, error) {
	docs, err := s.docs.Query(ctx, store.From(domain.CollectionPlayers))
	if err != nil {
		return nil, fmt.Errorf("loading players: %w", err)
	}
	return store.DecodeAll[domain.Player](docs)
}

// Panels returns the top scorers, assists and goal contributions
func (s *LeaderboardService) Panels(ctx context.Context) ([]leaderboard.Panel, error) {
	players, err := s.players(ctx)
	if err != nil {
		return nil, err
	}
	return leaderboard.Panels(players, s.config.PanelSize), nil
}

// Table builds a fresh stats table and replays the header clicks in order
func (s *LeaderboardService) Table(ctx context.Context, clicks []leaderboard.SortKey) (*leaderboard.Table, error) {
	players, err := s.players(ctx)
	if err != nil {
		return nil, err
	}
	table := leaderboard.NewTable(players)
	for _, key := range clicks {
		table.Click(key)
	}
	return table, nil
}
