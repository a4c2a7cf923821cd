package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/club-portal/internal/app"
	"github.com/club-portal/internal/config"
)

type globalCmd struct {
	Config  string `help:"Path to configuration file." default:"config.yaml" env:"CLUB_CONFIG"`
	Backend string `help:"Override the store backend (postgres, firestore, memory)." env:"CLUB_STORE_BACKEND"`
	Verbose bool   `help:"Log at debug level." short:"v"`
}

// open loads the configuration and connects to the document store.
// Callers must Close the returned backend.
func (g *globalCmd) open(ctx context.Context) (*config.Config, *app.Backend, *slog.Logger, error) {
	level := slog.LevelWarn
	if g.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(g.Config)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}
	if g.Backend != "" {
		cfg.Store.Backend = g.Backend
	}

	backend, err := app.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening %s store: %w", cfg.Store.Backend, err)
	}
	return cfg, backend, logger, nil
}

var CLI struct {
	globalCmd

	NextMatch   nextMatchCmd   `cmd:"" help:"Show the next upcoming match."`
	Roster      rosterCmd      `cmd:"" help:"List players and coaching staff."`
	Leaderboard leaderboardCmd `cmd:"" help:"Show the leaderboard panels or the full stats table."`

	Tactics struct {
		Show tacticsShowCmd `cmd:"" help:"Show the line-up for the next match."`
	} `cmd:""`

	Users struct {
		Ls usersLsCmd `cmd:"" help:"List portal users and their roles."`
	} `cmd:""`

	Accounts struct {
		Add accountsAddCmd `cmd:"" help:"Create a login account and its user record."`
	} `cmd:""`

	Rm          rmCmd          `cmd:"" help:"Remove a document."`
	Seed        seedCmd        `cmd:"" help:"Fill the store with a demo squad, staff and fixtures."`
	ExportStats exportStatsCmd `cmd:"" help:"Export the season stats table to an Excel file."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("clubctl"),
		kong.Description("Operator tool for the club portal."),
	)
	err := ctx.Run(&CLI.globalCmd)
	ctx.FatalIfErrorf(err)
}
