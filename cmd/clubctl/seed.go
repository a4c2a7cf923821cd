package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/store"
	"github.com/schollz/progressbar/v3"
)

var givenNames = []string{
	"Luca", "Mateo", "Jonas", "Kofi", "Diego", "Sven", "Ruben", "Theo", "Milan", "Andre",
	"Yusuf", "Pavel", "Nico", "Emil", "Tariq", "Oskar", "Rafael", "Jude", "Marek", "Sami",
}

var surnames = []string{
	"Moreno", "Keller", "Mensah", "Novak", "Silva", "Lindqvist", "Okafor", "Brandt", "Rossi", "Duarte",
	"Haddad", "Kowalski", "Fischer", "Petit", "Tanaka", "Olsen", "Vidal", "Adeyemi", "Horvat", "Costa",
}

var opponents = []string{
	"Riverside Rovers", "Northgate Athletic", "Harbour Town", "Eastfield United", "Old Mill FC",
	"Castle Park", "Westbrook Wanderers", "Granite City",
}

// memberName gives every index a distinct name; the given name cycles
// fastest so neighbouring shirt numbers do not share one.
func memberName(idx int) string {
	given := givenNames[idx%len(givenNames)]
	surname := surnames[(idx/len(givenNames)+idx)%len(surnames)]
	return fmt.Sprintf("%s %s", given, surname)
}

// squadPosition spreads a squad over an 11-man shape: one keeper, four
// defenders, four midfielders and two forwards per eleven.
func squadPosition(idx int) domain.Position {
	switch slot := idx % 11; {
	case slot == 0:
		return domain.PositionGoalkeeper
	case slot <= 4:
		return domain.PositionDefender
	case slot <= 8:
		return domain.PositionMidfielder
	default:
		return domain.PositionForward
	}
}

// seedPlan is the demo content written by the seed command
type seedPlan struct {
	Players  []domain.Player
	Coaches  []domain.Coach
	Matches  []domain.Match
	News     []domain.NewsArticle
	Training []domain.TrainingSession
}

func (p seedPlan) size() int {
	return len(p.Players) + len(p.Coaches) + len(p.Matches) + len(p.News) + len(p.Training)
}

func buildSeedPlan(players, played, upcoming int, now time.Time, rng *rand.Rand) seedPlan {
	var plan seedPlan
	joined := now.AddDate(-2, 0, 0).Format("2006-01-02")

	for i := 0; i < players; i++ {
		pos := squadPosition(i)
		apps := rng.Intn(played + 1)
		season := domain.StatLine{Appearances: apps}
		switch pos {
		case domain.PositionForward:
			season.Goals = rng.Intn(apps + 1)
			season.Assists = rng.Intn(apps/2 + 1)
		case domain.PositionMidfielder:
			season.Goals = rng.Intn(apps/2 + 1)
			season.Assists = rng.Intn(apps + 1)
		case domain.PositionDefender:
			season.Goals = rng.Intn(apps/4 + 1)
			season.Assists = rng.Intn(apps/3 + 1)
		}
		allTime := domain.StatLine{
			Appearances: season.Appearances + rng.Intn(60),
			Goals:       season.Goals + rng.Intn(10),
			Assists:     season.Assists + rng.Intn(10),
		}
		plan.Players = append(plan.Players, domain.Player{
			Name:     memberName(i),
			Position: pos,
			Number:   i + 1,
			JoinDate: joined,
			Stats:    domain.PlayerStats{Season: season, AllTime: allTime},
		})
	}

	for i, role := range []string{"Head Coach", "Assistant Coach", "Goalkeeping Coach"} {
		plan.Coaches = append(plan.Coaches, domain.Coach{
			Name:     memberName(players + i),
			Role:     role,
			JoinDate: joined,
		})
	}

	kickoff := time.Date(now.Year(), now.Month(), now.Day(), 15, 0, 0, 0, time.UTC)
	for i := 0; i < played+upcoming; i++ {
		week := i - played
		if week >= 0 {
			week++
		}
		m := domain.Match{
			Opponent:    opponents[i%len(opponents)],
			Date:        domain.NewTimestamp(kickoff.AddDate(0, 0, 7*week)),
			Venue:       domain.VenueHome,
			Competition: "League",
			IsPast:      week < 0,
		}
		if i%2 == 1 {
			m.Venue = domain.VenueAway
		}
		if m.IsPast {
			m.Score = &domain.Score{Home: rng.Intn(4), Away: rng.Intn(3)}
		}
		plan.Matches = append(plan.Matches, m)
	}

	plan.News = []domain.NewsArticle{
		{Title: "Pre-season camp wrapped up", Summary: "The squad returns after a week of double sessions.", Date: domain.NewTimestamp(now.AddDate(0, 0, -10))},
		{Title: "New kit unveiled", Summary: "Home and away shirts for the season are in the club shop.", Date: domain.NewTimestamp(now.AddDate(0, 0, -3))},
	}
	plan.Training = []domain.TrainingSession{
		{Focus: "Pressing triggers", Location: "Training ground", Date: domain.NewTimestamp(kickoff.AddDate(0, 0, 2))},
		{Focus: "Set pieces", Location: "Training ground", Date: domain.NewTimestamp(kickoff.AddDate(0, 0, 4))},
	}
	return plan
}

type seedCmd struct {
	Players    int   `help:"Squad size." default:"22"`
	Played     int   `help:"Past fixtures with results." default:"6"`
	Upcoming   int   `help:"Upcoming fixtures." default:"4"`
	RandomSeed int64 `help:"Seed for the stat generator; 0 picks one from the clock."`
	NoProgress bool  `help:"Hide the progress bar."`
}

func (c *seedCmd) Run(g *globalCmd) error {
	seed := c.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	plan := buildSeedPlan(c.Players, c.Played, c.Upcoming, time.Now(), rand.New(rand.NewSource(seed)))

	ctx := context.Background()
	_, backend, _, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	bar := progressbar.NewOptions(plan.size(),
		progressbar.OptionSetDescription("seeding"),
		progressbar.OptionSetVisibility(!c.NoProgress),
		progressbar.OptionClearOnFinish(),
	)
	write := func(collection string, v any) error {
		fields, err := store.Encode(v)
		if err != nil {
			return err
		}
		if _, err := backend.Docs.Add(ctx, collection, fields); err != nil {
			return fmt.Errorf("adding to %s: %w", collection, err)
		}
		return bar.Add(1)
	}

	for _, p := range plan.Players {
		if err := write(domain.CollectionPlayers, p); err != nil {
			return err
		}
	}
	for _, co := range plan.Coaches {
		if err := write(domain.CollectionCoaches, co); err != nil {
			return err
		}
	}
	for _, m := range plan.Matches {
		if err := write(domain.CollectionMatches, m); err != nil {
			return err
		}
	}
	for _, n := range plan.News {
		if err := write(domain.CollectionNews, n); err != nil {
			return err
		}
	}
	for _, t := range plan.Training {
		if err := write(domain.CollectionTraining, t); err != nil {
			return err
		}
	}
	if err := bar.Finish(); err != nil {
		return err
	}

	fmt.Printf("seeded %d documents into the %s store (seed %d)\n", plan.size(), backend.Name, seed)
	return nil
}
