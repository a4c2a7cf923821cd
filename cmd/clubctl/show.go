package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/club-portal/internal/fixtures"
	"github.com/club-portal/internal/leaderboard"
	"github.com/club-portal/internal/service"
	"github.com/club-portal/internal/tactics"
	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	return t
}

type nextMatchCmd struct{}

func (c *nextMatchCmd) Run(g *globalCmd) error {
	ctx := context.Background()
	cfg, backend, logger, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	feed := service.NewFeedService(backend.Docs, cfg.Club.Name, logger)
	match, err := feed.NextMatch(ctx)
	if err != nil {
		return fmt.Errorf("loading next match: %w", err)
	}
	if match == nil {
		fmt.Println("No upcoming matches")
		return nil
	}
	card := feed.Card(*match)
	printMatch(os.Stdout, card, fixtures.CountdownTo(match.Date.Time, time.Now()), cfg.Club.Location())
	return nil
}

func printMatch(out io.Writer, card service.MatchCard, cd *fixtures.Countdown, loc *time.Location) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Match", "Kickoff", "Venue", "Competition", "Countdown"})
	countdown := "kicked off"
	if cd != nil {
		countdown = fmt.Sprintf("%dd %02dh %02dm", cd.Days, cd.Hours, cd.Minutes)
	}
	t.AppendRow(table.Row{
		fmt.Sprintf("%s vs %s", card.HomeTeam, card.AwayTeam),
		card.Date.In(loc).Format("Mon 2 Jan 2006 15:04"),
		card.Venue,
		card.Competition,
		countdown,
	})
	t.Render()
}

type rosterCmd struct {
	Search   string `help:"Only show members whose name contains this text." short:"s"`
	Category string `help:"all, players or coaches." default:"all" enum:"all,players,coaches"`
}

func (c *rosterCmd) Run(g *globalCmd) error {
	category, err := service.ParseCategory(c.Category)
	if err != nil {
		return err
	}

	ctx := context.Background()
	_, backend, logger, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	roster, err := service.NewRosterService(backend.Docs, logger).Load(ctx, service.RosterFilter{
		Search:   c.Search,
		Category: category,
	})
	if err != nil {
		return fmt.Errorf("loading roster: %w", err)
	}
	printRoster(os.Stdout, roster)
	return nil
}

func printRoster(out io.Writer, roster service.Roster) {
	if roster.Message != "" {
		fmt.Fprintln(out, roster.Message)
		return
	}
	if len(roster.Players) > 0 {
		t := newTable(out)
		t.SetTitle("Players")
		t.AppendHeader(table.Row{"#", "Name", "Position", "Apps", "Goals", "Assists"})
		for _, p := range roster.Players {
			s := p.Stats.Season
			t.AppendRow(table.Row{p.Number, p.Name, p.Position, s.Appearances, s.Goals, s.Assists})
		}
		t.Render()
	}
	if len(roster.Coaches) > 0 {
		t := newTable(out)
		t.SetTitle("Coaching Staff")
		t.AppendHeader(table.Row{"Name", "Role", "Joined"})
		for _, co := range roster.Coaches {
			t.AppendRow(table.Row{co.Name, co.Role, co.JoinDate})
		}
		t.Render()
	}
}

type leaderboardCmd struct {
	Table bool     `help:"Show the full sortable stats table instead of the top panels."`
	Sort  []string `help:"Header clicks to replay on the table, in order (name, appearances, goals, assists, ga)." sep:","`
}

func (c *leaderboardCmd) Run(g *globalCmd) error {
	clicks := make([]leaderboard.SortKey, 0, len(c.Sort))
	for _, s := range c.Sort {
		key, err := leaderboard.ParseSortKey(strings.TrimSpace(s))
		if err != nil {
			return err
		}
		clicks = append(clicks, key)
	}

	ctx := context.Background()
	cfg, backend, logger, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	svc := service.NewLeaderboardService(backend.Docs, &cfg.Leaderboard, logger)
	if !c.Table && len(clicks) == 0 {
		panels, err := svc.Panels(ctx)
		if err != nil {
			return fmt.Errorf("loading leaderboards: %w", err)
		}
		for _, p := range panels {
			printPanel(os.Stdout, p)
		}
		return nil
	}

	tbl, err := svc.Table(ctx, clicks)
	if err != nil {
		return fmt.Errorf("loading stats table: %w", err)
	}
	printStatsTable(os.Stdout, tbl)
	return nil
}

func printPanel(out io.Writer, p leaderboard.Panel) {
	t := newTable(out)
	t.SetTitle(p.Title)
	t.AppendHeader(table.Row{"Rank", "Player", "#", string(p.Metric)})
	if len(p.Entries) == 0 {
		t.AppendRow(table.Row{"-", "No data yet", "", ""})
	}
	for i, e := range p.Entries {
		t.AppendRow(table.Row{i + 1, e.Player.Name, e.Player.Number, e.Stat})
	}
	t.Render()
}

func printStatsTable(out io.Writer, tbl *leaderboard.Table) {
	t := newTable(out)
	t.SetCaption("sorted by %s, %s", tbl.Sort.Key, tbl.Sort.Direction)
	t.AppendHeader(table.Row{"Player", "Apps", "Goals", "Assists", "G/A"})
	for _, r := range tbl.Rows {
		s := r.Player.Stats.Season
		t.AppendRow(table.Row{r.Player.Name, s.Appearances, s.Goals, s.Assists, r.GoalContributions})
	}
	t.Render()
}

type tacticsShowCmd struct{}

func (c *tacticsShowCmd) Run(g *globalCmd) error {
	ctx := context.Background()
	_, backend, _, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	board, err := tactics.NewViewer(backend.Docs).Load(ctx)
	if err != nil {
		return fmt.Errorf("loading tactics: %w", err)
	}
	printBoard(os.Stdout, board)
	return nil
}

func printBoard(out io.Writer, board tactics.Board) {
	if board.Empty() {
		fmt.Fprintln(out, tactics.MessageNoTactics)
		return
	}
	fmt.Fprintf(out, "vs %s, formation %s\n", board.Match.Opponent, board.Tactics.Formation)

	t := newTable(out)
	t.SetTitle("Starting XI")
	t.AppendHeader(table.Row{"#", "Name", "Position", "Top", "Left"})
	for _, m := range board.Pitch {
		t.AppendRow(table.Row{m.Player.Number, m.Player.Name, m.Player.Position, m.Position.Top, m.Position.Left})
	}
	t.Render()

	if len(board.Substitutes) > 0 {
		subs := newTable(out)
		subs.SetTitle("Substitutes")
		subs.AppendHeader(table.Row{"#", "Name", "Position"})
		for _, p := range board.Substitutes {
			subs.AppendRow(table.Row{p.Number, p.Name, p.Position})
		}
		subs.Render()
	}
	if board.GeneralNotes != "" {
		fmt.Fprintf(out, "Notes: %s\n", board.GeneralNotes)
	}
}
