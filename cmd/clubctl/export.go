package main

import (
	"context"
	"fmt"

	"github.com/club-portal/internal/leaderboard"
	"github.com/club-portal/internal/service"
	excelize "github.com/xuri/excelize/v2"
)

var statsHeader = []string{"#", "Player", "Position", "Apps", "Goals", "Assists", "G/A", "Career Apps", "Career Goals", "Career Assists"}

// statsWorkbook lays the table out one player per row under a header row
func statsWorkbook(tbl *leaderboard.Table) (*excelize.File, error) {
	out := excelize.NewFile()
	sheetName := out.GetSheetName(out.GetActiveSheetIndex())

	for col, title := range statsHeader {
		index, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := out.SetCellStr(sheetName, index, title); err != nil {
			return nil, err
		}
	}

	for row, r := range tbl.Rows {
		p := r.Player
		values := []any{
			p.Number, p.Name, string(p.Position),
			p.Stats.Season.Appearances, p.Stats.Season.Goals, p.Stats.Season.Assists, r.GoalContributions,
			p.Stats.AllTime.Appearances, p.Stats.AllTime.Goals, p.Stats.AllTime.Assists,
		}
		for col, v := range values {
			index, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := out.SetCellValue(sheetName, index, v); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

type exportStatsCmd struct {
	Out string `help:"Excel file to write." short:"o" required:"" type:"path"`
}

func (c *exportStatsCmd) Run(g *globalCmd) error {
	ctx := context.Background()
	cfg, backend, logger, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	tbl, err := service.NewLeaderboardService(backend.Docs, &cfg.Leaderboard, logger).Table(ctx, nil)
	if err != nil {
		return fmt.Errorf("loading stats table: %w", err)
	}

	book, err := statsWorkbook(tbl)
	if err != nil {
		return fmt.Errorf("building workbook: %w", err)
	}
	defer book.Close()

	if err := book.SaveAs(c.Out); err != nil {
		return fmt.Errorf("saving %s: %w", c.Out, err)
	}
	fmt.Printf("wrote %d players to %s\n", len(tbl.Rows), c.Out)
	return nil
}
