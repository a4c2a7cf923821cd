package leaderboard

import (
	"errors"
	"testing"

	"github.com/club-portal/internal/domain"
)

func player(id, name string, apps, goals, assists int) domain.Player {
	return domain.Player{ID: id, Name: name, Stats: domain.PlayerStats{
		Season: domain.StatLine{Appearances: apps, Goals: goals, Assists: assists},
	}}
}

func TestTopGoals(t *testing.T) {
	players := []domain.Player{
		player("a", "A", 10, 5, 0),
		player("b", "B", 10, 3, 1),
		player("c", "C", 10, 0, 4),
		player("d", "D", 10, 5, 2),
	}

	top := Top(players, MetricGoals, 3)
	if len(top) != 3 {
		t.Fatalf("len = %d, want 3", len(top))
	}
	// the two five-goal players lead in either order
	leaders := map[string]bool{top[0].Player.ID: true, top[1].Player.ID: true}
	if !leaders["a"] || !leaders["d"] {
		t.Errorf("leaders = %v", leaders)
	}
	if top[2].Player.ID != "b" || top[2].Stat != 3 {
		t.Errorf("third = %+v", top[2])
	}
	for _, e := range top {
		if e.Player.ID == "c" {
			t.Errorf("zero-goal player must not be ranked")
		}
	}
}

func TestTopExcludesZeroAndShortLists(t *testing.T) {
	players := []domain.Player{player("a", "A", 1, 0, 0), player("b", "B", 1, 0, 2)}
	if got := Top(players, MetricGoals, 3); len(got) != 0 {
		t.Errorf("goals panel = %+v, want empty", got)
	}
	got := Top(players, MetricGoalContributions, 3)
	if len(got) != 1 || got[0].Stat != 2 {
		t.Errorf("G/A panel = %+v", got)
	}
}

func TestPanels(t *testing.T) {
	panels := Panels([]domain.Player{player("a", "A", 3, 1, 1)}, 3)
	if len(panels) != 3 || panels[0].Metric != MetricGoals || panels[2].Entries[0].Stat != 2 {
		t.Errorf("panels = %+v", panels)
	}
}

func TestSortStateMachine(t *testing.T) {
	s := InitialSort
	if s != (SortState{Key: SortGA, Direction: Descending}) {
		t.Fatalf("initial = %+v", s)
	}
	s = s.Next(SortGoals)
	if s.Direction != Descending {
		t.Errorf("fresh column should sort descending, got %+v", s)
	}
	s = s.Next(SortGoals)
	if s.Direction != Ascending {
		t.Errorf("second click should sort ascending, got %+v", s)
	}
	s = s.Next(SortGoals)
	if s.Direction != Descending {
		t.Errorf("third click should flip back, got %+v", s)
	}
	if s = s.Next(SortName); s != (SortState{Key: SortName, Direction: Descending}) {
		t.Errorf("switching to name = %+v", s)
	}
}

func TestTableClickTwice(t *testing.T) {
	table := NewTable([]domain.Player{
		player("a", "Ava", 12, 2, 9),
		player("b", "Ben", 20, 7, 1),
		player("c", "Cal", 5, 4, 0),
	})
	if ids(table) != "abc" {
		t.Fatalf("initial G/A order = %s", ids(table))
	}

	table.Click(SortGoals)
	if ids(table) != "bca" {
		t.Errorf("goals descending = %s", ids(table))
	}
	table.Click(SortGoals)
	if ids(table) != "acb" {
		t.Errorf("goals ascending = %s", ids(table))
	}

	table.Click(SortName)
	if ids(table) != "cba" {
		t.Errorf("name descending = %s", ids(table))
	}
}

func TestParseSortKey(t *testing.T) {
	if k, err := ParseSortKey("appearances"); err != nil || k != SortAppearances {
		t.Errorf("ParseSortKey = %v, %v", k, err)
	}
	if _, err := ParseSortKey("minutes"); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("unknown key err = %v", err)
	}
}

func ids(t *Table) string {
	var s string
	for _, r := range t.Rows {
		s += r.Player.ID
	}
	return s
}
