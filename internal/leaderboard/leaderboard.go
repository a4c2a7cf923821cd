// Package leaderboard ranks the squad by season stats.
package leaderboard

import (
	"fmt"

	"github.com/club-portal/internal/domain"
	"golang.org/x/exp/slices"
)

// Metric is a season stat a panel ranks by
type Metric string

const (
	MetricGoals             Metric = "goals"
	MetricAssists           Metric = "assists"
	MetricGoalContributions Metric = "ga"
)

// Value reads the metric for p
func (m Metric) Value(p domain.Player) int {
	switch m {
	case MetricGoals:
		return p.Stats.Season.Goals
	case MetricAssists:
		return p.Stats.Season.Assists
	case MetricGoalContributions:
		return p.GoalContributions()
	}
	return 0
}

// Entry is one ranked player
type Entry struct {
	Player domain.Player `json:"player"`
	Stat   int           `json:"stat"`
}

// Panel is a titled top-n list
type Panel struct {
	Title   string  `json:"title"`
	Metric  Metric  `json:"metric"`
	Entries []Entry `json:"entries"`
}

// Top returns at most n players with a positive value for m, highest first.
// Order among equal values is not specified.
func Top(players []domain.Player, m Metric, n int) []Entry {
	entries := make([]Entry, 0, len(players))
	for _, p := range players {
		if v := m.Value(p); v > 0 {
			entries = append(entries, Entry{Player: p, Stat: v})
		}
	}
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return b.Stat - a.Stat
	})
	if n >= 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// Panels builds the goals, assists and goal-contribution panels
func Panels(players []domain.Player, n int) []Panel {
	return []Panel{
		{Title: "Top Scorers", Metric: MetricGoals, Entries: Top(players, MetricGoals, n)},
		{Title: "Top Assists", Metric: MetricAssists, Entries: Top(players, MetricAssists, n)},
		{Title: "Top G/A", Metric: MetricGoalContributions, Entries: Top(players, MetricGoalContributions, n)},
	}
}

// SortKey is a column of the full stats table
type SortKey string

const (
	SortName        SortKey = "name"
	SortAppearances SortKey = "appearances"
	SortGoals       SortKey = "goals"
	SortAssists     SortKey = "assists"
	SortGA          SortKey = "ga"
)

// ParseSortKey validates a column name
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case SortName, SortAppearances, SortGoals, SortAssists, SortGA:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown sort column %q", domain.ErrInvalidRequest, s)
}

// Direction of a table sort
type Direction string

const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
)

// SortState is the table's current column and direction
type SortState struct {
	Key       SortKey   `json:"key"`
	Direction Direction `json:"direction"`
}

// InitialSort is the order a fresh table opens with
var InitialSort = SortState{Key: SortGA, Direction: Descending}

// Next is the state after clicking key: a new column sorts descending,
// the current column flips direction.
func (s SortState) Next(key SortKey) SortState {
	if s.Key != key {
		return SortState{Key: key, Direction: Descending}
	}
	if s.Direction == Ascending {
		return SortState{Key: key, Direction: Descending}
	}
	return SortState{Key: key, Direction: Ascending}
}

// Row is one line of the full stats table
type Row struct {
	Player            domain.Player `json:"player"`
	GoalContributions int           `json:"ga"`
}

// Table is the sortable season stats table
type Table struct {
	Sort SortState `json:"sort"`
	Rows []Row     `json:"rows"`
}

// NewTable builds a table in InitialSort order
func NewTable(players []domain.Player) *Table {
	rows := make([]Row, len(players))
	for i, p := range players {
		rows[i] = Row{Player: p, GoalContributions: p.GoalContributions()}
	}
	t := &Table{Sort: InitialSort, Rows: rows}
	t.apply()
	return t
}

// Click applies one header click
func (t *Table) Click(key SortKey) {
	t.Sort = t.Sort.Next(key)
	t.apply()
}

func (t *Table) apply() {
	key, dir := t.Sort.Key, t.Sort.Direction
	slices.SortStableFunc(t.Rows, func(a, b Row) int {
		c := compareRows(a, b, key)
		if dir == Descending {
			return -c
		}
		return c
	})
}

func compareRows(a, b Row, key SortKey) int {
	if key == SortName {
		switch {
		case a.Player.Name < b.Player.Name:
			return -1
		case a.Player.Name > b.Player.Name:
			return 1
		}
		return 0
	}
	return columnValue(a, key) - columnValue(b, key)
}

func columnValue(r Row, key SortKey) int {
	switch key {
	case SortAppearances:
		return r.Player.Stats.Season.Appearances
	case SortGoals:
		return r.Player.Stats.Season.Goals
	case SortAssists:
		return r.Player.Stats.Season.Assists
	}
	return r.GoalContributions
}
