// Package tactics holds match line-ups: the stored entity, the editor used
// by coaches and the read-only board projection shown to players.
package tactics

import (
	"encoding/json"
	"fmt"
)

// DefaultFormation is used when a line-up is created without one.
const DefaultFormation = "4-4-2"

// Placement puts one player on the pitch
type Placement struct {
	PlayerID string   `json:"playerId"`
	Position Position `json:"position"`
}

// Lineup is the starting XI. Older documents store it as a bare list of
// player ids; those decode with synthesized positions.
type Lineup []Placement

// UnmarshalJSON accepts both the placement list and the legacy id list.
func (l *Lineup) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("startingXI must be a list: %w", err)
	}
	if raw == nil {
		*l = Lineup{}
		return nil
	}

	out := make(Lineup, 0, len(raw))
	for i, item := range raw {
		var id string
		if err := json.Unmarshal(item, &id); err == nil {
			out = append(out, Placement{PlayerID: id, Position: LegacyPosition(i)})
			continue
		}
		var p Placement
		if err := json.Unmarshal(item, &p); err != nil {
			return fmt.Errorf("startingXI[%d]: %w", i, err)
		}
		out = append(out, p)
	}
	*l = out
	return nil
}

// LegacyPosition is the spot given to the i-th entry of an id-only line-up:
// a vertical column down the centre line.
func LegacyPosition(i int) Position {
	return Position{Top: 50 + float64(i-5)*5, Left: 50}.Clamped()
}

// IDs lists the placed players in order
func (l Lineup) IDs() []string {
	ids := make([]string, len(l))
	for i, p := range l {
		ids[i] = p.PlayerID
	}
	return ids
}

// Tactics is the line-up for one match
type Tactics struct {
	ID           string   `json:"id,omitempty"`
	MatchID      string   `json:"matchId"`
	Formation    string   `json:"formation"`
	GeneralNotes string   `json:"generalNotes"`
	StartingXI   Lineup   `json:"startingXI"`
	Substitutes  []string `json:"substitutes"`
}

// Normalize fills defaults and guarantees non-nil lists.
func (t Tactics) Normalize() Tactics {
	if t.Formation == "" {
		t.Formation = DefaultFormation
	}
	if t.StartingXI == nil {
		t.StartingXI = Lineup{}
	}
	if t.Substitutes == nil {
		t.Substitutes = []string{}
	}
	return t
}

// Clone returns a deep copy
func (t Tactics) Clone() Tactics {
	c := t
	c.StartingXI = append(Lineup{}, t.StartingXI...)
	c.Substitutes = append([]string{}, t.Substitutes...)
	return c
}
