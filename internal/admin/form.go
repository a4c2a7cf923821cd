package admin

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/store"
)

// Form is raw console input. Field keys may be dotted paths such as
// "stats.season.goals". DatePart (YYYY-MM-DD) and TimePart (HH:MM) are
// merged into "date" for timestamped tabs when both are present.
type Form struct {
	Fields   map[string]any `json:"fields"`
	DatePart string         `json:"datePart,omitempty"`
	TimePart string         `json:"timePart,omitempty"`
}

// Prepare turns a form into the fields to store. existing is nil when
// creating; creation starts from the tab defaults.
func (s Schema) Prepare(existing map[string]any, form Form, loc *time.Location, now time.Time) (map[string]any, error) {
	var fields map[string]any
	if existing == nil {
		fields = s.defaults(now.In(loc))
		if s.Timestamped {
			fields["date"] = domain.NewTimestamp(now.Truncate(time.Minute)).String()
		}
	} else {
		fields = deepCopy(existing)
	}

	for key, value := range form.Fields {
		if key == "id" {
			continue
		}
		setPath(fields, key, value)
	}

	if s.Timestamped && form.DatePart != "" && form.TimePart != "" {
		ts, err := MergeDateTime(form.DatePart, form.TimePart, loc)
		if err != nil {
			return nil, err
		}
		fields["date"] = ts.String()
	}

	return s.canonical(fields)
}

// MergeDateTime combines a calendar date and a wall-clock time in loc.
func MergeDateTime(datePart, timePart string, loc *time.Location) (domain.Timestamp, error) {
	t, err := time.ParseInLocation("2006-01-02T15:04", datePart+"T"+timePart, loc)
	if err != nil {
		return domain.Timestamp{}, fmt.Errorf("%w: date %q and time %q: %v", domain.ErrInvalidRequest, datePart, timePart, err)
	}
	return domain.NewTimestamp(t), nil
}

// SplitDateTime is the inverse of MergeDateTime, used to prefill the edit form.
func SplitDateTime(ts domain.Timestamp, loc *time.Location) (datePart, timePart string) {
	if ts.IsZero() {
		return "", ""
	}
	local := ts.In(loc)
	return local.Format("2006-01-02"), local.Format("15:04")
}

func setPath(fields map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	cur := fields
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
		} else {
			next = copyMap(next)
		}
		cur[p] = next
		cur = next
	}
	cur[parts[len(parts)-1]] = store.NormalizeValue(value)
}

func deepCopy(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = deepCopy(nested)
			continue
		}
		out[k] = v
	}
	return out
}

// ScorerKind says whose goal it was
type ScorerKind string

const (
	ScorerClub     ScorerKind = "club"
	ScorerOpponent ScorerKind = "opponent"
)

// ScorerInput is the goal-scorer sub-form
type ScorerInput struct {
	Kind         ScorerKind `json:"kind"`
	PlayerID     string     `json:"playerId"`
	OpponentName string     `json:"opponentName"`
	Minute       string     `json:"minute"`
}

// AddGoalScorer appends a scorer built from in. Club goals need a player
// id, opponent goals a non-blank name; otherwise nothing changes and ok is false.
func AddGoalScorer(scorers []domain.GoalScorer, in ScorerInput) (out []domain.GoalScorer, ok bool) {
	var scorer domain.GoalScorer
	switch {
	case in.Kind == ScorerClub && in.PlayerID != "":
		scorer.PlayerID = in.PlayerID
	case in.Kind == ScorerOpponent && strings.TrimSpace(in.OpponentName) != "":
		scorer.PlayerName = strings.TrimSpace(in.OpponentName)
	default:
		return scorers, false
	}
	if m, err := strconv.Atoi(strings.TrimSpace(in.Minute)); err == nil {
		scorer.Minute = &m
	}
	out = make([]domain.GoalScorer, 0, len(scorers)+1)
	out = append(out, scorers...)
	return append(out, scorer), true
}

// RemoveGoalScorer drops the scorer at index; out-of-range indexes change nothing.
func RemoveGoalScorer(scorers []domain.GoalScorer, index int) (out []domain.GoalScorer, ok bool) {
	if index < 0 || index >= len(scorers) {
		return scorers, false
	}
	out = make([]domain.GoalScorer, 0, len(scorers)-1)
	out = append(out, scorers[:index]...)
	return append(out, scorers[index+1:]...), true
}
