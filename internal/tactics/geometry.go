package tactics

// Position is a spot on the pitch in percent of its height (Top) and width (Left).
type Position struct {
	Top  float64 `json:"top"`
	Left float64 `json:"left"`
}

// Clamped returns p with both axes limited to [0, 100].
func (p Position) Clamped() Position {
	return Position{Top: clampPercent(p.Top), Left: clampPercent(p.Left)}
}

// Rect is the on-screen bounding box of the pitch.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is a drop location in the same coordinate space as Rect.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Place converts a drop point into a pitch position. Points outside the
// rectangle land on its nearest edge. A degenerate rectangle yields the centre spot.
func (r Rect) Place(p Point) Position {
	if r.Width <= 0 || r.Height <= 0 {
		return Position{Top: 50, Left: 50}
	}
	return Position{
		Top:  (p.Y - r.Top) / r.Height * 100,
		Left: (p.X - r.Left) / r.Width * 100,
	}.Clamped()
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
