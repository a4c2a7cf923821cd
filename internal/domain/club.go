package domain

// Collection names in the document store.
const (
	CollectionPlayers  = "players"
	CollectionCoaches  = "coaches"
	CollectionMatches  = "matches"
	CollectionNews     = "news"
	CollectionTraining = "training"
	CollectionUsers    = "users"
	CollectionTactics  = "tactics"
)

// Position is a player's role on the team sheet.
type Position string

const (
	PositionGoalkeeper Position = "Goalkeeper"
	PositionDefender   Position = "Defender"
	PositionMidfielder Position = "Midfielder"
	PositionForward    Position = "Forward"
)

// Valid reports whether p is one of the four known positions.
func (p Position) Valid() bool {
	switch p {
	case PositionGoalkeeper, PositionDefender, PositionMidfielder, PositionForward:
		return true
	}
	return false
}

// Venue says where a match is played from the club's point of view.
type Venue string

const (
	VenueHome Venue = "Home"
	VenueAway Venue = "Away"
)

// StatLine holds counting stats for one period
type StatLine struct {
	Appearances int `json:"appearances"`
	Goals       int `json:"goals"`
	Assists     int `json:"assists"`
}

// PlayerStats holds the current season and career totals
type PlayerStats struct {
	Season  StatLine `json:"season"`
	AllTime StatLine `json:"allTime"`
}

// Player is a squad member
type Player struct {
	ID       string      `json:"id,omitempty"`
	UserID   string      `json:"userId,omitempty"`
	Name     string      `json:"name"`
	Position Position    `json:"position"`
	Number   int         `json:"number"`
	ImageURL string      `json:"imageUrl"`
	JoinDate string      `json:"joinDate"`
	Phone    string      `json:"phone,omitempty"`
	Address  string      `json:"address,omitempty"`
	Stats    PlayerStats `json:"stats"`
}

// GoalContributions is season goals plus season assists.
func (p Player) GoalContributions() int {
	return p.Stats.Season.Goals + p.Stats.Season.Assists
}

// Coach is a member of the coaching staff
type Coach struct {
	ID       string `json:"id,omitempty"`
	UserID   string `json:"userId,omitempty"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	ImageURL string `json:"imageUrl"`
	JoinDate string `json:"joinDate"`
	Bio      string `json:"bio,omitempty"`
}

// Score is the final result, always recorded from the club's side first.
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// GoalScorer credits a goal to a club player (PlayerID) or an opponent (PlayerName).
type GoalScorer struct {
	PlayerID   string `json:"playerId,omitempty"`
	PlayerName string `json:"playerName,omitempty"`
	Minute     *int   `json:"minute,omitempty"`
}

// Match is a fixture, past or upcoming
type Match struct {
	ID          string       `json:"id,omitempty"`
	Opponent    string       `json:"opponent"`
	Date        Timestamp    `json:"date"`
	Venue       Venue        `json:"venue"`
	Competition string       `json:"competition,omitempty"`
	IsPast      bool         `json:"isPast"`
	Score       *Score       `json:"score,omitempty"`
	GoalScorers []GoalScorer `json:"goalScorers,omitempty"`
}

// Sides returns the home and away team names in display order.
func (m Match) Sides(clubName string) (home, away string) {
	if m.Venue == VenueAway {
		return m.Opponent, clubName
	}
	return clubName, m.Opponent
}

// TrainingSession is a scheduled practice
type TrainingSession struct {
	ID       string    `json:"id,omitempty"`
	Date     Timestamp `json:"date"`
	Focus    string    `json:"focus"`
	Location string    `json:"location"`
}

// NewsArticle is a club announcement
type NewsArticle struct {
	ID       string    `json:"id,omitempty"`
	Title    string    `json:"title"`
	Summary  string    `json:"summary"`
	Date     Timestamp `json:"date"`
	ImageURL string    `json:"imageUrl"`
}

// UserRecord carries the role flags for an identity. Its id equals the identity id.
type UserRecord struct {
	ID       string `json:"id,omitempty"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	IsAdmin  bool   `json:"isAdmin"`
	IsPlayer bool   `json:"isPlayer"`
	IsCoach  bool   `json:"isCoach"`
}
