package admin

import "github.com/club-portal/internal/domain"

// Overview is the stat-card row at the top of the console
type Overview struct {
	TotalPlayers    int `json:"totalPlayers"`
	CoachingStaff   int `json:"coachingStaff"`
	UpcomingMatches int `json:"upcomingMatches"`
	NewsArticles    int `json:"newsArticles"`
}

// Summarize counts the console's collections
func Summarize(players []domain.Player, coaches []domain.Coach, matches []domain.Match, news []domain.NewsArticle) Overview {
	upcoming := 0
	for _, m := range matches {
		if !m.IsPast {
			upcoming++
		}
	}
	return Overview{
		TotalPlayers:    len(players),
		CoachingStaff:   len(coaches),
		UpcomingMatches: upcoming,
		NewsArticles:    len(news),
	}
}

// NotLinked is shown for a user with no name and no linked player.
const NotLinked = "Not Linked"

// UserRow is a users-tab line with the display name resolved
type UserRow struct {
	domain.UserRecord
	DisplayName string `json:"displayName"`
	Linked      bool   `json:"linked"`
}

// JoinUsers labels each user with its own name, else its linked player's name, else NotLinked.
func JoinUsers(users []domain.UserRecord, players []domain.Player) []UserRow {
	byUser := make(map[string]string, len(players))
	for _, p := range players {
		if p.UserID != "" {
			byUser[p.UserID] = p.Name
		}
	}
	rows := make([]UserRow, len(users))
	for i, u := range users {
		name, linked := byUser[u.ID]
		row := UserRow{UserRecord: u, DisplayName: u.Name, Linked: linked}
		if row.DisplayName == "" {
			row.DisplayName = name
		}
		if row.DisplayName == "" {
			row.DisplayName = NotLinked
		}
		rows[i] = row
	}
	return rows
}
