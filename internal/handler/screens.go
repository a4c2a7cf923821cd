package handler

import (
	"net/http"
	"strings"

	"github.com/club-portal/internal/leaderboard"
	"github.com/club-portal/internal/roles"
	"github.com/club-portal/internal/service"
)

// GetHome returns the next match, countdown and latest article
func (h *Handler) GetHome(w http.ResponseWriter, r *http.Request) {
	home, err := h.svc.Feed.Home(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "home", err)
		return
	}
	h.writeSuccess(w, home)
}

// GetRoster returns players and coaches filtered by ?search= and ?category=
func (h *Handler) GetRoster(w http.ResponseWriter, r *http.Request) {
	category, err := service.ParseCategory(r.URL.Query().Get("category"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	roster, err := h.svc.Roster.Load(r.Context(), service.RosterFilter{
		Search:   r.URL.Query().Get("search"),
		Category: category,
	})
	if err != nil {
		h.writeServiceError(w, r, "roster", err)
		return
	}
	h.writeSuccess(w, roster)
}

// GetLeaderboards returns the top-n panels
func (h *Handler) GetLeaderboards(w http.ResponseWriter, r *http.Request) {
	panels, err := h.svc.Leaderboard.Panels(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "leaderboards", err)
		return
	}
	h.writeSuccess(w, panels)
}

// GetLeaderboardTable returns the stats table after replaying ?sort=a,b,c header clicks
func (h *Handler) GetLeaderboardTable(w http.ResponseWriter, r *http.Request) {
	var clicks []leaderboard.SortKey
	if raw := r.URL.Query().Get("sort"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			key, err := leaderboard.ParseSortKey(strings.TrimSpace(part))
			if err != nil {
				h.writeError(w, http.StatusBadRequest, err)
				return
			}
			clicks = append(clicks, key)
		}
	}

	table, err := h.svc.Leaderboard.Table(r.Context(), clicks)
	if err != nil {
		h.writeServiceError(w, r, "leaderboard table", err)
		return
	}
	h.writeSuccess(w, table)
}

// GetTacticsBoard returns the line-up for the next match
func (h *Handler) GetTacticsBoard(w http.ResponseWriter, r *http.Request) {
	board, err := h.svc.Tactics.Board(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "tactics board", err)
		return
	}
	h.writeSuccess(w, board)
}

type meResponse struct {
	Role       roles.Role  `json:"role"`
	Reconciled bool        `json:"reconciled,omitempty"`
	Message    string      `json:"message,omitempty"`
	Dashboard  interface{} `json:"dashboard,omitempty"`
}

// GetMe resolves the caller's role and returns the matching dashboard
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	res, err := h.svc.Resolver.ResolveSession(r.Context(), sess)
	if err != nil {
		h.writeServiceError(w, r, "resolve role", err)
		return
	}

	resp := meResponse{Role: res.Role, Reconciled: res.Reconciled, Message: res.Message}
	switch res.Role {
	case roles.RoleCoach:
		dash, err := h.svc.Dashboard.Coach(r.Context())
		if err != nil {
			h.writeServiceError(w, r, "coach dashboard", err)
			return
		}
		resp.Dashboard = dash
	case roles.RolePlayer:
		if res.Player != nil {
			resp.Dashboard = h.svc.Dashboard.Player(*res.Player, sess.Identity)
		}
	}
	h.writeSuccess(w, resp)
}
