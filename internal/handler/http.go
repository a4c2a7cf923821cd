package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/club-portal/internal/auth"
	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/roles"
	"github.com/club-portal/internal/service"
	"github.com/club-portal/internal/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// Services groups what the handlers call into
type Services struct {
	Gateway     *auth.Gateway
	Resolver    *roles.Resolver
	Feed        *service.FeedService
	Roster      *service.RosterService
	Leaderboard *service.LeaderboardService
	Dashboard   *service.DashboardService
	Tactics     *service.TacticsService
	Admin       *service.AdminService
	Countdown   *websocket.Countdown
}

// ReadyCheck reports whether a dependency is usable
type ReadyCheck func(ctx context.Context) error

// Handler provides HTTP handlers for the club portal API
type Handler struct {
	svc            Services
	allowedOrigins []string
	checks         map[string]ReadyCheck
	logger         *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(svc Services, allowedOrigins []string, logger *slog.Logger) *Handler {
	return &Handler{
		svc:            svc,
		allowedOrigins: allowedOrigins,
		checks:         make(map[string]ReadyCheck),
		logger:         logger,
	}
}

// AddReadyCheck registers a dependency probed by /ready
func (h *Handler) AddReadyCheck(name string, check ReadyCheck) {
	h.checks[name] = check
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(h.corsMiddleware())

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// Public next-match endpoint
	r.Get("/api/next-match", h.GetNextMatch)

	// WebSocket endpoint
	r.Get("/ws/countdown", h.HandleCountdown)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/admin/login", h.AdminLogin)
			r.Post("/logout", h.Logout)
		})

		r.Get("/home", h.GetHome)
		r.Get("/roster", h.GetRoster)
		r.Get("/leaderboards", h.GetLeaderboards)
		r.Get("/leaderboards/table", h.GetLeaderboardTable)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireSession)

			r.Get("/me", h.GetMe)
			r.Get("/tactics/board", h.GetTacticsBoard)

			r.Route("/coach", func(r chi.Router) {
				r.Use(h.RequireCoach)

				r.Get("/dashboard", h.GetCoachDashboard)
				r.Delete("/tactics/{tacticsID}", h.DeleteTactics)
				r.Route("/drafts", func(r chi.Router) {
					r.Post("/", h.OpenDraft)
					r.Get("/{draftID}", h.GetDraft)
					r.Patch("/{draftID}", h.ChangeDraft)
					r.Post("/{draftID}/save", h.SaveDraft)
					r.Delete("/{draftID}", h.DiscardDraft)
				})
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(h.RequireAdmin)

				r.Get("/overview", h.GetOverview)
				r.Get("/users", h.ListUsers)
				r.Post("/matches/{id}/scorers", h.AddGoalScorer)
				r.Delete("/matches/{id}/scorers/{index}", h.RemoveGoalScorer)
				r.Route("/tabs/{tab}", func(r chi.Router) {
					r.Get("/", h.ListDocuments)
					r.Post("/", h.CreateDocument)
					r.Get("/{id}", h.GetDocument)
					r.Put("/{id}", h.UpdateDocument)
					r.Delete("/{id}", h.DeleteDocument)
				})
			})
		})
	})

	return r
}

// corsMiddleware allows the configured browser origins, or any origin when none are set
func (h *Handler) corsMiddleware() func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   h.allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: len(h.allowedOrigins) > 0,
	}
	if len(h.allowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return cors.New(opts).Handler
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeMessage(w, status, err.Error())
}

func (h *Handler) writeMessage(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

// writeServiceError maps a service failure to a status code. Only
// client-facing errors keep their text; everything else becomes
// domain.ErrInternalError.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		h.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrUnauthenticated):
		h.writeError(w, http.StatusUnauthorized, domain.ErrUnauthenticated)
	case errors.Is(err, domain.ErrForbidden):
		h.writeError(w, http.StatusForbidden, err)
	case errors.Is(err, domain.ErrPermissionDenied):
		h.writeError(w, http.StatusForbidden, domain.ErrPermissionDenied)
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, domain.ErrNotFound)
	case errors.Is(err, domain.ErrDraftConflict):
		h.writeError(w, http.StatusConflict, domain.ErrDraftConflict)
	case errors.Is(err, domain.ErrConfirmationNeeded):
		h.writeError(w, http.StatusPreconditionRequired, domain.ErrConfirmationNeeded)
	case errors.Is(err, domain.ErrProfileUnverifiable):
		h.writeMessage(w, http.StatusServiceUnavailable, domain.MessageProfileError)
	default:
		h.logger.Error("request failed",
			"op", op,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
	}
}

// decodeJSON reads a request body into v
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrInvalidRequest
	}
	return nil
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck probes every registered dependency
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ready"}
	ready := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("readiness check failed", "dependency", name, "error", err)
			status[name] = "unavailable"
			ready = false
			continue
		}
		status[name] = "ok"
	}
	if !ready {
		status["status"] = "not ready"
		h.writeJSON(w, http.StatusServiceUnavailable, APIResponse{Success: false, Data: status, Error: "not ready"})
		return
	}
	h.writeSuccess(w, status)
}

// isoMillis matches JavaScript's Date.toISOString
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// nextMatchResponse is the public next-match payload
type nextMatchResponse struct {
	ID       string        `json:"id"`
	Opponent string        `json:"opponent"`
	Venue    domain.Venue  `json:"venue"`
	IsPast   bool          `json:"isPast"`
	Date     string        `json:"date"`
	Score    *domain.Score `json:"score"`
}

// GetNextMatch answers the public next-match endpoint. It keeps its own
// flat response shape rather than the API envelope.
func (h *Handler) GetNextMatch(w http.ResponseWriter, r *http.Request) {
	match, err := h.svc.Feed.NextMatch(r.Context())
	if err != nil {
		h.logger.Error("failed to load next match", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Server error"})
		return
	}
	if match == nil {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "No upcoming matches"})
		return
	}
	h.writeJSON(w, http.StatusOK, nextMatchResponse{
		ID:       match.ID,
		Opponent: match.Opponent,
		Venue:    match.Venue,
		IsPast:   match.IsPast,
		Date:     match.Date.UTC().Format(isoMillis),
		Score:    match.Score,
	})
}

// HandleCountdown upgrades to the countdown stream
func (h *Handler) HandleCountdown(w http.ResponseWriter, r *http.Request) {
	h.svc.Countdown.ServeHTTP(w, r)
}
