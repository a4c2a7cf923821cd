package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/roles"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Identity  domain.Identity `json:"identity"`
	IsAdmin   bool            `json:"isAdmin"`
	IsCoach   bool            `json:"isCoach"`
}

func newLoginResponse(s domain.Session) loginResponse {
	return loginResponse{
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		Identity:  s.Identity,
		IsAdmin:   s.IsAdmin,
		IsCoach:   s.IsCoach,
	}
}

// Login signs a member in
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	session, ok := h.signIn(w, r)
	if !ok {
		return
	}
	h.writeSuccess(w, newLoginResponse(session))
}

// AdminLogin signs in and immediately signs out again when the account
// is not an administrator.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	session, ok := h.signIn(w, r)
	if !ok {
		return
	}
	if !session.IsAdmin {
		if err := h.svc.Gateway.SignOut(r.Context(), session.Token); err != nil {
			h.logger.Warn("failed to sign out non-admin", "user_id", session.Identity.ID, "error", err)
		}
		h.writeMessage(w, http.StatusForbidden, domain.MessageAdminOnly)
		return
	}
	h.writeSuccess(w, newLoginResponse(session))
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) (domain.Session, bool) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return domain.Session{}, false
	}

	session, err := h.svc.Gateway.SignIn(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			h.writeMessage(w, http.StatusUnauthorized, domain.MessageInvalidCredentials)
			return domain.Session{}, false
		}
		h.logger.Error("sign-in failed", "error", err)
		h.writeMessage(w, http.StatusInternalServerError, domain.MessageAuthUnknown)
		return domain.Session{}, false
	}
	return session, true
}

// Logout revokes the bearer token
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Gateway.SignOut(r.Context(), bearerToken(r)); err != nil {
		h.writeServiceError(w, r, "logout", err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "signed out"})
}

// bearerToken extracts the token from the Authorization header
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// RequireSession authenticates the bearer token and stores the session in the request context
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := h.svc.Gateway.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			if errors.Is(err, domain.ErrUnauthenticated) {
				h.writeError(w, http.StatusUnauthorized, domain.ErrUnauthenticated)
				return
			}
			h.writeServiceError(w, r, "authenticate", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(domain.WithSession(r.Context(), session)))
	})
}

// RequireCoach lets through sessions that resolve to the coach role
func (h *Handler) RequireCoach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, _ := domain.SessionFrom(r.Context())
		res, err := h.svc.Resolver.ResolveSession(r.Context(), session)
		if err != nil {
			h.writeServiceError(w, r, "resolve role", err)
			return
		}
		if res.Role != roles.RoleCoach {
			h.writeError(w, http.StatusForbidden, domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin lets through sessions carrying the admin flag
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, _ := domain.SessionFrom(r.Context())
		if !session.IsAdmin {
			h.writeMessage(w, http.StatusForbidden, domain.MessageAdminOnly)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// currentSession returns the session set by RequireSession
func currentSession(r *http.Request) domain.Session {
	s, _ := domain.SessionFrom(r.Context())
	return s
}
