package handler

import (
	"net/http"
	"strconv"

	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/service"
	"github.com/go-chi/chi/v5"
)

// GetCoachDashboard returns saved line-ups, the next fixture and training
func (h *Handler) GetCoachDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.svc.Dashboard.Coach(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "coach dashboard", err)
		return
	}
	h.writeSuccess(w, dash)
}

type openDraftRequest struct {
	TacticsID string `json:"tacticsId"`
}

// OpenDraft starts editing a saved line-up or a new one
func (h *Handler) OpenDraft(w http.ResponseWriter, r *http.Request) {
	var req openDraftRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	view, err := h.svc.Tactics.OpenDraft(r.Context(), currentSession(r), req.TacticsID)
	if err != nil {
		h.writeServiceError(w, r, "open draft", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: view})
}

// GetDraft returns a draft's working state
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Tactics.Draft(r.Context(), currentSession(r), chi.URLParam(r, "draftID"))
	if err != nil {
		h.writeServiceError(w, r, "get draft", err)
		return
	}
	h.writeSuccess(w, view)
}

type changeDraftRequest struct {
	service.DraftChange
	Generation int64 `json:"generation"`
}

// ChangeDraft applies one editing gesture. Requests carrying an outdated
// generation are rejected with 409.
func (h *Handler) ChangeDraft(w http.ResponseWriter, r *http.Request) {
	var req changeDraftRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := h.svc.Tactics.ChangeDraft(r.Context(), currentSession(r), chi.URLParam(r, "draftID"), req.Generation, req.DraftChange)
	if err != nil {
		h.writeServiceError(w, r, "change draft", err)
		return
	}
	h.writeSuccess(w, view)
}

// SaveDraft writes the draft to the tactics collection
func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	saved, err := h.svc.Tactics.SaveDraft(r.Context(), currentSession(r), chi.URLParam(r, "draftID"))
	if err != nil {
		h.writeServiceError(w, r, "save draft", err)
		return
	}
	h.writeSuccess(w, saved)
}

// DiscardDraft drops a draft
func (h *Handler) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Tactics.DiscardDraft(r.Context(), currentSession(r), chi.URLParam(r, "draftID")); err != nil {
		h.writeServiceError(w, r, "discard draft", err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "discarded"})
}

// DeleteTactics removes a saved line-up; ?confirm=true is required
func (h *Handler) DeleteTactics(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Tactics.DeleteTactics(r.Context(), currentSession(r), chi.URLParam(r, "tacticsID"), confirmed(r)); err != nil {
		h.writeServiceError(w, r, "delete tactics", err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "deleted"})
}

// confirmed reads the ?confirm= flag
func confirmed(r *http.Request) bool {
	ok, err := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return err == nil && ok
}

// intParam parses a numeric URL parameter
func intParam(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, domain.ErrInvalidRequest
	}
	return v, nil
}
