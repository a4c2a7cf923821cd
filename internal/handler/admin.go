package handler

import (
	"net/http"

	"github.com/club-portal/internal/admin"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) tab(w http.ResponseWriter, r *http.Request) (admin.Tab, bool) {
	tab, err := admin.ParseTab(chi.URLParam(r, "tab"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, err)
		return "", false
	}
	return tab, true
}

// GetOverview returns the console stat cards
func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.svc.Admin.Overview(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "admin overview", err)
		return
	}
	h.writeSuccess(w, overview)
}

// ListUsers returns user records joined with linked player names
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Admin.Users(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "list users", err)
		return
	}
	h.writeSuccess(w, rows)
}

// ListDocuments returns every document of a tab
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	tab, ok := h.tab(w, r)
	if !ok {
		return
	}
	records, err := h.svc.Admin.List(r.Context(), tab)
	if err != nil {
		h.writeServiceError(w, r, "list documents", err)
		return
	}
	h.writeSuccess(w, records)
}

// GetDocument returns one document
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	tab, ok := h.tab(w, r)
	if !ok {
		return
	}
	record, err := h.svc.Admin.Get(r.Context(), tab, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "get document", err)
		return
	}
	h.writeSuccess(w, record)
}

// CreateDocument validates and stores a new document
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	tab, ok := h.tab(w, r)
	if !ok {
		return
	}
	var form admin.Form
	if err := decodeJSON(r, &form); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	record, err := h.svc.Admin.Create(r.Context(), currentSession(r), tab, form)
	if err != nil {
		h.writeServiceError(w, r, "create document", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: record})
}

// UpdateDocument merges a form into a document
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	tab, ok := h.tab(w, r)
	if !ok {
		return
	}
	var form admin.Form
	if err := decodeJSON(r, &form); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	record, err := h.svc.Admin.Update(r.Context(), currentSession(r), tab, chi.URLParam(r, "id"), form)
	if err != nil {
		h.writeServiceError(w, r, "update document", err)
		return
	}
	h.writeSuccess(w, record)
}

// DeleteDocument removes a document; ?confirm=true is required
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	tab, ok := h.tab(w, r)
	if !ok {
		return
	}
	if err := h.svc.Admin.Delete(r.Context(), currentSession(r), tab, chi.URLParam(r, "id"), confirmed(r)); err != nil {
		h.writeServiceError(w, r, "delete document", err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "deleted"})
}

// AddGoalScorer appends a scorer to a match
func (h *Handler) AddGoalScorer(w http.ResponseWriter, r *http.Request) {
	var in admin.ScorerInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	match, err := h.svc.Admin.AddGoalScorer(r.Context(), currentSession(r), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeServiceError(w, r, "add goal scorer", err)
		return
	}
	h.writeSuccess(w, match)
}

// RemoveGoalScorer drops the scorer at {index}
func (h *Handler) RemoveGoalScorer(w http.ResponseWriter, r *http.Request) {
	index, err := intParam(r, "index")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	match, err := h.svc.Admin.RemoveGoalScorer(r.Context(), currentSession(r), chi.URLParam(r, "id"), index)
	if err != nil {
		h.writeServiceError(w, r, "remove goal scorer", err)
		return
	}
	h.writeSuccess(w, match)
}
