package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.ListPolicies(r.Context(), tenantOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(list))
}

func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	p, err := h.repo.GetPolicy(r.Context(), tenantOf(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// SavePolicy compiles, stores and loads a policy. Posting an existing id
// replaces it.
func (h *Handler) SavePolicy(w http.ResponseWriter, r *http.Request) {
	var req policyRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p := req.policy()
	if err := h.flow.SavePolicy(r.Context(), tenantOf(r), p); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) DeletePolicy(w http.ResponseWriter, r *http.Request) {
	if err := h.flow.DeletePolicy(r.Context(), tenantOf(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ReloadPolicies(w http.ResponseWriter, r *http.Request) {
	n, err := h.flow.ReloadPolicies(r.Context(), tenantOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "reloaded",
		"count":  n,
	})
}
