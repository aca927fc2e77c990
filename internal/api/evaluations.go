package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/opensource-finance/praxis/internal/domain"
)

func (h *Handler) CreateEvaluation(w http.ResponseWriter, r *http.Request) {
	var req createEvaluationRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	e, err := h.flow.CreateEvaluation(r.Context(), tenantOf(r), req.params())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewEvaluation(e, h.now()))
}

// ListEvaluations supports internshipId, batchId and status filters.
func (h *Handler) ListEvaluations(w http.ResponseWriter, r *http.Request) {
	status, err := queryEnum(r, "status", domain.ParseEvaluationStatus)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter := domain.EvaluationFilter{
		InternshipID: r.URL.Query().Get("internshipId"),
		BatchID:      r.URL.Query().Get("batchId"),
		Status:       status,
	}
	if id := chi.URLParam(r, "id"); id != "" {
		filter.InternshipID = id
	}

	list, err := h.repo.ListEvaluations(r.Context(), tenantOf(r), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(mapViews(list, h.now(), viewEvaluation)))
}

func (h *Handler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	e, err := h.repo.GetEvaluation(r.Context(), tenantOf(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewEvaluation(e, h.now()))
}

// ScoreEvaluation sets criterion scores and optionally the total.
func (h *Handler) ScoreEvaluation(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := h.flow.ScoreEvaluation(r.Context(), tenantOf(r), chi.URLParam(r, "id"), req.update())
	h.respondEvaluation(w, r, e, err)
}

func (h *Handler) SubmitEvaluation(w http.ResponseWriter, r *http.Request) {
	e, err := h.flow.SubmitEvaluation(r.Context(), tenantOf(r), chi.URLParam(r, "id"))
	h.respondEvaluation(w, r, e, err)
}

func (h *Handler) ReviewEvaluation(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := h.flow.ReviewEvaluation(r.Context(), tenantOf(r), chi.URLParam(r, "id"), req.Reviewer, req.Notes)
	h.respondEvaluation(w, r, e, err)
}

func (h *Handler) CloseEvaluation(w http.ResponseWriter, r *http.Request) {
	e, err := h.flow.CloseEvaluation(r.Context(), tenantOf(r), chi.URLParam(r, "id"))
	h.respondEvaluation(w, r, e, err)
}

func (h *Handler) respondEvaluation(w http.ResponseWriter, r *http.Request, e *domain.Evaluation, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewEvaluation(e, h.now()))
}
