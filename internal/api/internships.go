package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/opensource-finance/praxis/internal/domain"
)

func (h *Handler) CreateInternship(w http.ResponseWriter, r *http.Request) {
	var req createInternshipRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	in, err := h.flow.CreateInternship(r.Context(), tenantOf(r), req.params())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewInternship(in, h.now()))
}

// ListInternships supports batchId, studentId and status filters.
func (h *Handler) ListInternships(w http.ResponseWriter, r *http.Request) {
	status, err := queryEnum(r, "status", domain.ParseInternshipStatus)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter := domain.InternshipFilter{
		BatchID:   r.URL.Query().Get("batchId"),
		StudentID: r.URL.Query().Get("studentId"),
		Status:    status,
	}
	if id := chi.URLParam(r, "id"); id != "" {
		filter.BatchID = id
	}

	list, err := h.repo.ListInternships(r.Context(), tenantOf(r), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(mapViews(list, h.now(), viewInternship)))
}

func (h *Handler) GetInternship(w http.ResponseWriter, r *http.Request) {
	in, err := h.repo.GetInternship(r.Context(), tenantOf(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewInternship(in, h.now()))
}

func (h *Handler) ApproveInternship(w http.ResponseWriter, r *http.Request) {
	in, err := h.flow.ApproveInternship(r.Context(), tenantOf(r), chi.URLParam(r, "id"))
	h.respondInternship(w, r, in, err)
}

func (h *Handler) RejectInternship(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := h.flow.RejectInternship(r.Context(), tenantOf(r), chi.URLParam(r, "id"), req.Reason)
	h.respondInternship(w, r, in, err)
}

func (h *Handler) AssignInternship(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := h.flow.AssignInternship(r.Context(), tenantOf(r), chi.URLParam(r, "id"), req.assignment())
	h.respondInternship(w, r, in, err)
}

func (h *Handler) AssignSupervisors(w http.ResponseWriter, r *http.Request) {
	var req supervisorsRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := h.flow.AssignSupervisors(r.Context(), tenantOf(r), chi.URLParam(r, "id"), req.Mentor, req.Teacher)
	h.respondInternship(w, r, in, err)
}

func (h *Handler) StartInternship(w http.ResponseWriter, r *http.Request) {
	in, err := h.flow.StartInternship(r.Context(), tenantOf(r), chi.URLParam(r, "id"))
	h.respondInternship(w, r, in, err)
}

func (h *Handler) CompleteInternship(w http.ResponseWriter, r *http.Request) {
	in, err := h.flow.CompleteInternship(r.Context(), tenantOf(r), chi.URLParam(r, "id"))
	h.respondInternship(w, r, in, err)
}

func (h *Handler) CancelInternship(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := h.flow.CancelInternship(r.Context(), tenantOf(r), chi.URLParam(r, "id"), req.Reason)
	h.respondInternship(w, r, in, err)
}

// RecordInternshipScore stores a supervisor score given outside an evaluation.
func (h *Handler) RecordInternshipScore(w http.ResponseWriter, r *http.Request) {
	var req recordScoreRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	role, _ := domain.ParseEvaluationType(req.Role)
	in, err := h.flow.RecordInternshipScore(r.Context(), tenantOf(r), chi.URLParam(r, "id"), role, req.Score)
	h.respondInternship(w, r, in, err)
}

// AssessPlacement runs the tenant's placement policies against an internship.
func (h *Handler) AssessPlacement(w http.ResponseWriter, r *http.Request) {
	as, err := h.flow.AssessPlacement(r.Context(), tenantOf(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assessmentView{Assessment: as, Status: as.Label()})
}

func (h *Handler) respondInternship(w http.ResponseWriter, r *http.Request, in *domain.Internship, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewInternship(in, h.now()))
}
