package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/opensource-finance/praxis/internal/domain"
)

func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	var req createContractRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.flow.CreateContract(r.Context(), tenantOf(r), req.params())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewContract(c, h.now()))
}

// ListContracts supports internshipId and status filters. Under
// /internships/{id} the internship comes from the path.
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	status, err := queryEnum(r, "status", domain.ParseContractStatus)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter := domain.ContractFilter{
		InternshipID: r.URL.Query().Get("internshipId"),
		Status:       status,
	}
	if id := chi.URLParam(r, "id"); id != "" {
		filter.InternshipID = id
	}

	list, err := h.repo.ListContracts(r.Context(), tenantOf(r), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(mapViews(list, h.now(), viewContract)))
}

func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	c, err := h.repo.GetContract(r.Context(), tenantOf(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewContract(c, h.now()))
}

func (h *Handler) SubmitContract(w http.ResponseWriter, r *http.Request) {
	c, err := h.flow.SubmitContract(r.Context(), tenantOf(r), chi.URLParam(r, "id"))
	h.respondContract(w, r, c, err)
}

func (h *Handler) SignContract(w http.ResponseWriter, r *http.Request) {
	var req signRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	party, err := parseParty(req.Party)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.flow.SignContract(r.Context(), tenantOf(r), chi.URLParam(r, "id"), party, req.signer())
	h.respondContract(w, r, c, err)
}

func (h *Handler) RejectContractSignature(w http.ResponseWriter, r *http.Request) {
	var req signRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	party, err := parseParty(req.Party)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.flow.RejectContractSignature(r.Context(), tenantOf(r), chi.URLParam(r, "id"), party, req.signer(), req.Reason)
	h.respondContract(w, r, c, err)
}

func (h *Handler) MarkContractCompliant(w http.ResponseWriter, r *http.Request) {
	c, err := h.flow.MarkContractCompliant(r.Context(), tenantOf(r), chi.URLParam(r, "id"))
	h.respondContract(w, r, c, err)
}

func (h *Handler) ActivateContract(w http.ResponseWriter, r *http.Request) {
	c, err := h.flow.ActivateContract(r.Context(), tenantOf(r), chi.URLParam(r, "id"))
	h.respondContract(w, r, c, err)
}

func (h *Handler) TerminateContract(w http.ResponseWriter, r *http.Request) {
	var req terminateRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var effective time.Time
	if req.EffectiveDate != nil {
		effective = *req.EffectiveDate
	}
	c, err := h.flow.TerminateContract(r.Context(), tenantOf(r), chi.URLParam(r, "id"), req.Reason, effective, req.NoticeDays)
	h.respondContract(w, r, c, err)
}

func (h *Handler) CancelContract(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.flow.CancelContract(r.Context(), tenantOf(r), chi.URLParam(r, "id"), req.Reason)
	h.respondContract(w, r, c, err)
}

// SweepContracts expires the tenant's overdue active contracts now.
func (h *Handler) SweepContracts(w http.ResponseWriter, r *http.Request) {
	n, err := h.flow.SweepExpiredContracts(r.Context(), tenantOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"expired": n})
}

func (h *Handler) respondContract(w http.ResponseWriter, r *http.Request, c *domain.Contract, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewContract(c, h.now()))
}

func parseParty(raw string) (domain.SignatureParty, error) {
	party, ok := domain.ParseSignatureParty(raw)
	if !ok {
		return "", fmt.Errorf("%w: unknown signature party %q", domain.ErrInvalidInput, raw)
	}
	return party, nil
}
