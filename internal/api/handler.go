package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/opensource-finance/praxis/internal/domain"
	"github.com/opensource-finance/praxis/internal/stats"
	"github.com/opensource-finance/praxis/internal/workflow"
)

// Deps are the collaborators the API serves from.
type Deps struct {
	Repo     domain.Repository
	Cache    domain.Cache
	Bus      domain.EventBus
	Workflow *workflow.Service
	Stats    *stats.Service
	Version  string

	// Now is the clock used for derived metrics. Defaults to time.Now.
	Now func() time.Time
}

// Handler handles HTTP requests.
type Handler struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	flow     *workflow.Service
	stats    *stats.Service
	validate *validator.Validate
	version  string
	now      func() time.Time
}

// NewHandler creates a new handler.
func NewHandler(d Deps) *Handler {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		repo:     d.Repo,
		cache:    d.Cache,
		bus:      d.Bus,
		flow:     d.Workflow,
		stats:    d.Stats,
		validate: newValidator(),
		version:  d.Version,
		now:      now,
	}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	checks := map[string]string{}

	check := func(name string, ping func() error) {
		if err := ping(); err != nil {
			status = "degraded"
			checks[name] = err.Error()
			return
		}
		checks[name] = "ok"
	}
	if h.repo != nil {
		check("repository", func() error { return h.repo.Ping(r.Context()) })
	}
	if h.cache != nil {
		check("cache", func() error { return h.cache.Ping(r.Context()) })
	}
	if h.bus != nil {
		check("eventBus", func() error { return h.bus.Ping(r.Context()) })
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  status,
		"version": h.version,
		"checks":  checks,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// Batches

func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	b, err := h.flow.CreateBatch(r.Context(), tenantOf(r), req.params())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewBatch(b, h.now()))
}

func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.repo.ListBatches(r.Context(), tenantOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(mapViews(batches, h.now(), viewBatch)))
}

func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	b, err := h.repo.GetBatch(r.Context(), tenantOf(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewBatch(b, h.now()))
}

func (h *Handler) ActivateBatch(w http.ResponseWriter, r *http.Request) {
	h.setBatchActive(w, r, true)
}

func (h *Handler) DeactivateBatch(w http.ResponseWriter, r *http.Request) {
	h.setBatchActive(w, r, false)
}

func (h *Handler) setBatchActive(w http.ResponseWriter, r *http.Request, active bool) {
	b, err := h.flow.SetBatchActive(r.Context(), tenantOf(r), chi.URLParam(r, "id"), active)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewBatch(b, h.now()))
}

func (h *Handler) BatchStatistics(w http.ResponseWriter, r *http.Request) {
	st, err := h.stats.ForBatch(r.Context(), tenantOf(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Statistics of an internship's evaluations.
func (h *Handler) InternshipStatistics(w http.ResponseWriter, r *http.Request) {
	st, err := h.stats.ForInternship(r.Context(), tenantOf(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// queryEnum parses an optional enum query parameter.
func queryEnum[T ~string](r *http.Request, name string, parse func(string) (T, bool)) (T, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return "", nil
	}
	v, ok := parse(raw)
	if !ok {
		return "", fmt.Errorf("%w: unknown %s %q", domain.ErrInvalidInput, name, raw)
	}
	return v, nil
}
