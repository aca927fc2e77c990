// Package api exposes the placement service over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opensource-finance/praxis/internal/domain"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, deps Deps) *Server {
	handler := NewHandler(deps)
	router := chi.NewRouter()

	router.Use(CORSMiddleware)
	router.Use(RecoverMiddleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	// Health endpoints (no tenant required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	router.Group(func(r chi.Router) {
		r.Use(TenantMiddleware)

		r.Route("/batches", func(r chi.Router) {
			r.Post("/", handler.CreateBatch)
			r.Get("/", handler.ListBatches)
			r.Get("/{id}", handler.GetBatch)
			r.Post("/{id}/activate", handler.ActivateBatch)
			r.Post("/{id}/deactivate", handler.DeactivateBatch)
			r.Get("/{id}/internships", handler.ListInternships)
			r.Get("/{id}/statistics", handler.BatchStatistics)
		})

		r.Route("/internships", func(r chi.Router) {
			r.Post("/", handler.CreateInternship)
			r.Get("/", handler.ListInternships)
			r.Get("/{id}", handler.GetInternship)
			r.Post("/{id}/approve", handler.ApproveInternship)
			r.Post("/{id}/reject", handler.RejectInternship)
			r.Post("/{id}/assign", handler.AssignInternship)
			r.Post("/{id}/supervisors", handler.AssignSupervisors)
			r.Post("/{id}/start", handler.StartInternship)
			r.Post("/{id}/complete", handler.CompleteInternship)
			r.Post("/{id}/cancel", handler.CancelInternship)
			r.Post("/{id}/scores", handler.RecordInternshipScore)
			r.Post("/{id}/assessment", handler.AssessPlacement)
			r.Get("/{id}/contracts", handler.ListContracts)
			r.Get("/{id}/evaluations", handler.ListEvaluations)
			r.Get("/{id}/statistics", handler.InternshipStatistics)
		})

		r.Route("/contracts", func(r chi.Router) {
			r.Post("/", handler.CreateContract)
			r.Get("/", handler.ListContracts)
			r.Post("/sweep", handler.SweepContracts)
			r.Get("/{id}", handler.GetContract)
			r.Post("/{id}/submit", handler.SubmitContract)
			r.Post("/{id}/sign", handler.SignContract)
			r.Post("/{id}/reject-signature", handler.RejectContractSignature)
			r.Post("/{id}/compliant", handler.MarkContractCompliant)
			r.Post("/{id}/activate", handler.ActivateContract)
			r.Post("/{id}/terminate", handler.TerminateContract)
			r.Post("/{id}/cancel", handler.CancelContract)
		})

		r.Route("/evaluations", func(r chi.Router) {
			r.Post("/", handler.CreateEvaluation)
			r.Get("/", handler.ListEvaluations)
			r.Get("/{id}", handler.GetEvaluation)
			r.Post("/{id}/scores", handler.ScoreEvaluation)
			r.Post("/{id}/submit", handler.SubmitEvaluation)
			r.Post("/{id}/review", handler.ReviewEvaluation)
			r.Post("/{id}/close", handler.CloseEvaluation)
		})

		r.Route("/policies", func(r chi.Router) {
			r.Get("/", handler.ListPolicies)
			r.Post("/", handler.SavePolicy)
			r.Post("/reload", handler.ReloadPolicies)
			r.Get("/{id}", handler.GetPolicy)
			r.Delete("/{id}", handler.DeletePolicy)
		})
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the chi router.
func (s *Server) Router() *chi.Mux {
	return s.router
}
