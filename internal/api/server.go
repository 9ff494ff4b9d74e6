package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tannervoutour/fixxit.ai-openwebui/internal/api/handler"
	mw "github.com/tannervoutour/fixxit.ai-openwebui/internal/api/middleware"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/config"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/core"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/crypto"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/db"
)

type Server struct {
	router       chi.Router
	logger       zerolog.Logger
	services     *core.Services
	metadataPool *pgxpool.Pool
	cfg          *config.Config
	auditLogger  *mw.AuditLogger
}

func NewServer(logger zerolog.Logger, metadataPool *pgxpool.Pool, registry *db.Registry, vault *crypto.Vault, cfg *config.Config) *Server {
	opts := core.FederationOptions{
		QueryTimeout: cfg.TenantQueryTimeout,
		Parallelism:  cfg.FederationParallelism,
		RequireSSL:   cfg.RequireSSL,
	}
	services := core.NewServices(metadataPool, registry, vault, opts, logger)
	auditLogger := mw.NewAuditLogger(metadataPool, logger)

	s := &Server{
		router:       chi.NewRouter(),
		logger:       logger,
		services:     services,
		metadataPool: metadataPool,
		cfg:          cfg,
		auditLogger:  auditLogger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.Auth(s.metadataPool))
		r.Use(s.auditLogger.Middleware)

		// Federated logs
		logs := handler.NewLogs(s.services.Logs)
		r.Get("/logs", logs.Query)
		r.Post("/logs", logs.Create)
		r.Get("/logs/categories", logs.Categories)
		r.Get("/logs/equipment-groups", logs.EquipmentGroups)

		// Group database configuration
		groupDB := handler.NewGroupDatabase(s.services.GroupConfig)
		r.Get("/groups/accessible-with-logs", groupDB.AccessibleWithLogs)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAdmin)
			r.Get("/groups/{id}/database", groupDB.Get)
			r.Post("/groups/{id}/database", groupDB.Configure)
			r.Post("/groups/database/test", groupDB.Test)
		})
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.metadataPool.Ping(ctx); err != nil {
		checks["metadata_db"] = err.Error()
		healthy = false
	} else {
		checks["metadata_db"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

// Close stops background workers owned by the server.
func (s *Server) Close() {
	s.auditLogger.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
