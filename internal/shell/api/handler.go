// Package api provides HTTP handlers for the planning API.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/topdeck-io/topdeck/internal/core/codegen"
	"github.com/topdeck-io/topdeck/internal/core/deployment"
	"github.com/topdeck-io/topdeck/internal/core/domain"
	"github.com/topdeck-io/topdeck/internal/core/environment"
	"github.com/topdeck-io/topdeck/internal/core/plan"
	"github.com/topdeck-io/topdeck/internal/core/topology"
	"github.com/topdeck-io/topdeck/internal/shell/store"
)

// maxDocumentSize caps uploaded topology documents at 1 MB.
const maxDocumentSize = 1 << 20

// =============================================================================
// Handler
// =============================================================================

// Handler provides HTTP handlers for the API.
type Handler struct {
	store   store.Store
	factory environment.ProviderFactory
	logger  *slog.Logger
}

// NewHandler creates a new API handler. The factory builds provider
// clients for each planned deployment's environment section.
func NewHandler(s store.Store, factory environment.ProviderFactory, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:   s,
		factory: factory,
		logger:  logger.With("component", "api"),
	}
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.requestIDHeader)

	// Health endpoints
	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/deployments", func(r chi.Router) {
			r.Post("/", h.handleCreateDeployment)
			r.Get("/", h.handleListDeployments)
			r.Get("/{id}", h.handleGetDeployment)
			r.Delete("/{id}", h.handleDeleteDeployment)
			r.Get("/{id}/manifest", h.handleGetManifest)
			r.Post("/{id}/verify", h.handleVerifyDeployment)
		})
	})

	return r
}

// requestIDHeader copies the request ID to the response header.
func (h *Handler) requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Health Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"database": "ok"}
	if _, err := h.store.ListDeployments(r.Context(), store.ListOptions{Limit: 1}); err != nil {
		checks["database"] = "failed"
		h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{Status: "not_ready", Checks: checks})
		return
	}
	h.writeJSON(w, http.StatusOK, ReadyResponse{Status: "ready", Checks: checks})
}

// =============================================================================
// Deployment Handlers
// =============================================================================

// handleCreateDeployment accepts a topology document as the request
// body, plans it and persists the result. Planning failures are
// reported as 422 with the planner's error.
func (h *Handler) handleCreateDeployment(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentSize))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "cannot read request body", "bad_request")
		return
	}

	file, err := topology.Parse(bytes.NewReader(body))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), "invalid_document")
		return
	}

	dep, err := deployment.New(file)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), "invalid_document")
		return
	}

	env, err := environment.New(dep.Environment, h.factory, h.logger)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), "invalid_environment")
		return
	}
	if err := env.Prime(r.Context()); err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error(), "invalid_environment")
		return
	}

	planner, err := plan.NewPlanner(dep, env, h.logger)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), "invalid_document")
		return
	}
	if _, err := planner.Plan(r.Context()); err != nil {
		h.logger.Info("planning rejected", "deployment_id", dep.ID, "error", err)
		h.writeError(w, http.StatusUnprocessableEntity, err.Error(), planErrorCode(err))
		return
	}

	if err := h.store.CreateDeployment(r.Context(), dep); err != nil {
		if errors.Is(err, store.ErrDuplicateID) {
			h.writeError(w, http.StatusConflict, "deployment already exists", "duplicate_deployment")
			return
		}
		h.logger.Error("failed to save deployment", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to save deployment", "internal_error")
		return
	}

	h.writeJSON(w, http.StatusCreated, deploymentToResponse(dep))
}

func (h *Handler) handleGetDeployment(w http.ResponseWriter, r *http.Request) {
	dep, ok := h.loadDeployment(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, deploymentToResponse(dep))
}

func (h *Handler) handleListDeployments(w http.ResponseWriter, r *http.Request) {
	opts := store.DefaultListOptions()
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			opts.Limit = l
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil {
			opts.Offset = o
		}
	}
	opts.Status = r.URL.Query().Get("status")

	deployments, err := h.store.ListDeployments(r.Context(), opts)
	if err != nil {
		h.logger.Error("failed to list deployments", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list deployments", "internal_error")
		return
	}

	resp := ListDeploymentsResponse{
		Deployments: make([]DeploymentResponse, 0, len(deployments)),
		Total:       len(deployments),
		Limit:       opts.Limit,
		Offset:      opts.Offset,
	}
	for i := range deployments {
		resp.Deployments = append(resp.Deployments, deploymentToResponse(&deployments[i]))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDeleteDeployment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteDeployment(r.Context(), id); err != nil {
		if isNotFound(err) {
			h.writeError(w, http.StatusNotFound, "deployment not found", "deployment_not_found")
			return
		}
		h.logger.Error("failed to delete deployment", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to delete deployment", "internal_error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetManifest renders the planned deployment as a docker
// compose manifest.
func (h *Handler) handleGetManifest(w http.ResponseWriter, r *http.Request) {
	dep, ok := h.loadDeployment(w, r)
	if !ok {
		return
	}

	env, err := environment.New(dep.Environment, h.factory, h.logger)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error(), "invalid_environment")
		return
	}
	generator, err := codegen.NewGenerator(env, h.logger)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error(), "internal_error")
		return
	}
	manifest, err := generator.Generate(r.Context(), dep)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error(), "manifest_error")
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(manifest)
}

// handleVerifyDeployment runs provider access and limit checks for a
// planned deployment and returns the findings.
func (h *Handler) handleVerifyDeployment(w http.ResponseWriter, r *http.Request) {
	dep, ok := h.loadDeployment(w, r)
	if !ok {
		return
	}

	env, err := environment.New(dep.Environment, h.factory, h.logger)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error(), "invalid_environment")
		return
	}
	planner, err := plan.NewPlanner(dep, env, h.logger)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error(), "invalid_document")
		return
	}

	access, err := planner.VerifyAccess(r.Context())
	if err != nil {
		h.writeError(w, http.StatusBadGateway, err.Error(), "verification_failed")
		return
	}
	limits, err := planner.VerifyLimits(r.Context())
	if err != nil {
		h.writeError(w, http.StatusBadGateway, err.Error(), "verification_failed")
		return
	}

	warnings := append(access, limits...)
	if warnings == nil {
		warnings = []plan.Warning{}
	}
	h.writeJSON(w, http.StatusOK, VerifyResponse{Warnings: warnings})
}

// =============================================================================
// Helpers
// =============================================================================

func (h *Handler) loadDeployment(w http.ResponseWriter, r *http.Request) (*deployment.Deployment, bool) {
	id := chi.URLParam(r, "id")
	dep, err := h.store.GetDeployment(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			h.writeError(w, http.StatusNotFound, "deployment not found", "deployment_not_found")
			return nil, false
		}
		h.logger.Error("failed to load deployment", "id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to load deployment", "internal_error")
		return nil, false
	}
	return dep, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

// planErrorCode maps planner error types to API error codes.
func planErrorCode(err error) string {
	var validation *domain.ValidationError
	var selection *domain.SelectionError
	var loop *domain.DependencyLoopError
	switch {
	case errors.As(err, &selection):
		return "component_not_found"
	case errors.As(err, &loop):
		return "dependency_loop"
	case errors.As(err, &validation):
		return "validation_error"
	default:
		return "planning_failed"
	}
}

func sortResources(resources []ResourceResponse) {
	sort.Slice(resources, func(i, j int) bool {
		ni, iErr := strconv.Atoi(resources[i].Index)
		nj, jErr := strconv.Atoi(resources[j].Index)
		switch {
		case iErr == nil && jErr == nil:
			return ni < nj
		case iErr == nil:
			return true
		case jErr == nil:
			return false
		default:
			return resources[i].Index < resources[j].Index
		}
	})
}
