package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/travelflow/travelflow-backend/internal/travel/service"
	"github.com/travelflow/travelflow-backend/pkg/httputil"
	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
)

// ChainHandler handles approval chain endpoints
type ChainHandler struct {
	service *service.ChainService
	logger  *logger.Logger
}

// NewChainHandler creates a new approval chain handler
func NewChainHandler(svc *service.ChainService, log *logger.Logger) *ChainHandler {
	return &ChainHandler{
		service: svc,
		logger:  log,
	}
}

// Routes mounts /approval-chains
func (h *ChainHandler) Routes(r chi.Router) {
	r.With(httputil.RequirePermission(permissions.ChainsRead)).Get("/", h.List)
	r.With(httputil.RequirePermission(permissions.ChainsRead)).Get("/{id}", h.Get)
	r.With(httputil.RequirePermission(permissions.ChainsWrite)).Post("/", h.Create)
	r.With(httputil.RequirePermission(permissions.ChainsWrite)).Put("/{id}", h.Update)
	r.With(httputil.RequirePermission(permissions.ChainsWrite)).Delete("/{id}", h.Delete)
}

// List lists approval chains
func (h *ChainHandler) List(w http.ResponseWriter, r *http.Request) {
	chains, err := h.service.List(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, chains)
}

// Get returns an approval chain
func (h *ChainHandler) Get(w http.ResponseWriter, r *http.Request) {
	chain, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, chain)
}

// Create creates an approval chain
func (h *ChainHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.ChainRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	chain, err := h.service.Create(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, chain)
}

// Update replaces an approval chain
func (h *ChainHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.ChainRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	chain, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, chain)
}

// Delete deletes an approval chain
func (h *ChainHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
