package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/travelflow/travelflow-backend/internal/identity/service"
	"github.com/travelflow/travelflow-backend/pkg/httputil"
	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
)

// OrganizationHandler handles organization endpoints
type OrganizationHandler struct {
	service *service.OrganizationService
	logger  *logger.Logger
}

// NewOrganizationHandler creates a new organization handler
func NewOrganizationHandler(svc *service.OrganizationService, log *logger.Logger) *OrganizationHandler {
	return &OrganizationHandler{service: svc, logger: log}
}

// Routes mounts the authenticated organization endpoints
func (h *OrganizationHandler) Routes(r chi.Router) {
	r.With(httputil.RequirePermission(permissions.OrgRead)).Get("/", h.Get)
	r.With(httputil.RequirePermission(permissions.OrgSettings)).Patch("/", h.UpdateSettings)
}

// Register signs up a new organization (public endpoint)
func (h *OrganizationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterOrganizationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	reg, err := h.service.Register(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, reg)
}

// Get returns the caller's organization
func (h *OrganizationHandler) Get(w http.ResponseWriter, r *http.Request) {
	org, err := h.service.Get(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, org)
}

// UpdateSettings changes the caller's organization settings
func (h *OrganizationHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateSettingsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	org, err := h.service.UpdateSettings(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, org)
}
