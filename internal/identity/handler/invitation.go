package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/travelflow/travelflow-backend/internal/identity/service"
	"github.com/travelflow/travelflow-backend/pkg/httputil"
	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
)

// InvitationHandler handles invitation code endpoints
type InvitationHandler struct {
	service *service.InvitationService
	logger  *logger.Logger
}

// NewInvitationHandler creates a new invitation handler
func NewInvitationHandler(svc *service.InvitationService, log *logger.Logger) *InvitationHandler {
	return &InvitationHandler{
		service: svc,
		logger:  log,
	}
}

// Routes mounts the authenticated invitation endpoints
func (h *InvitationHandler) Routes(r chi.Router) {
	r.With(httputil.RequirePermission(permissions.InvitationsRead)).Get("/", h.List)
	r.With(httputil.RequirePermission(permissions.InvitationsCreate)).Post("/", h.Create)
	r.With(httputil.RequirePermission(permissions.InvitationsDelete)).Delete("/{id}", h.Delete)
}

// PublicRoutes mounts lookup and redemption, which need no session
func (h *InvitationHandler) PublicRoutes(r chi.Router) {
	r.Get("/{code}", h.Lookup)
	r.Post("/{code}/redeem", h.Redeem)
}

// Create creates a new invitation code
func (h *InvitationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateInvitationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	inv, err := h.service.Create(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, inv)
}

// List lists invitation codes
func (h *InvitationHandler) List(w http.ResponseWriter, r *http.Request) {
	p := httputil.ParsePagination(r)

	codes, total, err := h.service.List(r.Context(), p.PerPage, p.Offset())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, codes, httputil.NewMeta(p.Page, p.PerPage, total))
}

// Delete deletes an invitation code
func (h *InvitationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// Lookup shows what a code grants (public endpoint)
func (h *InvitationHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Lookup(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, info)
}

// Redeem registers a new member with a code (public endpoint)
func (h *InvitationHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req service.RedeemRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	profile, err := h.service.Redeem(r.Context(), chi.URLParam(r, "code"), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, profile)
}
