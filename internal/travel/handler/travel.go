package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/travelflow/travelflow-backend/internal/travel/service"
	"github.com/travelflow/travelflow-backend/pkg/httputil"
	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
)

// TravelHandler handles travel request, approval and approved travel endpoints
type TravelHandler struct {
	service *service.TravelService
	logger  *logger.Logger
}

// NewTravelHandler creates a new travel handler
func NewTravelHandler(svc *service.TravelService, log *logger.Logger) *TravelHandler {
	return &TravelHandler{
		service: svc,
		logger:  log,
	}
}

// Routes mounts /travel-requests. Deciding is open to every session: the
// service checks that the caller is the assigned approver.
func (h *TravelHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/approvals/{aid}/decide", h.Decide)

	r.Group(func(r chi.Router) {
		r.Use(httputil.RequirePermission(permissions.TravelOwn))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/submit", h.Submit)
		r.Post("/{id}/cancel", h.Cancel)
		r.Post("/{id}/resubmit", h.Resubmit)
		r.Post("/{id}/violations/{vid}/explain", h.ExplainViolation)
	})
}

// ApprovalRoutes mounts /approvals
func (h *TravelHandler) ApprovalRoutes(r chi.Router) {
	r.Get("/pending", h.PendingApprovals)
}

// ApprovedTravelRoutes mounts /approved-travels
func (h *TravelHandler) ApprovedTravelRoutes(r chi.Router) {
	r.Get("/", h.ListApproved)
	r.With(httputil.RequirePermission(permissions.ReportsOwn)).Post("/{id}/convert", h.ConvertToReport)
}

// Create drafts a travel request
func (h *TravelHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.RequestInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	created, err := h.service.Create(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, created)
}

// Get returns a travel request with violations and approvals
func (h *TravelHandler) Get(w http.ResponseWriter, r *http.Request) {
	req, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, req)
}

// List lists travel requests. scope=all lists the organization for callers
// holding travel.read.
func (h *TravelHandler) List(w http.ResponseWriter, r *http.Request) {
	p := httputil.ParsePagination(r)
	filter := service.ListFilter{
		Status: r.URL.Query().Get("status"),
		All:    r.URL.Query().Get("scope") == "all",
	}

	requests, total, err := h.service.List(r.Context(), filter, p.PerPage, p.Offset())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, requests, httputil.NewMeta(p.Page, p.PerPage, total))
}

// Update replaces a draft request
func (h *TravelHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.RequestInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	updated, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, updated)
}

// Delete deletes a draft request
func (h *TravelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// Submit sends a draft to its first approver
func (h *TravelHandler) Submit(w http.ResponseWriter, r *http.Request) {
	req, err := h.service.Submit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, req)
}

// Cancel withdraws a pending request
func (h *TravelHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	req, err := h.service.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, req)
}

// Resubmit reopens a rejected or cancelled request as a draft
func (h *TravelHandler) Resubmit(w http.ResponseWriter, r *http.Request) {
	req, err := h.service.Resubmit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, req)
}

// ExplainViolation justifies a violation of a draft
func (h *TravelHandler) ExplainViolation(w http.ResponseWriter, r *http.Request) {
	var req service.ExplainRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	violations, err := h.service.ExplainViolation(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "vid"), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, violations)
}

// Decide records an approver's decision
func (h *TravelHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var req service.DecideRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	decided, err := h.service.Decide(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "aid"), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, decided)
}

// PendingApprovals lists the caller's approval inbox
func (h *TravelHandler) PendingApprovals(w http.ResponseWriter, r *http.Request) {
	p := httputil.ParsePagination(r)

	requests, total, err := h.service.PendingApprovals(r.Context(), p.PerPage, p.Offset())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, requests, httputil.NewMeta(p.Page, p.PerPage, total))
}

// ListApproved lists the caller's approved travels
func (h *TravelHandler) ListApproved(w http.ResponseWriter, r *http.Request) {
	travels, err := h.service.ListApproved(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, travels)
}

// ConvertToReport opens an expense report for an approved travel
func (h *TravelHandler) ConvertToReport(w http.ResponseWriter, r *http.Request) {
	travel, err := h.service.ConvertToReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, travel)
}
