package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/travelflow/travelflow-backend/internal/identity/service"
	"github.com/travelflow/travelflow-backend/pkg/httputil"
	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
)

// UserHandler handles member management endpoints
type UserHandler struct {
	service *service.UserService
	logger  *logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(svc *service.UserService, log *logger.Logger) *UserHandler {
	return &UserHandler{service: svc, logger: log}
}

// Routes mounts the user endpoints
func (h *UserHandler) Routes(r chi.Router) {
	r.With(httputil.RequirePermission(permissions.UsersRead)).Get("/", h.List)
	r.With(httputil.RequirePermission(permissions.UsersRead)).Get("/{id}", h.Get)
	r.With(httputil.RequirePermission(permissions.UsersWrite)).Patch("/{id}/assignment", h.UpdateAssignment)
	r.With(httputil.RequirePermission(permissions.UsersWrite)).Post("/{id}/activate", h.Activate)
	r.With(httputil.RequirePermission(permissions.UsersWrite)).Post("/{id}/deactivate", h.Deactivate)
	r.With(httputil.RequirePermission(permissions.UsersRoles)).Post("/{id}/roles", h.GrantRole)
	r.With(httputil.RequirePermission(permissions.UsersRoles)).Delete("/{id}/roles/{role}", h.RevokeRole)
}

// List lists members of the organization
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	p := httputil.ParsePagination(r)

	users, total, err := h.service.List(r.Context(), p.PerPage, p.Offset())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, users, httputil.NewMeta(p.Page, p.PerPage, total))
}

// Get returns a member
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, user)
}

// UpdateAssignment sets manager and grade of a member
func (h *UserHandler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateAssignmentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	user, err := h.service.UpdateAssignment(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, user)
}

// Activate re-enables a member
func (h *UserHandler) Activate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.SetActive(r.Context(), chi.URLParam(r, "id"), true); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// Deactivate disables a member
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.SetActive(r.Context(), chi.URLParam(r, "id"), false); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// GrantRoleRequest names the role to grant
type GrantRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// GrantRole grants a role to a member
func (h *UserHandler) GrantRole(w http.ResponseWriter, r *http.Request) {
	var req GrantRoleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	user, err := h.service.GrantRole(r.Context(), chi.URLParam(r, "id"), req.Role)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, user)
}

// RevokeRole revokes a role from a member
func (h *UserHandler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.RevokeRole(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "role"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, user)
}
