package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/travelflow/travelflow-backend/internal/policy/service"
	"github.com/travelflow/travelflow-backend/pkg/httputil"
	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
)

// PolicyHandler handles policy configuration endpoints
type PolicyHandler struct {
	service *service.PolicyService
	logger  *logger.Logger
}

// NewPolicyHandler creates a new policy handler
func NewPolicyHandler(svc *service.PolicyService, log *logger.Logger) *PolicyHandler {
	return &PolicyHandler{service: svc, logger: log}
}

// Routes mounts grades, rules, restrictions and custom rules
func (h *PolicyHandler) Routes(r chi.Router) {
	read := httputil.RequirePermission(permissions.PolicyRead)
	write := httputil.RequirePermission(permissions.PolicyWrite)

	r.Route("/grades", func(r chi.Router) {
		r.With(read).Get("/", list(h.service.ListGrades))
		r.With(write).Post("/", create(h.service.CreateGrade))
		r.With(write).Put("/{id}", update(h.service.UpdateGrade))
		r.With(write).Delete("/{id}", remove(h.service.DeleteGrade))
	})

	r.Route("/rules", func(r chi.Router) {
		r.With(read).Get("/", list(h.service.ListRules))
		r.With(write).Post("/", create(h.service.CreateRule))
		r.With(write).Put("/{id}", update(h.service.UpdateRule))
		r.With(write).Delete("/{id}", remove(h.service.DeleteRule))
	})

	r.Route("/restrictions", func(r chi.Router) {
		r.With(read).Get("/", list(h.service.ListRestrictions))
		r.With(write).Post("/", create(h.service.CreateRestriction))
		r.With(write).Put("/{id}", update(h.service.UpdateRestriction))
		r.With(write).Delete("/{id}", remove(h.service.DeleteRestriction))
	})

	r.Route("/custom-rules", func(r chi.Router) {
		r.With(read).Get("/", list(h.service.ListCustomRules))
		r.With(write).Post("/", create(h.service.CreateCustomRule))
		r.With(write).Put("/{id}", update(h.service.UpdateCustomRule))
		r.With(write).Delete("/{id}", remove(h.service.DeleteCustomRule))
	})
}

// The four policy entities share request handling; these adapters bind a
// service method to an http.HandlerFunc.

func list[T any](fn func(context.Context) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := fn(r.Context())
		if err != nil {
			httputil.Error(w, err)
			return
		}
		httputil.JSON(w, http.StatusOK, items)
	}
}

func create[Req, T any](fn func(context.Context, *Req) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		if err := httputil.Validate(&req); err != nil {
			httputil.Error(w, err)
			return
		}

		item, err := fn(r.Context(), &req)
		if err != nil {
			httputil.Error(w, err)
			return
		}

		httputil.Created(w, item)
	}
}

func update[Req, T any](fn func(context.Context, string, *Req) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		if err := httputil.Validate(&req); err != nil {
			httputil.Error(w, err)
			return
		}

		item, err := fn(r.Context(), chi.URLParam(r, "id"), &req)
		if err != nil {
			httputil.Error(w, err)
			return
		}

		httputil.JSON(w, http.StatusOK, item)
	}
}

func remove(fn func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r.Context(), chi.URLParam(r, "id")); err != nil {
			httputil.Error(w, err)
			return
		}
		httputil.NoContent(w)
	}
}
