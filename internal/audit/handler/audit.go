package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/travelflow/travelflow-backend/internal/audit/domain"
	"github.com/travelflow/travelflow-backend/internal/audit/service"
	"github.com/travelflow/travelflow-backend/pkg/errors"
	"github.com/travelflow/travelflow-backend/pkg/httputil"
	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
)

// AuditHandler serves the policy audit log
type AuditHandler struct {
	service *service.AuditService
	logger  *logger.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(svc *service.AuditService, log *logger.Logger) *AuditHandler {
	return &AuditHandler{service: svc, logger: log}
}

// Routes mounts the audit endpoints
func (h *AuditHandler) Routes(r chi.Router) {
	r.With(httputil.RequirePermission(permissions.AuditRead)).Get("/", h.List)
}

// List lists audit entries. Query parameters: entity_type, action, actor_id,
// q (free text), from and to (RFC 3339 or YYYY-MM-DD), page, per_page.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := httputil.ParsePagination(r)

	filter := &domain.Filter{
		EntityType: q.Get("entity_type"),
		Action:     q.Get("action"),
		ActorID:    q.Get("actor_id"),
		Search:     q.Get("q"),
	}

	var err error
	if filter.From, err = parseTime(q.Get("from"), false); err != nil {
		httputil.Error(w, errors.ValidationField("from", "must be a date"))
		return
	}
	if filter.To, err = parseTime(q.Get("to"), true); err != nil {
		httputil.Error(w, errors.ValidationField("to", "must be a date"))
		return
	}

	entries, total, err := h.service.List(r.Context(), filter, p.PerPage, p.Offset())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, entries, httputil.NewMeta(p.Page, p.PerPage, total))
}

// parseTime accepts RFC 3339 timestamps or plain dates. A plain "to" date
// covers the whole day.
func parseTime(value string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
