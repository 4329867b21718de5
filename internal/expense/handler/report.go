package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/travelflow/travelflow-backend/internal/expense/service"
	"github.com/travelflow/travelflow-backend/pkg/httputil"
	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
)

// ReportHandler handles expense report, receipt and exchange rate endpoints
type ReportHandler struct {
	service *service.ExpenseService
	logger  *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(svc *service.ExpenseService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		service: svc,
		logger:  log,
	}
}

// Routes mounts /reports. Review endpoints are open to every session: the
// service checks that the caller may review the report.
func (h *ReportHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/export.pdf", h.exportAs(service.FormatPDF))
	r.Get("/{id}/export.xlsx", h.exportAs(service.FormatXLSX))
	r.Post("/{id}/decide", h.Decide)
	r.Post("/{id}/expenses/{eid}/decide", h.DecideExpense)

	r.Group(func(r chi.Router) {
		r.Use(httputil.RequirePermission(permissions.ReportsOwn))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/submit", h.Submit)
		r.Post("/{id}/expenses", h.AddExpense)
		r.Put("/{id}/expenses/{eid}", h.UpdateExpense)
		r.Delete("/{id}/expenses/{eid}", h.DeleteExpense)
		r.Post("/{id}/expenses/{eid}/receipts", h.AttachReceipt)
	})
}

// ReceiptRoutes mounts /receipts
func (h *ReportHandler) ReceiptRoutes(r chi.Router) {
	r.Get("/{id}/url", h.ReceiptURL)
	r.With(httputil.RequirePermission(permissions.ReportsOwn)).Delete("/{id}", h.DeleteReceipt)
}

// RateRoutes mounts /exchange-rates
func (h *ReportHandler) RateRoutes(r chi.Router) {
	r.Get("/", h.ListRates)

	r.Group(func(r chi.Router) {
		r.Use(httputil.RequirePermission(permissions.ReportsRates))
		r.Post("/", h.CreateRate)
		r.Delete("/{id}", h.DeleteRate)
	})
}

// Create opens a report
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.ReportInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	rep, err := h.service.CreateReport(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, rep)
}

// Get returns a report with its expenses and receipts
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	rep, err := h.service.GetReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rep)
}

// List lists reports. scope=all lists the organization for callers holding
// reports.read.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	p := httputil.ParsePagination(r)
	filter := service.ReportFilter{
		Status: r.URL.Query().Get("status"),
		All:    r.URL.Query().Get("scope") == "all",
	}

	reports, total, err := h.service.ListReports(r.Context(), filter, p.PerPage, p.Offset())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, reports, httputil.NewMeta(p.Page, p.PerPage, total))
}

// Update changes the trip details of a report
func (h *ReportHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.ReportInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	rep, err := h.service.UpdateReport(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rep)
}

// Delete deletes a report
func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteReport(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// Submit sends a report for review
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	rep, err := h.service.SubmitReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rep)
}

// Decide approves or rejects a report under review
func (h *ReportHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var req service.DecideReportRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	rep, err := h.service.DecideReport(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rep)
}

func (h *ReportHandler) exportAs(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := h.service.Export(r.Context(), chi.URLParam(r, "id"), format)
		if err != nil {
			httputil.Error(w, err)
			return
		}

		httputil.Attachment(w, doc.ContentType, doc.FileName, doc.Data)
	}
}
