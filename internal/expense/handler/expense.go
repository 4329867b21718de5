package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/travelflow/travelflow-backend/internal/expense/service"
	"github.com/travelflow/travelflow-backend/pkg/httputil"
)

// AddExpense adds an expense to a report
func (h *ReportHandler) AddExpense(w http.ResponseWriter, r *http.Request) {
	var req service.ExpenseInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	e, err := h.service.AddExpense(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, e)
}

// UpdateExpense replaces an expense
func (h *ReportHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req service.ExpenseInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	e, err := h.service.UpdateExpense(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "eid"), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, e)
}

// DeleteExpense removes an expense
func (h *ReportHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteExpense(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "eid")); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// DecideExpense approves or rejects one expense of a report under review
func (h *ReportHandler) DecideExpense(w http.ResponseWriter, r *http.Request) {
	var req service.DecideExpenseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	e, err := h.service.DecideExpense(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "eid"), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, e)
}

// AttachReceipt attaches an uploaded file to an expense
func (h *ReportHandler) AttachReceipt(w http.ResponseWriter, r *http.Request) {
	var req service.ReceiptInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	rec, err := h.service.AttachReceipt(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "eid"), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, rec)
}

// ReceiptURL returns a fetchable URL of a receipt
func (h *ReportHandler) ReceiptURL(w http.ResponseWriter, r *http.Request) {
	url, err := h.service.ReceiptURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, url)
}

// DeleteReceipt removes a receipt
func (h *ReportHandler) DeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteReceipt(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// ListRates lists the exchange rates of the organization
func (h *ReportHandler) ListRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.service.ListRates(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rates)
}

// CreateRate records an exchange rate
func (h *ReportHandler) CreateRate(w http.ResponseWriter, r *http.Request) {
	var req service.RateInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	rate, err := h.service.CreateRate(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, rate)
}

// DeleteRate deletes an exchange rate
func (h *ReportHandler) DeleteRate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRate(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
