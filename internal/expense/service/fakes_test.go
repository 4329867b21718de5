package service_test

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/travelflow/travelflow-backend/internal/expense/domain"
	"github.com/travelflow/travelflow-backend/internal/expense/repository"
	identitydomain "github.com/travelflow/travelflow-backend/internal/identity/domain"
	"github.com/travelflow/travelflow-backend/pkg/errors"
)

type memReports struct {
	rows map[string]*domain.Report
}

func (m *memReports) Create(ctx context.Context, rep *domain.Report) error {
	if rep.ID == "" {
		rep.ID = uuid.New().String()
	}
	rep.CreatedAt = time.Now()
	c := *rep
	m.rows[rep.ID] = &c
	return nil
}

func (m *memReports) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	rep, ok := m.rows[id]
	if !ok {
		return nil, errors.NotFound("report")
	}
	c := *rep
	return &c, nil
}

func (m *memReports) LockByID(ctx context.Context, id string) (*domain.Report, error) {
	return m.GetByID(ctx, id)
}

func (m *memReports) List(ctx context.Context, filter repository.ReportFilter, limit, offset int) ([]*domain.Report, int64, error) {
	out := make([]*domain.Report, 0)
	for _, rep := range m.rows {
		if rep.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.UserID != "" && rep.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && rep.Status != filter.Status {
			continue
		}
		c := *rep
		out = append(out, &c)
	}
	return out, int64(len(out)), nil
}

func (m *memReports) Update(ctx context.Context, rep *domain.Report) error {
	stored, ok := m.rows[rep.ID]
	if !ok {
		return errors.NotFound("report")
	}
	if !stored.IsEditable() {
		return errors.Conflict("report can no longer be edited")
	}
	stored.Destination, stored.Purpose = rep.Destination, rep.Purpose
	stored.StartDate, stored.EndDate, stored.Currency = rep.StartDate, rep.EndDate, rep.Currency
	return nil
}

func (m *memReports) SetTotal(ctx context.Context, id string, total decimal.Decimal) error {
	stored, ok := m.rows[id]
	if !ok {
		return errors.NotFound("report")
	}
	stored.TotalAmount = total
	return nil
}

func (m *memReports) Transition(ctx context.Context, rep *domain.Report, from string) error {
	stored, ok := m.rows[rep.ID]
	if !ok || stored.Status != from {
		return errors.Conflict("report was changed concurrently")
	}
	stored.Status = rep.Status
	stored.SubmittedAt, stored.ClosedAt = rep.SubmittedAt, rep.ClosedAt
	stored.ReviewerID, stored.ReviewComment = rep.ReviewerID, rep.ReviewComment
	return nil
}

func (m *memReports) Delete(ctx context.Context, id string) error {
	if _, ok := m.rows[id]; !ok {
		return errors.NotFound("report")
	}
	delete(m.rows, id)
	return nil
}

type memExpenses struct {
	rows map[string]*domain.Expense
}

func (m *memExpenses) Create(ctx context.Context, e *domain.Expense) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.CreatedAt = time.Now()
	c := *e
	m.rows[e.ID] = &c
	return nil
}

func (m *memExpenses) GetByID(ctx context.Context, id string) (*domain.Expense, error) {
	e, ok := m.rows[id]
	if !ok {
		return nil, errors.NotFound("expense")
	}
	c := *e
	return &c, nil
}

func (m *memExpenses) ListByReport(ctx context.Context, reportID string) ([]*domain.Expense, error) {
	out := make([]*domain.Expense, 0)
	for _, e := range m.rows {
		if e.ReportID == reportID {
			c := *e
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpenseDate.Before(out[j].ExpenseDate) })
	return out, nil
}

func (m *memExpenses) Update(ctx context.Context, e *domain.Expense) error {
	if _, ok := m.rows[e.ID]; !ok {
		return errors.NotFound("expense")
	}
	c := *e
	c.ApprovalStatus = m.rows[e.ID].ApprovalStatus
	m.rows[e.ID] = &c
	return nil
}

func (m *memExpenses) SetApprovalStatus(ctx context.Context, id, status string) error {
	e, ok := m.rows[id]
	if !ok {
		return errors.NotFound("expense")
	}
	e.ApprovalStatus = status
	return nil
}

func (m *memExpenses) ApprovePending(ctx context.Context, reportID string) error {
	for _, e := range m.rows {
		if e.ReportID == reportID && e.ApprovalStatus == domain.ExpensePending {
			e.ApprovalStatus = domain.ExpenseApproved
		}
	}
	return nil
}

func (m *memExpenses) Delete(ctx context.Context, id string) error {
	if _, ok := m.rows[id]; !ok {
		return errors.NotFound("expense")
	}
	delete(m.rows, id)
	return nil
}

type memRates struct {
	rows []*domain.ExchangeRate
}

func (m *memRates) Create(ctx context.Context, rate *domain.ExchangeRate) error {
	if rate.ID == "" {
		rate.ID = uuid.New().String()
	}
	c := *rate
	m.rows = append(m.rows, &c)
	return nil
}

func (m *memRates) GetByID(ctx context.Context, id string) (*domain.ExchangeRate, error) {
	for _, r := range m.rows {
		if r.ID == id {
			c := *r
			return &c, nil
		}
	}
	return nil, errors.NotFound("exchange rate")
}

func (m *memRates) List(ctx context.Context, organizationID string) ([]*domain.ExchangeRate, error) {
	out := make([]*domain.ExchangeRate, 0)
	for _, r := range m.rows {
		if r.OrganizationID == organizationID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRates) Find(ctx context.Context, organizationID, from, to string, date time.Time) (*domain.ExchangeRate, error) {
	var best *domain.ExchangeRate
	for _, r := range m.rows {
		if r.OrganizationID != organizationID || r.FromCurrency != from || r.ToCurrency != to || r.EffectiveDate.After(date) {
			continue
		}
		if best == nil || r.EffectiveDate.After(best.EffectiveDate) {
			best = r
		}
	}
	if best == nil {
		return nil, errors.NotFound("exchange rate")
	}
	c := *best
	return &c, nil
}

func (m *memRates) Delete(ctx context.Context, id string) error {
	for i, r := range m.rows {
		if r.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return errors.NotFound("exchange rate")
}

type memReceipts struct {
	rows map[string]*domain.Receipt
}

func (m *memReceipts) Create(ctx context.Context, rec *domain.Receipt) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	c := *rec
	m.rows[rec.ID] = &c
	return nil
}

func (m *memReceipts) GetByID(ctx context.Context, id string) (*domain.Receipt, error) {
	rec, ok := m.rows[id]
	if !ok {
		return nil, errors.NotFound("receipt")
	}
	c := *rec
	return &c, nil
}

func (m *memReceipts) ListByExpenses(ctx context.Context, expenseIDs []string) ([]*domain.Receipt, error) {
	ids := make(map[string]bool, len(expenseIDs))
	for _, id := range expenseIDs {
		ids[id] = true
	}
	out := make([]*domain.Receipt, 0)
	for _, rec := range m.rows {
		if ids[rec.ExpenseID] {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memReceipts) Delete(ctx context.Context, id string) error {
	if _, ok := m.rows[id]; !ok {
		return errors.NotFound("receipt")
	}
	delete(m.rows, id)
	return nil
}

type memProfiles struct {
	rows map[string]*identitydomain.Profile
}

func (m *memProfiles) add(p *identitydomain.Profile) *identitydomain.Profile {
	p.IsActive = true
	m.rows[p.ID] = p
	return p
}

func (m *memProfiles) GetByID(ctx context.Context, id string) (*identitydomain.Profile, error) {
	p, ok := m.rows[id]
	if !ok {
		return nil, errors.NotFound("profile")
	}
	c := *p
	return &c, nil
}

func (m *memProfiles) ListActiveByRole(ctx context.Context, organizationID, role string) ([]*identitydomain.Profile, error) {
	out := make([]*identitydomain.Profile, 0)
	for _, p := range m.rows {
		if p.OrganizationID == organizationID && p.IsActive && p.HasRole(role) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memOrgs struct {
	rows map[string]*identitydomain.Organization
}

func (m *memOrgs) GetByID(ctx context.Context, id string) (*identitydomain.Organization, error) {
	o, ok := m.rows[id]
	if !ok {
		return nil, errors.NotFound("organization")
	}
	c := *o
	return &c, nil
}
