package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	identitydomain "github.com/travelflow/travelflow-backend/internal/identity/domain"
	policydomain "github.com/travelflow/travelflow-backend/internal/policy/domain"
	"github.com/travelflow/travelflow-backend/internal/travel/domain"
	"github.com/travelflow/travelflow-backend/internal/travel/repository"
	"github.com/travelflow/travelflow-backend/pkg/errors"
)

type ids struct {
	mu  sync.Mutex
	seq int
}

func (g *ids) next(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", prefix, g.seq)
}

var seq = &ids{}

type memRequests struct {
	rows      map[string]*domain.TravelRequest
	approvals *memApprovals
}

func (m *memRequests) Create(ctx context.Context, req *domain.TravelRequest) error {
	if req.ID == "" {
		req.ID = seq.next("tr")
	}
	c := *req
	m.rows[req.ID] = &c
	return nil
}

func (m *memRequests) GetByID(ctx context.Context, id string) (*domain.TravelRequest, error) {
	r, ok := m.rows[id]
	if !ok {
		return nil, errors.NotFound("travel request")
	}
	c := *r
	c.Violations, c.Approvals = nil, nil
	return &c, nil
}

func (m *memRequests) LockByID(ctx context.Context, id string) (*domain.TravelRequest, error) {
	return m.GetByID(ctx, id)
}

func (m *memRequests) List(ctx context.Context, f repository.RequestFilter, limit, offset int) ([]*domain.TravelRequest, int64, error) {
	out := make([]*domain.TravelRequest, 0)
	for _, r := range m.rows {
		if r.OrganizationID != f.OrganizationID {
			continue
		}
		if f.RequesterID != "" && r.RequesterID != f.RequesterID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (m *memRequests) ListPendingForApprover(ctx context.Context, approverID string, limit, offset int) ([]*domain.TravelRequest, int64, error) {
	out := make([]*domain.TravelRequest, 0)
	for _, a := range m.approvals.rows {
		if a.ApproverID == approverID && a.Status == domain.ApprovalPending {
			out = append(out, m.rows[a.TravelRequestID])
		}
	}
	return out, int64(len(out)), nil
}

func (m *memRequests) Update(ctx context.Context, req *domain.TravelRequest) error {
	stored, ok := m.rows[req.ID]
	if !ok || stored.Status != domain.StatusDraft {
		return errors.Conflict("travel request is no longer a draft")
	}
	c := *req
	m.rows[req.ID] = &c
	return nil
}

func (m *memRequests) Transition(ctx context.Context, req *domain.TravelRequest, from string) error {
	stored, ok := m.rows[req.ID]
	if !ok || stored.Status != from {
		return errors.Conflict("travel request was changed concurrently")
	}
	stored.Status = req.Status
	stored.CurrentApprovalLevel = req.CurrentApprovalLevel
	stored.SubmittedAt = req.SubmittedAt
	stored.FinalDecisionAt = req.FinalDecisionAt
	return nil
}

func (m *memRequests) SetApprovalLevel(ctx context.Context, id string, level int) error {
	stored, ok := m.rows[id]
	if !ok || stored.Status != domain.StatusPendingApproval {
		return errors.Conflict("travel request was changed concurrently")
	}
	stored.CurrentApprovalLevel = level
	return nil
}

func (m *memRequests) Delete(ctx context.Context, id string) error {
	stored, ok := m.rows[id]
	if !ok || stored.Status != domain.StatusDraft {
		return errors.Conflict("travel request is no longer a draft")
	}
	delete(m.rows, id)
	return nil
}

type memApprovals struct {
	rows   []*domain.Approval
	writes int
}

func (m *memApprovals) Create(ctx context.Context, a *domain.Approval) error {
	for _, r := range m.rows {
		if r.TravelRequestID != a.TravelRequestID {
			continue
		}
		if r.ApprovalLevel == a.ApprovalLevel {
			return errors.Conflict("approval level already recorded for this request")
		}
		if r.Status == domain.ApprovalPending && a.Status == domain.ApprovalPending {
			return errors.Conflict("a pending approval already exists")
		}
	}
	if a.ID == "" {
		a.ID = seq.next("ap")
	}
	m.writes++
	c := *a
	m.rows = append(m.rows, &c)
	return nil
}

func (m *memApprovals) ListByRequest(ctx context.Context, requestID string) ([]*domain.Approval, error) {
	out := make([]*domain.Approval, 0)
	for _, r := range m.rows {
		if r.TravelRequestID == requestID {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ApprovalLevel < out[j].ApprovalLevel })
	return out, nil
}

func (m *memApprovals) Decide(ctx context.Context, a *domain.Approval) error {
	for _, r := range m.rows {
		if r.ID == a.ID {
			if r.Status != domain.ApprovalPending {
				return errors.Conflict("approval has already been decided")
			}
			m.writes++
			*r = *a
			return nil
		}
	}
	return errors.NotFound("approval")
}

func (m *memApprovals) keep(drop func(*domain.Approval) bool) {
	kept := m.rows[:0]
	for _, r := range m.rows {
		if drop(r) {
			m.writes++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
}

func (m *memApprovals) DeletePending(ctx context.Context, requestID string) error {
	m.keep(func(a *domain.Approval) bool {
		return a.TravelRequestID == requestID && a.Status == domain.ApprovalPending
	})
	return nil
}

func (m *memApprovals) DeleteByRequest(ctx context.Context, requestID string) error {
	m.keep(func(a *domain.Approval) bool { return a.TravelRequestID == requestID })
	return nil
}

func (m *memApprovals) pending(requestID string) []*domain.Approval {
	out := make([]*domain.Approval, 0)
	for _, r := range m.rows {
		if r.TravelRequestID == requestID && r.Status == domain.ApprovalPending {
			out = append(out, r)
		}
	}
	return out
}

type memViolations struct {
	rows map[string][]*domain.Violation
}

func (m *memViolations) ListByRequest(ctx context.Context, requestID string) ([]*domain.Violation, error) {
	out := make([]*domain.Violation, 0)
	for _, v := range m.rows[requestID] {
		c := *v
		out = append(out, &c)
	}
	return out, nil
}

func (m *memViolations) Replace(ctx context.Context, requestID string, violations []*domain.Violation) error {
	stored := make([]*domain.Violation, 0, len(violations))
	for _, v := range violations {
		v.ID = seq.next("v")
		v.TravelRequestID = requestID
		c := *v
		stored = append(stored, &c)
	}
	m.rows[requestID] = stored
	return nil
}

func (m *memViolations) Explain(ctx context.Context, id, requestID, explanation string) error {
	for _, v := range m.rows[requestID] {
		if v.ID == id {
			text := explanation
			v.Explanation = &text
			return nil
		}
	}
	return errors.NotFound("violation")
}

type memChains struct {
	rows map[string]*domain.ApprovalChain
}

func (m *memChains) Create(ctx context.Context, c *domain.ApprovalChain) error {
	if c.ID == "" {
		c.ID = seq.next("chain")
	}
	cp := *c
	m.rows[c.ID] = &cp
	return nil
}

func (m *memChains) GetByID(ctx context.Context, id string) (*domain.ApprovalChain, error) {
	c, ok := m.rows[id]
	if !ok {
		return nil, errors.NotFound("approval chain")
	}
	cp := *c
	return &cp, nil
}

func (m *memChains) GetDefault(ctx context.Context, organizationID string) (*domain.ApprovalChain, error) {
	for _, c := range m.rows {
		if c.OrganizationID == organizationID && c.IsDefault {
			cp := *c
			return &cp, nil
		}
	}
	return nil, errors.NotFound("approval chain")
}

func (m *memChains) List(ctx context.Context, organizationID string) ([]*domain.ApprovalChain, error) {
	out := make([]*domain.ApprovalChain, 0)
	for _, c := range m.rows {
		if c.OrganizationID == organizationID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memChains) Update(ctx context.Context, c *domain.ApprovalChain) error {
	if _, ok := m.rows[c.ID]; !ok {
		return errors.NotFound("approval chain")
	}
	cp := *c
	m.rows[c.ID] = &cp
	return nil
}

func (m *memChains) ClearDefault(ctx context.Context, organizationID string) error {
	for _, c := range m.rows {
		if c.OrganizationID == organizationID {
			c.IsDefault = false
		}
	}
	return nil
}

func (m *memChains) Delete(ctx context.Context, id string) error {
	if _, ok := m.rows[id]; !ok {
		return errors.NotFound("approval chain")
	}
	delete(m.rows, id)
	return nil
}

type memApproved struct {
	rows map[string]*domain.ApprovedTravel
}

func (m *memApproved) Create(ctx context.Context, t *domain.ApprovedTravel) error {
	if t.ID == "" {
		t.ID = seq.next("at")
	}
	c := *t
	m.rows[t.ID] = &c
	return nil
}

func (m *memApproved) GetByID(ctx context.Context, id string) (*domain.ApprovedTravel, error) {
	t, ok := m.rows[id]
	if !ok {
		return nil, errors.NotFound("approved travel")
	}
	c := *t
	return &c, nil
}

func (m *memApproved) ListByEmployee(ctx context.Context, employeeID string) ([]*domain.ApprovedTravel, error) {
	out := make([]*domain.ApprovedTravel, 0)
	for _, t := range m.rows {
		if t.EmployeeID == employeeID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memApproved) MarkUsed(ctx context.Context, id, reportID string) error {
	t, ok := m.rows[id]
	if !ok || t.IsUsed {
		return errors.Conflict("approved travel was already converted to a report")
	}
	t.IsUsed = true
	t.ReportID = &reportID
	return nil
}

func (m *memApproved) only() *domain.ApprovedTravel {
	for _, t := range m.rows {
		return t
	}
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

type stubPolicy struct {
	set *policydomain.RuleSet
}

func (s *stubPolicy) RuleSet(ctx context.Context, organizationID string, gradeID *string, destinationType string) (*policydomain.RuleSet, error) {
	if s.set == nil {
		return &policydomain.RuleSet{Rules: map[string]*policydomain.PolicyRule{}}, nil
	}
	return s.set, nil
}

type stubRates struct {
	rates map[string]decimal.Decimal
}

func (s *stubRates) ConvertAmount(ctx context.Context, organizationID string, amount decimal.Decimal, from, to string, on time.Time) (decimal.Decimal, error) {
	rate, ok := s.rates[from+"/"+to]
	if !ok {
		return decimal.Zero, errors.NotFound("exchange rate")
	}
	return amount.Mul(rate).Round(2), nil
}

type stubReports struct {
	opened []string
	err    error
}

func (s *stubReports) OpenForTravel(ctx context.Context, t *domain.ApprovedTravel) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.opened = append(s.opened, t.ID)
	return "report-" + t.ID, nil
}

type recordedChange struct {
	EntityType string
	EntityID   string
	Action     string
}

type recordingAudit struct {
	changes []recordedChange
}

func (r *recordingAudit) Record(ctx context.Context, entityType, entityID, action string, oldValue, newValue interface{}) error {
	r.changes = append(r.changes, recordedChange{entityType, entityID, action})
	return nil
}
