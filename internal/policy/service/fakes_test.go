package service_test

import (
	"context"
	"fmt"

	"github.com/travelflow/travelflow-backend/internal/policy/domain"
	"github.com/travelflow/travelflow-backend/pkg/errors"
)

// table is a tiny in-memory keyed store shared by the fakes below
type table[T any] struct {
	rows  map[string]*T
	order []string
	seq   int
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: map[string]*T{}}
}

func (t *table[T]) insert(id *string, v *T) {
	if *id == "" {
		t.seq++
		*id = fmt.Sprintf("00000000-0000-0000-0000-%012d", t.seq)
	}
	c := *v
	t.rows[*id] = &c
	t.order = append(t.order, *id)
}

func (t *table[T]) get(id, resource string) (*T, error) {
	v, ok := t.rows[id]
	if !ok {
		return nil, errors.NotFound(resource)
	}
	c := *v
	return &c, nil
}

func (t *table[T]) put(id, resource string, v *T) error {
	if _, ok := t.rows[id]; !ok {
		return errors.NotFound(resource)
	}
	c := *v
	t.rows[id] = &c
	return nil
}

func (t *table[T]) remove(id, resource string) error {
	if _, ok := t.rows[id]; !ok {
		return errors.NotFound(resource)
	}
	delete(t.rows, id)
	return nil
}

func (t *table[T]) all(keep func(*T) bool) []*T {
	out := make([]*T, 0)
	for _, id := range t.order {
		if v, ok := t.rows[id]; ok && keep(v) {
			c := *v
			out = append(out, &c)
		}
	}
	return out
}

type memGrades struct{ t *table[domain.EmployeeGrade] }

func (m *memGrades) Create(ctx context.Context, g *domain.EmployeeGrade) error {
	m.t.insert(&g.ID, g)
	return nil
}
func (m *memGrades) GetByID(ctx context.Context, id string) (*domain.EmployeeGrade, error) {
	return m.t.get(id, "employee grade")
}
func (m *memGrades) List(ctx context.Context, orgID string) ([]*domain.EmployeeGrade, error) {
	return m.t.all(func(g *domain.EmployeeGrade) bool { return g.OrganizationID == orgID }), nil
}
func (m *memGrades) Update(ctx context.Context, g *domain.EmployeeGrade) error {
	return m.t.put(g.ID, "employee grade", g)
}
func (m *memGrades) Delete(ctx context.Context, id string) error {
	return m.t.remove(id, "employee grade")
}

type memRules struct{ t *table[domain.PolicyRule] }

func (m *memRules) Create(ctx context.Context, r *domain.PolicyRule) error {
	m.t.insert(&r.ID, r)
	return nil
}
func (m *memRules) GetByID(ctx context.Context, id string) (*domain.PolicyRule, error) {
	return m.t.get(id, "policy rule")
}
func (m *memRules) List(ctx context.Context, orgID string) ([]*domain.PolicyRule, error) {
	return m.t.all(func(r *domain.PolicyRule) bool { return r.OrganizationID == orgID }), nil
}
func (m *memRules) ListActive(ctx context.Context, orgID, dest string) ([]*domain.PolicyRule, error) {
	return m.t.all(func(r *domain.PolicyRule) bool {
		return r.OrganizationID == orgID && r.DestinationType == dest && r.IsActive
	}), nil
}
func (m *memRules) Update(ctx context.Context, r *domain.PolicyRule) error {
	return m.t.put(r.ID, "policy rule", r)
}
func (m *memRules) Delete(ctx context.Context, id string) error {
	return m.t.remove(id, "policy rule")
}

type memRestrictions struct{ t *table[domain.Restriction] }

func (m *memRestrictions) Create(ctx context.Context, r *domain.Restriction) error {
	m.t.insert(&r.ID, r)
	return nil
}
func (m *memRestrictions) GetByID(ctx context.Context, id string) (*domain.Restriction, error) {
	return m.t.get(id, "restriction")
}
func (m *memRestrictions) List(ctx context.Context, orgID string, activeOnly bool) ([]*domain.Restriction, error) {
	return m.t.all(func(r *domain.Restriction) bool {
		return r.OrganizationID == orgID && (r.IsActive || !activeOnly)
	}), nil
}
func (m *memRestrictions) Update(ctx context.Context, r *domain.Restriction) error {
	return m.t.put(r.ID, "restriction", r)
}
func (m *memRestrictions) Delete(ctx context.Context, id string) error {
	return m.t.remove(id, "restriction")
}

type memCustom struct{ t *table[domain.CustomRule] }

func (m *memCustom) Create(ctx context.Context, c *domain.CustomRule) error {
	m.t.insert(&c.ID, c)
	return nil
}
func (m *memCustom) GetByID(ctx context.Context, id string) (*domain.CustomRule, error) {
	return m.t.get(id, "custom rule")
}
func (m *memCustom) List(ctx context.Context, orgID string, activeOnly bool) ([]*domain.CustomRule, error) {
	return m.t.all(func(c *domain.CustomRule) bool {
		return c.OrganizationID == orgID && (c.IsActive || !activeOnly)
	}), nil
}
func (m *memCustom) Update(ctx context.Context, c *domain.CustomRule) error {
	return m.t.put(c.ID, "custom rule", c)
}
func (m *memCustom) Delete(ctx context.Context, id string) error {
	return m.t.remove(id, "custom rule")
}

type recordedChange struct {
	entityType string
	entityID   string
	action     string
	oldValue   interface{}
	newValue   interface{}
}

type recordingAudit struct {
	changes []recordedChange
	err     error
}

func (r *recordingAudit) Record(ctx context.Context, entityType, entityID, action string, oldValue, newValue interface{}) error {
	if r.err != nil {
		return r.err
	}
	r.changes = append(r.changes, recordedChange{entityType, entityID, action, oldValue, newValue})
	return nil
}
