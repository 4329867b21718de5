package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/travelflow/travelflow-backend/internal/identity/domain"
	"github.com/travelflow/travelflow-backend/pkg/errors"
)

type memOrgs struct {
	mu   sync.Mutex
	orgs map[string]*domain.Organization
}

func newMemOrgs(orgs ...*domain.Organization) *memOrgs {
	m := &memOrgs{orgs: map[string]*domain.Organization{}}
	for _, o := range orgs {
		m.orgs[o.ID] = o
	}
	return m
}

func (m *memOrgs) Create(ctx context.Context, org *domain.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *org
	m.orgs[org.ID] = &c
	return nil
}

func (m *memOrgs) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orgs[id]
	if !ok {
		return nil, errors.NotFound("organization")
	}
	c := *o
	return &c, nil
}

func (m *memOrgs) UpdateSettings(ctx context.Context, org *domain.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *org
	m.orgs[org.ID] = &c
	return nil
}

type memProfiles struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
	roles    map[string]map[string]bool
}

func newMemProfiles() *memProfiles {
	return &memProfiles{profiles: map[string]*domain.Profile{}, roles: map[string]map[string]bool{}}
}

func (m *memProfiles) add(p *domain.Profile, roles ...string) *domain.Profile {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	m.profiles[p.ID] = p
	m.roles[p.ID] = map[string]bool{}
	for _, r := range roles {
		m.roles[p.ID][r] = true
	}
	return p
}

func (m *memProfiles) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.profiles)
}

func (m *memProfiles) withRoles(p *domain.Profile) *domain.Profile {
	c := *p
	c.Roles = make([]string, 0)
	for r := range m.roles[p.ID] {
		c.Roles = append(c.Roles, r)
	}
	sort.Strings(c.Roles)
	return &c
}

func (m *memProfiles) Create(ctx context.Context, p *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.profiles {
		if existing.Email == p.Email {
			return errors.Conflict("a user with this email already exists")
		}
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = time.Now()
	c := *p
	m.profiles[p.ID] = &c
	m.roles[p.ID] = map[string]bool{}
	return nil
}

func (m *memProfiles) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, errors.NotFound("profile")
	}
	return m.withRoles(p), nil
}

func (m *memProfiles) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Email == email {
			return m.withRoles(p), nil
		}
	}
	return nil, errors.NotFound("profile")
}

func (m *memProfiles) List(ctx context.Context, organizationID string, limit, offset int) ([]*domain.Profile, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Profile, 0)
	for _, p := range m.profiles {
		if p.OrganizationID == organizationID {
			out = append(out, m.withRoles(p))
		}
	}
	return out, int64(len(out)), nil
}

func (m *memProfiles) ListActiveByRole(ctx context.Context, organizationID, role string) ([]*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Profile, 0)
	for _, p := range m.profiles {
		if p.OrganizationID == organizationID && p.IsActive && m.roles[p.ID][role] {
			out = append(out, m.withRoles(p))
		}
	}
	return out, nil
}

func (m *memProfiles) UpdateAssignment(ctx context.Context, id string, managerID, gradeID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return errors.NotFound("profile")
	}
	p.ManagerID, p.GradeID = managerID, gradeID
	return nil
}

func (m *memProfiles) SetActive(ctx context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return errors.NotFound("profile")
	}
	p.IsActive = active
	return nil
}

func (m *memProfiles) TouchLastLogin(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if p, ok := m.profiles[id]; ok {
		p.LastLoginAt = &now
	}
	return nil
}

func (m *memProfiles) Roles(ctx context.Context, userID string) ([]string, error) {
	p, err := m.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return p.Roles, nil
}

func (m *memProfiles) GrantRole(ctx context.Context, userID, organizationID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[userID]; !ok {
		return errors.BadRequest("referenced record does not exist")
	}
	m.roles[userID][role] = true
	return nil
}

func (m *memProfiles) RevokeRole(ctx context.Context, userID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.roles[userID][role] {
		return errors.NotFound("role")
	}
	delete(m.roles[userID], role)
	return nil
}

type memInvitations struct {
	mu        sync.Mutex
	codes     map[string]*domain.InvitationCode
	conflicts int
	creates   int
}

func newMemInvitations() *memInvitations {
	return &memInvitations{codes: map[string]*domain.InvitationCode{}}
}

func (m *memInvitations) Create(ctx context.Context, inv *domain.InvitationCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.conflicts > 0 {
		m.conflicts--
		return errors.Conflict("invitation code already exists")
	}
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	inv.CreatedAt = time.Now()
	c := *inv
	m.codes[inv.Code] = &c
	return nil
}

func (m *memInvitations) find(pred func(*domain.InvitationCode) bool) (*domain.InvitationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.codes {
		if pred(inv) {
			c := *inv
			return &c, nil
		}
	}
	return nil, errors.NotFound("invitation code")
}

func (m *memInvitations) GetByID(ctx context.Context, id string) (*domain.InvitationCode, error) {
	return m.find(func(i *domain.InvitationCode) bool { return i.ID == id })
}

func (m *memInvitations) GetByCode(ctx context.Context, code string) (*domain.InvitationCode, error) {
	return m.find(func(i *domain.InvitationCode) bool { return i.Code == code })
}

func (m *memInvitations) LockByCode(ctx context.Context, code string) (*domain.InvitationCode, error) {
	return m.GetByCode(ctx, code)
}

func (m *memInvitations) List(ctx context.Context, organizationID string, limit, offset int) ([]*domain.InvitationCode, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.InvitationCode, 0)
	for _, inv := range m.codes {
		if inv.OrganizationID == organizationID {
			out = append(out, inv)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memInvitations) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for code, inv := range m.codes {
		if inv.ID == id {
			delete(m.codes, code)
			return nil
		}
	}
	return errors.NotFound("invitation code")
}

func (m *memInvitations) RecordUse(ctx context.Context, id string) (*domain.InvitationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.codes {
		if inv.ID == id && !inv.IsUsed && inv.UseCount < inv.MaxUses {
			inv.UseCount++
			inv.IsUsed = inv.UseCount >= inv.MaxUses
			c := *inv
			return &c, nil
		}
	}
	return nil, errors.NotFound("invitation code")
}

type recordedChange struct {
	EntityType string
	EntityID   string
	Action     string
	Old, New   interface{}
}

type recordingAudit struct {
	changes []recordedChange
}

func (r *recordingAudit) Record(ctx context.Context, entityType, entityID, action string, oldValue, newValue interface{}) error {
	r.changes = append(r.changes, recordedChange{entityType, entityID, action, oldValue, newValue})
	return nil
}
