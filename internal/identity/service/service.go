// Package service implements organizations, members, authentication and
// invitation codes.
package service

import (
	"context"

	"github.com/travelflow/travelflow-backend/internal/identity/domain"
)

// OrganizationStore persists organizations
type OrganizationStore interface {
	Create(ctx context.Context, org *domain.Organization) error
	GetByID(ctx context.Context, id string) (*domain.Organization, error)
	UpdateSettings(ctx context.Context, org *domain.Organization) error
}

// ProfileStore persists profiles and their roles
type ProfileStore interface {
	Create(ctx context.Context, p *domain.Profile) error
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
	List(ctx context.Context, organizationID string, limit, offset int) ([]*domain.Profile, int64, error)
	ListActiveByRole(ctx context.Context, organizationID, role string) ([]*domain.Profile, error)
	UpdateAssignment(ctx context.Context, id string, managerID, gradeID *string) error
	SetActive(ctx context.Context, id string, active bool) error
	TouchLastLogin(ctx context.Context, id string) error
	Roles(ctx context.Context, userID string) ([]string, error)
	GrantRole(ctx context.Context, userID, organizationID, role string) error
	RevokeRole(ctx context.Context, userID, role string) error
}

// InvitationStore persists invitation codes
type InvitationStore interface {
	Create(ctx context.Context, inv *domain.InvitationCode) error
	GetByID(ctx context.Context, id string) (*domain.InvitationCode, error)
	GetByCode(ctx context.Context, code string) (*domain.InvitationCode, error)
	LockByCode(ctx context.Context, code string) (*domain.InvitationCode, error)
	List(ctx context.Context, organizationID string, limit, offset int) ([]*domain.InvitationCode, int64, error)
	Delete(ctx context.Context, id string) error
	RecordUse(ctx context.Context, id string) (*domain.InvitationCode, error)
}

// Transactor runs a function inside an organization scoped transaction
type Transactor interface {
	WithTenant(ctx context.Context, fn func(context.Context) error) error
	WithTenantRLS(ctx context.Context, organizationID string, fn func(context.Context) error) error
}

// AuditRecorder appends policy audit entries
type AuditRecorder interface {
	Record(ctx context.Context, entityType, entityID, action string, oldValue, newValue interface{}) error
}
