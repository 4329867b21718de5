package domain

import (
	"time"

	"github.com/travelflow/travelflow-backend/pkg/permissions"
)

// Profile is a member of an organization
type Profile struct {
	ID             string     `json:"id" db:"id"`
	OrganizationID string     `json:"organization_id" db:"organization_id"`
	Email          string     `json:"email" db:"email"`
	PasswordHash   string     `json:"-" db:"password_hash"`
	FullName       string     `json:"full_name" db:"full_name"`
	ManagerID      *string    `json:"manager_id,omitempty" db:"manager_id"`
	GradeID        *string    `json:"grade_id,omitempty" db:"grade_id"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`

	Roles []string `json:"roles" db:"-"`
}

// HasRole reports whether the profile holds role
func (p *Profile) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsManager reports whether the profile holds the manager role
func (p *Profile) IsManager() bool {
	return p.HasRole(permissions.RoleManager)
}

// ProfileWithPermissions is returned by the "me" endpoint
type ProfileWithPermissions struct {
	*Profile
	Organization *Organization `json:"organization,omitempty"`
	Permissions  []string      `json:"permissions"`
}
