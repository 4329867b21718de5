package domain

import (
	"time"
)

// InvitationAlphabet holds the characters invitation codes are drawn from.
// 0, O, 1 and I are left out because they are easily confused.
const InvitationAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// InvitationCodeLength is the number of characters in an invitation code
const InvitationCodeLength = 8

// InvitationCode lets a future registrant join an organization with a role
type InvitationCode struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	Code           string    `json:"code" db:"code"`
	Role           string    `json:"role" db:"role"`
	ManagerID      *string   `json:"manager_id,omitempty" db:"manager_id"`
	GradeID        *string   `json:"grade_id,omitempty" db:"grade_id"`
	ExpiresAt      time.Time `json:"expires_at" db:"expires_at"`
	MaxUses        int       `json:"max_uses" db:"max_uses"`
	UseCount       int       `json:"use_count" db:"use_count"`
	IsUsed         bool      `json:"is_used" db:"is_used"`
	CreatedBy      *string   `json:"created_by,omitempty" db:"created_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// IsExpired checks if the code has expired at now
func (c *InvitationCode) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// IsExhausted checks if the code has no uses left
func (c *InvitationCode) IsExhausted() bool {
	return c.IsUsed || c.UseCount >= c.MaxUses
}

// IsValid reports whether the code can still be redeemed at now
func (c *InvitationCode) IsValid(now time.Time) bool {
	return !c.IsExpired(now) && !c.IsExhausted()
}

// InvitationPublicInfo is the minimal info shown before redemption
type InvitationPublicInfo struct {
	Code             string    `json:"code"`
	OrganizationName string    `json:"organization_name"`
	Role             string    `json:"role"`
	ExpiresAt        time.Time `json:"expires_at"`
	IsValid          bool      `json:"is_valid"`
}
