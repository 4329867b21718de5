// Package actor identifies who performs an action: the authenticated session
// injected by the auth middleware, or the system for background work.
package actor

import (
	"context"
	"fmt"

	"github.com/travelflow/travelflow-backend/pkg/permissions"
)

const systemID = "00000000-0000-0000-0000-000000000000"

// Actor is the session of the caller. Authorization decisions are made
// from its roles and permissions only.
type Actor struct {
	ID             string   `json:"id"`
	FullName       string   `json:"full_name"`
	Email          string   `json:"email"`
	OrganizationID string   `json:"organization_id"`
	Roles          []string `json:"roles"`
	Permissions    []string `json:"permissions"`
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil {
		return "system"
	}
	return fmt.Sprintf("%s (%s)", a.FullName, a.Email)
}

// Can reports whether the actor holds the permission.
func (a *Actor) Can(permission string) bool {
	if a == nil {
		return false
	}
	return permissions.HasPermission(a.Permissions, permission)
}

// HasRole reports whether the actor holds the role.
func (a *Actor) HasRole(role string) bool {
	if a == nil {
		return false
	}
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports platform-wide access.
func (a *Actor) IsAdmin() bool {
	return a.Can("*")
}

func (a *Actor) CanApproveTravel() bool      { return a.Can(permissions.TravelApprove) }
func (a *Actor) CanApproveReports() bool     { return a.Can(permissions.ReportsApprove) }
func (a *Actor) CanManagePolicy() bool       { return a.Can(permissions.PolicyWrite) }
func (a *Actor) CanManageOrganization() bool { return a.Can(permissions.OrgSettings) }
func (a *Actor) CanViewAudit() bool          { return a.Can(permissions.AuditRead) }

// contextKey is the type for context keys to avoid collisions
type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present (e.g., system operations).
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return a
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}

// SystemActor returns an Actor representing the system itself.
func SystemActor() *Actor {
	return &Actor{
		ID:       systemID,
		FullName: "System",
		Email:    "system@travelflow.local",
	}
}

// IsSystem returns true if the actor represents the system.
func (a *Actor) IsSystem() bool {
	if a == nil {
		return true
	}
	return a.ID == systemID
}
