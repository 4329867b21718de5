package tenant

import (
	"context"
	"errors"
)

// contextKey is a private type for context keys to prevent collisions
type contextKey string

const (
	organizationIDKey   contextKey = "organization_id"
	organizationNameKey contextKey = "organization_name"
)

var (
	// ErrNoOrganizationInContext is returned when the organization scope is missing
	ErrNoOrganizationInContext = errors.New("no organization in context")
)

// WithOrganization scopes the context to one organization.
// Set by the auth middleware from the token claims, or by public flows
// (invitation redemption) once the organization is known.
func WithOrganization(ctx context.Context, id, name string) context.Context {
	ctx = context.WithValue(ctx, organizationIDKey, id)
	if name != "" {
		ctx = context.WithValue(ctx, organizationNameKey, name)
	}
	return ctx
}

// WithOrganizationID adds only the organization id
func WithOrganizationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, organizationIDKey, id)
}

// OrganizationID extracts the organization id from context
func OrganizationID(ctx context.Context) (string, error) {
	id, ok := ctx.Value(organizationIDKey).(string)
	if !ok || id == "" {
		return "", ErrNoOrganizationInContext
	}
	return id, nil
}

// OrganizationName extracts the organization display name, if known
func OrganizationName(ctx context.Context) string {
	name, _ := ctx.Value(organizationNameKey).(string)
	return name
}

// MustOrganizationID panics when the organization is missing.
// Use only where a missing organization is a programming error.
func MustOrganizationID(ctx context.Context) string {
	id, err := OrganizationID(ctx)
	if err != nil {
		panic("organization ID not found in context")
	}
	return id
}
