package service

import (
	"context"

	"github.com/travelflow/travelflow-backend/internal/identity/domain"
	"github.com/travelflow/travelflow-backend/pkg/actor"
	"github.com/travelflow/travelflow-backend/pkg/errors"
	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
)

// UserService manages the members of an organization
type UserService struct {
	profiles ProfileStore
	tx       Transactor
	logger   *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(profiles ProfileStore, tx Transactor, log *logger.Logger) *UserService {
	return &UserService{profiles: profiles, tx: tx, logger: log}
}

// List lists the members of the caller's organization
func (s *UserService) List(ctx context.Context, limit, offset int) ([]*domain.Profile, int64, error) {
	a := actor.FromContext(ctx)
	if a == nil {
		return nil, 0, errors.Unauthorized("authentication required")
	}
	return s.profiles.List(ctx, a.OrganizationID, limit, offset)
}

// Get returns a member of the caller's organization
func (s *UserService) Get(ctx context.Context, id string) (*domain.Profile, error) {
	a := actor.FromContext(ctx)
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}

	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OrganizationID != a.OrganizationID && !a.IsAdmin() {
		return nil, errors.NotFound("profile")
	}
	return p, nil
}

// UpdateAssignmentRequest sets manager and grade. Null clears a field.
type UpdateAssignmentRequest struct {
	ManagerID *string `json:"manager_id" validate:"omitempty,uuid"`
	GradeID   *string `json:"grade_id" validate:"omitempty,uuid"`
}

// UpdateAssignment changes the manager and grade of a member
func (s *UserService) UpdateAssignment(ctx context.Context, id string, req *UpdateAssignmentRequest) (*domain.Profile, error) {
	a := actor.FromContext(ctx)
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}

	if req.ManagerID != nil && *req.ManagerID == id {
		return nil, errors.ValidationField("manager_id", "a profile cannot be its own manager")
	}

	var updated *domain.Profile
	err := s.tx.WithTenant(ctx, func(ctx context.Context) error {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}

		if req.ManagerID != nil {
			manager, err := s.profiles.GetByID(ctx, *req.ManagerID)
			if err != nil {
				if errors.Is(err, errors.ErrNotFound) {
					return errors.ValidationField("manager_id", "unknown profile")
				}
				return err
			}
			if manager.OrganizationID != a.OrganizationID || !manager.IsActive {
				return errors.ValidationField("manager_id", "must be an active member of the organization")
			}
		}

		if err := s.profiles.UpdateAssignment(ctx, id, req.ManagerID, req.GradeID); err != nil {
			return err
		}

		p, err := s.profiles.GetByID(ctx, id)
		if err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", id).Str("actor_id", a.ID).Msg("profile assignment updated")
	return updated, nil
}

// SetActive activates or deactivates a member. Nobody can deactivate themselves.
func (s *UserService) SetActive(ctx context.Context, id string, active bool) error {
	a := actor.FromContext(ctx)
	if a == nil {
		return errors.Unauthorized("authentication required")
	}
	if id == a.ID && !active {
		return errors.BadRequest("you cannot deactivate your own profile")
	}

	return s.tx.WithTenant(ctx, func(ctx context.Context) error {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return s.profiles.SetActive(ctx, id, active)
	})
}

// GrantRole grants a role to a member. Only platform administrators can grant admin.
func (s *UserService) GrantRole(ctx context.Context, id, role string) (*domain.Profile, error) {
	a := actor.FromContext(ctx)
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	if !permissions.IsValidRole(role) {
		return nil, errors.ValidationField("role", "unknown role")
	}
	if role == permissions.RoleAdmin && !a.IsAdmin() {
		return nil, errors.Forbidden("only administrators can grant the admin role")
	}

	var updated *domain.Profile
	err := s.tx.WithTenant(ctx, func(ctx context.Context) error {
		p, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := s.profiles.GrantRole(ctx, id, p.OrganizationID, role); err != nil {
			return err
		}
		updated, err = s.profiles.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", id).Str("role", role).Str("actor_id", a.ID).Msg("role granted")
	return updated, nil
}

// RevokeRole revokes a role. The last active org_admin keeps the role.
func (s *UserService) RevokeRole(ctx context.Context, id, role string) (*domain.Profile, error) {
	a := actor.FromContext(ctx)
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	if role == permissions.RoleAdmin && !a.IsAdmin() {
		return nil, errors.Forbidden("only administrators can revoke the admin role")
	}

	var updated *domain.Profile
	err := s.tx.WithTenant(ctx, func(ctx context.Context) error {
		p, err := s.Get(ctx, id)
		if err != nil {
			return err
		}

		if role == permissions.RoleOrgAdmin {
			admins, err := s.profiles.ListActiveByRole(ctx, p.OrganizationID, permissions.RoleOrgAdmin)
			if err != nil {
				return err
			}
			if len(admins) == 1 && admins[0].ID == id {
				return errors.BadRequest("the organization needs at least one org_admin")
			}
		}

		if err := s.profiles.RevokeRole(ctx, id, role); err != nil {
			return err
		}
		updated, err = s.profiles.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", id).Str("role", role).Str("actor_id", a.ID).Msg("role revoked")
	return updated, nil
}
