package service

import (
	"context"
	"strconv"
	"strings"

	auditdomain "github.com/travelflow/travelflow-backend/internal/audit/domain"
	"github.com/travelflow/travelflow-backend/internal/policy/domain"
	"github.com/travelflow/travelflow-backend/pkg/actor"
	"github.com/travelflow/travelflow-backend/pkg/errors"
)

// RestrictionRequest creates or replaces a restriction
type RestrictionRequest struct {
	GradeID         *string `json:"grade_id,omitempty" validate:"omitempty,uuid"`
	RestrictionType string  `json:"restriction_type" validate:"required,oneof=blocked_destination max_trip_days min_advance_days"`
	Value           string  `json:"value" validate:"required,max=255"`
	Description     *string `json:"description,omitempty"`
	IsActive        *bool   `json:"is_active,omitempty"`
}

func (req *RestrictionRequest) apply(r *domain.Restriction) error {
	value := strings.TrimSpace(req.Value)
	if req.RestrictionType == domain.RestrictionMaxTripDays || req.RestrictionType == domain.RestrictionMinAdvanceDays {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return errors.ValidationField("value", "must be a non-negative number of days")
		}
	}
	r.GradeID = req.GradeID
	r.RestrictionType = req.RestrictionType
	r.Value = value
	r.Description = req.Description
	if req.IsActive != nil {
		r.IsActive = *req.IsActive
	}
	return nil
}

// ListRestrictions lists the restrictions of the caller's organization
func (s *PolicyService) ListRestrictions(ctx context.Context) ([]*domain.Restriction, error) {
	a, err := reader(ctx)
	if err != nil {
		return nil, err
	}
	return s.restrictions.List(ctx, a.OrganizationID, false)
}

// CreateRestriction creates a restriction
func (s *PolicyService) CreateRestriction(ctx context.Context, req *RestrictionRequest) (*domain.Restriction, error) {
	var res *domain.Restriction
	err := s.write(ctx, func(ctx context.Context, a *actor.Actor) error {
		r := &domain.Restriction{OrganizationID: a.OrganizationID, IsActive: true}
		if err := req.apply(r); err != nil {
			return err
		}
		if err := s.checkGrade(ctx, a.OrganizationID, r.GradeID); err != nil {
			return err
		}
		if err := s.restrictions.Create(ctx, r); err != nil {
			return err
		}
		res = r
		return s.audit.Record(ctx, auditdomain.EntityRestriction, r.ID, auditdomain.ActionCreate, nil, r)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("restriction_id", res.ID).Str("type", res.RestrictionType).Msg("restriction created")
	return res, nil
}

// UpdateRestriction replaces a restriction
func (s *PolicyService) UpdateRestriction(ctx context.Context, id string, req *RestrictionRequest) (*domain.Restriction, error) {
	var res *domain.Restriction
	err := s.write(ctx, func(ctx context.Context, a *actor.Actor) error {
		current, err := s.restrictions.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := sameOrganization(a, current.OrganizationID, "restriction"); err != nil {
			return err
		}

		next := *current
		if err := req.apply(&next); err != nil {
			return err
		}
		if err := s.checkGrade(ctx, a.OrganizationID, next.GradeID); err != nil {
			return err
		}
		if err := s.restrictions.Update(ctx, &next); err != nil {
			return err
		}
		res = &next
		return s.audit.Record(ctx, auditdomain.EntityRestriction, id, auditdomain.ActionUpdate, current, &next)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("restriction_id", id).Msg("restriction updated")
	return res, nil
}

// DeleteRestriction deletes a restriction
func (s *PolicyService) DeleteRestriction(ctx context.Context, id string) error {
	err := s.write(ctx, func(ctx context.Context, a *actor.Actor) error {
		current, err := s.restrictions.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := sameOrganization(a, current.OrganizationID, "restriction"); err != nil {
			return err
		}
		if err := s.restrictions.Delete(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, auditdomain.EntityRestriction, id, auditdomain.ActionDelete, current, nil)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("restriction_id", id).Msg("restriction deleted")
	return nil
}
