package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	auditdomain "github.com/travelflow/travelflow-backend/internal/audit/domain"
	"github.com/travelflow/travelflow-backend/internal/policy/domain"
	"github.com/travelflow/travelflow-backend/pkg/actor"
	"github.com/travelflow/travelflow-backend/pkg/errors"
)

// CustomRuleRequest creates or replaces a custom rule
type CustomRuleRequest struct {
	Name                string          `json:"name" validate:"required,max=255"`
	Description         *string         `json:"description,omitempty"`
	GradeID             *string         `json:"grade_id,omitempty" validate:"omitempty,uuid"`
	Category            string          `json:"category" validate:"required,oneof=flights accommodation food transportation miscellaneous total"`
	MaxAmount           decimal.Decimal `json:"max_amount"`
	DestinationContains *string         `json:"destination_contains,omitempty" validate:"omitempty,max=255"`
	IsActive            *bool           `json:"is_active,omitempty"`
}

func (req *CustomRuleRequest) apply(c *domain.CustomRule) error {
	if req.MaxAmount.IsNegative() {
		return errors.ValidationField("max_amount", "must not be negative")
	}
	c.Name = strings.TrimSpace(req.Name)
	c.Description = req.Description
	c.GradeID = req.GradeID
	c.Category = req.Category
	c.MaxAmount = req.MaxAmount
	c.DestinationContains = nil
	if req.DestinationContains != nil && strings.TrimSpace(*req.DestinationContains) != "" {
		v := strings.TrimSpace(*req.DestinationContains)
		c.DestinationContains = &v
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	return nil
}

// ListCustomRules lists the custom rules of the caller's organization
func (s *PolicyService) ListCustomRules(ctx context.Context) ([]*domain.CustomRule, error) {
	a, err := reader(ctx)
	if err != nil {
		return nil, err
	}
	return s.custom.List(ctx, a.OrganizationID, false)
}

// CreateCustomRule creates a custom rule
func (s *PolicyService) CreateCustomRule(ctx context.Context, req *CustomRuleRequest) (*domain.CustomRule, error) {
	var rule *domain.CustomRule
	err := s.write(ctx, func(ctx context.Context, a *actor.Actor) error {
		c := &domain.CustomRule{OrganizationID: a.OrganizationID, IsActive: true}
		if err := req.apply(c); err != nil {
			return err
		}
		if err := s.checkGrade(ctx, a.OrganizationID, c.GradeID); err != nil {
			return err
		}
		if err := s.custom.Create(ctx, c); err != nil {
			return err
		}
		rule = c
		return s.audit.Record(ctx, auditdomain.EntityCustomRule, c.ID, auditdomain.ActionCreate, nil, c)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("custom_rule_id", rule.ID).Str("name", rule.Name).Msg("custom rule created")
	return rule, nil
}

// UpdateCustomRule replaces a custom rule
func (s *PolicyService) UpdateCustomRule(ctx context.Context, id string, req *CustomRuleRequest) (*domain.CustomRule, error) {
	var rule *domain.CustomRule
	err := s.write(ctx, func(ctx context.Context, a *actor.Actor) error {
		current, err := s.custom.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := sameOrganization(a, current.OrganizationID, "custom rule"); err != nil {
			return err
		}

		next := *current
		if err := req.apply(&next); err != nil {
			return err
		}
		if err := s.checkGrade(ctx, a.OrganizationID, next.GradeID); err != nil {
			return err
		}
		if err := s.custom.Update(ctx, &next); err != nil {
			return err
		}
		rule = &next
		return s.audit.Record(ctx, auditdomain.EntityCustomRule, id, auditdomain.ActionUpdate, current, &next)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("custom_rule_id", id).Msg("custom rule updated")
	return rule, nil
}

// DeleteCustomRule deletes a custom rule
func (s *PolicyService) DeleteCustomRule(ctx context.Context, id string) error {
	err := s.write(ctx, func(ctx context.Context, a *actor.Actor) error {
		current, err := s.custom.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := sameOrganization(a, current.OrganizationID, "custom rule"); err != nil {
			return err
		}
		if err := s.custom.Delete(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, auditdomain.EntityCustomRule, id, auditdomain.ActionDelete, current, nil)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("custom_rule_id", id).Msg("custom rule deleted")
	return nil
}
