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

// RuleRequest creates or replaces a policy rule
type RuleRequest struct {
	GradeID         *string         `json:"grade_id,omitempty" validate:"omitempty,uuid"`
	DestinationType string          `json:"destination_type" validate:"required,oneof=domestic international"`
	Category        string          `json:"category" validate:"required,oneof=flights accommodation food transportation miscellaneous"`
	LimitAmount     decimal.Decimal `json:"limit_amount"`
	LimitUnit       string          `json:"limit_unit" validate:"omitempty,oneof=per_trip per_night per_day"`
	Currency        string          `json:"currency" validate:"omitempty,len=3"`
	IsActive        *bool           `json:"is_active,omitempty"`
}

func (req *RuleRequest) apply(r *domain.PolicyRule) error {
	if req.LimitAmount.IsNegative() {
		return errors.ValidationField("limit_amount", "must not be negative")
	}
	r.GradeID = req.GradeID
	r.DestinationType = req.DestinationType
	r.Category = req.Category
	r.LimitAmount = req.LimitAmount
	r.LimitUnit = req.LimitUnit
	if r.LimitUnit == "" {
		r.LimitUnit = domain.UnitPerTrip
	}
	r.Currency = strings.ToUpper(req.Currency)
	if r.Currency == "" {
		r.Currency = "EUR"
	}
	if req.IsActive != nil {
		r.IsActive = *req.IsActive
	}
	return nil
}

// ListRules lists the rules of the caller's organization
func (s *PolicyService) ListRules(ctx context.Context) ([]*domain.PolicyRule, error) {
	a, err := reader(ctx)
	if err != nil {
		return nil, err
	}
	return s.rules.List(ctx, a.OrganizationID)
}

// CreateRule creates a policy rule
func (s *PolicyService) CreateRule(ctx context.Context, req *RuleRequest) (*domain.PolicyRule, error) {
	var rule *domain.PolicyRule
	err := s.write(ctx, func(ctx context.Context, a *actor.Actor) error {
		r := &domain.PolicyRule{OrganizationID: a.OrganizationID, IsActive: true}
		if err := req.apply(r); err != nil {
			return err
		}
		if err := s.checkGrade(ctx, a.OrganizationID, r.GradeID); err != nil {
			return err
		}
		if err := s.rules.Create(ctx, r); err != nil {
			return err
		}
		rule = r
		return s.audit.Record(ctx, auditdomain.EntityPolicyRule, r.ID, auditdomain.ActionCreate, nil, r)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("rule_id", rule.ID).
		Str("category", rule.Category).
		Str("destination_type", rule.DestinationType).
		Msg("policy rule created")
	return rule, nil
}

// UpdateRule replaces a policy rule
func (s *PolicyService) UpdateRule(ctx context.Context, id string, req *RuleRequest) (*domain.PolicyRule, error) {
	var rule *domain.PolicyRule
	err := s.write(ctx, func(ctx context.Context, a *actor.Actor) error {
		current, err := s.rules.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := sameOrganization(a, current.OrganizationID, "policy rule"); err != nil {
			return err
		}

		next := *current
		if err := req.apply(&next); err != nil {
			return err
		}
		if err := s.checkGrade(ctx, a.OrganizationID, next.GradeID); err != nil {
			return err
		}
		if err := s.rules.Update(ctx, &next); err != nil {
			return err
		}
		rule = &next
		return s.audit.Record(ctx, auditdomain.EntityPolicyRule, id, auditdomain.ActionUpdate, current, &next)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("rule_id", id).Msg("policy rule updated")
	return rule, nil
}

// DeleteRule deletes a policy rule
func (s *PolicyService) DeleteRule(ctx context.Context, id string) error {
	err := s.write(ctx, func(ctx context.Context, a *actor.Actor) error {
		current, err := s.rules.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := sameOrganization(a, current.OrganizationID, "policy rule"); err != nil {
			return err
		}
		if err := s.rules.Delete(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, auditdomain.EntityPolicyRule, id, auditdomain.ActionDelete, current, nil)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("rule_id", id).Msg("policy rule deleted")
	return nil
}
