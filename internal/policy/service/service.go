// Package service manages the travel policy of an organization. Every change
// is written to the policy audit log in the same transaction.
package service

import (
	"context"

	"github.com/travelflow/travelflow-backend/internal/policy/domain"
	"github.com/travelflow/travelflow-backend/pkg/actor"
	"github.com/travelflow/travelflow-backend/pkg/errors"
	"github.com/travelflow/travelflow-backend/pkg/logger"
)

// GradeStore persists employee grades
type GradeStore interface {
	Create(ctx context.Context, g *domain.EmployeeGrade) error
	GetByID(ctx context.Context, id string) (*domain.EmployeeGrade, error)
	List(ctx context.Context, organizationID string) ([]*domain.EmployeeGrade, error)
	Update(ctx context.Context, g *domain.EmployeeGrade) error
	Delete(ctx context.Context, id string) error
}

// RuleStore persists amount limits
type RuleStore interface {
	Create(ctx context.Context, r *domain.PolicyRule) error
	GetByID(ctx context.Context, id string) (*domain.PolicyRule, error)
	List(ctx context.Context, organizationID string) ([]*domain.PolicyRule, error)
	ListActive(ctx context.Context, organizationID, destinationType string) ([]*domain.PolicyRule, error)
	Update(ctx context.Context, r *domain.PolicyRule) error
	Delete(ctx context.Context, id string) error
}

// RestrictionStore persists restrictions
type RestrictionStore interface {
	Create(ctx context.Context, r *domain.Restriction) error
	GetByID(ctx context.Context, id string) (*domain.Restriction, error)
	List(ctx context.Context, organizationID string, activeOnly bool) ([]*domain.Restriction, error)
	Update(ctx context.Context, r *domain.Restriction) error
	Delete(ctx context.Context, id string) error
}

// CustomRuleStore persists custom rules
type CustomRuleStore interface {
	Create(ctx context.Context, c *domain.CustomRule) error
	GetByID(ctx context.Context, id string) (*domain.CustomRule, error)
	List(ctx context.Context, organizationID string, activeOnly bool) ([]*domain.CustomRule, error)
	Update(ctx context.Context, c *domain.CustomRule) error
	Delete(ctx context.Context, id string) error
}

// Transactor runs a function inside an organization scoped transaction
type Transactor interface {
	WithTenant(ctx context.Context, fn func(context.Context) error) error
}

// AuditRecorder appends policy audit entries
type AuditRecorder interface {
	Record(ctx context.Context, entityType, entityID, action string, oldValue, newValue interface{}) error
}

// PolicyService handles grades, rules, restrictions and custom rules
type PolicyService struct {
	grades       GradeStore
	rules        RuleStore
	restrictions RestrictionStore
	custom       CustomRuleStore
	tx           Transactor
	audit        AuditRecorder
	logger       *logger.Logger
}

// NewPolicyService creates a new policy service
func NewPolicyService(
	grades GradeStore,
	rules RuleStore,
	restrictions RestrictionStore,
	custom CustomRuleStore,
	tx Transactor,
	audit AuditRecorder,
	log *logger.Logger,
) *PolicyService {
	return &PolicyService{
		grades:       grades,
		rules:        rules,
		restrictions: restrictions,
		custom:       custom,
		tx:           tx,
		audit:        audit,
		logger:       log,
	}
}

// RuleSet returns the active policy for a requester of gradeID travelling to
// destinationType. It only reads.
func (s *PolicyService) RuleSet(ctx context.Context, organizationID string, gradeID *string, destinationType string) (*domain.RuleSet, error) {
	rules, err := s.rules.ListActive(ctx, organizationID, destinationType)
	if err != nil {
		return nil, err
	}
	restrictions, err := s.restrictions.List(ctx, organizationID, true)
	if err != nil {
		return nil, err
	}
	custom, err := s.custom.List(ctx, organizationID, true)
	if err != nil {
		return nil, err
	}
	return domain.SelectRuleSet(gradeID, destinationType, rules, restrictions, custom), nil
}

// reader returns the caller, who only needs to be signed in
func reader(ctx context.Context) (*actor.Actor, error) {
	a := actor.FromContext(ctx)
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	return a, nil
}

// write runs fn in a tenant transaction for a caller allowed to manage policy
func (s *PolicyService) write(ctx context.Context, fn func(ctx context.Context, a *actor.Actor) error) error {
	a, err := reader(ctx)
	if err != nil {
		return err
	}
	if !a.CanManagePolicy() {
		return errors.Forbidden("not allowed to manage travel policy")
	}
	return s.tx.WithTenant(ctx, func(ctx context.Context) error {
		return fn(ctx, a)
	})
}

// checkGrade verifies that a grade reference belongs to the organization
func (s *PolicyService) checkGrade(ctx context.Context, organizationID string, gradeID *string) error {
	if gradeID == nil {
		return nil
	}
	g, err := s.grades.GetByID(ctx, *gradeID)
	if err != nil || g.OrganizationID != organizationID {
		return errors.ValidationField("grade_id", "must be a grade of the organization")
	}
	return nil
}

func sameOrganization(a *actor.Actor, organizationID, resource string) error {
	if organizationID != a.OrganizationID {
		return errors.NotFound(resource)
	}
	return nil
}
