package service

import (
	"context"
	"strings"

	auditdomain "github.com/travelflow/travelflow-backend/internal/audit/domain"
	"github.com/travelflow/travelflow-backend/internal/policy/domain"
	"github.com/travelflow/travelflow-backend/pkg/actor"
)

// GradeRequest creates or replaces an employee grade
type GradeRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Level       int     `json:"level" validate:"min=1,max=100"`
	Description *string `json:"description,omitempty"`
}

// ListGrades lists the grades of the caller's organization
func (s *PolicyService) ListGrades(ctx context.Context) ([]*domain.EmployeeGrade, error) {
	a, err := reader(ctx)
	if err != nil {
		return nil, err
	}
	return s.grades.List(ctx, a.OrganizationID)
}

// CreateGrade creates a grade
func (s *PolicyService) CreateGrade(ctx context.Context, req *GradeRequest) (*domain.EmployeeGrade, error) {
	var grade *domain.EmployeeGrade
	err := s.write(ctx, func(ctx context.Context, a *actor.Actor) error {
		g := &domain.EmployeeGrade{
			OrganizationID: a.OrganizationID,
			Name:           strings.TrimSpace(req.Name),
			Level:          req.Level,
			Description:    req.Description,
		}
		if err := s.grades.Create(ctx, g); err != nil {
			return err
		}
		grade = g
		return s.audit.Record(ctx, auditdomain.EntityEmployeeGrade, g.ID, auditdomain.ActionCreate, nil, g)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("grade_id", grade.ID).Str("name", grade.Name).Msg("employee grade created")
	return grade, nil
}

// UpdateGrade replaces a grade
func (s *PolicyService) UpdateGrade(ctx context.Context, id string, req *GradeRequest) (*domain.EmployeeGrade, error) {
	var grade *domain.EmployeeGrade
	err := s.write(ctx, func(ctx context.Context, a *actor.Actor) error {
		current, err := s.grades.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := sameOrganization(a, current.OrganizationID, "employee grade"); err != nil {
			return err
		}

		next := *current
		next.Name = strings.TrimSpace(req.Name)
		next.Level = req.Level
		next.Description = req.Description
		if err := s.grades.Update(ctx, &next); err != nil {
			return err
		}
		grade = &next
		return s.audit.Record(ctx, auditdomain.EntityEmployeeGrade, id, auditdomain.ActionUpdate, current, &next)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("grade_id", id).Msg("employee grade updated")
	return grade, nil
}

// DeleteGrade deletes a grade together with the rules scoped to it
func (s *PolicyService) DeleteGrade(ctx context.Context, id string) error {
	err := s.write(ctx, func(ctx context.Context, a *actor.Actor) error {
		current, err := s.grades.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := sameOrganization(a, current.OrganizationID, "employee grade"); err != nil {
			return err
		}
		if err := s.grades.Delete(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, auditdomain.EntityEmployeeGrade, id, auditdomain.ActionDelete, current, nil)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("grade_id", id).Msg("employee grade deleted")
	return nil
}
