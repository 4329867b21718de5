package service

import (
	"context"

	"github.com/travelflow/travelflow-backend/internal/travel/domain"
	"github.com/travelflow/travelflow-backend/pkg/errors"
)

// ListApproved lists the caller's approved travels
func (s *TravelService) ListApproved(ctx context.Context) ([]*domain.ApprovedTravel, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.approved.ListByEmployee(ctx, a.ID)
}

// ConvertToReport opens an expense report for an unused approved travel and
// marks the travel as used, in one transaction
func (s *TravelService) ConvertToReport(ctx context.Context, id string) (*domain.ApprovedTravel, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	var travel *domain.ApprovedTravel
	err = s.tx.WithTenant(ctx, func(ctx context.Context) error {
		t, err := s.approved.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if t.OrganizationID != a.OrganizationID {
			return errors.NotFound("approved travel")
		}
		if t.EmployeeID != a.ID {
			return errors.Forbidden("only the traveller can convert this approved travel")
		}
		if t.IsUsed {
			return errors.Conflict("approved travel was already converted to a report")
		}

		reportID, err := s.reports.OpenForTravel(ctx, t)
		if err != nil {
			return err
		}
		if err := s.approved.MarkUsed(ctx, id, reportID); err != nil {
			return err
		}
		t.ReportID = &reportID
		t.IsUsed = true
		travel = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("approved_travel_id", id).
		Str("report_id", *travel.ReportID).
		Msg("approved travel converted to report")
	return travel, nil
}
