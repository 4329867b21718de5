package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/travelflow/travelflow-backend/internal/expense/domain"
	"github.com/travelflow/travelflow-backend/internal/expense/repository"
	traveldomain "github.com/travelflow/travelflow-backend/internal/travel/domain"
	"github.com/travelflow/travelflow-backend/pkg/errors"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
)

// ReportInput creates or updates a report
type ReportInput struct {
	Destination string `json:"destination" validate:"required,max=255"`
	Purpose     string `json:"purpose" validate:"max=2000"`
	StartDate   string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
}

func (in *ReportInput) apply(rep *domain.Report) error {
	start, err := time.Parse(domain.DateLayout, in.StartDate)
	if err != nil {
		return errors.ValidationField("start_date", "must be a date in YYYY-MM-DD format")
	}
	end, err := time.Parse(domain.DateLayout, in.EndDate)
	if err != nil {
		return errors.ValidationField("end_date", "must be a date in YYYY-MM-DD format")
	}
	if end.Before(start) {
		return errors.ValidationField("end_date", "must not be before start_date")
	}

	rep.Destination = strings.TrimSpace(in.Destination)
	rep.Purpose = strings.TrimSpace(in.Purpose)
	rep.StartDate = start
	rep.EndDate = end
	if in.Currency != "" {
		rep.Currency = strings.ToUpper(in.Currency)
	}
	return nil
}

// CreateReport opens a report for the caller
func (s *ExpenseService) CreateReport(ctx context.Context, in *ReportInput) (*domain.Report, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if !a.Can(permissions.ReportsOwn) {
		return nil, errors.Forbidden("not allowed to file expense reports")
	}

	rep := &domain.Report{
		OrganizationID: a.OrganizationID,
		UserID:         a.ID,
		Status:         domain.StatusOpen,
		TotalAmount:    decimal.Zero,
	}
	if err := in.apply(rep); err != nil {
		return nil, err
	}

	err = s.tx.WithTenant(ctx, func(ctx context.Context) error {
		if rep.Currency == "" {
			org, err := s.orgs.GetByID(ctx, a.OrganizationID)
			if err != nil {
				return err
			}
			rep.Currency = org.DefaultCurrency
		}
		return s.reports.Create(ctx, rep)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("report_id", rep.ID).Str("user_id", a.ID).Msg("report created")
	return rep, nil
}

// OpenForTravel opens a report pre-filled from an approved travel. It runs
// inside the caller's transaction.
func (s *ExpenseService) OpenForTravel(ctx context.Context, t *traveldomain.ApprovedTravel) (string, error) {
	rep := &domain.Report{
		OrganizationID:   t.OrganizationID,
		UserID:           t.EmployeeID,
		Destination:      t.Destination,
		Purpose:          t.Purpose,
		StartDate:        t.StartDate,
		EndDate:          t.EndDate,
		Status:           domain.StatusOpen,
		TotalAmount:      decimal.Zero,
		Currency:         t.Currency,
		ApprovedTravelID: &t.ID,
	}
	if err := s.reports.Create(ctx, rep); err != nil {
		return "", err
	}
	s.logger.Info().Str("report_id", rep.ID).Str("approved_travel_id", t.ID).Msg("report opened for approved travel")
	return rep.ID, nil
}

// GetReport returns a report with its expenses and their receipts
func (s *ExpenseService) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	var rep *domain.Report
	err = s.tx.WithTenant(ctx, func(ctx context.Context) error {
		rep, err = s.load(ctx, a, id, false)
		if err != nil {
			return err
		}
		if !s.canView(ctx, a, rep) {
			return errors.Forbidden("not allowed to view this report")
		}
		return s.attach(ctx, rep)
	})
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// attach loads the expenses of rep and the receipts of those expenses
func (s *ExpenseService) attach(ctx context.Context, rep *domain.Report) error {
	expenses, err := s.expenses.ListByReport(ctx, rep.ID)
	if err != nil {
		return err
	}

	ids := make([]string, len(expenses))
	byID := make(map[string]*domain.Expense, len(expenses))
	for i, e := range expenses {
		ids[i] = e.ID
		byID[e.ID] = e
	}
	receipts, err := s.receipts.ListByExpenses(ctx, ids)
	if err != nil {
		return err
	}
	for _, r := range receipts {
		if e, ok := byID[r.ExpenseID]; ok {
			e.Receipts = append(e.Receipts, r)
		}
	}

	rep.Expenses = expenses
	return nil
}

// ReportFilter narrows ListReports. All lists the whole organization and
// needs reports.read.
type ReportFilter struct {
	Status string
	All    bool
}

// ListReports lists the caller's reports, or all reports of the organization
func (s *ExpenseService) ListReports(ctx context.Context, filter ReportFilter, limit, offset int) ([]*domain.Report, int64, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, 0, err
	}

	f := repository.ReportFilter{OrganizationID: a.OrganizationID, Status: filter.Status}
	if filter.All {
		if !a.Can(permissions.ReportsRead) {
			return nil, 0, errors.Forbidden("not allowed to list all reports")
		}
	} else {
		f.UserID = a.ID
	}

	var (
		reports []*domain.Report
		total   int64
	)
	err = s.tx.WithTenant(ctx, func(ctx context.Context) error {
		reports, total, err = s.reports.List(ctx, f, limit, offset)
		return err
	})
	return reports, total, err
}

// UpdateReport changes the trip details of an editable report. A currency
// change converts every expense again.
func (s *ExpenseService) UpdateReport(ctx context.Context, id string, in *ReportInput) (*domain.Report, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	var rep *domain.Report
	err = s.tx.WithTenant(ctx, func(ctx context.Context) error {
		rep, err = s.editable(ctx, a, id)
		if err != nil {
			return err
		}
		previousCurrency := rep.Currency
		if err := in.apply(rep); err != nil {
			return err
		}
		if err := s.reports.Update(ctx, rep); err != nil {
			return err
		}
		if rep.Currency == previousCurrency {
			return nil
		}

		expenses, err := s.expenses.ListByReport(ctx, rep.ID)
		if err != nil {
			return err
		}
		for _, e := range expenses {
			if err := s.convert(ctx, rep, e); err != nil {
				return err
			}
			if err := s.expenses.Update(ctx, e); err != nil {
				return err
			}
		}
		return s.recompute(ctx, rep)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("report_id", rep.ID).Str("user_id", a.ID).Msg("report updated")
	return rep, nil
}

// DeleteReport deletes an editable report of the caller
func (s *ExpenseService) DeleteReport(ctx context.Context, id string) error {
	a, err := caller(ctx)
	if err != nil {
		return err
	}

	err = s.tx.WithTenant(ctx, func(ctx context.Context) error {
		if _, err := s.editable(ctx, a, id); err != nil {
			return err
		}
		return s.reports.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("report_id", id).Str("user_id", a.ID).Msg("report deleted")
	return nil
}
