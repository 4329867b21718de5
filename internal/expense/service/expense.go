package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/travelflow/travelflow-backend/internal/expense/domain"
	"github.com/travelflow/travelflow-backend/pkg/errors"
)

// ExpenseInput adds or replaces an expense
type ExpenseInput struct {
	Category      string          `json:"category" validate:"required,oneof=flights accommodation food transportation miscellaneous"`
	Description   string          `json:"description" validate:"max=1000"`
	ExpenseDate   string          `json:"expense_date" validate:"required,datetime=2006-01-02"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency" validate:"omitempty,len=3"`
	PaymentMethod string          `json:"payment_method" validate:"omitempty,oneof=company_card out_of_pocket"`
}

func (in *ExpenseInput) apply(rep *domain.Report, e *domain.Expense) error {
	date, err := time.Parse(domain.DateLayout, in.ExpenseDate)
	if err != nil {
		return errors.ValidationField("expense_date", "must be a date in YYYY-MM-DD format")
	}
	if !in.Amount.IsPositive() {
		return errors.ValidationField("amount", "must be greater than zero")
	}

	e.Category = in.Category
	e.Description = strings.TrimSpace(in.Description)
	e.ExpenseDate = date
	e.Amount = in.Amount
	e.Currency = strings.ToUpper(in.Currency)
	if e.Currency == "" {
		e.Currency = rep.Currency
	}
	e.PaymentMethod = in.PaymentMethod
	if e.PaymentMethod == "" {
		e.PaymentMethod = domain.PaymentOutOfPocket
	}
	return nil
}

// convert sets the exchange rate and converted amount of e in the report
// currency, using the latest rate effective on the expense date
func (s *ExpenseService) convert(ctx context.Context, rep *domain.Report, e *domain.Expense) error {
	if e.Currency == rep.Currency {
		e.ExchangeRate = decimal.NewFromInt(1)
		e.ConvertedAmount = e.Amount
		return nil
	}

	rate, err := s.rates.Find(ctx, rep.OrganizationID, e.Currency, rep.Currency, e.ExpenseDate)
	if errors.Is(err, errors.ErrNotFound) {
		return errors.ValidationField("currency",
			"no exchange rate from "+e.Currency+" to "+rep.Currency+" on or before "+e.ExpenseDate.Format(domain.DateLayout))
	}
	if err != nil {
		return err
	}

	e.ExchangeRate = rate.Rate
	e.ConvertedAmount = rate.Convert(e.Amount)
	return nil
}

// recompute stores the sum of the converted expense amounts as the report total
func (s *ExpenseService) recompute(ctx context.Context, rep *domain.Report) error {
	expenses, err := s.expenses.ListByReport(ctx, rep.ID)
	if err != nil {
		return err
	}
	total := domain.Total(expenses)
	if err := s.reports.SetTotal(ctx, rep.ID, total); err != nil {
		return err
	}
	rep.TotalAmount = total
	return nil
}

func (s *ExpenseService) expenseOf(ctx context.Context, rep *domain.Report, id string) (*domain.Expense, error) {
	e, err := s.expenses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.ReportID != rep.ID {
		return nil, errors.NotFound("expense")
	}
	return e, nil
}

// AddExpense adds an expense to an editable report of the caller
func (s *ExpenseService) AddExpense(ctx context.Context, reportID string, in *ExpenseInput) (*domain.Expense, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	var e *domain.Expense
	err = s.tx.WithTenant(ctx, func(ctx context.Context) error {
		rep, err := s.editable(ctx, a, reportID)
		if err != nil {
			return err
		}
		e = &domain.Expense{
			OrganizationID: rep.OrganizationID,
			ReportID:       rep.ID,
			ApprovalStatus: domain.ExpensePending,
		}
		if err := in.apply(rep, e); err != nil {
			return err
		}
		if err := s.convert(ctx, rep, e); err != nil {
			return err
		}
		if err := s.expenses.Create(ctx, e); err != nil {
			return err
		}
		return s.recompute(ctx, rep)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("report_id", reportID).
		Str("expense_id", e.ID).
		Str("converted_amount", e.ConvertedAmount.String()).
		Msg("expense added")
	return e, nil
}

// UpdateExpense replaces an expense of an editable report of the caller. A
// decided expense goes back to pending.
func (s *ExpenseService) UpdateExpense(ctx context.Context, reportID, id string, in *ExpenseInput) (*domain.Expense, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	var e *domain.Expense
	err = s.tx.WithTenant(ctx, func(ctx context.Context) error {
		rep, err := s.editable(ctx, a, reportID)
		if err != nil {
			return err
		}
		e, err = s.expenseOf(ctx, rep, id)
		if err != nil {
			return err
		}
		if err := in.apply(rep, e); err != nil {
			return err
		}
		if err := s.convert(ctx, rep, e); err != nil {
			return err
		}
		if err := s.expenses.Update(ctx, e); err != nil {
			return err
		}
		if e.ApprovalStatus != domain.ExpensePending {
			if err := s.expenses.SetApprovalStatus(ctx, e.ID, domain.ExpensePending); err != nil {
				return err
			}
			e.ApprovalStatus = domain.ExpensePending
		}
		return s.recompute(ctx, rep)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("report_id", reportID).Str("expense_id", id).Msg("expense updated")
	return e, nil
}

// DeleteExpense removes an expense from an editable report of the caller
func (s *ExpenseService) DeleteExpense(ctx context.Context, reportID, id string) error {
	a, err := caller(ctx)
	if err != nil {
		return err
	}

	err = s.tx.WithTenant(ctx, func(ctx context.Context) error {
		rep, err := s.editable(ctx, a, reportID)
		if err != nil {
			return err
		}
		if _, err := s.expenseOf(ctx, rep, id); err != nil {
			return err
		}
		if err := s.expenses.Delete(ctx, id); err != nil {
			return err
		}
		return s.recompute(ctx, rep)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("report_id", reportID).Str("expense_id", id).Msg("expense deleted")
	return nil
}
