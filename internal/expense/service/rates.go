package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/travelflow/travelflow-backend/internal/expense/domain"
	"github.com/travelflow/travelflow-backend/pkg/errors"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
)

// RateInput records an exchange rate
type RateInput struct {
	FromCurrency  string          `json:"from_currency" validate:"required,len=3"`
	ToCurrency    string          `json:"to_currency" validate:"required,len=3"`
	Rate          decimal.Decimal `json:"rate"`
	EffectiveDate string          `json:"effective_date" validate:"required,datetime=2006-01-02"`
}

// CreateRate records an exchange rate for the caller's organization
func (s *ExpenseService) CreateRate(ctx context.Context, in *RateInput) (*domain.ExchangeRate, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if !a.Can(permissions.ReportsRates) {
		return nil, errors.Forbidden("not allowed to manage exchange rates")
	}

	date, err := time.Parse(domain.DateLayout, in.EffectiveDate)
	if err != nil {
		return nil, errors.ValidationField("effective_date", "must be a date in YYYY-MM-DD format")
	}
	if !in.Rate.IsPositive() {
		return nil, errors.ValidationField("rate", "must be greater than zero")
	}
	rate := &domain.ExchangeRate{
		OrganizationID: a.OrganizationID,
		FromCurrency:   strings.ToUpper(in.FromCurrency),
		ToCurrency:     strings.ToUpper(in.ToCurrency),
		Rate:           in.Rate,
		EffectiveDate:  date,
	}
	if rate.FromCurrency == rate.ToCurrency {
		return nil, errors.ValidationField("to_currency", "must differ from from_currency")
	}

	err = s.tx.WithTenant(ctx, func(ctx context.Context) error {
		return s.rates.Create(ctx, rate)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("rate_id", rate.ID).
		Str("pair", rate.FromCurrency+"/"+rate.ToCurrency).
		Str("actor_id", a.ID).
		Msg("exchange rate recorded")
	return rate, nil
}

// ListRates lists the exchange rates of the caller's organization
func (s *ExpenseService) ListRates(ctx context.Context) ([]*domain.ExchangeRate, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	var rates []*domain.ExchangeRate
	err = s.tx.WithTenant(ctx, func(ctx context.Context) error {
		rates, err = s.rates.List(ctx, a.OrganizationID)
		return err
	})
	return rates, err
}

// DeleteRate deletes an exchange rate. Converted expenses keep the rate they
// were converted with.
func (s *ExpenseService) DeleteRate(ctx context.Context, id string) error {
	a, err := caller(ctx)
	if err != nil {
		return err
	}
	if !a.Can(permissions.ReportsRates) {
		return errors.Forbidden("not allowed to manage exchange rates")
	}

	return s.tx.WithTenant(ctx, func(ctx context.Context) error {
		rate, err := s.rates.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if rate.OrganizationID != a.OrganizationID {
			return errors.NotFound("exchange rate")
		}
		if err := s.rates.Delete(ctx, id); err != nil {
			return err
		}
		s.logger.Info().Str("rate_id", id).Str("actor_id", a.ID).Msg("exchange rate deleted")
		return nil
	})
}

// ConvertAmount converts amount from one currency to another with the latest
// rate effective on or before on. It runs inside the caller's transaction
// and returns NOT_FOUND when no rate applies.
func (s *ExpenseService) ConvertAmount(ctx context.Context, organizationID string, amount decimal.Decimal, from, to string, on time.Time) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return amount, nil
	}
	rate, err := s.rates.Find(ctx, organizationID, from, to, on)
	if err != nil {
		return decimal.Zero, err
	}
	return rate.Convert(amount), nil
}
