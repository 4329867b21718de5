package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/travelflow/travelflow-backend/internal/expense/domain"
	"github.com/travelflow/travelflow-backend/pkg/database"
)

const rateColumns = `id, organization_id, from_currency, to_currency, rate, effective_date, created_at`

// ExchangeRateRepository handles exchange rate persistence
type ExchangeRateRepository struct {
	db *database.DB
}

// NewExchangeRateRepository creates a new exchange rate repository
func NewExchangeRateRepository(db *database.DB) *ExchangeRateRepository {
	return &ExchangeRateRepository{db: db}
}

// Create creates a new exchange rate
func (r *ExchangeRateRepository) Create(ctx context.Context, rate *domain.ExchangeRate) error {
	if rate.ID == "" {
		rate.ID = uuid.New().String()
	}

	query := `
		INSERT INTO exchange_rates (id, organization_id, from_currency, to_currency, rate, effective_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		rate.ID, rate.OrganizationID, rate.FromCurrency, rate.ToCurrency, rate.Rate, rate.EffectiveDate,
	).Scan(&rate.CreatedAt)
	return database.Classify(err, "exchange rate")
}

// GetByID gets an exchange rate by ID
func (r *ExchangeRateRepository) GetByID(ctx context.Context, id string) (*domain.ExchangeRate, error) {
	var rate domain.ExchangeRate
	query := `SELECT ` + rateColumns + ` FROM exchange_rates WHERE id = $1`
	if err := r.db.Q(ctx).GetContext(ctx, &rate, query, id); err != nil {
		return nil, database.Classify(err, "exchange rate")
	}
	return &rate, nil
}

// List lists the exchange rates of an organization, newest first
func (r *ExchangeRateRepository) List(ctx context.Context, organizationID string) ([]*domain.ExchangeRate, error) {
	rates := make([]*domain.ExchangeRate, 0)
	query := `SELECT ` + rateColumns + ` FROM exchange_rates
		WHERE organization_id = $1
		ORDER BY from_currency, to_currency, effective_date DESC`
	if err := r.db.Q(ctx).SelectContext(ctx, &rates, query, organizationID); err != nil {
		return nil, err
	}
	return rates, nil
}

// Find returns the latest rate from one currency to another that is
// effective on date, NOT_FOUND if there is none
func (r *ExchangeRateRepository) Find(ctx context.Context, organizationID, from, to string, date time.Time) (*domain.ExchangeRate, error) {
	var rate domain.ExchangeRate
	query := `SELECT ` + rateColumns + ` FROM exchange_rates
		WHERE organization_id = $1 AND from_currency = $2 AND to_currency = $3 AND effective_date <= $4
		ORDER BY effective_date DESC
		LIMIT 1`
	if err := r.db.Q(ctx).GetContext(ctx, &rate, query, organizationID, from, to, date); err != nil {
		return nil, database.Classify(err, "exchange rate")
	}
	return &rate, nil
}

// Delete deletes an exchange rate
func (r *ExchangeRateRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Q(ctx).ExecContext(ctx, `DELETE FROM exchange_rates WHERE id = $1`, id)
	if err != nil {
		return database.Classify(err, "exchange rate")
	}
	return expectOneRow(result, "exchange rate")
}
