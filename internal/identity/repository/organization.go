package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/travelflow/travelflow-backend/internal/identity/domain"
	"github.com/travelflow/travelflow-backend/pkg/database"
)

// OrganizationRepository handles organization persistence
type OrganizationRepository struct {
	db *database.DB
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *database.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// Create creates a new organization
func (r *OrganizationRepository) Create(ctx context.Context, org *domain.Organization) error {
	if org.ID == "" {
		org.ID = uuid.New().String()
	}

	query := `
		INSERT INTO organizations (id, name, accounting_type, external_accounting_email, default_currency)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		org.ID,
		org.Name,
		org.AccountingType,
		org.ExternalAccountingEmail,
		org.DefaultCurrency,
	).Scan(&org.CreatedAt, &org.UpdatedAt)

	return database.Classify(err, "organization")
}

// GetByID gets an organization by ID
func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	var org domain.Organization
	query := `
		SELECT id, name, accounting_type, external_accounting_email, default_currency, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`

	if err := r.db.Q(ctx).GetContext(ctx, &org, query, id); err != nil {
		return nil, database.Classify(err, "organization")
	}

	return &org, nil
}

// UpdateSettings stores name, accounting settings and default currency
func (r *OrganizationRepository) UpdateSettings(ctx context.Context, org *domain.Organization) error {
	query := `
		UPDATE organizations
		SET name = $2, accounting_type = $3, external_accounting_email = $4, default_currency = $5
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		org.ID,
		org.Name,
		org.AccountingType,
		org.ExternalAccountingEmail,
		org.DefaultCurrency,
	).Scan(&org.UpdatedAt)

	return database.Classify(err, "organization")
}
