package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/travelflow/travelflow-backend/internal/policy/domain"
	"github.com/travelflow/travelflow-backend/pkg/database"
)

const restrictionColumns = `
	id, organization_id, grade_id, restriction_type, value, description, is_active, created_at, updated_at`

// RestrictionRepository handles policy restriction persistence
type RestrictionRepository struct {
	db *database.DB
}

// NewRestrictionRepository creates a new restriction repository
func NewRestrictionRepository(db *database.DB) *RestrictionRepository {
	return &RestrictionRepository{db: db}
}

// Create creates a new restriction
func (r *RestrictionRepository) Create(ctx context.Context, res *domain.Restriction) error {
	if res.ID == "" {
		res.ID = uuid.New().String()
	}

	query := `
		INSERT INTO travel_policy_restrictions (id, organization_id, grade_id, restriction_type, value, description, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		res.ID, res.OrganizationID, res.GradeID, res.RestrictionType, res.Value, res.Description, res.IsActive,
	).Scan(&res.CreatedAt, &res.UpdatedAt)

	return database.Classify(err, "restriction")
}

// GetByID gets a restriction by ID
func (r *RestrictionRepository) GetByID(ctx context.Context, id string) (*domain.Restriction, error) {
	var res domain.Restriction
	query := `SELECT ` + restrictionColumns + ` FROM travel_policy_restrictions WHERE id = $1`
	if err := r.db.Q(ctx).GetContext(ctx, &res, query, id); err != nil {
		return nil, database.Classify(err, "restriction")
	}
	return &res, nil
}

// List lists the restrictions of an organization. With activeOnly set,
// inactive ones are left out.
func (r *RestrictionRepository) List(ctx context.Context, organizationID string, activeOnly bool) ([]*domain.Restriction, error) {
	restrictions := make([]*domain.Restriction, 0)
	query := `SELECT ` + restrictionColumns + ` FROM travel_policy_restrictions
		WHERE organization_id = $1 AND (is_active OR NOT $2)
		ORDER BY restriction_type, created_at`
	if err := r.db.Q(ctx).SelectContext(ctx, &restrictions, query, organizationID, activeOnly); err != nil {
		return nil, err
	}
	return restrictions, nil
}

// Update updates a restriction
func (r *RestrictionRepository) Update(ctx context.Context, res *domain.Restriction) error {
	query := `
		UPDATE travel_policy_restrictions
		SET grade_id = $2, restriction_type = $3, value = $4, description = $5, is_active = $6
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		res.ID, res.GradeID, res.RestrictionType, res.Value, res.Description, res.IsActive,
	).Scan(&res.UpdatedAt)
	return database.Classify(err, "restriction")
}

// Delete deletes a restriction
func (r *RestrictionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Q(ctx).ExecContext(ctx, `DELETE FROM travel_policy_restrictions WHERE id = $1`, id)
	if err != nil {
		return database.Classify(err, "restriction")
	}
	return expectAffected(result, "restriction")
}
