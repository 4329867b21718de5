package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/travelflow/travelflow-backend/internal/policy/domain"
	"github.com/travelflow/travelflow-backend/pkg/database"
)

const customRuleColumns = `
	id, organization_id, name, description, grade_id, category, max_amount,
	destination_contains, is_active, created_at, updated_at`

// CustomRuleRepository handles custom travel rule persistence
type CustomRuleRepository struct {
	db *database.DB
}

// NewCustomRuleRepository creates a new custom rule repository
func NewCustomRuleRepository(db *database.DB) *CustomRuleRepository {
	return &CustomRuleRepository{db: db}
}

// Create creates a new custom rule
func (r *CustomRuleRepository) Create(ctx context.Context, c *domain.CustomRule) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	query := `
		INSERT INTO custom_travel_rules (id, organization_id, name, description, grade_id, category,
		                                 max_amount, destination_contains, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		c.ID,
		c.OrganizationID,
		c.Name,
		c.Description,
		c.GradeID,
		c.Category,
		c.MaxAmount,
		c.DestinationContains,
		c.IsActive,
	).Scan(&c.CreatedAt, &c.UpdatedAt)

	return database.Classify(err, "custom rule")
}

// GetByID gets a custom rule by ID
func (r *CustomRuleRepository) GetByID(ctx context.Context, id string) (*domain.CustomRule, error) {
	var c domain.CustomRule
	query := `SELECT ` + customRuleColumns + ` FROM custom_travel_rules WHERE id = $1`
	if err := r.db.Q(ctx).GetContext(ctx, &c, query, id); err != nil {
		return nil, database.Classify(err, "custom rule")
	}
	return &c, nil
}

// List lists the custom rules of an organization
func (r *CustomRuleRepository) List(ctx context.Context, organizationID string, activeOnly bool) ([]*domain.CustomRule, error) {
	rules := make([]*domain.CustomRule, 0)
	query := `SELECT ` + customRuleColumns + ` FROM custom_travel_rules
		WHERE organization_id = $1 AND (is_active OR NOT $2)
		ORDER BY name`
	if err := r.db.Q(ctx).SelectContext(ctx, &rules, query, organizationID, activeOnly); err != nil {
		return nil, err
	}
	return rules, nil
}

// Update updates a custom rule
func (r *CustomRuleRepository) Update(ctx context.Context, c *domain.CustomRule) error {
	query := `
		UPDATE custom_travel_rules
		SET name = $2, description = $3, grade_id = $4, category = $5, max_amount = $6,
		    destination_contains = $7, is_active = $8
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		c.ID,
		c.Name,
		c.Description,
		c.GradeID,
		c.Category,
		c.MaxAmount,
		c.DestinationContains,
		c.IsActive,
	).Scan(&c.UpdatedAt)
	return database.Classify(err, "custom rule")
}

// Delete deletes a custom rule
func (r *CustomRuleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Q(ctx).ExecContext(ctx, `DELETE FROM custom_travel_rules WHERE id = $1`, id)
	if err != nil {
		return database.Classify(err, "custom rule")
	}
	return expectAffected(result, "custom rule")
}
