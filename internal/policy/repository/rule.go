package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/travelflow/travelflow-backend/internal/policy/domain"
	"github.com/travelflow/travelflow-backend/pkg/database"
	"github.com/travelflow/travelflow-backend/pkg/errors"
)

const ruleColumns = `
	id, organization_id, grade_id, destination_type, category, limit_amount, limit_unit,
	currency, is_active, created_at, updated_at`

// RuleRepository handles policy rule persistence
type RuleRepository struct {
	db *database.DB
}

// NewRuleRepository creates a new rule repository
func NewRuleRepository(db *database.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// Create creates a new policy rule
func (r *RuleRepository) Create(ctx context.Context, rule *domain.PolicyRule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}

	query := `
		INSERT INTO travel_policy_rules (id, organization_id, grade_id, destination_type, category,
		                                 limit_amount, limit_unit, currency, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		rule.ID,
		rule.OrganizationID,
		rule.GradeID,
		rule.DestinationType,
		rule.Category,
		rule.LimitAmount,
		rule.LimitUnit,
		rule.Currency,
		rule.IsActive,
	).Scan(&rule.CreatedAt, &rule.UpdatedAt)

	return database.Classify(err, "policy rule")
}

// GetByID gets a policy rule by ID
func (r *RuleRepository) GetByID(ctx context.Context, id string) (*domain.PolicyRule, error) {
	var rule domain.PolicyRule
	query := `SELECT ` + ruleColumns + ` FROM travel_policy_rules WHERE id = $1`
	if err := r.db.Q(ctx).GetContext(ctx, &rule, query, id); err != nil {
		return nil, database.Classify(err, "policy rule")
	}
	return &rule, nil
}

// List lists every rule of an organization
func (r *RuleRepository) List(ctx context.Context, organizationID string) ([]*domain.PolicyRule, error) {
	rules := make([]*domain.PolicyRule, 0)
	query := `SELECT ` + ruleColumns + ` FROM travel_policy_rules
		WHERE organization_id = $1
		ORDER BY destination_type, category, grade_id NULLS FIRST`
	if err := r.db.Q(ctx).SelectContext(ctx, &rules, query, organizationID); err != nil {
		return nil, err
	}
	return rules, nil
}

// ListActive lists the active rules for a destination type
func (r *RuleRepository) ListActive(ctx context.Context, organizationID, destinationType string) ([]*domain.PolicyRule, error) {
	rules := make([]*domain.PolicyRule, 0)
	query := `SELECT ` + ruleColumns + ` FROM travel_policy_rules
		WHERE organization_id = $1 AND destination_type = $2 AND is_active
		ORDER BY category`
	if err := r.db.Q(ctx).SelectContext(ctx, &rules, query, organizationID, destinationType); err != nil {
		return nil, err
	}
	return rules, nil
}

// Update updates a policy rule
func (r *RuleRepository) Update(ctx context.Context, rule *domain.PolicyRule) error {
	query := `
		UPDATE travel_policy_rules
		SET grade_id = $2, destination_type = $3, category = $4, limit_amount = $5,
		    limit_unit = $6, currency = $7, is_active = $8
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		rule.ID,
		rule.GradeID,
		rule.DestinationType,
		rule.Category,
		rule.LimitAmount,
		rule.LimitUnit,
		rule.Currency,
		rule.IsActive,
	).Scan(&rule.UpdatedAt)
	return database.Classify(err, "policy rule")
}

// Delete deletes a policy rule
func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Q(ctx).ExecContext(ctx, `DELETE FROM travel_policy_rules WHERE id = $1`, id)
	if err != nil {
		return database.Classify(err, "policy rule")
	}
	return expectAffected(result, "policy rule")
}

func expectAffected(result sql.Result, resource string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFound(resource)
	}
	return nil
}
