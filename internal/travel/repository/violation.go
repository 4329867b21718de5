package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/travelflow/travelflow-backend/internal/travel/domain"
	"github.com/travelflow/travelflow-backend/pkg/database"
	"github.com/travelflow/travelflow-backend/pkg/errors"
)

const violationColumns = `
	id, travel_request_id, category, violation_type, requested_amount, limit_amount,
	overage_amount, overage_percentage, message, explanation, created_at`

// ViolationRepository handles detected policy violations
type ViolationRepository struct {
	db *database.DB
}

// NewViolationRepository creates a new violation repository
func NewViolationRepository(db *database.DB) *ViolationRepository {
	return &ViolationRepository{db: db}
}

// ListByRequest lists the violations of a request
func (r *ViolationRepository) ListByRequest(ctx context.Context, requestID string) ([]*domain.Violation, error) {
	violations := make([]*domain.Violation, 0)
	query := `SELECT ` + violationColumns + ` FROM travel_request_violations
		WHERE travel_request_id = $1 ORDER BY created_at, category`
	if err := r.db.Q(ctx).SelectContext(ctx, &violations, query, requestID); err != nil {
		return nil, err
	}
	return violations, nil
}

// Replace swaps the stored violations of a request for the given set. Run
// it inside a transaction.
func (r *ViolationRepository) Replace(ctx context.Context, requestID string, violations []*domain.Violation) error {
	q := r.db.Q(ctx)

	if _, err := q.ExecContext(ctx, `DELETE FROM travel_request_violations WHERE travel_request_id = $1`, requestID); err != nil {
		return err
	}

	query := `
		INSERT INTO travel_request_violations (id, travel_request_id, category, violation_type, requested_amount,
		                                       limit_amount, overage_amount, overage_percentage, message, explanation)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	for _, v := range violations {
		if v.ID == "" {
			v.ID = uuid.New().String()
		}
		v.TravelRequestID = requestID
		err := q.QueryRowxContext(ctx, query,
			v.ID,
			v.TravelRequestID,
			v.Category,
			v.ViolationType,
			v.RequestedAmount,
			v.LimitAmount,
			v.OverageAmount,
			v.OveragePercentage,
			v.Message,
			v.Explanation,
		).Scan(&v.CreatedAt)
		if err != nil {
			return database.Classify(err, "violation")
		}
	}
	return nil
}

// Explain stores the requester's explanation of a violation
func (r *ViolationRepository) Explain(ctx context.Context, id, requestID, explanation string) error {
	result, err := r.db.Q(ctx).ExecContext(ctx,
		`UPDATE travel_request_violations SET explanation = $3 WHERE id = $1 AND travel_request_id = $2`,
		id, requestID, explanation)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFound("violation")
	}
	return nil
}
