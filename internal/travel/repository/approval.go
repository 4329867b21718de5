package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/travelflow/travelflow-backend/internal/travel/domain"
	"github.com/travelflow/travelflow-backend/pkg/database"
	"github.com/travelflow/travelflow-backend/pkg/errors"
)

const approvalColumns = `
	id, travel_request_id, approver_id, approval_level, status, approved_amounts, comments,
	decided_at, created_at`

// ApprovalRepository handles the approval trail of travel requests
type ApprovalRepository struct {
	db *database.DB
}

// NewApprovalRepository creates a new approval repository
func NewApprovalRepository(db *database.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// Create inserts an approval row
func (r *ApprovalRepository) Create(ctx context.Context, a *domain.Approval) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}

	query := `
		INSERT INTO travel_request_approvals (id, travel_request_id, approver_id, approval_level, status,
		                                      approved_amounts, comments, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		a.ID,
		a.TravelRequestID,
		a.ApproverID,
		a.ApprovalLevel,
		a.Status,
		a.ApprovedAmounts,
		a.Comments,
		a.DecidedAt,
	).Scan(&a.CreatedAt)

	return database.Classify(err, "approval")
}

// GetByID gets an approval row by ID
func (r *ApprovalRepository) GetByID(ctx context.Context, id string) (*domain.Approval, error) {
	var a domain.Approval
	query := `SELECT ` + approvalColumns + ` FROM travel_request_approvals WHERE id = $1`
	if err := r.db.Q(ctx).GetContext(ctx, &a, query, id); err != nil {
		return nil, database.Classify(err, "approval")
	}
	return &a, nil
}

// ListByRequest lists the approval trail of a request by level
func (r *ApprovalRepository) ListByRequest(ctx context.Context, requestID string) ([]*domain.Approval, error) {
	approvals := make([]*domain.Approval, 0)
	query := `SELECT ` + approvalColumns + ` FROM travel_request_approvals
		WHERE travel_request_id = $1 ORDER BY approval_level`
	if err := r.db.Q(ctx).SelectContext(ctx, &approvals, query, requestID); err != nil {
		return nil, err
	}
	return approvals, nil
}

// Decide records a decision on a pending row. When the row is no longer
// pending another approver got there first and CONFLICT is returned.
func (r *ApprovalRepository) Decide(ctx context.Context, a *domain.Approval) error {
	query := `
		UPDATE travel_request_approvals
		SET status = $2, approved_amounts = $3, comments = $4, decided_at = $5
		WHERE id = $1 AND status = 'pending'
		RETURNING approver_id
	`
	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		a.ID, a.Status, a.ApprovedAmounts, a.Comments, a.DecidedAt,
	).Scan(&a.ApproverID)
	if err == sql.ErrNoRows {
		return errors.Conflict("approval has already been decided")
	}
	return database.Classify(err, "approval")
}

// DeletePending removes the open approval rows of a request
func (r *ApprovalRepository) DeletePending(ctx context.Context, requestID string) error {
	_, err := r.db.Q(ctx).ExecContext(ctx,
		`DELETE FROM travel_request_approvals WHERE travel_request_id = $1 AND status = 'pending'`, requestID)
	return database.Classify(err, "approval")
}

// DeleteByRequest removes the whole approval trail of a request
func (r *ApprovalRepository) DeleteByRequest(ctx context.Context, requestID string) error {
	_, err := r.db.Q(ctx).ExecContext(ctx,
		`DELETE FROM travel_request_approvals WHERE travel_request_id = $1`, requestID)
	return database.Classify(err, "approval")
}
