package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/travelflow/travelflow-backend/internal/travel/domain"
	"github.com/travelflow/travelflow-backend/pkg/database"
	"github.com/travelflow/travelflow-backend/pkg/errors"
)

const requestColumns = `
	r.id, r.organization_id, r.requester_id, r.destination, r.destination_type, r.purpose,
	r.start_date, r.end_date, r.estimated_flights, r.estimated_accommodation_per_night,
	r.estimated_food_per_day, r.estimated_transportation, r.estimated_miscellaneous, r.currency,
	r.status, r.current_approval_level, r.approval_chain_id, r.submitted_at, r.final_decision_at,
	r.created_at, r.updated_at`

// RequestFilter narrows a request listing
type RequestFilter struct {
	OrganizationID string
	RequesterID    string
	Status         string
}

// RequestRepository handles travel request persistence
type RequestRepository struct {
	db *database.DB
}

// NewRequestRepository creates a new travel request repository
func NewRequestRepository(db *database.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create creates a new travel request
func (r *RequestRepository) Create(ctx context.Context, req *domain.TravelRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	query := `
		INSERT INTO travel_requests (id, organization_id, requester_id, destination, destination_type, purpose,
		                             start_date, end_date, estimated_flights, estimated_accommodation_per_night,
		                             estimated_food_per_day, estimated_transportation, estimated_miscellaneous,
		                             currency, status, approval_chain_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at
	`

	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		req.ID,
		req.OrganizationID,
		req.RequesterID,
		req.Destination,
		req.DestinationType,
		req.Purpose,
		req.StartDate,
		req.EndDate,
		req.EstimatedFlights,
		req.EstimatedAccommodationPerNight,
		req.EstimatedFoodPerDay,
		req.EstimatedTransportation,
		req.EstimatedMiscellaneous,
		req.Currency,
		req.Status,
		req.ApprovalChainID,
	).Scan(&req.CreatedAt, &req.UpdatedAt)

	return database.Classify(err, "travel request")
}

// GetByID gets a travel request by ID
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*domain.TravelRequest, error) {
	var req domain.TravelRequest
	query := `SELECT ` + requestColumns + ` FROM travel_requests r WHERE r.id = $1`
	if err := r.db.Q(ctx).GetContext(ctx, &req, query, id); err != nil {
		return nil, database.Classify(err, "travel request")
	}
	return &req, nil
}

// LockByID gets a travel request and locks its row until the transaction ends
func (r *RequestRepository) LockByID(ctx context.Context, id string) (*domain.TravelRequest, error) {
	var req domain.TravelRequest
	query := `SELECT ` + requestColumns + ` FROM travel_requests r WHERE r.id = $1 FOR UPDATE`
	if err := r.db.Q(ctx).GetContext(ctx, &req, query, id); err != nil {
		return nil, database.Classify(err, "travel request")
	}
	return &req, nil
}

// List lists travel requests newest first
func (r *RequestRepository) List(ctx context.Context, filter RequestFilter, limit, offset int) ([]*domain.TravelRequest, int64, error) {
	where := []string{"r.organization_id = $1"}
	args := []interface{}{filter.OrganizationID}

	if filter.RequesterID != "" {
		args = append(args, filter.RequesterID)
		where = append(where, fmt.Sprintf("r.requester_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("r.status = $%d", len(args)))
	}
	whereSQL := strings.Join(where, " AND ")

	var total int64
	if err := r.db.Q(ctx).GetContext(ctx, &total, `SELECT COUNT(*) FROM travel_requests r WHERE `+whereSQL, args...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM travel_requests r WHERE %s ORDER BY r.created_at DESC LIMIT $%d OFFSET $%d`,
		requestColumns, whereSQL, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	requests := make([]*domain.TravelRequest, 0)
	if err := r.db.Q(ctx).SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// ListPendingForApprover lists the requests waiting on approverID
func (r *RequestRepository) ListPendingForApprover(ctx context.Context, approverID string, limit, offset int) ([]*domain.TravelRequest, int64, error) {
	var total int64
	countQuery := `
		SELECT COUNT(*) FROM travel_requests r
		JOIN travel_request_approvals a ON a.travel_request_id = r.id
		WHERE a.approver_id = $1 AND a.status = 'pending' AND r.status = 'pending_approval'
	`
	if err := r.db.Q(ctx).GetContext(ctx, &total, countQuery, approverID); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + requestColumns + ` FROM travel_requests r
		JOIN travel_request_approvals a ON a.travel_request_id = r.id
		WHERE a.approver_id = $1 AND a.status = 'pending' AND r.status = 'pending_approval'
		ORDER BY r.submitted_at
		LIMIT $2 OFFSET $3`

	requests := make([]*domain.TravelRequest, 0)
	if err := r.db.Q(ctx).SelectContext(ctx, &requests, query, approverID, limit, offset); err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// Update writes the editable fields of a draft request
func (r *RequestRepository) Update(ctx context.Context, req *domain.TravelRequest) error {
	query := `
		UPDATE travel_requests
		SET destination = $2, destination_type = $3, purpose = $4, start_date = $5, end_date = $6,
		    estimated_flights = $7, estimated_accommodation_per_night = $8, estimated_food_per_day = $9,
		    estimated_transportation = $10, estimated_miscellaneous = $11, currency = $12, approval_chain_id = $13
		WHERE id = $1 AND status = 'draft'
		RETURNING updated_at
	`
	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		req.ID,
		req.Destination,
		req.DestinationType,
		req.Purpose,
		req.StartDate,
		req.EndDate,
		req.EstimatedFlights,
		req.EstimatedAccommodationPerNight,
		req.EstimatedFoodPerDay,
		req.EstimatedTransportation,
		req.EstimatedMiscellaneous,
		req.Currency,
		req.ApprovalChainID,
	).Scan(&req.UpdatedAt)
	if err == sql.ErrNoRows {
		return errors.Conflict("travel request is no longer a draft")
	}
	return database.Classify(err, "travel request")
}

// Transition writes the workflow fields of req if the stored status still
// equals from. Losing a race to another writer yields CONFLICT.
func (r *RequestRepository) Transition(ctx context.Context, req *domain.TravelRequest, from string) error {
	query := `
		UPDATE travel_requests
		SET status = $3, current_approval_level = $4, submitted_at = $5, final_decision_at = $6
		WHERE id = $1 AND status = $2
		RETURNING updated_at
	`
	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		req.ID,
		from,
		req.Status,
		req.CurrentApprovalLevel,
		req.SubmittedAt,
		req.FinalDecisionAt,
	).Scan(&req.UpdatedAt)
	if err == sql.ErrNoRows {
		return errors.Conflict("travel request was changed concurrently")
	}
	return database.Classify(err, "travel request")
}

// SetApprovalLevel moves a pending request to another approval level
func (r *RequestRepository) SetApprovalLevel(ctx context.Context, id string, level int) error {
	result, err := r.db.Q(ctx).ExecContext(ctx,
		`UPDATE travel_requests SET current_approval_level = $2 WHERE id = $1 AND status = 'pending_approval'`,
		id, level)
	if err != nil {
		return database.Classify(err, "travel request")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Conflict("travel request was changed concurrently")
	}
	return nil
}

// Delete deletes a draft request
func (r *RequestRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Q(ctx).ExecContext(ctx, `DELETE FROM travel_requests WHERE id = $1 AND status = 'draft'`, id)
	if err != nil {
		return database.Classify(err, "travel request")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Conflict("travel request is no longer a draft")
	}
	return nil
}
