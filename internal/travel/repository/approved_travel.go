package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/travelflow/travelflow-backend/internal/travel/domain"
	"github.com/travelflow/travelflow-backend/pkg/database"
	"github.com/travelflow/travelflow-backend/pkg/errors"
)

const approvedTravelColumns = `
	id, organization_id, travel_request_id, employee_id, destination, purpose, start_date, end_date,
	approved_flights, approved_accommodation, approved_food, approved_transportation,
	approved_miscellaneous, approved_total, currency, report_id, is_used, created_at`

// ApprovedTravelRepository handles approved travel persistence
type ApprovedTravelRepository struct {
	db *database.DB
}

// NewApprovedTravelRepository creates a new approved travel repository
func NewApprovedTravelRepository(db *database.DB) *ApprovedTravelRepository {
	return &ApprovedTravelRepository{db: db}
}

// Create creates the approved travel of a decided request
func (r *ApprovedTravelRepository) Create(ctx context.Context, t *domain.ApprovedTravel) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}

	query := `
		INSERT INTO approved_travels (id, organization_id, travel_request_id, employee_id, destination, purpose,
		                              start_date, end_date, approved_flights, approved_accommodation, approved_food,
		                              approved_transportation, approved_miscellaneous, approved_total, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at
	`

	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		t.ID,
		t.OrganizationID,
		t.TravelRequestID,
		t.EmployeeID,
		t.Destination,
		t.Purpose,
		t.StartDate,
		t.EndDate,
		t.ApprovedFlights,
		t.ApprovedAccommodation,
		t.ApprovedFood,
		t.ApprovedTransportation,
		t.ApprovedMiscellaneous,
		t.ApprovedTotal,
		t.Currency,
	).Scan(&t.CreatedAt)

	return database.Classify(err, "approved travel")
}

// GetByID gets an approved travel by ID
func (r *ApprovedTravelRepository) GetByID(ctx context.Context, id string) (*domain.ApprovedTravel, error) {
	var t domain.ApprovedTravel
	query := `SELECT ` + approvedTravelColumns + ` FROM approved_travels WHERE id = $1`
	if err := r.db.Q(ctx).GetContext(ctx, &t, query, id); err != nil {
		return nil, database.Classify(err, "approved travel")
	}
	return &t, nil
}

// ListByEmployee lists the approved travels of an employee, newest first
func (r *ApprovedTravelRepository) ListByEmployee(ctx context.Context, employeeID string) ([]*domain.ApprovedTravel, error) {
	travels := make([]*domain.ApprovedTravel, 0)
	query := `SELECT ` + approvedTravelColumns + ` FROM approved_travels WHERE employee_id = $1 ORDER BY created_at DESC`
	if err := r.db.Q(ctx).SelectContext(ctx, &travels, query, employeeID); err != nil {
		return nil, err
	}
	return travels, nil
}

// MarkUsed links a report to an unused approved travel. A travel that was
// already converted yields CONFLICT.
func (r *ApprovedTravelRepository) MarkUsed(ctx context.Context, id, reportID string) error {
	result, err := r.db.Q(ctx).ExecContext(ctx,
		`UPDATE approved_travels SET is_used = TRUE, report_id = $2 WHERE id = $1 AND NOT is_used`, id, reportID)
	if err != nil {
		return database.Classify(err, "approved travel")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Conflict("approved travel has already been converted to a report")
	}
	return nil
}
