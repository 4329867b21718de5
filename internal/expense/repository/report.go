package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/travelflow/travelflow-backend/internal/expense/domain"
	"github.com/travelflow/travelflow-backend/pkg/database"
	"github.com/travelflow/travelflow-backend/pkg/errors"
)

const reportColumns = `
	id, organization_id, user_id, destination, purpose, start_date, end_date, status, total_amount,
	currency, approved_travel_id, reviewer_id, review_comment, submitted_at, closed_at, created_at, updated_at`

// ReportFilter narrows a report listing
type ReportFilter struct {
	OrganizationID string
	UserID         string
	Status         string
}

// ReportRepository handles expense report persistence
type ReportRepository struct {
	db *database.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *database.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create creates a new report
func (r *ReportRepository) Create(ctx context.Context, rep *domain.Report) error {
	if rep.ID == "" {
		rep.ID = uuid.New().String()
	}

	query := `
		INSERT INTO reports (id, organization_id, user_id, destination, purpose, start_date, end_date, status,
		                     total_amount, currency, approved_travel_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		rep.ID,
		rep.OrganizationID,
		rep.UserID,
		rep.Destination,
		rep.Purpose,
		rep.StartDate,
		rep.EndDate,
		rep.Status,
		rep.TotalAmount,
		rep.Currency,
		rep.ApprovedTravelID,
	).Scan(&rep.CreatedAt, &rep.UpdatedAt)

	return database.Classify(err, "report")
}

// GetByID gets a report by ID
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	var rep domain.Report
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`
	if err := r.db.Q(ctx).GetContext(ctx, &rep, query, id); err != nil {
		return nil, database.Classify(err, "report")
	}
	return &rep, nil
}

// LockByID gets a report and locks its row until the transaction ends
func (r *ReportRepository) LockByID(ctx context.Context, id string) (*domain.Report, error) {
	var rep domain.Report
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1 FOR UPDATE`
	if err := r.db.Q(ctx).GetContext(ctx, &rep, query, id); err != nil {
		return nil, database.Classify(err, "report")
	}
	return &rep, nil
}

// List lists reports newest first
func (r *ReportRepository) List(ctx context.Context, filter ReportFilter, limit, offset int) ([]*domain.Report, int64, error) {
	where := []string{"organization_id = $1"}
	args := []interface{}{filter.OrganizationID}

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	whereSQL := strings.Join(where, " AND ")

	var total int64
	if err := r.db.Q(ctx).GetContext(ctx, &total, `SELECT COUNT(*) FROM reports WHERE `+whereSQL, args...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM reports WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		reportColumns, whereSQL, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	reports := make([]*domain.Report, 0)
	if err := r.db.Q(ctx).SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

// Update writes the trip details of an editable report
func (r *ReportRepository) Update(ctx context.Context, rep *domain.Report) error {
	query := `
		UPDATE reports
		SET destination = $2, purpose = $3, start_date = $4, end_date = $5, currency = $6
		WHERE id = $1 AND status IN ('draft', 'open')
		RETURNING updated_at
	`
	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		rep.ID, rep.Destination, rep.Purpose, rep.StartDate, rep.EndDate, rep.Currency,
	).Scan(&rep.UpdatedAt)
	if err == sql.ErrNoRows {
		return errors.Conflict("report can no longer be edited")
	}
	return database.Classify(err, "report")
}

// SetTotal stores the recomputed total of a report
func (r *ReportRepository) SetTotal(ctx context.Context, id string, total decimal.Decimal) error {
	result, err := r.db.Q(ctx).ExecContext(ctx, `UPDATE reports SET total_amount = $2 WHERE id = $1`, id, total)
	if err != nil {
		return database.Classify(err, "report")
	}
	return expectOneRow(result, "report")
}

// Transition writes the review fields of rep if the stored status still
// equals from
func (r *ReportRepository) Transition(ctx context.Context, rep *domain.Report, from string) error {
	query := `
		UPDATE reports
		SET status = $3, submitted_at = $4, closed_at = $5, reviewer_id = $6, review_comment = $7
		WHERE id = $1 AND status = $2
		RETURNING updated_at
	`
	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		rep.ID,
		from,
		rep.Status,
		rep.SubmittedAt,
		rep.ClosedAt,
		rep.ReviewerID,
		rep.ReviewComment,
	).Scan(&rep.UpdatedAt)
	if err == sql.ErrNoRows {
		return errors.Conflict("report was changed concurrently")
	}
	return database.Classify(err, "report")
}

// Delete deletes an editable report with its expenses
func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Q(ctx).ExecContext(ctx, `DELETE FROM reports WHERE id = $1 AND status IN ('draft', 'open')`, id)
	if err != nil {
		return database.Classify(err, "report")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Conflict("report can no longer be deleted")
	}
	return nil
}

func expectOneRow(result sql.Result, resource string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFound(resource)
	}
	return nil
}
