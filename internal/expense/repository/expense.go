package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/travelflow/travelflow-backend/internal/expense/domain"
	"github.com/travelflow/travelflow-backend/pkg/database"
)

const expenseColumns = `
	id, organization_id, report_id, category, description, expense_date, amount, currency, exchange_rate,
	converted_amount, approval_status, payment_method, created_at, updated_at`

// ExpenseRepository handles expense persistence
type ExpenseRepository struct {
	db *database.DB
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *database.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create creates a new expense
func (r *ExpenseRepository) Create(ctx context.Context, e *domain.Expense) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}

	query := `
		INSERT INTO expenses (id, organization_id, report_id, category, description, expense_date, amount,
		                      currency, exchange_rate, converted_amount, approval_status, payment_method)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		e.ID,
		e.OrganizationID,
		e.ReportID,
		e.Category,
		e.Description,
		e.ExpenseDate,
		e.Amount,
		e.Currency,
		e.ExchangeRate,
		e.ConvertedAmount,
		e.ApprovalStatus,
		e.PaymentMethod,
	).Scan(&e.CreatedAt, &e.UpdatedAt)

	return database.Classify(err, "expense")
}

// GetByID gets an expense by ID
func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*domain.Expense, error) {
	var e domain.Expense
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1`
	if err := r.db.Q(ctx).GetContext(ctx, &e, query, id); err != nil {
		return nil, database.Classify(err, "expense")
	}
	return &e, nil
}

// ListByReport lists the expenses of a report by date
func (r *ExpenseRepository) ListByReport(ctx context.Context, reportID string) ([]*domain.Expense, error) {
	expenses := make([]*domain.Expense, 0)
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE report_id = $1 ORDER BY expense_date, created_at`
	if err := r.db.Q(ctx).SelectContext(ctx, &expenses, query, reportID); err != nil {
		return nil, err
	}
	return expenses, nil
}

// Update writes the editable fields of an expense
func (r *ExpenseRepository) Update(ctx context.Context, e *domain.Expense) error {
	query := `
		UPDATE expenses
		SET category = $2, description = $3, expense_date = $4, amount = $5, currency = $6,
		    exchange_rate = $7, converted_amount = $8, payment_method = $9
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		e.ID,
		e.Category,
		e.Description,
		e.ExpenseDate,
		e.Amount,
		e.Currency,
		e.ExchangeRate,
		e.ConvertedAmount,
		e.PaymentMethod,
	).Scan(&e.UpdatedAt)
	return database.Classify(err, "expense")
}

// SetApprovalStatus records the reviewer's decision on one expense
func (r *ExpenseRepository) SetApprovalStatus(ctx context.Context, id, status string) error {
	result, err := r.db.Q(ctx).ExecContext(ctx, `UPDATE expenses SET approval_status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return database.Classify(err, "expense")
	}
	return expectOneRow(result, "expense")
}

// ApprovePending approves every expense of a report still awaiting a decision
func (r *ExpenseRepository) ApprovePending(ctx context.Context, reportID string) error {
	_, err := r.db.Q(ctx).ExecContext(ctx,
		`UPDATE expenses SET approval_status = 'approved' WHERE report_id = $1 AND approval_status = 'pending'`, reportID)
	return err
}

// Delete deletes an expense and its receipts
func (r *ExpenseRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Q(ctx).ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return database.Classify(err, "expense")
	}
	return expectOneRow(result, "expense")
}
