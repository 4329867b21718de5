package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/travelflow/travelflow-backend/internal/expense/domain"
	"github.com/travelflow/travelflow-backend/pkg/database"
)

const receiptColumns = `id, organization_id, expense_id, file_path, file_type, is_private, created_at`

// ReceiptRepository handles receipt persistence
type ReceiptRepository struct {
	db *database.DB
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *database.DB) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

// Create attaches a receipt to an expense
func (r *ReceiptRepository) Create(ctx context.Context, rec *domain.Receipt) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	query := `
		INSERT INTO receipts (id, organization_id, expense_id, file_path, file_type, is_private)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		rec.ID, rec.OrganizationID, rec.ExpenseID, rec.FilePath, rec.FileType, rec.IsPrivate,
	).Scan(&rec.CreatedAt)
	return database.Classify(err, "receipt")
}

// GetByID gets a receipt by ID
func (r *ReceiptRepository) GetByID(ctx context.Context, id string) (*domain.Receipt, error) {
	var rec domain.Receipt
	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE id = $1`
	if err := r.db.Q(ctx).GetContext(ctx, &rec, query, id); err != nil {
		return nil, database.Classify(err, "receipt")
	}
	return &rec, nil
}

// ListByExpenses lists the receipts of several expenses
func (r *ReceiptRepository) ListByExpenses(ctx context.Context, expenseIDs []string) ([]*domain.Receipt, error) {
	receipts := make([]*domain.Receipt, 0)
	if len(expenseIDs) == 0 {
		return receipts, nil
	}
	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE expense_id = ANY($1) ORDER BY created_at`
	if err := r.db.Q(ctx).SelectContext(ctx, &receipts, query, pq.Array(expenseIDs)); err != nil {
		return nil, err
	}
	return receipts, nil
}

// Delete deletes a receipt
func (r *ReceiptRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Q(ctx).ExecContext(ctx, `DELETE FROM receipts WHERE id = $1`, id)
	if err != nil {
		return database.Classify(err, "receipt")
	}
	return expectOneRow(result, "receipt")
}
