package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/travelflow/travelflow-backend/internal/identity/domain"
	"github.com/travelflow/travelflow-backend/pkg/database"
)

var errNoRows = sql.ErrNoRows

const invitationColumns = `
	id, organization_id, code, role, manager_id, grade_id, expires_at, max_uses,
	use_count, is_used, created_by, created_at`

// InvitationRepository handles invitation code persistence
type InvitationRepository struct {
	db *database.DB
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db *database.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// Create creates a new invitation code. A code collision surfaces as a
// CONFLICT error so the caller can retry with a fresh code.
func (r *InvitationRepository) Create(ctx context.Context, inv *domain.InvitationCode) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}

	query := `
		INSERT INTO invitation_codes (id, organization_id, code, role, manager_id, grade_id,
		                              expires_at, max_uses, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING use_count, is_used, created_at
	`

	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		inv.ID,
		inv.OrganizationID,
		inv.Code,
		inv.Role,
		inv.ManagerID,
		inv.GradeID,
		inv.ExpiresAt,
		inv.MaxUses,
		inv.CreatedBy,
	).Scan(&inv.UseCount, &inv.IsUsed, &inv.CreatedAt)

	return database.Classify(err, "invitation code")
}

// GetByID gets an invitation code by ID
func (r *InvitationRepository) GetByID(ctx context.Context, id string) (*domain.InvitationCode, error) {
	var inv domain.InvitationCode
	query := `SELECT ` + invitationColumns + ` FROM invitation_codes WHERE id = $1`

	if err := r.db.Q(ctx).GetContext(ctx, &inv, query, id); err != nil {
		return nil, database.Classify(err, "invitation code")
	}
	return &inv, nil
}

// GetByCode gets an invitation code by its code
func (r *InvitationRepository) GetByCode(ctx context.Context, code string) (*domain.InvitationCode, error) {
	var inv domain.InvitationCode
	query := `SELECT ` + invitationColumns + ` FROM invitation_codes WHERE code = $1`

	if err := r.db.Q(ctx).GetContext(ctx, &inv, query, code); err != nil {
		return nil, database.Classify(err, "invitation code")
	}
	return &inv, nil
}

// LockByCode gets an invitation code and locks its row until the surrounding
// transaction ends. Concurrent redemptions of the same code serialize here.
func (r *InvitationRepository) LockByCode(ctx context.Context, code string) (*domain.InvitationCode, error) {
	var inv domain.InvitationCode
	query := `SELECT ` + invitationColumns + ` FROM invitation_codes WHERE code = $1 FOR UPDATE`

	if err := r.db.Q(ctx).GetContext(ctx, &inv, query, code); err != nil {
		return nil, database.Classify(err, "invitation code")
	}
	return &inv, nil
}

// List lists the invitation codes of an organization, newest first
func (r *InvitationRepository) List(ctx context.Context, organizationID string, limit, offset int) ([]*domain.InvitationCode, int64, error) {
	var total int64
	if err := r.db.Q(ctx).GetContext(ctx, &total,
		`SELECT COUNT(*) FROM invitation_codes WHERE organization_id = $1`, organizationID); err != nil {
		return nil, 0, err
	}

	codes := make([]*domain.InvitationCode, 0)
	query := `SELECT ` + invitationColumns + ` FROM invitation_codes
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	if err := r.db.Q(ctx).SelectContext(ctx, &codes, query, organizationID, limit, offset); err != nil {
		return nil, 0, err
	}
	return codes, total, nil
}

// Delete deletes an invitation code
func (r *InvitationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Q(ctx).ExecContext(ctx, `DELETE FROM invitation_codes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(result, "invitation code")
}

// RecordUse increments use_count and sets is_used once the last use is
// consumed. The update only applies while uses remain.
func (r *InvitationRepository) RecordUse(ctx context.Context, id string) (*domain.InvitationCode, error) {
	var inv domain.InvitationCode
	query := `
		UPDATE invitation_codes
		SET use_count = use_count + 1,
		    is_used = (use_count + 1 >= max_uses)
		WHERE id = $1 AND NOT is_used AND use_count < max_uses
		RETURNING ` + invitationColumns

	if err := r.db.Q(ctx).GetContext(ctx, &inv, query, id); err != nil {
		return nil, database.Classify(err, "invitation code")
	}
	return &inv, nil
}
