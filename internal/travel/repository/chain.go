package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/travelflow/travelflow-backend/internal/travel/domain"
	"github.com/travelflow/travelflow-backend/pkg/database"
	"github.com/travelflow/travelflow-backend/pkg/errors"
)

const chainColumns = `id, organization_id, name, is_default, created_at, updated_at`

// ChainRepository handles approval chain persistence
type ChainRepository struct {
	db *database.DB
}

// NewChainRepository creates a new approval chain repository
func NewChainRepository(db *database.DB) *ChainRepository {
	return &ChainRepository{db: db}
}

// Create inserts a chain with its levels. Run it inside a transaction.
func (r *ChainRepository) Create(ctx context.Context, c *domain.ApprovalChain) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	query := `
		INSERT INTO approval_chains (id, organization_id, name, is_default)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	err := r.db.Q(ctx).QueryRowxContext(ctx, query, c.ID, c.OrganizationID, c.Name, c.IsDefault).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return database.Classify(err, "approval chain")
	}

	return r.insertLevels(ctx, c)
}

// GetByID gets a chain with its levels
func (r *ChainRepository) GetByID(ctx context.Context, id string) (*domain.ApprovalChain, error) {
	var c domain.ApprovalChain
	query := `SELECT ` + chainColumns + ` FROM approval_chains WHERE id = $1`
	if err := r.db.Q(ctx).GetContext(ctx, &c, query, id); err != nil {
		return nil, database.Classify(err, "approval chain")
	}
	if err := r.attachLevels(ctx, []*domain.ApprovalChain{&c}); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetDefault gets the default chain of an organization, NOT_FOUND if unset
func (r *ChainRepository) GetDefault(ctx context.Context, organizationID string) (*domain.ApprovalChain, error) {
	var c domain.ApprovalChain
	query := `SELECT ` + chainColumns + ` FROM approval_chains WHERE organization_id = $1 AND is_default`
	if err := r.db.Q(ctx).GetContext(ctx, &c, query, organizationID); err != nil {
		return nil, database.Classify(err, "approval chain")
	}
	if err := r.attachLevels(ctx, []*domain.ApprovalChain{&c}); err != nil {
		return nil, err
	}
	return &c, nil
}

// List lists the chains of an organization
func (r *ChainRepository) List(ctx context.Context, organizationID string) ([]*domain.ApprovalChain, error) {
	chains := make([]*domain.ApprovalChain, 0)
	query := `SELECT ` + chainColumns + ` FROM approval_chains WHERE organization_id = $1 ORDER BY is_default DESC, name`
	if err := r.db.Q(ctx).SelectContext(ctx, &chains, query, organizationID); err != nil {
		return nil, err
	}
	if err := r.attachLevels(ctx, chains); err != nil {
		return nil, err
	}
	return chains, nil
}

// Update renames a chain and replaces its levels. Run it inside a transaction.
func (r *ChainRepository) Update(ctx context.Context, c *domain.ApprovalChain) error {
	query := `UPDATE approval_chains SET name = $2, is_default = $3 WHERE id = $1 RETURNING updated_at`
	if err := r.db.Q(ctx).QueryRowxContext(ctx, query, c.ID, c.Name, c.IsDefault).Scan(&c.UpdatedAt); err != nil {
		return database.Classify(err, "approval chain")
	}

	if _, err := r.db.Q(ctx).ExecContext(ctx, `DELETE FROM approval_chain_levels WHERE chain_id = $1`, c.ID); err != nil {
		return err
	}
	return r.insertLevels(ctx, c)
}

// ClearDefault unsets the default flag on every chain of the organization
func (r *ChainRepository) ClearDefault(ctx context.Context, organizationID string) error {
	_, err := r.db.Q(ctx).ExecContext(ctx,
		`UPDATE approval_chains SET is_default = FALSE WHERE organization_id = $1 AND is_default`, organizationID)
	return err
}

// Delete deletes a chain and its levels
func (r *ChainRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Q(ctx).ExecContext(ctx, `DELETE FROM approval_chains WHERE id = $1`, id)
	if err != nil {
		return database.Classify(err, "approval chain")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFound("approval chain")
	}
	return nil
}

func (r *ChainRepository) insertLevels(ctx context.Context, c *domain.ApprovalChain) error {
	query := `
		INSERT INTO approval_chain_levels (id, chain_id, level, approver_type, approver_role, approver_id,
		                                   can_skip_if_approved_amount_under)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, l := range c.Levels {
		l.ID = uuid.New().String()
		l.ChainID = c.ID
		if _, err := r.db.Q(ctx).ExecContext(ctx, query,
			l.ID, l.ChainID, l.Level, l.ApproverType, l.ApproverRole, l.ApproverID, l.CanSkipIfApprovedAmountUnder,
		); err != nil {
			return database.Classify(err, "approval chain level")
		}
	}
	return nil
}

func (r *ChainRepository) attachLevels(ctx context.Context, chains []*domain.ApprovalChain) error {
	if len(chains) == 0 {
		return nil
	}

	ids := make([]string, len(chains))
	byID := make(map[string]*domain.ApprovalChain, len(chains))
	for i, c := range chains {
		ids[i] = c.ID
		byID[c.ID] = c
		c.Levels = make([]*domain.ChainLevel, 0)
	}

	levels := make([]*domain.ChainLevel, 0)
	query := `
		SELECT id, chain_id, level, approver_type, approver_role, approver_id, can_skip_if_approved_amount_under
		FROM approval_chain_levels
		WHERE chain_id = ANY($1)
		ORDER BY chain_id, level
	`
	if err := r.db.Q(ctx).SelectContext(ctx, &levels, query, pq.Array(ids)); err != nil {
		return err
	}

	for _, l := range levels {
		if c, ok := byID[l.ChainID]; ok {
			c.Levels = append(c.Levels, l)
		}
	}
	return nil
}
