package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/travelflow/travelflow-backend/pkg/errors"
	"github.com/travelflow/travelflow-backend/pkg/tenant"
)

type txKey struct{}

// WithTenantRLS runs fn inside a transaction scoped to one organization.
//
// The transaction sets app.current_org with set_config(..., true) so the
// value disappears at commit; the row level security policies compare
// organization_id against it. The transaction is stored in the context
// handed to fn and every repository call made through Q joins it.
//
// Nested calls reuse the outer transaction.
func (db *DB) WithTenantRLS(ctx context.Context, organizationID string, fn func(context.Context) error) error {
	if getTx(ctx) != nil {
		return fn(ctx)
	}

	return db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT set_config('app.current_org', $1, true)", organizationID); err != nil {
			return fmt.Errorf("failed to set app.current_org to %s: %w", organizationID, err)
		}

		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// WithTenant is WithTenantRLS for the organization carried by ctx.
func (db *DB) WithTenant(ctx context.Context, fn func(context.Context) error) error {
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return errors.Unauthorized("organization context required")
	}
	return db.WithTenantRLS(ctx, orgID, fn)
}

func getTx(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}

// InTransaction reports whether ctx carries an open transaction.
func InTransaction(ctx context.Context) bool {
	return getTx(ctx) != nil
}
