package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/travelflow/travelflow-backend/internal/audit/domain"
	"github.com/travelflow/travelflow-backend/pkg/database"
)

// AuditRepository handles policy audit log persistence
type AuditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends an audit entry. It joins the transaction carried by ctx so
// the entry commits or rolls back together with the change it describes.
func (r *AuditRepository) Create(ctx context.Context, entry *domain.Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	oldJSON, err := marshalValues(entry.OldValues)
	if err != nil {
		return err
	}
	newJSON, err := marshalValues(entry.NewValues)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO policy_audit_logs (id, organization_id, entity_type, entity_id, action,
		                               old_values, new_values, actor_id, actor_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	return r.db.Q(ctx).QueryRowxContext(ctx, query,
		entry.ID,
		entry.OrganizationID,
		entry.EntityType,
		entry.EntityID,
		entry.Action,
		oldJSON,
		newJSON,
		entry.ActorID,
		entry.ActorName,
	).Scan(&entry.CreatedAt)
}

// List lists audit entries newest first with filtering and pagination
func (r *AuditRepository) List(ctx context.Context, filter *domain.Filter, limit, offset int) ([]*domain.Entry, int64, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	add := func(clause string, value interface{}) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter != nil {
		if filter.EntityType != "" {
			add("entity_type = $%d", filter.EntityType)
		}
		if filter.Action != "" {
			add("action = $%d", filter.Action)
		}
		if filter.ActorID != "" {
			add("actor_id = $%d", filter.ActorID)
		}
		if filter.Search != "" {
			args = append(args, "%"+filter.Search+"%")
			n := len(args)
			where = append(where, fmt.Sprintf(
				"(entity_type ILIKE $%d OR actor_name ILIKE $%d OR old_values::text ILIKE $%d OR new_values::text ILIKE $%d)",
				n, n, n, n))
		}
		if filter.From != nil {
			add("created_at >= $%d", *filter.From)
		}
		if filter.To != nil {
			add("created_at <= $%d", *filter.To)
		}
	}

	whereSQL := strings.Join(where, " AND ")

	var total int64
	if err := r.db.Q(ctx).GetContext(ctx, &total, `SELECT COUNT(*) FROM policy_audit_logs WHERE `+whereSQL, args...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT id, organization_id, entity_type, entity_id, action, old_values, new_values,
		       actor_id, actor_name, created_at
		FROM policy_audit_logs
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereSQL, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Q(ctx).QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := make([]*domain.Entry, 0)
	for rows.Next() {
		var e domain.Entry
		var oldJSON, newJSON []byte

		if err := rows.Scan(
			&e.ID, &e.OrganizationID, &e.EntityType, &e.EntityID, &e.Action,
			&oldJSON, &newJSON, &e.ActorID, &e.ActorName, &e.CreatedAt,
		); err != nil {
			return nil, 0, err
		}

		if len(oldJSON) > 0 {
			json.Unmarshal(oldJSON, &e.OldValues)
		}
		if len(newJSON) > 0 {
			json.Unmarshal(newJSON, &e.NewValues)
		}

		entries = append(entries, &e)
	}

	return entries, total, rows.Err()
}

func marshalValues(values map[string]interface{}) ([]byte, error) {
	if values == nil {
		return nil, nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audit snapshot: %w", err)
	}
	return raw, nil
}
