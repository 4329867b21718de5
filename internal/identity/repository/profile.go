package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/travelflow/travelflow-backend/internal/identity/domain"
	"github.com/travelflow/travelflow-backend/pkg/database"
)

const profileColumns = `
	p.id, p.organization_id, p.email, p.password_hash, p.full_name, p.manager_id, p.grade_id,
	p.is_active, p.last_login_at, p.created_at, p.updated_at`

// ProfileRepository handles profile and role persistence
type ProfileRepository struct {
	db *database.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create creates a new profile
func (r *ProfileRepository) Create(ctx context.Context, p *domain.Profile) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	query := `
		INSERT INTO profiles (id, organization_id, email, password_hash, full_name, manager_id, grade_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		p.ID,
		p.OrganizationID,
		p.Email,
		p.PasswordHash,
		p.FullName,
		p.ManagerID,
		p.GradeID,
		p.IsActive,
	).Scan(&p.CreatedAt, &p.UpdatedAt)

	return database.Classify(err, "profile")
}

// GetByID gets a profile with its roles
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	var p domain.Profile
	query := `SELECT ` + profileColumns + ` FROM profiles p WHERE p.id = $1`

	if err := r.db.Q(ctx).GetContext(ctx, &p, query, id); err != nil {
		return nil, database.Classify(err, "profile")
	}

	roles, err := r.Roles(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Roles = roles

	return &p, nil
}

// GetByEmail gets a profile by email (case-insensitive) with its roles
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	var p domain.Profile
	query := `SELECT ` + profileColumns + ` FROM profiles p WHERE LOWER(p.email) = LOWER($1)`

	if err := r.db.Q(ctx).GetContext(ctx, &p, query, email); err != nil {
		return nil, database.Classify(err, "profile")
	}

	roles, err := r.Roles(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Roles = roles

	return &p, nil
}

// List lists the profiles of an organization ordered by name
func (r *ProfileRepository) List(ctx context.Context, organizationID string, limit, offset int) ([]*domain.Profile, int64, error) {
	var total int64
	if err := r.db.Q(ctx).GetContext(ctx, &total,
		`SELECT COUNT(*) FROM profiles WHERE organization_id = $1`, organizationID); err != nil {
		return nil, 0, err
	}

	profiles := make([]*domain.Profile, 0)
	query := `SELECT ` + profileColumns + ` FROM profiles p
		WHERE p.organization_id = $1
		ORDER BY p.full_name
		LIMIT $2 OFFSET $3`

	if err := r.db.Q(ctx).SelectContext(ctx, &profiles, query, organizationID, limit, offset); err != nil {
		return nil, 0, err
	}

	if err := r.attachRoles(ctx, profiles); err != nil {
		return nil, 0, err
	}

	return profiles, total, nil
}

// ListActiveByRole lists the active profiles of an organization holding role
func (r *ProfileRepository) ListActiveByRole(ctx context.Context, organizationID, role string) ([]*domain.Profile, error) {
	profiles := make([]*domain.Profile, 0)
	query := `SELECT ` + profileColumns + ` FROM profiles p
		JOIN user_roles ur ON ur.user_id = p.id
		WHERE p.organization_id = $1 AND ur.role = $2 AND p.is_active
		ORDER BY p.created_at`

	if err := r.db.Q(ctx).SelectContext(ctx, &profiles, query, organizationID, role); err != nil {
		return nil, err
	}

	if err := r.attachRoles(ctx, profiles); err != nil {
		return nil, err
	}

	return profiles, nil
}

// UpdateAssignment sets manager and grade of a profile
func (r *ProfileRepository) UpdateAssignment(ctx context.Context, id string, managerID, gradeID *string) error {
	result, err := r.db.Q(ctx).ExecContext(ctx,
		`UPDATE profiles SET manager_id = $2, grade_id = $3 WHERE id = $1`, id, managerID, gradeID)
	if err != nil {
		return database.Classify(err, "profile")
	}
	return expectOneRow(result, "profile")
}

// SetActive activates or deactivates a profile
func (r *ProfileRepository) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.Q(ctx).ExecContext(ctx, `UPDATE profiles SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	return expectOneRow(result, "profile")
}

// TouchLastLogin records a successful login
func (r *ProfileRepository) TouchLastLogin(ctx context.Context, id string) error {
	_, err := r.db.Q(ctx).ExecContext(ctx, `UPDATE profiles SET last_login_at = NOW() WHERE id = $1`, id)
	return err
}

// Roles returns the roles of a user ordered by name
func (r *ProfileRepository) Roles(ctx context.Context, userID string) ([]string, error) {
	roles := make([]string, 0)
	if err := r.db.Q(ctx).SelectContext(ctx, &roles,
		`SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, userID); err != nil {
		return nil, err
	}
	return roles, nil
}

// GrantRole grants role to a user. Granting a held role is a no-op.
func (r *ProfileRepository) GrantRole(ctx context.Context, userID, organizationID, role string) error {
	_, err := r.db.Q(ctx).ExecContext(ctx, `
		INSERT INTO user_roles (user_id, organization_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, role) DO NOTHING
	`, userID, organizationID, role)
	return database.Classify(err, "role")
}

// RevokeRole revokes role from a user
func (r *ProfileRepository) RevokeRole(ctx context.Context, userID, role string) error {
	result, err := r.db.Q(ctx).ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = $1 AND role = $2`, userID, role)
	if err != nil {
		return err
	}
	return expectOneRow(result, "role")
}

func (r *ProfileRepository) attachRoles(ctx context.Context, profiles []*domain.Profile) error {
	if len(profiles) == 0 {
		return nil
	}

	ids := make([]string, len(profiles))
	byID := make(map[string]*domain.Profile, len(profiles))
	for i, p := range profiles {
		ids[i] = p.ID
		p.Roles = make([]string, 0)
		byID[p.ID] = p
	}

	rows, err := r.db.Q(ctx).QueryxContext(ctx,
		`SELECT user_id, role FROM user_roles WHERE user_id = ANY($1) ORDER BY role`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var userID, role string
		if err := rows.Scan(&userID, &role); err != nil {
			return err
		}
		if p, ok := byID[userID]; ok {
			p.Roles = append(p.Roles, role)
		}
	}

	return rows.Err()
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func expectOneRow(result rowsAffecter, resource string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return database.Classify(errNoRows, resource)
	}
	return nil
}
