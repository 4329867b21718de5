package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/travelflow/travelflow-backend/internal/policy/domain"
	"github.com/travelflow/travelflow-backend/pkg/database"
)

// GradeRepository handles employee grade persistence
type GradeRepository struct {
	db *database.DB
}

// NewGradeRepository creates a new grade repository
func NewGradeRepository(db *database.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// Create creates a new grade
func (r *GradeRepository) Create(ctx context.Context, g *domain.EmployeeGrade) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}

	query := `
		INSERT INTO employee_grades (id, organization_id, name, level, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		g.ID, g.OrganizationID, g.Name, g.Level, g.Description,
	).Scan(&g.CreatedAt, &g.UpdatedAt)

	return database.Classify(err, "employee grade")
}

// GetByID gets a grade by ID
func (r *GradeRepository) GetByID(ctx context.Context, id string) (*domain.EmployeeGrade, error) {
	var g domain.EmployeeGrade
	query := `
		SELECT id, organization_id, name, level, description, created_at, updated_at
		FROM employee_grades WHERE id = $1
	`
	if err := r.db.Q(ctx).GetContext(ctx, &g, query, id); err != nil {
		return nil, database.Classify(err, "employee grade")
	}
	return &g, nil
}

// List lists the grades of an organization ordered by level
func (r *GradeRepository) List(ctx context.Context, organizationID string) ([]*domain.EmployeeGrade, error) {
	grades := make([]*domain.EmployeeGrade, 0)
	query := `
		SELECT id, organization_id, name, level, description, created_at, updated_at
		FROM employee_grades
		WHERE organization_id = $1
		ORDER BY level, name
	`
	if err := r.db.Q(ctx).SelectContext(ctx, &grades, query, organizationID); err != nil {
		return nil, err
	}
	return grades, nil
}

// Update updates a grade
func (r *GradeRepository) Update(ctx context.Context, g *domain.EmployeeGrade) error {
	query := `
		UPDATE employee_grades SET name = $2, level = $3, description = $4
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.Q(ctx).QueryRowxContext(ctx, query, g.ID, g.Name, g.Level, g.Description).Scan(&g.UpdatedAt)
	return database.Classify(err, "employee grade")
}

// Delete deletes a grade. Rules scoped to it are removed by cascade.
func (r *GradeRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Q(ctx).ExecContext(ctx, `DELETE FROM employee_grades WHERE id = $1`, id)
	if err != nil {
		return database.Classify(err, "employee grade")
	}
	return expectAffected(result, "employee grade")
}
