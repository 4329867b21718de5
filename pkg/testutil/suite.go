package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/travelflow/travelflow-backend/pkg/actor"
	"github.com/travelflow/travelflow-backend/pkg/database"
	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
	"github.com/travelflow/travelflow-backend/pkg/tenant"
)

var (
	globalContainer *PostgresContainer
	globalDB        *sqlx.DB
	containerOnce   sync.Once
	containerErr    error
)

// IntegrationSuite provides a base for integration tests with real PostgreSQL.
// Every test creates its own organization, so tests never see each other's rows.
//
// Usage:
//
//	var suite *testutil.IntegrationSuite
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    s, err := testutil.NewIntegrationSuite(ctx)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    suite = s
//	    code := m.Run()
//	    testutil.TerminateContainer(ctx)
//	    os.Exit(code)
//	}
type IntegrationSuite struct {
	Container *PostgresContainer
	RawDB     *sqlx.DB
	DB        *database.DB
	Logger    *logger.Logger
}

// NewIntegrationSuite creates a new integration test suite sharing one container.
func NewIntegrationSuite(ctx context.Context) (*IntegrationSuite, error) {
	container, db, err := getOrCreateContainer(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.Nop()
	wrappedDB, err := database.NewWithDSN(container.DSN, log)
	if err != nil {
		return nil, err
	}

	return &IntegrationSuite{
		Container: container,
		RawDB:     db,
		DB:        wrappedDB,
		Logger:    log,
	}, nil
}

func getOrCreateContainer(ctx context.Context) (*PostgresContainer, *sqlx.DB, error) {
	containerOnce.Do(func() {
		globalContainer, containerErr = NewPostgresContainer(ctx, DefaultPostgresConfig())
		if containerErr != nil {
			return
		}
		globalDB, containerErr = globalContainer.Connect(ctx)
	})

	return globalContainer, globalDB, containerErr
}

// TestOrganization is an organization created for one test
type TestOrganization struct {
	ID      string
	Name    string
	AdminID string
}

// SetupOrganization inserts an organization with one org_admin profile and
// removes it again when the test ends.
func (s *IntegrationSuite) SetupOrganization(t *testing.T, ctx context.Context) *TestOrganization {
	t.Helper()

	org := &TestOrganization{
		ID:      uuid.New().String(),
		Name:    "Test Org " + uuid.New().String()[:8],
		AdminID: uuid.New().String(),
	}

	_, err := s.RawDB.ExecContext(ctx,
		`INSERT INTO organizations (id, name) VALUES ($1, $2)`, org.ID, org.Name)
	if err != nil {
		t.Fatalf("failed to create organization: %v", err)
	}

	_, err = s.RawDB.ExecContext(ctx,
		`INSERT INTO profiles (id, organization_id, email, password_hash, full_name) VALUES ($1, $2, $3, 'x', 'Org Admin')`,
		org.AdminID, org.ID, fmt.Sprintf("admin-%s@example.com", org.ID[:8]))
	if err != nil {
		t.Fatalf("failed to create admin profile: %v", err)
	}

	_, err = s.RawDB.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, organization_id, role) VALUES ($1, $2, 'org_admin')`, org.AdminID, org.ID)
	if err != nil {
		t.Fatalf("failed to grant admin role: %v", err)
	}

	t.Cleanup(func() {
		if _, err := s.RawDB.ExecContext(context.Background(), `DELETE FROM organizations WHERE id = $1`, org.ID); err != nil {
			t.Logf("warning: failed to drop organization %s: %v", org.ID, err)
		}
	})

	return org
}

// OrganizationContext returns a context scoped to org and acting as its admin
func (s *IntegrationSuite) OrganizationContext(org *TestOrganization) context.Context {
	ctx := tenant.WithOrganization(context.Background(), org.ID, org.Name)
	return actor.WithActor(ctx, &actor.Actor{
		ID:             org.AdminID,
		FullName:       "Org Admin",
		OrganizationID: org.ID,
		Roles:          []string{permissions.RoleOrgAdmin},
		Permissions:    permissions.ForRoles([]string{permissions.RoleOrgAdmin}),
	})
}

// TerminateContainer terminates the shared container.
// Only call this in TestMain after all tests have completed.
func TerminateContainer(ctx context.Context) {
	if globalContainer != nil {
		globalContainer.Terminate(ctx)
	}
}
