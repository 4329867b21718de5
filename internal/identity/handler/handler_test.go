package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelflow/travelflow-backend/internal/identity/domain"
	"github.com/travelflow/travelflow-backend/internal/identity/handler"
	"github.com/travelflow/travelflow-backend/internal/identity/service"
	"github.com/travelflow/travelflow-backend/pkg/errors"
	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
	"github.com/travelflow/travelflow-backend/pkg/testutil"
)

// stubInvitations serves a single code; everything else is not found
type stubInvitations struct {
	service.InvitationStore
	code *domain.InvitationCode
}

func (s *stubInvitations) GetByCode(ctx context.Context, code string) (*domain.InvitationCode, error) {
	if s.code == nil || s.code.Code != code {
		return nil, errors.NotFound("invitation code")
	}
	return s.code, nil
}

type stubOrgs struct {
	service.OrganizationStore
	org *domain.Organization
}

func (s *stubOrgs) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	if s.org == nil || s.org.ID != id {
		return nil, errors.NotFound("organization")
	}
	return s.org, nil
}

func invitationRouter(inv *domain.InvitationCode) chi.Router {
	org := &domain.Organization{ID: "o1", Name: "Acme Travel"}
	svc := service.NewInvitationService(&stubInvitations{code: inv}, nil, &stubOrgs{org: org}, &testutil.NoopTransactor{}, logger.Nop())
	h := handler.NewInvitationHandler(svc, logger.Nop())

	r := chi.NewRouter()
	r.Route("/public/invitations", h.PublicRoutes)
	r.Route("/invitations", h.Routes)
	return r
}

// ============================================================================
// INVITATION HANDLER TESTS
// ============================================================================

func TestInvitationHandler_LookupIsPublic(t *testing.T) {
	router := invitationRouter(&domain.InvitationCode{
		ID:             "i1",
		OrganizationID: "o1",
		Code:           "ABCD2345",
		Role:           permissions.RoleManager,
		MaxUses:        1,
		ExpiresAt:      time.Now().Add(time.Hour),
	})

	rr := testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodGet, "/public/invitations/abcd2345", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)

	var info domain.InvitationPublicInfo
	testutil.ParseJSONBody(t, rr, &info)
	assert.Equal(t, "Acme Travel", info.OrganizationName)
	assert.Equal(t, permissions.RoleManager, info.Role)
	assert.True(t, info.IsValid)
}

func TestInvitationHandler_LookupUnknownCode(t *testing.T) {
	router := invitationRouter(nil)

	rr := testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodGet, "/public/invitations/ZZZZ9999", nil))
	testutil.AssertStatus(t, rr, http.StatusNotFound)
	assert.Equal(t, "NOT_FOUND", testutil.ErrorCode(t, rr))
}

func TestInvitationHandler_RedeemValidatesBody(t *testing.T) {
	router := invitationRouter(nil)

	body := map[string]string{"email": "not-an-email", "password": "short", "full_name": "New Hire"}
	rr := testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodPost, "/public/invitations/ABCD2345/redeem", body))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	assert.Equal(t, "VALIDATION_ERROR", testutil.ErrorCode(t, rr))
}

func TestInvitationHandler_CreateRequiresPermission(t *testing.T) {
	router := invitationRouter(nil)

	req := testutil.NewHTTPRequest(http.MethodPost, "/invitations", map[string]string{"role": "user"})
	req = testutil.WithActor(req, testutil.NewActor("u1", "o1", permissions.RoleUser))

	rr := testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusForbidden)
}

func TestInvitationHandler_CreateRejectsUnknownRole(t *testing.T) {
	router := invitationRouter(nil)

	req := testutil.NewHTTPRequest(http.MethodPost, "/invitations", map[string]string{"role": "superuser"})
	req = testutil.WithActor(req, testutil.NewActor("u1", "o1", permissions.RoleOrgAdmin))

	rr := testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	assert.Equal(t, "VALIDATION_ERROR", testutil.ErrorCode(t, rr))
}

// ============================================================================
// USER HANDLER TESTS
// ============================================================================

func TestUserHandler_PermissionGuards(t *testing.T) {
	h := handler.NewUserHandler(service.NewUserService(nil, &testutil.NoopTransactor{}, logger.Nop()), logger.Nop())
	r := chi.NewRouter()
	r.Route("/users", h.Routes)

	tests := []struct {
		name   string
		method string
		path   string
		role   string
	}{
		{"user cannot list members", http.MethodGet, "/users", permissions.RoleUser},
		{"manager cannot reassign", http.MethodPatch, "/users/u2/assignment", permissions.RoleManager},
		{"manager cannot grant roles", http.MethodPost, "/users/u2/roles", permissions.RoleManager},
		{"accounting manager cannot deactivate", http.MethodPost, "/users/u2/deactivate", permissions.RoleAccountingManager},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewHTTPRequest(tt.method, tt.path, map[string]string{"role": "user"})
			req = testutil.WithActor(req, testutil.NewActor("u1", "o1", tt.role))

			rr := testutil.ExecuteRequest(r, req)
			testutil.AssertStatus(t, rr, http.StatusForbidden)
		})
	}
}

// ============================================================================
// AUTH AND ORGANIZATION HANDLER TESTS
// ============================================================================

func TestAuthHandler_LoginValidatesBody(t *testing.T) {
	h := handler.NewAuthHandler(service.NewAuthService(nil, nil, nil, logger.Nop()), logger.Nop())

	rr := testutil.ExecuteRequest(http.HandlerFunc(h.Login), testutil.NewHTTPRequest(http.MethodPost, "/auth/login", map[string]string{"password": "secret123"}))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	assert.Equal(t, "VALIDATION_ERROR", testutil.ErrorCode(t, rr))
}

func TestOrganizationHandler_SettingsRequireAdmin(t *testing.T) {
	org := &domain.Organization{ID: "o1", Name: "Acme", AccountingType: domain.AccountingInternal, DefaultCurrency: "EUR"}
	svc := service.NewOrganizationService(&stubOrgs{org: org}, nil, &testutil.NoopTransactor{}, nil, logger.Nop())
	h := handler.NewOrganizationHandler(svc, logger.Nop())

	r := chi.NewRouter()
	r.Route("/organization", h.Routes)

	req := testutil.NewHTTPRequest(http.MethodGet, "/organization", nil)
	req = testutil.WithActor(req, testutil.NewActor("u1", "o1", permissions.RoleUser))
	rr := testutil.ExecuteRequest(r, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var got domain.Organization
	testutil.ParseJSONBody(t, rr, &got)
	require.Equal(t, "Acme", got.Name)

	req = testutil.NewHTTPRequest(http.MethodPatch, "/organization", map[string]string{"name": "Renamed"})
	req = testutil.WithActor(req, testutil.NewActor("u1", "o1", permissions.RoleManager))
	rr = testutil.ExecuteRequest(r, req)
	testutil.AssertStatus(t, rr, http.StatusForbidden)
}
