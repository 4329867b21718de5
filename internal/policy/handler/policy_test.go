package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelflow/travelflow-backend/internal/policy/domain"
	"github.com/travelflow/travelflow-backend/internal/policy/handler"
	"github.com/travelflow/travelflow-backend/internal/policy/service"
	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
	"github.com/travelflow/travelflow-backend/pkg/testutil"
)

type stubRules struct {
	service.RuleStore
	rules []*domain.PolicyRule
}

func (s *stubRules) List(ctx context.Context, organizationID string) ([]*domain.PolicyRule, error) {
	return s.rules, nil
}

func newRouter(rules *stubRules) chi.Router {
	svc := service.NewPolicyService(nil, rules, nil, nil, &testutil.NoopTransactor{}, nil, logger.Nop())
	r := chi.NewRouter()
	r.Route("/policy", handler.NewPolicyHandler(svc, logger.Nop()).Routes)
	return r
}

func TestPolicyHandler_ListRulesForAnyMember(t *testing.T) {
	router := newRouter(&stubRules{rules: []*domain.PolicyRule{
		{ID: "r1", Category: domain.CategoryFood, LimitAmount: testutil.Dec("42.50"), LimitUnit: domain.UnitPerDay},
	}})

	req := testutil.NewHTTPRequest(http.MethodGet, "/policy/rules", nil)
	req = testutil.WithActor(req, testutil.NewActor("u1", "o1", permissions.RoleUser))

	rr := testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var rules []domain.PolicyRule
	testutil.ParseJSONBody(t, rr, &rules)
	require.Len(t, rules, 1)
	testutil.AssertDecimal(t, "42.5", rules[0].LimitAmount)
}

func TestPolicyHandler_WritesRequirePolicyPermission(t *testing.T) {
	router := newRouter(&stubRules{})

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/policy/grades"},
		{http.MethodPut, "/policy/rules/r1"},
		{http.MethodDelete, "/policy/restrictions/x1"},
		{http.MethodPost, "/policy/custom-rules"},
	}

	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			req := testutil.NewHTTPRequest(p.method, p.path, map[string]string{"name": "x"})
			req = testutil.WithActor(req, testutil.NewActor("m1", "o1", permissions.RoleManager))

			rr := testutil.ExecuteRequest(router, req)
			testutil.AssertStatus(t, rr, http.StatusForbidden)
		})
	}
}

func TestPolicyHandler_CreateRuleValidatesEnums(t *testing.T) {
	router := newRouter(&stubRules{})

	body := map[string]interface{}{
		"destination_type": "orbital",
		"category":         "food",
		"limit_amount":     "40",
	}
	req := testutil.NewHTTPRequest(http.MethodPost, "/policy/rules", body)
	req = testutil.WithActor(req, testutil.NewActor("a1", "o1", permissions.RoleOrgAdmin))

	rr := testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	assert.Equal(t, "VALIDATION_ERROR", testutil.ErrorCode(t, rr))
}
