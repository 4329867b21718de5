package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelflow/travelflow-backend/pkg/actor"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
	"github.com/travelflow/travelflow-backend/pkg/tenant"
)

// NewActor builds a session for the given roles
func NewActor(id, organizationID string, roles ...string) *actor.Actor {
	return &actor.Actor{
		ID:             id,
		FullName:       "User " + id,
		Email:          id + "@example.com",
		OrganizationID: organizationID,
		Roles:          roles,
		Permissions:    permissions.ForRoles(roles),
	}
}

// ActorContext returns a context carrying a and its organization
func ActorContext(a *actor.Actor) context.Context {
	ctx := tenant.WithOrganizationID(context.Background(), a.OrganizationID)
	return actor.WithActor(ctx, a)
}

// NewHTTPRequest creates a new HTTP request for testing handlers
func NewHTTPRequest(method, path string, body interface{}) *http.Request {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// WithActor attaches a session to the request as the auth middleware would
func WithActor(req *http.Request, a *actor.Actor) *http.Request {
	ctx := tenant.WithOrganizationID(req.Context(), a.OrganizationID)
	return req.WithContext(actor.WithActor(ctx, a))
}

// ExecuteRequest executes an HTTP request and returns the response recorder
func ExecuteRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// AssertStatus asserts the response status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	assert.Equal(t, expected, rr.Code, "unexpected status, body: %s", rr.Body.String())
}

// ParseJSONBody parses the "data" field of the response envelope into target
func ParseJSONBody(t *testing.T, rr *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, target))
}

// ErrorCode returns error.code of the response envelope
func ErrorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	return envelope.Error.Code
}

// Dec parses a decimal literal, panicking on malformed input
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// AssertDecimal compares decimals by value rather than representation
func AssertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, Dec(expected).Equal(actual), "expected %s, got %s", expected, actual.String())
}

// PtrString returns a pointer to s
func PtrString(s string) *string {
	return &s
}
