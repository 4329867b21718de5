package httputil_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelflow/travelflow-backend/pkg/actor"
	"github.com/travelflow/travelflow-backend/pkg/errors"
	"github.com/travelflow/travelflow-backend/pkg/httputil"
	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
	"github.com/travelflow/travelflow-backend/pkg/tenant"
)

// ============================================================================
// Responses
// ============================================================================

func decode(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	httputil.Error(rec, errors.Validation(map[string]string{"email": "required"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Equal(t, "required", resp.Error.Details["email"])
}

func TestError_WrappedAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	httputil.Error(rec, fmt.Errorf("decide: %w", errors.Conflict("approval already decided")))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decode(t, rec).Error.Code)
}

func TestError_UnknownError(t *testing.T) {
	rec := httptest.NewRecorder()
	httputil.Error(rec, fmt.Errorf("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decode(t, rec).Error.Code)
}

func TestJSONWithMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	httputil.JSONWithMeta(rec, http.StatusOK, []string{"a"}, httputil.NewMeta(2, 10, 25))

	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.Meta.TotalPages)
	assert.Equal(t, int64(25), resp.Meta.Total)
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query   string
		page    int
		perPage int
		offset  int
	}{
		{"", 1, 20, 0},
		{"?page=3&per_page=10", 3, 10, 20},
		{"?page=-1&per_page=500", 1, 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/items"+tt.query, nil)
			p := httputil.ParsePagination(r)
			assert.Equal(t, tt.page, p.Page)
			assert.Equal(t, tt.perPage, p.PerPage)
			assert.Equal(t, tt.offset, p.Offset())
		})
	}
}

func TestAttachment(t *testing.T) {
	rec := httptest.NewRecorder()
	httputil.Attachment(rec, "application/pdf", "report.pdf", []byte("%PDF"))

	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="report.pdf"`)
	assert.Equal(t, "%PDF", rec.Body.String())
}

// ============================================================================
// Validation
// ============================================================================

type sampleRequest struct {
	Email  string          `json:"email" validate:"required,email"`
	Role   string          `json:"role" validate:"required,oneof=user manager"`
	Amount decimal.Decimal `json:"amount" validate:"gte=0"`
}

func TestValidate(t *testing.T) {
	err := httputil.Validate(&sampleRequest{Email: "nope", Role: "pilot", Amount: decimal.NewFromInt(-5)})
	require.Error(t, err)

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "must be a valid email address", appErr.Details["email"])
	assert.Equal(t, "must be one of: user manager", appErr.Details["role"])
	assert.Contains(t, appErr.Details, "amount")

	assert.NoError(t, httputil.Validate(&sampleRequest{Email: "a@b.co", Role: "user", Amount: decimal.NewFromInt(5)}))
}

// ============================================================================
// Middleware
// ============================================================================

type stubAuthenticator struct {
	actor *actor.Actor
	err   error
}

func (s stubAuthenticator) Authenticate(token string) (*actor.Actor, error) {
	if token != "good" {
		return nil, errors.TokenInvalid()
	}
	return s.actor, s.err
}

func TestAuthenticate(t *testing.T) {
	session := &actor.Actor{
		ID:             "user-1",
		OrganizationID: "org-1",
		Permissions:    permissions.ForRoles([]string{permissions.RoleUser}),
	}

	var seenOrg string
	var seenActor *actor.Actor
	h := httputil.Authenticate(stubAuthenticator{actor: session})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenOrg, _ = tenant.OrganizationID(r.Context())
		seenActor = actor.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer bad")
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "TOKEN_INVALID", decode(t, rec).Error.Code)
	})

	t.Run("valid token scopes the request", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good")
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "org-1", seenOrg)
		assert.Same(t, session, seenActor)
	})
}

func TestRequirePermission(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := httputil.RequirePermission(permissions.PolicyWrite)(ok)

	tests := []struct {
		name   string
		actor  *actor.Actor
		status int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"plain user", &actor.Actor{Permissions: permissions.ForRoles([]string{permissions.RoleUser})}, http.StatusForbidden},
		{"org admin", &actor.Actor{Permissions: permissions.ForRoles([]string{permissions.RoleOrgAdmin})}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/policy/rules", nil)
			if tt.actor != nil {
				req = req.WithContext(actor.WithActor(req.Context(), tt.actor))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := httputil.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = httputil.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestRecoverer(t *testing.T) {
	log := logger.New("test", "test")
	h := httputil.Recoverer(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRateLimit(t *testing.T) {
	log := logger.New("test", "test")
	mw, err := httputil.RateLimit("2-M", log)
	require.NoError(t, err)

	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{}"))
		req.RemoteAddr = "203.0.113.7:4711"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimit_InvalidFormat(t *testing.T) {
	_, err := httputil.RateLimit("lots", logger.New("test", "test"))
	assert.Error(t, err)
}
