package service_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelflow/travelflow-backend/internal/audit/domain"
	"github.com/travelflow/travelflow-backend/internal/audit/service"
	"github.com/travelflow/travelflow-backend/pkg/errors"
	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
	"github.com/travelflow/travelflow-backend/pkg/testutil"
)

type memoryStore struct {
	entries []*domain.Entry
	err     error
}

func (m *memoryStore) Create(ctx context.Context, entry *domain.Entry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryStore) List(ctx context.Context, filter *domain.Filter, limit, offset int) ([]*domain.Entry, int64, error) {
	return m.entries, int64(len(m.entries)), nil
}

type grade struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

func TestAuditService_RecordSnapshotsAndActor(t *testing.T) {
	store := &memoryStore{}
	svc := service.NewAuditService(store, logger.Nop())

	a := testutil.NewActor("user-1", "org-1", permissions.RoleOrgAdmin)
	ctx := testutil.ActorContext(a)

	err := svc.Record(ctx, domain.EntityEmployeeGrade, "grade-1", domain.ActionUpdate,
		&grade{Name: "Senior", Level: 2}, &grade{Name: "Senior", Level: 3})
	require.NoError(t, err)

	require.Len(t, store.entries, 1)
	e := store.entries[0]
	assert.Equal(t, "org-1", e.OrganizationID)
	assert.Equal(t, float64(2), e.OldValues["level"])
	assert.Equal(t, float64(3), e.NewValues["level"])
	require.NotNil(t, e.ActorID)
	assert.Equal(t, "user-1", *e.ActorID)
	assert.Equal(t, a.FullName, e.ActorName)
}

func TestAuditService_RecordCreateHasNoOldValues(t *testing.T) {
	store := &memoryStore{}
	svc := service.NewAuditService(store, logger.Nop())
	ctx := testutil.ActorContext(testutil.NewActor("user-1", "org-1", permissions.RoleOrgAdmin))

	require.NoError(t, svc.Record(ctx, domain.EntityPolicyRule, "rule-1", domain.ActionCreate, nil, &grade{Name: "x"}))
	assert.Nil(t, store.entries[0].OldValues)
	assert.NotNil(t, store.entries[0].NewValues)
}

func TestAuditService_RecordFailureIsInternal(t *testing.T) {
	store := &memoryStore{err: stderrors.New("db down")}
	svc := service.NewAuditService(store, logger.Nop())
	ctx := testutil.ActorContext(testutil.NewActor("user-1", "org-1", permissions.RoleOrgAdmin))

	err := svc.Record(ctx, domain.EntityPolicyRule, "rule-1", domain.ActionDelete, &grade{}, nil)
	assert.Equal(t, "INTERNAL_ERROR", errors.CodeOf(err))
}

func TestAuditService_ListValidatesFilter(t *testing.T) {
	svc := service.NewAuditService(&memoryStore{}, logger.Nop())
	ctx := context.Background()

	from := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)
	_, _, err := svc.List(ctx, &domain.Filter{From: &from, To: &to}, 20, 0)
	assert.Equal(t, "VALIDATION_ERROR", errors.CodeOf(err))

	_, _, err = svc.List(ctx, &domain.Filter{Action: "approve"}, 20, 0)
	assert.Equal(t, "VALIDATION_ERROR", errors.CodeOf(err))

	_, _, err = svc.List(ctx, &domain.Filter{Action: domain.ActionCreate}, 20, 0)
	assert.NoError(t, err)
}
