package service

import (
	"context"

	"github.com/travelflow/travelflow-backend/internal/audit/domain"
	"github.com/travelflow/travelflow-backend/pkg/actor"
	"github.com/travelflow/travelflow-backend/pkg/errors"
	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/tenant"
)

// Store persists audit entries
type Store interface {
	Create(ctx context.Context, entry *domain.Entry) error
	List(ctx context.Context, filter *domain.Filter, limit, offset int) ([]*domain.Entry, int64, error)
}

// AuditService records and lists policy configuration changes
type AuditService struct {
	store  Store
	logger *logger.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(store Store, log *logger.Logger) *AuditService {
	return &AuditService{store: store, logger: log}
}

// Record appends an entry for a change made by the actor in ctx. Callers run
// it inside the transaction of the change so a failed write aborts both.
func (s *AuditService) Record(ctx context.Context, entityType, entityID, action string, oldValue, newValue interface{}) error {
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return errors.Unauthorized("organization context required")
	}

	entry := &domain.Entry{
		OrganizationID: orgID,
		EntityType:     entityType,
		EntityID:       entityID,
		Action:         action,
		OldValues:      domain.Snapshot(oldValue),
		NewValues:      domain.Snapshot(newValue),
	}

	if a := actor.FromContext(ctx); a != nil && !a.IsSystem() {
		id := a.ID
		entry.ActorID = &id
		entry.ActorName = a.FullName
	} else {
		entry.ActorName = actor.SystemActor().FullName
	}

	if err := s.store.Create(ctx, entry); err != nil {
		s.logger.Error().Err(err).
			Str("entity_type", entityType).
			Str("entity_id", entityID).
			Msg("failed to write audit entry")
		return errors.Internal("failed to write audit entry")
	}

	return nil
}

// List returns a page of audit entries of the caller's organization
func (s *AuditService) List(ctx context.Context, filter *domain.Filter, limit, offset int) ([]*domain.Entry, int64, error) {
	if filter != nil && filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, 0, errors.ValidationField("to", "must not be before from")
	}
	if filter != nil && filter.Action != "" &&
		filter.Action != domain.ActionCreate && filter.Action != domain.ActionUpdate && filter.Action != domain.ActionDelete {
		return nil, 0, errors.ValidationField("action", "must be one of create, update, delete")
	}
	return s.store.List(ctx, filter, limit, offset)
}
