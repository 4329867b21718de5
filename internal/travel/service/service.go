// Package service implements travel requests: drafting and violation
// detection, the approval chain, approved travels and approval chain
// configuration.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	identitydomain "github.com/travelflow/travelflow-backend/internal/identity/domain"
	policydomain "github.com/travelflow/travelflow-backend/internal/policy/domain"
	"github.com/travelflow/travelflow-backend/internal/travel/domain"
	"github.com/travelflow/travelflow-backend/internal/travel/events"
	"github.com/travelflow/travelflow-backend/internal/travel/repository"
	"github.com/travelflow/travelflow-backend/pkg/actor"
	"github.com/travelflow/travelflow-backend/pkg/errors"
	"github.com/travelflow/travelflow-backend/pkg/logger"
)

// RequestStore persists travel requests
type RequestStore interface {
	Create(ctx context.Context, req *domain.TravelRequest) error
	GetByID(ctx context.Context, id string) (*domain.TravelRequest, error)
	LockByID(ctx context.Context, id string) (*domain.TravelRequest, error)
	List(ctx context.Context, filter repository.RequestFilter, limit, offset int) ([]*domain.TravelRequest, int64, error)
	ListPendingForApprover(ctx context.Context, approverID string, limit, offset int) ([]*domain.TravelRequest, int64, error)
	Update(ctx context.Context, req *domain.TravelRequest) error
	Transition(ctx context.Context, req *domain.TravelRequest, from string) error
	SetApprovalLevel(ctx context.Context, id string, level int) error
	Delete(ctx context.Context, id string) error
}

// ApprovalStore persists the approval trail of requests
type ApprovalStore interface {
	Create(ctx context.Context, a *domain.Approval) error
	ListByRequest(ctx context.Context, requestID string) ([]*domain.Approval, error)
	Decide(ctx context.Context, a *domain.Approval) error
	DeletePending(ctx context.Context, requestID string) error
	DeleteByRequest(ctx context.Context, requestID string) error
}

// ViolationStore persists detected violations
type ViolationStore interface {
	ListByRequest(ctx context.Context, requestID string) ([]*domain.Violation, error)
	Replace(ctx context.Context, requestID string, violations []*domain.Violation) error
	Explain(ctx context.Context, id, requestID, explanation string) error
}

// ChainStore persists approval chains
type ChainStore interface {
	Create(ctx context.Context, c *domain.ApprovalChain) error
	GetByID(ctx context.Context, id string) (*domain.ApprovalChain, error)
	GetDefault(ctx context.Context, organizationID string) (*domain.ApprovalChain, error)
	List(ctx context.Context, organizationID string) ([]*domain.ApprovalChain, error)
	Update(ctx context.Context, c *domain.ApprovalChain) error
	ClearDefault(ctx context.Context, organizationID string) error
	Delete(ctx context.Context, id string) error
}

// ApprovedTravelStore persists approved travels
type ApprovedTravelStore interface {
	Create(ctx context.Context, t *domain.ApprovedTravel) error
	GetByID(ctx context.Context, id string) (*domain.ApprovedTravel, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]*domain.ApprovedTravel, error)
	MarkUsed(ctx context.Context, id, reportID string) error
}

// ProfileDirectory looks up requesters and approvers
type ProfileDirectory interface {
	GetByID(ctx context.Context, id string) (*identitydomain.Profile, error)
	ListActiveByRole(ctx context.Context, organizationID, role string) ([]*identitydomain.Profile, error)
}

// PolicyReader returns the policy that applies to a requester
type PolicyReader interface {
	RuleSet(ctx context.Context, organizationID string, gradeID *string, destinationType string) (*policydomain.RuleSet, error)
}

// RateConverter converts an amount with the latest exchange rate effective
// on or before a date. A missing rate is NOT_FOUND.
type RateConverter interface {
	ConvertAmount(ctx context.Context, organizationID string, amount decimal.Decimal, from, to string, on time.Time) (decimal.Decimal, error)
}

// ReportOpener opens an expense report for an approved travel and returns
// the report ID. It runs inside the caller's transaction.
type ReportOpener interface {
	OpenForTravel(ctx context.Context, t *domain.ApprovedTravel) (string, error)
}

// Transactor runs a function inside an organization scoped transaction
type Transactor interface {
	WithTenant(ctx context.Context, fn func(context.Context) error) error
}

// AuditRecorder appends policy audit entries
type AuditRecorder interface {
	Record(ctx context.Context, entityType, entityID, action string, oldValue, newValue interface{}) error
}

// Stores groups the persistence of the travel service
type Stores struct {
	Requests        RequestStore
	Approvals       ApprovalStore
	Violations      ViolationStore
	Chains          ChainStore
	ApprovedTravels ApprovedTravelStore
}

// TravelService handles travel requests from draft to approved travel
type TravelService struct {
	requests   RequestStore
	approvals  ApprovalStore
	violations ViolationStore
	chains     ChainStore
	approved   ApprovedTravelStore
	profiles   ProfileDirectory
	policy     PolicyReader
	rates      RateConverter
	reports    ReportOpener
	tx         Transactor
	events     *events.TravelEventPublisher
	logger     *logger.Logger
	now        func() time.Time
}

// NewTravelService creates a new travel service
func NewTravelService(
	stores Stores,
	profiles ProfileDirectory,
	policy PolicyReader,
	rates RateConverter,
	reports ReportOpener,
	tx Transactor,
	publisher *events.TravelEventPublisher,
	log *logger.Logger,
) *TravelService {
	return &TravelService{
		requests:   stores.Requests,
		approvals:  stores.Approvals,
		violations: stores.Violations,
		chains:     stores.Chains,
		approved:   stores.ApprovedTravels,
		profiles:   profiles,
		policy:     policy,
		rates:      rates,
		reports:    reports,
		tx:         tx,
		events:     publisher,
		logger:     log,
		now:        time.Now,
	}
}

// SetClock replaces the clock used for timestamps and advance booking checks
func (s *TravelService) SetClock(now func() time.Time) {
	s.now = now
}

func caller(ctx context.Context) (*actor.Actor, error) {
	a := actor.FromContext(ctx)
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	return a, nil
}

// owned loads a request of the caller's organization that the caller owns.
// Requests of other organizations are reported as missing.
func (s *TravelService) owned(ctx context.Context, a *actor.Actor, id string, lock bool) (*domain.TravelRequest, error) {
	load := s.requests.GetByID
	if lock {
		load = s.requests.LockByID
	}
	req, err := load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.OrganizationID != a.OrganizationID {
		return nil, errors.NotFound("travel request")
	}
	if !req.IsOwnedBy(a.ID) {
		return nil, errors.Forbidden("only the requester can change this travel request")
	}
	return req, nil
}
