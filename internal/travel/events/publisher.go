// Package events publishes travel request events for the notification worker.
package events

import (
	"context"

	identitydomain "github.com/travelflow/travelflow-backend/internal/identity/domain"
	"github.com/travelflow/travelflow-backend/internal/travel/domain"
	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/messaging"
)

// TravelEventPublisher publishes travel request events. Failures are logged
// and never reach the caller: the request has already been committed.
type TravelEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewTravelEventPublisher creates a new travel event publisher
func NewTravelEventPublisher(publisher messaging.EventPublisher, log *logger.Logger) *TravelEventPublisher {
	return &TravelEventPublisher{
		publisher: publisher,
		logger:    log,
	}
}

// PublishSubmitted asks approver to decide on req
func (p *TravelEventPublisher) PublishSubmitted(ctx context.Context, req *domain.TravelRequest, level int, approver, requester *identitydomain.Profile) {
	data := messaging.TravelRequestSubmittedEvent{
		TravelRequestID: req.ID,
		OrganizationID:  req.OrganizationID,
		ApprovalLevel:   level,
		ApproverID:      approver.ID,
		ApproverEmail:   approver.Email,
		ApproverName:    approver.FullName,
		RequesterName:   requester.FullName,
		Destination:     req.Destination,
		StartDate:       req.StartDate.Format(domain.DateLayout),
		EndDate:         req.EndDate.Format(domain.DateLayout),
		EstimatedTotal:  req.EstimatedTotal(),
		Currency:        req.Currency,
	}

	if err := p.publisher.Publish(ctx, messaging.EventTravelRequestSubmitted, data); err != nil {
		p.logger.Error().Err(err).Str("travel_request_id", req.ID).Msg("failed to publish travel request submitted event")
	}
}

// PublishDecided tells the employee how req ended
func (p *TravelEventPublisher) PublishDecided(ctx context.Context, req *domain.TravelRequest, employee *identitydomain.Profile, budget domain.Amounts, comments string) {
	data := messaging.TravelRequestDecidedEvent{
		TravelRequestID: req.ID,
		OrganizationID:  req.OrganizationID,
		EmployeeID:      employee.ID,
		EmployeeEmail:   employee.Email,
		EmployeeName:    employee.FullName,
		Decision:        req.Status,
		Destination:     req.Destination,
		ApprovedBudget:  budget.Total(),
		Currency:        req.Currency,
		Comments:        comments,
	}

	if err := p.publisher.Publish(ctx, messaging.EventTravelRequestDecided, data); err != nil {
		p.logger.Error().Err(err).Str("travel_request_id", req.ID).Msg("failed to publish travel request decided event")
	}
}

// PublishCancelled tells the approver who was waiting on req that it is withdrawn
func (p *TravelEventPublisher) PublishCancelled(ctx context.Context, req *domain.TravelRequest, approver, requester *identitydomain.Profile) {
	data := messaging.TravelRequestCancelledEvent{
		TravelRequestID: req.ID,
		OrganizationID:  req.OrganizationID,
		ApproverEmail:   approver.Email,
		RequesterName:   requester.FullName,
		Destination:     req.Destination,
	}

	if err := p.publisher.Publish(ctx, messaging.EventTravelRequestCancelled, data); err != nil {
		p.logger.Error().Err(err).Str("travel_request_id", req.ID).Msg("failed to publish travel request cancelled event")
	}
}
