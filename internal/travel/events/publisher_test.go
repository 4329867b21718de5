package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identitydomain "github.com/travelflow/travelflow-backend/internal/identity/domain"
	"github.com/travelflow/travelflow-backend/internal/travel/domain"
	"github.com/travelflow/travelflow-backend/internal/travel/events"
	"github.com/travelflow/travelflow-backend/pkg/errors"
	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/messaging"
	"github.com/travelflow/travelflow-backend/pkg/testutil"
)

func sampleRequest() *domain.TravelRequest {
	return &domain.TravelRequest{
		ID:                             "tr-1",
		OrganizationID:                 "org-1",
		RequesterID:                    "emp-1",
		Destination:                    "Lisbon",
		StartDate:                      time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC),
		EndDate:                        time.Date(2026, 5, 6, 0, 0, 0, 0, time.UTC),
		EstimatedFlights:               testutil.Dec("300"),
		EstimatedAccommodationPerNight: testutil.Dec("100"),
		Currency:                       "EUR",
		Status:                         domain.StatusPendingApproval,
	}
}

func TestPublishSubmitted_CarriesApproverAndTotals(t *testing.T) {
	pub := testutil.NewMockPublisher()
	p := events.NewTravelEventPublisher(pub, logger.Nop())

	approver := &identitydomain.Profile{ID: "mgr-1", Email: "boss@example.com", FullName: "Boss"}
	requester := &identitydomain.Profile{ID: "emp-1", FullName: "Employee"}

	p.PublishSubmitted(context.Background(), sampleRequest(), 1, approver, requester)

	published := pub.EventsOfType(messaging.EventTravelRequestSubmitted)
	require.Len(t, published, 1)

	data, ok := published[0].(messaging.TravelRequestSubmittedEvent)
	require.True(t, ok)
	assert.Equal(t, "boss@example.com", data.ApproverEmail)
	assert.Equal(t, "Employee", data.RequesterName)
	assert.Equal(t, "2026-05-04", data.StartDate)
	testutil.AssertDecimal(t, "500", data.EstimatedTotal)
}

func TestPublishDecided_FailureIsSwallowed(t *testing.T) {
	pub := testutil.NewMockPublisher()
	pub.Err = errors.Internal("broker down")
	p := events.NewTravelEventPublisher(pub, logger.Nop())

	req := sampleRequest()
	req.Status = domain.StatusApproved

	assert.NotPanics(t, func() {
		p.PublishDecided(context.Background(), req, &identitydomain.Profile{ID: "emp-1"}, domain.Amounts{"flights": testutil.Dec("300")}, "")
	})
	pub.AssertNoEventsPublished(t)
}
