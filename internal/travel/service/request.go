package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	policydomain "github.com/travelflow/travelflow-backend/internal/policy/domain"
	"github.com/travelflow/travelflow-backend/internal/travel/domain"
	"github.com/travelflow/travelflow-backend/internal/travel/repository"
	"github.com/travelflow/travelflow-backend/internal/travel/violation"
	"github.com/travelflow/travelflow-backend/pkg/actor"
	"github.com/travelflow/travelflow-backend/pkg/errors"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
)

// RequestInput creates or replaces a draft travel request
type RequestInput struct {
	Destination                    string          `json:"destination" validate:"required,max=255"`
	DestinationType                string          `json:"destination_type" validate:"required,oneof=domestic international"`
	Purpose                        string          `json:"purpose" validate:"required,max=2000"`
	StartDate                      string          `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate                        string          `json:"end_date" validate:"required,datetime=2006-01-02"`
	EstimatedFlights               decimal.Decimal `json:"estimated_flights"`
	EstimatedAccommodationPerNight decimal.Decimal `json:"estimated_accommodation_per_night"`
	EstimatedFoodPerDay            decimal.Decimal `json:"estimated_food_per_day"`
	EstimatedTransportation        decimal.Decimal `json:"estimated_transportation"`
	EstimatedMiscellaneous         decimal.Decimal `json:"estimated_miscellaneous"`
	Currency                       string          `json:"currency" validate:"omitempty,len=3"`
	ApprovalChainID                *string         `json:"approval_chain_id,omitempty" validate:"omitempty,uuid"`
}

func (in *RequestInput) apply(req *domain.TravelRequest) error {
	start, err := time.Parse(domain.DateLayout, in.StartDate)
	if err != nil {
		return errors.ValidationField("start_date", "must be a date in YYYY-MM-DD format")
	}
	end, err := time.Parse(domain.DateLayout, in.EndDate)
	if err != nil {
		return errors.ValidationField("end_date", "must be a date in YYYY-MM-DD format")
	}
	if end.Before(start) {
		return errors.ValidationField("end_date", "must not be before start_date")
	}

	amounts := map[string]decimal.Decimal{
		"estimated_flights":                 in.EstimatedFlights,
		"estimated_accommodation_per_night": in.EstimatedAccommodationPerNight,
		"estimated_food_per_day":            in.EstimatedFoodPerDay,
		"estimated_transportation":          in.EstimatedTransportation,
		"estimated_miscellaneous":           in.EstimatedMiscellaneous,
	}
	details := make(map[string]string)
	for field, v := range amounts {
		if v.IsNegative() {
			details[field] = "must not be negative"
		}
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}

	req.Destination = strings.TrimSpace(in.Destination)
	req.DestinationType = in.DestinationType
	req.Purpose = strings.TrimSpace(in.Purpose)
	req.StartDate = start
	req.EndDate = end
	req.EstimatedFlights = in.EstimatedFlights
	req.EstimatedAccommodationPerNight = in.EstimatedAccommodationPerNight
	req.EstimatedFoodPerDay = in.EstimatedFoodPerDay
	req.EstimatedTransportation = in.EstimatedTransportation
	req.EstimatedMiscellaneous = in.EstimatedMiscellaneous
	req.Currency = strings.ToUpper(in.Currency)
	if req.Currency == "" {
		req.Currency = "EUR"
	}
	req.ApprovalChainID = in.ApprovalChainID
	return nil
}

// checkChain verifies that a chain override belongs to the organization
func (s *TravelService) checkChain(ctx context.Context, organizationID string, chainID *string) error {
	if chainID == nil {
		return nil
	}
	c, err := s.chains.GetByID(ctx, *chainID)
	if err != nil || c.OrganizationID != organizationID {
		return errors.ValidationField("approval_chain_id", "must be an approval chain of the organization")
	}
	return nil
}

// detect re-runs violation detection for req and stores the result, keeping
// explanations of violations that are still present
func (s *TravelService) detect(ctx context.Context, req *domain.TravelRequest) error {
	requester, err := s.profiles.GetByID(ctx, req.RequesterID)
	if err != nil {
		return err
	}
	set, err := s.policy.RuleSet(ctx, req.OrganizationID, requester.GradeID, req.DestinationType)
	if err != nil {
		return err
	}
	set, err = s.inCurrency(ctx, set, req)
	if err != nil {
		return err
	}

	previous, err := s.violations.ListByRequest(ctx, req.ID)
	if err != nil {
		return err
	}

	detected := violation.Detect(req, set, s.now())
	violation.Carry(previous, detected)
	if err := s.violations.Replace(ctx, req.ID, detected); err != nil {
		return err
	}
	req.Violations = detected
	return nil
}

// inCurrency returns set with every limit expressed in the request currency,
// converted at the rate effective on the trip start. A limit without such a
// rate is left out.
func (s *TravelService) inCurrency(ctx context.Context, set *policydomain.RuleSet, req *domain.TravelRequest) (*policydomain.RuleSet, error) {
	if set == nil {
		return nil, nil
	}
	out := &policydomain.RuleSet{
		Rules:        make(map[string]*policydomain.PolicyRule, len(set.Rules)),
		Restrictions: set.Restrictions,
		CustomRules:  set.CustomRules,
	}
	for category, r := range set.Rules {
		if r.Currency == "" || strings.EqualFold(r.Currency, req.Currency) {
			out.Rules[category] = r
			continue
		}

		var (
			limit decimal.Decimal
			err   error = errors.NotFound("exchange rate")
		)
		if s.rates != nil {
			limit, err = s.rates.ConvertAmount(ctx, req.OrganizationID, r.LimitAmount, r.Currency, req.Currency, req.StartDate)
		}
		if errors.Is(err, errors.ErrNotFound) {
			s.logger.Warn().
				Str("travel_request_id", req.ID).
				Str("category", category).
				Str("pair", strings.ToUpper(r.Currency)+"/"+req.Currency).
				Msg("policy limit not applied, no exchange rate")
			continue
		}
		if err != nil {
			return nil, err
		}

		converted := *r
		converted.LimitAmount = limit
		converted.Currency = req.Currency
		out.Rules[category] = &converted
	}
	return out, nil
}

// Create drafts a travel request for the caller
func (s *TravelService) Create(ctx context.Context, in *RequestInput) (*domain.TravelRequest, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if !a.Can(permissions.TravelOwn) {
		return nil, errors.Forbidden("not allowed to request travel")
	}

	req := &domain.TravelRequest{
		OrganizationID: a.OrganizationID,
		RequesterID:    a.ID,
		Status:         domain.StatusDraft,
	}
	if err := in.apply(req); err != nil {
		return nil, err
	}

	err = s.tx.WithTenant(ctx, func(ctx context.Context) error {
		if err := s.checkChain(ctx, a.OrganizationID, req.ApprovalChainID); err != nil {
			return err
		}
		if err := s.requests.Create(ctx, req); err != nil {
			return err
		}
		return s.detect(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("travel_request_id", req.ID).
		Str("requester_id", a.ID).
		Int("violations", len(req.Violations)).
		Msg("travel request created")
	return req, nil
}

// Update replaces the details of a draft request
func (s *TravelService) Update(ctx context.Context, id string, in *RequestInput) (*domain.TravelRequest, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	var req *domain.TravelRequest
	err = s.tx.WithTenant(ctx, func(ctx context.Context) error {
		current, err := s.owned(ctx, a, id, true)
		if err != nil {
			return err
		}
		if current.Status != domain.StatusDraft {
			return errors.BadRequest("only draft travel requests can be edited")
		}
		if err := in.apply(current); err != nil {
			return err
		}
		if err := s.checkChain(ctx, a.OrganizationID, current.ApprovalChainID); err != nil {
			return err
		}
		if err := s.requests.Update(ctx, current); err != nil {
			return err
		}
		req = current
		return s.detect(ctx, current)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("travel_request_id", id).Int("violations", len(req.Violations)).Msg("travel request updated")
	return req, nil
}

// Delete deletes a draft request
func (s *TravelService) Delete(ctx context.Context, id string) error {
	a, err := caller(ctx)
	if err != nil {
		return err
	}

	err = s.tx.WithTenant(ctx, func(ctx context.Context) error {
		req, err := s.owned(ctx, a, id, true)
		if err != nil {
			return err
		}
		if req.Status != domain.StatusDraft {
			return errors.BadRequest("only draft travel requests can be deleted")
		}
		return s.requests.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("travel_request_id", id).Msg("travel request deleted")
	return nil
}

// Get returns a request with its violations and approval trail. The
// requester, its approvers and holders of travel.read may see it.
func (s *TravelService) Get(ctx context.Context, id string) (*domain.TravelRequest, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.OrganizationID != a.OrganizationID && !a.IsAdmin() {
		return nil, errors.NotFound("travel request")
	}

	approvals, err := s.approvals.ListByRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(a, req, approvals) {
		return nil, errors.Forbidden("not allowed to view this travel request")
	}

	violations, err := s.violations.ListByRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Approvals = approvals
	req.Violations = violations
	return req, nil
}

func canSee(a *actor.Actor, req *domain.TravelRequest, approvals []*domain.Approval) bool {
	if req.IsOwnedBy(a.ID) || a.Can(permissions.TravelRead) {
		return true
	}
	for _, ap := range approvals {
		if ap.ApproverID == a.ID {
			return true
		}
	}
	return false
}

// ListFilter narrows a request listing
type ListFilter struct {
	Status string
	// All lists the whole organization for holders of travel.read
	All bool
}

// List lists the caller's requests, or the organization's with travel.read
func (s *TravelService) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*domain.TravelRequest, int64, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, 0, err
	}

	f := repository.RequestFilter{OrganizationID: a.OrganizationID, Status: filter.Status}
	if !filter.All || !a.Can(permissions.TravelRead) {
		f.RequesterID = a.ID
	}
	return s.requests.List(ctx, f, limit, offset)
}

// PendingApprovals lists the requests waiting on the caller's decision
func (s *TravelService) PendingApprovals(ctx context.Context, limit, offset int) ([]*domain.TravelRequest, int64, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, 0, err
	}
	return s.requests.ListPendingForApprover(ctx, a.ID, limit, offset)
}

// ExplainRequest justifies a violation
type ExplainRequest struct {
	Explanation string `json:"explanation" validate:"required,max=2000"`
}

// ExplainViolation stores the requester's justification of a violation
// while the request is a draft
func (s *TravelService) ExplainViolation(ctx context.Context, requestID, violationID string, in *ExplainRequest) ([]*domain.Violation, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(in.Explanation)
	if text == "" {
		return nil, errors.ValidationField("explanation", "must not be empty")
	}

	var violations []*domain.Violation
	err = s.tx.WithTenant(ctx, func(ctx context.Context) error {
		req, err := s.owned(ctx, a, requestID, true)
		if err != nil {
			return err
		}
		if req.Status != domain.StatusDraft {
			return errors.BadRequest("violations can only be explained on draft travel requests")
		}
		if err := s.violations.Explain(ctx, violationID, requestID, text); err != nil {
			return err
		}
		violations, err = s.violations.ListByRequest(ctx, requestID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("travel_request_id", requestID).Str("violation_id", violationID).Msg("violation explained")
	return violations, nil
}
