package service

import (
	"context"
	"fmt"
	"time"

	identitydomain "github.com/travelflow/travelflow-backend/internal/identity/domain"
	policydomain "github.com/travelflow/travelflow-backend/internal/policy/domain"
	"github.com/travelflow/travelflow-backend/internal/travel/domain"
	"github.com/travelflow/travelflow-backend/internal/travel/violation"
	"github.com/travelflow/travelflow-backend/internal/travel/workflow"
	"github.com/travelflow/travelflow-backend/pkg/errors"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
)

// chainFor returns the chain that governs req: its own override, else the
// organization default, else a single manager level
func (s *TravelService) chainFor(ctx context.Context, req *domain.TravelRequest) (*domain.ApprovalChain, error) {
	if req.ApprovalChainID != nil {
		c, err := s.chains.GetByID(ctx, *req.ApprovalChainID)
		if err != nil {
			return nil, err
		}
		if c.OrganizationID != req.OrganizationID {
			return nil, errors.NotFound("approval chain")
		}
		return c, nil
	}

	c, err := s.chains.GetDefault(ctx, req.OrganizationID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return domain.ImplicitChain(), nil
		}
		return nil, err
	}
	if len(c.Levels) == 0 {
		return domain.ImplicitChain(), nil
	}
	return c, nil
}

// resolveApprover finds who approves level for requester
func (s *TravelService) resolveApprover(ctx context.Context, requester *identitydomain.Profile, level *domain.ChainLevel) (*identitydomain.Profile, error) {
	switch level.ApproverType {
	case domain.ApproverManager:
		if requester.ManagerID != nil {
			m, err := s.profiles.GetByID(ctx, *requester.ManagerID)
			if err != nil && !errors.Is(err, errors.ErrNotFound) {
				return nil, err
			}
			if err == nil && m.IsActive && m.OrganizationID == requester.OrganizationID {
				return m, nil
			}
		}
		if requester.IsManager() {
			if admin, err := s.firstWithRole(ctx, requester, permissions.RoleOrgAdmin); err != nil || admin != nil {
				return admin, err
			}
		}
		return nil, errors.BadRequest("no manager assigned")

	case domain.ApproverRole:
		if level.ApproverRole == nil {
			return nil, errors.BadRequest(fmt.Sprintf("approval level %d has no approver role", level.Level))
		}
		p, err := s.firstWithRole(ctx, requester, *level.ApproverRole)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, errors.BadRequest(fmt.Sprintf("no active %s to approve level %d", *level.ApproverRole, level.Level))
		}
		return p, nil

	case domain.ApproverUser:
		if level.ApproverID != nil {
			p, err := s.profiles.GetByID(ctx, *level.ApproverID)
			if err != nil && !errors.Is(err, errors.ErrNotFound) {
				return nil, err
			}
			if err == nil && p.IsActive && p.OrganizationID == requester.OrganizationID {
				return p, nil
			}
		}
		return nil, errors.BadRequest(fmt.Sprintf("approver of level %d is not available", level.Level))
	}

	return nil, errors.BadRequest(fmt.Sprintf("unknown approver type %q", level.ApproverType))
}

// firstWithRole returns the longest standing active holder of role other
// than the requester, or nil
func (s *TravelService) firstWithRole(ctx context.Context, requester *identitydomain.Profile, role string) (*identitydomain.Profile, error) {
	candidates, err := s.profiles.ListActiveByRole(ctx, requester.OrganizationID, role)
	if err != nil {
		return nil, err
	}
	for _, p := range candidates {
		if p.ID != requester.ID {
			return p, nil
		}
	}
	return nil, nil
}

// Submit sends a draft request to the first approval level. Violations are
// detected again against the current policy and committed first, so a
// violation that appeared since the last edit blocks submission and can be
// explained. Nothing else is written unless every precondition holds.
func (s *TravelService) Submit(ctx context.Context, id string) (*domain.TravelRequest, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTenant(ctx, func(ctx context.Context) error {
		current, err := s.owned(ctx, a, id, true)
		if err != nil {
			return err
		}
		if !workflow.Travel.CanFire(workflow.State(current.Status), workflow.TriggerSubmit) {
			return nil
		}
		return s.detect(ctx, current)
	})
	if err != nil {
		return nil, err
	}

	var (
		req                 *domain.TravelRequest
		approver, requester *identitydomain.Profile
	)
	err = s.tx.WithTenant(ctx, func(ctx context.Context) error {
		current, err := s.owned(ctx, a, id, true)
		if err != nil {
			return err
		}
		to, err := workflow.Travel.Fire(workflow.State(current.Status), workflow.TriggerSubmit)
		if err != nil {
			return err
		}

		violations, err := s.violations.ListByRequest(ctx, id)
		if err != nil {
			return err
		}
		if missing := violation.Unexplained(violations); len(missing) > 0 {
			details := make(map[string]string, len(missing))
			for _, v := range missing {
				details["violations."+v.ID] = "explanation required: " + v.Message
			}
			return errors.Validation(details)
		}

		chain, err := s.chainFor(ctx, current)
		if err != nil {
			return err
		}
		first := chain.Level(1)
		if first == nil {
			return errors.BadRequest("approval chain has no first level")
		}
		requester, err = s.profiles.GetByID(ctx, current.RequesterID)
		if err != nil {
			return err
		}
		approver, err = s.resolveApprover(ctx, requester, first)
		if err != nil {
			return err
		}

		now := s.now()
		from := current.Status
		current.Status = string(to)
		current.SubmittedAt = &now
		current.FinalDecisionAt = nil
		current.CurrentApprovalLevel = 1
		if err := s.requests.Transition(ctx, current, from); err != nil {
			return err
		}

		if err := s.approvals.Create(ctx, &domain.Approval{
			TravelRequestID: id,
			ApproverID:      approver.ID,
			ApprovalLevel:   1,
			Status:          domain.ApprovalPending,
		}); err != nil {
			return err
		}
		req = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("travel_request_id", id).
		Str("approver_id", approver.ID).
		Msg("travel request submitted")

	s.events.PublishSubmitted(ctx, req, 1, approver, requester)
	return req, nil
}

// DecideRequest is an approver's decision on its pending level
type DecideRequest struct {
	Decision        string         `json:"decision" validate:"required,oneof=approve reject skip"`
	ApprovedAmounts domain.Amounts `json:"approved_amounts,omitempty"`
	Comments        *string        `json:"comments,omitempty" validate:"omitempty,max=2000"`
}

func (d *DecideRequest) check() error {
	if d.Decision != domain.DecisionApprove && len(d.ApprovedAmounts) > 0 {
		return errors.ValidationField("approved_amounts", "only allowed when approving")
	}
	known := make(map[string]bool, len(policydomain.Categories))
	for _, c := range policydomain.Categories {
		known[c] = true
	}
	for category, amount := range d.ApprovedAmounts {
		if !known[category] {
			return errors.ValidationField("approved_amounts."+category, "unknown category")
		}
		if amount.IsNegative() {
			return errors.ValidationField("approved_amounts."+category, "must not be negative")
		}
	}
	return nil
}

// decisionOutcome is what happened to a request after one decision
type decisionOutcome struct {
	req          *domain.TravelRequest
	requester    *identitydomain.Profile
	nextApprover *identitydomain.Profile
	budget       domain.Amounts
	comments     string
}

// Decide records the caller's decision on a pending approval level and
// advances the request. Only the pending row's approver, or a holder of
// every permission, may decide. A row that was already decided yields
// CONFLICT. When the approver of the next level cannot be resolved the
// decision fails with BAD_REQUEST and nothing is written.
func (s *TravelService) Decide(ctx context.Context, requestID, approvalID string, d *DecideRequest) (*domain.TravelRequest, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := d.check(); err != nil {
		return nil, err
	}

	var out decisionOutcome
	err = s.tx.WithTenant(ctx, func(ctx context.Context) error {
		req, err := s.requests.LockByID(ctx, requestID)
		if err != nil {
			return err
		}
		if req.OrganizationID != a.OrganizationID && !a.IsAdmin() {
			return errors.NotFound("travel request")
		}

		approvals, err := s.approvals.ListByRequest(ctx, requestID)
		if err != nil {
			return err
		}
		var pending *domain.Approval
		for _, ap := range approvals {
			if ap.ID == approvalID {
				pending = ap
			}
		}
		if pending == nil {
			return errors.NotFound("approval")
		}
		if pending.ApproverID != a.ID && !a.IsAdmin() {
			return errors.Forbidden("only the assigned approver can decide this level")
		}
		if pending.Status != domain.ApprovalPending {
			return errors.Conflict("approval has already been decided")
		}
		if _, err := workflow.Travel.Fire(workflow.State(req.Status), workflow.TriggerReject); err != nil {
			return err
		}

		now := s.now()
		pending.Comments = d.Comments
		pending.DecidedAt = &now
		switch d.Decision {
		case domain.DecisionApprove:
			pending.Status = domain.ApprovalApproved
			pending.ApprovedAmounts = d.ApprovedAmounts
		case domain.DecisionReject:
			pending.Status = domain.ApprovalRejected
		case domain.DecisionSkip:
			pending.Status = domain.ApprovalSkipped
		}

		out.requester, err = s.profiles.GetByID(ctx, req.RequesterID)
		if err != nil {
			return err
		}
		if d.Comments != nil {
			out.comments = *d.Comments
		}

		// resolve what follows before writing, so an unresolvable next
		// level leaves this one pending
		var st *step
		if d.Decision != domain.DecisionReject {
			st, err = s.plan(ctx, req, approvals, pending.ApprovalLevel, out.requester, a.ID, now)
			if err != nil {
				return err
			}
		}

		if err := s.approvals.Decide(ctx, pending); err != nil {
			return err
		}

		if d.Decision == domain.DecisionReject {
			if err := s.finish(ctx, req, workflow.TriggerReject, now); err != nil {
				return err
			}
			out.req = req
			out.budget = domain.Amounts{}
			return nil
		}

		return s.advance(ctx, req, st, now, &out)
	})
	if err != nil {
		return nil, err
	}

	log := s.logger.Info().
		Str("travel_request_id", requestID).
		Str("approval_id", approvalID).
		Str("decision", d.Decision).
		Str("status", out.req.Status)
	if out.nextApprover != nil {
		log = log.Str("next_approver_id", out.nextApprover.ID)
	}
	log.Msg("travel request decided")

	if out.nextApprover != nil {
		s.events.PublishSubmitted(ctx, out.req, out.req.CurrentApprovalLevel, out.nextApprover, out.requester)
	} else {
		s.events.PublishDecided(ctx, out.req, out.requester, out.budget, out.comments)
	}
	return out.req, nil
}

// step is what follows a decided level: the levels recorded as skipped,
// then the next pending level, or nothing when the request is final
type step struct {
	skipped  []*domain.Approval
	next     *domain.Approval
	approver *identitydomain.Profile
	budget   domain.Amounts
}

// plan works out the step after the decided level without writing. Levels
// whose skip threshold exceeds the approved total are skipped. An approver
// that cannot be resolved for the next level fails with BAD_REQUEST.
func (s *TravelService) plan(ctx context.Context, req *domain.TravelRequest, approvals []*domain.Approval, decided int, requester *identitydomain.Profile, decider string, now time.Time) (*step, error) {
	chain, err := s.chainFor(ctx, req)
	if err != nil {
		return nil, err
	}

	st := &step{budget: Budget(req, approvals)}
	total := st.budget.Total()

	for next := decided + 1; ; next++ {
		level := chain.Level(next)
		if level == nil {
			return st, nil
		}

		if level.Skippable(total) {
			comment := fmt.Sprintf("skipped: approved total %s is under %s", total.StringFixed(2),
				level.CanSkipIfApprovedAmountUnder.Decimal.StringFixed(2))
			// a skipped level still names who would have approved it
			approverID := decider
			if p, err := s.resolveApprover(ctx, requester, level); err == nil {
				approverID = p.ID
			}
			st.skipped = append(st.skipped, &domain.Approval{
				TravelRequestID: req.ID,
				ApproverID:      approverID,
				ApprovalLevel:   next,
				Status:          domain.ApprovalSkipped,
				Comments:        &comment,
				DecidedAt:       &now,
			})
			continue
		}

		approver, err := s.resolveApprover(ctx, requester, level)
		if err != nil {
			return nil, err
		}
		st.approver = approver
		st.next = &domain.Approval{
			TravelRequestID: req.ID,
			ApproverID:      approver.ID,
			ApprovalLevel:   next,
			Status:          domain.ApprovalPending,
		}
		return st, nil
	}
}

// advance writes st: skipped rows, then a pending row for the next level or
// the final status with its approved travel
func (s *TravelService) advance(ctx context.Context, req *domain.TravelRequest, st *step, now time.Time, out *decisionOutcome) error {
	for _, ap := range st.skipped {
		if err := s.approvals.Create(ctx, ap); err != nil {
			return err
		}
	}

	if st.next != nil {
		if err := s.approvals.Create(ctx, st.next); err != nil {
			return err
		}
		if err := s.requests.SetApprovalLevel(ctx, req.ID, st.next.ApprovalLevel); err != nil {
			return err
		}
		req.CurrentApprovalLevel = st.next.ApprovalLevel
		out.req = req
		out.nextApprover = st.approver
		return nil
	}

	trigger := workflow.TriggerApprove
	if !st.budget.Equal(req.CategoryTotals()) {
		trigger = workflow.TriggerPartiallyApprove
	}
	if err := s.finish(ctx, req, trigger, now); err != nil {
		return err
	}
	if err := s.approved.Create(ctx, approvedTravel(req, st.budget)); err != nil {
		return err
	}
	out.req = req
	out.budget = st.budget
	return nil
}

// finish moves a pending request to its final status
func (s *TravelService) finish(ctx context.Context, req *domain.TravelRequest, trigger workflow.Trigger, now time.Time) error {
	to, err := workflow.Travel.Fire(workflow.State(req.Status), trigger)
	if err != nil {
		return err
	}
	from := req.Status
	req.Status = string(to)
	req.FinalDecisionAt = &now
	return s.requests.Transition(ctx, req, from)
}

// Budget is the requested amount of every category, overridden by the
// amounts approvers adjusted, later levels winning
func Budget(req *domain.TravelRequest, approvals []*domain.Approval) domain.Amounts {
	budget := req.CategoryTotals()
	byLevel := make(map[int]*domain.Approval, len(approvals))
	maxLevel := 0
	for _, ap := range approvals {
		byLevel[ap.ApprovalLevel] = ap
		if ap.ApprovalLevel > maxLevel {
			maxLevel = ap.ApprovalLevel
		}
	}
	for level := 1; level <= maxLevel; level++ {
		ap := byLevel[level]
		if ap == nil || ap.Status != domain.ApprovalApproved {
			continue
		}
		for category, amount := range ap.ApprovedAmounts {
			budget[category] = amount
		}
	}
	return budget
}

func approvedTravel(req *domain.TravelRequest, budget domain.Amounts) *domain.ApprovedTravel {
	return &domain.ApprovedTravel{
		OrganizationID:         req.OrganizationID,
		TravelRequestID:        req.ID,
		EmployeeID:             req.RequesterID,
		Destination:            req.Destination,
		Purpose:                req.Purpose,
		StartDate:              req.StartDate,
		EndDate:                req.EndDate,
		ApprovedFlights:        budget[policydomain.CategoryFlights],
		ApprovedAccommodation:  budget[policydomain.CategoryAccommodation],
		ApprovedFood:           budget[policydomain.CategoryFood],
		ApprovedTransportation: budget[policydomain.CategoryTransportation],
		ApprovedMiscellaneous:  budget[policydomain.CategoryMiscellaneous],
		ApprovedTotal:          budget.Total(),
		Currency:               req.Currency,
	}
}

// Cancel withdraws a pending request. Its pending approval row is removed.
func (s *TravelService) Cancel(ctx context.Context, id string) (*domain.TravelRequest, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	var (
		req                 *domain.TravelRequest
		approver, requester *identitydomain.Profile
	)
	err = s.tx.WithTenant(ctx, func(ctx context.Context) error {
		current, err := s.owned(ctx, a, id, true)
		if err != nil {
			return err
		}
		to, err := workflow.Travel.Fire(workflow.State(current.Status), workflow.TriggerCancel)
		if err != nil {
			return err
		}

		approvals, err := s.approvals.ListByRequest(ctx, id)
		if err != nil {
			return err
		}
		for _, ap := range approvals {
			if ap.Status == domain.ApprovalPending {
				if approver, err = s.profiles.GetByID(ctx, ap.ApproverID); err != nil && !errors.Is(err, errors.ErrNotFound) {
					return err
				}
			}
		}
		if err := s.approvals.DeletePending(ctx, id); err != nil {
			return err
		}

		from := current.Status
		current.Status = string(to)
		if err := s.requests.Transition(ctx, current, from); err != nil {
			return err
		}
		requester, err = s.profiles.GetByID(ctx, current.RequesterID)
		if err != nil {
			return err
		}
		req = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("travel_request_id", id).Msg("travel request cancelled")
	if approver != nil {
		s.events.PublishCancelled(ctx, req, approver, requester)
	}
	return req, nil
}

// Resubmit turns a rejected or cancelled request back into a draft and
// drops its approval trail
func (s *TravelService) Resubmit(ctx context.Context, id string) (*domain.TravelRequest, error) {
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
		to, err := workflow.Travel.Fire(workflow.State(current.Status), workflow.TriggerReopen)
		if err != nil {
			return err
		}
		if err := s.approvals.DeleteByRequest(ctx, id); err != nil {
			return err
		}

		from := current.Status
		current.Status = string(to)
		current.SubmittedAt = nil
		current.FinalDecisionAt = nil
		current.CurrentApprovalLevel = 0
		if err := s.requests.Transition(ctx, current, from); err != nil {
			return err
		}
		req = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("travel_request_id", id).Msg("travel request reopened as draft")
	return req, nil
}
