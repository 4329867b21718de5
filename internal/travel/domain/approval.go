package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Approval statuses
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
	ApprovalSkipped  = "skipped"
)

// Decisions an approver can make
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
	DecisionSkip    = "skip"
)

// Approval is one level of the approval trail of a request
type Approval struct {
	ID              string     `json:"id" db:"id"`
	TravelRequestID string     `json:"travel_request_id" db:"travel_request_id"`
	ApproverID      string     `json:"approver_id" db:"approver_id"`
	ApprovalLevel   int        `json:"approval_level" db:"approval_level"`
	Status          string     `json:"status" db:"status"`
	ApprovedAmounts Amounts    `json:"approved_amounts,omitempty" db:"approved_amounts"`
	Comments        *string    `json:"comments,omitempty" db:"comments"`
	DecidedAt       *time.Time `json:"decided_at,omitempty" db:"decided_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// Approver types of a chain level
const (
	ApproverManager = "manager"
	ApproverRole    = "role"
	ApproverUser    = "user"
)

// ApprovalChain is an ordered list of approval levels
type ApprovalChain struct {
	ID             string        `json:"id" db:"id"`
	OrganizationID string        `json:"organization_id" db:"organization_id"`
	Name           string        `json:"name" db:"name"`
	IsDefault      bool          `json:"is_default" db:"is_default"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
	Levels         []*ChainLevel `json:"levels" db:"-"`
}

// ChainLevel describes who approves at one level
type ChainLevel struct {
	ID                           string              `json:"id" db:"id"`
	ChainID                      string              `json:"chain_id" db:"chain_id"`
	Level                        int                 `json:"level" db:"level"`
	ApproverType                 string              `json:"approver_type" db:"approver_type"`
	ApproverRole                 *string             `json:"approver_role,omitempty" db:"approver_role"`
	ApproverID                   *string             `json:"approver_id,omitempty" db:"approver_id"`
	CanSkipIfApprovedAmountUnder decimal.NullDecimal `json:"can_skip_if_approved_amount_under" db:"can_skip_if_approved_amount_under"`
}

// Skippable reports whether the level may be skipped for an approved total
func (l *ChainLevel) Skippable(approvedTotal decimal.Decimal) bool {
	return l.CanSkipIfApprovedAmountUnder.Valid && approvedTotal.LessThan(l.CanSkipIfApprovedAmountUnder.Decimal)
}

// Level returns level n of the chain, or nil
func (c *ApprovalChain) Level(n int) *ChainLevel {
	for _, l := range c.Levels {
		if l.Level == n {
			return l
		}
	}
	return nil
}

// ImplicitChain is used when neither the request nor the organization names
// a chain: the requester's manager approves alone.
func ImplicitChain() *ApprovalChain {
	return &ApprovalChain{
		Name:   "Manager approval",
		Levels: []*ChainLevel{{Level: 1, ApproverType: ApproverManager}},
	}
}
