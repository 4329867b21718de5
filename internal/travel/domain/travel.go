// Package domain holds travel requests, their approvals and violations,
// approval chains and approved travels.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	policydomain "github.com/travelflow/travelflow-backend/internal/policy/domain"
	"github.com/travelflow/travelflow-backend/internal/travel/workflow"
)

// Request statuses
const (
	StatusDraft             = string(workflow.TravelDraft)
	StatusPendingApproval   = string(workflow.TravelPendingApproval)
	StatusApproved          = string(workflow.TravelApproved)
	StatusPartiallyApproved = string(workflow.TravelPartiallyApproved)
	StatusRejected          = string(workflow.TravelRejected)
	StatusCancelled         = string(workflow.TravelCancelled)
)

// DateLayout is the wire format of trip dates
const DateLayout = "2006-01-02"

// TravelRequest is an employee's request to travel with estimated costs
type TravelRequest struct {
	ID                             string          `json:"id" db:"id"`
	OrganizationID                 string          `json:"organization_id" db:"organization_id"`
	RequesterID                    string          `json:"requester_id" db:"requester_id"`
	Destination                    string          `json:"destination" db:"destination"`
	DestinationType                string          `json:"destination_type" db:"destination_type"`
	Purpose                        string          `json:"purpose" db:"purpose"`
	StartDate                      time.Time       `json:"start_date" db:"start_date"`
	EndDate                        time.Time       `json:"end_date" db:"end_date"`
	EstimatedFlights               decimal.Decimal `json:"estimated_flights" db:"estimated_flights"`
	EstimatedAccommodationPerNight decimal.Decimal `json:"estimated_accommodation_per_night" db:"estimated_accommodation_per_night"`
	EstimatedFoodPerDay            decimal.Decimal `json:"estimated_food_per_day" db:"estimated_food_per_day"`
	EstimatedTransportation        decimal.Decimal `json:"estimated_transportation" db:"estimated_transportation"`
	EstimatedMiscellaneous         decimal.Decimal `json:"estimated_miscellaneous" db:"estimated_miscellaneous"`
	Currency                       string          `json:"currency" db:"currency"`
	Status                         string          `json:"status" db:"status"`
	CurrentApprovalLevel           int             `json:"current_approval_level" db:"current_approval_level"`
	ApprovalChainID                *string         `json:"approval_chain_id,omitempty" db:"approval_chain_id"`
	SubmittedAt                    *time.Time      `json:"submitted_at,omitempty" db:"submitted_at"`
	FinalDecisionAt                *time.Time      `json:"final_decision_at,omitempty" db:"final_decision_at"`
	CreatedAt                      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt                      time.Time       `json:"updated_at" db:"updated_at"`

	Violations []*Violation `json:"violations,omitempty" db:"-"`
	Approvals  []*Approval  `json:"approvals,omitempty" db:"-"`
}

// Nights is the number of nights between start and end date
func (r *TravelRequest) Nights() int {
	n := int(dateOnly(r.EndDate).Sub(dateOnly(r.StartDate)).Hours() / 24)
	if n < 0 {
		return 0
	}
	return n
}

// Days is the number of trip days, both ends included
func (r *TravelRequest) Days() int {
	return r.Nights() + 1
}

// CategoryTotals expands the per-night and per-day estimates into trip
// totals per category
func (r *TravelRequest) CategoryTotals() Amounts {
	return Amounts{
		policydomain.CategoryFlights:        r.EstimatedFlights,
		policydomain.CategoryAccommodation:  r.EstimatedAccommodationPerNight.Mul(decimal.NewFromInt(int64(r.Nights()))),
		policydomain.CategoryFood:           r.EstimatedFoodPerDay.Mul(decimal.NewFromInt(int64(r.Days()))),
		policydomain.CategoryTransportation: r.EstimatedTransportation,
		policydomain.CategoryMiscellaneous:  r.EstimatedMiscellaneous,
	}
}

// EstimatedTotal is the sum of the category totals
func (r *TravelRequest) EstimatedTotal() decimal.Decimal {
	return r.CategoryTotals().Total()
}

// IsOwnedBy reports whether userID requested the trip
func (r *TravelRequest) IsOwnedBy(userID string) bool {
	return r.RequesterID == userID
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Amounts maps a category to an amount. It is stored as a JSONB object.
type Amounts map[string]decimal.Decimal

// Total sums every category
func (a Amounts) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range a {
		total = total.Add(v)
	}
	return total
}

// Equal reports whether both maps hold equal amounts for every category,
// treating a missing category as zero
func (a Amounts) Equal(other Amounts) bool {
	for k, v := range a {
		if !v.Equal(other[k]) {
			return false
		}
	}
	for k, v := range other {
		if _, ok := a[k]; !ok && !v.IsZero() {
			return false
		}
	}
	return true
}

// Value implements driver.Valuer
func (a Amounts) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner
func (a *Amounts) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("cannot scan %T into Amounts", src)
	}
}
