package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Violation types
const (
	ViolationAmountLimit = "amount_limit"
	ViolationRestriction = "restriction"
	ViolationCustomRule  = "custom_rule"
)

// Violation records that a request breaks the travel policy
type Violation struct {
	ID                string          `json:"id" db:"id"`
	TravelRequestID   string          `json:"travel_request_id" db:"travel_request_id"`
	Category          string          `json:"category" db:"category"`
	ViolationType     string          `json:"violation_type" db:"violation_type"`
	RequestedAmount   decimal.Decimal `json:"requested_amount" db:"requested_amount"`
	LimitAmount       decimal.Decimal `json:"limit_amount" db:"limit_amount"`
	OverageAmount     decimal.Decimal `json:"overage_amount" db:"overage_amount"`
	OveragePercentage decimal.Decimal `json:"overage_percentage" db:"overage_percentage"`
	Message           string          `json:"message" db:"message"`
	Explanation       *string         `json:"explanation,omitempty" db:"explanation"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}

// Key identifies a violation across detections
func (v *Violation) Key() string {
	return v.Category + "/" + v.ViolationType
}

// IsExplained reports whether the requester justified the violation
func (v *Violation) IsExplained() bool {
	return v.Explanation != nil && *v.Explanation != ""
}

// ApprovedTravel is the budget granted by a fully decided request
type ApprovedTravel struct {
	ID                     string          `json:"id" db:"id"`
	OrganizationID         string          `json:"organization_id" db:"organization_id"`
	TravelRequestID        string          `json:"travel_request_id" db:"travel_request_id"`
	EmployeeID             string          `json:"employee_id" db:"employee_id"`
	Destination            string          `json:"destination" db:"destination"`
	Purpose                string          `json:"purpose" db:"purpose"`
	StartDate              time.Time       `json:"start_date" db:"start_date"`
	EndDate                time.Time       `json:"end_date" db:"end_date"`
	ApprovedFlights        decimal.Decimal `json:"approved_flights" db:"approved_flights"`
	ApprovedAccommodation  decimal.Decimal `json:"approved_accommodation" db:"approved_accommodation"`
	ApprovedFood           decimal.Decimal `json:"approved_food" db:"approved_food"`
	ApprovedTransportation decimal.Decimal `json:"approved_transportation" db:"approved_transportation"`
	ApprovedMiscellaneous  decimal.Decimal `json:"approved_miscellaneous" db:"approved_miscellaneous"`
	ApprovedTotal          decimal.Decimal `json:"approved_total" db:"approved_total"`
	Currency               string          `json:"currency" db:"currency"`
	ReportID               *string         `json:"report_id,omitempty" db:"report_id"`
	IsUsed                 bool            `json:"is_used" db:"is_used"`
	CreatedAt              time.Time       `json:"created_at" db:"created_at"`
}
