// Package domain holds expense reports, their expenses and receipts, and the
// exchange rates used to convert expenses into the report currency.
package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/travelflow/travelflow-backend/internal/travel/workflow"
)

// Report statuses
const (
	StatusDraft           = string(workflow.ReportDraft)
	StatusOpen            = string(workflow.ReportOpen)
	StatusPendingApproval = string(workflow.ReportPendingApproval)
	StatusClosed          = string(workflow.ReportClosed)
)

// DateLayout is the wire format of report and expense dates
const DateLayout = "2006-01-02"

// Expense approval statuses
const (
	ExpensePending  = "pending"
	ExpenseApproved = "approved"
	ExpenseRejected = "rejected"
)

// Payment methods
const (
	PaymentCompanyCard = "company_card"
	PaymentOutOfPocket = "out_of_pocket"
)

// Receipt file types
const (
	FileImage = "image"
	FileOther = "other"
)

// Report collects the expenses of one trip
type Report struct {
	ID               string          `json:"id" db:"id"`
	OrganizationID   string          `json:"organization_id" db:"organization_id"`
	UserID           string          `json:"user_id" db:"user_id"`
	Destination      string          `json:"destination" db:"destination"`
	Purpose          string          `json:"purpose" db:"purpose"`
	StartDate        time.Time       `json:"start_date" db:"start_date"`
	EndDate          time.Time       `json:"end_date" db:"end_date"`
	Status           string          `json:"status" db:"status"`
	TotalAmount      decimal.Decimal `json:"total_amount" db:"total_amount"`
	Currency         string          `json:"currency" db:"currency"`
	ApprovedTravelID *string         `json:"approved_travel_id,omitempty" db:"approved_travel_id"`
	ReviewerID       *string         `json:"reviewer_id,omitempty" db:"reviewer_id"`
	ReviewComment    *string         `json:"review_comment,omitempty" db:"review_comment"`
	SubmittedAt      *time.Time      `json:"submitted_at,omitempty" db:"submitted_at"`
	ClosedAt         *time.Time      `json:"closed_at,omitempty" db:"closed_at"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`

	Expenses []*Expense `json:"expenses,omitempty" db:"-"`
}

// IsOwnedBy reports whether userID owns the report
func (r *Report) IsOwnedBy(userID string) bool {
	return r.UserID == userID
}

// IsEditable reports whether expenses may still change
func (r *Report) IsEditable() bool {
	return r.Status == StatusDraft || r.Status == StatusOpen
}

// Expense is one spend of a report
type Expense struct {
	ID              string          `json:"id" db:"id"`
	OrganizationID  string          `json:"organization_id" db:"organization_id"`
	ReportID        string          `json:"report_id" db:"report_id"`
	Category        string          `json:"category" db:"category"`
	Description     string          `json:"description" db:"description"`
	ExpenseDate     time.Time       `json:"expense_date" db:"expense_date"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	Currency        string          `json:"currency" db:"currency"`
	ExchangeRate    decimal.Decimal `json:"exchange_rate" db:"exchange_rate"`
	ConvertedAmount decimal.Decimal `json:"converted_amount" db:"converted_amount"`
	ApprovalStatus  string          `json:"approval_status" db:"approval_status"`
	PaymentMethod   string          `json:"payment_method" db:"payment_method"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`

	Receipts []*Receipt `json:"receipts,omitempty" db:"-"`
}

// Total sums the converted amounts of expenses
func Total(expenses []*Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.ConvertedAmount)
	}
	return total
}

// Receipt is a file attached to an expense
type Receipt struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	ExpenseID      string    `json:"expense_id" db:"expense_id"`
	FilePath       string    `json:"file_path" db:"file_path"`
	FileType       string    `json:"file_type" db:"file_type"`
	IsPrivate      bool      `json:"is_private" db:"is_private"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// ExchangeRate converts one unit of FromCurrency into ToCurrency from
// EffectiveDate on
type ExchangeRate struct {
	ID             string          `json:"id" db:"id"`
	OrganizationID string          `json:"organization_id" db:"organization_id"`
	FromCurrency   string          `json:"from_currency" db:"from_currency"`
	ToCurrency     string          `json:"to_currency" db:"to_currency"`
	Rate           decimal.Decimal `json:"rate" db:"rate"`
	EffectiveDate  time.Time       `json:"effective_date" db:"effective_date"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// Convert returns amount in the target currency rounded to cents
func (r *ExchangeRate) Convert(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(r.Rate).Round(2)
}
