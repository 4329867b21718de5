package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTravelRequestSubmitted = "travel.request.submitted"
	EventTravelRequestDecided   = "travel.request.decided"
	EventTravelRequestCancelled = "travel.request.cancelled"

	EventReportSubmitted        = "report.submitted"
	EventReportDecided          = "report.decided"
	EventReportAccountingExport = "report.accounting_export"
)

// ExchangeTravelEvents carries every domain event of the travel service
const ExchangeTravelEvents = "travel.events"

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Travel request events

// TravelRequestSubmittedEvent asks an approver to decide on a request
type TravelRequestSubmittedEvent struct {
	TravelRequestID string          `json:"travel_request_id"`
	OrganizationID  string          `json:"organization_id"`
	ApprovalLevel   int             `json:"approval_level"`
	ApproverID      string          `json:"approver_id"`
	ApproverEmail   string          `json:"approver_email"`
	ApproverName    string          `json:"approver_name"`
	RequesterName   string          `json:"requester_name"`
	Destination     string          `json:"destination"`
	StartDate       string          `json:"start_date"`
	EndDate         string          `json:"end_date"`
	EstimatedTotal  decimal.Decimal `json:"estimated_total"`
	Currency        string          `json:"currency"`
}

// TravelRequestDecidedEvent tells the employee the final outcome
type TravelRequestDecidedEvent struct {
	TravelRequestID string          `json:"travel_request_id"`
	OrganizationID  string          `json:"organization_id"`
	EmployeeID      string          `json:"employee_id"`
	EmployeeEmail   string          `json:"employee_email"`
	EmployeeName    string          `json:"employee_name"`
	Decision        string          `json:"decision"`
	Destination     string          `json:"destination"`
	ApprovedBudget  decimal.Decimal `json:"approved_budget"`
	Currency        string          `json:"currency"`
	Comments        string          `json:"comments,omitempty"`
}

// TravelRequestCancelledEvent tells the pending approver the request is withdrawn
type TravelRequestCancelledEvent struct {
	TravelRequestID string `json:"travel_request_id"`
	OrganizationID  string `json:"organization_id"`
	ApproverEmail   string `json:"approver_email"`
	RequesterName   string `json:"requester_name"`
	Destination     string `json:"destination"`
}

// Report events

// ReportSubmittedEvent asks the reviewer to look at an expense report
type ReportSubmittedEvent struct {
	ReportID       string          `json:"report_id"`
	OrganizationID string          `json:"organization_id"`
	ReviewerEmail  string          `json:"reviewer_email"`
	ReviewerName   string          `json:"reviewer_name"`
	SubmitterName  string          `json:"submitter_name"`
	Destination    string          `json:"destination"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Currency       string          `json:"currency"`
}

// ReportDecidedEvent tells the owner how the report was decided
type ReportDecidedEvent struct {
	ReportID       string          `json:"report_id"`
	OrganizationID string          `json:"organization_id"`
	OwnerEmail     string          `json:"owner_email"`
	OwnerName      string          `json:"owner_name"`
	Decision       string          `json:"decision"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Currency       string          `json:"currency"`
	Comment        string          `json:"comment,omitempty"`
}

// ReportAccountingExportEvent hands a closed report to an external accountant
type ReportAccountingExportEvent struct {
	ReportID        string `json:"report_id"`
	OrganizationID  string `json:"organization_id"`
	AccountingEmail string `json:"accounting_email"`
	PDFBase64       string `json:"pdf_base64"`
	PDFFileName     string `json:"pdf_file_name"`
}
