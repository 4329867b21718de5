package workflow

// Travel request states
const (
	TravelDraft             State = "draft"
	TravelPendingApproval   State = "pending_approval"
	TravelApproved          State = "approved"
	TravelPartiallyApproved State = "partially_approved"
	TravelRejected          State = "rejected"
	TravelCancelled         State = "cancelled"
)

// Report states
const (
	ReportDraft           State = "draft"
	ReportOpen            State = "open"
	ReportPendingApproval State = "pending_approval"
	ReportClosed          State = "closed"
)

// Travel is the travel request lifecycle:
//
//	draft -> pending_approval -> approved | partially_approved | rejected
//	pending_approval -> cancelled
//	rejected | cancelled -> draft
var Travel = NewBuilder("travel request").
	Permit(TravelDraft, TriggerSubmit, TravelPendingApproval).
	Permit(TravelPendingApproval, TriggerApprove, TravelApproved).
	Permit(TravelPendingApproval, TriggerPartiallyApprove, TravelPartiallyApproved).
	Permit(TravelPendingApproval, TriggerReject, TravelRejected).
	Permit(TravelPendingApproval, TriggerCancel, TravelCancelled).
	Permit(TravelRejected, TriggerReopen, TravelDraft).
	Permit(TravelCancelled, TriggerReopen, TravelDraft).
	Build()

// Report is the expense report lifecycle. A rejected report goes back to
// open so the owner can fix it and submit again.
var Report = NewBuilder("report").
	Permit(ReportDraft, TriggerOpen, ReportOpen).
	Permit(ReportDraft, TriggerSubmit, ReportPendingApproval).
	Permit(ReportOpen, TriggerSubmit, ReportPendingApproval).
	Permit(ReportPendingApproval, TriggerApprove, ReportClosed).
	Permit(ReportPendingApproval, TriggerReject, ReportOpen).
	Build()
