package notification

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/messaging"
)

// HandlerRegistry accepts event handlers, e.g. a messaging.Consumer
type HandlerRegistry interface {
	RegisterHandler(eventType string, handler messaging.MessageHandler)
}

// Notifier renders one mail per event and hands it to the mailer. A mailer
// failure is returned so the consumer can retry the delivery.
type Notifier struct {
	mailer      Mailer
	frontendURL string
	logger      *logger.Logger
}

// NewNotifier creates a new notifier. frontendURL is used for links in mails.
func NewNotifier(mailer Mailer, frontendURL string, log *logger.Logger) *Notifier {
	return &Notifier{
		mailer:      mailer,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      log.WithComponent("notifier"),
	}
}

// Register registers a handler for every notified event type
func (n *Notifier) Register(r HandlerRegistry) {
	r.RegisterHandler(messaging.EventTravelRequestSubmitted, n.travelSubmitted)
	r.RegisterHandler(messaging.EventTravelRequestDecided, n.travelDecided)
	r.RegisterHandler(messaging.EventTravelRequestCancelled, n.travelCancelled)
	r.RegisterHandler(messaging.EventReportSubmitted, n.reportSubmitted)
	r.RegisterHandler(messaging.EventReportDecided, n.reportDecided)
	r.RegisterHandler(messaging.EventReportAccountingExport, n.accountingExport)
}

func (n *Notifier) link(path string) string {
	if n.frontendURL == "" {
		return ""
	}
	return "\n\nOpen it here: " + n.frontendURL + path
}

func (n *Notifier) send(ctx context.Context, event *messaging.Event, m *Mail) error {
	if m.To == "" {
		n.logger.Warn().Str("event_type", event.Type).Str("event_id", event.ID).Msg("no recipient for event, skipping mail")
		return nil
	}
	if err := n.mailer.Send(ctx, m); err != nil {
		return fmt.Errorf("failed to send %s mail: %w", event.Type, err)
	}
	n.logger.Info().
		Str("event_type", event.Type).
		Str("event_id", event.ID).
		Str("to", m.To).
		Msg("notification sent")
	return nil
}

func (n *Notifier) travelSubmitted(ctx context.Context, event *messaging.Event) error {
	var data messaging.TravelRequestSubmittedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	body := fmt.Sprintf(
		"Hello %s,\n\n%s asks for your approval of a trip to %s from %s to %s.\nEstimated total: %s %s (approval level %d).",
		data.ApproverName, data.RequesterName, data.Destination, data.StartDate, data.EndDate,
		data.EstimatedTotal.StringFixed(2), data.Currency, data.ApprovalLevel,
	) + n.link("/travel-requests/"+data.TravelRequestID)

	return n.send(ctx, event, &Mail{
		To:      data.ApproverEmail,
		Subject: "Travel request to " + data.Destination + " awaits your approval",
		Body:    body,
	})
}

func (n *Notifier) travelDecided(ctx context.Context, event *messaging.Event) error {
	var data messaging.TravelRequestDecidedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	decision := strings.ReplaceAll(data.Decision, "_", " ")
	body := fmt.Sprintf("Hello %s,\n\nyour travel request to %s was %s.", data.EmployeeName, data.Destination, decision)
	if data.Decision != "rejected" {
		body += fmt.Sprintf("\nApproved budget: %s %s.", data.ApprovedBudget.StringFixed(2), data.Currency)
	}
	if data.Comments != "" {
		body += "\n\nComment: " + data.Comments
	}
	body += n.link("/travel-requests/" + data.TravelRequestID)

	return n.send(ctx, event, &Mail{
		To:      data.EmployeeEmail,
		Subject: "Your travel request to " + data.Destination + " was " + decision,
		Body:    body,
	})
}

func (n *Notifier) travelCancelled(ctx context.Context, event *messaging.Event) error {
	var data messaging.TravelRequestCancelledEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	return n.send(ctx, event, &Mail{
		To:      data.ApproverEmail,
		Subject: "Travel request to " + data.Destination + " was withdrawn",
		Body:    fmt.Sprintf("%s withdrew the travel request to %s. No action is needed.", data.RequesterName, data.Destination),
	})
}

func (n *Notifier) reportSubmitted(ctx context.Context, event *messaging.Event) error {
	var data messaging.ReportSubmittedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	body := fmt.Sprintf(
		"Hello %s,\n\n%s submitted the expense report for %s.\nTotal: %s %s.",
		data.ReviewerName, data.SubmitterName, data.Destination, data.TotalAmount.StringFixed(2), data.Currency,
	) + n.link("/reports/"+data.ReportID)

	return n.send(ctx, event, &Mail{
		To:      data.ReviewerEmail,
		Subject: "Expense report for " + data.Destination + " awaits your review",
		Body:    body,
	})
}

func (n *Notifier) reportDecided(ctx context.Context, event *messaging.Event) error {
	var data messaging.ReportDecidedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	body := fmt.Sprintf("Hello %s,\n\nyour expense report over %s %s was %s.",
		data.OwnerName, data.TotalAmount.StringFixed(2), data.Currency, data.Decision)
	if data.Comment != "" {
		body += "\n\nComment: " + data.Comment
	}
	body += n.link("/reports/" + data.ReportID)

	return n.send(ctx, event, &Mail{
		To:      data.OwnerEmail,
		Subject: "Your expense report was " + data.Decision,
		Body:    body,
	})
}

func (n *Notifier) accountingExport(ctx context.Context, event *messaging.Event) error {
	var data messaging.ReportAccountingExportEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	pdf, err := base64.StdEncoding.DecodeString(data.PDFBase64)
	if err != nil {
		// a broken payload never gets better, so it is not retried
		n.logger.Error().Err(err).Str("report_id", data.ReportID).Msg("invalid pdf in accounting export event")
		return nil
	}

	return n.send(ctx, event, &Mail{
		To:      data.AccountingEmail,
		Subject: "Approved expense report " + data.PDFFileName,
		Body:    "Please find the approved expense report attached.",
		Attachments: []Attachment{{
			Name:        data.PDFFileName,
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	})
}
