package notification_test

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelflow/travelflow-backend/internal/notification"
	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/messaging"
	"github.com/travelflow/travelflow-backend/pkg/testutil"
)

type recordingMailer struct {
	sent []*notification.Mail
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, mail *notification.Mail) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, mail)
	return nil
}

type registry map[string]messaging.MessageHandler

func (r registry) RegisterHandler(eventType string, handler messaging.MessageHandler) {
	r[eventType] = handler
}

func setup() (*recordingMailer, registry) {
	mailer := &recordingMailer{}
	handlers := registry{}
	notification.NewNotifier(mailer, "https://app.example.com/", logger.Nop()).Register(handlers)
	return mailer, handlers
}

func deliver(t *testing.T, handlers registry, eventType string, data interface{}) error {
	t.Helper()
	event, err := messaging.NewEvent(eventType, "travel-service", "corr-1", data)
	require.NoError(t, err)
	handler, ok := handlers[eventType]
	require.True(t, ok, "no handler for %s", eventType)
	return handler(context.Background(), event)
}

func TestNotifier_RegistersEveryEvent(t *testing.T) {
	_, handlers := setup()
	for _, eventType := range []string{
		messaging.EventTravelRequestSubmitted,
		messaging.EventTravelRequestDecided,
		messaging.EventTravelRequestCancelled,
		messaging.EventReportSubmitted,
		messaging.EventReportDecided,
		messaging.EventReportAccountingExport,
	} {
		assert.Contains(t, handlers, eventType)
	}
}

func TestNotifier_TravelSubmittedMailsApprover(t *testing.T) {
	mailer, handlers := setup()

	err := deliver(t, handlers, messaging.EventTravelRequestSubmitted, messaging.TravelRequestSubmittedEvent{
		TravelRequestID: "tr-1",
		ApprovalLevel:   1,
		ApproverEmail:   "boss@example.com",
		ApproverName:    "Boss",
		RequesterName:   "Employee",
		Destination:     "Lisbon",
		StartDate:       "2026-05-04",
		EndDate:         "2026-05-06",
		EstimatedTotal:  testutil.Dec("600"),
		Currency:        "EUR",
	})
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)

	mail := mailer.sent[0]
	assert.Equal(t, "boss@example.com", mail.To)
	assert.Contains(t, mail.Subject, "Lisbon")
	assert.Contains(t, mail.Body, "600.00 EUR")
	assert.Contains(t, mail.Body, "https://app.example.com/travel-requests/tr-1")
}

func TestNotifier_RejectedTravelHasNoBudget(t *testing.T) {
	mailer, handlers := setup()

	err := deliver(t, handlers, messaging.EventTravelRequestDecided, messaging.TravelRequestDecidedEvent{
		EmployeeEmail: "emp@example.com",
		Decision:      "rejected",
		Destination:   "Lisbon",
		Comments:      "too expensive",
	})
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	assert.NotContains(t, mailer.sent[0].Body, "Approved budget")
	assert.Contains(t, mailer.sent[0].Body, "too expensive")
}

func TestNotifier_SkipsEventsWithoutRecipient(t *testing.T) {
	mailer, handlers := setup()

	err := deliver(t, handlers, messaging.EventTravelRequestCancelled, messaging.TravelRequestCancelledEvent{Destination: "Lisbon"})
	require.NoError(t, err)
	assert.Empty(t, mailer.sent)
}

func TestNotifier_MailerFailureIsReturnedForRetry(t *testing.T) {
	mailer, handlers := setup()
	mailer.err = errors.New("connection refused")

	err := deliver(t, handlers, messaging.EventReportDecided, messaging.ReportDecidedEvent{
		OwnerEmail: "emp@example.com",
		Decision:   "approved",
	})
	assert.Error(t, err)
}

func TestNotifier_AccountingExportAttachesPDF(t *testing.T) {
	mailer, handlers := setup()

	err := deliver(t, handlers, messaging.EventReportAccountingExport, messaging.ReportAccountingExportEvent{
		ReportID:        "rep-1",
		AccountingEmail: "books@accountant.example",
		PDFBase64:       base64.StdEncoding.EncodeToString([]byte("%PDF-1.3 body")),
		PDFFileName:     "expense-report.pdf",
	})
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	require.Len(t, mailer.sent[0].Attachments, 1)

	att := mailer.sent[0].Attachments[0]
	assert.Equal(t, "expense-report.pdf", att.Name)
	assert.Equal(t, "application/pdf", att.ContentType)
	assert.Equal(t, "%PDF-1.3 body", string(att.Data))
}

func TestCompose(t *testing.T) {
	t.Run("plain text", func(t *testing.T) {
		msg, err := notification.Compose("TravelFlow <no-reply@example.com>", &notification.Mail{
			To: "emp@example.com", Subject: "Hello", Body: "line one\nline two",
		})
		require.NoError(t, err)
		s := string(msg)
		assert.Contains(t, s, "Content-Type: text/plain; charset=utf-8\r\n")
		assert.True(t, strings.HasSuffix(s, "line one\r\nline two"))
	})

	t.Run("with attachment", func(t *testing.T) {
		msg, err := notification.Compose("no-reply@example.com", &notification.Mail{
			To: "books@example.com", Subject: "Report", Body: "attached",
			Attachments: []notification.Attachment{{Name: "r.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}},
		})
		require.NoError(t, err)
		s := string(msg)
		assert.Contains(t, s, "Content-Type: multipart/mixed; boundary=")
		assert.Contains(t, s, `attachment; filename=r.pdf`)
		assert.Contains(t, s, base64.StdEncoding.EncodeToString([]byte("%PDF")))
	})
}
