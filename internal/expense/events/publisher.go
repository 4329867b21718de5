// Package events publishes expense report events for the notification worker.
package events

import (
	"context"
	"encoding/base64"

	"github.com/travelflow/travelflow-backend/internal/expense/domain"
	identitydomain "github.com/travelflow/travelflow-backend/internal/identity/domain"
	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/messaging"
)

// ReportEventPublisher publishes report events after commit. Failures are
// logged only.
type ReportEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewReportEventPublisher creates a new report event publisher
func NewReportEventPublisher(publisher messaging.EventPublisher, log *logger.Logger) *ReportEventPublisher {
	return &ReportEventPublisher{
		publisher: publisher,
		logger:    log,
	}
}

// PublishSubmitted asks reviewer to look at rep
func (p *ReportEventPublisher) PublishSubmitted(ctx context.Context, rep *domain.Report, reviewer, owner *identitydomain.Profile) {
	data := messaging.ReportSubmittedEvent{
		ReportID:       rep.ID,
		OrganizationID: rep.OrganizationID,
		ReviewerEmail:  reviewer.Email,
		ReviewerName:   reviewer.FullName,
		SubmitterName:  owner.FullName,
		Destination:    rep.Destination,
		TotalAmount:    rep.TotalAmount,
		Currency:       rep.Currency,
	}
	p.publish(ctx, messaging.EventReportSubmitted, rep.ID, data)
}

// PublishDecided tells the owner of rep how it was decided
func (p *ReportEventPublisher) PublishDecided(ctx context.Context, rep *domain.Report, owner *identitydomain.Profile, decision string) {
	data := messaging.ReportDecidedEvent{
		ReportID:       rep.ID,
		OrganizationID: rep.OrganizationID,
		OwnerEmail:     owner.Email,
		OwnerName:      owner.FullName,
		Decision:       decision,
		TotalAmount:    rep.TotalAmount,
		Currency:       rep.Currency,
	}
	if rep.ReviewComment != nil {
		data.Comment = *rep.ReviewComment
	}
	p.publish(ctx, messaging.EventReportDecided, rep.ID, data)
}

// PublishAccountingExport hands the rendered PDF of rep to an external accountant
func (p *ReportEventPublisher) PublishAccountingExport(ctx context.Context, rep *domain.Report, email, fileName string, pdf []byte) {
	data := messaging.ReportAccountingExportEvent{
		ReportID:        rep.ID,
		OrganizationID:  rep.OrganizationID,
		AccountingEmail: email,
		PDFBase64:       base64.StdEncoding.EncodeToString(pdf),
		PDFFileName:     fileName,
	}
	p.publish(ctx, messaging.EventReportAccountingExport, rep.ID, data)
}

func (p *ReportEventPublisher) publish(ctx context.Context, eventType, reportID string, data interface{}) {
	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Str("report_id", reportID).Str("event_type", eventType).Msg("failed to publish report event")
	}
}
