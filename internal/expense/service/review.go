package service

import (
	"context"
	"strings"

	"github.com/travelflow/travelflow-backend/internal/expense/domain"
	"github.com/travelflow/travelflow-backend/internal/expense/export"
	identitydomain "github.com/travelflow/travelflow-backend/internal/identity/domain"
	"github.com/travelflow/travelflow-backend/internal/travel/workflow"
	"github.com/travelflow/travelflow-backend/pkg/errors"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
)

// Report decisions as published to the owner
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// reviewerFor returns who is notified of a submitted report: the owner's
// manager, or for managers without one the first accounting manager. A
// non-manager without an assigned manager cannot submit.
func (s *ExpenseService) reviewerFor(ctx context.Context, owner *identitydomain.Profile) (*identitydomain.Profile, error) {
	if owner.ManagerID != nil {
		manager, err := s.profiles.GetByID(ctx, *owner.ManagerID)
		if err == nil && manager.IsActive && manager.OrganizationID == owner.OrganizationID {
			return manager, nil
		}
	}
	if !owner.IsManager() {
		return nil, errors.BadRequest("no manager assigned: ask an administrator to assign one before submitting")
	}

	candidates, err := s.profiles.ListActiveByRole(ctx, owner.OrganizationID, permissions.RoleAccountingManager)
	if err != nil {
		return nil, err
	}
	for _, p := range candidates {
		if p.ID != owner.ID {
			return p, nil
		}
	}
	return nil, nil
}

// SubmitReport sends a report of the caller for review. The report needs at
// least one expense.
func (s *ExpenseService) SubmitReport(ctx context.Context, id string) (*domain.Report, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	var (
		rep      *domain.Report
		owner    *identitydomain.Profile
		reviewer *identitydomain.Profile
	)
	err = s.tx.WithTenant(ctx, func(ctx context.Context) error {
		rep, err = s.load(ctx, a, id, true)
		if err != nil {
			return err
		}
		if !rep.IsOwnedBy(a.ID) {
			return errors.Forbidden("only the owner can submit this report")
		}
		from := rep.Status
		to, err := workflow.Report.Fire(workflow.State(from), workflow.TriggerSubmit)
		if err != nil {
			return err
		}

		expenses, err := s.expenses.ListByReport(ctx, rep.ID)
		if err != nil {
			return err
		}
		if len(expenses) == 0 {
			return errors.BadRequest("a report needs at least one expense before it can be submitted")
		}

		owner, err = s.profiles.GetByID(ctx, rep.UserID)
		if err != nil {
			return err
		}
		reviewer, err = s.reviewerFor(ctx, owner)
		if err != nil {
			return err
		}

		now := s.now()
		rep.Status = string(to)
		rep.SubmittedAt = &now
		return s.reports.Transition(ctx, rep, from)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("report_id", rep.ID).Str("user_id", a.ID).Msg("report submitted")
	if reviewer != nil {
		s.events.PublishSubmitted(ctx, rep, reviewer, owner)
	}
	return rep, nil
}

// DecideReportRequest approves or rejects a submitted report
type DecideReportRequest struct {
	Decision string  `json:"decision" validate:"required,oneof=approve reject"`
	Comment  *string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

// DecideReport closes or reopens a report under review. Approval approves
// every expense still pending and, for organizations with an external
// accountant, hands the rendered PDF over.
func (s *ExpenseService) DecideReport(ctx context.Context, id string, in *DecideReportRequest) (*domain.Report, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	trigger := workflow.TriggerApprove
	decision := DecisionApproved
	if in.Decision == "reject" {
		trigger = workflow.TriggerReject
		decision = DecisionRejected
	}

	var (
		rep   *domain.Report
		owner *identitydomain.Profile
		org   *identitydomain.Organization
	)
	err = s.tx.WithTenant(ctx, func(ctx context.Context) error {
		rep, err = s.load(ctx, a, id, true)
		if err != nil {
			return err
		}
		if !s.canReview(ctx, a, rep) {
			return errors.Forbidden("not allowed to review this report")
		}
		from := rep.Status
		to, err := workflow.Report.Fire(workflow.State(from), trigger)
		if err != nil {
			return err
		}

		if trigger == workflow.TriggerApprove {
			if err := s.expenses.ApprovePending(ctx, rep.ID); err != nil {
				return err
			}
			now := s.now()
			rep.ClosedAt = &now
		}
		rep.Status = string(to)
		rep.ReviewerID = &a.ID
		rep.ReviewComment = nil
		if in.Comment != nil && strings.TrimSpace(*in.Comment) != "" {
			comment := strings.TrimSpace(*in.Comment)
			rep.ReviewComment = &comment
		}
		if err := s.reports.Transition(ctx, rep, from); err != nil {
			return err
		}

		owner, err = s.profiles.GetByID(ctx, rep.UserID)
		if err != nil {
			return err
		}
		org, err = s.orgs.GetByID(ctx, rep.OrganizationID)
		if err != nil {
			return err
		}
		return s.attach(ctx, rep)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("report_id", rep.ID).
		Str("decision", decision).
		Str("reviewer_id", a.ID).
		Msg("report decided")

	s.events.PublishDecided(ctx, rep, owner, decision)
	if decision == DecisionApproved && org.UsesExternalAccounting() {
		s.handOver(ctx, rep, owner, *org.ExternalAccountingEmail)
	}
	return rep, nil
}

// handOver renders rep and sends it to the external accountant. The report
// is already closed, so failures are logged only.
func (s *ExpenseService) handOver(ctx context.Context, rep *domain.Report, owner *identitydomain.Profile, email string) {
	doc := s.document(rep, owner)
	pdf, err := export.PDF(doc)
	if err != nil {
		s.logger.Error().Err(err).Str("report_id", rep.ID).Msg("failed to render report for accounting")
		return
	}
	s.events.PublishAccountingExport(ctx, rep, email, doc.FileName("pdf"), pdf)
	s.logger.Info().Str("report_id", rep.ID).Int("pdf_bytes", len(pdf)).Msg("report handed over to external accounting")
}

// DecideExpenseRequest approves or rejects a single expense
type DecideExpenseRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
}

// DecideExpense records a per-expense decision on a report under review
func (s *ExpenseService) DecideExpense(ctx context.Context, reportID, expenseID string, in *DecideExpenseRequest) (*domain.Expense, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	status := domain.ExpenseApproved
	if in.Decision == "reject" {
		status = domain.ExpenseRejected
	}

	var e *domain.Expense
	err = s.tx.WithTenant(ctx, func(ctx context.Context) error {
		rep, err := s.load(ctx, a, reportID, true)
		if err != nil {
			return err
		}
		if !s.canReview(ctx, a, rep) {
			return errors.Forbidden("not allowed to review this report")
		}
		if rep.Status != domain.StatusPendingApproval {
			return errors.BadRequest("expenses can only be decided while the report is pending approval")
		}
		e, err = s.expenseOf(ctx, rep, expenseID)
		if err != nil {
			return err
		}
		if err := s.expenses.SetApprovalStatus(ctx, e.ID, status); err != nil {
			return err
		}
		e.ApprovalStatus = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("report_id", reportID).Str("expense_id", expenseID).Str("status", status).Msg("expense decided")
	return e, nil
}

// Export formats
const (
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

// Rendition is a downloadable report document
type Rendition struct {
	FileName    string
	ContentType string
	Data        []byte
}

// document assembles rep for rendering. Receipt paths are resolved to URLs,
// signed ones for private receipts.
func (s *ExpenseService) document(rep *domain.Report, owner *identitydomain.Profile) *export.Document {
	doc := &export.Document{Report: rep, OwnerName: owner.FullName, Generated: s.now(), Font: s.font}
	for _, e := range rep.Expenses {
		for _, rec := range e.Receipts {
			u := s.signer.Resolve(rec.FilePath, rec.IsPrivate)
			doc.Receipts = append(doc.Receipts, export.ReceiptLink{
				ExpenseDate: e.ExpenseDate,
				Category:    e.Category,
				FilePath:    rec.FilePath,
				URL:         u.URL,
				ExpiresAt:   u.ExpiresAt,
			})
		}
	}
	return doc
}

// Export renders a report the caller may view as PDF or XLSX
func (s *ExpenseService) Export(ctx context.Context, id, format string) (*Rendition, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	var doc *export.Document
	err = s.tx.WithTenant(ctx, func(ctx context.Context) error {
		rep, err := s.load(ctx, a, id, false)
		if err != nil {
			return err
		}
		if !rep.IsOwnedBy(a.ID) && !a.Can(permissions.ReportsRead) {
			return errors.Forbidden("not allowed to export this report")
		}
		if err := s.attach(ctx, rep); err != nil {
			return err
		}
		owner, err := s.profiles.GetByID(ctx, rep.UserID)
		if err != nil {
			return err
		}
		doc = s.document(rep, owner)
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatPDF:
		data, err := export.PDF(doc)
		if err != nil {
			return nil, errors.Internal("failed to render report")
		}
		return &Rendition{FileName: doc.FileName(FormatPDF), ContentType: export.ContentTypePDF, Data: data}, nil
	case FormatXLSX:
		data, err := export.XLSX(doc)
		if err != nil {
			return nil, errors.Internal("failed to render report")
		}
		return &Rendition{FileName: doc.FileName(FormatXLSX), ContentType: export.ContentTypeXLSX, Data: data}, nil
	default:
		return nil, errors.BadRequest("unsupported export format " + format)
	}
}
