package service

import (
	"context"
	"strings"

	"github.com/travelflow/travelflow-backend/internal/expense/domain"
	"github.com/travelflow/travelflow-backend/pkg/actor"
	"github.com/travelflow/travelflow-backend/pkg/errors"
	"github.com/travelflow/travelflow-backend/pkg/storage"
)

// ReceiptInput attaches an uploaded file to an expense
type ReceiptInput struct {
	FilePath  string `json:"file_path" validate:"required,max=1024"`
	FileType  string `json:"file_type" validate:"omitempty,oneof=image other"`
	IsPrivate *bool  `json:"is_private,omitempty"`
}

func cleanPath(path string) (string, error) {
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "" {
		return "", errors.ValidationField("file_path", "must not be empty")
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." || seg == "." {
			return "", errors.ValidationField("file_path", "must not contain relative segments")
		}
	}
	return path, nil
}

// AttachReceipt attaches a receipt to an expense of an editable report of
// the caller. Receipts are private unless stated otherwise.
func (s *ExpenseService) AttachReceipt(ctx context.Context, reportID, expenseID string, in *ReceiptInput) (*domain.Receipt, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	path, err := cleanPath(in.FilePath)
	if err != nil {
		return nil, err
	}
	rec := &domain.Receipt{
		OrganizationID: a.OrganizationID,
		ExpenseID:      expenseID,
		FilePath:       path,
		FileType:       in.FileType,
		IsPrivate:      true,
	}
	if rec.FileType == "" {
		rec.FileType = domain.FileImage
	}
	if in.IsPrivate != nil {
		rec.IsPrivate = *in.IsPrivate
	}

	err = s.tx.WithTenant(ctx, func(ctx context.Context) error {
		rep, err := s.editable(ctx, a, reportID)
		if err != nil {
			return err
		}
		if _, err := s.expenseOf(ctx, rep, expenseID); err != nil {
			return err
		}
		return s.receipts.Create(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("receipt_id", rec.ID).Str("expense_id", expenseID).Bool("private", rec.IsPrivate).Msg("receipt attached")
	return rec, nil
}

// receiptReport loads a receipt together with the report it belongs to
func (s *ExpenseService) receiptReport(ctx context.Context, a *actor.Actor, id string) (*domain.Receipt, *domain.Report, error) {
	rec, err := s.receipts.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if rec.OrganizationID != a.OrganizationID {
		return nil, nil, errors.NotFound("receipt")
	}
	e, err := s.expenses.GetByID(ctx, rec.ExpenseID)
	if err != nil {
		return nil, nil, err
	}
	rep, err := s.load(ctx, a, e.ReportID, false)
	if err != nil {
		return nil, nil, err
	}
	return rec, rep, nil
}

// DeleteReceipt removes a receipt from an editable report of the caller
func (s *ExpenseService) DeleteReceipt(ctx context.Context, id string) error {
	a, err := caller(ctx)
	if err != nil {
		return err
	}

	return s.tx.WithTenant(ctx, func(ctx context.Context) error {
		_, rep, err := s.receiptReport(ctx, a, id)
		if err != nil {
			return err
		}
		if _, err := s.editable(ctx, a, rep.ID); err != nil {
			return err
		}
		if err := s.receipts.Delete(ctx, id); err != nil {
			return err
		}
		s.logger.Info().Str("receipt_id", id).Str("report_id", rep.ID).Msg("receipt deleted")
		return nil
	})
}

// ReceiptURL returns where the receipt can be fetched: the public URL, or a
// signed URL that expires for private receipts
func (s *ExpenseService) ReceiptURL(ctx context.Context, id string) (*storage.SignedURL, error) {
	a, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	var url *storage.SignedURL
	err = s.tx.WithTenant(ctx, func(ctx context.Context) error {
		rec, rep, err := s.receiptReport(ctx, a, id)
		if err != nil {
			return err
		}
		if !s.canView(ctx, a, rep) {
			return errors.Forbidden("not allowed to view this receipt")
		}
		url = s.signer.Resolve(rec.FilePath, rec.IsPrivate)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return url, nil
}
