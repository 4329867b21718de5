// Package service implements expense reports: expenses with currency
// conversion, receipts, exchange rates, review and exports.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/travelflow/travelflow-backend/internal/expense/domain"
	"github.com/travelflow/travelflow-backend/internal/expense/events"
	"github.com/travelflow/travelflow-backend/internal/expense/export"
	"github.com/travelflow/travelflow-backend/internal/expense/repository"
	identitydomain "github.com/travelflow/travelflow-backend/internal/identity/domain"
	"github.com/travelflow/travelflow-backend/pkg/actor"
	"github.com/travelflow/travelflow-backend/pkg/errors"
	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
	"github.com/travelflow/travelflow-backend/pkg/storage"
)

// ReportStore persists expense reports
type ReportStore interface {
	Create(ctx context.Context, rep *domain.Report) error
	GetByID(ctx context.Context, id string) (*domain.Report, error)
	LockByID(ctx context.Context, id string) (*domain.Report, error)
	List(ctx context.Context, filter repository.ReportFilter, limit, offset int) ([]*domain.Report, int64, error)
	Update(ctx context.Context, rep *domain.Report) error
	SetTotal(ctx context.Context, id string, total decimal.Decimal) error
	Transition(ctx context.Context, rep *domain.Report, from string) error
	Delete(ctx context.Context, id string) error
}

// ExpenseStore persists expenses
type ExpenseStore interface {
	Create(ctx context.Context, e *domain.Expense) error
	GetByID(ctx context.Context, id string) (*domain.Expense, error)
	ListByReport(ctx context.Context, reportID string) ([]*domain.Expense, error)
	Update(ctx context.Context, e *domain.Expense) error
	SetApprovalStatus(ctx context.Context, id, status string) error
	ApprovePending(ctx context.Context, reportID string) error
	Delete(ctx context.Context, id string) error
}

// RateStore persists exchange rates
type RateStore interface {
	Create(ctx context.Context, rate *domain.ExchangeRate) error
	GetByID(ctx context.Context, id string) (*domain.ExchangeRate, error)
	List(ctx context.Context, organizationID string) ([]*domain.ExchangeRate, error)
	Find(ctx context.Context, organizationID, from, to string, date time.Time) (*domain.ExchangeRate, error)
	Delete(ctx context.Context, id string) error
}

// ReceiptStore persists receipts
type ReceiptStore interface {
	Create(ctx context.Context, rec *domain.Receipt) error
	GetByID(ctx context.Context, id string) (*domain.Receipt, error)
	ListByExpenses(ctx context.Context, expenseIDs []string) ([]*domain.Receipt, error)
	Delete(ctx context.Context, id string) error
}

// ProfileDirectory looks up report owners and reviewers
type ProfileDirectory interface {
	GetByID(ctx context.Context, id string) (*identitydomain.Profile, error)
	ListActiveByRole(ctx context.Context, organizationID, role string) ([]*identitydomain.Profile, error)
}

// OrganizationReader reads the accounting settings of an organization
type OrganizationReader interface {
	GetByID(ctx context.Context, id string) (*identitydomain.Organization, error)
}

// URLSigner resolves receipt paths to URLs
type URLSigner interface {
	Resolve(path string, private bool) *storage.SignedURL
}

// Transactor runs a function inside an organization scoped transaction
type Transactor interface {
	WithTenant(ctx context.Context, fn func(context.Context) error) error
}

// Stores groups the persistence of the expense service
type Stores struct {
	Reports  ReportStore
	Expenses ExpenseStore
	Rates    RateStore
	Receipts ReceiptStore
}

// ExpenseService handles expense reports from opening to accounting hand-off
type ExpenseService struct {
	reports  ReportStore
	expenses ExpenseStore
	rates    RateStore
	receipts ReceiptStore
	profiles ProfileDirectory
	orgs     OrganizationReader
	signer   URLSigner
	tx       Transactor
	events   *events.ReportEventPublisher
	logger   *logger.Logger
	now      func() time.Time
	font     *export.Font
}

// NewExpenseService creates a new expense service
func NewExpenseService(
	stores Stores,
	profiles ProfileDirectory,
	orgs OrganizationReader,
	signer URLSigner,
	tx Transactor,
	publisher *events.ReportEventPublisher,
	log *logger.Logger,
) *ExpenseService {
	return &ExpenseService{
		reports:  stores.Reports,
		expenses: stores.Expenses,
		rates:    stores.Rates,
		receipts: stores.Receipts,
		profiles: profiles,
		orgs:     orgs,
		signer:   signer,
		tx:       tx,
		events:   publisher,
		logger:   log,
		now:      time.Now,
	}
}

// SetClock replaces the clock used for timestamps
func (s *ExpenseService) SetClock(now func() time.Time) {
	s.now = now
}

// SetFont makes generated PDFs use font instead of the Latin-1 core fonts
func (s *ExpenseService) SetFont(font *export.Font) {
	s.font = font
}

func caller(ctx context.Context) (*actor.Actor, error) {
	a := actor.FromContext(ctx)
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	return a, nil
}

// load returns a report of the caller's organization. Reports of other
// organizations are reported as missing.
func (s *ExpenseService) load(ctx context.Context, a *actor.Actor, id string, lock bool) (*domain.Report, error) {
	get := s.reports.GetByID
	if lock {
		get = s.reports.LockByID
	}
	rep, err := get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rep.OrganizationID != a.OrganizationID {
		return nil, errors.NotFound("report")
	}
	return rep, nil
}

// editable returns a report the caller owns and may still change
func (s *ExpenseService) editable(ctx context.Context, a *actor.Actor, id string) (*domain.Report, error) {
	rep, err := s.load(ctx, a, id, true)
	if err != nil {
		return nil, err
	}
	if !rep.IsOwnedBy(a.ID) {
		return nil, errors.Forbidden("only the owner can change this report")
	}
	if !rep.IsEditable() {
		return nil, errors.BadRequest("report is " + rep.Status + " and can no longer be changed")
	}
	return rep, nil
}

// canView reports whether a may read rep and its receipts
func (s *ExpenseService) canView(ctx context.Context, a *actor.Actor, rep *domain.Report) bool {
	if rep.IsOwnedBy(a.ID) || a.Can(permissions.ReportsRead) {
		return true
	}
	return s.isOwnersManager(ctx, a, rep)
}

// canReview reports whether a may decide rep: the owner's manager or a
// holder of both reports.approve and reports.read. Nobody reviews their own
// report.
func (s *ExpenseService) canReview(ctx context.Context, a *actor.Actor, rep *domain.Report) bool {
	if rep.IsOwnedBy(a.ID) {
		return false
	}
	if a.CanApproveReports() && a.Can(permissions.ReportsRead) {
		return true
	}
	return a.CanApproveReports() && s.isOwnersManager(ctx, a, rep)
}

func (s *ExpenseService) isOwnersManager(ctx context.Context, a *actor.Actor, rep *domain.Report) bool {
	owner, err := s.profiles.GetByID(ctx, rep.UserID)
	if err != nil {
		return false
	}
	return owner.ManagerID != nil && *owner.ManagerID == a.ID
}
