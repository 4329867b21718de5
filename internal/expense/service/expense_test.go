package service_test

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelflow/travelflow-backend/internal/expense/domain"
	"github.com/travelflow/travelflow-backend/internal/expense/events"
	"github.com/travelflow/travelflow-backend/internal/expense/export"
	"github.com/travelflow/travelflow-backend/internal/expense/service"
	identitydomain "github.com/travelflow/travelflow-backend/internal/identity/domain"
	traveldomain "github.com/travelflow/travelflow-backend/internal/travel/domain"
	"github.com/travelflow/travelflow-backend/pkg/config"
	"github.com/travelflow/travelflow-backend/pkg/errors"
	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/messaging"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
	"github.com/travelflow/travelflow-backend/pkg/storage"
	"github.com/travelflow/travelflow-backend/pkg/testutil"
)

const org = "org-1"

type fixture struct {
	svc      *service.ExpenseService
	reports  *memReports
	expenses *memExpenses
	rates    *memRates
	receipts *memReceipts
	profiles *memProfiles
	orgs     *memOrgs
	pub      *testutil.MockPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		reports:  &memReports{rows: map[string]*domain.Report{}},
		expenses: &memExpenses{rows: map[string]*domain.Expense{}},
		rates:    &memRates{},
		receipts: &memReceipts{rows: map[string]*domain.Receipt{}},
		profiles: &memProfiles{rows: map[string]*identitydomain.Profile{}},
		orgs: &memOrgs{rows: map[string]*identitydomain.Organization{
			org: {ID: org, Name: "Acme", AccountingType: identitydomain.AccountingInternal, DefaultCurrency: "EUR"},
		}},
		pub: testutil.NewMockPublisher(),
	}

	f.profiles.add(&identitydomain.Profile{ID: "emp", OrganizationID: org, Email: "emp@example.com", FullName: "Employee", ManagerID: testutil.PtrString("mgr"), Roles: []string{permissions.RoleUser}})
	f.profiles.add(&identitydomain.Profile{ID: "mgr", OrganizationID: org, Email: "mgr@example.com", FullName: "Manager", Roles: []string{permissions.RoleManager}})
	f.profiles.add(&identitydomain.Profile{ID: "mgr2", OrganizationID: org, Email: "mgr2@example.com", FullName: "Other Manager", Roles: []string{permissions.RoleManager}})
	f.profiles.add(&identitydomain.Profile{ID: "acc", OrganizationID: org, Email: "acc@example.com", FullName: "Accounting", Roles: []string{permissions.RoleAccountingManager}})
	f.profiles.add(&identitydomain.Profile{ID: "loner", OrganizationID: org, Email: "loner@example.com", FullName: "Loner", Roles: []string{permissions.RoleUser}})

	signer := storage.NewSigner(&config.StorageConfig{
		PublicBaseURL:  "https://files.example.com/public",
		PrivateBaseURL: "https://files.example.com/private",
		SigningSecret:  "test-secret",
	})

	log := logger.Nop()
	f.svc = service.NewExpenseService(
		service.Stores{Reports: f.reports, Expenses: f.expenses, Rates: f.rates, Receipts: f.receipts},
		f.profiles, f.orgs, signer, &testutil.NoopTransactor{},
		events.NewReportEventPublisher(f.pub, log), log,
	)
	f.svc.SetClock(func() time.Time { return time.Date(2026, 4, 20, 9, 0, 0, 0, time.UTC) })
	return f
}

func as(id string, roles ...string) context.Context {
	return testutil.ActorContext(testutil.NewActor(id, org, roles...))
}

func asEmployee() context.Context { return as("emp", permissions.RoleUser) }

func (f *fixture) openReport(t *testing.T, ctx context.Context) *domain.Report {
	t.Helper()
	rep, err := f.svc.CreateReport(ctx, &service.ReportInput{
		Destination: "Lisbon",
		Purpose:     "Customer workshop",
		StartDate:   "2026-04-10",
		EndDate:     "2026-04-13",
	})
	require.NoError(t, err)
	return rep
}

func (f *fixture) addExpense(t *testing.T, ctx context.Context, reportID, amount, currency, date string) *domain.Expense {
	t.Helper()
	e, err := f.svc.AddExpense(ctx, reportID, &service.ExpenseInput{
		Category:    "transportation",
		ExpenseDate: date,
		Amount:      testutil.Dec(amount),
		Currency:    currency,
	})
	require.NoError(t, err)
	return e
}

func (f *fixture) addRate(from, to, rate, date string) {
	d, _ := time.Parse(domain.DateLayout, date)
	f.rates.rows = append(f.rates.rows, &domain.ExchangeRate{
		ID: from + to + date, OrganizationID: org, FromCurrency: from, ToCurrency: to, Rate: testutil.Dec(rate), EffectiveDate: d,
	})
}

func TestCreateReport_OpenInOrganizationCurrency(t *testing.T) {
	f := newFixture(t)
	rep := f.openReport(t, asEmployee())

	assert.Equal(t, domain.StatusOpen, rep.Status)
	assert.Equal(t, "EUR", rep.Currency)
	assert.Equal(t, "emp", rep.UserID)
	testutil.AssertDecimal(t, "0", rep.TotalAmount)
}

func TestCreateReport_EndBeforeStart(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateReport(asEmployee(), &service.ReportInput{
		Destination: "Lisbon", StartDate: "2026-04-13", EndDate: "2026-04-10",
	})
	assert.Equal(t, "VALIDATION_ERROR", errors.CodeOf(err))
	assert.Empty(t, f.reports.rows)
}

func TestAddExpense_ConvertsWithLatestRateAndRecomputesTotal(t *testing.T) {
	f := newFixture(t)
	ctx := asEmployee()
	f.addRate("USD", "EUR", "0.90", "2026-04-01")
	f.addRate("USD", "EUR", "0.95", "2026-04-12")

	rep := f.openReport(t, ctx)
	local := f.addExpense(t, ctx, rep.ID, "100", "", "2026-04-10")
	foreign := f.addExpense(t, ctx, rep.ID, "100", "usd", "2026-04-11")

	testutil.AssertDecimal(t, "1", local.ExchangeRate)
	testutil.AssertDecimal(t, "100", local.ConvertedAmount)
	assert.Equal(t, "USD", foreign.Currency)
	testutil.AssertDecimal(t, "0.9", foreign.ExchangeRate)
	testutil.AssertDecimal(t, "90", foreign.ConvertedAmount)
	testutil.AssertDecimal(t, "190", f.reports.rows[rep.ID].TotalAmount)

	later := f.addExpense(t, ctx, rep.ID, "10", "USD", "2026-04-13")
	testutil.AssertDecimal(t, "9.5", later.ConvertedAmount)
	testutil.AssertDecimal(t, "199.5", f.reports.rows[rep.ID].TotalAmount)
}

func TestAddExpense_MissingRateWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := asEmployee()
	rep := f.openReport(t, ctx)
	f.addRate("USD", "EUR", "0.90", "2026-04-12")

	_, err := f.svc.AddExpense(ctx, rep.ID, &service.ExpenseInput{
		Category: "food", ExpenseDate: "2026-04-10", Amount: testutil.Dec("20"), Currency: "USD",
	})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", errors.CodeOf(err))
	assert.Contains(t, err.(*errors.AppError).Details["currency"], "no exchange rate from USD to EUR")
	assert.Empty(t, f.expenses.rows)
}

func TestAddExpense_RejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t)
	ctx := asEmployee()
	rep := f.openReport(t, ctx)

	_, err := f.svc.AddExpense(ctx, rep.ID, &service.ExpenseInput{
		Category: "food", ExpenseDate: "2026-04-10", Amount: testutil.Dec("0"),
	})
	assert.Equal(t, "VALIDATION_ERROR", errors.CodeOf(err))
}

func TestAddExpense_OnlyOwner(t *testing.T) {
	f := newFixture(t)
	rep := f.openReport(t, asEmployee())

	_, err := f.svc.AddExpense(as("loner", permissions.RoleUser), rep.ID, &service.ExpenseInput{
		Category: "food", ExpenseDate: "2026-04-10", Amount: testutil.Dec("5"),
	})
	assert.Equal(t, "FORBIDDEN", errors.CodeOf(err))
}

func TestDeleteExpense_RecomputesTotal(t *testing.T) {
	f := newFixture(t)
	ctx := asEmployee()
	rep := f.openReport(t, ctx)
	first := f.addExpense(t, ctx, rep.ID, "40", "", "2026-04-10")
	f.addExpense(t, ctx, rep.ID, "2.50", "", "2026-04-11")

	require.NoError(t, f.svc.DeleteExpense(ctx, rep.ID, first.ID))
	testutil.AssertDecimal(t, "2.5", f.reports.rows[rep.ID].TotalAmount)
}

func TestUpdateReport_CurrencyChangeConvertsAgain(t *testing.T) {
	f := newFixture(t)
	ctx := asEmployee()
	f.addRate("EUR", "USD", "1.10", "2026-01-01")
	rep := f.openReport(t, ctx)
	f.addExpense(t, ctx, rep.ID, "100", "", "2026-04-10")

	updated, err := f.svc.UpdateReport(ctx, rep.ID, &service.ReportInput{
		Destination: "Lisbon", StartDate: "2026-04-10", EndDate: "2026-04-13", Currency: "usd",
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", updated.Currency)
	testutil.AssertDecimal(t, "110", updated.TotalAmount)
}

func TestSubmitReport(t *testing.T) {
	t.Run("needs an expense", func(t *testing.T) {
		f := newFixture(t)
		rep := f.openReport(t, asEmployee())
		_, err := f.svc.SubmitReport(asEmployee(), rep.ID)
		assert.Equal(t, "BAD_REQUEST", errors.CodeOf(err))
		assert.Equal(t, domain.StatusOpen, f.reports.rows[rep.ID].Status)
	})

	t.Run("needs a manager", func(t *testing.T) {
		f := newFixture(t)
		ctx := as("loner", permissions.RoleUser)
		rep := f.openReport(t, ctx)
		f.addExpense(t, ctx, rep.ID, "10", "", "2026-04-10")

		_, err := f.svc.SubmitReport(ctx, rep.ID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no manager assigned")
		f.pub.AssertNoEventsPublished(t)
	})

	t.Run("notifies the manager", func(t *testing.T) {
		f := newFixture(t)
		ctx := asEmployee()
		rep := f.openReport(t, ctx)
		f.addExpense(t, ctx, rep.ID, "10", "", "2026-04-10")

		submitted, err := f.svc.SubmitReport(ctx, rep.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPendingApproval, submitted.Status)
		require.NotNil(t, submitted.SubmittedAt)

		published := f.pub.EventsOfType(messaging.EventReportSubmitted)
		require.Len(t, published, 1)
		data := published[0].(messaging.ReportSubmittedEvent)
		assert.Equal(t, "mgr@example.com", data.ReviewerEmail)
		assert.Equal(t, "Employee", data.SubmitterName)
		testutil.AssertDecimal(t, "10", data.TotalAmount)

		_, err = f.svc.AddExpense(ctx, rep.ID, &service.ExpenseInput{
			Category: "food", ExpenseDate: "2026-04-10", Amount: testutil.Dec("5"),
		})
		assert.Equal(t, "BAD_REQUEST", errors.CodeOf(err))
	})

	t.Run("manager without manager goes to accounting", func(t *testing.T) {
		f := newFixture(t)
		ctx := as("mgr2", permissions.RoleManager)
		rep := f.openReport(t, ctx)
		f.addExpense(t, ctx, rep.ID, "10", "", "2026-04-10")

		_, err := f.svc.SubmitReport(ctx, rep.ID)
		require.NoError(t, err)

		published := f.pub.EventsOfType(messaging.EventReportSubmitted)
		require.Len(t, published, 1)
		assert.Equal(t, "acc@example.com", published[0].(messaging.ReportSubmittedEvent).ReviewerEmail)
	})
}

func (f *fixture) submitted(t *testing.T) *domain.Report {
	t.Helper()
	ctx := asEmployee()
	rep := f.openReport(t, ctx)
	f.addExpense(t, ctx, rep.ID, "30", "", "2026-04-10")
	f.addExpense(t, ctx, rep.ID, "12.50", "", "2026-04-11")
	rep, err := f.svc.SubmitReport(ctx, rep.ID)
	require.NoError(t, err)
	return rep
}

func TestDecideReport_WhoMayReview(t *testing.T) {
	f := newFixture(t)
	rep := f.submitted(t)
	approve := &service.DecideReportRequest{Decision: "approve"}

	_, err := f.svc.DecideReport(asEmployee(), rep.ID, approve)
	assert.Equal(t, "FORBIDDEN", errors.CodeOf(err))

	_, err = f.svc.DecideReport(as("mgr2", permissions.RoleManager), rep.ID, approve)
	assert.Equal(t, "FORBIDDEN", errors.CodeOf(err))

	_, err = f.svc.DecideReport(as("acc", permissions.RoleAccountingManager), rep.ID, approve)
	assert.NoError(t, err)
}

func TestDecideReport_ApproveClosesInternally(t *testing.T) {
	f := newFixture(t)
	rep := f.submitted(t)

	decided, err := f.svc.DecideReport(as("mgr", permissions.RoleManager), rep.ID, &service.DecideReportRequest{Decision: "approve"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusClosed, decided.Status)
	require.NotNil(t, decided.ClosedAt)
	require.Len(t, decided.Expenses, 2)
	for _, e := range decided.Expenses {
		assert.Equal(t, domain.ExpenseApproved, e.ApprovalStatus)
	}

	published := f.pub.EventsOfType(messaging.EventReportDecided)
	require.Len(t, published, 1)
	assert.Equal(t, service.DecisionApproved, published[0].(messaging.ReportDecidedEvent).Decision)
	assert.Empty(t, f.pub.EventsOfType(messaging.EventReportAccountingExport))

	_, err = f.svc.DecideReport(as("mgr", permissions.RoleManager), rep.ID, &service.DecideReportRequest{Decision: "approve"})
	assert.Equal(t, "BAD_REQUEST", errors.CodeOf(err))
}

func TestDecideReport_ExternalAccountingReceivesPDF(t *testing.T) {
	f := newFixture(t)
	email := "books@accountant.example"
	f.orgs.rows[org].AccountingType = identitydomain.AccountingExternal
	f.orgs.rows[org].ExternalAccountingEmail = &email
	rep := f.submitted(t)

	_, err := f.svc.DecideReport(as("mgr", permissions.RoleManager), rep.ID, &service.DecideReportRequest{Decision: "approve"})
	require.NoError(t, err)

	published := f.pub.EventsOfType(messaging.EventReportAccountingExport)
	require.Len(t, published, 1)
	data := published[0].(messaging.ReportAccountingExportEvent)
	assert.Equal(t, email, data.AccountingEmail)
	assert.True(t, strings.HasSuffix(data.PDFFileName, ".pdf"))

	pdf, err := base64.StdEncoding.DecodeString(data.PDFBase64)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

func TestDecideReport_AccountingPDFLinksSignedReceipts(t *testing.T) {
	f := newFixture(t)
	email := "books@accountant.example"
	f.orgs.rows[org].AccountingType = identitydomain.AccountingExternal
	f.orgs.rows[org].ExternalAccountingEmail = &email

	ctx := asEmployee()
	rep := f.openReport(t, ctx)
	e := f.addExpense(t, ctx, rep.ID, "30", "", "2026-04-10")
	_, err := f.svc.AttachReceipt(ctx, rep.ID, e.ID, &service.ReceiptInput{FilePath: "receipts/taxi.jpg"})
	require.NoError(t, err)
	_, err = f.svc.SubmitReport(ctx, rep.ID)
	require.NoError(t, err)

	_, err = f.svc.DecideReport(as("mgr", permissions.RoleManager), rep.ID, &service.DecideReportRequest{Decision: "approve"})
	require.NoError(t, err)

	published := f.pub.EventsOfType(messaging.EventReportAccountingExport)
	require.Len(t, published, 1)
	pdf, err := base64.StdEncoding.DecodeString(published[0].(messaging.ReportAccountingExportEvent).PDFBase64)
	require.NoError(t, err)
	assert.Contains(t, string(pdf), "https://files.example.com/private/receipts/taxi.jpg?expires=")
	assert.Contains(t, string(pdf), "signature=")

	xlsx, err := f.svc.Export(as("acc", permissions.RoleAccountingManager), rep.ID, service.FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(xlsx.Data[:2]))
}

func TestDecideReport_RejectReopensWithComment(t *testing.T) {
	f := newFixture(t)
	rep := f.submitted(t)
	mgr := as("mgr", permissions.RoleManager)

	expenses, _ := f.expenses.ListByReport(context.Background(), rep.ID)
	_, err := f.svc.DecideExpense(mgr, rep.ID, expenses[0].ID, &service.DecideExpenseRequest{Decision: "reject"})
	require.NoError(t, err)

	decided, err := f.svc.DecideReport(mgr, rep.ID, &service.DecideReportRequest{
		Decision: "reject",
		Comment:  testutil.PtrString(" taxi receipt missing "),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, decided.Status)
	require.NotNil(t, decided.ReviewComment)
	assert.Equal(t, "taxi receipt missing", *decided.ReviewComment)
	assert.Nil(t, decided.ClosedAt)
	assert.Equal(t, domain.ExpenseRejected, f.expenses.rows[expenses[0].ID].ApprovalStatus)
	assert.Equal(t, domain.ExpensePending, f.expenses.rows[expenses[1].ID].ApprovalStatus)

	// the owner fixes the rejected expense and it is pending again
	_, err = f.svc.UpdateExpense(asEmployee(), rep.ID, expenses[0].ID, &service.ExpenseInput{
		Category: "transportation", ExpenseDate: "2026-04-10", Amount: testutil.Dec("25"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ExpensePending, f.expenses.rows[expenses[0].ID].ApprovalStatus)
	testutil.AssertDecimal(t, "37.5", f.reports.rows[rep.ID].TotalAmount)
}

func TestDecideExpense_OnlyWhilePending(t *testing.T) {
	f := newFixture(t)
	ctx := asEmployee()
	rep := f.openReport(t, ctx)
	e := f.addExpense(t, ctx, rep.ID, "10", "", "2026-04-10")

	_, err := f.svc.DecideExpense(as("mgr", permissions.RoleManager), rep.ID, e.ID, &service.DecideExpenseRequest{Decision: "approve"})
	assert.Equal(t, "BAD_REQUEST", errors.CodeOf(err))
}

func TestReceiptURL(t *testing.T) {
	f := newFixture(t)
	ctx := asEmployee()
	rep := f.openReport(t, ctx)
	e := f.addExpense(t, ctx, rep.ID, "10", "", "2026-04-10")

	private, err := f.svc.AttachReceipt(ctx, rep.ID, e.ID, &service.ReceiptInput{FilePath: "/receipts/taxi.jpg"})
	require.NoError(t, err)
	assert.True(t, private.IsPrivate)
	assert.Equal(t, "receipts/taxi.jpg", private.FilePath)

	public := false
	open, err := f.svc.AttachReceipt(ctx, rep.ID, e.ID, &service.ReceiptInput{FilePath: "receipts/menu.pdf", FileType: "other", IsPrivate: &public})
	require.NoError(t, err)

	signed, err := f.svc.ReceiptURL(ctx, private.ID)
	require.NoError(t, err)
	require.NotNil(t, signed.ExpiresAt)
	assert.Contains(t, signed.URL, "signature=")
	assert.WithinDuration(t, time.Now().Add(storage.DefaultSignedURLTTL), *signed.ExpiresAt, time.Minute)

	plain, err := f.svc.ReceiptURL(ctx, open.ID)
	require.NoError(t, err)
	assert.Nil(t, plain.ExpiresAt)
	assert.Equal(t, "https://files.example.com/public/receipts/menu.pdf", plain.URL)

	_, err = f.svc.ReceiptURL(as("loner", permissions.RoleUser), private.ID)
	assert.Equal(t, "FORBIDDEN", errors.CodeOf(err))

	_, err = f.svc.ReceiptURL(as("mgr", permissions.RoleManager), private.ID)
	assert.NoError(t, err)
}

func TestAttachReceipt_RejectsRelativePath(t *testing.T) {
	f := newFixture(t)
	ctx := asEmployee()
	rep := f.openReport(t, ctx)
	e := f.addExpense(t, ctx, rep.ID, "10", "", "2026-04-10")

	_, err := f.svc.AttachReceipt(ctx, rep.ID, e.ID, &service.ReceiptInput{FilePath: "receipts/../../etc/passwd"})
	assert.Equal(t, "VALIDATION_ERROR", errors.CodeOf(err))
	assert.Empty(t, f.receipts.rows)
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	ctx := asEmployee()
	rep := f.openReport(t, ctx)
	f.addExpense(t, ctx, rep.ID, "10", "", "2026-04-10")

	xlsx, err := f.svc.Export(ctx, rep.ID, service.FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, export.ContentTypeXLSX, xlsx.ContentType)
	assert.True(t, strings.HasSuffix(xlsx.FileName, ".xlsx"))
	assert.Equal(t, "PK", string(xlsx.Data[:2]))

	pdf, err := f.svc.Export(as("acc", permissions.RoleAccountingManager), rep.ID, service.FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdf.Data[:4]))

	_, err = f.svc.Export(as("loner", permissions.RoleUser), rep.ID, service.FormatPDF)
	assert.Equal(t, "FORBIDDEN", errors.CodeOf(err))

	_, err = f.svc.Export(ctx, rep.ID, "docx")
	assert.Equal(t, "BAD_REQUEST", errors.CodeOf(err))
}

func TestOpenForTravel_PrefillsFromApprovedTravel(t *testing.T) {
	f := newFixture(t)

	id, err := f.svc.OpenForTravel(context.Background(), &traveldomain.ApprovedTravel{
		ID:             "at-1",
		OrganizationID: org,
		EmployeeID:     "emp",
		Destination:    "Porto",
		Purpose:        "Trade fair",
		StartDate:      time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, 5, 6, 0, 0, 0, 0, time.UTC),
		Currency:       "EUR",
	})
	require.NoError(t, err)

	rep := f.reports.rows[id]
	require.NotNil(t, rep)
	assert.Equal(t, domain.StatusOpen, rep.Status)
	assert.Equal(t, "Porto", rep.Destination)
	require.NotNil(t, rep.ApprovedTravelID)
	assert.Equal(t, "at-1", *rep.ApprovedTravelID)
}

func TestRates(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateRate(asEmployee(), &service.RateInput{
		FromCurrency: "USD", ToCurrency: "EUR", Rate: testutil.Dec("0.9"), EffectiveDate: "2026-04-01",
	})
	assert.Equal(t, "FORBIDDEN", errors.CodeOf(err))

	acc := as("acc", permissions.RoleAccountingManager)
	_, err = f.svc.CreateRate(acc, &service.RateInput{
		FromCurrency: "EUR", ToCurrency: "eur", Rate: testutil.Dec("1"), EffectiveDate: "2026-04-01",
	})
	assert.Equal(t, "VALIDATION_ERROR", errors.CodeOf(err))

	rate, err := f.svc.CreateRate(acc, &service.RateInput{
		FromCurrency: "usd", ToCurrency: "EUR", Rate: testutil.Dec("0.9"), EffectiveDate: "2026-04-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", rate.FromCurrency)

	rates, err := f.svc.ListRates(asEmployee())
	require.NoError(t, err)
	assert.Len(t, rates, 1)

	require.NoError(t, f.svc.DeleteRate(acc, rate.ID))
	assert.Empty(t, f.rates.rows)
}

func TestConvertAmount(t *testing.T) {
	f := newFixture(t)
	f.addRate("EUR", "JPY", "160", "2026-04-01")
	f.addRate("EUR", "JPY", "165", "2026-05-01")
	ctx := context.Background()

	yen, err := f.svc.ConvertAmount(ctx, org, testutil.Dec("150"), "eur", "JPY", time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	testutil.AssertDecimal(t, "24000", yen)

	same, err := f.svc.ConvertAmount(ctx, org, testutil.Dec("150"), "EUR", "eur", time.Now())
	require.NoError(t, err)
	testutil.AssertDecimal(t, "150", same)

	_, err = f.svc.ConvertAmount(ctx, org, testutil.Dec("150"), "EUR", "JPY", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
