// Package export renders expense reports as PDF and XLSX documents.
package export

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"

	"github.com/travelflow/travelflow-backend/internal/expense/domain"
)

// Content types of the renditions
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Document is a report ready to be rendered
type Document struct {
	Report    *domain.Report
	OwnerName string
	Generated time.Time
	Receipts  []ReceiptLink
	Font      *Font
}

// ReceiptLink is a receipt resolved to a URL. Private receipts carry a
// signed URL and its expiry.
type ReceiptLink struct {
	ExpenseDate time.Time
	Category    string
	FilePath    string
	URL         string
	ExpiresAt   *time.Time
}

// Label names the receipt in rendered documents
func (r *ReceiptLink) Label() string {
	return fmt.Sprintf("%s %s, %s", r.ExpenseDate.Format(domain.DateLayout), r.Category, path.Base(r.FilePath))
}

// Font is a TrueType family used instead of the core PDF fonts, which only
// cover Latin-1. Bold falls back to Regular.
type Font struct {
	Family  string
	Regular []byte
	Bold    []byte
}

// LoadFont reads a TrueType family from disk. bold may be empty.
func LoadFont(family, regular, bold string) (*Font, error) {
	f := &Font{Family: family}
	var err error
	if f.Regular, err = os.ReadFile(regular); err != nil {
		return nil, fmt.Errorf("failed to read font %s: %w", regular, err)
	}
	if bold != "" {
		if f.Bold, err = os.ReadFile(bold); err != nil {
			return nil, fmt.Errorf("failed to read font %s: %w", bold, err)
		}
	}
	return f, nil
}

// FileName returns the download name of the document with the given extension
func (d *Document) FileName(ext string) string {
	id := d.Report.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("expense-report-%s-%s.%s", id, d.Report.StartDate.Format(domain.DateLayout), ext)
}

var columns = []struct {
	title string
	width float64
}{
	{"Date", 24},
	{"Category", 30},
	{"Description", 58},
	{"Amount", 26},
	{"Rate", 18},
	{"Converted", 26},
	{"Status", 18},
}

// PDF renders doc as a single tabular PDF
func PDF(doc *Document) ([]byte, error) {
	rep := doc.Report

	pdf := fpdf.New("P", "mm", "A4", "")
	family, tr := "Helvetica", pdf.UnicodeTranslatorFromDescriptor("")
	if font := doc.Font; font != nil {
		bold := font.Bold
		if len(bold) == 0 {
			bold = font.Regular
		}
		pdf.AddUTF8FontFromBytes(font.Family, "", font.Regular)
		pdf.AddUTF8FontFromBytes(font.Family, "B", bold)
		family, tr = font.Family, func(s string) string { return s }
	}
	pdf.SetTitle("Expense report "+rep.ID, true)
	pdf.SetMargins(10, 12, 10)
	pdf.AddPage()

	pdf.SetFont(family, "B", 15)
	pdf.CellFormat(0, 9, tr("Expense report: "+rep.Destination), "", 1, "L", false, 0, "")

	pdf.SetFont(family, "", 10)
	for _, line := range []string{
		"Employee: " + doc.OwnerName,
		"Purpose: " + rep.Purpose,
		fmt.Sprintf("Period: %s to %s", rep.StartDate.Format(domain.DateLayout), rep.EndDate.Format(domain.DateLayout)),
		"Status: " + rep.Status,
		"Generated: " + doc.Generated.UTC().Format(time.RFC3339),
	} {
		pdf.CellFormat(0, 6, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont(family, "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range columns {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(family, "", 9)
	for _, e := range rep.Expenses {
		cells := []string{
			e.ExpenseDate.Format(domain.DateLayout),
			e.Category,
			truncate(e.Description, 34),
			e.Amount.StringFixed(2) + " " + e.Currency,
			e.ExchangeRate.String(),
			e.ConvertedAmount.StringFixed(2),
			e.ApprovalStatus,
		}
		for i, c := range columns {
			align := "L"
			if i >= 3 && i <= 5 {
				align = "R"
			}
			pdf.CellFormat(c.width, 6, tr(cells[i]), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont(family, "B", 10)
	pdf.CellFormat(0, 8, fmt.Sprintf("Total: %s %s", rep.TotalAmount.StringFixed(2), rep.Currency), "", 1, "R", false, 0, "")

	if len(doc.Receipts) > 0 {
		pdf.Ln(4)
		pdf.SetFont(family, "B", 11)
		pdf.CellFormat(0, 7, "Receipts", "", 1, "L", false, 0, "")
		pdf.SetFont(family, "", 9)
		pdf.SetTextColor(0, 0, 160)
		for i, r := range doc.Receipts {
			label := fmt.Sprintf("%d. %s", i+1, r.Label())
			if r.ExpiresAt != nil {
				label += ", link valid until " + r.ExpiresAt.UTC().Format(time.RFC3339)
			}
			pdf.CellFormat(0, 6, tr(label), "", 1, "L", false, 0, r.URL)
		}
		pdf.SetTextColor(0, 0, 0)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// XLSX renders doc as a workbook with one row per expense
func XLSX(doc *Document) ([]byte, error) {
	rep := doc.Report

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Report"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := [][]interface{}{
		{"Destination", rep.Destination},
		{"Employee", doc.OwnerName},
		{"Purpose", rep.Purpose},
		{"Start date", rep.StartDate.Format(domain.DateLayout)},
		{"End date", rep.EndDate.Format(domain.DateLayout)},
		{"Status", rep.Status},
		{"Currency", rep.Currency},
	}
	row := 1
	for _, values := range header {
		if err := setRow(f, sheet, row, values); err != nil {
			return nil, err
		}
		row++
	}
	row++

	titles := make([]interface{}, len(columns))
	for i, c := range columns {
		titles[i] = c.title
	}
	if err := setRow(f, sheet, row, titles); err != nil {
		return nil, err
	}
	row++

	for _, e := range rep.Expenses {
		values := []interface{}{
			e.ExpenseDate.Format(domain.DateLayout),
			e.Category,
			e.Description,
			e.Amount.InexactFloat64(),
			e.ExchangeRate.InexactFloat64(),
			e.ConvertedAmount.InexactFloat64(),
			e.ApprovalStatus,
		}
		if err := setRow(f, sheet, row, values); err != nil {
			return nil, err
		}
		row++
	}

	if err := setRow(f, sheet, row, []interface{}{"Total", nil, nil, nil, nil, rep.TotalAmount.InexactFloat64()}); err != nil {
		return nil, err
	}

	if len(doc.Receipts) > 0 {
		if err := receiptSheet(f, doc.Receipts); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// receiptSheet lists the receipts with a hyperlink per row
func receiptSheet(f *excelize.File, receipts []ReceiptLink) error {
	const sheet = "Receipts"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	if err := setRow(f, sheet, 1, []interface{}{"Date", "Category", "File", "URL", "Expires"}); err != nil {
		return err
	}
	for i, r := range receipts {
		row := i + 2
		var expires interface{}
		if r.ExpiresAt != nil {
			expires = r.ExpiresAt.UTC().Format(time.RFC3339)
		}
		values := []interface{}{r.ExpenseDate.Format(domain.DateLayout), r.Category, path.Base(r.FilePath), r.URL, expires}
		if err := setRow(f, sheet, row, values); err != nil {
			return err
		}
		cell, err := excelize.CoordinatesToCellName(4, row)
		if err != nil {
			return err
		}
		if err := f.SetCellHyperLink(sheet, cell, r.URL, "External"); err != nil {
			return fmt.Errorf("failed to link row %d: %w", row, err)
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
