package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core/finance"
	"github.com/waynerigley/migslist/core/member"
	"github.com/waynerigley/migslist/core/union"
)

// Header band colors per roster flavor.
var (
	ColorGoodStanding = RGB{46, 125, 50}  // green
	ColorAllMembers   = RGB{21, 101, 192} // blue
	ColorRankAndFile  = RGB{94, 53, 177}  // violet
)

type RGB struct{ R, G, B int }

const (
	pageMargin   = 50.0
	rowHeight    = 20.0
	pageBottom   = 742.0 // Letter height 792pt minus margin
	zebraGrayVal = 245
)

// RosterOptions configures a member roster PDF.
type RosterOptions struct {
	Title      string
	Subtitle   string
	Color      RGB
	ShowBucket bool // prepend a bucket number column (rank and file)
}

// MemberRosterPDF renders a paginated member roster: centered title and
// subtitle, export date and totals line, a colored header band repeated on
// every page, zebra striped rows and a "Page i of n" footer.
func MemberRosterPDF(opts RosterOptions, members []member.Member) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-35)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	type column struct {
		Title string
		Width float64
		Value func(m member.Member) string
	}
	var cols []column
	if opts.ShowBucket {
		cols = append(cols, column{"Bucket", 50, func(m member.Member) string { return fmt.Sprintf("#%d", m.BucketNumber) }})
	}
	cols = append(cols,
		column{"Name", 140, func(m member.Member) string { return m.LastName + ", " + m.FirstName }},
		column{"Email", 160, func(m member.Member) string { return m.Email }},
		column{"Phone", 90, func(m member.Member) string { return m.Phone }},
	)
	remaining := 512.0 // usable width
	for _, c := range cols {
		remaining -= c.Width
	}
	cols = append(cols, column{"City", remaining, func(m member.Member) string { return m.City }})

	drawHeaderBand := func() {
		pdf.SetFillColor(opts.Color.R, opts.Color.G, opts.Color.B)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Helvetica", "B", 10)
		for _, c := range cols {
			pdf.CellFormat(c.Width, rowHeight, c.Title, "", 0, "L", true, 0, "")
		}
		pdf.Ln(rowHeight)
	}

	pdf.AddPage()

	// title block, first page only
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(33, 33, 33)
	pdf.CellFormat(0, 24, opts.Title, "", 1, "C", false, 0, "")
	if opts.Subtitle != "" {
		pdf.SetFont("Helvetica", "", 12)
		pdf.SetTextColor(90, 90, 90)
		pdf.CellFormat(0, 18, opts.Subtitle, "", 1, "C", false, 0, "")
	}
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(120, 120, 120)
	meta := fmt.Sprintf("Exported %s  -  %d member(s)", time.Now().UTC().Format("Jan 2, 2006"), len(members))
	pdf.CellFormat(0, 14, meta, "", 1, "C", false, 0, "")
	pdf.Ln(8)

	drawHeaderBand()

	for i, m := range members {
		if pdf.GetY()+rowHeight > pageBottom {
			pdf.AddPage()
			drawHeaderBand()
		}
		fill := i%2 == 1
		pdf.SetFillColor(zebraGrayVal, zebraGrayVal, zebraGrayVal)
		pdf.SetTextColor(33, 33, 33)
		pdf.SetFont("Helvetica", "", 9)
		for _, c := range cols {
			pdf.CellFormat(c.Width, rowHeight, c.Value(m), "", 0, "L", fill, 0, "")
		}
		pdf.Ln(rowHeight)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "rendering roster PDF")
	}
	return buf.Bytes(), nil
}

// InvoicePDF renders a printable invoice with the operator billing block,
// the billed union's details, amounts, dates, status and notes.
func InvoicePDF(operatorName, operatorEmail string, inv finance.Invoice, un union.Union) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.AddPage()

	// operator block
	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(33, 33, 33)
	pdf.CellFormat(0, 26, operatorName, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(90, 90, 90)
	pdf.CellFormat(0, 14, operatorEmail, "", 1, "L", false, 0, "")
	pdf.Ln(16)

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(33, 33, 33)
	pdf.CellFormat(0, 20, "Invoice "+inv.Number, "", 1, "L", false, 0, "")
	pdf.Ln(8)

	// billed union
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 14, "Billed To", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 14, un.Name, "", 1, "L", false, 0, "")
	if un.ContactName != "" {
		pdf.CellFormat(0, 14, un.ContactName, "", 1, "L", false, 0, "")
	}
	if un.ContactEmail != "" {
		pdf.CellFormat(0, 14, un.ContactEmail, "", 1, "L", false, 0, "")
	}
	pdf.Ln(16)

	line := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(120, 16, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 16, value, "", 1, "L", false, 0, "")
	}
	line("Description", inv.Description)
	line("Amount", fmt.Sprintf("$%.2f", inv.Amount))
	line("Issued", inv.IssuedDate.Format("Jan 2, 2006"))
	line("Due", inv.DueDate.Format("Jan 2, 2006"))
	line("Status", inv.Status)
	if inv.PaidAt != nil {
		line("Paid", inv.PaidAt.Format("Jan 2, 2006"))
	}
	if inv.Notes != "" {
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 14, "Notes", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 14, inv.Notes, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "rendering invoice PDF")
	}
	return buf.Bytes(), nil
}

// ReceiptPDF renders a payment receipt for an income record.
func ReceiptPDF(operatorName, operatorEmail string, in finance.Income) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(33, 33, 33)
	pdf.CellFormat(0, 26, operatorName, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(90, 90, 90)
	pdf.CellFormat(0, 14, operatorEmail, "", 1, "L", false, 0, "")
	pdf.Ln(16)

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(33, 33, 33)
	pdf.CellFormat(0, 20, "Payment Receipt", "", 1, "L", false, 0, "")
	pdf.Ln(8)

	line := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(120, 16, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 16, value, "", 1, "L", false, 0, "")
	}
	if in.UnionName != "" {
		line("Received From", in.UnionName)
	}
	line("Description", in.Description)
	line("Amount", fmt.Sprintf("$%.2f", in.Amount))
	line("Method", in.PaymentMethod)
	line("Date", in.Date.Format("Jan 2, 2006"))

	pdf.Ln(16)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 12, "Thank you for your payment.", "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "rendering receipt PDF")
	}
	return buf.Bytes(), nil
}
