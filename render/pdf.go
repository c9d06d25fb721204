/*
pdf.go - Payment certificate document

PURPOSE:
  Turns a stored certificate into a printable A4 document. BuildDocument
  fixes the content (labels, formatted amounts, approval block), WritePDF
  typesets it. Keeping the two apart lets tests check content without
  parsing PDF bytes.

LAYOUT:
  Title (settings header text)
  Certificate #<id>
  Project Details     Contractor, Contract No, Vote No, Tender Sum, Currency, Date
  Certificate Summary Description | Amount (<currency>), seven rows, last row bold
  Approval            one or two signature columns
  Footer              settings footer text

SEE ALSO:
  - csv.go: tabular exports
*/
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
	"github.com/warp/paycert/certificate"
)

// Row is one label/value line of a table.
type Row struct {
	Label string
	Value string
}

type Document struct {
	Title       string
	Subtitle    string
	CompanyName string
	CompanyLine string

	ProjectRows []Row

	SummaryHeader Row
	SummaryRows   []Row // the last row is the payable total

	ApprovalTitles []string
	Footer         string

	IssuedAt time.Time
}

// Filename is the download name for the document.
func Filename(id certificate.CertificateID) string {
	return fmt.Sprintf("certificate_%s.pdf", id)
}

// BuildDocument lays out the certificate for project p. Amounts are shown
// exactly as stored; nothing is recomputed here.
func BuildDocument(p certificate.Project, rec certificate.Record, s certificate.Settings, issuedAt time.Time) Document {
	cert := rec.Certificate
	calc := rec.Calculation
	cur := string(cert.Currency)

	title := s.PDFHeaderText
	if title == "" {
		title = "PAYMENT CERTIFICATE"
	}
	footer := s.PDFFooterText
	if footer == "" {
		footer = certificate.DefaultFooterText
	}

	var contact []string
	for _, part := range []string{s.CompanyAddress, s.CompanyPhone, s.CompanyEmail} {
		if strings.TrimSpace(part) != "" {
			contact = append(contact, part)
		}
	}

	approvals := []string{s.ApprovalTitle1}
	if s.RequireDualApproval {
		approvals = append(approvals, s.ApprovalTitle2)
	}

	return Document{
		Title:       title,
		Subtitle:    fmt.Sprintf("Certificate #%s", cert.ID),
		CompanyName: s.CompanyName,
		CompanyLine: strings.Join(contact, " | "),
		ProjectRows: []Row{
			{"Contractor:", p.NameOfContractor},
			{"Contract No:", p.ContractNo},
			{"Vote No:", p.VoteNo},
			{"Tender Sum:", cur + " " + FormatAmount(p.TenderSum)},
			{"Currency:", cur},
			{"Date:", issuedAt.Format("January 02, 2006")},
		},
		SummaryHeader: Row{"Description", fmt.Sprintf("Amount (%s)", cur)},
		SummaryRows: []Row{
			{"Current Claim (Excl. VAT)", FormatAmount(cert.CurrentClaimExclVAT)},
			{fmt.Sprintf("VAT (%s%%)", calc.Rates.VATRate.String()), FormatAmount(calc.VATValue)},
			{"Previous Payment (Excl. VAT)", FormatAmount(cert.PreviousPaymentExclVAT)},
			{"Value of Work Done (Incl. VAT)", FormatAmount(calc.ValueOfWorkdoneInclVAT)},
			{"Total Value of Work Done (Excl. VAT)", FormatAmount(calc.TotalValueOfWorkdoneExclVAT)},
			{fmt.Sprintf("Retention (%s%%)", calc.Rates.RetentionRate.String()), FormatAmount(calc.Retention)},
			{"Total Amount Payable", FormatAmount(calc.TotalAmountPayable)},
		},
		ApprovalTitles: approvals,
		Footer:         footer,
		IssuedAt:       issuedAt,
	}
}

// FormatAmount renders d with two decimals and comma thousands separators,
// e.g. 1234567.5 -> "1,234,567.50".
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + "." + frac
}

// =============================================================================
// TYPESETTING
// =============================================================================

const (
	pageMargin = 20.0
	lineHeight = 7.0
	fontFamily = "Helvetica"
)

// WritePDF typesets doc on A4 and writes the PDF bytes to w.
func WritePDF(w io.Writer, doc Document) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(doc.Title+" "+doc.Subtitle, true)
	pdf.SetCreator("paycert", true)
	if !doc.IssuedAt.IsZero() {
		pdf.SetCreationDate(doc.IssuedAt)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pageWidth, _ := pdf.GetPageSize()
	contentWidth := pageWidth - 2*pageMargin

	// Letterhead
	if doc.CompanyName != "" {
		pdf.SetFont(fontFamily, "B", 11)
		pdf.CellFormat(contentWidth, 6, tr(doc.CompanyName), "", 1, "C", false, 0, "")
		if doc.CompanyLine != "" {
			pdf.SetFont(fontFamily, "", 9)
			pdf.CellFormat(contentWidth, 5, tr(doc.CompanyLine), "", 1, "C", false, 0, "")
		}
		pdf.Ln(4)
	}

	pdf.SetFont(fontFamily, "B", 18)
	pdf.CellFormat(contentWidth, 10, tr(doc.Title), "", 1, "C", false, 0, "")
	pdf.Ln(4)
	pdf.SetFont(fontFamily, "", 10)
	pdf.CellFormat(contentWidth, lineHeight, tr(doc.Subtitle), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// Project details: two borderless columns, bold labels.
	heading(pdf, tr, "Project Details")
	labelWidth := 50.8 // 2in
	for _, row := range doc.ProjectRows {
		pdf.SetFont(fontFamily, "B", 10)
		pdf.CellFormat(labelWidth, lineHeight, tr(row.Label), "", 0, "L", false, 0, "")
		pdf.SetFont(fontFamily, "", 10)
		pdf.CellFormat(contentWidth-labelWidth, lineHeight, tr(row.Value), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	// Summary: gridded, grey header, highlighted total.
	heading(pdf, tr, "Certificate Summary")
	descWidth := contentWidth * 2 / 3
	amountWidth := contentWidth - descWidth

	pdf.SetFont(fontFamily, "B", 10)
	pdf.SetFillColor(128, 128, 128)
	pdf.SetTextColor(245, 245, 245)
	pdf.CellFormat(descWidth, lineHeight+1, tr(doc.SummaryHeader.Label), "1", 0, "L", true, 0, "")
	pdf.CellFormat(amountWidth, lineHeight+1, tr(doc.SummaryHeader.Value), "1", 1, "L", true, 0, "")
	pdf.SetTextColor(0, 0, 0)

	for i, row := range doc.SummaryRows {
		total := i == len(doc.SummaryRows)-1
		style := ""
		if total {
			style = "B"
			pdf.SetFillColor(211, 211, 211)
		}
		pdf.SetFont(fontFamily, style, 10)
		pdf.CellFormat(descWidth, lineHeight+1, tr(row.Label), "1", 0, "L", total, 0, "")
		pdf.CellFormat(amountWidth, lineHeight+1, tr(row.Value), "1", 1, "R", total, 0, "")
	}
	pdf.Ln(10)

	// Approval block
	heading(pdf, tr, "Approval")
	pdf.Ln(8)
	if n := len(doc.ApprovalTitles); n > 0 {
		colWidth := contentWidth / float64(n)
		lines := []struct {
			style string
			text  func(title string) string
		}{
			{"", func(string) string { return strings.Repeat("_", 30) }},
			{"B", func(string) string { return "Authorized Signature" }},
			{"B", func(title string) string { return title }},
		}
		for _, line := range lines {
			pdf.SetFont(fontFamily, line.style, 10)
			for i, title := range doc.ApprovalTitles {
				ln := 0
				if i == n-1 {
					ln = 1
				}
				pdf.CellFormat(colWidth, lineHeight, tr(line.text(title)), "", ln, "C", false, 0, "")
			}
		}
	}
	pdf.Ln(10)

	pdf.SetFont(fontFamily, "", 9)
	pdf.MultiCell(contentWidth, 5, tr(doc.Footer), "", "L", false)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("typeset certificate: %w", err)
	}
	return pdf.Output(w)
}

func heading(pdf *fpdf.Fpdf, tr func(string) string, text string) {
	pdf.SetFont(fontFamily, "B", 13)
	pdf.CellFormat(0, 9, tr(text), "", 1, "L", false, 0, "")
	pdf.Ln(1)
}
