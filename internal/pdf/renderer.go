// Package pdf renders a fully-populated invoice aggregate into a paginated
// A4 document.
package pdf

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"fatture/internal/core"
)

// ErrEmptyInvoice means the aggregate has nothing renderable: no customers,
// or a customer without items. This can happen when the invoice changed
// between fetch and render; the renderer refuses to emit a partial document.
var ErrEmptyInvoice = errors.New("invoice has no renderable content")

const (
	pageBottomMargin = 15.0
	rowHeight        = 6.0
	// Minimum vertical room a customer section needs before its table
	// starts: bill-to block plus the table header row.
	sectionMinHeight = 30.0

	descColWidth  = 90.0
	qtyColWidth   = 20.0
	priceColWidth = 30.0
	totalColWidth = 30.0

	maxDescChars = 45
)

// Render produces the invoice document as PDF bytes. The layout: a blue
// title band, company block with date, one bill-to section and item table
// per customer with a subtotal row, and a closing TOTAL AMOUNT band. A page
// break is inserted before any row or section that does not fit the
// remaining height; rows are never split across pages.
func Render(inv core.Invoice) ([]byte, error) {
	if len(inv.Customers) == 0 {
		return nil, fmt.Errorf("render invoice %d: %w", inv.Number, ErrEmptyInvoice)
	}
	for _, c := range inv.Customers {
		if len(c.Items) == 0 {
			return nil, fmt.Errorf("render invoice %d: customer %q: %w", inv.Number, c.Name, ErrEmptyInvoice)
		}
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, pageBottomMargin)
	pdf.AddPage()

	renderHeader(pdf, inv)

	for i, c := range inv.Customers {
		renderCustomer(pdf, c)
		if i < len(inv.Customers)-1 {
			renderDivider(pdf, 200, 200, 200)
		}
	}

	renderTotal(pdf, inv.Total)
	renderFooter(pdf)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice %d: %w", inv.Number, err)
	}
	return buf.Bytes(), nil
}

func renderHeader(pdf *gofpdf.Fpdf, inv core.Invoice) {
	// Title band.
	pdf.SetFillColor(51, 51, 153)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 24)
	pdf.CellFormat(0, 12, fmt.Sprintf("INVOICE #%d", inv.Number), "", 1, "L", true, 0, "")

	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(5)

	// Company block with the date on the same line.
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(100, 6, "From:", "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Date: "+inv.CreationDate.String(), "", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 5, inv.CompanyName, "", 1, "L", false, 0, "")
	if inv.CompanyAddress != "" {
		pdf.CellFormat(0, 5, inv.CompanyAddress, "", 1, "L", false, 0, "")
	}
	if inv.CompanyEmail != "" {
		pdf.CellFormat(0, 5, inv.CompanyEmail, "", 1, "L", false, 0, "")
	}

	pdf.Ln(5)
	renderDivider(pdf, 180, 180, 180)
	pdf.Ln(3)
}

func renderCustomer(pdf *gofpdf.Fpdf, c core.Customer) {
	ensureSpace(pdf, sectionMinHeight)

	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(77, 77, 77)
	pdf.CellFormat(0, 6, "Bill To: "+c.Name, "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	pdf.SetFont("Arial", "", 9)
	if c.Address != "" {
		pdf.CellFormat(0, 5, c.Address, "", 1, "L", false, 0, "")
	}
	if c.Email != "" {
		pdf.CellFormat(0, 5, c.Email, "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	renderTableHeader(pdf)

	pdf.SetFont("Arial", "", 9)
	pdf.SetFillColor(250, 250, 250)
	for _, it := range c.Items {
		if !fits(pdf, rowHeight) {
			pdf.AddPage()
			renderTableHeader(pdf)
			pdf.SetFont("Arial", "", 9)
			pdf.SetFillColor(250, 250, 250)
		}
		pdf.CellFormat(descColWidth, rowHeight, truncate(it.Description), "1", 0, "L", true, 0, "")
		pdf.CellFormat(qtyColWidth, rowHeight, fmt.Sprintf("%d", it.Quantity), "1", 0, "C", true, 0, "")
		pdf.CellFormat(priceColWidth, rowHeight, "$"+it.UnitPrice.String(), "1", 0, "R", true, 0, "")
		pdf.CellFormat(totalColWidth, rowHeight, "$"+it.LineTotal().String(), "1", 1, "R", true, 0, "")
	}

	ensureSpace(pdf, rowHeight)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(descColWidth+qtyColWidth+priceColWidth, rowHeight, "Subtotal:", "", 0, "R", false, 0, "")
	pdf.CellFormat(totalColWidth, rowHeight, "$"+c.Subtotal().String(), "", 1, "R", false, 0, "")
	pdf.Ln(5)
}

func renderTableHeader(pdf *gofpdf.Fpdf) {
	pdf.SetFillColor(230, 230, 230)
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(descColWidth, rowHeight, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(qtyColWidth, rowHeight, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(priceColWidth, rowHeight, "Unit Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(totalColWidth, rowHeight, "Total", "1", 1, "R", true, 0, "")
}

func renderTotal(pdf *gofpdf.Fpdf, total core.Money) {
	ensureSpace(pdf, 15)
	pdf.Ln(5)
	pdf.SetFillColor(51, 51, 153)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(140, 10, "TOTAL AMOUNT:", "", 0, "R", true, 0, "")
	pdf.CellFormat(30, 10, "$"+total.String(), "", 1, "R", true, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

func renderFooter(pdf *gofpdf.Fpdf) {
	pdf.SetY(-30)
	pdf.SetTextColor(128, 128, 128)
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(0, 10, "Thank you for your business!", "", 0, "C", false, 0, "")
}

func renderDivider(pdf *gofpdf.Fpdf, r, g, b int) {
	pdf.SetDrawColor(r, g, b)
	pdf.Line(10, pdf.GetY(), 200, pdf.GetY())
	pdf.Ln(5)
}

func fits(pdf *gofpdf.Fpdf, height float64) bool {
	_, pageHeight := pdf.GetPageSize()
	return pdf.GetY()+height <= pageHeight-pageBottomMargin
}

func ensureSpace(pdf *gofpdf.Fpdf, height float64) {
	if !fits(pdf, height) {
		pdf.AddPage()
	}
}

func truncate(desc string) string {
	if len(desc) > maxDescChars {
		return desc[:maxDescChars-3] + "..."
	}
	return desc
}
