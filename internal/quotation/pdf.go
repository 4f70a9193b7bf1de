package quotation

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

var (
	brandGreen = [3]int{27, 67, 50}
	columns    = []struct {
		title string
		width float64
		align string
	}{
		{"Item Description", 52, "L"},
		{"Form", 20, "C"},
		{"Qty", 18, "C"},
		{"Market Rate", 28, "R"},
		{"Bulk Discount", 26, "C"},
		{"Total (INR)", 26, "R"},
	}
)

// WritePDF renders the quotation as an A4 PDF.
func (d Document) WritePDF(w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(d.Date)
	pdf.SetTitle("Proforma Quotation "+d.Ref, true)
	pdf.SetAuthor(seller, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetTextColor(brandGreen[0], brandGreen[1], brandGreen[2])
	pdf.Text(20, 25, seller)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.Text(20, 32, tr(sellerTagline))
	pdf.Text(20, 37, sellerContact)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Text(140, 25, "PROFORMA QUOTATION")
	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(140, 32, "Ref No: "+d.Ref)
	pdf.Text(140, 37, "Date: "+d.Date.Format(dateLayout))
	pdf.Text(140, 42, "Valid Until: "+d.ValidUntil.Format(dateLayout))

	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(20, 50, 190, 50)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Text(20, 60, "Bill To:")
	pdf.SetFont("Helvetica", "", 11)
	pdf.Text(20, 66, tr("Business Name: "+d.BusinessName))
	pdf.Text(20, 72, tr("Contact: "+d.Contact))
	pdf.Text(20, 78, "Email: "+d.Email)
	pdf.Text(20, 84, "Phone: "+d.Phone)

	pdf.SetXY(20, 95)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(brandGreen[0], brandGreen[1], brandGreen[2])
	pdf.SetTextColor(255, 255, 255)
	for _, col := range columns {
		pdf.CellFormat(col.width, 8, col.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	for _, r := range d.Rows {
		pdf.SetX(20)
		cells := []string{tr(r.Description), r.Form, r.Quantity, r.MarketRate, r.Discount, r.Total}
		for i, col := range columns {
			pdf.CellFormat(col.width, 8, cells[i], "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	y := pdf.GetY()
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Text(130, y+15, "Grand Total: INR "+amount(d.GrandTotal))

	pdf.SetFont("Helvetica", "B", 9)
	pdf.Text(20, y+30, tr("Terms & Conditions:"))
	pdf.SetFont("Helvetica", "", 9)
	for i, term := range Terms {
		pdf.Text(20, y+36+float64(i)*5, tr(fmt.Sprintf("%d. %s", i+1, term)))
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render quotation pdf: %w", err)
	}
	return nil
}
