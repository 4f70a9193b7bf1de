// Package quotation builds the proforma quotation sent to bulk buyers, as a
// PDF and as plain text.
package quotation

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/prakamrit/storefront/internal/cart"
	"github.com/prakamrit/storefront/internal/catalog"
	"github.com/prakamrit/storefront/internal/orders"
)

const (
	Validity = 7 * 24 * time.Hour

	seller        = "PrakAmrit Ayurveda"
	sellerTagline = "Premium Raw Materials & Extracts"
	sellerContact = "contact@prakamrit.com | +91 98765 43210"
	dateLayout    = "02 Jan 2006"
)

// Terms are printed under every quotation.
var Terms = []string{
	"Rates are subject to market fluctuation. This quote is valid for 7 days.",
	"Payment Terms: 50% Advance required to confirm bulk orders.",
	"Delivery timeline: 5-7 business days post payment.",
}

// Row is one itemized line of the quotation.
type Row struct {
	Description string
	Form        string
	Quantity    string
	MarketRate  string
	Discount    string
	Total       string
}

// Document is a rendered-ready quotation.
type Document struct {
	Ref          string
	Date         time.Time
	ValidUntil   time.Time
	BusinessName string
	Contact      string
	Email        string
	Phone        string
	Rows         []Row
	GrandTotal   float64
}

// GeneratedFileName is the quotation file recorded on an order when the
// document is generated instead of uploaded.
func GeneratedFileName(orderID string) string {
	return "Generated_" + orderID + ".pdf"
}

// DownloadName is the file name offered to the browser.
func DownloadName(orderID string) string {
	return "PrakAmrit_Quote_" + orderID + ".pdf"
}

// Build prepares the quotation for o. The catalog supplies market rates and
// may be nil, in which case rates are shown as dynamic.
func Build(o orders.Order, c *catalog.Catalog, now time.Time) Document {
	doc := Document{
		Ref:          o.ID,
		Date:         now,
		ValidUntil:   now.Add(Validity),
		BusinessName: o.BusinessName,
		Contact:      o.Name,
		Email:        o.Email,
		Phone:        o.Phone,
		GrandTotal:   o.TotalAmount,
	}
	if doc.BusinessName == "" {
		doc.BusinessName = "N/A"
	}
	for _, item := range o.Items {
		doc.Rows = append(doc.Rows, buildRow(item, c))
	}
	return doc
}

func buildRow(item cart.Item, c *catalog.Catalog) Row {
	row := Row{
		Description: item.ProductName,
		Form:        strings.ToUpper(string(item.Form)),
		Quantity:    item.Quantity.Label(),
		MarketRate:  "Dynamic",
		Discount:    "0%",
		Total:       amount(item.Price),
	}
	if item.Price == 0 {
		row.Total = "On Request"
	}

	kg := weightKg(item.Quantity)
	var ing catalog.Ingredient
	found := false
	if c != nil {
		ing, found = c.Ingredient(item.ProductID)
	}
	if !found || kg <= 0 {
		return row
	}

	market := ing.UnitPrice(item.Form) * kg
	row.MarketRate = amount(market)

	var rate float64
	if label, ok := item.Quantity.Tier(); ok {
		if tier, ok := c.Tier(label); ok {
			rate = 1 - tier.Multiplier/kg
		}
	} else if item.Price > 0 {
		rate = 1 - item.Price/market
	}
	if pct := math.Round(rate * 100); pct > 0 {
		row.Discount = strconv.Itoa(int(pct)) + "%"
	}
	return row
}

// weightKg returns the weight of a quantity in kilograms, or 0 when the
// label cannot be read.
func weightKg(q cart.Quantity) float64 {
	if g, ok := q.Grams(); ok {
		return g / 1000
	}
	label, _ := q.Tier()
	switch {
	case strings.HasSuffix(label, "kg"):
		v, err := strconv.ParseFloat(strings.TrimSuffix(label, "kg"), 64)
		if err != nil {
			return 0
		}
		return v
	case strings.HasSuffix(label, "g"):
		v, err := strconv.ParseFloat(strings.TrimSuffix(label, "g"), 64)
		if err != nil {
			return 0
		}
		return v / 1000
	}
	return 0
}

func amount(v float64) string {
	return humanize.CommafWithDigits(math.Round(v*100)/100, 2)
}

// WriteText renders the quotation as plain text.
func (d Document) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n%s\n\n", seller, sellerTagline, sellerContact)
	fmt.Fprintf(&b, "PROFORMA QUOTATION\nRef No: %s\nDate: %s\nValid Until: %s\n\n",
		d.Ref, d.Date.Format(dateLayout), d.ValidUntil.Format(dateLayout))
	fmt.Fprintf(&b, "Bill To:\nBusiness Name: %s\nContact: %s\nEmail: %s\nPhone: %s\n\n",
		d.BusinessName, d.Contact, d.Email, d.Phone)

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Item Description\tForm\tQty\tMarket Rate\tBulk Discount\tTotal (INR)")
	for _, r := range d.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Description, r.Form, r.Quantity, r.MarketRate, r.Discount, r.Total)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("layout quotation table: %w", err)
	}

	fmt.Fprintf(&b, "\nGrand Total: INR %s\n\nTerms & Conditions:\n", amount(d.GrandTotal))
	for i, term := range Terms {
		fmt.Fprintf(&b, "%d. %s\n", i+1, term)
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write quotation text: %w", err)
	}
	return nil
}
