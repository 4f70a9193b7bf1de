package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prakamrit/storefront/internal/cart"
	"github.com/prakamrit/storefront/internal/orders"
)

const (
	brand = "PrakAmrit"

	freeShippingAbove = 5000.0
	shippingFee       = 150.0

	defaultProductImage = "https://via.placeholder.com/100x100?text=PrakAmrit"
)

// bulkAlertTiers are the packaged sizes the warehouse must be warned about.
var bulkAlertTiers = map[string]bool{"10kg": true, "25kg": true, "50kg": true}

//go:embed templates/*.html
var templateFS embed.FS

var receiptTemplate = template.Must(template.ParseFS(templateFS, "templates/receipt.html"))

func newMessage(channel Channel, kind Kind, to, orderID string) Message {
	return Message{
		ID:        uuid.NewString(),
		Channel:   channel,
		Kind:      kind,
		To:        to,
		OrderID:   orderID,
		CreatedAt: time.Now().UTC(),
	}
}

// RequestReceived acknowledges a quote request on WhatsApp.
func RequestReceived(o orders.Order) Message {
	product := "Bulk Materials"
	if len(o.Items) > 0 && o.Items[0].ProductName != "" {
		product = o.Items[0].ProductName
	}
	m := newMessage(ChannelWhatsApp, KindRequestReceived, o.WhatsApp, o.ID)
	m.Body = fmt.Sprintf("Namaste %s! Thank you for choosing %s. We have received your request for %s. "+
		"Our team is preparing your *quotation*. You will receive a link here shortly to view and pay.",
		o.Name, brand, product)
	return m
}

// QuoteReady tells the customer on WhatsApp that their quotation can be paid.
func QuoteReady(o orders.Order, link string) Message {
	m := newMessage(ChannelWhatsApp, KindQuoteReady, o.WhatsApp, o.ID)
	m.Body = fmt.Sprintf("Your %s *quotation* is ready! Click here to view and complete your payment: %s", brand, link)
	return m
}

// InquiryAlert is the internal email raised for every new quote request.
func InquiryAlert(adminEmail string, o orders.Order) Message {
	m := newMessage(ChannelEmail, KindInquiryAlert, adminEmail, o.ID)
	m.Subject = "New Bulk Inquiry from " + o.Name
	var b strings.Builder
	fmt.Fprintf(&b, "Customer: %s\n", o.Name)
	if o.BusinessName != "" {
		fmt.Fprintf(&b, "Business: %s\n", o.BusinessName)
	}
	fmt.Fprintf(&b, "Email: %s\nPhone: %s\n", o.Email, o.Phone)
	for _, item := range o.Items {
		fmt.Fprintf(&b, "- %s (%s, %s)\n", item.ProductName, item.Form, item.Quantity.Label())
	}
	m.Body = b.String()
	return m
}

type receiptLine struct {
	Name     string
	Image    string
	Form     string
	Quantity string
	Price    string
}

type receiptView struct {
	Brand    string
	Order    orders.Order
	Date     string
	Lines    []receiptLine
	Subtotal string
	Shipping string
	Total    string
	Year     int
}

// Shipping is the delivery charge shown on receipts: free above ₹5,000.
// It is not part of the order total.
func Shipping(subtotal float64) float64 {
	if subtotal > freeShippingAbove {
		return 0
	}
	return shippingFee
}

// CustomerReceipt renders the HTML order confirmation. image resolves a
// product id to its picture and may be nil.
func CustomerReceipt(o orders.Order, image func(productID string) string) (Message, error) {
	view := receiptView{
		Brand:    brand,
		Order:    o,
		Date:     o.CreatedAt.Format("January 2, 2006"),
		Subtotal: cart.FormatINR(o.TotalAmount),
		Year:     o.CreatedAt.Year(),
	}
	// Total is what the payment intent charges. Shipping is collected on
	// delivery.
	view.Shipping = "Free"
	if shipping := Shipping(o.TotalAmount); shipping > 0 {
		view.Shipping = cart.FormatINR(shipping) + " (payable on delivery)"
	}
	view.Total = cart.FormatINR(o.TotalAmount)

	for _, item := range o.Items {
		img := ""
		if image != nil {
			img = image(item.ProductID)
		}
		if img == "" {
			img = defaultProductImage
		}
		view.Lines = append(view.Lines, receiptLine{
			Name:     item.ProductName,
			Image:    img,
			Form:     strings.ToUpper(string(item.Form)),
			Quantity: item.Quantity.Label(),
			Price:    cart.FormatINR(item.Price),
		})
	}

	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, view); err != nil {
		return Message{}, fmt.Errorf("render receipt for %s: %w", o.ID, err)
	}

	m := newMessage(ChannelEmail, KindCustomerReceipt, o.Email, o.ID)
	m.Subject = "Order Confirmation - #" + o.ID
	m.HTML = true
	m.Body = buf.String()
	return m, nil
}

// AdminAlert is the plain text email sent to the shop owner for every new
// order. Orders with 25kg or 50kg items are flagged high priority.
func AdminAlert(adminEmail string, o orders.Order) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "[URGENT] NEW ORDER BOOKED: #%s\n", o.ID)
	b.WriteString(strings.Repeat("-", 50) + "\n")
	fmt.Fprintf(&b, "Customer: %s\nPhone: %s\nAddress: %s\n\n", o.Name, o.Phone, o.Address)
	fmt.Fprintf(&b, "Order Summary:\nTotal Items: %d\nTotal Value: %s\n", len(o.Items), cart.FormatINR(o.TotalAmount))

	var bulk []string
	highPriority := false
	for _, item := range o.Items {
		tier, ok := item.Quantity.Tier()
		if !ok || !bulkAlertTiers[tier] {
			continue
		}
		bulk = append(bulk, fmt.Sprintf("- %s (%s)", item.ProductName, tier))
		if tier != "10kg" {
			highPriority = true
		}
	}
	if len(bulk) > 0 {
		b.WriteString("\n*** BULK ALERT: WAREHOUSE ACTION REQUIRED ***\nThis order contains bulk quantities:\n")
		b.WriteString(strings.Join(bulk, "\n") + "\n")
	}
	b.WriteString("\nPayment Status: PENDING (UPI)\n")

	m := newMessage(ChannelEmail, KindAdminAlert, adminEmail, o.ID)
	m.Subject = "NEW ORDER: " + o.ID
	m.HighPriority = highPriority
	m.Body = b.String()
	return m
}
