// Package orders holds the order aggregate, its status lifecycle and the
// SQLite stores behind checkout, quote requests and wishlists.
package orders

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prakamrit/storefront/internal/cart"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending        Status = "Pending"
	StatusQuoteRequested Status = "Quote Requested"
	StatusQuotationSent  Status = "Quotation Sent"
	StatusCompleted      Status = "Completed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusQuoteRequested, StatusQuotationSent, StatusCompleted}

const (
	orderIDPrefix = "ORD-"
	quoteIDPrefix = "QUOTE-"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

var transitions = map[Status][]Status{
	StatusPending:        {StatusQuotationSent, StatusCompleted},
	StatusQuoteRequested: {StatusQuotationSent},
	StatusQuotationSent:  {StatusCompleted},
}

// Customer is the contact block captured at checkout or on a quote request.
type Customer struct {
	Name         string `json:"customerName" validate:"required,max=120"`
	BusinessName string `json:"businessName,omitempty" validate:"max=160"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required,min=7,max=20"`
	WhatsApp     string `json:"whatsapp,omitempty" validate:"omitempty,min=7,max=20"`
	Address      string `json:"address" validate:"max=500"`
}

// Order is a checkout or a quote request. Items are a snapshot of the cart
// at the time the order was placed.
type Order struct {
	ID string `json:"id"`
	Customer
	Items         []cart.Item `json:"items"`
	TotalAmount   float64     `json:"totalAmount"`
	Status        Status      `json:"status"`
	QuotationFile string      `json:"quotationFile,omitempty"`
	PaymentID     string      `json:"paymentId,omitempty"`
	CreatedAt     time.Time   `json:"date"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// NewCheckout builds a Pending order for a direct purchase.
func NewCheckout(c Customer, items []cart.Item, now time.Time) Order {
	basket := cart.Cart{Items: append([]cart.Item(nil), items...)}
	return Order{
		ID:          newID(orderIDPrefix),
		Customer:    c,
		Items:       basket.Items,
		TotalAmount: basket.Total(),
		Status:      StatusPending,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
}

// NewQuoteRequest builds an order awaiting a manual quotation.
func NewQuoteRequest(c Customer, item cart.Item, now time.Time) Order {
	return Order{
		ID:          newID(quoteIDPrefix),
		Customer:    c,
		Items:       []cart.Item{item},
		TotalAmount: item.Price,
		Status:      StatusQuoteRequested,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
}

func newID(prefix string) string {
	return prefix + strings.ToUpper(uuid.NewString()[:8])
}

// IsQuoteRequest reports whether the order came from the quotation flow.
func (o Order) IsQuoteRequest() bool {
	return strings.HasPrefix(o.ID, quoteIDPrefix)
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SendQuotation attaches a quotation document and marks the order as sent.
func (o *Order) SendQuotation(file string, now time.Time) error {
	file = strings.TrimSpace(file)
	if file == "" {
		return fmt.Errorf("quotation file is required")
	}
	if err := o.moveTo(StatusQuotationSent, now); err != nil {
		return err
	}
	o.QuotationFile = file
	return nil
}

// Complete closes the order. paymentID may be empty when the order is
// settled offline.
func (o *Order) Complete(paymentID string, now time.Time) error {
	if err := o.moveTo(StatusCompleted, now); err != nil {
		return err
	}
	if paymentID != "" {
		o.PaymentID = paymentID
	}
	return nil
}

func (o *Order) moveTo(to Status, now time.Time) error {
	if !CanTransition(o.Status, to) {
		return fmt.Errorf("%s: %s -> %s: %w", o.ID, o.Status, to, ErrInvalidTransition)
	}
	o.Status = to
	o.UpdatedAt = now.UTC()
	return nil
}

// ParseStatus accepts a status name in any letter case.
func ParseStatus(raw string) (Status, error) {
	for _, s := range Statuses {
		if strings.EqualFold(strings.TrimSpace(raw), string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", raw)
}
