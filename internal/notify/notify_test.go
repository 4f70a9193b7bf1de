package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prakamrit/storefront/internal/cart"
	"github.com/prakamrit/storefront/internal/catalog"
	"github.com/prakamrit/storefront/internal/logging"
	"github.com/prakamrit/storefront/internal/orders"
)

var customer = orders.Customer{
	Name:         "Kavya Nair",
	BusinessName: "Kerala Wellness Retreat",
	Email:        "kavya@example.com",
	Phone:        "+919847000111",
	WhatsApp:     "+919847000111",
	Address:      "Kovalam",
}

func TestRequestReceived(t *testing.T) {
	o := orders.NewQuoteRequest(customer, cart.Item{ProductName: "Peace of Mind Blend (powder)"}, time.Now())
	m := RequestReceived(o)

	assert.Equal(t, ChannelWhatsApp, m.Channel)
	assert.Equal(t, KindRequestReceived, m.Kind)
	assert.Equal(t, "+919847000111", m.To)
	assert.Equal(t, o.ID, m.OrderID)
	assert.Equal(t, "Namaste Kavya Nair! Thank you for choosing PrakAmrit. We have received your request for "+
		"Peace of Mind Blend (powder). Our team is preparing your *quotation*. You will receive a link here shortly to view and pay.", m.Body)

	o.Items[0].ProductName = ""
	assert.Contains(t, RequestReceived(o).Body, "request for Bulk Materials.")
}

func TestQuoteReady(t *testing.T) {
	o := orders.NewQuoteRequest(customer, cart.Item{}, time.Now())
	m := QuoteReady(o, "https://prakamrit.com/quote/"+o.ID)

	assert.Equal(t, KindQuoteReady, m.Kind)
	assert.Equal(t, "Your PrakAmrit *quotation* is ready! Click here to view and complete your payment: https://prakamrit.com/quote/"+o.ID, m.Body)
}

func TestInquiryAlert(t *testing.T) {
	o := orders.NewQuoteRequest(customer, cart.Item{ProductName: "Ashwagandha", Form: catalog.FormRaw, Quantity: cart.TierQuantity("25kg")}, time.Now())
	m := InquiryAlert("admin@prakamrit.in", o)

	assert.Equal(t, ChannelEmail, m.Channel)
	assert.Equal(t, "New Bulk Inquiry from Kavya Nair", m.Subject)
	assert.Contains(t, m.Body, "Business: Kerala Wellness Retreat")
	assert.Contains(t, m.Body, "- Ashwagandha (raw, 25kg)")
}

func TestCustomerReceipt(t *testing.T) {
	created := time.Date(2026, 5, 14, 10, 0, 0, 0, time.UTC)
	o := orders.NewCheckout(customer, []cart.Item{
		{ProductID: "6", ProductName: "Ashwagandha", Form: catalog.FormPowder, Quantity: cart.TierQuantity("1kg"), Price: 1380},
		{ProductID: "99", ProductName: "Mystery <Herb>", Form: catalog.FormRaw, Quantity: cart.CustomGrams(750), Price: 600},
	}, created)

	m, err := CustomerReceipt(o, func(id string) string {
		if id == "6" {
			return "https://img.example.com/ashwagandha.jpg"
		}
		return ""
	})
	require.NoError(t, err)

	assert.True(t, m.HTML)
	assert.Equal(t, "kavya@example.com", m.To)
	assert.Equal(t, "Order Confirmation - #"+o.ID, m.Subject)
	for _, want := range []string{
		"Kavya Nair", "#" + o.ID, "May 14, 2026",
		"https://img.example.com/ashwagandha.jpg", "https://via.placeholder.com/100x100?text=PrakAmrit",
		"Form: POWDER | Qty: 1kg", "Form: RAW | Qty: 750g",
		"₹1,380", "₹150 (payable on delivery)",
		"Mystery &lt;Herb&gt;",
	} {
		assert.Contains(t, m.Body, want)
	}
	// Subtotal and total both match the amount charged.
	assert.Equal(t, 2, strings.Count(m.Body, "₹1,980"))
	assert.NotContains(t, m.Body, "₹2,130")
}

func TestShipping(t *testing.T) {
	assert.Equal(t, 150.0, Shipping(5000))
	assert.Equal(t, 0.0, Shipping(5000.01))
}

func TestAdminAlert(t *testing.T) {
	o := orders.NewCheckout(customer, []cart.Item{
		{ProductName: "Harad", Quantity: cart.TierQuantity("10kg"), Price: 2850},
		{ProductName: "Baheda", Quantity: cart.TierQuantity("1kg"), Price: 360},
	}, time.Now())

	m := AdminAlert("owner@prakamrit.in", o)
	assert.Equal(t, "NEW ORDER: "+o.ID, m.Subject)
	assert.Contains(t, m.Body, "[URGENT] NEW ORDER BOOKED: #"+o.ID)
	assert.Contains(t, m.Body, "Total Items: 2")
	assert.Contains(t, m.Body, "Total Value: ₹3,210")
	assert.Contains(t, m.Body, "- Harad (10kg)")
	assert.NotContains(t, m.Body, "Baheda (1kg)")
	assert.False(t, m.HighPriority)

	o.Items = append(o.Items, cart.Item{ProductName: "Giloy Satva", Quantity: cart.TierQuantity("50kg")})
	assert.True(t, AdminAlert("owner@prakamrit.in", o).HighPriority)

	plain := orders.NewCheckout(customer, o.Items[1:2], time.Now())
	assert.NotContains(t, AdminAlert("owner@prakamrit.in", plain).Body, "BULK ALERT")
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaNotifier(t *testing.T) {
	w := &fakeWriter{}
	n := NewKafkaNotifier(w)
	o := orders.NewQuoteRequest(customer, cart.Item{ProductName: "Ashwagandha"}, time.Now())

	require.NoError(t, n.Send(context.Background(), RequestReceived(o)))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, o.ID, string(msg.Key))
	var decoded Message
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, KindRequestReceived, decoded.Kind)
	assert.Equal(t, customer.WhatsApp, decoded.To)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "whatsapp", headers["channel"])
	assert.Equal(t, "REQ_RECEIVED", headers["kind"])

	assert.ErrorIs(t, n.Send(context.Background(), Message{}), ErrNoRecipient)

	w.err = errors.New("broker down")
	assert.ErrorContains(t, n.Send(context.Background(), RequestReceived(o)), "broker down")

	require.NoError(t, n.Close())
	assert.True(t, w.closed)
}

func TestLogNotifierAndSendAll(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(logging.NewWithWriter(&buf, "info"))

	o := orders.NewCheckout(orders.Customer{Name: "No WhatsApp", Email: "x@example.com"}, nil, time.Now())
	receipt, err := CustomerReceipt(o, nil)
	require.NoError(t, err)

	err = SendAll(context.Background(), n, receipt, RequestReceived(o))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "CUSTOMER_RECEIPT", entry["kind"])
	assert.Equal(t, "notify", entry["component"])
	assert.True(t, strings.HasSuffix(entry["body"].(string), "bytes of html>"))
}
