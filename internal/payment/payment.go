// Package payment simulates the storefront's UPI gateway: it builds payment
// intents and verifies gateway callbacks by HMAC signature.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	currency     = "INR"
	merchantCode = "5499"
	qrEndpoint   = "https://api.qrserver.com/v1/create-qr-code/"
	qrColor      = "1a3c34"
)

var (
	ErrInvalidSignature = errors.New("invalid payment signature")
	ErrInvalidAmount    = errors.New("payment amount must be greater than 0")
)

// Intent is what the customer needs to pay an order.
type Intent struct {
	OrderID   string  `json:"orderId"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	UPILink   string  `json:"upiLink"`
	QRCodeURL string  `json:"qrCodeUrl"`
}

// Gateway signs and verifies payments for one merchant account.
type Gateway struct {
	vpa    string
	name   string
	secret []byte
}

func NewGateway(vpa, name, secret string) *Gateway {
	return &Gateway{vpa: vpa, name: name, secret: []byte(secret)}
}

// CreateIntent builds a UPI intent link and a QR code URL for the order.
func (g *Gateway) CreateIntent(orderID string, amount float64) (Intent, error) {
	if !(amount > 0) {
		return Intent{}, ErrInvalidAmount
	}
	link := fmt.Sprintf("upi://pay?pa=%s&pn=%s&tr=%s&am=%.2f&cu=%s&mc=%s",
		g.vpa, url.PathEscape(g.name), url.QueryEscape(orderID), amount, currency, merchantCode)

	qr := url.Values{}
	qr.Set("size", "200x200")
	qr.Set("data", link)
	qr.Set("color", qrColor)

	return Intent{
		OrderID:   orderID,
		Amount:    amount,
		Currency:  currency,
		UPILink:   link,
		QRCodeURL: qrEndpoint + "?" + qr.Encode(),
	}, nil
}

// Sign returns the hex HMAC-SHA256 of "orderID|paymentID".
func (g *Gateway) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, g.secret)
	_, _ = mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a gateway callback signature in constant time.
func (g *Gateway) Verify(orderID, paymentID, signature string) error {
	if len(g.secret) == 0 {
		return fmt.Errorf("payment secret is not configured: %w", ErrInvalidSignature)
	}
	provided, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return ErrInvalidSignature
	}
	expected, _ := hex.DecodeString(g.Sign(orderID, paymentID))
	if !hmac.Equal(provided, expected) {
		return ErrInvalidSignature
	}
	return nil
}
