// Package cart models the shopping cart handed from the pricing engine to
// checkout.
package cart

import (
	"math"

	"github.com/prakamrit/storefront/internal/catalog"
)

// BulkInquiryProductID marks the placeholder item carried by a bulk blend
// quote request.
const BulkInquiryProductID = "custom-blend-bulk"

// marketMarkup reverses the bulk discount baked into a tier multiplier so
// the cart can show "inclusive of discount" savings.
var marketMarkup = map[string]float64{
	"5kg":  1.17,
	"10kg": 1.25,
	"25kg": 1.42,
}

// Item is one cart line.
type Item struct {
	ProductID   string       `json:"productId"`
	ProductName string       `json:"productName"`
	Form        catalog.Form `json:"form"`
	Quantity    Quantity     `json:"quantity"`
	Price       float64      `json:"price"`
	Subscribed  bool         `json:"isSubscribed"`
}

// Cart is an ordered list of items.
type Cart struct {
	Items []Item `json:"items"`
}

// Add appends items to the cart.
func (c *Cart) Add(items ...Item) {
	c.Items = append(c.Items, items...)
}

// Total sums item prices.
func (c Cart) Total() float64 {
	total := 0.0
	for _, item := range c.Items {
		total += item.Price
	}
	return total
}

// Savings estimates how much the customer saves against market rate, based
// on the tier each item was bought at.
func (c Cart) Savings() float64 {
	market := 0.0
	for _, item := range c.Items {
		markup := 1.0
		if tier, ok := item.Quantity.Tier(); ok {
			if m, found := marketMarkup[tier]; found {
				markup = m
			}
		}
		market += item.Price * markup
	}
	return math.Round(market - c.Total())
}

// RequiresQuotation reports whether any item must go through the quotation
// workflow instead of direct purchase.
func (c Cart) RequiresQuotation(tiers *catalog.Catalog) bool {
	for _, item := range c.Items {
		if item.ProductID == BulkInquiryProductID {
			return true
		}
		label, ok := item.Quantity.Tier()
		if !ok || tiers == nil {
			continue
		}
		if tier, found := tiers.Tier(label); found && tier.QuoteOnly {
			return true
		}
	}
	return false
}
