package pricing

import (
	"math"

	"github.com/prakamrit/storefront/internal/cart"
	"github.com/prakamrit/storefront/internal/catalog"
)

// SubscriptionFactor is the recurring-order discount, applied after the
// tier multiplier so it compounds with bulk tiers.
const SubscriptionFactor = 0.90

// TierPrice is the priced result of a single product at a packaged tier.
type TierPrice struct {
	ProductID  string       `json:"productId"`
	Form       catalog.Form `json:"form"`
	Tier       string       `json:"tier"`
	Subscribed bool         `json:"subscribed"`
	UnitPrice  float64      `json:"unitPrice"`
	Price      float64      `json:"price"`
	// QuoteOnly tiers still carry a display price but must be routed to
	// the quotation workflow.
	QuoteOnly bool `json:"quoteOnly"`
}

// PriceTier prices ing at tier in the given form. The caller is responsible
// for only offering forms the ingredient is sold in.
func PriceTier(ing catalog.Ingredient, form catalog.Form, tier catalog.Tier, subscribed bool) float64 {
	price := ing.UnitPrice(form) * tier.Multiplier
	if subscribed {
		price *= SubscriptionFactor
	}
	return math.Round(price)
}

// QuoteTier prices ing at tier and attaches the routing policy of the tier.
func QuoteTier(ing catalog.Ingredient, form catalog.Form, tier catalog.Tier, subscribed bool) TierPrice {
	return TierPrice{
		ProductID:  ing.ID,
		Form:       form,
		Tier:       tier.Label,
		Subscribed: subscribed,
		UnitPrice:  ing.UnitPrice(form),
		Price:      PriceTier(ing, form, tier, subscribed),
		QuoteOnly:  tier.QuoteOnly,
	}
}

// PriceTable prices ing at every tier, in tier order.
func PriceTable(ing catalog.Ingredient, form catalog.Form, tiers []catalog.Tier, subscribed bool) []TierPrice {
	out := make([]TierPrice, 0, len(tiers))
	for _, tier := range tiers {
		out = append(out, QuoteTier(ing, form, tier, subscribed))
	}
	return out
}

// CartItem converts a tier price into a cart line.
func (p TierPrice) CartItem(name string) cart.Item {
	return cart.Item{
		ProductID:   p.ProductID,
		ProductName: name,
		Form:        p.Form,
		Quantity:    cart.TierQuantity(p.Tier),
		Price:       p.Price,
		Subscribed:  p.Subscribed,
	}
}
