package cart

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prakamrit/storefront/internal/catalog"
)

func TestQuantityVariants(t *testing.T) {
	tier := TierQuantity("5kg")
	label, ok := tier.Tier()
	assert.True(t, ok)
	assert.Equal(t, "5kg", label)
	_, ok = tier.Grams()
	assert.False(t, ok)

	custom := CustomGrams(750)
	grams, ok := custom.Grams()
	assert.True(t, ok)
	assert.Equal(t, 750.0, grams)
	_, ok = custom.Tier()
	assert.False(t, ok)
	assert.Equal(t, "750g", custom.Label())
	assert.Equal(t, "1234.5g", CustomGrams(1234.5).Label())
}

func TestQuantityJSON(t *testing.T) {
	data, err := json.Marshal(Item{ProductID: "6", Quantity: TierQuantity("1kg")})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"quantity":{"tier":"1kg"}`)

	var item Item
	require.NoError(t, json.Unmarshal([]byte(`{"productId":"6","quantity":{"grams":400}}`), &item))
	grams, ok := item.Quantity.Grams()
	assert.True(t, ok)
	assert.Equal(t, 400.0, grams)

	var q Quantity
	assert.Error(t, json.Unmarshal([]byte(`{"tier":"1kg","grams":5}`), &q))
	assert.Error(t, json.Unmarshal([]byte(`{}`), &q))
	assert.Error(t, json.Unmarshal([]byte(`{"grams":-3}`), &q))
}

func TestCartTotalsAndSavings(t *testing.T) {
	var c Cart
	c.Add(
		Item{ProductID: "1", Quantity: TierQuantity("1kg"), Price: 450},
		Item{ProductID: "6", Quantity: TierQuantity("5kg"), Price: 5100},
		Item{ProductID: "10", Quantity: CustomGrams(300), Price: 285},
	)

	assert.Equal(t, 5835.0, c.Total())
	// 5100 * 0.17 = 867
	assert.Equal(t, 867.0, c.Savings())

	var plain Cart
	plain.Add(c.Items[0], c.Items[2])
	assert.Len(t, plain.Items, 2)
	assert.Equal(t, 735.0, plain.Total())
	assert.Equal(t, 0.0, plain.Savings())
}

func TestRequiresQuotation(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	direct := Cart{Items: []Item{{ProductID: "1", Quantity: TierQuantity("10kg")}}}
	assert.False(t, direct.RequiresQuotation(cat))

	bulkTier := Cart{Items: []Item{{ProductID: "1", Quantity: TierQuantity("25kg")}}}
	assert.True(t, bulkTier.RequiresQuotation(cat))

	inquiry := Cart{Items: []Item{{ProductID: BulkInquiryProductID, Quantity: CustomGrams(8000)}}}
	assert.True(t, inquiry.RequiresQuotation(cat))
}

func TestFormatINR(t *testing.T) {
	assert.Equal(t, "₹0", FormatINR(0))
	assert.Equal(t, "₹1,200", FormatINR(1200))
	assert.Equal(t, "₹4,972.5", FormatINR(4972.5))
	assert.Equal(t, "₹12,345,678", FormatINR(12345678))
	assert.Equal(t, "₹99.99", FormatINR(99.994))
}
