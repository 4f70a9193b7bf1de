package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prakamrit/storefront/internal/catalog"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func defaultCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	return c
}

func TestPriceTier_MatchesMultiplierForEveryTier(t *testing.T) {
	c := defaultCatalog(t)

	for _, id := range []string{"1", "6", "11", "36"} {
		ing, ok := c.Ingredient(id)
		require.True(t, ok)
		for _, form := range ing.AvailableForms() {
			for _, tier := range c.Tiers() {
				plain := PriceTier(ing, form, tier, false)
				subscribed := PriceTier(ing, form, tier, true)

				nearlyEqual(t, ing.Name+" "+tier.Label, plain, math.Round(ing.UnitPrice(form)*tier.Multiplier))
				nearlyEqual(t, ing.Name+" "+tier.Label+" subscribed", subscribed, math.Round(ing.UnitPrice(form)*tier.Multiplier*0.90))
			}
		}
	}
}

func TestPriceTier_ConcreteValues(t *testing.T) {
	ing := catalog.Ingredient{ID: "6", RawPrice: 1200, PowderPrice: 1380}

	assert.Equal(t, 300.0, PriceTier(ing, catalog.FormRaw, catalog.Tier{Label: "250g", Multiplier: 0.25}, false))
	assert.Equal(t, 1200.0, PriceTier(ing, catalog.FormRaw, catalog.Tier{Label: "1kg", Multiplier: 1}, false))
	assert.Equal(t, 1380.0, PriceTier(ing, catalog.FormPowder, catalog.Tier{Label: "1kg", Multiplier: 1}, false))
	// 5kg carries a 15% bulk discount in its multiplier; subscription compounds on top.
	assert.Equal(t, 5100.0, PriceTier(ing, catalog.FormRaw, catalog.Tier{Label: "5kg", Multiplier: 4.25}, false))
	assert.Equal(t, 4590.0, PriceTier(ing, catalog.FormRaw, catalog.Tier{Label: "5kg", Multiplier: 4.25}, true))
}

func TestQuoteTier_CarriesQuoteOnlyPolicy(t *testing.T) {
	c := defaultCatalog(t)
	ing, _ := c.Ingredient("1")

	table := PriceTable(ing, catalog.FormRaw, c.Tiers(), false)
	require.Len(t, table, 7)

	quoteOnly := map[string]bool{}
	for _, row := range table {
		quoteOnly[row.Tier] = row.QuoteOnly
		assert.Greater(t, row.Price, 0.0, row.Tier)
	}
	assert.Equal(t, map[string]bool{
		"250g": false, "500g": false, "1kg": false, "5kg": false, "10kg": false,
		"25kg": true, "50kg": true,
	}, quoteOnly)

	item := table[2].CartItem(ing.Name)
	label, ok := item.Quantity.Tier()
	assert.True(t, ok)
	assert.Equal(t, "1kg", label)
	assert.Equal(t, 450.0, item.Price)
}

func TestEnginePriceTier_RejectsBadInput(t *testing.T) {
	e := NewEngine(defaultCatalog(t))

	_, err := e.PriceTier("999", catalog.FormRaw, "1kg", false)
	assert.ErrorIs(t, err, catalog.ErrUnknownIngredient)

	_, err = e.PriceTier("1", catalog.FormRaw, "3kg", false)
	assert.ErrorIs(t, err, catalog.ErrUnknownTier)

	// Silajit is sold raw only.
	_, err = e.PriceTier("7", catalog.FormPowder, "1kg", false)
	assert.Error(t, err)

	p, err := e.PriceTier("7", catalog.FormRaw, "250g", true)
	require.NoError(t, err)
	assert.Equal(t, 3375.0, p.Price)

	table, err := e.PriceTable("1", catalog.FormPowder, false)
	require.NoError(t, err)
	assert.Len(t, table, 7)
}
