package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prakamrit/storefront/internal/catalog"
)

func TestEnginePriceBlend_MemoizedResultsAreIndependent(t *testing.T) {
	e := NewEngine(defaultCatalog(t))

	first := e.PriceBlend(stressRecipe, 1000, catalog.FormRaw)
	require.Equal(t, BlendQuoted, first.State)
	first.Quote.Lines[0].Price = 0
	first.Quote.Total = -1

	second := e.PriceBlend(stressRecipe, 1000, catalog.FormRaw)
	assert.InDelta(t, 480, second.Quote.Lines[0].Price, 1e-9)
	assert.InDelta(t, 1170, second.Quote.Total, 1e-9)
}

func TestEnginePriceBlend_WithoutCache(t *testing.T) {
	e := NewEngine(defaultCatalog(t), WithCacheExpiry(0))

	res := e.PriceBlend(stressRecipe, 5000, catalog.FormRaw)
	require.Equal(t, BlendQuoted, res.State)
	assert.NotNil(t, res.Quote.Discount)
}

func TestEngineWithDiscounts(t *testing.T) {
	e := NewEngine(defaultCatalog(t),
		WithCacheExpiry(time.Minute),
		WithDiscounts([]VolumeDiscount{{MinGrams: 1000, Rate: 0.10, Label: "10% off"}}),
	)

	res := e.PriceBlend(stressRecipe, 1000, catalog.FormRaw)
	require.NotNil(t, res.Quote.Discount)
	assert.InDelta(t, 1053, res.Quote.Total, 1e-9)
}

func TestEnginePriceBlend_CachesOnlyCatalogRecipes(t *testing.T) {
	e := NewEngine(defaultCatalog(t))

	for _, name := range []string{"sleep", "x-1", "x-2"} {
		e.PriceBlend(name, 1000, catalog.FormRaw)
		e.PriceBlend(name, 8000, catalog.FormRaw)
	}
	assert.Equal(t, 0, e.cache.ItemCount())

	e.PriceBlend(stressRecipe, 1000, catalog.FormRaw)
	e.PriceBlend(stressRecipe, 1000, catalog.FormRaw)
	assert.Equal(t, 1, e.cache.ItemCount())
}

func TestEngineRecipe(t *testing.T) {
	e := NewEngine(defaultCatalog(t))

	r, err := e.Recipe(stressRecipe)
	require.NoError(t, err)
	assert.Equal(t, "Peace of Mind Blend", r.Title)

	_, err = e.Recipe("sleep")
	assert.ErrorIs(t, err, catalog.ErrUnknownRecipe)
}

func TestEngineDiscountsIsACopy(t *testing.T) {
	e := NewEngine(defaultCatalog(t))

	d := e.Discounts()
	require.Len(t, d, 1)
	d[0].Rate = 0.5
	assert.InDelta(t, 0.15, e.Discounts()[0].Rate, 1e-12)
	assert.InDelta(t, 0.15, DefaultBlendDiscounts[0].Rate, 1e-12)
}

func TestRecipeForDosha(t *testing.T) {
	assert.Equal(t, "stress", RecipeForDosha(catalog.Vata))
	assert.Equal(t, "digestion", RecipeForDosha(catalog.Pitta))
	assert.Equal(t, "immunity", RecipeForDosha(catalog.Kapha))
	assert.Equal(t, "stress", RecipeForDosha(catalog.Dosha("")))
}

func TestSampleBundle(t *testing.T) {
	e := NewEngine(defaultCatalog(t))

	cases := map[catalog.Dosha]map[string]float64{
		catalog.Vata:  {"6": 300, "10": 238, "31": 338},
		catalog.Pitta: {"1": 113, "2": 95, "3": 90},
		catalog.Kapha: {"1": 113, "6": 300, "32": 1000},
	}
	for dosha, want := range cases {
		items := e.SampleBundle(dosha)
		got := map[string]float64{}
		for _, item := range items {
			got[item.ProductID] = item.Price
			assert.Equal(t, catalog.FormRaw, item.Form)
			label, ok := item.Quantity.Tier()
			assert.True(t, ok)
			assert.Equal(t, "250g", label)
		}
		assert.Equal(t, want, got, string(dosha))
	}
}
