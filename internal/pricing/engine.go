// Package pricing is the storefront's pricing and blend engine. PriceTier
// and PriceBlend are pure functions of the catalog and their inputs; Engine
// binds them to one catalog and memoizes blend results.
package pricing

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/prakamrit/storefront/internal/cart"
	"github.com/prakamrit/storefront/internal/catalog"
)

const defaultCacheExpiry = 5 * time.Minute

// Engine prices products and blends against a fixed catalog.
type Engine struct {
	catalog   *catalog.Catalog
	discounts []VolumeDiscount
	cache     *cache.Cache
}

// Option configures an Engine.
type Option func(*Engine)

// WithDiscounts replaces the blend discount schedule.
func WithDiscounts(schedule []VolumeDiscount) Option {
	return func(e *Engine) {
		e.discounts = append([]VolumeDiscount(nil), schedule...)
	}
}

// WithCacheExpiry sets how long blend results are memoized. Zero disables
// memoization.
func WithCacheExpiry(d time.Duration) Option {
	return func(e *Engine) {
		if d <= 0 {
			e.cache = nil
			return
		}
		e.cache = cache.New(d, 2*d)
	}
}

// NewEngine returns an engine over c.
func NewEngine(c *catalog.Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog:   c,
		discounts: DefaultBlendDiscounts,
		cache:     cache.New(defaultCacheExpiry, 2*defaultCacheExpiry),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the catalog the engine prices against.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// PriceTier looks up a product and tier and prices them. Unknown ids and
// forms the product is not sold in are reported as errors so the input
// layer can reject them.
func (e *Engine) PriceTier(productID string, form catalog.Form, tierLabel string, subscribed bool) (TierPrice, error) {
	ing, ok := e.catalog.Ingredient(productID)
	if !ok {
		return TierPrice{}, fmt.Errorf("product %q: %w", productID, catalog.ErrUnknownIngredient)
	}
	tier, ok := e.catalog.Tier(tierLabel)
	if !ok {
		return TierPrice{}, fmt.Errorf("tier %q: %w", tierLabel, catalog.ErrUnknownTier)
	}
	if !ing.Offers(form) {
		return TierPrice{}, fmt.Errorf("product %q is not sold as %s", productID, form)
	}
	return QuoteTier(ing, form, tier, subscribed), nil
}

// PriceTable prices a product at every catalog tier.
func (e *Engine) PriceTable(productID string, form catalog.Form, subscribed bool) ([]TierPrice, error) {
	ing, ok := e.catalog.Ingredient(productID)
	if !ok {
		return nil, fmt.Errorf("product %q: %w", productID, catalog.ErrUnknownIngredient)
	}
	if !ing.Offers(form) {
		return nil, fmt.Errorf("product %q is not sold as %s", productID, form)
	}
	return PriceTable(ing, form, e.catalog.Tiers(), subscribed), nil
}

// Recipe looks up a blend recipe by id.
func (e *Engine) Recipe(id string) (catalog.Recipe, error) {
	recipe, ok := e.catalog.Recipe(id)
	if !ok {
		return catalog.Recipe{}, fmt.Errorf("recipe %q: %w", id, catalog.ErrUnknownRecipe)
	}
	return recipe, nil
}

// Discounts returns the blend discount schedule the engine applies.
func (e *Engine) Discounts() []VolumeDiscount {
	return append([]VolumeDiscount(nil), e.discounts...)
}

// PriceBlend prices a custom blend. Results for catalog recipes are
// memoized per (recipe, grams, form); callers receive their own copy.
func (e *Engine) PriceBlend(recipeID string, grams float64, form catalog.Form) BlendResult {
	if _, ok := e.catalog.Recipe(recipeID); !ok || e.cache == nil {
		return PriceBlend(e.catalog, e.discounts, recipeID, grams, form)
	}

	key := fmt.Sprintf("%s|%g|%s", recipeID, grams, form)
	if cached, ok := e.cache.Get(key); ok {
		return cached.(BlendResult).clone()
	}
	res := PriceBlend(e.catalog, e.discounts, recipeID, grams, form)
	e.cache.SetDefault(key, res.clone())
	return res
}

// SampleBundle returns the sample cart suggested for a dosha: one raw
// 250g line per ingredient of the routed recipe. It does not run the blend
// calculator.
func (e *Engine) SampleBundle(d catalog.Dosha) []cart.Item {
	recipe, ok := e.catalog.Recipe(RecipeForDosha(d))
	if !ok {
		return nil
	}
	tier, ok := e.catalog.Tier(SampleTier)
	if !ok {
		tier = catalog.Tier{Label: SampleTier, Multiplier: 0.25}
	}

	items := make([]cart.Item, 0, len(recipe.Ratios))
	for _, line := range recipe.Lines() {
		ing, ok := e.catalog.Ingredient(line.IngredientID)
		if !ok {
			continue
		}
		items = append(items, cart.Item{
			ProductID:   ing.ID,
			ProductName: ing.Name,
			Form:        catalog.FormRaw,
			Quantity:    cart.TierQuantity(tier.Label),
			Price:       PriceTier(ing, catalog.FormRaw, tier, false),
		})
	}
	return items
}

func (r BlendResult) clone() BlendResult {
	out := BlendResult{State: r.State}
	if r.Quote != nil {
		q := *r.Quote
		q.Lines = append([]Line(nil), r.Quote.Lines...)
		q.Skipped = append([]string(nil), r.Quote.Skipped...)
		if r.Quote.Discount != nil {
			d := *r.Quote.Discount
			q.Discount = &d
		}
		out.Quote = &q
	}
	if r.Inquiry != nil {
		inq := *r.Inquiry
		out.Inquiry = &inq
	}
	return out
}
