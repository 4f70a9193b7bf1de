package pricing

import (
	"math"
	"sort"

	"github.com/prakamrit/storefront/internal/cart"
	"github.com/prakamrit/storefront/internal/catalog"
)

const (
	// MinBlendGrams is the hard floor below which blends are not computed.
	MinBlendGrams = 500.0
	// MaxBlendGrams is the largest blend priced automatically. Heavier
	// blends pivot to manual quotation.
	MaxBlendGrams = 5000.0

	fallbackBlendTitle = "Custom Blend"
)

// BlendState is the outcome of a blend calculation.
type BlendState int

const (
	// BlendIdle means the inputs are incomplete: no recipe, a recipe the
	// catalog does not know, or a non-positive weight.
	BlendIdle BlendState = iota
	// BlendBelowMinimum means the weight is under MinBlendGrams.
	BlendBelowMinimum
	// BlendBulkPivot means the weight exceeds MaxBlendGrams and the order
	// must be quoted by hand.
	BlendBulkPivot
	// BlendQuoted carries an itemized quote.
	BlendQuoted
)

func (s BlendState) String() string {
	switch s {
	case BlendIdle:
		return "idle"
	case BlendBelowMinimum:
		return "below_minimum"
	case BlendBulkPivot:
		return "bulk_pivot"
	case BlendQuoted:
		return "quoted"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON payloads.
func (s BlendState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Line is one ingredient of a blend quote.
type Line struct {
	IngredientID string       `json:"ingredientId"`
	Name         string       `json:"name"`
	Form         catalog.Form `json:"form"`
	Grams        float64      `json:"grams"`
	UnitPrice    float64      `json:"unitPrice"`
	Price        float64      `json:"price"`
}

// Discount describes a discount applied to a quote subtotal.
type Discount struct {
	Label  string  `json:"label"`
	Rate   float64 `json:"rate"`
	Amount float64 `json:"amount"`
}

// Quote is an itemized blend price.
type Quote struct {
	RecipeID   string       `json:"recipeId"`
	Title      string       `json:"title"`
	Form       catalog.Form `json:"form"`
	TotalGrams float64      `json:"totalGrams"`
	Lines      []Line       `json:"lines"`
	// Skipped lists recipe ingredients missing from the catalog.
	Skipped  []string  `json:"skipped,omitempty"`
	Subtotal float64   `json:"subtotal"`
	Discount *Discount `json:"discount,omitempty"`
	Total    float64   `json:"total"`
}

// BulkInquiry is handed to the quotation workflow when a blend is too
// large to price automatically.
type BulkInquiry struct {
	RecipeID string       `json:"recipeId"`
	Title    string       `json:"title"`
	Form     catalog.Form `json:"form"`
	Grams    float64      `json:"grams"`
}

// BlendResult is exactly one of the four blend states. Quote is set only
// for BlendQuoted and Inquiry only for BlendBulkPivot.
type BlendResult struct {
	State   BlendState   `json:"state"`
	Quote   *Quote       `json:"quote,omitempty"`
	Inquiry *BulkInquiry `json:"inquiry,omitempty"`
}

// VolumeDiscount applies Rate to blends weighing at least MinGrams.
type VolumeDiscount struct {
	MinGrams float64 `json:"minGrams"`
	Rate     float64 `json:"rate"`
	Label    string  `json:"label"`
}

// DefaultBlendDiscounts is the storefront's blend discount schedule.
// Because blends above MaxBlendGrams pivot to quotation, the 5000 g entry
// only ever applies at exactly 5000 g.
var DefaultBlendDiscounts = []VolumeDiscount{
	{MinGrams: 5000, Rate: 0.15, Label: "15% Bulk Savings"},
}

// blendDiscount picks the richest schedule entry the weight qualifies for.
func blendDiscount(schedule []VolumeDiscount, grams, subtotal float64) *Discount {
	var best *VolumeDiscount
	for i := range schedule {
		d := &schedule[i]
		if grams >= d.MinGrams && (best == nil || d.MinGrams > best.MinGrams) {
			best = d
		}
	}
	if best == nil || best.Rate <= 0 {
		return nil
	}
	return &Discount{Label: best.Label, Rate: best.Rate, Amount: subtotal * best.Rate}
}

// PriceBlend computes a blend of recipe at grams in form. The branches are
// evaluated in order: idle, below minimum, bulk pivot, itemized quote.
func PriceBlend(c *catalog.Catalog, schedule []VolumeDiscount, recipeID string, grams float64, form catalog.Form) BlendResult {
	if recipeID == "" || !(grams > 0) {
		return BlendResult{State: BlendIdle}
	}
	if grams < MinBlendGrams {
		return BlendResult{State: BlendBelowMinimum}
	}

	recipe, known := c.Recipe(recipeID)
	if grams > MaxBlendGrams {
		title := fallbackBlendTitle
		if known && recipe.Title != "" {
			title = recipe.Title
		}
		return BlendResult{
			State:   BlendBulkPivot,
			Inquiry: &BulkInquiry{RecipeID: recipeID, Title: title, Form: form, Grams: grams},
		}
	}
	if !known {
		return BlendResult{State: BlendIdle}
	}

	q := &Quote{
		RecipeID:   recipe.ID,
		Title:      recipe.Title,
		Form:       form,
		TotalGrams: grams,
		Lines:      make([]Line, 0, len(recipe.Ratios)),
	}
	for _, rl := range recipe.Lines() {
		ing, ok := c.Ingredient(rl.IngredientID)
		if !ok {
			q.Skipped = append(q.Skipped, rl.IngredientID)
			continue
		}
		weight := grams * rl.Ratio
		unit := ing.UnitPrice(form)
		price := weight / 1000 * unit
		q.Subtotal += price
		q.Lines = append(q.Lines, Line{
			IngredientID: ing.ID,
			Name:         ing.Name,
			Form:         form,
			Grams:        weight,
			UnitPrice:    unit,
			Price:        price,
		})
	}

	q.Discount = blendDiscount(schedule, grams, q.Subtotal)
	q.Total = q.Subtotal
	if q.Discount != nil {
		q.Total -= q.Discount.Amount
	}

	return BlendResult{State: BlendQuoted, Quote: q}
}

// DiscountFactor is the share of the subtotal removed by the discount,
// derived from the aggregate rather than per line.
func (q Quote) DiscountFactor() float64 {
	if q.Discount == nil || q.Subtotal == 0 {
		return 0
	}
	return q.Discount.Amount / q.Subtotal
}

// CartItems converts the quote into discount-adjusted cart lines. Line
// prices are rounded with the largest-remainder method so they always sum
// to the rounded quote total.
func (q Quote) CartItems() []cart.Item {
	factor := 1 - q.DiscountFactor()
	adjusted := make([]float64, len(q.Lines))
	for i, line := range q.Lines {
		adjusted[i] = line.Price * factor
	}
	rounded := allocateRounded(adjusted, math.Round(math.Round(q.Total*1e6)/1e6))

	items := make([]cart.Item, len(q.Lines))
	for i, line := range q.Lines {
		items[i] = cart.Item{
			ProductID:   line.IngredientID,
			ProductName: line.Name,
			Form:        line.Form,
			Quantity:    cart.CustomGrams(line.Grams),
			Price:       rounded[i],
		}
	}
	return items
}

// CartItem converts a bulk inquiry into the zero-priced placeholder line
// the quotation workflow expects.
func (b BulkInquiry) CartItem() cart.Item {
	return cart.Item{
		ProductID:   cart.BulkInquiryProductID,
		ProductName: b.Title + " (" + string(b.Form) + ")",
		Form:        b.Form,
		Quantity:    cart.CustomGrams(b.Grams),
		Price:       0,
	}
}

// allocateRounded floors every value and hands the remaining units to the
// values with the largest fractional parts until the sum reaches target.
func allocateRounded(values []float64, target float64) []float64 {
	out := make([]float64, len(values))
	order := make([]int, len(values))
	sum := 0.0
	for i, v := range values {
		// Snap float noise such as 2039.9999999997 before flooring.
		v = math.Round(v*1e6) / 1e6
		values[i] = v
		out[i] = math.Floor(v)
		sum += out[i]
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]]-out[order[a]] > values[order[b]]-out[order[b]]
	})
	for k := 0; sum < target && len(order) > 0; k++ {
		out[order[k%len(order)]]++
		sum++
	}
	return out
}
