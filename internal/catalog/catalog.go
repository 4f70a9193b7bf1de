// Package catalog holds the storefront's immutable reference data: the
// ingredient price list, the named blend recipes and the packaged quantity
// tiers. A Catalog is built once at startup and passed explicitly to the
// pricing engine; nothing in it changes at runtime.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Form is the material form an ingredient is sold in.
type Form string

const (
	FormRaw    Form = "raw"
	FormPowder Form = "powder"
)

// Dosha is one of the three Ayurvedic constitutional categories used as a
// catalog tag.
type Dosha string

const (
	Vata  Dosha = "Vata"
	Pitta Dosha = "Pitta"
	Kapha Dosha = "Kapha"
)

// ratioTolerance bounds how far a recipe's ratio sum may drift from 1.0.
const ratioTolerance = 1e-6

var (
	ErrUnknownIngredient = errors.New("unknown ingredient")
	ErrUnknownRecipe     = errors.New("unknown recipe")
	ErrUnknownTier       = errors.New("unknown tier")
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Ingredient is a catalog entry priced per kilogram.
type Ingredient struct {
	ID            string
	Name          string
	BotanicalName string
	Description   string
	RawPrice      float64
	PowderPrice   float64
	Benefits      []string
	Doshas        []Dosha
	// Forms restricts the forms on offer. Empty means both.
	Forms []Form
	Image string
}

// UnitPrice returns the per-kilogram price for form.
func (i Ingredient) UnitPrice(form Form) float64 {
	if form == FormPowder {
		return i.PowderPrice
	}
	return i.RawPrice
}

// AvailableForms returns the forms the ingredient can be bought in.
func (i Ingredient) AvailableForms() []Form {
	if len(i.Forms) == 0 {
		return []Form{FormRaw, FormPowder}
	}
	return append([]Form(nil), i.Forms...)
}

// Offers reports whether form can be selected for this ingredient.
func (i Ingredient) Offers(form Form) bool {
	for _, f := range i.AvailableForms() {
		if f == form {
			return true
		}
	}
	return false
}

// HasDosha reports whether the ingredient is tagged with d.
func (i Ingredient) HasDosha(d Dosha) bool {
	for _, own := range i.Doshas {
		if own == d {
			return true
		}
	}
	return false
}

// Recipe is a named blend goal mapping ingredient ids to mixture ratios.
type Recipe struct {
	ID          string
	Title       string
	Description string
	Ratios      map[string]float64
}

// RecipeLine is one (ingredient, ratio) pair of a recipe.
type RecipeLine struct {
	IngredientID string
	Ratio        float64
}

// Lines returns the recipe ratios ordered by ingredient id, numeric ids
// first in numeric order.
func (r Recipe) Lines() []RecipeLine {
	lines := make([]RecipeLine, 0, len(r.Ratios))
	for id, ratio := range r.Ratios {
		lines = append(lines, RecipeLine{IngredientID: id, Ratio: ratio})
	}
	sort.Slice(lines, func(a, b int) bool {
		return idLess(lines[a].IngredientID, lines[b].IngredientID)
	})
	return lines
}

// RatioSum returns the sum of all ratios in the recipe.
func (r Recipe) RatioSum() float64 {
	sum := 0.0
	for _, ratio := range r.Ratios {
		sum += ratio
	}
	return sum
}

// Tier is a packaged quantity whose multiplier already carries any bulk
// discount (5kg -> 4.25 effective kilograms).
type Tier struct {
	Label      string
	Multiplier float64
	// QuoteOnly tiers are displayed with a price but ordered through the
	// quotation workflow.
	QuoteOnly bool
}

// Catalog is the immutable set of ingredients, recipes and tiers.
type Catalog struct {
	ingredients []Ingredient
	byID        map[string]int
	recipes     []Recipe
	recipeByID  map[string]int
	tiers       []Tier
	tierByLabel map[string]int
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Parse(data)
}

// New validates and indexes the given reference data.
func New(ingredients []Ingredient, recipes []Recipe, tiers []Tier) (*Catalog, error) {
	c := &Catalog{
		byID:        make(map[string]int, len(ingredients)),
		recipeByID:  make(map[string]int, len(recipes)),
		tierByLabel: make(map[string]int, len(tiers)),
	}

	for _, ing := range ingredients {
		if err := validateIngredient(ing); err != nil {
			return nil, err
		}
		if _, dup := c.byID[ing.ID]; dup {
			return nil, fmt.Errorf("duplicate ingredient id %q", ing.ID)
		}
		c.byID[ing.ID] = len(c.ingredients)
		c.ingredients = append(c.ingredients, cloneIngredient(ing))
	}

	for _, r := range recipes {
		if err := validateRecipe(r); err != nil {
			return nil, err
		}
		if _, dup := c.recipeByID[r.ID]; dup {
			return nil, fmt.Errorf("duplicate recipe id %q", r.ID)
		}
		c.recipeByID[r.ID] = len(c.recipes)
		c.recipes = append(c.recipes, cloneRecipe(r))
	}

	for _, t := range tiers {
		if t.Label == "" {
			return nil, fmt.Errorf("tier label is required")
		}
		if t.Multiplier <= 0 {
			return nil, fmt.Errorf("tier %q: multiplier must be greater than 0", t.Label)
		}
		if _, dup := c.tierByLabel[t.Label]; dup {
			return nil, fmt.Errorf("duplicate tier %q", t.Label)
		}
		c.tierByLabel[t.Label] = len(c.tiers)
		c.tiers = append(c.tiers, t)
	}

	return c, nil
}

func validateIngredient(ing Ingredient) error {
	if ing.ID == "" {
		return fmt.Errorf("ingredient id is required")
	}
	if ing.RawPrice <= 0 || ing.PowderPrice <= 0 {
		return fmt.Errorf("ingredient %q: prices must be greater than 0", ing.ID)
	}
	for _, d := range ing.Doshas {
		if _, err := ParseDosha(string(d)); err != nil {
			return fmt.Errorf("ingredient %q: %w", ing.ID, err)
		}
	}
	for _, f := range ing.Forms {
		if f != FormRaw && f != FormPowder {
			return fmt.Errorf("ingredient %q: unknown form %q", ing.ID, f)
		}
	}
	return nil
}

func validateRecipe(r Recipe) error {
	if r.ID == "" {
		return fmt.Errorf("recipe id is required")
	}
	if len(r.Ratios) == 0 {
		return fmt.Errorf("recipe %q has no ingredients", r.ID)
	}
	for id, ratio := range r.Ratios {
		if ratio <= 0 || ratio > 1 {
			return fmt.Errorf("recipe %q: ratio for %q must be in (0, 1], got %v", r.ID, id, ratio)
		}
	}
	if sum := r.RatioSum(); math.Abs(sum-1) > ratioTolerance {
		return fmt.Errorf("recipe %q: ratios sum to %v, want 1", r.ID, sum)
	}
	return nil
}

// Ingredient looks up an ingredient by id.
func (c *Catalog) Ingredient(id string) (Ingredient, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Ingredient{}, false
	}
	return cloneIngredient(c.ingredients[idx]), true
}

// Ingredients returns every ingredient in catalog order.
func (c *Catalog) Ingredients() []Ingredient {
	out := make([]Ingredient, len(c.ingredients))
	for i, ing := range c.ingredients {
		out[i] = cloneIngredient(ing)
	}
	return out
}

// Recipe looks up a recipe by id.
func (c *Catalog) Recipe(id string) (Recipe, bool) {
	idx, ok := c.recipeByID[id]
	if !ok {
		return Recipe{}, false
	}
	return cloneRecipe(c.recipes[idx]), true
}

// Recipes returns every recipe in catalog order.
func (c *Catalog) Recipes() []Recipe {
	out := make([]Recipe, len(c.recipes))
	for i, r := range c.recipes {
		out[i] = cloneRecipe(r)
	}
	return out
}

// Tier looks up a tier by label ("5kg").
func (c *Catalog) Tier(label string) (Tier, bool) {
	idx, ok := c.tierByLabel[label]
	if !ok {
		return Tier{}, false
	}
	return c.tiers[idx], true
}

// Tiers returns the tier table in ascending size order.
func (c *Catalog) Tiers() []Tier {
	return append([]Tier(nil), c.tiers...)
}

// Dangling lists "recipe/ingredient" references that do not resolve to a
// catalog entry. Pricing skips them; startup logs them.
func (c *Catalog) Dangling() []string {
	var out []string
	for _, r := range c.recipes {
		for _, line := range r.Lines() {
			if _, ok := c.byID[line.IngredientID]; !ok {
				out = append(out, r.ID+"/"+line.IngredientID)
			}
		}
	}
	return out
}

// Filter returns the ingredients tagged with dosha whose name or botanical
// name contains query. An empty dosha or "All" matches every ingredient.
func (c *Catalog) Filter(dosha string, query string) []Ingredient {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]Ingredient, 0, len(c.ingredients))
	for _, ing := range c.ingredients {
		if dosha != "" && dosha != "All" && !ing.HasDosha(Dosha(dosha)) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(ing.Name), query) &&
			!strings.Contains(strings.ToLower(ing.BotanicalName), query) {
			continue
		}
		out = append(out, cloneIngredient(ing))
	}
	return out
}

// ParseDosha validates a dosha name.
func ParseDosha(raw string) (Dosha, error) {
	switch d := Dosha(strings.TrimSpace(raw)); d {
	case Vata, Pitta, Kapha:
		return d, nil
	default:
		return "", fmt.Errorf("unknown dosha %q", raw)
	}
}

// ParseForm validates a material form name.
func ParseForm(raw string) (Form, error) {
	switch f := Form(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormRaw, FormPowder:
		return f, nil
	default:
		return "", fmt.Errorf("unknown form %q", raw)
	}
}

func cloneIngredient(ing Ingredient) Ingredient {
	ing.Benefits = append([]string(nil), ing.Benefits...)
	ing.Doshas = append([]Dosha(nil), ing.Doshas...)
	ing.Forms = append([]Form(nil), ing.Forms...)
	return ing
}

func cloneRecipe(r Recipe) Recipe {
	ratios := make(map[string]float64, len(r.Ratios))
	for k, v := range r.Ratios {
		ratios[k] = v
	}
	r.Ratios = ratios
	return r
}

func idLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
