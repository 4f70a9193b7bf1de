package main

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/prakamrit/storefront/internal/cart"
	"github.com/prakamrit/storefront/internal/catalog"
	"github.com/prakamrit/storefront/internal/pricing"
)

const visitorCookieName = "prakamrit_sid"

type productView struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	BotanicalName string          `json:"botanicalName,omitempty"`
	Description   string          `json:"description,omitempty"`
	RawPrice      float64         `json:"rawPrice"`
	PowderPrice   float64         `json:"powderPrice"`
	Forms         []catalog.Form  `json:"forms"`
	Benefits      []string        `json:"benefits,omitempty"`
	Doshas        []catalog.Dosha `json:"doshas,omitempty"`
	Image         string          `json:"image,omitempty"`
}

func newProductView(ing catalog.Ingredient) productView {
	return productView{
		ID:            ing.ID,
		Name:          ing.Name,
		BotanicalName: ing.BotanicalName,
		Description:   ing.Description,
		RawPrice:      ing.RawPrice,
		PowderPrice:   ing.PowderPrice,
		Forms:         ing.AvailableForms(),
		Benefits:      ing.Benefits,
		Doshas:        ing.Doshas,
		Image:         ing.Image,
	}
}

type recipeLineView struct {
	IngredientID string  `json:"ingredientId"`
	Name         string  `json:"name,omitempty"`
	Ratio        float64 `json:"ratio"`
}

type recipeView struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Lines       []recipeLineView `json:"lines"`
}

func (s *server) handleProducts(w http.ResponseWriter, r *http.Request) {
	dosha := strings.TrimSpace(r.URL.Query().Get("dosha"))
	if dosha != "" && dosha != "All" {
		if _, err := catalog.ParseDosha(dosha); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	ings := s.engine.Catalog().Filter(dosha, r.URL.Query().Get("q"))
	out := make([]productView, 0, len(ings))
	for _, ing := range ings {
		out = append(out, newProductView(ing))
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": out})
}

func (s *server) handleProduct(w http.ResponseWriter, r *http.Request) {
	ing, ok := s.engine.Catalog().Ingredient(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, newProductView(ing))
}

func (s *server) handleProductPrice(w http.ResponseWriter, r *http.Request) {
	form, subscribed, ok := parseFormAndSubscribe(w, r)
	if !ok {
		return
	}
	tier := strings.TrimSpace(r.URL.Query().Get("tier"))
	if tier == "" {
		writeError(w, http.StatusBadRequest, "tier is required")
		return
	}

	price, err := s.engine.PriceTier(chi.URLParam(r, "id"), form, tier, subscribed)
	if err != nil {
		writePricingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, price)
}

func (s *server) handleProductPrices(w http.ResponseWriter, r *http.Request) {
	form, subscribed, ok := parseFormAndSubscribe(w, r)
	if !ok {
		return
	}
	table, err := s.engine.PriceTable(chi.URLParam(r, "id"), form, subscribed)
	if err != nil {
		writePricingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prices": table})
}

func (s *server) handleRecipes(w http.ResponseWriter, r *http.Request) {
	c := s.engine.Catalog()
	recipes := c.Recipes()
	out := make([]recipeView, 0, len(recipes))
	for _, rec := range recipes {
		view := recipeView{ID: rec.ID, Title: rec.Title, Description: rec.Description}
		for _, line := range rec.Lines() {
			lv := recipeLineView{IngredientID: line.IngredientID, Ratio: line.Ratio}
			if ing, ok := c.Ingredient(line.IngredientID); ok {
				lv.Name = ing.Name
			}
			view.Lines = append(view.Lines, lv)
		}
		out = append(out, view)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"recipes":   out,
		"discounts": s.engine.Discounts(),
	})
}

// handleBlendQuote prices a custom blend. Weights that do not parse are
// treated like an empty field and yield the idle state.
func (s *server) handleBlendQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	form, err := parseForm(q.Get("form"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res := s.engine.PriceBlend(q.Get("recipe"), parseGrams(q.Get("grams")), form)
	s.metrics.ObserveBlend(res.State.String())
	writeJSON(w, http.StatusOK, res)
}

type blendCartRequest struct {
	Recipe string  `json:"recipe" validate:"required"`
	Grams  float64 `json:"grams"`
	Form   string  `json:"form"`
}

func (s *server) handleBlendCart(w http.ResponseWriter, r *http.Request) {
	var req blendCartRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	form, err := parseForm(req.Form)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := s.engine.PriceBlend(req.Recipe, req.Grams, form)
	s.metrics.ObserveBlend(res.State.String())

	var items []cart.Item
	switch res.State {
	case pricing.BlendQuoted:
		items = res.Quote.CartItems()
	case pricing.BlendBulkPivot:
		items = []cart.Item{res.Inquiry.CartItem()}
	case pricing.BlendBelowMinimum:
		writeError(w, http.StatusUnprocessableEntity, "minimum blend weight is 500g")
		return
	default:
		writeError(w, http.StatusUnprocessableEntity, "select a recipe and a weight")
		return
	}

	var basket cart.Cart
	basket.Add(items...)
	resp := map[string]any{
		"state":             res.State,
		"items":             basket.Items,
		"total":             basket.Total(),
		"savings":           basket.Savings(),
		"requiresQuotation": basket.RequiresQuotation(s.engine.Catalog()),
	}
	if res.State == pricing.BlendQuoted {
		// Checkout takes the blend itself, not its lines.
		resp["blend"] = blendRequest{Recipe: req.Recipe, Grams: req.Grams, Form: string(form)}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleWishlist(w http.ResponseWriter, r *http.Request) {
	sid := s.visitorID(w, r)
	ids, err := s.wishlist.List(r.Context(), sid)
	if err != nil {
		s.internalError(w, r, "failed to load wishlist", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": ids})
}

type wishlistRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

func (s *server) handleWishlistToggle(w http.ResponseWriter, r *http.Request) {
	var req wishlistRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if _, ok := s.engine.Catalog().Ingredient(req.ProductID); !ok {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	sid := s.visitorID(w, r)
	saved, err := s.wishlist.Toggle(r.Context(), sid, req.ProductID)
	if err != nil {
		s.internalError(w, r, "failed to update wishlist", err)
		return
	}
	ids, err := s.wishlist.List(r.Context(), sid)
	if err != nil {
		s.internalError(w, r, "failed to load wishlist", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"productId": req.ProductID, "saved": saved, "items": ids})
}

// visitorID returns the anonymous visitor id, issuing a cookie on first use.
func (s *server) visitorID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(visitorCookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     visitorCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func parseForm(raw string) (catalog.Form, error) {
	if strings.TrimSpace(raw) == "" {
		return catalog.FormRaw, nil
	}
	return catalog.ParseForm(raw)
}

func parseFormAndSubscribe(w http.ResponseWriter, r *http.Request) (catalog.Form, bool, bool) {
	q := r.URL.Query()
	form, err := parseForm(q.Get("form"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false, false
	}
	subscribed := false
	if raw := q.Get("subscribe"); raw != "" {
		subscribed, err = strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "subscribe must be a boolean")
			return "", false, false
		}
	}
	return form, subscribed, true
}

func parseGrams(raw string) float64 {
	grams, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsInf(grams, 0) {
		return 0
	}
	return grams
}

func writePricingError(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrUnknownIngredient) {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}
