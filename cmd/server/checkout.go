package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/prakamrit/storefront/internal/cart"
	"github.com/prakamrit/storefront/internal/catalog"
	"github.com/prakamrit/storefront/internal/idempotency"
	"github.com/prakamrit/storefront/internal/notify"
	"github.com/prakamrit/storefront/internal/orders"
	"github.com/prakamrit/storefront/internal/payment"
	"github.com/prakamrit/storefront/internal/pricing"
)

const idempotencyHeader = "Idempotency-Key"

var errQuotationRequired = errors.New("requires a quotation")

// checkoutRequest carries packaged items and custom blends. Blends are
// priced on the server, so their lines are never taken from the client.
type checkoutRequest struct {
	Customer orders.Customer `json:"customer"`
	Items    []cart.Item     `json:"items" validate:"max=50"`
	Blends   []blendRequest  `json:"blends,omitempty" validate:"max=10,dive"`
}

type checkoutResponse struct {
	Order   orders.Order   `json:"order"`
	Payment payment.Intent `json:"payment"`
	Savings float64        `json:"savings"`
}

func (s *server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if len(req.Items) == 0 && len(req.Blends) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "cart is empty")
		return
	}

	basket := cart.Cart{Items: req.Items}
	if basket.RequiresQuotation(s.engine.Catalog()) {
		writeError(w, http.StatusConflict, "cart contains items that require a quotation")
		return
	}
	items, err := s.repriceItems(req.Items)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	blends, err := s.priceBlends(req.Blends)
	switch {
	case errors.Is(err, errQuotationRequired):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var priced cart.Cart
	priced.Add(items...)
	priced.Add(blends...)

	if key := strings.TrimSpace(r.Header.Get(idempotencyHeader)); key != "" {
		if err := s.keys.Reserve(r.Context(), key); err != nil {
			switch {
			case errors.Is(err, idempotency.ErrDuplicate):
				s.metrics.DuplicateKeys.Inc()
				writeError(w, http.StatusConflict, "duplicate request")
			case errors.Is(err, idempotency.ErrInvalidKey):
				writeError(w, http.StatusBadRequest, err.Error())
			default:
				s.internalError(w, r, "failed to reserve idempotency key", err)
			}
			return
		}
	}

	order := orders.NewCheckout(req.Customer, priced.Items, s.now())
	intent, err := s.payments.CreateIntent(order.ID, order.TotalAmount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := s.orders.Create(r.Context(), order); err != nil {
		s.internalError(w, r, "failed to save order", err)
		return
	}
	s.metrics.ObserveOrderCreated("checkout")
	s.logger.Info().Str("order_id", order.ID).Float64("total", order.TotalAmount).Int("items", len(order.Items)).Int("blends", len(req.Blends)).Msg("order placed")

	msgs := []notify.Message{notify.AdminAlert(s.cfg.AdminEmail, order)}
	receipt, err := notify.CustomerReceipt(order, s.productImage)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID).Msg("render customer receipt")
	} else {
		msgs = append([]notify.Message{receipt}, msgs...)
	}
	s.sendNotifications(r.Context(), order.ID, msgs...)

	writeJSON(w, http.StatusCreated, checkoutResponse{Order: order, Payment: intent, Savings: priced.Savings()})
}

// repriceItems replaces client-supplied prices with catalog tier prices.
// Custom weights are only sold as blends.
func (s *server) repriceItems(items []cart.Item) ([]cart.Item, error) {
	c := s.engine.Catalog()
	out := make([]cart.Item, 0, len(items))
	for i, item := range items {
		ing, ok := c.Ingredient(item.ProductID)
		if !ok {
			return nil, fmt.Errorf("items[%d]: unknown product %q", i, item.ProductID)
		}
		label, ok := item.Quantity.Tier()
		if !ok {
			return nil, fmt.Errorf("items[%d]: custom weights must be ordered as a blend", i)
		}
		price, err := s.engine.PriceTier(item.ProductID, item.Form, label, item.Subscribed)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
		out = append(out, price.CartItem(ing.Name))
	}
	return out, nil
}

// priceBlends runs each blend through the calculator. Only blends it
// quotes instantly can be bought; heavier ones go to quotation.
func (s *server) priceBlends(blends []blendRequest) ([]cart.Item, error) {
	var out []cart.Item
	for i, b := range blends {
		form, err := parseForm(b.Form)
		if err != nil {
			return nil, fmt.Errorf("blends[%d]: %w", i, err)
		}
		if _, err := s.engine.Recipe(b.Recipe); err != nil {
			return nil, fmt.Errorf("blends[%d]: %w", i, err)
		}
		res := s.engine.PriceBlend(b.Recipe, b.Grams, form)
		switch res.State {
		case pricing.BlendQuoted:
			out = append(out, res.Quote.CartItems()...)
		case pricing.BlendBulkPivot:
			return nil, fmt.Errorf("blends[%d]: %gg %w", i, b.Grams, errQuotationRequired)
		case pricing.BlendBelowMinimum:
			return nil, fmt.Errorf("blends[%d]: minimum blend weight is %gg", i, pricing.MinBlendGrams)
		default:
			return nil, fmt.Errorf("blends[%d]: select a recipe and a weight", i)
		}
	}
	return out, nil
}

func (s *server) productImage(productID string) string {
	if ing, ok := s.engine.Catalog().Ingredient(productID); ok {
		return ing.Image
	}
	return ""
}

type blendRequest struct {
	Recipe string  `json:"recipe" validate:"required"`
	Grams  float64 `json:"grams" validate:"gt=0"`
	Form   string  `json:"form"`
}

type quoteRequest struct {
	Customer orders.Customer `json:"customer"`
	// Exactly one of Item and Blend is set.
	Item  *cart.Item    `json:"item,omitempty"`
	Blend *blendRequest `json:"blend,omitempty"`
}

func (s *server) handleQuoteRequest(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if (req.Item == nil) == (req.Blend == nil) {
		writeError(w, http.StatusUnprocessableEntity, "exactly one of item or blend is required")
		return
	}

	item, err := s.quoteItem(req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	order := orders.NewQuoteRequest(req.Customer, item, s.now())
	if err := s.orders.Create(r.Context(), order); err != nil {
		s.internalError(w, r, "failed to save quote request", err)
		return
	}
	s.metrics.ObserveOrderCreated("quote")
	s.logger.Info().Str("order_id", order.ID).Str("product", item.ProductName).Str("quantity", item.Quantity.Label()).Msg("quote requested")

	s.sendNotifications(r.Context(), order.ID,
		notify.RequestReceived(order),
		notify.InquiryAlert(s.cfg.AdminEmail, order),
	)
	writeJSON(w, http.StatusCreated, map[string]any{"order": order})
}

// quoteItem resolves the single line a quote request is about: a bulk blend
// too large to price, or a catalog item at a quote-only tier.
func (s *server) quoteItem(req quoteRequest) (cart.Item, error) {
	if req.Blend != nil {
		form, err := parseForm(req.Blend.Form)
		if err != nil {
			return cart.Item{}, err
		}
		res := s.engine.PriceBlend(req.Blend.Recipe, req.Blend.Grams, form)
		s.metrics.ObserveBlend(res.State.String())
		if res.State != pricing.BlendBulkPivot {
			return cart.Item{}, fmt.Errorf("blends up to %gg are priced instantly; add them to the cart", pricing.MaxBlendGrams)
		}
		return res.Inquiry.CartItem(), nil
	}

	item := *req.Item
	if item.ProductID == cart.BulkInquiryProductID {
		grams, ok := item.Quantity.Grams()
		if !ok || grams <= pricing.MaxBlendGrams {
			return cart.Item{}, errors.New("bulk blend quantity is required")
		}
		if _, err := catalog.ParseForm(string(item.Form)); err != nil {
			return cart.Item{}, err
		}
		item.Price = 0
		item.Subscribed = false
		return item, nil
	}

	label, ok := item.Quantity.Tier()
	if !ok {
		return cart.Item{}, errors.New("quote requests need a packaged tier")
	}
	price, err := s.engine.PriceTier(item.ProductID, item.Form, label, item.Subscribed)
	if err != nil {
		return cart.Item{}, err
	}
	if !price.QuoteOnly {
		return cart.Item{}, fmt.Errorf("%s can be ordered directly", label)
	}
	ing, _ := s.engine.Catalog().Ingredient(item.ProductID)
	return price.CartItem(ing.Name), nil
}

type paymentVerifyRequest struct {
	OrderID   string `json:"orderId" validate:"required"`
	PaymentID string `json:"paymentId" validate:"required"`
	Signature string `json:"signature" validate:"required,hexadecimal"`
}

func (s *server) handlePaymentVerify(w http.ResponseWriter, r *http.Request) {
	var req paymentVerifyRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := s.payments.Verify(req.OrderID, req.PaymentID, req.Signature); err != nil {
		s.logger.Warn().Str("order_id", req.OrderID).Msg("payment signature rejected")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := s.orders.Complete(r.Context(), req.OrderID, req.PaymentID)
	if err != nil {
		s.writeOrderError(w, r, err)
		return
	}
	s.metrics.ObserveStatusChange(string(order.Status))
	s.logger.Info().Str("order_id", order.ID).Str("payment_id", req.PaymentID).Bool("quotation", order.IsQuoteRequest()).Msg("payment verified")
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (s *server) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, orders.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.internalError(w, r, "failed to update order", err)
	}
}
