package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/prakamrit/storefront/internal/advisor"
	"github.com/prakamrit/storefront/internal/config"
	"github.com/prakamrit/storefront/internal/idempotency"
	"github.com/prakamrit/storefront/internal/logging"
	"github.com/prakamrit/storefront/internal/metrics"
	"github.com/prakamrit/storefront/internal/notify"
	"github.com/prakamrit/storefront/internal/orders"
	"github.com/prakamrit/storefront/internal/payment"
	"github.com/prakamrit/storefront/internal/pricing"
)

const maxBodyBytes = 8 << 20

type server struct {
	cfg      config.Config
	logger   zerolog.Logger
	db       *sql.DB
	engine   *pricing.Engine
	orders   *orders.Store
	wishlist *orders.WishlistStore
	auth     *authService
	payments *payment.Gateway
	notifier notify.Notifier
	keys     idempotency.Store
	advisor  *advisor.Advisor
	metrics  *metrics.Metrics
	validate *validator.Validate
	limiter  *ipLimiter
	now      func() time.Time
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.AccessLog(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", s.handleProducts)
		r.Get("/products/{id}", s.handleProduct)
		r.Get("/products/{id}/price", s.handleProductPrice)
		r.Get("/products/{id}/prices", s.handleProductPrices)
		r.Get("/recipes", s.handleRecipes)
		r.Get("/blends/quote", s.handleBlendQuote)
		r.Post("/blends/cart", s.handleBlendCart)
		r.Get("/wishlist", s.handleWishlist)
		r.Post("/wishlist", s.handleWishlistToggle)

		r.Post("/checkout", s.handleCheckout)
		r.Post("/quotes", s.handleQuoteRequest)
		r.Post("/payments/verify", s.handlePaymentVerify)

		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware)
			r.Post("/consult", s.handleConsult)
			r.Post("/scan", s.handleScan)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.requireAdmin)
			r.Get("/orders", s.handleAdminOrders)
			r.Get("/orders/{id}", s.handleAdminOrder)
			r.Post("/orders/{id}/quotation", s.handleAdminQuotationUpload)
			r.Post("/orders/{id}/approve", s.handleAdminApprove)
			r.Post("/orders/{id}/complete", s.handleAdminComplete)
			r.Get("/orders/{id}/quotation.pdf", s.handleAdminQuotationPDF)
			r.Get("/orders/{id}/quotation.txt", s.handleAdminQuotationText)
		})
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type apiError struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, details ...string) {
	writeJSON(w, status, apiError{Error: msg, Details: details})
}

// internalError logs err and answers with a generic 500.
func (s *server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.logger.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg(msg)
	writeError(w, http.StatusInternalServerError, msg)
}

// decodeJSON reads a JSON body into dst and validates it. It writes the
// error response itself and reports whether the handler may continue.
func (s *server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeError(w, http.StatusUnprocessableEntity, "validation failed", validationDetails(verrs)...)
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	return true
}

func validationDetails(verrs validator.ValidationErrors) []string {
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			out = append(out, fmt.Sprintf("%s: %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		out = append(out, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
	}
	return out
}

// instrumentedNotifier counts every delivery attempt.
type instrumentedNotifier struct {
	next    notify.Notifier
	metrics *metrics.Metrics
}

func (n instrumentedNotifier) Send(ctx context.Context, m notify.Message) error {
	err := n.next.Send(ctx, m)
	n.metrics.ObserveNotification(string(m.Kind), err)
	return err
}

// sendNotifications delivers msgs. Failures are only logged because the
// order is already saved.
func (s *server) sendNotifications(ctx context.Context, orderID string, msgs ...notify.Message) {
	if err := notify.SendAll(ctx, s.notifier, msgs...); err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID).Msg("notification delivery failed")
	}
}
