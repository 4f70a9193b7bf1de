package main

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/prakamrit/storefront/internal/advisor"
	"github.com/prakamrit/storefront/internal/cart"
	"github.com/prakamrit/storefront/internal/catalog"
)

// ipLimiter hands out one token bucket per remote address.
type ipLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	idle     time.Duration
	visitors map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(limit rate.Limit, burst int) *ipLimiter {
	return &ipLimiter{
		limit:    limit,
		burst:    burst,
		idle:     10 * time.Minute,
		visitors: make(map[string]*visitor),
	}
}

func (l *ipLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idle {
			delete(l.visitors, k)
		}
	}
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (l *ipLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !l.allow(host, time.Now()) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "too many requests, please slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type consultRequest struct {
	Query string `json:"query" validate:"required,max=2000"`
}

func (s *server) handleConsult(w http.ResponseWriter, r *http.Request) {
	var req consultRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": s.advisor.Consult(r.Context(), req.Query)})
}

type scanRequest struct {
	Tongue string `json:"tongue" validate:"required"`
	Skin   string `json:"skin" validate:"required"`
}

type scanResponse struct {
	Dosha          catalog.Dosha `json:"dosha"`
	Analysis       string        `json:"analysis"`
	Recommendation string        `json:"recommendation"`
	Fallback       bool          `json:"fallback,omitempty"`
	Bundle         []cart.Item   `json:"bundle"`
}

func (s *server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	res, err := s.advisor.Scan(r.Context(), req.Tongue, req.Skin)
	switch {
	case errors.Is(err, advisor.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "AI scan is unavailable")
		return
	case errors.Is(err, advisor.ErrInvalidImage):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.internalError(w, r, "scan failed", err)
		return
	}

	writeJSON(w, http.StatusOK, scanResponse{
		Dosha:          res.Dosha,
		Analysis:       res.Analysis,
		Recommendation: res.Recommendation,
		Fallback:       res.Fallback,
		Bundle:         s.engine.SampleBundle(res.Dosha),
	})
}
