package main

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/prakamrit/storefront/internal/catalog"
)

func TestConsult(t *testing.T) {
	ts := newTestServer(t, withChat(stubChat{reply: "Try *Brahmi* for focus."}))

	rec := ts.do(t, http.MethodPost, "/api/consult", consultRequest{Query: "What helps focus?"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Try *Brahmi* for focus.", decode[map[string]string](t, rec)["reply"])

	assert.Equal(t, http.StatusUnprocessableEntity, ts.do(t, http.MethodPost, "/api/consult", consultRequest{}).Code)
}

func TestConsultWithoutModel(t *testing.T) {
	ts := newTestServer(t)

	reply := decode[map[string]string](t, ts.do(t, http.MethodPost, "/api/consult", consultRequest{Query: "hello"}))["reply"]
	assert.Contains(t, reply, "Missing API Key")
}

func TestScanReturnsBundleForDosha(t *testing.T) {
	ts := newTestServer(t, withChat(stubChat{reply: `{"dosha":"Kapha","analysis":"Thick white coating.","recommendation":"Warming herbs."}`}))

	rec := ts.do(t, http.MethodPost, "/api/scan", scanRequest{Tongue: "data:image/png;base64,QUJD", Skin: "QUJD"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[scanResponse](t, rec)
	assert.Equal(t, catalog.Kapha, body.Dosha)
	assert.False(t, body.Fallback)

	got := map[string]float64{}
	for _, item := range body.Bundle {
		got[item.ProductID] = item.Price
	}
	assert.Equal(t, map[string]float64{"1": 113, "6": 300, "32": 1000}, got)
}

func TestScanFallsBackToVata(t *testing.T) {
	ts := newTestServer(t, withChat(stubChat{err: errors.New("upstream timeout")}))

	body := decode[scanResponse](t, ts.do(t, http.MethodPost, "/api/scan", scanRequest{Tongue: "QUJD", Skin: "QUJD"}))
	assert.Equal(t, catalog.Vata, body.Dosha)
	assert.True(t, body.Fallback)
	assert.Len(t, body.Bundle, 3)
}

func TestScanErrors(t *testing.T) {
	ts := newTestServer(t)
	assert.Equal(t, http.StatusServiceUnavailable, ts.do(t, http.MethodPost, "/api/scan", scanRequest{Tongue: "QUJD", Skin: "QUJD"}).Code)

	ts = newTestServer(t, withChat(stubChat{}))
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/scan", scanRequest{Tongue: "data:image/png;base64,", Skin: "QUJD"}).Code)
}

func TestAIRoutesAreRateLimited(t *testing.T) {
	ts := newTestServer(t)

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		codes = append(codes, ts.do(t, http.MethodPost, "/api/consult", consultRequest{Query: "hi"}).Code)
	}
	assert.Equal(t, []int{200, 200, 200, 429}, codes)

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/recipes", nil).Code)
}

func TestIPLimiter(t *testing.T) {
	l := newIPLimiter(rate.Limit(1), 3)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		assert.True(t, l.allow("10.0.0.1", now))
	}
	assert.False(t, l.allow("10.0.0.1", now))
	assert.True(t, l.allow("10.0.0.2", now), "separate bucket per address")
	assert.True(t, l.allow("10.0.0.1", now.Add(time.Second)))

	l.allow("10.0.0.3", now.Add(time.Hour))
	assert.Len(t, l.visitors, 1, "idle visitors are evicted")
}
