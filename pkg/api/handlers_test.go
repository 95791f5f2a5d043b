package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/option-pricing-engine/internal/pricing"
	"github.com/rzzdr/option-pricing-engine/internal/store"
	"github.com/rzzdr/option-pricing-engine/pkg/models"
)

func newTestServer(t *testing.T, config Config) *Server {
	t.Helper()

	pricer := pricing.NewBatchEngine(pricing.BatchConfig{Workers: 2}, nil)
	results := store.NewInMemoryResultStore(100, 0)
	return NewServer(config, pricer, results, nil, nil)
}

func doJSON(t *testing.T, srv *Server, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	srv.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func europeanCall() models.PricingRequest {
	return models.PricingRequest{
		Style:      "european",
		Side:       "call",
		Spot:       100,
		Strike:     100,
		Maturity:   1,
		Rate:       0.05,
		Volatility: 0.2,
	}
}

func TestPriceEndpointReturnsStoredResult(t *testing.T) {
	srv := newTestServer(t, Config{})

	w := doJSON(t, srv, http.MethodPost, "/api/v1/price", europeanCall())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result models.PricingResult
	decode(t, w, &result)
	assert.NotEmpty(t, result.RequestID)
	assert.Greater(t, result.Price, 0.0)

	lookup := doJSON(t, srv, http.MethodGet, "/api/v1/results/"+result.RequestID, nil)
	require.Equal(t, http.StatusOK, lookup.Code)

	var stored models.PricingResult
	decode(t, lookup, &stored)
	assert.Equal(t, result.RequestID, stored.RequestID)
	assert.InDelta(t, result.Price, stored.Price, 1e-12)
}

func TestPriceEndpointRejectsInvalidParameters(t *testing.T) {
	srv := newTestServer(t, Config{})

	req := europeanCall()
	req.Spot = -5

	w := doJSON(t, srv, http.MethodPost, "/api/v1/price", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func TestPriceEndpointRejectsUnknownStyle(t *testing.T) {
	srv := newTestServer(t, Config{})

	req := europeanCall()
	req.Style = "chooser"

	w := doJSON(t, srv, http.MethodPost, "/api/v1/price", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPriceEndpointRejectsMalformedJSON(t *testing.T) {
	srv := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/price", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGreeksEndpointAttachesGreeks(t *testing.T) {
	srv := newTestServer(t, Config{})

	w := doJSON(t, srv, http.MethodPost, "/api/v1/greeks", europeanCall())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result models.PricingResult
	decode(t, w, &result)
	require.NotNil(t, result.Greeks)
	assert.Greater(t, result.Greeks.Delta, 0.0)
}

func TestBatchEndpointPreservesOrder(t *testing.T) {
	srv := newTestServer(t, Config{})

	reqs := make([]models.PricingRequest, 3)
	for i := range reqs {
		reqs[i] = europeanCall()
		reqs[i].ID = fmt.Sprintf("batch-%d", i)
	}

	w := doJSON(t, srv, http.MethodPost, "/api/v1/price/batch", reqs)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Count   int                    `json:"count"`
		Results []models.PricingResult `json:"results"`
	}
	decode(t, w, &resp)
	require.Equal(t, 3, resp.Count)
	for i, result := range resp.Results {
		assert.Equal(t, fmt.Sprintf("batch-%d", i), result.RequestID)
	}
}

func TestBatchEndpointCapsSize(t *testing.T) {
	srv := newTestServer(t, Config{MaxBatchSize: 2})

	reqs := []models.PricingRequest{europeanCall(), europeanCall(), europeanCall()}

	w := doJSON(t, srv, http.MethodPost, "/api/v1/price/batch", reqs)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "exceeds maximum")
}

func TestBatchEndpointRejectsEmptyBatch(t *testing.T) {
	srv := newTestServer(t, Config{})

	w := doJSON(t, srv, http.MethodPost, "/api/v1/price/batch", []models.PricingRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSweepEndpointReturnsGrid(t *testing.T) {
	srv := newTestServer(t, Config{})

	req := models.SweepRequest{
		Request:   europeanCall(),
		Parameter: models.SweepSpot,
		Min:       80,
		Max:       120,
		Points:    5,
	}

	w := doJSON(t, srv, http.MethodPost, "/api/v1/sweep", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result models.SweepResult
	decode(t, w, &result)
	require.Len(t, result.Points, 5)
	assert.InDelta(t, 80, result.Points[0].Value, 1e-12)
	assert.InDelta(t, 120, result.Points[4].Value, 1e-12)
}

func TestSweepEndpointCapsPoints(t *testing.T) {
	srv := newTestServer(t, Config{MaxSweepPoints: 4})

	req := models.SweepRequest{
		Request:   europeanCall(),
		Parameter: models.SweepSpot,
		Min:       80,
		Max:       120,
		Points:    5,
	}

	w := doJSON(t, srv, http.MethodPost, "/api/v1/sweep", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "exceeds maximum")
}

func TestGetResultReturns404ForUnknownID(t *testing.T) {
	srv := newTestServer(t, Config{})

	w := doJSON(t, srv, http.MethodGet, "/api/v1/results/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListResultsHonorsLimit(t *testing.T) {
	srv := newTestServer(t, Config{})

	for i := 0; i < 3; i++ {
		req := europeanCall()
		req.ID = fmt.Sprintf("list-%d", i)
		w := doJSON(t, srv, http.MethodPost, "/api/v1/price", req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doJSON(t, srv, http.MethodGet, "/api/v1/results?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count   int                    `json:"count"`
		Results []models.PricingResult `json:"results"`
	}
	decode(t, w, &resp)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "list-2", resp.Results[0].RequestID, "newest result comes first")
}

func TestListResultsRejectsBadLimit(t *testing.T) {
	srv := newTestServer(t, Config{})

	w := doJSON(t, srv, http.MethodGet, "/api/v1/results?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, Config{})

	w := doJSON(t, srv, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestMetricsEndpointServes(t *testing.T) {
	srv := newTestServer(t, Config{})

	w := doJSON(t, srv, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	srv := newTestServer(t, Config{
		CORS: CORSConfig{AllowedOrigins: []string{"https://desk.example.com"}},
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/price", nil)
	req.Header.Set("Origin", "https://desk.example.com")
	w := httptest.NewRecorder()
	srv.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://desk.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSIgnoresUnknownOrigin(t *testing.T) {
	srv := newTestServer(t, Config{
		CORS: CORSConfig{AllowedOrigins: []string{"https://desk.example.com"}},
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/price", nil)
	req.Header.Set("Origin", "https://elsewhere.example.com")
	w := httptest.NewRecorder()
	srv.engine.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWildcardOrigin(t *testing.T) {
	srv := newTestServer(t, Config{
		CORS: CORSConfig{AllowedOrigins: []string{"*"}},
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/price", nil)
	req.Header.Set("Origin", "https://anywhere.example.com")
	w := httptest.NewRecorder()
	srv.engine.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitMiddlewareRejectsOverBudget(t *testing.T) {
	srv := newTestServer(t, Config{
		RateLimit: RateLimitConfig{Enabled: true, Rate: 0.001, Burst: 2},
	})

	for i := 0; i < 2; i++ {
		w := doJSON(t, srv, http.MethodGet, "/health", nil)
		require.Equal(t, http.StatusOK, w.Code, "request %d within burst", i)
	}

	w := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
