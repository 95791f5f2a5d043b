package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rzzdr/option-pricing-engine/internal/pricing"
	"github.com/rzzdr/option-pricing-engine/internal/store"
	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

const defaultListLimit = 50

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	pricer         *pricing.BatchEngine
	results        *store.InMemoryResultStore
	maxBatchSize   int
	maxSweepPoints int
	log            *logger.Logger
}

// CreateHandlers creates new API handlers
func CreateHandlers(config Config, pricer *pricing.BatchEngine, results *store.InMemoryResultStore) *Handlers {
	return &Handlers{
		pricer:         pricer,
		results:        results,
		maxBatchSize:   config.MaxBatchSize,
		maxSweepPoints: config.MaxSweepPoints,
		log:            logger.GetLogger("api.handlers"),
	}
}

// HealthCheckHandler handles health check requests
func (h *Handlers) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}

// PriceHandler prices a single option
func (h *Handlers) PriceHandler(c *gin.Context) {
	var req models.PricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid pricing request: %v", err),
		})
		return
	}

	result, err := h.pricer.Price(req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.storeResult(result)
	c.JSON(http.StatusOK, result)
}

// GreeksHandler computes option sensitivities, pricing as a side effect
func (h *Handlers) GreeksHandler(c *gin.Context) {
	var req models.PricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid pricing request: %v", err),
		})
		return
	}

	result, err := h.pricer.Greeks(req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.storeResult(result)
	c.JSON(http.StatusOK, result)
}

// PriceBatchHandler prices a batch of options concurrently
func (h *Handlers) PriceBatchHandler(c *gin.Context) {
	var reqs []models.PricingRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid batch request: %v", err),
		})
		return
	}

	if len(reqs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "At least one pricing request is required",
		})
		return
	}

	if len(reqs) > h.maxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Batch size %d exceeds maximum %d", len(reqs), h.maxBatchSize),
		})
		return
	}

	results, err := h.pricer.PriceAll(c.Request.Context(), reqs)
	if err != nil {
		h.respondError(c, err)
		return
	}

	for _, result := range results {
		h.storeResult(result)
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(results),
		"results": results,
	})
}

// SweepHandler prices an option across a parameter grid
func (h *Handlers) SweepHandler(c *gin.Context) {
	var req models.SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid sweep request: %v", err),
		})
		return
	}

	if req.Points > h.maxSweepPoints {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Sweep of %d points exceeds maximum %d", req.Points, h.maxSweepPoints),
		})
		return
	}

	result, err := h.pricer.Sweep(req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetResultHandler returns a stored pricing result by request ID
func (h *Handlers) GetResultHandler(c *gin.Context) {
	if h.results == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Result store is not enabled",
		})
		return
	}

	result, err := h.results.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListResultsHandler returns recently stored results, newest first
func (h *Handlers) ListResultsHandler(c *gin.Context) {
	if h.results == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Result store is not enabled",
		})
		return
	}

	limit := defaultListLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "limit must be a positive integer",
			})
			return
		}
		limit = parsed
	}

	results := h.results.GetRecent(limit)
	c.JSON(http.StatusOK, gin.H{
		"count":   len(results),
		"results": results,
	})
}

// storeResult keeps a copy of the result for later retrieval and for
// WebSocket replay. Failures are logged, not surfaced to the client.
func (h *Handlers) storeResult(result *models.PricingResult) {
	if h.results == nil {
		return
	}
	if err := h.results.Save(result); err != nil {
		h.log.Warnf("Failed to store result %s: %v", result.RequestID, err)
	}
}

// respondError maps an application error onto an HTTP status
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := statusFromError(err)
	if status >= http.StatusInternalServerError {
		h.log.Errorf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFromError(err error) int {
	switch {
	case errors.IsType(err, errors.InvalidParameter):
		return http.StatusBadRequest
	case errors.IsType(err, errors.Unsupported):
		return http.StatusBadRequest
	case errors.IsType(err, errors.NotFound):
		return http.StatusNotFound
	case errors.IsType(err, errors.NumericDegeneracy):
		return http.StatusUnprocessableEntity
	case errors.IsType(err, errors.ResourceExhausted):
		return http.StatusTooManyRequests
	case errors.IsType(err, errors.Timeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
