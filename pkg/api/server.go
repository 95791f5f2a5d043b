package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rzzdr/option-pricing-engine/internal/pricing"
	"github.com/rzzdr/option-pricing-engine/internal/store"
	"github.com/rzzdr/option-pricing-engine/internal/websocket"
	"github.com/rzzdr/option-pricing-engine/pkg/metrics"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

// Sweeps and batches share a service-wide window on top of the
// per-client budget.
const (
	heavyEndpointLimit  = 120
	heavyEndpointWindow = time.Minute
)

// RateLimitConfig controls the per-client request budget
type RateLimitConfig struct {
	Enabled bool
	Rate    float64
	Burst   int
}

// CORSConfig controls cross-origin behavior. An empty origins list
// disables CORS handling entirely.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Config holds the configuration for the API server
type Config struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	CORS           CORSConfig
	RateLimit      RateLimitConfig
	MaxBatchSize   int
	MaxSweepPoints int
}

// Server represents the API server
type Server struct {
	config     Config
	engine     *gin.Engine
	httpServer *http.Server
	handlers   *Handlers
	hub        *websocket.Hub
	recorder   *metrics.Recorder
	log        *logger.Logger
}

// NewServer creates a new API server. The hub and recorder may be nil,
// disabling the /ws route and API metrics respectively.
func NewServer(config Config, pricer *pricing.BatchEngine, results *store.InMemoryResultStore, hub *websocket.Hub, recorder *metrics.Recorder) *Server {
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 10 * time.Second
	}
	// Large Monte Carlo batches can hold a response open for a while
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 30 * time.Second
	}
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = 256
	}
	if config.MaxSweepPoints <= 0 {
		config.MaxSweepPoints = 1000
	}

	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:   config,
		engine:   gin.New(),
		handlers: CreateHandlers(config, pricer, results),
		hub:      hub,
		recorder: recorder,
		log:      logger.GetLogger("api.server"),
	}

	server.setupRoutes()
	return server
}

// Start starts the API server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.log.Infof("Starting API server on %s", addr)

	return s.httpServer.ListenAndServe()
}

// Stop stops the API server gracefully
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		s.log.Info("Stopping API server")
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.engine.Use(LoggingMiddleware())
	s.engine.Use(ErrorMiddleware())
	if s.recorder != nil {
		s.engine.Use(MetricsMiddleware(s.recorder))
	}
	if len(s.config.CORS.AllowedOrigins) > 0 {
		s.engine.Use(CORSMiddleware(s.config.CORS))
	}
	if s.config.RateLimit.Enabled {
		s.engine.Use(RateLimitMiddleware(s.config.RateLimit))
	}

	s.engine.GET("/health", s.handlers.HealthCheckHandler)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if s.hub != nil {
		s.engine.GET("/ws", func(c *gin.Context) {
			s.hub.HandleWebSocket(c.Writer, c.Request)
		})
	}

	v1 := s.engine.Group("/api/v1")
	{
		v1.POST("/price", s.handlers.PriceHandler)
		v1.POST("/greeks", s.handlers.GreeksHandler)
		v1.GET("/results", s.handlers.ListResultsHandler)
		v1.GET("/results/:id", s.handlers.GetResultHandler)

		heavy := v1.Group("")
		if s.config.RateLimit.Enabled {
			heavy.Use(WindowLimitMiddleware(heavyEndpointLimit, heavyEndpointWindow))
		}
		heavy.POST("/price/batch", s.handlers.PriceBatchHandler)
		heavy.POST("/sweep", s.handlers.SweepHandler)
	}
}
