package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rzzdr/option-pricing-engine/config"
	"github.com/rzzdr/option-pricing-engine/internal/adapters"
	"github.com/rzzdr/option-pricing-engine/internal/kafka"
	"github.com/rzzdr/option-pricing-engine/internal/pricing"
	"github.com/rzzdr/option-pricing-engine/internal/store"
	"github.com/rzzdr/option-pricing-engine/internal/websocket"
	"github.com/rzzdr/option-pricing-engine/internal/worker"
	"github.com/rzzdr/option-pricing-engine/pkg/api"
	"github.com/rzzdr/option-pricing-engine/pkg/metrics"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/performance"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.GetLogger("api.main").Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.App.LogLevel, cfg.App.Environment)

	log := logger.GetLogger("api.main")
	log.Info("Starting Option Pricing Engine API Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder := metrics.NewRecorder()
	metricsAdapter := adapters.NewMetricsAdapter(recorder)

	pricer := pricing.NewBatchEngine(pricing.BatchConfig{
		Workers: cfg.Pricing.Workers,
		Engine: pricing.EngineConfig{
			RegressionDegree: cfg.Pricing.RegressionDegree,
		},
	}, metricsAdapter)

	resultStore := store.NewInMemoryResultStore(cfg.Store.Capacity, cfg.Store.TTL)

	hub := websocket.NewHub(websocket.Config{
		ReadBufferSize:  cfg.Websocket.ReadBufferSize,
		WriteBufferSize: cfg.Websocket.WriteBufferSize,
		MaxMessageSize:  cfg.Websocket.MaxMessageSize,
		WriteWait:       cfg.Websocket.WriteWait,
		PongWait:        cfg.Websocket.PongWait,
	}, resultStore, recorder)
	go hub.Run(ctx)

	// Results priced by remote workers flow back in through Kafka
	kafkaClient, err := kafka.NewClient(kafkaConfig(cfg))
	if err != nil {
		log.Fatalf("Failed to create Kafka client: %v", err)
	}

	ingest := worker.NewResultIngest(
		kafkaClient,
		worker.IngestConfig{ResultTopic: cfg.Kafka.Topics.PricingResults},
		resultStore,
		hub,
		recorder,
	)
	if err := ingest.Start(ctx); err != nil {
		log.Fatalf("Failed to start result ingest: %v", err)
	}

	monitor := performance.NewMonitor(performance.Config{
		SampleInterval: cfg.Metrics.Interval,
	}, recorder)
	if err := monitor.Start(); err != nil {
		log.Errorf("Failed to start runtime monitor: %v", err)
	}

	apiServer := api.NewServer(
		api.Config{
			Host:         cfg.API.Host,
			Port:         cfg.API.Port,
			ReadTimeout:  cfg.API.ReadTimeout,
			WriteTimeout: cfg.API.WriteTimeout,
			CORS: api.CORSConfig{
				AllowedOrigins: cfg.API.CORS.AllowedOrigins,
				AllowedMethods: cfg.API.CORS.AllowedMethods,
				AllowedHeaders: cfg.API.CORS.AllowedHeaders,
			},
			RateLimit: api.RateLimitConfig{
				Enabled: cfg.API.RateLimit.Enabled,
				Rate:    cfg.API.RateLimit.Rate,
				Burst:   cfg.API.RateLimit.Burst,
			},
			MaxBatchSize:   cfg.Pricing.MaxBatchSize,
			MaxSweepPoints: cfg.Pricing.MaxSweepPoints,
		},
		pricer,
		resultStore,
		hub,
		recorder,
	)

	go func() {
		if err := apiServer.Start(); err != nil && err != http.ErrServerClosed {
			log.Errorf("API server error: %v", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Infof("Received signal %v, initiating shutdown", sig)
	case <-ctx.Done():
		log.Info("Context canceled, initiating shutdown")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		log.Errorf("API server shutdown error: %v", err)
	}

	ingest.Stop()

	if err := monitor.Stop(); err != nil {
		log.Errorf("Runtime monitor shutdown error: %v", err)
	}

	if err := kafkaClient.Close(); err != nil {
		log.Errorf("Kafka client shutdown error: %v", err)
	}

	log.Info("Shutdown complete")
}

func kafkaConfig(cfg *config.Config) *kafka.Config {
	return &kafka.Config{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.Consumer.GroupID,
		StartOffset:    cfg.Kafka.Consumer.StartOffset,
		MinBytes:       cfg.Kafka.Consumer.MinBytes,
		MaxBytes:       cfg.Kafka.Consumer.MaxBytes,
		MaxWait:        cfg.Kafka.Consumer.MaxWait,
		CommitInterval: cfg.Kafka.Consumer.CommitInterval,
		RequiredAcks:   cfg.Kafka.Producer.RequiredAcks,
		Compression:    cfg.Kafka.Producer.Compression,
		BatchSize:      cfg.Kafka.Producer.BatchSize,
		BatchTimeout:   cfg.Kafka.Producer.BatchTimeout,
		MaxAttempts:    cfg.Kafka.Producer.MaxAttempts,
	}
}
