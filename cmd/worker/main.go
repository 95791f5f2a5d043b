package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rzzdr/option-pricing-engine/config"
	"github.com/rzzdr/option-pricing-engine/internal/adapters"
	"github.com/rzzdr/option-pricing-engine/internal/kafka"
	"github.com/rzzdr/option-pricing-engine/internal/pricing"
	"github.com/rzzdr/option-pricing-engine/internal/worker"
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
		logger.GetLogger("worker.main").Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.App.LogLevel, cfg.App.Environment)

	log := logger.GetLogger("worker.main")
	log.Info("Starting Option Pricing Engine Worker")

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

	kafkaClient, err := kafka.NewClient(kafkaConfig(cfg))
	if err != nil {
		log.Fatalf("Failed to create Kafka client: %v", err)
	}

	// Best effort; brokers may auto-create or deny topic administration
	topicCtx, topicCancel := context.WithTimeout(ctx, 30*time.Second)
	for _, topic := range []string{cfg.Kafka.Topics.PricingRequests, cfg.Kafka.Topics.PricingResults} {
		if err := kafkaClient.EnsureTopicExists(topicCtx, topic, 3, 1); err != nil {
			log.Warnf("Could not ensure topic %s exists: %v", topic, err)
		}
	}
	topicCancel()

	pricingWorker := worker.NewWorker(
		kafkaClient,
		worker.Config{
			RequestTopic: cfg.Kafka.Topics.PricingRequests,
			ResultTopic:  cfg.Kafka.Topics.PricingResults,
			GroupID:      cfg.Kafka.Consumer.GroupID,
		},
		pricer,
		nil, // results are stored by the consumers of the result topic
		nil,
		recorder,
	)
	if err := pricingWorker.Start(ctx); err != nil {
		log.Fatalf("Failed to start pricing worker: %v", err)
	}

	monitor := performance.NewMonitor(performance.Config{
		SampleInterval: cfg.Metrics.Interval,
	}, recorder)
	if err := monitor.Start(); err != nil {
		log.Errorf("Failed to start runtime monitor: %v", err)
	}

	var promServer *metrics.PrometheusServer
	if cfg.Metrics.Prometheus.Enabled {
		promServer = metrics.NewPrometheusServer(cfg.Metrics.Prometheus.Port)
		go func() {
			if err := promServer.Start(); err != nil {
				log.Errorf("Prometheus server error: %v", err)
			}
		}()
	}

	log.Info("Pricing worker started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Infof("Received signal %v, initiating shutdown", sig)

	if err := pricingWorker.Stop(); err != nil {
		log.Errorf("Pricing worker shutdown error: %v", err)
	}

	if err := monitor.Stop(); err != nil {
		log.Errorf("Runtime monitor shutdown error: %v", err)
	}

	if promServer != nil {
		if err := promServer.Stop(); err != nil {
			log.Errorf("Prometheus server shutdown error: %v", err)
		}
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
