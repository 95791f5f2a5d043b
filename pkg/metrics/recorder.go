package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder handles metrics recording and exposure
type Recorder struct {
	// API metrics
	apiRequestCounter   *prometheus.CounterVec
	apiLatencyHistogram *prometheus.HistogramVec

	// Pricing metrics
	pricingCounter       *prometheus.CounterVec
	pricingLatency       *prometheus.HistogramVec
	greeksCounter        *prometheus.CounterVec
	greeksLatency        *prometheus.HistogramVec
	simulatedPathCounter *prometheus.CounterVec

	// Sweep and batch metrics
	sweepCounter         *prometheus.CounterVec
	sweepLatency         *prometheus.HistogramVec
	sweepPointsHistogram prometheus.Histogram
	batchSizeHistogram   prometheus.Histogram
	batchLatency         prometheus.Histogram
	activeWorkersGauge   prometheus.Gauge

	// Kafka metrics
	kafkaMessageCounter *prometheus.CounterVec
	kafkaLagGauge       *prometheus.GaugeVec

	// Streaming and storage metrics
	websocketClientsGauge prometheus.Gauge
	resultStoreSizeGauge  prometheus.Gauge

	// System metrics
	memoryUsageGauge    prometheus.Gauge
	goroutineCountGauge prometheus.Gauge
}

// NewRecorder creates a new metrics recorder
func NewRecorder() *Recorder {
	// Create and register all metrics
	return &Recorder{
		// API metrics
		apiRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ope_api_requests_total",
				Help: "The total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		apiLatencyHistogram: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ope_api_latency_seconds",
				Help:    "API request latency distribution",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // From 1ms to ~16s
			},
			[]string{"method", "path"},
		),

		// Pricing metrics
		pricingCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ope_pricing_requests_total",
				Help: "The total number of pricing requests",
			},
			[]string{"style", "side", "status"},
		),
		pricingLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ope_pricing_latency_seconds",
				Help:    "Pricing latency distribution",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // From 1ms to ~16s
			},
			[]string{"style"},
		),
		greeksCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ope_greeks_computations_total",
				Help: "The total number of Greeks computations",
			},
			[]string{"style"},
		),
		greeksLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ope_greeks_latency_seconds",
				Help:    "Greeks computation latency distribution",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
			},
			[]string{"style"},
		),
		simulatedPathCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ope_simulated_paths_total",
				Help: "The total number of Monte Carlo paths simulated",
			},
			[]string{"style"},
		),

		// Sweep and batch metrics
		sweepCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ope_sweeps_total",
				Help: "The total number of parameter sweeps",
			},
			[]string{"parameter"},
		),
		sweepLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ope_sweep_latency_seconds",
				Help:    "Parameter sweep latency distribution",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // From 10ms to ~40s
			},
			[]string{"parameter"},
		),
		sweepPointsHistogram: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ope_sweep_points",
				Help:    "Grid size distribution of parameter sweeps",
				Buckets: prometheus.ExponentialBuckets(2, 2, 10), // From 2 to 1024
			},
		),
		batchSizeHistogram: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ope_batch_size",
				Help:    "Request count distribution of pricing batches",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10), // From 1 to 512
			},
		),
		batchLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ope_batch_latency_seconds",
				Help:    "Pricing batch latency distribution",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		activeWorkersGauge: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ope_worker_pool_active",
				Help: "Number of pricing engines currently borrowed from the pool",
			},
		),

		// Kafka metrics
		kafkaMessageCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ope_kafka_messages_total",
				Help: "The total number of Kafka messages handled",
			},
			[]string{"topic", "status"},
		),
		kafkaLagGauge: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ope_kafka_consumer_lag",
				Help: "Kafka consumer lag (messages)",
			},
			[]string{"topic", "group_id"},
		),

		// Streaming and storage metrics
		websocketClientsGauge: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ope_websocket_clients",
				Help: "Number of connected websocket clients",
			},
		),
		resultStoreSizeGauge: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ope_result_store_size",
				Help: "Number of results held in the in-memory store",
			},
		),

		// System metrics
		memoryUsageGauge: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ope_memory_usage_bytes",
				Help: "Memory usage of the application in bytes",
			},
		),
		goroutineCountGauge: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ope_goroutine_count",
				Help: "Number of goroutines",
			},
		),
	}
}

// RecordAPIRequest records metrics for an API request
func (r *Recorder) RecordAPIRequest(method, path string, status int, latency time.Duration) {
	r.apiRequestCounter.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.apiLatencyHistogram.WithLabelValues(method, path).Observe(latency.Seconds())
}

// RecordPricing records metrics for a pricing request
func (r *Recorder) RecordPricing(style, side, status string, duration time.Duration) {
	r.pricingCounter.WithLabelValues(style, side, status).Inc()
	r.pricingLatency.WithLabelValues(style).Observe(duration.Seconds())
}

// RecordGreeks records metrics for a Greeks computation
func (r *Recorder) RecordGreeks(style string, duration time.Duration) {
	r.greeksCounter.WithLabelValues(style).Inc()
	r.greeksLatency.WithLabelValues(style).Observe(duration.Seconds())
}

// RecordSimulationPaths records the number of Monte Carlo paths simulated
func (r *Recorder) RecordSimulationPaths(style string, numPaths int) {
	r.simulatedPathCounter.WithLabelValues(style).Add(float64(numPaths))
}

// RecordSweep records metrics for a parameter sweep
func (r *Recorder) RecordSweep(parameter string, points int, duration time.Duration) {
	r.sweepCounter.WithLabelValues(parameter).Inc()
	r.sweepLatency.WithLabelValues(parameter).Observe(duration.Seconds())
	r.sweepPointsHistogram.Observe(float64(points))
}

// RecordBatch records metrics for a pricing batch
func (r *Recorder) RecordBatch(size int, duration time.Duration) {
	r.batchSizeHistogram.Observe(float64(size))
	r.batchLatency.Observe(duration.Seconds())
}

// AddActiveWorkers adjusts the count of engines currently pricing
func (r *Recorder) AddActiveWorkers(delta int) {
	r.activeWorkersGauge.Add(float64(delta))
}

// RecordKafkaMessage records a handled Kafka message
func (r *Recorder) RecordKafkaMessage(topic, status string) {
	r.kafkaMessageCounter.WithLabelValues(topic, status).Inc()
}

// RecordKafkaLag records the current consumer lag for a topic
func (r *Recorder) RecordKafkaLag(topic, groupID string, lag int64) {
	r.kafkaLagGauge.WithLabelValues(topic, groupID).Set(float64(lag))
}

// SetWebsocketClients records the current number of websocket clients
func (r *Recorder) SetWebsocketClients(count int) {
	r.websocketClientsGauge.Set(float64(count))
}

// SetResultStoreSize records the current size of the result store
func (r *Recorder) SetResultStoreSize(size int) {
	r.resultStoreSizeGauge.Set(float64(size))
}

// RecordMemoryUsage records the current memory usage
func (r *Recorder) RecordMemoryUsage(bytesUsed uint64) {
	r.memoryUsageGauge.Set(float64(bytesUsed))
}

// RecordGoroutineCount records the current number of goroutines
func (r *Recorder) RecordGoroutineCount(count int) {
	r.goroutineCountGauge.Set(float64(count))
}
