// Package performance provides runtime health monitoring for the
// pricing services.
package performance

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

// MetricsRecorder receives runtime gauges on every sample
type MetricsRecorder interface {
	RecordMemoryUsage(bytesUsed uint64)
	RecordGoroutineCount(count int)
}

// Sample is a point-in-time snapshot of runtime health
type Sample struct {
	Timestamp      time.Time     `json:"timestamp"`
	HeapAlloc      uint64        `json:"heap_alloc"`
	TotalAlloc     uint64        `json:"total_alloc"`
	GoroutineCount int           `json:"goroutine_count"`
	GCPauseTotal   time.Duration `json:"gc_pause_total"`
	NumGC          uint32        `json:"num_gc"`
}

// Config holds configuration for the monitor
type Config struct {
	SampleInterval time.Duration
	HistorySize    int
}

// Monitor periodically samples runtime statistics, keeps a bounded
// history, and forwards gauges to the metrics recorder. The recorder
// may be nil, in which case only the history is kept.
type Monitor struct {
	config   Config
	recorder MetricsRecorder
	samples  []Sample
	running  int64
	done     chan struct{}
	mu       sync.RWMutex
	log      *logger.Logger
}

// NewMonitor creates a runtime monitor
func NewMonitor(config Config, recorder MetricsRecorder) *Monitor {
	if config.SampleInterval <= 0 {
		config.SampleInterval = 15 * time.Second
	}
	if config.HistorySize <= 0 {
		config.HistorySize = 240
	}

	return &Monitor{
		config:   config,
		recorder: recorder,
		samples:  make([]Sample, 0, config.HistorySize),
		log:      logger.GetLogger("performance.monitor"),
	}
}

// Start begins sampling until Stop is called
func (m *Monitor) Start() error {
	if !atomic.CompareAndSwapInt64(&m.running, 0, 1) {
		return errors.AlreadyExistsError("monitor is already running")
	}

	m.done = make(chan struct{})
	go m.sampleLoop(m.done)

	m.log.Infof("Runtime monitor started, sampling every %v", m.config.SampleInterval)
	return nil
}

// Stop stops sampling
func (m *Monitor) Stop() error {
	if !atomic.CompareAndSwapInt64(&m.running, 1, 0) {
		return errors.InvalidParameterError("monitor is not running")
	}

	close(m.done)
	m.log.Info("Runtime monitor stopped")
	return nil
}

// IsRunning returns true while the monitor is sampling
func (m *Monitor) IsRunning() bool {
	return atomic.LoadInt64(&m.running) == 1
}

// Samples returns a copy of the collected history, oldest first
func (m *Monitor) Samples() []Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()

	samples := make([]Sample, len(m.samples))
	copy(samples, m.samples)
	return samples
}

// LatestSample returns the most recent sample, or nil before the first
// tick fires
func (m *Monitor) LatestSample() *Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.samples) == 0 {
		return nil
	}
	sample := m.samples[len(m.samples)-1]
	return &sample
}

func (m *Monitor) sampleLoop(done chan struct{}) {
	ticker := time.NewTicker(m.config.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.collect()
		case <-done:
			return
		}
	}
}

// collect takes one sample and pushes it to the recorder
func (m *Monitor) collect() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	sample := Sample{
		Timestamp:      time.Now(),
		HeapAlloc:      stats.HeapAlloc,
		TotalAlloc:     stats.TotalAlloc,
		GoroutineCount: runtime.NumGoroutine(),
		GCPauseTotal:   time.Duration(stats.PauseTotalNs),
		NumGC:          stats.NumGC,
	}

	m.mu.Lock()
	m.samples = append(m.samples, sample)
	if len(m.samples) > m.config.HistorySize {
		m.samples = m.samples[len(m.samples)-m.config.HistorySize:]
	}
	m.mu.Unlock()

	if m.recorder != nil {
		m.recorder.RecordMemoryUsage(sample.HeapAlloc)
		m.recorder.RecordGoroutineCount(sample.GoroutineCount)
	}
}
