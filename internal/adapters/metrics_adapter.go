package adapters

import (
	"time"

	"github.com/rzzdr/option-pricing-engine/internal/pricing"
	"github.com/rzzdr/option-pricing-engine/pkg/metrics"
)

// MetricsAdapter adapts *metrics.Recorder to satisfy the MetricsRecorder
// interface that the pricing engine expects
type MetricsAdapter struct {
	recorder *metrics.Recorder
}

var _ pricing.MetricsRecorder = (*MetricsAdapter)(nil) // Ensure MetricsAdapter implements pricing.MetricsRecorder

// NewMetricsAdapter creates a new MetricsAdapter
func NewMetricsAdapter(recorder *metrics.Recorder) *MetricsAdapter {
	return &MetricsAdapter{
		recorder: recorder,
	}
}

// RecordPricing implements pricing.MetricsRecorder
func (a *MetricsAdapter) RecordPricing(style, side, status string, duration time.Duration) {
	if a.recorder != nil {
		a.recorder.RecordPricing(style, side, status, duration)
	}
}

// RecordGreeks implements pricing.MetricsRecorder
func (a *MetricsAdapter) RecordGreeks(style string, duration time.Duration) {
	if a.recorder != nil {
		a.recorder.RecordGreeks(style, duration)
	}
}

// RecordSimulationPaths implements pricing.MetricsRecorder
func (a *MetricsAdapter) RecordSimulationPaths(style string, numPaths int) {
	if a.recorder != nil {
		a.recorder.RecordSimulationPaths(style, numPaths)
	}
}

// RecordSweep implements pricing.MetricsRecorder
func (a *MetricsAdapter) RecordSweep(parameter string, points int, duration time.Duration) {
	if a.recorder != nil {
		a.recorder.RecordSweep(parameter, points, duration)
	}
}

// RecordBatch implements pricing.MetricsRecorder
func (a *MetricsAdapter) RecordBatch(size int, duration time.Duration) {
	if a.recorder != nil {
		a.recorder.RecordBatch(size, duration)
	}
}

// AddActiveWorkers implements pricing.MetricsRecorder
func (a *MetricsAdapter) AddActiveWorkers(delta int) {
	if a.recorder != nil {
		a.recorder.AddActiveWorkers(delta)
	}
}
