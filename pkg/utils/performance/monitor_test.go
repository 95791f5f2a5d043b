package performance

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
)

type recorderStub struct {
	mu         sync.Mutex
	memory     []uint64
	goroutines []int
}

func (r *recorderStub) RecordMemoryUsage(bytesUsed uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memory = append(r.memory, bytesUsed)
}

func (r *recorderStub) RecordGoroutineCount(count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.goroutines = append(r.goroutines, count)
}

func (r *recorderStub) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.memory), len(r.goroutines)
}

func TestMonitorCollectsSamples(t *testing.T) {
	recorder := &recorderStub{}
	monitor := NewMonitor(Config{SampleInterval: 5 * time.Millisecond}, recorder)

	require.NoError(t, monitor.Start())
	defer monitor.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if monitor.LatestSample() != nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	sample := monitor.LatestSample()
	require.NotNil(t, sample, "a sample should have been collected")
	assert.Greater(t, sample.HeapAlloc, uint64(0))
	assert.Greater(t, sample.GoroutineCount, 0)

	memCount, goroutineCount := recorder.counts()
	assert.Greater(t, memCount, 0)
	assert.Greater(t, goroutineCount, 0)
}

func TestMonitorBoundsHistory(t *testing.T) {
	monitor := NewMonitor(Config{SampleInterval: time.Millisecond, HistorySize: 3}, nil)

	require.NoError(t, monitor.Start())
	defer monitor.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(monitor.Samples()) >= 3 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(10 * time.Millisecond)
	assert.LessOrEqual(t, len(monitor.Samples()), 3)
}

func TestMonitorRejectsDoubleStart(t *testing.T) {
	monitor := NewMonitor(Config{SampleInterval: time.Hour}, nil)

	require.NoError(t, monitor.Start())
	defer monitor.Stop()

	err := monitor.Start()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.AlreadyExists))
}

func TestMonitorStopWithoutStart(t *testing.T) {
	monitor := NewMonitor(Config{}, nil)

	err := monitor.Stop()
	assert.Error(t, err)
}

func TestMonitorRestarts(t *testing.T) {
	monitor := NewMonitor(Config{SampleInterval: time.Hour}, nil)

	require.NoError(t, monitor.Start())
	require.NoError(t, monitor.Stop())
	require.NoError(t, monitor.Start())
	assert.True(t, monitor.IsRunning())
	require.NoError(t, monitor.Stop())
}
