package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/option-pricing-engine/pkg/models"
)

func TestSimulateGridShape(t *testing.T) {
	sim := NewSimulator(42)
	cfg := models.SimulationConfig{NumPaths: 50, NumSteps: 10, Seed: 42}

	paths := sim.Simulate(100, 1.0, 0.05, 0.2, 0.0, cfg)

	require.Len(t, paths, 50)
	for _, row := range paths {
		require.Len(t, row, 11)
		assert.Equal(t, 100.0, row[0])
	}
}

func TestSimulatePathsArePositive(t *testing.T) {
	sim := NewSimulator(7)
	cfg := models.SimulationConfig{NumPaths: 200, NumSteps: 50, Seed: 7}

	paths := sim.Simulate(100, 2.0, 0.03, 0.4, 0.01, cfg)

	for _, row := range paths {
		for _, p := range row {
			assert.Greater(t, p, 0.0)
		}
	}
}

func TestSimulateReproducibleForSameSeed(t *testing.T) {
	cfg := models.SimulationConfig{NumPaths: 100, NumSteps: 25, Seed: 42}

	first := NewSimulator(42).Simulate(100, 1.0, 0.05, 0.2, 0.0, cfg)
	second := NewSimulator(42).Simulate(100, 1.0, 0.05, 0.2, 0.0, cfg)

	assert.Equal(t, first, second)
}

func TestResetReplaysDrawSequence(t *testing.T) {
	sim := NewSimulator(42)
	cfg := models.SimulationConfig{NumPaths: 100, NumSteps: 25, Seed: 42}

	first := sim.Simulate(100, 1.0, 0.05, 0.2, 0.0, cfg)
	sim.Reset(42)
	second := sim.Simulate(100, 1.0, 0.05, 0.2, 0.0, cfg)

	assert.Equal(t, first, second)
}

func TestDifferentSeedsProduceDifferentPaths(t *testing.T) {
	cfg := models.SimulationConfig{NumPaths: 10, NumSteps: 10, Seed: 1}

	first := NewSimulator(1).Simulate(100, 1.0, 0.05, 0.2, 0.0, cfg)
	second := NewSimulator(2).Simulate(100, 1.0, 0.05, 0.2, 0.0, cfg)

	assert.NotEqual(t, first, second)
}

func TestSimulateZeroMaturityHoldsSpot(t *testing.T) {
	sim := NewSimulator(42)
	cfg := models.SimulationConfig{NumPaths: 20, NumSteps: 5, Seed: 42}

	paths := sim.Simulate(100, 0, 0.05, 0.2, 0.0, cfg)

	for _, row := range paths {
		for _, p := range row {
			assert.Equal(t, 100.0, p)
		}
	}
}
