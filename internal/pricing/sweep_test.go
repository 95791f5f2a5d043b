package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
)

func sweepBase() models.PricingRequest {
	return models.PricingRequest{
		Style: models.StyleEuropean, Side: models.SideCall,
		Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 0.2,
	}
}

func TestSweepSpotGrid(t *testing.T) {
	engine := newTestEngine()
	result, err := engine.Sweep(models.SweepRequest{
		Request:   sweepBase(),
		Parameter: models.SweepSpot,
		Min:       80,
		Max:       120,
		Points:    5,
	})
	require.NoError(t, err)
	require.Len(t, result.Points, 5)

	assert.InDelta(t, 80.0, result.Points[0].Value, 1e-9)
	assert.InDelta(t, 90.0, result.Points[1].Value, 1e-9)
	assert.InDelta(t, 100.0, result.Points[2].Value, 1e-9)
	assert.InDelta(t, 120.0, result.Points[4].Value, 1e-9)

	for i := 1; i < len(result.Points); i++ {
		assert.Greater(t, result.Points[i].Price, result.Points[i-1].Price,
			"call price must increase with spot")
	}

	assert.NotEmpty(t, result.RequestID)
	assert.Equal(t, models.SweepSpot, result.Parameter)
	assert.False(t, result.ComputedAt.IsZero())
}

func TestSweepVolatilityOnMonteCarloPricer(t *testing.T) {
	engine := newTestEngine()
	base := sweepBase()
	base.Style = models.StyleAsian
	base.NumPaths = 2000
	base.NumSteps = 20
	base.Seed = 42

	result, err := engine.Sweep(models.SweepRequest{
		Request:   base,
		Parameter: models.SweepVolatility,
		Min:       0.1,
		Max:       0.4,
		Points:    4,
	})
	require.NoError(t, err)
	require.Len(t, result.Points, 4)

	// Every point reuses the base seed, so the curve varies only in vol
	// and the widest spread dominates the sampling noise by far.
	first := result.Points[0].Price
	last := result.Points[3].Price
	assert.Greater(t, first, 0.0)
	assert.Greater(t, last, first)
}

func TestSweepAttachesGreeksWhenRequested(t *testing.T) {
	engine := newTestEngine()
	base := sweepBase()
	base.Side = models.SidePut
	base.ComputeGreeks = true

	result, err := engine.Sweep(models.SweepRequest{
		Request:   base,
		Parameter: models.SweepStrike,
		Min:       90,
		Max:       110,
		Points:    3,
	})
	require.NoError(t, err)

	for _, p := range result.Points {
		require.NotNil(t, p.Greeks)
		assert.Less(t, p.Greeks.Delta, 0.0)
	}
}

func TestSweepRejectsTooFewPoints(t *testing.T) {
	engine := newTestEngine()
	_, err := engine.Sweep(models.SweepRequest{
		Request:   sweepBase(),
		Parameter: models.SweepSpot,
		Min:       80,
		Max:       120,
		Points:    1,
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.InvalidParameter))
}

func TestSweepRejectsEmptyRange(t *testing.T) {
	engine := newTestEngine()
	_, err := engine.Sweep(models.SweepRequest{
		Request:   sweepBase(),
		Parameter: models.SweepSpot,
		Min:       100,
		Max:       100,
		Points:    3,
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.InvalidParameter))
}

func TestSweepRejectsUnknownParameter(t *testing.T) {
	engine := newTestEngine()
	result, err := engine.Sweep(models.SweepRequest{
		Request:   sweepBase(),
		Parameter: "moneyness",
		Min:       0.8,
		Max:       1.2,
		Points:    3,
	})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.IsType(err, errors.Unsupported))
	assert.Contains(t, err.Error(), "moneyness")
}

func TestSweepAbortsOnFirstInvalidPoint(t *testing.T) {
	engine := newTestEngine()
	result, err := engine.Sweep(models.SweepRequest{
		Request:   sweepBase(),
		Parameter: models.SweepSpot,
		Min:       -10,
		Max:       10,
		Points:    3,
	})
	require.Error(t, err)
	assert.Nil(t, result, "no partial curve on failure")
	assert.True(t, errors.IsType(err, errors.InvalidParameter))
}
