package pricing

import (
	"context"
	"fmt"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
)

func TestBatchPriceAllPreservesOrder(t *testing.T) {
	batch := NewBatchEngine(BatchConfig{Workers: 4}, nil)

	reqs := make([]models.PricingRequest, 8)
	for i := range reqs {
		reqs[i] = models.PricingRequest{
			ID:    fmt.Sprintf("req-%d", i),
			Style: models.StyleEuropean, Side: models.SideCall,
			Spot: 100, Strike: 90 + float64(i*5), Maturity: 1, Rate: 0.05, Volatility: 0.2,
		}
	}

	results, err := batch.PriceAll(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, results, len(reqs))

	for i, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, fmt.Sprintf("req-%d", i), res.RequestID)
	}
	for i := 1; i < len(results); i++ {
		assert.Less(t, results[i].Price, results[i-1].Price,
			"raising the strike must cheapen the call")
	}
}

func TestBatchMatchesSingleEngine(t *testing.T) {
	reqs := []models.PricingRequest{
		{
			Style: models.StyleAsian, Side: models.SideCall,
			Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 0.2,
			NumPaths: 1000, NumSteps: 20, Seed: 1,
		},
		{
			Style: models.StyleAmerican, Side: models.SidePut,
			Spot: 100, Strike: 110, Maturity: 1, Rate: 0.05, Volatility: 0.3,
			NumPaths: 1000, NumSteps: 20, Seed: 2,
		},
		{
			Style: models.StyleBarrier, Side: models.SideCall,
			Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 0.2,
			NumPaths: 1000, NumSteps: 20, Seed: 3,
			BarrierKind: models.BarrierUpAndOut, BarrierLevel: 140,
		},
		{
			Style: models.StyleAsian, Side: models.SidePut,
			Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 0.2,
			NumPaths: 1000, NumSteps: 20, Seed: 1,
			AveragingMethod: models.AveragingGeometric,
		},
	}

	batch := NewBatchEngine(BatchConfig{Workers: 4}, nil)
	batchResults, err := batch.PriceAll(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, batchResults, len(reqs))

	engine := newTestEngine()
	for i, req := range reqs {
		single, err := engine.Price(req)
		require.NoError(t, err)
		assert.Equal(t, single.Price, batchResults[i].Price,
			"pooled engines must not perturb the seeded stream of request %d", i)
	}
}

func TestBatchRepeatedRunsAreIdentical(t *testing.T) {
	reqs := []models.PricingRequest{
		{
			Style: models.StyleAsian, Side: models.SideCall,
			Spot: 100, Strike: 105, Maturity: 0.5, Rate: 0.05, Volatility: 0.25,
			NumPaths: 1000, NumSteps: 20, Seed: 11,
		},
		{
			Style: models.StyleAmerican, Side: models.SidePut,
			Spot: 100, Strike: 105, Maturity: 0.5, Rate: 0.05, Volatility: 0.25,
			NumPaths: 1000, NumSteps: 20, Seed: 12,
		},
	}

	batch := NewBatchEngine(BatchConfig{Workers: 2}, nil)
	first, err := batch.PriceAll(context.Background(), reqs)
	require.NoError(t, err)
	second, err := batch.PriceAll(context.Background(), reqs)
	require.NoError(t, err)

	for i := range reqs {
		assert.Equal(t, first[i].Price, second[i].Price)
	}
}

func TestBatchFirstErrorAborts(t *testing.T) {
	batch := NewBatchEngine(BatchConfig{Workers: 2}, nil)

	reqs := []models.PricingRequest{
		{
			Style: models.StyleEuropean, Side: models.SideCall,
			Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 0.2,
		},
		{
			Style: models.StyleEuropean, Side: models.SideCall,
			Spot: -1, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 0.2,
		},
		{
			Style: models.StyleEuropean, Side: models.SidePut,
			Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 0.2,
		},
	}

	results, err := batch.PriceAll(context.Background(), reqs)
	require.Error(t, err)
	assert.Nil(t, results)
	assert.True(t, errors.IsType(err, errors.InvalidParameter))
}

func TestBatchRespectsCancelledContext(t *testing.T) {
	batch := NewBatchEngine(BatchConfig{Workers: 2}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reqs := []models.PricingRequest{
		{
			Style: models.StyleEuropean, Side: models.SideCall,
			Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 0.2,
		},
	}

	results, err := batch.PriceAll(ctx, reqs)
	require.Error(t, err)
	assert.Nil(t, results)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatchZeroWorkersDefaultsToCPUCount(t *testing.T) {
	batch := NewBatchEngine(BatchConfig{}, nil)
	assert.Equal(t, runtime.NumCPU(), batch.workers)

	results, err := batch.PriceAll(context.Background(), []models.PricingRequest{
		{
			Style: models.StyleEuropean, Side: models.SideCall,
			Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 0.2,
		},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestBatchRecordsPoolActivity(t *testing.T) {
	rec := &recorderStub{}
	batch := NewBatchEngine(BatchConfig{Workers: 1}, rec)

	reqs := []models.PricingRequest{
		{
			Style: models.StyleEuropean, Side: models.SideCall,
			Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 0.2,
		},
		{
			Style: models.StyleEuropean, Side: models.SidePut,
			Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 0.2,
		},
	}

	_, err := batch.PriceAll(context.Background(), reqs)
	require.NoError(t, err)

	assert.Equal(t, 1, rec.batches)
	assert.Equal(t, 0, rec.active, "every borrowed engine must be returned")
}

func TestBatchSingleRequestHelpers(t *testing.T) {
	batch := NewBatchEngine(BatchConfig{Workers: 2}, nil)

	priced, err := batch.Price(models.PricingRequest{
		Style: models.StyleEuropean, Side: models.SideCall,
		Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 0.2,
	})
	require.NoError(t, err)
	assert.Greater(t, priced.Price, 0.0)
	assert.Nil(t, priced.Greeks)

	withGreeks, err := batch.Greeks(models.PricingRequest{
		Style: models.StyleEuropean, Side: models.SideCall,
		Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 0.2,
	})
	require.NoError(t, err)
	require.NotNil(t, withGreeks.Greeks)

	swept, err := batch.Sweep(models.SweepRequest{
		Request: models.PricingRequest{
			Style: models.StyleEuropean, Side: models.SideCall,
			Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 0.2,
		},
		Parameter: models.SweepSpot,
		Min:       90,
		Max:       110,
		Points:    3,
	})
	require.NoError(t, err)
	require.Len(t, swept.Points, 3)
}
