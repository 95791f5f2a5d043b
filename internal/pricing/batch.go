package pricing

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/pools"
)

// BatchConfig contains configuration for a batch engine
type BatchConfig struct {
	Workers int
	Engine  EngineConfig
}

// BatchEngine prices many independent requests concurrently. The unit
// of parallelism is one whole request: each in-flight request borrows a
// dedicated engine from a pool, so no random generator is ever shared
// between goroutines and per-request seed determinism is preserved.
type BatchEngine struct {
	workers int
	engines *pools.ObjectPool
	metrics MetricsRecorder
	log     *logger.Logger
}

// NewBatchEngine creates a batch engine backed by a pool of pricing engines
func NewBatchEngine(config BatchConfig, metrics MetricsRecorder) *BatchEngine {
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}

	engineConfig := config.Engine
	return &BatchEngine{
		workers: config.Workers,
		engines: pools.NewObjectPool(func() interface{} {
			return NewEngine(engineConfig, metrics)
		}),
		metrics: metrics,
		log:     logger.GetLogger("pricing.batch"),
	}
}

// PriceAll prices every request and returns results in request order.
// The first failure cancels outstanding work and is returned alone.
func (b *BatchEngine) PriceAll(ctx context.Context, reqs []models.PricingRequest) ([]*models.PricingResult, error) {
	start := time.Now()
	results := make([]*models.PricingResult, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			engine := b.acquire()
			result, err := engine.Price(req)
			b.release(engine)
			if err != nil {
				return err
			}

			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if b.metrics != nil {
		b.metrics.RecordBatch(len(reqs), time.Since(start))
	}
	return results, nil
}

// Price handles one request on a pooled engine. This is the entry point
// for callers that serve concurrent requests, such as the API server.
func (b *BatchEngine) Price(req models.PricingRequest) (*models.PricingResult, error) {
	engine := b.acquire()
	defer b.release(engine)
	return engine.Price(req)
}

// Greeks handles one request with Greeks forced on, on a pooled engine
func (b *BatchEngine) Greeks(req models.PricingRequest) (*models.PricingResult, error) {
	engine := b.acquire()
	defer b.release(engine)
	return engine.Greeks(req)
}

// Sweep runs a parameter sweep on a pooled engine
func (b *BatchEngine) Sweep(req models.SweepRequest) (*models.SweepResult, error) {
	engine := b.acquire()
	defer b.release(engine)
	return engine.Sweep(req)
}

// acquire borrows an engine from the pool and counts it as active
func (b *BatchEngine) acquire() *Engine {
	if b.metrics != nil {
		b.metrics.AddActiveWorkers(1)
	}
	return b.engines.Get().(*Engine)
}

func (b *BatchEngine) release(engine *Engine) {
	b.engines.Put(engine)
	if b.metrics != nil {
		b.metrics.AddActiveWorkers(-1)
	}
}
