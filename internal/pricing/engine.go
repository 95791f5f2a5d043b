package pricing

import (
	"time"

	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/pools"
)

// MetricsRecorder defines the interface for recording pricing telemetry
type MetricsRecorder interface {
	RecordPricing(style, side, status string, duration time.Duration)
	RecordGreeks(style string, duration time.Duration)
	RecordSimulationPaths(style string, numPaths int)
	RecordSweep(parameter string, points int, duration time.Duration)
	RecordBatch(size int, duration time.Duration)
	AddActiveWorkers(delta int)
}

// EngineConfig contains configuration for a pricing engine
type EngineConfig struct {
	RegressionDegree int
}

// Engine is the pricing facade: it resolves defaults, validates, and
// dispatches each request by style to the closed form, the LSM
// induction or the path-payoff evaluators, attaching Greeks on demand.
//
// An Engine owns its random generator, so a single Engine must not
// price concurrently; run one Engine per worker and keep whole requests
// as the unit of parallelism.
type Engine struct {
	sim     *Simulator
	lsm     *lsmPricer
	metrics MetricsRecorder
	log     *logger.Logger
}

// NewEngine creates a pricing engine. The metrics recorder may be nil.
func NewEngine(config EngineConfig, metrics MetricsRecorder) *Engine {
	scratch := pools.NewFloat64SlicePool(models.DefaultNumPaths)
	return &Engine{
		sim:     NewSimulator(models.DefaultSeed),
		lsm:     newLSMPricer(config.RegressionDegree, scratch),
		metrics: metrics,
		log:     logger.GetLogger("pricing.engine"),
	}
}

// Price handles a single pricing request end to end. On any validation
// or evaluation failure the error is returned alone, never next to a
// partial price.
func (e *Engine) Price(req models.PricingRequest) (*models.PricingResult, error) {
	start := time.Now()
	req.EnsureID()
	req.ApplyDefaults()

	spec, cfg, err := ValidateRequest(req)
	if err != nil {
		e.recordPricing(req, "rejected", time.Since(start))
		return nil, err
	}

	price, err := e.price(spec, cfg)
	if err != nil {
		e.recordPricing(req, "error", time.Since(start))
		return nil, err
	}

	result := &models.PricingResult{
		RequestID:  req.ID,
		Price:      price,
		Parameters: req,
		ComputedAt: time.Now(),
	}

	if req.ComputeGreeks {
		greeksStart := time.Now()
		greeks, err := e.greeks(spec, cfg)
		if err != nil {
			e.recordPricing(req, "error", time.Since(start))
			return nil, err
		}
		result.Greeks = greeks
		if e.metrics != nil {
			e.metrics.RecordGreeks(string(req.Style), time.Since(greeksStart))
		}
	}

	elapsed := time.Since(start)
	result.ElapsedMs = float64(elapsed.Microseconds()) / 1000.0
	e.recordPricing(req, "success", elapsed)
	e.log.Debugf("Priced %s %s request %s in %v", req.Style, req.Side, req.ID, elapsed)
	return result, nil
}

// Greeks prices a request with Greeks forced on
func (e *Engine) Greeks(req models.PricingRequest) (*models.PricingResult, error) {
	req.ComputeGreeks = true
	return e.Price(req)
}

// price dispatches an already validated spec by style. Monte Carlo
// styles reset the generator to the configured seed before simulating,
// which is what keeps repeated and bumped evaluations on common random
// numbers.
func (e *Engine) price(spec models.OptionSpec, cfg models.SimulationConfig) (float64, error) {
	switch spec.Style {
	case models.StyleEuropean:
		return BlackScholesPrice(spec), nil

	case models.StyleAmerican:
		return e.lsm.price(e.simulate(spec, cfg), spec), nil

	case models.StyleAsian:
		return asianPayoff(e.simulate(spec, cfg), spec)

	case models.StyleBarrier:
		return barrierPayoff(e.simulate(spec, cfg), spec)

	default:
		return 0, errors.UnsupportedErrorf("unsupported option style %q", string(spec.Style))
	}
}

// greeks dispatches Greeks computation by style. European contracts use
// the analytic formulas; all other styles run the finite-difference
// engine over the Monte Carlo pricers.
func (e *Engine) greeks(spec models.OptionSpec, cfg models.SimulationConfig) (*models.Greeks, error) {
	if spec.Style == models.StyleEuropean {
		return BlackScholesGreeks(spec), nil
	}
	return finiteDifferenceGreeks(spec, cfg, e.price)
}

func (e *Engine) simulate(spec models.OptionSpec, cfg models.SimulationConfig) PricePath {
	e.sim.Reset(cfg.Seed)
	if e.metrics != nil {
		e.metrics.RecordSimulationPaths(string(spec.Style), cfg.NumPaths)
	}
	return e.sim.Simulate(spec.Spot, spec.Maturity, spec.Rate, spec.Volatility, spec.DividendYield, cfg)
}

func (e *Engine) recordPricing(req models.PricingRequest, status string, duration time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordPricing(string(req.Style), string(req.Side), status, duration)
}
