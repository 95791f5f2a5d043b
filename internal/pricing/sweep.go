package pricing

import (
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
)

// Sweep prices the base request once per point of an inclusive linear
// grid over a single named parameter. Every point keeps the base seed,
// so the resulting curve varies only in the swept parameter. The first
// failing point aborts the sweep; no partial curve is returned.
func (e *Engine) Sweep(req models.SweepRequest) (*models.SweepResult, error) {
	start := time.Now()

	if req.Points < 2 {
		return nil, errors.InvalidParameterErrorf("points must be at least 2, got %d", req.Points)
	}
	if req.Max <= req.Min {
		return nil, errors.InvalidParameterErrorf("max must exceed min, got [%g, %g]", req.Min, req.Max)
	}

	values := make([]float64, req.Points)
	floats.Span(values, req.Min, req.Max)

	points := make([]models.SweepPoint, len(values))
	for i, v := range values {
		r := req.Request
		if err := setSweepParameter(&r, req.Parameter, v); err != nil {
			return nil, err
		}

		res, err := e.Price(r)
		if err != nil {
			return nil, err
		}
		points[i] = models.SweepPoint{
			Value:  v,
			Price:  res.Price,
			Greeks: res.Greeks,
		}
	}

	elapsed := time.Since(start)
	if e.metrics != nil {
		e.metrics.RecordSweep(req.Parameter, req.Points, elapsed)
	}
	e.log.Debugf("Swept %s over [%g, %g] in %d points in %v", req.Parameter, req.Min, req.Max, req.Points, elapsed)

	return &models.SweepResult{
		RequestID:  uuid.New().String(),
		Parameter:  req.Parameter,
		Points:     points,
		ComputedAt: time.Now(),
		ElapsedMs:  float64(elapsed.Microseconds()) / 1000.0,
	}, nil
}

// setSweepParameter writes the swept value into its request field
func setSweepParameter(r *models.PricingRequest, name string, v float64) error {
	switch name {
	case models.SweepSpot:
		r.Spot = v
	case models.SweepStrike:
		r.Strike = v
	case models.SweepMaturity:
		r.Maturity = v
	case models.SweepRate:
		r.Rate = v
	case models.SweepVolatility:
		r.Volatility = v
	case models.SweepDividendYield:
		r.DividendYield = v
	default:
		return errors.UnsupportedErrorf("unsupported sweep parameter %q", name)
	}
	return nil
}
