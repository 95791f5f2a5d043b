package pricing

import (
	"math"

	"github.com/rzzdr/option-pricing-engine/pkg/models"
)

// Bump sizes for the finite-difference Greeks. The gamma bump is much
// wider than the delta bump because regression-based prices are noisy
// enough that a narrow second difference amplifies discretization error.
const (
	deltaBump = 0.5
	gammaBump = 5.0
	vegaBump  = 0.01
	rhoBump   = 0.01

	dayFraction = 1.0 / 365.0
	minMaturity = 1e-10
)

// priceFunc prices one option spec under a fixed simulation config
type priceFunc func(models.OptionSpec, models.SimulationConfig) (float64, error)

// finiteDifferenceGreeks estimates the five Greeks by central finite
// differences under common random numbers: priceFn must reset its
// random stream to cfg.Seed on every call, so paired evaluations differ
// only in the bumped parameter. Vega and rho are quoted per 1% move,
// theta per calendar day, matching the closed-form conventions.
//
// Theta is the one non-CRN estimate. Shortening the maturity changes
// the grid spacing, which breaks path-level draw alignment, so it is
// taken from two full pricings at T and T minus one day instead of a
// synchronized pair.
func finiteDifferenceGreeks(spec models.OptionSpec, cfg models.SimulationConfig, priceFn priceFunc) (*models.Greeks, error) {
	bumped := func(mutate func(*models.OptionSpec)) (float64, error) {
		b := spec
		mutate(&b)
		return priceFn(b, cfg)
	}

	spotUp, err := bumped(func(o *models.OptionSpec) { o.Spot += deltaBump })
	if err != nil {
		return nil, err
	}
	spotDown, err := bumped(func(o *models.OptionSpec) { o.Spot -= deltaBump })
	if err != nil {
		return nil, err
	}
	delta := (spotUp - spotDown) / (2 * deltaBump)

	center, err := priceFn(spec, cfg)
	if err != nil {
		return nil, err
	}
	gammaUp, err := bumped(func(o *models.OptionSpec) { o.Spot += gammaBump })
	if err != nil {
		return nil, err
	}
	gammaDown, err := bumped(func(o *models.OptionSpec) { o.Spot -= gammaBump })
	if err != nil {
		return nil, err
	}
	gamma := (gammaUp - 2*center + gammaDown) / (gammaBump * gammaBump)

	volUp, err := bumped(func(o *models.OptionSpec) { o.Volatility += vegaBump })
	if err != nil {
		return nil, err
	}
	volDown, err := bumped(func(o *models.OptionSpec) { o.Volatility -= vegaBump })
	if err != nil {
		return nil, err
	}
	vega := (volUp - volDown) / (2 * vegaBump) / 100

	rateUp, err := bumped(func(o *models.OptionSpec) { o.Rate += rhoBump })
	if err != nil {
		return nil, err
	}
	rateDown, err := bumped(func(o *models.OptionSpec) { o.Rate -= rhoBump })
	if err != nil {
		return nil, err
	}
	rho := (rateUp - rateDown) / (2 * rhoBump) / 100

	shortened, err := bumped(func(o *models.OptionSpec) {
		o.Maturity = math.Max(o.Maturity-dayFraction, minMaturity)
	})
	if err != nil {
		return nil, err
	}
	theta := (shortened - center) / dayFraction / 365

	return models.NewGreeks(delta, gamma, vega, theta, rho), nil
}
