package pricing

import (
	"math"

	"github.com/rzzdr/option-pricing-engine/pkg/models"
)

// normalCDF calculates the cumulative distribution function of the standard normal distribution
func normalCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt(2.0)))
}

// normalPDF calculates the probability density function of the standard normal distribution
func normalPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2.0*math.Pi)
}

// d1d2 returns the two Black-Scholes auxiliary terms
func d1d2(s, k, r, q, t, sigma float64) (float64, float64) {
	d1 := (math.Log(s/k) + (r-q+0.5*sigma*sigma)*t) / (sigma * math.Sqrt(t))
	d2 := d1 - sigma*math.Sqrt(t)
	return d1, d2
}

// bsCallPrice calculates the Black-Scholes price for a call option
func bsCallPrice(s, k, r, q, t, sigma float64) float64 {
	d1, d2 := d1d2(s, k, r, q, t, sigma)
	return s*math.Exp(-q*t)*normalCDF(d1) - k*math.Exp(-r*t)*normalCDF(d2)
}

// bsPutPrice calculates the Black-Scholes price for a put option
func bsPutPrice(s, k, r, q, t, sigma float64) float64 {
	d1, d2 := d1d2(s, k, r, q, t, sigma)
	return k*math.Exp(-r*t)*normalCDF(-d2) - s*math.Exp(-q*t)*normalCDF(-d1)
}

// BlackScholesPrice returns the closed-form price of a European option.
// At zero maturity the price collapses to intrinsic value.
func BlackScholesPrice(opt models.OptionSpec) float64 {
	if opt.Maturity <= 0 {
		return opt.Intrinsic(opt.Spot)
	}
	if opt.Side == models.SideCall {
		return bsCallPrice(opt.Spot, opt.Strike, opt.Rate, opt.DividendYield, opt.Maturity, opt.Volatility)
	}
	return bsPutPrice(opt.Spot, opt.Strike, opt.Rate, opt.DividendYield, opt.Maturity, opt.Volatility)
}

// BlackScholesGreeks returns the analytic Greeks of a European option.
// Vega and rho are quoted per 1% move in volatility and rate, theta per
// calendar day. With no time value left, delta degenerates to an
// exercise indicator and the remaining Greeks are zero.
func BlackScholesGreeks(opt models.OptionSpec) *models.Greeks {
	s := opt.Spot
	k := opt.Strike
	r := opt.Rate
	q := opt.DividendYield
	t := opt.Maturity
	sigma := opt.Volatility

	if t <= 0 {
		var delta float64
		if opt.Side == models.SideCall && s > k {
			delta = 1
		} else if opt.Side == models.SidePut && s < k {
			delta = -1
		}
		return models.NewGreeks(delta, 0, 0, 0, 0)
	}

	d1, d2 := d1d2(s, k, r, q, t, sigma)
	sqrtT := math.Sqrt(t)

	var delta float64
	if opt.Side == models.SideCall {
		delta = math.Exp(-q*t) * normalCDF(d1)
	} else {
		delta = math.Exp(-q*t) * (normalCDF(d1) - 1)
	}

	gamma := math.Exp(-q*t) * normalPDF(d1) / (s * sigma * sqrtT)

	// Theta aggregates time decay, rate carry and dividend carry, then
	// converts from per-year to per-day
	var theta float64
	if opt.Side == models.SideCall {
		term1 := -s * sigma * math.Exp(-q*t) * normalPDF(d1) / (2 * sqrtT)
		term2 := -r * k * math.Exp(-r*t) * normalCDF(d2)
		term3 := q * s * math.Exp(-q*t) * normalCDF(d1)
		theta = (term1 + term2 + term3) / 365
	} else {
		term1 := -s * sigma * math.Exp(-q*t) * normalPDF(d1) / (2 * sqrtT)
		term2 := r * k * math.Exp(-r*t) * normalCDF(-d2)
		term3 := -q * s * math.Exp(-q*t) * normalCDF(-d1)
		theta = (term1 + term2 + term3) / 365
	}

	vega := s * math.Exp(-q*t) * normalPDF(d1) * sqrtT / 100

	var rho float64
	if opt.Side == models.SideCall {
		rho = k * t * math.Exp(-r*t) * normalCDF(d2) / 100
	} else {
		rho = -k * t * math.Exp(-r*t) * normalCDF(-d2) / 100
	}

	return models.NewGreeks(delta, gamma, vega, theta, rho)
}
